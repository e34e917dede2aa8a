// Package backend invokes the external store service. Each command is a
// synchronous request bounded by a timeout; the service is either spawned
// fresh per command (ModeExec) or kept alive as a framed worker (ModeWorker).
package backend

import (
	"fmt"
	"strings"
	"time"

	"pkt.systems/tabedit/schema"
)

// Mode selects the transport used to reach the service.
type Mode string

const (
	// ModeExec spawns one process per command.
	ModeExec Mode = "exec"
	// ModeWorker keeps one process alive and exchanges frames with it.
	ModeWorker Mode = "worker"
)

// WorkerFlag is appended to the service arguments in worker mode.
const WorkerFlag = "--serve"

// Config controls how the store service is invoked.
type Config struct {
	BinaryPath string
	Args       []string
	Env        []string
	Timeout    time.Duration
	Mode       Mode
	// DisableAuditLogging disables audit trail debug logs for commands.
	DisableAuditLogging bool
}

func normalizeConfig(cfg Config) (Config, error) {
	cfg.BinaryPath = strings.TrimSpace(cfg.BinaryPath)
	if cfg.BinaryPath == "" {
		return Config{}, fmt.Errorf("%w: binary path is required", schema.ErrServiceNotFound)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = schema.DefaultCommandTimeout
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = ModeExec
	case ModeExec, ModeWorker:
	default:
		return Config{}, fmt.Errorf("unsupported backend mode %q", cfg.Mode)
	}
	return cfg, nil
}
