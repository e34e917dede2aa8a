package backend

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"pkt.systems/pslog"
)

// pipeGrace bounds how long Wait keeps stdio open after the service exits or
// is killed, so a grandchild holding the pipes cannot block the caller.
const pipeGrace = 500 * time.Millisecond

// ExecTransport spawns a fresh service process for every command. The
// command is written to stdin followed by a newline.
type ExecTransport struct {
	cfg Config
}

// NewExecTransport constructs a per-command transport.
func NewExecTransport(cfg Config) *ExecTransport {
	return &ExecTransport{cfg: cfg}
}

// Do runs one command and returns the untrimmed stdout.
func (t *ExecTransport) Do(ctx context.Context, command string) (string, error) {
	binary, err := resolveBinary(t.cfg.BinaryPath)
	if err != nil {
		return "", err
	}
	log := pslog.Ctx(ctx)

	cmd := exec.CommandContext(ctx, binary, t.cfg.Args...)
	isolate(cmd)
	cmd.WaitDelay = pipeGrace
	cmd.Env = append(cmd.Env, os.Environ()...)
	if len(t.cfg.Env) > 0 {
		cmd.Env = append(cmd.Env, t.cfg.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(command + "\n")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	runErr := cmd.Run()
	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	fields := []any{
		"exit_code", exitCode,
		"duration_ms", time.Since(started).Milliseconds(),
		"stdout_len", stdout.Len(),
		"stderr_len", stderr.Len(),
	}
	if runErr != nil {
		fields = append(fields, "err", runErr)
	}
	log.Debug("backend exec finished", fields...)

	if runErr != nil && ctx.Err() != nil {
		return "", classify(ctx, runErr)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return "", &ServiceError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return "", classify(ctx, runErr)
	}
	if strings.TrimSpace(stderr.String()) != "" {
		return "", &ServiceError{Stderr: stderr.String()}
	}
	return stdout.String(), nil
}

// Close is a no-op; no process outlives a command.
func (t *ExecTransport) Close() error {
	return nil
}
