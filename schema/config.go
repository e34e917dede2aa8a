package schema

import "time"

// ServiceConfig defines defaults and limits for the session core.
type ServiceConfig struct {
	// HistoryMax bounds the per-tab undo stack.
	HistoryMax int
	// DisableAuditLogging disables audit trail debug logs for store commands.
	DisableAuditLogging bool
}

// DefaultHistoryMax is the default per-tab undo depth.
const DefaultHistoryMax = 1000

// DefaultCommandTimeout bounds a single store command.
const DefaultCommandTimeout = 10 * time.Second

// NormalizeServiceConfig applies defaults.
func NormalizeServiceConfig(cfg ServiceConfig) ServiceConfig {
	if cfg.HistoryMax <= 0 {
		cfg.HistoryMax = DefaultHistoryMax
	}
	return cfg
}
