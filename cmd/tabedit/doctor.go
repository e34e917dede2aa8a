package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/internal/appconfig"
	"pkt.systems/tabedit/internal/backend"
	"pkt.systems/tabedit/schema"
)

const doctorFilename schema.Filename = "tabedit-doctor.txt"

func newDoctorCmd() *cobra.Command {
	var cfgPath string
	var mode string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the store service answers save, search and load",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if mode != "" {
				cfg.Backend.Mode = mode
				if err := appconfig.Validate(cfg); err != nil {
					return err
				}
			}
			backendCfg, err := backendConfig(cfg)
			if err != nil {
				return err
			}
			logger.Info("doctor start", "binary", backendCfg.BinaryPath, "mode", backendCfg.Mode)
			client, err := backend.NewClient(backendCfg)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			if err := runDoctorChecks(cmd.Context(), logger, client); err != nil {
				return err
			}
			logger.Info("doctor complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&mode, "mode", "", "backend mode override (exec or worker)")
	return cmd
}

// runDoctorChecks performs a save, search and load round trip against the
// store. The probe record becomes the store's current record.
func runDoctorChecks(ctx context.Context, logger pslog.Logger, client *backend.Client) error {
	probe := fmt.Sprintf("tabedit doctor probe %d\nsecond line: with colons", time.Now().UnixNano())
	timeout := client.Timeout()
	logger.Info("doctor store timeout", "timeout", timeout)
	// slow flags a step that used more than half the per-command budget.
	slow := func(step string, elapsed time.Duration) {
		if elapsed > timeout/2 {
			logger.Warn("doctor step slow", "step", step, "elapsed", elapsed, "timeout", timeout)
		}
	}

	start := time.Now()
	resp, err := client.Save(ctx, doctorFilename, probe)
	if err != nil {
		return fmt.Errorf("doctor save: %w", err)
	}
	slow("save", time.Since(start))
	logger.Info("doctor save ok", "response", resp, "elapsed", time.Since(start))

	start = time.Now()
	found, _, err := client.Search(ctx, "probe")
	if err != nil {
		return fmt.Errorf("doctor search: %w", err)
	}
	if !found {
		return fmt.Errorf("doctor search: store did not find a word it was just given")
	}
	slow("search", time.Since(start))
	logger.Info("doctor search ok", "elapsed", time.Since(start))

	start = time.Now()
	missing, _, err := client.Search(ctx, "zzdoctorabsent")
	if err != nil {
		return fmt.Errorf("doctor search: %w", err)
	}
	if missing {
		return fmt.Errorf("doctor search: store reported an absent word as found")
	}
	slow("search_miss", time.Since(start))
	logger.Info("doctor search miss ok", "elapsed", time.Since(start))

	start = time.Now()
	stored, err := client.Load(ctx, doctorFilename)
	if err != nil {
		return fmt.Errorf("doctor load: %w", err)
	}
	if strings.TrimSuffix(stored, "\n") != probe {
		return fmt.Errorf("doctor load: stored content differs (%d bytes, want %d)", len(stored), len(probe))
	}
	slow("load", time.Since(start))
	logger.Info("doctor load ok", "content_len", len(stored), "elapsed", time.Since(start))
	return nil
}
