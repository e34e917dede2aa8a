package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/bootstrap"
)

func newBootstrapCmd() *cobra.Command {
	var outputDir string
	var overwrite bool
	var noLink bool
	var sets []string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Generate a config, store directory and tabedit-store link",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			out := outputDir
			if out == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				out = filepath.Join(home, ".tabedit")
			}
			opts := bootstrap.Options{SkipStoreLink: noLink}
			for _, set := range sets {
				override, err := bootstrap.ParseOverride(set)
				if err != nil {
					return err
				}
				opts.Overrides = append(opts.Overrides, override)
			}
			paths, err := bootstrap.WriteBootstrap(out, overwrite, opts)
			if err != nil {
				return err
			}
			logger.Info("bootstrap wrote", "path", paths.ConfigPath, "name", "config.yaml")
			logger.Info("bootstrap wrote", "path", paths.DataDir, "name", "store/")
			if paths.BinPath != "" {
				logger.Info("bootstrap wrote", "path", paths.BinPath, "name", bootstrap.StoreLinkName)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default ~/.tabedit)")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite existing files")
	cmd.Flags().BoolVar(&noLink, "no-link", false, "do not create the tabedit-store link")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "config override as path=value (repeatable)")
	return cmd
}
