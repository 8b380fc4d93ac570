// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/CaptainASIC/FusionLoom/internal/config"
	"github.com/CaptainASIC/FusionLoom/internal/logger"
	"github.com/CaptainASIC/FusionLoom/internal/ui/styles"
	"github.com/CaptainASIC/FusionLoom/internal/ui/tui"
)

func newTUICmd(flags *globalFlags) *cobra.Command {
	var providerName, exportDir string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the dashboard",
		Long: `Open the full-screen dashboard with one tab per provider.

Logs go to fusionloom.log in the config directory while it runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, flags, providerName, withExportDir(exportDir))
		},
	}
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "provider to open first")
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "directory for ctrl+s exports")
	return cmd
}

type tuiOption func(*tui.Options)

func withExportDir(dir string) tuiOption {
	return func(o *tui.Options) { o.ExportDir = dir }
}

// runTUI starts the dashboard. It refuses to run without a terminal.
func runTUI(cmd *cobra.Command, flags *globalFlags, providerName string, opts ...tuiOption) error {
	if !IsStdoutTTY() {
		return &TTYRequiredError{Operation: "open the dashboard (try 'fusionloom chat')"}
	}

	a, err := openApp(cmd, flags)
	if err != nil {
		return err
	}
	defer a.Close()

	start, err := a.providerOrDefault(providerName)
	if err != nil {
		return err
	}

	logPath, err := config.LogPath()
	if err != nil {
		return err
	}
	closer, err := logger.InitFile(a.cfg.LogLevel, logPath)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	to := tui.Options{
		Adapters: a.adapters,
		Store:    a.store,
		Theme:    styles.NewTheme(a.cfg.Theme),
		Start:    start,
		Models:   a.models(),
		Settings: watchSettings(ctx, a.cfgPath),
	}
	for _, o := range opts {
		o(&to)
	}
	logger.Log.Infof("dashboard starting on %s", start)
	return tui.Run(ctx, to)
}

// watchSettings forwards theme changes from the config file. It returns
// nil when there is no file to watch.
func watchSettings(ctx context.Context, path string) <-chan tui.SettingsMsg {
	if path == "" {
		return nil
	}
	ch := make(chan tui.SettingsMsg, 1)
	err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
		if err != nil {
			logger.Log.Warnf("config reload: %v", err)
			return
		}
		select {
		case ch <- tui.SettingsMsg{Theme: cfg.Theme}:
		default:
		}
	})
	if err != nil {
		logger.Log.Warnf("config watch: %v", err)
		return nil
	}
	return ch
}
