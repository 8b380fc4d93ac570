// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CaptainASIC/FusionLoom/internal/config"
)

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit settings",
		Long: `Show and edit the FusionLoom settings file.

Environment variables (FUSIONLOOM_*, OLLAMA_HOST and the provider API key
variables) override the file; 'config show' prints the merged result with
API keys redacted.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, path, err := flags.loadConfig()
				if err != nil {
					return err
				}
				if path == "" {
					path = "(defaults)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", RenderLabel("Source:"), path)
				fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the settings file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := settingsPath(flags)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		newConfigInitCmd(flags),
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting, e.g. ollama.url",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := flags.loadConfig()
				if err != nil {
					return err
				}
				v, err := cfg.Redacted().Get(args[0])
				if err != nil {
					return &UsageError{Reason: err.Error()}
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one setting in the settings file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return setConfigValue(flags, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List the setting keys",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(config.AllKeys(), "\n"))
			},
		},
	)
	return cmd
}

func newConfigInitCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := settingsPath(flags)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &UsageError{Reason: path + " already exists (use --force to overwrite)"}
			}
			if err := config.EnsureConfigDir(); err != nil {
				return err
			}
			if err := writeSettings(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Wrote"), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// settingsPath is --config or the default TOML file.
func settingsPath(flags *globalFlags) (string, error) {
	if flags.configPath != "" {
		return flags.configPath, nil
	}
	return config.ConfigPathTOML()
}

// setConfigValue edits the file alone so environment overrides are never
// written back.
func setConfigValue(flags *globalFlags, key, value string) error {
	path, err := settingsPath(flags)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if strings.HasSuffix(path, ".json") {
			err = config.LoadJSON(cfg, path)
		} else {
			err = config.LoadTOML(cfg, path)
		}
		if err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	} else if err := config.EnsureConfigDir(); err != nil {
		return err
	}

	if err := cfg.Set(key, value); err != nil {
		return &UsageError{Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return writeSettings(path, cfg)
}

func writeSettings(path string, cfg *config.Config) error {
	if strings.HasSuffix(path, ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}
