// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the fusionloom command line: the dashboard, the
// line-mode chat and the history, providers and config commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/CaptainASIC/FusionLoom/internal/logger"
)

// Build information, set from main via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}

// NewRootCmd builds the command tree. Each call returns a fresh tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "fusionloom",
		Short: "Chat with Ollama, Claude, ChatGPT and Gemini from one terminal",
		Long: `FusionLoom keeps a separate chat history for each provider and lets you
switch between them without losing a conversation.

Quick Start:
  fusionloom                       # open the dashboard
  fusionloom chat -p claude        # line-mode chat
  fusionloom history list          # list saved chats
  fusionloom providers status      # check which providers answer`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		// commands that open the history store replace this with the
		// configured level
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitFromEnv("warn", cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, flags, "")
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (TOML or JSON)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&flags.storage, "storage", "", "history backend: file, sqlite or memory")

	root.AddCommand(
		newTUICmd(flags),
		newChatCmd(flags),
		newHistoryCmd(flags),
		newProvidersCmd(flags),
		newConfigCmd(flags),
		newVersionCmd(),
	)
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		DisplayError(os.Stderr, err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fusionloom %s\n", versionString())
		},
	}
}
