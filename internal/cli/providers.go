// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/provider"
)

const (
	probeTimeout  = 5 * time.Second
	modelsTimeout = 10 * time.Second
)

func newProvidersCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "providers",
		Aliases: []string{"provider"},
		Short:   "Inspect the chat providers",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List providers and their settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(cmd, flags)
				if err != nil {
					return err
				}
				defer a.Close()

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "PROVIDER\tKIND\tDEFAULT MODEL\tENDPOINT\tAPI KEY")
				for _, p := range model.AllProviders() {
					s := a.cfg.ProviderSettings(p)
					kind, key := "cloud", "not set"
					if p.IsLocal() {
						kind, key = "local", "-"
					} else if s.APIKey != "" {
						key = "set"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.DisplayName(), kind, s.DefaultModel, s.URL, key)
				}
				return tw.Flush()
			},
		},
		newProvidersModelsCmd(flags),
		&cobra.Command{
			Use:   "status",
			Short: "Check which providers are reachable",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(cmd, flags)
				if err != nil {
					return err
				}
				defer a.Close()

				up := probeAll(cmd.Context(), a)
				for _, p := range model.AllProviders() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", RenderStatus(up[p]), p.DisplayName())
				}
				return nil
			},
		},
		newProvidersPullCmd(flags),
	)
	return cmd
}

// probeAll checks every provider concurrently.
func probeAll(ctx context.Context, a *app) map[model.Provider]bool {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	up := make(map[model.Provider]bool)
	for _, p := range model.AllProviders() {
		adapter, err := a.adapters.Get(p)
		if err != nil {
			continue
		}
		wg.Add(1)
		go func(p model.Provider, adapter provider.Adapter) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			ok := adapter.IsAvailable(ctx)
			mu.Lock()
			up[p] = ok
			mu.Unlock()
		}(p, adapter)
	}
	wg.Wait()
	return up
}

func newProvidersModelsCmd(flags *globalFlags) *cobra.Command {
	var providerName string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models a provider offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.providerOrDefault(providerName)
			if err != nil {
				return err
			}
			adapter, err := a.adapters.Get(p)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), modelsTimeout)
			defer cancel()
			models, err := adapter.ListModels(ctx)
			if err != nil {
				return wrap("providers", "models", err)
			}
			def := a.cfg.ProviderSettings(p).DefaultModel
			for _, m := range models {
				if m == def {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", m, DimStyle.Render("(default)"))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), m)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "provider to query")
	return cmd
}

func newProvidersPullCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pull <model>",
		Short: "Download an Ollama model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			adapter, err := a.adapters.Get(model.ProviderOllama)
			if err != nil {
				return err
			}
			puller, ok := provider.AsPuller(adapter)
			if !ok {
				return fmt.Errorf("%s does not support pulling models", adapter.Name().DisplayName())
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, InfoStyle.Render(fmt.Sprintf("Pulling model: %s...", args[0])))
			if err := puller.Pull(cmd.Context(), args[0]); err != nil {
				return wrap("providers", "pull", err)
			}
			fmt.Fprintln(out, SuccessStyle.Render(fmt.Sprintf("Successfully pulled model: %s", args[0])))
			return nil
		},
	}
}
