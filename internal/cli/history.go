// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/CaptainASIC/FusionLoom/internal/history"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/util"
)

// nowFunc stamps exports. Tests replace it.
var nowFunc = time.Now

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var providerName string

	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "Manage saved chats",
		Long: `List, inspect, export and import the chats saved for a provider.

Every subcommand works on one provider, chosen with --provider or the
configured default.`,
	}
	cmd.PersistentFlags().StringVarP(&providerName, "provider", "p", "", "provider whose history to use")

	// withStore opens the app and resolves the provider for a subcommand.
	withStore := func(fn func(cmd *cobra.Command, a *app, p model.Provider, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()
			p, err := a.providerOrDefault(providerName)
			if err != nil {
				return err
			}
			return fn(cmd, a, p, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List chats, most recent first",
			Args:  cobra.NoArgs,
			RunE: withStore(func(cmd *cobra.Command, a *app, p model.Provider, _ []string) error {
				printSessionTable(cmd.OutOrStdout(), p, a.store.ListSessions(p))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print a chat",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(cmd *cobra.Command, a *app, p model.Provider, args []string) error {
				sess, ok := a.store.LoadSession(p, args[0])
				if !ok {
					return &NotFoundError{Resource: "session", ID: args[0]}
				}
				printSession(cmd.OutOrStdout(), sess)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Find chats whose name or messages contain query",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(cmd *cobra.Command, a *app, p model.Provider, args []string) error {
				found := a.store.SearchHistory(p, args[0]).Sorted()
				if len(found) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No chats match %q\n", args[0])
					return nil
				}
				printSessionTable(cmd.OutOrStdout(), p, found)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename a chat",
			Args:  cobra.ExactArgs(2),
			RunE: withStore(func(cmd *cobra.Command, a *app, p model.Provider, args []string) error {
				ok, err := a.store.RenameSession(p, args[0], args[1])
				if err != nil {
					return wrap("history", "rename", err)
				}
				if !ok {
					return &NotFoundError{Resource: "session", ID: args[0]}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Renamed"), args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a chat",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(cmd *cobra.Command, a *app, p model.Provider, args []string) error {
				ok, err := a.store.DeleteSession(p, args[0])
				if err != nil {
					return wrap("history", "delete", err)
				}
				if !ok {
					return &NotFoundError{Resource: "session", ID: args[0]}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Deleted"), args[0])
				return nil
			}),
		},
		newHistoryExportCmd(withStore),
		newHistoryImportCmd(withStore),
		newHistoryClearCmd(withStore),
		&cobra.Command{
			Use:   "stats",
			Short: "Show chat and message counts for every provider",
			Args:  cobra.NoArgs,
			RunE: withStore(func(cmd *cobra.Command, a *app, _ model.Provider, _ []string) error {
				printStats(cmd.OutOrStdout(), a.store, model.AllProviders())
				return nil
			}),
		},
	)
	return cmd
}

type storeRunner func(fn func(cmd *cobra.Command, a *app, p model.Provider, args []string) error) func(*cobra.Command, []string) error

func newHistoryExportCmd(withStore storeRunner) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export one chat, or the whole history as JSON",
		Long: `With an id, render that chat as markdown, json, yaml or html into the
--output directory. Without one, write the provider's whole history as
JSON to --output (a file) or stdout; the result can be read back with
'history import'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: withStore(func(cmd *cobra.Command, a *app, p model.Provider, args []string) error {
			if len(args) == 1 {
				sess, ok := a.store.LoadSession(p, args[0])
				if !ok {
					return &NotFoundError{Resource: "session", ID: args[0]}
				}
				path, err := exportSession(sess, p, format, output)
				if err != nil {
					return wrap("history", "export", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Exported to"), path)
				return nil
			}

			data, err := a.store.ExportHistory(p)
			if err != nil {
				return wrap("history", "export", err)
			}
			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), data)
				return nil
			}
			if err := util.AtomicWriteFile(output, []byte(data+"\n"), 0600); err != nil {
				return wrap("history", "export", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Exported to"), output)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "chat format: markdown, json, yaml or html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (one chat) or file (whole history)")
	return cmd
}

func newHistoryImportCmd(withStore storeRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the history with a JSON export",
		Long: `Replace the provider's whole history with the sessions in a JSON export.
Nothing is changed unless every entry is valid. Use - to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, a *app, p model.Provider, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return wrap("history", "import", err)
			}
			if _, err := a.store.ImportHistory(p, string(data)); err != nil {
				return wrap("history", "import", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d chats into %s\n",
				SuccessStyle.Render("Imported"), a.store.GetSessionCount(p), p.DisplayName())
			return nil
		}),
	}
}

func newHistoryClearCmd(withStore storeRunner) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every chat of the provider",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, a *app, p model.Provider, _ []string) error {
			if !yes {
				return &UsageError{Reason: fmt.Sprintf("refusing to clear %s history without --yes", p.DisplayName())}
			}
			if err := a.store.ClearHistory(p); err != nil {
				return wrap("history", "clear", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s history\n", SuccessStyle.Render("Cleared"), p.DisplayName())
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}

// =============================================================================
// OUTPUT
// =============================================================================

func printSessionTable(w io.Writer, p model.Provider, sessions []*model.ChatSession) {
	if len(sessions) == 0 {
		fmt.Fprintf(w, "No %s chats yet\n", p.DisplayName())
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMESSAGES\tUPDATED")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, util.TruncateWidth(s.Name, 40), len(s.Messages), model.FormatTime(s.LastActivity()))
	}
	tw.Flush()
}

func printSession(w io.Writer, sess *model.ChatSession) {
	fmt.Fprintln(w, TitleStyle.Render(sess.Name))
	fmt.Fprintf(w, "%s %s\n", RenderLabel("ID:"), sess.ID)
	fmt.Fprintf(w, "%s %s\n", RenderLabel("Created:"), model.FormatTime(sess.Created))
	fmt.Fprintf(w, "%s %s\n", RenderLabel("Updated:"), model.FormatTime(sess.Updated))
	fmt.Fprintln(w, RenderSeparator())
	for _, m := range sess.Messages {
		if m.IsUser() {
			fmt.Fprintln(w, UserStyle.Render("You"))
		} else {
			fmt.Fprintln(w, AssistantStyle.Render("Assistant"))
		}
		fmt.Fprintln(w, m.Content)
		fmt.Fprintln(w)
	}
}

func printStats(w io.Writer, store *history.Store, providers []model.Provider) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tCHATS\tMESSAGES\tMOST RECENT")
	for _, p := range providers {
		st := store.Stats(p)
		recent := "-"
		if st.MostRecent != nil {
			recent = util.TruncateWidth(st.MostRecent.Name, 30)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", p.DisplayName(), st.Sessions, st.Messages, recent)
	}
	tw.Flush()
}
