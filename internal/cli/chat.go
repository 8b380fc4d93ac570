// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/CaptainASIC/FusionLoom/internal/chat"
	"github.com/CaptainASIC/FusionLoom/internal/config"
	"github.com/CaptainASIC/FusionLoom/internal/export"
	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/render"
	"github.com/CaptainASIC/FusionLoom/internal/ui/styles"
	"github.com/CaptainASIC/FusionLoom/internal/util"
)

func newChatCmd(flags *globalFlags) *cobra.Command {
	var providerName, modelName, sessionID, exportDir string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in line mode",
		Long: `Chat with one provider in line mode. Type /help for commands.

Input may be piped; each line is sent as one message.`,
		Args: cobra.NoArgs,
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

			var in lineReader
			var md *render.Renderer
			if IsTTY() && IsStdoutTTY() {
				in = newLinerReader()
				md = render.New(styles.NewTheme(a.cfg.Theme), GetTerminalWidth())
			} else {
				in = newScanReader(cmd.InOrStdin())
			}
			defer in.Close()

			r := newREPL(a, in, cmd.OutOrStdout(), md)
			r.exportDir = exportDir
			if modelName != "" {
				r.ctrl.SelectModel(p, modelName)
			}
			if err := r.ctrl.Initialize(cmd.Context(), p); err != nil {
				return err
			}
			if sessionID != "" {
				if err := r.ctrl.SwitchSession(sessionID); err != nil {
					return err
				}
			}
			return r.run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "provider to chat with")
	cmd.Flags().StringVarP(&modelName, "model", "m", "", "model to use")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id to resume")
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "directory for /export")
	return cmd
}

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of user input.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// linerReader provides input history and line editing.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader() *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &linerReader{line: line, historyFile: filepath.Join(dir, "input_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves input history with owner-only permissions and restores the
// terminal.
func (r *linerReader) Close() error {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	return r.line.Close()
}

// scanReader reads lines from a pipe without prompting.
type scanReader struct {
	sc *bufio.Scanner
}

func newScanReader(in io.Reader) *scanReader {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &scanReader{sc: sc}
}

func (r *scanReader) Prompt(string) (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}

func (r *scanReader) Close() error { return nil }

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	ctrl      *chat.Controller
	in        lineReader
	out       io.Writer
	md        *render.Renderer
	exportDir string

	// draft holds attachment markers for the next message
	draft string
	// listed is the session order of the last /sessions output
	listed []*model.ChatSession
}

func newREPL(a *app, in lineReader, out io.Writer, md *render.Renderer) *repl {
	r := &repl{in: in, out: out, md: md}
	r.ctrl = chat.NewController(a.adapters, a.store,
		chat.WithNotifier(chat.NotifierFunc(r.notify)),
		chat.WithModels(a.models()),
	)
	return r
}

func (r *repl) notify(n chat.Notification) {
	switch n.Type {
	case chat.NotifyError:
		fmt.Fprintln(r.out, ErrorStyle.Render(n.Message))
	case chat.NotifyWarning:
		fmt.Fprintln(r.out, WarningStyle.Render(n.Message))
	case chat.NotifySuccess:
		fmt.Fprintln(r.out, SuccessStyle.Render(n.Message))
	default:
		fmt.Fprintln(r.out, InfoStyle.Render(n.Message))
	}
}

// run reads input until /quit, EOF or ctrl+c at the prompt.
func (r *repl) run(ctx context.Context) error {
	r.printWelcome()
	for {
		if ctx.Err() != nil {
			return nil
		}
		p := r.ctrl.Provider()
		input, err := r.in.Prompt(PromptStyle.Render(string(p) + "> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			cont, err := r.command(ctx, input)
			if err != nil {
				DisplayError(r.out, err)
			}
			if !cont {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}
		r.send(ctx, input)
	}
}

// send delivers text plus any pending attachments. ctrl+c while waiting
// cancels the request.
func (r *repl) send(ctx context.Context, text string) {
	if r.draft != "" {
		text += "\n" + r.draft
		r.draft = ""
	}
	fmt.Fprintln(r.out, DimStyle.Render("Assistant is typing..."))

	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if err := r.ctrl.SendMessage(sendCtx, text); err != nil {
		return
	}
	r.printLastReply()
}

func (r *repl) printLastReply() {
	sess, ok := r.ctrl.Session()
	if !ok {
		return
	}
	msg, ok := sess.LastMessage()
	if !ok || !msg.IsAssistant() {
		return
	}
	fmt.Fprintln(r.out, AssistantStyle.Render("Assistant"))
	if r.md != nil {
		fmt.Fprintln(r.out, r.md.Markdown(msg.Content))
	} else {
		fmt.Fprintln(r.out, msg.Content)
	}
	fmt.Fprintln(r.out)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command runs a slash command. It returns false to leave the REPL.
func (r *repl) command(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/help", "/h", "/?", "/":
		r.printHelp()

	case "/quit", "/q", "/exit":
		return false, nil

	case "/new":
		return true, r.ctrl.CreateSession(arg)

	case "/sessions", "/ls":
		r.printSessions()

	case "/switch":
		sess, err := r.resolve(arg)
		if err != nil {
			return true, err
		}
		if err := r.ctrl.SwitchSession(sess.ID); err != nil {
			return true, err
		}
		fmt.Fprintf(r.out, "%s %s\n", SuccessStyle.Render("Switched to"), sess.Name)
		r.printTranscript()

	case "/rename":
		if arg == "" {
			return true, &UsageError{Reason: "usage: /rename <name>"}
		}
		sess, ok := r.ctrl.Session()
		if !ok {
			return true, chat.ErrNotInitialized
		}
		if _, err := r.ctrl.RenameSession(sess.ID, arg); err != nil {
			return true, err
		}

	case "/delete":
		var id string
		if arg == "" {
			sess, ok := r.ctrl.Session()
			if !ok {
				return true, chat.ErrNotInitialized
			}
			id = sess.ID
		} else {
			sess, err := r.resolve(arg)
			if err != nil {
				return true, err
			}
			id = sess.ID
		}
		if _, err := r.ctrl.DeleteSession(id); err != nil {
			return true, err
		}
		fmt.Fprintln(r.out, SuccessStyle.Render("Chat deleted"))

	case "/clear":
		return true, r.ctrl.ClearSession()

	case "/regen", "/regenerate":
		sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		pd, ok := r.ctrl.BeginRegenerate()
		if !ok {
			return true, errors.New("nothing to regenerate")
		}
		fmt.Fprintln(r.out, DimStyle.Render("Assistant is typing..."))
		res := r.ctrl.Dispatch(sendCtx, pd)
		r.ctrl.Complete(res)
		if res.Err == nil {
			r.printLastReply()
		}

	case "/model", "/m":
		p := r.ctrl.Provider()
		if arg != "" {
			r.ctrl.SelectModel(p, arg)
		}
		fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Model:"), r.ctrl.SelectedModel(p))

	case "/models":
		models, err := r.ctrl.ListModels(ctx)
		if err != nil {
			return true, err
		}
		cur := r.ctrl.SelectedModel(r.ctrl.Provider())
		for _, m := range models {
			mark := "  "
			if m == cur {
				mark = "* "
			}
			fmt.Fprintln(r.out, mark+m)
		}

	case "/provider", "/p":
		if arg == "" {
			fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Provider:"), r.ctrl.Provider().DisplayName())
			return true, nil
		}
		p, err := model.ParseProvider(arg)
		if err != nil {
			return true, err
		}
		if err := r.ctrl.Initialize(ctx, p); err != nil {
			return true, err
		}
		r.draft = ""
		r.listed = nil
		r.printWelcome()

	case "/export":
		format, dir, _ := strings.Cut(arg, " ")
		if dir = strings.TrimSpace(dir); dir == "" {
			dir = r.exportDir
		}
		artifact, err := r.ctrl.ExportActive(format)
		if err != nil {
			return true, err
		}
		path, err := artifact.Save(dir)
		if err != nil {
			return true, err
		}
		fmt.Fprintf(r.out, "%s %s\n", SuccessStyle.Render("Exported to"), path)

	case "/attach":
		if arg == "" {
			return true, &UsageError{Reason: "usage: /attach <path>"}
		}
		out, err := r.ctrl.AttachFile(r.draft, arg)
		if err != nil {
			return true, nil
		}
		r.draft = out

	case "/pull":
		if arg == "" {
			return true, &UsageError{Reason: "usage: /pull <model>"}
		}
		if p := r.ctrl.Provider(); !p.IsLocal() {
			return true, fmt.Errorf("%s does not support pulling models", p.DisplayName())
		}
		// failures arrive as notifications
		_ = r.ctrl.PullModel(ctx, arg)

	case "/try":
		n, err := strconv.Atoi(arg)
		prompts := r.ctrl.SuggestionPrompts()
		if err != nil || n < 1 || n > len(prompts) {
			return true, &UsageError{Reason: fmt.Sprintf("usage: /try <1-%d>", len(prompts))}
		}
		fmt.Fprintf(r.out, "%s %s\n", UserStyle.Render("You"), prompts[n-1])
		r.send(ctx, prompts[n-1])

	case "/history":
		r.printTranscript()

	default:
		return true, &UsageError{Reason: fmt.Sprintf("unknown command: %s (type /help for commands)", name)}
	}
	return true, nil
}

// resolve finds a session by list number, id or unique id prefix.
func (r *repl) resolve(arg string) (*model.ChatSession, error) {
	if arg == "" {
		return nil, &UsageError{Reason: "session number or id required"}
	}
	sessions := r.listed
	if len(sessions) == 0 {
		sessions = r.ctrl.Sessions()
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(sessions) {
		return sessions[n-1], nil
	}

	var match *model.ChatSession
	for _, s := range r.ctrl.Sessions() {
		if s.ID == arg {
			return s, nil
		}
		if strings.HasPrefix(s.ID, arg) {
			if match != nil {
				return nil, &UsageError{Reason: "ambiguous session id: " + arg}
			}
			match = s
		}
	}
	if match == nil {
		return nil, &NotFoundError{Resource: "session", ID: arg}
	}
	return match, nil
}

// =============================================================================
// DISPLAY
// =============================================================================

func (r *repl) printWelcome() {
	p := r.ctrl.Provider()
	fmt.Fprintln(r.out, TitleStyle.Render("FusionLoom chat"))
	fmt.Fprintln(r.out, RenderSeparator(30))
	fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Provider:"), p.DisplayName())
	fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Model:"), r.ctrl.SelectedModel(p))
	if sess, ok := r.ctrl.Session(); ok {
		fmt.Fprintf(r.out, "%s %s (%d messages)\n", RenderLabel("Chat:"), sess.Name, len(sess.Messages))
	}

	t := r.ctrl.Transcript()
	if t.Empty() {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, "Try one of these with /try <n>:")
		for i, s := range t.Suggestions {
			fmt.Fprintf(r.out, "  %d. %s\n", i+1, s)
		}
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, DimStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
}

func (r *repl) printHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/new [name]", "Start a new chat"},
		{"/sessions", "List chats"},
		{"/switch <n|id>", "Open a chat"},
		{"/rename <name>", "Rename this chat"},
		{"/delete [n|id]", "Delete a chat"},
		{"/clear", "Remove all messages from this chat"},
		{"/regen", "Regenerate the last reply"},
		{"/model [name]", "Show or select the model"},
		{"/models", "List available models"},
		{"/provider [name]", "Show or switch provider"},
		{"/export [fmt] [dir]", "Export this chat (markdown, json, yaml, html)"},
		{"/attach <path>", "Attach a file to the next message"},
		{"/pull <model>", "Download an Ollama model"},
		{"/try <n>", "Send a suggested prompt"},
		{"/history", "Show this chat"},
		{"/quit", "Exit"},
	}
	fmt.Fprintln(r.out, TitleStyle.Render("Commands"))
	for _, c := range commands {
		fmt.Fprintf(r.out, "  %-22s %s\n", c.cmd, DimStyle.Render(c.desc))
	}
}

func (r *repl) printSessions() {
	r.listed = r.ctrl.Sessions()
	cur, _ := r.ctrl.Session()
	for i, s := range r.listed {
		mark := " "
		if cur != nil && s.ID == cur.ID {
			mark = "*"
		}
		fmt.Fprintf(r.out, "%s %2d. %s %s\n", mark, i+1,
			util.TruncateWidth(s.Name, 40),
			DimStyle.Render(fmt.Sprintf("(%d messages, %s)", len(s.Messages), model.FormatTime(s.LastActivity()))))
	}
}

func (r *repl) printTranscript() {
	sess, ok := r.ctrl.Session()
	if !ok {
		return
	}
	for _, m := range sess.Messages {
		if m.IsUser() {
			fmt.Fprintln(r.out, UserStyle.Render("You"))
			fmt.Fprintln(r.out, m.Content)
		} else {
			fmt.Fprintln(r.out, AssistantStyle.Render("Assistant"))
			if r.md != nil {
				fmt.Fprintln(r.out, r.md.Markdown(m.Content))
			} else {
				fmt.Fprintln(r.out, m.Content)
			}
		}
		fmt.Fprintln(r.out)
	}
}

// exportSession writes one stored session in format into dir.
func exportSession(sess *model.ChatSession, p model.Provider, format, dir string) (string, error) {
	exporter, err := export.NewExporter(format, nil)
	if err != nil {
		return "", &UsageError{Reason: err.Error()}
	}
	doc, err := export.NewDocument(sess, p, nowFunc())
	if err != nil {
		return "", err
	}
	return export.ExportToFile(doc, exporter, &export.Options{OutputDir: dir})
}
