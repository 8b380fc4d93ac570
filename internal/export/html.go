// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/CaptainASIC/FusionLoom/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports sessions to a self-contained HTML page. Assistant
// replies are rendered as markdown; user text is escaped and kept literal.
type HTMLExporter struct {
	options *Options
	md      goldmark.Markdown
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)
	return &HTMLExporter{options: opts, md: md}
}

// Export converts a document to HTML.
func (e *HTMLExporter) Export(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, ErrNoSession
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}
	title := html.EscapeString(doc.Name)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", title))
	sb.WriteString("    <meta name=\"generator\" content=\"FusionLoom\">\n")
	sb.WriteString(htmlCSS)
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", theme))
	sb.WriteString("    <div class=\"container\">\n")

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", title))
	if e.options.IncludeMetadata {
		sb.WriteString("            <div class=\"metadata\">\n")
		sb.WriteString(fmt.Sprintf("                <span><strong>Provider:</strong> %s</span>\n",
			html.EscapeString(doc.Provider.DisplayName())))
		sb.WriteString(fmt.Sprintf("                <span><strong>Exported:</strong> %s</span>\n",
			formatTimestamp(doc.ExportedAt)))
		sb.WriteString(fmt.Sprintf("                <span><strong>Messages:</strong> %d</span>\n", len(doc.Messages)))
		sb.WriteString("            </div>\n")
	}
	sb.WriteString("        </header>\n")

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range doc.Messages {
		body, err := e.renderContent(msg)
		if err != nil {
			return nil, err
		}
		sb.WriteString(fmt.Sprintf("            <div class=\"message %s-message\">\n", msg.Role))
		sb.WriteString(fmt.Sprintf("                <div class=\"role-label\">%s</div>\n", msg.Role.DisplayName()))
		sb.WriteString("                <div class=\"message-content\">\n")
		sb.WriteString(body)
		sb.WriteString("                </div>\n")
		sb.WriteString("            </div>\n")
	}
	sb.WriteString("        </main>\n")
	sb.WriteString("    </div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// renderContent converts one message body to HTML.
func (e *HTMLExporter) renderContent(msg model.Message) (string, error) {
	if !msg.IsAssistant() {
		return "<p class=\"literal\">" + html.EscapeString(msg.Content) + "</p>\n", nil
	}
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(msg.Content), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

const htmlCSS = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        .dark-theme { --bg: #1a1b26; --panel: #24283b; --text: #c0caf5; --muted: #565f89; --user: #7aa2f7; --assistant: #9ece6a; --code: #16161e; }
        .light-theme { --bg: #ffffff; --panel: #f7f8fa; --text: #24292e; --muted: #6a737d; --user: #0366d6; --assistant: #22863a; --code: #eef0f3; }
        body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; line-height: 1.6; color: var(--text); background: var(--bg); padding: 20px; }
        .container { max-width: 900px; margin: 0 auto; background: var(--panel); border-radius: 12px; overflow: hidden; }
        .header { padding: 28px 32px; border-bottom: 1px solid var(--muted); }
        .header h1 { font-size: 26px; margin-bottom: 12px; }
        .metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; color: var(--muted); }
        .conversation { padding: 24px 32px; }
        .message { margin-bottom: 20px; padding: 16px 20px; border-left: 4px solid transparent; border-radius: 8px; background: var(--bg); }
        .user-message { border-left-color: var(--user); }
        .assistant-message { border-left-color: var(--assistant); }
        .role-label { font-weight: 600; font-size: 14px; margin-bottom: 8px; }
        .literal { white-space: pre-wrap; }
        .message-content p { margin-bottom: 10px; }
        .message-content pre { background: var(--code); padding: 12px; border-radius: 6px; overflow-x: auto; margin: 10px 0; }
        .message-content code { font-family: "Fira Code", monospace; font-size: 14px; }
        .message-content table { border-collapse: collapse; margin: 10px 0; }
        .message-content th, .message-content td { border: 1px solid var(--muted); padding: 4px 10px; }
        .message-content ul, .message-content ol { margin: 0 0 10px 24px; }
        @media print { .message { page-break-inside: avoid; } }
    </style>
`
