// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/CaptainASIC/FusionLoom/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports sessions to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a document to Markdown. Message content is written as is:
// assistant replies are already markdown and user text is kept verbatim.
func (e *MarkdownExporter) Export(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, ErrNoSession
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(doc.Name)))

	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("- **Provider**: %s\n", doc.Provider.DisplayName()))
		sb.WriteString(fmt.Sprintf("- **Exported**: %s\n", model.FormatTime(doc.ExportedAt)))
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", len(doc.Messages)))
		sb.WriteString("\n---\n\n")
	}

	if len(doc.Messages) == 0 {
		sb.WriteString("*No messages yet.*\n")
	}

	for i, msg := range doc.Messages {
		sb.WriteString(fmt.Sprintf("### %s\n\n", msg.Role.DisplayName()))
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if i < len(doc.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}
