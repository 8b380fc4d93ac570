// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/CaptainASIC/FusionLoom/internal/model"
	"github.com/CaptainASIC/FusionLoom/internal/util"
)

// ErrNoSession is returned when there is nothing to export.
var ErrNoSession = errors.New("no active session to export")

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is the presentation snapshot of one session.
type Document struct {
	Name       string
	Provider   model.Provider
	ExportedAt time.Time
	Messages   []model.Message
}

// NewDocument snapshots sess. The messages are copied so later edits to the
// session do not leak into the export.
func NewDocument(sess *model.ChatSession, p model.Provider, now time.Time) (*Document, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	name := sess.Name
	if name == "" {
		name = model.DefaultSessionName
	}
	return &Document{
		Name:       name,
		Provider:   p,
		ExportedAt: now.UTC().Truncate(time.Millisecond),
		Messages:   model.CopyMessages(sess.Messages),
	}, nil
}

// Filename returns "<sanitized-name>_<YYYY-MM-DD><ext>".
func (d *Document) Filename(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s_%s%s", sanitizeFilename(d.Name), d.ExportedAt.Format("2006-01-02"), ext)
}

// =============================================================================
// EXPORTER INTERFACE
// =============================================================================

// Exporter defines the interface for session exporters.
type Exporter interface {
	// Export renders the document.
	Export(doc *Document) ([]byte, error)

	// FileExtension returns the file extension, including the dot.
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// Format names accepted by NewExporter.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatHTML     = "html"
)

// Formats lists the supported format names.
func Formats() []string {
	return []string{FormatMarkdown, FormatJSON, FormatYAML, FormatHTML}
}

// NewExporter returns the exporter for format. An empty format means
// markdown.
func NewExporter(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatMarkdown, "md", "txt":
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	case FormatYAML, "yml":
		return NewYAMLExporter(opts), nil
	case FormatHTML, "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s (supported: %s)",
			format, strings.Join(Formats(), ", "))
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory ExportToFile writes into.
	OutputDir string

	// IncludeMetadata adds the provider, export time and message count.
	IncludeMetadata bool

	// Theme is "dark" or "light" for HTML exports.
	Theme string
}

// DefaultOptions returns the default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
		Theme:           "dark",
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// Artifact is a rendered export, ready to be saved or handed to the user.
type Artifact struct {
	Document *Document
	Filename string
	MimeType string
	Content  []byte
}

// Render runs exporter over doc.
func Render(doc *Document, exporter Exporter) (*Artifact, error) {
	if doc == nil {
		return nil, ErrNoSession
	}
	content, err := exporter.Export(doc)
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}
	return &Artifact{
		Document: doc,
		Filename: doc.Filename(exporter.FileExtension()),
		MimeType: exporter.MimeType(),
		Content:  content,
	}, nil
}

// Save writes the artifact into dir and returns the file path.
func (a *Artifact) Save(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	outputPath := filepath.Join(dir, a.Filename)
	if err := util.AtomicWriteFile(outputPath, a.Content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// ExportToFile renders doc with exporter and writes it into opts.OutputDir.
// Returns the output file path.
func ExportToFile(doc *Document, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	art, err := Render(doc, exporter)
	if err != nil {
		return "", err
	}
	return art.Save(opts.OutputDir)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > 50 {
		s = string(runes[:50])
	}

	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "chat"
	}
	return string(result)
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM MST")
}
