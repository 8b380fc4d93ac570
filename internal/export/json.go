// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"github.com/CaptainASIC/FusionLoom/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports sessions to JSON. It always writes the full document;
// IncludeMetadata is ignored.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// documentJSON keeps the exported timestamp in the persisted time layout.
type documentJSON struct {
	Name       string          `json:"name"`
	Provider   model.Provider  `json:"provider"`
	ExportedAt string          `json:"exported"`
	Messages   []model.Message `json:"messages"`
}

// Export converts a document to indented JSON.
func (e *JSONExporter) Export(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, ErrNoSession
	}
	out := documentJSON{
		Name:       doc.Name,
		Provider:   doc.Provider,
		ExportedAt: model.FormatTime(doc.ExportedAt),
		Messages:   model.CopyMessages(doc.Messages),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
