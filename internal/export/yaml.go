// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/CaptainASIC/FusionLoom/internal/model"
)

// =============================================================================
// YAML EXPORTER
// =============================================================================

// YAMLExporter exports sessions to YAML.
type YAMLExporter struct {
	options *Options
}

// NewYAMLExporter creates a new YAML exporter.
func NewYAMLExporter(opts *Options) *YAMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &YAMLExporter{options: opts}
}

type yamlMessage struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

type yamlDocument struct {
	Name     string        `yaml:"name"`
	Provider string        `yaml:"provider,omitempty"`
	Exported string        `yaml:"exported,omitempty"`
	Messages []yamlMessage `yaml:"messages"`
}

// Export converts a document to YAML.
func (e *YAMLExporter) Export(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, ErrNoSession
	}

	out := yamlDocument{
		Name:     doc.Name,
		Messages: make([]yamlMessage, 0, len(doc.Messages)),
	}
	if e.options.IncludeMetadata {
		out.Provider = string(doc.Provider)
		out.Exported = model.FormatTime(doc.ExportedAt)
	}
	for _, m := range doc.Messages {
		out.Messages = append(out.Messages, yamlMessage{Role: string(m.Role), Content: m.Content})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for YAML.
func (e *YAMLExporter) FileExtension() string {
	return ".yaml"
}

// MimeType returns the MIME type for YAML.
func (e *YAMLExporter) MimeType() string {
	return "application/yaml"
}
