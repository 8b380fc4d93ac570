// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders a chat session as a standalone document.
//
// Exports are write-only artifacts: building one never touches the history
// store.
//
// # Key Types
//
//   - Document: session name, provider, export time and messages
//   - Exporter: turns a Document into bytes for one format
//   - Options: output directory and presentation switches
//
// # Supported Formats
//
//   - Markdown: default, role-labelled blocks
//   - JSON: machine-readable
//   - YAML: machine-readable, diff friendly
//   - HTML: styled, assistant markdown rendered with goldmark
//
// # Usage
//
//	doc := export.NewDocument(session, model.ProviderClaude, time.Now())
//	exp, err := export.NewExporter("markdown", nil)
//	path, err := export.ExportToFile(doc, exp, nil)
package export
