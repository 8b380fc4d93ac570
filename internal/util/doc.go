// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across FusionLoom.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync, used by the file
//     storage backend and the config writer
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation for sidebar and tab labels
//   - FirstLine: first non-empty line of a message, for previews
//
// # Usage
//
//	label := util.TruncateWidth(session.Name, 24)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
