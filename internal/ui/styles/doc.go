// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the FusionLoom TUI.

All colors are Lip Gloss AdaptiveColor values, so the palette follows the
terminal background unless the configured theme forces dark or light.

# Color System (colors.go)

  - Purple: assistant messages, selection
  - Cyan: brand, user messages, active tab
  - Emerald: success notifications, local provider
  - Amber: warnings, cloud providers
  - Rose: errors

# Theme (theme.go)

Theme bundles every lipgloss.Style the dashboard draws with: tabs,
sidebar, message labels, welcome card, typing line, inline error block,
input box, status bar and notification toasts.

	theme := styles.NewTheme("dark")
	theme.SetSize(width, height)
	fmt.Println(theme.TabActive.Render("Ollama"))
*/
package styles
