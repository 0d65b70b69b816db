// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the regchat TUI.

# Color System (colors.go)

All colors are Lip Gloss AdaptiveColor values that resolve against the
terminal background:

  - Purple - assistant label, overlays
  - Cyan - user label, team, WebSocket indicator
  - Emerald - connected state
  - Amber - reasoning in progress
  - Rose - disconnected state, errors

# Theme (theme.go)

NewTheme builds every lipgloss.Style used by the chat screen. The mode comes
from the [ui] theme setting: "dark" and "light" pin the palette, "auto" lets
lipgloss query the terminal.

	theme := styles.NewTheme(styles.ParseThemeMode(cfg.UI.Theme))
	header := theme.HeaderTitle.Render("regchat")

# Animations (animations.go)

Spinner frame sets for bubbles/spinner, the reasoning step bar and tree
prefixes for reasoning steps.
*/
package styles
