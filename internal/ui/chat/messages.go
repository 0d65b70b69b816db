// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea message types used by the chat screen:
//   - Session: state snapshots published by the controller
//   - Export: PDF export results
//   - Clipboard: copy results
//   - Flash: transient status line messages
package chat

import (
	"github.com/jeranaias/regchat-tui/internal/session"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SnapshotMsg carries a state published by the session controller.
type SnapshotMsg struct {
	State session.State
}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportDoneMsg reports the end of a PDF export.
type ExportDoneMsg struct {
	SessionID string
	Path      string
	Err       error
}

// =============================================================================
// CLIPBOARD MESSAGES
// =============================================================================

// CopyDoneMsg reports the end of a clipboard copy.
type CopyDoneMsg struct {
	Err error
}

// =============================================================================
// FLASH MESSAGES
// =============================================================================

// flashLevel selects the style of a flash message.
type flashLevel int

const (
	flashInfo flashLevel = iota
	flashError
)

// flash is a transient status line message set by the view itself.
type flash struct {
	id    int
	level flashLevel
	text  string
}

// clearFlashMsg clears the flash message with the given id.
type clearFlashMsg struct {
	id int
}
