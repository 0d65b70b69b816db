// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/regchat-tui/internal/export"
)

// =============================================================================
// COMMANDS
// =============================================================================

// exportPDFCmd downloads the PDF of a session and saves it with opts.
func exportPDFCmd(src PDFSource, sessionID string, opts *export.Options) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		data, err := src.ExportPDF(ctx, sessionID)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("pdf export failed")
			return ExportDoneMsg{SessionID: sessionID, Err: err}
		}
		path, err := export.Save(data, sessionID, "pdf", opts)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("saving pdf export failed")
			return ExportDoneMsg{SessionID: sessionID, Err: err}
		}
		log.Info().Str("session_id", sessionID).Str("path", path).Msg("pdf exported")
		return ExportDoneMsg{SessionID: sessionID, Path: path}
	}
}

// copyCmd copies text with copyFn.
func copyCmd(copyFn func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return CopyDoneMsg{Err: copyFn(text)}
	}
}

// clearFlashCmd clears flash id after d.
func clearFlashCmd(id int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearFlashMsg{id: id}
	})
}
