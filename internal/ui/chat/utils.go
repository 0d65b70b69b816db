// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-runewidth"
)

// =============================================================================
// FORMATTING UTILITIES
// =============================================================================

// formatTimestamp formats a timestamp for display in chat messages:
//   - Today: just time (e.g., "15:04")
//   - Older: date and time (e.g., "02/01 15:04")
func formatTimestamp(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("02/01 15:04")
}

// =============================================================================
// CLIPBOARD UTILITIES
// =============================================================================

// copyToClipboard copies the given text to the system clipboard.
func copyToClipboard(text string) error {
	return clipboard.WriteAll(text)
}

// =============================================================================
// TEXT UTILITIES
// =============================================================================

// calculateContentWidth returns the usable width inside a margin.
// Returns minimum of 3 for extremely narrow widths.
func calculateContentWidth(totalWidth, margin int) int {
	contentWidth := totalWidth - margin
	if contentWidth < 3 {
		contentWidth = 3
	}
	return contentWidth
}

// wrapText wraps text to a maximum display width. It preserves existing line
// breaks and breaks long lines at spaces when it can.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}

	var result strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			result.WriteString("\n")
		}
		for runewidth.StringWidth(line) > maxWidth {
			head := runewidth.Truncate(line, maxWidth, "")
			if cut := strings.LastIndexByte(head, ' '); cut > 0 {
				head = head[:cut]
			}
			if head == "" {
				_, size := utf8.DecodeRuneInString(line)
				head = line[:size]
			}
			rest := strings.TrimLeft(line[len(head):], " ")
			result.WriteString(head)
			if rest == "" {
				line = ""
				break
			}
			result.WriteString("\n")
			line = rest
		}
		result.WriteString(line)
	}
	return result.String()
}
