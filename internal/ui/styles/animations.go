// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the regchat TUI.
package styles

import (
	"strings"
	"time"
)

// =============================================================================
// SPINNER ANIMATIONS
// =============================================================================

// LineSpinner - Simple line rotation, shown next to in-flight reasoning
var LineSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    10,
}

// SpinnerConfig holds the configuration for a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration for each frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(s.FPS)
}

// =============================================================================
// PROGRESS INDICATORS
// =============================================================================

// ProgressBar characters for the reasoning step bar.
var (
	ProgressFull  = "#"
	ProgressEmpty = "-"
)

// RenderStepBar renders a bar of width cells with step of total filled.
// A zero or negative total renders an empty bar.
func RenderStepBar(width, step, total int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		if step > total {
			step = total
		}
		if step > 0 {
			filled = width * step / total
		}
	}

	var sb strings.Builder
	sb.Grow(width)
	sb.WriteString(strings.Repeat(ProgressFull, filled))
	sb.WriteString(strings.Repeat(ProgressEmpty, width-filled))
	return sb.String()
}

// =============================================================================
// TREE CONNECTORS
// =============================================================================

// TreeChars for rendering reasoning steps as a tree
var TreeChars = struct {
	Tee    string
	Corner string
	Dash   string
}{
	Tee:    "+",
	Corner: "`",
	Dash:   "-",
}

// RenderTreeLine creates a tree line prefix.
// isLast: true if this is the last item in the list
func RenderTreeLine(isLast bool) string {
	if isLast {
		return TreeChars.Corner + TreeChars.Dash + " "
	}
	return TreeChars.Tee + TreeChars.Dash + " "
}
