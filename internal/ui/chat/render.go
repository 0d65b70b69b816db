// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"html"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// stripPolicy removes every HTML element from assistant text.
var stripPolicy = bluemonday.StrictPolicy()

// sanitize strips HTML tags from s. The sanitizer escapes text as HTML;
// the escaping is undone so Markdown syntax and code survive.
func sanitize(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

// markdownRenderer renders assistant answers with glamour. The renderer is
// rebuilt when the wrap width changes.
type markdownRenderer struct {
	enabled bool
	dark    bool
	width   int
	tr      *glamour.TermRenderer
}

func newMarkdownRenderer(enabled, dark bool) *markdownRenderer {
	return &markdownRenderer{enabled: enabled, dark: dark}
}

// Render returns content rendered for a column of the given width. Plain
// wrapped text is returned when Markdown is off or rendering fails.
func (r *markdownRenderer) Render(content string, width int) string {
	content = sanitize(content)
	if width < 10 {
		width = 10
	}
	if !r.enabled {
		return wrapText(content, width)
	}

	if r.tr == nil || r.width != width {
		style := "light"
		if r.dark {
			style = "dark"
		}
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			log.Warn().Err(err).Msg("markdown renderer unavailable")
			r.enabled = false
			return wrapText(content, width)
		}
		r.tr = tr
		r.width = width
	}

	out, err := r.tr.Render(content)
	if err != nil {
		log.Debug().Err(err).Msg("markdown render failed")
		return wrapText(content, width)
	}
	return strings.Trim(out, "\n")
}
