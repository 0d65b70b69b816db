// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/regchat-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown format.
type MarkdownExporter struct {
	options *Options
	now     func() time.Time
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts, now: time.Now}
}

// Export converts a transcript to Markdown format.
func (e *MarkdownExporter) Export(tr *model.Transcript) ([]byte, error) {
	if tr == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	msgs := tr.Finalized()
	if len(msgs) == 0 {
		return nil, fmt.Errorf("session %s has no messages", tr.SessionID)
	}

	var sb strings.Builder
	exported := e.now()

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("session: %s\n", escapeYAML(tr.SessionID)))
		if tr.Team != "" {
			sb.WriteString(fmt.Sprintf("team: %s\n", escapeYAML(tr.Team)))
		}
		if tr.CreatedAt != "" {
			sb.WriteString(fmt.Sprintf("date: %s\n", escapeYAML(tr.CreatedAt)))
		}
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(msgs)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", exported.Format(time.RFC3339)))
		sb.WriteString("generator: regchat\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# Session %s\n\n", escapeMarkdown(tr.SessionID)))

	if e.options.IncludeMetadata {
		if tr.Team != "" {
			sb.WriteString(fmt.Sprintf("- **Équipe** : %s\n", model.TeamLabel(tr.Team)))
		}
		if tr.CreatedAt != "" {
			sb.WriteString(fmt.Sprintf("- **Créée le** : %s\n", formatTimestamp(tr.CreatedAt)))
		}
		sb.WriteString(fmt.Sprintf("- **Messages** : %d\n", len(msgs)))
		sb.WriteString("\n---\n\n")
	}

	for i, msg := range msgs {
		label := msg.Role.DisplayName()
		if e.options.IncludeTimestamps && msg.Timestamp != "" {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		if e.options.IncludeReasoning && msg.Role == model.RoleAssistant && strings.TrimSpace(msg.Reasoning) != "" {
			sb.WriteString(formatReasoning(msg.Reasoning))
			sb.WriteString("\n\n")
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if i < len(msgs)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exporté depuis regchat le %s*\n", exported.Format("02/01/2006 à 15:04")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatReasoning renders a reasoning trace as a collapsible block.
func formatReasoning(reasoning string) string {
	var sb strings.Builder
	sb.WriteString("<details>\n<summary>Raisonnement</summary>\n\n")
	for _, line := range strings.Split(strings.TrimSpace(reasoning), "\n") {
		sb.WriteString("> ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n</details>")
	return sb.String()
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML escapes special YAML characters in values.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
