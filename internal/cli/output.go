// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// output.go - Rendering of answers and transcripts in line mode.

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/regchat-tui/internal/model"
	"github.com/jeranaias/regchat-tui/internal/ui/styles"
	"github.com/jeranaias/regchat-tui/internal/util"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// answerRenderer renders answers with glamour when the output is a
// terminal and rendering is enabled.
type answerRenderer struct {
	enabled bool
	width   int

	once sync.Once
	tr   *glamour.TermRenderer
}

func newAnswerRenderer(enabled bool, width int) *answerRenderer {
	if width <= 0 || width > GetTerminalWidth() {
		width = GetTerminalWidth()
	}
	return &answerRenderer{enabled: enabled && IsStdoutTTY(), width: width}
}

// Render returns content as terminal Markdown, or unchanged when rendering
// is off or fails.
func (r *answerRenderer) Render(content string) string {
	if !r.enabled {
		return ensureNewline(content)
	}
	r.once.Do(func() {
		tr, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(r.width),
		)
		if err == nil {
			r.tr = tr
		}
	})
	if r.tr == nil {
		return ensureNewline(content)
	}
	out, err := r.tr.Render(content)
	if err != nil {
		return ensureNewline(content)
	}
	return out
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// =============================================================================
// TRANSCRIPT OUTPUT
// =============================================================================

// writeReasoning prints stored reasoning as a dimmed tree.
func writeReasoning(w io.Writer, reasoning string) {
	var lines []string
	for _, line := range strings.Split(reasoning, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(w, DimStyle.Render("Raisonnement"))
	for i, line := range lines {
		fmt.Fprintln(w, DimStyle.Render(styles.RenderTreeLine(i == len(lines)-1)+line))
	}
}

// writeTranscript prints messages in order. Reasoning is shown when
// withReasoning is set.
func writeTranscript(w io.Writer, msgs []model.Message, md *answerRenderer, withReasoning bool) {
	for i, msg := range msgs {
		if msg.IsReasoning {
			continue
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		label := AssistantStyle.Render(msg.Role.DisplayName())
		if msg.Role == model.RoleUser {
			label = UserStyle.Render(msg.Role.DisplayName())
		}
		if t := msg.Time(); !t.IsZero() {
			label += " " + DimStyle.Render(t.Local().Format("02/01/2006 15:04"))
		}
		fmt.Fprintln(w, label)

		if msg.Role == model.RoleUser {
			fmt.Fprintln(w, msg.Content)
			continue
		}
		if withReasoning && strings.TrimSpace(msg.Reasoning) != "" {
			writeReasoning(w, msg.Reasoning)
		}
		fmt.Fprint(w, md.Render(msg.Content))
	}
}

// writeSessionTable prints session summaries as aligned rows, the active
// session marked with a star.
func writeSessionTable(w io.Writer, sessions []model.SessionInfo, active string) {
	fmt.Fprintln(w, DimStyle.Render("  "+util.PadWidth("SESSION", 36)+"  "+util.PadWidth("ÉQUIPE", 6)+"    MSG  ACTIVITÉ"))
	for _, s := range sessions {
		marker := "  "
		if s.SessionID == active {
			marker = "* "
		}
		when := ""
		if t := model.ParseTime(s.LastActivity); !t.IsZero() {
			when = t.Local().Format("02/01/2006 15:04")
		}
		fmt.Fprintf(w, "%s%s  %s  %5d  %s\n",
			marker,
			util.PadWidth(s.SessionID, 36),
			util.PadWidth(model.TeamLabel(s.TeamUsed), 6),
			s.MessageCount,
			when,
		)
	}
}
