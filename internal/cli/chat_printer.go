// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/regchat-tui/internal/model"
	"github.com/jeranaias/regchat-tui/internal/session"
	"github.com/jeranaias/regchat-tui/internal/ui/styles"
)

// replPrinter turns successive session snapshots into appended lines.
// It remembers what it has printed so each notice, reasoning step and
// answer appears once. Not safe for concurrent use.
type replPrinter struct {
	out           io.Writer
	md            *answerRenderer
	showReasoning bool

	noticeSeq uint64
	printed   map[string]bool
	lastStep  string
	// streamed is set once reasoning was printed live for the current turn
	streamed bool
}

func newReplPrinter(out io.Writer, md *answerRenderer, showReasoning bool) *replPrinter {
	return &replPrinter{
		out:           out,
		md:            md,
		showReasoning: showReasoning,
		printed:       make(map[string]bool),
	}
}

// beginTurn forgets the reasoning of the previous turn.
func (p *replPrinter) beginTurn() {
	p.lastStep = ""
	p.streamed = false
}

// reset marks every message of s as printed, after a transcript was
// shown in full or cleared.
func (p *replPrinter) reset(s session.State) {
	p.printed = make(map[string]bool, len(s.Messages))
	for _, m := range s.Messages {
		if !m.IsReasoning {
			p.printed[m.ID] = true
		}
	}
	p.beginTurn()
}

// render prints what s adds to the previous snapshots.
func (p *replPrinter) render(s session.State) {
	for _, n := range s.NoticesSince(p.noticeSeq) {
		p.noticeSeq = n.Seq
		switch n.Level {
		case session.NoticeError:
			fmt.Fprintln(p.out, styles.RenderError(n.Text))
		case session.NoticeWarning:
			fmt.Fprintln(p.out, styles.RenderWarning(n.Text))
		default:
			fmt.Fprintln(p.out, styles.RenderInfo(n.Text))
		}
	}

	for _, m := range s.Messages {
		if m.IsReasoning {
			p.renderStep(m)
			continue
		}
		if p.printed[m.ID] {
			continue
		}
		p.printed[m.ID] = true
		if m.Role == model.RoleAssistant {
			p.renderAnswer(m)
		}
	}
}

// renderStep prints a reasoning step when it changed.
func (p *replPrinter) renderStep(m model.Message) {
	text := strings.TrimSpace(m.Reasoning)
	if text == "" {
		text = model.DefaultReasoningText
	}
	key := fmt.Sprintf("%d/%d %s", m.StepNumber, m.TotalSteps, text)
	if key == p.lastStep {
		return
	}
	p.lastStep = key
	p.streamed = true
	if !p.showReasoning {
		return
	}

	prefix := "  "
	if m.HasStepProgress() {
		prefix += fmt.Sprintf("[%d/%d] ", m.StepNumber, m.TotalSteps)
	}
	fmt.Fprintln(p.out, DimStyle.Render(prefix+text))
}

// renderAnswer prints a finalized answer, with its stored reasoning when
// none was streamed.
func (p *replPrinter) renderAnswer(m model.Message) {
	fmt.Fprintln(p.out)
	if p.showReasoning && !p.streamed && strings.TrimSpace(m.Reasoning) != "" {
		writeReasoning(p.out, m.Reasoning)
	}
	fmt.Fprint(p.out, p.md.Render(m.Content))
	fmt.Fprintln(p.out)
}
