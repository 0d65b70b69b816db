// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/regchat-tui/internal/model"
	"github.com/jeranaias/regchat-tui/internal/session"
	"github.com/jeranaias/regchat-tui/internal/ui/styles"
	"github.com/jeranaias/regchat-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the whole screen.
func (m Model) View() string {
	if !m.ready {
		return "Chargement..."
	}

	body := m.viewport.View()
	if m.showHistory {
		body = m.renderHistory()
	}

	parts := []string{m.renderHeader(), body}
	if m.showLog {
		parts = append(parts, m.renderLog())
	}
	parts = append(parts, m.renderInput(), m.renderStatusBar(), m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	t := m.theme
	sep := t.HeaderSession.Render(" | ")

	title := t.HeaderTitle.Render("regchat")
	team := t.HeaderTeam.Render(m.state.Team.Label())

	if t.GetLayoutMode() == styles.LayoutNarrow {
		return t.Header.Width(m.width).MaxHeight(headerHeight).Render(title + sep + team)
	}

	sid := "nouvelle session"
	if m.state.SessionID != "" {
		id := m.state.SessionID
		if t.GetLayoutMode() == styles.LayoutMedium {
			id = util.ShortID(id, 8)
		}
		sid = "session " + id
	}
	used := lipgloss.Width(title) + lipgloss.Width(team) + 2*lipgloss.Width(sep) + 2
	sid = util.TruncateWidth(sid, m.width-used)

	return t.Header.Width(m.width).MaxHeight(headerHeight).Render(
		title + sep + team + sep + t.HeaderSession.Render(sid),
	)
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders the transcript for the viewport.
func (m *Model) renderMessages() string {
	if len(m.state.Messages) == 0 {
		return m.renderEmptyState()
	}
	parts := make([]string, 0, len(m.state.Messages))
	for _, msg := range m.state.Messages {
		parts = append(parts, m.renderMessage(msg))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderMessage(msg model.Message) string {
	if msg.IsReasoning {
		return m.renderReasoning(msg)
	}
	if out, ok := m.cache[msg.ID]; ok {
		return out
	}
	var out string
	if msg.Role == model.RoleUser {
		out = m.renderUserMessage(msg)
	} else {
		out = m.renderAssistantMessage(msg)
	}
	m.cache[msg.ID] = out
	return out
}

func (m *Model) renderLabel(msg model.Message, style lipgloss.Style) string {
	label := style.Render(msg.Role.DisplayName())
	if ts := formatTimestamp(msg.Time(), m.now()); ts != "" {
		label += " " + m.theme.Timestamp.Render(ts)
	}
	return label
}

func (m *Model) renderUserMessage(msg model.Message) string {
	cw := m.contentWidth()
	label := m.renderLabel(msg, m.theme.UserLabel)
	bubble := m.theme.UserBubble.Width(cw).Render(wrapText(msg.Content, cw-2))
	return lipgloss.NewStyle().MarginLeft(4).Render(label) + "\n" + bubble
}

func (m *Model) renderAssistantMessage(msg model.Message) string {
	cw := m.contentWidth()
	var b strings.Builder
	b.WriteString(m.renderLabel(msg, m.theme.AssistantLabel))
	b.WriteString("\n")
	b.WriteString(m.theme.AssistantBubble.Render(m.md.Render(msg.Content, cw)))

	if m.opts.ShowReasoning && strings.TrimSpace(msg.Reasoning) != "" {
		b.WriteString("\n")
		b.WriteString(m.renderStoredReasoning(msg.Reasoning, cw))
	}
	return b.String()
}

// renderStoredReasoning renders the reasoning kept with a finalized answer,
// collapsed to its first line unless expanded.
func (m *Model) renderStoredReasoning(reasoning string, width int) string {
	t := m.theme
	lines := nonEmptyLines(reasoning)

	if !m.expandReasoning {
		head := t.ReasoningTitle.Render(fmt.Sprintf("Raisonnement (%d lignes)", len(lines)))
		first := util.TruncateWidth(lines[0], width-4)
		return t.Reasoning.Render(head + "\n" + t.ReasoningStep.Render(first) + " " + t.Timestamp.Render("[C-r]"))
	}

	var b strings.Builder
	b.WriteString(t.ReasoningTitle.Render("Raisonnement"))
	for i, line := range lines {
		b.WriteString("\n")
		b.WriteString(styles.RenderTreeLine(i == len(lines)-1))
		b.WriteString(t.ReasoningStep.Render(wrapText(line, width-4)))
	}
	return t.Reasoning.Render(b.String())
}

// renderReasoning renders the live reasoning placeholder.
func (m *Model) renderReasoning(msg model.Message) string {
	t := m.theme
	head := m.spinner.View() + " " + t.ReasoningTitle.Render("Raisonnement")
	if msg.HasStepProgress() {
		head += " " + t.StatusStep.Render(fmt.Sprintf("(%d/%d)", msg.StepNumber, msg.TotalSteps))
		head += " " + t.Timestamp.Render(styles.RenderStepBar(10, msg.StepNumber, msg.TotalSteps))
	}
	text := strings.TrimSpace(msg.Reasoning)
	if text == "" {
		text = model.DefaultReasoningText
	}
	return t.Reasoning.Render(head + "\n" + t.ReasoningStep.Render(wrapText(text, m.contentWidth())))
}

func (m *Model) renderEmptyState() string {
	hint := "Posez une question sur la réglementation.\n" +
		"Tab change d'équipe, Ctrl+H ouvre l'historique."
	if !m.state.Connected {
		hint = "Connexion au serveur..."
	}
	return m.theme.EmptyHint.Render(hint)
}

// =============================================================================
// INPUT
// =============================================================================

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

// =============================================================================
// STATUS BAR
// =============================================================================

// renderStatusBar renders connection and stream state, the current step
// and the status message.
func (m Model) renderStatusBar() string {
	t := m.theme
	sep := " | "

	var conn string
	if m.state.Connected {
		conn = t.StatusConnected.Render(styles.StatusIndicators.Active + " Connecté")
	} else {
		conn = t.StatusDisconnected.Render(styles.StatusIndicators.Error + " Déconnecté")
	}
	left := conn
	if m.state.StreamOpen {
		left += sep + t.StatusStream.Render("WebSocket actif")
	}
	if p, ok := livePlaceholder(m.state.Messages); ok {
		step := "Analyse en cours"
		if p.HasStepProgress() {
			step = fmt.Sprintf("Étape %d/%d", p.StepNumber, p.TotalSteps)
		}
		left += sep + t.StatusStep.Render(step)
	} else if m.state.Phase == session.PhaseAwaitingResponseOnly {
		left += sep + t.StatusStep.Render("En attente de la réponse")
	}
	if m.exporting != "" {
		left += sep + t.StatusStep.Render("Export PDF")
	}

	room := m.width - lipgloss.Width(left) - len(sep) - 2
	if text, style, ok := m.statusMessage(); ok && room > 3 {
		left += sep + style.Render(util.TruncateWidth(text, room))
	}
	return t.StatusBar.Width(m.width).MaxHeight(statusHeight).Render(left)
}

// statusMessage returns the flash message, or else the last notice the
// user has not dismissed.
func (m Model) statusMessage() (string, lipgloss.Style, bool) {
	t := m.theme
	if m.flash != nil {
		if m.flash.level == flashError {
			return m.flash.text, t.NoticeError, true
		}
		return m.flash.text, t.NoticeInfo, true
	}
	n, ok := m.state.LastNotice()
	if !ok || n.Seq <= m.dismissedNotice {
		return "", lipgloss.Style{}, false
	}
	switch n.Level {
	case session.NoticeError:
		return n.Text, t.NoticeError, true
	case session.NoticeWarning:
		return n.Text, t.NoticeWarning, true
	default:
		return n.Text, t.NoticeInfo, true
	}
}

func (m Model) renderHelp() string {
	if m.showHistory {
		return m.help.ShortHelpView(m.historyKeys.ShortHelp())
	}
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

// =============================================================================
// HISTORY OVERLAY
// =============================================================================

func (m Model) renderHistory() string {
	t := m.theme
	height := m.viewport.Height
	sessions := m.state.Sessions

	var b strings.Builder
	b.WriteString(t.SessionListTitle.Render(fmt.Sprintf("Historique des sessions (%d)", len(sessions))))
	b.WriteString("\n")

	if len(sessions) == 0 {
		b.WriteString(t.SessionMeta.Render("Aucune session enregistrée"))
	}

	// Keep the cursor inside the visible window.
	rows := height - 4
	if rows < 1 {
		rows = 1
	}
	start := 0
	if m.historyCursor >= rows {
		start = m.historyCursor - rows + 1
	}
	end := start + rows
	if end > len(sessions) {
		end = len(sessions)
	}

	rowWidth := calculateContentWidth(m.width, 10)
	for i := start; i < end; i++ {
		s := sessions[i]
		marker := "  "
		if s.SessionID == m.state.SessionID {
			marker = "* "
		}
		when := formatTimestamp(model.ParseTime(s.LastActivity), m.now())
		row := fmt.Sprintf("%s%s  %-6s %3d msg  %s",
			marker,
			util.PadWidth(util.ShortID(s.SessionID, 8), 8),
			model.TeamLabel(s.TeamUsed),
			s.MessageCount,
			when,
		)
		row = util.TruncateWidth(row, rowWidth)
		if i == m.historyCursor {
			b.WriteString(t.SessionItemSelected.Render(row))
		} else {
			b.WriteString(t.SessionItem.Render(row))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	box := t.SessionList.Render(b.String())
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// TERMINAL LOG PANE
// =============================================================================

func (m Model) renderLog() string {
	t := m.theme
	lines := m.state.TerminalLog
	if len(lines) > logLines {
		lines = lines[len(lines)-logLines:]
	}

	var b strings.Builder
	b.WriteString(t.LogTitle.Render(fmt.Sprintf("Journal du serveur (%d)", len(m.state.TerminalLog))))
	for i := 0; i < logLines; i++ {
		b.WriteString("\n")
		if i < len(lines) {
			b.WriteString(t.LogLine.Render(util.TruncateWidth(util.FirstLine(lines[i]), m.width-4)))
		}
	}
	return t.LogPane.Width(m.width).Render(b.String())
}

// nonEmptyLines splits s into trimmed non-empty lines. It always returns
// at least one element.
func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}
