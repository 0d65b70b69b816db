// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/regchat-tui/internal/model"
	"github.com/jeranaias/regchat-tui/internal/util"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.viewport.GotoBottom()
		return m, nil

	case SnapshotMsg:
		m.applySnapshot(msg.State)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.hasLivePlaceholder() {
			m.refreshContent()
		}
		return m, cmd

	case ExportDoneMsg:
		m.exporting = ""
		if msg.Err != nil {
			return m, m.setFlash(flashError, "Échec de l'export PDF : "+msg.Err.Error())
		}
		return m, m.setFlash(flashInfo, "PDF enregistré : "+msg.Path)

	case CopyDoneMsg:
		if msg.Err != nil {
			return m, m.setFlash(flashError, "Presse-papiers indisponible : "+msg.Err.Error())
		}
		return m, m.setFlash(flashInfo, "Réponse copiée")

	case clearFlashMsg:
		if m.flash != nil && m.flash.id == msg.id {
			m.flash = nil
		}
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.showHistory {
		return m.handleHistoryKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.CycleTeam):
		m.ctrl.SelectTeam(m.state.Team.Next())
		return m, nil

	case key.Matches(msg, m.keys.History):
		m.openHistory()
		return m, nil

	case key.Matches(msg, m.keys.NewSession):
		m.ctrl.NewSession()
		return m, nil

	case key.Matches(msg, m.keys.CopyAnswer):
		last, ok := model.LastAssistant(m.state.Messages)
		if !ok {
			return m, m.setFlash(flashError, "Aucune réponse à copier")
		}
		return m, copyCmd(m.copy, last.Content)

	case key.Matches(msg, m.keys.ToggleLog):
		m.showLog = !m.showLog
		if m.ready {
			m.resize(m.width, m.height)
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleReasoning):
		m.expandReasoning = !m.expandReasoning
		m.resetCache()
		m.refreshContent()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		if n, ok := m.state.LastNotice(); ok {
			m.dismissedNotice = n.Seq
		}
		m.flash = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit hands the prompt to the controller. The prompt is cleared only
// when the question is going to be accepted.
func (m Model) submit() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return m, nil
	}
	accept := m.canSubmit()
	m.ctrl.Submit(content)
	if accept {
		m.input.Reset()
		m.viewport.GotoBottom()
	}
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.historyKeys.Close):
		m.showHistory = false
		return m, nil

	case key.Matches(msg, m.historyKeys.Up):
		if m.historyCursor > 0 {
			m.historyCursor--
		}
		return m, nil

	case key.Matches(msg, m.historyKeys.Down):
		if m.historyCursor < len(m.state.Sessions)-1 {
			m.historyCursor++
		}
		return m, nil

	case key.Matches(msg, m.historyKeys.Load):
		if s, ok := m.selectedSession(); ok {
			m.ctrl.LoadSession(s.SessionID)
			m.showHistory = false
		}
		return m, nil

	case key.Matches(msg, m.historyKeys.Delete):
		s, ok := m.selectedSession()
		if !ok {
			return m, nil
		}
		m.ctrl.DeleteSession(s.SessionID)
		return m, m.setFlash(flashInfo, "Suppression de la session "+util.ShortID(s.SessionID, 8))

	case key.Matches(msg, m.historyKeys.Export):
		s, ok := m.selectedSession()
		if !ok {
			return m, nil
		}
		if m.opts.PDF == nil {
			return m, m.setFlash(flashError, "Export PDF indisponible")
		}
		if m.exporting != "" {
			return m, m.setFlash(flashError, "Un export est déjà en cours")
		}
		m.exporting = s.SessionID
		flashCmd := m.setFlash(flashInfo, "Export PDF en cours...")
		return m, tea.Batch(flashCmd, exportPDFCmd(m.opts.PDF, s.SessionID, m.opts.Export))
	}
	return m, nil
}

// setFlash shows text in the status line and schedules its removal.
func (m *Model) setFlash(level flashLevel, text string) tea.Cmd {
	m.flashSeq++
	m.flash = &flash{id: m.flashSeq, level: level, text: text}
	return clearFlashCmd(m.flashSeq, flashTimeout)
}
