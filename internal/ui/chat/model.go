// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/regchat-tui/internal/export"
	"github.com/jeranaias/regchat-tui/internal/model"
	"github.com/jeranaias/regchat-tui/internal/session"
	"github.com/jeranaias/regchat-tui/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Controller is the part of session.Controller the chat screen drives.
type Controller interface {
	Snapshot() session.State
	Submit(content string) bool
	SelectTeam(team model.Team) bool
	NewSession() bool
	LoadSession(id string) bool
	DeleteSession(id string) bool
	RefreshSessions() bool
}

// PDFSource fetches the PDF rendering of a stored session.
type PDFSource interface {
	ExportPDF(ctx context.Context, id string) ([]byte, error)
}

// Options configures the chat screen.
type Options struct {
	Theme          *styles.Theme
	RenderMarkdown bool
	ShowReasoning  bool
	// WordWrap caps the message column width; 0 follows the terminal
	WordWrap int
	// PDF enables the export action of the history overlay
	PDF    PDFSource
	Export *export.Options
}

// =============================================================================
// LAYOUT CONSTANTS
// =============================================================================

const (
	headerHeight  = 1
	inputHeight   = 2 // separator + prompt
	statusHeight  = 1
	helpHeight    = 1
	logLines      = 8
	flashTimeout  = 4 * time.Second
	exportTimeout = 2 * time.Minute
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen. It renders the latest
// session.State and turns keys into controller calls.
type Model struct {
	ctrl  Controller
	opts  Options
	theme *styles.Theme

	keys        KeyMap
	historyKeys HistoryKeyMap
	help        help.Model

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	md       *markdownRenderer

	// Rendered finalized messages by id; reset on resize or reasoning toggle
	cache map[string]string

	state  session.State
	width  int
	height int
	ready  bool

	showHistory     bool
	historyCursor   int
	showLog         bool
	expandReasoning bool
	dismissedNotice uint64
	exporting       string

	flash    *flash
	flashSeq int

	copy func(string) error
	now  func() time.Time
}

// New creates the chat screen over ctrl.
func New(ctrl Controller, opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(styles.ThemeAuto)
	}
	if opts.Export == nil {
		opts.Export = export.DefaultOptions()
	}
	theme := opts.Theme

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Posez votre question..."
	ti.CharLimit = 4000
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Spinner{
			Frames: styles.LineSpinner.Frames,
			FPS:    styles.LineSpinner.Duration(),
		}),
		spinner.WithStyle(theme.Spinner),
	)

	h := help.New()
	h.Styles.ShortKey = theme.ShortcutKey
	h.Styles.ShortDesc = theme.ShortcutDesc

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	return Model{
		ctrl:        ctrl,
		opts:        opts,
		theme:       theme,
		keys:        DefaultKeyMap(),
		historyKeys: DefaultHistoryKeyMap(),
		help:        h,
		viewport:    vp,
		input:       ti,
		spinner:     sp,
		md:          newMarkdownRenderer(opts.RenderMarkdown, theme.IsDark),
		cache:       make(map[string]string),
		state:       ctrl.Snapshot(),
		copy:        copyToClipboard,
		now:         time.Now,
	}
}

// Init starts the cursor blink and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// State returns the last rendered session state.
func (m Model) State() session.State {
	return m.state
}

// =============================================================================
// LAYOUT
// =============================================================================

// resize recomputes widget sizes for a width x height terminal.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)
	m.help.Width = width

	m.input.Width = calculateContentWidth(width, 4)

	vh := height - headerHeight - inputHeight - statusHeight - helpHeight - m.logHeight()
	if vh < 1 {
		vh = 1
	}
	m.viewport.Width = width
	m.viewport.Height = vh
	m.ready = true
	m.resetCache()
	m.refreshContent()
}

// logHeight is the height of the terminal log pane, title and border
// included, or 0 when hidden.
func (m *Model) logHeight() int {
	if !m.showLog {
		return 0
	}
	return logLines + 2
}

// contentWidth is the width of a message column.
func (m *Model) contentWidth() int {
	w := m.width
	if m.opts.WordWrap > 0 && m.opts.WordWrap < w {
		w = m.opts.WordWrap
	}
	return calculateContentWidth(w, 8)
}

func (m *Model) resetCache() {
	m.cache = make(map[string]string)
}

// refreshContent re-renders the transcript into the viewport.
func (m *Model) refreshContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
}

// =============================================================================
// STATE
// =============================================================================

// applySnapshot renders a state published by the controller. The view
// follows the tail of the transcript unless the user scrolled up.
func (m *Model) applySnapshot(s session.State) {
	follow := m.viewport.AtBottom()
	prev := m.state
	m.state = s

	if prev.SessionID != s.SessionID {
		m.resetCache()
		follow = true
	}
	if len(s.Messages) != len(prev.Messages) {
		follow = true
	}
	m.clampHistoryCursor()

	m.refreshContent()
	if follow {
		m.viewport.GotoBottom()
	}
}

// selectedSession returns the session under the history cursor.
func (m *Model) selectedSession() (model.SessionInfo, bool) {
	if m.historyCursor < 0 || m.historyCursor >= len(m.state.Sessions) {
		return model.SessionInfo{}, false
	}
	return m.state.Sessions[m.historyCursor], true
}

func (m *Model) clampHistoryCursor() {
	if n := len(m.state.Sessions); m.historyCursor >= n {
		m.historyCursor = n - 1
	}
	if m.historyCursor < 0 {
		m.historyCursor = 0
	}
}

// openHistory shows the overlay with the active session selected.
func (m *Model) openHistory() {
	m.showHistory = true
	m.historyCursor = 0
	for i, s := range m.state.Sessions {
		if s.SessionID == m.state.SessionID {
			m.historyCursor = i
			break
		}
	}
	m.ctrl.RefreshSessions()
}

// canSubmit mirrors the submit guard of the session reducer so the prompt
// keeps text the reducer is going to reject.
func (m *Model) canSubmit() bool {
	if !m.state.Connected {
		return false
	}
	return !m.state.Phase.InFlight() || m.state.Phase == session.PhaseFinalizing
}

// hasLivePlaceholder reports whether a reasoning placeholder is on screen.
func (m *Model) hasLivePlaceholder() bool {
	_, ok := livePlaceholder(m.state.Messages)
	return ok
}

// livePlaceholder returns the last reasoning placeholder of msgs.
func livePlaceholder(msgs []model.Message) (model.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsReasoning {
			return msgs[i], true
		}
	}
	return model.Message{}, false
}
