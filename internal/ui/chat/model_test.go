// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/regchat-tui/internal/export"
	"github.com/jeranaias/regchat-tui/internal/model"
	"github.com/jeranaias/regchat-tui/internal/session"
	"github.com/jeranaias/regchat-tui/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeController struct {
	mu        sync.Mutex
	state     session.State
	submitted []string
	teams     []model.Team
	loaded    []string
	deleted   []string
	newCount  int
	refreshes int
}

func (f *fakeController) Snapshot() session.State { return f.state }

func (f *fakeController) Submit(content string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, content)
	return true
}

func (f *fakeController) SelectTeam(team model.Team) bool {
	f.teams = append(f.teams, team)
	return true
}

func (f *fakeController) NewSession() bool {
	f.newCount++
	return true
}

func (f *fakeController) LoadSession(id string) bool {
	f.loaded = append(f.loaded, id)
	return true
}

func (f *fakeController) DeleteSession(id string) bool {
	f.deleted = append(f.deleted, id)
	return true
}

func (f *fakeController) RefreshSessions() bool {
	f.refreshes++
	return true
}

type fakePDF struct {
	data []byte
	err  error
}

func (f fakePDF) ExportPDF(ctx context.Context, id string) ([]byte, error) {
	return f.data, f.err
}

// =============================================================================
// HELPERS
// =============================================================================

func connectedState() session.State {
	st := session.NewState(session.DefaultConfig())
	st.Connected = true
	st.StreamOpen = true
	st.SessionID = "abc12345-0000-0000-0000-000000000000"
	return st
}

func newTestModel(t *testing.T, ctrl *fakeController, opts Options) Model {
	t.Helper()
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(styles.ThemeDark)
	}
	m := New(ctrl, opts)
	m.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local) }
	return update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// =============================================================================
// TESTS
// =============================================================================

func TestViewBeforeResize(t *testing.T) {
	m := New(&fakeController{state: connectedState()}, Options{Theme: styles.NewTheme(styles.ThemeDark)})
	assert.Equal(t, "Chargement...", m.View())
}

func TestSubmitSendsAndClearsPrompt(t *testing.T) {
	ctrl := &fakeController{state: connectedState()}
	m := newTestModel(t, ctrl, Options{})

	m = typeText(t, m, "Quelles sont les règles ?")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"Quelles sont les règles ?"}, ctrl.submitted)
	assert.Empty(t, m.input.Value())
}

func TestSubmitWhileDisconnectedKeepsPrompt(t *testing.T) {
	st := connectedState()
	st.Connected = false
	ctrl := &fakeController{state: st}
	m := newTestModel(t, ctrl, Options{})

	m = typeText(t, m, "bonjour")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	// The reducer still sees the attempt so it can raise its notice.
	assert.Equal(t, []string{"bonjour"}, ctrl.submitted)
	assert.Equal(t, "bonjour", m.input.Value())
}

func TestSubmitIgnoresBlankPrompt(t *testing.T) {
	ctrl := &fakeController{state: connectedState()}
	m := newTestModel(t, ctrl, Options{})

	m = typeText(t, m, "   ")
	update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, ctrl.submitted)
}

func TestTabCyclesTeam(t *testing.T) {
	ctrl := &fakeController{state: connectedState()}
	m := newTestModel(t, ctrl, Options{})

	update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Len(t, ctrl.teams, 1)
	assert.Equal(t, model.TeamGlobal.Next(), ctrl.teams[0])
}

func TestNewSessionKey(t *testing.T) {
	ctrl := &fakeController{state: connectedState()}
	m := newTestModel(t, ctrl, Options{})

	update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, 1, ctrl.newCount)
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, &fakeController{state: connectedState()}, Options{})
	_, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestSnapshotRendersTranscript(t *testing.T) {
	ctrl := &fakeController{state: connectedState()}
	m := newTestModel(t, ctrl, Options{})

	st := connectedState()
	st.Messages = []model.Message{
		model.NewUserMessage("Question sur ACAPS", "2025-03-01T10:00:00"),
		model.NewAssistantMessage("Voici la **réponse**", "", "2025-03-01T10:00:05"),
	}
	m = update(t, m, SnapshotMsg{State: st})

	view := m.View()
	assert.Contains(t, view, "Question sur ACAPS")
	assert.Contains(t, view, "réponse")
	assert.Contains(t, view, "Connecté")
	assert.Contains(t, view, "WebSocket actif")
}

func TestPlaceholderShowsStepProgress(t *testing.T) {
	ctrl := &fakeController{state: connectedState()}
	m := newTestModel(t, ctrl, Options{})

	ph := model.NewReasoningPlaceholder("Recherche des textes", "2025-03-01T10:00:01")
	ph.StepNumber, ph.TotalSteps = 2, 5

	st := connectedState()
	st.Phase = session.PhaseAwaitingReasoning
	st.Messages = []model.Message{model.NewUserMessage("q", "2025-03-01T10:00:00"), ph}
	m = update(t, m, SnapshotMsg{State: st})

	view := m.View()
	assert.Contains(t, view, "Recherche des textes")
	assert.Contains(t, view, "(2/5)")
	assert.Contains(t, view, "Étape 2/5")
}

func TestPlaceholderFollowsReducedSteps(t *testing.T) {
	ctrl := &fakeController{state: connectedState()}
	m := newTestModel(t, ctrl, Options{})

	st, _ := session.Reduce(connectedState(), session.Submit{Content: "Quels seuils ?"})
	st, _ = session.Reduce(st, session.ReasoningStart{Message: "Début"})
	st, _ = session.Reduce(st, session.ReasoningStep{Step: "Analyse des seuils ACAPS", StepNumber: 1, TotalSteps: 2})
	m = update(t, m, SnapshotMsg{State: st})
	assert.Contains(t, m.View(), "Analyse des seuils ACAPS")

	st, _ = session.Reduce(st, session.ReasoningStep{Step: "Vérification AMMC", StepNumber: 2, TotalSteps: 2})
	m = update(t, m, SnapshotMsg{State: st})
	view := m.View()
	assert.Contains(t, view, "Vérification AMMC")
	assert.NotContains(t, view, "Analyse des seuils ACAPS")
	assert.NotContains(t, view, model.DefaultReasoningText)
	assert.Contains(t, view, "(2/2)")
}

func TestHeaderFollowsLayout(t *testing.T) {
	st := connectedState()
	m := newTestModel(t, &fakeController{state: st}, Options{})
	assert.Contains(t, m.renderHeader(), st.SessionID)

	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	header := m.renderHeader()
	assert.Contains(t, header, "session abc12345")
	assert.NotContains(t, header, st.SessionID)

	m = update(t, m, tea.WindowSizeMsg{Width: 50, Height: 30})
	header = m.renderHeader()
	assert.NotContains(t, header, "session")
	assert.Contains(t, header, st.Team.Label())
}

func TestDisconnectedStatus(t *testing.T) {
	st := connectedState()
	st.Connected = false
	st.StreamOpen = false
	m := newTestModel(t, &fakeController{state: st}, Options{})

	view := m.View()
	assert.Contains(t, view, "Déconnecté")
	assert.NotContains(t, view, "WebSocket actif")
}

func TestNoticeShownUntilDismissed(t *testing.T) {
	ctrl := &fakeController{state: connectedState()}
	m := newTestModel(t, ctrl, Options{})

	st := connectedState()
	st.Notices = []session.Notice{{Seq: 1, Level: session.NoticeWarning, Text: "Une question est déjà en cours"}}
	m = update(t, m, SnapshotMsg{State: st})
	assert.Contains(t, m.View(), "Une question est déjà en cours")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, m.View(), "Une question est déjà en cours")

	// A newer notice shows again.
	st.Notices = append(st.Notices, session.Notice{Seq: 2, Level: session.NoticeError, Text: "Aucune réponse du serveur"})
	m = update(t, m, SnapshotMsg{State: st})
	assert.Contains(t, m.View(), "Aucune réponse du serveur")
}

func TestCopyLastAnswer(t *testing.T) {
	st := connectedState()
	st.Messages = []model.Message{
		model.NewUserMessage("q", "2025-03-01T10:00:00"),
		model.NewAssistantMessage("réponse finale", "", "2025-03-01T10:00:05"),
	}
	m := newTestModel(t, &fakeController{state: st}, Options{})

	var copied string
	m.copy = func(s string) error {
		copied = s
		return nil
	}

	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, CopyDoneMsg{}, msg)
	assert.Equal(t, "réponse finale", copied)

	m = update(t, m, msg)
	assert.Contains(t, m.View(), "Réponse copiée")
}

func TestCopyWithoutAnswer(t *testing.T) {
	m := newTestModel(t, &fakeController{state: connectedState()}, Options{})
	m.copy = func(string) error {
		t.Fatal("nothing should be copied")
		return nil
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	assert.Contains(t, m.View(), "Aucune réponse à copier")
}

func TestFlashClears(t *testing.T) {
	m := newTestModel(t, &fakeController{state: connectedState()}, Options{})
	m = update(t, m, CopyDoneMsg{Err: errors.New("no clipboard")})
	require.NotNil(t, m.flash)

	// A stale id leaves the flash in place.
	m = update(t, m, clearFlashMsg{id: m.flash.id - 1})
	require.NotNil(t, m.flash)

	m = update(t, m, clearFlashMsg{id: m.flash.id})
	assert.Nil(t, m.flash)
}

func historyState() session.State {
	st := connectedState()
	st.Sessions = []model.SessionInfo{
		{SessionID: "s-newest", LastActivity: "2025-03-01T11:00:00", MessageCount: 4, TeamUsed: "acaps"},
		{SessionID: st.SessionID, LastActivity: "2025-03-01T10:00:00", MessageCount: 2, TeamUsed: "global"},
		{SessionID: "s-oldest", LastActivity: "2025-02-01T10:00:00", MessageCount: 6, TeamUsed: "ammc"},
	}
	return st
}

func TestHistoryOverlayNavigation(t *testing.T) {
	ctrl := &fakeController{state: historyState()}
	m := newTestModel(t, ctrl, Options{})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlH})
	require.True(t, m.showHistory)
	assert.Equal(t, 1, ctrl.refreshes)
	// The active session is preselected.
	assert.Equal(t, 1, m.historyCursor)
	assert.Contains(t, m.View(), "Historique des sessions (3)")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, m.historyCursor)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"s-oldest"}, ctrl.loaded)
	assert.False(t, m.showHistory)
	// Enter inside the overlay never submits.
	assert.Empty(t, ctrl.submitted)
}

func TestHistoryOverlayDeleteAndClose(t *testing.T) {
	ctrl := &fakeController{state: historyState()}
	m := newTestModel(t, ctrl, Options{})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlH})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m = update(t, m, runeKey('d'))
	assert.Equal(t, []string{"s-newest"}, ctrl.deleted)

	// Deletion shrinks the list; the cursor stays in range.
	st := historyState()
	st.Sessions = st.Sessions[2:]
	m = update(t, m, SnapshotMsg{State: st})
	assert.Equal(t, 0, m.historyCursor)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showHistory)
}

func TestHistoryOverlayExportPDF(t *testing.T) {
	dir := t.TempDir()
	ctrl := &fakeController{state: historyState()}
	m := newTestModel(t, ctrl, Options{
		PDF:    fakePDF{data: []byte("%PDF-1.4")},
		Export: &export.Options{OutputDir: dir},
	})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlH})
	m, cmd := updateCmd(t, m, runeKey('e'))
	require.NotNil(t, cmd)
	assert.Equal(t, historyState().SessionID, m.exporting)

	done := exportPDFCmd(m.opts.PDF, m.exporting, m.opts.Export)()
	res, ok := done.(ExportDoneMsg)
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, filepath.Join(dir, export.FileName(res.SessionID, "pdf")), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	m = update(t, m, res)
	assert.Empty(t, m.exporting)
	assert.Contains(t, m.View(), "PDF enregistré")
}

func TestHistoryOverlayExportFailure(t *testing.T) {
	ctrl := &fakeController{state: historyState()}
	m := newTestModel(t, ctrl, Options{PDF: fakePDF{err: errors.New("Export PDF - À implémenter")}})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlH})
	m = update(t, m, runeKey('e'))
	res := exportPDFCmd(m.opts.PDF, m.exporting, m.opts.Export)().(ExportDoneMsg)
	require.Error(t, res.Err)

	m = update(t, m, res)
	assert.Contains(t, m.View(), "Échec de l'export PDF")
}

func TestHistoryOverlayExportUnavailable(t *testing.T) {
	m := newTestModel(t, &fakeController{state: historyState()}, Options{})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlH})
	m = update(t, m, runeKey('e'))
	assert.Empty(t, m.exporting)
	assert.Contains(t, m.View(), "Export PDF indisponible")
}

func TestToggleLogPaneResizesViewport(t *testing.T) {
	st := connectedState()
	st.TerminalLog = []string{"retrieval: 12 documents", "rerank: done"}
	m := newTestModel(t, &fakeController{state: st}, Options{})

	before := m.viewport.Height
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Equal(t, before-logLines-2, m.viewport.Height)
	assert.Contains(t, m.View(), "rerank: done")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Equal(t, before, m.viewport.Height)
}

func TestStoredReasoningCollapsedAndExpanded(t *testing.T) {
	st := connectedState()
	st.Messages = []model.Message{
		model.NewAssistantMessage("réponse", "Étape 1 : lecture\nÉtape 2 : synthèse", "2025-03-01T10:00:05"),
	}
	m := newTestModel(t, &fakeController{state: st}, Options{ShowReasoning: true})

	view := m.View()
	assert.Contains(t, view, "Raisonnement (2 lignes)")
	assert.NotContains(t, view, "Étape 2 : synthèse")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Contains(t, m.View(), "Étape 2 : synthèse")
}

func TestStoredReasoningHiddenWhenDisabled(t *testing.T) {
	st := connectedState()
	st.Messages = []model.Message{
		model.NewAssistantMessage("réponse", "trace", "2025-03-01T10:00:05"),
	}
	m := newTestModel(t, &fakeController{state: st}, Options{ShowReasoning: false})
	assert.NotContains(t, m.View(), "Raisonnement")
}

// =============================================================================
// SNAPSHOT PUMP
// =============================================================================

func TestSnapshotPumpDeliversLatest(t *testing.T) {
	got := make(chan tea.Msg, 8)
	pump := newSnapshotPump(func(msg tea.Msg) { got <- msg })

	// Nothing is consuming yet, so only the newest state survives.
	for i := 1; i <= 5; i++ {
		st := session.NewState(session.DefaultConfig())
		st.SessionsCount = i
		pump.offer(st)
	}
	go pump.run()
	defer pump.stop()

	select {
	case msg := <-got:
		assert.Equal(t, 5, msg.(SnapshotMsg).State.SessionsCount)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
}
