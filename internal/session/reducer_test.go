// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/regchat-tui/internal/api"
	"github.com/jeranaias/regchat-tui/internal/model"
)

// =============================================================================
// HELPERS
// =============================================================================

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FinalizeGrace = 3 * time.Second
	cfg.TurnTimeout = time.Minute
	return cfg
}

// connectedState is a session with a live stream.
func connectedState() State {
	s := NewState(testConfig())
	s.Connected = true
	s.SessionID = "sess-1"
	s.StreamOpen = true
	return s
}

// apply folds events in order and collects every effect.
func apply(s State, events ...Event) (State, []Effect) {
	var all []Effect
	for _, ev := range events {
		var effects []Effect
		s, effects = Reduce(s, ev)
		all = append(all, effects...)
	}
	return s, all
}

func findEffect[T Effect](effects []Effect) (T, bool) {
	for i := len(effects) - 1; i >= 0; i-- {
		if e, ok := effects[i].(T); ok {
			return e, true
		}
	}
	var zero T
	return zero, false
}

func submit(content string) Submit {
	return Submit{Content: content, Timestamp: "2025-01-10T10:00:00.000Z"}
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_Disconnected(t *testing.T) {
	s := NewState(testConfig())

	next, effects := Reduce(s, submit("Quels sont les seuils ACAPS ?"))

	assert.Empty(t, effects)
	assert.Empty(t, next.Messages)
	assert.False(t, next.Loading)
	assert.Equal(t, PhaseIdle, next.Phase)
	n, ok := next.LastNotice()
	require.True(t, ok)
	assert.Equal(t, NoticeWarning, n.Level)
	assert.Equal(t, msgNotConnected, n.Text)
}

func TestSubmit_BlankContent(t *testing.T) {
	s := connectedState()
	next, effects := Reduce(s, submit("  \n\t "))
	assert.Empty(t, effects)
	assert.Empty(t, next.Messages)
}

func TestSubmit_StreamPath(t *testing.T) {
	s := connectedState()
	s.Team = model.TeamACAPS

	next, effects := Reduce(s, submit("  Quels sont les seuils ACAPS ?  "))

	require.Len(t, next.Messages, 1)
	assert.Equal(t, model.RoleUser, next.Messages[0].Role)
	assert.Equal(t, "Quels sont les seuils ACAPS ?", next.Messages[0].Content)
	assert.True(t, next.Loading)
	assert.Equal(t, PhaseAwaitingReasoning, next.Phase)

	send, ok := findEffect[SendStream](effects)
	require.True(t, ok)
	assert.Equal(t, model.TeamACAPS, send.Team)
	assert.Equal(t, next.TurnID(), send.Turn)
	_, ok = findEffect[ScheduleTimeout](effects)
	assert.True(t, ok)
	_, ok = findEffect[SendRequest](effects)
	assert.False(t, ok)
}

func TestSubmit_TeamOverride(t *testing.T) {
	s := connectedState()
	_, effects := Reduce(s, Submit{Content: "q", Team: model.TeamAMMC})
	send, ok := findEffect[SendStream](effects)
	require.True(t, ok)
	assert.Equal(t, model.TeamAMMC, send.Team)
}

func TestSubmit_RejectedWhileInFlight(t *testing.T) {
	s, _ := apply(connectedState(), submit("first"))

	next, effects := Reduce(s, submit("second"))

	assert.Empty(t, effects)
	assert.Len(t, next.Messages, 1)
	n, _ := next.LastNotice()
	assert.Equal(t, msgTurnInProgress, n.Text)
}

// =============================================================================
// FALLBACK PATH
// =============================================================================

func TestFallbackTurn_StreamClosed(t *testing.T) {
	s := connectedState()
	s.StreamOpen = false

	s, effects := Reduce(s, submit("Quels sont les seuils ACAPS ?"))
	assert.Equal(t, PhaseAwaitingResponseOnly, s.Phase)
	req, ok := findEffect[SendRequest](effects)
	require.True(t, ok)
	assert.Equal(t, "sess-1", req.SessionID)
	_, ok = findEffect[SendStream](effects)
	assert.False(t, ok)

	s, effects = Reduce(s, FallbackSucceeded{Turn: req.Turn, Reply: api.ChatResponse{
		Response:  "Les seuils sont fixés par circulaire.",
		Reasoning: "Analyse",
		SessionID: "sess-1",
		Timestamp: "2025-01-10T10:00:05",
	}})

	assert.Empty(t, effects)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, model.RoleUser, s.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, s.Messages[1].Role)
	assert.Equal(t, "Les seuils sont fixés par circulaire.", s.Messages[1].Content)
	assert.Equal(t, "Analyse", s.Messages[1].Reasoning)
	assert.False(t, s.Messages[1].IsReasoning)
	assert.False(t, s.Loading)
	assert.Equal(t, PhaseIdle, s.Phase)
}

func TestFallbackTurn_AdoptsSessionID(t *testing.T) {
	s := NewState(testConfig())
	s.Connected = true

	s, effects := Reduce(s, submit("hello"))
	req, ok := findEffect[SendRequest](effects)
	require.True(t, ok)
	assert.Empty(t, req.SessionID)

	s, effects = Reduce(s, FallbackSucceeded{Turn: req.Turn, Reply: api.ChatResponse{Response: "hi", SessionID: "fresh"}})
	assert.Equal(t, "fresh", s.SessionID)
	open, ok := findEffect[OpenStream](effects)
	require.True(t, ok)
	assert.Equal(t, "fresh", open.SessionID)
}

func TestFallbackTurn_FailureRollsBackOwnMessage(t *testing.T) {
	s := connectedState()
	s.StreamOpen = false
	s.Messages = []model.Message{
		{ID: "old-1", Role: model.RoleUser, Content: "earlier"},
		{ID: "old-2", Role: model.RoleAssistant, Content: "answer"},
	}

	s, effects := Reduce(s, submit("Quels sont les seuils ACAPS ?"))
	req, _ := findEffect[SendRequest](effects)
	require.Len(t, s.Messages, 3)

	s, _ = Reduce(s, FallbackFailed{Turn: req.Turn, Err: errors.New("HTTP 500")})

	require.Len(t, s.Messages, 2)
	assert.Equal(t, "old-1", s.Messages[0].ID)
	assert.Equal(t, "old-2", s.Messages[1].ID)
	assert.False(t, s.Loading)
	assert.Equal(t, PhaseIdle, s.Phase)
	n, _ := s.LastNotice()
	assert.Equal(t, NoticeError, n.Level)
	assert.Contains(t, n.Text, msgRetry)
}

func TestFallbackResult_StaleTurnIgnored(t *testing.T) {
	s := connectedState()
	s.StreamOpen = false
	s, _ = Reduce(s, submit("q"))
	stale := s.TurnID() + 7

	next, _ := Reduce(s, FallbackSucceeded{Turn: stale, Reply: api.ChatResponse{Response: "x"}})
	assert.Len(t, next.Messages, 1)
	assert.True(t, next.Loading)

	next, _ = Reduce(s, FallbackFailed{Turn: stale, Err: errors.New("x")})
	assert.Len(t, next.Messages, 1)
}

// =============================================================================
// STREAM PATH
// =============================================================================

func TestStreamTurn_FullCycle(t *testing.T) {
	s, _ := apply(connectedState(),
		submit("Quels sont les seuils ACAPS ?"),
		ReasoningStart{Message: "Analyse de la question", Timestamp: "t0"},
		ReasoningStep{Step: "Recherche des circulaires", StepNumber: 1, TotalSteps: 2, Timestamp: "t1"},
		ReasoningStep{Step: "Synthèse", StepNumber: 2, TotalSteps: 2, Timestamp: "t2"},
	)

	ph, ok := s.Placeholder()
	require.True(t, ok)
	assert.Equal(t, "Synthèse", ph.Reasoning)
	assert.Equal(t, 2, ph.StepNumber)
	assert.Equal(t, 2, ph.TotalSteps)

	s, effects := Reduce(s, Response{Response: "Voici les seuils.", Timestamp: "t3", TeamUsed: "acaps"})
	assert.Equal(t, PhaseFinalizing, s.Phase)
	assert.True(t, s.Loading)
	sched, ok := findEffect[ScheduleFinalize](effects)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, sched.After)
	_, ok = findEffect[CancelTimeout](effects)
	assert.True(t, ok)

	// The last reasoning step stays visible during the grace interval.
	ph, ok = s.Placeholder()
	require.True(t, ok)
	assert.Equal(t, "Synthèse", ph.Reasoning)

	s, _ = Reduce(s, FinalizeDue{Token: sched.Token})

	require.Len(t, s.Messages, 2)
	last := s.Messages[1]
	assert.Equal(t, model.RoleAssistant, last.Role)
	assert.False(t, last.IsReasoning)
	assert.Equal(t, "Voici les seuils.", last.Content)
	assert.Empty(t, last.Reasoning)
	assert.Equal(t, "t3", last.Timestamp)
	assert.Zero(t, model.CountReasoning(s.Messages))
	assert.False(t, s.Loading)
	assert.Equal(t, PhaseIdle, s.Phase)
	_, ok = s.Placeholder()
	assert.False(t, ok)
}

func TestStreamTurn_ResponseWithoutPlaceholder(t *testing.T) {
	s, effects := apply(connectedState(), submit("q"), Response{Response: "direct", Timestamp: "t"})
	sched, _ := findEffect[ScheduleFinalize](effects)
	s, _ = Reduce(s, FinalizeDue{Token: sched.Token})

	require.Len(t, s.Messages, 2)
	assert.Equal(t, "direct", s.Messages[1].Content)
}

func TestStreamTurn_ZeroGraceFinalizesImmediately(t *testing.T) {
	s := connectedState()
	s.Config.FinalizeGrace = 0

	s, effects := apply(s, submit("q"), ReasoningStart{}, Response{Response: "a"})

	_, ok := findEffect[ScheduleFinalize](effects)
	assert.False(t, ok)
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, "a", s.Messages[len(s.Messages)-1].Content)
}

func TestReasoningStep_LastWriteWins(t *testing.T) {
	s, _ := apply(connectedState(), submit("q"), ReasoningStart{})

	steps := []string{"Étape A", "Étape B plus longue", "C", "Étape D"}
	for i, step := range steps {
		s, _ = Reduce(s, ReasoningStep{Step: step, StepNumber: i + 1, TotalSteps: len(steps)})
		ph, ok := s.Placeholder()
		require.True(t, ok)
		assert.Equal(t, step, ph.Reasoning, "reasoning must equal the latest step only")
	}
	assert.Len(t, s.Messages, 2)
}

func TestReasoningStep_WithoutPlaceholderIgnored(t *testing.T) {
	s, _ := apply(connectedState(), submit("q"))

	next, effects := Reduce(s, ReasoningStep{Step: "orphan", StepNumber: 1, TotalSteps: 3})

	assert.Empty(t, effects)
	assert.Len(t, next.Messages, 1)
	assert.Zero(t, model.CountReasoning(next.Messages))
}

func TestReasoningStart_DefaultTextAndReplace(t *testing.T) {
	s, _ := apply(connectedState(), submit("q"), ReasoningStart{})
	ph, _ := s.Placeholder()
	assert.Equal(t, model.DefaultReasoningText, ph.Reasoning)

	s, _ = Reduce(s, ReasoningStart{Message: "Nouvelle analyse"})
	assert.Equal(t, 1, model.CountReasoning(s.Messages))
	again, _ := s.Placeholder()
	assert.Equal(t, ph.ID, again.ID)
	assert.Equal(t, "Nouvelle analyse", again.Reasoning)
}

func TestStreamEvents_IgnoredWhenIdle(t *testing.T) {
	s := connectedState()
	s, effects := apply(s,
		ReasoningStart{Message: "late"},
		ReasoningStep{Step: "late"},
		Response{Response: "late"},
	)
	assert.Empty(t, effects)
	assert.Empty(t, s.Messages)
}

func TestFinalizeDue_StaleTokenIgnored(t *testing.T) {
	s, effects := apply(connectedState(), submit("q"), ReasoningStart{}, Response{Response: "a"})
	sched, _ := findEffect[ScheduleFinalize](effects)

	next, _ := Reduce(s, FinalizeDue{Token: sched.Token - 1})
	assert.Equal(t, PhaseFinalizing, next.Phase)
	assert.Equal(t, 1, model.CountReasoning(next.Messages))

	next, _ = Reduce(next, FinalizeDue{Token: sched.Token})
	assert.Equal(t, PhaseIdle, next.Phase)

	// Firing twice is harmless.
	again, _ := Reduce(next, FinalizeDue{Token: sched.Token})
	assert.Equal(t, next.Messages, again.Messages)
}

func TestSubmit_DuringGraceFlushesPendingAnswer(t *testing.T) {
	s, _ := apply(connectedState(),
		submit("first"),
		ReasoningStart{},
		Response{Response: "first answer", Timestamp: "t1"},
	)
	require.Equal(t, PhaseFinalizing, s.Phase)

	s, effects := Reduce(s, submit("second"))

	_, ok := findEffect[CancelFinalize](effects)
	assert.True(t, ok)
	_, ok = findEffect[SendStream](effects)
	assert.True(t, ok)
	require.Len(t, s.Messages, 3)
	assert.Equal(t, "first", s.Messages[0].Content)
	assert.Equal(t, "first answer", s.Messages[1].Content)
	assert.False(t, s.Messages[1].IsReasoning)
	assert.Equal(t, "second", s.Messages[2].Content)
	assert.Equal(t, PhaseAwaitingReasoning, s.Phase)
	assert.Zero(t, model.CountReasoning(s.Messages))
}

func TestServerError_FailsTurn(t *testing.T) {
	s, _ := apply(connectedState(), submit("q"), ReasoningStart{})

	s, effects := Reduce(s, ServerError{Message: "LLM indisponible"})

	_, ok := findEffect[CancelTimeout](effects)
	assert.True(t, ok)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, model.RoleUser, s.Messages[0].Role)
	assert.False(t, s.Loading)
	assert.Equal(t, PhaseIdle, s.Phase)
	n, _ := s.LastNotice()
	assert.Contains(t, n.Text, "LLM indisponible")
}

func TestStreamSendFailed_FallsBack(t *testing.T) {
	s, _ := apply(connectedState(), submit("q"))

	s, effects := Reduce(s, StreamSendFailed{Turn: s.TurnID(), Err: api.ErrStreamNotOpen})

	assert.False(t, s.StreamOpen)
	assert.Equal(t, PhaseAwaitingResponseOnly, s.Phase)
	req, ok := findEffect[SendRequest](effects)
	require.True(t, ok)
	assert.Equal(t, "q", req.Content)
	assert.Len(t, s.Messages, 1)
}

// =============================================================================
// TURN TIMEOUT
// =============================================================================

func TestTurnTimeout_FallbackPolicy(t *testing.T) {
	s, effects := apply(connectedState(), submit("q"), ReasoningStart{}, StreamError{Err: errors.New("reset")})
	assert.False(t, s.StreamOpen)
	assert.True(t, s.Loading)
	timeout, ok := findEffect[ScheduleTimeout](effects)
	require.True(t, ok)

	s, effects = Reduce(s, TurnTimeout{Token: timeout.Token})

	req, ok := findEffect[SendRequest](effects)
	require.True(t, ok)
	assert.Equal(t, "q", req.Content)
	assert.Equal(t, PhaseAwaitingResponseOnly, s.Phase)
	assert.Zero(t, model.CountReasoning(s.Messages))
	assert.True(t, s.Loading)

	s, _ = Reduce(s, FallbackSucceeded{Turn: req.Turn, Reply: api.ChatResponse{Response: "a"}})
	assert.Len(t, s.Messages, 2)
	assert.False(t, s.Loading)
}

func TestTurnTimeout_ErrorPolicy(t *testing.T) {
	s := connectedState()
	s.Config.TimeoutPolicy = PolicyError
	s, effects := apply(s, submit("q"), ReasoningStart{})
	timeout, _ := findEffect[ScheduleTimeout](effects)

	s, effects = Reduce(s, TurnTimeout{Token: timeout.Token})

	assert.Empty(t, effects)
	assert.Len(t, s.Messages, 1)
	assert.False(t, s.Loading)
	assert.Equal(t, PhaseIdle, s.Phase)
	n, _ := s.LastNotice()
	assert.Equal(t, NoticeError, n.Level)
}

func TestTurnTimeout_RearmedByFrames(t *testing.T) {
	s, effects := apply(connectedState(), submit("q"))
	first, _ := findEffect[ScheduleTimeout](effects)

	s, effects = Reduce(s, ReasoningStart{})
	second, ok := findEffect[ScheduleTimeout](effects)
	require.True(t, ok)
	assert.Greater(t, second.Token, first.Token)

	next, effects := Reduce(s, TurnTimeout{Token: first.Token})
	assert.Empty(t, effects)
	assert.Equal(t, PhaseAwaitingReasoning, next.Phase)
}

// =============================================================================
// SESSIONS
// =============================================================================

func storedSession(id string, n int) model.SessionDetail {
	d := model.SessionDetail{SessionID: id}
	d.SessionData.TeamUsed = "ammc"
	for i := 0; i < n; i++ {
		d.SessionData.Messages = append(d.SessionData.Messages, model.Exchange{
			UserMessage: fmt.Sprintf("Q%d", i),
			BotResponse: fmt.Sprintf("A%d", i),
			Timestamp:   fmt.Sprintf("2025-01-10T10:%02d:00", i),
		})
	}
	return d
}

func TestSessionLoaded_Interleaves(t *testing.T) {
	s, _ := apply(connectedState(), submit("in flight"), ReasoningStart{})

	s, effects := Reduce(s, SessionLoaded{Detail: storedSession("sess-2", 3)})

	require.Len(t, s.Messages, 6)
	for i, m := range s.Messages {
		if i%2 == 0 {
			assert.Equal(t, model.RoleUser, m.Role)
			assert.Equal(t, fmt.Sprintf("Q%d", i/2), m.Content)
		} else {
			assert.Equal(t, model.RoleAssistant, m.Role)
			assert.Equal(t, fmt.Sprintf("A%d", i/2), m.Content)
		}
	}
	assert.Equal(t, "sess-2", s.SessionID)
	assert.Equal(t, model.TeamAMMC, s.Team)
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.False(t, s.Loading)
	assert.False(t, s.StreamOpen)
	assert.Zero(t, model.CountReasoning(s.Messages))

	_, ok := findEffect[CancelTimeout](effects)
	assert.True(t, ok)
	open, ok := findEffect[OpenStream](effects)
	require.True(t, ok)
	assert.Equal(t, "sess-2", open.SessionID)
}

func TestSessionLoaded_AbandonedTurnResultsIgnored(t *testing.T) {
	s := connectedState()
	s.StreamOpen = false
	s, effects := Reduce(s, submit("q"))
	req, _ := findEffect[SendRequest](effects)

	s, _ = Reduce(s, SessionLoaded{Detail: storedSession("sess-2", 1)})
	s, _ = Reduce(s, FallbackSucceeded{Turn: req.Turn, Reply: api.ChatResponse{Response: "late"}})

	assert.Len(t, s.Messages, 2)
	assert.Equal(t, "sess-2", s.SessionID)
}

func TestSessionDeleted(t *testing.T) {
	t.Run("active session", func(t *testing.T) {
		s, _ := apply(connectedState(), SessionLoaded{Detail: storedSession("sess-2", 2)}, StreamOpened{SessionID: "sess-2"})
		s.Sessions = []model.SessionInfo{{SessionID: "sess-2"}, {SessionID: "other"}}

		s, effects := Reduce(s, SessionDeleted{ID: "sess-2"})

		assert.Empty(t, s.SessionID)
		assert.Empty(t, s.Messages)
		assert.False(t, s.StreamOpen)
		_, ok := findEffect[CloseStream](effects)
		assert.True(t, ok)
		require.Len(t, s.Sessions, 1)
		assert.Equal(t, "other", s.Sessions[0].SessionID)
	})

	t.Run("other session", func(t *testing.T) {
		s, _ := apply(connectedState(), submit("q"))
		s, effects := Reduce(s, SessionDeleted{ID: "other"})
		assert.Empty(t, effects)
		assert.Equal(t, "sess-1", s.SessionID)
		assert.Len(t, s.Messages, 1)
	})
}

func TestNewSession(t *testing.T) {
	s, _ := apply(connectedState(), submit("q"))

	s, effects := Reduce(s, NewSession{})

	assert.Empty(t, s.Messages)
	assert.Empty(t, s.SessionID)
	assert.Equal(t, PhaseIdle, s.Phase)
	_, ok := findEffect[CloseStream](effects)
	assert.True(t, ok)
	_, ok = findEffect[CreateSession](effects)
	assert.True(t, ok)
}

func TestSessionsListed_Sorted(t *testing.T) {
	s, _ := Reduce(NewState(testConfig()), SessionsListed{Sessions: []model.SessionInfo{
		{SessionID: "old", LastActivity: "2025-01-01T10:00:00"},
		{SessionID: "new", LastActivity: "2025-02-01T10:00:00"},
	}})
	require.Len(t, s.Sessions, 2)
	assert.Equal(t, "new", s.Sessions[0].SessionID)
}

// =============================================================================
// CONNECTIVITY
// =============================================================================

func TestHealth_BootstrapsSessionAndStream(t *testing.T) {
	s := NewState(testConfig())

	s, effects := Reduce(s, HealthChecked{SessionsCount: 4})
	assert.True(t, s.Connected)
	assert.Equal(t, 4, s.SessionsCount)
	_, ok := findEffect[CreateSession](effects)
	require.True(t, ok)

	// A second tick while creation is pending does not ask again.
	_, effects = Reduce(s, HealthChecked{})
	assert.Empty(t, effects)

	s, effects = Reduce(s, SessionCreated{SessionID: "sess-9"})
	open, ok := findEffect[OpenStream](effects)
	require.True(t, ok)
	assert.Equal(t, "sess-9", open.SessionID)

	s, _ = Reduce(s, StreamOpened{SessionID: "sess-9"})
	assert.True(t, s.StreamOpen)

	_, effects = Reduce(s, HealthChecked{})
	assert.Empty(t, effects)
}

func TestHealth_ReopensDroppedStream(t *testing.T) {
	s := connectedState()
	s, _ = Reduce(s, StreamClosed{Err: errors.New("eof")})
	assert.False(t, s.StreamOpen)

	_, effects := Reduce(s, HealthChecked{})
	_, ok := findEffect[OpenStream](effects)
	assert.True(t, ok)
}

func TestHealth_Failure(t *testing.T) {
	s := connectedState()
	s, effects := Reduce(s, HealthChecked{Err: errors.New("refused")})
	assert.Empty(t, effects)
	assert.False(t, s.Connected)
	n, ok := s.LastNotice()
	require.True(t, ok)
	assert.Contains(t, n.Text, "refused")

	// Repeated failures do not pile up notices.
	s, _ = Reduce(s, HealthChecked{Err: errors.New("refused")})
	assert.Len(t, s.Notices, 1)
}

func TestStreamOpened_StaleSessionIgnored(t *testing.T) {
	s := connectedState()
	s.StreamOpen = false
	s, _ = Reduce(s, StreamOpened{SessionID: "other"})
	assert.False(t, s.StreamOpen)
}

func TestTerminalLog_Bounded(t *testing.T) {
	s := NewState(testConfig())
	for i := 0; i < maxTerminalLog+25; i++ {
		s, _ = Reduce(s, TerminalLog{Content: fmt.Sprintf("line %d", i)})
	}
	require.Len(t, s.TerminalLog, maxTerminalLog)
	assert.Equal(t, "line 25", s.TerminalLog[0])
	assert.Equal(t, fmt.Sprintf("line %d", maxTerminalLog+24), s.TerminalLog[maxTerminalLog-1])
}

func TestNoticesSince(t *testing.T) {
	s := NewState(testConfig())
	s, _ = apply(s, submit("a"), submit("b"), submit("c"))
	require.Len(t, s.Notices, 3)
	assert.Len(t, s.NoticesSince(0), 3)
	assert.Len(t, s.NoticesSince(s.Notices[1].Seq), 1)
	assert.Empty(t, s.NoticesSince(s.Notices[2].Seq))
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s, _ := apply(connectedState(), submit("q"), ReasoningStart{Message: "before"})
	before := s.Messages
	snapshot := append([]model.Message(nil), before...)

	_, _ = apply(s, ReasoningStep{Step: "after", StepNumber: 1, TotalSteps: 1}, ServerError{Message: "x"})

	assert.Equal(t, snapshot, before)
}

func TestReduce_AtMostOnePlaceholder(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	gen := func(s State) Event {
		switch rng.Intn(14) {
		case 0, 1:
			return submit(fmt.Sprintf("q%d", rng.Intn(100)))
		case 2, 3:
			return ReasoningStart{Message: "start"}
		case 4, 5, 6:
			return ReasoningStep{Step: fmt.Sprintf("s%d", rng.Intn(100)), StepNumber: 1, TotalSteps: 3}
		case 7:
			return Response{Response: "r"}
		case 8:
			return FinalizeDue{Token: s.finalizeToken}
		case 9:
			return TurnTimeout{Token: s.timeoutToken}
		case 10:
			return FallbackSucceeded{Turn: s.TurnID(), Reply: api.ChatResponse{Response: "f"}}
		case 11:
			return StreamError{Err: errors.New("drop")}
		case 12:
			return StreamOpened{SessionID: s.SessionID}
		default:
			return ServerError{Message: "e"}
		}
	}

	for run := 0; run < 200; run++ {
		s := connectedState()
		for i := 0; i < 60; i++ {
			s, _ = Reduce(s, gen(s))
			require.LessOrEqual(t, model.CountReasoning(s.Messages), 1, "run %d step %d", run, i)
			if ph, ok := s.Placeholder(); ok {
				require.True(t, ph.IsReasoning)
			} else {
				require.Zero(t, model.CountReasoning(s.Messages))
			}
			if s.Phase == PhaseIdle {
				require.False(t, s.Loading)
			}
		}
	}
}
