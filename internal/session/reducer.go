// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"strings"

	"github.com/jeranaias/regchat-tui/internal/model"
)

// User-facing notice texts.
const (
	msgNotConnected   = "Non connecté au serveur"
	msgTurnInProgress = "Une question est déjà en cours"
	msgStreamDown     = "WebSocket interrompu, bascule en requête directe"
	msgTurnTimeout    = "Aucune réponse du serveur"
	msgRetry          = "Échec de l'envoi, veuillez réessayer"
)

// Reduce folds one event into the state and returns the effects the host
// must run. It performs no I/O and reads no clock.
func Reduce(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Submit:
		return reduceSubmit(s, e)
	case SelectTeam:
		if e.Team.Valid() {
			s.Team = e.Team
		}
		return s, nil
	case NewSession:
		return reduceNewSession(s)
	case SelectSession:
		if e.ID == "" {
			return s, nil
		}
		return s, []Effect{LoadSession{ID: e.ID}}
	case RequestDelete:
		if e.ID == "" {
			return s, nil
		}
		return s, []Effect{DeleteSession{ID: e.ID}}
	case RefreshSessions:
		return s, []Effect{ListSessions{}}

	case ReasoningStart:
		return reduceReasoningStart(s, e)
	case ReasoningStep:
		return reduceReasoningStep(s, e)
	case Response:
		return reduceResponse(s, e)
	case ServerError:
		return reduceServerError(s, e)
	case TerminalLog:
		s.TerminalLog = appendRing(s.TerminalLog, e.Content, maxTerminalLog)
		return s, nil

	case StreamOpened:
		s.streamPending = false
		if e.SessionID != s.SessionID {
			return s, nil
		}
		s.StreamOpen = true
		return s, nil
	case StreamOpenFailed:
		s.streamPending = false
		if e.SessionID == s.SessionID {
			s.StreamOpen = false
		}
		return s, nil
	case StreamError:
		wasOpen := s.StreamOpen
		s.StreamOpen = false
		s.streamPending = false
		if wasOpen {
			s = addNotice(s, NoticeWarning, msgStreamDown)
		}
		return s, nil
	case StreamClosed:
		s.StreamOpen = false
		s.streamPending = false
		return s, nil
	case StreamSendFailed:
		return reduceStreamSendFailed(s, e)

	case FinalizeDue:
		if s.Phase != PhaseFinalizing || e.Token != s.finalizeToken {
			return s, nil
		}
		return finalize(s), nil
	case TurnTimeout:
		return reduceTurnTimeout(s, e)

	case FallbackSucceeded:
		return reduceFallbackSucceeded(s, e)
	case FallbackFailed:
		return reduceFallbackFailed(s, e)

	case HealthChecked:
		return reduceHealth(s, e)
	case SessionCreated:
		s.creating = false
		if s.SessionID != "" || e.SessionID == "" {
			return s, nil
		}
		s.SessionID = e.SessionID
		return openStream(s)
	case SessionCreateFailed:
		s.creating = false
		return addNotice(s, NoticeWarning, "Impossible de créer une session : %v", e.Err), nil
	case SessionLoaded:
		return reduceSessionLoaded(s, e)
	case SessionLoadFailed:
		return addNotice(s, NoticeError, "Impossible de charger la session %s : %v", e.ID, e.Err), nil
	case SessionDeleted:
		return reduceSessionDeleted(s, e)
	case SessionDeleteFailed:
		return addNotice(s, NoticeError, "Impossible de supprimer la session %s : %v", e.ID, e.Err), nil
	case SessionsListed:
		sessions := append([]model.SessionInfo(nil), e.Sessions...)
		model.SortByActivity(sessions)
		s.Sessions = sessions
		return s, nil
	case SessionsListFailed:
		return addNotice(s, NoticeWarning, "Impossible de charger l'historique : %v", e.Err), nil
	}
	return s, nil
}

// =============================================================================
// TURN START
// =============================================================================

func reduceSubmit(s State, e Submit) (State, []Effect) {
	content := strings.TrimSpace(e.Content)
	if content == "" {
		return s, nil
	}
	if !s.Connected {
		return addNotice(s, NoticeWarning, msgNotConnected), nil
	}

	var effects []Effect
	switch s.Phase {
	case PhaseFinalizing:
		// Flush the previous answer before accepting the next question.
		s = finalize(s)
		effects = append(effects, CancelFinalize{})
	case PhaseAwaitingReasoning, PhaseAwaitingResponseOnly:
		return addNotice(s, NoticeWarning, msgTurnInProgress), nil
	}

	team := s.Team
	if e.Team.Valid() {
		team = e.Team
	}

	user := model.NewUserMessage(content, e.Timestamp)
	s.Messages = appendMessage(s.Messages, user)
	s.Loading = true
	s.turnSeq++
	s.turn = &turn{
		id:            s.turnSeq,
		userMessageID: user.ID,
		content:       content,
		team:          team,
	}

	if s.StreamOpen && s.SessionID != "" {
		s.Phase = PhaseAwaitingReasoning
		effects = append(effects, SendStream{Turn: s.turn.id, Content: content, Team: team})
		s, effects = armTimeout(s, effects)
		return s, effects
	}

	s.Phase = PhaseAwaitingResponseOnly
	effects = append(effects, SendRequest{
		Turn:      s.turn.id,
		Content:   content,
		Team:      team,
		SessionID: s.SessionID,
	})
	return s, effects
}

// =============================================================================
// STREAMED TURN
// =============================================================================

func reduceReasoningStart(s State, e ReasoningStart) (State, []Effect) {
	if s.Phase != PhaseAwaitingReasoning {
		return s, nil
	}
	ph := model.NewReasoningPlaceholder(e.Message, e.Timestamp)
	if cur, ok := s.Placeholder(); ok {
		ph.ID = cur.ID
		s.Messages = replaceMessage(s.Messages, s.placeholder, ph)
	} else {
		s.Messages = appendMessage(s.Messages, ph)
		s.placeholder = len(s.Messages) - 1
	}
	return armTimeout(s, nil)
}

func reduceReasoningStep(s State, e ReasoningStep) (State, []Effect) {
	if s.Phase != PhaseAwaitingReasoning {
		return s, nil
	}
	cur, ok := s.Placeholder()
	if !ok {
		return s, nil
	}
	cur.Reasoning = e.Step
	cur.StepNumber = e.StepNumber
	cur.TotalSteps = e.TotalSteps
	s.Messages = replaceMessage(s.Messages, s.placeholder, cur)
	return armTimeout(s, nil)
}

func reduceResponse(s State, e Response) (State, []Effect) {
	if s.Phase != PhaseAwaitingReasoning || s.turn == nil {
		return s, nil
	}
	t := *s.turn
	t.response = &e
	s.turn = &t
	s.Phase = PhaseFinalizing
	s.timeoutToken++
	effects := []Effect{CancelTimeout{}}

	if s.Config.FinalizeGrace <= 0 {
		return finalize(s), effects
	}
	s.finalizeToken++
	effects = append(effects, ScheduleFinalize{Token: s.finalizeToken, After: s.Config.FinalizeGrace})
	return s, effects
}

// finalize turns the pending answer into a terminal assistant message.
func finalize(s State) State {
	if s.turn == nil || s.turn.response == nil {
		return s
	}
	resp := s.turn.response
	answer := model.NewAssistantMessage(resp.Response, "", resp.Timestamp)
	if s.placeholder >= 0 && s.placeholder < len(s.Messages) {
		s.Messages = replaceMessage(s.Messages, s.placeholder, answer)
	} else {
		s.Messages = appendMessage(s.Messages, answer)
	}
	s.finalizeToken++
	return endTurn(s)
}

func reduceServerError(s State, e ServerError) (State, []Effect) {
	text := e.Message
	if text == "" {
		text = "erreur inconnue"
	}
	if s.Phase != PhaseAwaitingReasoning {
		return addNotice(s, NoticeError, "Erreur du serveur : %s", text), nil
	}
	s = dropPlaceholder(s)
	s.timeoutToken++
	s = endTurn(s)
	return addNotice(s, NoticeError, "Erreur du serveur : %s", text), []Effect{CancelTimeout{}}
}

func reduceStreamSendFailed(s State, e StreamSendFailed) (State, []Effect) {
	if s.Phase != PhaseAwaitingReasoning || s.turn == nil || s.turn.id != e.Turn {
		return s, nil
	}
	s.StreamOpen = false
	s.timeoutToken++
	s = dropPlaceholder(s)
	s = addNotice(s, NoticeWarning, msgStreamDown)
	return toFallback(s, CancelTimeout{})
}

func reduceTurnTimeout(s State, e TurnTimeout) (State, []Effect) {
	if s.Phase != PhaseAwaitingReasoning || s.turn == nil || e.Token != s.timeoutToken {
		return s, nil
	}
	s = dropPlaceholder(s)
	if s.Config.TimeoutPolicy == PolicyError {
		s = endTurn(s)
		return addNotice(s, NoticeError, msgTurnTimeout), nil
	}
	s = addNotice(s, NoticeWarning, "%s, bascule en requête directe", msgTurnTimeout)
	return toFallback(s)
}

// toFallback re-asks the in-flight question over request/response.
func toFallback(s State, effects ...Effect) (State, []Effect) {
	s.Phase = PhaseAwaitingResponseOnly
	return s, append(effects, SendRequest{
		Turn:      s.turn.id,
		Content:   s.turn.content,
		Team:      s.turn.team,
		SessionID: s.SessionID,
	})
}

// =============================================================================
// FALLBACK TURN
// =============================================================================

func reduceFallbackSucceeded(s State, e FallbackSucceeded) (State, []Effect) {
	if s.Phase != PhaseAwaitingResponseOnly || s.turn == nil || s.turn.id != e.Turn {
		return s, nil
	}
	answer := model.NewAssistantMessage(e.Reply.Response, e.Reply.Reasoning, e.Reply.Timestamp)
	s.Messages = appendMessage(s.Messages, answer)
	s = endTurn(s)

	if e.Reply.SessionID != "" && e.Reply.SessionID != s.SessionID {
		s.SessionID = e.Reply.SessionID
		return openStream(s)
	}
	return s, nil
}

func reduceFallbackFailed(s State, e FallbackFailed) (State, []Effect) {
	if s.Phase != PhaseAwaitingResponseOnly || s.turn == nil || s.turn.id != e.Turn {
		return s, nil
	}
	if i := indexOf(s.Messages, s.turn.userMessageID); i >= 0 {
		s = removeAt(s, i)
	}
	s = endTurn(s)
	return addNotice(s, NoticeError, "%s (%v)", msgRetry, e.Err), nil
}

// =============================================================================
// CONNECTIVITY
// =============================================================================

func reduceHealth(s State, e HealthChecked) (State, []Effect) {
	if e.Err != nil {
		wasConnected := s.Connected
		s.Connected = false
		if wasConnected {
			s = addNotice(s, NoticeWarning, "Connexion au serveur perdue : %v", e.Err)
		}
		return s, nil
	}

	s.Connected = true
	s.SessionsCount = e.SessionsCount
	switch {
	case s.SessionID == "" && !s.creating:
		s.creating = true
		return s, []Effect{CreateSession{}}
	case s.SessionID != "" && !s.StreamOpen && !s.streamPending:
		return openStream(s)
	}
	return s, nil
}

func openStream(s State) (State, []Effect) {
	s.StreamOpen = false
	s.streamPending = true
	return s, []Effect{OpenStream{SessionID: s.SessionID}}
}

// =============================================================================
// SESSION SWITCHING
// =============================================================================

func reduceSessionLoaded(s State, e SessionLoaded) (State, []Effect) {
	s, effects := abandonTurn(s)
	s.Messages = e.Detail.Transcript()
	s.SessionID = e.Detail.SessionID
	if team := model.Team(e.Detail.SessionData.TeamUsed); team.Valid() {
		s.Team = team
	}
	s, open := openStream(s)
	return s, append(effects, open...)
}

func reduceSessionDeleted(s State, e SessionDeleted) (State, []Effect) {
	s.Sessions = removeSessionInfo(s.Sessions, e.ID)
	if e.ID == "" || e.ID != s.SessionID {
		return s, nil
	}
	s, effects := abandonTurn(s)
	s.Messages = nil
	s.SessionID = ""
	s.StreamOpen = false
	s.streamPending = false
	return s, append(effects, CloseStream{})
}

func reduceNewSession(s State) (State, []Effect) {
	s, effects := abandonTurn(s)
	s.Messages = nil
	s.SessionID = ""
	s.StreamOpen = false
	s.streamPending = false
	effects = append(effects, CloseStream{})
	if s.Connected && !s.creating {
		s.creating = true
		effects = append(effects, CreateSession{})
	}
	return s, effects
}

// abandonTurn drops the in-flight turn without finalizing it.
func abandonTurn(s State) (State, []Effect) {
	var effects []Effect
	switch s.Phase {
	case PhaseFinalizing:
		effects = append(effects, CancelFinalize{})
	case PhaseAwaitingReasoning:
		effects = append(effects, CancelTimeout{})
	}
	s.finalizeToken++
	s.timeoutToken++
	s = dropPlaceholder(s)
	return endTurn(s), effects
}

// =============================================================================
// HELPERS
// =============================================================================

func endTurn(s State) State {
	s.turn = nil
	s.placeholder = -1
	s.Loading = false
	s.Phase = PhaseIdle
	return s
}

func armTimeout(s State, effects []Effect) (State, []Effect) {
	if s.Config.TurnTimeout <= 0 {
		return s, effects
	}
	s.timeoutToken++
	return s, append(effects, ScheduleTimeout{Token: s.timeoutToken, After: s.Config.TurnTimeout})
}

func dropPlaceholder(s State) State {
	if s.placeholder >= 0 && s.placeholder < len(s.Messages) {
		s = removeAt(s, s.placeholder)
	}
	s.placeholder = -1
	return s
}

// removeAt removes message i and keeps the placeholder index aligned.
func removeAt(s State, i int) State {
	out := make([]model.Message, 0, len(s.Messages)-1)
	out = append(out, s.Messages[:i]...)
	out = append(out, s.Messages[i+1:]...)
	s.Messages = out
	switch {
	case s.placeholder == i:
		s.placeholder = -1
	case s.placeholder > i:
		s.placeholder--
	}
	return s
}

func appendMessage(msgs []model.Message, m model.Message) []model.Message {
	out := make([]model.Message, len(msgs), len(msgs)+1)
	copy(out, msgs)
	return append(out, m)
}

func replaceMessage(msgs []model.Message, i int, m model.Message) []model.Message {
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	out[i] = m
	return out
}

func indexOf(msgs []model.Message, id string) int {
	for i := range msgs {
		if msgs[i].ID == id {
			return i
		}
	}
	return -1
}

func removeSessionInfo(sessions []model.SessionInfo, id string) []model.SessionInfo {
	out := make([]model.SessionInfo, 0, len(sessions))
	for _, si := range sessions {
		if si.SessionID != id {
			out = append(out, si)
		}
	}
	return out
}

func appendRing(lines []string, line string, max int) []string {
	start := 0
	if len(lines) >= max {
		start = len(lines) - max + 1
	}
	out := make([]string, 0, len(lines)-start+1)
	out = append(out, lines[start:]...)
	return append(out, line)
}

func addNotice(s State, level NoticeLevel, format string, args ...interface{}) State {
	s.noticeSeq++
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	n := Notice{Seq: s.noticeSeq, Level: level, Text: text}

	start := 0
	if len(s.Notices) >= maxNotices {
		start = len(s.Notices) - maxNotices + 1
	}
	out := make([]Notice, 0, len(s.Notices)-start+1)
	out = append(out, s.Notices[start:]...)
	s.Notices = append(out, n)
	return s
}
