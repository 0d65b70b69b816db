// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/regchat-tui/internal/api"
	"github.com/jeranaias/regchat-tui/internal/model"
)

// Event is an input to Reduce. Events come from the user, the transport
// and the controller's timers.
type Event interface {
	event()
}

// =============================================================================
// USER ACTIONS
// =============================================================================

// Submit asks a question. An empty Team keeps the current selection.
type Submit struct {
	Content   string
	Team      model.Team
	Timestamp string
}

// SelectTeam changes the team sent with the next question.
type SelectTeam struct {
	Team model.Team
}

// NewSession drops the current conversation and asks for a fresh session.
type NewSession struct{}

// SelectSession asks to load a stored session.
type SelectSession struct {
	ID string
}

// RequestDelete asks to delete a stored session.
type RequestDelete struct {
	ID string
}

// RefreshSessions asks for the stored session list.
type RefreshSessions struct{}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// ReasoningStart opens a reasoning placeholder.
type ReasoningStart struct {
	Message   string
	Timestamp string
}

// ReasoningStep replaces the placeholder's reasoning text.
type ReasoningStep struct {
	Step       string
	StepNumber int
	TotalSteps int
	Timestamp  string
}

// Response carries the final answer of a streamed turn.
type Response struct {
	Response  string
	Reasoning string
	TeamUsed  string
	Timestamp string
}

// ServerError is an error frame pushed by the backend.
type ServerError struct {
	Message   string
	Timestamp string
}

// TerminalLog is a backend log line pushed over the stream.
type TerminalLog struct {
	Content   string
	Timestamp string
}

// StreamOpened reports a live stream for SessionID.
type StreamOpened struct {
	SessionID string
}

// StreamOpenFailed reports a failed dial.
type StreamOpenFailed struct {
	SessionID string
	Err       error
}

// StreamError reports that the stream failed.
type StreamError struct {
	Err error
}

// StreamClosed reports that the stream ended. Err is nil for a clean close.
type StreamClosed struct {
	Err error
}

// StreamSendFailed reports that a question could not be written to the
// stream.
type StreamSendFailed struct {
	Turn uint64
	Err  error
}

// =============================================================================
// TIMERS
// =============================================================================

// FinalizeDue fires when the grace interval of a finished turn elapses.
type FinalizeDue struct {
	Token uint64
}

// TurnTimeout fires when a streamed turn has been silent for too long.
type TurnTimeout struct {
	Token uint64
}

// =============================================================================
// REQUEST/RESPONSE RESULTS
// =============================================================================

// FallbackSucceeded carries the reply to a request/response turn.
type FallbackSucceeded struct {
	Turn  uint64
	Reply api.ChatResponse
}

// FallbackFailed reports a failed request/response turn.
type FallbackFailed struct {
	Turn uint64
	Err  error
}

// HealthChecked is the outcome of one health probe.
type HealthChecked struct {
	SessionsCount int
	Err           error
}

// SessionCreated carries a fresh session id.
type SessionCreated struct {
	SessionID string
}

// SessionCreateFailed reports a failed session creation.
type SessionCreateFailed struct {
	Err error
}

// SessionLoaded carries a stored session to switch to.
type SessionLoaded struct {
	Detail model.SessionDetail
}

// SessionLoadFailed reports a failed session fetch.
type SessionLoadFailed struct {
	ID  string
	Err error
}

// SessionDeleted reports a deleted session.
type SessionDeleted struct {
	ID string
}

// SessionDeleteFailed reports a failed deletion.
type SessionDeleteFailed struct {
	ID  string
	Err error
}

// SessionsListed carries the stored session list.
type SessionsListed struct {
	Sessions []model.SessionInfo
}

// SessionsListFailed reports a failed list fetch.
type SessionsListFailed struct {
	Err error
}

func (Submit) event()              {}
func (SelectTeam) event()          {}
func (NewSession) event()          {}
func (SelectSession) event()       {}
func (RequestDelete) event()       {}
func (RefreshSessions) event()     {}
func (ReasoningStart) event()      {}
func (ReasoningStep) event()       {}
func (Response) event()            {}
func (ServerError) event()         {}
func (TerminalLog) event()         {}
func (StreamOpened) event()        {}
func (StreamOpenFailed) event()    {}
func (StreamError) event()         {}
func (StreamClosed) event()        {}
func (StreamSendFailed) event()    {}
func (FinalizeDue) event()         {}
func (TurnTimeout) event()         {}
func (FallbackSucceeded) event()   {}
func (FallbackFailed) event()      {}
func (HealthChecked) event()       {}
func (SessionCreated) event()      {}
func (SessionCreateFailed) event() {}
func (SessionLoaded) event()       {}
func (SessionLoadFailed) event()   {}
func (SessionDeleted) event()      {}
func (SessionDeleteFailed) event() {}
func (SessionsListed) event()      {}
func (SessionsListFailed) event()  {}

// FrameEvent converts a stream frame into the matching event. Frames that
// do not drive the reducer return nil.
func FrameEvent(f api.Frame) Event {
	switch f.Type {
	case api.FrameReasoningStart:
		return ReasoningStart{Message: f.Message, Timestamp: f.Timestamp}
	case api.FrameReasoningStep:
		return ReasoningStep{Step: f.Step, StepNumber: f.StepNumber, TotalSteps: f.TotalSteps, Timestamp: f.Timestamp}
	case api.FrameResponse:
		return Response{Response: f.Response, Reasoning: f.Reasoning, TeamUsed: f.TeamUsed, Timestamp: f.Timestamp}
	case api.FrameError:
		return ServerError{Message: f.Message, Timestamp: f.Timestamp}
	case api.FrameTerminalLog:
		return TerminalLog{Content: f.Content, Timestamp: f.Timestamp}
	default:
		return nil
	}
}
