// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/jeranaias/regchat-tui/internal/model"
)

// Effect is a side effect requested by Reduce. The Controller executes
// effects and reports their outcome back as events.
type Effect interface {
	effect()
}

// SendStream writes a question to the live stream.
type SendStream struct {
	Turn    uint64
	Content string
	Team    model.Team
}

// SendRequest asks a question over request/response.
type SendRequest struct {
	Turn      uint64
	Content   string
	Team      model.Team
	SessionID string
}

// ScheduleFinalize arms the grace timer; it reports FinalizeDue{Token}.
type ScheduleFinalize struct {
	Token uint64
	After time.Duration
}

// CancelFinalize disarms the grace timer.
type CancelFinalize struct{}

// ScheduleTimeout arms (or re-arms) the turn timeout; it reports
// TurnTimeout{Token}.
type ScheduleTimeout struct {
	Token uint64
	After time.Duration
}

// CancelTimeout disarms the turn timeout.
type CancelTimeout struct{}

// OpenStream replaces the live stream with one scoped to SessionID.
type OpenStream struct {
	SessionID string
}

// CloseStream closes the live stream.
type CloseStream struct{}

// CreateSession asks the backend for a new session.
type CreateSession struct{}

// LoadSession fetches a stored session.
type LoadSession struct {
	ID string
}

// DeleteSession deletes a stored session.
type DeleteSession struct {
	ID string
}

// ListSessions fetches the stored session list.
type ListSessions struct{}

func (SendStream) effect()       {}
func (SendRequest) effect()      {}
func (ScheduleFinalize) effect() {}
func (CancelFinalize) effect()   {}
func (ScheduleTimeout) effect()  {}
func (CancelTimeout) effect()    {}
func (OpenStream) effect()       {}
func (CloseStream) effect()      {}
func (CreateSession) effect()    {}
func (LoadSession) effect()      {}
func (DeleteSession) effect()    {}
func (ListSessions) effect()     {}
