// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"sort"
)

// =============================================================================
// SESSION SUMMARY
// =============================================================================

// SessionInfo is the read-only summary of a stored session.
type SessionInfo struct {
	SessionID    string `json:"session_id"`
	CreatedAt    string `json:"created_at"`
	LastActivity string `json:"last_activity"`
	MessageCount int    `json:"message_count"`
	TeamUsed     string `json:"team_used"`
}

// SortByActivity orders sessions most recently active first.
func SortByActivity(sessions []SessionInfo) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return ParseTime(sessions[i].LastActivity).After(ParseTime(sessions[j].LastActivity))
	})
}

// =============================================================================
// SESSION DETAIL
// =============================================================================

// Exchange is one stored question/answer pair.
type Exchange struct {
	UserMessage string `json:"user_message"`
	BotResponse string `json:"bot_response"`
	Reasoning   string `json:"reasoning"`
	Timestamp   string `json:"timestamp"`
}

// SessionData is the stored body of a session.
type SessionData struct {
	Messages     []Exchange `json:"messages"`
	CreatedAt    string     `json:"created_at"`
	LastActivity string     `json:"last_activity"`
	TeamUsed     string     `json:"team_used"`
}

// SessionDetail is the full stored session returned by the backend.
type SessionDetail struct {
	SessionID   string      `json:"session_id"`
	SessionData SessionData `json:"session_data"`
}

// Transcript rebuilds the displayed message list: user, assistant, user,
// assistant... in stored order, so N exchanges give 2N messages. IDs are
// derived from the session id and position and are stable across reloads.
func (d SessionDetail) Transcript() []Message {
	exchanges := d.SessionData.Messages
	msgs := make([]Message, 0, 2*len(exchanges))
	for i, ex := range exchanges {
		msgs = append(msgs,
			Message{
				ID:        fmt.Sprintf("%s-%d", d.SessionID, i),
				Role:      RoleUser,
				Content:   ex.UserMessage,
				Timestamp: ex.Timestamp,
			},
			Message{
				ID:        fmt.Sprintf("%s-%d-bot", d.SessionID, i),
				Role:      RoleAssistant,
				Content:   ex.BotResponse,
				Reasoning: ex.Reasoning,
				Timestamp: ex.Timestamp,
			},
		)
	}
	return msgs
}

// Info projects the detail into a summary row.
func (d SessionDetail) Info() SessionInfo {
	return SessionInfo{
		SessionID:    d.SessionID,
		CreatedAt:    d.SessionData.CreatedAt,
		LastActivity: d.SessionData.LastActivity,
		MessageCount: len(d.SessionData.Messages),
		TeamUsed:     d.SessionData.TeamUsed,
	}
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is a self-contained copy of a conversation, used for export.
type Transcript struct {
	SessionID string    `json:"session_id"`
	Team      string    `json:"team,omitempty"`
	CreatedAt string    `json:"created_at,omitempty"`
	Messages  []Message `json:"messages"`
}

// NewTranscript builds an export transcript from a stored session.
func NewTranscript(d SessionDetail) Transcript {
	return Transcript{
		SessionID: d.SessionID,
		Team:      d.SessionData.TeamUsed,
		CreatedAt: d.SessionData.CreatedAt,
		Messages:  d.Transcript(),
	}
}

// Finalized returns the messages with live placeholders dropped.
func (t Transcript) Finalized() []Message {
	out := make([]Message, 0, len(t.Messages))
	for _, m := range t.Messages {
		if !m.IsReasoning {
			out = append(out, m)
		}
	}
	return out
}
