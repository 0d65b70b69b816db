// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "Vous"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// DefaultReasoningText is shown on a fresh placeholder when the server did
// not say what it is doing.
const DefaultReasoningText = "Début de l'analyse..."

// Message represents a single displayed turn.
//
// Timestamps stay as the ISO-8601 strings they arrived as; the backend
// emits naive local times that do not survive a round trip through
// time.Time unchanged.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
	Timestamp string `json:"timestamp"`

	// Live placeholder state
	IsReasoning bool `json:"is_reasoning,omitempty"`
	StepNumber  int  `json:"step_number,omitempty"`
	TotalSteps  int  `json:"total_steps,omitempty"`
}

// NewID returns a fresh message identifier.
func NewID() string {
	return uuid.NewString()
}

// Now formats the current time the way the backend formats its own.
func Now() string {
	return FormatTime(time.Now())
}

// FormatTime renders t as an ISO-8601 timestamp with millisecond precision.
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000Z07:00")
}

// NewUserMessage creates a user message stamped with the given time.
func NewUserMessage(content, timestamp string) Message {
	return Message{
		ID:        NewID(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: timestamp,
	}
}

// NewReasoningPlaceholder creates the transient assistant message shown
// while the backend is still reasoning.
func NewReasoningPlaceholder(text, timestamp string) Message {
	if text == "" {
		text = DefaultReasoningText
	}
	return Message{
		ID:          "reasoning-" + NewID(),
		Role:        RoleAssistant,
		Reasoning:   text,
		Timestamp:   timestamp,
		IsReasoning: true,
	}
}

// NewAssistantMessage creates a finalized assistant message.
func NewAssistantMessage(content, reasoning, timestamp string) Message {
	return Message{
		ID:        "response-" + NewID(),
		Role:      RoleAssistant,
		Content:   content,
		Reasoning: reasoning,
		Timestamp: timestamp,
	}
}

// HasStepProgress reports whether the message carries a usable n/total pair.
func (m Message) HasStepProgress() bool {
	return m.StepNumber > 0 && m.TotalSteps > 0
}

// Time parses the message timestamp. Naive timestamps (no zone) are read
// as local time. The zero time is returned when parsing fails.
func (m Message) Time() time.Time {
	return ParseTime(m.Timestamp)
}

// ParseTime parses the timestamp formats the backend produces.
func ParseTime(s string) time.Time {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CountReasoning returns how many messages are live reasoning placeholders.
func CountReasoning(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if m.IsReasoning {
			n++
		}
	}
	return n
}

// LastAssistant returns the most recent finalized assistant message.
func LastAssistant(msgs []Message) (Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleAssistant && !msgs[i].IsReasoning && msgs[i].Content != "" {
			return msgs[i], true
		}
	}
	return Message{}, false
}
