// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/regchat-tui/internal/model"
)

// =============================================================================
// CONFIG
// =============================================================================

// TimeoutPolicy decides what happens to a streamed turn that goes silent.
type TimeoutPolicy string

const (
	// PolicyFallback re-asks the question over request/response.
	PolicyFallback TimeoutPolicy = "fallback"
	// PolicyError abandons the turn and reports an error.
	PolicyError TimeoutPolicy = "error"
)

// ParsePolicy parses a policy name. Unknown names yield PolicyFallback and
// an error.
func ParsePolicy(s string) (TimeoutPolicy, error) {
	switch TimeoutPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyFallback, "":
		return PolicyFallback, nil
	case PolicyError:
		return PolicyError, nil
	}
	return PolicyFallback, fmt.Errorf("unknown turn timeout policy %q", s)
}

// Config holds the timing and policy knobs of a session.
type Config struct {
	// Team is the initial team selection.
	Team model.Team

	// FinalizeGrace keeps the last reasoning step on screen after the
	// answer arrives (default: 3s).
	FinalizeGrace time.Duration

	// TurnTimeout bounds the silence between two frames of a streamed
	// turn. Zero disables it.
	TurnTimeout time.Duration

	// TimeoutPolicy applies when TurnTimeout fires.
	TimeoutPolicy TimeoutPolicy

	// HealthInterval is the health probe period (default: 30s).
	HealthInterval time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Team:           model.TeamGlobal,
		FinalizeGrace:  3 * time.Second,
		TurnTimeout:    3 * time.Minute,
		TimeoutPolicy:  PolicyFallback,
		HealthInterval: 30 * time.Second,
	}
}

// =============================================================================
// PHASE
// =============================================================================

// Phase is the lifecycle stage of the current turn.
type Phase int

const (
	// PhaseIdle means no turn is in flight.
	PhaseIdle Phase = iota
	// PhaseAwaitingReasoning means the question went over the stream and
	// reasoning frames may still arrive.
	PhaseAwaitingReasoning
	// PhaseAwaitingResponseOnly means the question went over
	// request/response.
	PhaseAwaitingResponseOnly
	// PhaseFinalizing means the streamed answer arrived and the grace
	// timer is pending.
	PhaseFinalizing
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingReasoning:
		return "awaiting_reasoning"
	case PhaseAwaitingResponseOnly:
		return "awaiting_response"
	case PhaseFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// InFlight reports whether a turn is underway.
func (p Phase) InFlight() bool { return p != PhaseIdle }

// =============================================================================
// NOTICES
// =============================================================================

// NoticeLevel grades a Notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

// String returns the level name.
func (l NoticeLevel) String() string {
	switch l {
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a non-fatal message for the user. Seq increases monotonically
// so hosts can tell which notices they have already shown.
type Notice struct {
	Seq   uint64
	Level NoticeLevel
	Text  string
}

const (
	maxNotices     = 50
	maxTerminalLog = 200
)

// =============================================================================
// STATE
// =============================================================================

// turn is the question currently in flight.
type turn struct {
	id            uint64
	userMessageID string
	content       string
	team          model.Team
	response      *Response
}

// State is everything a host renders. Reduce never mutates a slice in
// place, so a State value can be shared with other goroutines as is.
type State struct {
	Messages  []model.Message
	SessionID string
	Team      model.Team

	Phase      Phase
	Loading    bool
	Connected  bool
	StreamOpen bool

	// Backend bookkeeping
	Sessions      []model.SessionInfo
	SessionsCount int
	TerminalLog   []string
	Notices       []Notice

	Config Config

	placeholder   int
	turn          *turn
	turnSeq       uint64
	finalizeToken uint64
	timeoutToken  uint64
	noticeSeq     uint64
	creating      bool
	streamPending bool
}

// NewState returns the initial state for cfg.
func NewState(cfg Config) State {
	team := cfg.Team
	if !team.Valid() {
		team = model.TeamGlobal
	}
	return State{
		Team:        team,
		Config:      cfg,
		placeholder: -1,
	}
}

// Placeholder returns the live reasoning placeholder, if any.
func (s State) Placeholder() (model.Message, bool) {
	if s.placeholder < 0 || s.placeholder >= len(s.Messages) {
		return model.Message{}, false
	}
	return s.Messages[s.placeholder], true
}

// LastNotice returns the most recent notice, if any.
func (s State) LastNotice() (Notice, bool) {
	if len(s.Notices) == 0 {
		return Notice{}, false
	}
	return s.Notices[len(s.Notices)-1], true
}

// NoticesSince returns the notices newer than seq.
func (s State) NoticesSince(seq uint64) []Notice {
	for i, n := range s.Notices {
		if n.Seq > seq {
			return s.Notices[i:]
		}
	}
	return nil
}

// TurnID returns the id of the turn in flight, or 0.
func (s State) TurnID() uint64 {
	if s.turn == nil {
		return 0
	}
	return s.turn.id
}

// TurnCount returns the number of questions accepted so far.
func (s State) TurnCount() uint64 {
	return s.turnSeq
}

// Creating reports whether a new session has been requested and not yet
// created.
func (s State) Creating() bool {
	return s.creating
}
