// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"strings"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string `json:"message"`
	Team      string `json:"team"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the reply to POST /chat.
type ChatResponse struct {
	Response  string `json:"response"`
	Reasoning string `json:"reasoning"`
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
	TeamUsed  string `json:"team_used"`
}

// Health is the reply to GET /health.
type Health struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	SessionsCount int    `json:"sessions_count"`
}

// OK reports whether the backend considers itself healthy.
func (h Health) OK() bool {
	switch strings.ToLower(h.Status) {
	case "healthy", "ok", "up":
		return true
	}
	return false
}

// Teams is the reply to GET /teams.
type Teams struct {
	Teams  []string `json:"teams"`
	Agents []string `json:"agents"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// errorResponse covers FastAPI's {"detail": ...} bodies, where detail is
// a string for HTTPException and a list for validation failures, and the
// {"message": ...} bodies some endpoints return instead.
type errorResponse struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

func (e errorResponse) text() string {
	if len(e.Detail) > 0 {
		var s string
		if err := json.Unmarshal(e.Detail, &s); err == nil {
			return s
		}
		return string(e.Detail)
	}
	return e.Message
}
