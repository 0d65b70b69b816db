// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/jeranaias/regchat-tui/internal/model"
)

// Operation names carried by errors from this package.
const (
	OpChat          = "chat"
	OpCreateSession = "sessions.create"
	OpListSessions  = "sessions.list"
	OpGetSession    = "sessions.get"
	OpDeleteSession = "sessions.delete"
	OpExportPDF     = "sessions.export_pdf"
	OpHealth        = "health"
	OpTeams         = "teams"
	OpStreamOpen    = "stream.open"
	OpStreamSend    = "stream.send"
	OpStreamRead    = "stream.read"
	OpStreamFrame   = "stream.frame"
)

// =============================================================================
// CHAT
// =============================================================================

// SendMessage asks a question over request/response. The reply carries the
// session id the backend used, which is a new one when req.SessionID is
// empty. Failures are never retried here.
func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, &TransportError{Op: OpChat, Message: "empty message"}
	}
	var resp ChatResponse
	if err := c.do(ctx, OpChat, http.MethodPost, "/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// SESSIONS
// =============================================================================

// CreateSession asks the backend for a fresh session id.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var resp createSessionResponse
	if err := c.do(ctx, OpCreateSession, http.MethodPost, "/sessions", nil, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", &ParseError{Op: OpCreateSession, Err: errors.New("missing session_id")}
	}
	return resp.SessionID, nil
}

// ListSessions returns the stored session summaries.
func (c *Client) ListSessions(ctx context.Context) ([]model.SessionInfo, error) {
	var sessions []model.SessionInfo
	if err := c.do(ctx, OpListSessions, http.MethodGet, "/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession returns one stored session with its transcript.
func (c *Client) GetSession(ctx context.Context, id string) (*model.SessionDetail, error) {
	var detail model.SessionDetail
	if err := c.do(ctx, OpGetSession, http.MethodGet, sessionPath(id), nil, &detail); err != nil {
		return nil, err
	}
	if detail.SessionID == "" {
		detail.SessionID = id
	}
	return &detail, nil
}

// DeleteSession deletes a stored session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, OpDeleteSession, http.MethodDelete, sessionPath(id), nil, nil)
}

// ExportPDF downloads the PDF rendering of a session. A JSON reply instead
// of a document is reported as a *TransportError carrying the backend's
// message.
func (c *Client) ExportPDF(ctx context.Context, id string) ([]byte, error) {
	data, contentType, err := c.doRaw(ctx, OpExportPDF, http.MethodGet, sessionPath(id)+"/export/pdf", nil)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(contentType, "application/json") || bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		var er errorResponse
		msg := "backend returned no document"
		if json.Unmarshal(data, &er) == nil && er.text() != "" {
			msg = er.text()
		}
		return nil, &TransportError{Op: OpExportPDF, Status: http.StatusOK, Message: msg}
	}
	if len(data) == 0 {
		return nil, &TransportError{Op: OpExportPDF, Status: http.StatusOK, Message: "empty document"}
	}
	return data, nil
}

func sessionPath(id string) string {
	return "/sessions/" + url.PathEscape(id)
}

// =============================================================================
// SERVICE INFO
// =============================================================================

// CheckHealth probes the backend. Any failure, including an unhealthy
// status, is a *ConnectivityError.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, OpHealth, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, &ConnectivityError{Op: OpHealth, Err: err}
	}
	if !h.OK() {
		return &h, &ConnectivityError{Op: OpHealth, Err: errors.Errorf("status %q", h.Status)}
	}
	return &h, nil
}

// ListTeams returns the teams and agents the backend exposes.
func (c *Client) ListTeams(ctx context.Context) (*Teams, error) {
	var t Teams
	if err := c.do(ctx, OpTeams, http.MethodGet, "/teams", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
