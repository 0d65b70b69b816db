// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"

	"github.com/jeranaias/regchat-tui/internal/api"
	"github.com/jeranaias/regchat-tui/internal/model"
)

// Stream is a live push channel as seen by the controller.
type Stream interface {
	Send(message, team string) error
	Close()
}

// Transport is what the controller needs from the backend. The two ways
// to ask a question are SendMessage (request/response) and Stream.Send;
// the reducer picks one per turn.
type Transport interface {
	SendMessage(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	OpenStream(ctx context.Context, sessionID string, h api.Handlers) (Stream, error)
	CreateSession(ctx context.Context) (string, error)
	GetSession(ctx context.Context, id string) (*model.SessionDetail, error)
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]model.SessionInfo, error)
	CheckHealth(ctx context.Context) (*api.Health, error)
}

// ClientTransport adapts an *api.Client to Transport.
type ClientTransport struct {
	*api.Client
}

// NewClientTransport wraps c.
func NewClientTransport(c *api.Client) *ClientTransport {
	return &ClientTransport{Client: c}
}

// OpenStream opens the client's stream for sessionID.
func (t *ClientTransport) OpenStream(ctx context.Context, sessionID string, h api.Handlers) (Stream, error) {
	s, err := t.Client.OpenStream(ctx, sessionID, h)
	if err != nil {
		return nil, err
	}
	return s, nil
}
