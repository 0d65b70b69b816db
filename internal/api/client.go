// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is where the backend listens in development.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds each request/response call.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseSize caps response bodies, PDF exports included.
	DefaultMaxResponseSize = 10 * 1024 * 1024

	userAgent = "regchat/1.0"
)

// sharedTransport pools connections across every Client in the process.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 5,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the assistant backend over HTTP and WebSocket. It is
// safe for concurrent use. A Client owns at most one live Stream.
type Client struct {
	baseURL         string
	wsURL           string
	httpClient      *http.Client
	dialer          *websocket.Dialer
	maxResponseSize int64
	pingInterval    time.Duration

	mu     sync.Mutex
	stream *Stream
}

// NewClient creates a client for the backend at baseURL. The WebSocket
// root is derived from it (http→ws, https→wss) unless WithWebSocketURL is
// used.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{
			Transport: sharedTransport,
			Timeout:   DefaultTimeout,
		},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		maxResponseSize: DefaultMaxResponseSize,
		pingInterval:    DefaultPingInterval,
	}
	c.WithBaseURL(baseURL)
	return c
}

// WithBaseURL sets the HTTP root and re-derives the WebSocket root.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	c.wsURL = deriveWebSocketURL(c.baseURL)
	return c
}

// WithWebSocketURL sets an explicit WebSocket root.
func (c *Client) WithWebSocketURL(wsURL string) *Client {
	if wsURL != "" {
		c.wsURL = strings.TrimSuffix(wsURL, "/")
	}
	return c
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithMaxResponseSize sets the response body cap in bytes.
func (c *Client) WithMaxResponseSize(n int64) *Client {
	if n > 0 {
		c.maxResponseSize = n
	}
	return c
}

// WithPingInterval sets the stream keepalive period. Zero disables pings.
func (c *Client) WithPingInterval(d time.Duration) *Client {
	c.pingInterval = d
	return c
}

// WithHTTPClient replaces the HTTP client (tests, custom TLS).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// BaseURL returns the HTTP root.
func (c *Client) BaseURL() string { return c.baseURL }

// WebSocketURL returns the WebSocket root.
func (c *Client) WebSocketURL() string { return c.wsURL }

func deriveWebSocketURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return strings.TrimSuffix(u.String(), "/")
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// do performs one request and decodes a JSON reply into out (when non-nil).
// Non-2xx statuses become *TransportError tagged with op; undecodable
// bodies become *ParseError.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	data, _, err := c.doRaw(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ParseError{Op: op, Payload: truncatePayload(data), Err: err}
	}
	return nil
}

// doRaw performs one request and returns the raw body and content type.
func (c *Client) doRaw(ctx context.Context, op, method, path string, body interface{}) ([]byte, string, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, "", &TransportError{Op: op, Err: errors.Wrap(err, "failed to marshal request")}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, "", &TransportError{Op: op, Err: errors.Wrap(err, "failed to create request")}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("op", op).Str("path", path).Msg("api request failed")
		return nil, "", &TransportError{Op: op, Err: errors.Wrap(err, "request failed")}
	}
	defer resp.Body.Close()

	data, err := c.readResponse(resp)
	log.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api request")
	if err != nil {
		return nil, "", &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", handleErrorResponse(op, resp.StatusCode, data)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// readResponse reads the body up to the configured cap.
func (c *Client) readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if int64(len(body)) > c.maxResponseSize {
		return nil, errors.Errorf("response exceeded maximum size of %d bytes", c.maxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts a non-2xx reply into a *TransportError,
// keeping the backend's own message when it sent one.
func handleErrorResponse(op string, status int, body []byte) error {
	te := &TransportError{Op: op, Status: status}
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		te.Message = er.text()
	}
	if te.Message == "" {
		te.Message = strings.TrimSpace(truncatePayload(body))
	}
	if te.Message == "" {
		te.Message = http.StatusText(status)
	}
	return te
}
