// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPingInterval is the keepalive period of an idle stream. The
	// backend can stay silent for tens of seconds between reasoning steps.
	DefaultPingInterval = 30 * time.Second

	writeWait = 10 * time.Second
)

// =============================================================================
// FRAMES
// =============================================================================

// FrameType tags a server-to-client stream frame.
type FrameType string

const (
	FrameReasoningStart FrameType = "reasoning_start"
	FrameReasoningStep  FrameType = "reasoning_step"
	FrameResponse       FrameType = "response"
	FrameError          FrameType = "error"
	FrameTerminalLog    FrameType = "terminal_log"
)

// Known reports whether t is a frame type this client understands.
func (t FrameType) Known() bool {
	switch t {
	case FrameReasoningStart, FrameReasoningStep, FrameResponse, FrameError, FrameTerminalLog:
		return true
	}
	return false
}

// Frame is one server-to-client stream message. Which fields are set
// depends on Type.
type Frame struct {
	Type       FrameType `json:"type"`
	Timestamp  string    `json:"timestamp"`
	Message    string    `json:"message,omitempty"`
	Step       string    `json:"step,omitempty"`
	StepNumber int       `json:"step_number,omitempty"`
	TotalSteps int       `json:"total_steps,omitempty"`
	Response   string    `json:"response,omitempty"`
	Reasoning  string    `json:"reasoning,omitempty"`
	TeamUsed   string    `json:"team_used,omitempty"`
	Content    string    `json:"content,omitempty"`
}

type outboundFrame struct {
	Message string `json:"message"`
	Team    string `json:"team"`
}

// DecodeFrame parses one stream payload.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, &ParseError{Op: OpStreamFrame, Payload: truncatePayload(data), Err: err}
	}
	if f.Type == "" {
		return Frame{}, &ParseError{Op: OpStreamFrame, Payload: truncatePayload(data), Err: errors.New("missing type")}
	}
	return f, nil
}

// =============================================================================
// STREAM STATE
// =============================================================================

// StreamState is the lifecycle state of a Stream.
type StreamState int32

const (
	StreamConnecting StreamState = iota
	StreamOpen
	StreamClosing
	StreamClosed
)

// String returns the state name.
func (s StreamState) String() string {
	switch s {
	case StreamConnecting:
		return "connecting"
	case StreamOpen:
		return "open"
	case StreamClosing:
		return "closing"
	case StreamClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handlers receive stream callbacks. They run on the stream's read
// goroutine and must not block for long. Nil handlers are skipped.
type Handlers struct {
	// OnOpen fires once the connection is established.
	OnOpen func()
	// OnEvent fires for every well-formed frame, in arrival order.
	OnEvent func(Frame)
	// OnError fires for malformed frames (*ParseError, the stream keeps
	// reading) and for abnormal termination (*ConnectivityError).
	OnError func(error)
	// OnClose fires exactly once when the stream ends. err is nil for a
	// clean server close and after the owner calls Close.
	OnClose func(err error)
}

// =============================================================================
// STREAM
// =============================================================================

// Stream is a live WebSocket scoped to one session.
type Stream struct {
	sessionID    string
	conn         *websocket.Conn
	handlers     Handlers
	pingInterval time.Duration

	state     atomic.Int32
	writeMu   sync.Mutex
	closeOnce sync.Once
	readDone  chan struct{}
	done      chan struct{}
}

// OpenStream connects the push channel for sessionID. Any stream this
// client already holds is closed first, so a client never has two live
// streams.
func (c *Client) OpenStream(ctx context.Context, sessionID string, h Handlers) (*Stream, error) {
	if sessionID == "" {
		return nil, &TransportError{Op: OpStreamOpen, Message: "missing session id"}
	}
	c.CloseStream()

	target := c.wsURL + "/ws/" + url.PathEscape(sessionID)
	header := http.Header{}
	header.Set("User-Agent", userAgent)

	conn, resp, err := c.dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, &ConnectivityError{Op: OpStreamOpen, Err: errors.Wrapf(err, "dial %s", target)}
	}

	s := &Stream{
		sessionID:    sessionID,
		conn:         conn,
		handlers:     h,
		pingInterval: c.pingInterval,
		readDone:     make(chan struct{}),
		done:         make(chan struct{}),
	}

	c.mu.Lock()
	prev := c.stream
	c.stream = s
	c.mu.Unlock()
	// A concurrent OpenStream may have installed its own stream meanwhile.
	if prev != nil {
		prev.Close()
	}

	log.Debug().Str("session_id", sessionID).Str("url", target).Msg("stream opened")
	s.start()
	return s, nil
}

// Stream returns the client's live stream, or nil.
func (c *Client) Stream() *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

// CloseStream closes the client's live stream, if any.
func (c *Client) CloseStream() {
	c.mu.Lock()
	s := c.stream
	c.stream = nil
	c.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// SessionID returns the session the stream is scoped to.
func (s *Stream) SessionID() string { return s.sessionID }

// State returns the current lifecycle state.
func (s *Stream) State() StreamState {
	if s == nil {
		return StreamClosed
	}
	return StreamState(s.state.Load())
}

// IsOpen reports whether Send can deliver.
func (s *Stream) IsOpen() bool { return s.State() == StreamOpen }

// Done is closed once the stream's goroutines have exited.
func (s *Stream) Done() <-chan struct{} { return s.done }

func (s *Stream) start() {
	s.state.Store(int32(StreamOpen))
	if s.handlers.OnOpen != nil {
		s.handlers.OnOpen()
	}

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(s.readLoop)
	g.Go(func() error { return s.pingLoop(gctx) })
	go func() {
		s.finish(g.Wait())
	}()
}

func (s *Stream) readLoop() error {
	defer close(s.readDone)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.State() != StreamOpen {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return &ConnectivityError{Op: OpStreamRead, Err: err}
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			log.Warn().Err(err).Str("session_id", s.sessionID).Msg("dropping malformed stream frame")
			s.emitError(err)
			continue
		}
		if !frame.Type.Known() {
			log.Debug().Str("session_id", s.sessionID).Str("type", string(frame.Type)).Msg("unknown stream frame type")
		}
		s.emitEvent(frame)
	}
}

func (s *Stream) pingLoop(ctx context.Context) error {
	if s.pingInterval <= 0 {
		select {
		case <-ctx.Done():
		case <-s.readDone:
		}
		return nil
	}

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.readDone:
			return nil
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.writeMu.Unlock()
			if err != nil {
				if s.State() != StreamOpen {
					return nil
				}
				// Unblock the reader.
				_ = s.conn.Close()
				return &ConnectivityError{Op: OpStreamRead, Err: errors.Wrap(err, "keepalive failed")}
			}
		}
	}
}

func (s *Stream) finish(err error) {
	defer close(s.done)
	prev := StreamState(s.state.Swap(int32(StreamClosed)))
	_ = s.conn.Close()

	if prev == StreamClosing {
		err = nil
	} else if err != nil {
		log.Warn().Err(err).Str("session_id", s.sessionID).Msg("stream dropped")
		if s.handlers.OnError != nil {
			s.handlers.OnError(err)
		}
	} else {
		log.Debug().Str("session_id", s.sessionID).Msg("stream closed")
	}
	if s.handlers.OnClose != nil {
		s.handlers.OnClose(err)
	}
}

func (s *Stream) emitEvent(f Frame) {
	if s.State() == StreamOpen && s.handlers.OnEvent != nil {
		s.handlers.OnEvent(f)
	}
}

func (s *Stream) emitError(err error) {
	if s.State() == StreamOpen && s.handlers.OnError != nil {
		s.handlers.OnError(err)
	}
}

// Send writes one question to the stream. When the stream is not open it
// logs a warning and returns an error wrapping ErrStreamNotOpen; it never
// panics, so callers can fall back to SendMessage.
func (s *Stream) Send(message, team string) error {
	if !s.IsOpen() {
		ev := log.Warn().Str("state", s.State().String())
		if s != nil {
			ev = ev.Str("session_id", s.sessionID)
		}
		ev.Msg("stream not open, message not sent")
		return &TransportError{Op: OpStreamSend, Err: ErrStreamNotOpen}
	}

	payload, err := json.Marshal(outboundFrame{Message: message, Team: team})
	if err != nil {
		return &TransportError{Op: OpStreamSend, Err: errors.Wrap(err, "failed to marshal frame")}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Warn().Err(err).Str("session_id", s.sessionID).Msg("stream write failed")
		return &TransportError{Op: OpStreamSend, Err: errors.Wrap(err, "write failed")}
	}
	return nil
}

// Close shuts the stream down. Only OnClose(nil) fires afterwards. Safe
// to call more than once and from any goroutine.
func (s *Stream) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		if !s.state.CompareAndSwap(int32(StreamOpen), int32(StreamClosing)) {
			return
		}
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
}
