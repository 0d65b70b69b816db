// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsServer is a scripted backend: every client frame is handed to onFrame,
// which answers through the connection it receives.
type wsServer struct {
	t        *testing.T
	upgrader websocket.Upgrader
	onFrame  func(conn *websocket.Conn, in outboundFrame)

	mu    sync.Mutex
	paths []string
	conns []*websocket.Conn
}

func (s *wsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.paths = append(s.paths, r.URL.Path)
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	for {
		var in outboundFrame
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		if s.onFrame != nil {
			s.onFrame(conn, in)
		}
	}
}

func (s *wsServer) lastConn() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		return nil
	}
	return s.conns[len(s.conns)-1]
}

func newWSServer(t *testing.T, onFrame func(*websocket.Conn, outboundFrame)) (*Client, *wsServer) {
	t.Helper()
	ws := &wsServer{t: t, onFrame: onFrame}
	srv := httptest.NewServer(ws)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL).WithPingInterval(0), ws
}

// recorder collects handler callbacks.
type recorder struct {
	mu     sync.Mutex
	opened int
	frames []Frame
	errs   []error
	closed chan error
}

func newRecorder() *recorder {
	return &recorder{closed: make(chan error, 4)}
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnOpen: func() {
			r.mu.Lock()
			r.opened++
			r.mu.Unlock()
		},
		OnEvent: func(f Frame) {
			r.mu.Lock()
			r.frames = append(r.frames, f)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
		OnClose: func(err error) { r.closed <- err },
	}
}

func (r *recorder) frameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *recorder) snapshot() ([]Frame, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...), append([]error(nil), r.errs...)
}

func TestDecodeFrame(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"reasoning_step","step":"Lecture","step_number":2,"total_steps":4,"timestamp":"t"}`))
	require.NoError(t, err)
	assert.Equal(t, FrameReasoningStep, f.Type)
	assert.Equal(t, 2, f.StepNumber)
	assert.Equal(t, 4, f.TotalSteps)
	assert.True(t, f.Type.Known())

	_, err = DecodeFrame([]byte(`not json`))
	assert.True(t, IsParse(err))

	_, err = DecodeFrame([]byte(`{"message":"no type"}`))
	assert.True(t, IsParse(err))

	f, err = DecodeFrame([]byte(`{"type":"heartbeat"}`))
	require.NoError(t, err)
	assert.False(t, f.Type.Known())
}

func TestStream_RoundTrip(t *testing.T) {
	c, ws := newWSServer(t, func(conn *websocket.Conn, in outboundFrame) {
		_ = conn.WriteJSON(Frame{Type: FrameReasoningStart, Message: "Début", Timestamp: "t0"})
		_ = conn.WriteJSON(Frame{Type: FrameReasoningStep, Step: "Étape 1", StepNumber: 1, TotalSteps: 2, Timestamp: "t1"})
		_ = conn.WriteJSON(Frame{Type: FrameResponse, Response: "Réponse à " + in.Message, TeamUsed: in.Team, Timestamp: "t2"})
	})
	rec := newRecorder()

	s, err := c.OpenStream(context.Background(), "sess-1", rec.handlers())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, StreamOpen, s.State())
	assert.Equal(t, "sess-1", s.SessionID())
	assert.Same(t, s, c.Stream())

	require.NoError(t, s.Send("Quels sont les seuils ACAPS ?", "acaps"))
	require.Eventually(t, func() bool { return rec.frameCount() == 3 }, 2*time.Second, 10*time.Millisecond)

	frames, errs := rec.snapshot()
	assert.Empty(t, errs)
	assert.Equal(t, FrameReasoningStart, frames[0].Type)
	assert.Equal(t, FrameReasoningStep, frames[1].Type)
	assert.Equal(t, FrameResponse, frames[2].Type)
	assert.Equal(t, "Réponse à Quels sont les seuils ACAPS ?", frames[2].Response)
	assert.Equal(t, "acaps", frames[2].TeamUsed)
	assert.Equal(t, 1, rec.opened)

	ws.mu.Lock()
	assert.Equal(t, []string{"/ws/sess-1"}, ws.paths)
	ws.mu.Unlock()
}

func TestStream_MalformedFrameKeepsReading(t *testing.T) {
	c, _ := newWSServer(t, func(conn *websocket.Conn, in outboundFrame) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`))
		_ = conn.WriteJSON(Frame{Type: FrameTerminalLog, Content: "INFO ok"})
	})
	rec := newRecorder()

	s, err := c.OpenStream(context.Background(), "sess-1", rec.handlers())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send("hi", "global"))
	require.Eventually(t, func() bool { return rec.frameCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	frames, errs := rec.snapshot()
	require.Len(t, errs, 1)
	assert.True(t, IsParse(errs[0]))
	assert.Equal(t, "INFO ok", frames[0].Content)
	assert.True(t, s.IsOpen())
}

func TestStream_SendWhenClosed(t *testing.T) {
	c, _ := newWSServer(t, nil)

	s, err := c.OpenStream(context.Background(), "sess-1", Handlers{})
	require.NoError(t, err)
	s.Close()

	err = s.Send("hi", "global")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStreamNotOpen)
	assert.True(t, IsTransport(err))

	var nilStream *Stream
	assert.ErrorIs(t, nilStream.Send("hi", "global"), ErrStreamNotOpen)
}

func TestStream_OpenClosesPrevious(t *testing.T) {
	c, _ := newWSServer(t, nil)
	first := newRecorder()

	s1, err := c.OpenStream(context.Background(), "sess-1", first.handlers())
	require.NoError(t, err)
	s2, err := c.OpenStream(context.Background(), "sess-2", Handlers{})
	require.NoError(t, err)
	defer s2.Close()

	select {
	case <-s1.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("first stream still running")
	}
	assert.Equal(t, StreamClosed, s1.State())
	assert.Equal(t, StreamOpen, s2.State())
	assert.Same(t, s2, c.Stream())

	// Owner-initiated close reports a clean close, once.
	select {
	case err := <-first.closed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose not called")
	}
	s1.Close()
	assert.Never(t, func() bool { return len(first.closed) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	_, errs := first.snapshot()
	assert.Empty(t, errs)
}

func TestStream_ServerDropReportsClose(t *testing.T) {
	c, ws := newWSServer(t, nil)
	rec := newRecorder()

	s, err := c.OpenStream(context.Background(), "sess-1", rec.handlers())
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return ws.lastConn() != nil }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, ws.lastConn().Close())

	select {
	case err := <-rec.closed:
		require.Error(t, err)
		assert.True(t, IsConnectivity(err))
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose not called")
	}
	_, errs := rec.snapshot()
	require.Len(t, errs, 1)
	assert.Equal(t, StreamClosed, s.State())
}

func TestStream_ServerCleanClose(t *testing.T) {
	c, ws := newWSServer(t, nil)
	rec := newRecorder()

	s, err := c.OpenStream(context.Background(), "sess-1", rec.handlers())
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return ws.lastConn() != nil }, 2*time.Second, 10*time.Millisecond)
	conn := ws.lastConn()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))

	select {
	case err := <-rec.closed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose not called")
	}
}

func TestOpenStream_Errors(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").OpenStream(context.Background(), "", Handlers{})
	assert.True(t, IsTransport(err))

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err = NewClient(srv.URL).OpenStream(context.Background(), "sess-1", Handlers{})
	assert.True(t, IsConnectivity(err))
}

func TestCloseStream_Idempotent(t *testing.T) {
	c, _ := newWSServer(t, nil)
	s, err := c.OpenStream(context.Background(), "sess-1", Handlers{})
	require.NoError(t, err)

	c.CloseStream()
	c.CloseStream()
	s.Close()
	assert.Nil(t, c.Stream())
	assert.Equal(t, StreamClosed, func() StreamState {
		<-s.Done()
		return s.State()
	}())
}
