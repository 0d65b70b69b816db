// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/regchat-tui/internal/api"
	"github.com/jeranaias/regchat-tui/internal/model"
)

const (
	eventBuffer  = 256
	probeTimeout = 10 * time.Second
)

// =============================================================================
// INTERNAL EVENTS
// =============================================================================

// streamEvent tags an event with the stream generation that produced it.
type streamEvent struct {
	gen uint64
	ev  Event
}

// streamReady hands a freshly dialed stream to the loop.
type streamReady struct {
	gen       uint64
	sessionID string
	handle    Stream
}

func (streamEvent) event() {}
func (streamReady) event() {}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller hosts the reducer. One goroutine owns the state and folds
// events in arrival order; transport callbacks, timers and user actions
// only enqueue events. Effects run off the loop and report back as events.
type Controller struct {
	transport Transport
	cfg       Config

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	closeOnce sync.Once
	loopWG    sync.WaitGroup
	asyncWG   sync.WaitGroup

	// Owned by the loop goroutine.
	state         State
	pending       []Event
	stream        Stream
	streamGen     uint64
	// closedGen is the last generation that reported close or dial failure.
	closedGen     uint64
	finalizeTimer *time.Timer
	timeoutTimer  *time.Timer

	mu       sync.RWMutex
	snapshot State
	subs     []subscriber
	nextSub  int
}

type subscriber struct {
	id int
	fn func(State)
}

// NewController creates a controller. Call Start to begin probing the
// backend and processing events.
func NewController(t Transport, cfg Config) *Controller {
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = DefaultConfig().HealthInterval
	}
	if cfg.TimeoutPolicy == "" {
		cfg.TimeoutPolicy = PolicyFallback
	}
	ctx, cancel := context.WithCancel(context.Background())
	st := NewState(cfg)
	return &Controller{
		transport: t,
		cfg:       cfg,
		events:    make(chan Event, eventBuffer),
		ctx:       ctx,
		cancel:    cancel,
		state:     st,
		snapshot:  st,
	}
}

// Start launches the event loop and the health ticker. The first health
// probe runs immediately.
func (c *Controller) Start() {
	c.startOnce.Do(func() {
		c.loopWG.Add(2)
		go c.run()
		go c.healthLoop()
	})
}

// Close stops the loop, the health ticker and every pending timer, and
// closes the stream. Events posted afterwards are dropped.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.loopWG.Wait()

		stopTimer(&c.finalizeTimer)
		stopTimer(&c.timeoutTimer)
		c.streamGen++
		if c.stream != nil {
			c.stream.Close()
			c.stream = nil
		}
		c.asyncWG.Wait()
		log.Debug().Msg("session controller closed")
	})
}

// Done is closed when the controller is closed.
func (c *Controller) Done() <-chan struct{} { return c.ctx.Done() }

// =============================================================================
// PUBLIC ACTIONS
// =============================================================================

// Dispatch enqueues an event. It reports false once the controller is
// closed.
func (c *Controller) Dispatch(ev Event) bool {
	return c.post(ev)
}

// Submit asks a question with the current team.
func (c *Controller) Submit(content string) bool {
	return c.post(Submit{Content: content, Timestamp: model.Now()})
}

// SelectTeam changes the team.
func (c *Controller) SelectTeam(team model.Team) bool {
	return c.post(SelectTeam{Team: team})
}

// NewSession starts a fresh conversation.
func (c *Controller) NewSession() bool {
	return c.post(NewSession{})
}

// LoadSession switches to a stored session.
func (c *Controller) LoadSession(id string) bool {
	return c.post(SelectSession{ID: id})
}

// DeleteSession deletes a stored session.
func (c *Controller) DeleteSession(id string) bool {
	return c.post(RequestDelete{ID: id})
}

// RefreshSessions reloads the stored session list.
func (c *Controller) RefreshSessions() bool {
	return c.post(RefreshSessions{})
}

// CheckHealth runs an out-of-band health probe.
func (c *Controller) CheckHealth() {
	c.async(func(ctx context.Context) { c.probe(ctx) })
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Subscribe registers fn to receive every published state. fn runs on the
// loop goroutine and must not block. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// =============================================================================
// EVENT LOOP
// =============================================================================

func (c *Controller) post(ev Event) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Controller) run() {
	defer c.loopWG.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.events:
			c.handle(ev)
			for len(c.pending) > 0 && c.ctx.Err() == nil {
				next := c.pending[0]
				c.pending = c.pending[1:]
				c.handle(next)
			}
		}
	}
}

func (c *Controller) handle(ev Event) {
	switch e := ev.(type) {
	case streamEvent:
		if e.gen != c.streamGen {
			log.Debug().Str("event", eventName(e.ev)).Msg("dropping event from stale stream")
			return
		}
		switch e.ev.(type) {
		case StreamClosed, StreamOpenFailed:
			c.stream = nil
			c.closedGen = e.gen
		}
		ev = e.ev
	case streamReady:
		// The stream may report close before its dial returns.
		if e.gen != c.streamGen || e.gen == c.closedGen {
			e.handle.Close()
			return
		}
		c.stream = e.handle
		ev = StreamOpened{SessionID: e.sessionID}
	}

	next, effects := Reduce(c.state, ev)
	if next.Phase != c.state.Phase {
		log.Debug().
			Str("event", eventName(ev)).
			Str("from", c.state.Phase.String()).
			Str("to", next.Phase.String()).
			Msg("turn phase changed")
	}
	c.state = next
	for _, eff := range effects {
		c.execute(eff)
	}
	c.publish()
}

func (c *Controller) publish() {
	c.mu.Lock()
	c.snapshot = c.state
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(c.state)
	}
}

// =============================================================================
// EFFECTS
// =============================================================================

func (c *Controller) execute(eff Effect) {
	switch e := eff.(type) {
	case SendStream:
		h := c.stream
		if h == nil {
			c.pending = append(c.pending, StreamSendFailed{Turn: e.Turn, Err: api.ErrStreamNotOpen})
			return
		}
		c.async(func(ctx context.Context) {
			if err := h.Send(e.Content, e.Team.String()); err != nil {
				c.post(StreamSendFailed{Turn: e.Turn, Err: err})
			}
		})

	case SendRequest:
		c.async(func(ctx context.Context) {
			reply, err := c.transport.SendMessage(ctx, api.ChatRequest{
				Message:   e.Content,
				Team:      e.Team.String(),
				SessionID: e.SessionID,
			})
			if err != nil {
				log.Warn().Err(err).Str("session_id", e.SessionID).Msg("request/response turn failed")
				c.post(FallbackFailed{Turn: e.Turn, Err: err})
				return
			}
			c.post(FallbackSucceeded{Turn: e.Turn, Reply: *reply})
		})

	case ScheduleFinalize:
		stopTimer(&c.finalizeTimer)
		c.finalizeTimer = time.AfterFunc(e.After, func() { c.post(FinalizeDue{Token: e.Token}) })
	case CancelFinalize:
		stopTimer(&c.finalizeTimer)
	case ScheduleTimeout:
		stopTimer(&c.timeoutTimer)
		c.timeoutTimer = time.AfterFunc(e.After, func() { c.post(TurnTimeout{Token: e.Token}) })
	case CancelTimeout:
		stopTimer(&c.timeoutTimer)

	case OpenStream:
		c.openStream(e.SessionID)
	case CloseStream:
		c.closeStream()

	case CreateSession:
		c.async(func(ctx context.Context) {
			id, err := c.transport.CreateSession(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("session creation failed")
				c.post(SessionCreateFailed{Err: err})
				return
			}
			log.Info().Str("session_id", id).Msg("session created")
			c.post(SessionCreated{SessionID: id})
		})
	case LoadSession:
		c.async(func(ctx context.Context) {
			detail, err := c.transport.GetSession(ctx, e.ID)
			if err != nil {
				log.Warn().Err(err).Str("session_id", e.ID).Msg("session load failed")
				c.post(SessionLoadFailed{ID: e.ID, Err: err})
				return
			}
			c.post(SessionLoaded{Detail: *detail})
		})
	case DeleteSession:
		c.async(func(ctx context.Context) {
			if err := c.transport.DeleteSession(ctx, e.ID); err != nil {
				log.Warn().Err(err).Str("session_id", e.ID).Msg("session delete failed")
				c.post(SessionDeleteFailed{ID: e.ID, Err: err})
				return
			}
			c.post(SessionDeleted{ID: e.ID})
		})
	case ListSessions:
		c.async(func(ctx context.Context) {
			sessions, err := c.transport.ListSessions(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("session list failed")
				c.post(SessionsListFailed{Err: err})
				return
			}
			c.post(SessionsListed{Sessions: sessions})
		})

	default:
		log.Warn().Str("effect", fmt.Sprintf("%T", eff)).Msg("unhandled effect")
	}
}

func (c *Controller) openStream(sessionID string) {
	c.closeStream()
	gen := c.streamGen

	handlers := api.Handlers{
		OnEvent: func(f api.Frame) {
			if f.Timestamp == "" {
				f.Timestamp = model.Now()
			}
			ev := FrameEvent(f)
			if ev == nil {
				log.Debug().Str("type", string(f.Type)).Msg("ignoring stream frame")
				return
			}
			c.post(streamEvent{gen: gen, ev: ev})
		},
		OnError: func(err error) {
			if api.IsParse(err) {
				// The stream keeps reading after a malformed frame.
				return
			}
			c.post(streamEvent{gen: gen, ev: StreamError{Err: err}})
		},
		OnClose: func(err error) {
			c.post(streamEvent{gen: gen, ev: StreamClosed{Err: err}})
		},
	}

	c.async(func(ctx context.Context) {
		h, err := c.transport.OpenStream(ctx, sessionID, handlers)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("stream unavailable, using request/response")
			c.post(streamEvent{gen: gen, ev: StreamOpenFailed{SessionID: sessionID, Err: err}})
			return
		}
		if !c.post(streamReady{gen: gen, sessionID: sessionID, handle: h}) {
			h.Close()
		}
	})
}

func (c *Controller) closeStream() {
	c.streamGen++
	if c.stream != nil {
		c.stream.Close()
		c.stream = nil
	}
}

func (c *Controller) async(fn func(ctx context.Context)) {
	if c.ctx.Err() != nil {
		return
	}
	c.asyncWG.Add(1)
	go func() {
		defer c.asyncWG.Done()
		fn(c.ctx)
	}()
}

// =============================================================================
// HEALTH
// =============================================================================

func (c *Controller) healthLoop() {
	defer c.loopWG.Done()
	c.probe(c.ctx)

	ticker := time.NewTicker(c.cfg.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.probe(c.ctx)
		}
	}
}

func (c *Controller) probe(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, probeTimeout)
	defer cancel()

	h, err := c.transport.CheckHealth(ctx)
	if parent.Err() != nil {
		return
	}
	ev := HealthChecked{Err: err}
	if err != nil {
		log.Debug().Err(err).Msg("health check failed")
	} else if h != nil {
		ev.SessionsCount = h.SessionsCount
	}
	c.post(ev)
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func eventName(ev Event) string {
	return fmt.Sprintf("%T", ev)
}
