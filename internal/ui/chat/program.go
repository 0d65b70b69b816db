// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/regchat-tui/internal/session"
)

// =============================================================================
// PROGRAM
// =============================================================================

// Run starts ctrl, shows the chat screen until the user quits, then closes
// ctrl.
func Run(ctrl *session.Controller, opts Options) error {
	p := tea.NewProgram(New(ctrl, opts), tea.WithAltScreen(), tea.WithMouseCellMotion())

	pump := newSnapshotPump(p.Send)
	unsubscribe := ctrl.Subscribe(pump.offer)
	go pump.run()

	ctrl.Start()
	_, err := p.Run()

	unsubscribe()
	ctrl.Close()
	pump.stop()
	return err
}

// =============================================================================
// SNAPSHOT PUMP
// =============================================================================

// snapshotPump forwards controller states to the program. offer never
// blocks the controller loop: a state not yet delivered is replaced by the
// newer one.
type snapshotPump struct {
	send     func(tea.Msg)
	latest   chan session.State
	done     chan struct{}
	stopOnce sync.Once
}

func newSnapshotPump(send func(tea.Msg)) *snapshotPump {
	return &snapshotPump{
		send:   send,
		latest: make(chan session.State, 1),
		done:   make(chan struct{}),
	}
}

// offer queues s, dropping an undelivered older state. It must be called
// from a single goroutine.
func (p *snapshotPump) offer(s session.State) {
	for {
		select {
		case p.latest <- s:
			return
		default:
		}
		select {
		case <-p.latest:
		default:
		}
	}
}

// run delivers queued states until stop.
func (p *snapshotPump) run() {
	for {
		select {
		case s := <-p.latest:
			p.send(SnapshotMsg{State: s})
		case <-p.done:
			return
		}
	}
}

func (p *snapshotPump) stop() {
	p.stopOnce.Do(func() { close(p.done) })
}
