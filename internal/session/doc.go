// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the conversation shown to the user.
//
// The heart of the package is Reduce, a pure function that folds one Event
// (a user action, a stream frame, a timer, a transport result) into a State
// and returns the Effects the host must run. The Controller is that host:
// it runs a single goroutine that drains an event channel, executes
// effects off the loop and publishes each new State to subscribers.
//
// # Turn lifecycle
//
// A question goes over the WebSocket stream when one is open
// (PhaseAwaitingReasoning) and over POST /chat otherwise
// (PhaseAwaitingResponseOnly). Streamed turns show a single reasoning
// placeholder that each step replaces wholesale. The final answer is held
// for a grace interval (PhaseFinalizing) before it replaces the
// placeholder.
//
// # Usage
//
//	ctrl := session.NewController(session.NewClientTransport(client), session.DefaultConfig())
//	unsubscribe := ctrl.Subscribe(func(s session.State) { p.Send(SnapshotMsg{s}) })
//	ctrl.Start()
//	defer ctrl.Close()
//
//	ctrl.Submit("Quels sont les seuils ACAPS ?")
package session
