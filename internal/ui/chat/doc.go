// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat view for regchat.

The Model is a Bubble Tea model that renders session state but never owns
it. A session.Controller folds every event; Run subscribes to it and
forwards each published state into the program as a SnapshotMsg. User
actions go the other way, as calls on the controller.

# Key Components

## Model (model.go, update.go)

  - viewport with the transcript, textinput prompt, spinner for turns in flight
  - history overlay listing stored sessions (load, delete, PDF export)
  - terminal log pane fed by terminal_log frames

## View Rendering (view.go, render.go)

  - header: application title, team, session id
  - messages: user bubbles, assistant answers as Markdown through glamour,
    the live reasoning placeholder with its step counter
  - status bar: connection, WebSocket, step n/total, last notice

Assistant text is stripped of HTML with bluemonday before Markdown
rendering.

# Key Bindings (keys.go)

	Enter    submit             Tab      cycle team
	Ctrl+H   session history    Ctrl+N   new session
	Ctrl+Y   copy last answer   Ctrl+L   terminal log
	Ctrl+R   expand reasoning   PgUp/Dn  scroll
	Ctrl+C   quit

Inside the history overlay: up/down select, Enter load, d delete,
e export PDF, Esc close.
*/
package chat
