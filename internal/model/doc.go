// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// These are the domain types shared by the transport client, the session
// reducer and the terminal UI. They carry no behaviour beyond construction,
// labelling and transcript rebuilding.
//
// # Key Types
//
//   - Message: one displayed turn, possibly a live reasoning placeholder
//   - Role: message sender (user, assistant)
//   - Team: backend routing target (global, acaps, ammc)
//   - SessionInfo: summary row for the history list
//   - SessionDetail: stored transcript of one session
//
// # Usage
//
// Rebuild the message list of a stored session:
//
//	detail, err := client.GetSession(ctx, id)
//	if err != nil {
//	    return err
//	}
//	msgs := detail.Transcript()
package model
