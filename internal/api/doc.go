// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the client for the regulatory assistant backend.
//
// It covers the request/response endpoints (chat, sessions, health, teams,
// PDF export) and the per-session WebSocket push channel that streams
// reasoning steps ahead of the final answer.
//
// Errors are typed: *TransportError for failed calls, *ParseError for
// malformed payloads and *ConnectivityError for an unreachable backend.
//
// Basic usage:
//
//	client := api.NewClient("http://localhost:8000")
//	reply, err := client.SendMessage(ctx, api.ChatRequest{
//	    Message: "Quels sont les seuils ACAPS ?",
//	    Team:    "acaps",
//	})
package api
