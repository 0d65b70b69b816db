// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the regchat packages.
//
// # Key Functions
//
// Text:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation for terminal cells
//   - PadWidth: right-pad a string to a display width
//   - ShortID: compact form of a session identifier
//
// Files:
//   - AtomicWriteFile: crash-safe writes for exports and config
//
// # Usage
//
//	cell := util.TruncateWidth(session.TeamUsed, 12)
//	err := util.AtomicWriteFile("session-abc.pdf", pdf, 0644)
package util
