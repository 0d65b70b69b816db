// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes session transcripts to disk.
//
// # Supported Formats
//
//   - Markdown: human-readable, reasoning in collapsible blocks
//   - JSON: machine-readable transcript
//   - PDF: rendered by the backend, saved as-is through Save
//
// # Usage
//
//	tr := model.NewTranscript(*detail)
//	path, err := export.ExportToFile(&tr, export.NewMarkdownExporter(nil), nil)
//
// Files are named session-<id>.<ext> and written atomically; an existing
// file is never overwritten unless Options.Overwrite is set.
package export
