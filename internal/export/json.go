// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"

	"github.com/jeranaias/regchat-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports transcripts to JSON format.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a transcript to indented JSON. Live placeholders are
// dropped; reasoning and timestamps follow the options.
func (e *JSONExporter) Export(tr *model.Transcript) ([]byte, error) {
	if tr == nil {
		return nil, fmt.Errorf("transcript is nil")
	}

	out := *tr
	out.Messages = tr.Finalized()
	for i := range out.Messages {
		if !e.options.IncludeReasoning {
			out.Messages[i].Reasoning = ""
		}
		if !e.options.IncludeTimestamps {
			out.Messages[i].Timestamp = ""
		}
	}
	if !e.options.IncludeMetadata {
		out.Team = ""
		out.CreatedAt = ""
	}

	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
