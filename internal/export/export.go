// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeranaias/regchat-tui/internal/model"
	"github.com/jeranaias/regchat-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a transcript in one format.
type Exporter interface {
	// Export renders the transcript and returns the file content.
	Export(tr *model.Transcript) ([]byte, error)

	// FileExtension returns the file extension (e.g., ".md").
	FileExtension() string

	// MimeType returns the MIME type of the rendered content.
	MimeType() string
}

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	// FormatPDF is rendered by the backend; see Save.
	FormatPDF Format = "pdf"
)

// ParseFormat parses a format name ("md", "markdown", "json", "pdf").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unknown export format %q (want pdf, md or json)", s)
}

// NewExporter returns the local exporter for format.
func NewExporter(format Format, opts *Options) (Exporter, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	case FormatPDF:
		return nil, fmt.Errorf("pdf export is rendered by the backend")
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files are saved.
	// Default: current working directory
	OutputDir string

	// Path overrides the generated file name when set.
	Path string

	// Overwrite replaces an existing file instead of picking a free
	// "name (n).ext" variant.
	Overwrite bool

	// IncludeMetadata includes the session header (id, team, dates).
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool

	// IncludeReasoning includes stored reasoning traces.
	IncludeReasoning bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		IncludeReasoning:  true,
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile renders tr with exporter and saves it. Returns the path
// written.
func ExportToFile(tr *model.Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	content, err := exporter.Export(tr)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	return Save(content, tr.SessionID, exporter.FileExtension(), opts)
}

// Save writes already rendered content (such as a backend PDF) for
// sessionID. Returns the path written.
func Save(content []byte, sessionID, ext string, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if len(content) == 0 {
		return "", fmt.Errorf("nothing to write for session %s", sessionID)
	}

	path := opts.Path
	if path == "" {
		dir := opts.OutputDir
		if dir == "" {
			dir = "."
		}
		path = filepath.Join(dir, FileName(sessionID, ext))
	}
	if !opts.Overwrite {
		path = util.UniquePath(path)
	}

	if err := util.AtomicWriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// FileName returns "session-<id><ext>" with the id made safe for any
// filesystem. ext may be given with or without its leading dot.
func FileName(sessionID, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return "session-" + sanitizeFilename(sessionID) + ext
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	maxLen := 64
	runes := []rune(s)
	if len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	// Replace problematic characters (Windows and Unix)
	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "sans-id"
	}
	return string(result)
}

// formatTimestamp renders a backend timestamp for display, falling back
// to the raw string when it cannot be parsed.
func formatTimestamp(raw string) string {
	t := model.ParseTime(raw)
	if t.IsZero() {
		return raw
	}
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp renders a backend timestamp for inline display.
func formatShortTimestamp(raw string) string {
	t := model.ParseTime(raw)
	if t.IsZero() {
		return raw
	}
	return t.Format("15:04:05")
}
