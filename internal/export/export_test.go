// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/regchat-tui/internal/model"
)

func sampleTranscript() *model.Transcript {
	detail := model.SessionDetail{
		SessionID: "3f2a9c1e-1111-2222-3333-444455556666",
		SessionData: model.SessionData{
			CreatedAt: "2025-01-10T09:00:00",
			TeamUsed:  "acaps",
			Messages: []model.Exchange{
				{
					UserMessage: "Quels sont les seuils ACAPS ?",
					BotResponse: "Les seuils sont fixés par **circulaire**.",
					Reasoning:   "Étape 1\nÉtape 2",
					Timestamp:   "2025-01-10T09:01:02",
				},
				{
					UserMessage: "Et pour l'AMMC ?",
					BotResponse: "L'AMMC publie ses propres seuils.",
					Timestamp:   "2025-01-10T09:03:04",
				},
			},
		},
	}
	tr := model.NewTranscript(detail)
	return &tr
}

func fixedExporter(opts *Options) *MarkdownExporter {
	e := NewMarkdownExporter(opts)
	e.now = func() time.Time { return time.Date(2025, 2, 3, 14, 5, 0, 0, time.UTC) }
	return e
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"md": FormatMarkdown, "Markdown": FormatMarkdown, "json": FormatJSON, " PDF ": FormatPDF} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("html")
	assert.Error(t, err)
}

func TestNewExporter(t *testing.T) {
	e, err := NewExporter(FormatMarkdown, nil)
	require.NoError(t, err)
	assert.Equal(t, ".md", e.FileExtension())

	e, err = NewExporter(FormatJSON, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", e.MimeType())

	_, err = NewExporter(FormatPDF, nil)
	assert.Error(t, err)
}

func TestMarkdownExport(t *testing.T) {
	out, err := fixedExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\nsession: 3f2a9c1e-1111-2222-3333-444455556666\n"))
	assert.Contains(t, md, "team: acaps\n")
	assert.Contains(t, md, "generator: regchat\n")
	assert.Contains(t, md, "- **Équipe** : ACAPS")
	assert.Contains(t, md, "### Vous <sub>09:01:02</sub>")
	assert.Contains(t, md, "### Assistant <sub>09:01:02</sub>")
	assert.Contains(t, md, "Les seuils sont fixés par **circulaire**.")
	assert.Contains(t, md, "<summary>Raisonnement</summary>")
	assert.Contains(t, md, "> Étape 2")
	assert.Contains(t, md, "*Exporté depuis regchat le 03/02/2025 à 14:05*")

	// Questions come before their answers.
	assert.Less(t, strings.Index(md, "Quels sont les seuils"), strings.Index(md, "Les seuils sont fixés"))
	assert.Less(t, strings.Index(md, "Les seuils sont fixés"), strings.Index(md, "Et pour l'AMMC"))
}

func TestMarkdownExport_Options(t *testing.T) {
	opts := &Options{}
	out, err := fixedExporter(opts).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.False(t, strings.HasPrefix(md, "---"))
	assert.NotContains(t, md, "Raisonnement")
	assert.NotContains(t, md, "<sub>")
	assert.Contains(t, md, "### Vous\n")
}

func TestMarkdownExport_Empty(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(&model.Transcript{SessionID: "x"})
	assert.Error(t, err)

	_, err = NewMarkdownExporter(nil).Export(nil)
	assert.Error(t, err)
}

func TestJSONExport(t *testing.T) {
	tr := sampleTranscript()
	tr.Messages = append(tr.Messages, model.NewReasoningPlaceholder("live", "t"))

	out, err := NewJSONExporter(&Options{IncludeMetadata: true, IncludeTimestamps: true}).Export(tr)
	require.NoError(t, err)

	var decoded model.Transcript
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, tr.SessionID, decoded.SessionID)
	assert.Equal(t, "acaps", decoded.Team)
	require.Len(t, decoded.Messages, 4)
	assert.Empty(t, decoded.Messages[1].Reasoning)
	assert.Equal(t, "2025-01-10T09:01:02", decoded.Messages[1].Timestamp)

	// The source transcript is left alone.
	assert.Equal(t, "Étape 1\nÉtape 2", tr.Messages[1].Reasoning)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "session-abc.pdf", FileName("abc", "pdf"))
	assert.Equal(t, "session-abc.md", FileName("abc", ".md"))
	assert.Equal(t, "session-a-b-c.json", FileName("a/b:c", ".json"))
	assert.Equal(t, "session-sans-id.md", FileName("", ".md"))
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir
	tr := sampleTranscript()

	path, err := ExportToFile(tr, NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "session-"+tr.SessionID+".md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Quels sont les seuils ACAPS ?")

	second, err := ExportToFile(tr, NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "session-"+tr.SessionID+" (1).md"), second)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	pdf := []byte("%PDF-1.4")

	path, err := Save(pdf, "s1", ".pdf", &Options{OutputDir: dir})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pdf, data)

	explicit := filepath.Join(dir, "out", "rapport.pdf")
	path, err = Save(pdf, "s1", ".pdf", &Options{Path: explicit, Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, explicit, path)

	_, err = Save(nil, "s1", ".pdf", &Options{OutputDir: dir})
	assert.Error(t, err)
}
