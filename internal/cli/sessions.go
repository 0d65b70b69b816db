// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Stored session management.

package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/regchat-tui/internal/export"
	"github.com/jeranaias/regchat-tui/internal/model"
	"github.com/jeranaias/regchat-tui/internal/util"
)

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Gère les sessions enregistrées",
		Args:    noArgs,
	}
	cmd.AddCommand(
		newSessionsListCmd(a),
		newSessionsShowCmd(a),
		newSessionsDeleteCmd(a),
		newSessionsExportCmd(a),
	)
	return cmd
}

// =============================================================================
// LIST
// =============================================================================

func newSessionsListCmd(a *app) *cobra.Command {
	var (
		jsonOut bool
		limit   int
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Liste les sessions, les plus récentes d'abord",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return NewValidationError("--limit", fmt.Sprint(limit), "must not be negative")
			}
			sessions, err := a.newClient().ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			model.SortByActivity(sessions)
			if limit > 0 && len(sessions) > limit {
				sessions = sessions[:limit]
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return OutputJSON(out, a.command, sessions)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, DimStyle.Render("Aucune session enregistrée."))
				return nil
			}
			writeSessionTable(out, sessions, "")
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most this many sessions (0 = all)")
	return cmd
}

// =============================================================================
// SHOW
// =============================================================================

func newSessionsShowCmd(a *app) *cobra.Command {
	var (
		jsonOut   bool
		reasoning bool
	)
	cmd := &cobra.Command{
		Use:   "show SESSION_ID",
		Short: "Affiche la transcription d'une session",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := a.newClient().GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tr := model.NewTranscript(*detail)

			out := cmd.OutOrStdout()
			if jsonOut {
				return OutputJSON(out, a.command, tr)
			}
			fmt.Fprintf(out, "%s %s\n", TitleStyle.Render("Session"), tr.SessionID)
			if tr.Team != "" {
				fmt.Fprintf(out, "%s%s\n", RenderLabel("Équipe"), model.TeamLabel(tr.Team))
			}
			if t := model.ParseTime(tr.CreatedAt); !t.IsZero() {
				fmt.Fprintf(out, "%s%s\n", RenderLabel("Créée le"), t.Local().Format("02/01/2006 15:04"))
			}
			fmt.Fprintln(out, RenderSeparatorAdaptive())
			if len(tr.Messages) == 0 {
				fmt.Fprintln(out, DimStyle.Render("Session vide."))
				return nil
			}
			md := newAnswerRenderer(a.cfg.UI.RenderMarkdown, a.cfg.UI.WordWrap)
			writeTranscript(out, tr.Messages, md, reasoning)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	cmd.Flags().BoolVar(&reasoning, "reasoning", false, "include stored reasoning")
	return cmd
}

// =============================================================================
// DELETE
// =============================================================================

func newSessionsDeleteCmd(a *app) *cobra.Command {
	var (
		jsonOut bool
		yes     bool
	)
	cmd := &cobra.Command{
		Use:     "delete SESSION_ID",
		Aliases: []string{"rm"},
		Short:   "Supprime une session",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			confirmed, err := RequireConfirmation("supprimer la session "+util.ShortID(id, 8),
				[][2]string{{"Session", id}},
				ConfirmationOptions{Yes: yes, JSONMode: jsonOut})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !confirmed {
				ShowCancellationMessage(out)
				return nil
			}

			if err := a.newClient().DeleteSession(cmd.Context(), id); err != nil {
				return err
			}
			log.Info().Str("session_id", id).Msg("session deleted")

			if jsonOut {
				return OutputJSON(out, a.command, map[string]string{"session_id": id})
			}
			fmt.Fprintf(out, "%s Session %s supprimée\n", SuccessStyle.Render("[OK]"), id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// =============================================================================
// EXPORT
// =============================================================================

// exportResult is the --json payload of 'sessions export'.
type exportResult struct {
	SessionID string `json:"session_id"`
	Format    string `json:"format"`
	Path      string `json:"path"`
}

func newSessionsExportCmd(a *app) *cobra.Command {
	var (
		jsonOut   bool
		format    string
		outPath   string
		dir       string
		overwrite bool
		noReason  bool
	)
	cmd := &cobra.Command{
		Use:   "export SESSION_ID",
		Short: "Exporte une session en PDF, Markdown ou JSON",
		Long: "Exporte une session. Le PDF est produit par le backend; Markdown\n" +
			"et JSON sont produits localement à partir de la transcription.",
		Example: `  regchat sessions export 3f2a... --format pdf
  regchat sessions export 3f2a... --format md --out rapport.md`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return NewValidationError("--format", format, err.Error())
			}

			opts := a.exportOptions()
			if dir != "" {
				opts.OutputDir = dir
			}
			opts.Path = outPath
			opts.Overwrite = overwrite
			opts.IncludeReasoning = !noReason

			path, err := a.exportSession(cmd, args[0], f, opts)
			if err != nil {
				return err
			}
			log.Info().Str("session_id", args[0]).Str("format", string(f)).Str("path", path).Msg("session exported")

			out := cmd.OutOrStdout()
			if jsonOut {
				return OutputJSON(out, a.command, exportResult{SessionID: args[0], Format: string(f), Path: path})
			}
			fmt.Fprintf(out, "%s %s\n", SuccessStyle.Render("[OK]"), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	cmd.Flags().StringVarP(&format, "format", "f", "pdf", "export format: pdf, md or json")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default session-<id>.<ext> in the export directory)")
	cmd.Flags().StringVar(&dir, "dir", "", "export directory (overrides export.dir)")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing file")
	cmd.Flags().BoolVar(&noReason, "no-reasoning", false, "leave stored reasoning out of md and json exports")
	return cmd
}

// exportSession writes session id in format f and returns the path.
func (a *app) exportSession(cmd *cobra.Command, id string, f export.Format, opts *export.Options) (string, error) {
	client := a.newClient()
	if f == export.FormatPDF {
		data, err := client.ExportPDF(cmd.Context(), id)
		if err != nil {
			return "", err
		}
		return export.Save(data, id, "pdf", opts)
	}

	detail, err := client.GetSession(cmd.Context(), id)
	if err != nil {
		return "", err
	}
	exporter, err := export.NewExporter(f, opts)
	if err != nil {
		return "", err
	}
	tr := model.NewTranscript(*detail)
	return export.ExportToFile(&tr, exporter, opts)
}
