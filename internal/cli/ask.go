// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One question, one answer, over request/response.

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/regchat-tui/internal/api"
	"github.com/jeranaias/regchat-tui/internal/model"
)

// maxStdinQuestion caps a question read from a pipe.
const maxStdinQuestion = 64 * 1024

type askOptions struct {
	json      bool
	reasoning bool
	sessionID string
}

func newAskCmd(a *app) *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Pose une question et affiche la réponse",
		Long: "Envoie une question au backend et affiche la réponse.\n" +
			"Sans argument, la question est lue sur l'entrée standard.",
		Example: `  regchat ask "Quelles sont les obligations de reporting ACAPS ?"
  regchat --team ammc ask --reasoning "Seuils de déclaration des franchissements"
  echo "question" | regchat ask --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" && !IsTTY() {
				q, err := readQuestion(cmd.InOrStdin())
				if err != nil {
					return err
				}
				question = q
			}
			if question == "" {
				return &ValidationError{Field: "question", Reason: "empty question", Example: `regchat ask "votre question"`}
			}
			return a.runAsk(cmd, question, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "output JSON")
	cmd.Flags().BoolVar(&opts.reasoning, "reasoning", false, "print the reasoning before the answer")
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "continue this session")
	return cmd
}

// readQuestion reads the whole of r as one question.
func readQuestion(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 4096), maxStdinQuestion)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed to read question: %w", err)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func (a *app) runAsk(cmd *cobra.Command, question string, opts askOptions) error {
	team, err := model.ParseTeam(a.cfg.Chat.DefaultTeam)
	if err != nil {
		return &ConfigError{Err: err}
	}

	client := a.newClient()
	log.Debug().Str("team", team.String()).Str("session_id", opts.sessionID).Msg("asking")

	resp, err := client.SendMessage(cmd.Context(), api.ChatRequest{
		Message:   question,
		Team:      team.String(),
		SessionID: opts.sessionID,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.json {
		return OutputJSON(out, a.command, resp)
	}

	if opts.reasoning {
		writeReasoning(out, resp.Reasoning)
		fmt.Fprintln(out)
	}
	md := newAnswerRenderer(a.cfg.UI.RenderMarkdown, a.cfg.UI.WordWrap)
	fmt.Fprint(out, md.Render(resp.Response))

	footer := "session " + resp.SessionID
	if resp.TeamUsed != "" {
		footer += " | " + model.TeamLabel(resp.TeamUsed)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render(footer))
	return nil
}
