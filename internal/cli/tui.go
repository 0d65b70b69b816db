// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/regchat-tui/internal/session"
	"github.com/jeranaias/regchat-tui/internal/ui/chat"
	"github.com/jeranaias/regchat-tui/internal/ui/styles"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "tui",
		Short:       "Ouvre l'interface plein écran (par défaut)",
		Args:        noArgs,
		Annotations: map[string]string{annotationInteractive: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTUI(cmd)
		},
	}
}

// runTUI starts a session controller and hands the terminal to the chat
// screen until the user quits.
func (a *app) runTUI(cmd *cobra.Command) error {
	if err := RequiresTTY("open the full-screen interface"); err != nil {
		return err
	}

	scfg, err := a.sessionConfig()
	if err != nil {
		return err
	}
	client := a.newClient()
	ctrl := session.NewController(session.NewClientTransport(client), scfg)

	log.Info().
		Str("base_url", client.BaseURL()).
		Str("ws_url", client.WebSocketURL()).
		Str("team", scfg.Team.String()).
		Msg("opening chat screen")

	return chat.Run(ctrl, chat.Options{
		Theme:          styles.NewTheme(styles.ParseThemeMode(a.cfg.UI.Theme)),
		RenderMarkdown: a.cfg.UI.RenderMarkdown,
		ShowReasoning:  a.cfg.UI.ShowReasoning,
		WordWrap:       a.cfg.UI.WordWrap,
		PDF:            client,
		Export:         a.exportOptions(),
	})
}
