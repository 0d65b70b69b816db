// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// health.go - Backend health and team discovery.

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeranaias/regchat-tui/internal/model"
	"github.com/jeranaias/regchat-tui/internal/util"
)

func newHealthCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Vérifie l'état du backend",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := a.newClient()
			h, err := client.CheckHealth(cmd.Context())
			if h == nil {
				return err
			}
			// An unhealthy status still carries the report.
			var unhealthy error
			if err != nil {
				unhealthy = &CommandError{Command: "health", Action: "check", Reason: "backend reports status " + strconv.Quote(h.Status), Err: err}
			}
			if jsonOut {
				if unhealthy != nil {
					return unhealthy
				}
				return OutputJSON(cmd.OutOrStdout(), a.command, h)
			}

			out := cmd.OutOrStdout()
			status := "ok"
			if unhealthy != nil {
				status = "error"
			}
			fmt.Fprintln(out, TitleStyle.Render("regchat health"))
			fmt.Fprintln(out, RenderSeparatorAdaptive())
			fmt.Fprintf(out, "%s%s %s\n", RenderLabel("Backend"), RenderStatus(status), ValueStyle.Render(client.BaseURL()))
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Statut"), ValueStyle.Render(h.Status))
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Sessions"), ValueStyle.Render(strconv.Itoa(h.SessionsCount)))
			if h.Timestamp != "" {
				fmt.Fprintf(out, "%s%s\n", RenderLabel("Horodatage"), ValueStyle.Render(h.Timestamp))
			}
			return unhealthy
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newTeamsCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Liste les équipes et agents du backend",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			teams, err := a.newClient().ListTeams(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return OutputJSON(out, a.command, teams)
			}

			fmt.Fprintln(out, TitleStyle.Render("Équipes"))
			for _, raw := range teams.Teams {
				line := "  " + util.PadWidth(raw, 10)
				if t, err := model.ParseTeam(raw); err == nil {
					line += DimStyle.Render(t.Label() + " - " + t.Description())
				}
				fmt.Fprintln(out, line)
			}
			if len(teams.Agents) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, TitleStyle.Render("Agents"))
				for _, agent := range teams.Agents {
					fmt.Fprintln(out, "  "+agent)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}
