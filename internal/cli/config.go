// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Inspection and editing of the configuration file.

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/regchat-tui/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Affiche ou modifie la configuration",
		Args:        noArgs,
		Annotations: map[string]string{annotationConfigTolerant: "true"},
	}
	cmd.AddCommand(
		newConfigShowCmd(a),
		newConfigPathCmd(a),
		newConfigGetCmd(a),
		newConfigSetCmd(a),
		newConfigInitCmd(a),
	)
	return cmd
}

// filePath returns the file the config commands edit: --config, or the
// default TOML file.
func (a *app) filePath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return path, nil
}

// loadFile reads the configuration file alone, without environment or
// flag overrides, so that saving it does not persist them. A missing file
// yields the defaults.
func loadFile(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	var err error
	if isJSONPath(path) {
		err = config.LoadJSON(cfg, path)
	} else {
		err = config.LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	cfg.SetDefaults()
	return cfg, nil
}

func saveFile(cfg *config.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	var err error
	if isJSONPath(path) {
		err = config.SaveJSON(cfg, path)
	} else {
		err = config.SaveTOML(cfg, path)
	}
	if err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	return nil
}

func isJSONPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".json")
}

// =============================================================================
// SUBCOMMANDS
// =============================================================================

func newConfigShowCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Affiche la configuration effective",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if jsonOut {
				return OutputJSON(out, a.command, a.cfg)
			}
			if a.cfgErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("[!] "+a.cfgErr.Error()+" (valeurs par défaut)"))
			}
			_, err := fmt.Fprint(out, a.cfg.String())
			return err
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Affiche le chemin du fichier de configuration",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := a.filePath()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}

func newConfigGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "get KEY",
		Short:     "Affiche une valeur (ex. chat.default_team)",
		Args:      exactArgs(1),
		ValidArgs: config.GetAllKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.cfg.Get(args[0])
			if err != nil {
				return &ValidationError{Field: "key", Value: args[0], Reason: err.Error(), Example: "regchat config get backend.base_url"}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
			return err
		},
	}
}

func newConfigSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "set KEY VALUE",
		Short:     "Modifie une valeur du fichier de configuration",
		Args:      exactArgs(2),
		ValidArgs: config.GetAllKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.filePath()
			if err != nil {
				return err
			}
			cfg, err := loadFile(path)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return &ValidationError{Field: "key", Value: args[0], Reason: err.Error(), Example: "regchat config set chat.default_team acaps"}
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return &ConfigError{Path: path, Err: err}
			}
			if err := saveFile(cfg, path); err != nil {
				return err
			}
			log.Info().Str("key", args[0]).Str("path", path).Msg("configuration updated")
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", SuccessStyle.Render("[OK]"), args[0], args[1])
			return nil
		},
	}
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Crée un fichier de configuration par défaut",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := a.filePath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &CommandError{Command: "config", Action: "init", Reason: path + " already exists (use --force)"}
			}
			if err := saveFile(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("[OK]"), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
