// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// root.go - The regchat root command and the state shared by subcommands.

package cli

import (
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/regchat-tui/internal/api"
	"github.com/jeranaias/regchat-tui/internal/config"
	"github.com/jeranaias/regchat-tui/internal/export"
	"github.com/jeranaias/regchat-tui/internal/logging"
	"github.com/jeranaias/regchat-tui/internal/model"
	"github.com/jeranaias/regchat-tui/internal/session"
)

// Version information, set from main.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command annotations read by the root PersistentPreRunE.
const (
	// annotationInteractive marks commands that own the terminal; their
	// logs go to the log file.
	annotationInteractive = "regchat/interactive"
	// annotationConfigTolerant marks commands that must run even when the
	// configuration file is broken.
	annotationConfigTolerant = "regchat/config-tolerant"
)

// =============================================================================
// APP STATE
// =============================================================================

// app carries the global flags and the loaded configuration.
type app struct {
	configPath string
	baseURL    string
	team       string
	logLevel   string
	logFile    string

	cfg       *config.Config
	cfgErr    error
	logCloser io.Closer

	command string
}

// init loads the configuration, applies the flag overrides and installs the
// logger for cmd.
func (a *app) init(cmd *cobra.Command) error {
	a.command = cmd.CommandPath()
	configureColors()

	tolerant := hasAnnotation(cmd, annotationConfigTolerant)
	cfg, err := a.loadConfig()
	if err != nil {
		if !tolerant {
			return err
		}
		a.cfgErr = err
		cfg = config.Default()
	}

	if a.baseURL != "" {
		cfg.Backend.BaseURL = a.baseURL
	}
	if a.team != "" {
		team, err := model.ParseTeam(a.team)
		if err != nil {
			return &ValidationError{Field: "--team", Value: a.team, Reason: "unknown team", Example: "--team acaps"}
		}
		cfg.Chat.DefaultTeam = team.String()
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFile != "" {
		cfg.Logging.File = a.logFile
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Path: a.configPath, Err: err}
	}
	a.cfg = cfg
	config.SetGlobal(cfg)

	opts := logging.Options{Level: cfg.Logging.Level, Console: cmd.ErrOrStderr()}
	if hasAnnotation(cmd, annotationInteractive) || a.logFile != "" || cfg.Logging.File != "" {
		opts.File = cfg.LogFilePath()
	}
	closer, err := logging.Setup(opts)
	if err != nil {
		return &ConfigError{Err: err}
	}
	a.logCloser = closer

	if a.cfgErr != nil {
		log.Warn().Err(a.cfgErr).Msg("configuration ignored, using defaults")
	}
	log.Debug().
		Str("command", a.command).
		Str("base_url", cfg.Backend.BaseURL).
		Str("team", cfg.Chat.DefaultTeam).
		Msg("starting")
	return nil
}

// loadConfig reads --config, or the default locations. A file that exists
// but cannot be decoded is an error.
func (a *app) loadConfig() (*config.Config, error) {
	if a.configPath != "" {
		cfg, err := config.LoadFromPath(a.configPath)
		if err != nil {
			return nil, &ConfigError{Path: a.configPath, Err: err}
		}
		return cfg, nil
	}
	cfg, err := config.Load()
	if err != nil && cfg != nil {
		// The default file exists but is unreadable; run on defaults.
		a.cfgErr = &ConfigError{Err: err}
		return cfg, nil
	}
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	return cfg, nil
}

// close releases the log file.
func (a *app) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
		a.logCloser = nil
	}
}

// newClient builds the backend client from the configuration.
func (a *app) newClient() *api.Client {
	return api.NewClient(a.cfg.Backend.BaseURL).
		WithWebSocketURL(a.cfg.WebSocketURL()).
		WithTimeout(a.cfg.RequestTimeout()).
		WithMaxResponseSize(a.cfg.MaxResponseBytes())
}

// sessionConfig builds the session controller configuration.
func (a *app) sessionConfig() (session.Config, error) {
	scfg := session.DefaultConfig()

	team, err := model.ParseTeam(a.cfg.Chat.DefaultTeam)
	if err != nil {
		return scfg, &ConfigError{Err: err}
	}
	policy, err := session.ParsePolicy(a.cfg.Chat.TurnTimeoutPolicy)
	if err != nil {
		return scfg, &ConfigError{Err: err}
	}

	scfg.Team = team
	scfg.FinalizeGrace = a.cfg.FinalizeGrace()
	scfg.TurnTimeout = a.cfg.TurnTimeout()
	scfg.TimeoutPolicy = policy
	scfg.HealthInterval = a.cfg.HealthInterval()
	return scfg, nil
}

// exportOptions returns the export options for the configured directory.
func (a *app) exportOptions() *export.Options {
	opts := export.DefaultOptions()
	opts.OutputDir = a.cfg.ExportDir()
	return opts
}

func hasAnnotation(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[key]; ok {
			return true
		}
		// Annotations describe the leaf command only, except for the
		// config group whose subcommands all tolerate a broken file.
		if key != annotationConfigTolerant {
			break
		}
	}
	return false
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd builds the regchat command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "regchat",
		Short: "Assistant réglementaire ACAPS / AMMC dans le terminal",
		Long: "regchat est un client terminal pour l'assistant réglementaire.\n" +
			"Sans sous-commande, il ouvre l'interface plein écran.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noArgs,
		Annotations:   map[string]string{annotationInteractive: "true"},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTUI(cmd)
		},
	}
	root.SetVersionTemplate(versionString() + "\n")
	root.SetFlagErrorFunc(usageError)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "configuration file (default ~/.regchat/config.toml)")
	flags.StringVar(&a.baseURL, "base-url", "", "backend HTTP root")
	flags.StringVar(&a.team, "team", "", "team: global, acaps or ammc")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&a.logFile, "log-file", "", "write logs to this file")

	root.AddCommand(
		newTUICmd(a),
		newChatCmd(a),
		newAskCmd(a),
		newSessionsCmd(a),
		newHealthCmd(a),
		newTeamsCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the command line with args.
func ExecuteArgs(args []string) int {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)

	cmd, err := root.ExecuteC()
	if err == nil {
		return ExitSuccess
	}

	name := "regchat"
	jsonMode := false
	if cmd != nil {
		name = cmd.CommandPath()
		if f := cmd.Flags().Lookup("json"); f != nil && f.Value.String() == "true" {
			jsonMode = true
		}
	}
	DisplayError(name, err, jsonMode)
	return GetExitCode(err)
}

// =============================================================================
// ARGUMENT VALIDATION
// =============================================================================

// usageError wraps a cobra flag or argument error so it maps to
// ExitUsageError.
func usageError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{
		Field:   "arguments",
		Reason:  err.Error(),
		Example: cmd.UseLine(),
	}
}

// noArgs rejects positional arguments.
func noArgs(cmd *cobra.Command, args []string) error {
	return usageError(cmd, cobra.NoArgs(cmd, args))
}

// exactArgs requires n positional arguments.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(cmd, cobra.ExactArgs(n)(cmd, args))
	}
}

// minArgs requires at least n positional arguments.
func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(cmd, cobra.MinimumNArgs(n)(cmd, args))
	}
}
