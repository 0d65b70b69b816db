// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// DotEnvFile is the file LoadDotEnv reads from the working directory.
var DotEnvFile = ".env"

// LoadDotEnv loads DotEnvFile into the process environment if it exists.
// Variables already set in the environment win over the file. A file that
// cannot be parsed is logged and skipped.
func LoadDotEnv() error {
	if _, err := os.Stat(DotEnvFile); err != nil {
		return nil
	}
	// godotenv.Load never overwrites existing variables.
	if err := godotenv.Load(DotEnvFile); err != nil {
		log.Warn().Err(err).Str("path", DotEnvFile).Msg("ignoring unreadable .env file")
		return err
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - REGCHAT_BASE_URL: overrides backend.base_url
//   - REGCHAT_WS_URL: overrides backend.ws_url
//   - REGCHAT_TEAM: overrides chat.default_team
//   - REGCHAT_FINALIZE_GRACE_MS: overrides chat.finalize_grace_ms
//   - REGCHAT_TURN_TIMEOUT_POLICY: overrides chat.turn_timeout_policy
//   - REGCHAT_LOG_LEVEL: overrides logging.level
//   - REGCHAT_LOG_FILE: overrides logging.file
//   - REGCHAT_EXPORT_DIR: overrides export.dir
//   - REGCHAT_NO_MARKDOWN: set to "1" or "true" to print answers as plain text
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("REGCHAT_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("REGCHAT_WS_URL"); v != "" {
		c.Backend.WSURL = v
	}
	if v := os.Getenv("REGCHAT_TEAM"); v != "" {
		c.Chat.DefaultTeam = strings.ToLower(v)
	}
	if v := os.Getenv("REGCHAT_FINALIZE_GRACE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Chat.FinalizeGraceMs = ms
		}
	}
	if v := os.Getenv("REGCHAT_TURN_TIMEOUT_POLICY"); v != "" {
		c.Chat.TurnTimeoutPolicy = v
	}
	if v := os.Getenv("REGCHAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("REGCHAT_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("REGCHAT_EXPORT_DIR"); v != "" {
		c.Export.Dir = v
	}
	if v := os.Getenv("REGCHAT_NO_MARKDOWN"); v != "" {
		c.UI.RenderMarkdown = !(v == "1" || strings.ToLower(v) == "true")
	}
}
