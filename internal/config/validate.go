// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found as a
// ValidateErrors value, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Backend
	if err := validateURL(c.Backend.BaseURL, "http", "https"); err != nil {
		errs = append(errs, ValidationError{Field: "backend.base_url", Message: err.Error()})
	}
	if c.Backend.WSURL != "" {
		if err := validateURL(c.Backend.WSURL, "ws", "wss"); err != nil {
			errs = append(errs, ValidationError{Field: "backend.ws_url", Message: err.Error()})
		}
	}
	if c.Backend.RequestTimeoutSecs < 0 || c.Backend.RequestTimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "backend.request_timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Backend.RequestTimeoutSecs),
		})
	}
	if c.Backend.MaxResponseMB < 0 || c.Backend.MaxResponseMB > 512 {
		errs = append(errs, ValidationError{
			Field:   "backend.max_response_mb",
			Message: fmt.Sprintf("must be between 1 and 512, got %d", c.Backend.MaxResponseMB),
		})
	}

	// Chat
	validTeams := map[string]bool{"global": true, "acaps": true, "ammc": true}
	if !validTeams[strings.ToLower(c.Chat.DefaultTeam)] {
		errs = append(errs, ValidationError{
			Field:   "chat.default_team",
			Message: fmt.Sprintf("invalid team '%s', must be one of: global, acaps, ammc", c.Chat.DefaultTeam),
		})
	}
	if c.Chat.FinalizeGraceMs < 0 || c.Chat.FinalizeGraceMs > 60000 {
		errs = append(errs, ValidationError{
			Field:   "chat.finalize_grace_ms",
			Message: fmt.Sprintf("must be between 0 and 60000, got %d", c.Chat.FinalizeGraceMs),
		})
	}
	if c.Chat.HealthIntervalSecs < 0 || c.Chat.HealthIntervalSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "chat.health_interval_secs",
			Message: fmt.Sprintf("must be between 1 and 3600, got %d", c.Chat.HealthIntervalSecs),
		})
	}
	if c.Chat.TurnTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.turn_timeout_secs",
			Message: fmt.Sprintf("must be positive, got %d", c.Chat.TurnTimeoutSecs),
		})
	}
	switch strings.ToLower(c.Chat.TurnTimeoutPolicy) {
	case "", TimeoutPolicyFallback, TimeoutPolicyError:
	default:
		errs = append(errs, ValidationError{
			Field:   "chat.turn_timeout_policy",
			Message: fmt.Sprintf("invalid policy '%s', must be one of: fallback, error", c.Chat.TurnTimeoutPolicy),
		})
	}

	// Logging
	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
			errs = append(errs, ValidationError{
				Field:   "logging.level",
				Message: fmt.Sprintf("invalid level '%s'", c.Logging.Level),
			})
		}
	}

	// UI
	validThemes := map[string]bool{"": true, "auto": true, "dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}
	if c.UI.WordWrap < 0 {
		errs = append(errs, ValidationError{
			Field:   "ui.word_wrap",
			Message: fmt.Sprintf("must not be negative, got %d", c.UI.WordWrap),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %v", raw, err)
	}
	if u.Host == "" {
		return fmt.Errorf("URL '%s' has no host", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("URL '%s' must use scheme %s", raw, strings.Join(schemes, " or "))
}
