// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for regchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env files, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Backend HTTP and WebSocket locations
//   - ChatConfig: Turn lifecycle timings and the default team
//   - ValidationError / ValidateErrors: Validation results
//
// # Configuration Precedence
//
// Configuration is loaded from (highest first):
//   - Environment variables (REGCHAT_*)
//   - ./.env
//   - ~/.regchat/config.toml
//   - ~/.regchat/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil && cfg == nil {
//	    return err
//	}
//	grace := cfg.FinalizeGrace()
package config
