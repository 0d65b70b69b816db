// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the regchat command line.
//
// Running regchat without a subcommand opens the full-screen chat. The
// other commands serve scripts and plain terminals:
//
//	regchat                    full-screen chat (same as 'regchat tui')
//	regchat chat               line-mode chat with history and slash commands
//	regchat ask "question"     one question, one answer
//	regchat sessions list      stored sessions, most recent first
//	regchat sessions show ID   print a transcript
//	regchat sessions export ID --format pdf|md|json
//	regchat sessions delete ID
//	regchat health             backend health
//	regchat teams              teams and agents known to the backend
//	regchat config show|path|get|set|init
//	regchat version
//
// Global flags override the configuration file for one run:
//
//	--config PATH    configuration file (default ~/.regchat/config.toml)
//	--base-url URL   backend HTTP root
//	--team NAME      global, acaps or ammc
//	--log-level L    trace, debug, info, warn, error
//	--log-file PATH  log destination
//
// Errors are printed once by Execute, which maps them to exit codes (see
// GetExitCode).
package cli
