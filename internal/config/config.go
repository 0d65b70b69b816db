// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/regchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete regchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Backend BackendConfig `toml:"backend" json:"backend"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Export  ExportConfig  `toml:"export" json:"export"`
}

// BackendConfig locates the assistant backend.
type BackendConfig struct {
	// BaseURL is the HTTP root of the backend API
	BaseURL string `toml:"base_url" json:"base_url"`
	// WSURL is the WebSocket root. Derived from BaseURL when empty.
	WSURL string `toml:"ws_url" json:"ws_url"`
	// RequestTimeoutSecs bounds every request/response call
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// MaxResponseMB caps response bodies, PDF exports included
	MaxResponseMB int `toml:"max_response_mb" json:"max_response_mb"`
}

// ChatConfig tunes the turn lifecycle.
type ChatConfig struct {
	// DefaultTeam is the team selected at startup: global, acaps, ammc
	DefaultTeam string `toml:"default_team" json:"default_team"`
	// FinalizeGraceMs keeps the last reasoning step visible after the
	// answer arrives, before it is replaced
	FinalizeGraceMs int `toml:"finalize_grace_ms" json:"finalize_grace_ms"`
	// HealthIntervalSecs is the period of the backend health check
	HealthIntervalSecs int `toml:"health_interval_secs" json:"health_interval_secs"`
	// TurnTimeoutSecs is how long a streamed turn may go without any frame
	TurnTimeoutSecs int `toml:"turn_timeout_secs" json:"turn_timeout_secs"`
	// TurnTimeoutPolicy is what happens on timeout: "fallback" or "error"
	TurnTimeoutPolicy string `toml:"turn_timeout_policy" json:"turn_timeout_policy"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// File receives logs while the full-screen UI owns the terminal.
	// Empty means ~/.regchat/regchat.log
	File string `toml:"file" json:"file"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	// RenderMarkdown renders answers with glamour instead of plain text
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
	// WordWrap is the maximum rendered line width (0 = terminal width)
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// ShowReasoning shows stored reasoning under finalized answers
	ShowReasoning bool `toml:"show_reasoning" json:"show_reasoning"`
	// Theme is "auto", "dark" or "light"
	Theme string `toml:"theme" json:"theme"`
}

// ExportConfig contains export settings.
type ExportConfig struct {
	// Dir is where exports are written. Empty means the working directory.
	Dir string `toml:"dir" json:"dir"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Timeout policies for streamed turns that stop receiving frames.
const (
	TimeoutPolicyFallback = "fallback"
	TimeoutPolicyError    = "error"
)

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Backend: BackendConfig{
			BaseURL:            "http://localhost:8000",
			RequestTimeoutSecs: 30,
			MaxResponseMB:      10,
		},
		Chat: ChatConfig{
			DefaultTeam:        "global",
			FinalizeGraceMs:    3000,
			HealthIntervalSecs: 30,
			// The backend paces reasoning steps ten seconds apart and waits
			// another fifteen before the answer.
			TurnTimeoutSecs:   180,
			TurnTimeoutPolicy: TimeoutPolicyFallback,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		UI: UIConfig{
			RenderMarkdown: true,
			WordWrap:       100,
			ShowReasoning:  true,
			Theme:          "auto",
		},
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// WebSocketURL returns the configured WebSocket root, deriving it from the
// HTTP base URL when none is set.
func (c *Config) WebSocketURL() string {
	if c.Backend.WSURL != "" {
		return strings.TrimSuffix(c.Backend.WSURL, "/")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return strings.TrimSuffix(u.String(), "/")
}

// RequestTimeout returns the per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSecs) * time.Second
}

// MaxResponseBytes returns the response body cap in bytes.
func (c *Config) MaxResponseBytes() int64 {
	return int64(c.Backend.MaxResponseMB) * 1024 * 1024
}

// FinalizeGrace returns the delay between an answer arriving and the
// placeholder being replaced.
func (c *Config) FinalizeGrace() time.Duration {
	return time.Duration(c.Chat.FinalizeGraceMs) * time.Millisecond
}

// HealthInterval returns the health check period.
func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.Chat.HealthIntervalSecs) * time.Second
}

// TurnTimeout returns the streamed-turn inactivity timeout.
func (c *Config) TurnTimeout() time.Duration {
	return time.Duration(c.Chat.TurnTimeoutSecs) * time.Second
}

// LogFilePath returns the log file, defaulting into the config directory.
func (c *Config) LogFilePath() string {
	if c.Logging.File != "" {
		return expandHome(c.Logging.File)
	}
	dir, err := ConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "regchat.log")
	}
	return filepath.Join(dir, "regchat.log")
}

// ExportDir returns the export directory, defaulting to the working directory.
func (c *Config) ExportDir() string {
	if c.Export.Dir == "" {
		return "."
	}
	return expandHome(c.Export.Dir)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ConfigDir returns the regchat configuration directory. REGCHAT_HOME
// replaces the default ~/.regchat.
func ConfigDir() (string, error) {
	if dir := os.Getenv("REGCHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".regchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.regchat/config.toml, falling back to
// config.json, then to defaults. A .env file in the working directory and
// REGCHAT_* variables are applied on top.
//
// A file that exists but cannot be decoded is reported alongside the
// defaults so callers can warn and continue.
func Load() (*Config, error) {
	var loadErr error

	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err == nil {
			return cfg, nil
		}
		loadErr = err
		break
	}

	cfg := Default()
	LoadDotEnv()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from an explicit file. The format is
// chosen by extension: .json is JSON, anything else TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	LoadDotEnv()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// SetDefaults fills zero values that would otherwise make the client unusable.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = d.Backend.BaseURL
	}
	c.Backend.BaseURL = strings.TrimSuffix(c.Backend.BaseURL, "/")
	if c.Backend.RequestTimeoutSecs <= 0 {
		c.Backend.RequestTimeoutSecs = d.Backend.RequestTimeoutSecs
	}
	if c.Backend.MaxResponseMB <= 0 {
		c.Backend.MaxResponseMB = d.Backend.MaxResponseMB
	}
	if c.Chat.DefaultTeam == "" {
		c.Chat.DefaultTeam = d.Chat.DefaultTeam
	}
	if c.Chat.HealthIntervalSecs <= 0 {
		c.Chat.HealthIntervalSecs = d.Chat.HealthIntervalSecs
	}
	if c.Chat.TurnTimeoutSecs <= 0 {
		c.Chat.TurnTimeoutSecs = d.Chat.TurnTimeoutSecs
	}
	if c.Chat.TurnTimeoutPolicy == "" {
		c.Chat.TurnTimeoutPolicy = d.Chat.TurnTimeoutPolicy
	}
	c.Chat.TurnTimeoutPolicy = strings.ToLower(c.Chat.TurnTimeoutPolicy)
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration as TOML with a short header.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# regchat configuration file\n")
	b.WriteString("# Environment variables (REGCHAT_*) and ./.env override these values.\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration as indented JSON.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the configuration as TOML for display.
func (c *Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return b.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance, loading it on first
// access. Load errors fall back to defaults with a warning on stderr.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the global configuration instance.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
