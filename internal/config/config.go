// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete relay-tui configuration.
type Config struct {
	// API configuration (OpenRouter-style aggregator)
	API APIConfig `toml:"api"`

	// Title generation configuration
	Title TitleConfig `toml:"title"`

	// Stream rendering configuration
	Stream StreamConfig `toml:"stream"`

	// Storage configuration
	Storage StorageConfig `toml:"storage"`

	// Profile feeds the system prompt prepended to each request
	Profile ProfileConfig `toml:"profile"`
}

// APIConfig contains settings for the chat completion API.
type APIConfig struct {
	// BaseURL is the aggregator API base URL.
	BaseURL string `toml:"base_url"`
	// Model is the default model identifier (e.g. "openrouter/auto").
	Model string `toml:"model"`
	// RequestsPerMinute caps outbound request rate. 0 disables pacing.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// TitleConfig controls conversation title generation.
type TitleConfig struct {
	// Model is the cheap model used for title generation.
	Model string `toml:"model"`
	// FallbackMaxRunes bounds the truncated-prefix fallback title.
	FallbackMaxRunes int `toml:"fallback_max_runes"`
	// AssistantSampleRunes bounds how much assistant text is sent to the
	// title model.
	AssistantSampleRunes int `toml:"assistant_sample_runes"`
}

// StreamConfig tunes the render-side throttling of streamed tokens.
// Rendering is frame-clocked; delta arrival never forces a refresh.
type StreamConfig struct {
	// MaxFPS caps viewport refreshes per second during streaming.
	MaxFPS int `toml:"max_fps"`
}

// StorageConfig controls conversation persistence.
type StorageConfig struct {
	// Dir is the conversation directory. Empty means ~/.relay/conversations.
	Dir string `toml:"dir"`
	// DebounceMs is the minimum interval between disk flushes of a dirty
	// conversation. 0 writes through on every append.
	DebounceMs int `toml:"debounce_ms"`
	// MaxConversations limits stored conversations (0 = unlimited).
	MaxConversations int `toml:"max_conversations"`
}

// ProfileConfig holds the optional user profile rendered into the system
// prompt. All fields are free-form and may be empty.
type ProfileConfig struct {
	Name               string `toml:"name"`
	Occupation         string `toml:"occupation"`
	Interests          string `toml:"interests"`
	Style              string `toml:"style"`    // "formal", "balanced", "casual"
	Language           string `toml:"language"` // "english", "auto"
	CustomInstructions string `toml:"custom_instructions"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Validation bounds. Out-of-range values are clamped, not rejected, so a
// hand-edited config file never prevents startup.
const (
	minTitleFallbackRunes = 10
	maxTitleFallbackRunes = 200
	maxStreamFPS          = 60
)

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "https://openrouter.ai/api/v1",
			Model:             "openrouter/auto",
			RequestsPerMinute: 60,
		},
		Title: TitleConfig{
			Model:                "google/gemini-2.5-flash-lite",
			FallbackMaxRunes:     50,
			AssistantSampleRunes: 500,
		},
		Stream: StreamConfig{
			MaxFPS: 30,
		},
		Storage: StorageConfig{
			DebounceMs:       500,
			MaxConversations: 100,
		},
		Profile: ProfileConfig{
			Style:    "balanced",
			Language: "auto",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the relay config directory (~/.relay).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".relay"), nil
}

// Path returns the config file path (~/.relay/config.toml).
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, applies environment overrides, validates,
// and returns the result. A missing file yields defaults, not an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load with an explicit file path. Used by tests and the
// --config flag.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.Validate()
	return cfg, nil
}

// Save writes the config as TOML using an atomic write.
func Save(cfg *Config, path string) error {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(sb.String()), 0600)
}

// =============================================================================
// ENV OVERRIDES / VALIDATION
// =============================================================================

// ApplyEnvOverrides applies RELAY_* environment variables over file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RELAY_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("RELAY_MODEL"); v != "" {
		c.API.Model = v
	}
	if v := os.Getenv("RELAY_TITLE_MODEL"); v != "" {
		c.Title.Model = v
	}
	if v := os.Getenv("RELAY_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("RELAY_STREAM_MAX_FPS"); v != "" {
		if fps, err := strconv.Atoi(v); err == nil {
			c.Stream.MaxFPS = fps
		}
	}
}

// Validate clamps out-of-range values to their bounds and repairs invalid
// ones from defaults. It never fails; a broken config degrades to defaults.
func (c *Config) Validate() {
	def := Default()

	if _, err := url.Parse(c.API.BaseURL); err != nil || c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.RequestsPerMinute < 0 {
		c.API.RequestsPerMinute = 0
	}

	if c.Title.FallbackMaxRunes < minTitleFallbackRunes {
		c.Title.FallbackMaxRunes = minTitleFallbackRunes
	}
	if c.Title.FallbackMaxRunes > maxTitleFallbackRunes {
		c.Title.FallbackMaxRunes = maxTitleFallbackRunes
	}
	if c.Title.AssistantSampleRunes <= 0 {
		c.Title.AssistantSampleRunes = def.Title.AssistantSampleRunes
	}
	if c.Title.Model == "" {
		c.Title.Model = def.Title.Model
	}

	if c.Stream.MaxFPS <= 0 || c.Stream.MaxFPS > maxStreamFPS {
		c.Stream.MaxFPS = def.Stream.MaxFPS
	}

	if c.Storage.DebounceMs < 0 {
		c.Storage.DebounceMs = 0
	}
	if c.Storage.MaxConversations < 0 {
		c.Storage.MaxConversations = 0
	}
}

// =============================================================================
// SYSTEM PROMPT
// =============================================================================

// SystemPrompt renders the profile into a system message. Returns "" when
// the profile is effectively empty, so callers can skip the system message
// entirely.
func (c *Config) SystemPrompt() string {
	p := c.Profile
	var parts []string

	if p.Name != "" {
		parts = append(parts, fmt.Sprintf("The user's name is %s.", p.Name))
	}
	if p.Occupation != "" {
		parts = append(parts, fmt.Sprintf("They work as %s.", p.Occupation))
	}
	if p.Interests != "" {
		parts = append(parts, fmt.Sprintf("Their interests include: %s.", p.Interests))
	}

	switch p.Style {
	case "formal":
		parts = append(parts, "Adopt a formal, professional tone.")
	case "casual":
		parts = append(parts, "Adopt a relaxed, friendly tone.")
	}

	switch p.Language {
	case "", "auto":
		// Let the model mirror the user's language.
	default:
		parts = append(parts, fmt.Sprintf("Always respond in %s.", p.Language))
	}

	if p.CustomInstructions != "" {
		parts = append(parts, p.CustomInstructions)
	}

	return strings.Join(parts, " ")
}
