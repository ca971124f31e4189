// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Title.FallbackMaxRunes != 50 {
		t.Errorf("FallbackMaxRunes = %d", cfg.Title.FallbackMaxRunes)
	}
	if cfg.Stream.MaxFPS != 30 {
		t.Errorf("MaxFPS = %d", cfg.Stream.MaxFPS)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.API.Model != "openrouter/auto" {
		t.Errorf("Model = %q", cfg.API.Model)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.API.Model = "anthropic/claude-3.5-sonnet"
	cfg.Title.FallbackMaxRunes = 80
	cfg.Profile.Name = "Ada"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.API.Model != "anthropic/claude-3.5-sonnet" {
		t.Errorf("Model = %q", loaded.API.Model)
	}
	if loaded.Title.FallbackMaxRunes != 80 {
		t.Errorf("FallbackMaxRunes = %d", loaded.Title.FallbackMaxRunes)
	}
	if loaded.Profile.Name != "Ada" {
		t.Errorf("Profile.Name = %q", loaded.Profile.Name)
	}
}

func TestValidateClamps(t *testing.T) {
	cfg := Default()
	cfg.Title.FallbackMaxRunes = 5000
	cfg.Stream.MaxFPS = 500
	cfg.API.BaseURL = "https://example.com/v1/"
	cfg.Validate()

	if cfg.Title.FallbackMaxRunes != maxTitleFallbackRunes {
		t.Errorf("FallbackMaxRunes = %d", cfg.Title.FallbackMaxRunes)
	}
	if cfg.Stream.MaxFPS != 30 {
		t.Errorf("MaxFPS = %d", cfg.Stream.MaxFPS)
	}
	if cfg.API.BaseURL != "https://example.com/v1" {
		t.Errorf("BaseURL trailing slash kept: %q", cfg.API.BaseURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RELAY_MODEL", "openai/gpt-4o")
	t.Setenv("RELAY_API_BASE_URL", "http://localhost:8080/v1")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.API.Model != "openai/gpt-4o" {
		t.Errorf("Model = %q", cfg.API.Model)
	}
	if cfg.API.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
}

func TestSystemPrompt(t *testing.T) {
	cfg := Default()
	if got := cfg.SystemPrompt(); got != "" {
		t.Errorf("empty profile should yield empty prompt, got %q", got)
	}

	cfg.Profile = ProfileConfig{
		Name:       "Ada",
		Occupation: "a compiler engineer",
		Style:      "formal",
		Language:   "english",
	}
	got := cfg.SystemPrompt()
	for _, want := range []string{"Ada", "compiler engineer", "formal", "english"} {
		if !strings.Contains(got, want) {
			t.Errorf("SystemPrompt missing %q: %q", want, got)
		}
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := Save(Default(), path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}
}
