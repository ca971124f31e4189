// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithJSON(true), WithWriter(&buf))

	logger.Info("stream committed", "conversation", "c1", "messages", 2)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if record["msg"] != "stream committed" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["conversation"] != "c1" {
		t.Errorf("conversation = %v", record["conversation"])
	}
}

func TestDebugLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithJSON(true), WithWriter(&buf))

	logger.Debug("skipped malformed line")
	if buf.Len() != 0 {
		t.Errorf("debug record emitted at info level: %s", buf.String())
	}

	buf.Reset()
	logger = New(WithJSON(true), WithWriter(&buf), WithDebug(true))
	logger.Debug("skipped malformed line")
	if !strings.Contains(buf.String(), "skipped malformed line") {
		t.Errorf("debug record missing at debug level: %s", buf.String())
	}
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf))

	logger.Info("request opened", "model", "openrouter/auto")
	out := buf.String()
	if !strings.Contains(out, "request opened") || !strings.Contains(out, "openrouter/auto") {
		t.Errorf("pretty output missing fields: %q", out)
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("nop logger should not be enabled at info")
	}
	logger.Error("discarded")
}
