// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "debug", Format: "json", Output: &buf})

	log.Info().Str("component", "test").Int("n", 7).Msg("hello")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if record["message"] != "hello" || record["component"] != "test" {
		t.Errorf("record fields wrong: %v", record)
	}
	if record["level"] != "info" {
		t.Errorf("level = %v", record["level"])
	}
	if _, ok := record["time"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestNewLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Output: &buf})

	log.Info().Msg("dropped")
	log.Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info event emitted at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn event missing")
	}
}

func TestNewConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Format: "console", Output: &buf})

	log.Info().Msg("console line")
	if !strings.Contains(buf.String(), "console line") {
		t.Errorf("console output missing message: %q", buf.String())
	}
}

func TestSlogBridge(t *testing.T) {
	var buf bytes.Buffer
	slogger := NewSlog(New(Options{Level: "debug", Output: &buf}))

	slogger.Info("service started", slog.String("service", "retrain"), slog.Int("attempt", 2))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("bridge output is not JSON: %v", err)
	}
	if record["message"] != "service started" || record["service"] != "retrain" {
		t.Errorf("record = %v", record)
	}
	if record["attempt"] != float64(2) {
		t.Errorf("attempt = %v", record["attempt"])
	}
}

func TestSlogBridgeGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	slogger := NewSlog(New(Options{Level: "debug", Output: &buf}))

	slogger = slogger.With(slog.String("component", "supervisor"))
	slogger.WithGroup("svc").Warn("restarting", slog.String("name", "feedback"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("bridge output is not JSON: %v", err)
	}
	if record["component"] != "supervisor" {
		t.Errorf("pre-set attr lost: %v", record)
	}
	if record["svc.name"] != "feedback" {
		t.Errorf("group prefix missing: %v", record)
	}
	if record["level"] != "warn" {
		t.Errorf("level = %v", record["level"])
	}
}

func TestSlogBridgeLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	slogger := NewSlog(New(Options{Level: "error", Output: &buf}))

	slogger.Debug("noise")
	slogger.Info("more noise")
	if buf.Len() != 0 {
		t.Errorf("events below error emitted: %q", buf.String())
	}

	slogger.Error("broken")
	if !strings.Contains(buf.String(), "broken") {
		t.Error("error event missing")
	}
}
