package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jwulff/trustguard/internal/config"
)

func TestNewWithoutFileDiscards(t *testing.T) {
	logger, err := New(config.LoggerConfig{Level: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(zap.ErrorLevel) {
		t.Error("logger without a file should be a no-op")
	}
}

func TestNewJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "popup.log")
	logger, err := New(config.LoggerConfig{Level: "info", Format: "json", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("hidden")
	logger.With(zap.String("mod", "controller")).Info("pull failed", zap.Int("attempt", 1))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q, want only the info entry", lines)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("entry is not JSON: %v", err)
	}
	if entry["msg"] != "pull failed" || entry["mod"] != "controller" || entry["level"] != "info" {
		t.Errorf("entry = %v", entry)
	}
	if entry["logger"] != "trustguard" {
		t.Errorf("logger name = %v", entry["logger"])
	}
}

func TestNewConsoleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "popup.log")
	logger, err := New(config.LoggerConfig{Level: "debug", Format: "console", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("poll loop started")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "poll loop started") {
		t.Errorf("log = %q", data)
	}
}

func TestNewInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := []config.LoggerConfig{
		{Level: "loud", File: filepath.Join(dir, "a.log")},
		{Level: "info", Format: "xml", File: filepath.Join(dir, "b.log")},
	}
	for _, cfg := range tests {
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v) should fail", cfg)
		}
	}
}
