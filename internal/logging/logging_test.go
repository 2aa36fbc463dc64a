package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":      slog.LevelDebug,
		"dev":        slog.LevelDebug,
		"info":       slog.LevelInfo,
		"":           slog.LevelInfo,
		"bogus":      slog.LevelInfo,
		"warn":       slog.LevelWarn,
		"error":      slog.LevelError,
		"production": slog.LevelError,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, "json")
	log.Debug("hidden")
	log.Info("participant joined room", "room", "room1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "participant joined room", rec["msg"])
	assert.Equal(t, "room1", rec["room"])
}
