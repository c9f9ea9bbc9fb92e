package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel(" WARNING "))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("bogus"))
}

func TestZapLoggerContextFields(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.Level = DebugLevel

	logger, err := NewZapLogger(config)
	require.NoError(t, err)

	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithRole(ctx, "SYNTHESIZER")
	ctx = WithMode(ctx, "website")

	logger.WithContext(ctx).With(String("extra", "x")).Info("step finished", Int("chars", 42))
	require.NoError(t, logger.Sync())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "step finished", entry["message"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "SYNTHESIZER", entry["role"])
	assert.Equal(t, "website", entry["mode"])
	assert.Equal(t, "x", entry["extra"])
	assert.EqualValues(t, 42, entry["chars"])
}

func TestZapLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.Level = WarnLevel

	logger, err := NewZapLogger(config)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestZapLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "forge.log")
	config := DefaultConfig()
	config.Output = nil
	config.OutputPath = path

	logger, err := NewZapLogger(config)
	require.NoError(t, err)
	logger.Info("to file")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNop(t *testing.T) {
	logger := NewNop()
	logger.With(String("k", "v")).WithContext(context.Background()).Error("ignored")
}
