package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("ummahbook-server", "test", "json", "info", &buf)

	logger.With("component", "auth").Info("user logged in", "username", "alice")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "user logged in", entry["msg"])
	assert.Equal(t, "ummahbook-server", entry["service"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, "auth", entry["component"])
	assert.Equal(t, "alice", entry["username"])
}

func TestSetupText(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("svc", "dev", "text", "debug", &buf)

	logger.Debug("visible")

	assert.True(t, strings.Contains(buf.String(), "msg=visible"))
	assert.Contains(t, buf.String(), "service=svc")
}

func TestSetupLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("svc", "dev", "json", "warn", &buf)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.NotEmpty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
