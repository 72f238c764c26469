package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/cartsync/internal/infrastructure/config"
)

func TestConsoleHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, nil)).With(ComponentKey, "cart")

	logger.Info("cart line updated", "product_id", "7", "quantity", 3)

	line := buf.String()
	assert.Regexp(t, regexp.MustCompile(`^\[INFO\] \[cart\] \[\d{2}:\d{2}:\d{2}\] cart line updated product_id=7 quantity=3\n$`), line)
	assert.NotContains(t, line, "\033[", "no colors off a terminal")
}

func TestConsoleHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN]")
}

func TestConsoleHandler_GroupsAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, nil))

	logger.WithGroup("req").Info("done", "path", "/cart/", "note", "two words")
	logger.Info("nested", slog.Group("totals", "subtotal", "$10.00"))

	out := buf.String()
	assert.Contains(t, out, "req.path=/cart/")
	assert.Contains(t, out, `req.note="two words"`)
	assert.Contains(t, out, "totals.subtotal=$10.00")
}

func TestNewLoggerTo_Formats(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, config.LoggingConfig{Level: "debug", Format: "json"}).Debug("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "v", rec["k"])

	buf.Reset()
	NewLoggerTo(&buf, config.LoggingConfig{Format: "text"}).Info("hello")
	assert.True(t, strings.Contains(buf.String(), "msg=hello"))

	buf.Reset()
	NewLoggerTo(&buf, config.LoggingConfig{}).Info("hello")
	assert.True(t, strings.HasPrefix(buf.String(), "[INFO]"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
