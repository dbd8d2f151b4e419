package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug}})

	r := slog.NewRecord(time.Now(), slog.LevelWarn, "dropping entity", 0)
	r.AddAttrs(slog.String("entity", "way/1"), slog.String("error", "gone"))
	require.NoError(t, h.Handle(context.Background(), r))

	assert.Equal(t, "WARN: dropping entity entity=way/1 error=gone\n", buf.String())
}

func TestPrettyHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = NewPrettyHandler(&buf, PrettyHandlerOptions{})
	h = h.WithAttrs([]slog.Attr{slog.String("name", "Tour Eiffel")})
	h = h.WithGroup("http")

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "response", 0)
	r.AddAttrs(slog.Int("status", 200))
	require.NoError(t, h.Handle(context.Background(), r))

	assert.Equal(t, "INFO: response http.status=200 name=Tour Eiffel\n", buf.String())
}

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer

	quiet := New(&buf, "text", false)
	quiet.Debug("hidden")
	quiet.Info("hidden too")
	assert.Empty(t, buf.String())

	quiet.Warn("shown")
	assert.Contains(t, buf.String(), "WARN: shown")

	buf.Reset()
	New(&buf, "text", true).Debug("visible")
	assert.Contains(t, buf.String(), "DEBUG: visible")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "json", false).Warn("dropping entity", slog.String("entity", "node/2"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "dropping entity", entry["msg"])
	assert.Equal(t, "node/2", entry["entity"])
}
