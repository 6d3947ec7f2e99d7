package ctxlog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContextFallback(t *testing.T) {
	require.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", "text", &buf)
	ctx := WithLogger(context.Background(), logger)
	require.Same(t, logger, FromContext(ctx))

	FromContext(ctx).Debug("Module rewritten.", "file", "a.ts")
	require.Contains(t, buf.String(), "Module rewritten.")
	require.Contains(t, buf.String(), "file=a.ts")
}

func TestNewLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New("WARN", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "n", 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "shown", rec["msg"])
	require.Equal(t, "WARN", rec["level"])
}
