package utils

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogInterceptor_PrefixesCompleteLines(t *testing.T) {
	var out bytes.Buffer
	li := NewLogInterceptor(&out)
	li.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	n, err := li.Write([]byte("first\nsec"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, "line=1 time=2026-01-02T03:04:05Z first\n", out.String())

	_, err = li.Write([]byte("ond\r\n"))
	require.NoError(t, err)
	_, err = li.Write([]byte("tail"))
	require.NoError(t, err)
	require.NoError(t, li.Close())

	assert.Equal(t,
		"line=1 time=2026-01-02T03:04:05Z first\n"+
			"line=2 time=2026-01-02T03:04:05Z second\n"+
			"line=3 time=2026-01-02T03:04:05Z tail\n",
		out.String())
}

func TestMultiLogHandler_RespectsLevels(t *testing.T) {
	var debugOut, warnOut bytes.Buffer
	h := NewMultiLogHandler(
		slog.NewTextHandler(&debugOut, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnOut, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h).With("run", "r1")

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	logger.Debug("chunk start", "chunk", 1)
	logger.Warn("upload failed", "source", "a.png")

	assert.Contains(t, debugOut.String(), "chunk start")
	assert.Contains(t, debugOut.String(), "upload failed")
	assert.NotContains(t, warnOut.String(), "chunk start")
	assert.Contains(t, warnOut.String(), "run=r1")
	assert.Contains(t, warnOut.String(), "source=a.png")
}
