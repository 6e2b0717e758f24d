package logger_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"go-gin-dualstore/internal/core/logger"
)

func TestBuild_JSONLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l, done := logger.Build(logger.Options{Level: "warn", JSON: true, Output: zapcore.AddSync(&buf)})
	l.Info("dropped")
	l.Warn("kept", zap.String("backend", "mongo"))
	done()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "mongo", entry["backend"])
	assert.Contains(t, entry, "ts")
}

func TestBuild_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l, done := logger.Build(logger.Options{Level: "loud", JSON: true, Output: zapcore.AddSync(&buf)})
	l.Debug("hidden")
	l.Info("shown")
	done()
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestToWriterAndStdLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(core)

	w := logger.ToWriter(l, zapcore.WarnLevel)
	_, err := fmt.Fprintln(w, "[GIN-debug] listening")
	require.NoError(t, err)

	std, err := logger.ToStdLogger(l, zapcore.InfoLevel)
	require.NoError(t, err)
	std.Printf("slow sql %dms", 250)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "[GIN-debug] listening", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "slow sql 250ms", entries[1].Message)
}
