package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"WARNING", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithLevelIsIndependentPerChild(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	parent := zap.New(core)

	levelA := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	levelB := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	a := WithLevel(parent, levelA).With(zap.String("session_id", "a"))
	b := WithLevel(parent, levelB).With(zap.String("session_id", "b"))

	levelA.SetLevel(zapcore.DebugLevel)
	a.Debug("debug from a")
	b.Debug("debug from b")
	parent.Debug("debug from parent")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "debug from a", entry.Message)
	assert.Equal(t, "a", entry.ContextMap()["session_id"])

	levelB.SetLevel(zapcore.ErrorLevel)
	b.Warn("warn from b")
	a.Warn("warn from a")
	assert.Equal(t, 2, logs.Len())
}

func TestNew(t *testing.T) {
	logger, err := New(Config{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = New(Config{Level: "nope"})
	assert.Error(t, err)
}
