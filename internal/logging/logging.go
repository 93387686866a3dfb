// Package logging builds the zap loggers used across taskmcp.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the logger settings.
type Config struct {
	// Level is the minimum level of the process logger, eg- "debug", "info", "warn".
	Level string
	// Development switches to a human-friendly console encoder.
	Development bool
}

// New builds the process logger.
// Output always goes to stderr so that the stdio transport keeps stdout for protocol messages.
func New(c Config) (*zap.Logger, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "time"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// ParseLevel parses a level name. An empty name means info.
func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	if s == "warning" {
		s = "warn"
	}
	l, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level '%s': %w", s, err)
	}
	return l, nil
}

// WithLevel returns a child of logger whose minimum level is controlled by level alone.
// The child may log below the parent's level, which lets one session turn on debug logging
// without touching the process logger or any other session.
func WithLevel(logger *zap.Logger, level zapcore.LevelEnabler) *zap.Logger {
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return &levelCore{Core: c, level: level}
	}))
}

// levelCore replaces the level check of the wrapped core.
type levelCore struct {
	zapcore.Core
	level zapcore.LevelEnabler
}

func (c *levelCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.level.Enabled(ent.Level) {
		return ce
	}
	return ce.AddCore(ent, c)
}

func (c *levelCore) Level() zapcore.Level {
	return zapcore.LevelOf(c.level)
}
