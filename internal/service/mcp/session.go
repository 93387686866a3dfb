package mcp

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/taskmcp/taskmcp/internal/logging"
	"github.com/taskmcp/taskmcp/internal/telemetry"
	"github.com/taskmcp/taskmcp/pkg/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Session is the state of one connected caller.
// It owns a Backend Client for the lifetime of the connection and shares nothing mutable with other sessions.
type Session struct {
	id        string
	transport string

	backend    TaskBackend
	dispatcher *Dispatcher
	router     *Router
	renderer   *Renderer

	logger *zap.Logger
	level  zap.AtomicLevel

	metrics telemetry.CustomMetrics

	// mu runs the backend calls of this session one at a time. Arrival order is kept by
	// transports that read one request at a time, which SSE does not.
	mu        sync.Mutex
	closeOnce sync.Once
}

func newSession(
	id, transport string,
	backend TaskBackend,
	renderer *Renderer,
	logger *zap.Logger,
	baseLevel zapcore.Level,
	metrics telemetry.CustomMetrics,
) *Session {
	level := zap.NewAtomicLevelAt(baseLevel)
	sessionLogger := logging.WithLevel(logger, level).With(
		zap.String("session_id", id),
		zap.String("transport", transport),
	)

	s := &Session{
		id:         id,
		transport:  transport,
		backend:    backend,
		dispatcher: NewDispatcher(backend, sessionLogger, metrics),
		router:     NewRouter(backend, sessionLogger, metrics),
		renderer:   renderer,
		logger:     sessionLogger,
		level:      level,
		metrics:    metrics,
	}
	metrics.SessionOpened(context.Background(), transport)
	sessionLogger.Debug("session opened")
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CallTool invokes a tool on behalf of this session.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) types.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatcher.Invoke(ctx, name, args)
}

// ReadResource reads a resource on behalf of this session.
func (s *Session) ReadResource(ctx context.Context, uri string, filters map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.router.ReadWithFilters(ctx, uri, filters)
}

// GetPrompt renders a prompt. Rendering never touches the backend, so it does not take the session lock.
func (s *Session) GetPrompt(name string, args map[string]string) (*mcp.GetPromptResult, error) {
	return s.renderer.Render(name, args)
}

// SetLogLevel changes the minimum level of this session's logger only.
func (s *Session) SetLogLevel(l zapcore.Level) {
	s.level.SetLevel(l)
	s.logger.Debug("session log level changed", zap.Stringer("level", l))
}

// LogLevel returns the minimum level of this session's logger.
func (s *Session) LogLevel() zapcore.Level {
	return s.level.Level()
}

// Close releases the session's Backend Client. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.backend.Close()
		s.metrics.SessionClosed(context.Background(), s.transport)
		s.logger.Debug("session closed")
	})
}

// zapLevelFromMCP maps an MCP logging level onto the closest zap level.
func zapLevelFromMCP(l mcp.LoggingLevel) (zapcore.Level, bool) {
	switch l {
	case mcp.LoggingLevelDebug:
		return zapcore.DebugLevel, true
	case mcp.LoggingLevelInfo, mcp.LoggingLevelNotice:
		return zapcore.InfoLevel, true
	case mcp.LoggingLevelWarning:
		return zapcore.WarnLevel, true
	case mcp.LoggingLevelError:
		return zapcore.ErrorLevel, true
	case mcp.LoggingLevelCritical, mcp.LoggingLevelAlert, mcp.LoggingLevelEmergency:
		return zapcore.DPanicLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}
