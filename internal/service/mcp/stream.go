package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// streamSession is the mcp-go view of one line-delimited stream connection.
type streamSession struct {
	id            string
	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool
	level         atomic.Value
}

func newStreamSession() *streamSession {
	s := &streamSession{
		id:            uuid.NewString(),
		notifications: make(chan mcp.JSONRPCNotification, 100),
	}
	s.level.Store(mcp.LoggingLevelInfo)
	return s
}

func (s *streamSession) SessionID() string {
	return s.id
}

func (s *streamSession) NotificationChannel() chan<- mcp.JSONRPCNotification {
	return s.notifications
}

func (s *streamSession) Initialize() {
	s.initialized.Store(true)
}

func (s *streamSession) Initialized() bool {
	return s.initialized.Load()
}

func (s *streamSession) SetLogLevel(level mcp.LoggingLevel) {
	s.level.Store(level)
}

func (s *streamSession) GetLogLevel() mcp.LoggingLevel {
	return s.level.Load().(mcp.LoggingLevel)
}

var (
	_ server.ClientSession      = (*streamSession)(nil)
	_ server.SessionWithLogging = (*streamSession)(nil)
)

// lineWriter writes one JSON message per line. Responses and notifications share it.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lineWriter) write(msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if _, err := fmt.Fprintf(lw.w, "%s\n", b); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// ServeStream serves one MCP connection of newline-delimited JSON-RPC messages read from r,
// writing responses and notifications to w. The connection gets its own session, which is closed
// when ServeStream returns. Requests are handled one at a time in arrival order.
//
// End of input is a graceful close: lines already received are still answered.
// Any other read failure, a write failure or cancellation of ctx aborts the request in flight.
func (ms *MCPServer) ServeStream(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cs := newStreamSession()
	if err := ms.RegisterSession(ctx, cs); err != nil {
		return fmt.Errorf("failed to register session: %w", err)
	}
	defer ms.UnregisterSession(context.Background(), cs.SessionID())
	ctx = ms.WithContext(ctx, cs)

	logger := ms.service.logger.With(zap.String("session_id", cs.SessionID()), zap.String("transport", ms.transport))
	out := &lineWriter{w: w}

	go func() {
		for {
			select {
			case n := <-cs.notifications:
				if err := out.write(n); err != nil {
					logger.Debug("failed to deliver notification", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadString('\n')
			if strings.TrimSpace(line) != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				if !errors.Is(err, io.EOF) {
					cancel()
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return readFailure(readErr, ctx.Err())
		case line, ok := <-lines:
			if !ok {
				return readFailure(readErr, nil)
			}
			if err := ms.handleLine(ctx, line, out); err != nil {
				logger.Warn("closing stream", zap.Error(err))
				return err
			}
		}
	}
}

// readFailure reports why the reader stopped. A clean end of input is not an error.
func readFailure(readErr <-chan error, fallback error) error {
	select {
	case err := <-readErr:
		if errors.Is(err, io.EOF) {
			return fallback
		}
		return fmt.Errorf("failed to read from stream: %w", err)
	default:
		return fallback
	}
}

func (ms *MCPServer) handleLine(ctx context.Context, line string, out *lineWriter) error {
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return out.write(mcp.NewJSONRPCError(mcp.NewRequestId(nil), mcp.PARSE_ERROR, "Parse error", nil))
	}
	resp := ms.HandleMessage(ctx, raw)
	if resp == nil {
		return nil
	}
	return out.write(resp)
}
