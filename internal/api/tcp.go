package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskmcp/taskmcp/internal/service/mcp"
	"github.com/taskmcp/taskmcp/pkg/types"
	"go.uber.org/zap"
)

// acceptRetryDelay is how long the listener backs off after a temporary accept failure.
const acceptRetryDelay = 100 * time.Millisecond

// TCPServer serves MCP as newline-delimited JSON-RPC over raw TCP sockets.
// Every accepted connection gets its own MCP server and session, released when the socket ends.
type TCPServer struct {
	addr       string
	mcpService *mcp.MCPService
	logger     *zap.Logger

	conns sync.WaitGroup
}

// NewTCPServer creates a TCP server that will listen on addr, eg- 0.0.0.0:9000
func NewTCPServer(addr string, svc *mcp.MCPService, logger *zap.Logger) *TCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TCPServer{addr: addr, mcpService: svc, logger: logger}
}

// Start listens on the configured address and serves connections until ctx is cancelled.
func (t *TCPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", t.addr, err)
	}
	t.logger.Info("tcp transport listening", zap.String("addr", ln.Addr().String()))
	return t.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or ln fails.
// It returns once every connection it accepted has been closed.
func (t *TCPServer) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	defer t.conns.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				t.logger.Warn("temporary accept failure", zap.Error(err))
				time.Sleep(acceptRetryDelay)
				continue
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		t.conns.Add(1)
		go func() {
			defer t.conns.Done()
			t.handleConn(ctx, conn)
		}()
	}
}

func (t *TCPServer) handleConn(ctx context.Context, conn net.Conn) {
	logger := t.logger.With(
		zap.String("conn_id", uuid.NewString()),
		zap.String("remote_addr", conn.RemoteAddr().String()),
	)

	ms := t.mcpService.NewMCPServer(string(types.TransportTCP))
	// sessions are closed whether the client hung up cleanly or not
	defer ms.CloseSessions()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()

	logger.Info("client connected")
	err := ms.ServeStream(connCtx, conn, conn)
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed):
		logger.Info("client disconnected")
	default:
		logger.Warn("client connection failed", zap.Error(err))
	}
}
