// Package api provides the HTTP and TCP surfaces of the taskmcp adapter.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskmcp/taskmcp/internal"
	"github.com/taskmcp/taskmcp/internal/service/mcp"
	"github.com/taskmcp/taskmcp/internal/telemetry"
	"github.com/taskmcp/taskmcp/pkg/types"
	"github.com/taskmcp/taskmcp/pkg/version"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	V0PathPrefix    = "/v0"
	V0ApiPathPrefix = "/api" + V0PathPrefix
)

// sessionIdleTTL bounds how long an abandoned streamable HTTP session keeps its backend client.
const sessionIdleTTL = 30 * time.Minute

type ServerOptions struct {
	// Addr is the host:port to bind the HTTP server to
	Addr string

	MCPService *mcp.MCPService

	// APIKey, when set, must be presented as a bearer token on every MCP and REST request.
	APIKey string

	Logger        *zap.Logger
	OtelProviders *telemetry.Providers
}

// Server serves the adapter over streamable HTTP, SSE and a REST view of the same capabilities.
type Server struct {
	addr   string
	router *gin.Engine

	// mcpServer serves the streamable HTTP transport on /mcp.
	mcpServer *mcp.MCPServer
	// sseMcpServer serves the SSE transport on /sse and /message.
	// It is kept separate so that the two transports never share a session table.
	sseMcpServer *mcp.MCPServer

	mcpService *mcp.MCPService
	apiKey     string

	logger        *zap.Logger
	otelProviders *telemetry.Providers
}

// NewServer initializes a new Gin server for the adapter.
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts.MCPService == nil {
		return nil, errors.New("an MCP service is required")
	}
	if opts.APIKey != "" {
		if err := internal.ValidateAPIKey(opts.APIKey); err != nil {
			return nil, fmt.Errorf("invalid api key: %w", err)
		}
	}

	s := &Server{
		addr:          opts.Addr,
		mcpServer:     opts.MCPService.NewMCPServer(string(types.TransportHTTP)),
		sseMcpServer:  opts.MCPService.NewMCPServer("sse"),
		mcpService:    opts.MCPService,
		apiKey:        opts.APIKey,
		logger:        opts.Logger,
		otelProviders: opts.OtelProviders,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.router = s.setupRouter()
	return s, nil
}

// Handler returns the HTTP handler of the gateway.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until ctx is cancelled. Every open MCP session is closed on the way out.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.logger.Info("http gateway listening", zap.String("addr", ln.Addr().String()))
	return internal.ServeHTTP(ctx, ln, s.router, s.Close)
}

// Close releases every MCP session still held by the gateway.
func (s *Server) Close() {
	s.mcpServer.CloseSessions()
	s.sseMcpServer.CloseSessions()
}

func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// if otel is enabled, setup prometheus metrics endpoint
	if s.otelProviders != nil && s.otelProviders.IsEnabled() {
		r.Use(otelgin.Middleware(s.otelProviders.ServiceName()))
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET(
		"/health",
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		},
	)

	r.GET(
		"/metadata",
		func(c *gin.Context) {
			c.JSON(http.StatusOK, &types.ServerMetadata{
				Status:  "ok",
				Service: s.mcpService.ServerName(),
				Version: version.GetVersion(),
			})
		},
	)

	requireAPIKey := s.requireAPIKey()

	streamableHTTPHandler := s.mcpServer.StreamableHTTPHandler(server.WithSessionIdleTTL(sessionIdleTTL))
	r.Any("/mcp", requireAPIKey, gin.WrapH(streamableHTTPHandler))

	sseHandler, messageHandler := s.sseMcpServer.SSEHandlers()
	r.Any("/sse", requireAPIKey, gin.WrapH(sseHandler))
	r.Any("/message", requireAPIKey, gin.WrapH(messageHandler))

	apiV0 := r.Group(V0ApiPathPrefix, requireAPIKey)
	{
		apiV0.GET("/tools", s.listToolsHandler())
		apiV0.GET("/tool", s.getToolHandler())
		apiV0.POST("/tools/invoke", s.invokeToolHandler())

		apiV0.GET("/resources", s.listResourcesHandler())
		apiV0.GET("/resource", s.readResourceHandler())

		apiV0.GET("/prompts", s.listPromptsHandler())
		apiV0.GET("/prompt", s.getPromptHandler())
		apiV0.POST("/prompts/render", s.renderPromptHandler())
	}

	return r
}
