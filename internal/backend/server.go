// Package backend provides the REST API of the reference task backend.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskmcp/taskmcp/internal"
	"github.com/taskmcp/taskmcp/internal/service/task"
	"github.com/taskmcp/taskmcp/internal/telemetry"
	"github.com/taskmcp/taskmcp/pkg/types"
	"github.com/taskmcp/taskmcp/pkg/version"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// ServiceName is reported by the health endpoints.
const ServiceName = "Task Management Backend API"

type ServerOptions struct {
	// Port is the HTTP port to bind the server to
	Port string

	TaskService *task.TaskService

	Logger        *zap.Logger
	OtelProviders *telemetry.Providers
}

// Server serves the task REST API.
type Server struct {
	port   string
	router *gin.Engine

	taskService *task.TaskService

	logger        *zap.Logger
	otelProviders *telemetry.Providers
}

// NewServer initializes a new Gin server for the task backend.
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts.TaskService == nil {
		return nil, errors.New("a task service is required")
	}
	s := &Server{
		port:          opts.Port,
		taskService:   opts.TaskService,
		logger:        opts.Logger,
		otelProviders: opts.OtelProviders,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.router = s.setupRouter()
	return s, nil
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until ctx is cancelled, then shuts it down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", s.port, err)
	}
	return internal.ServeHTTP(ctx, ln, s.router, nil)
}

func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	if s.otelProviders != nil && s.otelProviders.IsEnabled() {
		r.Use(otelgin.Middleware(s.otelProviders.ServiceName()))
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/", healthHandler)
	r.GET("/health", healthHandler)

	tasks := r.Group("/api/tasks")
	{
		tasks.POST("", s.createTaskHandler())
		tasks.GET("", s.listTasksHandler())
		tasks.POST("/bulk-update", s.bulkUpdateTasksHandler())
		tasks.GET("/:id", s.getTaskHandler())
		tasks.PUT("/:id", s.updateTaskHandler())
		tasks.DELETE("/:id", s.deleteTaskHandler())
	}

	r.GET("/api/analytics/metrics", s.metricsHandler())

	return r
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, &types.ServerMetadata{
		Status:  "healthy",
		Service: ServiceName,
		Version: version.GetVersion(),
	})
}
