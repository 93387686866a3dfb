// Package mcp exposes the task backend to language-model agents over the Model Context Protocol.
// It holds the capability registry, the tool dispatcher, the resource router, the prompt renderer
// and the per-connection session lifecycle.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/taskmcp/taskmcp/internal/telemetry"
	"github.com/taskmcp/taskmcp/pkg/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BackendFactory creates a new, independent Backend Client. It is called once per session.
type BackendFactory func() TaskBackend

// ServiceConfig holds the configuration parameters for initializing the MCPService.
type ServiceConfig struct {
	NewBackend BackendFactory

	Logger  *zap.Logger
	Metrics telemetry.CustomMetrics

	ServerName    string
	ServerVersion string
}

// MCPService wires the registry, dispatcher, router and renderer to the MCP transports.
// It is shared by all transports; per-caller state lives in Session.
type MCPService struct {
	registry *Registry
	renderer *Renderer

	newBackend BackendFactory

	logger  *zap.Logger
	metrics telemetry.CustomMetrics

	serverName    string
	serverVersion string
}

// NewMCPService creates a new instance of MCPService.
func NewMCPService(c *ServiceConfig) (*MCPService, error) {
	if c.NewBackend == nil {
		return nil, errors.New("a backend factory is required")
	}
	renderer, err := NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt renderer: %w", err)
	}

	s := &MCPService{
		registry:      NewRegistry(),
		renderer:      renderer,
		newBackend:    c.NewBackend,
		logger:        c.Logger,
		metrics:       c.Metrics,
		serverName:    c.ServerName,
		serverVersion: c.ServerVersion,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewNoopCustomMetrics()
	}
	if s.serverName == "" {
		s.serverName = "task-management-mcp"
	}
	if s.serverVersion == "" {
		s.serverVersion = "1.0.0"
	}
	return s, nil
}

// Registry returns the capability registry.
func (m *MCPService) Registry() *Registry {
	return m.registry
}

// ServerName returns the name the adapter advertises to MCP clients.
func (m *MCPService) ServerName() string {
	return m.serverName
}

// NewSession opens a session with its own Backend Client.
// The caller must Close the session once the connection it represents ends.
func (m *MCPService) NewSession(id, transport string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return newSession(id, transport, m.newBackend(), m.renderer, m.logger, m.baseLevel(), m.metrics)
}

// baseLevel is the level a new session starts with: the level of the process logger.
func (m *MCPService) baseLevel() zapcore.Level {
	return zapcore.LevelOf(m.logger.Core())
}

// InvokeTool runs a single tool call on a one-off session.
func (m *MCPService) InvokeTool(ctx context.Context, name string, args map[string]any) types.Envelope {
	s := m.NewSession("", "oneshot")
	defer s.Close()
	return s.CallTool(ctx, name, args)
}

// ReadResource runs a single resource read on a one-off session.
func (m *MCPService) ReadResource(ctx context.Context, uri string, filters map[string]any) string {
	s := m.NewSession("", "oneshot")
	defer s.Close()
	return s.ReadResource(ctx, uri, filters)
}

// RenderPrompt renders a prompt. It does not need a backend, so no session is opened.
func (m *MCPService) RenderPrompt(name string, args map[string]string) (*types.RenderedPrompt, error) {
	res, err := m.renderer.Render(name, args)
	if err != nil {
		return nil, err
	}
	return toRenderedPrompt(res), nil
}
