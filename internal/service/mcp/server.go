package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/taskmcp/taskmcp/pkg/types"
	"go.uber.org/zap"
)

// catchAllResourceTemplate routes every task:// URI without an exact handler to the Router,
// so that unknown URIs get an error document instead of a protocol error.
const catchAllResourceTemplate = "task://{+path}"

// sessionTable tracks the sessions of one MCP server, keyed by the transport's session id.
type sessionTable struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func (t *sessionTable) add(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[s.ID()] = s
}

func (t *sessionTable) get(id string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	return s, ok
}

func (t *sessionTable) remove(id string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	delete(t.sessions, id)
	return s, ok
}

func (t *sessionTable) closeAll() {
	t.mu.Lock()
	sessions := t.sessions
	t.sessions = make(map[string]*Session)
	t.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// MCPServer is an mcp-go server bound to this service, together with the sessions of its connections.
type MCPServer struct {
	*server.MCPServer

	transport string
	sessions  *sessionTable
	service   *MCPService
}

// NewMCPServer builds an MCP server exposing every tool, resource and prompt of the registry.
// A session is opened when the transport registers a connection and closed when it unregisters it.
func (m *MCPService) NewMCPServer(transport string) *MCPServer {
	ms := &MCPServer{
		transport: transport,
		sessions:  &sessionTable{sessions: make(map[string]*Session)},
		service:   m,
	}

	hooks := &server.Hooks{}
	hooks.AddOnRegisterSession(func(ctx context.Context, cs server.ClientSession) {
		ms.sessions.add(m.NewSession(cs.SessionID(), transport))
	})
	hooks.AddOnUnregisterSession(func(ctx context.Context, cs server.ClientSession) {
		if s, ok := ms.sessions.remove(cs.SessionID()); ok {
			s.Close()
		}
	})
	hooks.AddAfterSetLevel(func(ctx context.Context, id any, req *mcp.SetLevelRequest, _ *mcp.EmptyResult) {
		cs := server.ClientSessionFromContext(ctx)
		if cs == nil {
			return
		}
		s, ok := ms.sessions.get(cs.SessionID())
		if !ok {
			return
		}
		if l, ok := zapLevelFromMCP(req.Params.Level); ok {
			s.SetLogLevel(l)
		}
	})

	ms.MCPServer = server.NewMCPServer(
		m.serverName,
		m.serverVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
		server.WithHooks(hooks),
	)

	for _, tool := range m.registry.ListTools() {
		ms.AddTool(tool, ms.callToolHandler)
	}
	for _, r := range m.registry.ListResources() {
		if r.IsTemplate() {
			ms.AddResourceTemplate(
				mcp.NewResourceTemplate(
					r.URIPattern,
					r.Name,
					mcp.WithTemplateDescription(r.Description),
					mcp.WithTemplateMIMEType(r.MediaType),
				),
				ms.readResourceHandler,
			)
			continue
		}
		ms.AddResource(
			mcp.NewResource(
				r.URIPattern,
				r.Name,
				mcp.WithResourceDescription(r.Description),
				mcp.WithMIMEType(r.MediaType),
			),
			ms.readResourceHandler,
		)
	}
	ms.AddResourceTemplate(
		mcp.NewResourceTemplate(
			catchAllResourceTemplate,
			"Task Resource",
			mcp.WithTemplateDescription("Any other task:// URI; unsupported URIs return an error document"),
			mcp.WithTemplateMIMEType(jsonMediaType),
		),
		ms.readResourceHandler,
	)
	for _, p := range m.registry.ListPrompts() {
		ms.AddPrompt(p, ms.getPromptHandler)
	}

	return ms
}

// Transport returns the name of the transport this server was built for.
func (ms *MCPServer) Transport() string {
	return ms.transport
}

// Session returns the session registered under the given id.
func (ms *MCPServer) Session(id string) (*Session, bool) {
	return ms.sessions.get(id)
}

// CloseSessions closes every session still registered on this server.
func (ms *MCPServer) CloseSessions() {
	ms.sessions.closeAll()
}

// withSession runs fn on the session of the calling connection. Requests that arrive without a
// registered session run on a one-off session that is closed when fn returns.
func (ms *MCPServer) withSession(ctx context.Context, fn func(s *Session)) {
	if cs := server.ClientSessionFromContext(ctx); cs != nil {
		if s, ok := ms.sessions.get(cs.SessionID()); ok {
			fn(s)
			return
		}
	}
	s := ms.service.NewSession("", ms.transport)
	defer s.Close()
	fn(s)
}

func (ms *MCPServer) callToolHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var env types.Envelope
	ms.withSession(ctx, func(s *Session) {
		env = s.CallTool(ctx, req.Params.Name, req.GetArguments())
	})
	return envelopeToResult(env)
}

func (ms *MCPServer) readResourceHandler(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var doc string
	ms.withSession(ctx, func(s *Session) {
		doc = s.ReadResource(ctx, req.Params.URI, nil)
	})
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: jsonMediaType,
			Text:     doc,
		},
	}, nil
}

func (ms *MCPServer) getPromptHandler(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	res, err := ms.service.renderer.Render(req.Params.Name, req.Params.Arguments)
	if err != nil {
		ms.service.logger.Error("failed to render prompt", zap.String("prompt", req.Params.Name), zap.Error(err))
		return nil, err
	}
	return res, nil
}

// envelopeToResult encodes an envelope as the single text part of a tool result.
func envelopeToResult(env types.Envelope) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	res := mcp.NewToolResultText(string(b))
	res.IsError = !env.Success
	return res, nil
}

// toRenderedPrompt converts a prompt result into its REST representation.
func toRenderedPrompt(res *mcp.GetPromptResult) *types.RenderedPrompt {
	out := &types.RenderedPrompt{
		Description: res.Description,
		Messages:    make([]types.PromptMessage, 0, len(res.Messages)),
	}
	for _, m := range res.Messages {
		text := ""
		if tc, ok := mcp.AsTextContent(m.Content); ok {
			text = tc.Text
		}
		out.Messages = append(out.Messages, types.PromptMessage{Role: string(m.Role), Text: text})
	}
	return out
}
