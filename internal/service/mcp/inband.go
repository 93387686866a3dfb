package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const resourceScheme = "task://"

// inBandRequest holds the fields of a JSON-RPC request needed to route it before mcp-go sees it.
type inBandRequest struct {
	ID     mcp.RequestId `json:"id"`
	Method mcp.MCPMethod `json:"method"`
	Params struct {
		Name      string          `json:"name"`
		URI       string          `json:"uri"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"params"`
}

// parseInBand returns the request if it names a tool or prompt missing from the registry, or a
// resource URI outside the task:// scheme. mcp-go rejects those with a protocol error before any
// handler runs, while clients of this server expect the unknown_tool envelope, the placeholder
// prompt and the error document respectively.
func (ms *MCPServer) parseInBand(raw []byte) (*inBandRequest, bool) {
	var req inBandRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.ID.IsNil() {
		return nil, false
	}
	switch req.Method {
	case mcp.MethodToolsCall:
		_, ok := ms.service.registry.Tool(req.Params.Name)
		return &req, !ok
	case mcp.MethodPromptsGet:
		_, ok := ms.service.registry.Prompt(req.Params.Name)
		return &req, !ok
	case mcp.MethodResourcesRead:
		return &req, !strings.HasPrefix(req.Params.URI, resourceScheme)
	}
	return nil, false
}

// answer runs a request accepted by parseInBand on the given session.
func (ms *MCPServer) answer(ctx context.Context, s *Session, req *inBandRequest) mcp.JSONRPCMessage {
	var result any
	switch req.Method {
	case mcp.MethodToolsCall:
		// arguments of an unknown tool are never read
		var args map[string]any
		_ = json.Unmarshal(req.Params.Arguments, &args)
		res, err := envelopeToResult(s.CallTool(ctx, req.Params.Name, args))
		if err != nil {
			return mcp.NewJSONRPCError(req.ID, mcp.INTERNAL_ERROR, err.Error(), nil)
		}
		result = res
	case mcp.MethodPromptsGet:
		var args map[string]string
		_ = json.Unmarshal(req.Params.Arguments, &args)
		res, err := s.GetPrompt(req.Params.Name, args)
		if err != nil {
			ms.service.logger.Error("failed to render prompt", zap.String("prompt", req.Params.Name), zap.Error(err))
			return mcp.NewJSONRPCError(req.ID, mcp.INTERNAL_ERROR, err.Error(), nil)
		}
		result = res
	case mcp.MethodResourcesRead:
		result = &mcp.ReadResourceResult{
			Contents: []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      req.Params.URI,
					MIMEType: jsonMediaType,
					Text:     s.ReadResource(ctx, req.Params.URI, nil),
				},
			},
		}
	}
	return mcp.NewJSONRPCResultResponse(req.ID, result)
}

// HandleMessage answers requests for unknown tools, unknown prompts and non task:// resources
// itself and passes every other message to mcp-go.
func (ms *MCPServer) HandleMessage(ctx context.Context, raw json.RawMessage) mcp.JSONRPCMessage {
	req, ok := ms.parseInBand(raw)
	if !ok {
		return ms.MCPServer.HandleMessage(ctx, raw)
	}
	var resp mcp.JSONRPCMessage
	ms.withSession(ctx, func(s *Session) {
		resp = ms.answer(ctx, s, req)
	})
	return resp
}

// peekPost reads the body of a POST made on a registered session and restores it for the next
// handler. It reports the request if it must be answered in band.
func (ms *MCPServer) peekPost(r *http.Request, sessionID string) (*Session, *inBandRequest, error) {
	if r.Method != http.MethodPost {
		return nil, nil, nil
	}
	s, ok := ms.sessions.get(sessionID)
	if !ok {
		return nil, nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	req, ok := ms.parseInBand(body)
	if !ok {
		return nil, nil, nil
	}
	return s, req, nil
}

// StreamableHTTPHandler serves the streamable HTTP transport of this server.
func (ms *MCPServer) StreamableHTTPHandler(opts ...server.StreamableHTTPOption) http.Handler {
	next := server.NewStreamableHTTPServer(ms.MCPServer, opts...)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(server.HeaderKeySessionID)
		s, req, err := ms.peekPost(r, sessionID)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		if req == nil {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(server.HeaderKeySessionID, sessionID)
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(ms.answer(r.Context(), s, req)); err != nil {
			ms.service.logger.Debug("failed to write response", zap.Error(err))
		}
	})
}

// SSEHandlers returns the event stream and message endpoints of the SSE transport of this server.
// Responses answered in band are delivered over the event stream like any other response.
func (ms *MCPServer) SSEHandlers(opts ...server.SSEOption) (sse http.Handler, message http.Handler) {
	srv := server.NewSSEServer(ms.MCPServer, opts...)
	next := srv.MessageHandler()
	message = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("sessionId")
		s, req, err := ms.peekPost(r, sessionID)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		if req == nil {
			next.ServeHTTP(w, r)
			return
		}

		resp := ms.answer(context.WithoutCancel(r.Context()), s, req)
		if err := srv.SendEventToSession(sessionID, resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	return srv.SSEHandler(), message
}
