package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskmcp/taskmcp/pkg/types"
)

// newTestService returns a service whose sessions all share one fake backend.
func newTestService(t *testing.T, backend *fakeBackend) *MCPService {
	t.Helper()
	s, err := NewMCPService(&ServiceConfig{
		NewBackend: func() TaskBackend { return backend },
	})
	require.NoError(t, err)
	return s
}

func newInProcessClient(t *testing.T, ms *MCPServer) *mcpclient.Client {
	t.Helper()
	c, err := mcpclient.NewInProcessClient(ms.MCPServer)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Close() })

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "test-client", Version: "0.0.1"}
	_, err = c.Initialize(ctx, req)
	require.NoError(t, err)
	return c
}

func decodeEnvelope(t *testing.T, res *mcp.CallToolResult) types.Envelope {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)

	var env types.Envelope
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &env))
	return env
}

func TestMCPServerAdvertisesCapabilities(t *testing.T) {
	svc := newTestService(t, newFakeBackend())
	c := newInProcessClient(t, svc.NewMCPServer("test"))
	ctx := context.Background()

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	assert.Len(t, tools.Tools, 5)

	resources, err := c.ListResources(ctx, mcp.ListResourcesRequest{})
	require.NoError(t, err)
	var uris []string
	for _, r := range resources.Resources {
		uris = append(uris, r.URI)
	}
	assert.ElementsMatch(t, []string{ResourceList, ResourceMetrics, ResourcePending, ResourceCompleted}, uris)

	templates, err := c.ListResourceTemplates(ctx, mcp.ListResourceTemplatesRequest{})
	require.NoError(t, err)
	assert.Len(t, templates.ResourceTemplates, 2)

	prompts, err := c.ListPrompts(ctx, mcp.ListPromptsRequest{})
	require.NoError(t, err)
	assert.Len(t, prompts.Prompts, 4)
}

func TestMCPServerCallTool(t *testing.T) {
	backend := newFakeBackend(sampleTasks()...)
	svc := newTestService(t, backend)
	c := newInProcessClient(t, svc.NewMCPServer("test"))
	ctx := context.Background()

	req := mcp.CallToolRequest{}
	req.Params.Name = ToolUpdateTask
	req.Params.Arguments = map[string]any{"task_id": 1, "status": "in_progress"}
	res, err := c.CallTool(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	env := decodeEnvelope(t, res)
	assert.True(t, env.Success)
	assert.Equal(t, "Task 1 updated successfully", env.Message)

	req.Params.Arguments = map[string]any{"task_id": 404, "status": "in_progress"}
	res, err = c.CallTool(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	env = decodeEnvelope(t, res)
	assert.Equal(t, types.ErrorKindNotFound, env.ErrorKind)
	assert.Equal(t, "Task 404 not found", env.Error)

	// requests without a registered session run on a session of their own
	assert.Equal(t, 2, backend.closeCount())
}

func TestMCPServerReadResource(t *testing.T) {
	svc := newTestService(t, newFakeBackend(sampleTasks()...))
	c := newInProcessClient(t, svc.NewMCPServer("test"))
	ctx := context.Background()

	read := func(uri string) map[string]any {
		req := mcp.ReadResourceRequest{}
		req.Params.URI = uri
		res, err := c.ReadResource(ctx, req)
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		tc, ok := mcp.AsTextResourceContents(res.Contents[0])
		require.True(t, ok)
		assert.Equal(t, "application/json", tc.MIMEType)
		return decodeDocument(t, tc.Text)
	}

	assert.Len(t, read(ResourcePending)["tasks"], 2)
	assert.Equal(t, "Write docs", read("task://get/1")["title"])
	assert.Equal(t, map[string]any{"error": "Task 9 not found"}, read("task://get/9"))
	assert.Equal(t, map[string]any{"error": "Unknown resource: task://archive"}, read("task://archive"))
}

func TestMCPServerGetPrompt(t *testing.T) {
	svc := newTestService(t, newFakeBackend())
	c := newInProcessClient(t, svc.NewMCPServer("test"))

	req := mcp.GetPromptRequest{}
	req.Params.Name = PromptSprintPlanning
	req.Params.Arguments = map[string]string{"sprint_duration": "7", "team_capacity": "30"}
	res, err := c.GetPrompt(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Sprint planning for 7 days with 30 story points capacity", res.Description)
	assert.Contains(t, promptText(t, res), "- Team capacity: 30 story points")
}

func TestMCPServerSessionHooks(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)
	ms := svc.NewMCPServer("test")

	cs := newStreamSession()
	require.NoError(t, ms.RegisterSession(context.Background(), cs))

	s, ok := ms.Session(cs.SessionID())
	require.True(t, ok)
	assert.Equal(t, cs.SessionID(), s.ID())

	ms.UnregisterSession(context.Background(), cs.SessionID())
	_, ok = ms.Session(cs.SessionID())
	assert.False(t, ok)
	assert.Equal(t, 1, backend.closeCount())
}

func TestEnvelopeToResult(t *testing.T) {
	res, err := envelopeToResult(types.Failure(types.ErrorKindValidation, "bad input"))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	assert.Equal(t, "{\n  \"success\": false,\n  \"error\": \"bad input\",\n  \"error_kind\": \"validation\"\n}", tc.Text)
}
