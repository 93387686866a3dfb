package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskmcp/taskmcp/pkg/types"
)

func TestNewMCPService(t *testing.T) {
	tests := []struct {
		name        string
		conf        *ServiceConfig
		expectError bool
	}{
		{
			name:        "nil backend factory",
			conf:        &ServiceConfig{},
			expectError: true,
		},
		{
			name: "defaults",
			conf: &ServiceConfig{NewBackend: func() TaskBackend { return newFakeBackend() }},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewMCPService(tt.conf)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc.Registry())
			assert.NotNil(t, svc.logger)
			assert.NotNil(t, svc.metrics)
			assert.Equal(t, "task-management-mcp", svc.serverName)
			assert.Equal(t, "1.0.0", svc.serverVersion)
		})
	}
}

func TestMCPServiceOneShotCalls(t *testing.T) {
	backend := newFakeBackend(sampleTasks()...)
	svc := newTestService(t, backend)
	ctx := context.Background()

	env := svc.InvokeTool(ctx, ToolSearchTasks, map[string]any{"priority": "low"})
	require.True(t, env.Success)
	assert.Equal(t, map[string]any{"priority": "low"}, backend.lastFilter)

	doc := svc.ReadResource(ctx, ResourceMetrics, map[string]any{"timeframe": "day"})
	assert.Contains(t, doc, `"timeframe": "day"`)

	// each one-shot call opens and releases its own session
	assert.Equal(t, 2, backend.closeCount())
}

func TestMCPServiceRenderPrompt(t *testing.T) {
	svc := newTestService(t, newFakeBackend())

	p, err := svc.RenderPrompt(PromptDailyStandup, map[string]string{"assignee_id": "3"})
	require.NoError(t, err)
	assert.Equal(t, "Daily standup report generator for assignee 3", p.Description)
	require.Len(t, p.Messages, 1)
	assert.Equal(t, "user", p.Messages[0].Role)
	assert.Contains(t, p.Messages[0].Text, "for assignee 3.")
}

func TestMCPServiceRESTViews(t *testing.T) {
	svc := newTestService(t, newFakeBackend())

	tools := svc.ListTools()
	require.Len(t, tools, 5)
	assert.Equal(t, ToolCreateTask, tools[0].Name)
	assert.Equal(t, "object", tools[0].InputSchema.Type)
	assert.Contains(t, tools[0].InputSchema.Properties, "title")

	tool, err := svc.GetTool(ToolBulkUpdateTasks)
	require.NoError(t, err)
	assert.Equal(t, []string{"task_ids"}, tool.InputSchema.Required)

	_, err = svc.GetTool("launch_rocket")
	assert.Error(t, err)

	prompts := svc.ListPrompts()
	require.Len(t, prompts, 4)
	assert.Equal(t, []types.PromptArgument{
		{Name: "sprint_duration", Description: "Duration of the sprint in days", Required: true},
		{Name: "team_capacity", Description: "Team capacity in story points", Required: true},
	}, prompts[3].Arguments)
	assert.NotNil(t, prompts[1].Arguments)

	prompt, err := svc.GetPrompt(PromptDailyStandup)
	require.NoError(t, err)
	require.Len(t, prompt.Arguments, 1)
	assert.False(t, prompt.Arguments[0].Required)

	_, err = svc.GetPrompt("retro")
	assert.Error(t, err)

	assert.Equal(t, "task-management-mcp", svc.ServerName())

	assert.Len(t, svc.ListResources(), 5)
}
