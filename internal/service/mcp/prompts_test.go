package mcp

import (
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptText(t *testing.T, res *mcp.GetPromptResult) string {
	t.Helper()
	require.Len(t, res.Messages, 1)
	assert.Equal(t, mcp.RoleUser, res.Messages[0].Role)
	tc, ok := mcp.AsTextContent(res.Messages[0].Content)
	require.True(t, ok)
	return tc.Text
}

func TestRendererProjectPlanning(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	res, err := r.Render(PromptProjectPlanning, map[string]string{"project_description": "a mobile app"})
	require.NoError(t, err)

	assert.Equal(t, "Project planning assistant for: a mobile app", res.Description)
	text := promptText(t, res)
	assert.True(t, strings.HasPrefix(text, "I need help planning a project: a mobile app"))
	assert.Contains(t, text, "task://pending")
}

func TestRendererDailyStandup(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	res, err := r.Render(PromptDailyStandup, map[string]string{"assignee_id": "7"})
	require.NoError(t, err)
	assert.Equal(t, "Daily standup report generator for assignee 7", res.Description)
	assert.True(t, strings.HasPrefix(promptText(t, res), "Generate a daily standup report for assignee 7.\n"))

	for _, args := range []map[string]string{nil, {"assignee_id": ""}, {"assignee_id": "  "}} {
		res, err = r.Render(PromptDailyStandup, args)
		require.NoError(t, err)
		assert.Equal(t, "Daily standup report generator", res.Description)
		text := promptText(t, res)
		assert.True(t, strings.HasPrefix(text, "Generate a daily standup report.\n"))
		assert.NotContains(t, text, "assignee")
	}
}

func TestRendererSprintPlanningDefaults(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	res, err := r.Render(PromptSprintPlanning, nil)
	require.NoError(t, err)
	assert.Equal(t, "Sprint planning for 14 days with 100 story points capacity", res.Description)
	text := promptText(t, res)
	assert.Contains(t, text, "- Duration: 14 days")
	assert.Contains(t, text, "- Team capacity: 100 story points")

	res, err = r.Render(PromptSprintPlanning, map[string]string{"sprint_duration": "10"})
	require.NoError(t, err)
	assert.Equal(t, "Sprint planning for 10 days with 100 story points capacity", res.Description)
}

func TestRendererUnknownPrompt(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	res, err := r.Render("write_poem", map[string]string{"topic": "tasks"})
	require.NoError(t, err)
	assert.Equal(t, "Unknown prompt", res.Description)
	assert.Equal(t, "Unknown prompt requested: write_poem", promptText(t, res))
}

func TestRendererCoversRegistry(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	for _, p := range NewRegistry().ListPrompts() {
		res, err := r.Render(p.Name, nil)
		require.NoError(t, err, p.Name)
		assert.NotEqual(t, "Unknown prompt", res.Description, p.Name)
	}
}
