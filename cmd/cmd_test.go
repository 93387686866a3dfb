package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskmcp/taskmcp/internal/backend"
	"github.com/taskmcp/taskmcp/internal/config"
	"github.com/taskmcp/taskmcp/internal/service/task"
	"github.com/taskmcp/taskmcp/pkg/testhelpers"
	"github.com/taskmcp/taskmcp/pkg/types"
)

// startTestBackend serves a seeded reference backend and returns its URL.
func startTestBackend(t *testing.T) string {
	t.Helper()
	taskService := task.NewTaskService(testhelpers.CreateTestDB(t), nil)
	_, err := taskService.SeedIfEmpty(context.Background())
	require.NoError(t, err)

	b, err := backend.NewServer(&backend.ServerOptions{TaskService: taskService})
	require.NoError(t, err)
	ts := httptest.NewServer(b.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// executeCommand runs the root command with args and returns what it wrote to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// keep the environment of the developer out of the test
	for _, v := range []string{
		config.ConfigFileEnvVar, config.TransportEnvVar, config.APIKeyEnvVar, config.LogLevelEnvVar,
		config.BackendTimeoutSecEnvVar, config.BackendRateLimitEnvVar,
	} {
		t.Setenv(v, "")
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), err
}

func findCommand(t *testing.T, name string) *cobra.Command {
	t.Helper()
	c, _, err := rootCmd.Find([]string{name})
	require.NoError(t, err)
	require.Equal(t, name, c.Name())
	return c
}

func TestCommandStructure(t *testing.T) {
	tests := []struct {
		name  string
		group subCommandGroup
		flags []string
	}{
		{"serve", subCommandGroupBasic, []string{"transport", "host", "port"}},
		{"list", subCommandGroupBasic, nil},
		{"usage", subCommandGroupBasic, nil},
		{"invoke", subCommandGroupBasic, []string{"input"}},
		{"read", subCommandGroupBasic, []string{"filter"}},
		{"render", subCommandGroupBasic, []string{"arg"}},
		{"backend", subCommandGroupAdvanced, []string{"port", "database-url", "no-seed"}},
		{"keygen", subCommandGroupAdvanced, nil},
		{"version", subCommandGroupAdvanced, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := findCommand(t, tt.name)
			assert.Equal(t, string(tt.group), c.GroupID)
			assert.NotEmpty(t, c.Short)
			for _, f := range tt.flags {
				assert.NotNil(t, c.Flags().Lookup(f), "missing flag --%s", f)
			}
		})
	}

	for _, f := range []string{"config", "backend-url", "log-level"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(f), "missing persistent flag --%s", f)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "taskmcp "), out)
}

func TestKeygenCommand(t *testing.T) {
	out, err := executeCommand(t, "keygen")
	require.NoError(t, err)
	key := strings.TrimSpace(out)
	assert.Len(t, key, 43)
	assert.NotContains(t, key, "=")
}

func TestListCommand(t *testing.T) {
	out, err := executeCommand(t, "list", "tools")
	require.NoError(t, err)
	for _, name := range []string{"create_task", "update_task", "delete_task", "bulk_update_tasks", "search_tasks"} {
		assert.Contains(t, out, name)
	}

	out, err = executeCommand(t, "list", "resources")
	require.NoError(t, err)
	assert.Contains(t, out, "task://get/{id}")

	out, err = executeCommand(t, "list", "prompts")
	require.NoError(t, err)
	assert.Contains(t, out, "sprint_planning sprint_duration team_capacity")
	assert.Contains(t, out, "daily_standup [assignee_id]")

	_, err = executeCommand(t, "list", "users")
	assert.Error(t, err)
}

func TestUsageCommand(t *testing.T) {
	out, err := executeCommand(t, "usage", "create_task")
	require.NoError(t, err)
	assert.Contains(t, out, "title (required)")
	assert.Contains(t, out, "priority (optional)")
	// properties are printed in name order
	assert.Less(t, strings.Index(out, "assignee_id"), strings.Index(out, "title"))

	out, err = executeCommand(t, "usage", "sprint_planning")
	require.NoError(t, err)
	assert.Contains(t, out, "* team_capacity (required)")

	_, err = executeCommand(t, "usage", "nope")
	assert.ErrorContains(t, err, "no tool or prompt named 'nope'")
}

func TestInvokeCommand(t *testing.T) {
	url := startTestBackend(t)

	out, err := executeCommand(t, "invoke", "create_task", "--backend-url", url,
		"--input", `{"title": "From the CLI", "priority": "critical"}`)
	require.NoError(t, err)
	var env types.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	assert.True(t, env.Success)
	require.NotNil(t, env.Task)
	assert.Equal(t, "From the CLI", env.Task.Title)

	out, err = executeCommand(t, "invoke", "delete_task", "--backend-url", url, "--input", `{"task_id": 404}`)
	assert.ErrorContains(t, err, "tool 'delete_task' failed")
	assert.Contains(t, out, `"error_kind": "not_found"`)

	_, err = executeCommand(t, "invoke", "create_task", "--backend-url", url, "--input", `[1, 2]`)
	assert.ErrorContains(t, err, "invalid input")
}

func TestInvokeBulkUpdateExample(t *testing.T) {
	url := startTestBackend(t)

	out, err := executeCommand(t, "invoke", "bulk_update_tasks", "--backend-url", url,
		"--input", `{"task_ids": [1, 2], "status": "completed"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Updated 2 out of 2 tasks")

	out, err = executeCommand(t, "invoke", "update_task", "--backend-url", url, "--input", `{"task_id": 1}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "completed"`)

	// a nested update object is not an argument of the tool
	out, err = executeCommand(t, "invoke", "bulk_update_tasks", "--backend-url", url,
		"--input", `{"task_ids": [1, 2], "update": {"status": "pending"}}`)
	assert.ErrorContains(t, err, "tool 'bulk_update_tasks' failed")
	assert.Contains(t, out, "unexpected argument: update")
}

func TestReadCommand(t *testing.T) {
	url := startTestBackend(t)

	out, err := executeCommand(t, "read", "task://get/2", "--backend-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "Create backend API")

	out, err = executeCommand(t, "read", "task://list", "--backend-url", url, "--filter", "priority=high")
	require.NoError(t, err)
	var list types.TaskList
	require.NoError(t, json.Unmarshal([]byte(out), &list), out)
	assert.EqualValues(t, 3, list.Total)
}

func TestResourceFilters(t *testing.T) {
	filters, err := resourceFilters(map[string]string{"status": "pending", "priority": "high", "limit": "5"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "pending", "priority": "high", "limit": "5"}, filters)

	_, err = resourceFilters(map[string]string{"priority": "urgent"})
	assert.ErrorContains(t, err, "invalid --filter priority: unsupported task priority: urgent")
}

func TestRenderCommand(t *testing.T) {
	out, err := executeCommand(t, "render", "sprint_planning", "--arg", "sprint_duration=14", "--arg", "team_capacity=40")
	require.NoError(t, err)
	assert.Contains(t, out, "[user]")
	assert.Contains(t, out, "14")
	assert.Contains(t, out, "40")

	out, err = executeCommand(t, "render", "retro")
	require.NoError(t, err)
	assert.Contains(t, out, "Unknown prompt requested: retro")
}

func TestServeRejectsBadTransport(t *testing.T) {
	_, err := executeCommand(t, "serve", "--transport", "websocket")
	assert.ErrorContains(t, err, "unsupported transport type")
}
