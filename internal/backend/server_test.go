package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskmcp/taskmcp/internal/service/task"
	"github.com/taskmcp/taskmcp/pkg/testhelpers"
	"github.com/taskmcp/taskmcp/pkg/types"
)

func newTestServer(t *testing.T) (*Server, *task.TaskService) {
	t.Helper()
	svc := task.NewTaskService(testhelpers.CreateTestDB(t), nil)
	s, err := NewServer(&ServerOptions{TaskService: svc})
	require.NoError(t, err)
	return s, svc
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestNewServerRequiresTaskService(t *testing.T) {
	_, err := NewServer(&ServerOptions{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/", "/health"} {
		w := doRequest(t, s, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		m := decode[types.ServerMetadata](t, w)
		assert.Equal(t, "healthy", m.Status)
		assert.Equal(t, ServiceName, m.Service)
	}
}

func TestCreateTask(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"title":    "Write docs",
		"priority": "high",
		"due_date": "2025-06-01T12:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[types.Task](t, w)
	assert.NotZero(t, created.ID)
	assert.Equal(t, types.TaskStatusPending, created.Status)
	assert.Equal(t, types.TaskPriorityHigh, created.Priority)
	assert.Nil(t, created.Description)

	tests := []struct {
		name string
		body any
	}{
		{"missing title", map[string]any{"priority": "low"}},
		{"empty title", map[string]any{"title": ""}},
		{"bad priority", map[string]any{"title": "x", "priority": "urgent"}},
		{"bad due date", map[string]any{"title": "x", "due_date": "tomorrow"}},
		{"malformed json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, http.MethodPost, "/api/tasks", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.NotEmpty(t, decode[map[string]any](t, w)["detail"])
		})
	}
}

func TestGetTask(t *testing.T) {
	s, svc := newTestServer(t)
	created, err := svc.CreateTask(context.Background(), &types.CreateTaskInput{Title: "a"})
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodGet, "/api/tasks/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[types.Task](t, w).ID)

	w = doRequest(t, s, http.MethodGet, "/api/tasks/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Task not found", decode[map[string]any](t, w)["detail"])

	w = doRequest(t, s, http.MethodGet, "/api/tasks/abc", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListTasks(t *testing.T) {
	s, svc := newTestServer(t)
	_, err := svc.SeedIfEmpty(context.Background())
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[types.TaskList](t, w)
	assert.Equal(t, int64(5), list.Total)
	assert.Equal(t, types.DefaultListLimit, list.Limit)
	assert.False(t, list.HasMore)

	w = doRequest(t, s, http.MethodGet, "/api/tasks?priority=high&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = decode[types.TaskList](t, w)
	assert.Equal(t, int64(3), list.Total)
	assert.Len(t, list.Tasks, 2)
	assert.True(t, list.HasMore)

	for _, q := range []string{"status=done", "limit=0", "limit=101", "offset=-1", "assignee_id=x"} {
		t.Run(q, func(t *testing.T) {
			w := doRequest(t, s, http.MethodGet, "/api/tasks?"+q, nil)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		})
	}
}

func TestUpdateTask(t *testing.T) {
	s, svc := newTestServer(t)
	assignee := int64(4)
	_, err := svc.CreateTask(context.Background(), &types.CreateTaskInput{Title: "a", AssigneeID: &assignee})
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodPut, "/api/tasks/1", `{"status":"in_progress","assignee_id":null}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[types.Task](t, w)
	assert.Equal(t, types.TaskStatusInProgress, updated.Status)
	assert.Nil(t, updated.AssigneeID)
	assert.Equal(t, "a", updated.Title)

	w = doRequest(t, s, http.MethodPut, "/api/tasks/1", `{"title":null}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// unknown keys are ignored whether or not they are null
	w = doRequest(t, s, http.MethodPut, "/api/tasks/1", `{"foo":null,"bar":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, types.TaskStatusInProgress, decode[types.Task](t, w).Status)

	w = doRequest(t, s, http.MethodPut, "/api/tasks/1", `{"status":"done"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doRequest(t, s, http.MethodPut, "/api/tasks/42", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteTask(t *testing.T) {
	s, svc := newTestServer(t)
	_, err := svc.CreateTask(context.Background(), &types.CreateTaskInput{Title: "a"})
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodDelete, "/api/tasks/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[types.DeleteTaskResult](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, "Task 1 deleted", res.Message)

	w = doRequest(t, s, http.MethodDelete, "/api/tasks/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBulkUpdateTasks(t *testing.T) {
	s, svc := newTestServer(t)
	_, err := svc.SeedIfEmpty(context.Background())
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodPost, "/api/tasks/bulk-update", map[string]any{
		"task_ids": []int64{1, 99, 2},
		"update":   map[string]any{"status": "completed", "description": nil},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[types.BulkOperationResult](t, w)
	require.NoError(t, res.Validate())
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, []int64{1, 99, 2}, []int64{res.Results[0].ID, res.Results[1].ID, res.Results[2].ID})
	assert.Equal(t, "Task not found", res.Results[1].Error)

	got, err := svc.GetTask(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusCompleted, got.Status)
	assert.Nil(t, got.Description)

	w = doRequest(t, s, http.MethodPost, "/api/tasks/bulk-update", map[string]any{
		"task_ids": []int64{1},
		"update":   map[string]any{"priority": "urgent"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doRequest(t, s, http.MethodPost, "/api/tasks/bulk-update", map[string]any{"update": map[string]any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestMetrics(t *testing.T) {
	s, svc := newTestServer(t)
	_, err := svc.SeedIfEmpty(context.Background())
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodGet, "/api/analytics/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	m := decode[types.TaskMetrics](t, w)
	assert.Equal(t, types.DefaultTimeframe, m.Timeframe)
	assert.Equal(t, int64(5), m.TotalTasks)
	assert.Equal(t, int64(3), m.ByPriority["high"])

	w = doRequest(t, s, http.MethodGet, "/api/analytics/metrics?timeframe=year", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "year", decode[types.TaskMetrics](t, w).Timeframe)

	w = doRequest(t, s, http.MethodGet, "/api/analytics/metrics?timeframe=decade", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestNullFields(t *testing.T) {
	raw := map[string]json.RawMessage{
		"title":       json.RawMessage(`"x"`),
		"due_date":    json.RawMessage(`null`),
		"assignee_id": json.RawMessage(`null`),
		"foo":         json.RawMessage(`null`),
	}
	assert.Equal(t, []string{"assignee_id", "due_date"}, nullFields(raw))
	assert.Empty(t, nullFields(nil))
}
