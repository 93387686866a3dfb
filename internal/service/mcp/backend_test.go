package mcp

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/taskmcp/taskmcp/client"
	"github.com/taskmcp/taskmcp/pkg/types"
)

// fakeBackend is an in-memory TaskBackend that records every call it receives.
type fakeBackend struct {
	mu sync.Mutex

	tasks  map[string]*types.Task
	nextID int64

	// err, when set, is returned by every call
	err error
	// bulkResult, when set, is returned by BulkUpdateTasks instead of a computed result
	bulkResult *types.BulkOperationResult

	calls      []string
	lastFields map[string]any
	lastIDs    []any
	lastFilter map[string]any
	lastFrame  string
	closed     int
}

func newFakeBackend(tasks ...types.Task) *fakeBackend {
	f := &fakeBackend{tasks: make(map[string]*types.Task), nextID: 1}
	for i := range tasks {
		t := tasks[i]
		f.tasks[client.FormatQueryValue(t.ID)] = &t
		if t.ID >= f.nextID {
			f.nextID = t.ID + 1
		}
	}
	return f
}

func (f *fakeBackend) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) CreateTask(ctx context.Context, fields map[string]any) (*types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create")
	f.lastFields = fields
	if f.err != nil {
		return nil, f.err
	}
	title, _ := fields["title"].(string)
	t := &types.Task{ID: f.nextID, Title: title, Status: types.TaskStatusPending, Priority: types.TaskPriorityMedium}
	f.tasks[client.FormatQueryValue(t.ID)] = t
	f.nextID++
	return t, nil
}

func (f *fakeBackend) GetTask(ctx context.Context, id string) (*types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get " + id)
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, &client.APIError{StatusCode: http.StatusNotFound, Message: "Task not found"}
	}
	return t, nil
}

func (f *fakeBackend) ListTasks(ctx context.Context, filters map[string]any) (*types.TaskList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list")
	f.lastFilter = filters
	if f.err != nil {
		return nil, f.err
	}
	status, _ := filters["status"].(string)
	list := &types.TaskList{Tasks: []types.Task{}, Limit: types.DefaultListLimit}
	for i := int64(1); i < f.nextID; i++ {
		t, ok := f.tasks[client.FormatQueryValue(i)]
		if !ok || (status != "" && string(t.Status) != status) {
			continue
		}
		list.Tasks = append(list.Tasks, *t)
	}
	list.Total = int64(len(list.Tasks))
	return list, nil
}

func (f *fakeBackend) UpdateTask(ctx context.Context, id string, fields map[string]any) (*types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update " + id)
	f.lastFields = fields
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, &client.APIError{StatusCode: http.StatusNotFound, Message: "Task not found"}
	}
	if title, ok := fields["title"].(string); ok {
		t.Title = title
	}
	if status, ok := fields["status"].(string); ok {
		t.Status = types.TaskStatus(status)
	}
	return t, nil
}

func (f *fakeBackend) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete " + id)
	if f.err != nil {
		return f.err
	}
	if _, ok := f.tasks[id]; !ok {
		return &client.APIError{StatusCode: http.StatusNotFound, Message: "Task not found"}
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeBackend) BulkUpdateTasks(
	ctx context.Context, ids []any, update map[string]any,
) (*types.BulkOperationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("bulk")
	f.lastIDs = ids
	f.lastFields = update
	if f.err != nil {
		return nil, f.err
	}
	if f.bulkResult != nil {
		return f.bulkResult, nil
	}
	res := &types.BulkOperationResult{Results: []types.BulkItemResult{}}
	for _, raw := range ids {
		id := client.FormatQueryValue(raw)
		n, _ := raw.(float64)
		if _, ok := f.tasks[id]; ok {
			res.Add(types.BulkItemResult{ID: int64(n), Status: types.BulkItemSuccess})
		} else {
			res.Add(types.BulkItemResult{ID: int64(n), Status: types.BulkItemError, Error: "Task not found"})
		}
	}
	return res, nil
}

func (f *fakeBackend) GetMetrics(ctx context.Context, timeframe string) (*types.TaskMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("metrics")
	f.lastFrame = timeframe
	if f.err != nil {
		return nil, f.err
	}
	if timeframe == "" {
		timeframe = types.DefaultTimeframe
	}
	return &types.TaskMetrics{
		Timeframe:  timeframe,
		TotalTasks: int64(len(f.tasks)),
		ByStatus:   map[string]int64{},
		ByPriority: map[string]int64{},
	}, nil
}

func (f *fakeBackend) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeBackend) callLog() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.calls, ",")
}

func (f *fakeBackend) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func sampleTasks() []types.Task {
	return []types.Task{
		{ID: 1, Title: "Write docs", Status: types.TaskStatusPending, Priority: types.TaskPriorityHigh},
		{ID: 2, Title: "Ship release", Status: types.TaskStatusCompleted, Priority: types.TaskPriorityCritical},
		{ID: 3, Title: "Review PR", Status: types.TaskStatusPending, Priority: types.TaskPriorityLow},
	}
}
