package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/taskmcp/taskmcp/pkg/types"
)

const tasksPath = "/api/tasks"

// CreateTask sends the given fields verbatim as the body of a task-creation request.
func (c *Client) CreateTask(ctx context.Context, fields map[string]any) (*types.Task, error) {
	u, _ := c.constructAPIEndpoint(tasksPath)

	var task types.Task
	if err := c.sendJSON(ctx, http.MethodPost, u, fields, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask fetches a single task.
// The id is passed through to the backend unparsed, the backend is responsible for validating it.
func (c *Client) GetTask(ctx context.Context, id string) (*types.Task, error) {
	u, _ := c.constructAPIEndpoint(tasksPath + "/" + url.PathEscape(id))

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var task types.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	// a body without an id is not a task, eg- a task listing reached through a redirect
	if task.ID == 0 {
		return nil, fmt.Errorf("failed to decode response: backend returned no task for id '%s'", id)
	}
	return &task, nil
}

// ListTasks fetches one page of tasks.
// Every entry of filters becomes a query parameter; callers drop the ones they don't want sent.
func (c *Client) ListTasks(ctx context.Context, filters map[string]any) (*types.TaskList, error) {
	u, _ := c.constructAPIEndpoint(tasksPath)

	if len(filters) > 0 {
		q := url.Values{}
		for k, v := range filters {
			q.Set(k, FormatQueryValue(v))
		}
		u += "?" + q.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var list types.TaskList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if list.Tasks == nil {
		list.Tasks = []types.Task{}
	}
	return &list, nil
}

// UpdateTask sends a partial update. Only the keys present in fields are sent.
func (c *Client) UpdateTask(ctx context.Context, id string, fields map[string]any) (*types.Task, error) {
	u, _ := c.constructAPIEndpoint(tasksPath + "/" + url.PathEscape(id))

	var task types.Task
	if err := c.sendJSON(ctx, http.MethodPut, u, fields, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	u, _ := c.constructAPIEndpoint(tasksPath + "/" + url.PathEscape(id))

	req, err := c.newRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.parseErrorResponse(resp)
	}
	return nil
}

// BulkUpdateTasks applies the same update to every listed task in a single request.
// The backend reports a per-item outcome; a missing task is a failed item, not a failed request.
func (c *Client) BulkUpdateTasks(ctx context.Context, ids []any, update map[string]any) (*types.BulkOperationResult, error) {
	u, _ := c.constructAPIEndpoint(tasksPath + "/bulk-update")

	if update == nil {
		update = map[string]any{}
	}
	body := map[string]any{
		"task_ids": ids,
		"update":   update,
	}

	var result types.BulkOperationResult
	if err := c.sendJSON(ctx, http.MethodPost, u, body, &result); err != nil {
		return nil, err
	}
	if result.Results == nil {
		result.Results = []types.BulkItemResult{}
	}
	return &result, nil
}

// sendJSON marshals body, sends it and decodes a 200 response into out.
func (c *Client) sendJSON(ctx context.Context, method, u string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := c.newRequest(ctx, method, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// FormatQueryValue renders an argument value as a query parameter.
// JSON numbers arrive as float64; integral ones are printed without a fraction so that
// the backend's integer parsing accepts them.
func FormatQueryValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return FormatQueryValue(float64(val))
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
