package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/taskmcp/taskmcp/pkg/types"
)

// GetMetrics fetches task analytics. An empty timeframe lets the backend pick its default.
func (c *Client) GetMetrics(ctx context.Context, timeframe string) (*types.TaskMetrics, error) {
	u, _ := c.constructAPIEndpoint("/api/analytics/metrics")
	if timeframe != "" {
		u += "?" + url.Values{"timeframe": []string{timeframe}}.Encode()
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

	var metrics types.TaskMetrics
	if err := json.NewDecoder(resp.Body).Decode(&metrics); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &metrics, nil
}

// Health checks that the backend is up.
func (c *Client) Health(ctx context.Context) (*types.ServerMetadata, error) {
	u, _ := c.constructAPIEndpoint("/")

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

	var m types.ServerMetadata
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &m, nil
}
