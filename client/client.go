// Package client provides an HTTP client for the task backend API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every outbound call unless the caller supplies its own http.Client.
const DefaultTimeout = 30 * time.Second

// APIError is returned when the backend answered with a non-success status code.
// The message is the backend's error text, surfaced without interpretation.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status: %d, message: %s", e.StatusCode, e.Message)
}

// TransportError is returned when no response was received from the backend,
// eg- connection refused, DNS failure or timeout.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to send request to %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client is a thin HTTP client bound to the base URL of a task backend.
// A Client owns its connection pool; call Close once it is no longer needed.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a backend client.
// If httpClient is nil, a client with its own transport and DefaultTimeout is created,
// so that connection pools are never shared between two Clients.
func NewClient(baseURL, accessToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  httpClient,
	}
}

// NewHTTPClient returns an http.Client with a dedicated connection pool and the given timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	return &http.Client{Transport: tr, Timeout: timeout}
}

// SetRateLimit caps the number of requests per second this client sends.
// A non-positive rps removes the limit.
func (c *Client) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Close releases the idle connections held by the client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// constructAPIEndpoint returns the full URL of a backend path, eg- /api/tasks
func (c *Client) constructAPIEndpoint(suffixPath string) (string, error) {
	return url.JoinPath(c.baseURL, suffixPath)
}

// newRequest creates a new HTTP request with the access token attached, if one is configured.
func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends the request and converts connectivity failures into a TransportError.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, &TransportError{URL: req.URL.String(), Err: err}
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: req.URL.String(), Err: err}
	}
	return resp, nil
}

// parseErrorResponse turns a non-success response into an APIError.
// The backend's "detail" or "error" field is preferred, otherwise the raw body is used.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	msg := strings.TrimSpace(string(body))
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, key := range []string{"detail", "error"} {
			if s, ok := parsed[key].(string); ok && s != "" {
				msg = s
				break
			}
		}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
