package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"switchyard/internal/api"
)

const defaultTimeout = 10 * time.Second

// StatusClient reads the HTTP status endpoints of a switchyard server.
type StatusClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewStatusClient creates a client for the server at baseURL, e.g.
// "http://localhost:8095".
func NewStatusClient(baseURL string) *StatusClient {
	return &StatusClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Status fetches /status.
func (c *StatusClient) Status(ctx context.Context) (*api.SystemStatus, error) {
	var status api.SystemStatus
	code, err := c.getJSON(ctx, "/status", &status)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s/status", code, c.baseURL)
	}
	return &status, nil
}

// Ready reports whether basic chat can be served. A reachable server that is
// still starting returns false without an error.
func (c *StatusClient) Ready(ctx context.Context) (bool, error) {
	var body struct {
		BasicReady bool `json:"basicReady"`
	}
	code, err := c.getJSON(ctx, "/readyz", &body)
	if err != nil {
		return false, err
	}
	switch code {
	case http.StatusOK, http.StatusServiceUnavailable:
		return body.BasicReady, nil
	default:
		return false, fmt.Errorf("unexpected status %d from %s/readyz", code, c.baseURL)
	}
}

func (c *StatusClient) getJSON(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, ClassifyConnectionError(err, c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return resp.StatusCode, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding %s: %w", path, err)
	}
	return resp.StatusCode, nil
}
