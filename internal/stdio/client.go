package stdio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DaemonClient is the HTTP client the stdio MCP server uses to
// delegate tool calls to the insightd daemon.
type DaemonClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDaemonClient creates a client for the daemon at baseURL
// (e.g. "http://localhost:9180").
func NewDaemonClient(baseURL string) *DaemonClient {
	return &DaemonClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// Post sends a JSON POST to the daemon and decodes the response into
// result. Non-2xx responses are returned as errors carrying the
// daemon's error message.
func (c *DaemonClient) Post(ctx context.Context, path string, request any, result any) error {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(request); err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

// Get sends a GET to the daemon and decodes the response into result.
func (c *DaemonClient) Get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	return c.do(req, result)
}

func (c *DaemonClient) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return daemonError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// daemonError extracts the daemon's {error: message} body when present.
func daemonError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, string(raw))
}
