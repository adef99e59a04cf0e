// Package client provides a Go client library for the SmolMind API server.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// DefaultTimeout bounds every request. Turns wait on the model, so it is
// generous.
const DefaultTimeout = 5 * time.Minute

// Client communicates with the SmolMind API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new SmolMind API client pointing at the given base URL
// (e.g. "http://127.0.0.1:7118").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// doRequest builds and executes an HTTP request.
// If body is non-nil it is JSON-encoded and sent as the request body.
func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// doJSON executes a request, checks for a 2xx status, and JSON-decodes
// the response body into target (when target is non-nil).
func (c *Client) doJSON(method, path string, body interface{}, target interface{}) error {
	resp, err := c.doRequest(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(respBody))}
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error != "" {
			apiErr.Message = envelope.Error
		}
		return apiErr
	}

	if target != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}

func sessionPath(name string, suffix string) string {
	return "/api/v1/sessions/" + url.PathEscape(name) + suffix
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// Healthz checks whether the API server is healthy.
func (c *Client) Healthz() error {
	resp, err := c.doRequest(http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("healthz failed (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Catalogue
// ---------------------------------------------------------------------------

// ListAgents returns every agent profile with its routing keywords.
func (c *Client) ListAgents() ([]v1alpha1.AgentInfo, error) {
	var out []v1alpha1.AgentInfo
	if err := c.doJSON(http.MethodGet, "/api/v1/agents", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTools returns the registered tools sorted by name.
func (c *Client) ListTools() ([]v1alpha1.ToolInfo, error) {
	var out []v1alpha1.ToolInfo
	if err := c.doJSON(http.MethodGet, "/api/v1/tools", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CallTool invokes a tool directly on the server.
func (c *Client) CallTool(name string, args map[string]any) (*v1alpha1.ToolCallResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	var out v1alpha1.ToolCallResult
	path := "/api/v1/tools/" + url.PathEscape(name) + "/call"
	if err := c.doJSON(http.MethodPost, path, args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// CreateSession starts a conversation. An empty name lets the server pick one.
func (c *Client) CreateSession(name string) (*v1alpha1.Conversation, error) {
	var out v1alpha1.Conversation
	if err := c.doJSON(http.MethodPost, "/api/v1/sessions", v1alpha1.SessionRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSession retrieves a conversation with its full history.
func (c *Client) GetSession(name string) (*v1alpha1.Conversation, error) {
	var out v1alpha1.Conversation
	if err := c.doJSON(http.MethodGet, sessionPath(name, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessions returns every conversation, most recently updated first.
func (c *Client) ListSessions() ([]v1alpha1.SessionSummary, error) {
	var out []v1alpha1.SessionSummary
	if err := c.doJSON(http.MethodGet, "/api/v1/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSession removes a conversation.
func (c *Client) DeleteSession(name string) error {
	return c.doJSON(http.MethodDelete, sessionPath(name, ""), nil, nil)
}

// SendTurn submits one user input to a session and returns the agent's turn.
func (c *Client) SendTurn(name, text string) (*v1alpha1.Turn, error) {
	var out v1alpha1.Turn
	if err := c.doJSON(http.MethodPost, sessionPath(name, "/turns"), v1alpha1.TurnRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
