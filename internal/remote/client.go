package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenSource yields the current bearer token; empty means anonymous.
type TokenSource func() string

// Client is the HTTP implementation of Gateway.
type Client struct {
	BaseURL    string
	APIKey     string
	Token      TokenSource
	HTTPClient *http.Client
	Timeout    time.Duration
}

var _ Gateway = (*Client)(nil)

// New creates a client with sane defaults.
func New(baseURL, apiKey string, token TokenSource) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Token:      token,
		Timeout:    30 * time.Second,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) FetchDashboard(ctx context.Context) (DashboardSnapshot, error) {
	var resp DashboardSnapshot
	err := c.do(ctx, http.MethodGet, "v1/dashboard", nil, &resp)
	return resp, err
}

func (c *Client) FetchAgents(ctx context.Context) ([]AgentRecord, error) {
	var resp struct {
		Items []AgentRecord `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "v1/agents", nil, &resp)
	return resp.Items, err
}

func (c *Client) FetchTasks(ctx context.Context) ([]TaskRecord, error) {
	var resp struct {
		Items []TaskRecord `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "v1/tasks", nil, &resp)
	return resp.Items, err
}

func (c *Client) FetchMessages(ctx context.Context, threadID string) ([]MessageRecord, error) {
	var resp struct {
		Items []MessageRecord `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("v1/messages", "thread_id", threadID), nil, &resp)
	return resp.Items, err
}

func (c *Client) FetchKPIs(ctx context.Context, category string) ([]KPIRecord, error) {
	var resp struct {
		Items []KPIRecord `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("v1/kpis", "category", category), nil, &resp)
	return resp.Items, err
}

func (c *Client) FetchGoals(ctx context.Context) ([]GoalRecord, error) {
	var resp struct {
		Items []GoalRecord `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "v1/goals", nil, &resp)
	return resp.Items, err
}

func (c *Client) FetchActivity(ctx context.Context, limit int) ([]ActivityRecord, error) {
	endpoint := "v1/activity"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp struct {
		Items []ActivityRecord `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) FetchFeatureRequests(ctx context.Context, status string) ([]FeatureRequestRecord, error) {
	var resp struct {
		Items []FeatureRequestRecord `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("v1/feature-requests", "status", status), nil, &resp)
	return resp.Items, err
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id, status string) error {
	body := map[string]any{"status": status}
	return c.do(ctx, http.MethodPatch, entityPath("tasks", id, "status"), body, nil)
}

func (c *Client) CreateTask(ctx context.Context, rec TaskRecord) (Created, error) {
	var resp Created
	err := c.do(ctx, http.MethodPost, "v1/tasks", rec, &resp)
	return resp, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, p Patch) error {
	return c.do(ctx, http.MethodPatch, entityPath("tasks", id), p, nil)
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, entityPath("tasks", id), nil, nil)
}

func (c *Client) SpawnAgent(ctx context.Context, rec AgentRecord) (Created, error) {
	var resp Created
	err := c.do(ctx, http.MethodPost, "v1/agents", rec, &resp)
	return resp, err
}

func (c *Client) UpdateAgent(ctx context.Context, id string, p Patch) error {
	return c.do(ctx, http.MethodPatch, entityPath("agents", id), p, nil)
}

func (c *Client) UpdateKPI(ctx context.Context, id, value string) error {
	body := map[string]any{"value": value}
	return c.do(ctx, http.MethodPatch, entityPath("kpis", id), body, nil)
}

func (c *Client) CreateProject(ctx context.Context, rec ProjectRecord) (Created, error) {
	var resp Created
	err := c.do(ctx, http.MethodPost, "v1/projects", rec, &resp)
	return resp, err
}

func (c *Client) UpdateProject(ctx context.Context, id string, p Patch) error {
	return c.do(ctx, http.MethodPatch, entityPath("projects", id), p, nil)
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, entityPath("projects", id), nil, nil)
}

func (c *Client) CreateDirective(ctx context.Context, rec DirectiveRecord) (Created, error) {
	var resp Created
	err := c.do(ctx, http.MethodPost, "v1/directives", rec, &resp)
	return resp, err
}

func (c *Client) CreateGoal(ctx context.Context, rec GoalRecord) (Created, error) {
	var resp Created
	err := c.do(ctx, http.MethodPost, "v1/goals", rec, &resp)
	return resp, err
}

func (c *Client) UpdateGoal(ctx context.Context, id string, p Patch) error {
	return c.do(ctx, http.MethodPatch, entityPath("goals", id), p, nil)
}

func (c *Client) DeleteGoal(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, entityPath("goals", id), nil, nil)
}

func (c *Client) CreateFeatureRequest(ctx context.Context, rec FeatureRequestRecord) (Created, error) {
	var resp Created
	err := c.do(ctx, http.MethodPost, "v1/feature-requests", rec, &resp)
	return resp, err
}

func (c *Client) UpdateFeatureRequest(ctx context.Context, id string, p Patch) error {
	return c.do(ctx, http.MethodPatch, entityPath("feature-requests", id), p, nil)
}

func (c *Client) DeleteFeatureRequest(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, entityPath("feature-requests", id), nil, nil)
}

// SendMessage posts one chat turn. An empty threadID starts a new conversation.
func (c *Client) SendMessage(ctx context.Context, content, threadID string) (ChatReply, error) {
	body := map[string]any{"message": content}
	if threadID != "" {
		body["thread_id"] = threadID
	}
	var resp ChatReply
	err := c.do(ctx, http.MethodPost, "v1/chat", body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("apikey", c.APIKey)
	}
	if c.Token != nil {
		if tok := c.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

func entityPath(kind, id string, sub ...string) string {
	p := fmt.Sprintf("v1/%s/%s", kind, url.PathEscape(id))
	for _, s := range sub {
		p += "/" + s
	}
	return p
}

func withQuery(endpoint, key, value string) string {
	if value == "" {
		return endpoint
	}
	return fmt.Sprintf("%s?%s=%s", endpoint, key, url.QueryEscape(value))
}
