package promptboardsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Promptboard HTTP API client. Login and Register store
// the session token on the client.
type Client struct {
	BaseURL      string
	SessionToken string
	HTTPClient   *http.Client
	Timeout      time.Duration
}

// New creates a client for baseURL, e.g. "http://127.0.0.1:8080/api".
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 20 * time.Second,
	}
}

// Plan is the UI decision returned for a request.
type Plan struct {
	ShowKanban           bool   `json:"showKanban"`
	FilterStatus         string `json:"filterStatus"`
	ShowPrioritySelector bool   `json:"showPrioritySelector"`
	ShowTeamAssignment   bool   `json:"showTeamAssignment"`
}

// Interpretation is a plan with processing metadata.
type Interpretation struct {
	Plan
	Timestamp        string `json:"timestamp"`
	InputLength      int    `json:"inputLength"`
	ProcessingMethod string `json:"processingMethod"`
	HistoryID        string `json:"historyId,omitempty"`
}

type Session struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
	ExpiresAt string `json:"expiresAt"`
}

type Task struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Status     string  `json:"status"`
	Priority   string  `json:"priority"`
	AssigneeID *string `json:"assigneeId,omitempty"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

// TaskPatch holds the fields to change; nil fields are left alone and an
// empty AssigneeID clears the assignee.
type TaskPatch struct {
	Title      *string `json:"title,omitempty"`
	Status     *string `json:"status,omitempty"`
	Priority   *string `json:"priority,omitempty"`
	AssigneeID *string `json:"assigneeId,omitempty"`
}

type HistoryEntry struct {
	ID               string `json:"id"`
	Prompt           string `json:"prompt"`
	Plan             Plan   `json:"plan"`
	ProcessingMethod string `json:"processingMethod"`
	Applied          bool   `json:"applied"`
	CreatedAt        string `json:"createdAt"`
}

// ErrorBody mirrors the API error envelope.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
	Err        ErrorBody
}

func (e *APIError) Error() string {
	if e.Err.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Err.Code, e.Err.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Register creates an account and keeps its session token.
func (c *Client) Register(ctx context.Context, email, password string) (Session, error) {
	return c.startSession(ctx, "auth/register", email, password)
}

// Login starts a session and keeps its token.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	return c.startSession(ctx, "auth/login", email, password)
}

func (c *Client) startSession(ctx context.Context, endpoint, email, password string) (Session, error) {
	var resp struct {
		Session Session `json:"session"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return Session{}, err
	}
	c.SessionToken = resp.Session.Token
	return resp.Session, nil
}

// Logout ends the current session and forgets its token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "auth/logout", nil, nil); err != nil {
		return err
	}
	c.SessionToken = ""
	return nil
}

// Interpret asks for a plan. mode may be "", "llm" or "local".
func (c *Client) Interpret(ctx context.Context, input, mode string) (Interpretation, error) {
	body := map[string]any{"input": input}
	if mode != "" {
		body["mode"] = mode
	}
	var resp Interpretation
	err := c.do(ctx, http.MethodPost, "interpret-intent", body, &resp)
	return resp, err
}

// CreateTask creates a task; empty status and priority take server defaults.
func (c *Client) CreateTask(ctx context.Context, title, status, priority string) (Task, error) {
	body := map[string]any{"title": title}
	if status != "" {
		body["status"] = status
	}
	if priority != "" {
		body["priority"] = priority
	}
	var resp struct {
		Task Task `json:"task"`
	}
	err := c.do(ctx, http.MethodPost, "tasks", body, &resp)
	return resp.Task, err
}

// ListTasks lists tasks. status accepts task statuses and plan filter labels.
func (c *Client) ListTasks(ctx context.Context, status string) ([]Task, error) {
	endpoint := "tasks"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp struct {
		Tasks []Task `json:"tasks"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Tasks, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	var resp struct {
		Task Task `json:"task"`
	}
	err := c.do(ctx, http.MethodPut, "tasks/"+url.PathEscape(id), patch, &resp)
	return resp.Task, err
}

// History returns recent interpretations, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	endpoint := "intents/history"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp struct {
		Items []HistoryEntry `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) ApplyHistory(ctx context.Context, id string) (HistoryEntry, error) {
	var resp struct {
		Item HistoryEntry `json:"item"`
	}
	err := c.do(ctx, http.MethodPost, "intents/history/"+url.PathEscape(id)+"/apply", nil, &resp)
	return resp.Item, err
}

func (c *Client) DeleteHistory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "intents/history/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
		reader = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.SessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.SessionToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error ErrorBody `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Err = env.Error
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
