package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RunResponse — run в ответе API. CLI не импортирует internal/api, поэтому
// поля повторяют api.RunResponse.
type RunResponse struct {
	ID         string `json:"id"`
	FlowName   string `json:"flow_name"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Stages     int    `json:"stages"`
	Chunks     int    `json:"chunks"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`

	Tasks map[string]int `json:"tasks,omitempty"`
}

// TaskResponse — задача run в ответе API.
type TaskResponse struct {
	ID         string `json:"id"`
	RunID      string `json:"run_id"`
	Kind       string `json:"kind"`
	Stage      int    `json:"stage"`
	Phase      int    `json:"phase"`
	Chunk      int    `json:"chunk"`
	Attempt    int    `json:"attempt"`
	Status     string `json:"status"`
	Worker     string `json:"worker,omitempty"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// ListRunsOpts — фильтр runs. Нулевые поля не передаются.
type ListRunsOpts struct {
	Status string
	Kind   string
	Limit  int
	Offset int
}

func (o ListRunsOpts) query() url.Values {
	q := url.Values{}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.Kind != "" {
		q.Set("kind", o.Kind)
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	return q
}

// APIError — ошибка, которую вернул сервер.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: HTTP %d", e.Status)
	}
	return e.Code + ": " + e.Message
}

// Client читает журнал через HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient создаёт Client. Завершающий слэш в baseURL не важен.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ListRuns возвращает runs по фильтру.
func (c *Client) ListRuns(ctx context.Context, opts ListRunsOpts) ([]RunResponse, error) {
	return fetch[[]RunResponse](ctx, c, "/api/v1/runs", opts.query())
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(ctx context.Context, id string) (*RunResponse, error) {
	run, err := fetch[RunResponse](ctx, c, "/api/v1/runs/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListTasks возвращает задачи run.
func (c *Client) ListTasks(ctx context.Context, runID string) ([]TaskResponse, error) {
	return fetch[[]TaskResponse](ctx, c, "/api/v1/runs/"+url.PathEscape(runID)+"/tasks", nil)
}

// fetch выполняет GET и достаёт поле data из ответа. Списки и одиночные
// объекты API заворачивает одинаково.
func fetch[T any](ctx context.Context, c *Client, path string, q url.Values) (T, error) {
	var zero T

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return zero, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return zero, decodeAPIError(resp)
	}

	var body struct {
		Data T `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return zero, fmt.Errorf("decode %s: %w", path, err)
	}
	return body.Data, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.NewDecoder(resp.Body).Decode(&body) == nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}
