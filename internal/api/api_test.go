package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/binet/internal/domain"
	"github.com/shaiso/binet/internal/repo"
)

type memRuns struct {
	runs    []domain.Run
	err     error
	filters []repo.RunFilter
}

func (m *memRuns) GetByID(_ context.Context, id uuid.UUID) (*domain.Run, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.runs {
		if m.runs[i].ID == id {
			r := m.runs[i]
			return &r, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memRuns) List(_ context.Context, filter repo.RunFilter) ([]domain.Run, error) {
	m.filters = append(m.filters, filter)
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Run
	for _, r := range m.runs {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type memTasks struct {
	tasks []domain.Task
}

func (m *memTasks) ListByRunID(_ context.Context, runID uuid.UUID) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range m.tasks {
		if t.RunID == runID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTasks) CountByRun(_ context.Context, runID uuid.UUID) (map[domain.TaskStatus]int, error) {
	counts := make(map[domain.TaskStatus]int)
	for _, t := range m.tasks {
		if t.RunID == runID {
			counts[t.Status]++
		}
	}
	return counts, nil
}

func newTestServer(t *testing.T, runs *memRuns, tasks *memTasks) *httptest.Server {
	t.Helper()
	h := NewHandler(Config{
		Runs:   runs,
		Tasks:  tasks,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func fixture() (*memRuns, *memTasks) {
	train := domain.NewRun("sfa", domain.RunKindTrain, 3, 4)
	train.MarkRunning()
	train.MarkSucceeded()

	exec := domain.NewRun("sfa", domain.RunKindExecute, 3, 4)
	exec.MarkRunning()
	exec.MarkFailed("remote: boom")

	task := domain.Task{
		ID:        uuid.New(),
		RunID:     train.ID,
		Kind:      "train",
		Stage:     1,
		Phase:     0,
		Chunk:     2,
		Status:    domain.TaskStatusQueued,
		CreatedAt: time.Now(),
	}
	task.MarkRunning("worker-1")
	task.MarkSucceeded()

	return &memRuns{runs: []domain.Run{*train, *exec}}, &memTasks{tasks: []domain.Task{task}}
}

func TestListRuns(t *testing.T) {
	runs, tasks := fixture()
	srv := newTestServer(t, runs, tasks)

	var body struct {
		Data  []RunResponse `json:"data"`
		Total int           `json:"total"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/runs", &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body.Total != 2 || len(body.Data) != 2 {
		t.Fatalf("expected 2 runs, got %d (total %d)", len(body.Data), body.Total)
	}
	if runs.filters[0].Limit != defaultLimit {
		t.Errorf("expected default limit %d, got %d", defaultLimit, runs.filters[0].Limit)
	}
}

func TestListRuns_Filters(t *testing.T) {
	runs, tasks := fixture()
	srv := newTestServer(t, runs, tasks)

	var body struct {
		Data []RunResponse `json:"data"`
	}
	code := getJSON(t, srv.URL+"/api/v1/runs?status=FAILED&kind=execute&limit=10000&offset=1", &body)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(body.Data) != 1 || body.Data[0].Error != "remote: boom" {
		t.Fatalf("expected the failed execute run, got %+v", body.Data)
	}

	f := runs.filters[0]
	if f.Status != domain.RunStatusFailed || f.Kind != domain.RunKindExecute {
		t.Errorf("expected FAILED/execute filter, got %+v", f)
	}
	if f.Limit != maxLimit {
		t.Errorf("expected limit clamped to %d, got %d", maxLimit, f.Limit)
	}
	if f.Offset != 1 {
		t.Errorf("expected offset 1, got %d", f.Offset)
	}
}

func TestListRuns_BadQuery(t *testing.T) {
	runs, tasks := fixture()
	srv := newTestServer(t, runs, tasks)

	tests := []struct {
		name  string
		query string
	}{
		{"unknown status", "?status=DONE"},
		{"lowercase status", "?status=running"},
		{"unknown kind", "?kind=fit"},
		{"zero limit", "?limit=0"},
		{"text limit", "?limit=ten"},
		{"negative offset", "?offset=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body ErrorResponse
			code := getJSON(t, srv.URL+"/api/v1/runs"+tt.query, &body)
			if code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", code)
			}
			if body.Error.Code != ErrCodeBadRequest {
				t.Errorf("expected code %s, got %s", ErrCodeBadRequest, body.Error.Code)
			}
		})
	}
}

func TestGetRun(t *testing.T) {
	runs, tasks := fixture()
	srv := newTestServer(t, runs, tasks)
	want := runs.runs[0]

	var body struct {
		Data RunResponse `json:"data"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/runs/"+want.ID.String(), &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body.Data.ID != want.ID {
		t.Errorf("expected id %s, got %s", want.ID, body.Data.ID)
	}
	if body.Data.Status != string(domain.RunStatusSucceeded) {
		t.Errorf("expected SUCCEEDED, got %s", body.Data.Status)
	}
	if body.Data.Stages != 3 || body.Data.Chunks != 4 {
		t.Errorf("expected 3 stages and 4 chunks, got %d and %d", body.Data.Stages, body.Data.Chunks)
	}
	if got := body.Data.Tasks["SUCCEEDED"]; got != 1 {
		t.Errorf("expected 1 succeeded task, got %d (%v)", got, body.Data.Tasks)
	}
}

func TestGetRun_Errors(t *testing.T) {
	runs, tasks := fixture()
	srv := newTestServer(t, runs, tasks)

	if code := getJSON(t, srv.URL+"/api/v1/runs/not-a-uuid", nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid id, got %d", code)
	}

	var body ErrorResponse
	if code := getJSON(t, srv.URL+"/api/v1/runs/"+uuid.NewString(), &body); code != http.StatusNotFound {
		t.Errorf("expected 404 for missing run, got %d", code)
	}
	if body.Error.Message != "run not found" {
		t.Errorf("expected 'run not found', got %q", body.Error.Message)
	}

	runs.err = errors.New("connection reset")
	if code := getJSON(t, srv.URL+"/api/v1/runs/"+uuid.NewString(), &body); code != http.StatusInternalServerError {
		t.Errorf("expected 500 for store error, got %d", code)
	}
	if body.Error.Message != "internal server error" {
		t.Errorf("expected generic message, got %q", body.Error.Message)
	}
}

func TestListRunTasks(t *testing.T) {
	runs, tasks := fixture()
	srv := newTestServer(t, runs, tasks)

	var body struct {
		Data []TaskResponse `json:"data"`
	}
	url := srv.URL + "/api/v1/runs/" + runs.runs[0].ID.String() + "/tasks"
	if code := getJSON(t, url, &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(body.Data) != 1 {
		t.Fatalf("expected 1 task, got %d", len(body.Data))
	}
	got := body.Data[0]
	if got.Worker != "worker-1" || got.Attempt != 1 || got.Status != string(domain.TaskStatusSucceeded) {
		t.Errorf("unexpected task %+v", got)
	}

	url = srv.URL + "/api/v1/runs/" + runs.runs[1].ID.String() + "/tasks"
	if code := getJSON(t, url, &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(body.Data) != 0 {
		t.Errorf("expected no tasks, got %d", len(body.Data))
	}

	if code := getJSON(t, srv.URL+"/api/v1/runs/"+uuid.NewString()+"/tasks", nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for missing run, got %d", code)
	}
}

func TestToError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		known  bool
	}{
		{"api error", badRequest("invalid limit %q", "x"), http.StatusBadRequest, true},
		{"not found", fmt.Errorf("get run: %w", repo.ErrNotFound), http.StatusNotFound, true},
		{"finished run", fmt.Errorf("update run: %w", repo.ErrInvalidState), http.StatusUnprocessableEntity, true},
		{"other", errors.New("connection reset"), http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, known := toError(tt.err)
			if e.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, e.Status)
			}
			if known != tt.known {
				t.Errorf("expected known=%v, got %v", tt.known, known)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Chain(Recovery(logger), Logging(logger))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
