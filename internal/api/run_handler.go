package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/binet/internal/domain"
	"github.com/shaiso/binet/internal/repo"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ListRuns возвращает runs, новые первыми.
// GET /api/v1/runs?status=...&kind=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) error {
	filter, err := parseRunFilter(r.URL.Query())
	if err != nil {
		return err
	}

	runs, err := h.runs.List(r.Context(), filter)
	if err != nil {
		return err
	}

	out := make([]RunResponse, len(runs))
	for i, run := range runs {
		out[i] = RunFromDomain(run)
	}
	writeList(w, out)
	return nil
}

// GetRun возвращает run по ID вместе со счётчиками задач.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		return notFoundAs(err, "run not found")
	}
	counts, err := h.tasks.CountByRun(r.Context(), id)
	if err != nil {
		return err
	}

	resp := RunFromDomain(*run)
	resp.Tasks = make(map[string]int, len(counts))
	for status, n := range counts {
		resp.Tasks[string(status)] = n
	}
	writeData(w, resp)
	return nil
}

// ListRunTasks возвращает задачи run.
// GET /api/v1/runs/{id}/tasks
func (h *Handler) ListRunTasks(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	// несуществующий run — 404, а не пустой список
	if _, err := h.runs.GetByID(r.Context(), id); err != nil {
		return notFoundAs(err, "run not found")
	}

	tasks, err := h.tasks.ListByRunID(r.Context(), id)
	if err != nil {
		return err
	}

	out := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = TaskFromDomain(t)
	}
	writeList(w, out)
	return nil
}

func parseRunFilter(q url.Values) (repo.RunFilter, error) {
	filter := repo.RunFilter{Limit: defaultLimit}

	if s := q.Get("status"); s != "" {
		status, ok := domain.ParseRunStatus(s)
		if !ok {
			return filter, badRequest("invalid status %q", s)
		}
		filter.Status = status
	}

	switch kind := q.Get("kind"); kind {
	case "":
	case domain.RunKindTrain, domain.RunKindExecute:
		filter.Kind = kind
	default:
		return filter, badRequest("invalid kind %q", kind)
	}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			return filter, badRequest("invalid limit %q", s)
		}
		filter.Limit = min(limit, maxLimit)
	}

	if s := q.Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			return filter, badRequest("invalid offset %q", s)
		}
		filter.Offset = offset
	}
	return filter, nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid run id")
	}
	return id, nil
}
