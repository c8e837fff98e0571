package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/binet/internal/domain"
)

// RunResponse — run в ответе API.
type RunResponse struct {
	ID         uuid.UUID  `json:"id"`
	FlowName   string     `json:"flow_name"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	Stages     int        `json:"stages"`
	Chunks     int        `json:"chunks"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DurationMS int64      `json:"duration_ms,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	// Tasks — число задач по статусам. Заполняется только в GetRun.
	Tasks map[string]int `json:"tasks,omitempty"`
}

// RunFromDomain собирает RunResponse без счётчиков задач.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:         r.ID,
		FlowName:   r.FlowName,
		Kind:       r.Kind,
		Status:     string(r.Status),
		Stages:     r.Stages,
		Chunks:     r.Chunks,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMS: r.Duration().Milliseconds(),
		Error:      r.Error,
		CreatedAt:  r.CreatedAt,
	}
}

// TaskResponse — задача run в ответе API.
type TaskResponse struct {
	ID         uuid.UUID  `json:"id"`
	RunID      uuid.UUID  `json:"run_id"`
	Kind       string     `json:"kind"`
	Stage      int        `json:"stage"`
	Phase      int        `json:"phase"`
	Chunk      int        `json:"chunk"`
	Attempt    int        `json:"attempt"`
	Status     string     `json:"status"`
	Worker     string     `json:"worker,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func TaskFromDomain(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:         t.ID,
		RunID:      t.RunID,
		Kind:       t.Kind,
		Stage:      t.Stage,
		Phase:      t.Phase,
		Chunk:      t.Chunk,
		Attempt:    t.Attempt,
		Status:     string(t.Status),
		Worker:     t.Worker,
		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
		Error:      t.Error,
		CreatedAt:  t.CreatedAt,
	}
}
