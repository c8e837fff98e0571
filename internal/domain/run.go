package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunKindTrain   = "train"
	RunKindExecute = "execute"
)

// Run — одна сессия обучения или выполнения flow через удалённый
// планировщик. Задачи сессии записываются как Task с её RunID.
type Run struct {
	ID       uuid.UUID `json:"id"`
	FlowName string    `json:"flow_name"`

	// Kind — RunKindTrain или RunKindExecute.
	Kind   string    `json:"kind"`
	Status RunStatus `json:"status"`

	Stages int `json:"stages"`
	Chunks int `json:"chunks"`

	Span

	// Error заполнен только для FAILED.
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в статусе PENDING.
func NewRun(flowName, kind string, stages, chunks int) *Run {
	return &Run{
		ID:        uuid.New(),
		FlowName:  flowName,
		Kind:      kind,
		Status:    RunStatusPending,
		Stages:    stages,
		Chunks:    chunks,
		CreatedAt: time.Now(),
	}
}

// IsFinished сообщает, что run в терминальном статусе.
func (r *Run) IsFinished() bool { return r.Status.IsTerminal() }

func (r *Run) MarkRunning() {
	r.Status = RunStatusRunning
	r.start()
}

func (r *Run) MarkSucceeded() { r.end(RunStatusSucceeded, "") }

func (r *Run) MarkFailed(err string) { r.end(RunStatusFailed, err) }

// MarkCancelled закрывает run. Run, отменённый до старта, получает
// нулевую длительность.
func (r *Run) MarkCancelled() { r.end(RunStatusCancelled, "") }

func (r *Run) end(status RunStatus, err string) {
	r.Status = status
	r.Error = err
	r.finish()
}
