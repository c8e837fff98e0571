package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task — запись о задаче удалённого планировщика. Планировщик создаёт её
// при Submit в QUEUED, воркер ведёт дальше.
type Task struct {
	// ID совпадает с ID задачи планировщика.
	ID    uuid.UUID `json:"id"`
	RunID uuid.UUID `json:"run_id"`

	// Kind — train, execute или bi-execute.
	Kind  string `json:"kind"`
	Stage int    `json:"stage"`
	Phase int    `json:"phase"`
	Chunk int    `json:"chunk"`

	// Attempt растёт с каждой доставкой сообщения воркеру.
	Attempt int        `json:"attempt"`
	Status  TaskStatus `json:"status"`
	Worker  string     `json:"worker,omitempty"`

	Span

	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsFinished сообщает, что задача в терминальном статусе.
func (t *Task) IsFinished() bool { return t.Status.IsTerminal() }

// MarkRunning фиксирует новую попытку на воркере worker.
func (t *Task) MarkRunning(worker string) {
	t.Status = TaskStatusRunning
	t.Worker = worker
	t.Attempt++
	t.Error = ""
	t.start()
}

func (t *Task) MarkSucceeded() {
	t.Status = TaskStatusSucceeded
	t.finish()
}

func (t *Task) MarkFailed(err string) {
	t.Status = TaskStatusFailed
	t.Error = err
	t.finish()
}
