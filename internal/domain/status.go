package domain

import "slices"

// RunStatus — статус сессии обучения или выполнения.
//
//	PENDING → RUNNING → SUCCEEDED | FAILED
//	PENDING | RUNNING → CANCELLED
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"

	// RunStatusCancelled — контекст отменён, например по сигналу.
	RunStatusCancelled RunStatus = "CANCELLED"
)

// RunStatuses — все статусы run в порядке жизненного цикла.
var RunStatuses = []RunStatus{
	RunStatusPending,
	RunStatusRunning,
	RunStatusSucceeded,
	RunStatusFailed,
	RunStatusCancelled,
}

// IsTerminal сообщает, что run завершён и больше не меняется.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed || s == RunStatusCancelled
}

// ParseRunStatus разбирает статус в верхнем регистре.
func ParseRunStatus(s string) (RunStatus, bool) {
	st := RunStatus(s)
	if !slices.Contains(RunStatuses, st) {
		return "", false
	}
	return st, true
}

// TaskStatus — статус задачи удалённого планировщика.
//
//	QUEUED → RUNNING → SUCCEEDED | FAILED
//
// Повторная доставка возвращает задачу в RUNNING с новой попыткой.
type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "QUEUED"
	TaskStatusRunning   TaskStatus = "RUNNING"
	TaskStatusSucceeded TaskStatus = "SUCCEEDED"

	// TaskStatusFailed прерывает фазу, к которой относится задача.
	TaskStatusFailed TaskStatus = "FAILED"
)

// TaskStatuses — все статусы задачи.
var TaskStatuses = []TaskStatus{
	TaskStatusQueued,
	TaskStatusRunning,
	TaskStatusSucceeded,
	TaskStatusFailed,
}

// IsTerminal сообщает, что задача завершена.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}
