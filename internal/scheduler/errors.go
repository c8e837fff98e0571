package scheduler

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrSchedulerClosed — Submit после Shutdown.
	ErrSchedulerClosed = errors.New("scheduler is closed")

	// ErrUnknownHandle — Collect по handle, который планировщик не выдавал
	// или уже вернул.
	ErrUnknownHandle = errors.New("unknown task handle")

	// ErrTaskPanic — задача завершилась паникой.
	ErrTaskPanic = errors.New("task panicked")
)

// TaskError — задача вернула ошибку.
type TaskError struct {
	TaskID uuid.UUID
	Kind   string
	Err    error
}

// Error реализует интерфейс error.
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s (%s) failed: %v", e.TaskID, e.Kind, e.Err)
}

// Unwrap возвращает ошибку задачи.
func (e *TaskError) Unwrap() error {
	return e.Err
}
