package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Task — самодостаточная единица работы.
type Task interface {
	ID() uuid.UUID
	// Kind — вид задачи (train, execute, bi-execute), для метрик и кодека.
	Kind() string
	Run(ctx context.Context) (any, error)
}

// Handle — квитанция на отправленную задачу.
type Handle struct {
	TaskID uuid.UUID
}

// Result — итог задачи.
type Result struct {
	TaskID uuid.UUID
	Value  any
	Err    error
}

// Scheduler — контракт планировщика.
type Scheduler interface {
	Submit(ctx context.Context, t Task) (Handle, error)
	// Collect ждёт все задачи из hs. Порядок результатов не определён.
	Collect(ctx context.Context, hs []Handle) ([]Result, error)
	Shutdown(ctx context.Context) error
}

// SubmitAll отправляет задачи по очереди и возвращает handles в том же порядке.
func SubmitAll(ctx context.Context, s Scheduler, tasks []Task) ([]Handle, error) {
	handles := make([]Handle, 0, len(tasks))
	for _, t := range tasks {
		h, err := s.Submit(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("submit task %s: %w", t.ID(), err)
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// ByID раскладывает результаты по TaskID.
func ByID(results []Result) map[uuid.UUID]Result {
	out := make(map[uuid.UUID]Result, len(results))
	for _, r := range results {
		out[r.TaskID] = r
	}
	return out
}

// runTask выполняет задачу, превращая панику в ошибку.
func runTask(ctx context.Context, t Task) (res Result) {
	res.TaskID = t.ID()
	defer func() {
		if r := recover(); r != nil {
			res.Value = nil
			res.Err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	res.Value, res.Err = t.Run(ctx)
	return res
}
