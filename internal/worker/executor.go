package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/binet/internal/parallel"
	"github.com/shaiso/binet/internal/scheduler"
)

// Executor декодирует и выполняет задачи flow.
//
// Виды задач определяет codec: train и execute из parallel, bi-execute
// регистрирует biflow.RegisterCodec.
type Executor struct {
	codec   *parallel.Codec
	timeout time.Duration
}

// NewExecutor создаёт Executor. timeout <= 0 — без ограничения.
func NewExecutor(codec *parallel.Codec, timeout time.Duration) *Executor {
	return &Executor{codec: codec, timeout: timeout}
}

// Decode восстанавливает задачу из payload.
func (e *Executor) Decode(payload []byte) (scheduler.Task, error) {
	t, err := e.codec.DecodeTask(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTaskDecode, err)
	}
	return t, nil
}

// Execute выполняет задачу. Паника и таймаут превращаются в ошибку
// результата, а не воркера.
func (e *Executor) Execute(ctx context.Context, t scheduler.Task) (res scheduler.Result) {
	res.TaskID = t.ID()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			res.Value = nil
			res.Err = fmt.Errorf("%w: %v", ErrExecutionPanic, r)
		}
	}()

	res.Value, res.Err = t.Run(ctx)
	if res.Err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.Err = fmt.Errorf("%w: %w", ErrExecutionTimeout, res.Err)
	}
	return res
}

// Encode кодирует результат задачи вида kind.
func (e *Executor) Encode(kind string, res scheduler.Result) ([]byte, error) {
	return e.codec.EncodeResult(kind, res)
}
