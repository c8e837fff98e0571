package parallel

import (
	"context"
	"fmt"

	"github.com/shaiso/binet/internal/scheduler"
	"github.com/shaiso/binet/internal/telemetry"
)

// Dispatch отправляет задачи планировщику, ждёт все результаты и передаёт
// значения в add в порядке задач.
//
// Если какая-то задача упала, add не вызывается ни разу: возвращается
// индекс первой упавшей задачи и *scheduler.TaskError. Для ошибок
// планировщика индекс равен -1.
func Dispatch(ctx context.Context, sched scheduler.Scheduler, tasks []scheduler.Task, add func(i int, v any) error) (int, error) {
	if len(tasks) == 0 {
		return -1, nil
	}
	logger := telemetry.FromContext(ctx)
	kind := tasks[0].Kind()

	handles, err := scheduler.SubmitAll(ctx, sched, tasks)
	if err != nil {
		return -1, err
	}
	telemetry.TasksSubmitted.WithLabelValues(kind).Add(float64(len(tasks)))

	results, err := sched.Collect(ctx, handles)
	if err != nil {
		return -1, fmt.Errorf("collect %d tasks: %w", len(tasks), err)
	}
	byID := scheduler.ByID(results)

	failed := -1
	var failure error
	for i, t := range tasks {
		res, ok := byID[t.ID()]
		if !ok {
			return i, fmt.Errorf("%w: task %s", ErrMissingResult, t.ID())
		}
		if res.Err == nil {
			continue
		}
		telemetry.TasksFailed.WithLabelValues(kind).Inc()
		logger.Warn("task failed", "task_id", t.ID(), "kind", kind, "index", i, "error", res.Err)
		if failed < 0 {
			failed = i
			failure = &scheduler.TaskError{TaskID: t.ID(), Kind: kind, Err: res.Err}
		}
	}
	if failure != nil {
		return failed, failure
	}

	for i, t := range tasks {
		if err := add(i, byID[t.ID()].Value); err != nil {
			return i, err
		}
	}
	return -1, nil
}
