package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/binet/internal/domain"
	"github.com/shaiso/binet/internal/mq"
	"github.com/shaiso/binet/internal/repo"
	"github.com/shaiso/binet/internal/scheduler"
	"github.com/shaiso/binet/internal/telemetry"
)

// handleTaskReady обрабатывает сообщение из очереди tasks.ready.
//
// Ошибка задачи не является ошибкой обработчика: она уходит планировщику
// в результате. Ошибка обработчика — это невозможность отправить результат.
func (w *Worker) handleTaskReady(ctx context.Context, delivery *mq.Delivery) error {
	msg := &delivery.Message
	if msg.ReplyTo == "" {
		return fmt.Errorf("%w: task %s has no reply_to", mq.ErrPermanent, msg.TaskID)
	}

	payload, err := w.Process(ctx, msg)
	if err != nil {
		return err
	}

	if err := w.publisher.PublishTaskResult(ctx, msg.TaskID, msg.ReplyTo, payload); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

// Process выполняет задачу из сообщения и возвращает закодированный
// результат. Задача, которую нельзя декодировать, даёт результат с ошибкой,
// чтобы планировщик не ждал её вечно.
func (w *Worker) Process(ctx context.Context, msg *mq.Message) ([]byte, error) {
	logger := telemetry.WithTaskID(w.logger, msg.TaskID.String())

	task := w.startJournal(ctx, msg)

	t, err := w.executor.Decode(msg.Payload)
	if err != nil {
		logger.Error("failed to decode task", "error", err)
		telemetry.TasksExecuted.WithLabelValues("unknown", "failed").Inc()
		w.finishJournal(ctx, task, err)
		return w.executor.Encode("", scheduler.Result{TaskID: msg.TaskID, Err: err})
	}

	logger.Debug("task started", "kind", t.Kind(), "run_id", msg.RunID)

	res := w.executor.Execute(ctx, t)
	if res.Err != nil {
		logger.Warn("task failed", "kind", t.Kind(), "error", res.Err)
		telemetry.TasksExecuted.WithLabelValues(t.Kind(), "failed").Inc()
	} else {
		logger.Debug("task succeeded", "kind", t.Kind())
		telemetry.TasksExecuted.WithLabelValues(t.Kind(), "succeeded").Inc()
	}

	payload, err := w.executor.Encode(t.Kind(), res)
	if err != nil {
		// Результат не сериализуется — отправляем ошибку вместо него
		logger.Error("failed to encode result", "kind", t.Kind(), "error", err)
		res = scheduler.Result{TaskID: msg.TaskID, Err: err}
		payload, err = w.executor.Encode(t.Kind(), res)
		if err != nil {
			return nil, err
		}
	}

	w.finishJournal(ctx, task, res.Err)
	return payload, nil
}

// startJournal переводит задачу журнала в RUNNING. Без журнала или без
// записи возвращает nil.
func (w *Worker) startJournal(ctx context.Context, msg *mq.Message) *domain.Task {
	if w.tasks == nil {
		return nil
	}

	task, err := w.tasks.GetByID(ctx, msg.TaskID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			w.logger.Warn("failed to load task from journal", "task_id", msg.TaskID, "error", err)
		}
		return nil
	}

	task.MarkRunning(w.id)
	if err := w.tasks.Update(ctx, task); err != nil {
		w.logger.Warn("failed to update task to running", "task_id", task.ID, "error", err)
	}
	return task
}

func (w *Worker) finishJournal(ctx context.Context, task *domain.Task, taskErr error) {
	if task == nil {
		return
	}

	if taskErr != nil {
		task.MarkFailed(taskErr.Error())
	} else {
		task.MarkSucceeded()
	}

	if err := w.tasks.Update(ctx, task); err != nil {
		w.logger.Warn("failed to update task", "task_id", task.ID, "status", task.Status, "error", err)
	}
}
