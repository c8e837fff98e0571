package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/binet/internal/domain"
)

// TaskRepo хранит задачи runs.
type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const selectTasks = `
	SELECT id, run_id, kind, stage, phase, chunk, attempt, status, worker,
	       started_at, finished_at, error, created_at
	FROM tasks`

// Create записывает задачу. Несуществующий run даёт ErrNotFound.
func (r *TaskRepo) Create(ctx context.Context, task *domain.Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (id, run_id, kind, stage, phase, chunk, attempt, status, created_at)
		VALUES (@id, @run_id, @kind, @stage, @phase, @chunk, @attempt, @status, @created_at)`,
		pgx.NamedArgs{
			"id":         task.ID,
			"run_id":     task.RunID,
			"kind":       task.Kind,
			"stage":      task.Stage,
			"phase":      task.Phase,
			"chunk":      task.Chunk,
			"attempt":    task.Attempt,
			"status":     task.Status,
			"created_at": task.CreatedAt,
		})
	if err != nil {
		return wrapWriteError("insert task", err)
	}
	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	rows, _ := r.pool.Query(ctx, selectTasks+` WHERE id = $1`, id)
	task, err := pgx.CollectExactlyOneRow(rows, scanTask)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &task, nil
}

// ListByRunID возвращает задачи run в порядке отправки.
func (r *TaskRepo) ListByRunID(ctx context.Context, runID uuid.UUID) ([]domain.Task, error) {
	rows, _ := r.pool.Query(ctx, selectTasks+`
		WHERE run_id = $1
		ORDER BY created_at, stage, chunk`, runID)
	tasks, err := pgx.CollectRows(rows, scanTask)
	if err != nil {
		return nil, fmt.Errorf("list tasks of run %s: %w", runID, err)
	}
	return tasks, nil
}

// Update сохраняет попытку, статус, воркер, интервал и ошибку.
func (r *TaskRepo) Update(ctx context.Context, task *domain.Task) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET attempt = $2, status = $3, worker = $4, started_at = $5, finished_at = $6, error = $7
		WHERE id = $1`,
		task.ID, task.Attempt, task.Status, nullString(task.Worker),
		task.StartedAt, task.FinishedAt, nullString(task.Error))
	if err != nil {
		return fmt.Errorf("update task %s: %w", task.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByRun возвращает число задач run по статусам. Статусы без задач в
// карту не попадают.
func (r *TaskRepo) CountByRun(ctx context.Context, runID uuid.UUID) (map[domain.TaskStatus]int, error) {
	rows, _ := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM tasks WHERE run_id = $1 GROUP BY status`, runID)

	counts := make(map[domain.TaskStatus]int)
	var (
		status domain.TaskStatus
		n      int
	)
	_, err := pgx.ForEachRow(rows, []any{&status, &n}, func() error {
		counts[status] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count tasks of run %s: %w", runID, err)
	}
	return counts, nil
}

func scanTask(row pgx.CollectableRow) (domain.Task, error) {
	var (
		task           domain.Task
		worker, errMsg *string
	)
	err := row.Scan(
		&task.ID, &task.RunID, &task.Kind, &task.Stage, &task.Phase, &task.Chunk,
		&task.Attempt, &task.Status, &worker,
		&task.StartedAt, &task.FinishedAt, &errMsg, &task.CreatedAt,
	)
	task.Worker = derefString(worker)
	task.Error = derefString(errMsg)
	return task, err
}
