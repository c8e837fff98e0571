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

// RunFilter — фильтр List. Пустые Status и Kind не фильтруют.
type RunFilter struct {
	Status domain.RunStatus
	Kind   string
	Limit  int
	Offset int
}

// RunRepo хранит runs.
type RunRepo struct {
	pool *pgxpool.Pool
}

func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

const selectRuns = `
	SELECT id, flow_name, kind, status, stages, chunks, started_at, finished_at, error, created_at
	FROM runs`

// Create записывает новый run. Повторный ID даёт ErrAlreadyExists.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO runs (id, flow_name, kind, status, stages, chunks, started_at, created_at)
		VALUES (@id, @flow_name, @kind, @status, @stages, @chunks, @started_at, @created_at)`,
		pgx.NamedArgs{
			"id":         run.ID,
			"flow_name":  run.FlowName,
			"kind":       run.Kind,
			"status":     run.Status,
			"stages":     run.Stages,
			"chunks":     run.Chunks,
			"started_at": run.StartedAt,
			"created_at": run.CreatedAt,
		})
	if err != nil {
		return wrapWriteError("insert run", err)
	}
	return nil
}

func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	rows, _ := r.pool.Query(ctx, selectRuns+` WHERE id = $1`, id)
	run, err := pgx.CollectExactlyOneRow(rows, scanRun)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &run, nil
}

// List возвращает runs по фильтру, новые первыми.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	rows, _ := r.pool.Query(ctx, selectRuns+`
		WHERE (@status::text IS NULL OR status = @status::run_status)
		  AND (@kind::text IS NULL OR kind = @kind)
		ORDER BY created_at DESC
		LIMIT @limit OFFSET @offset`,
		pgx.NamedArgs{
			"status": nullString(string(filter.Status)),
			"kind":   nullString(filter.Kind),
			"limit":  filter.Limit,
			"offset": filter.Offset,
		})
	runs, err := pgx.CollectRows(rows, scanRun)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Update сохраняет статус, интервал и ошибку run. Завершённый run не
// меняется: для него возвращается ErrInvalidState.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE runs
		SET status = $2, started_at = $3, finished_at = $4, error = $5
		WHERE id = $1 AND status NOT IN ('SUCCEEDED', 'FAILED', 'CANCELLED')`,
		run.ID, run.Status, run.StartedAt, run.FinishedAt, nullString(run.Error))
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM runs WHERE id = $1)`, run.ID).Scan(&exists); err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	if !exists {
		return ErrNotFound
	}
	return fmt.Errorf("update run %s: %w", run.ID, ErrInvalidState)
}

func scanRun(row pgx.CollectableRow) (domain.Run, error) {
	var (
		run    domain.Run
		errMsg *string
	)
	err := row.Scan(
		&run.ID, &run.FlowName, &run.Kind, &run.Status, &run.Stages, &run.Chunks,
		&run.StartedAt, &run.FinishedAt, &errMsg, &run.CreatedAt,
	)
	run.Error = derefString(errMsg)
	return run, err
}

// nullString превращает пустую строку в NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
