package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/binet/internal/domain"
	"github.com/shaiso/binet/internal/repo"
)

// RunStore — чтение журнала runs. Реализуется *repo.RunRepo.
type RunStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error)
}

// TaskStore — чтение задач run. Реализуется *repo.TaskRepo.
type TaskStore interface {
	ListByRunID(ctx context.Context, runID uuid.UUID) ([]domain.Task, error)
	CountByRun(ctx context.Context, runID uuid.UUID) (map[domain.TaskStatus]int, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	runs   RunStore
	tasks  TaskStore
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Runs   RunStore
	Tasks  TaskStore
	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runs:   cfg.Runs,
		tasks:  cfg.Tasks,
		logger: logger,
	}
}
