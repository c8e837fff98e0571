package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/binet/internal/domain"
	"github.com/shaiso/binet/internal/telemetry"
)

var nowFunc = time.Now

// StartRun открывает run: задачи, отправленные до FinishRun, пишутся в
// журнал с его ID. Без RunJournal run живёт только в памяти.
func (s *Scheduler) StartRun(ctx context.Context, run *domain.Run) error {
	s.mu.Lock()
	if s.run != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRunActive, s.run.ID)
	}
	s.run = run
	s.mu.Unlock()

	run.MarkRunning()
	if s.runs != nil {
		if err := s.runs.Create(ctx, run); err != nil {
			s.clearRun()
			return fmt.Errorf("journal run %s: %w", run.ID, err)
		}
		if err := s.runs.Update(ctx, run); err != nil {
			s.clearRun()
			return fmt.Errorf("journal run %s: %w", run.ID, err)
		}
	}

	telemetry.WithRunID(s.logger, run.ID.String()).Info("run started", "kind", run.Kind, "flow", run.FlowName)
	return nil
}

// FinishRun закрывает run с итогом runErr. Отмена контекста даёт CANCELLED.
func (s *Scheduler) FinishRun(ctx context.Context, runErr error) error {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run == nil {
		return nil
	}
	defer s.clearRun()

	switch {
	case runErr == nil:
		run.MarkSucceeded()
	case errors.Is(runErr, context.Canceled):
		run.MarkCancelled()
	default:
		run.MarkFailed(runErr.Error())
	}

	telemetry.WithRunID(s.logger, run.ID.String()).Info("run finished", "status", run.Status, "duration", run.Duration())

	if s.runs == nil {
		return nil
	}
	// Исходный ctx мог быть отменён, а итог всё равно нужно записать
	if err := s.runs.Update(context.WithoutCancel(ctx), run); err != nil {
		return fmt.Errorf("journal run %s: %w", run.ID, err)
	}
	return nil
}

// Run возвращает текущий run или nil.
func (s *Scheduler) Run() *domain.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

func (s *Scheduler) clearRun() {
	s.mu.Lock()
	s.run = nil
	s.mu.Unlock()
}
