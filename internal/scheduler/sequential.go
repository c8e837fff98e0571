package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Sequential выполняет задачу прямо в Submit и хранит результат до Collect.
type Sequential struct {
	mu      sync.Mutex
	results map[uuid.UUID]Result
	closed  bool
}

// NewSequential создаёт Sequential.
func NewSequential() *Sequential {
	return &Sequential{results: make(map[uuid.UUID]Result)}
}

func (s *Sequential) Submit(ctx context.Context, t Task) (Handle, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return Handle{}, ErrSchedulerClosed
	}

	res := runTask(ctx, t)

	s.mu.Lock()
	s.results[res.TaskID] = res
	s.mu.Unlock()
	return Handle{TaskID: res.TaskID}, nil
}

func (s *Sequential) Collect(ctx context.Context, hs []Handle) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Result, 0, len(hs))
	for _, h := range hs {
		res, ok := s.results[h.TaskID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, h.TaskID)
		}
		out = append(out, res)
	}
	for _, h := range hs {
		delete(s.results, h.TaskID)
	}
	return out, nil
}

func (s *Sequential) Shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.results = make(map[uuid.UUID]Result)
	return nil
}
