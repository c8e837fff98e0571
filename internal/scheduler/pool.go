package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// PoolConfig — конфигурация Pool.
type PoolConfig struct {
	Workers int // число параллельных задач (default: GOMAXPROCS)
	Logger  *slog.Logger
}

// Pool выполняет задачи в ограниченном числе горутин.
//
// Submit блокируется, пока все воркеры заняты.
type Pool struct {
	g       errgroup.Group
	workers int
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]chan Result
	closed  bool
}

// NewPool создаёт Pool.
func NewPool(cfg PoolConfig) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		workers: workers,
		logger:  logger,
		pending: make(map[uuid.UUID]chan Result),
	}
	p.g.SetLimit(workers)
	return p
}

// Workers возвращает размер пула.
func (p *Pool) Workers() int { return p.workers }

func (p *Pool) Submit(ctx context.Context, t Task) (Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Handle{}, ErrSchedulerClosed
	}
	done := make(chan Result, 1)
	p.pending[t.ID()] = done
	p.mu.Unlock()

	p.g.Go(func() error {
		res := runTask(ctx, t)
		if res.Err != nil {
			p.logger.Debug("task failed", "task_id", res.TaskID, "kind", t.Kind(), "error", res.Err)
		}
		done <- res
		return nil
	})
	return Handle{TaskID: t.ID()}, nil
}

func (p *Pool) Collect(ctx context.Context, hs []Handle) ([]Result, error) {
	chans := make([]chan Result, 0, len(hs))

	p.mu.Lock()
	for _, h := range hs {
		ch, ok := p.pending[h.TaskID]
		if !ok {
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, h.TaskID)
		}
		chans = append(chans, ch)
	}
	for _, h := range hs {
		delete(p.pending, h.TaskID)
	}
	p.mu.Unlock()

	out := make([]Result, 0, len(hs))
	for _, ch := range chans {
		select {
		case res := <-ch:
			out = append(out, res)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}

// Shutdown запрещает новые задачи и ждёт завершения запущенных.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = p.g.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
