package parallel

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/scheduler"
)

func randomChunks(seed int64, n, rows, cols int) []*array.Matrix {
	rnd := rand.New(rand.NewSource(seed))
	out := make([]*array.Matrix, n)
	for i := range out {
		out[i] = array.Random(rnd, rows, cols)
	}
	return out
}

// reverseScheduler отдаёт результаты в порядке, обратном отправке.
type reverseScheduler struct {
	scheduler.Scheduler
}

func (r reverseScheduler) Collect(ctx context.Context, hs []scheduler.Handle) ([]scheduler.Result, error) {
	res, err := r.Scheduler.Collect(ctx, hs)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res, nil
}

// countingScheduler считает отправленные задачи по виду.
type countingScheduler struct {
	scheduler.Scheduler
	mu     sync.Mutex
	byKind map[string]int
}

func newCounting(inner scheduler.Scheduler) *countingScheduler {
	return &countingScheduler{Scheduler: inner, byKind: make(map[string]int)}
}

func (c *countingScheduler) Submit(ctx context.Context, t scheduler.Task) (scheduler.Handle, error) {
	c.mu.Lock()
	c.byKind[t.Kind()]++
	c.mu.Unlock()
	return c.Scheduler.Submit(ctx, t)
}

func (c *countingScheduler) count(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byKind[kind]
}

var errInjected = errors.New("injected failure")

// faultyScheduler подменяет результат задачи с номером failAt на ошибку.
type faultyScheduler struct {
	scheduler.Scheduler
	failAt    int
	submitted []scheduler.Handle
}

func (f *faultyScheduler) Submit(ctx context.Context, t scheduler.Task) (scheduler.Handle, error) {
	h, err := f.Scheduler.Submit(ctx, t)
	if err == nil {
		f.submitted = append(f.submitted, h)
	}
	return h, err
}

func (f *faultyScheduler) Collect(ctx context.Context, hs []scheduler.Handle) ([]scheduler.Result, error) {
	res, err := f.Scheduler.Collect(ctx, hs)
	if err != nil {
		return nil, err
	}
	if f.failAt < len(f.submitted) {
		bad := f.submitted[f.failAt].TaskID
		for i := range res {
			if res[i].TaskID == bad {
				res[i].Value, res[i].Err = nil, errInjected
			}
		}
	}
	return res, nil
}

// swapScheduler подменяет значение каждого результата.
type swapScheduler struct {
	scheduler.Scheduler
	value any
}

func (s swapScheduler) Collect(ctx context.Context, hs []scheduler.Handle) ([]scheduler.Result, error) {
	res, err := s.Scheduler.Collect(ctx, hs)
	if err != nil {
		return nil, err
	}
	for i := range res {
		res[i].Value = s.value
	}
	return res, nil
}
