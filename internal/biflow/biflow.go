package biflow

import (
	"context"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/flow"
	"github.com/shaiso/binet/internal/node"
)

// DefaultMaxHops — лимит выполнений стадий за один execute по умолчанию.
const DefaultMaxHops = 1000

// Option настраивает BiFlow и ParallelBiFlow.
type Option func(*options)

type options struct {
	maxHops int
}

// WithMaxHops задаёт лимит hop'ов. Значения <= 0 игнорируются.
func WithMaxHops(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxHops = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{maxHops: DefaultMaxHops}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// BiFlow — flow с маршрутизацией через сообщения.
type BiFlow struct {
	*flow.Flow
	maxHops int
}

// New создаёт BiFlow.
func New(nodes []node.Node, opts ...Option) (*BiFlow, error) {
	f, err := flow.New(nodes...)
	if err != nil {
		return nil, err
	}
	return Wrap(f, opts...), nil
}

// Wrap делает BiFlow поверх существующего Flow.
func Wrap(f *flow.Flow, opts ...Option) *BiFlow {
	o := buildOptions(opts)
	return &BiFlow{Flow: f, maxHops: o.maxHops}
}

// MaxHops возвращает лимит hop'ов.
func (b *BiFlow) MaxHops() int { return b.maxHops }

// Execute прогоняет x по маршруту, который задают узлы.
func (b *BiFlow) Execute(ctx context.Context, x *array.Matrix) (*array.Matrix, error) {
	r := newRoute(-1, x)
	if err := runRoute(ctx, b.Nodes(), r, b.maxHops); err != nil {
		return nil, err
	}
	return r.data, nil
}

// ExecuteChunks выполняет чанки по очереди и склеивает в исходном порядке.
func (b *BiFlow) ExecuteChunks(ctx context.Context, chunks []*array.Matrix) (*array.Matrix, error) {
	outs := make([]*array.Matrix, len(chunks))
	for c, x := range chunks {
		r := newRoute(c, x)
		if err := runRoute(ctx, b.Nodes(), r, b.maxHops); err != nil {
			return nil, err
		}
		outs[c] = r.data
	}
	return array.VStack(outs...)
}
