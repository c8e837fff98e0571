package parallel

import (
	"fmt"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
)

// ResultContainer копит частичные результаты по индексу чанка.
type ResultContainer interface {
	Add(index int, value any) error
	Len() int
}

// ForkContainer хранит обученные снимки одной фазы.
//
// Join не зависит от порядка, но Forks отдаёт снимки по индексу, чтобы
// повторный запуск давал побитно тот же результат.
type ForkContainer struct {
	expected int
	forks    map[int]node.Node
}

// NewForkContainer ждёт expected снимков.
func NewForkContainer(expected int) *ForkContainer {
	return &ForkContainer{expected: expected, forks: make(map[int]node.Node, expected)}
}

func (c *ForkContainer) Add(index int, value any) error {
	n, ok := value.(node.Node)
	if !ok {
		return fmt.Errorf("%w: chunk %d returned %T", ErrUnexpectedResult, index, value)
	}
	if _, exists := c.forks[index]; exists {
		return fmt.Errorf("%w: chunk %d", ErrDuplicateResult, index)
	}
	c.forks[index] = n
	return nil
}

func (c *ForkContainer) Len() int { return len(c.forks) }

// Forks возвращает снимки по индексу. Ошибка, если каких-то нет.
func (c *ForkContainer) Forks() ([]node.Node, error) {
	out := make([]node.Node, 0, c.expected)
	for i := 0; i < c.expected; i++ {
		n, ok := c.forks[i]
		if !ok {
			return nil, fmt.Errorf("%w: chunk %d", ErrMissingResult, i)
		}
		out = append(out, n)
	}
	return out, nil
}

// OrderedContainer собирает выходы execute в исходном порядке чанков.
type OrderedContainer struct {
	expected int
	parts    map[int]*array.Matrix
}

// NewOrderedContainer ждёт expected частей.
func NewOrderedContainer(expected int) *OrderedContainer {
	return &OrderedContainer{expected: expected, parts: make(map[int]*array.Matrix, expected)}
}

func (c *OrderedContainer) Add(index int, value any) error {
	m, ok := value.(*array.Matrix)
	if !ok {
		return fmt.Errorf("%w: chunk %d returned %T", ErrUnexpectedResult, index, value)
	}
	if _, exists := c.parts[index]; exists {
		return fmt.Errorf("%w: chunk %d", ErrDuplicateResult, index)
	}
	c.parts[index] = m
	return nil
}

func (c *OrderedContainer) Len() int { return len(c.parts) }

// Parts возвращает части по индексу.
func (c *OrderedContainer) Parts() ([]*array.Matrix, error) {
	out := make([]*array.Matrix, 0, c.expected)
	for i := 0; i < c.expected; i++ {
		m, ok := c.parts[i]
		if !ok {
			return nil, fmt.Errorf("%w: chunk %d", ErrMissingResult, i)
		}
		out = append(out, m)
	}
	return out, nil
}

// Matrix склеивает части по строкам.
func (c *OrderedContainer) Matrix() (*array.Matrix, error) {
	parts, err := c.Parts()
	if err != nil {
		return nil, err
	}
	return array.VStack(parts...)
}
