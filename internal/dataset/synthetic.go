package dataset

import (
	"fmt"
	"math/rand"

	"github.com/shaiso/binet/internal/array"
)

// Размеры синтетических данных по умолчанию: 6 чанков по 20×10.
const (
	DefaultChunks = 6
	DefaultRows   = 20
	DefaultCols   = 10
)

// Synthetic описывает равномерный шум для обучения без файлов.
type Synthetic struct {
	Seed   int64
	Chunks int
	Rows   int
	Cols   int
}

func (s Synthetic) withDefaults() Synthetic {
	if s.Chunks == 0 {
		s.Chunks = DefaultChunks
	}
	if s.Rows == 0 {
		s.Rows = DefaultRows
	}
	if s.Cols == 0 {
		s.Cols = DefaultCols
	}
	return s
}

// Generate создаёт данные для stages стадий: один и тот же набор чанков
// получает каждая стадия, как в последовательном обучении.
func (s Synthetic) Generate(stages int) ([][]*array.Matrix, error) {
	chunks, err := s.Sample()
	if err != nil {
		return nil, err
	}
	data := make([][]*array.Matrix, stages)
	for i := range data {
		data[i] = chunks
	}
	return data, nil
}

// Sample создаёт один набор чанков.
func (s Synthetic) Sample() ([]*array.Matrix, error) {
	s = s.withDefaults()
	if s.Chunks < 1 || s.Rows < 1 || s.Cols < 1 {
		return nil, fmt.Errorf("%w: %d chunks of (%d, %d)", ErrInvalidShape, s.Chunks, s.Rows, s.Cols)
	}
	rnd := rand.New(rand.NewSource(s.Seed))
	out := make([]*array.Matrix, s.Chunks)
	for i := range out {
		out[i] = array.Random(rnd, s.Rows, s.Cols)
	}
	return out, nil
}
