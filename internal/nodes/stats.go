package nodes

import (
	"fmt"
	"math"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
)

// moments — суммы по столбцам, опционально вокруг заданного центра.
type moments struct {
	Count int       `json:"count"`
	Sum   []float64 `json:"sum,omitempty"`
	SqSum []float64 `json:"sq_sum,omitempty"`
}

func (m *moments) add(x *array.Matrix, center []float64) {
	if m.Sum == nil {
		m.Sum = make([]float64, x.Cols)
		m.SqSum = make([]float64, x.Cols)
	}
	for i := 0; i < x.Rows; i++ {
		for j, v := range x.Row(i) {
			if center != nil {
				v -= center[j]
			}
			m.Sum[j] += v
			m.SqSum[j] += v * v
		}
	}
	m.Count += x.Rows
}

func (m *moments) merge(o moments) error {
	if o.Sum == nil {
		m.Count += o.Count
		return nil
	}
	if m.Sum == nil {
		m.Sum = make([]float64, len(o.Sum))
		m.SqSum = make([]float64, len(o.SqSum))
	}
	if len(o.Sum) != len(m.Sum) {
		return &node.InvalidDimensionError{Side: "input", Expected: len(m.Sum), Got: len(o.Sum)}
	}
	for j := range o.Sum {
		m.Sum[j] += o.Sum[j]
		m.SqSum[j] += o.SqSum[j]
	}
	m.Count += o.Count
	return nil
}

func (m moments) clone() moments {
	c := moments{Count: m.Count}
	if m.Sum != nil {
		c.Sum = append([]float64(nil), m.Sum...)
		c.SqSum = append([]float64(nil), m.SqSum...)
	}
	return c
}

func (m *moments) mean() ([]float64, error) {
	if m.Count == 0 {
		return nil, ErrEmptyStatistics
	}
	out := make([]float64, len(m.Sum))
	for j, s := range m.Sum {
		out[j] = s / float64(m.Count)
	}
	return out, nil
}

// variance — смещённая оценка дисперсии вокруг центра накопления.
func (m *moments) variance() ([]float64, error) {
	mean, err := m.mean()
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(m.SqSum))
	for j, s := range m.SqSum {
		out[j] = math.Max(s/float64(m.Count)-mean[j]*mean[j], 0)
	}
	return out, nil
}

func forkTypeError(i int, want string, f node.Node) error {
	return fmt.Errorf("%w: fork %d is %T, expected %s", node.ErrForkMismatch, i, f, want)
}
