package nodes

import (
	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
)

// Polynomial — разложение по мономам степени 1..Degree.
//
// Для входа размерности d выход имеет C(d+Degree, Degree)-1 столбцов.
type Polynomial struct {
	node.Base
	Degree int `json:"degree"`
}

// NewPolynomial создаёт разложение заданной степени.
func NewPolynomial(degree int) *Polynomial {
	return &Polynomial{Base: node.NewBase(KindPolynomial, 0), Degree: degree}
}

// ExpandedDim возвращает размерность выхода для d входных столбцов.
func ExpandedDim(d, degree int) int {
	// C(d+degree, degree) без переполнения на разумных размерах
	c := 1
	for k := 1; k <= degree; k++ {
		c = c * (d + k) / k
	}
	return c - 1
}

func (n *Polynomial) SetInputDim(d int) error {
	return n.FixDims(d, ExpandedDim(d, n.Degree))
}

func (n *Polynomial) Train(x *array.Matrix) error {
	return n.PrepareTrain(x, n.SetInputDim)
}

func (n *Polynomial) StopTraining() error { return n.FinishPhase() }

func (n *Polynomial) Execute(x *array.Matrix) (*array.Matrix, error) {
	if err := n.PrepareExecute(x, n.SetInputDim); err != nil {
		return nil, err
	}

	terms := monomials(x.Cols, n.Degree)
	out := array.New(x.Rows, len(terms))
	for i := 0; i < x.Rows; i++ {
		row := x.Row(i)
		dst := out.Row(i)
		for k, term := range terms {
			v := 1.0
			for _, j := range term {
				v *= row[j]
			}
			dst[k] = v
		}
	}
	return out, nil
}

// monomials перечисляет мультииндексы (неубывающие наборы столбцов)
// сначала по степени, затем лексикографически.
func monomials(d, degree int) [][]int {
	var out [][]int
	var walk func(prefix []int, start, left int)
	walk = func(prefix []int, start, left int) {
		if left == 0 {
			out = append(out, append([]int(nil), prefix...))
			return
		}
		for j := start; j < d; j++ {
			walk(append(prefix, j), j, left-1)
		}
	}
	for deg := 1; deg <= degree; deg++ {
		walk(nil, 0, deg)
	}
	return out
}
