package array

import (
	"fmt"
	"math"
	"math/rand"
)

// Matrix — плотная матрица float64 в row-major порядке.
type Matrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// New создаёт нулевую матрицу rows×cols.
func New(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("array: negative shape (%d, %d)", rows, cols))
	}
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// FromData оборачивает срез данных. Длина должна быть rows*cols.
func FromData(rows, cols int, data []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%w: (%d, %d) with %d values", ErrInvalidShape, rows, cols, len(data))
	}
	return &Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

// FromRows строит матрицу из набора строк одинаковой длины.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	cols := len(rows[0])
	m := New(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrShapeMismatch, i, len(r), cols)
		}
		copy(m.Data[i*cols:(i+1)*cols], r)
	}
	return m, nil
}

// Random заполняет матрицу равномерным шумом из rnd.
func Random(rnd *rand.Rand, rows, cols int) *Matrix {
	m := New(rows, cols)
	for i := range m.Data {
		m.Data[i] = rnd.Float64()
	}
	return m
}

// At возвращает элемент (i, j).
func (m *Matrix) At(i, j int) float64 {
	return m.Data[i*m.Cols+j]
}

// Set устанавливает элемент (i, j).
func (m *Matrix) Set(i, j int, v float64) {
	m.Data[i*m.Cols+j] = v
}

// Row возвращает строку i без копирования.
func (m *Matrix) Row(i int) []float64 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// Clone возвращает глубокую копию.
func (m *Matrix) Clone() *Matrix {
	if m == nil {
		return nil
	}
	c := &Matrix{Rows: m.Rows, Cols: m.Cols, Data: make([]float64, len(m.Data))}
	copy(c.Data, m.Data)
	return c
}

// Shape возвращает (rows, cols).
func (m *Matrix) Shape() (int, int) {
	return m.Rows, m.Cols
}

// Empty сообщает, что в матрице нет наблюдений.
func (m *Matrix) Empty() bool {
	return m == nil || m.Rows == 0
}

// Slice возвращает копию строк [from, to).
func (m *Matrix) Slice(from, to int) *Matrix {
	out := New(to-from, m.Cols)
	copy(out.Data, m.Data[from*m.Cols:to*m.Cols])
	return out
}

// Split делит матрицу на n частей по строкам. Последние части могут быть
// на одну строку короче.
func (m *Matrix) Split(n int) []*Matrix {
	if n <= 0 {
		n = 1
	}
	parts := make([]*Matrix, 0, n)
	base, extra := m.Rows/n, m.Rows%n
	from := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		parts = append(parts, m.Slice(from, from+size))
		from += size
	}
	return parts
}

// SelectColumns возвращает копию с указанными столбцами в заданном порядке.
func (m *Matrix) SelectColumns(cols []int) *Matrix {
	out := New(m.Rows, len(cols))
	for i := 0; i < m.Rows; i++ {
		row := m.Row(i)
		for k, c := range cols {
			out.Data[i*len(cols)+k] = row[c]
		}
	}
	return out
}

// ColumnSums возвращает сумму по каждому столбцу.
func (m *Matrix) ColumnSums() []float64 {
	sums := make([]float64, m.Cols)
	for i := 0; i < m.Rows; i++ {
		for j, v := range m.Row(i) {
			sums[j] += v
		}
	}
	return sums
}

// VStack склеивает матрицы по строкам. Все матрицы должны иметь одинаковое
// число столбцов; пустые (0 строк) пропускаются.
func VStack(parts ...*Matrix) (*Matrix, error) {
	cols, rows := -1, 0
	for i, p := range parts {
		if p == nil || p.Rows == 0 {
			continue
		}
		if cols >= 0 && p.Cols != cols {
			return nil, fmt.Errorf("%w: part %d has %d columns, expected %d", ErrShapeMismatch, i, p.Cols, cols)
		}
		cols = p.Cols
		rows += p.Rows
	}
	if cols < 0 {
		return New(0, 0), nil
	}
	out := &Matrix{Rows: rows, Cols: cols, Data: make([]float64, 0, rows*cols)}
	for _, p := range parts {
		if p == nil || p.Rows == 0 {
			continue
		}
		out.Data = append(out.Data, p.Data...)
	}
	return out, nil
}

// AllClose сравнивает матрицы поэлементно с абсолютным и относительным допуском.
func AllClose(a, b *Matrix, atol, rtol float64) bool {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return false
	}
	for i := range a.Data {
		diff := math.Abs(a.Data[i] - b.Data[i])
		if diff > atol+rtol*math.Abs(b.Data[i]) {
			return false
		}
	}
	return true
}
