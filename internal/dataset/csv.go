package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shaiso/binet/internal/array"
)

// Skip — элемент списка файлов, означающий «нет данных для стадии».
const Skip = "-"

// Load читает матрицу из CSV-файла.
func Load(path string) (*array.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, path)
}

// Read читает матрицу из CSV. name используется в сообщениях об ошибках.
func Read(r io.Reader, name string) (*array.Matrix, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var rows [][]float64
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		line, _ := cr.FieldPos(0)

		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}

		row := make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, &ParseError{Path: name, Line: line, Column: j, Err: err}
			}
			row[j] = v
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, name)
	}
	return array.FromRows(rows)
}

func isHeader(rec []string) bool {
	for _, field := range rec {
		if _, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err == nil {
			return false
		}
	}
	return true
}

// Chunks делит матрицу на n чанков. Чанков не больше, чем строк.
func Chunks(m *array.Matrix, n int) ([]*array.Matrix, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunks, n)
	}
	return m.Split(min(n, m.Rows)), nil
}

// LoadStages загружает данные обучения по стадиям: paths[i] — файл стадии i
// или Skip. Каждый файл делится на n чанков.
func LoadStages(paths []string, n int) ([][]*array.Matrix, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunks, n)
	}
	data := make([][]*array.Matrix, len(paths))
	for i, p := range paths {
		p = strings.TrimSpace(p)
		if p == Skip || p == "" {
			continue
		}
		m, err := Load(p)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		data[i], _ = Chunks(m, n)
	}
	return data, nil
}

// Write записывает матрицу в CSV.
func Write(w io.Writer, m *array.Matrix) error {
	cw := csv.NewWriter(w)
	rec := make([]string, m.Cols)
	for i := 0; i < m.Rows; i++ {
		for j, v := range m.Row(i) {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
