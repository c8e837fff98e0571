package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/dataset"
)

// Output печатает результаты команд. Данные идут в stdout, сообщения
// в stderr, так что вывод можно отдавать в pipe:
//
//	binet runs list --json | jq .
type Output struct {
	json   bool
	data   io.Writer
	status io.Writer
}

// NewOutput создаёт Output поверх stdout и stderr.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output поверх заданных writer'ов.
func NewOutputTo(jsonMode bool, data, status io.Writer) *Output {
	return &Output{json: jsonMode, data: data, status: status}
}

// Print выводит таблицу, а в режиме --json — v.
func (o *Output) Print(headers []string, rows [][]string, v any) error {
	if o.json {
		return o.JSON(v)
	}
	return o.Table(headers, rows)
}

// Table выводит выровненную таблицу с подчёркнутыми заголовками.
func (o *Output) Table(headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(o.data, 0, 0, 2, ' ', 0)

	rule := make([]string, len(headers))
	for i, h := range headers {
		rule[i] = strings.Repeat("-", len(h))
	}
	for _, line := range append([][]string{headers, rule}, rows...) {
		if _, err := fmt.Fprintln(tw, strings.Join(line, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// JSON выводит v с отступами.
func (o *Output) JSON(v any) error {
	enc := json.NewEncoder(o.data)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Matrix выводит матрицу в CSV, а в режиме --json — в JSON.
func (o *Output) Matrix(m *array.Matrix) error {
	if o.json {
		return o.JSON(m)
	}
	return dataset.Write(o.data, m)
}

// Notef пишет сообщение для человека в stderr.
func (o *Output) Notef(format string, args ...any) {
	fmt.Fprintf(o.status, format+"\n", args...)
}
