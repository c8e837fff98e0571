package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrEmpty — в файле нет строк с данными.
	ErrEmpty = errors.New("dataset is empty")

	// ErrInvalidChunks — число чанков меньше 1.
	ErrInvalidChunks = errors.New("invalid chunk count")

	// ErrInvalidShape — неположительные размеры синтетических данных.
	ErrInvalidShape = errors.New("invalid synthetic shape")
)

// ParseError — значение в CSV не является числом.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: column %d: %v", e.Path, e.Line, e.Column+1, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
