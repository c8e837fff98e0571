package parallel

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingResult — планировщик не вернул результат задачи.
	ErrMissingResult = errors.New("missing task result")

	// ErrDuplicateResult — два результата для одного чанка.
	ErrDuplicateResult = errors.New("duplicate task result")

	// ErrUnexpectedResult — значение результата не того типа.
	ErrUnexpectedResult = errors.New("unexpected task result type")

	// ErrUnknownTaskKind — codec не знает вид задачи.
	ErrUnknownTaskKind = errors.New("unknown task kind")
)

// JoinError — не удалось слить снимки в живой узел.
type JoinError struct {
	Stage int
	Phase int
	Err   error
}

// Error реализует интерфейс error.
func (e *JoinError) Error() string {
	return fmt.Sprintf("join stage %d phase %d: %v", e.Stage, e.Phase, e.Err)
}

// Unwrap возвращает исходную ошибку.
func (e *JoinError) Unwrap() error {
	return e.Err
}
