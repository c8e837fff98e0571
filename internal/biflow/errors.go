package biflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTarget — сообщение указывает на несуществующую стадию.
	ErrInvalidTarget = errors.New("invalid routing target")

	// ErrRoutingLoop — превышен лимит hop'ов.
	ErrRoutingLoop = errors.New("routing loop")
)

// RoutingLoopError — execute выполнил MaxHops стадий и не завершился.
type RoutingLoopError struct {
	MaxHops int
	Stage   int // стадия, которая должна была выполниться следующей
	Chunk   int // -1 для одиночного execute
}

// Error реализует интерфейс error.
func (e *RoutingLoopError) Error() string {
	msg := fmt.Sprintf("routing loop: %d hops exceeded before stage %d", e.MaxHops, e.Stage)
	if e.Chunk >= 0 {
		msg += fmt.Sprintf(" (chunk %d)", e.Chunk)
	}
	return msg
}

// Unwrap возвращает ErrRoutingLoop.
func (e *RoutingLoopError) Unwrap() error {
	return ErrRoutingLoop
}
