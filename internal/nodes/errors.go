package nodes

import "errors"

var (
	// ErrTooFewColumns — у данных меньше столбцов, чем требуется узлу.
	ErrTooFewColumns = errors.New("input has fewer columns than output_dim")

	// ErrEmptyStatistics — фаза завершена без единого наблюдения.
	ErrEmptyStatistics = errors.New("no observations accumulated")
)
