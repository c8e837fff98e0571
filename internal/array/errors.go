package array

import "errors"

// Ошибки операций над матрицами.
var (
	// ErrShapeMismatch — размеры матриц несовместимы.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidShape — отрицательный размер или неверная длина данных.
	ErrInvalidShape = errors.New("invalid shape")
)
