package engine

import "errors"

// Ошибки валидации FlowSpec.
var (
	// ErrEmptyStages — flow не содержит стадий.
	ErrEmptyStages = errors.New("flow spec has no stages")

	// ErrEmptyKind — стадия без kind.
	ErrEmptyKind = errors.New("stage has empty kind")

	// ErrUnknownKind — kind не зарегистрирован.
	ErrUnknownKind = errors.New("unknown stage kind")

	// ErrUnexpectedStages — вложенные стадии у узла, который не является flow.
	ErrUnexpectedStages = errors.New("nested stages are only allowed for flow kinds")

	// ErrInvalidFlowType — неизвестный type flow.
	ErrInvalidFlowType = errors.New("invalid flow type")

	// ErrInvalidMaxHops — отрицательный max_hops или max_hops не для biflow.
	ErrInvalidMaxHops = errors.New("invalid max_hops")

	// ErrInvalidParams — фабрика узла отвергла параметры.
	ErrInvalidParams = errors.New("invalid stage params")

	// ErrSpecParse — YAML не разобран.
	ErrSpecParse = errors.New("flow spec parse failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Stage   string // путь до стадии, например stages[1].stages[0]
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Stage != "" {
		return e.Stage + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(stage, field, message string, err error) *ValidationError {
	return &ValidationError{
		Stage:   stage,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
