package worker

import "errors"

// Ошибки воркера.
var (
	// ErrTaskDecode — payload задачи не удалось декодировать.
	ErrTaskDecode = errors.New("task decode failed")

	// ErrExecutionTimeout — выполнение task превысило таймаут.
	ErrExecutionTimeout = errors.New("execution timeout")

	// ErrExecutionPanic — задача завершилась паникой.
	ErrExecutionPanic = errors.New("execution panicked")

	// ErrNoPublisher — некуда отправить результат.
	ErrNoPublisher = errors.New("worker has no publisher")
)
