package remote

import "errors"

// Ошибки удалённого планировщика.
var (
	// ErrNotStarted — Submit до Start при заданном соединении.
	ErrNotStarted = errors.New("remote scheduler is not started")

	// ErrNoPublisher — не задан Publisher.
	ErrNoPublisher = errors.New("remote scheduler has no publisher")

	// ErrRunActive — StartRun при уже открытом run.
	ErrRunActive = errors.New("run is already active")
)
