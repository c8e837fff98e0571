package domain

import "time"

// Span — интервал выполнения run или задачи.
type Span struct {
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration возвращает длительность или 0, пока интервал не закрыт.
func (s Span) Duration() time.Duration {
	if s.StartedAt == nil || s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(*s.StartedAt)
}

func (s *Span) start() {
	now := time.Now()
	s.StartedAt = &now
	s.FinishedAt = nil
}

func (s *Span) finish() {
	now := time.Now()
	s.FinishedAt = &now
}
