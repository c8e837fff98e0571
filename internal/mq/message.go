package mq

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType — тип сообщения в очереди.
type MessageType string

const (
	MessageTypeTaskReady  MessageType = "task.ready"
	MessageTypeTaskResult MessageType = "task.result"
)

// Message — конверт сообщения. Payload не разбирается на уровне mq:
// это байты кодека задач (TaskEnvelope или ResultEnvelope).
type Message struct {
	ID     string      `json:"id"`
	Type   MessageType `json:"type"`
	TaskID uuid.UUID   `json:"task_id"`

	// RunID — run в журнале. uuid.Nil, если журнал не ведётся.
	RunID uuid.UUID `json:"run_id,omitempty"`

	// ReplyTo — сессия планировщика, которой отправлять результат.
	ReplyTo string `json:"reply_to,omitempty"`

	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID и текущим временем.
func NewMessage(t MessageType, taskID uuid.UUID, payload []byte) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      t,
		TaskID:    taskID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}
