package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/binet/internal/domain"
	"github.com/shaiso/binet/internal/mq"
	"github.com/shaiso/binet/internal/parallel"
)

const (
	defaultConcurrency = 1
	defaultTaskTimeout = 10 * time.Minute
)

// ResultPublisher публикует результаты. *mq.Publisher подходит.
type ResultPublisher interface {
	PublishTaskResult(ctx context.Context, taskID uuid.UUID, replyTo string, payload []byte) error
}

// TaskStore — журнал задач. *repo.TaskRepo подходит.
type TaskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
}

// Config — конфигурация Worker.
type Config struct {
	// ID — имя воркера в журнале. По умолчанию hostname-pid.
	ID string

	// Codec должен знать все виды задач, которые шлют планировщики.
	Codec *parallel.Codec

	Publisher ResultPublisher
	Conn      *mq.Connection

	// Tasks — журнал, необязателен.
	Tasks TaskStore

	Concurrency int
	TaskTimeout time.Duration
	Logger      *slog.Logger
}

// Worker читает tasks.ready, выполняет задачи и отправляет результат в
// очередь сессии планировщика. Состояния между задачами не держит, поэтому
// воркеров можно запускать сколько угодно на одну очередь.
type Worker struct {
	id        string
	executor  *Executor
	publisher ResultPublisher
	conn      *mq.Connection
	tasks     TaskStore
	logger    *slog.Logger

	concurrency int
	cancel      context.CancelFunc
	done        chan struct{}
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	if cfg.ID == "" {
		host, _ := os.Hostname()
		cfg.ID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = defaultTaskTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Worker{
		id:          cfg.ID,
		executor:    NewExecutor(cfg.Codec, cfg.TaskTimeout),
		publisher:   cfg.Publisher,
		conn:        cfg.Conn,
		tasks:       cfg.Tasks,
		logger:      cfg.Logger.With("worker", cfg.ID),
		concurrency: cfg.Concurrency,
	}
}

func (w *Worker) ID() string { return w.id }

// Start подписывается на tasks.ready и возвращается сразу. Задачи
// выполняются в фоне до Stop или отмены ctx.
func (w *Worker) Start(ctx context.Context) error {
	if w.publisher == nil {
		return ErrNoPublisher
	}

	consumer := mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:       string(mq.QueueTasksReady),
		Handler:     w.handleTaskReady,
		Concurrency: w.concurrency,
	})
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("task consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started", "concurrency", w.concurrency)
	return nil
}

// Stop прекращает приём задач и ждёт те, что уже выполняются.
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.logger.Info("stopping worker")
	w.cancel()
	<-w.done
	w.logger.Info("worker stopped")
}
