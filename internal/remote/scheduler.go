package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/binet/internal/domain"
	"github.com/shaiso/binet/internal/mq"
	"github.com/shaiso/binet/internal/parallel"
	"github.com/shaiso/binet/internal/scheduler"
)

const defaultPrefetch = 32

// Publisher публикует задачи для воркеров. *mq.Publisher подходит.
type Publisher interface {
	PublishTaskReady(ctx context.Context, taskID, runID uuid.UUID, replyTo string, payload []byte) error
}

// TaskJournal записывает отправленные задачи. *repo.TaskRepo подходит.
type TaskJournal interface {
	Create(ctx context.Context, task *domain.Task) error
}

// RunJournal записывает runs. *repo.RunRepo подходит.
type RunJournal interface {
	Create(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
}

// Scheduler реализует scheduler.Scheduler поверх RabbitMQ.
type Scheduler struct {
	session   string
	codec     *parallel.Codec
	publisher Publisher
	conn      *mq.Connection
	tasks     TaskJournal
	runs      RunJournal
	prefetch  int
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]*pendingTask
	run     *domain.Run
	started bool
	closed  bool

	consumer   *mq.Consumer
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// pendingTask — задача, ожидающая результата.
type pendingTask struct {
	kind      string
	done      chan scheduler.Result
	delivered bool
}

// Config — конфигурация Scheduler.
type Config struct {
	// Session — имя сессии (очередь результатов). По умолчанию новый UUID.
	Session string

	Codec     *parallel.Codec
	Publisher Publisher

	// Conn — соединение для очереди результатов. Если nil, результаты
	// нужно передавать в HandleResult вручную.
	Conn *mq.Connection

	// Журнал (опционально).
	Tasks TaskJournal
	Runs  RunJournal

	// Prefetch — сколько результатов брать из очереди за раз (default: 32).
	Prefetch int

	Logger *slog.Logger
}

// New создаёт Scheduler.
func New(cfg Config) *Scheduler {
	session := cfg.Session
	if session == "" {
		session = uuid.NewString()
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		session:   session,
		codec:     cfg.Codec,
		publisher: cfg.Publisher,
		conn:      cfg.Conn,
		tasks:     cfg.Tasks,
		runs:      cfg.Runs,
		prefetch:  prefetch,
		logger:    logger.With("session", session),
		pending:   make(map[uuid.UUID]*pendingTask),
	}
}

// Session возвращает имя сессии.
func (s *Scheduler) Session() string { return s.session }

// Start объявляет очередь результатов и запускает её consumer.
//
// Очередь объявляется синхронно, до первой отправки задачи, иначе ранние
// результаты некуда маршрутизировать.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.publisher == nil {
		return ErrNoPublisher
	}

	if s.conn != nil {
		declare := func(ch *amqp.Channel) error {
			return mq.DeclareResultQueue(ch, s.session)
		}
		if err := s.conn.WithChannel(ctx, declare); err != nil {
			return fmt.Errorf("declare result queue: %w", err)
		}

		ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.cancelFunc = cancel
		s.consumer = mq.NewConsumer(s.conn, s.logger, mq.ConsumerConfig{
			Queue:    string(mq.ResultQueue(s.session)),
			Handler:  s.HandleResult,
			Prefetch: s.prefetch,
			Declare:  declare,
		})

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("result consumer error", "error", err)
			}
		}()
	}

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	s.logger.Info("remote scheduler started", "queue", mq.ResultQueue(s.session))
	return nil
}

// Submit кодирует задачу, записывает её в журнал и публикует.
func (s *Scheduler) Submit(ctx context.Context, t scheduler.Task) (scheduler.Handle, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return scheduler.Handle{}, scheduler.ErrSchedulerClosed
	case !s.started:
		s.mu.Unlock()
		return scheduler.Handle{}, ErrNotStarted
	}
	runID := uuid.Nil
	if s.run != nil {
		runID = s.run.ID
	}
	s.mu.Unlock()

	payload, err := s.codec.EncodeTask(t)
	if err != nil {
		return scheduler.Handle{}, err
	}

	if err := s.journalTask(ctx, runID, t, payload); err != nil {
		return scheduler.Handle{}, err
	}

	id := t.ID()
	s.mu.Lock()
	s.pending[id] = &pendingTask{kind: t.Kind(), done: make(chan scheduler.Result, 1)}
	s.mu.Unlock()

	if err := s.publisher.PublishTaskReady(ctx, id, runID, s.session, payload); err != nil {
		s.forget([]uuid.UUID{id})
		return scheduler.Handle{}, fmt.Errorf("publish task %s: %w", id, err)
	}

	s.logger.Debug("task published", "task_id", id, "kind", t.Kind(), "run_id", runID)
	return scheduler.Handle{TaskID: id}, nil
}

// Collect ждёт результаты всех задач из hs.
//
// Задачи остаются в pending до получения результата, так что результат,
// пришедший во время ожидания, не теряется.
func (s *Scheduler) Collect(ctx context.Context, hs []scheduler.Handle) ([]scheduler.Result, error) {
	ids := make([]uuid.UUID, 0, len(hs))
	chans := make([]chan scheduler.Result, 0, len(hs))

	s.mu.Lock()
	for _, h := range hs {
		p, ok := s.pending[h.TaskID]
		if !ok {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", scheduler.ErrUnknownHandle, h.TaskID)
		}
		ids = append(ids, h.TaskID)
		chans = append(chans, p.done)
	}
	s.mu.Unlock()
	defer s.forget(ids)

	out := make([]scheduler.Result, 0, len(hs))
	for _, ch := range chans {
		select {
		case res := <-ch:
			out = append(out, res)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}

// HandleResult — обработчик очереди результатов.
func (s *Scheduler) HandleResult(_ context.Context, d *mq.Delivery) error {
	taskID := d.Message.TaskID

	res, err := s.codec.DecodeResult(d.Message.Payload)
	if err != nil {
		// Результат есть, но прочитать его нельзя: задача считается упавшей
		s.logger.Error("failed to decode result", "task_id", taskID, "error", err)
		res = scheduler.Result{TaskID: taskID, Err: err}
	}
	if res.TaskID == uuid.Nil {
		res.TaskID = taskID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[res.TaskID]
	if !ok {
		s.logger.Warn("result for unknown task", "task_id", res.TaskID)
		return nil
	}
	if p.delivered {
		s.logger.Debug("duplicate result ignored", "task_id", res.TaskID)
		return nil
	}
	p.delivered = true
	p.done <- res
	return nil
}

// Pending возвращает число задач без забранного результата.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Shutdown запрещает новые задачи и останавливает consumer. Задачи без
// результата завершаются с ErrSchedulerClosed.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, p := range s.pending {
		if !p.delivered {
			p.delivered = true
			p.done <- scheduler.Result{TaskID: id, Err: scheduler.ErrSchedulerClosed}
		}
	}
	s.mu.Unlock()

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	if s.consumer != nil {
		s.consumer.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("remote scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) forget(ids []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.pending, id)
	}
}

// envelopeHeader — поля TaskEnvelope, которые нужны журналу.
type envelopeHeader struct {
	Stage int `json:"stage"`
	Phase int `json:"phase"`
	Index int `json:"index"`
}

func (s *Scheduler) journalTask(ctx context.Context, runID uuid.UUID, t scheduler.Task, payload []byte) error {
	if s.tasks == nil || runID == uuid.Nil {
		return nil
	}

	var h envelopeHeader
	if err := json.Unmarshal(payload, &h); err != nil {
		return fmt.Errorf("read task header: %w", err)
	}

	task := &domain.Task{
		ID:        t.ID(),
		RunID:     runID,
		Kind:      t.Kind(),
		Stage:     h.Stage,
		Phase:     h.Phase,
		Chunk:     h.Index,
		Status:    domain.TaskStatusQueued,
		CreatedAt: nowFunc(),
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return fmt.Errorf("journal task %s: %w", task.ID, err)
	}
	return nil
}
