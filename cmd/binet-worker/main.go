// binet-worker выполняет задачи train, execute и bi-execute, которые
// удалённый планировщик публикует в RabbitMQ. Журнал PostgreSQL
// необязателен: без него воркер только выполняет задачи.
//
// Переменные окружения: RABBITMQ_URL, DB_URL, DB_MAX_CONNS, WORKER_ID,
// WORKER_CONCURRENCY, WORKER_TASK_TIMEOUT, WORKER_PORT, LOG_LEVEL,
// LOG_FORMAT.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/binet/internal/engine"
	"github.com/shaiso/binet/internal/mq"
	"github.com/shaiso/binet/internal/repo"
	"github.com/shaiso/binet/internal/telemetry"
	"github.com/shaiso/binet/internal/worker"
)

func main() {
	logger := telemetry.SetupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("binet-worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("binet-worker stopped")
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg := worker.Config{
		ID:          os.Getenv("WORKER_ID"),
		Codec:       engine.Codec(engine.Registry()),
		Concurrency: envInt("WORKER_CONCURRENCY", 1),
		TaskTimeout: envDuration("WORKER_TASK_TIMEOUT", 0),
		Logger:      logger,
	}

	if pool, err := repo.Open(ctx, repo.DBConfigFromEnv()); err != nil {
		logger.Warn("database not available, running without task journal", "error", err)
	} else {
		defer pool.Close()
		cfg.Tasks = repo.NewTaskRepo(pool)
	}

	conn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	defer conn.Close()

	if err := mq.SetupTopology(ctx, conn); err != nil {
		return fmt.Errorf("setup topology: %w", err)
	}
	logger.Debug("topology\n" + mq.TopologyInfo())

	cfg.Conn = conn
	cfg.Publisher = mq.NewPublisher(conn, logger)

	w := worker.New(cfg)
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, _ *http.Request) {
		if !conn.IsConnected() {
			http.Error(rw, "rabbitmq disconnected", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(rw, "ok")
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	port := "8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = v
	}
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return d
}
