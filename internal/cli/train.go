package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/dataset"
	"github.com/shaiso/binet/internal/domain"
	"github.com/shaiso/binet/internal/engine"
	"github.com/shaiso/binet/internal/mq"
	"github.com/shaiso/binet/internal/node"
	"github.com/shaiso/binet/internal/remote"
	"github.com/shaiso/binet/internal/repo"
	"github.com/shaiso/binet/internal/scheduler"
	"github.com/shaiso/binet/internal/telemetry"
)

// Виды планировщика для --scheduler.
const (
	SchedulerSequential = "sequential"
	SchedulerPool       = "pool"
	SchedulerRemote     = "remote"
)

// ErrUnknownScheduler — неизвестное значение --scheduler.
var ErrUnknownScheduler = errors.New("unknown scheduler")

// ErrNoData — не заданы ни --data, ни --synthetic.
var ErrNoData = errors.New("no training data: use --data or --synthetic")

// TrainOptions — параметры команды train.
type TrainOptions struct {
	Spec string

	// Data — CSV по стадиям, "-" пропускает стадию.
	Data      []string
	Synthetic bool
	Seed      int64
	Chunks    int

	// Execute — CSV для выполнения обученного flow.
	Execute string
	// Output — куда писать результат execute: "-" для stdout.
	Output string
	// Save — куда сохранить обученные узлы (JSON).
	Save string

	Scheduler string
	Workers   int

	// Для --scheduler remote.
	RabbitURL string
	Journal   bool
}

// SavedFlow — обученный flow в JSON.
type SavedFlow struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Nodes []node.Envelope `json:"nodes"`
}

// NewTrainCmd создаёт команду train.
func NewTrainCmd(outputFn func() *Output, loggerFn func() *slog.Logger) *cobra.Command {
	opts := TrainOptions{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a flow from a spec and optionally execute it",
		Example: `  binet train --spec flow.yaml --data stage0.csv,-,stage2.csv --execute x.csv --output -
  binet train --spec flow.yaml --synthetic --scheduler pool --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunTrain(cmd.Context(), opts, outputFn(), loggerFn())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Spec, "spec", "", "Path to flow spec YAML (required)")
	f.StringSliceVar(&opts.Data, "data", nil, "CSV file per stage, '-' skips a stage")
	f.BoolVar(&opts.Synthetic, "synthetic", false, "Train on uniform random chunks")
	f.Int64Var(&opts.Seed, "seed", 0, "Seed for --synthetic")
	f.IntVar(&opts.Chunks, "chunks", dataset.DefaultChunks, "Number of chunks per stage")
	f.StringVar(&opts.Execute, "execute", "", "CSV file to execute after training")
	f.StringVar(&opts.Output, "output", "", "Write execute result to file ('-' for stdout)")
	f.StringVar(&opts.Save, "save", "", "Save trained nodes to JSON file")
	f.StringVar(&opts.Scheduler, "scheduler", SchedulerSequential, "Scheduler: sequential, pool or remote")
	f.IntVar(&opts.Workers, "workers", 0, "Pool size (default: GOMAXPROCS)")
	f.StringVar(&opts.RabbitURL, "rabbitmq-url", mq.URLFromEnv(), "RabbitMQ URL for the remote scheduler")
	f.BoolVar(&opts.Journal, "journal", false, "Record runs and tasks in PostgreSQL (DB_URL)")
	cmd.MarkFlagRequired("spec")

	return cmd
}

// RunTrain выполняет команду train.
func RunTrain(ctx context.Context, opts TrainOptions, out *Output, logger *slog.Logger) error {
	spec, err := engine.LoadSpec(opts.Spec)
	if err != nil {
		return err
	}
	reg := engine.Registry()
	f, err := engine.Build(spec, reg)
	if err != nil {
		return err
	}

	data, err := trainingData(opts, f.Len())
	if err != nil {
		return err
	}

	var x []*array.Matrix
	if opts.Execute != "" {
		m, err := dataset.Load(opts.Execute)
		if err != nil {
			return fmt.Errorf("execute data: %w", err)
		}
		if x, err = dataset.Chunks(m, opts.Chunks); err != nil {
			return err
		}
	}

	sched, closeFn, err := newScheduler(ctx, opts, reg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	logger = logger.With("flow", spec.Name, "scheduler", opts.Scheduler)
	ctx = telemetry.WithLogger(ctx, logger)

	err = withRun(ctx, sched, domain.NewRun(spec.Name, domain.RunKindTrain, f.Len(), opts.Chunks), func() error {
		return f.Train(ctx, data, sched)
	})
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	logger.Info("flow trained", "stages", f.Len(), "input_dim", f.InputDim(), "output_dim", f.OutputDim())

	out.Notef("Flow %q trained", spec.Name)
	if opts.Output == "" {
		if err := printStages(out, f.Nodes()); err != nil {
			return err
		}
	}

	if opts.Save != "" {
		if err := saveFlow(opts.Save, spec, reg, f.Nodes()); err != nil {
			return err
		}
		out.Notef("Saved to %s", opts.Save)
	}

	if x == nil {
		return nil
	}

	var y *array.Matrix
	err = withRun(ctx, sched, domain.NewRun(spec.Name, domain.RunKindExecute, f.Len(), len(x)), func() error {
		var err error
		y, err = f.ExecuteChunks(ctx, x, sched)
		return err
	})
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	logger.Info("flow executed", "rows", y.Rows, "cols", y.Cols)

	return writeResult(opts.Output, out, y)
}

func trainingData(opts TrainOptions, stages int) ([][]*array.Matrix, error) {
	switch {
	case len(opts.Data) > 0:
		return dataset.LoadStages(opts.Data, opts.Chunks)
	case opts.Synthetic:
		return dataset.Synthetic{Seed: opts.Seed, Chunks: opts.Chunks}.Generate(stages)
	default:
		return nil, ErrNoData
	}
}

// newScheduler создаёт планировщик по --scheduler. closeFn останавливает
// его и освобождает соединения.
func newScheduler(ctx context.Context, opts TrainOptions, reg *node.Registry, logger *slog.Logger) (scheduler.Scheduler, func(), error) {
	switch opts.Scheduler {
	case "", SchedulerSequential:
		s := scheduler.NewSequential()
		return s, func() { s.Shutdown(context.Background()) }, nil

	case SchedulerPool:
		p := scheduler.NewPool(scheduler.PoolConfig{Workers: opts.Workers, Logger: logger})
		return p, func() { p.Shutdown(context.Background()) }, nil

	case SchedulerRemote:
		return newRemoteScheduler(ctx, opts, reg, logger)

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownScheduler, opts.Scheduler)
	}
}

func newRemoteScheduler(ctx context.Context, opts TrainOptions, reg *node.Registry, logger *slog.Logger) (scheduler.Scheduler, func(), error) {
	conn, err := mq.NewConnection(opts.RabbitURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("setup topology: %w", err)
	}

	cfg := remote.Config{
		Codec:     engine.Codec(reg),
		Publisher: mq.NewPublisher(conn, logger),
		Conn:      conn,
		Logger:    logger,
	}

	closers := []func(){func() { conn.Close() }}
	if opts.Journal {
		pool, err := repo.Open(ctx, repo.DBConfigFromEnv())
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		cfg.Tasks = repo.NewTaskRepo(pool)
		cfg.Runs = repo.NewRunRepo(pool)
		closers = append(closers, pool.Close)
	}

	s := remote.New(cfg)
	if err := s.Start(ctx); err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, err
	}

	closeFn := func() {
		if err := s.Shutdown(context.Background()); err != nil {
			logger.Warn("remote scheduler shutdown", "error", err)
		}
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return s, closeFn, nil
}

// runTracker — планировщик, который ведёт журнал runs.
type runTracker interface {
	StartRun(ctx context.Context, run *domain.Run) error
	FinishRun(ctx context.Context, err error) error
}

// withRun оборачивает fn в run, если планировщик ведёт журнал.
func withRun(ctx context.Context, sched scheduler.Scheduler, run *domain.Run, fn func() error) error {
	rt, ok := sched.(runTracker)
	if !ok {
		return fn()
	}
	if err := rt.StartRun(ctx, run); err != nil {
		return err
	}
	err := fn()
	if ferr := rt.FinishRun(ctx, err); ferr != nil && err == nil {
		return ferr
	}
	return err
}

func saveFlow(path string, spec *engine.FlowSpec, reg *node.Registry, nodes []node.Node) error {
	envs, err := reg.EncodeAll(nodes)
	if err != nil {
		return fmt.Errorf("encode flow: %w", err)
	}
	data, err := json.MarshalIndent(SavedFlow{Name: spec.Name, Type: spec.FlowType(), Nodes: envs}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeResult(path string, out *Output, y *array.Matrix) error {
	switch path {
	case "":
		out.Notef("Executed: %d rows x %d columns", y.Rows, y.Cols)
		return nil
	case "-":
		return out.Matrix(y)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.Write(f, y); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	out.Notef("Result written to %s", path)
	return nil
}
