package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики движка. Регистрируются в prometheus.DefaultRegisterer и
// отдаются через promhttp.Handler() на /metrics.
var (
	// TasksSubmitted — задачи, отправленные планировщику, по виду (train, execute, bi-execute).
	TasksSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "binet_tasks_submitted_total",
		Help: "Tasks submitted to a scheduler",
	}, []string{"kind"})

	// TasksFailed — задачи, завершившиеся ошибкой.
	TasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "binet_tasks_failed_total",
		Help: "Tasks that returned an error",
	}, []string{"kind"})

	// TasksExecuted — задачи, выполненные воркером.
	TasksExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "binet_worker_tasks_total",
		Help: "Tasks executed by a worker process",
	}, []string{"kind", "status"})

	// Joins — слияния снимков в живой узел.
	Joins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "binet_joins_total",
		Help: "Fork joins committed into live nodes",
	})

	// PhaseDuration — длительность одной фазы (dispatch + collect + join).
	PhaseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "binet_phase_duration_seconds",
		Help:    "Duration of a parallel training phase",
		Buckets: prometheus.DefBuckets,
	})

	// RoutingHops — число выполнений стадий за один execute BiFlow.
	RoutingHops = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "binet_routing_hops",
		Help:    "Stage executions per BiFlow execute",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	// HTTPRequests — запросы к API журнала.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "binet_http_requests_total",
		Help: "HTTP requests served by the journal API",
	}, []string{"method", "status"})
)
