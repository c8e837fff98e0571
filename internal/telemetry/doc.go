// Package telemetry обеспечивает наблюдаемость движка и сервисов.
//
// Включает:
//   - logging.go — structured logging через slog, логгер в контексте
//   - metrics.go — Prometheus метрики задач, фаз, маршрутизации и API
//
// Оркестраторы берут логгер из контекста (FromContext) и добавляют к нему
// стадию и фазу. Сервисы экспортируют метрики на /metrics endpoint.
package telemetry
