package api

import "net/http"

// RegisterRoutes регистрирует маршруты API на mux. Все маршруты только
// на чтение: журнал пишут планировщики.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	wrap := Chain(Recovery(h.logger), Logging(h.logger))

	routes := map[string]handlerFunc{
		"GET /api/v1/runs":            h.ListRuns,
		"GET /api/v1/runs/{id}":       h.GetRun,
		"GET /api/v1/runs/{id}/tasks": h.ListRunTasks,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, wrap(h.serve(fn)))
	}
}
