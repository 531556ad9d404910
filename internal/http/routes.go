package httpx

import (
	"log/slog"
	"net/http"

	"github.com/modubang/notify-api/internal/service"
)

// RouterServices holds the services needed by the HTTP router.
type RouterServices struct {
	Dispatch *service.DispatchService
	Logger   *slog.Logger // Optional: request logging
}

// NewRouter creates and configures the dispatch API router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	dispatchHandlers := &DispatchHandlers{Svc: services.Dispatch}
	mux.HandleFunc("POST /api/dispatch-jobs", dispatchHandlers.CreateJob)
	mux.HandleFunc("GET /api/dispatch-jobs/{id}", dispatchHandlers.GetJob)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
