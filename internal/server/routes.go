package server

import (
	"log/slog"
	"net/http"
)

// NewRouter wires the run API onto a method-aware ServeMux and wraps it in
// request ID, panic recovery and access logging.
func NewRouter(h *Handlers, logger *slog.Logger) http.Handler {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"GET /health", h.Health},
		{"POST /runs", h.CreateRun},
		{"GET /runs/{id}", h.GetRun},
		{"GET /runs/{id}/jobs", h.ListRunJobs},
		{"GET /jobs/{id}", h.GetJob},
	}

	mux := http.NewServeMux()
	for _, rt := range routes {
		mux.Handle(rt.pattern, rt.handler)
	}

	return ChainMiddleware(
		RequestIDMiddleware(),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	)(mux)
}
