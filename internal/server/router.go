package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/segmenter/internal/handlers"
	"github.com/telhawk-systems/segmenter/internal/metrics"
	"github.com/telhawk-systems/segmenter/internal/middleware"
)

// NewRouter constructs a ServeMux with segment API routes registered and
// wraps it in the request id, access log and CORS middleware.
func NewRouter(h *handlers.Handler, logger *slog.Logger, cors middleware.CORSConfig) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/segments/groups", h.Groups)
	mux.HandleFunc("/api/v1/segments/date-filters", h.DateFilters)
	mux.HandleFunc("/api/v1/segments/options", h.Options)
	mux.HandleFunc("/api/v1/segments/selections", h.Selections)
	mux.HandleFunc("/api/v1/segments/compose", h.Compose)
	mux.HandleFunc("/api/v1/segments/validate", h.Validate)
	mux.HandleFunc("/api/v1/segments/explain", h.Explain)
	mux.HandleFunc("/api/v1/segments/run", h.Run)
	mux.HandleFunc("/api/v1/segments/saved", h.SavedSegments)
	mux.HandleFunc("/api/v1/segments/saved/", h.SavedSegmentByID)
	mux.HandleFunc("/healthz", h.Health)
	mux.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = middleware.CORS(cors)(handler)
	handler = middleware.AccessLog(logger, metrics.ObserveHTTP)(handler)
	handler = middleware.RequestID(handler)
	return handler
}
