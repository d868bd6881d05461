// Package server assembles the HTTP surface.
package server

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/heomed/docgen/internal/handlers"
	"github.com/heomed/docgen/internal/httpx"
	"github.com/heomed/docgen/internal/logging"
	"github.com/heomed/docgen/internal/services"
)

// New constructs the root http.Handler with all routes and middleware applied.
func New(db *gorm.DB, svc *services.DocumentService) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	handlers.NewDocumentHandler(svc).Register(mux)

	return withLogging(mux)
}

// withLogging logs one line per request with method, path, status, and latency.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Logger().Info("http request",
			"method", r.Method, "path", r.URL.Path,
			"status", rec.status, "duration_ms", time.Since(start).Milliseconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
