package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/roomops/herald/pkg/utils"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the status endpoints. The caller owns the http.Server
// and its shutdown.
func NewRouter(handler *Handler, logger *logrus.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	router.HandleFunc("/api/v1/health", handler.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/jobs", handler.ListJobs).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/blacklist", handler.GetBlacklist).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/runner/start", handler.StartRunner).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/runner/stop", handler.StopRunner).Methods(http.MethodPost)

	return router
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{w, http.StatusOK}
			next.ServeHTTP(rw, r)

			logger.WithFields(logrus.Fields{
				"method":    r.Method,
				"path":      r.URL.Path,
				"status":    rw.status,
				"duration":  utils.FormatElapsed(time.Since(start)),
				"remote_ip": r.RemoteAddr,
			}).Info("Request processed")
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
