package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// APIPrefix is the group/version path the console queries
const APIPrefix = "/apis/api.linkshealthmonitor.tch.cool/v1alpha1"

// NewRouter creates the HTTP router with monitor, plugin and ops routes
func NewRouter(h *Handler, metrics http.Handler, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Route(APIPrefix, func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Get("/latestResult", h.GetLatestResult)
		r.Get("/results", h.ListResults)
		r.Get("/results/{name}", h.GetResult)
		r.Post("/run", h.Run)
	})

	r.Get("/plugin/descriptor", h.GetDescriptor)
	r.Get("/healthz", h.Health)

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	return r
}

// requestLogger logs each request at debug level
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
