package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel/trace"

	"github.com/digitallysavvy/ollama-gateway/internal/config"
	"github.com/digitallysavvy/ollama-gateway/internal/gwlog"
	"github.com/digitallysavvy/ollama-gateway/pkg/telemetry"
)

// NewRouter builds the chi router exposing the four endpoints, wrapped with
// recovery, permissive CORS (clients authenticate to Anthropic, not to
// this gateway), tracing, and per-request logging carrying a generated
// request ID. telemetrySettings may be nil, which yields a no-op tracer.
func NewRouter(cfg config.Config, log hclog.Logger, telemetrySettings *telemetry.Settings) http.Handler {
	s := NewServer(cfg, log, telemetrySettings)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(tracingMiddleware(s.tracer))
	r.Use(loggingMiddleware(log))
	r.Use(middleware.Timeout(cfg.RequestTimeout + 10*time.Second))
	r.Use(rateLimitMiddleware(cfg.RateLimitRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/v1/models", s.handleModels)
	r.Post("/v1/messages/count_tokens", s.handleCountTokens)
	r.Post("/v1/messages", s.handleMessages)

	return r
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(setRequestID(r.Context(), id)))
	})
}

func tracingMiddleware(tracer trace.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "http.request", trace.WithAttributes(
				telemetry.RequestAttributes(r.Method, r.URL.Path, requestIDFrom(r.Context()))...,
			))
			defer span.End()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func loggingMiddleware(log hclog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			requestLog := gwlog.ForRequest(log, requestIDFrom(r.Context()))
			requestLog.Info("request started", "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(ww, r)
			requestLog.Info("request completed",
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
