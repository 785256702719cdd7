package preview

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/volume-discount/internal/health"
	"github.com/noah-isme/volume-discount/internal/obs"
	"github.com/noah-isme/volume-discount/internal/ratelimit"
	"github.com/noah-isme/volume-discount/internal/security"
)

// RouterConfig wires the preview server's dependencies.
type RouterConfig struct {
	Logger          zerolog.Logger
	Functions       *Handler
	Health          health.Handler
	HTTPMetrics     *obs.HTTPMetrics
	MetricsHandler  http.Handler
	Tracing         bool
	AllowedOrigins  []string
	SecurityHeaders bool
	RateLimiter     ratelimit.Limiter
}

// NewRouter assembles the middleware chain and routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: cfg.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: cfg.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.AllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "Traceparent"},
		ExposedHeaders:   []string{obs.RunIDHeader, "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: true}.Middleware)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	r.Get("/health/live", cfg.Health.Live)
	r.Get("/health/ready", cfg.Health.Ready)

	r.Route("/api/v1/functions", func(fr chi.Router) {
		fr.Use(ratelimit.Handler{
			Limiter: cfg.RateLimiter,
			OnError: func(err error) {
				cfg.Logger.Warn().Err(err).Msg("rate limiter unavailable")
			},
		}.Middleware)
		cfg.Functions.Routes(fr)
	})
	return r
}

// DefaultMetricsHandler serves the default Prometheus registry.
func DefaultMetricsHandler() http.Handler {
	return promhttp.Handler()
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000", "http://localhost:8080"}
	}
	return origins
}
