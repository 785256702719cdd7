package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/volume-discount/internal/config"
	"github.com/noah-isme/volume-discount/internal/discount"
	"github.com/noah-isme/volume-discount/internal/function"
	"github.com/noah-isme/volume-discount/internal/health"
	"github.com/noah-isme/volume-discount/internal/obs"
	"github.com/noah-isme/volume-discount/internal/paymentcustom"
	"github.com/noah-isme/volume-discount/internal/preview"
	"github.com/noah-isme/volume-discount/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := obs.NewLogger(os.Stderr, "json", "info")
		boot.Error().Err(err).Msg("load config")
		os.Exit(1)
	}

	logger := obs.NewLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	}

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "volume-discount-preview",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	probes := map[string]health.Probe{}
	var limiter ratelimit.Limiter
	switch cfg.RateLimitStore {
	case config.RateLimitMemory:
		limiter = ratelimit.NewMemory(cfg.RateLimitWindow, cfg.RateLimitMax)
	case config.RateLimitRedis:
		redisClient := mustInitRedis(ctx, cfg, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		limiter = ratelimit.SlidingWindow{
			Client: redisClient,
			Prefix: "volume-discount:ratelimit:",
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		}
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	validate := validator.New()
	functions := &preview.Handler{
		Registry: function.NewRegistry(
			discount.NewFunction(validate),
			paymentcustom.NewFunction(validate),
		),
		Runner: function.Runner{Logger: &logger, MaxInputBytes: cfg.FunctionInputMaxBytes},
	}

	routerCfg := preview.RouterConfig{
		Logger:          logger,
		Functions:       functions,
		Health:          health.Handler{Probes: probes},
		Tracing:         tracingEnabled,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		SecurityHeaders: cfg.SecurityHeadersEnabled,
		RateLimiter:     limiter,
	}
	if cfg.MetricsEnabled {
		routerCfg.HTTPMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)
		routerCfg.MetricsHandler = preview.DefaultMetricsHandler()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           preview.NewRouter(routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Strs("functions", functions.Registry.Handles()).Msg("preview server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("preview server stopped")
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}
