package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	cfhttp "github.com/Strob0t/interviewlab/internal/adapter/http"
	"github.com/Strob0t/interviewlab/internal/adapter/llm"
	"github.com/Strob0t/interviewlab/internal/adapter/natskv"
	cfotel "github.com/Strob0t/interviewlab/internal/adapter/otel"
	"github.com/Strob0t/interviewlab/internal/adapter/ristretto"
	"github.com/Strob0t/interviewlab/internal/adapter/storage"
	"github.com/Strob0t/interviewlab/internal/adapter/tiered"
	"github.com/Strob0t/interviewlab/internal/adapter/ws"
	"github.com/Strob0t/interviewlab/internal/config"
	"github.com/Strob0t/interviewlab/internal/middleware"
	"github.com/Strob0t/interviewlab/internal/port/cache"
	"github.com/Strob0t/interviewlab/internal/resilience"
	"github.com/Strob0t/interviewlab/internal/service"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and WebSocket event stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts, port)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides server.port)")
	return cmd
}

func serve(ctx context.Context, opts *rootOptions, port string) error {
	cfg, flush, err := opts.setup()
	if err != nil {
		return err
	}
	defer flush()
	if port != "" {
		cfg.Server.Port = port
	}

	// --- Observability ---

	shutdownTelemetry, err := cfotel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()
	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	env, err := openEnv(ctx, cfg, storage.Options{OnBlobLookup: metrics.RecordBlobLookup})
	if err != nil {
		return err
	}
	defer env.close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"backend", env.opened.Kind,
		"log_level", cfg.Logging.Level,
		"telemetry", cfg.Telemetry.Enabled,
	)

	promptCache, err := newPromptCache(ctx, cfg, env.opened)
	if err != nil {
		return err
	}
	defer promptCache.close()

	llmClient := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Services ---
	hub := ws.NewHub(originHost(cfg.Server.CORSOrigin))
	defer hub.Close()

	prompts := service.NewPromptService(env.store, promptCache.cache, cfg.Cache.PromptTTL)
	profiles := service.NewProfileService(env.store)
	settingsSvc := service.NewSettingsService(env.store, cfg.LLM.Model)
	runs := service.NewRunService(env.store, prompts, hub)
	runs.SetMetrics(metrics)
	orchestrator := service.NewOrchestrator(env.store, prompts, profiles, settingsSvc, llmClient, llmClient, hub, cfg.Orchestrator)
	orchestrator.SetMetrics(metrics)

	// --- HTTP ---
	handlers := &cfhttp.Handlers{
		Runs:         runs,
		Orchestrator: orchestrator,
		Prompts:      prompts,
		Profiles:     profiles,
		Settings:     settingsSvc,
		Backend:      env.store.Backend(),
		ModelGuards: []func(http.Handler) http.Handler{
			rateLimit(ctx, cfg.Server),
			middleware.Idempotency(promptCache.cache, cfg.Server.IdempotencyTTL),
		},
	}

	r := chi.NewRouter()
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfhttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(cfhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Telemetry.Enabled {
		r.Use(cfotel.HTTPMiddleware(cfg.Telemetry.ServiceName))
	}

	r.Get("/ws", hub.HandleWS)
	cfhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// A simulated step makes two model calls and may also evaluate.
		WriteTimeout: 3*cfg.LLM.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// rateLimit returns the per-client limiter for model-calling routes, or nil
// when server.rate_limit_rps is 0.
func rateLimit(ctx context.Context, cfg config.Server) func(http.Handler) http.Handler {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go rl.Run(ctx, 5*time.Minute)
	return rl.Handler
}

// promptCache is the tiered cache of prompt versions: ristretto in process,
// backed by a NATS bucket when the kv backend is in use.
type promptCache struct {
	cache cache.Cache
	l1    *ristretto.Cache
}

func (p *promptCache) close() { p.l1.Close() }

func newPromptCache(ctx context.Context, cfg *config.Config, opened *storage.Opened) (*promptCache, error) {
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return nil, fmt.Errorf("l1 cache: %w", err)
	}
	var l2 cache.Cache
	if opened.NATS != nil && cfg.Cache.L2Bucket != "" {
		bucket, err := opened.NATS.Bucket(ctx, cfg.Cache.L2Bucket, cfg.Cache.PromptTTL)
		if err != nil {
			l1.Close()
			return nil, fmt.Errorf("l2 cache: %w", err)
		}
		l2 = natskv.NewCache(bucket)
		slog.Info("prompt cache", "l2_bucket", cfg.Cache.L2Bucket)
	}
	return &promptCache{cache: tiered.New(l1, l2, cfg.Cache.PromptTTL), l1: l1}, nil
}

// originHost turns the configured CORS origin into the host pattern used to
// check WebSocket upgrades. An unparseable or wildcard origin accepts any.
func originHost(origin string) string {
	if origin == "" || origin == "*" {
		return ""
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}
