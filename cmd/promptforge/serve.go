package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	pfhttp "github.com/Strob0t/PromptForge/internal/adapter/http"
	pfnats "github.com/Strob0t/PromptForge/internal/adapter/nats"
	"github.com/Strob0t/PromptForge/internal/adapter/natskv"
	pfotel "github.com/Strob0t/PromptForge/internal/adapter/otel"
	"github.com/Strob0t/PromptForge/internal/adapter/postgres"
	"github.com/Strob0t/PromptForge/internal/adapter/ristretto"
	"github.com/Strob0t/PromptForge/internal/adapter/tiered"
	"github.com/Strob0t/PromptForge/internal/adapter/ws"
	"github.com/Strob0t/PromptForge/internal/config"
	"github.com/Strob0t/PromptForge/internal/middleware"
	"github.com/Strob0t/PromptForge/internal/port/cache"
	"github.com/Strob0t/PromptForge/internal/service"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a.cfg, a.log)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("config loaded",
		"port", cfg.Server.Port,
		"backend", cfg.Backend.URL,
		"log_level", cfg.Logging.Level,
		"cache_ttl", cfg.Cache.TTL,
		"nats", cfg.NATS.URL != "",
		"postgres", cfg.Postgres.DSN != "",
	)

	// --- Observability ---

	shutdownOTel, err := pfotel.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := pfotel.NewMetrics()
	if err != nil {
		log.Warn("otel metrics unavailable", "error", err)
	}

	// --- Infrastructure ---

	client := newBackend(cfg, log)
	prompts := service.NewPromptService(client, log)
	prompts.SetMetrics(metrics)

	checks := map[string]pfhttp.HealthCheck{"backend": client.Health}

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()
	var listCache cache.Cache = l1

	// NATS (optional)
	if cfg.NATS.URL != "" {
		queue, err := pfnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() {
			if err := queue.Drain(); err != nil {
				log.Warn("nats drain", "error", err)
			}
		}()
		prompts.SetQueue(queue, cfg.NATS.SubjectPrefix)
		checks["nats"] = func(context.Context) error {
			if !queue.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}

		if cfg.Cache.L2Bucket != "" && cfg.Cache.TTL > 0 {
			l2, err := natskv.Open(ctx, queue.JetStream(), cfg.Cache.L2Bucket, cfg.Cache.TTL)
			if err != nil {
				log.Warn("shared list cache unavailable, using in-process cache only", "error", err)
			} else {
				listCache = tiered.New(l1, l2, cfg.Cache.L1Expire, log)
				log.Info("shared list cache enabled", "bucket", cfg.Cache.L2Bucket)
			}
		}
	}
	prompts.SetCache(listCache, cfg.Cache.TTL)

	cancelChanges, err := prompts.StartChangeSubscriber(ctx)
	if err != nil {
		return fmt.Errorf("change subscriber: %w", err)
	}
	defer cancelChanges()

	// PostgreSQL activation journal (optional)
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		log.Info("migrations applied")
		store := postgres.NewStore(pool)
		prompts.SetJournal(store)
		checks["postgres"] = store.Ping
	}

	hub := ws.NewHub(originPatterns(cfg.Server.CORSOrigin))
	prompts.SetBroadcaster(hub)

	if err := prompts.LoadAll(ctx); err != nil {
		log.Warn("initial load failed, lists load on first request", "error", err)
	}

	// --- HTTP ---

	var evaluateLimit func(http.Handler) http.Handler
	if cfg.Server.EvaluateRate > 0 {
		rl := middleware.NewRateLimiter(cfg.Server.EvaluateRate, cfg.Server.EvaluateBurst)
		rl.StartCleanup(ctx, time.Minute, 10*time.Minute)
		evaluateLimit = rl.Handler
	}

	handlers := &pfhttp.Handlers{
		Prompts: prompts,
		Checks:  checks,
		Stats: func() map[string]any {
			s := l1.Stats()
			return map[string]any{
				"ws_connections":  hub.ConnectionCount(),
				"cache_hits":      s.Hits,
				"cache_misses":    s.Misses,
				"backend_circuit": client.BreakerState(),
			}
		},
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(pfotel.HTTPMiddleware(cfg.OTel.ServiceName))
	r.Use(middleware.RequestID)
	r.Use(pfhttp.SecurityHeaders)
	r.Use(pfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(pfhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	// WebSocket endpoint, outside the request timeout.
	r.Get("/ws", hub.HandleWS)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))
		pfhttp.MountRoutes(r, handlers, evaluateLimit)
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: it would also cut WebSocket connections.
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", addr)
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
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// originPatterns turns the CORS origin into a WebSocket origin pattern.
func originPatterns(corsOrigin string) []string {
	if corsOrigin == "" {
		return nil
	}
	if u, err := url.Parse(corsOrigin); err == nil && u.Host != "" {
		return []string{u.Host}
	}
	return []string{corsOrigin}
}
