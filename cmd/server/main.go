// server is the product strategy gateway binary. It serves the structured generation
// endpoints, the analysis lifecycle, saved strategies and the session event stream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"product-strategy-gateway/internal/ai"
	"product-strategy-gateway/internal/analysis"
	"product-strategy-gateway/internal/api"
	"product-strategy-gateway/internal/api/handlers"
	"product-strategy-gateway/internal/config"
	"product-strategy-gateway/internal/gateway"
	"product-strategy-gateway/internal/logging"
	"product-strategy-gateway/internal/session"
	"product-strategy-gateway/internal/storage"
	"product-strategy-gateway/internal/websocket"
)

const shutdownTimeout = 15 * time.Second

func main() {
	var (
		addr = flag.String("addr", "", "HTTP listen address (overrides host and port from config)")
		mock = flag.Bool("mock", false, "Answer every generation with canned sample replies instead of calling the model")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Options{
		Level: logging.ParseLogLevel(cfg.Logging.Level),
		JSON:  cfg.Logging.Format != "text",
		Color: true,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApplication(ctx, cfg, logger, *mock)
	if err != nil {
		logger.Fatal("Failed to initialize server", "error", err)
	}

	listen := *addr
	if listen == "" {
		listen = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	if err := app.serve(ctx, listen); err != nil {
		logger.Error("Server stopped with error", "error", err)
	}
}

// application is the wired set of server components
type application struct {
	cfg    *config.Config
	logger logging.Logger
	router *api.Router
}

// newApplication wires every component from configuration. The returned
// application owns the session store, the database and the websocket hub.
func newApplication(ctx context.Context, cfg *config.Config, logger logging.Logger, mock bool) (*application, error) {
	transport := newTransport(cfg, logger, mock)
	gw := gateway.New(transport, gateway.Config{
		Model:            cfg.AI.Model,
		APIKeyConfigured: mock || cfg.AI.KeyConfigured(),
	}, logger)
	if !mock && !cfg.AI.KeyConfigured() {
		logger.Warn("No AI credential configured; generation requests will fail until OPENAI_API_KEY is set")
	}

	checks := map[string]handlers.CheckFunc{
		"ai_credentials": func(context.Context) error {
			if mock || cfg.AI.KeyConfigured() {
				return nil
			}
			return errors.New("no API key configured")
		},
	}
	critical := map[string]bool{}
	var shutdown []func(context.Context) error

	sessions, err := newSessionStore(ctx, cfg, logger, checks, critical, &shutdown)
	if err != nil {
		return nil, err
	}

	dialect := storage.Dialect(cfg.Storage.Driver)
	db, err := storage.Open(ctx, dialect, cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}
	repo := storage.NewStrategyRepository(db, dialect)
	applied, err := repo.Migrate(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, m := range applied {
		logger.Info("Applied migration", "version", m.Version, "description", m.Description, "duration_ms", m.ExecutionTime.Milliseconds())
	}
	checks["database"] = repo.Ping
	critical["database"] = true
	shutdown = append(shutdown, func(context.Context) error { return db.Close() })

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	router := api.NewRouter(api.Dependencies{
		Config:         cfg,
		Logger:         logger,
		Generator:      gw,
		Sessions:       sessions,
		Lifecycle:      analysis.NewMachine(sessions, gw, hub, logger),
		Strategies:     repo,
		Hub:            hub,
		Checks:         checks,
		CriticalChecks: critical,
	})
	for _, fn := range shutdown {
		router.OnShutdown(fn)
	}

	return &application{cfg: cfg, logger: logger, router: router}, nil
}

func newTransport(cfg *config.Config, logger logging.Logger, mock bool) ai.Transport {
	if mock {
		logger.Info("Serving canned sample replies")
		transport := ai.NewMockTransport()
		transport.Responder = gateway.SampleResponder()
		return transport
	}
	return ai.NewClient(ai.ClientConfig{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout(),
	}, logger)
}

func newSessionStore(
	ctx context.Context,
	cfg *config.Config,
	logger logging.Logger,
	checks map[string]handlers.CheckFunc,
	critical map[string]bool,
	shutdown *[]func(context.Context) error,
) (session.Store, error) {
	switch cfg.Session.Backend {
	case "redis":
		store, err := session.NewRedisStore(ctx, session.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Session.TTL(),
		})
		if err != nil {
			return nil, err
		}
		checks["sessions"] = store.Ping
		critical["sessions"] = true
		*shutdown = append(*shutdown, func(context.Context) error { return store.Close() })
		logger.Info("Using redis session store", "addr", cfg.Redis.Addr)
		return store, nil

	case "", "memory":
		store := session.NewMemoryStore()
		go expireSessions(ctx, store, cfg.Session.TTL(), logger)
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported session backend %q", cfg.Session.Backend)
	}
}

// expireSessions drops idle in-memory sessions until ctx is done
func expireSessions(ctx context.Context, store *session.MemoryStore, ttl time.Duration, logger logging.Logger) {
	if ttl <= 0 {
		return
	}
	interval := ttl / 4
	if interval > 10*time.Minute {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := store.CleanupExpired(ttl); n > 0 {
				logger.Debug("Expired idle sessions", "count", n, "remaining", store.Len())
			}
		case <-ctx.Done():
			return
		}
	}
}

// serve runs the HTTP server until ctx is cancelled, then shuts down gracefully
func (a *application) serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.router.Handler(),
		ReadTimeout:       time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Product strategy gateway listening", "addr", addr, "model", a.cfg.AI.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.router.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
