// Package api provides the HTTP API layer of the product strategy gateway.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"product-strategy-gateway/internal/api/handlers"
	"product-strategy-gateway/internal/api/middleware"
	"product-strategy-gateway/internal/api/response"
	"product-strategy-gateway/internal/config"
	"product-strategy-gateway/internal/export"
	"product-strategy-gateway/internal/logging"
	"product-strategy-gateway/internal/session"
	"product-strategy-gateway/internal/websocket"
)

// Version is reported by the health endpoint and the OpenAPI document
const Version = "1.0.0"

// Dependencies are the services the router exposes
type Dependencies struct {
	Config     *config.Config
	Logger     logging.Logger
	Generator  handlers.Generator
	Sessions   session.Store
	Lifecycle  handlers.Lifecycle
	Strategies handlers.StrategyStore
	Exporter   *export.Exporter
	Hub        *websocket.Hub
	// Checks are added to the health endpoint; a failing critical check returns 503
	Checks         map[string]handlers.CheckFunc
	CriticalChecks map[string]bool
}

// Router represents the main API router
type Router struct {
	deps          Dependencies
	mux           *chi.Mux
	health        *handlers.HealthHandler
	shutdownFuncs []func(context.Context) error
}

// NewRouter creates a new API router with middleware and routes
func NewRouter(deps Dependencies) *Router {
	if deps.Config == nil {
		deps.Config = config.DefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNoOpLogger()
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewExporter()
	}
	if deps.Hub == nil {
		deps.Hub = websocket.NewHub(deps.Logger)
	}

	r := &Router{
		deps:   deps,
		mux:    chi.NewRouter(),
		health: handlers.NewHealthHandler(Version),
	}
	for name, check := range deps.Checks {
		r.health.AddCheck(name, check, deps.CriticalChecks[name])
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Handler returns the HTTP handler
func (r *Router) Handler() http.Handler {
	return r.mux
}

// OnShutdown registers a function run by Stop
func (r *Router) OnShutdown(fn func(context.Context) error) {
	r.shutdownFuncs = append(r.shutdownFuncs, fn)
}

// setupMiddleware configures the middleware stack
func (r *Router) setupMiddleware() {
	r.mux.Use(chimiddleware.Recoverer)
	r.mux.Use(r.timeoutMiddleware())
	r.mux.Use(middleware.NewLoggingMiddleware(r.deps.Logger).Handler())
	r.mux.Use(middleware.NewCORSMiddleware(middleware.CORSConfig{
		AllowedOrigins: r.deps.Config.Server.AllowedOrigins,
	}).Handler())
	r.mux.Use(chimiddleware.RequestSize(10 * 1024 * 1024))
	r.mux.Use(chimiddleware.Heartbeat("/ping"))
}

// timeoutMiddleware bounds every request except the websocket streams. The bound
// sits above the generation timeout so handlers report their own timeouts first.
func (r *Router) timeoutMiddleware() func(http.Handler) http.Handler {
	limit := time.Duration(r.deps.Config.Server.WriteTimeout) * time.Second
	if limit <= 0 {
		limit = 2 * time.Minute
	}
	return func(next http.Handler) http.Handler {
		bounded := chimiddleware.Timeout(limit)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.HasPrefix(req.URL.Path, "/ws") || strings.HasSuffix(req.URL.Path, "/solutions/bulk") {
				next.ServeHTTP(w, req)
				return
			}
			bounded.ServeHTTP(w, req)
		})
	}
}

// setupRoutes configures API routes
func (r *Router) setupRoutes() {
	cfg := r.deps.Config
	logger := r.deps.Logger
	timeout := time.Duration(cfg.Server.GenerationTimeout) * time.Second

	sessionHandler := handlers.NewSessionHandler(r.deps.Sessions, r.deps.Lifecycle, r.deps.Generator, r.deps.Hub, timeout, logger)
	generationHandler := handlers.NewGenerationHandler(r.deps.Generator, r.deps.Sessions, timeout, logger)
	strategyHandler := handlers.NewStrategyHandler(r.deps.Strategies, r.deps.Sessions, r.deps.Exporter, logger)

	wsConfig := websocket.DefaultServerConfig()
	wsConfig.AllowedOrigins = cfg.Server.AllowedOrigins
	wsHandler := handlers.NewWebSocketHandler(websocket.NewServer(r.deps.Hub, wsConfig, logger), r.deps.Lifecycle, logger)

	r.mux.Get("/health", r.health.Handle)
	r.mux.Get("/openapi.json", r.handleOpenAPI)

	r.mux.Route("/api/v1", func(rtr chi.Router) {
		rtr.Get("/health", r.health.Handle)

		rtr.Route("/sessions", func(sr chi.Router) {
			sr.Post("/", sessionHandler.Create)
			sr.Get("/{id}", sessionHandler.Get)
			sr.Put("/{id}/input", sessionHandler.PutInput)
			sr.Post("/{id}/analysis", sessionHandler.StartAnalysis)
			sr.Delete("/{id}/analysis", sessionHandler.ResetAnalysis)
			sr.Post("/{id}/solutions/bulk", sessionHandler.BulkSolutions)
		})

		rtr.Post("/feedback", generationHandler.Feedback)
		rtr.Route("/suggestions", func(sr chi.Router) {
			sr.Post("/model", generationHandler.SuggestModel)
			sr.Post("/challenges", generationHandler.SuggestChallenges)
			sr.Post("/solutions", generationHandler.SuggestSolutions)
			sr.Post("/features", generationHandler.SuggestFeatures)
		})
		rtr.Post("/chat/description", generationHandler.DescribeFromChat)

		if r.deps.Strategies != nil {
			rtr.Route("/strategies", func(sr chi.Router) {
				sr.Post("/", strategyHandler.Create)
				sr.Get("/", strategyHandler.List)
				sr.Get("/{id}", strategyHandler.Get)
				sr.Put("/{id}", strategyHandler.Update)
				sr.Delete("/{id}", strategyHandler.Delete)
			})
			rtr.Get("/share/{shareID}", strategyHandler.GetShared)
			rtr.Get("/share/{shareID}/export", strategyHandler.ExportShared)
		}
	})

	r.mux.Get("/ws/sessions/{id}", wsHandler.HandleSession)

	r.mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.WriteNotFound(w, req.URL.Path)
	})
	r.mux.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.WriteMethodNotAllowed(w, req.Method)
	})
}

func (r *Router) handleOpenAPI(w http.ResponseWriter, req *http.Request) {
	doc, err := OpenAPIDocument(Version)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	data, err := doc.MarshalJSON()
	if err != nil {
		response.WriteError(w, err)
		return
	}
	_, _ = w.Write(data)
}

// Stop gracefully shuts down all router components
func (r *Router) Stop(ctx context.Context) error {
	var errs []error
	for _, shutdownFunc := range r.shutdownFuncs {
		if err := shutdownFunc(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("router shutdown errors: %v", errs)
	}
	return nil
}
