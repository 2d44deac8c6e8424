// Package server exposes the detection engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/zhcheck/zhcheck/internal/cache"
	"github.com/zhcheck/zhcheck/internal/config"
	"github.com/zhcheck/zhcheck/internal/engine"
	"github.com/zhcheck/zhcheck/internal/logger"
	"github.com/zhcheck/zhcheck/internal/report"
	"github.com/zhcheck/zhcheck/internal/store"
	"github.com/zhcheck/zhcheck/internal/websocket"
)

// Server represents the main HTTP server.
type Server struct {
	config   *config.Config
	logger   *logger.Logger
	engine   *engine.Engine
	cache    *cache.ResultCache
	history  *store.HistoryStore
	exporter *report.Exporter
	limiter  *ipLimiter
	router   *mux.Router
	server   *http.Server
	wsHub    *websocket.Hub
}

// Deps carries the optional capabilities the server wires in. Nil cache
// or history simply disables those paths.
type Deps struct {
	Engine   *engine.Engine
	Cache    *cache.ResultCache
	History  *store.HistoryStore
	Exporter *report.Exporter
}

// New creates a new server instance
func New(cfg *config.Config, log *logger.Logger, deps Deps) (*Server, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if deps.Exporter == nil {
		return nil, fmt.Errorf("report exporter is required")
	}

	wsHub := websocket.NewHub(&websocket.HubConfig{
		MaxConnections:  cfg.WebSocket.MaxConnections,
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
	}, log.WithComponent("websocket").Logger)

	router := mux.NewRouter()

	server := &Server{
		config:   cfg,
		logger:   log.WithComponent("server"),
		engine:   deps.Engine,
		cache:    deps.Cache,
		history:  deps.History,
		exporter: deps.Exporter,
		router:   router,
		wsHub:    wsHub,
	}
	if cfg.RateLimit.Enabled {
		server.limiter = newIPLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/check", s.handleCheck).Methods("POST")
	api.HandleFunc("/report", s.handleReport).Methods("POST")
	api.HandleFunc("/rules/reload", s.handleRulesReload).Methods("POST")
	api.HandleFunc("/rules/diagnostics", s.handleRulesDiagnostics).Methods("GET")
	api.HandleFunc("/history", s.handleHistory).Methods("GET")

	download := s.router.PathPrefix("/download").Subrouter()
	download.Use(s.loggingMiddleware)
	download.HandleFunc("/{name}", s.handleDownload).Methods("GET")

	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting zhcheck server",
		zap.Int("port", s.config.Server.Port),
		zap.String("engine", s.engine.String()),
		zap.Bool("cache", s.cache != nil),
		zap.Bool("history", s.history != nil),
	)

	if s.config.WebSocket.Enabled {
		go s.wsHub.Run()
	}

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping zhcheck server")
	return s.server.Shutdown(ctx)
}

// Router exposes the route table for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// handleWebSocket handles WebSocket connections for live scan events
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}
