package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"somniadash/internal/client"
	"somniadash/internal/config"
	"somniadash/internal/dashboard"
	"somniadash/internal/ws"
)

const refreshTimeout = 30 * time.Second

// Server exposes view snapshots over HTTP and WebSocket
type Server struct {
	cfg        *config.Config
	dash       *dashboard.Dashboard
	client     *client.Client
	hub        *ws.Hub
	router     chi.Router
	httpServer *http.Server
	listener   net.Listener
	started    time.Time
	logger     zerolog.Logger
}

// New creates a new Server
func New(cfg *config.Config, dash *dashboard.Dashboard, c *client.Client, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		dash:   dash,
		client: c,
		hub:    ws.NewHub(dash, logger),
		logger: logger.With().Str("component", "server").Logger(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	// Upgraded connections need the raw ResponseWriter
	r.Get("/ws", s.hub.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(recoverer(s.logger))
		r.Use(requestLogger(s.logger))

		r.Get("/healthz", s.handleHealth)
		r.Route("/views", func(r chi.Router) {
			r.Get("/", s.handleViews)
			r.Get("/{name}", s.handleView)
			r.Post("/{name}/refresh", s.handleRefresh)
		})
		r.Post("/cache/flush", s.handleFlush)
	})

	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Addr returns the listen address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start starts the server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.started = time.Now()

	s.hub.Start()

	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		s.logger.Info().
			Str("addr", ln.Addr().String()).
			Msg("starting snapshot server")
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("snapshot server error")
		}
	}()

	s.logger.Info().
		Str("http", fmt.Sprintf("http://%s/views", ln.Addr())).
		Str("ws", fmt.Sprintf("ws://%s/ws", ln.Addr())).
		Msg("endpoint available")

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server...")

	s.hub.Stop()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("snapshot server shutdown error: %w", err)
		}
	}

	s.logger.Info().Msg("server stopped")
	return nil
}

type healthResponse struct {
	Status    string       `json:"status"`
	Uptime    float64      `json:"uptimeSeconds"`
	Backend   string       `json:"backend"`
	Cache     client.Stats `json:"cache"`
	CacheSize int          `json:"cacheSize"`
	WSClients int          `json:"wsClients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var uptime float64
	if !s.started.IsZero() {
		uptime = time.Since(s.started).Seconds()
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Uptime:    uptime,
		Backend:   s.client.BaseURL(),
		Cache:     s.client.Stats(),
		CacheSize: s.client.CacheLen(),
		WSClients: s.hub.ClientCount(),
	})
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"views": s.dash.Snapshots()})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	st, err := s.dash.Snapshot(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	st, err := s.dash.Refresh(ctx, chi.URLParam(r, "name"))
	switch {
	case errors.Is(err, dashboard.ErrUnknownView):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dashboard.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		// The view keeps its previous data; report the failure alongside it
		writeJSON(w, http.StatusBadGateway, st)
	default:
		writeJSON(w, http.StatusOK, st)
	}
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	s.client.Flush()
	s.logger.Info().Msg("response cache flushed")
	writeJSON(w, http.StatusOK, map[string]bool{"flushed": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
