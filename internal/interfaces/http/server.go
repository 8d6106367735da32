// Package http is the read-only JSON surface over the strength store and
// odds engine, plus the health, metrics and refresh feed endpoints.
package http

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/gregleo12/spooky-football-engine/internal/config"
	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

// apiTimeout bounds one API request end to end. The websocket feed is
// exempt; its lifetime is the connection's.
const apiTimeout = 10 * time.Second

type ctxKey int

const requestIDKey ctxKey = iota

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

// Deps wires a Server. Service is required; the rest degrade gracefully
// when absent.
type Deps struct {
	Service *Service
	Health  *HealthChecker
	Hub     *Hub
	Metrics *Metrics
}

// Server owns the router and the underlying http.Server.
type Server struct {
	router  *mux.Router
	server  *http.Server
	cfg     *config.ServerConfig
	h       *Handlers
	hub     *Hub
	metrics *Metrics
}

// NewServer builds the router and verifies the listen address is free.
func NewServer(cfg *config.ServerConfig, deps Deps) (*Server, error) {
	if cfg == nil {
		cfg = config.GetDefaultServerConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Service == nil {
		return nil, domain.NewError(domain.KindConfiguration, "server requires a query service")
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, domain.WrapError(domain.KindConfiguration, "listen address unavailable", err)
	}
	listener.Close()

	s := &Server{
		router:  mux.NewRouter(),
		cfg:     cfg,
		h:       NewHandlers(deps.Service, deps.Health),
		hub:     deps.Hub,
		metrics: deps.Metrics,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
		IdleTimeout:  cfg.GetIdleTimeout(),
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.withRequestID)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.timeoutMiddleware)
	api.Use(jsonContentTypeMiddleware)

	api.HandleFunc("/teams", s.h.Teams).Methods("GET")
	api.HandleFunc("/teams/ranking", s.h.Ranking).Methods("GET")
	api.HandleFunc("/strength/{team}", s.h.Strength).Methods("GET")
	api.HandleFunc("/form/{team}", s.h.Form).Methods("GET")
	api.HandleFunc("/odds/{home}/{away}", s.h.Odds).Methods("GET")
	api.HandleFunc("/coverage", s.h.Coverage).Methods("GET")
	api.HandleFunc("/last-update", s.h.LastUpdate).Methods("GET")

	s.router.HandleFunc("/health", s.h.Health).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
	if s.hub != nil {
		s.router.HandleFunc("/ws/refresh", s.hub.Serve).Methods("GET")
	}

	s.router.NotFoundHandler = s.withRequestID(http.HandlerFunc(s.h.NotFound))
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start blocks serving until Shutdown or a listener error.
func (s *Server) Start() error {
	log.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests within the context's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}

// Address returns the configured listen address.
func (s *Server) Address() string { return s.cfg.Addr }

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		if s.metrics != nil {
			s.metrics.ObserveRequest(routeTemplate(r), r.Method, wrapper.status, duration)
		}
		log.Info().
			Str("request_id", requestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.status).
			Dur("duration", duration).
			Str("remote", r.RemoteAddr).
			Msg("Request served")
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware admits browser callers from local origins only.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working through the logging wrapper.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hj.Hijack()
}
