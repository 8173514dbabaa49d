// Package server exposes the latest HostPulse snapshot over HTTP: JSON,
// a websocket stream and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/hostpulse/internal/diagnostics"
	"github.com/HerbHall/hostpulse/internal/version"
)

const streamWriteTimeout = 5 * time.Second

// Server is the HostPulse HTTP view.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	limiter    *rate.Limiter
	metrics    *metrics
	hub        *hub
	now        func() time.Time

	mu      sync.RWMutex
	latest  []byte
	current diagnostics.SystemStats
	updated time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit caps the request rate across all routes. A non-positive rps
// disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a new Server listening on addr once Start is called.
func New(addr string, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		logger:  logger,
		mux:     mux,
		metrics: newMetrics(),
		hub:     newHub(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// Hijacked websocket connections are not closed by Shutdown.
	s.httpServer.RegisterOnShutdown(s.hub.close)

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/v1/stream", s.handleStream)
	s.mux.Handle("GET /metrics", s.metrics.handler())
	s.mux.HandleFunc("/", s.handleNotFound)
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil {
			res := s.limiter.Reserve()
			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				RateLimited(w, delay, r.URL.Path)
				return
			}
		}
		s.mux.ServeHTTP(w, r)
	})
}

// Update publishes a new snapshot. It is safe to call from the scheduler
// goroutine while requests are being served.
func (s *Server) Update(stats diagnostics.SystemStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		s.logger.Error("failed to encode snapshot", zap.Error(err))
		return
	}
	now := s.now()

	s.mu.Lock()
	s.latest = data
	s.current = stats
	s.updated = now
	s.mu.Unlock()

	s.metrics.observe(stats, float64(now.UnixNano())/1e9)

	if dropped := s.hub.broadcast(data); dropped > 0 {
		s.logger.Debug("stream subscribers lagging, snapshot dropped", zap.Int("dropped", dropped))
	}
}

// Latest returns the most recent snapshot and whether one has been received.
func (s *Server) Latest() (diagnostics.SystemStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.latest != nil
}

// Start begins serving HTTP requests and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Serve is like Start but accepts connections on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server and disconnects stream clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	updated := s.updated
	s.mu.RUnlock()

	body := map[string]any{
		"status":      "ok",
		"service":     "hostpulse",
		"version":     version.Current(),
		"subscribers": s.hub.count(),
	}
	if !updated.IsZero() {
		body["last_snapshot"] = updated.UTC().Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(version.Header, version.Short())
	_ = json.NewEncoder(w).Encode(body)
}

// handleStats returns the latest snapshot.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	data := s.latest
	s.mu.RUnlock()

	if data == nil {
		NoSnapshot(w, r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(version.Header, version.Short())
	_, _ = w.Write(data)
}

// handleStream upgrades to a websocket and pushes every snapshot as a JSON
// text message, starting with the latest one if any.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ch, ok := s.hub.subscribe()
	if !ok {
		Unavailable(w, "server is shutting down", r.URL.Path)
		return
	}
	defer s.hub.unsubscribe(ch)

	// Lift the server-wide timeouts; the stream is long-lived.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	s.logger.Debug("stream client connected", zap.String("remote", r.RemoteAddr))

	// Inbound messages are ignored; ctx ends when the client goes away.
	ctx := conn.CloseRead(r.Context())

	s.mu.RLock()
	initial := s.latest
	s.mu.RUnlock()
	if initial != nil {
		if err := writeMessage(ctx, conn, initial); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, open := <-ch:
			if !open {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := writeMessage(ctx, conn, msg); err != nil {
				s.logger.Debug("stream write failed", zap.Error(err))
				return
			}
		}
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFound(w, "no route for "+r.Method+" "+r.URL.Path, r.URL.Path)
}
