package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/theoremus-urban-solutions/ridenav/navigation"
	"github.com/theoremus-urban-solutions/ridenav/position"
	"github.com/theoremus-urban-solutions/ridenav/route"
)

// Planner plans a route between two points.
type Planner interface {
	Plan(ctx context.Context, req route.Request) (*route.Route, error)
}

// Server is the HTTP front of a navigator.
type Server struct {
	nav      *navigation.Navigator
	push     *position.PushSource
	planner  Planner
	hub      *Hub
	log      *slog.Logger
	validate *validator.Validate
	started  time.Time

	httpServer *http.Server
}

// New wires the handlers. push is nil when fixes come from another source,
// and planner is nil when only route documents are accepted.
func New(nav *navigation.Navigator, push *position.PushSource, planner Planner, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	return &Server{
		nav:      nav,
		push:     push,
		planner:  planner,
		hub:      hub,
		log:      logger.With("component", "server"),
		validate: validator.New(),
		started:  time.Now(),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/navigation", s.handleSnapshot)
	mux.HandleFunc("POST /api/navigation/start", s.handleStart)
	mux.HandleFunc("POST /api/navigation/fix", s.handleFix)
	mux.HandleFunc("POST /api/navigation/audio", s.handleAudio)
	mux.HandleFunc("POST /api/navigation/reroute", s.handleReroute)
	mux.HandleFunc("POST /api/navigation/end", s.handleEnd)
	mux.HandleFunc("GET /api/alerts/tone", s.handleTone)
	mux.Handle("GET /ws", s.hub)
	return mux
}

// Start listens on port in the background.
func (s *Server) Start(port int) {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()
	s.log.Info("server listening", "addr", addr)
}

// WaitForShutdown blocks until SIGINT or SIGTERM, ends any active session
// and shuts the listener down.
func (s *Server) WaitForShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	s.log.Info("shutdown signal received")

	if _, err := s.nav.End(); err != nil && !errors.Is(err, navigation.ErrNoActiveSession) {
		s.log.Warn("failed to end session", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.httpServer == nil {
		return
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("server shutdown error", "error", err)
		return
	}
	s.log.Info("server shut down successfully")
}
