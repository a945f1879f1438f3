// Package server exposes the news service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pders01/newsd/internal/config"
	"github.com/pders01/newsd/internal/logging"
	"github.com/pders01/newsd/internal/news"
)

// DefaultSearchLimit caps ranked search results when the caller gives none.
const DefaultSearchLimit = 20

// SchedulerStatus is what /health reports about the refresh scheduler.
type SchedulerStatus interface {
	Interval() time.Duration
	Ticks() uint64
}

type Server struct {
	cfg       config.ServerConfig
	svc       *news.Service
	engine    *gin.Engine
	started   time.Time
	scheduler SchedulerStatus
}

// New builds the router. An invalid rate limit is reported here rather than
// at the first request.
func New(cfg config.ServerConfig, svc *news.Service) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("server: service is required")
	}

	s := &Server{
		cfg:     cfg,
		svc:     svc,
		engine:  gin.New(),
		started: time.Now(),
	}

	s.engine.Use(RequestID(), AccessLog(), Recovery())
	if cfg.RateLimit != "" {
		limit, err := RateLimit(cfg.RateLimit)
		if err != nil {
			return nil, err
		}
		s.engine.Use(limit)
	}

	s.registerRoutes()
	return s, nil
}

// SetScheduler adds the scheduler to /health. Call it before serving.
func (s *Server) SetScheduler(st SchedulerStatus) {
	s.scheduler = st
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	users := s.engine.Group("/users")
	{
		users.POST("/signup", s.handleSignup)
		users.POST("/login", s.handleLogin)

		authed := users.Group("", Authenticate(s.svc))
		authed.GET("/preferences", s.handleGetPreferences)
		authed.PUT("/preferences", s.handleUpdatePreferences)
	}

	newsGroup := s.engine.Group("/news", Authenticate(s.svc))
	{
		newsGroup.GET("", s.handleGetNews)
		newsGroup.POST("/:id/read", s.handleMarkRead)
		newsGroup.POST("/:id/favorite", s.handleMarkFavorite)
		newsGroup.GET("/read", s.handleGetRead)
		newsGroup.GET("/favorites", s.handleGetFavorites)
		newsGroup.GET("/search", s.handleSearch)
		newsGroup.GET("/search/:keyword", s.handleSearch)
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener. It takes ownership of ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logging.Infof("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
