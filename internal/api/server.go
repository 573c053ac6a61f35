package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ohftok/ohftok-render/internal/admission"
	"github.com/ohftok/ohftok-render/internal/identity"
	"github.com/ohftok/ohftok-render/internal/render"
	"github.com/ohftok/ohftok-render/internal/videos"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port      int
	Render    render.Client
	Guards    admission.Chain
	Processor SuccessProcessor
	Videos    videos.Repository
	Verifier  identity.Verifier
	RateLimit func(http.Handler) http.Handler
	Logger    *slog.Logger
	StartTime time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.Port),
			Handler:     router,
			ReadTimeout: 15 * time.Second,
			// Write timeout stays off: a status poll that triggers
			// transcoding legitimately takes minutes.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
