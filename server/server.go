// Package server exposes the cache's admin HTTP surface: metrics for the
// dashboard and maintenance actions for operators.
package server

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/brightpath/lmscache/config"
	"github.com/brightpath/lmscache/logger"
)

// Server wraps the echo instance with its configuration.
type Server struct {
	echo *echo.Echo
	cfg  config.ServerConfig
	log  logger.Logger
}

// New builds an echo server with the standard middleware stack.
func New(cfg config.ServerConfig, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(RequestIDMiddleware())
	e.Use(RequestLoggerMiddleware(log))

	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	return &Server{echo: e, cfg: cfg, log: log}
}

// Echo exposes the underlying instance for route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start blocks serving HTTP until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.log.Info().Str("addr", addr).Msg("Admin API listening")
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
