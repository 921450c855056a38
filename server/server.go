package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agrostat/server/handlers"
	"agrostat/server/middleware"
)

// Config параметры HTTP сервера
type Config struct {
	Port string
	Host string
}

// Server HTTP сервер API
type Server struct {
	config     Config
	handler    *handlers.Handler
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer собирает роутер: middleware, маршруты API, /metrics и Swagger
func NewServer(cfg Config, handler *handlers.Handler, registry *prometheus.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	if ginMode := os.Getenv("GIN_MODE"); ginMode == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.GinRequestIDMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.GinGzipMiddleware())
	router.Use(middleware.GinLoggerMiddleware(logger))
	router.Use(middleware.GinRecoveryMiddleware(logger))

	if registry != nil {
		router.Use(middleware.GinMetricsMiddleware(registry))
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	}

	host := cfg.Host
	if host == "" {
		host = "localhost:" + cfg.Port
	}
	handlers.RegisterSwaggerRoutes(router, host)
	handler.Register(router)

	return &Server{
		config:  cfg,
		handler: handler,
		router:  router,
		logger:  logger,
	}
}

// ServeHTTP реализует http.Handler для тестов
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start запускает HTTP сервер и блокируется до остановки
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server on %s: %w", s.httpServer.Addr, err)
	}
	return nil
}

// Shutdown останавливает сервер и фоновый сбор
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop HTTP server: %w", err))
		}
	}
	if err := s.handler.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop collection run: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Info("graceful shutdown completed")
	return nil
}
