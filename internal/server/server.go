// Package server собирает HTTP сервер аннотаций: маршруты, middleware
// и graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mkrasnov/pagemark/internal/server/handlers"
	"github.com/mkrasnov/pagemark/internal/server/middleware"
	"github.com/mkrasnov/pagemark/internal/server/storage"
)

// Config конфигурация HTTP сервера
type Config struct {
	Addr           string
	Version        string
	JWTSecret      string
	AccessCodeHash string
	AccessTokenTTL time.Duration
}

// Server HTTP сервер аннотаций
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// Storage объединяет хранилища, нужные серверу
type Storage interface {
	storage.AnnotationStorage
	storage.ChatStorage
}

// New собирает сервер с полным набором маршрутов
func New(cfg Config, store Storage, logger *slog.Logger) *Server {
	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(cfg.JWTSecret),
		AccessTokenTTL: cfg.AccessTokenTTL,
	}

	healthHandler := handlers.NewHealthHandler(logger, cfg.Version)
	sessionHandler := handlers.NewSessionHandler(logger, jwtConfig, cfg.AccessCodeHash)
	annotationsHandler := handlers.NewAnnotationsHandler(logger, store)
	chatHandler := handlers.NewChatHandler(logger, store, nil)

	authRequired := middleware.AuthMiddleware(logger, jwtConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.HandleFunc("POST /api/v1/auth/session", sessionHandler.OpenSession)

	mux.Handle("GET /api/v1/annotations", authRequired(http.HandlerFunc(annotationsHandler.List)))
	mux.Handle("POST /api/v1/annotations", authRequired(http.HandlerFunc(annotationsHandler.Create)))
	mux.Handle("PATCH /api/v1/annotations/{id}", authRequired(http.HandlerFunc(annotationsHandler.Update)))
	mux.Handle("DELETE /api/v1/annotations/{id}", authRequired(http.HandlerFunc(annotationsHandler.Delete)))
	mux.Handle("POST /api/v1/annotations/{id}/replies", authRequired(http.HandlerFunc(annotationsHandler.CreateReply)))
	mux.Handle("POST /api/v1/chat", authRequired(http.HandlerFunc(chatHandler.Stream)))

	// Открытие сессии и чат лимитируются жестче остального API
	rateLimited := middleware.RateLimitByPathMiddleware([]middleware.PathRateLimit{
		{Path: "/api/v1/auth/session", Rate: 10, Window: time.Minute},
		{Path: "/api/v1/chat", Rate: 30, Window: time.Minute},
	}, 600, time.Minute, logger)

	var handler http.Handler = mux
	handler = rateLimited(handler)
	handler = middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// WriteTimeout не ставим: поток чата пишет дольше обычного
			// запроса
			IdleTimeout: 2 * time.Minute,
		},
		logger: logger,
	}
}

// Run блокирует до остановки сервера
func (s *Server) Run() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
