package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gm-shop/gm_shop/internal/config"
	"github.com/gm-shop/gm_shop/internal/routes"
)

// Server wraps the Fiber application, the transaction dispatcher and the
// shared dependencies.
type Server struct {
	app    *fiber.App
	cfg    config.Config
	logger *slog.Logger
	parts  *components

	stopDispatcher context.CancelFunc
	dispatcherDone chan error
}

// New builds every service and delegates route wiring to routes.Setup.
// level is raised to debug while the shop's debug_logging setting is on.
func New(ctx context.Context, cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger, level *slog.LevelVar) (*Server, error) {
	parts, err := build(ctx, cfg, db, cache, logger, level)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
	})
	if err := routes.Setup(app, parts.deps); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, logger: logger, parts: parts}, nil
}

// Listen starts the dispatcher on the authority, then the HTTP server.
func (s *Server) Listen() error {
	if s.parts.dispatcher != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopDispatcher = cancel
		s.dispatcherDone = make(chan error, 1)
		go func() { s.dispatcherDone <- s.parts.dispatcher.Run(ctx) }()
	}
	s.logger.Info("http server listening", slog.String("addr", s.cfg.Address()), slog.Bool("authority", s.cfg.Authority))
	return s.app.Listen(s.cfg.Address())
}

// Shutdown declines pending approvals, drains in-flight transactions and
// stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.parts.registry != nil {
		s.parts.registry.Close()
	}
	if s.stopDispatcher != nil {
		s.stopDispatcher()
		select {
		case err := <-s.dispatcherDone:
			errs = append(errs, err)
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}
	errs = append(errs, s.app.ShutdownWithContext(ctx))
	if s.parts.requester != nil {
		errs = append(errs, s.parts.requester.Close())
	}
	errs = append(errs, s.parts.bus.Close())
	return errors.Join(errs...)
}
