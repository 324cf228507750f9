package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/heartmarshall/keycustody-backend/internal/config"
	"github.com/heartmarshall/keycustody-backend/internal/transport/middleware"
	"github.com/heartmarshall/keycustody-backend/internal/transport/rest"
)

// Run is the custody daemon entry point. It loads configuration, wires the
// key custody services, serves the health probes and runs scheduled rotation
// until ctx is cancelled, then shuts the server down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting keycustody",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	c, err := Wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	srv := newServer(cfg, logger, c)
	sched := NewScheduler(logger, c.Keyring, cfg.Keyring)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", slog.String("error", err.Error()))
	}
	wg.Wait()

	logger.Info("stopped")
	return nil
}

func newServer(cfg *config.Config, logger *slog.Logger, c *Components) *http.Server {
	mux := http.NewServeMux()
	rest.NewHealthHandler(c.Pool, c.Keyring, cfg.Keyring.RotationContexts, BuildVersion()).Register(mux)

	handler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
	)(mux)

	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
