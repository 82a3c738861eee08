// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/seat-reservation/internal/config"
	"github.com/Shivanand-hulikatti/seat-reservation/internal/database"
	"github.com/Shivanand-hulikatti/seat-reservation/internal/handler"
	"github.com/Shivanand-hulikatti/seat-reservation/internal/logger"
	"github.com/Shivanand-hulikatti/seat-reservation/internal/metrics"
	"github.com/Shivanand-hulikatti/seat-reservation/internal/repository"
	"github.com/Shivanand-hulikatti/seat-reservation/internal/service"
	"github.com/Shivanand-hulikatti/seat-reservation/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Set(logger.New(cfg.App.Environment, cfg.App.LogLevel))
	defer func() { _ = logger.Sync() }()
	logger.Info("starting seat reservation API",
		zap.String("env", cfg.App.Environment),
		zap.Bool("production", cfg.IsProduction()),
	)

	if err := run(cfg); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Tracing ───────────────────────────────────────────────────────
	tel, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	// ── 2. PostgreSQL pool and schema ────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database, tel.QueryTracer())
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to PostgreSQL", zap.Int32("max_conns", cfg.Database.MaxConns))

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, cfg.Database); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewWithRegistry(reg)

	eventRepo := repository.NewEventRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	bookingSvc := service.NewBookingService(eventRepo, bookingRepo, m, tel.Tracer(), cfg.Booking.ReserveTimeout)

	router := handler.NewRouter(
		handler.NewBookingHandler(bookingSvc),
		handler.NewHealthHandler(pool),
		m,
		reg,
	)

	// ── 4. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     zap.NewStdLog(logger.Get()),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
