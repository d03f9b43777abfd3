package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jun/fitadvice/internal/app"
	"github.com/jun/fitadvice/internal/config"
	"github.com/jun/fitadvice/internal/logging"
	"github.com/jun/fitadvice/internal/metrics"
	httptransport "github.com/jun/fitadvice/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	logger := logging.New(os.Stderr, "info", "text")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	logger = logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	application, err := app.NewApp(ctx, cfg, logger, app.WithMetrics(collector))
	if err != nil {
		logger.Error("failed to initialize app", "error", err)
		return err
	}
	defer application.Close()

	router := httptransport.NewRouter(application.HandleRequest, metrics.Handler(reg), logger)
	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting local server", "address", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
