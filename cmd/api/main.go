package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"github.com/kirillkom/content-filter/internal/bootstrap"
	"github.com/kirillkom/content-filter/internal/config"
	"github.com/kirillkom/content-filter/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(bootstrap.ServiceAPI, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		logger.Error("listen_failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	server := &http.Server{
		Handler:           app.Router(),
		ReadHeaderTimeout: time.Duration(cfg.APIReadHeaderTimeoutSeconds) * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	runDone := make(chan error, 1)
	go func() {
		runDone <- app.Run(ctx)
	}()

	go func() {
		logger.Info("api_listening",
			"port", cfg.APIPort,
			"max_connections", cfg.APIMaxConnections,
		)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.APIShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_failed", "error", err)
	}

	select {
	case err := <-runDone:
		if err != nil {
			logger.Error("pipeline_stopped_with_error", "error", err)
		}
	case <-shutdownCtx.Done():
		logger.Warn("pipeline_shutdown_timeout")
	}
	logger.Info("api_stopped")
}
