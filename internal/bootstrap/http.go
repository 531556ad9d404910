package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/modubang/notify-api/config"
	httpx "github.com/modubang/notify-api/internal/http"
)

// HTTPServerConfig contains configuration for starting the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// StartHTTPServer creates and starts the HTTP server in a goroutine.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	router := httpx.NewRouter(httpx.RouterServices{
		Dispatch: cfg.Services.Dispatch,
		Logger:   cfg.Logger,
	})

	addr := cfg.Config.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		cfg.Logger.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains configuration for graceful server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server, draining
// in-flight requests until the context deadline.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	cfg.Logger.Info("stopping HTTP server")
	if err := cfg.Server.Shutdown(cfg.Context); err != nil {
		cfg.Logger.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	cfg.Logger.Info("HTTP server stopped")
	return nil
}
