package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"

	"voicetrader/src/auth"
	"voicetrader/src/connectors"
	"voicetrader/src/dispatcher"
	"voicetrader/src/handler"
)

// StatusReporter is satisfied by *connectors.DerivClient.
type StatusReporter interface {
	Status() connectors.Status
}

// NewRouter wires the HTTP surface. status may be nil when no trading client is configured.
func NewRouter(d *dispatcher.Dispatcher, status StatusReporter, apiKey string) http.Handler {
	r := chi.NewRouter()
	// === Global Middleware ===
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/status", handler.StatusHandler(status))
	r.Get("/tools", handler.ListToolsHandler())

	// Tool calls
	r.Group(func(r chi.Router) {
		r.Use(auth.BearerToken(apiKey))
		r.Post("/tools/{name}", handler.CallToolHandler(d))
	})

	return r
}

// Run serves h on addr until ctx is cancelled, then shuts down within timeout.
func Run(ctx context.Context, addr string, h http.Handler, timeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", addr)
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

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
		return err
	}
	return nil
}

// StartServer blocks until SIGINT or SIGTERM.
func StartServer(cfg *Config, d *dispatcher.Dispatcher, status StatusReporter) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return Run(ctx, ":"+cfg.Port, NewRouter(d, status, cfg.ToolsAPIKey), cfg.ShutdownTimeout)
}
