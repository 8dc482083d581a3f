package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type HTTPServerOptions struct {
	Addr          string
	EnableMetrics bool
	Registry      prometheus.Gatherer
	// Handlers are mounted next to /metrics and /healthz, keyed by pattern.
	Handlers map[string]http.Handler
	// Ready, when set, receives the bound address once listening.
	Ready func(addr net.Addr)
}

// StartHTTPServer serves until ctx is done, then shuts down gracefully.
// A bind failure is returned immediately.
func StartHTTPServer(ctx context.Context, opts HTTPServerOptions, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !opts.EnableMetrics && len(opts.Handlers) == 0 {
		return nil
	}

	addr := opts.Addr
	if addr == "" {
		addr = "127.0.0.1:9090"
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	if opts.EnableMetrics {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	for pattern, h := range opts.Handlers {
		mux.Handle(pattern, h)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http server failed to start: %w", err)
	}
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if opts.Ready != nil {
		opts.Ready(listener.Addr())
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", listener.Addr().String()),
			zap.Bool("metrics", opts.EnableMetrics),
		)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", zap.Error(err))
			return err
		}
		logger.Info("http server stopped")
		return nil
	}
}
