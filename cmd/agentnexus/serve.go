package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lcgani/agent-nexus/internal/telemetry"
	"github.com/lcgani/agent-nexus/registry"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	var (
		transport string
		addr      string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog as MCP tools",
		Long: "Serve the catalog over MCP. The stdio transport reads JSON-RPC from stdin.\n" +
			"The http transport mounts /mcp, /sse, /healthz and /metrics on --addr.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := opts.service(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()
			if _, err := svc.Setup(ctx); err != nil {
				return err
			}

			reg := registry.New(registry.Config{
				ServerInfo: registry.ServerInfo{Name: "agent-nexus", Version: version},
				Logger:     opts.logger.Named("registry"),
			})
			if err := registry.RegisterCatalog(reg, svc, opts.cfg.Search.TopK); err != nil {
				return err
			}

			switch transport {
			case "stdio":
				return serveStdio(ctx, opts, reg)
			case "http":
				if addr == "" {
					addr = opts.cfg.Metrics.ListenAddress
				}
				return telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
					Addr:          addr,
					EnableMetrics: true,
					Registry:      opts.registry,
					Handlers: map[string]http.Handler{
						"/mcp": registry.ServeHTTP(reg),
						"/sse": registry.ServeSSE(reg),
					},
				}, opts.logger)
			default:
				return fmt.Errorf("unknown transport %q", transport)
			}
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "stdio", "stdio or http")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address for the http transport (default metrics.listenAddress)")
	return cmd
}

// serveStdio runs the stdio transport and, when metrics.listenAddress is
// set, a metrics endpoint next to it.
func serveStdio(ctx context.Context, opts *cliOptions, reg *registry.Registry) error {
	if opts.cfg.Metrics.ListenAddress == "" {
		return registry.ServeStdio(ctx, reg)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
			Addr:          opts.cfg.Metrics.ListenAddress,
			EnableMetrics: true,
			Registry:      opts.registry,
		}, opts.logger)
		cancel()
	}()

	err := registry.ServeStdio(ctx, reg)
	opts.logger.Info("stdio transport closed", zap.Error(err))
	cancel()
	if herr := <-httpErr; err == nil {
		err = herr
	}
	return err
}
