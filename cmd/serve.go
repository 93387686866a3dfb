package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/taskmcp/taskmcp/client"
	"github.com/taskmcp/taskmcp/internal/api"
	"github.com/taskmcp/taskmcp/internal/config"
	"github.com/taskmcp/taskmcp/internal/telemetry"
	"github.com/taskmcp/taskmcp/pkg/types"
	"github.com/taskmcp/taskmcp/pkg/version"
	"go.uber.org/zap"
)

// backendProbeTimeout bounds the startup health check of the backend.
const backendProbeTimeout = 3 * time.Second

var (
	serveCmdTransport string
	serveCmdHost      string
	serveCmdPort      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP adapter",
	Long: "Start the MCP adapter on the configured transport.\n\n" +
		"stdio: newline-delimited JSON-RPC on stdin/stdout, for agents that spawn the adapter.\n" +
		"tcp:   the same framing over raw TCP sockets, one session per connection.\n" +
		"http:  streamable HTTP on /mcp, SSE on /sse and a REST view of the capabilities under /api/v0.\n\n" +
		"Logs always go to stderr, so stdout stays reserved for the stdio protocol.",
	GroupID: string(subCommandGroupBasic),
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().StringVar(
		&serveCmdTransport,
		"transport",
		"",
		fmt.Sprintf("transport to serve: stdio, tcp or http (overrides env var %s)", config.TransportEnvVar),
	)
	serveCmd.Flags().StringVar(
		&serveCmdHost,
		"host",
		"",
		fmt.Sprintf("host to bind the tcp and http transports to (overrides env var %s)", config.HostEnvVar),
	)
	serveCmd.Flags().StringVar(
		&serveCmdPort,
		"port",
		"",
		fmt.Sprintf(
			"port to bind to, defaults to %s for tcp and %s for http (overrides env var %s)",
			config.DefaultTCPPort, config.DefaultHTTPPort, config.PortEnvVar,
		),
	)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("transport") {
		cfg.Transport = serveCmdTransport
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = serveCmdHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = serveCmdPort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	transport, _ := types.ValidateTransport(cfg.Transport)

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelProviders, err := telemetry.Init(ctx, &telemetry.Config{
		ServiceName: "taskmcp",
		Enabled:     cfg.TelemetryEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shut down telemetry", zap.Error(err))
		}
	}()
	if otelProviders.IsEnabled() && transport != types.TransportHTTP {
		logger.Warn("telemetry is enabled but metrics are only exposed by the http transport")
	}

	metrics := telemetry.NewNoopCustomMetrics()
	if otelProviders.IsEnabled() {
		metrics, err = telemetry.NewOtelCustomMetrics(otelProviders.Meter)
		if err != nil {
			return fmt.Errorf("failed to create custom metrics: %w", err)
		}
	}

	svc, err := newMCPService(cfg, logger, metrics)
	if err != nil {
		return err
	}

	probeBackend(ctx, cfg, logger)
	logger.Info("starting taskmcp",
		zap.String("version", version.GetVersion()),
		zap.String("transport", string(transport)),
		zap.String("backend_url", cfg.BackendURL),
	)

	switch transport {
	case types.TransportStdio:
		ms := svc.NewMCPServer(string(types.TransportStdio))
		defer ms.CloseSessions()
		err = ms.ServeStream(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	case types.TransportTCP:
		err = api.NewTCPServer(cfg.ListenAddr(), svc, logger).Start(ctx)
	case types.TransportHTTP:
		var s *api.Server
		s, err = api.NewServer(&api.ServerOptions{
			Addr:          cfg.ListenAddr(),
			MCPService:    svc,
			APIKey:        cfg.APIKey,
			Logger:        logger,
			OtelProviders: otelProviders,
		})
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		if cfg.APIKey == "" {
			logger.Warn("no API key configured, the http gateway accepts unauthenticated requests")
		}
		err = s.Start(ctx)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s transport failed: %w", transport, err)
	}
	logger.Info("taskmcp stopped")
	return nil
}

// probeBackend logs whether the backend answers its health check.
// An unreachable backend is not fatal: calls fail with a connection error until it comes up.
func probeBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, backendProbeTimeout)
	defer cancel()

	c := client.NewClient(cfg.BackendURL, cfg.BackendAccessToken, client.NewHTTPClient(backendProbeTimeout))
	defer c.Close()
	meta, err := c.Health(ctx)
	if err != nil {
		logger.Warn("task backend is not reachable", zap.String("backend_url", cfg.BackendURL), zap.Error(err))
		return
	}
	logger.Info("task backend is reachable", zap.String("service", meta.Service), zap.String("status", meta.Status))
}
