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
	"github.com/taskmcp/taskmcp/internal/backend"
	"github.com/taskmcp/taskmcp/internal/config"
	"github.com/taskmcp/taskmcp/internal/db"
	"github.com/taskmcp/taskmcp/internal/migrations"
	"github.com/taskmcp/taskmcp/internal/service/task"
	"github.com/taskmcp/taskmcp/internal/telemetry"
	"go.uber.org/zap"
)

var (
	backendCmdPort   string
	backendCmdDBUrl  string
	backendCmdNoSeed bool
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Start the reference task backend",
	Long: "Start the reference task management REST API that the adapter talks to.\n\n" +
		fmt.Sprintf("Tasks are stored in a SQLite file (%s) unless a Postgres DSN is configured,\n", db.DefaultSQLiteFile) +
		fmt.Sprintf("either with %s or with the individual POSTGRES_* variables.\n", config.DBUrlEnvVar) +
		"An empty database is seeded with a handful of sample tasks.",
	GroupID: string(subCommandGroupAdvanced),
	RunE:    runBackend,
}

func init() {
	backendCmd.Flags().StringVar(
		&backendCmdPort,
		"port",
		"",
		fmt.Sprintf("HTTP port to bind to (overrides env var %s, default %s)", config.BackendPortEnvVar, config.DefaultBackendPort),
	)
	backendCmd.Flags().StringVar(
		&backendCmdDBUrl,
		"database-url",
		"",
		fmt.Sprintf("database DSN, a postgres:// URL or a SQLite file path (overrides env var %s)", config.DBUrlEnvVar),
	)
	backendCmd.Flags().BoolVar(&backendCmdNoSeed, "no-seed", false, "do not insert sample tasks into an empty database")
	rootCmd.AddCommand(backendCmd)
}

func runBackend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.BackendPort = backendCmdPort
	}
	if cmd.Flags().Changed("database-url") {
		cfg.DatabaseURL = backendCmdDBUrl
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelProviders, err := telemetry.Init(ctx, &telemetry.Config{
		ServiceName: "taskmcp-backend",
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

	dbConn, err := db.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := migrations.Migrate(dbConn); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	taskService := task.NewTaskService(dbConn, logger)
	if !backendCmdNoSeed {
		n, err := taskService.SeedIfEmpty(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}
		if n > 0 {
			logger.Info("seeded sample tasks", zap.Int("count", n))
		}
	}

	s, err := backend.NewServer(&backend.ServerOptions{
		Port:          cfg.BackendPort,
		TaskService:   taskService,
		Logger:        logger,
		OtelProviders: otelProviders,
	})
	if err != nil {
		return fmt.Errorf("failed to create backend server: %w", err)
	}

	logger.Info("task backend listening", zap.String("port", cfg.BackendPort))
	if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("backend server failed: %w", err)
	}
	logger.Info("task backend stopped")
	return nil
}
