// Package cmd implements the taskmcp command line.
package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/taskmcp/taskmcp/client"
	"github.com/taskmcp/taskmcp/internal/config"
	"github.com/taskmcp/taskmcp/internal/logging"
	"github.com/taskmcp/taskmcp/internal/service/mcp"
	"github.com/taskmcp/taskmcp/internal/telemetry"
	"go.uber.org/zap"
)

type subCommandGroup string

const (
	subCommandGroupBasic    subCommandGroup = "basic"
	subCommandGroupAdvanced subCommandGroup = "advanced"
)

// backendClientBurst is the burst size of the optional per-session rate limit.
const backendClientBurst = 5

var (
	rootCmdConfigFile string
	rootCmdBackendURL string
	rootCmdLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "taskmcp",
	Short: "Expose a task management backend to AI agents over MCP",
	Long: "taskmcp is a Model Context Protocol adapter for a task management backend.\n" +
		"It advertises task tools, resources and prompts, and translates calls into backend API requests.\n\n" +
		"Settings are read from command line flags, environment variables (a .env file in the working\n" +
		"directory is loaded too) and an optional YAML config file, in that order of precedence.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: string(subCommandGroupBasic), Title: "Basic Commands:"},
		&cobra.Group{ID: string(subCommandGroupAdvanced), Title: "Advanced Commands:"},
	)

	rootCmd.PersistentFlags().StringVar(
		&rootCmdConfigFile,
		"config",
		"",
		fmt.Sprintf("path to a YAML config file (overrides env var %s)", config.ConfigFileEnvVar),
	)
	rootCmd.PersistentFlags().StringVar(
		&rootCmdBackendURL,
		"backend-url",
		"",
		fmt.Sprintf("base URL of the task backend (overrides env var %s)", config.BackendURLEnvVar),
	)
	rootCmd.PersistentFlags().StringVar(
		&rootCmdLogLevel,
		"log-level",
		"",
		fmt.Sprintf("minimum log level: debug, info, warn or error (overrides env var %s)", config.LogLevelEnvVar),
	)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration and applies the persistent flags on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.NewLoader(nil, nil).Load(rootCmdConfigFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("backend-url") {
		cfg.BackendURL = rootCmdBackendURL
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = rootCmdLogLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
}

// newBackendFactory returns a factory that gives every session its own backend client.
func newBackendFactory(cfg *config.Config) mcp.BackendFactory {
	return func() mcp.TaskBackend {
		c := client.NewClient(cfg.BackendURL, cfg.BackendAccessToken, client.NewHTTPClient(cfg.BackendTimeout()))
		c.SetRateLimit(cfg.BackendRateLimit, backendClientBurst)
		return c
	}
}

func newMCPService(cfg *config.Config, logger *zap.Logger, metrics telemetry.CustomMetrics) (*mcp.MCPService, error) {
	svc, err := mcp.NewMCPService(&mcp.ServiceConfig{
		NewBackend: newBackendFactory(cfg),
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP service: %w", err)
	}
	return svc, nil
}

// newOneShotService builds a service for the commands that run a single call and exit.
// They log warnings only, to keep their output readable.
func newOneShotService(cmd *cobra.Command) (*mcp.MCPService, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if !cmd.Flags().Changed("log-level") {
		cfg.LogLevel = "warn"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return newMCPService(cfg, logger, nil)
}
