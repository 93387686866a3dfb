// Package config loads the settings of the taskmcp adapter and the reference backend.
// Precedence: command line flag > environment variable > config file > default.
// Flags are applied by the caller on top of what Load returns.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/taskmcp/taskmcp/internal"
	"github.com/taskmcp/taskmcp/pkg/types"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileEnvVar = "TASKMCP_CONFIG"

	BackendURLEnvVar         = "BACKEND_API_URL"
	BackendTimeoutSecEnvVar  = "BACKEND_TIMEOUT_SEC"
	BackendRateLimitEnvVar   = "BACKEND_RATE_LIMIT"
	BackendAccessTokenEnvVar = "BACKEND_ACCESS_TOKEN"

	TransportEnvVar = "MCP_TRANSPORT"
	HostEnvVar      = "MCP_SERVER_HOST"
	PortEnvVar      = "MCP_SERVER_PORT"
	APIKeyEnvVar    = "MCP_API_KEY"

	LogLevelEnvVar         = "LOG_LEVEL"
	LogDevelopmentEnvVar   = "LOG_DEVELOPMENT"
	TelemetryEnabledEnvVar = "OTEL_ENABLED"

	BackendPortEnvVar = "PORT"
	DBUrlEnvVar       = "DATABASE_URL"
)

const (
	PostgresHostEnvVar     = "POSTGRES_HOST"
	PostgresPortEnvVar     = "POSTGRES_PORT"
	PostgresUserEnvVar     = "POSTGRES_USER"
	PostgresPasswordEnvVar = "POSTGRES_PASSWORD"
	PostgresDBEnvVar       = "POSTGRES_DB"
)

const (
	DefaultBackendURL        = "http://localhost:8001"
	DefaultBackendTimeoutSec = 30
	DefaultHost              = "0.0.0.0"
	DefaultTCPPort           = "9000"
	DefaultHTTPPort          = "8080"
	DefaultBackendPort       = "8001"
	DefaultLogLevel          = "info"
)

// Config holds every setting of the adapter and the reference backend.
type Config struct {
	// BackendURL is the base URL of the task backend the adapter talks to.
	BackendURL         string  `yaml:"backend_url"`
	BackendTimeoutSec  int     `yaml:"backend_timeout_sec"`
	BackendRateLimit   float64 `yaml:"backend_rate_limit"`
	BackendAccessToken string  `yaml:"backend_access_token"`

	Transport string `yaml:"transport"`
	Host      string `yaml:"host"`
	// Port is left empty until ListenAddr picks the default of the transport.
	Port   string `yaml:"port"`
	APIKey string `yaml:"api_key"`

	LogLevel         string `yaml:"log_level"`
	LogDevelopment   bool   `yaml:"log_development"`
	TelemetryEnabled bool   `yaml:"otel_enabled"`

	// BackendPort is the port the reference backend listens on.
	BackendPort string `yaml:"backend_port"`
	// DatabaseURL is the DSN of the reference backend's database. Empty means the default SQLite file.
	DatabaseURL string `yaml:"database_url"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		BackendURL:        DefaultBackendURL,
		BackendTimeoutSec: DefaultBackendTimeoutSec,
		Transport:         string(types.TransportStdio),
		Host:              DefaultHost,
		LogLevel:          DefaultLogLevel,
		BackendPort:       DefaultBackendPort,
	}
}

// Loader reads configuration from a filesystem and an environment.
type Loader struct {
	fs     afero.Fs
	getenv func(string) string
}

// NewLoader creates a Loader. A nil fs means the OS filesystem, a nil getenv means os.Getenv.
func NewLoader(fs afero.Fs, getenv func(string) string) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	return &Loader{fs: fs, getenv: getenv}
}

// Load builds the configuration from defaults, the config file and the environment.
// path is the config file to read; if empty, TASKMCP_CONFIG is used, and if that is empty too no file is read.
func (l *Loader) Load(path string) (*Config, error) {
	c := Default()

	if path == "" {
		path = l.getenv(ConfigFileEnvVar)
	}
	if path != "" {
		if err := l.loadFile(path, c); err != nil {
			return nil, err
		}
	}

	if err := l.applyEnv(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (l *Loader) loadFile(path string, c *Config) error {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (l *Loader) applyEnv(c *Config) error {
	setString := func(dst *string, envVar string) {
		if v := strings.TrimSpace(l.getenv(envVar)); v != "" {
			*dst = v
		}
	}
	setString(&c.BackendURL, BackendURLEnvVar)
	setString(&c.Transport, TransportEnvVar)
	setString(&c.Host, HostEnvVar)
	setString(&c.Port, PortEnvVar)
	setString(&c.LogLevel, LogLevelEnvVar)
	setString(&c.BackendPort, BackendPortEnvVar)

	if v := strings.TrimSpace(l.getenv(BackendTimeoutSecEnvVar)); v != "" {
		timeout, err := strconv.Atoi(v)
		if err != nil || timeout < 1 {
			return fmt.Errorf("invalid value for %s: '%s', must be a positive integer", BackendTimeoutSecEnvVar, v)
		}
		c.BackendTimeoutSec = timeout
	}
	if v := strings.TrimSpace(l.getenv(BackendRateLimitEnvVar)); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			return fmt.Errorf("invalid value for %s: '%s', must be a non-negative number", BackendRateLimitEnvVar, v)
		}
		c.BackendRateLimit = rps
	}

	var err error
	if c.LogDevelopment, err = l.getBool(LogDevelopmentEnvVar, c.LogDevelopment); err != nil {
		return err
	}
	if c.TelemetryEnabled, err = l.getBool(TelemetryEnabledEnvVar, c.TelemetryEnabled); err != nil {
		return err
	}

	secrets := []struct {
		dst    *string
		envVar string
	}{
		{&c.APIKey, APIKeyEnvVar},
		{&c.BackendAccessToken, BackendAccessTokenEnvVar},
		{&c.DatabaseURL, DBUrlEnvVar},
	}
	for _, s := range secrets {
		v, err := l.getEnvOrFile(s.envVar)
		if err != nil {
			return err
		}
		if v != "" {
			*s.dst = v
		}
	}

	// individual postgres variables are only consulted when DATABASE_URL is not set
	if l.getenv(DBUrlEnvVar) == "" && l.getenv(DBUrlEnvVar+"_FILE") == "" {
		dsn, ok, err := l.getPostgresDSN()
		if err != nil {
			return err
		}
		if ok {
			c.DatabaseURL = dsn
		}
	}
	return nil
}

// getBool parses a boolean environment variable. fallback is returned when it is not set.
func (l *Loader) getBool(envVar string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(l.getenv(envVar)))
	switch v {
	case "":
		return fallback, nil
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf(
			"invalid value for %s environment variable: '%s', valid values are 'true' or 'false'", envVar, v,
		)
	}
}

// getEnvOrFile returns the value of the given environment variable.
// If the environment variable is not set, it checks for a corresponding
// _FILE environment variable and reads the value from the file if it exists.
// If both are set, the value of the original environment variable takes precedence.
func (l *Loader) getEnvOrFile(envVar string) (string, error) {
	if val := l.getenv(envVar); val != "" {
		return val, nil
	}

	fileEnvVar := envVar + "_FILE"
	filePath := l.getenv(fileEnvVar)
	if filePath == "" {
		return "", nil
	}
	data, err := afero.ReadFile(l.fs, filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", fileEnvVar, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// getPostgresDSN constructs a Postgres DSN from individual Postgres-specific environment variables & files.
// If POSTGRES_HOST is not set, it returns ok=false.
// Other Postgres env vars are optional and have sensible defaults.
func (l *Loader) getPostgresDSN() (string, bool, error) {
	host := l.getenv(PostgresHostEnvVar)
	if host == "" {
		return "", false, nil
	}
	port := l.getenv(PostgresPortEnvVar)
	if port == "" {
		port = "5432"
	}
	dbName, err := l.getEnvOrFile(PostgresDBEnvVar)
	if err != nil {
		return "", false, fmt.Errorf("failed to get postgres DB name: %w", err)
	}
	if dbName == "" {
		dbName = "postgres"
	}
	pgUser, err := l.getEnvOrFile(PostgresUserEnvVar)
	if err != nil {
		return "", false, fmt.Errorf("failed to get postgres user: %w", err)
	}
	if pgUser == "" {
		pgUser = "postgres"
	}
	password, err := l.getEnvOrFile(PostgresPasswordEnvVar)
	if err != nil {
		return "", false, fmt.Errorf("failed to get postgres password: %w", err)
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		url.QueryEscape(pgUser),
		url.QueryEscape(password),
		host,
		port,
		url.QueryEscape(dbName),
	)
	return dsn, true, nil
}

// Validate checks the adapter settings.
func (c *Config) Validate() error {
	if _, err := types.ValidateTransport(c.Transport); err != nil {
		return err
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend url '%s': must be an absolute http or https URL", c.BackendURL)
	}
	if c.BackendTimeoutSec < 1 {
		return errors.New("backend timeout must be at least 1 second")
	}
	if c.BackendRateLimit < 0 {
		return errors.New("backend rate limit must not be negative")
	}
	if c.APIKey != "" {
		if err := internal.ValidateAPIKey(c.APIKey); err != nil {
			return fmt.Errorf("invalid %s: %w", APIKeyEnvVar, err)
		}
	}
	return nil
}

// BackendTimeout returns the per-call timeout of the backend client.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutSec) * time.Second
}

// ListenAddr returns the address the network transports bind to.
// Without an explicit port, tcp listens on 9000 and http on 8080.
func (c *Config) ListenAddr() string {
	port := c.Port
	if port == "" {
		port = DefaultTCPPort
		if c.Transport == string(types.TransportHTTP) {
			port = DefaultHTTPPort
		}
	}
	return net.JoinHostPort(c.Host, port)
}
