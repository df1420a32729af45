package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"log/slog"
)

// Config holds validated environment configuration.
type Config struct {
	// Required variables
	JWTSecret string
	Port      string

	// Optional variables with defaults
	GoEnv          string
	SQLitePath     string
	LogLevel       string
	AllowedOrigins string

	// Rate limits (ulule/limiter formatted strings)
	RateLimitAPIGlobal string
	RateLimitAPIPublic string
	RateLimitWsIP      string
	RateLimitWsUser    string

	// Tracing
	TracingEnabled bool
	OTLPAddr       string
}

// IsTest reports whether the process should suppress the network listener.
// Used by the test harness so the server wiring can be exercised without
// binding a port.
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// ValidateEnv validates all recognized environment variables and returns
// a Config object. Returns an error if any required variable is missing
// or invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	// Required: JWT_SECRET (minimum 32 characters)
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(cfg.JWTSecret) < 32 {
		errs = append(errs, fmt.Sprintf("JWT_SECRET must be at least 32 characters (got %d)", len(cfg.JWTSecret)))
	}

	// Required: PORT (valid port number)
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		errs = append(errs, "PORT is required")
	} else {
		port, err := strconv.Atoi(cfg.Port)
		if err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
		}
	}

	// Optional: GO_ENV (defaults to "production"; "test" disables the listener)
	cfg.GoEnv = os.Getenv("GO_ENV")
	if cfg.GoEnv == "" {
		cfg.GoEnv = "production"
	}

	// Optional: SQLITE_PATH (defaults to a local data file)
	cfg.SQLitePath = getEnvOrDefault("SQLITE_PATH", "data/clashdeck.db")

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")

	// Rate limits (M = minute, H = hour)
	cfg.RateLimitAPIGlobal = getEnvOrDefault("RATE_LIMIT_API_GLOBAL", "1000-M")
	cfg.RateLimitAPIPublic = getEnvOrDefault("RATE_LIMIT_API_PUBLIC", "100-M")
	cfg.RateLimitWsIP = getEnvOrDefault("RATE_LIMIT_WS_IP", "100-M")
	cfg.RateLimitWsUser = getEnvOrDefault("RATE_LIMIT_WS_USER", "10-M")

	// Tracing is opt-in
	cfg.TracingEnabled = os.Getenv("TRACING_ENABLED") == "true"
	if cfg.TracingEnabled {
		cfg.OTLPAddr = os.Getenv("OTLP_COLLECTOR_ADDR")
		if cfg.OTLPAddr == "" {
			errs = append(errs, "OTLP_COLLECTOR_ADDR is required when TRACING_ENABLED=true")
		} else if !isValidHostPort(cfg.OTLPAddr) {
			errs = append(errs, fmt.Sprintf("OTLP_COLLECTOR_ADDR must be in format 'host:port' (got '%s')", cfg.OTLPAddr))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// isValidHostPort checks if a string is in the format "host:port"
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	return parts[0] != ""
}

// logValidatedConfig logs the validated configuration with secrets redacted
func logValidatedConfig(cfg *Config) {
	slog.Info("Environment configuration validated")
	slog.Info("Configuration",
		"jwt_secret", redactSecret(cfg.JWTSecret),
		"port", cfg.Port,
		"go_env", cfg.GoEnv,
		"sqlite_path", cfg.SQLitePath,
		"log_level", cfg.LogLevel,
		"tracing_enabled", cfg.TracingEnabled,
		"rate_limit_api_global", cfg.RateLimitAPIGlobal,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// redactSecret redacts a secret by showing only the first 8 characters
func redactSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:8] + "***"
}
