package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Dispatcher realtime channel
	RealtimeWSURL string

	// WebSocket
	WSDialTimeout          time.Duration
	WSPingInterval         time.Duration
	WSReconnectBaseDelay   time.Duration
	WSReconnectCapDelay    time.Duration
	WSReconnectLongDelay   time.Duration
	WSReconnectCapAttempts int
	WSMessageBufferSize    int

	// Round clock
	ClockWarningThreshold time.Duration

	// Topic throttling
	MetricsThrottleWindow time.Duration
	OddsThrottleWindow    time.Duration

	// Integrity validation
	ValidationSweepInterval time.Duration
	ValidationRoundSample   int
	ValidationBetsPerRound  int
	HealthyPassRatio        float64

	// Storage
	StorageMode  string // "postgres" or "memory"
	CacheTTL     time.Duration
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Realtime channel defaults
		RealtimeWSURL: getEnvOrDefault("REALTIME_WS_URL", "ws://localhost:9090/ws"),

		// WebSocket defaults
		WSDialTimeout:          getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPingInterval:         getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectBaseDelay:   getDurationOrDefault("WS_RECONNECT_BASE_DELAY", 1*time.Second),
		WSReconnectCapDelay:    getDurationOrDefault("WS_RECONNECT_CAP_DELAY", 10*time.Second),
		WSReconnectLongDelay:   getDurationOrDefault("WS_RECONNECT_LONG_DELAY", 60*time.Second),
		WSReconnectCapAttempts: getIntOrDefault("WS_RECONNECT_CAP_ATTEMPTS", 5),
		WSMessageBufferSize:    getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 1000),

		// Round clock defaults
		ClockWarningThreshold: getDurationOrDefault("CLOCK_WARNING_THRESHOLD", 7*time.Second),

		// Throttling defaults
		MetricsThrottleWindow: getDurationOrDefault("METRICS_THROTTLE_WINDOW", 2*time.Second),
		OddsThrottleWindow:    getDurationOrDefault("ODDS_THROTTLE_WINDOW", 1*time.Second),

		// Validation defaults. The 95% healthy pass ratio is business
		// policy: a handful of rounding artifacts must not mask the
		// health signal.
		ValidationSweepInterval: getDurationOrDefault("VALIDATION_SWEEP_INTERVAL", 60*time.Second),
		ValidationRoundSample:   getIntOrDefault("VALIDATION_ROUND_SAMPLE", 10),
		ValidationBetsPerRound:  getIntOrDefault("VALIDATION_BETS_PER_ROUND", 20),
		HealthyPassRatio:        getFloat64OrDefault("VALIDATION_HEALTHY_PASS_RATIO", 0.95),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "memory"),
		CacheTTL:     getDurationOrDefault("CACHE_TTL", 10*time.Minute),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "roundcore"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "roundcore123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "roundcore"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.RealtimeWSURL == "" {
		return fmt.Errorf("REALTIME_WS_URL cannot be empty")
	}

	if c.HealthyPassRatio <= 0 || c.HealthyPassRatio > 1.0 {
		return fmt.Errorf("VALIDATION_HEALTHY_PASS_RATIO must be between 0 and 1.0, got %f", c.HealthyPassRatio)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "memory" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'memory', got %q", c.StorageMode)
	}

	if c.WSReconnectBaseDelay <= 0 {
		return fmt.Errorf("WS_RECONNECT_BASE_DELAY must be positive, got %v", c.WSReconnectBaseDelay)
	}

	if c.WSReconnectCapDelay < c.WSReconnectBaseDelay {
		return fmt.Errorf("WS_RECONNECT_CAP_DELAY must be >= base delay, got %v", c.WSReconnectCapDelay)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
