package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error: %v", err)
	}

	if cfg.HTTPPort != "8080" {
		t.Errorf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.WSReconnectBaseDelay != 1*time.Second {
		t.Errorf("expected base reconnect delay 1s, got %v", cfg.WSReconnectBaseDelay)
	}

	if cfg.WSReconnectCapDelay != 10*time.Second {
		t.Errorf("expected cap reconnect delay 10s, got %v", cfg.WSReconnectCapDelay)
	}

	if cfg.WSReconnectLongDelay != 60*time.Second {
		t.Errorf("expected long reconnect delay 60s, got %v", cfg.WSReconnectLongDelay)
	}

	if cfg.ClockWarningThreshold != 7*time.Second {
		t.Errorf("expected warning threshold 7s, got %v", cfg.ClockWarningThreshold)
	}

	if cfg.HealthyPassRatio != 0.95 {
		t.Errorf("expected healthy pass ratio 0.95, got %f", cfg.HealthyPassRatio)
	}

	if cfg.StorageMode != "memory" {
		t.Errorf("expected default storage mode memory, got %s", cfg.StorageMode)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("VALIDATION_HEALTHY_PASS_RATIO", "0.80")
	t.Setenv("METRICS_THROTTLE_WINDOW", "5s")
	t.Setenv("VALIDATION_ROUND_SAMPLE", "25")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error: %v", err)
	}

	if cfg.HTTPPort != "9999" {
		t.Errorf("expected HTTP port 9999, got %s", cfg.HTTPPort)
	}

	if cfg.HealthyPassRatio != 0.80 {
		t.Errorf("expected healthy pass ratio 0.80, got %f", cfg.HealthyPassRatio)
	}

	if cfg.MetricsThrottleWindow != 5*time.Second {
		t.Errorf("expected metrics throttle window 5s, got %v", cfg.MetricsThrottleWindow)
	}

	if cfg.ValidationRoundSample != 25 {
		t.Errorf("expected round sample 25, got %d", cfg.ValidationRoundSample)
	}
}

func TestLoadFromEnv_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("VALIDATION_ROUND_SAMPLE", "not-a-number")
	t.Setenv("ODDS_THROTTLE_WINDOW", "garbage")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error: %v", err)
	}

	if cfg.ValidationRoundSample != 10 {
		t.Errorf("expected fallback round sample 10, got %d", cfg.ValidationRoundSample)
	}

	if cfg.OddsThrottleWindow != 1*time.Second {
		t.Errorf("expected fallback odds window 1s, got %v", cfg.OddsThrottleWindow)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty-http-port", func(c *Config) { c.HTTPPort = "" }},
		{"empty-ws-url", func(c *Config) { c.RealtimeWSURL = "" }},
		{"pass-ratio-above-one", func(c *Config) { c.HealthyPassRatio = 1.5 }},
		{"pass-ratio-zero", func(c *Config) { c.HealthyPassRatio = 0 }},
		{"unknown-storage-mode", func(c *Config) { c.StorageMode = "cassandra" }},
		{"cap-below-base", func(c *Config) {
			c.WSReconnectBaseDelay = 5 * time.Second
			c.WSReconnectCapDelay = 1 * time.Second
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error: %v", err)
			}

			tt.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
