package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Username = "spif"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing username",
			mutate:  func(cfg *Config) { cfg.Username = "" },
			wantErr: "username",
		},
		{
			name:    "negative workers",
			mutate:  func(cfg *Config) { cfg.Workers = -1 },
			wantErr: "workers",
		},
		{
			name:    "negative delay",
			mutate:  func(cfg *Config) { cfg.Delay = -time.Second },
			wantErr: "delay",
		},
		{
			name:    "empty base url",
			mutate:  func(cfg *Config) { cfg.BaseURL = "" },
			wantErr: "base URL",
		},
		{
			name:    "invalid url format",
			mutate:  func(cfg *Config) { cfg.BaseURL = "http://" },
			wantErr: "base URL",
		},
		{
			name:    "unknown strategy",
			mutate:  func(cfg *Config) { cfg.Strategy = "rss" },
			wantErr: "strategy",
		},
		{
			name: "api strategy needs batch size",
			mutate: func(cfg *Config) {
				cfg.Strategy = StrategyAPI
				cfg.BatchSize = 0
			},
			wantErr: "batch size",
		},
		{
			name:    "negative timeout",
			mutate:  func(cfg *Config) { cfg.Timeout = -1 * time.Second },
			wantErr: "timeout",
		},
		{
			name:    "unknown format",
			mutate:  func(cfg *Config) { cfg.OutputFormat = "xml" },
			wantErr: "output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValidWithUsername(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with username should validate, got %v", err)
	}
}

func TestPagesStrategySkipsBatchSizeCheck(t *testing.T) {
	cfg := validConfig()
	cfg.Strategy = StrategyPages
	cfg.BatchSize = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("pages strategy should not require a batch size, got %v", err)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("SHELF_TEST_INT", "7")
	value, ok, err := EnvInt("SHELF_TEST_INT")
	if err != nil || !ok || value != 7 {
		t.Fatalf("EnvInt = (%d, %v, %v), want (7, true, nil)", value, ok, err)
	}

	t.Setenv("SHELF_TEST_INT", "seven")
	if _, _, err := EnvInt("SHELF_TEST_INT"); err == nil {
		t.Fatalf("expected parse error for non-integer value")
	}

	if _, ok, _ := EnvInt("SHELF_TEST_UNSET"); ok {
		t.Fatalf("unset variable should report ok=false")
	}
}
