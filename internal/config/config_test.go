package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("EVENTS_DRIVER", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.StorageDriver != StorageDriverPostgres {
		t.Errorf("StorageDriver = %q, want postgres", cfg.StorageDriver)
	}
	if cfg.JWT.TTL != 24*time.Hour {
		t.Errorf("JWT.TTL = %v, want 24h", cfg.JWT.TTL)
	}
	if cfg.Files.MaxCoverSizeMB != 5 || cfg.Files.MaxPDFSizeMB != 20 {
		t.Errorf("file limits = %d/%d, want 5/20", cfg.Files.MaxCoverSizeMB, cfg.Files.MaxPDFSizeMB)
	}
	if cfg.DefaultLoanDays != 14 {
		t.Errorf("DefaultLoanDays = %d, want 14", cfg.DefaultLoanDays)
	}
	if cfg.JWT.Secret == "" {
		t.Error("development config must fall back to a signing secret")
	}
}

func TestLoadConfig_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() in production without JWT_SECRET must fail")
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			StorageDriver:   StorageDriverMemory,
			JWT:             JWTConfig{Secret: "s", TTL: time.Hour},
			Files:           FileConfig{MaxCoverSizeMB: 5, MaxPDFSizeMB: 20, CoverMaxWidth: 800, CoverMaxHeight: 1200},
			Events:          EventsConfig{Driver: EventsDriverNone},
			DefaultLoanDays: 14,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown storage driver", func(c *Config) { c.StorageDriver = "sqlite" }, true},
		{"unknown events driver", func(c *Config) { c.Events.Driver = "nats" }, true},
		{"kafka without brokers", func(c *Config) { c.Events.Driver = EventsDriverKafka }, true},
		{"kafka with brokers", func(c *Config) {
			c.Events.Driver = EventsDriverKafka
			c.Events.KafkaBrokers = []string{"localhost:9092"}
		}, false},
		{"zero cover limit", func(c *Config) { c.Files.MaxCoverSizeMB = 0 }, true},
		{"zero loan days", func(c *Config) { c.DefaultLoanDays = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Errorf("splitList() = %v", got)
	}
}
