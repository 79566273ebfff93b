package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	Database DatabaseConfig
	RedisURL string

	// StorageDriver selects the repository backend: postgres or memory
	StorageDriver string

	JWT    JWTConfig
	Files  FileConfig
	Events EventsConfig

	DefaultLoanDays    int
	OverdueCron        string
	CORSAllowedOrigins []string
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

type FileConfig struct {
	StoragePath    string
	MaxCoverSizeMB int
	MaxPDFSizeMB   int
	CoverMaxWidth  int
	CoverMaxHeight int
}

type EventsConfig struct {
	Driver       string
	KafkaBrokers []string
	Topic        string
}

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	EventsDriverGoChannel = "gochannel"
	EventsDriverKafka     = "kafka"
	EventsDriverNone      = "none"
)

// LoadConfig reads an optional .env file and then the process environment
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments pass the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "library"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		},
		RedisURL:      os.Getenv("REDIS_URL"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			TTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
			Issuer: getEnv("JWT_ISSUER", "library-service"),
		},
		Files: FileConfig{
			StoragePath:    getEnv("FILE_STORAGE_PATH", "./storage"),
			MaxCoverSizeMB: getEnvInt("MAX_COVER_SIZE_MB", 5),
			MaxPDFSizeMB:   getEnvInt("MAX_PDF_SIZE_MB", 20),
			CoverMaxWidth:  getEnvInt("COVER_MAX_WIDTH", 800),
			CoverMaxHeight: getEnvInt("COVER_MAX_HEIGHT", 1200),
		},
		Events: EventsConfig{
			Driver:       strings.ToLower(getEnv("EVENTS_DRIVER", EventsDriverGoChannel)),
			KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:        getEnv("EVENTS_TOPIC", "library.reservations"),
		},
		DefaultLoanDays:    getEnvInt("DEFAULT_LOAN_DAYS", 14),
		OverdueCron:        getEnvAllowEmpty("OVERDUE_CRON", "0 0 * * *"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	if cfg.JWT.Secret == "" && !cfg.IsProduction() {
		cfg.JWT.Secret = "dev-secret-change-me"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DSN returns DATABASE_URL or a DSN assembled from the DB_* parts
func (c *Config) DSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}

	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.Events.Driver {
	case EventsDriverGoChannel, EventsDriverNone:
	case EventsDriverKafka:
		if len(c.Events.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_DRIVER is kafka")
		}
	default:
		return fmt.Errorf("unknown EVENTS_DRIVER %q", c.Events.Driver)
	}

	if c.Files.MaxCoverSizeMB <= 0 || c.Files.MaxPDFSizeMB <= 0 {
		return fmt.Errorf("file size limits must be positive")
	}
	if c.Files.CoverMaxWidth <= 0 || c.Files.CoverMaxHeight <= 0 {
		return fmt.Errorf("cover dimensions must be positive")
	}
	if c.DefaultLoanDays <= 0 {
		return fmt.Errorf("DEFAULT_LOAN_DAYS must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAllowEmpty distinguishes an unset key from one explicitly set to ""
func getEnvAllowEmpty(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
