package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Monitor  MonitorConfig
	API      APIConfig
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the postgres connection string shared by gorm and sqlx
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// RedisConfig holds the optional Redis cache settings. An empty Host disables Redis.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// MonitorConfig holds the file orchestrator settings
type MonitorConfig struct {
	PartnerCode         string
	InboxDir            string
	ProcessedDir        string
	ErrorDir            string
	LockFile            string
	RemoteDir           string
	RemotePath          string
	FilePattern         string
	PollInterval        time.Duration
	ErrorBackoff        time.Duration
	TransportTimeout    time.Duration
	DeleteAfterDownload bool
	ConfigWarmInterval  time.Duration
}

// APIConfig holds the ops HTTP surface settings. AllowedOrigins is comma separated.
type APIConfig struct {
	Enabled        bool
	Port           string
	JWTSigningKey  string
	AllowedOrigins string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load loads the application configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Env: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("PG_HOST", "localhost"),
			Port:            getEnv("PG_PORT", "5432"),
			User:            getEnv("PG_USER", "postgres"),
			Password:        getEnv("PG_PASSWORD", "postgres"),
			Name:            getEnv("PG_DB", "forecast"),
			SSLMode:         getEnv("PG_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("PG_MAX_IDLE_CONNS", 5),
			MaxOpenConns:    getEnvAsInt("PG_MAX_OPEN_CONNS", 20),
			ConnMaxLifetime: getEnvAsDuration("PG_CONN_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Monitor: MonitorConfig{
			PartnerCode:         getEnv("PARTNER_CODE", ""),
			InboxDir:            getEnv("INBOX_DIR", "data/inbox"),
			ProcessedDir:        getEnv("PROCESSED_DIR", "data/processed"),
			ErrorDir:            getEnv("ERROR_DIR", "data/error"),
			LockFile:            getEnv("LOCK_FILE", "/tmp/forecast-ingestd.lock"),
			RemoteDir:           getEnv("REMOTE_DIR", ""),
			RemotePath:          getEnv("REMOTE_PATH", ""),
			FilePattern:         getEnv("FILE_PATTERN", ""),
			PollInterval:        getEnvAsDuration("POLL_INTERVAL", 5*time.Minute),
			ErrorBackoff:        getEnvAsDuration("ERROR_BACKOFF", 15*time.Minute),
			TransportTimeout:    getEnvAsDuration("TRANSPORT_TIMEOUT", 30*time.Second),
			DeleteAfterDownload: getEnvAsBool("DELETE_AFTER_DOWNLOAD", false),
			ConfigWarmInterval:  getEnvAsDuration("CONFIG_WARM_INTERVAL", 30*time.Minute),
		},
		API: APIConfig{
			Enabled:        getEnvAsBool("API_ENABLED", true),
			Port:           getEnv("API_PORT", "8080"),
			JWTSigningKey:  getEnv("API_JWT_SIGNING_KEY", ""),
			AllowedOrigins: getEnv("API_ALLOWED_ORIGINS", "http://localhost:8081"),
			RateLimitRPS:   getEnvAsFloat("API_RATE_LIMIT_RPS", 1),
			RateLimitBurst: getEnvAsInt("API_RATE_LIMIT_BURST", 5),
		},
	}

	return cfg, nil
}

// Validate checks settings the daemon cannot start without. One-off tools
// skip it because they never serve the ops API.
func (c *Config) Validate() error {
	if c.Monitor.InboxDir == "" || c.Monitor.ProcessedDir == "" || c.Monitor.ErrorDir == "" {
		return fmt.Errorf("INBOX_DIR, PROCESSED_DIR and ERROR_DIR must be set")
	}
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.Monitor.PollInterval)
	}
	if c.API.Enabled && c.API.JWTSigningKey == "" {
		return fmt.Errorf("API_JWT_SIGNING_KEY is required when API_ENABLED is true")
	}
	return nil
}

// Origins splits AllowedOrigins into the list the CORS handler expects
func (a APIConfig) Origins() []string {
	var origins []string
	for _, o := range strings.Split(a.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
