package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Timezone  string          `yaml:"timezone"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         string   `yaml:"port"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"` // mysql, postgres or sqlite
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	LogSQL   bool           `yaml:"log_sql"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SQLiteConfig contains SQLite settings
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
	Index   string `yaml:"index"`
}

// AuthConfig contains bearer token settings
type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret"`
	TokenDurationHours int    `yaml:"token_duration_hours"`
}

// RateLimitConfig contains rate limiting settings for booking submission
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
}

// SchedulerConfig contains background job settings
type SchedulerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	SnapshotTime   string `yaml:"snapshot_time"`  // HH:MM
	AuditInterval  string `yaml:"audit_interval"` // Go duration, run as "@every"
	CleanupEnabled bool   `yaml:"cleanup_enabled"`
	CleanupWeekday int    `yaml:"cleanup_weekday"` // 0 = Sunday
}

// CleanupConfig contains retention settings for terminal bookings
type CleanupConfig struct {
	RetentionDays    int  `yaml:"retention_days"`
	MaxDeletionCount int  `yaml:"max_deletion_count"`
	DryRun           bool `yaml:"dry_run"`
}

// MetricsConfig contains prometheus settings
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // json or console
	Output      string `yaml:"output"` // stdout or file
	FilePath    string `yaml:"file_path"`
	MaxSize     int    `yaml:"max_size"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAge      int    `yaml:"max_age"`
	Compress    bool   `yaml:"compress"`
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8084",
			AllowOrigins: []string{"http://localhost:5176"},
		},
		Database: DatabaseConfig{
			Type:   "sqlite",
			SQLite: SQLiteConfig{Path: "data/rental.db"},
			Postgres: PostgresConfig{
				SSLMode: "disable",
			},
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Enabled: false,
				Host:    "http://meilisearch:7700",
				Index:   "properties",
			},
		},
		Auth: AuthConfig{
			TokenDurationHours: 24,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 5,
			RequestsPerHour:   30,
			RequestsPerDay:    100,
		},
		Scheduler: SchedulerConfig{
			Enabled:        false,
			SnapshotTime:   "02:00",
			AuditInterval:  "1h",
			CleanupEnabled: false,
			CleanupWeekday: 0,
		},
		Cleanup: CleanupConfig{
			RetentionDays:    365,
			MaxDeletionCount: 10000,
			DryRun:           true,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "rental",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "stdout",
			FilePath:    "logs/rental.log",
			MaxSize:     100,
			MaxBackups:  3,
			MaxAge:      7,
			LogRequests: true,
		},
		Timezone: "Local",
	}
}

// LoadConfig loads configuration from a YAML file, then applies a .env file
// (if present) and environment overrides.
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if filepath != "" {
		data, err := os.ReadFile(filepath)
		switch {
		case os.IsNotExist(err):
			// If file doesn't exist, keep defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides file values with environment variables
func (c *Config) ApplyEnv() error {
	setString(&c.Database.Type, "DB_TYPE")
	setString(&c.Database.SQLite.Path, "SQLITE_PATH")
	setString(&c.Server.Port, "PORT")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Search.Meilisearch.Host, "MEILISEARCH_HOST")
	setString(&c.Search.Meilisearch.APIKey, "MEILISEARCH_KEY")
	setString(&c.Logging.Level, "LOG_LEVEL")

	switch c.Database.Type {
	case "mysql":
		m := &c.Database.MySQL
		setString(&m.Host, "DB_HOST")
		setString(&m.User, "DB_USER")
		setString(&m.Password, "DB_PASSWORD")
		setString(&m.Database, "DB_NAME")
		if err := setInt(&m.Port, "DB_PORT"); err != nil {
			return err
		}
	case "postgres":
		p := &c.Database.Postgres
		setString(&p.Host, "DB_HOST")
		setString(&p.User, "DB_USER")
		setString(&p.Password, "DB_PASSWORD")
		setString(&p.Database, "DB_NAME")
		if err := setInt(&p.Port, "DB_PORT"); err != nil {
			return err
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

// GetTokenDuration returns the bearer token lifetime as a duration
func (c *AuthConfig) GetTokenDuration() time.Duration {
	return time.Duration(c.TokenDurationHours) * time.Hour
}
