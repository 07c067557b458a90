package config

import (
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// APIServerConfig is the root configuration for the apiserver.
	APIServerConfig struct {
		Port       int              `yaml:"port"`
		Database   DatabaseConfig   `yaml:"database"`
		Logger     LoggerConfig     `yaml:"logger"`
		JWT        JWTConfig        `yaml:"jwt"`
		Redis      RedisConfig      `yaml:"redis"`
		RateLimit  RateLimitConfig  `yaml:"rate_limit"`
		Invite     InviteConfig     `yaml:"invite"`
		SuperAdmin SuperAdminConfig `yaml:"super_admin"`
		Metrics    MetricsConfig    `yaml:"metrics"`
	}

	// SuperAdminConfig seeds the initial platform operator account.
	SuperAdminConfig struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	}

	// DatabaseConfig selects and configures the storage backend.
	DatabaseConfig struct {
		Type     string `yaml:"type"`     // postgres, mysql, sqlite
		Host     string `yaml:"host"`     // localhost
		Port     int    `yaml:"port"`     // 5432 (postgres), 3306 (mysql)
		User     string `yaml:"user"`     // postgres, root
		Password string `yaml:"password"` // password
		DBName   string `yaml:"dbname"`   // database name, or file path for sqlite
		SSLMode  string `yaml:"sslmode"`  // disable (postgres only)
	}

	// LoggerConfig configures the zap logger.
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, default local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps
	}

	// JWTConfig configures token issuance.
	JWTConfig struct {
		SecretKey string        `yaml:"secret_key"`
		Duration  time.Duration `yaml:"duration"`
	}

	// RedisConfig configures the rate-limit backing store.
	RedisConfig struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	}

	// RateLimitConfig bounds public invite validation and acceptance.
	RateLimitConfig struct {
		Store        string        `yaml:"store"`  // memory or redis
		Points       int           `yaml:"points"` // allowed attempts per window
		Window       time.Duration `yaml:"window"`
		TokenPoints  int           `yaml:"token_points"` // per token-prefix budget
		TokenWindow  time.Duration `yaml:"token_window"`
		AcceptPoints int           `yaml:"accept_points"`
		AcceptWindow time.Duration `yaml:"accept_window"`
	}

	// InviteConfig carries invite issuance defaults.
	InviteConfig struct {
		DefaultTTL time.Duration `yaml:"default_ttl"`
		MaxTTL     time.Duration `yaml:"max_ttl"`
	}

	// MetricsConfig configures the prometheus registry.
	MetricsConfig struct {
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}
)

// SetDefaults fills unset fields with production defaults.
func (c *APIServerConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.RateLimit.Points == 0 {
		c.RateLimit.Points = 10
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.RateLimit.TokenPoints == 0 {
		c.RateLimit.TokenPoints = 30
	}
	if c.RateLimit.TokenWindow == 0 {
		c.RateLimit.TokenWindow = time.Minute
	}
	if c.RateLimit.AcceptPoints == 0 {
		c.RateLimit.AcceptPoints = 5
	}
	if c.RateLimit.AcceptWindow == 0 {
		c.RateLimit.AcceptWindow = time.Minute
	}
	if c.Invite.DefaultTTL == 0 {
		c.Invite.DefaultTTL = 7 * 24 * time.Hour
	}
	if c.Invite.MaxTTL == 0 {
		c.Invite.MaxTTL = 90 * 24 * time.Hour
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "condoflow"
	}
}

// LoadConfig loads configuration from a YAML file with environment variable
// placeholder support (${KEY} or ${KEY:default}).
func LoadConfig(filename string) (*APIServerConfig, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	data = resolveEnv(data)
	var cfg APIServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	return &cfg, nil
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
