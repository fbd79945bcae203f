package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type InstrumentationConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	BufferSize      int     `mapstructure:"buffer_size"`
	FlushIntervalMs int     `mapstructure:"flush_interval_ms"`
}

type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Site            SiteConfig            `mapstructure:"site"`
	Webhook         WebhookConfig         `mapstructure:"webhook"`
	Retention       RetentionConfig       `mapstructure:"retention"`
	Instrumentation InstrumentationConfig `mapstructure:"instrumentation"`
	JWTSecret       string                `mapstructure:"jwt_secret"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SiteConfig describes how posts are presented to the outside world:
// permalinks, author archive links and display dates.
type SiteConfig struct {
	URL                string `mapstructure:"url"`
	Name               string `mapstructure:"name"`
	DateFormat         string `mapstructure:"date_format"`          // PHP-style, e.g. "F j, Y"
	PermalinkStructure string `mapstructure:"permalink_structure"` // "plain" or "pretty"
}

type WebhookConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Condition      string `mapstructure:"condition"` // expression; empty = no extra gate
	LogDeliveries  bool   `mapstructure:"log_deliveries"`
}

// Timeout returns the per-request timeout for outbound webhook calls.
func (w WebhookConfig) Timeout() time.Duration {
	if w.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(w.TimeoutSeconds) * time.Second
}

type RetentionConfig struct {
	Days            int `mapstructure:"days"`
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for SQLite database files
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.IsSQLite() {
		return d.Path + "/" + d.Name + ".db"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "post_webhook")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.path", "./data")
	v.SetDefault("jwt_secret", "changeme-secret")
	v.SetDefault("site.url", "http://localhost:8080")
	v.SetDefault("site.name", "My Blog")
	v.SetDefault("site.date_format", "F j, Y")
	v.SetDefault("site.permalink_structure", "plain")
	v.SetDefault("webhook.timeout_seconds", 30)
	v.SetDefault("webhook.condition", "")
	v.SetDefault("webhook.log_deliveries", true)
	v.SetDefault("retention.days", 7)
	v.SetDefault("retention.interval_minutes", 60)
	v.SetDefault("instrumentation.enabled", true)
	v.SetDefault("instrumentation.sampling_rate", 1.0)
	v.SetDefault("instrumentation.buffer_size", 500)
	v.SetDefault("instrumentation.flush_interval_ms", 100)
}

// Load reads app.yaml (if present) and environment overrides.
// A missing config file is not an error; defaults are enough to boot.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../..")

	setDefaults(v)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
