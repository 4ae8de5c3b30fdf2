// Package config loads and validates crawl configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Browser BrowserConfig `mapstructure:"browser"`
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Storage StorageConfig `mapstructure:"storage"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlerConfig governs the frontier driver and task runner.
type CrawlerConfig struct {
	Seeds                 []string `mapstructure:"seeds"`
	Jurisdiction          string   `mapstructure:"jurisdiction"`
	PoolCapacity          int      `mapstructure:"pool_capacity"`
	HandleMemoryMB        int      `mapstructure:"handle_memory_mb"`
	MaxAttempts           int      `mapstructure:"max_attempts"`
	BackoffSeconds        int      `mapstructure:"backoff_seconds"`
	TaskTimeoutSeconds    int      `mapstructure:"task_timeout_seconds"`
	ReportIntervalSeconds int      `mapstructure:"report_interval_seconds"`
}

// BrowserConfig configures the headless browser handles.
type BrowserConfig struct {
	UserAgent         string `mapstructure:"user_agent"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	ProbeTimeoutSecs  int    `mapstructure:"probe_timeout_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig controls the optional existence cache.
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Addr       string `mapstructure:"addr"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

// StorageConfig selects the record archive backend.
type StorageConfig struct {
	Provider string `mapstructure:"provider"` // gcs, local, or none
	Bucket   string `mapstructure:"bucket"`
	Dir      string `mapstructure:"dir"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig selects the record notification backend.
type QueueConfig struct {
	Provider  string `mapstructure:"provider"` // pubsub, memory, or none
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig controls the status/metrics HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features and file rotation.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEXCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.jurisdiction", "CA")
	v.SetDefault("crawler.pool_capacity", 4)
	v.SetDefault("crawler.handle_memory_mb", 512)
	v.SetDefault("crawler.max_attempts", 3)
	v.SetDefault("crawler.backoff_seconds", 5)
	v.SetDefault("crawler.task_timeout_seconds", 60)
	v.SetDefault("crawler.report_interval_seconds", 1)
	v.SetDefault("browser.user_agent", "lexcrawl/0.1")
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("browser.probe_timeout_seconds", 15)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.ttl_minutes", 1440)
	v.SetDefault("storage.provider", "none")
	v.SetDefault("storage.prefix", "records")
	v.SetDefault("queue.provider", "none")
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if len(c.Crawler.Seeds) == 0 {
		return fmt.Errorf("crawler.seeds must not be empty")
	}
	if c.Crawler.PoolCapacity <= 0 {
		return fmt.Errorf("crawler.pool_capacity must be > 0")
	}
	if c.Crawler.MaxAttempts < 1 {
		return fmt.Errorf("crawler.max_attempts must be >= 1")
	}
	if c.Crawler.BackoffSeconds < 0 {
		return fmt.Errorf("crawler.backoff_seconds must be >= 0")
	}
	if c.Crawler.TaskTimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.task_timeout_seconds must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	switch c.Storage.Provider {
	case "gcs", "local", "none":
	default:
		return fmt.Errorf("storage.provider must be gcs, local, or none")
	}
	switch c.Queue.Provider {
	case "pubsub", "memory", "none":
	default:
		return fmt.Errorf("queue.provider must be pubsub, memory, or none")
	}
	return nil
}

// TaskTimeout converts the configured per-attempt budget to a duration.
func (c Config) TaskTimeout() time.Duration {
	return time.Duration(c.Crawler.TaskTimeoutSeconds) * time.Second
}

// Backoff converts the configured retry pause to a duration.
func (c Config) Backoff() time.Duration {
	return time.Duration(c.Crawler.BackoffSeconds) * time.Second
}

// ReportInterval converts the progress cadence to a duration.
func (c Config) ReportInterval() time.Duration {
	return time.Duration(c.Crawler.ReportIntervalSeconds) * time.Second
}
