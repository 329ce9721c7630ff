package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the server configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Refresh    RefreshConfig    `mapstructure:"refresh"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                    int           `mapstructure:"port"`
	Host                    string        `mapstructure:"host"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	IdleTimeout             time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout          time.Duration `mapstructure:"request_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

// RepositoryConfig holds the versioned backend (git repository) configuration
type RepositoryConfig struct {
	// URI is the upstream git remote (file://, https://, ssh://)
	URI string `mapstructure:"uri"`
	// DefaultLabel is used when a request omits an explicit label
	DefaultLabel string `mapstructure:"default_label"`
	// MirrorPath is the local directory holding the repository's clone
	MirrorPath string `mapstructure:"mirror_path"`
	// SearchPaths narrows candidate resolution to these subdirectories, in order
	SearchPaths []string `mapstructure:"search_paths"`
	// Username/Password authenticate the upstream when non-empty
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// CloneTimeout and FetchTimeout bound their respective git operations
	CloneTimeout time.Duration `mapstructure:"clone_timeout"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	// StrictFirstClone fails startup (exit code 1) if the initial clone fails
	StrictFirstClone bool `mapstructure:"strict_first_clone"`
	// MaxFileSize bounds any single candidate file read from the mirror
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// CacheConfig holds response cache configuration
type CacheConfig struct {
	MaxEntries      int           `mapstructure:"max_entries"`
	TTL             time.Duration `mapstructure:"ttl"`
	EnableMetrics   bool          `mapstructure:"enable_metrics"`
}

// RefreshConfig holds background refresh worker configuration
type RefreshConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
	MaxBackoff    time.Duration `mapstructure:"max_backoff"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigFromEnv loads configuration from environment variables only
func LoadConfigFromEnv() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8888)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.request_timeout", "10s")
	viper.SetDefault("server.graceful_shutdown_timeout", "30s")

	viper.SetDefault("repository.uri", "")
	viper.SetDefault("repository.default_label", "main")
	viper.SetDefault("repository.mirror_path", "/data/config-repo")
	viper.SetDefault("repository.search_paths", []string{})
	viper.SetDefault("repository.username", "")
	viper.SetDefault("repository.password", "")
	viper.SetDefault("repository.clone_timeout", "120s")
	viper.SetDefault("repository.fetch_timeout", "30s")
	viper.SetDefault("repository.strict_first_clone", true)
	viper.SetDefault("repository.max_file_size", 1048576) // 1 MiB

	viper.SetDefault("cache.max_entries", 2048)
	viper.SetDefault("cache.ttl", "60s")
	viper.SetDefault("cache.enable_metrics", true)

	viper.SetDefault("refresh.interval", "30s")
	viper.SetDefault("refresh.backoff_factor", 2.0)
	viper.SetDefault("refresh.max_backoff", "5m")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.filename", "")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_minute", 300)
	viper.SetDefault("rate_limit.burst", 50)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if c.Repository.URI == "" {
		return fmt.Errorf("repository.uri cannot be empty")
	}

	if c.Repository.DefaultLabel == "" {
		return fmt.Errorf("repository.default_label cannot be empty")
	}

	if c.Repository.MirrorPath == "" {
		return fmt.Errorf("repository.mirror_path cannot be empty")
	}

	if c.Repository.MaxFileSize <= 0 {
		return fmt.Errorf("repository.max_file_size must be positive")
	}

	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive")
	}

	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive")
	}

	if c.Refresh.BackoffFactor < 1 {
		return fmt.Errorf("refresh.backoff_factor must be >= 1")
	}

	if c.Log.Level == "" {
		return fmt.Errorf("log level cannot be empty")
	}

	return nil
}

// IsDevelopment returns true if log level suggests a local/dev run
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}
