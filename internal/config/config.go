package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Database DatabaseConfig `yaml:"database" envconfig:"DATABASE"`
	Redis    RedisConfig    `yaml:"redis" envconfig:"REDIS"`
	Scan     ScanConfig     `yaml:"scan" envconfig:"SCAN"`
}

// ServerConfig contains HTTP trigger-surface configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"10"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pipeline.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	ArchiveRoot string `yaml:"archive_root" envconfig:"ARCHIVE_ROOT" default:"reports"`
	ExtractDir  string `yaml:"extract_dir" envconfig:"EXTRACT_DIR" default:"extracted"`
	LogsDir     string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// DatabaseConfig contains the fact-store connection settings
type DatabaseConfig struct {
	Host         string        `yaml:"host" envconfig:"HOST" default:"localhost"`
	Port         int           `yaml:"port" envconfig:"PORT" default:"5432"`
	User         string        `yaml:"user" envconfig:"USER" default:"opspulse"`
	Password     string        `yaml:"password" envconfig:"PASSWORD"`
	Name         string        `yaml:"name" envconfig:"NAME" default:"opspulse"`
	SSLMode      string        `yaml:"ssl_mode" envconfig:"SSL_MODE" default:"disable"`
	MaxOpenConns int           `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns int           `yaml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS" default:"10"`
	ConnLifetime time.Duration `yaml:"conn_lifetime" envconfig:"CONN_LIFETIME" default:"5m"`
}

// DSN builds the postgres connection string for the fact store.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// RedisConfig contains the dashboard read-cache settings
type RedisConfig struct {
	Host      string `yaml:"host" envconfig:"HOST" default:"localhost"`
	Port      int    `yaml:"port" envconfig:"PORT" default:"6379"`
	Password  string `yaml:"password" envconfig:"PASSWORD"`
	DB        int    `yaml:"db" envconfig:"DB" default:"0"`
	Namespace string `yaml:"namespace" envconfig:"NAMESPACE" default:"opspulse"`
}

// ScanConfig contains scheduler and extractor settings
type ScanConfig struct {
	DailyAt           string        `yaml:"daily_at" envconfig:"DAILY_AT" default:"06:30"`
	ExtractionTimeout time.Duration `yaml:"extraction_timeout" envconfig:"EXTRACTION_TIMEOUT" default:"5m"`
	KeepExtracted     bool          `yaml:"keep_extracted" envconfig:"KEEP_EXTRACTED" default:"false"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("OPSPULSE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// Resolve relative paths against the working directory
	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Database.Password == "" {
		envConfig.Database.Password = fileConfig.Database.Password
	}
	if envConfig.Redis.Password == "" {
		envConfig.Redis.Password = fileConfig.Redis.Password
	}
	if envConfig.Paths.ArchiveRoot == "" {
		envConfig.Paths.ArchiveRoot = fileConfig.Paths.ArchiveRoot
	}
	if envConfig.Scan.DailyAt == "" {
		envConfig.Scan.DailyAt = fileConfig.Scan.DailyAt
	}

	return envConfig
}

// resolvePaths makes the configured paths absolute and ensures the extraction
// and logs directories exist.
func (c *Config) resolvePaths() error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}

	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(wd, p)
	}

	c.Paths.ArchiveRoot = abs(c.Paths.ArchiveRoot)
	c.Paths.ExtractDir = abs(c.Paths.ExtractDir)
	c.Paths.LogsDir = abs(c.Paths.LogsDir)

	for _, dir := range []string{c.Paths.ExtractDir, c.Paths.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host must be set")
	}

	if c.Scan.ExtractionTimeout <= 0 {
		return fmt.Errorf("extraction timeout must be positive")
	}

	if _, err := time.Parse("15:04", c.Scan.DailyAt); err != nil {
		return fmt.Errorf("invalid daily scan time %q: %w", c.Scan.DailyAt, err)
	}

	// Always JSON format, always dual output
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "stdout" {
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/pipeline.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    5,
			RateLimitBurst:  10,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/pipeline.log",
		},
		Paths: PathsConfig{
			ArchiveRoot: "reports",
			ExtractDir:  "extracted",
			LogsDir:     "logs",
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			User:         "opspulse",
			Name:         "opspulse",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 10,
			ConnLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Host:      "localhost",
			Port:      6379,
			DB:        0,
			Namespace: "opspulse",
		},
		Scan: ScanConfig{
			DailyAt:           "06:30",
			ExtractionTimeout: 5 * time.Minute,
		},
	}
}
