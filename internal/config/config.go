package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ScratchConfig holds settings for the per-request scratch workspaces.
type ScratchConfig struct {
	Dir           string        `yaml:"dir"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	MaxUploadMB     int           `yaml:"max_upload_mb"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from an optional YAML file and then from environment variables.
type AppConfig struct {
	ServiceName string        `yaml:"service_name"`
	LogLevel    string        `yaml:"log_level"`
	Timezone    string        `yaml:"timezone"`
	Metrics     bool          `yaml:"metrics"`
	Server      ServerConfig  `yaml:"server"`
	Scratch     ScratchConfig `yaml:"scratch"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *AppConfig {
	return &AppConfig{
		ServiceName: "docgate",
		LogLevel:    "info",
		Timezone:    "UTC",
		Metrics:     true,
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            "8000",
			MaxUploadMB:     50,
			ShutdownTimeout: 10 * time.Second,
		},
		Scratch: ScratchConfig{
			Dir:           "temp",
			TTL:           15 * time.Minute,
			SweepInterval: time.Minute,
		},
	}
}

// Load reads configuration from environment variables on top of the defaults.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// When CONFIG_FILE is set, that YAML file is applied before the environment.
func Load() (*AppConfig, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile is Load with an explicit YAML file path. An empty path behaves like Load.
func LoadFile(path string) (*AppConfig, error) {
	if path == "" {
		return Load()
	}
	cfg := Defaults()
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *AppConfig) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	c.ServiceName = getEnv("OTEL_SERVICE_NAME", c.ServiceName)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Timezone = getEnv("TZ_NAME", c.Timezone)
	c.Metrics = getEnvBool("METRICS_ENABLED", c.Metrics)

	c.Server.Host = getEnv("APP_HOST", c.Server.Host)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", c.Server.MaxUploadMB)
	c.Server.ReadTimeout = getEnvDuration("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Scratch.Dir = getEnv("SCRATCH_DIR", c.Scratch.Dir)
	c.Scratch.TTL = getEnvDuration("SCRATCH_TTL", c.Scratch.TTL)
	c.Scratch.SweepInterval = getEnvDuration("SWEEP_INTERVAL", c.Scratch.SweepInterval)
}

// Addr is the listen address in host:port form.
func (c *AppConfig) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BodyLimit is the maximum request body size in bytes.
func (c *AppConfig) BodyLimit() int {
	if c.Server.MaxUploadMB <= 0 {
		return 50 * 1024 * 1024
	}
	return c.Server.MaxUploadMB * 1024 * 1024
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
