// Package config handles application configuration using Viper.
// Viper merges defaults, an optional YAML file and NEO_ environment
// variables, in that priority order, into the Config struct.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jacerider/neo-image/internal/model"
)

// Storage backends.
const (
	BackendFileSystem  = "filesystem"
	BackendObjectStore = "objectstore"
)

// Config is the root configuration struct. Nested structs organize related settings.
// `mapstructure` tags tell Viper how to map YAML/env keys to struct fields.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Render    RenderConfig    `mapstructure:"render"`
	Focal     FocalConfig     `mapstructure:"focal"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
	Picture   PictureConfig   `mapstructure:"picture"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// PublicURL prefixes derivative URLs in picture markup.
	PublicURL string `mapstructure:"public_url"`
}

type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	// Backend is "filesystem" or "objectstore".
	Backend        string `mapstructure:"backend"`
	DerivativesDir string `mapstructure:"derivatives_dir"`
	// Schemes maps a stream scheme ("public") to the directory holding its
	// source images. http and https are always served.
	Schemes map[string]string `mapstructure:"schemes"`
	MinIO   MinIOConfig       `mapstructure:"minio"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type RenderConfig struct {
	// Engine is "vips" (libvips through bimg) or "imaging" (pure Go).
	Engine  string `mapstructure:"engine"`
	Quality int    `mapstructure:"quality"`
	Upscale bool   `mapstructure:"upscale"`
	// MaxDimension caps the width and height a style may request and every
	// intermediate image a render may allocate. Derivative URLs are public.
	MaxDimension int `mapstructure:"max_dimension"`
}

type FocalConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// ProviderOrder controls which LLM providers are used and in what order.
	// First provider is primary, rest are fallbacks. Example: ["anthropic", "openai"]
	ProviderOrder []string        `mapstructure:"provider_order"`
	Anthropic     AnthropicConfig `mapstructure:"anthropic"`
	OpenAI        OpenAIConfig    `mapstructure:"openai"`
	RatePerMinute int             `mapstructure:"rate_per_minute"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type AuthConfig struct {
	APIKeys   []string `mapstructure:"api_keys"`
	AdminKeys []string `mapstructure:"admin_keys"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	// DerivativesPerSecond limits public derivative requests per client IP.
	DerivativesPerSecond float64 `mapstructure:"derivatives_per_second"`
	Burst                int     `mapstructure:"burst"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type PictureConfig struct {
	// Dimensions is the per-breakpoint DimensionSet used when a picture
	// request configures nothing itself.
	Dimensions model.DimensionSet `mapstructure:"dimensions"`
}

// Load reads configuration from a .env file, a YAML file and environment
// variables. configPath may be empty to search ./config.yaml and
// ./config/config.yaml.
func Load(configPath string) (*Config, error) {
	// .env only fills variables that are not already set.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}

	v := viper.New()

	// Set defaults. Keys without a default are invisible to env overrides,
	// so every key gets one.
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.public_url", "")
	v.SetDefault("storage.database_path", "./storage/neo-image.db")
	v.SetDefault("storage.backend", BackendFileSystem)
	v.SetDefault("storage.derivatives_dir", "./storage/derivatives")
	v.SetDefault("storage.schemes", map[string]string{"public": "./storage/files"})
	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.access_key", "")
	v.SetDefault("storage.minio.secret_key", "")
	v.SetDefault("storage.minio.bucket", "neo-image")
	v.SetDefault("storage.minio.use_ssl", false)
	v.SetDefault("render.engine", "vips")
	v.SetDefault("render.quality", 85)
	v.SetDefault("render.upscale", false)
	v.SetDefault("render.max_dimension", 5000)
	v.SetDefault("focal.enabled", false)
	v.SetDefault("focal.provider_order", []string{"anthropic", "openai"})
	v.SetDefault("focal.anthropic.api_key", "")
	v.SetDefault("focal.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("focal.openai.api_key", "")
	v.SetDefault("focal.openai.model", "gpt-4o")
	v.SetDefault("focal.rate_per_minute", 10)
	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("auth.admin_keys", []string{})
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.derivatives_per_second", 50)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("picture.dimensions", map[string]any{
		model.DefaultBreakpoint: map[string]any{"width": 640},
	})

	// Read from YAML config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Read config file (ignore "not found" unless a path was given)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Environment variables override everything.
	// NEO_ prefix + nested keys: NEO_SERVER_PORT=9090 → server.port=9090
	v.SetEnvPrefix("NEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFileSystem:
		if c.Storage.DerivativesDir == "" {
			return fmt.Errorf("storage.derivatives_dir is required for the filesystem backend")
		}
	case BackendObjectStore:
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			return fmt.Errorf("storage.minio.endpoint and storage.minio.bucket are required for the objectstore backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	switch c.Render.Engine {
	case "vips", "imaging":
	default:
		return fmt.Errorf("unknown render.engine %q", c.Render.Engine)
	}
	if c.Render.MaxDimension < 0 {
		return fmt.Errorf("render.max_dimension must not be negative, got %d", c.Render.MaxDimension)
	}

	for size := range c.Picture.Dimensions {
		if !model.ValidBreakpoint(size) {
			return fmt.Errorf("picture.dimensions: %w: %q", model.ErrInvalidBreakpoint, size)
		}
	}

	for _, p := range c.Focal.ProviderOrder {
		if p != "anthropic" && p != "openai" {
			return fmt.Errorf("unknown focal.provider_order entry %q", p)
		}
	}
	return nil
}

// Address returns the listen address string like "0.0.0.0:8080".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
