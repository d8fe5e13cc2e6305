// Package config loads roomhub's configuration: defaults layered under a
// YAML file layered under ROOMHUB_* environment variables, the same
// precedence gothub's applyEnv gave its own GOTHUB_* vars, mechanized here
// with viper instead of hand-rolled os.Getenv checks.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Index      IndexConfig      `mapstructure:"index"`
	Generation GenerationConfig `mapstructure:"generation"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

type QueueConfig struct {
	RedisAddr    string        `mapstructure:"redis_addr"`
	RedisDB      int           `mapstructure:"redis_db"`
	ClaimTTL     time.Duration `mapstructure:"claim_ttl"`
	ReclaimEvery time.Duration `mapstructure:"reclaim_every"`
}

type IndexConfig struct {
	CatalogPath    string        `mapstructure:"catalog_path"`
	CacheDir       string        `mapstructure:"cache_dir"`
	ReloadDebounce time.Duration `mapstructure:"reload_debounce"`
}

type GenerationConfig struct {
	OutputDir         string        `mapstructure:"output_dir"`
	BinaryPath        string        `mapstructure:"binary_path"`
	DefaultDeadline   time.Duration `mapstructure:"default_deadline"`
	ValidationWorkers int           `mapstructure:"validation_workers"`
	GenerationWorkers int           `mapstructure:"generation_workers"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Insecure     bool   `mapstructure:"insecure"`
	ServiceName  string `mapstructure:"service_name"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ValidateServe checks the fields roomhub's serve command cannot run
// without, mirroring gothub's ValidateServe shape.
func (c *Config) ValidateServe() error {
	if c == nil {
		return fmt.Errorf("config is required")
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn must be configured")
	}
	if c.Index.CatalogPath == "" {
		return fmt.Errorf("index.catalog_path must be configured")
	}
	if c.Generation.OutputDir == "" {
		return fmt.Errorf("generation.output_dir must be configured")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "roomhub.db")

	v.SetDefault("queue.redis_addr", "")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.claim_ttl", 2*time.Minute)
	v.SetDefault("queue.reclaim_every", 30*time.Second)

	v.SetDefault("index.catalog_path", "data/catalog.yaml")
	v.SetDefault("index.cache_dir", "data/apworld-cache")
	v.SetDefault("index.reload_debounce", 500*time.Millisecond)

	v.SetDefault("generation.output_dir", "data/generations")
	v.SetDefault("generation.binary_path", "")
	v.SetDefault("generation.default_deadline", 15*time.Minute)
	v.SetDefault("generation.validation_workers", 2)
	v.SetDefault("generation.generation_workers", 1)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.service_name", "roomhub")
}

// Default returns the zero-file configuration, as if Load("") had been
// called: every field at its SetDefault value unless a ROOMHUB_*
// environment variable overrides it.
func Default() (*Config, error) {
	return LoadWithViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("ROOMHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads path (if non-empty) as a YAML config file, then layers
// ROOMHUB_* environment variables on top, and unmarshals into a Config.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return LoadWithViper(v)
}

// LoadWithViper unmarshals cfg from an already-configured viper instance,
// letting tests exercise Load's mechanics against an isolated viper.New()
// without touching the process environment or filesystem.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
