// Package config loads the service configuration from a YAML file with
// environment variable overrides for secrets, so config files can be
// committed without credentials in them.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/filebox/pkg/storage"
)

// ErrInvalid is wrapped by all validation failures during Load.
var ErrInvalid = errors.New("invalid configuration")

// Duration parses YAML duration strings ("15m", "24h") and bare integers
// (nanoseconds) into time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	default:
		return fmt.Errorf("cannot parse %v as duration", raw)
	}
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MigrationsTable string `yaml:"migrations_table"`
	MaxOpenConns    int32  `yaml:"max_open_conns"`
	MinConns        int32  `yaml:"min_conns"`
}

// RedisConfig configures the auth-cache connection. Optional: an empty URL
// disables the cache.
type RedisConfig struct {
	URL      string   `yaml:"url"`
	CacheTTL Duration `yaml:"cache_ttl"`
}

// StorageConfig configures the S3-compatible blob store.
type StorageConfig struct {
	Bucket         string   `yaml:"bucket"`
	AccessKey      string   `yaml:"access_key"`
	SecretKey      string   `yaml:"secret_key"`
	Endpoint       string   `yaml:"endpoint"`
	Region         string   `yaml:"region"`
	PathStyle      bool     `yaml:"path_style"`
	UploadURLTTL   Duration `yaml:"upload_url_ttl"`
	DownloadURLTTL Duration `yaml:"download_url_ttl"`
}

// Broker converts to the storage package's config.
func (c StorageConfig) Broker() storage.Config {
	return storage.Config{
		Bucket:         c.Bucket,
		AccessKey:      c.AccessKey,
		SecretKey:      c.SecretKey,
		Endpoint:       c.Endpoint,
		Region:         c.Region,
		PathStyle:      c.PathStyle,
		UploadURLTTL:   c.UploadURLTTL.Std(),
		DownloadURLTTL: c.DownloadURLTTL.Std(),
	}
}

// QueueConfig configures the background worker pool.
type QueueConfig struct {
	MaxWorkers   int      `yaml:"max_workers"`
	MediaWorkers int      `yaml:"media_workers"`
	PendingTTL   Duration `yaml:"pending_ttl"`
}

// SentryConfig configures error reporting. Optional.
type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// Config is the root service configuration.
type Config struct {
	Env      string               `yaml:"env"`
	HTTP     HTTPConfig           `yaml:"http"`
	Database DatabaseConfig       `yaml:"database"`
	Redis    RedisConfig          `yaml:"redis"`
	Storage  StorageConfig        `yaml:"storage"`
	Upload   storage.UploadPolicy `yaml:"upload"`
	Queue    QueueConfig          `yaml:"queue"`
	Sentry   SentryConfig         `yaml:"sentry"`
}

// envOverrides maps environment variables onto config fields. Secrets are
// expected to arrive this way in deployed environments.
func (c *Config) envOverrides() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Database.URL, "DATABASE_URL")
	set(&c.Redis.URL, "REDIS_URL")
	set(&c.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	set(&c.Storage.SecretKey, "STORAGE_SECRET_KEY")
	set(&c.Storage.Endpoint, "STORAGE_ENDPOINT")
	set(&c.Storage.Bucket, "STORAGE_BUCKET")
	set(&c.Sentry.DSN, "SENTRY_DSN")
	set(&c.HTTP.Addr, "HTTP_ADDR")
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = Duration(10 * time.Second)
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = Duration(30 * time.Second)
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = Duration(15 * time.Second)
	}
	if c.Database.MigrationsTable == "" {
		c.Database.MigrationsTable = "schema_migrations"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = 2
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = Duration(time.Minute)
	}
	if c.Queue.MaxWorkers == 0 {
		c.Queue.MaxWorkers = 5
	}
	if c.Queue.MediaWorkers == 0 {
		c.Queue.MediaWorkers = 2
	}
	if c.Queue.PendingTTL == 0 {
		c.Queue.PendingTTL = Duration(24 * time.Hour)
	}
	if c.Upload.MaxFileSize == 0 {
		c.Upload.MaxFileSize = 100 << 20
	}
	if c.Sentry.Environment == "" {
		c.Sentry.Environment = c.Env
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("%w: database.url is required", ErrInvalid)
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("%w: storage.bucket is required", ErrInvalid)
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		return fmt.Errorf("%w: storage credentials are required", ErrInvalid)
	}
	if c.Queue.MaxWorkers < 1 {
		return fmt.Errorf("%w: queue.max_workers must be positive", ErrInvalid)
	}
	return nil
}

// Load reads and validates the configuration file at path. Environment
// variables override file values before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes raw YAML into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.envOverrides()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
