package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config captures the runtime configuration for the ReelNest backend service.
type Config struct {
	Server       ServerConfig      `koanf:"server"`
	Database     DatabaseConfig    `koanf:"database"`
	Auth         AuthConfig        `koanf:"auth"`
	ObjectStore  ObjectStoreConfig `koanf:"storage"`
	Upload       UploadConfig      `koanf:"upload"`
	RateLimit    RateLimitConfig   `koanf:"rate_limit"`
	Reaper       ReaperConfig      `koanf:"reaper"`
	CORSOrigins  []string          `koanf:"cors_origins"`
	LogLevel     string            `koanf:"log_level"`
	MigrationDir string            `koanf:"migrations"`
	SeedDir      string            `koanf:"seeds"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the pgx connection pool.
type DatabaseConfig struct {
	URL               string        `koanf:"url"`
	MaxConns          int32         `koanf:"max_conns"`
	MinConns          int32         `koanf:"min_conns"`
	ConnectTimeout    time.Duration `koanf:"connect_timeout"`
	MaxConnIdleTime   time.Duration `koanf:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `koanf:"health_check_period"`
}

// AuthConfig configures bearer tokens and password hashing.
type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret"`
	TokenTTL   time.Duration `koanf:"token_ttl"`
	BcryptCost int           `koanf:"bcrypt_cost"`
}

// ObjectStoreConfig describes where video bytes are kept.
type ObjectStoreConfig struct {
	Driver   string `koanf:"driver"`
	Bucket   string `koanf:"bucket"`
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`
	PartSize int64  `koanf:"part_size"`
}

// UploadConfig bounds video uploads.
type UploadConfig struct {
	MaxBytes        int64         `koanf:"max_bytes"`
	RateLimit       int           `koanf:"rate_limit"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// RateLimitConfig throttles the signup and login endpoints per client IP.
type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
	TTL      time.Duration `koanf:"ttl"`
}

// ReaperConfig sizes the background blob deletion pool.
type ReaperConfig struct {
	Workers   int           `koanf:"workers"`
	QueueSize int           `koanf:"queue_size"`
	Timeout   time.Duration `koanf:"timeout"`
}

const (
	// StorageDriverS3 stores videos in an S3-compatible bucket.
	StorageDriverS3 = "s3"
	// StorageDriverMemory keeps videos in process memory, for local development only.
	StorageDriverMemory = "memory"
)

// ConfigPathEnvVar points at an optional YAML configuration file.
const ConfigPathEnvVar = "REELNEST_CONFIG"

const envPrefix = "REELNEST_"

var defaultConfigPaths = []string{"reelnest.yaml", "reelnest.yml"}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     2 * time.Minute,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:          10,
			MinConns:          5,
			ConnectTimeout:    10 * time.Second,
			MaxConnIdleTime:   5 * time.Minute,
			HealthCheckPeriod: time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL:   7 * 24 * time.Hour,
			BcryptCost: 12,
		},
		ObjectStore: ObjectStoreConfig{
			Driver:   StorageDriverS3,
			Bucket:   "reelnest-videos",
			Region:   "us-east-1",
			PartSize: 5 * 1024 * 1024,
		},
		Upload: UploadConfig{
			MaxBytes:        50 << 20,
			RateLimit:       20,
			RateLimitWindow: time.Minute,
		},
		RateLimit: RateLimitConfig{
			Requests: 10,
			Window:   time.Minute,
			Burst:    5,
			TTL:      10 * time.Minute,
		},
		Reaper: ReaperConfig{
			Workers:   2,
			QueueSize: 64,
			Timeout:   30 * time.Second,
		},
		CORSOrigins:  []string{"*"},
		LogLevel:     "info",
		MigrationDir: "migrations",
		SeedDir:      "seeds",
	}
}

// envKeys maps REELNEST_* variable suffixes onto koanf paths.
var envKeys = map[string]string{
	"port":                         "server.port",
	"read_timeout":                 "server.read_timeout",
	"write_timeout":                "server.write_timeout",
	"shutdown_timeout":             "server.shutdown_timeout",
	"database_url":                 "database.url",
	"database_max_conns":           "database.max_conns",
	"database_min_conns":           "database.min_conns",
	"database_connect_timeout":     "database.connect_timeout",
	"database_max_conn_idle_time":  "database.max_conn_idle_time",
	"database_health_check_period": "database.health_check_period",
	"jwt_secret":                   "auth.jwt_secret",
	"token_ttl":                    "auth.token_ttl",
	"bcrypt_cost":                  "auth.bcrypt_cost",
	"storage_driver":               "storage.driver",
	"storage_bucket":               "storage.bucket",
	"storage_region":               "storage.region",
	"storage_endpoint":             "storage.endpoint",
	"storage_part_size":            "storage.part_size",
	"upload_max_bytes":             "upload.max_bytes",
	"upload_rate_limit":            "upload.rate_limit",
	"upload_rate_limit_window":     "upload.rate_limit_window",
	"auth_rate_limit":              "rate_limit.requests",
	"auth_rate_limit_window":       "rate_limit.window",
	"auth_rate_limit_burst":        "rate_limit.burst",
	"auth_rate_limit_ttl":          "rate_limit.ttl",
	"reaper_workers":               "reaper.workers",
	"reaper_queue_size":            "reaper.queue_size",
	"reaper_timeout":               "reaper.timeout",
	"cors_origins":                 "cors_origins",
	"log_level":                    "log_level",
	"migrations":                   "migrations",
	"seeds":                        "seeds",
}

// Load reads configuration from defaults, an optional YAML file and REELNEST_*
// environment variables, in increasing order of precedence.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if raw, ok := k.Get("cors_origins").(string); ok {
		if err := k.Set("cors_origins", splitList(raw)); err != nil {
			return Config{}, fmt.Errorf("parse cors origins: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports configuration that would prevent the service from running.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("REELNEST_DATABASE_URL is required"))
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("REELNEST_JWT_SECRET is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	switch c.ObjectStore.Driver {
	case StorageDriverS3:
		if strings.TrimSpace(c.ObjectStore.Bucket) == "" {
			errs = append(errs, errors.New("storage bucket is required for the s3 driver"))
		}
	case StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.ObjectStore.Driver))
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, errors.New("database min conns exceeds max conns"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload max bytes must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func envTransform(key string) string {
	suffix := strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if path, ok := envKeys[suffix]; ok {
		return path
	}
	// Unknown variables are dropped rather than guessed into the tree.
	return ""
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
