// Package config loads process configuration from the environment at
// startup. An optional YAML file can pre-seed values; environment variables
// always win. There is no runtime reconfiguration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the API process.
type Config struct {
	Environment string         `yaml:"environment" validate:"oneof=development staging production"`
	LogLevel    string         `yaml:"log_level"`
	Server      ServerConfig   `yaml:"server"`
	Database    DatabaseConfig `yaml:"database"`
	Redis       RedisConfig    `yaml:"redis"`
	Cache       CacheConfig    `yaml:"cache"`
	Features    Features       `yaml:"features"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL pool settings.
type DatabaseConfig struct {
	URL          string        `yaml:"url" validate:"required"`
	MaxConns     int32         `yaml:"max_conns" validate:"min=1"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// RedisConfig holds cache backend settings.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CacheConfig holds key namespace and projection TTLs.
type CacheConfig struct {
	Prefix      string        `yaml:"prefix" validate:"required"`
	EntityTTL   time.Duration `yaml:"entity_ttl"`
	StudentTTL  time.Duration `yaml:"student_ttl"`
	TutorTTL    time.Duration `yaml:"tutor_ttl"`
	LecturerTTL time.Duration `yaml:"lecturer_ttl"`
	GradingTTL  time.Duration `yaml:"grading_ttl"`
}

// Features contains feature flags for the application
type Features struct {
	EnableCaching bool `yaml:"enable_caching"`
	EnableMetrics bool `yaml:"enable_metrics"`
	AutoMigrate   bool `yaml:"auto_migrate"`
}

// Default returns the baseline configuration before env overrides.
func Default() Config {
	return Config{
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Addr:            ":8000",
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:     10,
			QueryTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Timeout: 500 * time.Millisecond,
		},
		Cache: CacheConfig{
			Prefix:      "computor",
			EntityTTL:   10 * time.Minute,
			StudentTTL:  300 * time.Second,
			TutorTTL:    180 * time.Second,
			LecturerTTL: 300 * time.Second,
			GradingTTL:  1800 * time.Second,
		},
		Features: Features{
			EnableCaching: true,
			EnableMetrics: true,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named
// by CONFIG_FILE, and environment variables, then validates it.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Environment, "ENVIRONMENT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setInt32(&cfg.Database.MaxConns, "DATABASE_MAX_CONNS")
	setDuration(&cfg.Database.QueryTimeout, "DATABASE_QUERY_TIMEOUT")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setDuration(&cfg.Redis.Timeout, "REDIS_TIMEOUT")
	setString(&cfg.Cache.Prefix, "CACHE_PREFIX")
	setDuration(&cfg.Cache.EntityTTL, "CACHE_ENTITY_TTL")
	setDuration(&cfg.Cache.StudentTTL, "CACHE_STUDENT_TTL")
	setDuration(&cfg.Cache.TutorTTL, "CACHE_TUTOR_TTL")
	setDuration(&cfg.Cache.LecturerTTL, "CACHE_LECTURER_TTL")
	setDuration(&cfg.Cache.GradingTTL, "CACHE_GRADING_TTL")
	setBool(&cfg.Features.EnableCaching, "ENABLE_CACHING")
	setBool(&cfg.Features.EnableMetrics, "ENABLE_METRICS")
	setBool(&cfg.Features.AutoMigrate, "AUTO_MIGRATE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
