package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PROMOVOTE"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"

	NotifyInProcess = "inprocess"
	NotifyRedis     = "redis"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName    string `yaml:"serviceName"    split_words:"true"`
	HTTPPort       string `yaml:"httpPort"       envconfig:"HTTP_PORT"`
	DatabaseDriver string `yaml:"databaseDriver" split_words:"true"`
	PostgresDSN    string `yaml:"postgresDsn"    envconfig:"POSTGRES_DSN"`
	SQLitePath     string `yaml:"sqlitePath"     envconfig:"SQLITE_PATH"`

	SweepInterval        time.Duration `yaml:"sweepInterval"        split_words:"true"`
	SweepBatchSize       int           `yaml:"sweepBatchSize"       split_words:"true"`
	OutboxInterval       time.Duration `yaml:"outboxInterval"       split_words:"true"`
	OutboxBatchSize      int           `yaml:"outboxBatchSize"      split_words:"true"`
	IdempotencyTTL       time.Duration `yaml:"idempotencyTtl"       envconfig:"IDEMPOTENCY_TTL"`
	RetryMaxAttempts     int           `yaml:"retryMaxAttempts"     split_words:"true"`
	RetryInitialInterval time.Duration `yaml:"retryInitialInterval" split_words:"true"`
	DirectoryCacheSize   int           `yaml:"directoryCacheSize"   split_words:"true"`
	DirectoryCacheTTL    time.Duration `yaml:"directoryCacheTtl"    envconfig:"DIRECTORY_CACHE_TTL"`
	RosterFile           string        `yaml:"rosterFile"           split_words:"true"`
	Positions            []string      `yaml:"positions"`

	NotificationBackend string `yaml:"notificationBackend" split_words:"true"`
	RedisAddr           string `yaml:"redisAddr"           split_words:"true"`
	RedisChannelPrefix  string `yaml:"redisChannelPrefix"  split_words:"true"`

	EnableDeadlineSweep      bool `yaml:"enableDeadlineSweep"      split_words:"true"`
	EnableOutboxRelay        bool `yaml:"enableOutboxRelay"        split_words:"true"`
	EnableResolutionNotifier bool `yaml:"enableResolutionNotifier" split_words:"true"`
	EnableMetrics            bool `yaml:"enableMetrics"            split_words:"true"`
	EnableSwagger            bool `yaml:"enableSwagger"            split_words:"true"`
}

func Defaults() Config {
	return Config{
		ServiceName:              "promovote",
		HTTPPort:                 "8080",
		DatabaseDriver:           DriverMemory,
		SQLitePath:               "promovote.db",
		SweepInterval:            time.Minute,
		SweepBatchSize:           100,
		OutboxInterval:           time.Second,
		OutboxBatchSize:          100,
		IdempotencyTTL:           24 * time.Hour,
		RetryMaxAttempts:         3,
		RetryInitialInterval:     50 * time.Millisecond,
		DirectoryCacheSize:       1024,
		DirectoryCacheTTL:        time.Minute,
		NotificationBackend:      NotifyInProcess,
		RedisAddr:                "localhost:6379",
		RedisChannelPrefix:       "promovote",
		EnableDeadlineSweep:      true,
		EnableOutboxRelay:        true,
		EnableResolutionNotifier: true,
		EnableMetrics:            true,
		EnableSwagger:            true,
	}
}

// Load layers defaults, the optional YAML file and PROMOVOTE_* environment
// variables, in that order, then validates the result.
func Load(configFile string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(configFile) != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("error processing environment: %w", err)
	}
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	cfg.NotificationBackend = strings.ToLower(strings.TrimSpace(cfg.NotificationBackend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("postgresDsn is required when databaseDriver is %q", DriverPostgres)
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("sqlitePath is required when databaseDriver is %q", DriverSQLite)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid databaseDriver: %q (must be 'postgres', 'sqlite', or 'memory')", c.DatabaseDriver)
	}
	switch c.NotificationBackend {
	case NotifyInProcess, NotifyRedis:
	default:
		return fmt.Errorf("invalid notificationBackend: %q (must be 'inprocess' or 'redis')", c.NotificationBackend)
	}
	durations := map[string]time.Duration{
		"sweepInterval":        c.SweepInterval,
		"outboxInterval":       c.OutboxInterval,
		"idempotencyTtl":       c.IdempotencyTTL,
		"retryInitialInterval": c.RetryInitialInterval,
		"directoryCacheTtl":    c.DirectoryCacheTTL,
	}
	for name, value := range durations {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, value)
		}
	}
	counts := map[string]int{
		"sweepBatchSize":     c.SweepBatchSize,
		"outboxBatchSize":    c.OutboxBatchSize,
		"retryMaxAttempts":   c.RetryMaxAttempts,
		"directoryCacheSize": c.DirectoryCacheSize,
	}
	for name, value := range counts {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}
	return nil
}
