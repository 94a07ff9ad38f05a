// Package config loads the menu search configuration from a YAML file with
// MS_* environment-variable overrides and typed defaults for every
// subsystem.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Synonyms  SynonymsConfig  `yaml:"synonyms"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// AllowOrigins lists the origins allowed to call the API from a
	// browser. Empty disables CORS headers.
	AllowOrigins []string `yaml:"allowOrigins"`
	// RateLimitPerMinute is the per-client API budget; 0 disables it.
	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`
	// TrustedProxies lists the CIDRs or addresses of reverse proxies whose
	// X-Forwarded-For header the rate limiter believes.
	TrustedProxies []string `yaml:"trustedProxies"`
}

// PostgresConfig holds PostgreSQL connection parameters. Enabled gates the
// catalog source and analytics snapshots.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds broker and topic settings for analytics events.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumerGroup"`
	Topic         string   `yaml:"topic"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// SearchConfig holds the BM25 parameters and language settings.
type SearchConfig struct {
	K1              float64  `yaml:"k1"`
	B               float64  `yaml:"b"`
	TopK            int      `yaml:"topK"`
	MaxResults      int      `yaml:"maxResults"`
	Dampening       float64  `yaml:"dampening"`
	MaxEditDistance int      `yaml:"maxEditDistance"`
	Learning        bool     `yaml:"learning"`
	DefaultLanguage string   `yaml:"defaultLanguage"`
	Languages       []string `yaml:"languages"`
}

// CatalogConfig selects where the menu comes from.
type CatalogConfig struct {
	// Source is one of "embedded", "file" or "postgres".
	Source         string        `yaml:"source"`
	Path           string        `yaml:"path"`
	ReloadInterval time.Duration `yaml:"reloadInterval"`
}

// SynonymsConfig selects the static table and the personal synonym store.
type SynonymsConfig struct {
	TablePath string `yaml:"tablePath"`
	// Store is one of "memory", "sqlite" or "redis".
	Store      string `yaml:"store"`
	SQLitePath string `yaml:"sqlitePath"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// AnalyticsConfig controls the Kafka analytics pipeline. With Enabled the
// search service publishes events to Kafka; Consume additionally runs the
// aggregator in-process. Turn Consume off when cmd/analytics runs the
// aggregation on its own.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Consume          bool          `yaml:"consume"`
	Port             int           `yaml:"port"`
	BufferSize       int           `yaml:"bufferSize"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// Load reads a YAML config file (if provided) and applies environment
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case "embedded":
	case "file":
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required when catalog.source is file")
		}
	case "postgres":
		if !c.Postgres.Enabled {
			return fmt.Errorf("catalog.source postgres requires postgres.enabled")
		}
	default:
		return fmt.Errorf("unknown catalog.source %q", c.Catalog.Source)
	}
	switch c.Synonyms.Store {
	case "memory":
	case "sqlite":
		if c.Synonyms.SQLitePath == "" {
			return fmt.Errorf("synonyms.sqlitePath is required when synonyms.store is sqlite")
		}
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("synonyms.store redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unknown synonyms.store %q", c.Synonyms.Store)
	}
	if c.Search.B < 0 || c.Search.B > 1 {
		return fmt.Errorf("search.b must be within [0, 1], got %v", c.Search.B)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("server.rateLimitPerMinute must not be negative")
	}
	if c.Search.TopK < 0 || c.Search.MaxResults < 0 {
		return fmt.Errorf("search.topK and search.maxResults must not be negative")
	}
	return nil
}

// Default returns a Config suited to local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "menusearch",
			User:            "menusearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "menusearch-analytics",
			Topic:         "menusearch-events",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Search: SearchConfig{
			K1:              1.5,
			B:               0.75,
			TopK:            3,
			MaxResults:      10,
			Dampening:       0.9,
			MaxEditDistance: 1,
			Learning:        true,
			DefaultLanguage: "es",
			Languages:       []string{"es", "en"},
		},
		Catalog: CatalogConfig{
			Source:         "embedded",
			ReloadInterval: 0,
		},
		Synonyms: SynonymsConfig{
			Store:      "memory",
			SQLitePath: "data/synonyms.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Analytics: AnalyticsConfig{
			Consume:          true,
			Port:             8081,
			BufferSize:       1000,
			SnapshotInterval: time.Minute,
		},
	}
}

// applyEnvOverrides reads MS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setInt("MS_SERVER_PORT", &cfg.Server.Port)
	setInt("MS_SERVER_RATE_LIMIT", &cfg.Server.RateLimitPerMinute)
	if v := os.Getenv("MS_SERVER_ALLOW_ORIGINS"); v != "" {
		cfg.Server.AllowOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("MS_SERVER_TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = strings.Split(v, ",")
	}
	setBool("MS_POSTGRES_ENABLED", &cfg.Postgres.Enabled)
	setString("MS_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("MS_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("MS_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("MS_POSTGRES_USER", &cfg.Postgres.User)
	setString("MS_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("MS_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	if v := os.Getenv("MS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("MS_KAFKA_TOPIC", &cfg.Kafka.Topic)
	setBool("MS_REDIS_ENABLED", &cfg.Redis.Enabled)
	setString("MS_REDIS_ADDR", &cfg.Redis.Addr)
	setString("MS_REDIS_PASSWORD", &cfg.Redis.Password)
	setFloat("MS_SEARCH_K1", &cfg.Search.K1)
	setFloat("MS_SEARCH_B", &cfg.Search.B)
	setInt("MS_SEARCH_TOP_K", &cfg.Search.TopK)
	setBool("MS_SEARCH_LEARNING", &cfg.Search.Learning)
	setString("MS_SEARCH_DEFAULT_LANGUAGE", &cfg.Search.DefaultLanguage)
	setString("MS_CATALOG_SOURCE", &cfg.Catalog.Source)
	setString("MS_CATALOG_PATH", &cfg.Catalog.Path)
	setString("MS_SYNONYMS_TABLE_PATH", &cfg.Synonyms.TablePath)
	setString("MS_SYNONYMS_STORE", &cfg.Synonyms.Store)
	setString("MS_SYNONYMS_SQLITE_PATH", &cfg.Synonyms.SQLitePath)
	setString("MS_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("MS_LOGGING_FORMAT", &cfg.Logging.Format)
	setBool("MS_ANALYTICS_ENABLED", &cfg.Analytics.Enabled)
	setBool("MS_ANALYTICS_CONSUME", &cfg.Analytics.Consume)
	setInt("MS_ANALYTICS_PORT", &cfg.Analytics.Port)
}
