package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/agroyield-backend/internal/data/db"
	"github.com/yungbote/agroyield-backend/internal/data/store"
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/observability"
	"github.com/yungbote/agroyield-backend/internal/platform/envutil"
)

type PostgresConfig struct {
	Driver       string `yaml:"driver"`
	URL          string `yaml:"url"`
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"sslmode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type MongoConfig struct {
	URI          string `yaml:"uri"`
	Database     string `yaml:"database"`
	Transactions bool   `yaml:"transactions"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Environment string  `yaml:"environment"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type Config struct {
	LogMode         string         `yaml:"log_mode"`
	Port            string         `yaml:"port"`
	Backends        []string       `yaml:"backends"`
	MemoryFlavor    string         `yaml:"memory_flavor"`
	Postgres        PostgresConfig `yaml:"postgres"`
	Mongo           MongoConfig    `yaml:"mongo"`
	Redis           RedisConfig    `yaml:"redis"`
	Otel            OtelConfig     `yaml:"otel"`
	YieldCheck      string         `yaml:"yield_check"`
	CORSOrigins     []string       `yaml:"cors_allow_origins"`
	MetricsEnabled  bool           `yaml:"metrics_enabled"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout"`
}

func DefaultConfig() Config {
	return Config{
		LogMode:      "development",
		Port:         "8000",
		Backends:     []string{store.BackendPostgres, store.BackendMongo},
		MemoryFlavor: string(crops.FlavorRelational),
		Postgres: PostgresConfig{
			Driver:       "postgres",
			Host:         "localhost",
			Port:         "5432",
			User:         "postgres",
			Database:     "agro_yield",
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Mongo: MongoConfig{
			URI:          "mongodb://localhost:27017",
			Database:     "agro_yield",
			Transactions: true,
		},
		Redis: RedisConfig{TTL: time.Hour},
		Otel: OtelConfig{
			ServiceName: "agroyield",
			SampleRatio: 0.1,
		},
		YieldCheck:      string(crops.YieldCheckOff),
		MetricsEnabled:  true,
		ShutdownTimeout: 10 * time.Second,
	}
}

// LoadConfig layers defaults, an optional .env file, an optional YAML file
// named by AGRO_CONFIG_PATH and finally the process environment.
func LoadConfig() (Config, error) {
	envFile := envutil.String("AGRO_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := DefaultConfig()
	if path := envutil.String("AGRO_CONFIG_PATH", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.Backends = envutil.List("BACKENDS", cfg.Backends)
	cfg.MemoryFlavor = envutil.String("MEMORY_FLAVOR", cfg.MemoryFlavor)

	cfg.Postgres.Driver = envutil.String("RELATIONAL_DRIVER", cfg.Postgres.Driver)
	cfg.Postgres.URL = envutil.String("POSTGRES_URL", cfg.Postgres.URL)
	cfg.Postgres.Host = envutil.String("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = envutil.String("POSTGRES_PORT", cfg.Postgres.Port)
	cfg.Postgres.User = envutil.String("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = envutil.String("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.Database = envutil.String("POSTGRES_DB", cfg.Postgres.Database)
	cfg.Postgres.SSLMode = envutil.String("POSTGRES_SSL", cfg.Postgres.SSLMode)
	cfg.Postgres.MaxOpenConns = envutil.Int("POSTGRES_MAX_OPEN_CONNS", cfg.Postgres.MaxOpenConns)
	cfg.Postgres.MaxIdleConns = envutil.Int("POSTGRES_MAX_IDLE_CONNS", cfg.Postgres.MaxIdleConns)

	cfg.Mongo.URI = envutil.String("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = envutil.String("MONGO_DB", cfg.Mongo.Database)
	cfg.Mongo.Transactions = envutil.Bool("MONGO_TRANSACTIONS", cfg.Mongo.Transactions)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.TTL = envutil.Duration("DIMENSION_CACHE_TTL", cfg.Redis.TTL)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
	cfg.Otel.Environment = envutil.String("OTEL_ENVIRONMENT", cfg.Otel.Environment)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.Otel.Headers)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", cfg.Otel.SampleRatio)

	cfg.YieldCheck = envutil.String("YIELD_CHECK_MODE", cfg.YieldCheck)
	cfg.CORSOrigins = envutil.List("CORS_ALLOW_ORIGINS", cfg.CORSOrigins)
	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.ShutdownTimeout = envutil.Duration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
}

// Validate rejects unknown backend names and duplicates.
func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("BACKENDS must name at least one backend")
	}
	seen := map[string]bool{}
	for _, b := range c.Backends {
		switch b {
		case store.BackendPostgres, store.BackendMongo, store.BackendMemory:
		default:
			return fmt.Errorf("unknown backend %q (want postgres, mongodb or memory)", b)
		}
		if seen[b] {
			return fmt.Errorf("backend %q listed twice", b)
		}
		seen[b] = true
	}
	switch crops.Flavor(c.MemoryFlavor) {
	case crops.FlavorRelational, crops.FlavorDocument:
	default:
		return fmt.Errorf("unknown MEMORY_FLAVOR %q", c.MemoryFlavor)
	}
	return nil
}

// PostgresDSN returns POSTGRES_URL when set, else a DSN built from parts.
func (c Config) PostgresDSN() string {
	if url := strings.TrimSpace(c.Postgres.URL); url != "" {
		return url
	}
	if c.Postgres.Driver == "sqlite" {
		return "file:agroyield.db?_pragma=foreign_keys(1)"
	}
	p := c.Postgres
	return db.PostgresDSN(p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

func (c Config) OtelConfig() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.Otel.Enabled,
		ServiceName: c.Otel.ServiceName,
		Environment: c.Otel.Environment,
		Endpoint:    c.Otel.Endpoint,
		Headers:     observability.ParseOtelHeaders(c.Otel.Headers),
		Insecure:    c.Otel.Insecure,
		SampleRatio: c.Otel.SampleRatio,
		Version:     "1.0.0",
	}
}

func (c Config) Addr() string {
	port := strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	return ":" + port
}
