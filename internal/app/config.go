package app

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kelseyhightower/envconfig"

	"github.com/emiliopalmerini/splitr/internal/adapters/otel"
	"github.com/emiliopalmerini/splitr/internal/adapters/prometheus"
	"github.com/emiliopalmerini/splitr/internal/util"
)

const envPrefix = "splitr"

const (
	StoreTurso    = "turso"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is read from SPLITR_* environment variables.
type Config struct {
	Store       string `envconfig:"STORE" default:"turso"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	AuthToken   string `envconfig:"AUTH_TOKEN"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	// SessionCapacity bounds the in-process session store used without Redis.
	SessionCapacity int `envconfig:"SESSION_CAPACITY" default:"100000"`

	CacheSize int           `envconfig:"CACHE_SIZE" default:"256"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"30s"`

	Addr            string        `envconfig:"ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CookieName      string        `envconfig:"COOKIE_NAME" default:"splitr_sid"`
	CookieSecure    bool          `envconfig:"COOKIE_SECURE" default:"false"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// Seed fixes the allocation draws. Zero seeds from the OS.
	Seed uint64 `envconfig:"SEED" default:"0"`

	Otel       otel.Config       `ignored:"true"`
	Prometheus prometheus.Config `ignored:"true"`
}

// Load reads the configuration and fills in defaults that depend on the
// environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to read configuration")
	}

	var err error
	if cfg.Otel, err = otel.LoadConfig(); err != nil {
		return nil, errors.Wrap(err, "failed to read otel configuration")
	}
	if cfg.Prometheus, err = prometheus.LoadConfig(); err != nil {
		return nil, errors.Wrap(err, "failed to read prometheus configuration")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreTurso:
		if c.DatabaseURL == "" {
			path, err := util.DefaultDatabasePath()
			if err != nil {
				return err
			}
			c.DatabaseURL = path
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("SPLITR_POSTGRES_DSN is required when SPLITR_STORE=postgres")
		}
	case StoreMemory:
	default:
		return errors.Newf("unknown store %q: want turso, postgres or memory", c.Store)
	}
	return nil
}
