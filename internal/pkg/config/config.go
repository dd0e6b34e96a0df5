package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth  AuthConfig
	Guard GuardConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET, required"`
	TokenTTL   time.Duration `env:"TOKEN_TTL,   default=168h"`
	BcryptCost int           `env:"BCRYPT_COST, default=12"`
}

type GuardConfig struct {
	ProtectedPrefixes []string `env:"GUARD_PROTECTED_PREFIXES, default=/home,/features,/pricing,/about,/blog,/careers,/contact,/users"`
	Strict            bool     `env:"GUARD_STRICT,             default=false"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, required"`
	Database string `env:"MONGO_DB,  default=user_directory"`
}

type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED,       default=true"`
	Addr     string        `env:"REDIS_ADDR,          default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,            default=0"`
	CacheTTL time.Duration `env:"DIRECTORY_CACHE_TTL, default=30s"`
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration through lookuper; nil means the process environment.
// A missing JWT_SECRET or MONGO_URI is an error.
func Load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// MustLoad reads configuration from environment variables using go-envconfig
// and panics when it is incomplete.
func MustLoad() *Config {
	cfg, err := Load(context.Background(), nil)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}
