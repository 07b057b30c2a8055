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

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL, default=24h"`

	Mongo MongoConfig
	Redis RedisConfig

	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL, default=60s"`

	// BootstrapAdmin, when fully set, provisions the first admin account
	// at startup. Ignored once any admin exists.
	BootstrapAdmin BootstrapAdminConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=taskhive"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type BootstrapAdminConfig struct {
	Name     string `env:"BOOTSTRAP_ADMIN_NAME"`
	Username string `env:"BOOTSTRAP_ADMIN_USERNAME"`
	Email    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	Password string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Enabled reports whether all bootstrap admin fields are provided.
func (b BootstrapAdminConfig) Enabled() bool {
	return b.Name != "" && b.Username != "" && b.Email != "" && b.Password != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	return &cfg, nil
}
