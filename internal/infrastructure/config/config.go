package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// insecurePlaceholder is the secret shipped in the sample .env file. Running
// with it is as good as running with no secret at all.
const insecurePlaceholder = "VOTRE_SECRET_JWT_TRES_COMPLEXE_ET_DIFFICILE_A_DEVINER"

type Config struct {
	Port      string `env:"PORT,           default=8080"`
	Env       string `env:"ENV,            default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	// JWTExpiresIn accepts duration strings like "1h", "1d" or "7d".
	JWTExpiresIn string `env:"JWT_EXPIRES_IN, default=1d"`
	BcryptCost   int    `env:"BCRYPT_COST,    default=10"`
	LogLevel     string `env:"LOG_LEVEL,      default=info"`

	// LoginMaxAttempts caps failed logins per email per window; 0 disables
	// the limiter entirely.
	LoginMaxAttempts   int           `env:"LOGIN_MAX_ATTEMPTS,   default=0"`
	LoginAttemptWindow time.Duration `env:"LOGIN_ATTEMPT_WINDOW, default=15m"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=gestionpro"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate enforces the startup invariants. The process must refuse to serve
// with an unset or placeholder signing secret.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is not set")
	}
	if c.JWTSecret == insecurePlaceholder {
		return fmt.Errorf("config: JWT_SECRET still has its placeholder value; set a real secret")
	}
	return nil
}

// Production reports whether cookies must carry the secure + strict
// same-site flags.
func (c *Config) Production() bool {
	return c.Env == "production"
}
