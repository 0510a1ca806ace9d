// Package config assembles ratingkeeper runtime settings from, in order of
// increasing precedence: built-in defaults, an optional JSON file (-c or
// -config), RATINGKEEPER_* environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds runtime settings.
//
// Fields:
//   - DatabaseDriver: "sqlite" or "postgres".
//   - DatabaseDSN: driver-specific data source name.
//   - SecretKey: HMAC secret for signing session tokens.
//   - TokenValidityDuration: session token lifetime.
//   - ArgonMemoryKiB / ArgonIterations / ArgonThreads: argon2id cost for new digests.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint: snapshot export target.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	DatabaseDriver        string        `env:"RATINGKEEPER_DATABASE_DRIVER"`
	DatabaseDSN           string        `env:"RATINGKEEPER_DATABASE_DSN"`
	SecretKey             string        `env:"RATINGKEEPER_SECRET_KEY"`
	TokenValidityDuration time.Duration `env:"RATINGKEEPER_TOKEN_VALIDITY"`
	ArgonMemoryKiB        uint32        `env:"RATINGKEEPER_ARGON_MEMORY_KIB"`
	ArgonIterations       uint32        `env:"RATINGKEEPER_ARGON_ITERATIONS"`
	ArgonThreads          uint8         `env:"RATINGKEEPER_ARGON_THREADS"`
	S3RootUser            string        `env:"RATINGKEEPER_S3_ROOT_USER"`
	S3RootPassword        string        `env:"RATINGKEEPER_S3_ROOT_PASSWORD"`
	S3Bucket              string        `env:"RATINGKEEPER_S3_BUCKET"`
	S3Region              string        `env:"RATINGKEEPER_S3_REGION"`
	S3BaseEndpoint        string        `env:"RATINGKEEPER_S3_BASE_ENDPOINT"`
	LogLevel              string        `env:"RATINGKEEPER_LOG_LEVEL"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey and the S3 credentials must be overridden in production.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "ratingkeeper.db"
	c.SecretKey = "secretKey"
	c.TokenValidityDuration = 30 * time.Minute
	c.ArgonMemoryKiB = 64 * 1024
	c.ArgonIterations = 1
	c.ArgonThreads = 4
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "ratings"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.LogLevel = "info"
}

// LoadConfig builds a Config from defaults, the JSON file, the environment
// and os.Args.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	return cfg, nil
}
