package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/ratingkeeper/internal/flagx"
	"github.com/dmitrijs2005/ratingkeeper/internal/timex"
)

// JSONConfig is the on-disk shape of the config file. Durations accept "30m"
// style strings or integer nanoseconds. Absent keys keep the current value.
type JSONConfig struct {
	DatabaseDriver        string         `json:"database_driver"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	ArgonMemoryKiB        uint32         `json:"argon_memory_kib"`
	ArgonIterations       uint32         `json:"argon_iterations"`
	ArgonThreads          uint8          `json:"argon_threads"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
	LogLevel              string         `json:"log_level"`
}

func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JSONConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.DatabaseDriver, c.DatabaseDriver)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.SecretKey, c.SecretKey)
	if c.TokenValidityDuration.Duration > 0 {
		cfg.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.ArgonMemoryKiB > 0 {
		cfg.ArgonMemoryKiB = c.ArgonMemoryKiB
	}
	if c.ArgonIterations > 0 {
		cfg.ArgonIterations = c.ArgonIterations
	}
	if c.ArgonThreads > 0 {
		cfg.ArgonThreads = c.ArgonThreads
	}
	setString(&cfg.S3RootUser, c.S3RootUser)
	setString(&cfg.S3RootPassword, c.S3RootPassword)
	setString(&cfg.S3Bucket, c.S3Bucket)
	setString(&cfg.S3Region, c.S3Region)
	setString(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&cfg.LogLevel, c.LogLevel)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
