package config

import (
	"flag"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dmitrijs2005/ratingkeeper/internal/flagx"
)

// parseFlags overlays command-line flags:
//
//	-n string   database driver (sqlite, postgres)
//	-d string   database DSN
//	-s string   token signing key
//	-t int      token validity, minutes
//	-m uint     argon2id memory, KiB
//	-i uint     argon2id iterations
//	-j uint     argon2id threads
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-l string   log level
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-n", "-d", "-s", "-t", "-m", "-i", "-j", "-u", "-p", "-b", "-g", "-e", "-l"})

	fs := flag.NewFlagSet("ratingkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DatabaseDriver, "n", cfg.DatabaseDriver, "database driver")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "token signing key")

	tokenValidity := fs.Int("t", int(cfg.TokenValidityDuration.Minutes()), "token validity (in minutes)")
	memory := fs.Uint("m", uint(cfg.ArgonMemoryKiB), "argon2id memory (KiB)")
	iterations := fs.Uint("i", uint(cfg.ArgonIterations), "argon2id iterations")
	threads := fs.Uint("j", uint(cfg.ArgonThreads), "argon2id threads")

	fs.StringVar(&cfg.S3RootUser, "u", cfg.S3RootUser, "S3 root user")
	fs.StringVar(&cfg.S3RootPassword, "p", cfg.S3RootPassword, "S3 root password")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if *memory > math.MaxUint32 || *iterations > math.MaxUint32 {
		return fmt.Errorf("argon2id cost out of range")
	}
	if *threads == 0 || *threads > math.MaxUint8 {
		return fmt.Errorf("argon2id threads must be between 1 and 255")
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// minutes would truncate a sub-minute value from an earlier layer
	if set["t"] {
		cfg.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
	}
	cfg.ArgonMemoryKiB = uint32(*memory)
	cfg.ArgonIterations = uint32(*iterations)
	cfg.ArgonThreads = uint8(*threads)

	return nil
}
