// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Package config reads the process configuration of both tiers from the
// environment, optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig is wrapped by every validation problem.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultEnvFile is loaded when it exists and no other file is named.
const DefaultEnvFile = ".env"

// Logging configures the hclog logger of a process.
type Logging struct {
	Level  string `env:"LOG_LEVEL" env-default:"info" env-description:"trace, debug, info, warn or error"`
	Format string `env:"LOG_FORMAT" env-default:"text" env-description:"text or json"`
}

// Validate reports an unknown level or format.
func (l Logging) Validate() error {
	const op = "Logging.Validate"
	var result *multierror.Error
	if hclog.LevelFromString(l.Level) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("%s: unknown LOG_LEVEL %q: %w", op, l.Level, ErrInvalidConfig))
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("%s: unknown LOG_FORMAT %q: %w", op, l.Format, ErrInvalidConfig))
	}
	return result.ErrorOrNil()
}

// Logger returns a named logger writing to w.
func (l Logging) Logger(name string, w io.Writer) hclog.Logger {
	level := hclog.LevelFromString(l.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		Output:     w,
		JSONFormat: strings.EqualFold(l.Format, "json"),
	})
}

// LoadEnvFiles sets environment variables from the named .env files, or from
// DefaultEnvFile when none are named. Missing files are skipped and
// variables that are already set are never overridden.
func LoadEnvFiles(files ...string) error {
	const op = "config.LoadEnvFiles"
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("%s: unable to load %s: %w", op, f, err)
		}
	}
	return nil
}

// read fills cfg from the environment after loading envFiles.
func read(cfg interface{}, envFiles ...string) error {
	if err := LoadEnvFiles(envFiles...); err != nil {
		return err
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	return nil
}

// Usage writes a description of every environment variable of cfg.
func Usage(cfg interface{}, w io.Writer) {
	cleanenv.FUsage(w, cfg, nil)()
}

func validateURL(name, s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%s %q: %s: %w", name, s, err, ErrInvalidConfig)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s %q: scheme is not http or https: %w", name, s, ErrInvalidConfig)
	}
	if u.Host == "" {
		return fmt.Errorf("%s %q: host is empty: %w", name, s, ErrInvalidConfig)
	}
	return nil
}

func validateTimeout(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be greater than zero: %w", name, ErrInvalidConfig)
	}
	return nil
}
