package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	gconfig "github.com/goliatone/go-config/config"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is read into the process environment before loading
const DefaultEnvFile = ".env"

// NewContainer returns a go-config container seeded with Defaults
func NewContainer() *gconfig.Container[*BaseConfig] {
	return gconfig.New(Defaults())
}

// Load reads the optional env files into the process environment and
// then loads the container: defaults, config file, environment, flags.
func Load(ctx context.Context, container *gconfig.Container[*BaseConfig], envFiles ...string) (*BaseConfig, error) {
	if err := LoadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	if err := container.Load(ctx); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg := container.Raw()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFiles loads each file with godotenv, missing files are skipped.
// Variables already present in the environment win.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}

	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", file, err)
		}
	}
	return nil
}
