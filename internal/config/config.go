package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"sketchscan/internal/sandbox"
	"sketchscan/internal/sketch"
)

type Config struct {
	Entries sketch.EntryNames `yaml:"entries"`

	Registry struct {
		Path string `yaml:"path"` // optional .yaml/.yml/.toml table replacing the built-in one
	} `yaml:"registry"`

	Sandbox struct {
		LoopBudget  int           `yaml:"loop_budget" validate:"min=1"`
		Timeout     time.Duration `yaml:"timeout" validate:"min=0"`
		ForwardMath bool          `yaml:"forward_math"`
		Seed        int64         `yaml:"seed"`
	} `yaml:"sandbox"`

	Logging struct {
		Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
		Format string `yaml:"format" validate:"oneof=text json"`
	} `yaml:"logging"`

	Storage struct {
		Path string `yaml:"path" validate:"required"`
	} `yaml:"storage"`

	Scan struct {
		Concurrency int      `yaml:"concurrency" validate:"min=1,max=64"`
		Ignore      []string `yaml:"ignore"`
	} `yaml:"scan"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Entries = sketch.DefaultEntryNames()

	opts := sandbox.DefaultOptions()
	cfg.Sandbox.LoopBudget = opts.LoopBudget
	cfg.Sandbox.Timeout = opts.Timeout
	cfg.Sandbox.ForwardMath = opts.ForwardMath
	cfg.Sandbox.Seed = opts.Seed

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Storage.Path = "sketchscan.db"
	cfg.Scan.Concurrency = 4
	cfg.Scan.Ignore = []string{".git", "node_modules", "vendor", "libraries"}
	return &cfg
}

// LoadConfig reads path over the defaults. A missing file is not an error.
// Environment variables (and a .env file, if any) override file values.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	// 3. Override with Environment Variables if present
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SKETCHSCAN_LOOP_BUDGET"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SKETCHSCAN_LOOP_BUDGET %q: %w", v, err)
		}
		c.Sandbox.LoopBudget = n
	}
	if v := os.Getenv("SKETCHSCAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SKETCHSCAN_DB"); v != "" {
		c.Storage.Path = v
	}
	return nil
}

// Validate checks the struct tags of the whole configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SandboxOptions converts the sandbox section into dry-run options.
func (c *Config) SandboxOptions() sandbox.Options {
	return sandbox.Options{
		LoopBudget:  c.Sandbox.LoopBudget,
		Timeout:     c.Sandbox.Timeout,
		ForwardMath: c.Sandbox.ForwardMath,
		Seed:        c.Sandbox.Seed,
	}
}
