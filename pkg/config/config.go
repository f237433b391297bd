// Package config loads the infrasim server configuration from a YAML file
// with INFRASIM_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/infrasim/pkg/logging"
	"github.com/dd0wney/infrasim/pkg/source"
	"github.com/dd0wney/infrasim/pkg/validation"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INFRASIM_"

// Config is the full server configuration.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Log        LogConfig         `yaml:"log"`
	Levels     LevelsConfig      `yaml:"levels"`
	Limits     validation.Limits `yaml:"limits"`
	Simulation SimulationConfig  `yaml:"simulation"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	// DocsDir is served under /docs; empty disables the route.
	DocsDir      string `yaml:"docs_dir"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" validate:"gt=0"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// ParsedLevel returns the logging level. Validate guarantees it parses.
func (c LogConfig) ParsedLevel() logging.Level {
	lvl, _ := logging.ParseLevel(c.Level)
	return lvl
}

// NewLogger builds the process logger described by c.
func (c LogConfig) NewLogger(w io.Writer) *logging.StructuredLogger {
	format := logging.FormatJSON
	if c.Format == "text" {
		format = logging.FormatText
	}
	return logging.New(w, c.ParsedLevel(), format)
}

// LevelsConfig points at the level documents checked by the batch endpoint.
// S3 takes precedence over Dir when set.
type LevelsConfig struct {
	Dir     string           `yaml:"dir"`
	S3      *source.S3Config `yaml:"s3,omitempty"`
	Workers int              `yaml:"workers" validate:"gte=0"`
}

// SimulationConfig bounds simulation requests.
type SimulationConfig struct {
	MaxTicks     int `yaml:"max_ticks" validate:"gt=0"`
	DefaultTicks int `yaml:"default_ticks" validate:"gt=0,ltefield=MaxTicks"`
}

// Default returns a configuration that works without a file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			DocsDir:         "docs",
			MaxBodyBytes:    1 << 20,
		},
		Log:    LogConfig{Level: "info", Format: "json"},
		Levels: LevelsConfig{Dir: "levels"},
		Limits: validation.DefaultLimits(),
		Simulation: SimulationConfig{
			MaxTicks:     10080,
			DefaultTicks: 60,
		},
	}
}

// Load reads path (optional) and applies environment overrides.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	return validation.Struct(c)
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %q is not an integer", EnvPrefix, name, v)
		}
		*dst = n
		return nil
	}

	str("ADDR", &cfg.Server.Addr)
	str("DOCS_DIR", &cfg.Server.DocsDir)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LEVELS_DIR", &cfg.Levels.Dir)

	if v, ok := lookup(EnvPrefix + "S3_BUCKET"); ok && v != "" {
		if cfg.Levels.S3 == nil {
			cfg.Levels.S3 = &source.S3Config{}
		}
		cfg.Levels.S3.Bucket = v
	}
	if cfg.Levels.S3 != nil {
		str("S3_PREFIX", &cfg.Levels.S3.Prefix)
		str("S3_REGION", &cfg.Levels.S3.Region)
		str("S3_ENDPOINT", &cfg.Levels.S3.Endpoint)
	}

	if err := num("WORKERS", &cfg.Levels.Workers); err != nil {
		return err
	}
	return num("MAX_TICKS", &cfg.Simulation.MaxTicks)
}
