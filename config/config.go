package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/INLOpen/nexuswal/wal"
)

// WALConfig holds Write-Ahead Log specific configurations.
type WALConfig struct {
	Directory string `yaml:"directory" validate:"required"`
	// PageSizeBytes is the buffered size above which the next append seals the segment.
	PageSizeBytes int    `yaml:"page_size_bytes" validate:"gt=0"`
	SyncMode      string `yaml:"sync_mode" validate:"oneof=always disabled"`
	// DiscardRecovered drops the entries of an unsealed segment found at startup.
	DiscardRecovered bool   `yaml:"discard_recovered"`
	ExclusiveLock    bool   `yaml:"exclusive_lock"`
	LockTimeout      string `yaml:"lock_timeout" validate:"omitempty,duration"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
	Output string `yaml:"output" validate:"oneof=stdout stderr file none"`
	File   string `yaml:"file" validate:"required_if=Output file"` // Path to the log file, used if output is "file"
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint" validate:"required_if=Enabled true"` // e.g., "localhost:4317" for gRPC OTLP collector
	Protocol string `yaml:"protocol" validate:"oneof=grpc http"`
}

// Config is the top-level configuration struct.
type Config struct {
	WAL     WALConfig     `yaml:"wal"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// "duration" accepts a non-negative time.ParseDuration string or "0".
	if err := v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "0" {
			return true
		}
		d, err := time.ParseDuration(s)
		return err == nil && d >= 0
	}); err != nil {
		panic(err)
	}
	return v
}

// ParseDuration parses a duration string. Returns the default duration if the string is empty or invalid.
// Logs a warning if the string is invalid but not empty.
func ParseDuration(durationStr string, defaultDuration time.Duration, logger *slog.Logger) time.Duration {
	if durationStr == "" || durationStr == "0" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		if logger != nil {
			logger.Warn("Invalid duration format, using default", "input", durationStr, "default", defaultDuration.String(), "error", err)
		}
		return defaultDuration
	}
	return d
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		WAL: WALConfig{
			Directory:     "./wal",
			PageSizeBytes: wal.DefaultPageSize,
			SyncMode:      string(wal.SyncAlways),
			ExclusiveLock: true,
			LockTimeout:   "2s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
			File:   "nexuswal.log",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
			Protocol: "grpc",
		},
	}
}

// Load reads configuration from an io.Reader. Values missing from the YAML
// keep their defaults. The result is not validated; call Validate.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()

	// If the reader is nil, it's like an empty file, return defaults.
	if r == nil {
		return cfg, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config data: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}

	// Unmarshal YAML into the config struct, overwriting defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads configuration from a YAML file by path. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Load(nil)
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}

// Validate checks the struct tags and reports every violation at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// WALOptions maps the WAL section onto wal.Options. Runtime collaborators
// (logger, hooks, tracer, metrics) are left for the caller to set.
func (c *Config) WALOptions(logger *slog.Logger) wal.Options {
	return wal.Options{
		Dir:                     c.WAL.Directory,
		PageSize:                c.WAL.PageSizeBytes,
		SyncMode:                wal.SyncMode(c.WAL.SyncMode),
		Logger:                  logger,
		DiscardRecoveredEntries: c.WAL.DiscardRecovered,
		ExclusiveLock:           c.WAL.ExclusiveLock,
		LockTimeout:             ParseDuration(c.WAL.LockTimeout, 2*time.Second, logger),
	}
}
