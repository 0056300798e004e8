package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INLOpen/nexuswal/wal"
)

func TestLoad_ValidConfig(t *testing.T) {
	yamlContent := `
wal:
  directory: "/tmp/test_wal"
  page_size_bytes: 8192
  sync_mode: disabled
logging:
  level: debug
  format: json
`
	cfg, err := Load(strings.NewReader(yamlContent))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.NoError(t, cfg.Validate())

	// Check overridden values
	assert.Equal(t, "/tmp/test_wal", cfg.WAL.Directory)
	assert.Equal(t, 8192, cfg.WAL.PageSizeBytes)
	assert.Equal(t, "disabled", cfg.WAL.SyncMode)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Check a default value that was not overridden
	assert.True(t, cfg.WAL.ExclusiveLock)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}

func TestLoad_PartialConfig(t *testing.T) {
	cfg, err := Load(strings.NewReader("tracing:\n  enabled: true\n"))
	require.NoError(t, err)

	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Tracing.Endpoint)
	assert.Equal(t, wal.DefaultPageSize, cfg.WAL.PageSizeBytes)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EmptyReader(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	yamlContent := `
wal:
  directory: "/tmp/test_wal"
  this: is: invalid: yaml
`
	_, err := Load(strings.NewReader(yamlContent))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config yaml")
}

func TestLoadConfig_FileIntegration(t *testing.T) {
	t.Run("FileExists", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("wal:\n  page_size_bytes: 1024\n"), 0644))

		cfg, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, 1024, cfg.WAL.PageSizeBytes)
	})

	t.Run("FileDoesNotExist", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "non_existent_config.yaml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Defaults", func(c *Config) {}, ""},
		{"ZeroPageSize", func(c *Config) { c.WAL.PageSizeBytes = 0 }, "PageSizeBytes"},
		{"NegativePageSize", func(c *Config) { c.WAL.PageSizeBytes = -5 }, "PageSizeBytes"},
		{"EmptyDirectory", func(c *Config) { c.WAL.Directory = "" }, "Directory"},
		{"UnknownSyncMode", func(c *Config) { c.WAL.SyncMode = "interval" }, "SyncMode"},
		{"UnknownLevel", func(c *Config) { c.Logging.Level = "trace" }, "Level"},
		{"FileOutputWithoutPath", func(c *Config) { c.Logging.Output = "file"; c.Logging.File = "" }, "File"},
		{"TracingWithoutEndpoint", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Endpoint = "" }, "Endpoint"},
		{"UnknownProtocol", func(c *Config) { c.Tracing.Protocol = "udp" }, "Protocol"},
		{"EmptyLockTimeout", func(c *Config) { c.WAL.LockTimeout = "" }, ""},
		{"ZeroLockTimeout", func(c *Config) { c.WAL.LockTimeout = "0" }, ""},
		{"MalformedLockTimeout", func(c *Config) { c.WAL.LockTimeout = "two seconds" }, "LockTimeout"},
		{"NegativeLockTimeout", func(c *Config) { c.WAL.LockTimeout = "-1s" }, "LockTimeout"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidate_ReportsLockTimeoutWithOtherViolations(t *testing.T) {
	cfg := Default()
	cfg.WAL.LockTimeout = "soon"
	cfg.WAL.PageSizeBytes = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.WAL.LockTimeout")
	assert.Contains(t, err.Error(), `"duration"`)
	assert.Contains(t, err.Error(), "Config.WAL.PageSizeBytes")
}

func TestWALOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Default()
	cfg.WAL.Directory = "/var/lib/wal"
	cfg.WAL.PageSizeBytes = 512
	cfg.WAL.SyncMode = "disabled"
	cfg.WAL.DiscardRecovered = true
	cfg.WAL.LockTimeout = "250ms"

	opts := cfg.WALOptions(logger)
	assert.Equal(t, "/var/lib/wal", opts.Dir)
	assert.Equal(t, 512, opts.PageSize)
	assert.Equal(t, wal.SyncDisabled, opts.SyncMode)
	assert.True(t, opts.DiscardRecoveredEntries)
	assert.True(t, opts.ExclusiveLock)
	assert.Equal(t, 250*time.Millisecond, opts.LockTimeout)
	assert.Same(t, logger, opts.Logger)
}

func TestParseDuration(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	defaultDuration := 10 * time.Second

	testCases := []struct {
		name     string
		input    string
		expected time.Duration
	}{
		{"ValidSeconds", "5s", 5 * time.Second},
		{"ValidMilliseconds", "500ms", 500 * time.Millisecond},
		{"EmptyString", "", defaultDuration},
		{"ZeroString", "0", defaultDuration},
		{"InvalidString", "5x", defaultDuration},
		{"NilLogger", "5x", defaultDuration}, // Should not panic with nil logger
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var testLogger *slog.Logger
			if tc.name != "NilLogger" {
				testLogger = logger
			}
			assert.Equal(t, tc.expected, ParseDuration(tc.input, defaultDuration, testLogger))
		})
	}
}
