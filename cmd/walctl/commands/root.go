// Package commands implements the walctl command tree.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/INLOpen/nexuswal/config"
	"github.com/INLOpen/nexuswal/core"
	"github.com/INLOpen/nexuswal/hooks"
	"github.com/INLOpen/nexuswal/hooks/listeners"
	"github.com/INLOpen/nexuswal/wal"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const defaultConfigPath = "walctl.yaml"

// app carries the state shared by every subcommand of one invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	closers []func()
}

func (a *app) cleanup() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Run executes the command tree with args, writing command output to stdout
// and errors to stderr. Resources opened during setup are released before it
// returns, also when the command fails.
func Run(args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.cleanup()

	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return Run(os.Args[1:], os.Stdout, os.Stderr)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "walctl",
		Short: "Inspect and drive a nexuswal write-ahead log directory",
		Long: `walctl operates on a WAL directory: append entries, seal the active
segment, list and dump segments, verify their checksums and purge sealed ones.

Use "walctl [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", defaultConfigPath, "Path to the configuration file")
	flags.String("dir", "", "WAL directory (overrides wal.directory)")
	flags.Int("page-size", 0, "Page size in bytes (overrides wal.page_size_bytes)")
	flags.String("log-level", "", "Log level (overrides logging.level)")
	flags.String("log-output", "", "Log output: stdout, stderr, file or none (overrides logging.output)")

	rootCmd.AddCommand(
		newAppendCmd(a),
		newCheckpointCmd(a),
		newListCmd(a),
		newDumpCmd(a),
		newVerifyCmd(a),
		newPurgeCmd(a),
		newStatusCmd(a),
		newVersionCmd(),
	)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	return rootCmd
}

// setup loads the configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := createLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if closer != nil {
		a.closers = append(a.closers, func() { closer.Close() })
	}

	_, shutdown, err := initTracerProvider(cfg.Tracing, logger)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, shutdown)

	a.cfg = cfg
	a.logger = logger
	return nil
}

// loadConfig reads the config file, falling back to the defaults when the
// default path does not exist. An explicitly named file must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")

	if flags.Changed("config") {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if flags.Changed("dir") {
		cfg.WAL.Directory, _ = flags.GetString("dir")
	}
	if flags.Changed("page-size") {
		cfg.WAL.PageSizeBytes, _ = flags.GetInt("page-size")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-output") {
		cfg.Logging.Output, _ = flags.GetString("log-output")
	}
	return cfg, nil
}

// managerOptions tunes openManager for one subcommand.
type managerOptions struct {
	registry       *prometheus.Registry
	maxPayload     int
	discardEntries bool
}

// openManager opens the configured WAL directory with the standard listeners
// registered. The returned close func closes the manager and drains the
// async listeners; calling it more than once is safe.
func (a *app) openManager(mo managerOptions) (*wal.Manager, func() error, error) {
	hm := hooks.NewHookManager(a.logger)
	hm.Register(hooks.EventPostWALCheckpoint, listeners.NewSegmentAuditListener(a.logger))
	hm.Register(hooks.EventPostWALPurge, listeners.NewSegmentAuditListener(a.logger))
	hm.Register(hooks.EventPostWALAppend, listeners.NewWriteAmplificationListener(a.logger))
	if mo.maxPayload > 0 {
		rules := make([]listeners.PayloadRule, 0, 3)
		for _, kind := range []core.EntryKind{core.EntryKindInsert, core.EntryKindSet, core.EntryKindDelete} {
			rules = append(rules, listeners.PayloadRule{Kind: kind, MaxBytes: mo.maxPayload})
		}
		hm.Register(hooks.EventPreWALAppend, listeners.NewPayloadGuardListener(a.logger, rules, true))
	}

	opts := a.cfg.WALOptions(a.logger)
	opts.HookManager = hm
	if mo.registry != nil {
		opts.Metrics = wal.NewMetrics(mo.registry)
	}
	if mo.discardEntries {
		opts.DiscardRecoveredEntries = true
	}

	m, err := wal.Open(opts)
	if err != nil {
		hm.Stop()
		return nil, nil, err
	}
	var once sync.Once
	var closeErr error
	closeFn := func() error {
		once.Do(func() {
			closeErr = m.Close()
			hm.Stop()
		})
		return closeErr
	}
	return m, closeFn, nil
}
