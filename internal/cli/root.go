package cli

import (
	"fmt"
	"log/slog"

	"github.com/me/goramble/internal/config"
	"github.com/me/goramble/internal/logging"
	"github.com/me/goramble/internal/modifier"
	"github.com/me/goramble/internal/modifier/builtin"
	"github.com/me/goramble/internal/modifier/plugin"
	"github.com/me/goramble/internal/store"
	"github.com/me/goramble/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	flagConfig       string
	flagDebug        bool
	flagLogLevel     string
	flagLogFormat    string
	flagDB           string
	flagWorkers      int
	flagModifierDirs []string

	cfg    config.Config
	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the goramble CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "goramble",
		Short: "goramble resolves and expands benchmark experiment configurations",
		Long: "goramble validates hierarchical application/workload/experiment documents, " +
			"merges inherited settings and expands variable matrices into concrete experiment instances.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadFile(flagConfig)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("log-level") {
				loaded.LogLevel = flagLogLevel
			}
			if flags.Changed("log-format") {
				loaded.LogFormat = flagLogFormat
			}
			if flags.Changed("db") {
				loaded.DBPath = flagDB
			}
			if flags.Changed("workers") {
				loaded.Workers = flagWorkers
			}
			if flags.Changed("modifier-dir") {
				loaded.ModifierDirs = flagModifierDirs
			}
			if flagDebug {
				loaded.LogLevel = "debug"
			}
			cfg = loaded
			logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Path to a goramble config file")
	pf.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error) (or GORAMBLE_LOG_LEVEL env)")
	pf.StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json) (or GORAMBLE_LOG_FORMAT env)")
	pf.StringVar(&flagDB, "db", "goramble.db", "SQLite database path (or GORAMBLE_DB env)")
	pf.IntVar(&flagWorkers, "workers", 4, "Concurrent leaf expansions, 0 for unlimited (or GORAMBLE_WORKERS env)")
	pf.StringSliceVar(&flagModifierDirs, "modifier-dir", nil, "Directory of modifier plugins (repeatable)")

	root.AddCommand(
		newValidateCmd(),
		newExpandCmd(),
		newSchemaCmd(),
		newModifiersCmd(),
		newInstancesCmd(),
		newExpansionsCmd(),
		newServeCmd(),
	)
	return root
}

// newModifierRegistry registers the builtin modifiers and every plugin
// found in the configured directories.
func newModifierRegistry() (*modifier.Registry, error) {
	mods := modifier.NewRegistry(logger)
	if err := builtin.Register(mods); err != nil {
		return nil, err
	}
	if err := plugin.LoadInto(mods, logger, cfg.ModifierDirs...); err != nil {
		return nil, err
	}
	return mods, nil
}

func newWorkspace() (*workspace.Workspace, *modifier.Registry, error) {
	mods, err := newModifierRegistry()
	if err != nil {
		return nil, nil, err
	}
	ws, err := workspace.New(mods, logger,
		workspace.WithWorkers(cfg.Workers),
		workspace.WithDefaults(cfg.Defaults))
	if err != nil {
		return nil, nil, err
	}
	return ws, mods, nil
}

func openStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return st, nil
}
