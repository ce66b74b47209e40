package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iudanet/schoolsync/internal/config"
	"github.com/iudanet/schoolsync/internal/crdt"
	"github.com/iudanet/schoolsync/internal/iocli"
	"github.com/iudanet/schoolsync/internal/logging"
	"github.com/iudanet/schoolsync/internal/metrics"
	"github.com/iudanet/schoolsync/internal/models"
	"github.com/iudanet/schoolsync/internal/storage/boltdb"
	"github.com/iudanet/schoolsync/internal/storage/sqlite"
	"github.com/iudanet/schoolsync/internal/sync"
)

// BuildInfo is set via ldflags during build
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// app holds the global flags shared by all commands
type app struct {
	io         iocli.IO
	configPath string
	dbPath     string
	statePath  string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds the schoolsync command tree
func NewRootCommand(info BuildInfo, io iocli.IO) *cobra.Command {
	a := &app{io: io}

	root := &cobra.Command{
		Use:   "schoolsync",
		Short: "Offline snapshot synchronization between school replicas",
		Long: `schoolsync exports a snapshot of the local school database into a bundle
file and reconciles bundles produced by other replicas into it.

Bundles are moved between replicas by hand. Reconciliation is idempotent:
applying the same bundle twice changes nothing the second time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to YAML config file")
	pf.StringVar(&a.dbPath, "db", "", "Path to replica database (store.path)")
	pf.StringVar(&a.statePath, "state", "", "Path to replica state file (store.state_path)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")

	root.AddCommand(
		a.exportCommand(),
		a.importCommand(),
		a.conflictsCommand(),
		a.historyCommand(),
		versionCommand(info, io),
	)
	return root
}

// overrides переводит заданные флаги в ключи конфигурации
func (a *app) overrides(cmd *cobra.Command) map[string]any {
	out := make(map[string]any)
	flags := cmd.Flags()
	set := func(flag, key, value string) {
		if flags.Changed(flag) {
			out[key] = value
		}
	}
	set("db", "store.path", a.dbPath)
	set("state", "store.state_path", a.statePath)
	set("log-level", "log.level", a.logLevel)
	set("log-format", "log.format", a.logFormat)
	return out
}

// run loads the configuration, opens the replica and calls fn.
// Everything opened here is closed when fn returns.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, c *Cli, cfg *config.Config) error) error {
	cfg, err := config.Load(a.configPath, a.overrides(cmd))
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	clock := crdt.NewHybridClock(nil)

	store, err := sqlite.New(ctx, cfg.Store.Path, sqlite.WithClock(clock), sqlite.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to open store %s: %w", cfg.Store.Path, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	state, err := boltdb.New(ctx, cfg.Store.StatePath)
	if err != nil {
		return fmt.Errorf("failed to open replica state %s: %w", cfg.Store.StatePath, err)
	}
	defer func() {
		if err := state.Close(); err != nil {
			logger.Error("failed to close replica state", "error", err)
		}
	}()

	reg := metrics.NewRegistry()
	svc := sync.NewService(store, state, logger, sync.WithMetrics(reg), sync.WithClock(clock))

	c := New(a.io, svc, state, logger)
	c.metrics = reg
	c.textfile = cfg.Metrics.Textfile

	return fn(ctx, c, cfg)
}

func (a *app) exportCommand() *cobra.Command {
	var scope, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a snapshot bundle of the local replica",
		Example: `  schoolsync export -o office.ssb
  schoolsync export --scope period:3 -o period3.ssb
  schoolsync export --scope group:12 -o guitar.ssb`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := models.ParseScope(scope)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, c *Cli, _ *config.Config) error {
				return c.runExport(ctx, s, output)
			})
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "all", "Export scope: all, period:N or group:N")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Bundle file to write")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (a *app) importCommand() *cobra.Command {
	var opts ImportOptions

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Reconcile a bundle from another replica into the local store",
		Long: `Reconcile a bundle into the local store in one transaction.

Without --yes the conflict preview is shown first and the import asks for
confirmation. Rows that cannot be applied are skipped and reported; a damaged
bundle aborts the import with no changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *Cli, cfg *config.Config) error {
				opts.Actor = resolveActor(opts.Actor, cfg.Sync.Actor)
				return c.runImport(ctx, args[0], opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "Operator name recorded in the import journal (sync.actor)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Compute the result without applying changes")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Apply without preview and confirmation")
	return cmd
}

// resolveActor: флаг, затем конфигурация, затем имя хоста
func resolveActor(flag, configured string) string {
	if flag != "" {
		return flag
	}
	if configured != "" {
		return configured
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *app) conflictsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts FILE",
		Short: "Show how a bundle differs from the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *Cli, _ *config.Config) error {
				return c.runConflicts(ctx, args[0])
			})
		},
	}
}

func (a *app) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List imported bundles, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *Cli, _ *config.Config) error {
				return c.runHistory(ctx, limit)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries, 0 for all")
	return cmd
}
