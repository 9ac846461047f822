// Package cmd implements the finscore CLI commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/finscore/internal/cli"
	"github.com/theirongolddev/finscore/internal/config"
	"github.com/theirongolddev/finscore/internal/engine"
	"github.com/theirongolddev/finscore/internal/model"
	"github.com/theirongolddev/finscore/internal/store"
)

var (
	flagPeriod   string
	flagDate     string
	flagUser     string
	flagDB       string
	flagNoCache  bool
	flagJSON     bool
	flagQuiet    bool
	flagLogLevel string
)

var (
	cfg config.Config
	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:               "finscore",
	Short:             "Financial analytics and risk scoring",
	Long:              "Analyze spending, budgets and lending: trends, health and risk scores, projections and recommendations.",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
	RunE:              runReport,
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagPeriod, "period", "p", "", "Period: week, month, quarter or year (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagDate, "date", "", "Reference date YYYY-MM-DD (default today)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "User id (default from config or FINSCORE_USER)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path, overrides the configured store")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the report cache, recompute everything")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func loadSettings(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	level := cfg.General.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	cli.SetTheme(cfg.Appearance.Theme)
	if err := cli.SetLocale(cfg.Appearance.Locale, cfg.Appearance.Currency); err != nil {
		log.WithError(err).Warn("keeping default locale")
	}
	return nil
}

func periodLabel() string {
	if flagPeriod != "" {
		return flagPeriod
	}
	return cfg.General.DefaultPeriod
}

func userID() (string, error) {
	if flagUser != "" {
		return flagUser, nil
	}
	if cfg.General.UserID != "" {
		return cfg.General.UserID, nil
	}
	return "", fmt.Errorf("%w: pass --user, set %s or run `finscore setup`", engine.ErrUserRequired, config.EnvUser)
}

func refDate() (time.Time, error) {
	if flagDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, flagDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

// openStore opens the record store named by --db or the config.
func openStore() (*store.Store, error) {
	if flagDB != "" {
		return store.OpenSQLite(flagDB)
	}
	dsn := cfg.Store.DSN
	if cfg.Store.Driver == store.DriverSQLite && dsn == "" {
		dsn = config.DefaultDBPath()
	}
	return store.Open(cfg.Store.Driver, dsn)
}

// openEngine wires the store and cache tiers into an engine. The returned
// func releases both.
func openEngine() (*engine.Engine, func(), error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	ecfg := engine.Config{Logger: log, TTL: cfg.Cache.TTL()}
	cleanup := func() { _ = st.Close() }

	if !flagNoCache && cfg.Cache.Enabled {
		mem, err := store.NewMemoryCache(int64(cfg.Cache.MemoryMB) << 20)
		if err != nil {
			log.WithError(err).Warn("memory cache unavailable, using database cache only")
			ecfg.Cache = store.NewReportCache(st)
		} else {
			ecfg.Cache = store.NewTiered(mem, store.NewReportCache(st))
			cleanup = func() {
				mem.Close()
				_ = st.Close()
			}
		}
	}

	return engine.New(st, ecfg), cleanup, nil
}

// loadReport runs the analytics pipeline for the current flags.
func loadReport(ctx context.Context) (*model.AnalyticsReport, error) {
	user, err := userID()
	if err != nil {
		return nil, err
	}
	ref, err := refDate()
	if err != nil {
		return nil, err
	}

	eng, cleanup, err := openEngine()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return eng.Analyze(ctx, user, periodLabel(), ref)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isNoData(r *model.AnalyticsReport) bool {
	return r.Summary.TransactionCount == 0 && len(r.BudgetPerformance) == 0
}
