package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/korjavin/swiftcamp/catalog"
	"github.com/korjavin/swiftcamp/config"
	"github.com/korjavin/swiftcamp/database"
	"github.com/korjavin/swiftcamp/evaluator"
	"github.com/korjavin/swiftcamp/logger"
	"github.com/korjavin/swiftcamp/metrics"
	"github.com/korjavin/swiftcamp/progress"
)

const version = "1.0.0"

// app holds the components shared by every command
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	metrics *metrics.Metrics
	engine  *progress.Engine
	eval    *evaluator.Evaluator
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	// Without a database progress lives in memory for this run only
	var store progress.Store
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Warn("Database unavailable, progress will not be saved", "path", cfg.DatabasePath, "error", err)
	} else {
		store = db
	}

	m := metrics.New()
	cat := catalog.Load(catalog.FileSource{Path: cfg.LessonsFile}, catalog.Fallback(), log)

	engine := progress.New(ctx, cat, store,
		progress.WithLocation(cfg.Location),
		progress.WithLogger(log),
		progress.WithMetrics(m),
	)
	eval := evaluator.New(
		evaluator.WithDelay(cfg.ExecutionDelay),
		evaluator.WithLogger(log),
		evaluator.WithMetrics(m),
	)

	return &app{cfg: cfg, log: log, db: db, metrics: m, engine: engine, eval: eval}, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Error closing database", "error", err)
		}
	}
	a.log.Sync()
}

// withApp builds the application for a command and tears it down afterwards
func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, args, a)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "swiftcamp",
		Short: "SwiftCamp - learn Swift one lesson at a time",
		Long: `swiftcamp serves Swift lessons with coding challenges, tracks XP, streaks and badges,
and evaluates submitted code. Run "swiftcamp bot" to start the Telegram bot, or use the
other commands to work through lessons from the terminal.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newBotCommand())
	rootCmd.AddCommand(newLessonsCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newCompleteCommand())
	rootCmd.AddCommand(newProgressCommand())
	rootCmd.AddCommand(newResetCommand())
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
