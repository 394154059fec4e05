package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobdigest/internal/scheduler"
)

var runNow bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler daemon",
	Long:  "Start the scheduler daemon; runs on the configured cron schedule and blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolVar(&runNow, "now", false, "run once immediately before waiting for the schedule")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	logger.Info("config loaded",
		"schedule", cfg.Schedule,
		"timezone", cfg.Location.String(),
		"queries", len(cfg.Queries),
		"top_n", cfg.TopN,
		"llm", cfg.LLM.Provider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := newHTTPClient()
	n, err := buildNotifier(ctx, cfg, httpClient, logger)
	if err != nil {
		logger.Error("failed to set up notifier", "error", err)
		return err
	}
	if !cfg.Notifiers() {
		logger.Warn("no notifier enabled, digests will not be delivered")
	}

	runner, err := buildRunner(ctx, cfg, n, httpClient, logger)
	if err != nil {
		logger.Error("failed to set up run", "error", err)
		return err
	}

	run := func(ctx context.Context) error {
		_, err := lockedRun(ctx, cfg.LockFile, runner.Run)
		return err
	}

	sched, err := scheduler.NewScheduler(cfg.Schedule, cfg.Location, run, logger)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		return err
	}

	if runNow {
		if err := run(ctx); err != nil {
			logger.Error("initial run failed", "error", err)
		}
	}

	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		return err
	}

	logger.Info("goodbye")
	return nil
}
