package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobdigest/internal/pipeline"
	"github.com/amishk599/jobdigest/internal/runlock"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run once, deliver the digest, exit",
	Long:  "One stateless run: fetch, score, tailor and deliver. Meant for cron; exits non-zero on a fatal failure.",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := newHTTPClient()
	n, err := buildNotifier(ctx, cfg, httpClient, logger)
	if err != nil {
		logger.Error("failed to set up notifier", "error", err)
		return err
	}
	if !cfg.Notifiers() {
		logger.Warn("no notifier enabled, the digest will not be delivered")
	}

	runner, err := buildRunner(ctx, cfg, n, httpClient, logger)
	if err != nil {
		logger.Error("failed to set up run", "error", err)
		return err
	}

	_, err = lockedRun(ctx, cfg.LockFile, runner.Run)
	return err
}

// lockedRun executes run while holding the run lock at lockFile. A held
// lock returns runlock.ErrHeld without calling run.
func lockedRun(ctx context.Context, lockFile string, run func(context.Context) (*pipeline.Report, error)) (*pipeline.Report, error) {
	var rep *pipeline.Report
	err := runlock.New(lockFile).Do(ctx, func(ctx context.Context) error {
		var err error
		rep, err = run(ctx)
		return err
	})
	return rep, err
}
