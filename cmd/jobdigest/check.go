package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobdigest/internal/digest"
	"github.com/amishk599/jobdigest/internal/export"
)

var exportPath string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run once, print the digest, exit",
	Long:  "One-shot run that prints the digest to the terminal instead of delivering it. Optionally exports every scored job to a spreadsheet.",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&exportPath, "export", "", "also write the ranked jobs to this .xlsx file (a directory uses the default file name)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	logger.Info("check mode: the digest will not be delivered")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := buildRunner(ctx, cfg, nil, newHTTPClient(), logger)
	if err != nil {
		logger.Error("failed to set up run", "error", err)
		return err
	}

	rep, err := lockedRun(ctx, cfg.LockFile, runner.Run)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), digest.Terminal(*rep.Digest))

	if exportPath != "" {
		path, err := export.SaveWorkbook(*rep.Digest, exportPath)
		if err != nil {
			logger.Error("export failed", "error", err)
			return err
		}
		logger.Info("spreadsheet written", "path", path)
	}

	logger.Info("check complete")
	return nil
}
