package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/filegate/pkg/app"
	"github.com/yeisme/filegate/pkg/internal/jobs"
	"github.com/yeisme/filegate/pkg/log"
)

var (
	// run 常驻进程：调度器跑定时任务，指标服务对外暴露.
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "run the maintenance daemon (cron jobs + metrics)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)
			defer a.Shutdown()

			if err := a.StartScheduler(); err != nil {
				return err
			}

			log.Logger().Info().Msg("filegate daemon started")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			s := <-sig

			log.Logger().Info().Str("signal", s.String()).Msg("shutting down")

			return nil
		},
	}

	// purge 一次性执行暂存清理.
	purgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "purge staged files past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)
			defer a.Shutdown()

			jobs.RunStagingPurge(a.Context(), a.Manager())

			return nil
		},
	}

	// reconcile 一次性执行配额对账.
	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "reconcile ledger usage against on-disk usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)
			defer a.Shutdown()

			jobs.RunQuotaReconcile(a.Context(), a.Manager())

			return nil
		},
	}

	// archive 一次性执行归档同步.
	archiveCmd = &cobra.Command{
		Use:   "archive",
		Short: "sync committed files to the archive tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)
			defer a.Shutdown()

			if a.Manager().GetS3Client() == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "archive tier disabled")

				return nil
			}

			jobs.RunArchiveSync(a.Context(), a.Manager())

			return nil
		},
	}
)

// registerOpsCommands 注册运维命令.
func registerOpsCommands() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(archiveCmd)
}
