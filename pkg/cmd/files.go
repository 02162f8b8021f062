package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/filegate/pkg/app"
	"github.com/yeisme/filegate/pkg/internal/service"
)

var (
	filesUser     string
	filesCategory string

	filesCmd = &cobra.Command{
		Use:     "files",
		Short:   "Committed file related commands",
		Aliases: []string{"file", "f"},
	}

	filesListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list committed files of a user",
		Aliases: []string{"ls", "l"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)
			defer a.Shutdown()

			infos, err := service.NewFileService(a.Context()).
				List(a.Context(), filesUser, filesCategory)
			if err != nil {
				return err
			}

			b, err := sonic.ConfigDefault.MarshalIndent(infos, "", "  ")
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}

	filesGetCmd = &cobra.Command{
		Use:   "get <id>",
		Short: "show a committed file record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)
			defer a.Shutdown()

			info, err := service.NewFileService(a.Context()).
				Get(a.Context(), filesUser, args[0])
			if err != nil {
				return err
			}

			b, err := sonic.ConfigDefault.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			fmt.Fprintln(cmd.OutOrStdout(), "serve: "+info.PreferredURL())

			return nil
		},
	}

	filesRmCmd = &cobra.Command{
		Use:     "rm <id>",
		Short:   "delete a committed file (record first, bytes best-effort)",
		Aliases: []string{"remove", "delete"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)
			defer a.Shutdown()

			if err := service.NewFileService(a.Context()).
				Delete(a.Context(), filesUser, args[0]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "deleted "+args[0])

			return nil
		},
	}

	filesQuotaCmd = &cobra.Command{
		Use:   "quota",
		Short: "show quota usage of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(configPath)
			defer a.Shutdown()

			status, err := service.NewFileService(a.Context()).
				Quota(a.Context(), filesUser)
			if err != nil {
				return err
			}

			b, err := sonic.ConfigDefault.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}
)

// registerFilesCommands 注册已提交文件相关命令.
func registerFilesCommands() {
	filesCmd.PersistentFlags().StringVarP(&filesUser, "user", "u", "", "owner of the files")
	_ = filesCmd.MarkPersistentFlagRequired("user")

	filesListCmd.Flags().StringVar(&filesCategory, "category", "", "filter by category")

	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesGetCmd)
	filesCmd.AddCommand(filesRmCmd)
	filesCmd.AddCommand(filesQuotaCmd)

	rootCmd.AddCommand(filesCmd)
}
