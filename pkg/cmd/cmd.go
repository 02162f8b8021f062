// Package cmd contains the command line applications for the project.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/filegate/pkg/configs"
)

var (
	// configPath 配置文件路径或所在目录.
	configPath string
	// debug 打开 viper 的调试输出.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "filegate",
		Short: "A content-addressed file ingestion gateway",
		Long: `filegate 是一条文件摄取管线：校验、恶意内容扫描、配额、
原子写入与图片变体派生，任何阶段失败都不会在存储树中留下残留字节。`,
		SilenceUsage: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("filegate " + configs.AppVersion)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")

	rootCmd.AddCommand(versionCmd)

	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
	registerIngestCommands()
	registerFilesCommands()
	registerOpsCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
