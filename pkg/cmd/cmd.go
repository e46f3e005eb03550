// Package cmd 定义 advstorage 的命令行：serve 启动服务，其余子命令用于检查配置、命名模板与存储后端.
package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// 构建时通过 -ldflags "-X github.com/yeisme/advstorage/pkg/cmd.version=..." 注入.
var (
	version = "dev"
	commit  = "none"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "advstorage",
		Short: "Advanced storage layout service for DICOM instances",
		Long: "advstorage stores DICOM attachments under configurable path templates, " +
			"spreads them over multiple storages, indexes external folders and moves data between storages.",
		Version:      version,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("advstorage %s (commit %s, %s %s/%s)\n",
		version, commit, runtime.Version(), runtime.GOOS, runtime.GOARCH))

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print viper debug output")

	registerServeCommands()
	registerSchemeCommands()
	registerConfigsCommands()
	registerInspectCommands()
	registerBackendCommands()
}

// Execute 运行根命令.
func Execute() error {
	return rootCmd.Execute()
}
