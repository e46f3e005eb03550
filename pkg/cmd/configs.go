package cmd

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/advstorage/pkg/configs"
	"github.com/yeisme/advstorage/pkg/layout"
)

// secretKeys 输出配置时遮盖的字段名片段.
var secretKeys = []string{"password", "jwt", "nkey", "token"}

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "inspect and validate the configuration",
	}

	pathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the config file in use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			used := configs.GetViper().ConfigFileUsed()
			if used == "" {
				used = "(none, defaults and environment only)"
			}

			fmt.Fprintln(cmd.OutOrStdout(), used)

			return nil
		},
	}

	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "print the effective config as JSON with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if debug {
				configs.GetViper().Debug()
			}

			b, err := sonic.Marshal(configs.GetConfig())
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			var tree map[string]any
			if err := sonic.Unmarshal(b, &tree); err != nil {
				return fmt.Errorf("unmarshal config: %w", err)
			}

			redact(tree)

			out, err := sonic.ConfigStd.MarshalIndent(tree, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			return nil
		},
	}

	// validate 在 rule 校验之外，按服务启动时的方式构建存储布局：
	// 命名模板、存储池根目录与当前写入存储都要通过.
	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "validate the config and the storage layout it describes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := configs.GetConfig()
			as := c.AdvancedStorage
			out := cmd.OutOrStdout()

			if as.Enable {
				reg, err := layout.NewRegistryFromConfig(as, c.Host)
				if err != nil {
					return fmt.Errorf("storage layout: %w", err)
				}

				fmt.Fprintf(out, "naming scheme:  %s\n", reg.NamingScheme())
				fmt.Fprintf(out, "write storage:  %s\n", orDash(reg.CurrentWriteStorageID()))

				for _, id := range reg.StorageIDs() {
					root, _ := reg.StorageRootPath(id)
					fmt.Fprintf(out, "storage %-8s %s\n", id, root)
				}
			} else {
				fmt.Fprintln(out, "advanced storage disabled, using the default layout")
			}

			fmt.Fprintf(out, "core storage:   %s\n", c.Host.StorageDirectory)
			fmt.Fprintln(out, "config ok")

			return nil
		},
	}
)

// redact 递归遮盖敏感字段，空值保持为空便于看出未配置.
func redact(node map[string]any) {
	for k, v := range node {
		switch val := v.(type) {
		case map[string]any:
			redact(val)
		case []any:
			for _, item := range val {
				if m, ok := item.(map[string]any); ok {
					redact(m)
				}
			}
		case string:
			if val != "" && isSecretKey(k) {
				node[k] = "******"
			}
		}
	}
}

func isSecretKey(k string) bool {
	k = strings.ToLower(k)
	for _, s := range secretKeys {
		if strings.Contains(k, s) {
			return true
		}
	}

	return false
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func registerConfigsCommands() {
	configCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		return configs.InitConfig(configPath)
	}

	configCmd.AddCommand(pathCmd, debugCmd, validateCmd)
	rootCmd.AddCommand(configCmd)
}
