package cmd

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/advstorage/pkg/configs"
	"github.com/yeisme/advstorage/pkg/internal/indexer"
	"github.com/yeisme/advstorage/pkg/internal/ownership"
	"github.com/yeisme/advstorage/pkg/internal/storage"
	"github.com/yeisme/advstorage/pkg/internal/storage/kv"
	"github.com/yeisme/advstorage/pkg/layout"
)

var (
	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "inspect the persistent state of the indexer, the path owners and the deletion queue",
	}

	// 列出采纳文件的归属记录.
	inspectOwnersCmd = &cobra.Command{
		Use:   "owners",
		Short: "list adopted paths and the resource each one belongs to",
		RunE: withManager(func(ctx context.Context, cmd *cobra.Command, mgr *storage.Manager, _ []string) error {
			owners := ownership.NewStore(mgr.KV)

			paths, err := owners.Paths(ctx)
			if err != nil {
				return err
			}

			sort.Strings(paths)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tRESOURCE\tDELETE URL")

			for _, p := range paths {
				o, err := owners.Get(ctx, p)
				if err != nil {
					fmt.Fprintf(w, "%s\t<%v>\t\n", p, err)
					continue
				}

				url, _ := o.URLForDeletion()
				fmt.Fprintf(w, "%s\t%s %s\t%s\n", p, o.ResourceType, o.ResourceID, url)
			}

			return w.Flush()
		}),
	}

	// 列出索引器记录.
	inspectIndexedCmd = &cobra.Command{
		Use:   "indexed",
		Short: "list the files known to the folder indexer",
		RunE: withManager(func(ctx context.Context, cmd *cobra.Command, mgr *storage.Manager, _ []string) error {
			ns := kv.NewNamespace(mgr.KV, indexer.Namespace)

			paths, err := ns.Keys(ctx)
			if err != nil {
				return err
			}

			sort.Strings(paths)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tDICOM\tSIZE\tMODIFIED\tDELETED BY HOST")

			for _, p := range paths {
				data, err := ns.Get(ctx, p)
				if err != nil {
					continue
				}

				rec, err := indexer.ParseIndexedPath(data)
				if err != nil {
					fmt.Fprintf(w, "%s\t<%v>\t\t\t\n", p, err)
					continue
				}

				fmt.Fprintf(w, "%s\t%t\t%d\t%s\t%t\n", p, rec.IsDicom, rec.Size,
					time.Unix(rec.Time, 0).Format(time.RFC3339), rec.DeletedByHost)
			}

			return w.Flush()
		}),
	}

	// 待删除文件数.
	inspectPendingCmd = &cobra.Command{
		Use:   "pending",
		Short: "print the number of files waiting in the delayed deletion queue",
		RunE: withManager(func(ctx context.Context, cmd *cobra.Command, mgr *storage.Manager, _ []string) error {
			n, err := mgr.Queue.Size(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) pending deletion in %s\n", n, storage.DeletionQueueName)

			return nil
		}),
	}

	// 解码附件的位置记录.
	inspectRecordCmd = &cobra.Command{
		Use:   "record <attachment-uuid> [custom-data]",
		Short: "decode a location record and resolve the absolute path it points to",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.InitConfig(configPath); err != nil {
				return err
			}

			cfg := configs.GetConfig()

			reg, err := layout.NewRegistryFromConfig(cfg.AdvancedStorage, cfg.Host)
			if err != nil {
				return err
			}

			var data []byte
			if len(args) == 2 {
				data = []byte(args[1])
			}

			rec, err := layout.ParseRecord(args[0], data)
			if err != nil {
				return err
			}

			path, err := rec.AbsolutePath(reg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "owner:   %t\n", rec.IsOwner())
			fmt.Fprintf(out, "adopted: %t\n", rec.IsAdopted())
			fmt.Fprintf(out, "storage: %s\n", rec.StorageID())
			fmt.Fprintf(out, "path:    %s\n", path)

			return nil
		},
	}
)

// withManager 读取配置并打开存储资源，命令结束后关闭.
func withManager(fn func(ctx context.Context, cmd *cobra.Command, mgr *storage.Manager, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := configs.InitConfig(configPath); err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		mgr, err := storage.Open(ctx, configs.GetConfig())
		if err != nil {
			return err
		}
		defer mgr.Close()

		return fn(ctx, cmd, mgr, args)
	}
}

// registerInspectCommands 注册 inspect 命令.
func registerInspectCommands() {
	inspectCmd.AddCommand(inspectOwnersCmd, inspectIndexedCmd, inspectPendingCmd, inspectRecordCmd)
	rootCmd.AddCommand(inspectCmd)
}
