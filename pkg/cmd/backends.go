package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yeisme/advstorage/pkg/internal/storage/db"
	"github.com/yeisme/advstorage/pkg/internal/storage/fifo"
	"github.com/yeisme/advstorage/pkg/internal/storage/kv"
	"github.com/yeisme/advstorage/pkg/internal/storage/mq"
)

// backendKinds 每类后端及其已注册的实现，注册发生在各包的 init 中.
var backendKinds = []struct {
	name  string
	usage string
	list  func() []string
}{
	{"db", "catalog database (db.type)", func() []string { return names(db.GetRegisteredDBTypes()) }},
	{"kv", "indexer and path-owner records (kv.type)", func() []string { return names(kv.GetRegisteredKVTypes()) }},
	{"queue", "delayed deletion queue (advanced_storage.delayed_deletion.queue)", func() []string { return names(fifo.GetRegisteredTypes()) }},
	{"mq", "event publisher (mq.type)", func() []string { return names(mq.GetRegisteredMQTypes()) }},
}

var backendsCmd = &cobra.Command{
	Use:     "backends [kind]",
	Short:   "list the backends compiled into this binary",
	Aliases: []string{"backend", "be"},
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			for _, k := range backendKinds {
				printBackends(out, k.name, k.usage, k.list())
			}

			return nil
		}

		for _, k := range backendKinds {
			if k.name == args[0] {
				printBackends(out, k.name, k.usage, k.list())
				return nil
			}
		}

		return fmt.Errorf("unknown backend kind %q (db, kv, queue, mq)", args[0])
	},
}

func printBackends(w io.Writer, kind, usage string, types []string) {
	fmt.Fprintf(w, "%s: %s\n", kind, usage)

	for _, t := range types {
		fmt.Fprintln(w, "   - "+t)
	}
}

func names[T ~string](types []T) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}

	return out
}

// registerBackendCommands 注册 backends 命令.
func registerBackendCommands() {
	rootCmd.AddCommand(backendsCmd)
}
