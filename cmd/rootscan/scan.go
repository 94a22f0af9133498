package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/riftrunner/rootscan"
	"github.com/riftrunner/rootscan/dwarfsrc"
	"github.com/riftrunner/rootscan/ptraceunwind"
)

func newScanCmd(verbose *bool) *cobra.Command {
	var exePath string

	cmd := &cobra.Command{
		Use:   "scan <pid>",
		Short: "Attach to a running process and print its live pointer roots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid pid %q: %w", args[0], err)
			}

			logger, err := newLogger(*verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			exe := exePath
			if exe == "" {
				exe = fmt.Sprintf("/proc/%d/exe", pid)
			}

			source, err := dwarfsrc.Open(exe)
			if err != nil {
				return err
			}
			ctx, err := rootscan.Ingest(source, logger)
			if err != nil {
				return fmt.Errorf("ingesting debug info from %s: %w", exe, err)
			}

			proc, err := ptraceunwind.Attach(pid)
			if err != nil {
				return err
			}
			defer proc.Detach()

			stack, err := proc.CallStack()
			if err != nil {
				return err
			}

			roots := rootscan.Resolve(stack, ctx, logger)
			printRoots(ctx, roots)
			return nil
		},
	}
	cmd.Flags().StringVar(&exePath, "exe", "", "path to the traced process's binary (default /proc/<pid>/exe)")
	return cmd
}

func printRoots(ctx *rootscan.Context, roots []rootscan.Root) {
	t := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(t, "address\ttype_id\tkind\n")
	for _, r := range roots {
		if r.Type == rootscan.BaseTypeId {
			fmt.Fprintf(t, "%#x\t-\tbase\n", uint64(r.Address))
			continue
		}
		typ := ctx.Type(r.Type)
		fmt.Fprintf(t, "%#x\t%d\t%s\n", uint64(r.Address), r.Type, typ.Kind)
	}
	t.Flush()
}
