// Command rootscan is a thin host application over the rootscan
// library: it attaches to a running process, ingests its DWARF debug
// information, walks its call stack, and prints the live pointer roots
// it finds. The CLI is explicitly not part of the library (spec.md §1,
// §6 "CLI: out of scope; the core is a library") — it is one of the
// library's consumers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rootscan: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "rootscan",
		Short:         "Precise stack root scanner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")

	root.AddCommand(newScanCmd(&verbose))
	root.AddCommand(newInspectCmd(&verbose))
	return root
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
