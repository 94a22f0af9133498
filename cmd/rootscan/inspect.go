package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/riftrunner/rootscan"
	"github.com/riftrunner/rootscan/dwarfsrc"
)

// replFrame is a Frame synthesized by hand at the inspect prompt,
// rather than recovered from a live process: it lets a user probe how
// a given PC/SP/register combination resolves without attaching to
// anything.
type replFrame struct {
	pc, sp rootscan.Word
	regs   map[rootscan.RegNum]rootscan.Word
}

func (f *replFrame) PC() rootscan.Word { return f.pc }
func (f *replFrame) SP() rootscan.Word { return f.sp }
func (f *replFrame) Register(r rootscan.RegNum) (rootscan.Word, bool) {
	v, ok := f.regs[r]
	return v, ok
}

func newInspectCmd(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <binary>",
		Short: "Load a binary's debug info and explore it interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(*verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			source, err := dwarfsrc.Open(args[0])
			if err != nil {
				return err
			}
			ctx, err := rootscan.Ingest(source, logger)
			if err != nil {
				return fmt.Errorf("ingesting debug info from %s: %w", args[0], err)
			}

			return runInspectREPL(ctx)
		},
	}
	return cmd
}

func runInspectREPL(ctx *rootscan.Context) error {
	rl, err := readline.New("rootscan> ")
	if err != nil {
		return fmt.Errorf("starting inspect shell: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stdout(), "type 'help' for a list of commands")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help":
			printInspectHelp(rl.Stdout())
		case "quit", "exit":
			return nil
		case "funcs":
			listFunctions(rl.Stdout(), ctx)
		case "func":
			if len(fields) != 2 {
				fmt.Fprintln(rl.Stdout(), "usage: func <pc-hex>")
				continue
			}
			describeFunction(rl.Stdout(), ctx, fields[1])
		case "roots":
			if len(fields) != 3 {
				fmt.Fprintln(rl.Stdout(), "usage: roots <pc-hex> <sp-hex>")
				continue
			}
			resolveOneFrame(rl.Stdout(), ctx, fields[1], fields[2])
		default:
			fmt.Fprintf(rl.Stdout(), "unrecognized command %q; type 'help'\n", fields[0])
		}
	}
}

func printInspectHelp(w io.Writer) {
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  funcs              list every ingested function and its PC range")
	fmt.Fprintln(w, "  func <pc-hex>      describe the function covering pc, and its scope tree")
	fmt.Fprintln(w, "  roots <pc> <sp>    resolve roots for one synthetic frame at pc with frame base sp")
	fmt.Fprintln(w, "  quit               leave the shell")
}

func listFunctions(w io.Writer, ctx *rootscan.Context) {
	t := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(t, "lo\thi\tname\n")
	for i := 0; i < ctx.NumFunctions(); i++ {
		f := ctx.FunctionAt(i)
		fmt.Fprintf(t, "%#x\t%#x\t%s\n", f.LoPC, f.HiPC, f.Name)
	}
	t.Flush()
}

func describeFunction(w io.Writer, ctx *rootscan.Context, pcArg string) {
	pc, err := parseHexWord(pcArg)
	if err != nil {
		fmt.Fprintln(w, err)
		return
	}
	f, ok := ctx.FindFunction(uint64(pc))
	if !ok {
		fmt.Fprintf(w, "no function covers pc %#x\n", pc)
		return
	}
	fmt.Fprintf(w, "%s [%#x, %#x)\n", f.Name, f.LoPC, f.HiPC)
	describeScope(w, &f.TopScope, 1)
}

func describeScope(w io.Writer, s *rootscan.Scope, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, v := range s.Variables {
		fmt.Fprintf(w, "%s%s\n", indent, v.Name)
	}
	for _, c := range s.Children {
		fmt.Fprintf(w, "%sblock [%#x, %#x)\n", indent, c.LoPC, c.HiPC)
		describeScope(w, c, depth+1)
	}
}

func resolveOneFrame(w io.Writer, ctx *rootscan.Context, pcArg, spArg string) {
	pc, err := parseHexWord(pcArg)
	if err != nil {
		fmt.Fprintln(w, err)
		return
	}
	sp, err := parseHexWord(spArg)
	if err != nil {
		fmt.Fprintln(w, err)
		return
	}
	stack := rootscan.CallStack{&replFrame{pc: pc, sp: sp, regs: map[rootscan.RegNum]rootscan.Word{}}}
	roots := rootscan.Resolve(stack, ctx, nil)
	if len(roots) == 0 {
		fmt.Fprintln(w, "no roots")
		return
	}
	t := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(t, "address\ttype_id\n")
	for _, r := range roots {
		fmt.Fprintf(t, "%#x\t%d\n", uint64(r.Address), r.Type)
	}
	t.Flush()
}

func parseHexWord(s string) (rootscan.Word, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q: %w", s, err)
	}
	return rootscan.Word(v), nil
}
