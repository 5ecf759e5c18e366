// Command loom-asm assembles the small textual instruction format
// internal/lasm defines into a Unit and either runs or disassembles
// it — the stand-in for "a populated Unit" this runtime core, having
// no lexer/parser/compiler front end of its own, otherwise has no way
// to produce outside of Go code. Command surface grounded on
// cmd/hey/main.go's cli.Command usage.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/internal/lasm"
	"github.com/wudi/loom/modules/collections"
	"github.com/wudi/loom/modules/db"
	"github.com/wudi/loom/modules/testmod"
	"github.com/wudi/loom/runtimectx"
	"github.com/wudi/loom/values"
	"github.com/wudi/loom/version"
	"github.com/wudi/loom/vm"
)

func main() {
	app := &cli.Command{
		Name:  "loom-asm",
		Usage: "assemble and run loom bytecode listings",
		Commands: []*cli.Command{
			runCommand,
			disassembleCommand,
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "version",
				Usage: "print the loom version and exit",
				Action: func(ctx context.Context, cmd *cli.Command, v bool) error {
					if v {
						fmt.Println(version.Version())
						os.Exit(0)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "loom-asm: %v\n", err)
		os.Exit(1)
	}
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "assemble a listing and call one of its functions",
	ArgsUsage: "<file.lasm> <function>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "trace", Usage: "print every instruction as it executes"},
		&cli.Uint64Flag{Name: "budget", Usage: "instruction budget for a non-resumable call (0 = unlimited)"},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		args := cmd.Args()
		if args.Len() < 2 {
			return fmt.Errorf("usage: loom-asm run <file.lasm> <function>")
		}
		src, err := os.ReadFile(args.Get(0))
		if err != nil {
			return err
		}
		u, err := lasm.Assemble(string(src))
		if err != nil {
			return fmt.Errorf("assemble: %w", err)
		}

		builder := runtimectx.NewContextBuilder()
		for _, m := range []*runtimectx.Module{collections.Module(), db.Module(), testmod.Module()} {
			if err := builder.Add(m); err != nil {
				return err
			}
		}

		machine := vm.New(u, builder.Build(), nil)
		if cmd.Bool("trace") {
			machine.Trace = lasm.Tracer(os.Stdout)
		}

		entry := hash.Of(args.Get(1))
		var result values.Value
		if budgetN := cmd.Uint64("budget"); budgetN > 0 {
			result, err = machine.CallBounded(entry, nil, budgetN)
		} else {
			result, err = machine.Call(entry, nil)
		}
		if err != nil {
			return err
		}
		fmt.Println(result.Display())
		return nil
	},
}

var disassembleCommand = &cli.Command{
	Name:      "disassemble",
	Aliases:   []string{"disasm"},
	Usage:     "print a listing's assembled instruction stream",
	ArgsUsage: "<file.lasm>",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() < 1 {
			return fmt.Errorf("usage: loom-asm disassemble <file.lasm>")
		}
		src, err := os.ReadFile(cmd.Args().Get(0))
		if err != nil {
			return err
		}
		u, err := lasm.Assemble(string(src))
		if err != nil {
			return fmt.Errorf("assemble: %w", err)
		}
		return lasm.Disassemble(os.Stdout, u)
	},
}
