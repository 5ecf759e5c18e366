// Command loomdbg is an interactive stepper over an assembled Unit —
// the "set a breakpoint, step, inspect the stack" workflow the
// teacher's compiler/vm/debugger.go gave the PHP VM, rebuilt here as a
// standalone REPL (this runtime core has no interactive shell of its
// own) instead of a field bag grafted onto the dispatch loop. Single-
// stepping rides vm.VM.Trace plus a one-instruction budget.Counter per
// Resume call rather than a bespoke step flag, so the debugger adds no
// new execution path for the VM to support.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/wudi/loom/budget"
	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/internal/lasm"
	"github.com/wudi/loom/modules/collections"
	"github.com/wudi/loom/modules/db"
	"github.com/wudi/loom/modules/testmod"
	"github.com/wudi/loom/opcodes"
	"github.com/wudi/loom/runtimectx"
	"github.com/wudi/loom/unit"
	"github.com/wudi/loom/vm"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: loomdbg <file.lasm> <function>")
		os.Exit(1)
	}
	src, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "loomdbg:", err)
		os.Exit(1)
	}
	u, err := lasm.Assemble(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, "loomdbg: assemble:", err)
		os.Exit(1)
	}

	builder := runtimectx.NewContextBuilder()
	for _, m := range []*runtimectx.Module{collections.Module(), db.Module(), testmod.Module()} {
		if err := builder.Add(m); err != nil {
			fmt.Fprintln(os.Stderr, "loomdbg:", err)
			os.Exit(1)
		}
	}

	sess, err := newSession(u, builder.Build(), os.Args[2])
	if err != nil {
		fmt.Fprintln(os.Stderr, "loomdbg:", err)
		os.Exit(1)
	}

	rl, err := readline.New("(loomdbg) ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "loomdbg:", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("loomdbg — type \"help\" for commands")
	sess.printCurrent()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "loomdbg:", err)
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if !sess.dispatch(fields[0], fields[1:]) {
			return
		}
	}
}

// session holds the paused VM plus the debugger-side state (a function
// directory Unit alone doesn't carry) the REPL's commands operate on.
type session struct {
	machine     *vm.VM
	unit        *unit.Unit
	breakpoints map[int]bool
	finished    bool
	started     bool
	lastTrace   struct {
		ip   int
		inst opcodes.Instruction
	}
}

func newSession(u *unit.Unit, ctx *runtimectx.RuntimeContext, fn string) (*session, error) {
	meta, ok := u.Function(hash.Of(fn))
	if !ok {
		return nil, fmt.Errorf("no such function %q", fn)
	}
	machine := vm.New(u, ctx, nil)
	s := &session{machine: machine, unit: u, breakpoints: map[int]bool{}}
	machine.Trace = func(ip int, inst opcodes.Instruction) {
		s.lastTrace.ip = ip
		s.lastTrace.inst = inst
		s.started = true
	}
	machine.Seed(meta, nil)
	return s, nil
}

// dispatch runs one REPL command, returning false when the session
// should exit.
func (s *session) dispatch(cmd string, args []string) bool {
	switch cmd {
	case "help", "h":
		printHelp()
	case "step", "s":
		s.step()
	case "continue", "c":
		s.continueToBreakpoint()
	case "break", "b":
		s.setBreakpoint(args)
	case "stack":
		s.printStack()
	case "disasm":
		if err := lasm.Disassemble(os.Stdout, s.unit); err != nil {
			fmt.Println("error:", err)
		}
	case "quit", "q", "exit":
		return false
	default:
		fmt.Printf("unknown command %q — type \"help\"\n", cmd)
	}
	return true
}

func printHelp() {
	fmt.Print(`commands:
  step, s            execute one instruction
  continue, c        run until a breakpoint or completion
  break N, b N       set a breakpoint at instruction N
  stack              print the operand stack
  disasm             print the full instruction listing
  quit, q            exit
`)
}

func (s *session) step() {
	if s.finished {
		fmt.Println("execution already finished")
		return
	}
	outcome, err := s.machine.Resume(budget.New(1))
	if err != nil {
		fmt.Println("error:", err)
		s.finished = true
		return
	}
	switch outcome {
	case vm.Complete:
		s.finished = true
		fmt.Println("=> complete:", s.machine.Result().Display())
	case vm.Yielded:
		fmt.Println("=> yielded:", s.machine.YieldValue().Display())
		s.printCurrent()
	case vm.Limited:
		s.printCurrent()
	}
}

func (s *session) continueToBreakpoint() {
	for {
		if s.finished {
			return
		}
		s.step()
		if s.finished {
			return
		}
		if s.breakpoints[s.machine.IP()] {
			fmt.Println("breakpoint hit")
			return
		}
	}
}

func (s *session) setBreakpoint(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: break <instruction-index>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("not a number:", args[0])
		return
	}
	s.breakpoints[n] = true
	fmt.Printf("breakpoint set at %d\n", n)
}

func (s *session) printStack() {
	stack := s.machine.Stack()
	fmt.Printf("depth=%d frame_base=%d\n", stack.Len(), stack.FrameBase())
	for i := 0; i < stack.Len(); i++ {
		fmt.Printf("  [%d] %s\n", i, stack.At(i).Debug())
	}
}

func (s *session) printCurrent() {
	if !s.started {
		fmt.Println("(not yet executed — type \"step\" to begin)")
		return
	}
	fmt.Printf("%6d  %-16s a=%-10d b=%d\n",
		s.lastTrace.ip, s.lastTrace.inst.Op.String(), s.lastTrace.inst.A, s.lastTrace.inst.B)
}
