package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/coredbg/coredbg/model"
)

// renderBreakpointLine formats bp the way this dialect reports
// breakpoints, adapted from breakpoints.RenderMI's "<id> at <location>"
// shape but written out in full for a human reading a terminal rather
// than a machine parsing an MI line.
func renderBreakpointLine(bp model.Breakpoint) string {
	var loc string
	switch {
	case bp.Source != nil:
		loc = fmt.Sprintf("%s:%d", bp.Source.Path, bp.Line)
	case bp.FuncName != "":
		loc = fmt.Sprintf("%s(%s)", bp.FuncName, strings.Join(bp.Params, ", "))
	default:
		loc = "<unknown>"
	}
	status := ""
	if !bp.Verified {
		status = " (pending)"
	}
	return fmt.Sprintf("#%d %s%s", bp.ID, loc, status)
}

func renderFrame(out io.Writer, index int, f model.StackFrame) {
	loc := "<no source>"
	if !f.Source.IsZero() {
		loc = fmt.Sprintf("%s:%d", f.Source.Path, f.Line)
	}
	fmt.Fprintf(out, "#%d %s at %s\n", index, f.Name, loc)
}

// listSource prints a small window of source around line, reading the
// file directly since this dialect has no in-memory source cache to
// format from.
func listSource(out io.Writer, path string, line int) error {
	if path == "" {
		return fmt.Errorf("no source available for current frame")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	const context = 4
	low, high := line-context, line+context

	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		n++
		if n < low || n > high {
			continue
		}
		marker := "  "
		if n == line {
			marker = "=>"
		}
		fmt.Fprintf(out, "%s %4d: %s\n", marker, n, scanner.Text())
	}
	return scanner.Err()
}

func printHelp(out io.Writer) {
	sections := []struct {
		title string
		lines []string
	}{
		{"Running the program", []string{
			"continue, c             run until breakpoint or program termination",
			"next, n                 step over to next source line",
			"step, s                 step into the next call",
			"stepout                 step out of current function",
			"pause                   suspend a running debuggee",
		}},
		{"Manipulating breakpoints", []string{
			"break, b <linespec>     sets a breakpoint",
			"breakpoints, bp         prints active breakpoints",
			"clear <id>              deletes breakpoint <id>",
			"clearall                deletes all breakpoints",
		}},
		{"Viewing program state", []string{
			"threads                 lists threads",
			"backtrace, bt           prints the call stack of the current thread",
			"frame <index>           selects a frame for args/print/set/list",
			"args                    prints current frame's arguments",
			"print, p <expr>         evaluates an expression in the current frame",
			"set <name> <value>      assigns a local in the current frame",
			"list, ls                prints source around the current frame",
		}},
		{"Other commands", []string{
			"help, ?                 prints this help message",
			"exit, quit, q           exits the debugger",
		}},
	}
	for _, sec := range sections {
		fmt.Fprintf(out, "# %s\n", sec.title)
		for _, line := range sec.lines {
			fmt.Fprintf(out, "    %s\n", line)
		}
		fmt.Fprintln(out)
	}
}
