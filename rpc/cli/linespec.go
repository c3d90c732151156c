package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// linespec is a resolved location, the counterpart of a
// debugger.Facade.SetSourceBreakpoints/SetFunctionBreakpoints target.
// Exactly one of (File, Line) or Func is populated.
type linespec struct {
	File string
	Line int
	Func string
}

// parseLinespec accepts the location forms netcoredbg-family CLIs use for
// `break`, adapted from the teacher's ParseLinespec (codegen/debug) to a
// model without an AST: there is no current-scope function declaration
// to resolve against, so a bare identifier is always a function name and
// a bare number is always a line in the current stop's file.
//
// `<line>`              line in the current file (requires a current stop)
// `<file>:<line>`       line in file
// `<function>`          entry of function
// `<file>:<function>`   entry of function, scoped to file
func parseLinespec(spec, currentFile string) (linespec, error) {
	parts := strings.SplitN(spec, ":", 2)

	if len(parts) == 1 {
		if n, err := strconv.Atoi(parts[0]); err == nil {
			if currentFile == "" {
				return linespec{}, fmt.Errorf("cannot break on a bare line number: no current file")
			}
			return linespec{File: currentFile, Line: n}, nil
		}
		return linespec{Func: parts[0]}, nil
	}

	file, rest := parts[0], parts[1]
	if n, err := strconv.Atoi(rest); err == nil {
		return linespec{File: file, Line: n}, nil
	}
	return linespec{File: file, Func: rest}, nil
}
