package breakpoints

import (
	"fmt"
	"strings"

	"github.com/coredbg/coredbg/model"
)

// renderSourceLocked renders bp for wire responses. mu must be held.
func (s *Store) renderSourceLocked(bp *model.SourceBreakpoint) model.Breakpoint {
	src := model.NewSource(bp.Fullname)
	out := model.Breakpoint{
		ID:        bp.ID,
		Verified:  bp.Resolved(),
		Source:    &src,
		Line:      bp.Linenum,
		HitCount:  bp.HitCount,
		Condition: bp.Condition,
	}
	if !bp.Resolved() {
		out.Message = "No executable code found at the given location"
	}
	return out
}

// renderFunction renders bp for wire responses.
func renderFunction(bp *model.FunctionBreakpoint) model.Breakpoint {
	out := model.Breakpoint{
		ID:        bp.ID,
		Verified:  bp.Resolved(),
		HitCount:  bp.HitCount,
		Condition: bp.Condition,
		Module:    bp.Module,
		FuncName:  bp.Name,
		Params:    bp.Params,
	}
	if !bp.Resolved() {
		out.Message = "No method matching the given signature was found"
	}
	return out
}

// RenderMI renders bp the way the MI dialect reports breakpoints:
// "Breakpoint <id> at <path>:<line>" for a line breakpoint, or
// "Breakpoint <id> at <func>()" for a function breakpoint, with a
// "--pending" suffix when unresolved.
func RenderMI(bp model.Breakpoint) string {
	var loc string
	switch {
	case bp.Source != nil:
		loc = fmt.Sprintf("%s:%d", bp.Source.Path, bp.Line)
	case bp.FuncName != "":
		loc = fmt.Sprintf("%s(%s)", bp.FuncName, strings.Join(bp.Params, ", "))
	default:
		loc = "<unknown>"
	}

	s := fmt.Sprintf("Breakpoint %d at %s", bp.ID, loc)
	if !bp.Verified {
		s += " --pending"
	}
	return s
}
