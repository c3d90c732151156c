package fake

import (
	"fmt"

	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
)

// ResolveLine reports whether some Line in the trace matches
// (fullname, line) within mod; ok is false, not an error, when no such
// line exists yet (module not loaded, or genuinely no code there).
func (f *Fake) ResolveLine(mod model.ModuleID, fullname string, line int) (runtime.BreakpointLocation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.prog.Trace {
		if l.Module == mod && l.Fullname == fullname && l.LineNum == line {
			return toLocation(l), true, nil
		}
	}
	return runtime.BreakpointLocation{}, false, nil
}

// ResolveFunction returns the first trace Line naming the given function
// in mod as its entry location; this fake does not model overload
// resolution by params.
func (f *Fake) ResolveFunction(mod model.ModuleID, name string, params []string) ([]runtime.BreakpointLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[string]bool)
	var out []runtime.BreakpointLocation
	for _, l := range f.prog.Trace {
		if l.Module != mod || l.Func != name {
			continue
		}
		key := fmt.Sprintf("%s:%d", l.Fullname, l.LineNum)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, toLocation(l))
		break // first line of the function is its entry
	}
	return out, nil
}

// EntryPoint returns prog.EntryIndex's line if it belongs to mod,
// falling back to the first line of the trace in mod otherwise.
func (f *Fake) EntryPoint(mod model.ModuleID) (runtime.BreakpointLocation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.prog.EntryIndex; i >= 0 && i < len(f.prog.Trace) && f.prog.Trace[i].Module == mod {
		return toLocation(f.prog.Trace[i]), true
	}
	for _, l := range f.prog.Trace {
		if l.Module == mod {
			return toLocation(l), true
		}
	}
	return runtime.BreakpointLocation{}, false
}

func toLocation(l Line) runtime.BreakpointLocation {
	return runtime.BreakpointLocation{
		Module:   l.Module,
		Fullname: l.Fullname,
		Line:     l.LineNum,
	}
}

func (f *Fake) SetBreakpoint(loc runtime.BreakpointLocation) (model.NativeHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextHandle++
	h := f.nextHandle
	f.breakpoints[h] = breakpointEntry{handle: h, loc: loc}
	return h, nil
}

func (f *Fake) ClearBreakpoint(h model.NativeHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.breakpoints, h)
	return nil
}
