package fake

import (
	"fmt"

	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
)

// Continue resumes the thread, running the goroutine-driven scanner
// until it reaches a line with an active breakpoint, a line that raises
// an exception, or the end of the trace.
func (f *Fake) Continue() error {
	go f.runUntil(func(i int, line Line) (stop bool) {
		if line.Exception != "" {
			return true
		}
		return f.breakpointAt(line) != 0
	})
	return nil
}

// SetStep installs a step operation and begins running immediately,
// mirroring the real ICorDebug contract where creating+activating a
// stepper resumes the process; the step's own landing condition (next
// line for StepInto, same-or-shallower depth for StepOver, shallower
// depth for StepOutOf) decides where it stops.
func (f *Fake) SetStep(thread model.ThreadId, kind runtime.StepKind, tag interface{}) error {
	f.mu.Lock()
	startDepth := 0
	if f.pos >= 0 && f.pos < len(f.prog.Trace) {
		startDepth = len(f.prog.Trace[f.pos].Frames)
	}
	f.stepThread[thread] = stepState{kind: kind, tag: tag, startAt: startDepth}
	f.mu.Unlock()

	go f.runUntil(func(i int, line Line) bool {
		if line.Exception != "" {
			return true
		}
		if handle := f.breakpointAt(line); handle != 0 {
			return true
		}
		return f.stepLanded(thread, kind, startDepth, line)
	})
	return nil
}

func (f *Fake) stepLanded(thread model.ThreadId, kind runtime.StepKind, startDepth int, line Line) bool {
	depth := len(line.Frames)
	switch kind {
	case runtime.StepInto:
		return true
	case runtime.StepOver:
		return depth <= startDepth
	case runtime.StepOutOf:
		return depth < startDepth
	default:
		return true
	}
}

func (f *Fake) ClearStep(thread model.ThreadId) error {
	f.mu.Lock()
	delete(f.stepThread, thread)
	f.mu.Unlock()
	return nil
}

// runUntil advances pos one line at a time, emitting the matching
// runtime.Event as soon as land(pos, line) reports true, or
// EventProcessExited when the trace is exhausted first.
func (f *Fake) runUntil(land func(pos int, line Line) bool) {
	for {
		f.mu.Lock()
		f.pos++
		if f.pos >= len(f.prog.Trace) {
			f.mu.Unlock()
			f.emit(runtime.Event{Kind: runtime.EventProcessExited, ExitCode: 0})
			return
		}
		line := f.prog.Trace[f.pos]
		f.mu.Unlock()

		if !land(f.pos, line) {
			continue
		}

		f.report(f.pos, line)
		return
	}
}

func (f *Fake) report(pos int, line Line) {
	if line.Exception != "" {
		kind := runtime.EventExceptionCatchHandlerFound
		if line.Unhandled {
			kind = runtime.EventExceptionUnhandled
		}
		f.emit(runtime.Event{Kind: kind, Thread: MainThread, ExceptionName: line.Exception})
		return
	}

	if handle := f.breakpointAt(line); handle != 0 {
		ev := runtime.Event{Kind: runtime.EventBreakpointHit, Thread: MainThread, Handle: handle}
		if id, ok := f.asyncIDForYieldIndex(pos); ok {
			ev.AsyncID = id
		}
		f.emit(ev)
		return
	}

	f.mu.Lock()
	step, ok := f.stepThread[MainThread]
	if ok {
		delete(f.stepThread, MainThread)
	}
	f.mu.Unlock()
	if ok {
		f.emit(runtime.Event{Kind: runtime.EventStepComplete, Thread: MainThread, StepTag: step.tag})
	}
}

// asyncIDForYieldIndex reports the AsyncID of whichever await point in
// the trace names pos as its internal yield landmark, if any.
func (f *Fake) asyncIDForYieldIndex(pos int) (interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.prog.Trace {
		if l.Async != nil && l.Async.YieldIndex == pos {
			return l.Async.AsyncID, true
		}
	}
	return nil, false
}

// AsyncYieldBreakpoint reports whether the current position is an
// `await` that must be stepped over via the two-phase landmark
// protocol, returning its internal yield-landmark location.
func (f *Fake) AsyncYieldBreakpoint(thread model.ThreadId) (runtime.BreakpointLocation, interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos < 0 || f.pos >= len(f.prog.Trace) {
		return runtime.BreakpointLocation{}, nil, false
	}
	async := f.prog.Trace[f.pos].Async
	if async == nil || async.YieldIndex < 0 || async.YieldIndex >= len(f.prog.Trace) {
		return runtime.BreakpointLocation{}, nil, false
	}
	return toLocation(f.prog.Trace[async.YieldIndex]), async.AsyncID, true
}

// AsyncResumeLocations finds the await point tagged asyncID and returns
// where its continuation resumes. This fake never needs a
// NotifyDebuggerOfWaitCompletion landmark, so notifyLoc is always nil.
func (f *Fake) AsyncResumeLocations(thread model.ThreadId, asyncID interface{}) (runtime.BreakpointLocation, *runtime.BreakpointLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.prog.Trace {
		if l.Async == nil || l.Async.AsyncID != asyncID {
			continue
		}
		if l.Async.ResumeIndex < 0 || l.Async.ResumeIndex >= len(f.prog.Trace) {
			return runtime.BreakpointLocation{}, nil, fmt.Errorf("async step %v: resume index out of range", asyncID)
		}
		return toLocation(f.prog.Trace[l.Async.ResumeIndex]), nil, nil
	}
	return runtime.BreakpointLocation{}, nil, fmt.Errorf("async step %v: no matching await point", asyncID)
}

func (f *Fake) breakpointAt(line Line) model.NativeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, bp := range f.breakpoints {
		if bp.loc.Fullname == line.Fullname && bp.loc.Line == line.LineNum {
			return bp.handle
		}
	}
	return 0
}
