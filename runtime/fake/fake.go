// Package fake is the only runtime.Debuggee implementation in this
// repository: an in-memory scripted program, driving the core the same
// way the real ICorDebug binding would but without any native
// interop — used by package-level tests across the core and by
// cmd/coredbg's headless smoke mode. Grounded on the stubDebuggee
// pattern used by frames/walk_test.go, generalized into a full
// runtime.Debuggee.
package fake

import (
	"fmt"
	"sync"

	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
)

// MainThread is the single thread every scripted program runs on; this
// fake does not model concurrency within the debuggee.
const MainThread model.ThreadId = 1

// Line is one instruction-equivalent position the fake's single thread
// passes through when run end to end. Frames describes the call stack
// at this position, innermost first, used both for WalkFrames and for
// step-over/out depth comparisons.
type Line struct {
	Module   model.ModuleID
	Fullname string
	LineNum  int
	Func     string
	Frames   []runtime.NativeFrame
	Locals   map[string]Value
	// Exception, if non-empty, means reaching this line raises this
	// named exception instead of executing normally; Unhandled controls
	// which runtime.Event kind is emitted.
	Exception string
	Unhandled bool
	// Async, if non-nil, marks this line as an `await` that must be
	// stepped over through the two-phase yield/resume landmark protocol.
	Async *AsyncYieldPoint
}

// AsyncYieldPoint marks a Line as an `await` whose step-over needs
// AsyncYieldBreakpoint/AsyncResumeLocations instead of a plain SetStep.
type AsyncYieldPoint struct {
	// AsyncID correlates this await's yield/resume pair and is echoed
	// back on the runtime.Event for a hit against YieldIndex.
	AsyncID interface{}
	// YieldIndex is the Trace index of the state machine's own internal
	// landmark, never itself user-visible.
	YieldIndex int
	// ResumeIndex is the Trace index the continuation resumes at.
	ResumeIndex int
}

// Value is one fake runtime value: a display string, a type name, and
// optional children (for aggregate types).
type Value struct {
	Text     string
	Type     string
	Children map[string]Value
}

// Program is a full scripted trace: the module list and the linear
// sequence of Lines the thread visits from Launch to process exit.
type Program struct {
	Modules []model.Module
	Trace   []Line
	// EntryIndex is the Trace index stopAtEntry stops at.
	EntryIndex int
}

type breakpointEntry struct {
	handle model.NativeHandle
	loc    runtime.BreakpointLocation
}

// Fake is an in-memory runtime.Debuggee over a scripted Program.
type Fake struct {
	mu sync.Mutex

	prog Program
	pos  int // index into prog.Trace; -1 before Launch/Attach

	nextHandle  model.NativeHandle
	breakpoints map[model.NativeHandle]breakpointEntry

	stepThread map[model.ThreadId]stepState

	evalSeq int

	events      chan runtime.Event
	evalResults chan runtime.EvalResult
	closed      bool
}

type stepState struct {
	kind    runtime.StepKind
	tag     interface{}
	startAt int
}

var _ runtime.Debuggee = (*Fake)(nil)

// New creates a Fake over prog. The caller still must call Launch or
// Attach before driving it, matching the real binding's lifecycle.
func New(prog Program) *Fake {
	return &Fake{
		prog:        prog,
		pos:         -1,
		breakpoints: make(map[model.NativeHandle]breakpointEntry),
		stepThread:  make(map[model.ThreadId]stepState),
		events:      make(chan runtime.Event, 64),
		evalResults: make(chan runtime.EvalResult, 16),
	}
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
		close(f.evalResults)
	}
	return nil
}

func (f *Fake) emit(ev runtime.Event) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}
	select {
	case f.events <- ev:
	default:
	}
}

func (f *Fake) emitEval(res runtime.EvalResult) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}
	select {
	case f.evalResults <- res:
	default:
	}
}

func (f *Fake) Events() <-chan runtime.Event           { return f.events }
func (f *Fake) EvalResults() <-chan runtime.EvalResult { return f.evalResults }

func (f *Fake) Attach(pid int) error { return f.start() }

func (f *Fake) Launch(path string, args, env []string) error { return f.start() }

func (f *Fake) start() error {
	f.mu.Lock()
	f.pos = 0
	mods := append([]model.Module(nil), f.prog.Modules...)
	f.mu.Unlock()

	for _, m := range mods {
		f.emit(runtime.Event{Kind: runtime.EventModuleLoad, Module: m})
	}
	return nil
}

func (f *Fake) Detach(terminateDebuggee bool) error {
	return f.Close()
}

func (f *Fake) Terminate() error {
	f.emit(runtime.Event{Kind: runtime.EventProcessExited, ExitCode: 0})
	return f.Close()
}

func (f *Fake) Pause() error {
	f.emit(runtime.Event{Kind: runtime.EventProcessPaused, Thread: MainThread})
	return nil
}

func (f *Fake) Threads() []model.ThreadId { return []model.ThreadId{MainThread} }

func (f *Fake) Modules() []model.Module {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Module(nil), f.prog.Modules...)
}

func (f *Fake) current() (Line, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos < 0 || f.pos >= len(f.prog.Trace) {
		return Line{}, false
	}
	return f.prog.Trace[f.pos], true
}

func (f *Fake) WalkFrames(thread model.ThreadId, low, high model.FrameLevel) ([]runtime.NativeFrame, error) {
	line, ok := f.current()
	if !ok {
		return nil, fmt.Errorf("walkframes: no current position")
	}
	frames := line.Frames
	lo := int(low)
	hi := int(high)
	if lo > len(frames) {
		lo = len(frames)
	}
	if hi > len(frames) || hi < 0 {
		hi = len(frames)
	}
	if lo > hi {
		lo = hi
	}
	return frames[lo:hi], nil
}
