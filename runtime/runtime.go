// Package runtime declares the contract the core consumes from the native
// CLR debug API. The real binding (ICorDebug and friends) is explicitly
// out of scope for this repository: nothing here does process injection,
// IL reading or COM interop. runtime/fake provides the only
// implementation in this repo, used by tests and by the headless smoke
// mode of cmd/coredbg.
package runtime

import (
	"io"

	"github.com/coredbg/coredbg/model"
)

// StepKind is the step operation installed on a thread by the execution
// controller.
type StepKind int

const (
	StepInto StepKind = iota
	StepOver
	StepOutOf
)

// BreakpointLocation is a resolved (module, method, IL offset) location a
// native breakpoint can be installed at.
type BreakpointLocation struct {
	Module      model.ModuleID
	MethodToken model.MethodToken
	ILOffset    model.ILOffset
	Fullname    string
	Line        int
	EndLine     int
}

// NativeFrame is one frame produced by a frame walk, before the frames
// package classifies and filters it into a model.StackFrame.
type NativeFrame struct {
	Kind        model.FrameKind
	Name        string
	Fullname    string
	Line        int
	Column      int
	EndLine     int
	EndColumn   int
	Module      model.ModuleID
	ClrAddr     uint64
	MethodToken model.MethodToken
	ILOffset    model.ILOffset
}

// EvalRequest describes a managed call to schedule on a paused thread:
// invoke Method on Target (nil for a static call) with Args, or resolve
// Expr.
type EvalRequest struct {
	Thread model.ThreadId
	Frame  model.FrameLevel
	// Expr, when non-empty, is a dotted expression to resolve the way
	// EvaluateExpr would, scheduled here because resolving it may invoke
	// a property getter. Method/Target/Args describe a direct bound call
	// instead; a class's static constructor or a finalize-suppression
	// request runs through this same queue as a side effect of whichever
	// Expr/Method call first touches that type or object, not as its own
	// dispatched request.
	Expr   string
	Method string
	Target ValueHandle
	Args   []ValueHandle
}

// ValueHandle is an opaque reference into the native runtime's object
// heap / locals, wrapped by higher layers into model.ValueHandle.
type ValueHandle interface{}

// EventKind enumerates the asynchronous notifications the native API
// delivers on its own callback threads.
type EventKind int

const (
	EventModuleLoad EventKind = iota
	EventModuleUnload
	EventBreakpointHit
	EventStepComplete
	EventExceptionFirstChance
	EventExceptionCatchHandlerFound
	EventExceptionUnhandled
	EventProcessExited
	EventProcessPaused
)

// Event is one asynchronous notification from the native runtime.
// Exactly one of the typed fields below is meaningful per Kind.
type Event struct {
	Kind EventKind

	Module model.Module // EventModuleLoad / EventModuleUnload

	Thread  model.ThreadId        // breakpoint/step/exception/pause events
	Handle  model.NativeHandle    // EventBreakpointHit
	StepTag interface{}           // EventStepComplete: stepper-assigned correlation token
	// AsyncID identifies, for an EventBreakpointHit on one of the async
	// stepper's landmark breakpoints, which state-machine instance
	// actually raised it — supplied by the runtime at hit time, since a
	// concurrently-running or recursive invocation can reach the same
	// landmark location under a different instance than the one a step
	// was started against.
	AsyncID interface{}

	ExceptionName     string                  // exception events
	ExceptionCategory model.ExceptionCategory // exception events

	ExitCode int // EventProcessExited
}

// Debuggee is the native CLR debug API surface the core consumes. A real
// implementation wraps the out-of-process debug API (ICorDebug);
// runtime/fake wraps an in-memory program model for tests.
type Debuggee interface {
	io.Closer

	Attach(pid int) error
	Launch(path string, args, env []string) error
	Detach(terminateDebuggee bool) error
	Terminate() error

	Pause() error
	Continue() error

	// ResolveLine attempts to bind fullname:line to compiled code in mod.
	// ok is false (no error) when the line has no code at it yet.
	ResolveLine(mod model.ModuleID, fullname string, line int) (loc BreakpointLocation, ok bool, err error)
	// ResolveFunction enumerates every method matching name/params in mod.
	ResolveFunction(mod model.ModuleID, name string, params []string) ([]BreakpointLocation, error)
	// EntryPoint returns the module's entry method location, if any.
	EntryPoint(mod model.ModuleID) (BreakpointLocation, bool)

	SetBreakpoint(loc BreakpointLocation) (model.NativeHandle, error)
	ClearBreakpoint(model.NativeHandle) error

	SetStep(thread model.ThreadId, kind StepKind, tag interface{}) error
	ClearStep(thread model.ThreadId) error

	// AsyncYieldBreakpoint reports whether the line thread is currently
	// stopped at lies inside a compiler-generated async state-machine
	// method whose step-over must use the two-phase yield/resume
	// landmark protocol (§4.6) instead of a plain SetStep — a plain
	// depth-based step would otherwise land inside the state machine's
	// own MoveNext/awaiter machinery. ok is false for an ordinary line.
	AsyncYieldBreakpoint(thread model.ThreadId) (loc BreakpointLocation, asyncID interface{}, ok bool)
	// AsyncResumeLocations resolves, once thread has actually reached the
	// yield-point breakpoint AsyncYieldBreakpoint armed, where the
	// continuation resumes and — if the awaited call can itself suspend
	// back out to the caller — the NotifyDebuggerOfWaitCompletion
	// landmark to arm alongside it.
	AsyncResumeLocations(thread model.ThreadId, asyncID interface{}) (resumeLoc BreakpointLocation, notifyLoc *BreakpointLocation, err error)

	Modules() []model.Module
	Threads() []model.ThreadId
	WalkFrames(thread model.ThreadId, low, high model.FrameLevel) ([]NativeFrame, error)

	// GetScopes returns the named scopes (e.g. "Locals") visible at the
	// given frame.
	GetScopes(thread model.ThreadId, level model.FrameLevel) ([]ScopeInfo, error)
	// GetChildren enumerates value's children: fields, properties
	// (evaluated via EvalCall when needed), inherited members, and a
	// synthetic "Static members" child when present.
	GetChildren(value ValueHandle, filter model.VariableFilter, start, count int) ([]ChildInfo, error)
	// FormatValue renders value's canonical display string and type name.
	FormatValue(value ValueHandle) (text, typ string, err error)
	// SetChild mutates name under parent to the parsed form of expr,
	// returning the canonical string of the new value.
	SetChild(parent ValueHandle, name, expr string) (string, error)
	// EvaluateExpr parses and resolves a dotted expression against
	// thread's frame. It runs synchronously on the caller's goroutine, so
	// only code that must never block behind a scheduled eval (breakpoint
	// condition checks on the runtime-callback thread) calls it directly;
	// everything else schedules the same lookup through EvalCall via
	// eval.Queue.Run (EvalRequest.Expr), since resolving a property may
	// run its getter.
	EvaluateExpr(thread model.ThreadId, level model.FrameLevel, expr string) (ValueHandle, error)

	// EvalCall schedules req asynchronously; completion arrives as an
	// EvalResult through the channel returned by EvalResults.
	EvalCall(req EvalRequest) error
	CancelEval(thread model.ThreadId) error
	EvalResults() <-chan EvalResult

	Events() <-chan Event
}

// ScopeInfo is one scope ("Locals", "Arguments", "Statics") visible at a
// frame, before varref assigns it a variablesReference.
type ScopeInfo struct {
	Name           string
	Value          ValueHandle
	NamedVariables int
	Expensive      bool
}

// ChildInfo is one child of an expanded value: a field, property,
// inherited member, or the synthetic statics group.
type ChildInfo struct {
	Name             string
	Value            ValueHandle
	Text             string
	Type             string
	EvaluateName     string
	Indexed          bool
	HasChildren      bool
	NamedVariables   int
	IndexedVariables int
}

// EvalResult is delivered on the thread's eval completion.
type EvalResult struct {
	Thread model.ThreadId
	Value  ValueHandle
	Err    error
}
