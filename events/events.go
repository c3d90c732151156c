// Package events defines dialect-neutral debugger events. Each rpc front
// end (dap, mi, cli) renders these into its own wire form; dispatch
// assigns the monotonic sequence number and serializes emission.
package events

import "github.com/coredbg/coredbg/model"

// Kind discriminates which field of Event is populated.
type Kind int

const (
	KindStopped Kind = iota
	KindContinued
	KindThread
	KindModule
	KindOutput
	KindBreakpoint
	KindExited
	KindTerminated
)

// ThreadReason is the reason carried by a KindThread event.
type ThreadReason string

const (
	ThreadStarted ThreadReason = "started"
	ThreadExited  ThreadReason = "exited"
)

// ModuleReason is the reason carried by a KindModule event.
type ModuleReason string

const (
	ModuleNew     ModuleReason = "new"
	ModuleChanged ModuleReason = "changed"
	ModuleRemoved ModuleReason = "removed"
)

// OutputCategory classifies a KindOutput event's source.
type OutputCategory string

const (
	OutputConsole OutputCategory = "console"
	OutputStdout  OutputCategory = "stdout"
	OutputStderr  OutputCategory = "stderr"
)

// BreakpointReason is the reason carried by a KindBreakpoint event.
type BreakpointReason string

const (
	BreakpointNew     BreakpointReason = "new"
	BreakpointChanged BreakpointReason = "changed"
	BreakpointRemoved BreakpointReason = "removed"
)

// Event is one asynchronous notification headed for every attached
// front end. Exactly one group of fields is meaningful per Kind.
type Event struct {
	Kind Kind
	Seq  int

	// KindStopped
	Stopped *model.StoppedEvent

	// KindContinued
	ContinuedThread     model.ThreadId
	AllThreadsContinued bool

	// KindThread
	ThreadId     model.ThreadId
	ThreadReason ThreadReason

	// KindModule
	Module       *model.Module
	ModuleReason ModuleReason

	// KindOutput
	OutputCategory OutputCategory
	OutputText     string

	// KindBreakpoint
	Breakpoint       *model.Breakpoint
	BreakpointReason BreakpointReason

	// KindExited
	ExitCode int

	// KindTerminated
	TerminateDebuggee bool
}
