// Package model holds the wire-agnostic data model shared by every layer
// of the debugger core: thread/frame identity, breakpoints, variables and
// events. No package here depends on a protocol dialect or the native
// runtime binding.
package model

import "fmt"

// ThreadId identifies a thread in the debuggee.
type ThreadId int64

const (
	// InvalidThread is the sentinel for "no thread".
	InvalidThread ThreadId = 0
	// AllThreads addresses every thread at once (used by Continue).
	AllThreads ThreadId = -1
)

func (t ThreadId) String() string {
	switch t {
	case InvalidThread:
		return "<invalid thread>"
	case AllThreads:
		return "<all threads>"
	default:
		return fmt.Sprintf("%d", int64(t))
	}
}

// FrameLevel is a call-stack depth, 0 is innermost.
type FrameLevel int

// FrameId is an opaque handle assigned at stop time. It maps to a
// (ThreadId, FrameLevel) pair in the process-wide frame table, and is
// invalidated on every resume.
type FrameId int64

// InvalidFrame is returned when no frame table entry exists.
const InvalidFrame FrameId = 0

// ModuleID identifies a loaded module (assembly) for the lifetime between
// its load and unload/process-exit events.
type ModuleID uint64

// MethodToken is a metadata identifier for a method within a module.
type MethodToken uint32

// ILOffset is a byte offset within a method's bytecode.
type ILOffset uint32

// NativeHandle is an opaque reference to a single native breakpoint
// installed through the runtime contract. At most one is active per
// (source file, line).
type NativeHandle uint64
