package stepper

import (
	"sync"

	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
)

// Phase distinguishes the async-method stepper's internal landmark
// breakpoints from the user-visible step they implement.
type Phase int

const (
	// PhaseSimple is a plain (non-async) step: STEP_IN/OVER/OUT installed
	// directly through runtime.Debuggee.SetStep.
	PhaseSimple Phase = iota
	// PhaseYieldOffset is waiting for the async method to reach its
	// current yield point.
	PhaseYieldOffset
	// PhaseResumeOffset is waiting for the continuation to resume at the
	// recorded resume offset.
	PhaseResumeOffset
)

// record is the per-thread bookkeeping for one outstanding step,
// identifying it across however many underlying breakpoint hits or
// step-complete callbacks it takes to finish.
type record struct {
	phase Phase
	tag   interface{}

	// PhaseYieldOffset / PhaseResumeOffset only.
	asyncID      interface{}
	yieldHandle  model.NativeHandle
	resumeHandle model.NativeHandle
	notifyHandle model.NativeHandle
}

// Manager owns every thread's outstanding step, whether a plain
// SetStep-backed step or a multi-phase async-method step.
type Manager struct {
	mu      sync.Mutex
	active  map[model.ThreadId]*record
	nextTag int64
	dbg     runtime.Debuggee
}

// NewManager creates a Manager driving dbg.
func NewManager(dbg runtime.Debuggee) *Manager {
	return &Manager{active: make(map[model.ThreadId]*record), dbg: dbg}
}

func (m *Manager) allocTag() interface{} {
	m.nextTag++
	return m.nextTag
}

// StartSimple installs a plain step. If thread already has a step
// outstanding it is replaced.
func (m *Manager) StartSimple(thread model.ThreadId, kind runtime.StepKind) error {
	m.mu.Lock()
	tag := m.allocTag()
	m.active[thread] = &record{phase: PhaseSimple, tag: tag}
	m.mu.Unlock()
	return m.dbg.SetStep(thread, kind, tag)
}

// OnStepComplete reports whether the underlying stepper's step-complete
// callback (thread, tag) should surface as a user-visible Stopped{Step}.
// Only a PhaseSimple or a PhaseResumeOffset completion does; an
// in-progress async-method phase transition is swallowed here so a
// single logical step yields exactly one emission (§4.6).
func (m *Manager) OnStepComplete(thread model.ThreadId, tag interface{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.active[thread]
	if !ok || rec.tag != tag {
		return false
	}
	switch rec.phase {
	case PhaseSimple, PhaseResumeOffset:
		delete(m.active, thread)
		return true
	default:
		return false
	}
}

// Clear cancels thread's outstanding step, releasing any landmark
// breakpoints the async stepper installed.
func (m *Manager) Clear(thread model.ThreadId) {
	m.mu.Lock()
	rec, ok := m.active[thread]
	delete(m.active, thread)
	m.mu.Unlock()

	m.dbg.ClearStep(thread)
	if !ok {
		return
	}
	if rec.yieldHandle != 0 {
		m.dbg.ClearBreakpoint(rec.yieldHandle)
	}
	if rec.resumeHandle != 0 {
		m.dbg.ClearBreakpoint(rec.resumeHandle)
	}
	if rec.notifyHandle != 0 {
		m.dbg.ClearBreakpoint(rec.notifyHandle)
	}
}

// IsAsyncLandmark reports whether handle is one of the internal
// breakpoints the async stepper installed for any active thread — such
// breakpoints are not user-visible in enumeration or save/load (§4.6).
func (m *Manager) IsAsyncLandmark(handle model.NativeHandle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.active {
		if rec.yieldHandle == handle || rec.resumeHandle == handle || rec.notifyHandle == handle {
			return true
		}
	}
	return false
}
