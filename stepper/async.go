package stepper

import (
	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
)

// StartAsync installs the two-phase async-method stepper: a function
// breakpoint at the method's current yield offset, correlated by
// asyncID, the way netcoredbg's AsyncStepper starts a step into a
// compiler-generated state machine method.
func (m *Manager) StartAsync(thread model.ThreadId, yieldLoc runtime.BreakpointLocation, asyncID interface{}) error {
	handle, err := m.dbg.SetBreakpoint(yieldLoc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	tag := m.allocTag()
	m.active[thread] = &record{
		phase:       PhaseYieldOffset,
		tag:         tag,
		asyncID:     asyncID,
		yieldHandle: handle,
	}
	m.mu.Unlock()

	// Installing the landmark doesn't itself resume the thread; Continue
	// runs it forward until the landmark (or any other breakpoint) hits,
	// mirroring SetStep's "activating a stepper resumes the process"
	// contract used by the plain-step path.
	return m.dbg.Continue()
}

// OnYieldHit is called when handle (a native breakpoint) fires while
// thread has an outstanding PhaseYieldOffset step. If hitAsyncID matches
// the recorded correlation token, the step moves to PhaseResumeOffset: a
// breakpoint is installed at resumeLoc, and — if notifyLoc is non-nil —
// a further landmark is installed in NotifyDebuggerOfWaitCompletion so a
// step-out across an awaited call stops at the continuation. advanced
// reports whether the phase transition happened; a false result with a
// nil error means the hit belongs to a different async invocation and
// should be silently resumed.
func (m *Manager) OnYieldHit(thread model.ThreadId, handle model.NativeHandle, hitAsyncID interface{}, resumeLoc runtime.BreakpointLocation, notifyLoc *runtime.BreakpointLocation) (advanced bool, err error) {
	m.mu.Lock()
	rec, ok := m.active[thread]
	if !ok || rec.phase != PhaseYieldOffset || rec.yieldHandle != handle {
		m.mu.Unlock()
		return false, nil
	}
	if rec.asyncID != hitAsyncID {
		m.mu.Unlock()
		return false, nil
	}
	m.mu.Unlock()

	resumeHandle, err := m.dbg.SetBreakpoint(resumeLoc)
	if err != nil {
		return false, err
	}
	var notifyHandle model.NativeHandle
	if notifyLoc != nil {
		notifyHandle, err = m.dbg.SetBreakpoint(*notifyLoc)
		if err != nil {
			m.dbg.ClearBreakpoint(resumeHandle)
			return false, err
		}
	}

	m.mu.Lock()
	rec, ok = m.active[thread]
	if !ok || rec.phase != PhaseYieldOffset {
		// Step was cancelled while we were installing breakpoints.
		m.mu.Unlock()
		m.dbg.ClearBreakpoint(resumeHandle)
		if notifyHandle != 0 {
			m.dbg.ClearBreakpoint(notifyHandle)
		}
		return false, nil
	}

	m.dbg.ClearBreakpoint(rec.yieldHandle)
	rec.yieldHandle = 0
	rec.phase = PhaseResumeOffset
	rec.resumeHandle = resumeHandle
	rec.notifyHandle = notifyHandle
	m.mu.Unlock()

	// As in StartAsync, arming the resume-phase landmarks doesn't itself
	// resume the thread.
	if err := m.dbg.Continue(); err != nil {
		return false, err
	}
	return true, nil
}

// OnResumeHit is called when handle fires while thread has an
// outstanding PhaseResumeOffset step; it is the step's true completion
// point once the resume or notify breakpoint has matched, so it clears
// the landmark breakpoints and returns true to signal the caller should
// emit Stopped{Step}.
func (m *Manager) OnResumeHit(thread model.ThreadId, handle model.NativeHandle) bool {
	m.mu.Lock()
	rec, ok := m.active[thread]
	if !ok || rec.phase != PhaseResumeOffset {
		m.mu.Unlock()
		return false
	}
	if handle != rec.resumeHandle && handle != rec.notifyHandle {
		m.mu.Unlock()
		return false
	}
	delete(m.active, thread)
	m.mu.Unlock()

	if rec.resumeHandle != 0 {
		m.dbg.ClearBreakpoint(rec.resumeHandle)
	}
	if rec.notifyHandle != 0 && rec.notifyHandle != handle {
		m.dbg.ClearBreakpoint(rec.notifyHandle)
	}
	return true
}
