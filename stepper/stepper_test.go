package stepper

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
	"github.com/stretchr/testify/require"
)

type fakeDebuggee struct {
	nextHandle model.NativeHandle
	steps      map[model.ThreadId]runtime.StepKind
	cleared    []model.NativeHandle
}

func newFakeDebuggee() *fakeDebuggee {
	return &fakeDebuggee{steps: make(map[model.ThreadId]runtime.StepKind)}
}

func (f *fakeDebuggee) Close() error                       { return nil }
func (f *fakeDebuggee) Attach(pid int) error                { return nil }
func (f *fakeDebuggee) Launch(string, []string, []string) error { return nil }
func (f *fakeDebuggee) Detach(bool) error                   { return nil }
func (f *fakeDebuggee) Terminate() error                    { return nil }
func (f *fakeDebuggee) Pause() error                        { return nil }
func (f *fakeDebuggee) Continue() error                     { return nil }

func (f *fakeDebuggee) ResolveLine(model.ModuleID, string, int) (runtime.BreakpointLocation, bool, error) {
	return runtime.BreakpointLocation{}, false, nil
}
func (f *fakeDebuggee) ResolveFunction(model.ModuleID, string, []string) ([]runtime.BreakpointLocation, error) {
	return nil, nil
}
func (f *fakeDebuggee) EntryPoint(model.ModuleID) (runtime.BreakpointLocation, bool) {
	return runtime.BreakpointLocation{}, false
}

func (f *fakeDebuggee) SetBreakpoint(runtime.BreakpointLocation) (model.NativeHandle, error) {
	f.nextHandle++
	return f.nextHandle, nil
}
func (f *fakeDebuggee) ClearBreakpoint(h model.NativeHandle) error {
	f.cleared = append(f.cleared, h)
	return nil
}

func (f *fakeDebuggee) SetStep(thread model.ThreadId, kind runtime.StepKind, tag interface{}) error {
	f.steps[thread] = kind
	return nil
}
func (f *fakeDebuggee) ClearStep(thread model.ThreadId) error {
	delete(f.steps, thread)
	return nil
}

func (f *fakeDebuggee) AsyncYieldBreakpoint(model.ThreadId) (runtime.BreakpointLocation, interface{}, bool) {
	return runtime.BreakpointLocation{}, nil, false
}
func (f *fakeDebuggee) AsyncResumeLocations(model.ThreadId, interface{}) (runtime.BreakpointLocation, *runtime.BreakpointLocation, error) {
	return runtime.BreakpointLocation{}, nil, nil
}

func (f *fakeDebuggee) Modules() []model.Module    { return nil }
func (f *fakeDebuggee) Threads() []model.ThreadId  { return nil }
func (f *fakeDebuggee) WalkFrames(model.ThreadId, model.FrameLevel, model.FrameLevel) ([]runtime.NativeFrame, error) {
	return nil, nil
}

func (f *fakeDebuggee) GetScopes(model.ThreadId, model.FrameLevel) ([]runtime.ScopeInfo, error) {
	return nil, nil
}
func (f *fakeDebuggee) GetChildren(runtime.ValueHandle, model.VariableFilter, int, int) ([]runtime.ChildInfo, error) {
	return nil, nil
}
func (f *fakeDebuggee) FormatValue(runtime.ValueHandle) (string, string, error) { return "", "", nil }
func (f *fakeDebuggee) SetChild(runtime.ValueHandle, string, string) (string, error) {
	return "", nil
}
func (f *fakeDebuggee) EvaluateExpr(model.ThreadId, model.FrameLevel, string) (runtime.ValueHandle, error) {
	return nil, nil
}

func (f *fakeDebuggee) EvalCall(runtime.EvalRequest) error         { return nil }
func (f *fakeDebuggee) CancelEval(model.ThreadId) error            { return nil }
func (f *fakeDebuggee) EvalResults() <-chan runtime.EvalResult     { return nil }
func (f *fakeDebuggee) Events() <-chan runtime.Event               { return nil }

var _ runtime.Debuggee = (*fakeDebuggee)(nil)
var _ io.Closer = (*fakeDebuggee)(nil)

func TestControllerWaitUnblocksOnTransition(t *testing.T) {
	c := NewController()
	c.Started()
	require.Equal(t, Running, c.State())

	go func() {
		time.Sleep(5 * time.Millisecond)
		c.Stopped(model.ThreadId(1))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s := c.Wait(ctx, Paused, Exited)
	require.Equal(t, Paused, s)
	require.Equal(t, model.ThreadId(1), c.LastStoppedThread())
}

func TestManagerSimpleStepCompletesOnce(t *testing.T) {
	dbg := newFakeDebuggee()
	m := NewManager(dbg)
	require.NoError(t, m.StartSimple(1, runtime.StepOver))

	require.True(t, m.OnStepComplete(1, int64(1)))
	// A second callback with the same tag (already consumed) must not
	// surface again.
	require.False(t, m.OnStepComplete(1, int64(1)))
}

func TestAsyncStepperTwoPhaseCompletion(t *testing.T) {
	dbg := newFakeDebuggee()
	m := NewManager(dbg)

	require.NoError(t, m.StartAsync(1, runtime.BreakpointLocation{Line: 10}, "async-1"))

	advanced, err := m.OnYieldHit(1, 1, "async-1", runtime.BreakpointLocation{Line: 20}, nil)
	require.NoError(t, err)
	require.True(t, advanced)

	require.True(t, m.OnResumeHit(1, 2))
	require.Contains(t, dbg.cleared, model.NativeHandle(1))
	require.Contains(t, dbg.cleared, model.NativeHandle(2))
}

func TestAsyncStepperIgnoresMismatchedAsyncID(t *testing.T) {
	dbg := newFakeDebuggee()
	m := NewManager(dbg)
	require.NoError(t, m.StartAsync(1, runtime.BreakpointLocation{Line: 10}, "async-1"))

	advanced, err := m.OnYieldHit(1, 1, "async-2", runtime.BreakpointLocation{Line: 20}, nil)
	require.NoError(t, err)
	require.False(t, advanced)
}
