package debugger

import (
	"context"
	"testing"
	"time"

	"github.com/coredbg/coredbg/events"
	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
	"github.com/stretchr/testify/require"
)

type fakeDebuggee struct {
	evCh   chan runtime.Event
	evalCh chan runtime.EvalResult
	lines  map[string]map[int]runtime.BreakpointLocation
	nextH  model.NativeHandle
}

func newFakeDebuggee() *fakeDebuggee {
	return &fakeDebuggee{
		evCh:   make(chan runtime.Event, 8),
		evalCh: make(chan runtime.EvalResult, 8),
		lines:  make(map[string]map[int]runtime.BreakpointLocation),
	}
}

func (f *fakeDebuggee) Close() error                             { return nil }
func (f *fakeDebuggee) Attach(pid int) error                     { return nil }
func (f *fakeDebuggee) Launch(string, []string, []string) error  { return nil }
func (f *fakeDebuggee) Detach(bool) error                        { return nil }
func (f *fakeDebuggee) Terminate() error                         { return nil }
func (f *fakeDebuggee) Pause() error                             { return nil }
func (f *fakeDebuggee) Continue() error                          { return nil }

func (f *fakeDebuggee) ResolveLine(mod model.ModuleID, fullname string, line int) (runtime.BreakpointLocation, bool, error) {
	loc, ok := f.lines[fullname][line]
	return loc, ok, nil
}
func (f *fakeDebuggee) ResolveFunction(model.ModuleID, string, []string) ([]runtime.BreakpointLocation, error) {
	return nil, nil
}
func (f *fakeDebuggee) EntryPoint(model.ModuleID) (runtime.BreakpointLocation, bool) {
	return runtime.BreakpointLocation{}, false
}
func (f *fakeDebuggee) SetBreakpoint(runtime.BreakpointLocation) (model.NativeHandle, error) {
	f.nextH++
	return f.nextH, nil
}
func (f *fakeDebuggee) ClearBreakpoint(model.NativeHandle) error { return nil }

func (f *fakeDebuggee) SetStep(model.ThreadId, runtime.StepKind, interface{}) error { return nil }
func (f *fakeDebuggee) ClearStep(model.ThreadId) error                             { return nil }

func (f *fakeDebuggee) AsyncYieldBreakpoint(model.ThreadId) (runtime.BreakpointLocation, interface{}, bool) {
	return runtime.BreakpointLocation{}, nil, false
}
func (f *fakeDebuggee) AsyncResumeLocations(model.ThreadId, interface{}) (runtime.BreakpointLocation, *runtime.BreakpointLocation, error) {
	return runtime.BreakpointLocation{}, nil, nil
}

func (f *fakeDebuggee) Modules() []model.Module   { return nil }
func (f *fakeDebuggee) Threads() []model.ThreadId { return []model.ThreadId{1} }
func (f *fakeDebuggee) WalkFrames(model.ThreadId, model.FrameLevel, model.FrameLevel) ([]runtime.NativeFrame, error) {
	return []runtime.NativeFrame{{Kind: model.FrameCLRManaged, Name: "Main", Fullname: "/a.cs", Line: 1}}, nil
}

func (f *fakeDebuggee) GetScopes(model.ThreadId, model.FrameLevel) ([]runtime.ScopeInfo, error) {
	return []runtime.ScopeInfo{{Name: "Locals", NamedVariables: 1}}, nil
}
func (f *fakeDebuggee) GetChildren(runtime.ValueHandle, model.VariableFilter, int, int) ([]runtime.ChildInfo, error) {
	return []runtime.ChildInfo{{Name: "x", Text: "1", Type: "int"}}, nil
}
func (f *fakeDebuggee) FormatValue(runtime.ValueHandle) (string, string, error) { return "1", "int", nil }
func (f *fakeDebuggee) SetChild(runtime.ValueHandle, string, string) (string, error) {
	return "2", nil
}
func (f *fakeDebuggee) EvaluateExpr(model.ThreadId, model.FrameLevel, string) (runtime.ValueHandle, error) {
	return "handle", nil
}

func (f *fakeDebuggee) EvalCall(req runtime.EvalRequest) error {
	f.evalCh <- runtime.EvalResult{Thread: req.Thread, Value: "1"}
	return nil
}
func (f *fakeDebuggee) CancelEval(model.ThreadId) error        { return nil }
func (f *fakeDebuggee) EvalResults() <-chan runtime.EvalResult { return f.evalCh }
func (f *fakeDebuggee) Events() <-chan runtime.Event           { return f.evCh }

var _ runtime.Debuggee = (*fakeDebuggee)(nil)

func TestContinueRequiresPaused(t *testing.T) {
	dbg := newFakeDebuggee()
	f := New(dbg)
	defer f.Close()

	err := f.Continue()
	require.Error(t, err)
	require.Equal(t, model.KindWrongState, model.KindOf(err))
}

func TestModuleLoadEmitsModuleEvent(t *testing.T) {
	dbg := newFakeDebuggee()
	f := New(dbg)
	defer f.Close()

	dbg.evCh <- runtime.Event{Kind: runtime.EventModuleLoad, Module: model.Module{ID: 1, Name: "a"}}

	select {
	case ev := <-f.Events():
		require.Equal(t, events.KindModule, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for module event")
	}
}

func TestBreakpointHitStopsAndEmits(t *testing.T) {
	dbg := newFakeDebuggee()
	dbg.lines["/a.cs"] = map[int]runtime.BreakpointLocation{10: {Line: 10, Fullname: "/a.cs"}}
	f := New(dbg)
	defer f.Close()

	dbg.evCh <- runtime.Event{Kind: runtime.EventModuleLoad, Module: model.Module{ID: 1, Name: "a"}}
	select {
	case <-f.Events():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for module event")
	}

	out := f.SetSourceBreakpoints("/a.cs", []model.SourceBreakpointRequest{{Line: 10}})
	require.True(t, out[0].Verified)

	dbg.evCh <- runtime.Event{Kind: runtime.EventBreakpointHit, Thread: 1, Handle: 1}

	select {
	case ev := <-f.Events():
		require.Equal(t, events.KindStopped, ev.Kind)
		require.Equal(t, model.StopBreakpoint, ev.Stopped.Reason)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for stopped event")
	}
}

func TestVariablesRendersFromScopes(t *testing.T) {
	dbg := newFakeDebuggee()
	f := New(dbg)
	defer f.Close()

	dbg.evCh <- runtime.Event{Kind: runtime.EventProcessPaused, Thread: 1}
	select {
	case <-f.Events():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for paused event")
	}

	frames, err := f.StackTrace(1, 0, 1)
	require.NoError(t, err)
	require.Len(t, frames, 1)

	scopes, err := f.Scopes(frames[0].Id)
	require.NoError(t, err)
	require.Len(t, scopes, 1)

	vars, err := f.Variables(scopes[0].VariablesReference, model.FilterBoth, 0, 10)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	require.Equal(t, "x", vars[0].Name)
}

// TestEvaluateSchedulesThroughQueue grounds §4.7's eval-queue mechanism:
// Evaluate must not call EvaluateExpr directly but schedule it through
// the same FIFO a property getter or static-init call would use.
func TestEvaluateSchedulesThroughQueue(t *testing.T) {
	dbg := newFakeDebuggee()
	f := New(dbg)
	defer f.Close()

	dbg.evCh <- runtime.Event{Kind: runtime.EventProcessPaused, Thread: 1}
	select {
	case <-f.Events():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for paused event")
	}

	frames, err := f.StackTrace(1, 0, 1)
	require.NoError(t, err)
	require.Len(t, frames, 1)

	v, err := f.Evaluate(context.Background(), frames[0].Id, "x.y")
	require.NoError(t, err)
	require.Equal(t, "1", v.Value)
}
