package fake

import (
	"testing"
	"time"

	"github.com/coredbg/coredbg/debugger"
	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
	"github.com/stretchr/testify/require"
)

const allFramesFake = model.FrameLevel(1 << 30)

// twoLineProgram builds a minimal two-frame trace: Main at line 10 calls
// Helper at line 20, Helper returns and Main continues at line 11.
func twoLineProgram() Program {
	mod := model.Module{ID: 1, Name: "app", Path: "/app.dll"}
	mainFrame := runtime.NativeFrame{Kind: model.FrameCLRManaged, Name: "Program.Main", Fullname: "/app.cs", Line: 10, Module: 1}
	helperFrame := runtime.NativeFrame{Kind: model.FrameCLRManaged, Name: "Program.Helper", Fullname: "/app.cs", Line: 20, Module: 1}
	return Program{
		Modules: []model.Module{mod},
		Trace: []Line{
			{Module: 1, Fullname: "/app.cs", LineNum: 10, Func: "Main", Frames: []runtime.NativeFrame{mainFrame},
				Locals: map[string]Value{"count": {Text: "0", Type: "int"}}},
			{Module: 1, Fullname: "/app.cs", LineNum: 20, Func: "Helper", Frames: []runtime.NativeFrame{helperFrame, mainFrame},
				Locals: map[string]Value{"x": {Text: "42", Type: "int"}}},
			{Module: 1, Fullname: "/app.cs", LineNum: 11, Func: "Main", Frames: []runtime.NativeFrame{mainFrame},
				Locals: map[string]Value{"count": {Text: "1", Type: "int"}}},
		},
	}
}

func waitEvent(t *testing.T, f *Fake) runtime.Event {
	t.Helper()
	select {
	case ev := <-f.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return runtime.Event{}
	}
}

func TestFakeLaunchEmitsModuleLoad(t *testing.T) {
	f := New(twoLineProgram())
	defer f.Close()
	require.NoError(t, f.Launch("/app.dll", nil, nil))
	ev := waitEvent(t, f)
	require.Equal(t, runtime.EventModuleLoad, ev.Kind)
	require.Equal(t, model.ModuleID(1), ev.Module.ID)
}

// TestFakeBreakpointHit grounds Scenario A (breakpoint binds and fires).
func TestFakeBreakpointHit(t *testing.T) {
	f := New(twoLineProgram())
	defer f.Close()
	require.NoError(t, f.Launch("/app.dll", nil, nil))
	waitEvent(t, f) // module load

	loc, ok, err := f.ResolveLine(1, "/app.cs", 20)
	require.NoError(t, err)
	require.True(t, ok)

	handle, err := f.SetBreakpoint(loc)
	require.NoError(t, err)
	require.NotZero(t, handle)

	require.NoError(t, f.Continue())
	ev := waitEvent(t, f)
	require.Equal(t, runtime.EventBreakpointHit, ev.Kind)
	require.Equal(t, handle, ev.Handle)

	frames, err := f.WalkFrames(MainThread, 0, allFramesFake)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Equal(t, "Program.Helper", frames[0].Name)
}

// TestFakeStepOverStopsAtSameDepth grounds Scenario D (step-over does not
// descend into callees).
func TestFakeStepOverStopsAtSameDepth(t *testing.T) {
	f := New(twoLineProgram())
	defer f.Close()
	require.NoError(t, f.Launch("/app.dll", nil, nil))
	waitEvent(t, f)

	require.NoError(t, f.SetStep(MainThread, runtime.StepOver, "tag-1"))
	ev := waitEvent(t, f)
	require.Equal(t, runtime.EventStepComplete, ev.Kind)
	require.Equal(t, "tag-1", ev.StepTag)

	// The step-over from Main(line10, depth1) lands on the first line whose
	// depth <= startDepth(1): that's line 11 (Main, depth 1), skipping over
	// the Helper frame entirely even though it is visited in the trace.
	frames, err := f.WalkFrames(MainThread, 0, allFramesFake)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, "Program.Main", frames[0].Name)
}

// asyncProgram builds a trace for `await StepAsync()` inside Main: line 10
// is the await itself, line 30 is the compiler-generated state machine's
// internal yield landmark (never user-visible), and line 11 is where Main's
// continuation resumes once the awaited call completes.
func asyncProgram() Program {
	mod := model.Module{ID: 1, Name: "app", Path: "/app.dll"}
	awaitFrame := runtime.NativeFrame{Kind: model.FrameCLRManaged, Name: "Program.Main", Fullname: "/app.cs", Line: 10, Module: 1}
	yieldFrame := runtime.NativeFrame{Kind: model.FrameCLRManaged, Name: "Program.Main", Fullname: "/app.cs", Line: 30, Module: 1}
	resumeFrame := runtime.NativeFrame{Kind: model.FrameCLRManaged, Name: "Program.Main", Fullname: "/app.cs", Line: 11, Module: 1}
	return Program{
		Modules: []model.Module{mod},
		Trace: []Line{
			{Module: 1, Fullname: "/app.cs", LineNum: 10, Func: "Main", Frames: []runtime.NativeFrame{awaitFrame},
				Async: &AsyncYieldPoint{AsyncID: "async-1", YieldIndex: 1, ResumeIndex: 2}},
			{Module: 1, Fullname: "/app.cs", LineNum: 30, Func: "MoveNext", Frames: []runtime.NativeFrame{yieldFrame}},
			{Module: 1, Fullname: "/app.cs", LineNum: 11, Func: "Main", Frames: []runtime.NativeFrame{resumeFrame}},
		},
	}
}

// TestFakeWithFacadeAsyncStepOver grounds Scenario F (step-over across an
// awaited call lands on the continuation, emitting exactly one
// Stopped{Step}).
func TestFakeWithFacadeAsyncStepOver(t *testing.T) {
	f := New(asyncProgram())
	dbg := debugger.New(f)
	defer dbg.Close()

	require.NoError(t, dbg.Launch("/app.dll", nil, nil))
	select {
	case ev := <-dbg.Events():
		require.NotNil(t, ev.Module)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for module-load event")
	}

	require.NoError(t, dbg.StepOver(MainThread))

	var stopped *model.StoppedEvent
	for i := 0; i < 5 && stopped == nil; i++ {
		select {
		case ev := <-dbg.Events():
			if ev.Stopped != nil {
				stopped = ev.Stopped
			}
		case <-time.After(time.Second):
		}
	}
	require.NotNil(t, stopped)
	require.Equal(t, model.StopStep, stopped.Reason)

	frames, err := f.WalkFrames(MainThread, 0, allFramesFake)
	require.NoError(t, err)
	require.Equal(t, "Program.Main", frames[0].Name)
	require.Equal(t, 11, frames[0].Line)
}

// TestFakeEvaluateExprAndChildren grounds the variable/eval subsystem.
func TestFakeEvaluateExprAndChildren(t *testing.T) {
	prog := twoLineProgram()
	prog.Trace[0].Locals["self"] = Value{
		Text: "{Counter}", Type: "Counter",
		Children: map[string]Value{"count": {Text: "0", Type: "int"}},
	}
	f := New(prog)
	defer f.Close()
	require.NoError(t, f.Launch("/app.dll", nil, nil))
	waitEvent(t, f)

	h, err := f.EvaluateExpr(MainThread, 0, "self.count")
	require.NoError(t, err)
	text, typ, err := f.FormatValue(h)
	require.NoError(t, err)
	require.Equal(t, "0", text)
	require.Equal(t, "int", typ)

	scopes, err := f.GetScopes(MainThread, 0)
	require.NoError(t, err)
	require.Len(t, scopes, 1)
	require.Equal(t, "Locals", scopes[0].Name)

	children, err := f.GetChildren(scopes[0].Value, model.FilterBoth, 0, 0)
	require.NoError(t, err)
	require.Len(t, children, 2) // count, self

	newVal, err := f.SetChild(h, "nested", "7")
	require.Error(t, err) // "nested" doesn't exist under self.count (a leaf)
	_ = newVal
}

// TestFakeWithFacade exercises the scripted trace through the full
// debugger.Facade composition rather than the native interface directly.
func TestFakeWithFacade(t *testing.T) {
	f := New(twoLineProgram())
	dbg := debugger.New(f)
	defer dbg.Close()

	require.NoError(t, dbg.Launch("/app.dll", nil, nil))

	select {
	case ev := <-dbg.Events():
		require.NotNil(t, ev.Module)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for module-load event")
	}

	bps := dbg.SetSourceBreakpoints("/app.cs", []model.SourceBreakpointRequest{{Line: 20}})
	require.Len(t, bps, 1)

	require.NoError(t, dbg.Continue())

	var stopped bool
	for i := 0; i < 5 && !stopped; i++ {
		select {
		case ev := <-dbg.Events():
			if ev.Stopped != nil {
				stopped = true
				require.Equal(t, model.StopBreakpoint, ev.Stopped.Reason)
			}
		case <-time.After(time.Second):
		}
	}
	require.True(t, stopped)

	threads := dbg.Threads()
	require.Equal(t, []model.ThreadId{MainThread}, threads)
}
