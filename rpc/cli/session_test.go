package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/coredbg/coredbg/debugger"
	"github.com/coredbg/coredbg/events"
	"github.com/coredbg/coredbg/model"
	"github.com/stretchr/testify/require"
)

type fakeFacade struct {
	evCh         chan events.Event
	continued    bool
	steppedOver  model.ThreadId
	breakpoint   model.Breakpoint
	stackFrames  []model.StackFrame
	scopes       []model.Scope
	vars         []model.Variable
	evaluated    model.Variable
}

func newFakeFacade() *fakeFacade {
	return &fakeFacade{
		evCh:       make(chan events.Event, 8),
		breakpoint: model.Breakpoint{ID: 1, Verified: true, Line: 10, Source: &model.Source{Path: "/a.cs"}},
		stackFrames: []model.StackFrame{
			{Id: 1, Name: "Program.Main", Source: model.Source{Path: "/a.cs"}, Line: 10},
		},
		scopes:    []model.Scope{{Name: "Arguments", VariablesReference: 5}},
		vars:      []model.Variable{{Name: "x", Value: "1"}},
		evaluated: model.Variable{Name: "x", Value: "1"},
	}
}

func (f *fakeFacade) Close() error                { return nil }
func (f *fakeFacade) Attach(pid int) error         { return nil }
func (f *fakeFacade) Launch(string, []string, []string) error { return nil }
func (f *fakeFacade) Disconnect(bool) error        { return nil }
func (f *fakeFacade) Terminate() error             { return nil }
func (f *fakeFacade) Continue() error              { f.continued = true; return nil }
func (f *fakeFacade) Pause() error                 { return nil }
func (f *fakeFacade) StepIn(model.ThreadId) error  { return nil }
func (f *fakeFacade) StepOver(t model.ThreadId) error {
	f.steppedOver = t
	return nil
}
func (f *fakeFacade) StepOut(model.ThreadId) error { return nil }

func (f *fakeFacade) Threads() []model.ThreadId { return []model.ThreadId{1} }
func (f *fakeFacade) StackTrace(model.ThreadId, model.FrameLevel, model.FrameLevel) ([]model.StackFrame, error) {
	return f.stackFrames, nil
}
func (f *fakeFacade) Scopes(model.FrameId) ([]model.Scope, error) { return f.scopes, nil }
func (f *fakeFacade) Variables(int, model.VariableFilter, int, int) ([]model.Variable, error) {
	return f.vars, nil
}
func (f *fakeFacade) Evaluate(context.Context, model.FrameId, string) (model.Variable, error) {
	return f.evaluated, nil
}
func (f *fakeFacade) SetVariable(context.Context, int, string, string) (string, error) {
	return "", nil
}

func (f *fakeFacade) SetSourceBreakpoints(string, []model.SourceBreakpointRequest) []model.Breakpoint {
	return []model.Breakpoint{f.breakpoint}
}
func (f *fakeFacade) SetFunctionBreakpoints([]model.FunctionBreakpointRequest) []model.Breakpoint {
	return nil
}
func (f *fakeFacade) SetExceptionBreakpoints([]model.ExceptionFilter, []string, model.ExceptionCategory) []int {
	return nil
}
func (f *fakeFacade) SetStopAtEntry(bool) {}

func (f *fakeFacade) FindByPattern(string) []string { return nil }

func (f *fakeFacade) Events() <-chan events.Event { return f.evCh }

var _ debugger.Facade = (*fakeFacade)(nil)

func newTestSession(t *testing.T) (*Session, *fakeFacade, *bytes.Buffer, func()) {
	fake := newFakeFacade()
	buf := &bytes.Buffer{}
	sess := NewSession(fake, buf, false)
	ctx, cancel := context.WithCancel(context.Background())
	stop := sess.start(ctx)
	return sess, fake, buf, func() { stop(); cancel() }
}

func TestDispatchCommandContinue(t *testing.T) {
	sess, fake, buf, done := newTestSession(t)
	defer done()

	exit := sess.dispatchCommand(context.Background(), buf, "continue", nil)
	require.False(t, exit)
	require.True(t, fake.continued)
}

func TestDispatchCommandExit(t *testing.T) {
	sess, _, buf, done := newTestSession(t)
	defer done()

	exit := sess.dispatchCommand(context.Background(), buf, "exit", nil)
	require.True(t, exit)
}

func TestDispatchCommandBreakAndBreakpoints(t *testing.T) {
	sess, _, buf, done := newTestSession(t)
	defer done()

	exit := sess.dispatchCommand(context.Background(), buf, "break", []string{"/a.cs:10"})
	require.False(t, exit)
	require.Contains(t, buf.String(), "#1 /a.cs:10")

	buf.Reset()
	sess.handleBreakpoints()
	require.Contains(t, buf.String(), "#1 /a.cs:10")
}

func TestDispatchCommandStoppedEventRefreshesFrames(t *testing.T) {
	sess, fake, buf, done := newTestSession(t)
	defer done()

	fake.evCh <- events.Event{
		Kind:    events.KindStopped,
		Stopped: &model.StoppedEvent{Reason: model.StopBreakpoint, ThreadId: 1},
	}

	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "Breakpoint hit")
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, model.ThreadId(1), sess.currentThread())
	frame, ok := sess.selectedFrame()
	require.True(t, ok)
	require.Equal(t, model.FrameId(1), frame)
}

func TestDispatchCommandArgsAndPrint(t *testing.T) {
	sess, _, buf, done := newTestSession(t)
	defer done()

	sess.setThread(1)
	sess.refreshFrames(context.Background())

	exit := sess.dispatchCommand(context.Background(), buf, "args", nil)
	require.False(t, exit)
	require.Contains(t, buf.String(), "x = 1")

	buf.Reset()
	exit = sess.dispatchCommand(context.Background(), buf, "print", []string{"x"})
	require.False(t, exit)
	require.Contains(t, buf.String(), "x = 1")
}

func TestParseLinespec(t *testing.T) {
	ls, err := parseLinespec("10", "/a.cs")
	require.NoError(t, err)
	require.Equal(t, linespec{File: "/a.cs", Line: 10}, ls)

	ls, err = parseLinespec("/b.cs:20", "")
	require.NoError(t, err)
	require.Equal(t, linespec{File: "/b.cs", Line: 20}, ls)

	ls, err = parseLinespec("Main", "")
	require.NoError(t, err)
	require.Equal(t, linespec{Func: "Main"}, ls)

	_, err = parseLinespec("10", "")
	require.Error(t, err)
}
