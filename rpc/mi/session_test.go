package mi

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/coredbg/coredbg/debugger"
	"github.com/coredbg/coredbg/events"
	"github.com/coredbg/coredbg/model"
	"github.com/stretchr/testify/require"
)

type fakeFacade struct {
	evCh       chan events.Event
	continued  bool
	breakpoint model.Breakpoint
	frames     []model.StackFrame
}

func newFakeFacade() *fakeFacade {
	return &fakeFacade{
		evCh:       make(chan events.Event, 8),
		breakpoint: model.Breakpoint{ID: 1, Verified: true, Line: 10, Source: &model.Source{Path: "/a.cs"}},
		frames:     []model.StackFrame{{Id: 1, Name: "Program.Main", Source: model.Source{Path: "/a.cs"}, Line: 10}},
	}
}

func (f *fakeFacade) Close() error                             { return nil }
func (f *fakeFacade) Attach(pid int) error                     { return nil }
func (f *fakeFacade) Launch(string, []string, []string) error  { return nil }
func (f *fakeFacade) Disconnect(bool) error                    { return nil }
func (f *fakeFacade) Terminate() error                         { return nil }
func (f *fakeFacade) Continue() error                          { f.continued = true; return nil }
func (f *fakeFacade) Pause() error                              { return nil }
func (f *fakeFacade) StepIn(model.ThreadId) error               { return nil }
func (f *fakeFacade) StepOver(model.ThreadId) error             { return nil }
func (f *fakeFacade) StepOut(model.ThreadId) error              { return nil }
func (f *fakeFacade) Threads() []model.ThreadId                 { return []model.ThreadId{1} }
func (f *fakeFacade) StackTrace(model.ThreadId, model.FrameLevel, model.FrameLevel) ([]model.StackFrame, error) {
	return f.frames, nil
}
func (f *fakeFacade) Scopes(model.FrameId) ([]model.Scope, error) { return nil, nil }
func (f *fakeFacade) Variables(int, model.VariableFilter, int, int) ([]model.Variable, error) {
	return nil, nil
}
func (f *fakeFacade) Evaluate(context.Context, model.FrameId, string) (model.Variable, error) {
	return model.Variable{Name: "x", Value: "1"}, nil
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
func (f *fakeFacade) Events() <-chan events.Event    { return f.evCh }

var _ debugger.Facade = (*fakeFacade)(nil)

func TestSessionBreakInsertAndContinue(t *testing.T) {
	fake := newFakeFacade()
	out := &bytes.Buffer{}
	sess := NewSession(fake, out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	in := strings.NewReader("1-break-insert /a.cs:10\n2-exec-continue\n")

	done := make(chan error, 1)
	go func() { done <- sess.Serve(ctx, in) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "1^done,bkpt=") && strings.Contains(out.String(), "2^running")
	}, time.Second, 10*time.Millisecond)

	require.True(t, fake.continued)
	require.Contains(t, out.String(), `number="1"`)
}

func TestSessionStoppedEventEmitsAsyncRecord(t *testing.T) {
	fake := newFakeFacade()
	out := &bytes.Buffer{}
	sess := NewSession(fake, out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pr, pw := io.Pipe()
	defer pw.Close()
	go sess.Serve(ctx, pr)

	fake.evCh <- events.Event{Kind: events.KindStopped, Stopped: &model.StoppedEvent{Reason: model.StopBreakpoint, ThreadId: 1}}

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `*stopped,reason="breakpoint-hit"`)
	}, time.Second, 10*time.Millisecond)
}

func TestParseRequest(t *testing.T) {
	req, err := parseRequest(`5-break-insert /a.cs:10`)
	require.NoError(t, err)
	require.Equal(t, "5", req.token)
	require.Equal(t, "break-insert", req.cmd)
	require.Equal(t, []string{"/a.cs:10"}, req.args)

	_, err = parseRequest("not-a-command")
	require.Error(t, err)
}
