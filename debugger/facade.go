// Package debugger composes the breakpoint engine, stepper, frame
// walker, variable reference table and eval queue into the stable
// capability surface (§2 item 5) that every protocol front end drives:
// attach/launch, continue/pause/step, threads/stack/scopes/variables,
// evaluate, breakpoints of every kind, disconnect, and completion
// lookup.
package debugger

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/coredbg/coredbg/breakpoints"
	"github.com/coredbg/coredbg/events"
	"github.com/coredbg/coredbg/eval"
	"github.com/coredbg/coredbg/frames"
	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
	"github.com/coredbg/coredbg/stepper"
	"github.com/coredbg/coredbg/varref"
	"github.com/pkg/errors"
)

// Facade is the surface every rpc front end (dap, mi, cli) drives.
type Facade interface {
	io.Closer

	Attach(pid int) error
	Launch(path string, args, env []string) error
	Disconnect(terminateDebuggee bool) error
	Terminate() error

	Continue() error
	Pause() error
	StepIn(thread model.ThreadId) error
	StepOver(thread model.ThreadId) error
	StepOut(thread model.ThreadId) error

	Threads() []model.ThreadId
	StackTrace(thread model.ThreadId, low, high model.FrameLevel) ([]model.StackFrame, error)
	Scopes(frame model.FrameId) ([]model.Scope, error)
	Variables(ref int, filter model.VariableFilter, start, count int) ([]model.Variable, error)
	Evaluate(ctx context.Context, frame model.FrameId, expr string) (model.Variable, error)
	SetVariable(ctx context.Context, parentRef int, name, value string) (string, error)

	SetSourceBreakpoints(fullname string, reqs []model.SourceBreakpointRequest) []model.Breakpoint
	SetFunctionBreakpoints(reqs []model.FunctionBreakpointRequest) []model.Breakpoint
	SetExceptionBreakpoints(filters []model.ExceptionFilter, names []string, category model.ExceptionCategory) []int
	SetStopAtEntry(stop bool)

	FindByPattern(prefix string) []string

	Events() <-chan events.Event
}

type facade struct {
	dbg runtime.Debuggee

	breakpoints *breakpoints.Store
	controller  *stepper.Controller
	steps       *stepper.Manager
	frames      *frames.Walker
	refs        *varref.Table
	evalQueue   *eval.Queue

	mu         sync.Mutex
	exeFile    string
	outEvents  chan events.Event
	stopPoll   chan struct{}
	stopPollWG sync.WaitGroup
}

// New composes a Facade over dbg.
func New(dbg runtime.Debuggee) Facade {
	f := &facade{
		dbg:        dbg,
		controller: stepper.NewController(),
		steps:      stepper.NewManager(dbg),
		refs:       varref.New(),
		evalQueue:  eval.NewQueue(dbg),
		outEvents:  make(chan events.Event, 64),
		stopPoll:   make(chan struct{}),
	}
	f.breakpoints = breakpoints.NewStore(resolverAdapter{dbg})
	f.frames = frames.New(dbg, f.refs)

	f.stopPollWG.Add(1)
	go f.pump()
	return f
}

// resolverAdapter narrows runtime.Debuggee to breakpoints.Resolver.
type resolverAdapter struct{ dbg runtime.Debuggee }

func (r resolverAdapter) ResolveLine(mod model.ModuleID, fullname string, line int) (runtime.BreakpointLocation, bool, error) {
	return r.dbg.ResolveLine(mod, fullname, line)
}
func (r resolverAdapter) ResolveFunction(mod model.ModuleID, name string, params []string) ([]runtime.BreakpointLocation, error) {
	return r.dbg.ResolveFunction(mod, name, params)
}
func (r resolverAdapter) EntryPoint(mod model.ModuleID) (runtime.BreakpointLocation, bool) {
	return r.dbg.EntryPoint(mod)
}
func (r resolverAdapter) SetBreakpoint(loc runtime.BreakpointLocation) (model.NativeHandle, error) {
	return r.dbg.SetBreakpoint(loc)
}
func (r resolverAdapter) ClearBreakpoint(h model.NativeHandle) error {
	return r.dbg.ClearBreakpoint(h)
}

func (f *facade) Events() <-chan events.Event { return f.outEvents }

func (f *facade) emit(ev events.Event) {
	select {
	case f.outEvents <- ev:
	default:
		// A stalled consumer must never block the pump; drop rather than
		// deadlock the dispatcher's single output path.
	}
}

func (f *facade) Close() error {
	close(f.stopPoll)
	f.stopPollWG.Wait()
	return f.dbg.Close()
}

func (f *facade) Attach(pid int) error {
	if err := f.dbg.Attach(pid); err != nil {
		return errors.Wrap(err, "attach")
	}
	f.controller.Started()
	return nil
}

func (f *facade) Launch(path string, args, env []string) error {
	f.mu.Lock()
	f.exeFile = path
	f.mu.Unlock()
	if err := f.dbg.Launch(path, args, env); err != nil {
		return errors.Wrap(err, "launch")
	}
	f.controller.Started()
	return nil
}

func (f *facade) Disconnect(terminateDebuggee bool) error {
	f.cancelAllEvals()
	return f.dbg.Detach(terminateDebuggee)
}

func (f *facade) Terminate() error {
	f.cancelAllEvals()
	return f.dbg.Terminate()
}

func (f *facade) cancelAllEvals() {
	for _, th := range f.dbg.Threads() {
		f.evalQueue.Cancel(th)
		f.steps.Clear(th)
	}
}

func (f *facade) Continue() error {
	if f.controller.State() != stepper.Paused {
		return model.Errorf(model.KindWrongState, "continue: process is not paused")
	}
	f.refs.Clear()
	f.controller.Resumed()
	if err := f.dbg.Continue(); err != nil {
		return errors.Wrap(err, "continue")
	}
	f.emit(events.Event{Kind: events.KindContinued, AllThreadsContinued: true})
	return nil
}

func (f *facade) Pause() error {
	if f.controller.State() != stepper.Running {
		return model.Errorf(model.KindWrongState, "pause: process is not running")
	}
	return f.dbg.Pause()
}

func (f *facade) requirePaused(kind string) error {
	if f.controller.State() != stepper.Paused {
		return model.Errorf(model.KindWrongState, "%s: process is not paused", kind)
	}
	return nil
}

func (f *facade) StepIn(thread model.ThreadId) error {
	if err := f.requirePaused("step-in"); err != nil {
		return err
	}
	f.refs.Clear()
	f.controller.Resumed()
	return f.steps.StartSimple(thread, runtime.StepInto)
}

func (f *facade) StepOver(thread model.ThreadId) error {
	if err := f.requirePaused("step-over"); err != nil {
		return err
	}
	f.refs.Clear()
	f.controller.Resumed()
	if loc, asyncID, ok := f.dbg.AsyncYieldBreakpoint(thread); ok {
		return f.steps.StartAsync(thread, loc, asyncID)
	}
	return f.steps.StartSimple(thread, runtime.StepOver)
}

func (f *facade) StepOut(thread model.ThreadId) error {
	if err := f.requirePaused("step-out"); err != nil {
		return err
	}
	f.refs.Clear()
	f.controller.Resumed()
	return f.steps.StartSimple(thread, runtime.StepOutOf)
}

func (f *facade) Threads() []model.ThreadId {
	return f.dbg.Threads()
}

func (f *facade) StackTrace(thread model.ThreadId, low, high model.FrameLevel) ([]model.StackFrame, error) {
	if err := f.requirePaused("stackTrace"); err != nil {
		return nil, err
	}
	return f.frames.Walk(thread, low, high)
}

func (f *facade) Scopes(frameID model.FrameId) ([]model.Scope, error) {
	thread, level, ok := f.refs.ResolveFrame(frameID)
	if !ok {
		return nil, model.Errorf(model.KindInvalidArgument, "scopes: unknown frame id")
	}
	infos, err := f.dbg.GetScopes(thread, level)
	if err != nil {
		return nil, err
	}
	out := make([]model.Scope, 0, len(infos))
	for _, si := range infos {
		ref := f.refs.NewReference(model.VariableReference{
			Kind:           model.ValueScope,
			Value:          si.Value,
			FrameId:        frameID,
			NamedVariables: si.NamedVariables,
		})
		out = append(out, model.Scope{
			Name:               si.Name,
			VariablesReference: ref,
			NamedVariables:     si.NamedVariables,
			Expensive:          si.Expensive,
		})
	}
	return out, nil
}

func (f *facade) Variables(ref int, filter model.VariableFilter, start, count int) ([]model.Variable, error) {
	vr, ok := f.refs.Resolve(ref)
	if !ok {
		return nil, model.Errorf(model.KindInvalidArgument, "variables: unknown variablesReference")
	}
	children, err := f.dbg.GetChildren(vr.Value, filter, start, count)
	if err != nil {
		return nil, err
	}
	return f.renderChildren(vr, children), nil
}

func (f *facade) renderChildren(parent model.VariableReference, children []runtime.ChildInfo) []model.Variable {
	out := make([]model.Variable, 0, len(children))
	seen := make(map[string]int)
	for _, c := range children {
		name := c.Name
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
		} else {
			seen[name] = 1
		}
	}
	counts := make(map[string]int, len(children))
	for _, c := range children {
		name := c.Name
		counts[name]++
		displayName := name
		if seen[name] > 1 && counts[name] < seen[name] {
			// Shadowed inherited member: disambiguate by the child's type
			// name (runtime.ChildInfo carries no declaring type).
			displayName = fmt.Sprintf("%s (%s)", name, c.Type)
		}

		v := model.Variable{
			Name:         displayName,
			Value:        c.Text,
			Type:         c.Type,
			EvaluateName: c.EvaluateName,
		}
		if c.HasChildren {
			v.VariablesReference = f.refs.NewReference(model.VariableReference{
				Kind:    model.ValueVariable,
				Value:   c.Value,
				FrameId: parent.FrameId,
			})
			v.NamedVariables = c.NamedVariables
			v.IndexedVariables = c.IndexedVariables
		}
		out = append(out, v)
	}
	return out
}

func (f *facade) Evaluate(ctx context.Context, frameID model.FrameId, expr string) (model.Variable, error) {
	thread, level, ok := f.refs.ResolveFrame(frameID)
	if !ok {
		return model.Variable{}, model.Errorf(model.KindInvalidArgument, "evaluate: unknown frame id")
	}
	// Scheduled through evalQueue.Run, not a direct EvaluateExpr call:
	// resolving expr may need to run a property getter, and §4.7 requires
	// at most one evaluation in flight per thread.
	val, err := f.evalQueue.Run(ctx, runtime.EvalRequest{Thread: thread, Frame: level, Expr: expr})
	if err != nil {
		return model.Variable{}, err
	}
	text, typ, err := f.dbg.FormatValue(val)
	if err != nil {
		return model.Variable{}, err
	}
	ref := 0
	children, err := f.dbg.GetChildren(val, model.FilterBoth, 0, 1)
	if err == nil && len(children) > 0 {
		ref = f.refs.NewReference(model.VariableReference{Kind: model.ValueVariable, Value: val, FrameId: frameID})
	}
	return model.Variable{Name: expr, Value: text, Type: typ, EvaluateName: expr, VariablesReference: ref}, nil
}

func (f *facade) SetVariable(ctx context.Context, parentRef int, name, value string) (string, error) {
	vr, ok := f.refs.Resolve(parentRef)
	if !ok {
		return "", model.Errorf(model.KindInvalidArgument, "setVariable: unknown variablesReference")
	}
	return f.dbg.SetChild(vr.Value, name, value)
}

func (f *facade) SetSourceBreakpoints(fullname string, reqs []model.SourceBreakpointRequest) []model.Breakpoint {
	return f.breakpoints.SetSourceBreakpoints(fullname, reqs)
}

func (f *facade) SetFunctionBreakpoints(reqs []model.FunctionBreakpointRequest) []model.Breakpoint {
	return f.breakpoints.SetFunctionBreakpoints(reqs)
}

func (f *facade) SetExceptionBreakpoints(filters []model.ExceptionFilter, names []string, category model.ExceptionCategory) []int {
	if len(names) == 0 {
		names = []string{model.GlobalExceptionName}
	}
	ids := make([]int, 0, len(names))
	for i, name := range names {
		var filter model.ExceptionFilter
		if i < len(filters) {
			filter = filters[i]
		} else if len(filters) > 0 {
			filter = filters[0]
		}
		id := f.breakpoints.AllocID()
		f.breakpoints.Exceptions.Insert(&model.ExceptionBreakpoint{
			ID:        id,
			Filter:    filter,
			Category:  category,
			Condition: map[string]struct{}{name: {}},
		})
		ids = append(ids, id)
	}
	return ids
}

func (f *facade) SetStopAtEntry(stop bool) {
	f.breakpoints.SetStopAtEntry(stop)
}

// FindByPattern returns every function-breakpoint name and loaded module
// name that starts with prefix. Source file names are not searched.
func (f *facade) FindByPattern(prefix string) []string {
	var out []string
	f.breakpoints.EnumerateFunctionBreakpoints(func(bp *model.FunctionBreakpoint) bool {
		if strings.HasPrefix(bp.Name, prefix) {
			out = append(out, bp.Name)
		}
		return true
	})
	for _, mod := range f.dbg.Modules() {
		if strings.HasPrefix(mod.Name, prefix) {
			out = append(out, mod.Name)
		}
	}
	return out
}

// pump forwards runtime events and eval completions into their handlers
// until Close. This is the one goroutine, besides the command worker,
// that touches the controller/breakpoints/eval state from callback
// context, matching §5's "runtime-callback threads" actor.
func (f *facade) pump() {
	defer f.stopPollWG.Done()
	for {
		select {
		case <-f.stopPoll:
			return
		case ev, ok := <-f.dbg.Events():
			if !ok {
				return
			}
			f.handleRuntimeEvent(ev)
		case res, ok := <-f.dbg.EvalResults():
			if !ok {
				continue
			}
			f.evalQueue.Complete(res)
		}
	}
}
