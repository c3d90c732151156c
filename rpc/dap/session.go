// Package dap is the JSON/DAP protocol dialect: it speaks the Debug
// Adapter Protocol over stdio using google/go-dap, translating requests
// into dispatch.Command submissions against a debugger.Facade and
// translating facade events back into DAP events.
package dap

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"

	"github.com/coredbg/coredbg/debugger"
	"github.com/coredbg/coredbg/dispatch"
	"github.com/coredbg/coredbg/events"
	"github.com/coredbg/coredbg/model"
	dap "github.com/google/go-dap"
	"golang.org/x/sync/errgroup"
)

// Capability tracks an optional client capability negotiated during
// initialize, the same scheme the reference adapter uses.
type Capability int

const (
	VariableTypeCap Capability = iota
)

// Session owns one DAP connection: one request reader, one response/event
// writer, and a dispatch.Dispatcher that serializes everything in between.
type Session struct {
	dbg  debugger.Facade
	disp *dispatch.Dispatcher
	rw   *bufio.ReadWriter

	cancel context.CancelFunc
	err    error

	sendQueue chan dap.Message

	mu   sync.Mutex
	caps map[Capability]struct{}
}

// NewSession wires a fresh dispatch.Dispatcher to dbg and stdio. Call
// Serve to run it.
func NewSession(dbg debugger.Facade, stdin io.Reader, stdout io.Writer) *Session {
	s := &Session{
		dbg:       dbg,
		rw:        bufio.NewReadWriter(bufio.NewReader(stdin), bufio.NewWriter(stdout)),
		sendQueue: make(chan dap.Message, 64),
		caps:      make(map[Capability]struct{}),
	}
	s.disp = dispatch.New(s.emitEvent)
	return s
}

// Serve runs the session to completion: the command worker, the event
// pump, the send loop, and the request-read loop, returning when the
// client disconnects or ctx is cancelled. Grounded on
// rpc/dapserver/server.go's Listen, which runs the same four
// responsibilities under an errgroup.
func (s *Session) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.disp.Run(ctx)
		return nil
	})

	stop := make(chan struct{})
	defer close(stop)
	g.Go(func() error {
		s.disp.PumpEvents(stop, s.dbg.Events())
		return nil
	})

	g.Go(func() error {
		return s.sendFromQueue(ctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if err := s.handleRequest(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return s.err
}

func (s *Session) handleRequest(ctx context.Context) error {
	msg, err := dap.ReadProtocolMessage(s.rw.Reader)
	if err != nil {
		return err
	}
	if req, ok := msg.(dap.RequestMessage); ok {
		s.dispatchRequest(ctx, req)
	}
	return nil
}

func (s *Session) send(msgs ...dap.Message) {
	for _, msg := range msgs {
		s.sendQueue <- msg
	}
}

func (s *Session) sendFromQueue(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-s.sendQueue:
			dap.WriteProtocolMessage(s.rw.Writer, msg)
			s.rw.Flush()
		}
	}
}

// dispatchRequest classifies req against the disruptive/synchronous/setup
// sets dispatch.Dispatcher understands and submits it as a command; the
// actual onXRequest handler runs on the dispatcher's worker goroutine.
func (s *Session) dispatchRequest(ctx context.Context, msg dap.RequestMessage) {
	name, requestID := commandName(msg)

	s.disp.Submit(dispatch.Command{
		Name:      name,
		RequestID: requestID,
		Run: func(cctx context.Context) (interface{}, error) {
			return nil, s.handle(cctx, msg)
		},
		Respond: func(_ interface{}, err error) {
			if err == nil {
				return
			}
			log.Printf("dap: %s failed: %v", name, err)
			if errors.Is(err, errDebugExit) {
				s.send(&dap.TerminatedEvent{Event: newEvent("terminated")})
				s.err = err
				s.cancel()
				return
			}
			s.send(newErrorResponse(msg, err))
		},
	})
}

// errDebugExit is returned by a handler to signal the debuggee (and thus
// the session) has exited normally.
var errDebugExit = errors.New("debuggee exited")

func (s *Session) handle(ctx context.Context, msg dap.RequestMessage) error {
	switch req := msg.(type) {
	case *dap.InitializeRequest:
		return s.onInitializeRequest(ctx, req)
	case *dap.LaunchRequest:
		return s.onLaunchRequest(ctx, req)
	case *dap.AttachRequest:
		return s.onAttachRequest(ctx, req)
	case *dap.DisconnectRequest:
		return s.onDisconnectRequest(ctx, req)
	case *dap.TerminateRequest:
		return s.onTerminateRequest(ctx, req)
	case *dap.SetBreakpointsRequest:
		return s.onSetBreakpointsRequest(ctx, req)
	case *dap.SetFunctionBreakpointsRequest:
		return s.onSetFunctionBreakpointsRequest(ctx, req)
	case *dap.SetExceptionBreakpointsRequest:
		return s.onSetExceptionBreakpointsRequest(ctx, req)
	case *dap.ConfigurationDoneRequest:
		return s.onConfigurationDoneRequest(ctx, req)
	case *dap.ContinueRequest:
		return s.onContinueRequest(ctx, req)
	case *dap.NextRequest:
		return s.onNextRequest(ctx, req)
	case *dap.StepInRequest:
		return s.onStepInRequest(ctx, req)
	case *dap.StepOutRequest:
		return s.onStepOutRequest(ctx, req)
	case *dap.PauseRequest:
		return s.onPauseRequest(ctx, req)
	case *dap.StackTraceRequest:
		return s.onStackTraceRequest(ctx, req)
	case *dap.ScopesRequest:
		return s.onScopesRequest(ctx, req)
	case *dap.VariablesRequest:
		return s.onVariablesRequest(ctx, req)
	case *dap.SetVariableRequest:
		return s.onSetVariableRequest(ctx, req)
	case *dap.ThreadsRequest:
		return s.onThreadsRequest(ctx, req)
	case *dap.EvaluateRequest:
		return s.onEvaluateRequest(ctx, req)
	case *dap.CancelRequest:
		return s.onCancelRequest(ctx, req)
	default:
		return fmt.Errorf("unsupported request %T", req)
	}
}

// commandName maps a DAP request to the dispatch.Command name that the
// disruptive/synchronous/setup classification tables key off of, and
// extracts a RequestID for CancelRequest to reference.
func commandName(msg dap.RequestMessage) (name, requestID string) {
	req := msg.GetRequest()
	requestID = fmt.Sprintf("%d", req.Seq)
	switch msg.(type) {
	case *dap.ContinueRequest:
		return "continue", requestID
	case *dap.NextRequest:
		return "next", requestID
	case *dap.StepInRequest:
		return "step-in", requestID
	case *dap.StepOutRequest:
		return "step-out", requestID
	case *dap.DisconnectRequest:
		return "disconnect", requestID
	case *dap.TerminateRequest:
		return "terminate", requestID
	default:
		return req.Command, requestID
	}
}

func (s *Session) onInitializeRequest(ctx context.Context, req *dap.InitializeRequest) error {
	s.mu.Lock()
	if req.Arguments.SupportsVariableType {
		s.caps[VariableTypeCap] = struct{}{}
	}
	s.mu.Unlock()

	s.send(&dap.InitializeResponse{
		Response: newResponse(req),
		Body: dap.Capabilities{
			SupportsConfigurationDoneRequest: true,
			SupportsFunctionBreakpoints:      true,
			SupportsConditionalBreakpoints:   true,
			SupportsEvaluateForHovers:        true,
			ExceptionBreakpointFilters:       exceptionFilters(),
			SupportsSetVariable:              true,
			SupportsExceptionOptions:         true,
			SupportsTerminateRequest:         true,
			SupportsCancelRequest:            true,
			SupportTerminateDebuggee:         true,
		},
	}, &dap.InitializedEvent{Event: newEvent("initialized")})
	return nil
}

func exceptionFilters() []dap.ExceptionBreakpointsFilter {
	return []dap.ExceptionBreakpointsFilter{
		{Filter: "throw", Label: "All Exceptions", Default: false},
		{Filter: "user-unhandled", Label: "User-Unhandled Exceptions", Default: true},
	}
}

func (s *Session) onLaunchRequest(ctx context.Context, req *dap.LaunchRequest) error {
	var args struct {
		Program     string   `json:"program"`
		Args        []string `json:"args"`
		Env         []string `json:"env"`
		StopAtEntry bool     `json:"stopAtEntry"`
	}
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		return fmt.Errorf("launch: %w", err)
	}
	s.dbg.SetStopAtEntry(args.StopAtEntry)
	if err := s.dbg.Launch(args.Program, args.Args, args.Env); err != nil {
		return err
	}
	s.send(&dap.LaunchResponse{Response: newResponse(req)})
	return nil
}

func (s *Session) onAttachRequest(ctx context.Context, req *dap.AttachRequest) error {
	var args struct {
		ProcessID int `json:"processId"`
	}
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	if err := s.dbg.Attach(args.ProcessID); err != nil {
		return err
	}
	s.send(&dap.AttachResponse{Response: newResponse(req)})
	return nil
}

func (s *Session) onDisconnectRequest(ctx context.Context, req *dap.DisconnectRequest) error {
	s.send(&dap.DisconnectResponse{Response: newResponse(req)})
	err := s.dbg.Disconnect(req.Arguments.TerminateDebuggee)
	if err != nil {
		return err
	}
	return errDebugExit
}

func (s *Session) onTerminateRequest(ctx context.Context, req *dap.TerminateRequest) error {
	s.send(&dap.TerminateResponse{Response: newResponse(req)})
	if err := s.dbg.Terminate(); err != nil {
		return err
	}
	return errDebugExit
}

func (s *Session) onSetBreakpointsRequest(ctx context.Context, req *dap.SetBreakpointsRequest) error {
	if req.Arguments.Source.Path == "" {
		return fmt.Errorf("setBreakpoints: missing source path")
	}
	reqs := make([]model.SourceBreakpointRequest, len(req.Arguments.Breakpoints))
	for i, want := range req.Arguments.Breakpoints {
		reqs[i] = model.SourceBreakpointRequest{Line: want.Line, Column: want.Column, Condition: want.Condition}
	}
	bps := s.dbg.SetSourceBreakpoints(req.Arguments.Source.Path, reqs)

	resp := &dap.SetBreakpointsResponse{Response: newResponse(req)}
	resp.Body.Breakpoints = make([]dap.Breakpoint, len(bps))
	for i, bp := range bps {
		resp.Body.Breakpoints[i] = renderBreakpoint(bp)
	}
	s.send(resp)
	return nil
}

func renderBreakpoint(bp model.Breakpoint) dap.Breakpoint {
	out := dap.Breakpoint{
		Id:       bp.ID,
		Verified: bp.Verified,
		Message:  bp.Message,
		Line:     bp.Line,
	}
	if bp.Source != nil {
		out.Source = &dap.Source{Name: bp.Source.Name, Path: bp.Source.Path}
	}
	return out
}

func (s *Session) onSetFunctionBreakpointsRequest(ctx context.Context, req *dap.SetFunctionBreakpointsRequest) error {
	reqs := make([]model.FunctionBreakpointRequest, len(req.Arguments.Breakpoints))
	for i, want := range req.Arguments.Breakpoints {
		reqs[i] = model.FunctionBreakpointRequest{Name: want.Name, Condition: want.Condition}
	}
	bps := s.dbg.SetFunctionBreakpoints(reqs)

	resp := &dap.SetFunctionBreakpointsResponse{Response: newResponse(req)}
	resp.Body.Breakpoints = make([]dap.Breakpoint, len(bps))
	for i, bp := range bps {
		resp.Body.Breakpoints[i] = renderBreakpoint(bp)
	}
	s.send(resp)
	return nil
}

func (s *Session) onSetExceptionBreakpointsRequest(ctx context.Context, req *dap.SetExceptionBreakpointsRequest) error {
	var combined model.ExceptionFilter
	for _, f := range req.Arguments.Filters {
		switch f {
		case "throw":
			combined |= model.FilterThrow
		case "user-unhandled":
			combined |= model.FilterUserUnhandled
		default:
			combined |= model.FilterUnhandled
		}
	}
	s.dbg.SetExceptionBreakpoints([]model.ExceptionFilter{combined}, nil, model.CategoryCLR)
	s.send(&dap.SetExceptionBreakpointsResponse{Response: newResponse(req)})
	return nil
}

func (s *Session) onConfigurationDoneRequest(ctx context.Context, req *dap.ConfigurationDoneRequest) error {
	s.send(&dap.ConfigurationDoneResponse{Response: newResponse(req)})
	return nil
}

func (s *Session) onContinueRequest(ctx context.Context, req *dap.ContinueRequest) error {
	s.send(&dap.ContinueResponse{
		Response: newResponse(req),
		Body:     dap.ContinueResponseBody{AllThreadsContinued: true},
	})
	return s.dbg.Continue()
}

func (s *Session) onNextRequest(ctx context.Context, req *dap.NextRequest) error {
	s.send(&dap.NextResponse{Response: newResponse(req)})
	return s.dbg.StepOver(model.ThreadId(req.Arguments.ThreadId))
}

func (s *Session) onStepInRequest(ctx context.Context, req *dap.StepInRequest) error {
	s.send(&dap.StepInResponse{Response: newResponse(req)})
	return s.dbg.StepIn(model.ThreadId(req.Arguments.ThreadId))
}

func (s *Session) onStepOutRequest(ctx context.Context, req *dap.StepOutRequest) error {
	s.send(&dap.StepOutResponse{Response: newResponse(req)})
	return s.dbg.StepOut(model.ThreadId(req.Arguments.ThreadId))
}

func (s *Session) onPauseRequest(ctx context.Context, req *dap.PauseRequest) error {
	s.send(&dap.PauseResponse{Response: newResponse(req)})
	return s.dbg.Pause()
}

func (s *Session) onThreadsRequest(ctx context.Context, req *dap.ThreadsRequest) error {
	threads := s.dbg.Threads()
	out := make([]dap.Thread, len(threads))
	for i, id := range threads {
		out[i] = dap.Thread{Id: int(id), Name: fmt.Sprintf("Thread #%d", int(id))}
	}
	s.send(&dap.ThreadsResponse{
		Response: newResponse(req),
		Body:     dap.ThreadsResponseBody{Threads: out},
	})
	return nil
}

func (s *Session) onStackTraceRequest(ctx context.Context, req *dap.StackTraceRequest) error {
	thread := model.ThreadId(req.Arguments.ThreadId)
	low := model.FrameLevel(req.Arguments.StartFrame)
	high := model.FrameLevel(req.Arguments.StartFrame + req.Arguments.Levels)
	if req.Arguments.Levels == 0 {
		high = model.FrameLevel(1 << 30)
	}

	frames, err := s.dbg.StackTrace(thread, low, high)
	if err != nil {
		return err
	}
	out := make([]dap.StackFrame, len(frames))
	for i, fr := range frames {
		src := renderSource(fr.Source.Path)
		out[i] = dap.StackFrame{
			Id:     int(fr.Id),
			Name:   fr.Name,
			Line:   fr.Line,
			Column: fr.Column,
			Source: &src,
		}
	}
	s.send(&dap.StackTraceResponse{
		Response: newResponse(req),
		Body:     dap.StackTraceResponseBody{StackFrames: out, TotalFrames: len(out)},
	})
	return nil
}

func (s *Session) onScopesRequest(ctx context.Context, req *dap.ScopesRequest) error {
	scopes, err := s.dbg.Scopes(model.FrameId(req.Arguments.FrameId))
	if err != nil {
		return err
	}
	out := make([]dap.Scope, len(scopes))
	for i, sc := range scopes {
		out[i] = dap.Scope{
			Name:               sc.Name,
			VariablesReference: sc.VariablesReference,
			NamedVariables:     sc.NamedVariables,
			Expensive:          sc.Expensive,
		}
	}
	s.send(&dap.ScopesResponse{
		Response: newResponse(req),
		Body:     dap.ScopesResponseBody{Scopes: out},
	})
	return nil
}

func (s *Session) onVariablesRequest(ctx context.Context, req *dap.VariablesRequest) error {
	filter := model.FilterBoth
	switch req.Arguments.Filter {
	case "named":
		filter = model.FilterNamed
	case "indexed":
		filter = model.FilterIndexed
	}
	vars, err := s.dbg.Variables(req.Arguments.VariablesReference, filter, req.Arguments.Start, req.Arguments.Count)
	if err != nil {
		return err
	}

	s.mu.Lock()
	_, hasType := s.caps[VariableTypeCap]
	s.mu.Unlock()

	out := make([]dap.Variable, len(vars))
	for i, v := range vars {
		out[i] = dap.Variable{
			Name:               v.Name,
			Value:              v.Value,
			EvaluateName:       v.EvaluateName,
			VariablesReference: v.VariablesReference,
			NamedVariables:     v.NamedVariables,
			IndexedVariables:   v.IndexedVariables,
		}
		if hasType {
			out[i].Type = v.Type
		}
	}
	s.send(&dap.VariablesResponse{
		Response: newResponse(req),
		Body:     dap.VariablesResponseBody{Variables: out},
	})
	return nil
}

func (s *Session) onSetVariableRequest(ctx context.Context, req *dap.SetVariableRequest) error {
	newValue, err := s.dbg.SetVariable(ctx, req.Arguments.VariablesReference, req.Arguments.Name, req.Arguments.Value)
	if err != nil {
		return err
	}
	s.send(&dap.SetVariableResponse{
		Response: newResponse(req),
		Body:     dap.SetVariableResponseBody{Value: newValue},
	})
	return nil
}

func (s *Session) onEvaluateRequest(ctx context.Context, req *dap.EvaluateRequest) error {
	v, err := s.dbg.Evaluate(ctx, model.FrameId(req.Arguments.FrameId), req.Arguments.Expression)
	if err != nil {
		return err
	}
	s.send(&dap.EvaluateResponse{
		Response: newResponse(req),
		Body: dap.EvaluateResponseBody{
			Result:             v.Value,
			Type:               v.Type,
			VariablesReference: v.VariablesReference,
			NamedVariables:     v.NamedVariables,
			IndexedVariables:   v.IndexedVariables,
		},
	})
	return nil
}

func (s *Session) onCancelRequest(ctx context.Context, req *dap.CancelRequest) error {
	if req.Arguments.RequestId != 0 {
		s.disp.CancelByRequestID(fmt.Sprintf("%d", req.Arguments.RequestId))
	}
	s.send(&dap.CancelResponse{Response: newResponse(req)})
	return nil
}

func renderSource(fullname string) dap.Source {
	return dap.Source{Name: filepath.Base(fullname), Path: fullname}
}
