package cli

import (
	"context"
	"fmt"

	"github.com/coredbg/coredbg/model"
)

// handleBreak resolves a linespec (defaulting to the current stop's
// location when args is empty, mirroring the teacher's "break on current
// line") and installs it as a source or function breakpoint.
func (s *Session) handleBreak(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("break takes 0 or 1 argument")
	}

	var spec string
	if len(args) == 1 {
		spec = args[0]
	} else {
		file := s.currentFile()
		if file == "" {
			return fmt.Errorf("cannot break on current location: no current stop")
		}
		s.mu.Lock()
		line := 0
		if s.frameIdx < len(s.frames) {
			line = s.frames[s.frameIdx].Line
		}
		s.mu.Unlock()
		spec = fmt.Sprintf("%s:%d", file, line)
	}

	ls, err := parseLinespec(spec, s.currentFile())
	if err != nil {
		return err
	}

	if ls.Func != "" {
		return s.addFunctionBreakpoint(ctx, ls.Func)
	}
	return s.addSourceBreakpoint(ctx, ls.File, ls.Line)
}

func (s *Session) addSourceBreakpoint(ctx context.Context, file string, line int) error {
	s.mu.Lock()
	reqs := append(append([]model.SourceBreakpointRequest(nil), s.sourceReqs[file]...), model.SourceBreakpointRequest{Line: line})
	s.mu.Unlock()

	bps, err := s.setSourceBreakpoints(ctx, file, reqs)
	if err != nil {
		return err
	}
	return s.printBreakpoint(bps[len(bps)-1])
}

func (s *Session) addFunctionBreakpoint(ctx context.Context, name string) error {
	s.mu.Lock()
	reqs := append(append([]model.FunctionBreakpointRequest(nil), s.functionReqs...), model.FunctionBreakpointRequest{Name: name})
	s.mu.Unlock()

	bps, err := s.setFunctionBreakpoints(ctx, reqs)
	if err != nil {
		return err
	}
	return s.printBreakpoint(bps[len(bps)-1])
}

// setSourceBreakpoints submits a replace-set call for file through the
// dispatcher and records the result.
func (s *Session) setSourceBreakpoints(ctx context.Context, file string, reqs []model.SourceBreakpointRequest) ([]model.Breakpoint, error) {
	result, err := s.submit(ctx, "setBreakpoints", func(cctx context.Context) (interface{}, error) {
		return s.dbg.SetSourceBreakpoints(file, reqs), nil
	})
	if err != nil {
		return nil, err
	}
	bps := result.([]model.Breakpoint)

	s.mu.Lock()
	if len(reqs) == 0 {
		delete(s.sourceReqs, file)
		delete(s.sourceBps, file)
	} else {
		s.sourceReqs[file] = reqs
		s.sourceBps[file] = bps
	}
	s.mu.Unlock()
	return bps, nil
}

func (s *Session) setFunctionBreakpoints(ctx context.Context, reqs []model.FunctionBreakpointRequest) ([]model.Breakpoint, error) {
	result, err := s.submit(ctx, "setFunctionBreakpoints", func(cctx context.Context) (interface{}, error) {
		return s.dbg.SetFunctionBreakpoints(reqs), nil
	})
	if err != nil {
		return nil, err
	}
	bps := result.([]model.Breakpoint)

	s.mu.Lock()
	s.functionReqs = reqs
	s.functionBps = bps
	s.mu.Unlock()
	return bps, nil
}

func (s *Session) handleBreakpoints() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bps := range s.sourceBps {
		for _, bp := range bps {
			fmt.Fprintln(s.out, renderBreakpointLine(bp))
		}
	}
	for _, bp := range s.functionBps {
		fmt.Fprintln(s.out, renderBreakpointLine(bp))
	}
}

func (s *Session) handleClear(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("clear requires exactly 1 argument: <breakpoint-id>")
	}
	var id int
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		return err
	}

	s.mu.Lock()
	for file, bps := range s.sourceBps {
		for i, bp := range bps {
			if bp.ID == id {
				reqs := append(append([]model.SourceBreakpointRequest(nil), s.sourceReqs[file][:i]...), s.sourceReqs[file][i+1:]...)
				s.mu.Unlock()
				_, err := s.setSourceBreakpoints(ctx, file, reqs)
				return err
			}
		}
	}
	s.mu.Unlock()

	s.mu.Lock()
	for i, bp := range s.functionBps {
		if bp.ID == id {
			reqs := append(append([]model.FunctionBreakpointRequest(nil), s.functionReqs[:i]...), s.functionReqs[i+1:]...)
			s.mu.Unlock()
			_, err := s.setFunctionBreakpoints(ctx, reqs)
			return err
		}
	}
	s.mu.Unlock()

	return fmt.Errorf("no breakpoint with id %d", id)
}

func (s *Session) handleClearAll(ctx context.Context) error {
	s.mu.Lock()
	files := make([]string, 0, len(s.sourceReqs))
	for file := range s.sourceReqs {
		files = append(files, file)
	}
	s.mu.Unlock()

	for _, file := range files {
		if _, err := s.setSourceBreakpoints(ctx, file, nil); err != nil {
			return err
		}
	}
	_, err := s.setFunctionBreakpoints(ctx, nil)
	return err
}

func (s *Session) printBreakpoint(bp model.Breakpoint) error {
	fmt.Fprintln(s.out, renderBreakpointLine(bp))
	return nil
}
