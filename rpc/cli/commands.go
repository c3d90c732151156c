package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/coredbg/coredbg/model"
)

// dispatchCommand runs one parsed command line, writing its result or
// error to out. It returns true when the session should end.
func (s *Session) dispatchCommand(ctx context.Context, out io.Writer, cmd string, args []string) bool {
	var err error
	switch cmd {
	case "continue", "c":
		_, err = s.submit(ctx, "continue", func(cctx context.Context) (interface{}, error) {
			return nil, s.dbg.Continue()
		})
	case "next", "n":
		err = s.stepCommand(ctx, "next", s.dbg.StepOver)
	case "step", "s":
		err = s.stepCommand(ctx, "step-in", s.dbg.StepIn)
	case "stepout":
		err = s.stepCommand(ctx, "step-out", s.dbg.StepOut)
	case "pause":
		_, err = s.submit(ctx, "pause", func(cctx context.Context) (interface{}, error) {
			return nil, s.dbg.Pause()
		})

	case "break", "b":
		err = s.handleBreak(ctx, args)
	case "breakpoints", "bp":
		s.handleBreakpoints()
	case "clear":
		err = s.handleClear(ctx, args)
	case "clearall":
		err = s.handleClearAll(ctx)

	case "threads":
		s.handleThreads(out)
	case "backtrace", "bt":
		err = s.handleBacktrace(ctx, out)
	case "frame":
		err = s.handleFrame(out, args)
	case "args":
		err = s.handleArgs(ctx, out)
	case "print", "p":
		err = s.handlePrint(ctx, out, args)
	case "set":
		err = s.handleSet(ctx, args)
	case "list", "ls":
		err = s.handleList(out)

	case "help", "?":
		printHelp(out)
	case "exit", "quit", "q":
		return true

	default:
		fmt.Fprintf(out, "%s\n", s.color.Sprintf(s.color.Red("unrecognized command: %s"), cmd))
		return false
	}

	if err != nil {
		fmt.Fprintf(out, "%s\n", s.color.Sprintf(s.color.Red("command failed: %s"), err.Error()))
	}
	return false
}

func (s *Session) stepCommand(ctx context.Context, name string, fn func(model.ThreadId) error) error {
	thread := s.currentThread()
	if thread == model.InvalidThread {
		return fmt.Errorf("%s: no stopped thread selected", name)
	}
	_, err := s.submit(ctx, name, func(cctx context.Context) (interface{}, error) {
		return nil, fn(thread)
	})
	return err
}

func (s *Session) handleArgs(ctx context.Context, out io.Writer) error {
	frame, ok := s.selectedFrame()
	if !ok {
		return fmt.Errorf("no current frame")
	}
	scopes, err := s.dbg.Scopes(frame)
	if err != nil {
		return err
	}
	for _, scope := range scopes {
		if scope.Name != "Arguments" {
			continue
		}
		vars, err := s.dbg.Variables(scope.VariablesReference, model.FilterBoth, 0, 0)
		if err != nil {
			return err
		}
		for _, v := range vars {
			fmt.Fprintf(out, "%s = %s\n", v.Name, v.Value)
		}
		return nil
	}
	return nil
}

func (s *Session) handlePrint(ctx context.Context, out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("print requires exactly 1 argument")
	}
	frame, ok := s.selectedFrame()
	if !ok {
		return fmt.Errorf("no current frame")
	}
	v, err := s.dbg.Evaluate(ctx, frame, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s = %s\n", v.Name, v.Value)
	return nil
}

func (s *Session) handleSet(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("set requires exactly 2 arguments: <name> <value>")
	}
	frame, ok := s.selectedFrame()
	if !ok {
		return fmt.Errorf("no current frame")
	}
	scopes, err := s.dbg.Scopes(frame)
	if err != nil {
		return err
	}
	if len(scopes) == 0 {
		return fmt.Errorf("no scopes at current frame")
	}
	_, err = s.dbg.SetVariable(ctx, scopes[0].VariablesReference, args[0], args[1])
	return err
}

func (s *Session) handleThreads(out io.Writer) {
	current := s.currentThread()
	for _, t := range s.dbg.Threads() {
		marker := " "
		if t == current {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, t.String())
	}
}

func (s *Session) handleBacktrace(ctx context.Context, out io.Writer) error {
	thread := s.currentThread()
	if thread == model.InvalidThread {
		return fmt.Errorf("cannot backtrace: no stopped thread")
	}
	frames, err := s.dbg.StackTrace(thread, 0, allFrames)
	if err != nil {
		return err
	}
	s.setFrames(frames)
	for i, f := range frames {
		renderFrame(out, i, f)
	}
	return nil
}

func (s *Session) handleFrame(out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("frame requires exactly 1 argument: <index>")
	}
	var idx int
	if _, err := fmt.Sscanf(args[0], "%d", &idx); err != nil {
		return err
	}
	s.mu.Lock()
	if idx < 0 || idx >= len(s.frames) {
		s.mu.Unlock()
		return fmt.Errorf("no frame %d", idx)
	}
	s.frameIdx = idx
	f := s.frames[idx]
	s.mu.Unlock()
	renderFrame(out, idx, f)
	return nil
}

func (s *Session) handleList(out io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frameIdx >= len(s.frames) {
		return fmt.Errorf("cannot list: no current frame")
	}
	f := s.frames[s.frameIdx]
	return listSource(out, f.Source.Path, f.Line)
}
