// Package cli is the interactive line-command dialect (§6): a
// chzyer/readline REPL that drives the same debugger.Facade and
// dispatch.Dispatcher as the dap and mi front ends, modeled on the
// teacher's codegen/debug.TUIFrontend command loop.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/coredbg/coredbg/debugger"
	"github.com/coredbg/coredbg/dispatch"
	"github.com/coredbg/coredbg/model"
	"github.com/kballard/go-shellquote"
	"github.com/logrusorgru/aurora"
)

// allFrames is passed as StackTrace's high bound to mean "the entire
// call stack", matching the rpc/dap dialect's convention.
const allFrames = model.FrameLevel(1 << 30)

// Session drives one interactive prompt session over a debugger.Facade.
type Session struct {
	dbg   debugger.Facade
	disp  *dispatch.Dispatcher
	color aurora.Aurora
	out   io.Writer

	mu           sync.Mutex
	thread       model.ThreadId
	frames       []model.StackFrame
	frameIdx     int
	sourceReqs   map[string][]model.SourceBreakpointRequest
	sourceBps    map[string][]model.Breakpoint
	functionReqs []model.FunctionBreakpointRequest
	functionBps  []model.Breakpoint

	startup []string
}

// NewSession builds a Session over dbg, rendering to out.
func NewSession(dbg debugger.Facade, out io.Writer, color bool) *Session {
	s := &Session{
		dbg:        dbg,
		color:      aurora.NewAurora(color),
		out:        out,
		thread:     model.InvalidThread,
		sourceReqs: make(map[string][]model.SourceBreakpointRequest),
		sourceBps:  make(map[string][]model.Breakpoint),
	}
	s.disp = dispatch.New(s.emitEvent)
	return s
}

// QueueStartupCommand appends a literal command line to run before the
// interactive prompt takes over, matching --command/-ex (§6).
func (s *Session) QueueStartupCommand(line string) {
	s.startup = append(s.startup, line)
}

// LoadScript queues every non-empty, non-comment line of path as a
// startup command. This dialect has no command that writes such a file.
func (s *Session) LoadScript(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.QueueStartupCommand(line)
	}
	return scanner.Err()
}

// start launches the dispatcher worker and event pump. The caller must
// invoke the returned stop func when done; it only stops the pump, the
// worker itself exits when ctx is cancelled.
func (s *Session) start(ctx context.Context) (stopPump func()) {
	go s.disp.Run(ctx)
	stop := make(chan struct{})
	go s.disp.PumpEvents(stop, s.dbg.Events())
	return func() { close(stop) }
}

// Serve runs the REPL against stdin/stdout until a command asks to exit,
// input ends, or reading input fails. Debuggee termination and ctx
// cancellation do not end it.
func (s *Session) Serve(ctx context.Context, stdin io.ReadCloser, stdout io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer s.start(ctx)()

	for _, line := range s.startup {
		args, err := shellquote.Split(line)
		if err != nil || len(args) == 0 {
			continue
		}
		if exit := s.dispatchCommand(ctx, stdout, args[0], args[1:]); exit {
			return nil
		}
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:       "(coredbg) ",
		Stdin:        stdin,
		Stdout:       stdout,
		AutoComplete: readline.NewPrefixCompleter(completerItems()...),
	})
	if err != nil {
		return err
	}
	defer l.Close()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args, err := shellquote.Split(line)
		if err != nil {
			fmt.Fprintln(stdout, s.color.Sprintf(s.color.Red("parse error: %s"), err))
			continue
		}

		cmd, rest := args[0], args[1:]
		if exit := s.dispatchCommand(ctx, stdout, cmd, rest); exit {
			return nil
		}
	}
}

func completerItems() []readline.PrefixCompleterInterface {
	names := []string{
		"continue", "next", "step", "stepout", "pause",
		"break", "breakpoints", "clear", "clearall",
		"backtrace", "threads", "frame", "args", "print", "set",
		"list", "help", "exit",
	}
	items := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, n := range names {
		items = append(items, readline.PcItem(n))
	}
	return items
}

// submit runs cmd through the dispatcher and blocks for its result,
// since the CLI prompt is strictly one command at a time.
func (s *Session) submit(ctx context.Context, name string, run func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	done := make(chan struct{})
	var value interface{}
	var err error
	s.disp.Submit(dispatch.Command{
		Name: name,
		Run:  run,
		Respond: func(v interface{}, e error) {
			value, err = v, e
			close(done)
		},
	})
	<-done
	return value, err
}

func (s *Session) currentFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frameIdx < len(s.frames) {
		return s.frames[s.frameIdx].Source.Path
	}
	return ""
}

func (s *Session) selectedFrame() (model.FrameId, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frameIdx < len(s.frames) {
		return s.frames[s.frameIdx].Id, true
	}
	return model.InvalidFrame, false
}

func (s *Session) setThread(t model.ThreadId) {
	s.mu.Lock()
	s.thread = t
	s.mu.Unlock()
}

func (s *Session) currentThread() model.ThreadId {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thread
}

func (s *Session) setFrames(frames []model.StackFrame) {
	s.mu.Lock()
	s.frames = frames
	s.frameIdx = 0
	s.mu.Unlock()
}

// refreshFrames re-fetches the backtrace for the current thread so
// print/backtrace/frame have somewhere to point; failures are silent
// since not every stop carries symbols for every thread.
func (s *Session) refreshFrames(ctx context.Context) {
	thread := s.currentThread()
	if thread == model.InvalidThread {
		return
	}
	frames, err := s.dbg.StackTrace(thread, 0, allFrames)
	if err != nil {
		return
	}
	s.setFrames(frames)
}
