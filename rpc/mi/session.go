package mi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/coredbg/coredbg/breakpoints"
	"github.com/coredbg/coredbg/debugger"
	"github.com/coredbg/coredbg/dispatch"
	"github.com/coredbg/coredbg/model"
)

const allFrames = model.FrameLevel(1 << 30)

// Session drives one GDB/MI line session over a debugger.Facade.
type Session struct {
	dbg  debugger.Facade
	disp *dispatch.Dispatcher

	outMu sync.Mutex
	w     *bufio.Writer

	mu     sync.Mutex
	thread model.ThreadId
	frames []model.StackFrame
}

// NewSession builds a Session over dbg, writing MI lines to out.
func NewSession(dbg debugger.Facade, out io.Writer) *Session {
	s := &Session{dbg: dbg, w: bufio.NewWriter(out), thread: model.InvalidThread}
	s.disp = dispatch.New(s.emitEvent)
	return s
}

// Serve reads one MI command per line from in until EOF or ctx is done.
func (s *Session) Serve(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.disp.Run(ctx)
	stop := make(chan struct{})
	defer close(stop)
	go s.disp.PumpEvents(stop, s.dbg.Events())

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		req, err := parseRequest(line)
		if err != nil {
			s.writeLine(fmt.Sprintf(`&%s`, quote(err.Error())))
			continue
		}
		if req.cmd == "gdb-exit" {
			return nil
		}
		s.handle(ctx, req)
	}
	return scanner.Err()
}

func (s *Session) writeLine(line string) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	s.w.WriteString(line)
	s.w.WriteString("\n")
	s.w.Flush()
}

func (s *Session) resultDone(token string, t tuple) {
	if len(t) == 0 {
		s.writeLine(fmt.Sprintf("%s^done", token))
		return
	}
	s.writeLine(fmt.Sprintf("%s^done,%s", token, t.String()))
}

func (s *Session) resultRunning(token string) {
	s.writeLine(fmt.Sprintf("%s^running", token))
}

func (s *Session) resultError(token string, err error) {
	s.writeLine(fmt.Sprintf(`%s^error,msg=%s`, token, quote(err.Error())))
}

// submit runs cmd through the dispatcher and blocks for its result, same
// discipline as rpc/cli: MI here is a strict request/reply line protocol,
// not a pipelined one.
func (s *Session) submit(name string, run func(ctx context.Context) (interface{}, error)) (interface{}, error) {
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

func (s *Session) refreshFrames(ctx context.Context) {
	thread := s.currentThread()
	if thread == model.InvalidThread {
		return
	}
	frames, err := s.dbg.StackTrace(thread, 0, allFrames)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.frames = frames
	s.mu.Unlock()
}

func breakpointTuple(bp model.Breakpoint) tuple {
	t := tuple{
		fi("number", bp.ID),
		f("enabled", "y"),
	}
	if bp.Verified {
		t = append(t, f("addr", "<RESOLVED>"))
	} else {
		t = append(t, f("addr", "<PENDING>"))
	}
	t = append(t, f("original-location", breakpoints.RenderMI(bp)))
	if bp.Source != nil {
		t = append(t, f("file", bp.Source.Path), fi("line", bp.Line))
	}
	if bp.FuncName != "" {
		t = append(t, f("func", bp.FuncName))
	}
	t = append(t, fi("times", bp.HitCount))
	return t
}
