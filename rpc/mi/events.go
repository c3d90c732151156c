package mi

import (
	"context"
	"fmt"

	"github.com/coredbg/coredbg/events"
	"github.com/coredbg/coredbg/model"
)

// emitEvent is the dispatch.Dispatcher's emit callback: it renders one
// dialect-neutral events.Event as a GDB/MI async record, the MI
// counterpart of rpc/dap's and rpc/cli's emitEvent.
func (s *Session) emitEvent(ev events.Event) {
	switch ev.Kind {
	case events.KindStopped:
		if ev.Stopped != nil {
			s.setThread(ev.Stopped.ThreadId)
			s.refreshFrames(context.Background())
			s.writeLine(fmt.Sprintf("*stopped,%s", stoppedTuple(ev.Stopped).String()))
		}

	case events.KindContinued:
		s.writeLine(fmt.Sprintf("*running,thread-id=%s", quote("all")))

	case events.KindThread:
		reason := "thread-created"
		if ev.ThreadReason == events.ThreadExited {
			reason = "thread-exited"
		}
		s.writeLine(fmt.Sprintf("=%s,id=%s", reason, quote(ev.ThreadId.String())))

	case events.KindModule:
		if ev.Module != nil {
			s.writeLine(fmt.Sprintf("=library-loaded,id=%s,target-name=%s", quote(ev.Module.Name), quote(ev.Module.Path)))
		}

	case events.KindOutput:
		s.writeLine(fmt.Sprintf("~%s", quote(ev.OutputText)))

	case events.KindBreakpoint:
		if ev.Breakpoint != nil {
			s.writeLine(fmt.Sprintf("=breakpoint-modified,bkpt={%s}", breakpointTuple(*ev.Breakpoint).String()))
		}

	case events.KindExited:
		s.writeLine(fmt.Sprintf("*stopped,reason=%s,exit-code=%s", quote("exited"), quote(fmt.Sprintf("%02o", ev.ExitCode))))

	case events.KindTerminated:
		s.writeLine(fmt.Sprintf("=thread-group-exited,id=%s", quote("i1")))
	}
}

func stoppedTuple(ev *model.StoppedEvent) tuple {
	t := tuple{f("reason", mapStopReason(ev.Reason)), f("thread-id", ev.ThreadId.String())}
	if ev.Frame != nil {
		t = append(t, f("func", ev.Frame.Name))
		if !ev.Frame.Source.IsZero() {
			t = append(t, f("file", ev.Frame.Source.Path), fi("line", ev.Frame.Line))
		}
	}
	return t
}

func mapStopReason(r model.StopReason) string {
	switch r {
	case model.StopBreakpoint:
		return "breakpoint-hit"
	case model.StopStep:
		return "end-stepping-range"
	case model.StopException:
		return "exception-received"
	case model.StopPause:
		return "signal-received"
	case model.StopEntry:
		return "entry-point-hit"
	default:
		return "stopped"
	}
}
