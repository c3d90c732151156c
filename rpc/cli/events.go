package cli

import (
	"context"
	"fmt"

	"github.com/coredbg/coredbg/events"
	"github.com/coredbg/coredbg/model"
)

// emitEvent is the dispatch.Dispatcher's emit callback: it renders one
// dialect-neutral events.Event as a terminal line, the CLI dialect's
// counterpart of rpc/dap's emitEvent and rpc/mi's event renderer.
func (s *Session) emitEvent(ev events.Event) {
	switch ev.Kind {
	case events.KindStopped:
		if ev.Stopped != nil {
			s.setThread(ev.Stopped.ThreadId)
			s.refreshFrames(context.Background())
		}
		fmt.Fprintf(s.out, "%s\n", renderStopped(ev.Stopped))

	case events.KindContinued:
		fmt.Fprintln(s.out, "Continuing.")

	case events.KindThread:
		fmt.Fprintf(s.out, "[thread %s %s]\n", ev.ThreadId.String(), ev.ThreadReason)

	case events.KindModule:
		if ev.Module != nil {
			fmt.Fprintf(s.out, "[module %s: %s]\n", ev.ModuleReason, ev.Module.Name)
		}

	case events.KindOutput:
		fmt.Fprint(s.out, ev.OutputText)

	case events.KindBreakpoint:
		if ev.Breakpoint != nil {
			fmt.Fprintf(s.out, "[breakpoint %s: %s]\n", ev.BreakpointReason, renderBreakpointLine(*ev.Breakpoint))
		}

	case events.KindExited:
		fmt.Fprintf(s.out, "[process exited with code %d]\n", ev.ExitCode)

	case events.KindTerminated:
		fmt.Fprintln(s.out, "[debuggee terminated]")
	}
}

func renderStopped(ev *model.StoppedEvent) string {
	if ev == nil {
		return "Stopped."
	}
	switch ev.Reason {
	case model.StopBreakpoint:
		return fmt.Sprintf("Breakpoint hit, thread %s.", ev.ThreadId.String())
	case model.StopStep:
		return fmt.Sprintf("Stepped, thread %s.", ev.ThreadId.String())
	case model.StopException:
		return fmt.Sprintf("Exception %s: %s", ev.ExceptionName, ev.ExceptionMessage)
	case model.StopPause:
		return "Paused."
	case model.StopEntry:
		return "Stopped at entry."
	default:
		return "Stopped."
	}
}
