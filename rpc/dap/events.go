package dap

import (
	"github.com/coredbg/coredbg/events"
	dap "github.com/google/go-dap"
)

// emitEvent is the dispatch.Dispatcher's emit callback: it renders one
// dialect-neutral events.Event into its DAP wire form and queues it for
// the send loop.
func (s *Session) emitEvent(ev events.Event) {
	switch ev.Kind {
	case events.KindStopped:
		body := dap.StoppedEventBody{
			Reason:            string(ev.Stopped.Reason),
			ThreadId:          int(ev.Stopped.ThreadId),
			AllThreadsStopped: ev.Stopped.AllThreadsStopped,
			Text:              ev.Stopped.Text,
		}
		if ev.Stopped.Reason == "exception" {
			body.Description = ev.Stopped.ExceptionName
		}
		s.send(&dap.StoppedEvent{Event: newEvent("stopped"), Body: body})

	case events.KindContinued:
		s.send(&dap.ContinuedEvent{
			Event: newEvent("continued"),
			Body: dap.ContinuedEventBody{
				ThreadId:            int(ev.ContinuedThread),
				AllThreadsContinued: ev.AllThreadsContinued,
			},
		})

	case events.KindThread:
		s.send(&dap.ThreadEvent{
			Event: newEvent("thread"),
			Body:  dap.ThreadEventBody{Reason: string(ev.ThreadReason), ThreadId: int(ev.ThreadId)},
		})

	case events.KindModule:
		mod := dap.Module{Id: float64(ev.Module.ID), Name: ev.Module.Name, Path: ev.Module.Path}
		s.send(&dap.ModuleEvent{
			Event: newEvent("module"),
			Body:  dap.ModuleEventBody{Reason: string(ev.ModuleReason), Module: mod},
		})

	case events.KindOutput:
		s.send(&dap.OutputEvent{
			Event: newEvent("output"),
			Body:  dap.OutputEventBody{Category: string(ev.OutputCategory), Output: ev.OutputText},
		})

	case events.KindBreakpoint:
		s.send(&dap.BreakpointEvent{
			Event: newEvent("breakpoint"),
			Body:  dap.BreakpointEventBody{Reason: string(ev.BreakpointReason), Breakpoint: renderBreakpoint(*ev.Breakpoint)},
		})

	case events.KindExited:
		s.send(&dap.ExitedEvent{
			Event: newEvent("exited"),
			Body:  dap.ExitedEventBody{ExitCode: ev.ExitCode},
		})

	case events.KindTerminated:
		s.send(&dap.TerminatedEvent{Event: newEvent("terminated")})
	}
}
