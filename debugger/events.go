package debugger

import (
	"github.com/coredbg/coredbg/breakpoints"
	"github.com/coredbg/coredbg/events"
	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
)

// handleRuntimeEvent translates one runtime.Event into the appropriate
// state transition and, where applicable, a Stopped/Module/Output/Exited
// event on the facade's output channel.
func (f *facade) handleRuntimeEvent(ev runtime.Event) {
	switch ev.Kind {
	case runtime.EventModuleLoad:
		f.breakpoints.OnModuleLoad(ev.Module, f.emit)
		f.emit(events.Event{Kind: events.KindModule, Module: &ev.Module, ModuleReason: events.ModuleNew})

	case runtime.EventModuleUnload:
		f.emit(events.Event{Kind: events.KindModule, Module: &ev.Module, ModuleReason: events.ModuleRemoved})

	case runtime.EventBreakpointHit:
		f.onBreakpointHit(ev)

	case runtime.EventStepComplete:
		f.onStepComplete(ev)

	case runtime.EventExceptionFirstChance:
		// Ignored per §4.5: first-chance events never match.

	case runtime.EventExceptionCatchHandlerFound:
		f.onException(ev, false)

	case runtime.EventExceptionUnhandled:
		f.onException(ev, true)

	case runtime.EventProcessExited:
		f.refs.Clear()
		f.controller.Exited()
		f.emit(events.Event{Kind: events.KindExited, ExitCode: ev.ExitCode})

	case runtime.EventProcessPaused:
		f.refs.Clear()
		f.controller.Stopped(ev.Thread)
		f.emit(events.Event{Kind: events.KindStopped, Stopped: &model.StoppedEvent{
			Reason:            model.StopPause,
			ThreadId:          ev.Thread,
			AllThreadsStopped: true,
		}})
	}
}

func (f *facade) onBreakpointHit(ev runtime.Event) {
	if f.steps.IsAsyncLandmark(ev.Handle) {
		f.onAsyncLandmarkHit(ev)
		return
	}

	if f.breakpoints.HitEntry(ev.Handle) {
		f.refs.Clear()
		f.controller.Stopped(ev.Thread)
		f.emit(events.Event{Kind: events.KindStopped, Stopped: &model.StoppedEvent{
			Reason:            model.StopEntry,
			ThreadId:          ev.Thread,
			AllThreadsStopped: true,
		}})
		return
	}

	bp, primaryID, ok := f.breakpoints.HitDispatch(ev.Handle)
	if !ok {
		return
	}

	if bp.Condition != "" {
		val, err := f.dbg.EvaluateExpr(ev.Thread, 0, bp.Condition)
		if err == nil {
			text, _, _ := f.dbg.FormatValue(val)
			if text == "false" {
				f.dbg.Continue()
				return
			}
		}
	}

	f.breakpoints.RecordHit(bp.Fullname, bp.Linenum, bp.ID)

	f.refs.Clear()
	f.controller.Stopped(ev.Thread)
	rendered := model.Breakpoint{ID: primaryID, Verified: true, Line: bp.Linenum, HitCount: bp.HitCount}
	f.emit(events.Event{Kind: events.KindStopped, Stopped: &model.StoppedEvent{
		Reason:            model.StopBreakpoint,
		ThreadId:          ev.Thread,
		AllThreadsStopped: true,
		Breakpoint:        &rendered,
	}})
}

// onAsyncLandmarkHit routes a hit on one of the async stepper's internal
// breakpoints; these never surface as Stopped{Breakpoint} themselves —
// only OnResumeHit's true completion does.
func (f *facade) onAsyncLandmarkHit(ev runtime.Event) {
	if f.steps.OnResumeHit(ev.Thread, ev.Handle) {
		f.refs.Clear()
		f.controller.Stopped(ev.Thread)
		f.emit(events.Event{Kind: events.KindStopped, Stopped: &model.StoppedEvent{
			Reason:            model.StopStep,
			ThreadId:          ev.Thread,
			AllThreadsStopped: true,
		}})
		return
	}

	// Otherwise this is the yield-offset landmark: ask the runtime where
	// the continuation resumes now that the state machine has actually
	// reached it, then arm the resume-phase breakpoints. A mismatched or
	// unresolvable AsyncID leaves the step outstanding and the hit
	// silently resumed here.
	resumeLoc, notifyLoc, err := f.dbg.AsyncResumeLocations(ev.Thread, ev.AsyncID)
	if err != nil {
		f.dbg.Continue()
		return
	}
	if advanced, err := f.steps.OnYieldHit(ev.Thread, ev.Handle, ev.AsyncID, resumeLoc, notifyLoc); !advanced && err == nil {
		f.dbg.Continue()
	}
}

func (f *facade) onStepComplete(ev runtime.Event) {
	if !f.steps.OnStepComplete(ev.Thread, ev.StepTag) {
		return
	}
	f.refs.Clear()
	f.controller.Stopped(ev.Thread)
	f.emit(events.Event{Kind: events.KindStopped, Stopped: &model.StoppedEvent{
		Reason:            model.StopStep,
		ThreadId:          ev.Thread,
		AllThreadsStopped: true,
	}})
}

func (f *facade) onException(ev runtime.Event, unhandled bool) {
	mode := f.breakpoints.Exceptions.GetExceptionBreakMode(ev.ExceptionName, ev.ExceptionCategory)
	if !breakpoints.Matches(mode, unhandled, ev.ExceptionName) {
		return
	}

	stage := model.StageCaught
	if unhandled {
		stage = model.StageUncaught
	}

	f.refs.Clear()
	f.controller.Stopped(ev.Thread)
	f.emit(events.Event{Kind: events.KindStopped, Stopped: &model.StoppedEvent{
		Reason:            model.StopException,
		ThreadId:          ev.Thread,
		AllThreadsStopped: true,
		ExceptionName:     ev.ExceptionName,
		ExceptionStage:    stage,
		ExceptionCategory: ev.ExceptionCategory,
	}})
}
