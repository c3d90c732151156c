package dispatch

import "github.com/coredbg/coredbg/events"

// EmitEvent assigns the next monotonic sequence number to ev and forwards
// it through the output mutex, so events interleave correctly with
// command responses written by the worker (both share d.outputMu).
func (d *Dispatcher) EmitEvent(ev events.Event) {
	d.outputMu.Lock()
	d.seq++
	ev.Seq = int(d.seq)
	if d.emit != nil {
		d.emit(ev)
	}
	d.outputMu.Unlock()
}

// PumpEvents forwards every event read from src to EmitEvent until src is
// closed or stop is closed. Intended to be run in its own goroutine against
// debugger.Facade.Events().
func (d *Dispatcher) PumpEvents(stop <-chan struct{}, src <-chan events.Event) {
	for {
		select {
		case ev, ok := <-src:
			if !ok {
				return
			}
			d.EmitEvent(ev)
		case <-stop:
			return
		}
	}
}
