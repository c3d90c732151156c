// Package dispatch is the protocol dispatcher of §4.4: a FIFO command
// queue drained by one worker, queue-cancelling disruptive commands,
// explicit per-request cancellation, deadline-bounded execution, and
// output-mutex-serialized, monotonically sequenced event emission.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/coredbg/coredbg/events"
	"github.com/coredbg/coredbg/model"
)

// DefaultTimeout is the per-command deadline used when Command.Timeout
// is zero.
const DefaultTimeout = 15 * time.Second

// setupWhitelist names the commands a disruptive command must never
// cancel, because they are part of the session's own setup handshake.
var setupWhitelist = map[string]bool{
	"initialize":              true,
	"setExceptionBreakpoints": true,
	"configurationDone":       true,
	"setBreakpoints":          true,
	"launch":                  true,
	"disconnect":              true,
	"terminate":               true,
	"attach":                  true,
	"setFunctionBreakpoints":  true,
}

// disruptive names the commands that, on submission, walk the pending
// queue and cancel every non-whitelisted entry ahead of them.
var disruptive = map[string]bool{
	"disconnect": true,
	"terminate":  true,
	"continue":   true,
	"next":       true,
	"step-in":    true,
	"step-out":   true,
}

// synchronous names the commands whose submitter blocks until the
// response has actually been produced, instead of returning as soon as
// the command is enqueued.
var synchronous = map[string]bool{
	"initialize":        true,
	"configurationDone": true,
	"disconnect":        true,
	"terminate":         true,
}

// Command is one unit of work entering the dispatcher's FIFO queue.
type Command struct {
	// RequestID identifies the command for explicit cancellation (e.g. a
	// DAP "cancel" request naming a prior request_seq).
	RequestID string
	// Name classifies the command against the setup whitelist and the
	// disruptive/synchronous sets above (e.g. "continue", "step-in",
	// "evaluate").
	Name string
	// Timeout overrides DefaultTimeout when non-zero.
	Timeout time.Duration
	// Run executes the command, observing ctx's deadline/cancellation.
	Run func(ctx context.Context) (interface{}, error)
	// Respond is called exactly once, under the output mutex, with the
	// command's outcome.
	Respond func(value interface{}, err error)
}

type pending struct {
	cmd     Command
	cancel  context.CancelFunc
	started bool
}

// Dispatcher owns the command queue and the output mutex every event and
// response is serialized through.
type Dispatcher struct {
	queueMu sync.Mutex
	cond    *sync.Cond
	queue   []*pending
	closed  bool

	outputMu sync.Mutex
	seq      int64

	current *pending

	emit func(events.Event)
}

// New returns a Dispatcher that forwards sequenced events to emit.
func New(emit func(events.Event)) *Dispatcher {
	d := &Dispatcher{emit: emit}
	d.cond = sync.NewCond(&d.queueMu)
	return d
}

// Submit enqueues cmd. If cmd.Name is disruptive, every queued
// non-whitelisted command is cancelled first (receiving ErrCancelled via
// its Respond callback) before cmd itself is appended. If cmd.Name is
// synchronous, Submit blocks until cmd.Respond has been invoked — the
// channel receive is this package's equivalent of §4.4's "signal a
// second condition variable to release the request reader".
func (d *Dispatcher) Submit(cmd Command) {
	var done chan struct{}
	if synchronous[cmd.Name] {
		done = make(chan struct{})
		inner := cmd.Respond
		cmd.Respond = func(value interface{}, err error) {
			if inner != nil {
				inner(value, err)
			}
			close(done)
		}
	}

	d.queueMu.Lock()
	var toFail []*pending
	if disruptive[cmd.Name] {
		toFail = d.cancelNonSetupLocked()
	}
	d.queue = append(d.queue, &pending{cmd: cmd})
	d.cond.Signal()
	d.queueMu.Unlock()

	// failLocked acquires outputMu, which must never be taken while
	// queueMu is held (§5's lock-ordering rule), so the cancelled entries
	// are only failed once queueMu is released above.
	for _, p := range toFail {
		d.failLocked(p, model.ErrCancelled)
	}

	if done != nil {
		<-done
	}
}

// cancelNonSetupLocked removes every queued command not in
// setupWhitelist from the queue and returns them for the caller to fail
// after releasing queueMu. queueMu must be held.
func (d *Dispatcher) cancelNonSetupLocked() []*pending {
	kept := d.queue[:0]
	var cancelled []*pending
	for _, p := range d.queue {
		if setupWhitelist[p.cmd.Name] {
			kept = append(kept, p)
			continue
		}
		cancelled = append(cancelled, p)
	}
	d.queue = kept
	return cancelled
}

// CancelByRequestID cancels the named command, whether still queued or
// already executing. Returns false if no such non-setup command is found.
func (d *Dispatcher) CancelByRequestID(requestID string) bool {
	d.queueMu.Lock()

	for i, p := range d.queue {
		if p.cmd.RequestID == requestID {
			if setupWhitelist[p.cmd.Name] {
				d.queueMu.Unlock()
				return false
			}
			d.queue = append(d.queue[:i], d.queue[i+1:]...)
			d.queueMu.Unlock()
			d.failLocked(p, model.ErrCancelled)
			return true
		}
	}

	if c := d.current; c != nil && c.cmd.RequestID == requestID {
		if setupWhitelist[c.cmd.Name] {
			d.queueMu.Unlock()
			return false
		}
		cancel := c.cancel
		d.queueMu.Unlock()
		if cancel != nil {
			cancel()
		}
		return true
	}

	d.queueMu.Unlock()
	return false
}

// failLocked serializes p's Respond call under the output mutex, same as
// a normal completion. The name refers to p's queue entry having already
// been removed by the caller, not to any lock failLocked itself holds.
func (d *Dispatcher) failLocked(p *pending, err error) {
	if p.cmd.Respond != nil {
		d.outputMu.Lock()
		p.cmd.Respond(nil, err)
		d.outputMu.Unlock()
	}
}

// Close stops accepting new work and wakes the worker so it can exit.
func (d *Dispatcher) Close() {
	d.queueMu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.queueMu.Unlock()
}
