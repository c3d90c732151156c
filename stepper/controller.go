// Package stepper implements the execution controller's process state
// machine and the simple and async-method step managers described in
// §4.6: netcoredbg's ManagedDebugger state tracking plus its
// SimpleStepper/AsyncStepper pair, recast as small Go types driven
// through the runtime.Debuggee contract.
package stepper

import (
	"context"
	"sync"

	"github.com/coredbg/coredbg/model"
)

// State is the coarse debuggee lifecycle state of §3/§4.6.
type State int

const (
	NotStarted State = iota
	Running
	Paused
	Exited
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Exited:
		return "Exited"
	default:
		return "NotStarted"
	}
}

// Controller tracks the process state machine and the last thread that
// stopped. All transitions broadcast on a single condition variable, the
// way §5 describes "state condition variable + mutex".
type Controller struct {
	mu                  sync.Mutex
	cond                *sync.Cond
	state               State
	lastStoppedThreadId model.ThreadId
}

// NewController returns a Controller in NotStarted.
func NewController() *Controller {
	c := &Controller{state: NotStarted}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastStoppedThread returns the thread that most recently caused a stop.
// Retained across a resume but meaningless until the next stop.
func (c *Controller) LastStoppedThread() model.ThreadId {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStoppedThreadId
}

// Started transitions NotStarted → Running, as Attach/Launch completes.
func (c *Controller) Started() {
	c.set(Running)
}

// Stopped transitions → Paused and records thread as lastStoppedThreadId.
func (c *Controller) Stopped(thread model.ThreadId) {
	c.mu.Lock()
	c.state = Paused
	c.lastStoppedThreadId = thread
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Resumed transitions → Running, as Continue/step does. Callers clear
// frame ids and variable references before calling this, per §5(c).
func (c *Controller) Resumed() {
	c.set(Running)
}

// Exited transitions → Exited, terminal.
func (c *Controller) Exited() {
	c.set(Exited)
}

func (c *Controller) set(s State) {
	c.mu.Lock()
	c.state = s
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Wait blocks until the state becomes one of targets, or ctx is done,
// returning the state reached (NotStarted if ctx expired first).
func (c *Controller) Wait(ctx context.Context, targets ...State) State {
	done := make(chan State, 1)
	go func() {
		c.mu.Lock()
		for !containsState(targets, c.state) && ctx.Err() == nil {
			c.cond.Wait()
		}
		s := c.state
		c.mu.Unlock()
		done <- s
	}()

	select {
	case s := <-done:
		return s
	case <-ctx.Done():
		// Wake the waiting goroutine so it can observe ctx and exit; the
		// broadcast is harmless noise if the state hasn't actually changed.
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
		return NotStarted
	}
}

func containsState(targets []State, s State) bool {
	for _, t := range targets {
		if t == s {
			return true
		}
	}
	return false
}
