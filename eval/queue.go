// Package eval implements the scheduled managed-code evaluation queue of
// §4.7: a FIFO of pending evaluations per thread, fulfilled by matching
// runtime completion callbacks against the head of each thread's queue.
package eval

import (
	"context"
	"sync"

	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
)

// promise is a one-shot result slot for a single scheduled eval.
type promise struct {
	req  runtime.EvalRequest
	done chan struct{}
	val  runtime.ValueHandle
	err  error
}

func newPromise(req runtime.EvalRequest) *promise {
	return &promise{req: req, done: make(chan struct{})}
}

func (p *promise) fulfill(val runtime.ValueHandle, err error) {
	select {
	case <-p.done:
		return // already fulfilled (e.g. by cancellation racing a callback)
	default:
	}
	p.val, p.err = val, err
	close(p.done)
}

// Queue is a per-thread FIFO of pending evaluations: at most one eval is
// in flight per thread, and a completion callback always matches the
// front entry of that thread's queue.
type Queue struct {
	mu      sync.Mutex
	pending map[model.ThreadId][]*promise
	dbg     runtime.Debuggee
}

// NewQueue returns an empty Queue driving dbg.EvalCall/CancelEval.
func NewQueue(dbg runtime.Debuggee) *Queue {
	return &Queue{pending: make(map[model.ThreadId][]*promise), dbg: dbg}
}

// Run schedules req and blocks until the runtime's completion callback
// fulfills it, ctx is cancelled, or a disruptive command calls Cancel for
// req.Thread. Facade.Evaluate schedules its expressions through it
// (§4.7).
func (q *Queue) Run(ctx context.Context, req runtime.EvalRequest) (runtime.ValueHandle, error) {
	p := newPromise(req)

	q.mu.Lock()
	q.pending[req.Thread] = append(q.pending[req.Thread], p)
	front := len(q.pending[req.Thread]) == 1
	q.mu.Unlock()

	if front {
		if err := q.dbg.EvalCall(req); err != nil {
			q.pop(req.Thread, p)
			return nil, err
		}
	}

	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		q.pop(req.Thread, p)
		return nil, model.ErrCancelled
	}
}

// Complete is called with a runtime.EvalResult delivered on
// runtime.Debuggee.EvalResults(); it fulfills the front promise for the
// result's thread and pops it.
func (q *Queue) Complete(res runtime.EvalResult) {
	q.mu.Lock()
	list := q.pending[res.Thread]
	if len(list) == 0 {
		q.mu.Unlock()
		return
	}
	p := list[0]
	list = list[1:]
	q.pending[res.Thread] = list
	var next *promise
	if len(list) > 0 {
		next = list[0]
	}
	q.mu.Unlock()

	p.fulfill(res.Value, res.Err)

	if next != nil {
		if err := q.dbg.EvalCall(next.req); err != nil {
			q.pop(res.Thread, next)
			next.fulfill(nil, err)
		}
	}
}

// Cancel fulfills every pending eval for thread with model.ErrCancelled.
// The facade calls it for every thread on Disconnect and Terminate;
// Continue and the step commands do not call it, so evals still pending
// when they run stay queued.
func (q *Queue) Cancel(thread model.ThreadId) {
	q.mu.Lock()
	list := q.pending[thread]
	delete(q.pending, thread)
	q.mu.Unlock()

	q.dbg.CancelEval(thread)
	for _, p := range list {
		p.fulfill(nil, model.ErrCancelled)
	}
}

func (q *Queue) pop(thread model.ThreadId, target *promise) {
	q.mu.Lock()
	defer q.mu.Unlock()
	list := q.pending[thread]
	for i, p := range list {
		if p == target {
			q.pending[thread] = append(list[:i], list[i+1:]...)
			return
		}
	}
}
