package dispatch

import (
	"context"

	"github.com/coredbg/coredbg/model"
)

// Run drains the queue until ctx is done or Close is called. It is meant
// to be started once, in its own goroutine, per Dispatcher.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		p := d.popFront(ctx)
		if p == nil {
			return
		}
		d.execute(ctx, p)
	}
}

// popFront blocks until the queue is non-empty, the dispatcher is closed,
// or ctx is cancelled, returning nil in the latter two cases.
func (d *Dispatcher) popFront(ctx context.Context) *pending {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()

	for len(d.queue) == 0 && !d.closed && ctx.Err() == nil {
		d.cond.Wait()
	}
	if d.closed || ctx.Err() != nil {
		return nil
	}
	p := d.queue[0]
	d.queue = d.queue[1:]
	p.started = true
	return p
}

// execute runs p.cmd.Run under a deadline derived from p.cmd.Timeout (or
// DefaultTimeout), then serializes the response under the output mutex.
func (d *Dispatcher) execute(parent context.Context, p *pending) {
	timeout := p.cmd.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cctx, cancel := context.WithTimeout(parent, timeout)
	d.queueMu.Lock()
	p.cancel = cancel
	d.current = p
	d.queueMu.Unlock()
	defer func() {
		cancel()
		d.queueMu.Lock()
		if d.current == p {
			d.current = nil
		}
		d.queueMu.Unlock()
	}()

	resultCh := make(chan struct {
		value interface{}
		err   error
	}, 1)

	go func() {
		value, err := p.cmd.Run(cctx)
		resultCh <- struct {
			value interface{}
			err   error
		}{value, err}
	}()

	var value interface{}
	var err error
	select {
	case r := <-resultCh:
		value, err = r.value, r.err
	case <-cctx.Done():
		value, err = nil, timeoutOrCancelled(cctx)
	}

	if p.cmd.Respond != nil {
		d.outputMu.Lock()
		p.cmd.Respond(value, err)
		d.outputMu.Unlock()
	}
}

func timeoutOrCancelled(ctx context.Context) error {
	if ctx.Err() == context.DeadlineExceeded {
		return model.ErrTimeout
	}
	return model.ErrCancelled
}
