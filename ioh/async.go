package ioh

import (
	"io"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// AsyncHandle represents an in-flight read or write. It must be
// terminally consumed by exactly one of Result or Cancel; calling either
// again (or both) is safe and idempotent, matching §4.1's "async handles
// must be terminally consumed" and §8 property 6.
type AsyncHandle struct {
	done     chan Result
	cancel   func()
	consumed int32
	finished int32
	result   Result
	once     sync.Once
}

func newAsync(cancel func()) *AsyncHandle {
	return &AsyncHandle{
		done:   make(chan Result, 1),
		cancel: cancel,
	}
}

func (a *AsyncHandle) finish(r Result) {
	a.once.Do(func() {
		atomic.StoreInt32(&a.finished, 1)
		a.done <- r
	})
}

// AsyncRead starts a non-blocking read into p, returning immediately with
// a handle the caller waits on via Result or AsyncWait.
func (h Handle) AsyncRead(p []byte) *AsyncHandle {
	if h.Empty() {
		a := newAsync(func() {})
		a.finish(Result{Status: IOErr, Err: errors.New("read on empty handle")})
		return a
	}

	cancelCh := make(chan struct{})
	a := newAsync(func() {
		select {
		case <-cancelCh:
		default:
			close(cancelCh)
			// Unblock a pending Read by forcing a deadline; ignored if the
			// underlying file does not support deadlines.
			_ = h.f.SetReadDeadline(time.Now())
		}
	})

	go func() {
		n, err := h.f.Read(p)
		select {
		case <-cancelCh:
			a.finish(Result{Status: IOErr, N: n, Err: errors.New("cancelled")})
			return
		default:
		}
		a.finish(readResult(n, err))
	}()
	return a
}

// AsyncWrite starts a non-blocking write of p.
func (h Handle) AsyncWrite(p []byte) *AsyncHandle {
	if h.Empty() {
		a := newAsync(func() {})
		a.finish(Result{Status: IOErr, Err: errors.New("write on empty handle")})
		return a
	}

	cancelCh := make(chan struct{})
	a := newAsync(func() {
		select {
		case <-cancelCh:
		default:
			close(cancelCh)
			_ = h.f.SetWriteDeadline(time.Now())
		}
	})

	go func() {
		n, err := h.f.Write(p)
		select {
		case <-cancelCh:
			a.finish(Result{Status: IOErr, N: n, Err: errors.New("cancelled")})
			return
		default:
		}
		if err != nil {
			a.finish(Result{Status: IOErr, N: n, Err: err})
			return
		}
		a.finish(Result{Status: Success, N: n})
	}()
	return a
}

func readResult(n int, err error) Result {
	switch {
	case err == nil:
		return Result{Status: Success, N: n}
	case errors.Is(err, io.EOF):
		return Result{Status: Eof, N: n}
	default:
		return Result{Status: IOErr, N: n, Err: err}
	}
}

// Result blocks until the async operation completes, then terminally
// consumes the handle. Calling Result again returns the same outcome.
func (a *AsyncHandle) Result() Result {
	if atomic.CompareAndSwapInt32(&a.consumed, 0, 1) {
		a.result = <-a.done
	}
	return a.result
}

// Cancel requests the operation stop. It is idempotent: cancelling an
// already-finished handle is a no-op that returns success (§8 property
// 6). Cancel does not itself consume the handle's result; call Result
// afterward to observe the (likely cancelled) outcome.
func (a *AsyncHandle) Cancel() error {
	if atomic.LoadInt32(&a.finished) == 1 {
		return nil
	}
	a.cancel()
	return nil
}

// AsyncWait blocks until one of handles completes or timeout elapses,
// returning the completed handle's index, or ok=false on timeout.
// timeout <= 0 waits indefinitely. The completed handle is left
// unconsumed; callers still call Result on it to retrieve the outcome.
func AsyncWait(handles []*AsyncHandle, timeout time.Duration) (idx int, ok bool) {
	cases := make([]reflect.SelectCase, 0, len(handles)+1)
	for _, h := range handles {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(h.done),
		})
	}

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(timer.C),
		})
	}

	chosen, recv, recvOK := reflect.Select(cases)
	if chosen == len(handles) {
		return 0, false
	}
	if recvOK {
		// Requeue the value so a subsequent Result() still observes it.
		handles[chosen].done <- recv.Interface().(Result)
	}
	return chosen, true
}
