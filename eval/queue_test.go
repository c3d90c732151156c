package eval

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
	"github.com/stretchr/testify/require"
)

type fakeDebuggee struct {
	runtime.Debuggee
	calls []runtime.EvalRequest
}

var _ io.Closer = (*fakeDebuggee)(nil)

func (f *fakeDebuggee) Close() error { return nil }

func (f *fakeDebuggee) EvalCall(req runtime.EvalRequest) error {
	f.calls = append(f.calls, req)
	return nil
}

func (f *fakeDebuggee) CancelEval(model.ThreadId) error { return nil }

func TestQueueRunFulfilledByComplete(t *testing.T) {
	dbg := &fakeDebuggee{}
	q := NewQueue(dbg)

	type result struct {
		val runtime.ValueHandle
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		val, err := q.Run(context.Background(), runtime.EvalRequest{Thread: 1, Method: "Foo"})
		resCh <- result{val, err}
	}()

	require.Eventually(t, func() bool { return len(dbg.calls) == 1 }, time.Second, time.Millisecond)
	q.Complete(runtime.EvalResult{Thread: 1, Value: "42"})

	res := <-resCh
	require.NoError(t, res.err)
	require.Equal(t, "42", res.val)
}

func TestQueueOrdersPerThread(t *testing.T) {
	dbg := &fakeDebuggee{}
	q := NewQueue(dbg)

	done := make(chan struct{}, 2)
	go func() { q.Run(context.Background(), runtime.EvalRequest{Thread: 1, Method: "A"}); done <- struct{}{} }()
	require.Eventually(t, func() bool { return len(dbg.calls) == 1 }, time.Second, time.Millisecond)

	go func() { q.Run(context.Background(), runtime.EvalRequest{Thread: 1, Method: "B"}); done <- struct{}{} }()
	time.Sleep(5 * time.Millisecond)
	// Only the front (A) triggered EvalCall; B waits behind it.
	require.Len(t, dbg.calls, 1)

	q.Complete(runtime.EvalResult{Thread: 1, Value: "a-done"})
	<-done
	require.Eventually(t, func() bool { return len(dbg.calls) == 2 }, time.Second, time.Millisecond)
	q.Complete(runtime.EvalResult{Thread: 1, Value: "b-done"})
	<-done
}

func TestQueueCancelFulfillsWithCancelled(t *testing.T) {
	dbg := &fakeDebuggee{}
	q := NewQueue(dbg)

	resCh := make(chan error, 1)
	go func() {
		_, err := q.Run(context.Background(), runtime.EvalRequest{Thread: 1, Method: "A"})
		resCh <- err
	}()
	require.Eventually(t, func() bool { return len(dbg.calls) == 1 }, time.Second, time.Millisecond)

	q.Cancel(1)
	err := <-resCh
	require.ErrorIs(t, err, model.ErrCancelled)
}
