package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coredbg/coredbg/events"
	"github.com/coredbg/coredbg/model"
	"github.com/stretchr/testify/require"
)

func startDispatcher(t *testing.T) (*Dispatcher, func()) {
	t.Helper()
	var mu sync.Mutex
	var emitted []events.Event
	d := New(func(ev events.Event) {
		mu.Lock()
		emitted = append(emitted, ev)
		mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	return d, func() {
		cancel()
		d.Close()
	}
}

func TestSubmitRunsCommandAndResponds(t *testing.T) {
	d, stop := startDispatcher(t)
	defer stop()

	done := make(chan struct{})
	var value interface{}
	var err error
	d.Submit(Command{
		Name: "evaluate",
		Run:  func(ctx context.Context) (interface{}, error) { return 42, nil },
		Respond: func(v interface{}, e error) {
			value, err = v, e
			close(done)
		},
	})

	select {
	case <-done:
		require.NoError(t, err)
		require.Equal(t, 42, value)
	case <-time.After(time.Second):
		t.Fatal("command never responded")
	}
}

func TestDisruptiveCommandCancelsQueuedNonSetup(t *testing.T) {
	d := New(nil)
	// Queue a blocking command before Run starts; once it is executing, a
	// second command is appended straight onto the queue behind it.
	block := make(chan struct{})
	d.Submit(Command{
		Name: "evaluate",
		Run: func(ctx context.Context) (interface{}, error) {
			<-block
			return nil, nil
		},
	})

	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		d.Run(ctx)
	}()
	time.Sleep(10 * time.Millisecond) // let the first command start executing

	queuedDone := make(chan error, 1)
	d.queueMu.Lock()
	d.queue = append(d.queue, &pending{cmd: Command{
		Name: "evaluate",
		Respond: func(v interface{}, e error) {
			queuedDone <- e
		},
	}})
	d.queueMu.Unlock()

	d.Submit(Command{
		Name:    "continue",
		Run:     func(ctx context.Context) (interface{}, error) { return nil, nil },
		Respond: func(interface{}, error) {},
	})

	select {
	case err := <-queuedDone:
		require.Equal(t, model.KindCancelled, model.KindOf(err))
	case <-time.After(time.Second):
		t.Fatal("queued command was never cancelled")
	}
	close(block)
}

func TestCancelByRequestIDCancelsInFlight(t *testing.T) {
	d, stop := startDispatcher(t)
	defer stop()

	started := make(chan struct{})
	responded := make(chan error, 1)
	d.Submit(Command{
		RequestID: "req-1",
		Name:      "evaluate",
		Run: func(ctx context.Context) (interface{}, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
		Respond: func(v interface{}, e error) { responded <- e },
	})

	<-started
	require.True(t, d.CancelByRequestID("req-1"))

	select {
	case err := <-responded:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("cancelled command never responded")
	}
}

func TestEmitEventAssignsMonotonicSeq(t *testing.T) {
	var got []events.Event
	d := New(func(ev events.Event) { got = append(got, ev) })

	d.EmitEvent(events.Event{Kind: events.KindOutput})
	d.EmitEvent(events.Event{Kind: events.KindOutput})

	require.Len(t, got, 2)
	require.Equal(t, 1, got[0].Seq)
	require.Equal(t, 2, got[1].Seq)
}

func TestSynchronousCommandBlocksSubmitter(t *testing.T) {
	d, stop := startDispatcher(t)
	defer stop()

	ran := int32(0)
	d.Submit(Command{
		Name: "initialize",
		Run: func(ctx context.Context) (interface{}, error) {
			time.Sleep(20 * time.Millisecond)
			ran = 1
			return nil, nil
		},
	})
	require.Equal(t, int32(1), ran)
}
