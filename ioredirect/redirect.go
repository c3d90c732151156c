// Package ioredirect owns the three pipe pairs bound to a debuggee's
// standard streams and the single worker that pumps bytes across them,
// the Go counterpart of netcoredbg's ioredirect.cpp.
package ioredirect

import (
	"sync/atomic"

	"github.com/coredbg/coredbg/ioh"
)

// StreamID names one of the debuggee's output streams.
type StreamID int

const (
	Stdout StreamID = iota
	Stderr
)

// OutputFunc is called from the redirector's worker goroutine whenever a
// chunk of child output arrives. data is only valid for the duration of
// the call.
type OutputFunc func(stream StreamID, data []byte)

const (
	readChunk    = 4096
	stdinPumpCap = 4096
)

// Redirector owns three unnamed pipe pairs — one per standard stream —
// and a single worker goroutine that always keeps an async read
// outstanding on the child's stdout and stderr ends, and forwards
// producer-written bytes into the child's stdin via the three-region
// stdinPump.
type Redirector struct {
	// ChildStdin/ChildStdout/ChildStderr are the ends handed to the
	// spawned debuggee process.
	ChildStdin  ioh.Handle
	ChildStdout ioh.Handle
	ChildStderr ioh.Handle

	stdinW  ioh.Handle // our end: forwards Write() calls to ChildStdin
	stdoutR ioh.Handle // our end: drains ChildStdout
	stderrR ioh.Handle // our end: drains ChildStderr

	controlR, controlW ioh.Handle

	pump *stdinPump
	cb   OutputFunc

	wakePending int32 // guards redundant control-pipe writes
	closing     int32 // idempotent cancellation flag
	done        chan struct{}
}

// New creates the three pipe pairs and starts the worker goroutine,
// delivering child output to cb.
func New(cb OutputFunc) (*Redirector, error) {
	stdinR, stdinW, err := ioh.UnnamedPipe()
	if err != nil {
		return nil, err
	}
	stdoutR, stdoutW, err := ioh.UnnamedPipe()
	if err != nil {
		return nil, err
	}
	stderrR, stderrW, err := ioh.UnnamedPipe()
	if err != nil {
		return nil, err
	}
	ctlR, ctlW, err := ioh.UnnamedPipe()
	if err != nil {
		return nil, err
	}

	r := &Redirector{
		ChildStdin:  stdinR,
		ChildStdout: stdoutW,
		ChildStderr: stderrW,
		stdinW:      stdinW,
		stdoutR:     stdoutR,
		stderrR:     stderrR,
		controlR:    ctlR,
		controlW:    ctlW,
		pump:        newStdinPump(stdinPumpCap),
		cb:          cb,
		done:        make(chan struct{}),
	}
	go r.run()
	return r, nil
}

// Write queues p to be forwarded to the debuggee's stdin. It never
// blocks on the debuggee; bytes sit in the pump until the worker claims
// them.
func (r *Redirector) Write(p []byte) (int, error) {
	cp := append([]byte(nil), p...)
	r.pump.append(cp)
	r.wake()
	return len(p), nil
}

// CloseInput tells the worker that no more input will be written; once
// the pump drains, the worker closes the debuggee's stdin write end.
func (r *Redirector) CloseInput() {
	r.pump.endInput()
	r.wake()
}

// Close idempotently stops the worker and releases every handle this
// redirector owns. Calling Close more than once, or concurrently with
// itself, is safe: the atomic closing flag guards against redundant
// wakeups and double-teardown.
func (r *Redirector) Close() error {
	if atomic.CompareAndSwapInt32(&r.closing, 0, 1) {
		r.wake()
		<-r.done
	}
	return nil
}

func (r *Redirector) wake() {
	if atomic.CompareAndSwapInt32(&r.wakePending, 0, 1) {
		r.controlW.Write([]byte{0})
	}
}

// run is the redirector's single worker: it keeps one async read
// outstanding on each of stdout/stderr/control, and at most one async
// write outstanding against the debuggee's stdin, waiting on whichever
// completes first via ioh.AsyncWait.
func (r *Redirector) run() {
	defer close(r.done)
	defer r.teardown()

	stdoutBuf := make([]byte, readChunk)
	stderrBuf := make([]byte, readChunk)
	ctlBuf := make([]byte, 1)

	stdoutRead := r.stdoutR.AsyncRead(stdoutBuf)
	stderrRead := r.stderrR.AsyncRead(stderrBuf)
	ctlRead := r.controlR.AsyncRead(ctlBuf)
	var stdinWrite *ioh.AsyncHandle

	stdoutOpen, stderrOpen := true, true

	for {
		if atomic.LoadInt32(&r.closing) == 1 {
			if stdoutOpen {
				stdoutRead.Cancel()
			}
			if stderrOpen {
				stderrRead.Cancel()
			}
			if !stdoutOpen && !stderrOpen {
				if stdinWrite != nil {
					stdinWrite.Cancel()
					stdinWrite.Result()
				}
				ctlRead.Cancel()
				ctlRead.Result()
				return
			}
		}

		if stdinWrite == nil && atomic.LoadInt32(&r.closing) == 0 {
			if data, ok := r.pump.claim(); ok {
				stdinWrite = r.stdinW.AsyncWrite(data)
			} else if r.pump.drained() {
				r.stdinW.Close()
			}
		}

		handles := make([]*ioh.AsyncHandle, 0, 4)
		idxStdout, idxStderr, idxCtl, idxStdin := -1, -1, -1, -1
		if stdoutOpen {
			idxStdout = len(handles)
			handles = append(handles, stdoutRead)
		}
		if stderrOpen {
			idxStderr = len(handles)
			handles = append(handles, stderrRead)
		}
		idxCtl = len(handles)
		handles = append(handles, ctlRead)
		if stdinWrite != nil {
			idxStdin = len(handles)
			handles = append(handles, stdinWrite)
		}

		idx, ok := ioh.AsyncWait(handles, 0)
		if !ok {
			continue
		}

		switch idx {
		case idxStdout:
			res := stdoutRead.Result()
			if res.Status == ioh.Success && res.N > 0 {
				r.cb(Stdout, stdoutBuf[:res.N])
				stdoutRead = r.stdoutR.AsyncRead(stdoutBuf)
			} else {
				stdoutOpen = false
			}
		case idxStderr:
			res := stderrRead.Result()
			if res.Status == ioh.Success && res.N > 0 {
				r.cb(Stderr, stderrBuf[:res.N])
				stderrRead = r.stderrR.AsyncRead(stderrBuf)
			} else {
				stderrOpen = false
			}
		case idxCtl:
			ctlRead.Result()
			atomic.StoreInt32(&r.wakePending, 0)
			ctlRead = r.controlR.AsyncRead(ctlBuf)
		case idxStdin:
			res := stdinWrite.Result()
			if res.Status == ioh.Success {
				r.pump.ack(res.N)
			}
			stdinWrite = nil
		}
	}
}

func (r *Redirector) teardown() {
	r.stdinW.Close()
	r.stdoutR.Close()
	r.stderrR.Close()
	r.controlR.Close()
	r.controlW.Close()
}
