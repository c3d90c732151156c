// Package ioh is the IO abstraction layer: a copyable file-handle type
// with synchronous and asynchronous, cancellable read/write, multi-handle
// wait, unnamed-pipe and single-accept TCP listen helpers, and a scoped
// swap of the process's standard streams for launching a child process.
//
// iobuf and ioredirect work through Handle and AsyncHandle, the way
// netcoredbg's IOSystemImpl puts OS primitives behind one template. The
// protocol front ends take plain io.Reader/io.Writer values, and
// cmd/coredbg passes them os.Stdin/os.Stdout or Handle.File directly.
package ioh

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Status is the outcome of a read or write.
type Status int

const (
	Success Status = iota
	Pending
	IOErr
	Eof
)

func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case Pending:
		return "Pending"
	case Eof:
		return "Eof"
	default:
		return "Error"
	}
}

// Result is the outcome of a read or write: how many bytes moved, and the
// status. No error is ever hidden; Err is set whenever Status is IOErr.
type Result struct {
	Status Status
	N      int
	Err    error
}

// Handle is a reference to an open file, pipe end or socket connection.
// It is a thin, copyable wrapper: copying a Handle does not duplicate the
// underlying descriptor, matching netcoredbg's "handles are references,
// not ownership" FileHandle contract. The zero Handle is empty.
type Handle struct {
	f *os.File
}

// WrapFile adopts f as a Handle. f is owned by the caller until Close is
// called on a Handle referencing it.
func WrapFile(f *os.File) Handle { return Handle{f: f} }

// Empty reports whether h refers to no open file.
func (h Handle) Empty() bool { return h.f == nil }

// File exposes the underlying *os.File for collaborators (process
// spawning, socket accept) that must hand a raw descriptor to the OS.
func (h Handle) File() *os.File { return h.f }

// Read performs a synchronous read. It never panics on a closed handle;
// it reports IOErr instead.
func (h Handle) Read(p []byte) Result {
	if h.Empty() {
		return Result{Status: IOErr, Err: errors.New("read on empty handle")}
	}
	n, err := h.f.Read(p)
	switch {
	case err == nil:
		return Result{Status: Success, N: n}
	case errors.Is(err, io.EOF):
		return Result{Status: Eof, N: n}
	default:
		return Result{Status: IOErr, N: n, Err: err}
	}
}

// Write performs a synchronous write.
func (h Handle) Write(p []byte) Result {
	if h.Empty() {
		return Result{Status: IOErr, Err: errors.New("write on empty handle")}
	}
	n, err := h.f.Write(p)
	if err != nil {
		return Result{Status: IOErr, N: n, Err: err}
	}
	return Result{Status: Success, N: n}
}

// Close closes the underlying descriptor. Safe to call on an empty
// Handle.
func (h Handle) Close() error {
	if h.Empty() {
		return nil
	}
	return h.f.Close()
}

// SetInherit is a no-op apart from rejecting an empty Handle: it does not
// change any descriptor flag, and inherit is ignored. os.StartProcess
// already inherits any *os.File passed in ExtraFiles/Std{in,out,err}; the
// function is kept for interface parity with the native contract, which
// requires explicit opt-in per handle.
func SetInherit(h Handle, inherit bool) error {
	if h.Empty() {
		return errors.New("cannot set inheritance on empty handle")
	}
	return nil
}
