package iobuf

import (
	"runtime"

	"github.com/coredbg/coredbg/ioh"
)

// Output is a buffered writer over a Handle. It flushes on overflow or an
// explicit Sync, and yields the goroutine while a write is Pending rather
// than busy-spinning.
type Output struct {
	h   ioh.Handle
	buf []byte
}

// NewOutput allocates an Output with the given buffer size (defaulted if
// <= 0).
func NewOutput(h ioh.Handle, size int) *Output {
	if size <= 0 {
		size = defaultBufSize
	}
	return &Output{h: h, buf: make([]byte, 0, size)}
}

// Write appends p to the buffer, flushing first if p would overflow it.
func (o *Output) Write(p []byte) (int, error) {
	if len(o.buf)+len(p) > cap(o.buf) {
		if err := o.Sync(); err != nil {
			return 0, err
		}
	}
	if len(p) > cap(o.buf) {
		// Larger than the whole buffer: write straight through.
		return o.writeAll(p)
	}
	o.buf = append(o.buf, p...)
	return len(p), nil
}

// Sync flushes any buffered bytes to the handle.
func (o *Output) Sync() error {
	if len(o.buf) == 0 {
		return nil
	}
	n, err := o.writeAll(o.buf)
	o.buf = o.buf[:0]
	if err != nil {
		return err
	}
	_ = n
	return nil
}

func (o *Output) writeAll(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		res := o.h.Write(p[total:])
		switch res.Status {
		case ioh.Success:
			total += res.N
		case ioh.Pending:
			runtime.Gosched()
		default:
			return total, res.Err
		}
	}
	return total, nil
}
