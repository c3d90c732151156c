// Package iobuf layers buffered input/output and a line reader over the
// ioh handle abstraction, the way netcoredbg's streams.h sits between
// IOSystem and the protocols.
package iobuf

import (
	"github.com/coredbg/coredbg/ioh"
)

const (
	defaultBufSize  = 4096
	minLineEstimate = 256
)

// Input is a buffered reader over a Handle that exposes direct access to
// its unread region, so a LineReader can scan for '\n' without copying.
type Input struct {
	h          ioh.Handle
	buf        []byte
	start, end int
	eof        bool
}

// NewInput allocates an Input with the given buffer size (defaulted if
// <= 0).
func NewInput(h ioh.Handle, size int) *Input {
	if size <= 0 {
		size = defaultBufSize
	}
	return &Input{h: h, buf: make([]byte, size)}
}

// Unread returns the currently buffered, not-yet-consumed bytes. The
// slice is only valid until the next Fill or Consume call.
func (in *Input) Unread() []byte {
	return in.buf[in.start:in.end]
}

// Consume advances past n already-examined bytes of Unread().
func (in *Input) Consume(n int) {
	in.start += n
	if in.start > in.end {
		in.start = in.end
	}
}

// AtEOF reports whether the underlying handle has reported Eof and all
// buffered bytes have been consumed.
func (in *Input) AtEOF() bool {
	return in.eof && in.start == in.end
}

// Fill reads more data from the handle into free buffer space, compacting
// the unread tail to the front first if free space has fallen below the
// threshold (a quarter of the buffer, or a line's worth, whichever is
// larger). It returns the underlying read status.
func (in *Input) Fill() (ioh.Status, error) {
	if in.eof {
		return ioh.Eof, nil
	}

	free := len(in.buf) - in.end
	threshold := len(in.buf) / 4
	if threshold < minLineEstimate {
		threshold = minLineEstimate
	}
	if free < threshold {
		in.compact()
		free = len(in.buf) - in.end
	}
	if free == 0 {
		// Buffer is full of unread data with nowhere to compact to; grow it.
		in.grow()
		free = len(in.buf) - in.end
	}

	res := in.h.Read(in.buf[in.end : in.end+free])
	switch res.Status {
	case ioh.Success:
		in.end += res.N
		return ioh.Success, nil
	case ioh.Eof:
		in.eof = true
		return ioh.Eof, nil
	default:
		return ioh.IOErr, res.Err
	}
}

func (in *Input) compact() {
	if in.start == 0 {
		return
	}
	n := copy(in.buf, in.buf[in.start:in.end])
	in.start = 0
	in.end = n
}

func (in *Input) grow() {
	bigger := make([]byte, len(in.buf)*2)
	n := copy(bigger, in.buf[in.start:in.end])
	in.buf = bigger
	in.start = 0
	in.end = n
}
