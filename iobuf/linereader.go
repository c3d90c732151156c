package iobuf

import "bytes"

// LineOutcome is the result of one ReadLine call.
type LineOutcome int

const (
	LineOK LineOutcome = iota
	LineInterrupt
	LineEndOfInput
	LineIOError
)

// LineReader produces one command per ReadLine call from a buffered
// Input, trimming the trailing newline (and a preceding '\r', for
// CRLF-terminated input).
type LineReader struct {
	in        *Input
	Interrupt <-chan struct{}
}

// NewLineReader wraps in. interrupt, if non-nil, is checked before each
// scan of the buffer, so a signal already delivered makes ReadLine return
// LineInterrupt; a Fill that is already blocked waiting for bytes is not
// interrupted.
func NewLineReader(in *Input, interrupt <-chan struct{}) *LineReader {
	return &LineReader{in: in, Interrupt: interrupt}
}

// ReadLine returns the next newline-terminated line (without the
// terminator), or an outcome explaining why none was produced.
func (lr *LineReader) ReadLine() (string, LineOutcome) {
	for {
		if lr.Interrupt != nil {
			select {
			case <-lr.Interrupt:
				return "", LineInterrupt
			default:
			}
		}

		if idx := bytes.IndexByte(lr.in.Unread(), '\n'); idx >= 0 {
			line := lr.in.Unread()[:idx]
			line = bytes.TrimSuffix(line, []byte{'\r'})
			out := string(line)
			lr.in.Consume(idx + 1)
			return out, LineOK
		}

		if lr.in.AtEOF() {
			rest := lr.in.Unread()
			if len(rest) == 0 {
				return "", LineEndOfInput
			}
			out := string(rest)
			lr.in.Consume(len(rest))
			return out, LineOK
		}

		status, err := lr.in.Fill()
		if err != nil {
			_ = status
			return "", LineIOError
		}
	}
}
