package iobuf

import (
	"testing"

	"github.com/coredbg/coredbg/ioh"
	"github.com/stretchr/testify/require"
)

func TestLineReaderSplitsLines(t *testing.T) {
	r, w, err := ioh.UnnamedPipe()
	require.NoError(t, err)
	defer r.Close()

	go func() {
		w.Write([]byte("first\r\nsecond\n"))
		w.Close()
	}()

	lr := NewLineReader(NewInput(r, 8), nil)

	line, outcome := lr.ReadLine()
	require.Equal(t, LineOK, outcome)
	require.Equal(t, "first", line)

	line, outcome = lr.ReadLine()
	require.Equal(t, LineOK, outcome)
	require.Equal(t, "second", line)

	_, outcome = lr.ReadLine()
	require.Equal(t, LineEndOfInput, outcome)
}

func TestLineReaderInterrupt(t *testing.T) {
	r, _, err := ioh.UnnamedPipe()
	require.NoError(t, err)
	defer r.Close()

	interrupt := make(chan struct{}, 1)
	interrupt <- struct{}{}

	lr := NewLineReader(NewInput(r, 8), interrupt)
	_, outcome := lr.ReadLine()
	require.Equal(t, LineInterrupt, outcome)
}
