package ioredirect

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRedirectorForwardsChildOutput(t *testing.T) {
	var mu sync.Mutex
	var gotStdout, gotStderr []byte

	r, err := New(func(stream StreamID, data []byte) {
		mu.Lock()
		defer mu.Unlock()
		switch stream {
		case Stdout:
			gotStdout = append(gotStdout, data...)
		case Stderr:
			gotStderr = append(gotStderr, data...)
		}
	})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ChildStdout.File().Write([]byte("hello"))
	require.NoError(t, err)
	_, err = r.ChildStderr.File().Write([]byte("oops"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return string(gotStdout) == "hello" && string(gotStderr) == "oops"
	}, time.Second, 5*time.Millisecond)
}

func TestRedirectorForwardsStdinToChild(t *testing.T) {
	r, err := New(func(StreamID, []byte) {})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Write([]byte("input line\n"))
	require.NoError(t, err)

	buf := make([]byte, 32)
	n, err := r.ChildStdin.File().Read(buf)
	require.NoError(t, err)
	require.Equal(t, "input line\n", string(buf[:n]))
}

func TestRedirectorCloseIsIdempotent(t *testing.T) {
	r, err := New(func(StreamID, []byte) {})
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}
