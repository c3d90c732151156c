package ioh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnnamedPipeReadWrite(t *testing.T) {
	r, w, err := UnnamedPipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	res := w.Write([]byte("hello"))
	require.Equal(t, Success, res.Status)
	require.Equal(t, 5, res.N)

	buf := make([]byte, 16)
	rres := r.Read(buf)
	require.Equal(t, Success, rres.Status)
	require.Equal(t, "hello", string(buf[:rres.N]))
}

func TestAsyncReadThenEOF(t *testing.T) {
	r, w, err := UnnamedPipe()
	require.NoError(t, err)
	defer r.Close()

	a := r.AsyncRead(make([]byte, 16))
	w.Write([]byte("hi"))
	res := a.Result()
	require.Equal(t, Success, res.Status)
	require.Equal(t, 2, res.N)

	w.Close()
	a2 := r.AsyncRead(make([]byte, 16))
	res2 := a2.Result()
	require.Equal(t, Eof, res2.Status)
}

func TestAsyncCancelIsIdempotent(t *testing.T) {
	r, _, err := UnnamedPipe()
	require.NoError(t, err)
	defer r.Close()

	a := r.AsyncRead(make([]byte, 16))
	require.NoError(t, a.Cancel())
	require.NoError(t, a.Cancel())

	res := a.Result()
	require.Equal(t, IOErr, res.Status)
	require.Equal(t, res, a.Result())
}

func TestAsyncWaitPicksReadyHandle(t *testing.T) {
	r1, w1, err := UnnamedPipe()
	require.NoError(t, err)
	defer r1.Close()
	defer w1.Close()

	r2, _, err := UnnamedPipe()
	require.NoError(t, err)
	defer r2.Close()

	a1 := r1.AsyncRead(make([]byte, 16))
	a2 := r2.AsyncRead(make([]byte, 16))

	w1.Write([]byte("x"))

	idx, ok := AsyncWait([]*AsyncHandle{a1, a2}, time.Second)
	require.True(t, ok)
	require.Equal(t, 0, idx)
	require.Equal(t, Success, a1.Result().Status)

	require.NoError(t, a2.Cancel())
}
