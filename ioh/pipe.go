package ioh

import (
	"fmt"
	"net"
	"os"

	"github.com/pkg/errors"
)

// UnnamedPipe creates an anonymous pipe, returning its reading and
// writing ends.
func UnnamedPipe() (r, w Handle, err error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return Handle{}, Handle{}, errors.Wrap(err, "unnamed_pipe")
	}
	return WrapFile(pr), WrapFile(pw), nil
}

// ListenSocket opens a TCP listener on port, blocks for a single
// incoming connection, then closes the listener and returns the accepted
// connection as a Handle. Matches the native contract's "listen, accept
// one connection" semantics used for --server mode.
func ListenSocket(port int) (Handle, error) {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return Handle{}, errors.Wrap(err, "listen_socket")
	}
	defer l.Close()

	conn, err := l.Accept()
	if err != nil {
		return Handle{}, errors.Wrap(err, "listen_socket accept")
	}

	tc, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return Handle{}, errors.New("listen_socket: not a TCP connection")
	}
	f, err := tc.File()
	if err != nil {
		return Handle{}, errors.Wrap(err, "listen_socket: dup connection")
	}
	return WrapFile(f), nil
}

// GetStdFiles returns handles wrapping the calling process's current
// standard streams.
func GetStdFiles() (stdin, stdout, stderr Handle) {
	return WrapFile(os.Stdin), WrapFile(os.Stdout), WrapFile(os.Stderr)
}
