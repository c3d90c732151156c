package ioh

import "os"

// StdIOSwap substitutes the calling process's standard streams with a
// provided triple for the lifetime of the scope, restoring the originals
// when Close runs — including when the enclosed action fails, so callers
// should always `defer swap.Close()` immediately after construction.
type StdIOSwap struct {
	origStdin, origStdout, origStderr *os.File
}

// NewStdIOSwap swaps os.Stdin/Stdout/Stderr for the handles given,
// remembering the originals for Close to restore. Empty handles leave the
// corresponding stream untouched.
func NewStdIOSwap(stdin, stdout, stderr Handle) *StdIOSwap {
	s := &StdIOSwap{
		origStdin:  os.Stdin,
		origStdout: os.Stdout,
		origStderr: os.Stderr,
	}
	if !stdin.Empty() {
		os.Stdin = stdin.f
	}
	if !stdout.Empty() {
		os.Stdout = stdout.f
	}
	if !stderr.Empty() {
		os.Stderr = stderr.f
	}
	return s
}

// Close restores the standard streams saved at construction. Safe to call
// more than once.
func (s *StdIOSwap) Close() error {
	if s == nil {
		return nil
	}
	os.Stdin, os.Stdout, os.Stderr = s.origStdin, s.origStdout, s.origStderr
	return nil
}
