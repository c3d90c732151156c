package mi

import (
	"strconv"
	"strings"
)

// linespec is a resolved break-insert location: exactly one of (File,
// Line) or Func is populated. Adapted from rpc/cli's parser, simplified
// because MI's -break-insert argument always carries an explicit
// location rather than referring to "the current line".
type linespec struct {
	File string
	Line int
	Func string
}

func parseLinespec(spec string) (linespec, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) == 1 {
		if n, err := strconv.Atoi(parts[0]); err == nil {
			return linespec{Line: n}, nil
		}
		return linespec{Func: parts[0]}, nil
	}
	if n, err := strconv.Atoi(parts[1]); err == nil {
		return linespec{File: parts[0], Line: n}, nil
	}
	return linespec{File: parts[0], Func: parts[1]}, nil
}
