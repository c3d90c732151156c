// Package mi is the GDB/MI line dialect (§6): token-prefixed dash
// commands in, result/async-record lines out, built over the same
// debugger.Facade and dispatch.Dispatcher as rpc/dap and rpc/cli.
// Escaping and breakpoint rendering reuse events.MIEscape/MIQuote and
// breakpoints.RenderMI rather than reimplementing GDB/MI string rules.
package mi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coredbg/coredbg/events"
	"github.com/kballard/go-shellquote"
)

func quote(s string) string { return events.MIQuote(s) }

// request is one parsed input line: an optional numeric token, the
// command name with its leading dash stripped, and its positional
// arguments (MI "--option value" pairs are folded into args verbatim,
// since none of the commands this dialect implements need them parsed).
type request struct {
	token string
	cmd   string
	args  []string
}

func parseRequest(line string) (request, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return request{}, fmt.Errorf("empty command")
	}

	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	token := line[:i]
	rest := strings.TrimSpace(line[i:])

	if rest == "" || rest[0] != '-' {
		return request{}, fmt.Errorf("expected command starting with '-', got %q", rest)
	}
	rest = rest[1:]

	parts, err := shellquote.Split(rest)
	if err != nil {
		return request{}, err
	}
	if len(parts) == 0 {
		return request{}, fmt.Errorf("empty command")
	}

	return request{token: token, cmd: parts[0], args: parts[1:]}, nil
}

// tuple renders a flat set of name/value MI fields, e.g. `number="1",line="10"`.
type tuple []field

type field struct {
	name  string
	value string
}

func (t tuple) String() string {
	parts := make([]string, len(t))
	for i, f := range t {
		parts[i] = fmt.Sprintf("%s=%s", f.name, f.value)
	}
	return strings.Join(parts, ",")
}

func f(name, value string) field { return field{name: name, value: quote(value)} }

func fi(name string, value int) field { return field{name: name, value: quote(strconv.Itoa(value))} }

func fraw(name, value string) field { return field{name: name, value: value} }
