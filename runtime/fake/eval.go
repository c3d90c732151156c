package fake

import (
	"fmt"

	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
)

// valueHandle is this fake's runtime.ValueHandle: a named slot in the
// current line's Locals tree, resolved lazily so variablesReference
// allocation (owned by varref.Table, above this layer) never has to
// know about fake internals.
type valueHandle struct {
	path []string
}

func (f *Fake) GetScopes(thread model.ThreadId, level model.FrameLevel) ([]runtime.ScopeInfo, error) {
	line, ok := f.current()
	if !ok {
		return nil, fmt.Errorf("getscopes: no current position")
	}
	if len(line.Locals) == 0 {
		return nil, nil
	}
	return []runtime.ScopeInfo{{
		Name:           "Locals",
		Value:          valueHandle{},
		NamedVariables: len(line.Locals),
	}}, nil
}

func (f *Fake) resolve(h runtime.ValueHandle) (Value, map[string]Value, error) {
	line, ok := f.current()
	if !ok {
		return Value{}, nil, fmt.Errorf("no current position")
	}
	vh, _ := h.(valueHandle)
	children := line.Locals
	var v Value
	for _, name := range vh.path {
		child, ok := children[name]
		if !ok {
			return Value{}, nil, fmt.Errorf("no such variable %q", name)
		}
		v = child
		children = child.Children
	}
	return v, children, nil
}

func (f *Fake) GetChildren(value runtime.ValueHandle, filter model.VariableFilter, start, count int) ([]runtime.ChildInfo, error) {
	_, children, err := f.resolve(value)
	if err != nil {
		return nil, err
	}
	vh, _ := value.(valueHandle)

	out := make([]runtime.ChildInfo, 0, len(children))
	for name, v := range children {
		out = append(out, runtime.ChildInfo{
			Name:         name,
			Value:        valueHandle{path: append(append([]string(nil), vh.path...), name)},
			Text:         v.Text,
			Type:         v.Type,
			EvaluateName: name,
			HasChildren:  len(v.Children) > 0,
		})
	}
	if start < 0 {
		start = 0
	}
	if start > len(out) {
		start = len(out)
	}
	end := len(out)
	if count > 0 && start+count < end {
		end = start + count
	}
	return out[start:end], nil
}

func (f *Fake) FormatValue(value runtime.ValueHandle) (text, typ string, err error) {
	v, _, err := f.resolve(value)
	if err != nil {
		return "", "", err
	}
	return v.Text, v.Type, nil
}

func (f *Fake) SetChild(parent runtime.ValueHandle, name, expr string) (string, error) {
	line, ok := f.current()
	if !ok {
		return "", fmt.Errorf("setchild: no current position")
	}
	vh, _ := parent.(valueHandle)
	children := line.Locals
	for _, p := range vh.path {
		child, ok := children[p]
		if !ok {
			return "", fmt.Errorf("no such variable %q", p)
		}
		children = child.Children
	}
	v, ok := children[name]
	if !ok {
		return "", fmt.Errorf("no such variable %q", name)
	}
	v.Text = expr
	children[name] = v
	return expr, nil
}

// EvaluateExpr resolves a dotted expression ("a.b.c") against the
// current line's Locals tree.
func (f *Fake) EvaluateExpr(thread model.ThreadId, level model.FrameLevel, expr string) (runtime.ValueHandle, error) {
	line, ok := f.current()
	if !ok {
		return nil, fmt.Errorf("evaluateexpr: no current position")
	}
	parts := splitDotted(expr)
	children := line.Locals
	for i, p := range parts {
		v, ok := children[p]
		if !ok {
			return nil, fmt.Errorf("no such variable %q", p)
		}
		if i == len(parts)-1 {
			return valueHandle{path: parts}, nil
		}
		children = v.Children
	}
	return nil, fmt.Errorf("empty expression")
}

func splitDotted(expr string) []string {
	var out []string
	start := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] == '.' {
			out = append(out, expr[start:i])
			start = i + 1
		}
	}
	out = append(out, expr[start:])
	return out
}

// EvalCall answers a scheduled eval.Queue.Run request. A dotted
// expression (req.Expr) resolves the same way EvaluateExpr does; this
// fake never invokes real managed code, so a bound call (req.Method)
// always completes with an error instead.
func (f *Fake) EvalCall(req runtime.EvalRequest) error {
	if req.Expr != "" {
		val, err := f.EvaluateExpr(req.Thread, req.Frame, req.Expr)
		f.emitEval(runtime.EvalResult{Thread: req.Thread, Value: val, Err: err})
		return nil
	}
	f.emitEval(runtime.EvalResult{Thread: req.Thread, Err: fmt.Errorf("eval calls are not supported by the fake runtime")})
	return nil
}

func (f *Fake) CancelEval(thread model.ThreadId) error { return nil }
