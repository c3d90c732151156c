// Package frames turns a native frame walk into the StackFrame records a
// protocol client sees, classifying and filtering frames the way
// netcoredbg's FrameInfo/StackTrace does.
package frames

import (
	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
	"github.com/coredbg/coredbg/varref"
)

// Walker resolves a thread's frame window into rendered StackFrame
// records, allocating FrameIds lazily through a shared varref.Table.
type Walker struct {
	dbg   runtime.Debuggee
	table *varref.Table
}

// New returns a Walker backed by dbg and table.
func New(dbg runtime.Debuggee, table *varref.Table) *Walker {
	return &Walker{dbg: dbg, table: table}
}

// Visible reports whether kind is rendered as a StackFrame: only managed
// frames and named internal frames are, per §4.7.
func Visible(kind model.FrameKind, name string) bool {
	switch kind {
	case model.FrameCLRManaged:
		return true
	case model.FrameCLRInternal:
		return name != ""
	default:
		return false
	}
}

// Walk resolves thread's frames in [low, high), synthesizing a
// StackFrame for each visible native frame.
func (w *Walker) Walk(thread model.ThreadId, low, high model.FrameLevel) ([]model.StackFrame, error) {
	native, err := w.dbg.WalkFrames(thread, low, high)
	if err != nil {
		return nil, err
	}

	out := make([]model.StackFrame, 0, len(native))
	for i, nf := range native {
		if !Visible(nf.Kind, nf.Name) {
			continue
		}
		level := low + model.FrameLevel(i)
		out = append(out, model.StackFrame{
			Id:        w.table.FrameID(thread, level),
			Name:      nf.Name,
			Source:    model.NewSource(nf.Fullname),
			Line:      nf.Line,
			Column:    nf.Column,
			EndLine:   nf.EndLine,
			EndColumn: nf.EndColumn,
			ModuleId:  nf.Module,
			ClrAddr:   nf.ClrAddr,
			HasAddr:   nf.ClrAddr != 0,
		})
	}
	return out, nil
}
