package frames

import (
	"testing"

	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
	"github.com/coredbg/coredbg/varref"
	"github.com/stretchr/testify/require"
)

type stubDebuggee struct {
	runtime.Debuggee
	frames []runtime.NativeFrame
}

func (s *stubDebuggee) WalkFrames(model.ThreadId, model.FrameLevel, model.FrameLevel) ([]runtime.NativeFrame, error) {
	return s.frames, nil
}

func TestWalkFiltersInvisibleFrames(t *testing.T) {
	dbg := &stubDebuggee{frames: []runtime.NativeFrame{
		{Kind: model.FrameCLRManaged, Name: "Program.Main", Fullname: "/src/a.cs", Line: 10},
		{Kind: model.FrameNative, Name: ""},
		{Kind: model.FrameCLRInternal, Name: "[Native Frame]"},
	}}
	w := New(dbg, varref.New())

	out, err := w.Walk(1, 0, 3)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "Program.Main", out[0].Name)
	require.Equal(t, "[Native Frame]", out[1].Name)
}

func TestWalkAllocatesStableFrameIDs(t *testing.T) {
	dbg := &stubDebuggee{frames: []runtime.NativeFrame{
		{Kind: model.FrameCLRManaged, Name: "A"},
	}}
	table := varref.New()
	w := New(dbg, table)

	out, _ := w.Walk(1, 0, 1)
	require.Equal(t, table.FrameID(1, 0), out[0].Id)
}
