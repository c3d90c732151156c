package varref

import (
	"testing"

	"github.com/coredbg/coredbg/model"
	"github.com/stretchr/testify/require"
)

func TestFrameIDStableWithinStop(t *testing.T) {
	tbl := New()
	id1 := tbl.FrameID(1, 0)
	id2 := tbl.FrameID(1, 0)
	require.Equal(t, id1, id2)

	thread, level, ok := tbl.ResolveFrame(id1)
	require.True(t, ok)
	require.Equal(t, model.ThreadId(1), thread)
	require.Equal(t, model.FrameLevel(0), level)
}

func TestClearInvalidatesHandles(t *testing.T) {
	tbl := New()
	id := tbl.FrameID(1, 0)
	ref := tbl.NewReference(model.VariableReference{Kind: model.ValueScope})

	tbl.Clear()

	_, ok := tbl.ResolveFrame(id)
	require.False(t, ok)
	_, ok = tbl.Resolve(ref)
	require.False(t, ok)
}
