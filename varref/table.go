// Package varref is the process-wide, per-stop reference table: a
// monotonically increasing generation of handles mapping FrameId and
// variablesReference integers to their underlying value, cleared on
// every resume once all readers are quiescent (§5). Clear still takes the
// table's mutex, like every other method.
package varref

import (
	"sync"

	"github.com/coredbg/coredbg/model"
)

// Table allocates FrameId and variablesReference handles and stores what
// they resolve to. It is safe for concurrent reads/writes while the
// process is Paused; Clear must only be called once every reader has
// quiesced (i.e. after Continue has transitioned the state machine, per
// the locking discipline of §5).
type Table struct {
	mu       sync.Mutex
	nextID   int64
	frames   map[model.FrameId]frameEntry
	varRefs  map[int]model.VariableReference
}

type frameEntry struct {
	thread model.ThreadId
	level  model.FrameLevel
}

// New returns an empty Table.
func New() *Table {
	return &Table{
		frames:  make(map[model.FrameId]frameEntry),
		varRefs: make(map[int]model.VariableReference),
	}
}

func (t *Table) alloc() int64 {
	t.nextID++
	return t.nextID
}

// FrameID returns the stable FrameId for (thread, level), allocating one
// lazily on first request within the current stop.
func (t *Table) FrameID(thread model.ThreadId, level model.FrameLevel) model.FrameId {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, e := range t.frames {
		if e.thread == thread && e.level == level {
			return id
		}
	}
	id := model.FrameId(t.alloc())
	t.frames[id] = frameEntry{thread: thread, level: level}
	return id
}

// ResolveFrame looks up the (thread, level) a FrameId was allocated for.
func (t *Table) ResolveFrame(id model.FrameId) (thread model.ThreadId, level model.FrameLevel, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.frames[id]
	return e.thread, e.level, ok
}

// NewReference allocates a fresh variablesReference for ref and stores
// it, returning the assigned integer.
func (t *Table) NewReference(ref model.VariableReference) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := int(t.alloc())
	ref.Reference = id
	t.varRefs[id] = ref
	return id
}

// Resolve returns the VariableReference registered under ref.
func (t *Table) Resolve(ref int) (model.VariableReference, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.varRefs[ref]
	return v, ok
}

// Clear discards every frame id and variable reference, invalidating
// them for any stale holder. Must be called when the process resumes,
// before its transition becomes externally observable (§5(c)).
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = make(map[model.FrameId]frameEntry)
	t.varRefs = make(map[int]model.VariableReference)
}
