// Package breakpoints is the breakpoint engine: source and function
// breakpoint storage, resolution against loaded modules, exception
// filter storage, and hit dispatch — the Go counterpart of
// netcoredbg's BreakBreakpoints/FuncBreakpoints/ExceptionBreakpoints.
package breakpoints

import (
	"sort"
	"sync"

	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
)

// Resolver is the subset of runtime.Debuggee the engine needs to bind
// logical breakpoints to compiled code and install native ones.
type Resolver interface {
	ResolveLine(mod model.ModuleID, fullname string, line int) (runtime.BreakpointLocation, bool, error)
	ResolveFunction(mod model.ModuleID, name string, params []string) ([]runtime.BreakpointLocation, error)
	EntryPoint(mod model.ModuleID) (runtime.BreakpointLocation, bool)
	SetBreakpoint(loc runtime.BreakpointLocation) (model.NativeHandle, error)
	ClearBreakpoint(model.NativeHandle) error
}

// Store holds every breakpoint kind. All methods are safe for concurrent
// use; the hit path (HitDispatch) only ever holds mu briefly, per §5's
// "never held across runtime calls" rule.
type Store struct {
	mu sync.Mutex

	// bySourceLine[fullname][line] lists every logical line breakpoint at
	// that location, in creation order. Only the first Enabled entry with
	// a native handle is the "active" one; the rest are shadowed
	// duplicates sharing the same native binding's hit notifications.
	bySourceLine map[string]map[int][]*model.SourceBreakpoint

	// initial[fullname] is the desired set from the most recent
	// setBreakpoints call, kept to diff against the next one and to
	// retry resolution on module load.
	initial map[string][]*model.InitialSourceBreakpoint

	// byFuncSig[module+"!"+name+"("+params+")"] is the function
	// breakpoint keyed by its replace-semantics signature.
	byFuncSig map[string]*model.FunctionBreakpoint

	Exceptions *ExceptionStore

	loadedModules []model.Module

	nextID          int
	entryPointToken model.MethodToken
	stopAtEntry     bool
	entryInstalled  bool
	entryHandle     model.NativeHandle

	res Resolver
}

// NewStore creates an empty breakpoint store bound to res for resolution
// and native installation.
func NewStore(res Resolver) *Store {
	return &Store{
		bySourceLine: make(map[string]map[int][]*model.SourceBreakpoint),
		initial:      make(map[string][]*model.InitialSourceBreakpoint),
		byFuncSig:    make(map[string]*model.FunctionBreakpoint),
		Exceptions:   NewExceptionStore(),
		res:          res,
	}
}

// SetStopAtEntry configures whether OnModuleLoad should install an
// entry-point breakpoint for newly loaded modules.
func (s *Store) SetStopAtEntry(stop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAtEntry = stop
}

func (s *Store) allocID() int {
	s.nextID++
	return s.nextID
}

// AllocID allocates a fresh globally-unique, monotonically increasing
// breakpoint id. Exposed for exception breakpoints, which the debugger
// facade ids the same way as source/function breakpoints (§3's
// "Breakpoint ids are globally unique and monotonically increasing").
func (s *Store) AllocID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocID()
}

func funcSig(module, name string, params []string) string {
	sig := module + "!" + name + "("
	for i, p := range params {
		if i > 0 {
			sig += ","
		}
		sig += p
	}
	return sig + ")"
}

// EnumerateSourceBreakpoints calls fn for every resolved or unresolved
// line breakpoint, ordered by id ascending, stopping early if fn returns
// false.
func (s *Store) EnumerateSourceBreakpoints(fn func(*model.SourceBreakpoint) bool) {
	s.mu.Lock()
	all := make([]*model.SourceBreakpoint, 0)
	for _, byLine := range s.bySourceLine {
		for _, list := range byLine {
			all = append(all, list...)
		}
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	for _, bp := range all {
		if !fn(bp) {
			return
		}
	}
}

// EnumerateFunctionBreakpoints calls fn for every function breakpoint,
// ordered by id ascending.
func (s *Store) EnumerateFunctionBreakpoints(fn func(*model.FunctionBreakpoint) bool) {
	s.mu.Lock()
	all := make([]*model.FunctionBreakpoint, 0, len(s.byFuncSig))
	for _, bp := range s.byFuncSig {
		all = append(all, bp)
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	for _, bp := range all {
		if !fn(bp) {
			return
		}
	}
}
