package breakpoints

import (
	"github.com/coredbg/coredbg/events"
	"github.com/coredbg/coredbg/model"
	"github.com/coredbg/coredbg/runtime"
)

// SetSourceBreakpoints replaces the desired set of line breakpoints for
// fullname with reqs, diffing against the previous call so unchanged
// entries keep their id. It returns the rendered result in input order.
func (s *Store) SetSourceBreakpoints(fullname string, reqs []model.SourceBreakpointRequest) []model.Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.initial[fullname]
	prevByLine := make(map[int]*model.InitialSourceBreakpoint, len(prev))
	for _, p := range prev {
		prevByLine[p.Request.Line] = p
	}

	keep := make(map[int]bool, len(reqs))
	next := make([]*model.InitialSourceBreakpoint, 0, len(reqs))
	out := make([]model.Breakpoint, 0, len(reqs))

	for _, req := range reqs {
		keep[req.Line] = true
		entry, existed := prevByLine[req.Line]
		if !existed {
			entry = &model.InitialSourceBreakpoint{Request: req, ID: s.allocID()}
		} else {
			entry.Request = req
		}
		next = append(next, entry)
		out = append(out, s.resolveOneLocked(fullname, entry))
	}

	// Removed entries: deactivate their native bindings.
	for line, p := range prevByLine {
		if !keep[line] {
			s.deactivateLineLocked(fullname, line, p.ID)
		}
	}

	s.initial[fullname] = next
	return out
}

// resolveOneLocked attempts to bind entry against every loaded module and
// records the result (possibly unresolved) into bySourceLine, returning
// the rendered breakpoint. mu must be held.
func (s *Store) resolveOneLocked(fullname string, entry *model.InitialSourceBreakpoint) model.Breakpoint {
	byLine := s.bySourceLine[fullname]
	if byLine == nil {
		byLine = make(map[int][]*model.SourceBreakpoint)
		s.bySourceLine[fullname] = byLine
	}

	existing := findByID(byLine[entry.Request.Line], entry.ID)
	if existing == nil {
		existing = &model.SourceBreakpoint{
			ID:        entry.ID,
			Fullname:  fullname,
			Linenum:   entry.Request.Line,
			Enabled:   true,
			Condition: entry.Request.Condition,
		}
		byLine[entry.Request.Line] = append(byLine[entry.Request.Line], existing)
	} else {
		existing.Condition = entry.Request.Condition
	}

	if !existing.Resolved() {
		for _, mod := range s.loadedModules {
			loc, ok, err := s.res.ResolveLine(mod.ID, fullname, entry.Request.Line)
			if err != nil || !ok {
				continue
			}
			s.bindSourceLocked(existing, mod.ID, loc)
			break
		}
	}

	return s.renderSourceLocked(existing)
}

// bindSourceLocked installs a native breakpoint for bp unless another
// entry at the same line is already active, in which case bp becomes a
// shadowed duplicate sharing that binding's identity for hit purposes.
func (s *Store) bindSourceLocked(bp *model.SourceBreakpoint, mod model.ModuleID, loc runtime.BreakpointLocation) {
	bp.ModAddress = mod
	bp.MethodToken = loc.MethodToken
	bp.ILOffset = loc.ILOffset
	bp.EndLine = loc.EndLine

	siblings := s.bySourceLine[bp.Fullname][bp.Linenum]
	for _, sib := range siblings {
		if sib != bp && sib.Resolved() && sib.NativeHandle != 0 {
			bp.NativeHandle = sib.NativeHandle
			return
		}
	}

	handle, err := s.res.SetBreakpoint(loc)
	if err != nil {
		bp.ModAddress = 0
		return
	}
	bp.NativeHandle = handle
}

func (s *Store) deactivateLineLocked(fullname string, line int, id int) {
	byLine := s.bySourceLine[fullname]
	list := byLine[line]
	for i, bp := range list {
		if bp.ID == id {
			s.maybeClearNativeLocked(fullname, line, bp)
			byLine[line] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// maybeClearNativeLocked releases bp's native handle if no remaining
// sibling at the same line still references it.
func (s *Store) maybeClearNativeLocked(fullname string, line int, bp *model.SourceBreakpoint) {
	if bp.NativeHandle == 0 {
		return
	}
	for _, sib := range s.bySourceLine[fullname][line] {
		if sib != bp && sib.NativeHandle == bp.NativeHandle {
			return
		}
	}
	s.res.ClearBreakpoint(bp.NativeHandle)
}

func findByID(list []*model.SourceBreakpoint, id int) *model.SourceBreakpoint {
	for _, bp := range list {
		if bp.ID == id {
			return bp
		}
	}
	return nil
}

// SetFunctionBreakpoints replaces the desired set of function breakpoints
// with reqs, keyed by (module, name, params) signature.
func (s *Store) SetFunctionBreakpoints(reqs []model.FunctionBreakpointRequest) []model.Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[string]bool, len(reqs))
	out := make([]model.Breakpoint, 0, len(reqs))

	for _, req := range reqs {
		sig := funcSig(req.Module, req.Name, req.Params)
		keep[sig] = true

		bp, existed := s.byFuncSig[sig]
		if !existed {
			bp = &model.FunctionBreakpoint{
				ID:      s.allocID(),
				Module:  req.Module,
				Name:    req.Name,
				Params:  req.Params,
				Enabled: true,
			}
			s.byFuncSig[sig] = bp
		}
		bp.Condition = req.Condition

		if len(bp.Bindings) == 0 {
			for _, mod := range s.loadedModules {
				if req.Module != "" && mod.Name != req.Module {
					continue
				}
				locs, err := s.res.ResolveFunction(mod.ID, req.Name, req.Params)
				if err != nil {
					continue
				}
				for _, loc := range locs {
					handle, err := s.res.SetBreakpoint(loc)
					if err != nil {
						continue
					}
					bp.Bindings = append(bp.Bindings, model.FunctionBinding{
						ModAddress:   mod.ID,
						MethodToken:  loc.MethodToken,
						NativeHandle: handle,
					})
				}
			}
		}

		out = append(out, renderFunction(bp))
	}

	for sig, bp := range s.byFuncSig {
		if !keep[sig] {
			for _, b := range bp.Bindings {
				s.res.ClearBreakpoint(b.NativeHandle)
			}
			delete(s.byFuncSig, sig)
		}
	}

	return out
}

// OnModuleLoad attempts to resolve every unresolved breakpoint against
// the newly loaded module and, if configured, installs the entry-point
// breakpoint. emit receives a BreakpointChanged event for every
// binding newly resolved.
func (s *Store) OnModuleLoad(mod model.Module, emit func(events.Event)) {
	s.mu.Lock()
	s.loadedModules = append(s.loadedModules, mod)

	for fullname, list := range s.initial {
		for _, entry := range list {
			byLine := s.bySourceLine[fullname]
			bp := findByID(byLine[entry.Request.Line], entry.ID)
			if bp == nil || bp.Resolved() {
				continue
			}
			loc, ok, err := s.res.ResolveLine(mod.ID, fullname, entry.Request.Line)
			if err != nil || !ok {
				continue
			}
			s.bindSourceLocked(bp, mod.ID, loc)
			if bp.Resolved() {
				rendered := s.renderSourceLocked(bp)
				s.mu.Unlock()
				emit(events.Event{Kind: events.KindBreakpoint, Breakpoint: &rendered, BreakpointReason: events.BreakpointChanged})
				s.mu.Lock()
			}
		}
	}

	for sig, bp := range s.byFuncSig {
		_ = sig
		if len(bp.Bindings) > 0 {
			continue
		}
		locs, err := s.res.ResolveFunction(mod.ID, bp.Name, bp.Params)
		if err != nil {
			continue
		}
		for _, loc := range locs {
			handle, err := s.res.SetBreakpoint(loc)
			if err != nil {
				continue
			}
			bp.Bindings = append(bp.Bindings, model.FunctionBinding{ModAddress: mod.ID, MethodToken: loc.MethodToken, NativeHandle: handle})
		}
		if len(bp.Bindings) > 0 {
			rendered := renderFunction(bp)
			s.mu.Unlock()
			emit(events.Event{Kind: events.KindBreakpoint, Breakpoint: &rendered, BreakpointReason: events.BreakpointChanged})
			s.mu.Lock()
		}
	}

	stopAtEntry := s.stopAtEntry
	s.mu.Unlock()

	if stopAtEntry {
		s.installEntryPoint(mod)
	}
}

func (s *Store) installEntryPoint(mod model.Module) {
	s.mu.Lock()
	if s.entryInstalled {
		s.mu.Unlock()
		return
	}
	loc, ok := s.res.EntryPoint(mod.ID)
	if !ok {
		s.mu.Unlock()
		return
	}
	handle, err := s.res.SetBreakpoint(loc)
	if err != nil {
		s.mu.Unlock()
		return
	}
	s.entryInstalled = true
	s.entryPointToken = loc.MethodToken
	s.entryHandle = handle
	s.mu.Unlock()
}

// HitEntry reports whether handle is the installed entry-point
// breakpoint's native handle, matching it ahead of the line/function
// tables since the entry breakpoint has no logical id of its own.
func (s *Store) HitEntry(handle model.NativeHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entryInstalled && handle == s.entryHandle
}

// HitDispatch matches a native breakpoint hit handle against the line
// and function tables, returning the breakpoint whose condition (if any)
// the caller should evaluate, and the smallest logical id sharing that
// native handle (the "primary" id reported in the Stopped event).
func (s *Store) HitDispatch(handle model.NativeHandle) (bp *model.SourceBreakpoint, primaryID int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *model.SourceBreakpoint
	for _, byLine := range s.bySourceLine {
		for _, list := range byLine {
			for _, b := range list {
				if b.NativeHandle == handle {
					if best == nil || b.ID < best.ID {
						best = b
					}
				}
			}
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, best.ID, true
}

// RecordHit increments the hit count of the breakpoint whose id is id at
// the given fullname/line.
func (s *Store) RecordHit(fullname string, line int, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bySourceLine[fullname][line] {
		if b.ID == id {
			b.HitCount++
			return
		}
	}
}
