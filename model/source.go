package model

import "path/filepath"

// Source identifies a source file as rendered to a protocol client.
type Source struct {
	Name string
	Path string
}

// NewSource builds a Source from a path, deriving Name as its basename.
// NewSource returns the zero Source (both fields empty) for an empty path.
func NewSource(path string) Source {
	if path == "" {
		return Source{}
	}
	return Source{Name: filepath.Base(path), Path: path}
}

// IsZero reports whether the source is the empty/null source.
func (s Source) IsZero() bool {
	return s.Name == "" && s.Path == ""
}

// SymbolStatus describes whether debug symbols were found for a module.
type SymbolStatus int

const (
	SymbolSkipped SymbolStatus = iota
	SymbolLoaded
	SymbolNotFound
)

func (s SymbolStatus) String() string {
	switch s {
	case SymbolLoaded:
		return "Loaded"
	case SymbolNotFound:
		return "NotFound"
	default:
		return "Skipped"
	}
}

// Module is a loaded unit of managed code.
type Module struct {
	ID           ModuleID
	Name         string
	Path         string
	SymbolStatus SymbolStatus
	BaseAddress  uint64
	Size         uint64
}
