package model

// ValueKind classifies what a variable reference resolves to.
type ValueKind int

const (
	ValueScope ValueKind = iota
	ValueClass
	ValueVariable
)

// VariableFilter restricts GetVariables to a subset of a container's
// children.
type VariableFilter int

const (
	FilterBoth VariableFilter = iota
	FilterNamed
	FilterIndexed
)

// ValueHandle is an opaque reference to a live runtime value, owned by the
// variable reference table and released when the table is cleared.
type ValueHandle interface{}

// VariableReference is one entry of the per-stop variable reference
// table. Reference ids are allocated monotonically and are only valid
// between two consecutive resumes.
type VariableReference struct {
	Reference        int
	NamedVariables   int
	IndexedVariables int
	EvalFlags        int
	EvaluateName     string
	Kind             ValueKind
	Value            ValueHandle
	FrameId          FrameId
}

// Variable is one child of an expanded variable reference.
type Variable struct {
	Name               string
	Value              string
	Type               string
	EvaluateName       string
	VariablesReference int
	NamedVariables     int
	IndexedVariables   int
}

// Scope is a named grouping of variables under a stack frame (e.g.
// "Locals", "Arguments", "Statics").
type Scope struct {
	Name               string
	VariablesReference int
	NamedVariables     int
	Expensive          bool
}
