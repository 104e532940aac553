package expr

import "github.com/docbase/docbase/internal/types"

// Scope is the variable-binding stack visible to an expression tree: a
// small linked list of frames rather than a flat map, so that $map,
// $let, and $lookup's `let` can push and discard a frame cheaply and so
// that an inner binding correctly shadows an outer one of the same name
// for the extent of its subtree (the shadowing test: a $map `as: "item"`
// wrapping a $filter `as: "item"` -- the inner $$item must resolve to
// the filter's binding, not the map's).
type Scope struct {
	parent *Scope
	vars   map[string]any
}

// NewRootScope creates the top-level scope for one pipeline invocation:
// CURRENT and ROOT both bound to doc, NOW bound to the pipeline's
// captured invocation time, and `this` defaulted to doc as well.
func NewRootScope(doc any, now types.DateTime) *Scope {
	return &Scope{
		vars: map[string]any{
			"CURRENT": doc,
			"ROOT":    doc,
			"NOW":     now,
			"this":    doc,
		},
	}
}

// Push returns a child scope with vars bound, shadowing any outer
// binding of the same name for the lifetime of the child (and its own children).
func (s *Scope) Push(vars map[string]any) *Scope {
	return &Scope{parent: s, vars: vars}
}

// WithCurrent returns a child scope with both CURRENT and ROOT
// rebound to doc; used when an expression needs to evaluate against a
// different document than the one the outer scope's CURRENT points at
// (e.g. a $lookup pipeline run against a foreign document).
func (s *Scope) WithCurrent(doc any) *Scope {
	return s.Push(map[string]any{"CURRENT": doc, "ROOT": doc})
}

// Lookup resolves a $$variable name by walking outward from s.
func (s *Scope) Lookup(name string) (any, bool) {
	for f := s; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}

	return nil, false
}

// Current returns the CURRENT binding (the implicit root of `$fieldPath`).
func (s *Scope) Current() any {
	v, _ := s.Lookup("CURRENT")
	return v
}
