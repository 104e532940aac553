// Package projection implements the Projection Engine (§4.5):
// inclusion/exclusion $project specs, $addFields/$set's always-merge
// semantics, and $replaceRoot/$replaceWith's whole-document replacement.
package projection

import (
	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/expr"
	"github.com/docbase/docbase/internal/types"
)

// Mode distinguishes the two $project shapes; AddFields and ReplaceRoot
// are compiled into their own Projection values, not a Mode, since their
// semantics don't fit the inclusion/exclusion model at all.
type Mode int

const (
	// ModeInclusion keeps only the named fields (plus _id, unless
	// explicitly excluded alongside them).
	ModeInclusion Mode = iota
	// ModeExclusion drops the named fields and keeps everything else.
	ModeExclusion
)

// Projection is a compiled $project/$addFields/$set/$unset/$replaceRoot/
// $replaceWith stage body.
type Projection struct {
	apply func(doc any, now types.DateTime, vars map[string]any) (any, error)
}

// Apply runs the compiled projection against doc.
func (p *Projection) Apply(doc any, now types.DateTime) (any, error) {
	return p.apply(doc, now, nil)
}

// ApplyWithVars runs the compiled projection against doc with extra
// named variables bound in scope -- used by $merge's `pipeline` form,
// which reuses the Projection Engine over a synthetic scope
// {CURRENT: existing, $$new: source} (§4.6 "state machine for $merge").
func (p *Projection) ApplyWithVars(doc any, now types.DateTime, vars map[string]any) (any, error) {
	return p.apply(doc, now, vars)
}

func rootScope(doc any, now types.DateTime, vars map[string]any) *expr.Scope {
	scope := expr.NewRootScope(doc, now)

	if len(vars) > 0 {
		scope = scope.Push(vars)
	}

	return scope
}

type projField struct {
	// path is the dotted destination/source field path, split once at
	// compile time (types.SplitPath) so both literal inclusion and
	// computed-field application can descend into nested documents and
	// arrays via PickByPath/SetByPath instead of a flat key lookup.
	path []string
	// computed is nil for a bare `1`/`true` literal, which keeps the
	// source field verbatim; otherwise it replaces the field.
	computed *expr.Expression
}

// CompileProject compiles a $project specification document. A spec is
// inclusion if any field maps to a truthy literal 1/true with no other
// field excluded (aside from _id, which may always be excluded
// alongside an inclusion); it is exclusion if every field maps to a
// falsy literal 0/false. A field mapped to a non-boolean-literal
// expression makes the spec an inclusion (the field is computed and
// kept) unless every other real field is also computed -- in which
// case it is still inclusion, since $project admits no "exclude
// everything except this computed field" shape.
func CompileProject(spec *types.Document) (*Projection, error) {
	mode, err := detectMode(spec)
	if err != nil {
		return nil, err
	}

	if mode == ModeExclusion {
		return compileExclusion(spec)
	}

	return compileInclusion(spec)
}

func detectMode(spec *types.Document) (Mode, error) {
	sawInclusion, sawExclusion := false, false

	for _, name := range spec.Keys() {
		v, _ := spec.Get(name)

		if isLiteralBool(v) {
			if types.Truthy(v) {
				sawInclusion = true
			} else if name != "_id" {
				sawExclusion = true
			}

			continue
		}

		sawInclusion = true
	}

	if sawInclusion && sawExclusion {
		return ModeInclusion, dberrors.NewCommandError(dberrors.CodeBadValue,
			"$project cannot mix inclusion and exclusion (other than excluding _id)")
	}

	if sawExclusion || (!sawInclusion && spec.Len() > 0) {
		return ModeExclusion, nil
	}

	return ModeInclusion, nil
}

func isLiteralBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return true
	case int32:
		return x == 0 || x == 1
	case int64:
		return x == 0 || x == 1
	case float64:
		return x == 0 || x == 1
	default:
		return false
	}
}

// compileExclusion compiles a $project spec where every named field
// (aside from _id) is dropped. Paths are dotted field names removed via
// types.RemoveByPath, the same nested/array-aware removal $unset uses,
// so {"a.b": 0} descends into "a" instead of excluding a literal
// "a.b"-named field.
func compileExclusion(spec *types.Document) (*Projection, error) {
	paths := make([][]string, 0, spec.Len())

	for _, name := range spec.Keys() {
		paths = append(paths, types.SplitPath(name))
	}

	return &Projection{apply: func(doc any, _ types.DateTime, _ map[string]any) (any, error) {
		d, ok := doc.(*types.Document)
		if !ok {
			return doc, nil
		}

		out := d.DeepCopy()

		for _, p := range paths {
			types.RemoveByPath(out, p)
		}

		return out, nil
	}}, nil
}

func compileInclusion(spec *types.Document) (*Projection, error) {
	fields := make([]projField, 0, spec.Len())
	includeID := true

	for _, name := range spec.Keys() {
		v, _ := spec.Get(name)

		if isLiteralBool(v) {
			if name == "_id" {
				includeID = types.Truthy(v)
				continue
			}

			if types.Truthy(v) {
				fields = append(fields, projField{path: types.SplitPath(name)})
			}

			continue
		}

		e, err := expr.Compile(v)
		if err != nil {
			return nil, err
		}

		fields = append(fields, projField{path: types.SplitPath(name), computed: e})
	}

	return &Projection{apply: func(doc any, now types.DateTime, vars map[string]any) (any, error) {
		d, ok := doc.(*types.Document)
		if !ok {
			return doc, nil
		}

		out := types.MakeDocument(len(fields) + 1)

		if includeID {
			if id, ok := d.Get("_id"); ok {
				out.Set("_id", id)
			}
		}

		for _, f := range fields {
			if f.computed == nil {
				// Nested/array-aware copy, so {"a.b": 1} descends into
				// "a" instead of looking up a literal "a.b"-named field.
				types.PickByPath(out, d, f.path)
				continue
			}

			v, err := f.computed.EvalInScope(rootScope(d, now, vars))
			if err != nil {
				return nil, err
			}

			if _, missing := v.(types.MissingType); missing {
				continue
			}

			types.SetByPath(out, f.path, v)
		}

		return out, nil
	}}, nil
}

// CompileAddFields compiles $addFields/$set: every named field is
// computed and merged into the source document, in spec field order,
// visible to subsequent fields in the same spec (so {"a": 1, "b": "$a"}
// resolves "b" against the already-added "a") -- no exclusion is
// possible, unlike $project.
func CompileAddFields(spec *types.Document) (*Projection, error) {
	type addField struct {
		name string
		expr *expr.Expression
	}

	fields := make([]addField, 0, spec.Len())

	for _, name := range spec.Keys() {
		v, _ := spec.Get(name)

		e, err := expr.Compile(v)
		if err != nil {
			return nil, err
		}

		fields = append(fields, addField{name: name, expr: e})
	}

	return &Projection{apply: func(doc any, now types.DateTime, vars map[string]any) (any, error) {
		d, ok := doc.(*types.Document)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$addFields/$set requires a document input")
		}

		out := d.DeepCopy()

		for _, f := range fields {
			v, err := f.expr.EvalInScope(rootScope(out, now, vars))
			if err != nil {
				return nil, err
			}

			if _, missing := v.(types.MissingType); missing {
				continue
			}

			out.Set(f.name, v)
		}

		return out, nil
	}}, nil
}

// CompileUnset compiles $unset: paths are dotted field names removed
// from the document (nested removal delegates to types.RemoveByPath).
func CompileUnset(paths []string) *Projection {
	return &Projection{apply: func(doc any, _ types.DateTime, _ map[string]any) (any, error) {
		d, ok := doc.(*types.Document)
		if !ok {
			return doc, nil
		}

		out := d.DeepCopy()

		for _, p := range paths {
			types.RemoveByPath(out, types.SplitPath(p))
		}

		return out, nil
	}}
}

// CompileReplaceRoot compiles $replaceRoot/$replaceWith: newRoot must
// evaluate to a document, else the stable-substring error
// ("'newRoot' expression ... must evaluate to an object") is raised.
func CompileReplaceRoot(newRoot any) (*Projection, error) {
	e, err := expr.Compile(newRoot)
	if err != nil {
		return nil, err
	}

	return &Projection{apply: func(doc any, now types.DateTime, vars map[string]any) (any, error) {
		v, err := e.EvalInScope(rootScope(doc, now, vars))
		if err != nil {
			return nil, err
		}

		root, ok := v.(*types.Document)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue,
				"'newRoot' expression for $replaceRoot/$replaceWith must evaluate to an object, not %s",
				types.TypeName(v))
		}

		return root, nil
	}}, nil
}
