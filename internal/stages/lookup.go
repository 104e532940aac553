package stages

import (
	"context"
	"strings"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/expr"
	"github.com/docbase/docbase/internal/storage"
	"github.com/docbase/docbase/internal/types"
)

// lookupStage implements both forms of $lookup (§4.6): the simple
// equality join (localField/foreignField) and the pipeline join
// (let + pipeline, with $expr inside a $match providing the predicate).
type lookupStage struct {
	from string
	as   string

	// simple form
	simple       bool
	localField   []string
	foreignField []string

	// pipeline form
	let      map[string]*expr.Expression
	pipeline *types.Array
	pc       *Context
}

func compileLookup(spec *types.Document, pc *Context) (Stage, error) {
	fromRaw, ok := spec.Get("from")
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$lookup requires 'from'")
	}

	from, ok := fromRaw.(string)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$lookup 'from' must be a string")
	}

	asRaw, ok := spec.Get("as")
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$lookup requires 'as'")
	}

	as, ok := asRaw.(string)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$lookup 'as' must be a string")
	}

	l := &lookupStage{from: from, as: as, pc: pc}

	if pipelineRaw, ok := spec.Get("pipeline"); ok {
		arr, ok := pipelineRaw.(*types.Array)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$lookup 'pipeline' must be an array")
		}

		l.pipeline = arr

		if letRaw, ok := spec.Get("let"); ok {
			letDoc, ok := letRaw.(*types.Document)
			if !ok {
				return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$lookup 'let' must be a document")
			}

			l.let = make(map[string]*expr.Expression, letDoc.Len())

			for _, name := range letDoc.Keys() {
				v, _ := letDoc.Get(name)

				e, err := expr.Compile(v)
				if err != nil {
					return nil, err
				}

				l.let[name] = e
			}
		}

		return l, nil
	}

	localRaw, _ := spec.Get("localField")
	foreignRaw, _ := spec.Get("foreignField")

	local, ok1 := localRaw.(string)
	foreign, ok2 := foreignRaw.(string)

	if !ok1 || !ok2 {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue,
			"$lookup requires either 'pipeline' or both 'localField'/'foreignField'")
	}

	l.simple = true
	l.localField = types.SplitPath(local)
	l.foreignField = types.SplitPath(foreign)

	return l, nil
}

func (s *lookupStage) Process(ctx context.Context, in DocIter) (DocIter, error) {
	foreign, err := s.pc.Catalog.Collection(s.from)
	if err != nil {
		return nil, err
	}

	if s.simple {
		return newMapIter(in, func(doc *types.Document) ([]*types.Document, error) {
			out, err := s.joinSimple(ctx, doc, foreign)
			if err != nil {
				return nil, err
			}

			return []*types.Document{out}, nil
		}), nil
	}

	return newMapIter(in, func(doc *types.Document) ([]*types.Document, error) {
		out, err := s.joinPipeline(ctx, doc, foreign)
		if err != nil {
			return nil, err
		}

		return []*types.Document{out}, nil
	}), nil
}

func (s *lookupStage) joinSimple(ctx context.Context, doc *types.Document, foreign storage.Collaborator) (*types.Document, error) {
	localVal := types.ResolvePath(doc, s.localField)

	if s.pc.Lookups != nil {
		if cached, ok := s.pc.Lookups.Get(ctx, s.from, localVal); ok {
			return withLookupResult(doc, s.as, cached), nil
		}
	}

	iter, err := foreign.Scan()
	if err != nil {
		return nil, err
	}

	foreignDocs, err := drain(iter)
	if err != nil {
		return nil, err
	}

	var matched []*types.Document

	for _, fdoc := range foreignDocs {
		foreignVal := types.ResolvePath(fdoc, s.foreignField)

		if matchesJoin(localVal, foreignVal) {
			matched = append(matched, fdoc)
		}
	}

	if s.pc.Lookups != nil {
		s.pc.Lookups.Set(ctx, s.from, localVal, matched)
	}

	return withLookupResult(doc, s.as, matched), nil
}

// matchesJoin implements the array-aware equality of §4.6's simple
// $lookup: either side may be an array, and a match exists if any
// element (or the scalar itself) is strictly equal across sides.
func matchesJoin(local, foreign any) bool {
	locals := joinValues(local)
	foreigns := joinValues(foreign)

	for _, l := range locals {
		for _, f := range foreigns {
			if types.StrictEqual(l, f) {
				return true
			}
		}
	}

	return false
}

func joinValues(v any) []any {
	if arr, ok := v.(*types.Array); ok {
		return arr.Slice()
	}

	return []any{v}
}

func withLookupResult(doc *types.Document, as string, matched []*types.Document) *types.Document {
	out := doc.DeepCopy()

	arr := types.MakeArray(len(matched))
	for _, d := range matched {
		_ = arr.Append(d.DeepCopy())
	}

	out.Set(as, arr)

	return out
}

// joinPipeline evaluates `let` once against the outer document, then
// substitutes every $$name reference in the raw pipeline literal with
// its resolved value before compiling and running the sub-pipeline
// against the foreign collection -- this avoids threading a second
// variable-scope parameter through every stage compiler, since `let`
// bindings are fixed for the lifetime of one outer document's join.
func (s *lookupStage) joinPipeline(ctx context.Context, doc *types.Document, foreign storage.Collaborator) (*types.Document, error) {
	vars := make(map[string]any, len(s.let))
	outerScope := expr.NewRootScope(doc, s.pc.Now)

	for name, e := range s.let {
		v, err := e.EvalInScope(outerScope)
		if err != nil {
			return nil, err
		}

		vars[name] = v
	}

	substituted, ok := substituteVars(s.pipeline, vars).(*types.Array)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$lookup 'pipeline' must be an array")
	}

	innerPC := &Context{Now: s.pc.Now, Catalog: s.pc.Catalog, Lookups: s.pc.Lookups, Logger: s.pc.Logger, Metrics: s.pc.Metrics}

	p, err := Compile(substituted, innerPC)
	if err != nil {
		return nil, err
	}

	iter, err := foreign.Scan()
	if err != nil {
		return nil, err
	}

	out, err := p.Run(ctx, iter)
	if err != nil {
		return nil, err
	}

	results, err := drain(out)
	if err != nil {
		return nil, err
	}

	return withLookupResult(doc, s.as, results), nil
}

// substituteVars recursively replaces any "$$name" or "$$name.path"
// leaf string with its resolved value from vars; built-in variables
// like $$ROOT/$$CURRENT/$$NOW are left untouched since they're not
// present in vars and must resolve against each foreign document.
func substituteVars(raw any, vars map[string]any) any {
	switch v := raw.(type) {
	case *types.Document:
		out := types.MakeDocument(v.Len())

		for _, k := range v.Keys() {
			fv, _ := v.Get(k)
			out.Set(k, substituteVars(fv, vars))
		}

		return out
	case *types.Array:
		out := types.MakeArray(v.Len())

		for _, e := range v.Slice() {
			_ = out.Append(substituteVars(e, vars))
		}

		return out
	case string:
		if !strings.HasPrefix(v, "$$") {
			return v
		}

		segs := types.SplitPath(v[2:])
		if len(segs) == 0 {
			return v
		}

		val, ok := vars[segs[0]]
		if !ok {
			return v
		}

		if len(segs) > 1 {
			val = types.ResolvePath(val, segs[1:])
		}

		return val
	default:
		return v
	}
}
