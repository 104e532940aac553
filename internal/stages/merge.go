package stages

import (
	"context"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/expr"
	"github.com/docbase/docbase/internal/projection"
	"github.com/docbase/docbase/internal/storage"
	"github.com/docbase/docbase/internal/types"
)

// mergeStage writes pipeline output into a target collection, per
// document dispatching on whether a match exists for `on` (§4.6's
// state machine for $merge).
type mergeStage struct {
	into string
	on   []string

	whenMatched    string // "replace", "merge", "keepExisting", "fail", or "pipeline"
	mergePipeline  []*projection.Projection
	whenNotMatched string // "insert", "discard", "fail"

	let map[string]*expr.Expression
	pc  *Context
}

func compileMerge(spec *types.Document, pc *Context) (Stage, error) {
	intoRaw, ok := spec.Get("into")
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$merge requires 'into'")
	}

	into, ok := intoRaw.(string)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$merge 'into' must be a string")
	}

	m := &mergeStage{into: into, on: []string{"_id"}, whenMatched: "merge", whenNotMatched: "insert", pc: pc}

	if onRaw, ok := spec.Get("on"); ok {
		switch v := onRaw.(type) {
		case string:
			m.on = []string{v}
		case *types.Array:
			fields := make([]string, 0, v.Len())

			for i := 0; i < v.Len(); i++ {
				e, _ := v.Get(i)

				f, ok := e.(string)
				if !ok {
					return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$merge 'on' array must contain strings")
				}

				fields = append(fields, f)
			}

			m.on = fields
		default:
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$merge 'on' must be a string or an array of strings")
		}
	}

	for _, field := range m.on {
		if field != "_id" && !pc.Catalog.Indexes(into).UniqueOnField(field) {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue,
				"$merge: 'on' field %q must be backed by a unique index", field)
		}
	}

	if whenMatchedRaw, ok := spec.Get("whenMatched"); ok {
		if err := m.setWhenMatched(whenMatchedRaw); err != nil {
			return nil, err
		}
	}

	if whenNotMatchedRaw, ok := spec.Get("whenNotMatched"); ok {
		s, ok := whenNotMatchedRaw.(string)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$merge 'whenNotMatched' must be a string")
		}

		switch s {
		case "insert", "discard", "fail":
			m.whenNotMatched = s
		default:
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$merge 'whenNotMatched' must be insert, discard, or fail")
		}
	}

	if letRaw, ok := spec.Get("let"); ok {
		letDoc, ok := letRaw.(*types.Document)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$merge 'let' must be a document")
		}

		m.let = make(map[string]*expr.Expression, letDoc.Len())

		for _, name := range letDoc.Keys() {
			v, _ := letDoc.Get(name)

			e, err := expr.Compile(v)
			if err != nil {
				return nil, err
			}

			m.let[name] = e
		}
	}

	return m, nil
}

func (m *mergeStage) setWhenMatched(raw any) error {
	if s, ok := raw.(string); ok {
		switch s {
		case "replace", "merge", "keepExisting", "fail":
			m.whenMatched = s
			return nil
		}

		return dberrors.NewCommandError(dberrors.CodeBadValue,
			"$merge 'whenMatched' must be replace, merge, keepExisting, fail, or a pipeline array")
	}

	arr, ok := raw.(*types.Array)
	if !ok {
		return dberrors.NewCommandError(dberrors.CodeBadValue, "$merge 'whenMatched' must be a string or an array")
	}

	pipeline := make([]*projection.Projection, 0, arr.Len())

	for i := 0; i < arr.Len(); i++ {
		v, _ := arr.Get(i)

		doc, ok := v.(*types.Document)
		if !ok || doc.Len() != 1 {
			return dberrors.NewCommandError(dberrors.CodeBadValue, "$merge whenMatched pipeline stage %d must be a single-key document", i)
		}

		name := doc.Keys()[0]
		body, _ := doc.Get(name)

		proj, err := compileMergeProjectionStage(name, body)
		if err != nil {
			return err
		}

		pipeline = append(pipeline, proj)
	}

	m.whenMatched = "pipeline"
	m.mergePipeline = pipeline

	return nil
}

// compileMergeProjectionStage compiles one stage of a $merge
// whenMatched pipeline via the Projection Engine, the only stage
// family such a pipeline may contain (§4.6).
func compileMergeProjectionStage(name string, body any) (*projection.Projection, error) {
	switch name {
	case "$addFields", "$set":
		doc, ok := body.(*types.Document)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "%s requires a document argument", name)
		}

		return projection.CompileAddFields(doc)
	case "$project":
		doc, ok := body.(*types.Document)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "%s requires a document argument", name)
		}

		return projection.CompileProject(doc)
	case "$unset":
		switch v := body.(type) {
		case string:
			return projection.CompileUnset([]string{v}), nil
		case *types.Array:
			paths := make([]string, 0, v.Len())

			for i := 0; i < v.Len(); i++ {
				e, _ := v.Get(i)

				p, ok := e.(string)
				if !ok {
					return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$unset array must contain strings")
				}

				paths = append(paths, p)
			}

			return projection.CompileUnset(paths), nil
		default:
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$unset requires a string or array of strings")
		}
	case "$replaceRoot":
		doc, ok := body.(*types.Document)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$replaceRoot requires a document argument")
		}

		newRoot, ok := doc.Get("newRoot")
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$replaceRoot requires 'newRoot'")
		}

		return projection.CompileReplaceRoot(newRoot)
	case "$replaceWith":
		return projection.CompileReplaceRoot(body)
	default:
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$merge whenMatched pipeline may not contain %s", name)
	}
}

func (m *mergeStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	docs, err := drain(in)
	if err != nil {
		return nil, err
	}

	target, err := m.pc.Catalog.Collection(m.into)
	if err != nil {
		target = storage.EnsureCollection(m.pc.Catalog, m.into)
	}

	for _, source := range docs {
		if err := m.writeOne(target, source); err != nil {
			return nil, err
		}
	}

	return newSliceDocIter(nil), nil
}

func (m *mergeStage) writeOne(target storage.Collaborator, source *types.Document) error {
	existing, found, err := m.findMatch(target, source)
	if err != nil {
		return err
	}

	if !found {
		switch m.whenNotMatched {
		case "insert":
			return target.Insert(source.DeepCopy())
		case "discard":
			return nil
		default: // "fail"
			return dberrors.NewCommandError(dberrors.CodeBadValue, "$merge: no matching document found and whenNotMatched is fail (match)")
		}
	}

	existingID, _ := existing.Get("_id")

	switch m.whenMatched {
	case "replace":
		return target.Replace(existingID, source)
	case "merge":
		out := existing.DeepCopy()

		for _, k := range source.Keys() {
			if k == "_id" {
				continue
			}

			v, _ := source.Get(k)
			out.Set(k, v)
		}

		return target.Replace(existingID, out)
	case "keepExisting":
		return nil
	case "pipeline":
		vars := map[string]any{"new": source}

		for name, e := range m.let {
			v, err := e.EvalInScope(expr.NewRootScope(source, m.pc.Now))
			if err != nil {
				return err
			}

			vars[name] = v
		}

		var out any = existing.DeepCopy()

		for _, proj := range m.mergePipeline {
			out, err = proj.ApplyWithVars(out, m.pc.Now, vars)
			if err != nil {
				return err
			}
		}

		outDoc, ok := out.(*types.Document)
		if !ok {
			return dberrors.NewCommandError(dberrors.CodeBadValue, "$merge whenMatched pipeline must produce an object")
		}

		return target.Replace(existingID, outDoc)
	default: // "fail"
		return dberrors.NewCommandError(dberrors.CodeBadValue, "$merge: document matched target and whenMatched is fail (match)")
	}
}

func (m *mergeStage) findMatch(target storage.Collaborator, source *types.Document) (*types.Document, bool, error) {
	if len(m.on) == 1 && m.on[0] == "_id" {
		id, ok := source.Get("_id")
		if !ok {
			return nil, false, nil
		}

		return target.FindByKey(id)
	}

	finder, ok := target.(interface {
		FindOne(pred func(*types.Document) bool) (*types.Document, bool, error)
	})
	if !ok {
		return nil, false, dberrors.NewCommandError(dberrors.CodeBadValue,
			"$merge: collection %q does not support lookup by a non-_id 'on' field", target.Name())
	}

	keyVals := make([]any, len(m.on))

	for i, field := range m.on {
		keyVals[i] = types.ResolvePath(source, types.SplitPath(field))
	}

	return finder.FindOne(func(candidate *types.Document) bool {
		for i, field := range m.on {
			if !types.StrictEqual(types.ResolvePath(candidate, types.SplitPath(field)), keyVals[i]) {
				return false
			}
		}

		return true
	})
}
