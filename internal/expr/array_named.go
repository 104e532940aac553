package expr

import (
	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

// buildFilter compiles {input, cond, as?, limit?}: cond is re-evaluated
// per element with `as` (default "this") bound to that element.
func buildFilter(raw any, compileFn CompileFunc) (Expr, error) {
	doc, ok := raw.(*types.Document)
	if !ok {
		return nil, dberrors.Errorf("$filter", "$filter requires a document of {input, cond, as, limit}")
	}

	inputRaw, ok := doc.Get("input")
	if !ok {
		return nil, dberrors.Errorf("$filter", "$filter requires an 'input' expression")
	}

	condRaw, ok := doc.Get("cond")
	if !ok {
		return nil, dberrors.Errorf("$filter", "$filter requires a 'cond' expression")
	}

	as := "this"
	if a, ok := doc.Get("as"); ok {
		if s, ok := a.(string); ok {
			as = s
		}
	}

	inputE, err := compileFn(inputRaw)
	if err != nil {
		return nil, err
	}

	condE, err := compileFn(condRaw)
	if err != nil {
		return nil, err
	}

	var limitE Expr

	if l, ok := doc.Get("limit"); ok {
		limitE, err = compileFn(l)
		if err != nil {
			return nil, err
		}
	}

	return filterExpr{inputE: inputE, condE: condE, as: as, limitE: limitE}, nil
}

type filterExpr struct {
	inputE, condE, limitE Expr
	as                    string
}

func (e filterExpr) Eval(scope *Scope) (any, error) {
	inputV, err := e.inputE.Eval(scope)
	if err != nil {
		return nil, err
	}

	if isNullish(coerceMissing(inputV)) {
		return types.Null, nil
	}

	arr, ok := asArray(inputV)
	if !ok {
		return nil, dberrors.Errorf("$filter", "$filter requires an array 'input'")
	}

	limit := -1

	if e.limitE != nil {
		lv, err := e.limitE.Eval(scope)
		if err != nil {
			return nil, err
		}

		n, ok := asInt(lv)
		if !ok {
			return nil, dberrors.Errorf("$filter", "$filter 'limit' must be numeric")
		}

		limit = int(n)
	}

	out := types.MakeArray(0)

	for _, v := range arr.Slice() {
		if limit >= 0 && out.Len() >= limit {
			break
		}

		inner := scope.Push(map[string]any{e.as: v})

		keep, err := e.condE.Eval(inner)
		if err != nil {
			return nil, err
		}

		if types.Truthy(keep) {
			_ = out.Append(v)
		}
	}

	return out, nil
}

// buildMap compiles {input, in, as?}, transforming every element.
func buildMap(raw any, compileFn CompileFunc) (Expr, error) {
	doc, ok := raw.(*types.Document)
	if !ok {
		return nil, dberrors.Errorf("$map", "$map requires a document of {input, in, as}")
	}

	inputRaw, ok := doc.Get("input")
	if !ok {
		return nil, dberrors.Errorf("$map", "$map requires an 'input' expression")
	}

	inRaw, ok := doc.Get("in")
	if !ok {
		return nil, dberrors.Errorf("$map", "$map requires an 'in' expression")
	}

	as := "this"
	if a, ok := doc.Get("as"); ok {
		if s, ok := a.(string); ok {
			as = s
		}
	}

	inputE, err := compileFn(inputRaw)
	if err != nil {
		return nil, err
	}

	inE, err := compileFn(inRaw)
	if err != nil {
		return nil, err
	}

	return mapExpr{inputE: inputE, inE: inE, as: as}, nil
}

type mapExpr struct {
	inputE, inE Expr
	as          string
}

func (e mapExpr) Eval(scope *Scope) (any, error) {
	inputV, err := e.inputE.Eval(scope)
	if err != nil {
		return nil, err
	}

	if isNullish(coerceMissing(inputV)) {
		return types.Null, nil
	}

	arr, ok := asArray(inputV)
	if !ok {
		return nil, dberrors.Errorf("$map", "$map requires an array 'input'")
	}

	out := types.MakeArray(arr.Len())

	for _, v := range arr.Slice() {
		inner := scope.Push(map[string]any{e.as: v})

		mapped, err := e.inE.Eval(inner)
		if err != nil {
			return nil, err
		}

		_ = out.Append(coerceMissing(mapped))
	}

	return out, nil
}

// buildReduce compiles {input, initialValue, in}: $$value/$$this are
// bound on every step of a left fold over input.
func buildReduce(raw any, compileFn CompileFunc) (Expr, error) {
	doc, ok := raw.(*types.Document)
	if !ok {
		return nil, dberrors.Errorf("$reduce", "$reduce requires a document of {input, initialValue, in}")
	}

	inputRaw, ok := doc.Get("input")
	if !ok {
		return nil, dberrors.Errorf("$reduce", "$reduce requires an 'input' expression")
	}

	initRaw, ok := doc.Get("initialValue")
	if !ok {
		return nil, dberrors.Errorf("$reduce", "$reduce requires an 'initialValue' expression")
	}

	inRaw, ok := doc.Get("in")
	if !ok {
		return nil, dberrors.Errorf("$reduce", "$reduce requires an 'in' expression")
	}

	inputE, err := compileFn(inputRaw)
	if err != nil {
		return nil, err
	}

	initE, err := compileFn(initRaw)
	if err != nil {
		return nil, err
	}

	inE, err := compileFn(inRaw)
	if err != nil {
		return nil, err
	}

	return reduceExpr{inputE: inputE, initE: initE, inE: inE}, nil
}

type reduceExpr struct{ inputE, initE, inE Expr }

func (e reduceExpr) Eval(scope *Scope) (any, error) {
	inputV, err := e.inputE.Eval(scope)
	if err != nil {
		return nil, err
	}

	acc, err := e.initE.Eval(scope)
	if err != nil {
		return nil, err
	}

	if isNullish(coerceMissing(inputV)) {
		return acc, nil
	}

	arr, ok := asArray(inputV)
	if !ok {
		return nil, dberrors.Errorf("$reduce", "$reduce requires an array 'input'")
	}

	for _, v := range arr.Slice() {
		inner := scope.Push(map[string]any{"value": acc, "this": v})

		acc, err = e.inE.Eval(inner)
		if err != nil {
			return nil, err
		}
	}

	return acc, nil
}

// buildSortArray compiles {input, sortBy}: sortBy is either a bare
// 1/-1 (sort the elements directly) or a document of field: 1/-1 pairs.
func buildSortArray(raw any, compileFn CompileFunc) (Expr, error) {
	doc, ok := raw.(*types.Document)
	if !ok {
		return nil, dberrors.Errorf("$sortArray", "$sortArray requires a document of {input, sortBy}")
	}

	inputRaw, ok := doc.Get("input")
	if !ok {
		return nil, dberrors.Errorf("$sortArray", "$sortArray requires an 'input' expression")
	}

	sortByRaw, ok := doc.Get("sortBy")
	if !ok {
		return nil, dberrors.Errorf("$sortArray", "$sortArray requires a 'sortBy' specification")
	}

	inputE, err := compileFn(inputRaw)
	if err != nil {
		return nil, err
	}

	spec, err := compileSortSpec(sortByRaw)
	if err != nil {
		return nil, err
	}

	return sortArrayExpr{inputE: inputE, spec: spec}, nil
}

type sortKey struct {
	field string
	desc  bool
}

type sortSpec struct {
	// keys is empty for "sort the bare elements directly".
	keys []sortKey
	desc bool
}

func compileSortSpec(raw any) (sortSpec, error) {
	switch v := raw.(type) {
	case int32:
		return sortSpec{desc: v < 0}, nil
	case int64:
		return sortSpec{desc: v < 0}, nil
	case float64:
		return sortSpec{desc: v < 0}, nil
	case *types.Document:
		keys := make([]sortKey, 0, v.Len())

		for _, k := range v.Keys() {
			dir, _ := v.Get(k)

			n, ok := asInt(dir)
			if !ok {
				return sortSpec{}, dberrors.Errorf("$sortArray", "$sortArray sort direction must be 1 or -1")
			}

			keys = append(keys, sortKey{field: k, desc: n < 0})
		}

		return sortSpec{keys: keys}, nil
	default:
		return sortSpec{}, dberrors.Errorf("$sortArray", "$sortArray 'sortBy' must be 1, -1, or a document")
	}
}

type sortArrayExpr struct {
	inputE Expr
	spec   sortSpec
}

func (e sortArrayExpr) Eval(scope *Scope) (any, error) {
	inputV, err := e.inputE.Eval(scope)
	if err != nil {
		return nil, err
	}

	if isNullish(coerceMissing(inputV)) {
		return types.Null, nil
	}

	arr, ok := asArray(inputV)
	if !ok {
		return nil, dberrors.Errorf("$sortArray", "$sortArray requires an array 'input'")
	}

	src := append([]any(nil), arr.Slice()...)

	less := func(a, b any) bool {
		if len(e.spec.keys) == 0 {
			cmp := types.Compare(a, b)
			if e.spec.desc {
				return cmp == types.Greater
			}

			return cmp == types.Less
		}

		for _, k := range e.spec.keys {
			av := types.ResolvePath(a, []string{k.field})
			bv := types.ResolvePath(b, []string{k.field})

			cmp := types.Compare(av, bv)
			if cmp == types.Equal {
				continue
			}

			if k.desc {
				return cmp == types.Greater
			}

			return cmp == types.Less
		}

		return false
	}

	sortValues(src, less)

	out := types.MakeArray(len(src))
	for _, v := range src {
		_ = out.Append(v)
	}

	return out, nil
}

// buildLet compiles {vars: {name: expr, ...}, in: expr}: vars are
// evaluated against the enclosing scope (not each other), then pushed
// as a single new frame before evaluating `in`.
func buildLet(raw any, compileFn CompileFunc) (Expr, error) {
	doc, ok := raw.(*types.Document)
	if !ok {
		return nil, dberrors.Errorf("$let", "$let requires a document of {vars, in}")
	}

	varsRaw, ok := doc.Get("vars")
	if !ok {
		return nil, dberrors.Errorf("$let", "$let requires a 'vars' document")
	}

	varsDoc, ok := varsRaw.(*types.Document)
	if !ok {
		return nil, dberrors.Errorf("$let", "$let 'vars' must be a document")
	}

	inRaw, ok := doc.Get("in")
	if !ok {
		return nil, dberrors.Errorf("$let", "$let requires an 'in' expression")
	}

	vars := make(map[string]Expr, varsDoc.Len())

	for _, name := range varsDoc.Keys() {
		v, _ := varsDoc.Get(name)

		e, err := compileFn(v)
		if err != nil {
			return nil, err
		}

		vars[name] = e
	}

	inE, err := compileFn(inRaw)
	if err != nil {
		return nil, err
	}

	return letExpr{vars: vars, inE: inE}, nil
}

type letExpr struct {
	vars map[string]Expr
	inE  Expr
}

func (e letExpr) Eval(scope *Scope) (any, error) {
	bound := make(map[string]any, len(e.vars))

	for name, ve := range e.vars {
		v, err := ve.Eval(scope)
		if err != nil {
			return nil, err
		}

		bound[name] = coerceMissing(v)
	}

	return e.inE.Eval(scope.Push(bound))
}
