package expr

import (
	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

func init() {
	simple("$mergeObjects", opMergeObjects)
	register("$getField", buildGetField)
	register("$setField", buildSetField)
}

// opMergeObjects folds left to right; a Null/Missing argument is simply
// skipped (it contributes nothing), matching $mergeObjects's documented
// tolerance for a missing sub-document.
func opMergeObjects(args []any) (any, error) {
	out := types.MakeDocument(0)

	for _, a := range args {
		if isNullish(a) {
			continue
		}

		doc, ok := a.(*types.Document)
		if !ok {
			return nil, dberrors.Errorf("$mergeObjects", "$mergeObjects requires document arguments")
		}

		for _, k := range doc.Keys() {
			v, _ := doc.Get(k)
			out.Set(k, v)
		}
	}

	return out, nil
}

// buildGetField accepts either a bare field-name string (resolved
// against CURRENT) or {field, input}. Unlike most operators it must see
// Missing directly when the field is absent, so it bypasses
// evalArgs/coerceMissing.
func buildGetField(raw any, compileFn CompileFunc) (Expr, error) {
	var fieldRaw, inputRaw any

	switch v := raw.(type) {
	case string:
		fieldRaw = v
	case *types.Document:
		f, ok := v.Get("field")
		if !ok {
			return nil, dberrors.Errorf("$getField", "$getField requires a 'field' argument")
		}

		fieldRaw = f
		inputRaw, _ = v.Get("input")
	default:
		return nil, dberrors.Errorf("$getField", "$getField requires a string or a {field, input} document")
	}

	field, ok := fieldRaw.(string)
	if !ok {
		return nil, dberrors.Errorf("$getField", "$getField 'field' must be a string")
	}

	var inputE Expr

	if inputRaw != nil {
		e, err := compileFn(inputRaw)
		if err != nil {
			return nil, err
		}

		inputE = e
	}

	return getFieldExpr{field: field, inputE: inputE}, nil
}

type getFieldExpr struct {
	field  string
	inputE Expr
}

func (e getFieldExpr) Eval(scope *Scope) (any, error) {
	target := scope.Current()

	if e.inputE != nil {
		v, err := e.inputE.Eval(scope)
		if err != nil {
			return nil, err
		}

		target = v
	}

	doc, ok := target.(*types.Document)
	if !ok {
		return types.Missing, nil
	}

	return doc.GetOrMissing(e.field), nil
}

// buildSetField compiles {field, input, value}, returning a copy of
// input with field set to value.
func buildSetField(raw any, compileFn CompileFunc) (Expr, error) {
	doc, ok := raw.(*types.Document)
	if !ok {
		return nil, dberrors.Errorf("$setField", "$setField requires a document of {field, input, value}")
	}

	fieldRaw, ok := doc.Get("field")
	if !ok {
		return nil, dberrors.Errorf("$setField", "$setField requires a 'field' argument")
	}

	field, ok := fieldRaw.(string)
	if !ok {
		return nil, dberrors.Errorf("$setField", "$setField 'field' must be a string")
	}

	inputRaw, ok := doc.Get("input")
	if !ok {
		return nil, dberrors.Errorf("$setField", "$setField requires an 'input' expression")
	}

	valueRaw, ok := doc.Get("value")
	if !ok {
		return nil, dberrors.Errorf("$setField", "$setField requires a 'value' expression")
	}

	inputE, err := compileFn(inputRaw)
	if err != nil {
		return nil, err
	}

	valueE, err := compileFn(valueRaw)
	if err != nil {
		return nil, err
	}

	return setFieldExpr{field: field, inputE: inputE, valueE: valueE}, nil
}

type setFieldExpr struct {
	field          string
	inputE, valueE Expr
}

func (e setFieldExpr) Eval(scope *Scope) (any, error) {
	inputV, err := e.inputE.Eval(scope)
	if err != nil {
		return nil, err
	}

	src, ok := inputV.(*types.Document)
	if !ok {
		return nil, dberrors.Errorf("$setField", "$setField requires a document 'input'")
	}

	value, err := e.valueE.Eval(scope)
	if err != nil {
		return nil, err
	}

	out := src.DeepCopy()
	out.Set(e.field, coerceMissing(value))

	return out, nil
}
