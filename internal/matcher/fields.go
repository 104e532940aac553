package matcher

import (
	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

// compileFieldPredicate compiles one top-level field key's value: either
// a literal (an implicit $eq) or a document whose keys are per-field
// operators ($gt, $in, $exists, ...), combined as an implicit $and.
func compileFieldPredicate(path string, raw any) (Predicate, error) {
	segments := types.SplitPath(path)

	if doc, ok := raw.(*types.Document); ok && looksLikeOperatorDoc(doc) {
		return compileFieldOperators(segments, doc)
	}

	return fieldPredicate{segments: segments, op: eqOperator{operand: raw}}, nil
}

// looksLikeOperatorDoc reports whether every key in doc is $-prefixed:
// MongoDB's rule for "this is an operator document, not a literal
// object to compare for equality" is exactly this (a mix is rejected at
// the wire-protocol layer; here we treat a mixed document as a literal,
// which is the more forgiving reading).
func looksLikeOperatorDoc(doc *types.Document) bool {
	if doc.Len() == 0 {
		return false
	}

	for _, k := range doc.Keys() {
		if len(k) == 0 || k[0] != '$' {
			return false
		}
	}

	return true
}

func compileFieldOperators(segments []string, doc *types.Document) (Predicate, error) {
	var ops []fieldOperator

	for _, key := range doc.Keys() {
		v, _ := doc.Get(key)

		op, err := compileOneOperator(key, v, doc)
		if err != nil {
			return nil, err
		}

		ops = append(ops, op)
	}

	return fieldPredicate{segments: segments, op: allFieldOperators{ops: ops}}, nil
}

// fieldOperator evaluates against the (possibly Missing) value a single
// field path resolves to.
type fieldOperator interface {
	matchValue(v any) (bool, error)
}

// fieldPredicate resolves its path once per document, then applies its
// operator both to the resolved value directly and, when that value is
// an array, to each element -- the array-aware matching semantics
// described by §4.4: {tags: "a"} matches a document whose tags array
// contains "a".
type fieldPredicate struct {
	segments []string
	op       fieldOperator
}

func (p fieldPredicate) Matches(doc any) (bool, error) {
	v := fieldValue(doc, p.segments)

	ok, err := p.op.matchValue(v)
	if err != nil {
		return false, err
	}

	if ok {
		return true, nil
	}

	if arr, isArr := v.(*types.Array); isArr {
		for _, el := range arr.Slice() {
			ok, err := p.op.matchValue(el)
			if err != nil {
				return false, err
			}

			if ok {
				return true, nil
			}
		}
	}

	return false, nil
}

type allFieldOperators struct{ ops []fieldOperator }

func (a allFieldOperators) matchValue(v any) (bool, error) {
	for _, op := range a.ops {
		ok, err := op.matchValue(v)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

func compileOneOperator(key string, v any, parent *types.Document) (fieldOperator, error) {
	switch key {
	case "$eq":
		return eqOperator{operand: v}, nil
	case "$ne":
		return neOperator{operand: v}, nil
	case "$gt":
		return cmpOperator{operand: v, ok: func(c types.CompareResult) bool { return c == types.Greater }}, nil
	case "$gte":
		return cmpOperator{operand: v, ok: func(c types.CompareResult) bool { return c == types.Greater || c == types.Equal }}, nil
	case "$lt":
		return cmpOperator{operand: v, ok: func(c types.CompareResult) bool { return c == types.Less }}, nil
	case "$lte":
		return cmpOperator{operand: v, ok: func(c types.CompareResult) bool { return c == types.Less || c == types.Equal }}, nil
	case "$in":
		arr, ok := v.(*types.Array)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$in requires an array")
		}

		return inOperator{operands: arr.Slice()}, nil
	case "$nin":
		arr, ok := v.(*types.Array)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$nin requires an array")
		}

		return notOperator{inner: inOperator{operands: arr.Slice()}}, nil
	case "$exists":
		want := types.Truthy(v)
		return existsOperator{want: want}, nil
	case "$type":
		return typeOperator{want: v}, nil
	case "$regex":
		pattern, options, err := regexOperands(v, parent)
		if err != nil {
			return nil, err
		}

		return newRegexOperator(pattern, options)
	case "$options":
		// Consumed alongside $regex, which reads it back off parent; a bare
		// $options with no $regex sibling on the same field is an error (§4.4).
		if _, ok := parent.Get("$regex"); !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue,
				"$options needs a $regex")
		}

		return trueOperator{}, nil
	case "$all":
		arr, ok := v.(*types.Array)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$all requires an array")
		}

		return allOperator{operands: arr.Slice()}, nil
	case "$elemMatch":
		doc, ok := v.(*types.Document)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$elemMatch requires a document")
		}

		sub, err := compileElemMatch(doc)
		if err != nil {
			return nil, err
		}

		return elemMatchOperator{sub: sub}, nil
	case "$size":
		n, ok := asInt(v)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$size requires a numeric argument")
		}

		return sizeOperator{want: int(n)}, nil
	case "$mod":
		arr, ok := v.(*types.Array)
		if !ok || arr.Len() != 2 {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$mod requires an array of [divisor, remainder]")
		}

		divRaw, _ := arr.Get(0)
		remRaw, _ := arr.Get(1)

		div, ok1 := asInt(divRaw)
		rem, ok2 := asInt(remRaw)

		if !ok1 || !ok2 {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$mod requires numeric [divisor, remainder]")
		}

		return modOperator{divisor: div, remainder: rem}, nil
	case "$bitsAllSet":
		mask, err := bitmask(v)
		if err != nil {
			return nil, err
		}

		return bitsOperator{mask: mask, check: func(v, mask uint64) bool { return v&mask == mask }}, nil
	case "$bitsAllClear":
		mask, err := bitmask(v)
		if err != nil {
			return nil, err
		}

		return bitsOperator{mask: mask, check: func(v, mask uint64) bool { return v&mask == 0 }}, nil
	case "$bitsAnySet":
		mask, err := bitmask(v)
		if err != nil {
			return nil, err
		}

		return bitsOperator{mask: mask, check: func(v, mask uint64) bool { return v&mask != 0 }}, nil
	case "$bitsAnyClear":
		mask, err := bitmask(v)
		if err != nil {
			return nil, err
		}

		return bitsOperator{mask: mask, check: func(v, mask uint64) bool { return v&mask != mask }}, nil
	case "$not":
		sub, err := compileNegatableOperand(v)
		if err != nil {
			return nil, err
		}

		return notOperator{inner: sub}, nil
	default:
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "unknown query operator %q", key)
	}
}

// compileNegatableOperand compiles $not's operand, which is either
// another operator document or a bare regex.
func compileNegatableOperand(v any) (fieldOperator, error) {
	if doc, ok := v.(*types.Document); ok {
		return compileFieldOperatorsDoc(doc)
	}

	if rx, ok := v.(*types.Regex); ok {
		return newRegexOperator(rx.Pattern, rx.Options)
	}

	if rx, ok := v.(types.Regex); ok {
		return newRegexOperator(rx.Pattern, rx.Options)
	}

	return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$not requires a document of operators or a regex")
}

func compileFieldOperatorsDoc(doc *types.Document) (fieldOperator, error) {
	var ops []fieldOperator

	for _, key := range doc.Keys() {
		v, _ := doc.Get(key)

		op, err := compileOneOperator(key, v, doc)
		if err != nil {
			return nil, err
		}

		ops = append(ops, op)
	}

	return allFieldOperators{ops: ops}, nil
}

func regexOperands(v any, parent *types.Document) (pattern, options string, err error) {
	switch rx := v.(type) {
	case *types.Regex:
		pattern = rx.Pattern
		options = rx.Options
	case types.Regex:
		pattern = rx.Pattern
		options = rx.Options
	case string:
		pattern = rx
	default:
		return "", "", dberrors.NewCommandError(dberrors.CodeBadValue, "$regex requires a string or regex pattern")
	}

	if o, ok := parent.Get("$options"); ok {
		if s, ok := o.(string); ok {
			options = s
		}
	}

	return pattern, options, nil
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// bitmask accepts either an integer bitmask or an array of set bit positions.
func bitmask(v any) (uint64, error) {
	if n, ok := asInt(v); ok {
		return uint64(n), nil
	}

	if arr, ok := v.(*types.Array); ok {
		var mask uint64

		for _, e := range arr.Slice() {
			pos, ok := asInt(e)
			if !ok || pos < 0 || pos >= 64 {
				return 0, dberrors.NewCommandError(dberrors.CodeBadValue, "bit position must be an integer in [0,64)")
			}

			mask |= 1 << uint(pos)
		}

		return mask, nil
	}

	return 0, dberrors.NewCommandError(dberrors.CodeBadValue, "bitwise operator requires an integer mask or array of positions")
}
