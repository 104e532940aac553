package matcher

import (
	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

type eqOperator struct{ operand any }

func (o eqOperator) matchValue(v any) (bool, error) {
	if _, missing := v.(types.MissingType); missing {
		_, operandNull := o.operand.(types.NullType)
		return operandNull, nil
	}

	return types.StrictEqual(v, o.operand), nil
}

type neOperator struct{ operand any }

func (o neOperator) matchValue(v any) (bool, error) {
	ok, err := (eqOperator{operand: o.operand}).matchValue(v)
	return !ok, err
}

type cmpOperator struct {
	operand any
	ok      func(types.CompareResult) bool
}

func (o cmpOperator) matchValue(v any) (bool, error) {
	if _, missing := v.(types.MissingType); missing {
		return false, nil
	}

	return o.ok(types.Compare(v, o.operand)), nil
}

type inOperator struct{ operands []any }

func (o inOperator) matchValue(v any) (bool, error) {
	for _, operand := range o.operands {
		if rx, ok := operand.(*types.Regex); ok {
			matched, err := regexMatches(rx.Pattern, rx.Options, v)
			if err == nil && matched {
				return true, nil
			}

			continue
		}

		if _, missing := v.(types.MissingType); missing {
			if _, null := operand.(types.NullType); null {
				return true, nil
			}

			continue
		}

		if types.StrictEqual(v, operand) {
			return true, nil
		}
	}

	return false, nil
}

type notOperator struct{ inner fieldOperator }

func (o notOperator) matchValue(v any) (bool, error) {
	ok, err := o.inner.matchValue(v)
	if err != nil {
		return false, err
	}

	return !ok, nil
}

type trueOperator struct{}

func (trueOperator) matchValue(any) (bool, error) { return true, nil }

type existsOperator struct{ want bool }

func (o existsOperator) matchValue(v any) (bool, error) {
	_, missing := v.(types.MissingType)
	return !missing == o.want, nil
}

type typeOperator struct{ want any }

func (o typeOperator) matchValue(v any) (bool, error) {
	names := typeNames(o.want)
	actual := types.TypeName(v)

	for _, n := range names {
		if n == actual {
			return true, nil
		}
	}

	return false, nil
}

func typeNames(want any) []string {
	if arr, ok := want.(*types.Array); ok {
		names := make([]string, 0, arr.Len())

		for _, e := range arr.Slice() {
			names = append(names, typeAliasToName(e))
		}

		return names
	}

	return []string{typeAliasToName(want)}
}

// typeAliasToName accepts either a type-name string ("string", "array")
// or a BSON numeric type code (as used by the wire protocol this
// engine's $type query operator is modeled on).
func typeAliasToName(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	if n, ok := asInt(v); ok {
		switch n {
		case 1:
			return "double"
		case 2:
			return "string"
		case 3:
			return "object"
		case 4:
			return "array"
		case 5:
			return "binData"
		case 7:
			return "objectId"
		case 8:
			return "bool"
		case 9:
			return "date"
		case 10:
			return "null"
		case 11:
			return "regex"
		case 16:
			return "int"
		case 18:
			return "long"
		}
	}

	return ""
}

type regexOperator struct {
	pattern, options string
}

func newRegexOperator(pattern, options string) (fieldOperator, error) {
	if _, err := (&types.Regex{Pattern: pattern, Options: options}).Compile(); err != nil {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "invalid regex: %s", err)
	}

	return regexOperator{pattern: pattern, options: options}, nil
}

func (o regexOperator) matchValue(v any) (bool, error) {
	return regexMatches(o.pattern, o.options, v)
}

func regexMatches(pattern, options string, v any) (bool, error) {
	s, ok := v.(string)
	if !ok {
		return false, nil
	}

	re, err := (&types.Regex{Pattern: pattern, Options: options}).Compile()
	if err != nil {
		return false, dberrors.NewCommandError(dberrors.CodeBadValue, "invalid regex: %s", err)
	}

	return re.MatchString(s), nil
}

// allOperator (the $all query operator) requires the field to be an
// array containing every operand; unlike other per-field operators, it
// is evaluated against the field's array value as a whole, not
// per-element, so it bypasses fieldPredicate's array-mapping.
type allOperator struct{ operands []any }

func (o allOperator) matchValue(v any) (bool, error) {
	arr, ok := v.(*types.Array)
	if !ok {
		return false, nil
	}

	for _, want := range o.operands {
		found := false

		for _, have := range arr.Slice() {
			if types.StrictEqual(have, want) {
				found = true
				break
			}
		}

		if !found {
			return false, nil
		}
	}

	return true, nil
}

// elemMatchOperator requires the field to be an array with at least one
// element satisfying sub; it too addresses the whole array value.
type elemMatchOperator struct{ sub Predicate }

func (o elemMatchOperator) matchValue(v any) (bool, error) {
	arr, ok := v.(*types.Array)
	if !ok {
		return false, nil
	}

	for _, el := range arr.Slice() {
		ok, err := o.sub.Matches(el)
		if err != nil {
			return false, err
		}

		if ok {
			return true, nil
		}
	}

	return false, nil
}

// compileElemMatch supports both the "query" form ({field: {$gt: 5}} applied
// to each array element) and the "document criteria" form ({a: 1, b: 2}
// applied to each element sub-document), by trying per-field operator
// compilation first and falling back to whole-element operator compilation.
func compileElemMatch(doc *types.Document) (Predicate, error) {
	if looksLikeOperatorDoc(doc) {
		ops, err := compileFieldOperatorsDoc(doc)
		if err != nil {
			return nil, err
		}

		return valuePredicate{op: ops}, nil
	}

	return compileDocument(doc)
}

// valuePredicate adapts a fieldOperator (which matches a resolved
// value) into a Predicate (which matches a whole document/element).
type valuePredicate struct{ op fieldOperator }

func (p valuePredicate) Matches(doc any) (bool, error) { return p.op.matchValue(doc) }

type sizeOperator struct{ want int }

func (o sizeOperator) matchValue(v any) (bool, error) {
	arr, ok := v.(*types.Array)
	if !ok {
		return false, nil
	}

	return arr.Len() == o.want, nil
}

type modOperator struct{ divisor, remainder int64 }

func (o modOperator) matchValue(v any) (bool, error) {
	n, ok := asInt(v)
	if !ok {
		return false, nil
	}

	if o.divisor == 0 {
		return false, dberrors.NewCommandError(dberrors.CodeBadValue, "$mod divisor cannot be 0")
	}

	return n%o.divisor == o.remainder, nil
}

type bitsOperator struct {
	mask  uint64
	check func(v, mask uint64) bool
}

func (o bitsOperator) matchValue(v any) (bool, error) {
	n, ok := asInt(v)
	if !ok {
		return false, nil
	}

	return o.check(uint64(n), o.mask), nil
}
