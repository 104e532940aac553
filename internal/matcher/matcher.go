// Package matcher implements the Document Matcher (§4.4): the
// query-predicate grammar used by $match (including a $match inside a
// $lookup pipeline) and the Client API's Find/Count surfaces. A Matcher is compiled once from
// a filter document and evaluated against any number of documents.
package matcher

import (
	"time"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/expr"
	"github.com/docbase/docbase/internal/types"
)

// Predicate is a compiled, evaluable filter node.
type Predicate interface {
	Matches(doc any) (bool, error)
}

// Matcher wraps a compiled predicate tree.
type Matcher struct {
	root Predicate
}

// Compile compiles a filter document (e.g. {"status": "A", "qty": {"$gt": 10}})
// into a Matcher.
func Compile(filter *types.Document) (*Matcher, error) {
	p, err := compileDocument(filter)
	if err != nil {
		return nil, err
	}

	return &Matcher{root: p}, nil
}

// Matches reports whether doc satisfies the compiled filter.
func (m *Matcher) Matches(doc any) (bool, error) {
	return m.root.Matches(doc)
}

// compileDocument compiles a filter document as an implicit $and across
// its fields: a top-level operator field ($and, $or, $nor, $not, $expr,
// $comment) is recognized by name; every other field is a field-path
// predicate (a literal equality or a document of per-field operators).
func compileDocument(doc *types.Document) (Predicate, error) {
	var preds []Predicate

	for _, key := range doc.Keys() {
		v, _ := doc.Get(key)

		switch key {
		case "$and":
			sub, err := compileLogicalArray(key, v)
			if err != nil {
				return nil, err
			}

			preds = append(preds, allPredicate{preds: sub})
		case "$or":
			sub, err := compileLogicalArray(key, v)
			if err != nil {
				return nil, err
			}

			preds = append(preds, anyPredicate{preds: sub})
		case "$nor":
			sub, err := compileLogicalArray(key, v)
			if err != nil {
				return nil, err
			}

			preds = append(preds, notPredicate{inner: anyPredicate{preds: sub}})
		case "$not":
			d, ok := v.(*types.Document)
			if !ok {
				return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$not requires a document")
			}

			sub, err := compileDocument(d)
			if err != nil {
				return nil, err
			}

			preds = append(preds, notPredicate{inner: sub})
		case "$comment":
			// No predicate effect; present for query annotation only.
			continue
		case "$expr":
			e, err := expr.Compile(v)
			if err != nil {
				return nil, err
			}

			preds = append(preds, exprPredicate{expr: e})
		default:
			p, err := compileFieldPredicate(key, v)
			if err != nil {
				return nil, err
			}

			preds = append(preds, p)
		}
	}

	return allPredicate{preds: preds}, nil
}

func compileLogicalArray(op string, raw any) ([]Predicate, error) {
	arr, ok := raw.(*types.Array)
	if !ok || arr.Len() == 0 {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "%s requires a non-empty array", op)
	}

	preds := make([]Predicate, arr.Len())

	for i := 0; i < arr.Len(); i++ {
		v, _ := arr.Get(i)

		d, ok := v.(*types.Document)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "%s element must be a document", op)
		}

		p, err := compileDocument(d)
		if err != nil {
			return nil, err
		}

		preds[i] = p
	}

	return preds, nil
}

type allPredicate struct{ preds []Predicate }

func (p allPredicate) Matches(doc any) (bool, error) {
	for _, sub := range p.preds {
		ok, err := sub.Matches(doc)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

type anyPredicate struct{ preds []Predicate }

func (p anyPredicate) Matches(doc any) (bool, error) {
	for _, sub := range p.preds {
		ok, err := sub.Matches(doc)
		if err != nil {
			return false, err
		}

		if ok {
			return true, nil
		}
	}

	return false, nil
}

type notPredicate struct{ inner Predicate }

func (p notPredicate) Matches(doc any) (bool, error) {
	ok, err := p.inner.Matches(doc)
	if err != nil {
		return false, err
	}

	return !ok, nil
}

// exprPredicate evaluates an aggregation expression and interprets its
// result via the value model's truthiness rule.
type exprPredicate struct{ expr *expr.Expression }

func (p exprPredicate) Matches(doc any) (bool, error) {
	v, err := p.expr.Eval(doc, types.NewDateTime(time.Now()))
	if err != nil {
		return false, err
	}

	return types.Truthy(v), nil
}

// fieldValue resolves path against doc for use by field predicates,
// returning the raw (possibly Missing) value.
func fieldValue(doc any, path []string) any {
	return types.ResolvePath(doc, path)
}
