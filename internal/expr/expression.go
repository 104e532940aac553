// Package expr implements the Expression Compiler & Evaluator (§4.3): it
// compiles the aggregation expression grammar into a typed tree once,
// and evaluates that tree against a document under a [Scope] any number
// of times.
package expr

import (
	"strings"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

// Expr is a compiled, evaluable expression-tree node.
type Expr interface {
	Eval(scope *Scope) (any, error)
}

// Expression wraps a compiled tree with the convenience methods callers want.
type Expression struct {
	root Expr
}

// Compile compiles a raw pipeline-literal value (as it appears in an
// aggregation document: a $-prefixed field path, a $$-prefixed variable
// reference, an operator-keyed document, a plain document, an array, or
// a scalar literal) into an Expression.
func Compile(raw any) (*Expression, error) {
	e, err := compile(raw)
	if err != nil {
		return nil, err
	}

	return &Expression{root: e}, nil
}

// Eval evaluates the expression against doc: CURRENT and ROOT are bound
// to doc and NOW is captured once for the call.
func (e *Expression) Eval(doc any, now types.DateTime) (any, error) {
	return e.root.Eval(NewRootScope(doc, now))
}

// EvalInScope evaluates the expression under an already-constructed scope,
// for use by callers (stages, nested operators) that need to supply
// additional bindings ($let, $lookup's `let`, $map's `as`) or a CURRENT
// that differs from the pipeline's top-level document.
func (e *Expression) EvalInScope(scope *Scope) (any, error) {
	return e.root.Eval(scope)
}

// compile is the recursive compiler; it is threaded into operator
// builders so a builder can compile its own sub-expressions, including
// ones it must treat specially (named-record arguments, raw literals
// via $literal, etc).
func compile(raw any) (Expr, error) {
	switch v := raw.(type) {
	case string:
		return compileString(v)
	case *types.Document:
		return compileDocument(v)
	case *types.Array:
		return compileArray(v)
	default:
		return literalExpr{value: raw}, nil
	}
}

func compileString(s string) (Expr, error) {
	switch {
	case strings.HasPrefix(s, "$$"):
		return compileVariable(s[2:])
	case strings.HasPrefix(s, "$"):
		return fieldPathExpr{segments: types.SplitPath(s[1:])}, nil
	default:
		return literalExpr{value: s}, nil
	}
}

func compileVariable(rest string) (Expr, error) {
	segments := types.SplitPath(rest)
	if len(segments) == 0 || segments[0] == "" {
		return nil, dberrors.Errorf("$$", "invalid variable reference")
	}

	return varExpr{name: segments[0], segments: segments[1:]}, nil
}

// compileDocument decides whether doc is an operator invocation (exactly
// one field, whose name is a registered operator) or a literal object
// whose field values must each be compiled recursively.
func compileDocument(doc *types.Document) (Expr, error) {
	if doc.Len() == 1 {
		name := doc.Keys()[0]

		if builder, ok := lookupOperator(name); ok {
			raw, _ := doc.Get(name)
			return builder(raw, compile)
		}
	}

	fields := make([]objectField, 0, doc.Len())

	for _, name := range doc.Keys() {
		v, _ := doc.Get(name)

		child, err := compile(v)
		if err != nil {
			return nil, err
		}

		fields = append(fields, objectField{name: name, expr: child})
	}

	return objectExpr{fields: fields}, nil
}

func compileArray(arr *types.Array) (Expr, error) {
	elems := make([]Expr, arr.Len())

	for i := 0; i < arr.Len(); i++ {
		v, _ := arr.Get(i)

		e, err := compile(v)
		if err != nil {
			return nil, err
		}

		elems[i] = e
	}

	return arrayExpr{elems: elems}, nil
}

// literalExpr returns its configured value verbatim, with no evaluation:
// used both for plain scalars and for the body of $literal.
type literalExpr struct{ value any }

func (e literalExpr) Eval(*Scope) (any, error) { return e.value, nil }

// fieldPathExpr resolves a dotted path against the scope's CURRENT
// document (the implicit root of `$fieldPath`).
type fieldPathExpr struct{ segments []string }

func (e fieldPathExpr) Eval(scope *Scope) (any, error) {
	return types.ResolvePath(scope.Current(), e.segments), nil
}

// varExpr resolves a $$name[.rest] variable reference.
type varExpr struct {
	name     string
	segments []string
}

func (e varExpr) Eval(scope *Scope) (any, error) {
	v, ok := scope.Lookup(e.name)
	if !ok {
		return nil, dberrors.Errorf("$$"+e.name, "Use of undefined variable: %s", e.name)
	}

	return types.ResolvePath(v, e.segments), nil
}

// objectField is one field of an objectExpr.
type objectField struct {
	name string
	expr Expr
}

// objectExpr rebuilds a literal object, evaluating each field's value
// expression against the same scope; a field whose value evaluates to
// Missing is omitted from the result object, matching how a computed
// $project/$addFields field that resolves to Missing is simply absent
// from the output document.
type objectExpr struct{ fields []objectField }

func (e objectExpr) Eval(scope *Scope) (any, error) {
	doc := types.MakeDocument(len(e.fields))

	for _, f := range e.fields {
		v, err := f.expr.Eval(scope)
		if err != nil {
			return nil, err
		}

		if _, isMissing := v.(types.MissingType); isMissing {
			continue
		}

		doc.Set(f.name, v)
	}

	return doc, nil
}

// arrayExpr rebuilds a literal array, evaluating each element against the
// same scope. Unlike object fields, a Missing element is preserved as
// Null (an array slot can't simply vanish).
type arrayExpr struct{ elems []Expr }

func (e arrayExpr) Eval(scope *Scope) (any, error) {
	arr := types.MakeArray(len(e.elems))

	for _, el := range e.elems {
		v, err := el.Eval(scope)
		if err != nil {
			return nil, err
		}

		if _, isMissing := v.(types.MissingType); isMissing {
			v = types.Null
		}

		_ = arr.Append(v)
	}

	return arr, nil
}

// evalArgs evaluates every expr in exprs against scope, coercing Missing
// results to Null at the operator boundary (§3 invariant (b)), which is
// the correct behavior for the large majority of operators.
func evalArgs(scope *Scope, exprs []Expr) ([]any, error) {
	args := make([]any, len(exprs))

	for i, e := range exprs {
		v, err := e.Eval(scope)
		if err != nil {
			return nil, err
		}

		args[i] = coerceMissing(v)
	}

	return args, nil
}

// coerceMissing converts Missing to Null; every other value passes through unchanged.
func coerceMissing(v any) any {
	if _, ok := v.(types.MissingType); ok {
		return types.Null
	}

	return v
}

// argsOf normalizes an operator's raw argument value into a slice of
// compiled Exprs: a *types.Array compiles to one Expr per element
// (positional arguments); anything else compiles to a single-element
// slice (the common "$op: <expr>" unary form).
func argsOf(raw any, compileFn func(any) (Expr, error)) ([]Expr, error) {
	if arr, ok := raw.(*types.Array); ok {
		exprs := make([]Expr, arr.Len())

		for i := 0; i < arr.Len(); i++ {
			v, _ := arr.Get(i)

			e, err := compileFn(v)
			if err != nil {
				return nil, err
			}

			exprs[i] = e
		}

		return exprs, nil
	}

	e, err := compileFn(raw)
	if err != nil {
		return nil, err
	}

	return []Expr{e}, nil
}
