package expr

import (
	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

// CompileFunc is the recursive compiler, passed to every OperatorBuilder
// so it can compile its own sub-expressions (including ones requiring
// special handling, like $let's `vars` or $map's `as`).
type CompileFunc func(raw any) (Expr, error)

// OperatorBuilder compiles one operator invocation's raw argument value
// (the single value keyed by the operator's name in the pipeline
// document) into an Expr. This is the "pure function pointer plus arity
// descriptor" the design notes call for: argument-shape validation
// happens here, at compile time, so malformed pipelines fail before any
// document is evaluated.
type OperatorBuilder func(raw any, compile CompileFunc) (Expr, error)

// registry is the dispatch table of operator name -> builder, built at
// package init() time by each family file's init().
var registry = map[string]OperatorBuilder{}

// register adds name to the dispatch table. Called only from init().
func register(name string, b OperatorBuilder) {
	registry[name] = b
}

// lookupOperator is used by the compiler to recognize an operator-keyed document.
func lookupOperator(name string) (OperatorBuilder, bool) {
	b, ok := registry[name]
	return b, ok
}

// IsOperator reports whether doc is a single-field document whose field
// name is a registered expression operator -- used by $group
// accumulators and other callers that must distinguish "an operator
// invocation" from "a literal object value".
func IsOperator(doc *types.Document) bool {
	if doc.Len() != 1 {
		return false
	}

	_, ok := lookupOperator(doc.Keys()[0])

	return ok
}

// operatorFunc adapts a plain (scope, args) -> (any, error) function,
// plus its already-compiled argument expressions, into an Expr.
type operatorFunc struct {
	args []Expr
	fn   func(scope *Scope, args []any) (any, error)
}

func (e operatorFunc) Eval(scope *Scope) (any, error) {
	args, err := evalArgs(scope, e.args)
	if err != nil {
		return nil, err
	}

	return e.fn(scope, args)
}

// simple registers an operator taking a flexible (variadic) number of
// positional arguments, each Null-coerced per the operator boundary rule.
func simple(name string, fn func(args []any) (any, error)) {
	register(name, func(raw any, compileFn CompileFunc) (Expr, error) {
		args, err := argsOf(raw, compileFn)
		if err != nil {
			return nil, err
		}

		return operatorFunc{args: args, fn: func(_ *Scope, a []any) (any, error) { return fn(a) }}, nil
	})
}

// simpleScoped is like simple, but the implementation also receives the scope.
func simpleScoped(name string, fn func(scope *Scope, args []any) (any, error)) {
	register(name, func(raw any, compileFn CompileFunc) (Expr, error) {
		args, err := argsOf(raw, compileFn)
		if err != nil {
			return nil, err
		}

		return operatorFunc{args: args, fn: fn}, nil
	})
}

// fixed registers an operator requiring exactly n positional arguments.
func fixed(name string, n int, fn func(args []any) (any, error)) {
	simple(name, func(args []any) (any, error) {
		if len(args) != n {
			return nil, dberrors.Errorf(name, "%s requires exactly %d argument(s), got %d", name, n, len(args))
		}

		return fn(args)
	})
}

// unary registers a single-argument operator.
func unary(name string, fn func(arg any) (any, error)) {
	fixed(name, 1, func(args []any) (any, error) { return fn(args[0]) })
}

// binary registers a two-argument operator.
func binary(name string, fn func(a, b any) (any, error)) {
	fixed(name, 2, func(args []any) (any, error) { return fn(args[0], args[1]) })
}

// rangeArity registers an operator accepting between min and max positional arguments.
func rangeArity(name string, min, max int, fn func(args []any) (any, error)) {
	simple(name, func(args []any) (any, error) {
		if len(args) < min || (max >= 0 && len(args) > max) {
			return nil, dberrors.Errorf(name, "%s requires between %d and %d arguments", name, min, max)
		}

		return fn(args)
	})
}
