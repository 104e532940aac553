package expr

import (
	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

// namedArgs compiles the fields of a named-record operator argument
// (e.g. $trim's {input, chars}) into a name -> Expr map, erroring if a
// field in required is absent. Fields not mentioned in required or
// optional are ignored (forward-compatible with options this engine
// does not implement).
func namedArgs(op string, raw any, compileFn CompileFunc, required, optional []string) (map[string]Expr, error) {
	doc, ok := raw.(*types.Document)
	if !ok {
		return nil, dberrors.Errorf(op, "%s requires a document of named arguments", op)
	}

	out := make(map[string]Expr, len(required)+len(optional))

	for _, name := range required {
		v, ok := doc.Get(name)
		if !ok {
			return nil, dberrors.Errorf(op, "%s requires a '%s' argument", op, name)
		}

		e, err := compileFn(v)
		if err != nil {
			return nil, err
		}

		out[name] = e
	}

	for _, name := range optional {
		v, ok := doc.Get(name)
		if !ok {
			continue
		}

		e, err := compileFn(v)
		if err != nil {
			return nil, err
		}

		out[name] = e
	}

	return out, nil
}

// evalNamed evaluates every expr in fields, Missing-coerced to Null,
// returning a name -> value map.
func evalNamed(scope *Scope, fields map[string]Expr) (map[string]any, error) {
	out := make(map[string]any, len(fields))

	for name, e := range fields {
		v, err := e.Eval(scope)
		if err != nil {
			return nil, err
		}

		out[name] = coerceMissing(v)
	}

	return out, nil
}

// namedExpr adapts a compiled named-argument map plus an evaluator
// function into an Expr.
type namedExpr struct {
	fields map[string]Expr
	fn     func(args map[string]any) (any, error)
}

func (e namedExpr) Eval(scope *Scope) (any, error) {
	args, err := evalNamed(scope, e.fields)
	if err != nil {
		return nil, err
	}

	return e.fn(args)
}

// registerNamed registers an operator whose raw argument is always a
// named-record document.
func registerNamed(op string, required, optional []string, fn func(args map[string]any) (any, error)) {
	register(op, func(raw any, compileFn CompileFunc) (Expr, error) {
		fields, err := namedArgs(op, raw, compileFn, required, optional)
		if err != nil {
			return nil, err
		}

		return namedExpr{fields: fields, fn: fn}, nil
	})
}
