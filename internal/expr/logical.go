package expr

import (
	"github.com/docbase/docbase/internal/types"
)

func init() {
	register("$and", func(raw any, compileFn CompileFunc) (Expr, error) {
		args, err := argsOf(raw, compileFn)
		if err != nil {
			return nil, err
		}

		return andExpr{args: args}, nil
	})
	register("$or", func(raw any, compileFn CompileFunc) (Expr, error) {
		args, err := argsOf(raw, compileFn)
		if err != nil {
			return nil, err
		}

		return orExpr{args: args}, nil
	})
	unary("$not", func(v any) (any, error) { return !types.Truthy(v), nil })
}

// andExpr evaluates its operands left to right, stopping at the first
// falsy one (short-circuit); an empty $and is true.
type andExpr struct{ args []Expr }

func (e andExpr) Eval(scope *Scope) (any, error) {
	for _, a := range e.args {
		v, err := a.Eval(scope)
		if err != nil {
			return nil, err
		}

		if !types.Truthy(v) {
			return false, nil
		}
	}

	return true, nil
}

// orExpr evaluates its operands left to right, stopping at the first
// truthy one (short-circuit); an empty $or is false.
type orExpr struct{ args []Expr }

func (e orExpr) Eval(scope *Scope) (any, error) {
	for _, a := range e.args {
		v, err := a.Eval(scope)
		if err != nil {
			return nil, err
		}

		if types.Truthy(v) {
			return true, nil
		}
	}

	return false, nil
}
