package expr

import (
	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

func init() {
	register("$cond", buildCond)
	register("$switch", buildSwitch)
	simple("$ifNull", opIfNull)
}

// buildCond accepts either the positional [if, then, else] array form or
// the named {if, then, else} document form.
func buildCond(raw any, compileFn CompileFunc) (Expr, error) {
	var ifRaw, thenRaw, elseRaw any

	switch v := raw.(type) {
	case *types.Array:
		if v.Len() != 3 {
			return nil, dberrors.Errorf("$cond", "$cond requires exactly 3 arguments, got %d", v.Len())
		}

		ifRaw, _ = v.Get(0)
		thenRaw, _ = v.Get(1)
		elseRaw, _ = v.Get(2)
	case *types.Document:
		var ok bool

		if ifRaw, ok = v.Get("if"); !ok {
			return nil, dberrors.Errorf("$cond", "Missing 'if' parameter to $cond")
		}

		if thenRaw, ok = v.Get("then"); !ok {
			return nil, dberrors.Errorf("$cond", "Missing 'then' parameter to $cond")
		}

		if elseRaw, ok = v.Get("else"); !ok {
			return nil, dberrors.Errorf("$cond", "Missing 'else' parameter to $cond")
		}
	default:
		return nil, dberrors.Errorf("$cond", "$cond requires an array of 3 or a document of {if,then,else}")
	}

	ifExpr, err := compileFn(ifRaw)
	if err != nil {
		return nil, err
	}

	thenExpr, err := compileFn(thenRaw)
	if err != nil {
		return nil, err
	}

	elseExpr, err := compileFn(elseRaw)
	if err != nil {
		return nil, err
	}

	return condExpr{ifE: ifExpr, thenE: thenExpr, elseE: elseExpr}, nil
}

type condExpr struct{ ifE, thenE, elseE Expr }

func (e condExpr) Eval(scope *Scope) (any, error) {
	cond, err := e.ifE.Eval(scope)
	if err != nil {
		return nil, err
	}

	if types.Truthy(cond) {
		return e.thenE.Eval(scope)
	}

	return e.elseE.Eval(scope)
}

type switchBranch struct {
	caseE, thenE Expr
}

// buildSwitch compiles {branches: [{case, then}, ...], default?}.
func buildSwitch(raw any, compileFn CompileFunc) (Expr, error) {
	doc, ok := raw.(*types.Document)
	if !ok {
		return nil, dberrors.Errorf("$switch", "$switch requires a document with a 'branches' array")
	}

	branchesRaw, ok := doc.Get("branches")
	if !ok {
		return nil, dberrors.Errorf("$switch", "$switch requires at least one branch")
	}

	branchesArr, ok := branchesRaw.(*types.Array)
	if !ok || branchesArr.Len() == 0 {
		return nil, dberrors.Errorf("$switch", "$switch requires at least one branch")
	}

	branches := make([]switchBranch, branchesArr.Len())

	for i := 0; i < branchesArr.Len(); i++ {
		bv, _ := branchesArr.Get(i)

		bdoc, ok := bv.(*types.Document)
		if !ok {
			return nil, dberrors.Errorf("$switch", "$switch branch must be a document with 'case' and 'then'")
		}

		caseRaw, ok := bdoc.Get("case")
		if !ok {
			return nil, dberrors.Errorf("$switch", "$switch branch requires a 'case' expression")
		}

		thenRaw, ok := bdoc.Get("then")
		if !ok {
			return nil, dberrors.Errorf("$switch", "$switch branch requires a 'then' expression")
		}

		caseE, err := compileFn(caseRaw)
		if err != nil {
			return nil, err
		}

		thenE, err := compileFn(thenRaw)
		if err != nil {
			return nil, err
		}

		branches[i] = switchBranch{caseE: caseE, thenE: thenE}
	}

	var defaultE Expr

	if defRaw, ok := doc.Get("default"); ok {
		var err error

		defaultE, err = compileFn(defRaw)
		if err != nil {
			return nil, err
		}
	}

	return switchExpr{branches: branches, defaultE: defaultE}, nil
}

type switchExpr struct {
	branches []switchBranch
	defaultE Expr
}

func (e switchExpr) Eval(scope *Scope) (any, error) {
	for _, b := range e.branches {
		cond, err := b.caseE.Eval(scope)
		if err != nil {
			return nil, err
		}

		if types.Truthy(cond) {
			return b.thenE.Eval(scope)
		}
	}

	if e.defaultE != nil {
		return e.defaultE.Eval(scope)
	}

	return nil, dberrors.Errorf("$switch", "$switch could not find a matching branch for an input, "+
		"and no default was specified.")
}

func opIfNull(args []any) (any, error) {
	if len(args) < 2 {
		return nil, dberrors.Errorf("$ifNull", "$ifNull requires at least 2 arguments")
	}

	for _, a := range args[:len(args)-1] {
		if !isNullish(a) {
			return a, nil
		}
	}

	return args[len(args)-1], nil
}
