package expr

import (
	"math/rand"

	"github.com/docbase/docbase/internal/types"
)

func init() {
	register("$literal", buildLiteral)
	register("$meta", buildMeta)
	fixed("$rand", 0, opRand)
}

// buildLiteral returns raw verbatim, uncompiled: this is the one place
// in the grammar where a nested $-prefixed string or operator-keyed
// document must NOT be interpreted as an expression.
func buildLiteral(raw any, _ CompileFunc) (Expr, error) {
	return literalExpr{value: raw}, nil
}

// buildMeta supports {$meta: "textScore"}/{$meta: "searchScore"}-style
// metadata lookups. This engine has no full-text search index to back
// a real score, so every metadata key resolves to Missing -- present
// for pipeline compatibility, not for ranking.
func buildMeta(raw any, _ CompileFunc) (Expr, error) {
	return literalExpr{value: types.Missing}, nil
}

func opRand(_ []any) (any, error) {
	return rand.Float64(), nil
}
