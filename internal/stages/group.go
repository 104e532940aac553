package stages

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/exp/maps"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/expr"
	"github.com/docbase/docbase/internal/stages/accumulators"
	"github.com/docbase/docbase/internal/types"
)

// groupOutput is one compiled output field of a $group spec: a named
// accumulator folding a per-document argument expression.
type groupOutput struct {
	field string
	op    string
	arg   *expr.Expression
}

// groupStage is blocking: every accumulator must see the whole input
// partition for its group before any output document can be emitted.
type groupStage struct {
	id      *expr.Expression
	outputs []groupOutput
	now     types.DateTime
}

func compileGroup(spec *types.Document, now types.DateTime) (Stage, error) {
	idRaw, ok := spec.Get("_id")
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$group requires an _id expression")
	}

	idExpr, err := expr.Compile(idRaw)
	if err != nil {
		return nil, err
	}

	outputs := make([]groupOutput, 0, spec.Len()-1)

	for _, name := range spec.Keys() {
		if name == "_id" {
			continue
		}

		fieldSpec, _ := spec.Get(name)

		doc, ok := fieldSpec.(*types.Document)
		if !ok || doc.Len() != 1 {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue,
				"$group output field %q must name exactly one accumulator", name)
		}

		op := doc.Keys()[0]
		argRaw, _ := doc.Get(op)

		argExpr, err := expr.Compile(argRaw)
		if err != nil {
			return nil, err
		}

		outputs = append(outputs, groupOutput{field: name, op: op, arg: argExpr})
	}

	return &groupStage{id: idExpr, outputs: outputs, now: now}, nil
}

type groupBucket struct {
	idValue any
	accs    []accumulators.Accumulator
}

func (s *groupStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	docs, err := drain(in)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*groupBucket)

	for _, doc := range docs {
		scope := expr.NewRootScope(doc, s.now)

		idValue, err := s.id.EvalInScope(scope)
		if err != nil {
			return nil, err
		}

		key := groupKeyString(idValue)

		b, ok := buckets[key]
		if !ok {
			b = &groupBucket{idValue: idValue, accs: make([]accumulators.Accumulator, len(s.outputs))}

			for i, out := range s.outputs {
				acc, err := accumulators.New(out.op)
				if err != nil {
					return nil, err
				}

				b.accs[i] = acc
			}

			buckets[key] = b
		}

		for i, out := range s.outputs {
			v, err := out.arg.EvalInScope(scope)
			if err != nil {
				return nil, err
			}

			if err := b.accs[i].Add(v); err != nil {
				return nil, err
			}
		}
	}

	results := make([]*types.Document, 0, len(buckets))

	for _, b := range maps.Values(buckets) {
		out := types.MakeDocument(len(s.outputs) + 1)
		out.Set("_id", b.idValue)

		for i, spec := range s.outputs {
			out.Set(spec.field, b.accs[i].Result())
		}

		results = append(results, out)
	}

	return newSliceDocIter(results), nil
}

// groupKeyString renders an _id value into a comparable map key; it
// need not be human-readable, only injective over the Value Model's
// practical range for one pipeline run. Numeric subtypes are folded to
// a common representation first (§3: numbers compare by value
// regardless of subtype), so int32(5), int64(5), and float64(5) land in
// the same group instead of three distinct ones.
func groupKeyString(v any) string {
	switch x := v.(type) {
	case *types.Document:
		s := "{"

		for _, k := range x.Keys() {
			fv, _ := x.Get(k)
			s += k + ":" + groupKeyString(fv) + ","
		}

		return s + "}"
	case *types.Array:
		s := "["

		for _, e := range x.Slice() {
			s += groupKeyString(e) + ","
		}

		return s + "]"
	case int32:
		return numericKeyString(float64(x))
	case int64:
		return numericKeyString(float64(x))
	case float64:
		return numericKeyString(x)
	default:
		return fmt.Sprintf("%T:%v", x, x)
	}
}

func numericKeyString(f float64) string {
	return "num:" + strconv.FormatFloat(f, 'g', -1, 64)
}
