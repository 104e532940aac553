package stages

import (
	"context"
	"sort"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/expr"
	"github.com/docbase/docbase/internal/stages/accumulators"
	"github.com/docbase/docbase/internal/types"
)

// windowBound is one side of a $setWindowFields window: "unbounded",
// "current", or a signed integer document/range offset.
type windowBound struct {
	unbounded bool
	current   bool
	offset    int64
}

func parseWindowBound(v any) (windowBound, error) {
	switch x := v.(type) {
	case string:
		switch x {
		case "unbounded":
			return windowBound{unbounded: true}, nil
		case "current":
			return windowBound{current: true}, nil
		}
	case int32:
		return windowBound{offset: int64(x)}, nil
	case int64:
		return windowBound{offset: x}, nil
	case float64:
		return windowBound{offset: int64(x)}, nil
	}

	return windowBound{}, dberrors.NewCommandError(dberrors.CodeBadValue, "invalid window bound %v", v)
}

// windowOutput is one compiled $setWindowFields output field.
type windowOutput struct {
	field string
	op    string
	arg   *expr.Expression

	hasWindow       bool
	documentsWindow bool
	lower, upper    windowBound

	// $shift-specific
	shiftBy      int64
	shiftDefault *expr.Expression
}

type setWindowFieldsStage struct {
	partitionBy *expr.Expression
	sortBy      []sortKey
	outputs     []windowOutput
	now         types.DateTime
}

func compileSetWindowFields(spec *types.Document, now types.DateTime) (Stage, error) {
	s := &setWindowFieldsStage{now: now}

	if pRaw, ok := spec.Get("partitionBy"); ok {
		p, err := expr.Compile(pRaw)
		if err != nil {
			return nil, err
		}

		s.partitionBy = p
	}

	if sRaw, ok := spec.Get("sortBy"); ok {
		sortDoc, ok := sRaw.(*types.Document)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$setWindowFields 'sortBy' must be a document")
		}

		keys, err := compileSortSpec(sortDoc)
		if err != nil {
			return nil, err
		}

		s.sortBy = keys
	}

	outputRaw, ok := spec.Get("output")
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$setWindowFields requires 'output'")
	}

	outputDoc, ok := outputRaw.(*types.Document)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$setWindowFields 'output' must be a document")
	}

	outputs := make([]windowOutput, 0, outputDoc.Len())

	for _, name := range outputDoc.Keys() {
		fieldSpecRaw, _ := outputDoc.Get(name)

		fieldSpec, ok := fieldSpecRaw.(*types.Document)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$setWindowFields output field %q must be a document", name)
		}

		out, err := compileWindowOutput(name, fieldSpec)
		if err != nil {
			return nil, err
		}

		outputs = append(outputs, out)
	}

	s.outputs = outputs

	return s, nil
}

func compileWindowOutput(field string, spec *types.Document) (windowOutput, error) {
	var op string

	for _, k := range spec.Keys() {
		if k != "window" {
			op = k
			break
		}
	}

	if op == "" {
		return windowOutput{}, dberrors.NewCommandError(dberrors.CodeBadValue, "$setWindowFields output field %q names no function", field)
	}

	argRaw, _ := spec.Get(op)

	out := windowOutput{field: field, op: op}

	if op == "$shift" {
		shiftSpec, ok := argRaw.(*types.Document)
		if !ok {
			return windowOutput{}, dberrors.NewCommandError(dberrors.CodeBadValue, "$shift requires a document argument")
		}

		outputExpr, err := expr.Compile(mustGet(shiftSpec, "output"))
		if err != nil {
			return windowOutput{}, err
		}

		out.arg = outputExpr

		by, ok := asNonNegativeIntSigned(mustGet(shiftSpec, "by"))
		if !ok {
			return windowOutput{}, dberrors.NewCommandError(dberrors.CodeBadValue, "$shift requires an integer 'by'")
		}

		out.shiftBy = by

		if def, ok := shiftSpec.Get("default"); ok {
			defExpr, err := expr.Compile(def)
			if err != nil {
				return windowOutput{}, err
			}

			out.shiftDefault = defExpr
		}
	} else {
		argExpr, err := expr.Compile(argRaw)
		if err != nil {
			return windowOutput{}, err
		}

		out.arg = argExpr
	}

	if winRaw, ok := spec.Get("window"); ok {
		winDoc, ok := winRaw.(*types.Document)
		if !ok {
			return windowOutput{}, dberrors.NewCommandError(dberrors.CodeBadValue, "'window' must be a document")
		}

		out.hasWindow = true

		if docsRaw, ok := winDoc.Get("documents"); ok {
			out.documentsWindow = true

			arr, ok := docsRaw.(*types.Array)
			if !ok || arr.Len() != 2 {
				return windowOutput{}, dberrors.NewCommandError(dberrors.CodeBadValue, "'documents' window requires a 2-element array")
			}

			lo, _ := arr.Get(0)
			hi, _ := arr.Get(1)

			loB, err := parseWindowBound(lo)
			if err != nil {
				return windowOutput{}, err
			}

			hiB, err := parseWindowBound(hi)
			if err != nil {
				return windowOutput{}, err
			}

			out.lower, out.upper = loB, hiB
		} else if rangeRaw, ok := winDoc.Get("range"); ok {
			arr, ok := rangeRaw.(*types.Array)
			if !ok || arr.Len() != 2 {
				return windowOutput{}, dberrors.NewCommandError(dberrors.CodeBadValue, "'range' window requires a 2-element array")
			}

			lo, _ := arr.Get(0)
			hi, _ := arr.Get(1)

			loB, err := parseWindowBound(lo)
			if err != nil {
				return windowOutput{}, err
			}

			hiB, err := parseWindowBound(hi)
			if err != nil {
				return windowOutput{}, err
			}

			out.lower, out.upper = loB, hiB
		}
	}

	return out, nil
}

func asNonNegativeIntSigned(v any) (int64, bool) {
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

func (s *setWindowFieldsStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	docs, err := drain(in)
	if err != nil {
		return nil, err
	}

	partitions := s.partition(docs)

	results := make([]*types.Document, 0, len(docs))

	for _, part := range partitions {
		s.sortPartition(part)
		results = append(results, s.computeOutputs(part)...)
	}

	return newSliceDocIter(results), nil
}

func (s *setWindowFieldsStage) partition(docs []*types.Document) [][]*types.Document {
	if s.partitionBy == nil {
		return [][]*types.Document{docs}
	}

	order := make([]string, 0)
	groups := make(map[string][]*types.Document)

	for _, doc := range docs {
		v, _ := s.partitionBy.EvalInScope(expr.NewRootScope(doc, s.now))
		key := groupKeyString(v)

		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}

		groups[key] = append(groups[key], doc)
	}

	out := make([][]*types.Document, 0, len(order))
	for _, k := range order {
		out = append(out, groups[k])
	}

	return out
}

func (s *setWindowFieldsStage) sortPartition(part []*types.Document) {
	if len(s.sortBy) == 0 {
		return
	}

	ss := &sortStage{keys: s.sortBy}
	sort.SliceStable(part, func(i, j int) bool { return ss.less(part[i], part[j]) })
}

func (s *setWindowFieldsStage) computeOutputs(part []*types.Document) []*types.Document {
	out := make([]*types.Document, len(part))
	for i, doc := range part {
		out[i] = doc.DeepCopy()
	}

	sortKeys := make([]float64, len(part))
	for i, doc := range part {
		sortKeys[i] = toFloat(s.sortKeyScalar(doc))
	}

	for _, wout := range s.outputs {
		switch wout.op {
		case "$rank", "$denseRank":
			s.applyRank(part, out, wout)
		case "$rowNumber":
			for i := range out {
				out[i].Set(wout.field, int64(i+1))
			}
		case "$shift":
			s.applyShift(part, out, wout)
		case "$derivative":
			s.applyDerivative(part, out, wout, sortKeys, false)
		case "$integral":
			s.applyDerivative(part, out, wout, sortKeys, true)
		default:
			s.applyAccumulatorWindow(part, out, wout, sortKeys)
		}
	}

	return out
}

func (s *setWindowFieldsStage) applyRank(part, out []*types.Document, wout windowOutput) {
	var rank, dense int64
	var prevKey []any

	for i, doc := range part {
		key := s.sortKeyValues(doc)

		if i == 0 || !sameKey(prevKey, key) {
			rank = int64(i + 1)
			dense++
		}

		if wout.op == "$rank" {
			out[i].Set(wout.field, rank)
		} else {
			out[i].Set(wout.field, dense)
		}

		prevKey = key
	}
}

func (s *setWindowFieldsStage) sortKeyValues(doc *types.Document) []any {
	vals := make([]any, len(s.sortBy))
	for i, k := range s.sortBy {
		vals[i] = types.ResolvePath(doc, k.path)
	}

	return vals
}

func sameKey(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if types.Compare(a[i], b[i]) != types.Equal {
			return false
		}
	}

	return true
}

func (s *setWindowFieldsStage) applyShift(part, out []*types.Document, wout windowOutput) {
	for i := range part {
		j := i + int(wout.shiftBy)

		if j < 0 || j >= len(part) {
			if wout.shiftDefault != nil {
				v, _ := wout.shiftDefault.EvalInScope(expr.NewRootScope(part[i], s.now))
				out[i].Set(wout.field, v)
			} else {
				out[i].Set(wout.field, types.Null)
			}

			continue
		}

		v, _ := wout.arg.EvalInScope(expr.NewRootScope(part[j], s.now))
		out[i].Set(wout.field, v)
	}
}

// applyDerivative computes, for each document, a slope ($derivative) or
// trapezoidal accumulation ($integral) of wout.arg against the
// partition's sortBy numeric key over that document's own bounded
// window (documents or range, same resolution as applyAccumulatorWindow)
// -- absent an explicit window clause this defaults to [0, i], matching
// every other windowed output's no-window default.
func (s *setWindowFieldsStage) applyDerivative(part, out []*types.Document, wout windowOutput, sortKeys []float64, integral bool) {
	if len(part) == 0 {
		return
	}

	values := make([]float64, len(part))

	for i, doc := range part {
		v, _ := wout.arg.EvalInScope(expr.NewRootScope(doc, s.now))
		values[i] = toFloat(v)
	}

	for i := range part {
		lo, hi := s.windowRange(part, i, wout, sortKeys)

		if integral {
			var acc float64

			for j := lo + 1; j <= hi; j++ {
				dx := sortKeys[j] - sortKeys[j-1]
				acc += dx * (values[j] + values[j-1]) / 2
			}

			out[i].Set(wout.field, acc)

			continue
		}

		var slope float64

		if hi > lo {
			dx := sortKeys[hi] - sortKeys[lo]
			if dx != 0 {
				slope = (values[hi] - values[lo]) / dx
			}
		}

		out[i].Set(wout.field, slope)
	}
}

func (s *setWindowFieldsStage) sortKeyScalar(doc *types.Document) any {
	if len(s.sortBy) == 0 {
		return int32(0)
	}

	return types.ResolvePath(doc, s.sortBy[0].path)
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}

// applyAccumulatorWindow evaluates a regular $group-style accumulator
// over each document's bounded window (or, absent a window clause, the
// whole partition up to and including the current document).
func (s *setWindowFieldsStage) applyAccumulatorWindow(part, out []*types.Document, wout windowOutput, sortKeys []float64) {
	for i := range part {
		lo, hi := s.windowRange(part, i, wout, sortKeys)

		acc, err := accumulators.New(wout.op)
		if err != nil {
			continue
		}

		for j := lo; j <= hi; j++ {
			v, _ := wout.arg.EvalInScope(expr.NewRootScope(part[j], s.now))
			_ = acc.Add(v)
		}

		out[i].Set(wout.field, acc.Result())
	}
}

// windowRange resolves a window output's [lower, upper] bound into a
// concrete index range into part for the document at i. A "documents"
// window counts rows; a "range" window measures distance in the
// partition's sortBy numeric key from the current document's key value
// (part must already be sorted ascending by that key).
func (s *setWindowFieldsStage) windowRange(part []*types.Document, i int, wout windowOutput, sortKeys []float64) (int, int) {
	if !wout.hasWindow {
		return 0, i
	}

	if wout.documentsWindow {
		return s.documentsWindowRange(len(part), i, wout)
	}

	return s.rangeWindowRange(sortKeys, i, wout)
}

func (s *setWindowFieldsStage) documentsWindowRange(n, i int, wout windowOutput) (int, int) {
	lo := 0
	if !wout.lower.unbounded {
		if wout.lower.current {
			lo = i
		} else {
			lo = i + int(wout.lower.offset)
		}
	}

	hi := n - 1
	if !wout.upper.unbounded {
		if wout.upper.current {
			hi = i
		} else {
			hi = i + int(wout.upper.offset)
		}
	}

	return clampRange(lo, hi, n)
}

// rangeWindowRange finds the documents whose sortBy key falls within
// [current+lower.offset, current+upper.offset] of sortKeys[i], via a
// linear scan (partitions in this module are small enough that a
// binary search over sortKeys isn't warranted).
func (s *setWindowFieldsStage) rangeWindowRange(sortKeys []float64, i int, wout windowOutput) (int, int) {
	n := len(sortKeys)
	current := sortKeys[i]

	lo := 0
	if !wout.lower.unbounded {
		bound := current
		if !wout.lower.current {
			bound += float64(wout.lower.offset)
		}

		lo = n
		for j := 0; j < n; j++ {
			if sortKeys[j] >= bound {
				lo = j
				break
			}
		}
	}

	hi := n - 1
	if !wout.upper.unbounded {
		bound := current
		if !wout.upper.current {
			bound += float64(wout.upper.offset)
		}

		hi = -1
		for j := n - 1; j >= 0; j-- {
			if sortKeys[j] <= bound {
				hi = j
				break
			}
		}
	}

	return clampRange(lo, hi, n)
}

func clampRange(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}

	if hi > n-1 {
		hi = n - 1
	}

	if hi < lo {
		hi = lo - 1 // empty range, caller's loop won't execute
	}

	return lo, hi
}
