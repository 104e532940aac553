package stages

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

// namedStage pairs a compiled Stage with the operator name it was
// compiled from, so Pipeline.Run can label metrics and trace spans per
// stage without every Stage implementation knowing its own name.
type namedStage struct {
	name  string
	stage Stage
}

// Pipeline is a compiled, ordered sequence of stages.
type Pipeline struct {
	stages []namedStage
	pc     *Context
}

var tracer = otel.Tracer("github.com/docbase/docbase/internal/stages")

// Run chains every stage's Process in order, feeding each stage's
// output iterator as the next stage's input. Each stage's Process call
// is wrapped in one trace span and, if pc.Metrics is set, one duration
// observation -- span/metric granularity is per stage per pipeline run,
// not per document, to keep tracing overhead bounded (§4.7).
func (p *Pipeline) Run(ctx context.Context, in DocIter) (DocIter, error) {
	cur := in

	for _, ns := range p.stages {
		name := ns.name

		ctx, span := tracer.Start(ctx, "stage "+name, trace.WithAttributes())

		docsIn := 0
		counted := &countingIter{in: cur, onNext: func() { docsIn++ }}

		start := time.Now()

		next, err := ns.stage.Process(ctx, counted)

		span.End()

		m := p.pc.metrics()
		m.ObserveStage(name, docsIn, time.Since(start))

		if err != nil {
			m.ObserveError(name, "")
			return nil, err
		}

		cur = &countingIter{in: next, onNext: func() { m.IncDocsOut(name) }}
	}

	return cur, nil
}

// Compile compiles a raw pipeline array (each element a single-key
// stage document) into a Pipeline. pc.Now is the single NOW captured for
// every expression evaluated anywhere in this pipeline run (§3).
func Compile(raw *types.Array, pc *Context) (*Pipeline, error) {
	stages := make([]namedStage, 0, raw.Len())

	for i := 0; i < raw.Len(); i++ {
		v, _ := raw.Get(i)

		doc, ok := v.(*types.Document)
		if !ok || doc.Len() != 1 {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "pipeline stage %d must be a single-key document", i)
		}

		name := doc.Keys()[0]
		body, _ := doc.Get(name)

		s, err := compileStage(name, body, pc)
		if err != nil {
			return nil, err
		}

		stages = append(stages, namedStage{name: name, stage: s})
	}

	return &Pipeline{stages: stages, pc: pc}, nil
}

func compileStage(name string, body any, pc *Context) (Stage, error) {
	now := pc.Now

	switch name {
	case "$match":
		return asDoc(name, body, compileMatch)
	case "$project":
		return asDoc(name, body, func(d *types.Document) (Stage, error) { return compileProject(d, now) })
	case "$addFields", "$set":
		return asDoc(name, body, func(d *types.Document) (Stage, error) { return compileAddFields(d, now) })
	case "$unset":
		return compileUnset(body, now)
	case "$replaceRoot":
		return asDoc(name, body, func(d *types.Document) (Stage, error) {
			newRoot, ok := d.Get("newRoot")
			if !ok {
				return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$replaceRoot requires 'newRoot'")
			}

			return compileReplaceRoot(newRoot, now)
		})
	case "$replaceWith":
		return compileReplaceRoot(body, now)
	case "$limit":
		return compileLimit(body)
	case "$skip":
		return compileSkip(body)
	case "$count":
		return compileCount(body)
	case "$unwind":
		return compileUnwind(body)
	case "$sort":
		return asDoc(name, body, compileSort)
	case "$group":
		return asDoc(name, body, func(d *types.Document) (Stage, error) { return compileGroup(d, now) })
	case "$sortByCount":
		return compileSortByCount(body, now)
	case "$bucket":
		return asDoc(name, body, func(d *types.Document) (Stage, error) { return compileBucket(d, now) })
	case "$bucketAuto":
		return asDoc(name, body, func(d *types.Document) (Stage, error) { return compileBucketAuto(d, now) })
	case "$facet":
		return asDoc(name, body, func(d *types.Document) (Stage, error) { return compileFacet(d, pc) })
	case "$sample":
		return asDoc(name, body, compileSample)
	case "$setWindowFields":
		return asDoc(name, body, func(d *types.Document) (Stage, error) { return compileSetWindowFields(d, now) })
	case "$lookup":
		return asDoc(name, body, func(d *types.Document) (Stage, error) { return compileLookup(d, pc) })
	case "$unionWith":
		return compileUnionWith(body, pc)
	case "$merge":
		return asDoc(name, body, func(d *types.Document) (Stage, error) { return compileMerge(d, pc) })
	case "$out":
		return compileOut(body, pc)
	default:
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "unknown pipeline stage %q", name)
	}
}

func asDoc(stageName string, body any, fn func(*types.Document) (Stage, error)) (Stage, error) {
	doc, ok := body.(*types.Document)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "%s requires a document argument", stageName)
	}

	return fn(doc)
}
