package docdb

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/docbase/docbase/internal/bsonconv"
	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/matcher"
	"github.com/docbase/docbase/internal/metrics"
	"github.com/docbase/docbase/internal/projection"
	"github.com/docbase/docbase/internal/stages"
	"github.com/docbase/docbase/internal/storage"
	"github.com/docbase/docbase/internal/types"
	"github.com/docbase/docbase/internal/util/iterator"
)

// Collection is a client-facing handle over one storage.Collaborator,
// implementing the operations enumerated in original §6.
type Collection struct {
	name    string
	col     storage.Collaborator
	catalog storage.Catalog
	log     *zap.Logger
	metrics *metrics.PipelineMetrics
}

// Name returns the collection's name.
func (c *Collection) Name() string { return c.name }

// InsertOneResult is the result of InsertOne.
type InsertOneResult struct {
	InsertedID any
}

// InsertOne inserts a single bson.D/bson.M document.
func (c *Collection) InsertOne(_ context.Context, doc any) (InsertOneResult, error) {
	d, err := bsonconv.ToDocument(doc)
	if err != nil {
		return InsertOneResult{}, err
	}

	if err := c.col.Insert(d); err != nil {
		return InsertOneResult{}, err
	}

	id, _ := d.Get("_id")

	return InsertOneResult{InsertedID: id}, nil
}

// InsertManyResult is the result of InsertMany.
type InsertManyResult struct {
	InsertedIDs []any
}

// InsertMany inserts each of docs in order, stopping at the first error.
func (c *Collection) InsertMany(ctx context.Context, docs []any) (InsertManyResult, error) {
	ids := make([]any, 0, len(docs))

	for _, raw := range docs {
		res, err := c.InsertOne(ctx, raw)
		if err != nil {
			return InsertManyResult{InsertedIDs: ids}, err
		}

		ids = append(ids, res.InsertedID)
	}

	return InsertManyResult{InsertedIDs: ids}, nil
}

// matched returns every document in the collection for which filter
// (a bson.D/bson.M query document) matches, in scan order.
func (c *Collection) matched(filter any) ([]*types.Document, error) {
	filterDoc, err := bsonconv.ToDocument(filter)
	if err != nil {
		return nil, err
	}

	m, err := matcher.Compile(filterDoc)
	if err != nil {
		return nil, err
	}

	iter, err := c.col.Scan()
	if err != nil {
		return nil, err
	}

	docs, err := iterator.ConsumeValues[struct{}, *types.Document](iter)
	if err != nil {
		return nil, err
	}

	out := make([]*types.Document, 0, len(docs))

	for _, d := range docs {
		ok, err := m.Matches(d)
		if err != nil {
			return nil, err
		}

		if ok {
			out = append(out, d)
		}
	}

	return out, nil
}

// Find returns a Cursor over every document matching filter, with
// opts.Sort/Skip/Limit/Projection applied in that order (matching the
// server's own find-options application order).
func (c *Collection) Find(_ context.Context, filter any, opts *FindOptions) (*Cursor, error) {
	docs, err := c.matched(filter)
	if err != nil {
		return nil, err
	}

	cur := NewCursor(docs)

	if opts == nil {
		return cur, nil
	}

	if opts.Sort != nil {
		sortDoc, err := bsonconv.ToValue(opts.Sort)
		if err != nil {
			return nil, err
		}

		keys, err := sortKeysFromValue(sortDoc)
		if err != nil {
			return nil, err
		}

		cur.Sort(keys)
	}

	if opts.Skip != nil {
		cur.Skip(*opts.Skip)
	}

	if opts.Limit != nil {
		cur.Limit(*opts.Limit)
	}

	if opts.Projection != nil {
		projDoc, err := bsonconv.ToDocument(opts.Projection)
		if err != nil {
			return nil, err
		}

		proj, err := projection.CompileProject(projDoc)
		if err != nil {
			return nil, err
		}

		now := types.NewDateTime(time.Now())
		projected := make([]*types.Document, 0, len(cur.docs)-cur.pos)

		for _, d := range cur.docs[cur.pos:] {
			v, err := proj.Apply(d, now)
			if err != nil {
				return nil, err
			}

			pd, ok := v.(*types.Document)
			if !ok {
				return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "find: projection produced a non-document result")
			}

			projected = append(projected, pd)
		}

		cur = NewCursor(projected)
	}

	return cur, nil
}

func sortKeysFromValue(v any) ([]SortKey, error) {
	doc, ok := v.(*types.Document)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "sort must be a document")
	}

	keys := make([]SortKey, 0, doc.Len())

	for _, name := range doc.Keys() {
		dirRaw, _ := doc.Get(name)

		desc := false

		switch d := dirRaw.(type) {
		case int32:
			desc = d < 0
		case int64:
			desc = d < 0
		case float64:
			desc = d < 0
		}

		keys = append(keys, SortKey{Path: types.SplitPath(name), Descending: desc})
	}

	return keys, nil
}

// FindOne returns the first document matching filter, or nil if none matches.
func (c *Collection) FindOne(ctx context.Context, filter any) (*types.Document, error) {
	cur, err := c.Find(ctx, filter, &FindOptions{Limit: int64Ptr(1)})
	if err != nil {
		return nil, err
	}

	d, ok := cur.Next()
	if !ok {
		return nil, nil
	}

	return d, nil
}

func int64Ptr(n int64) *int64 { return &n }

// Aggregate compiles and runs pipeline (a bson.A / []bson.D literal)
// against this collection, using the same storage.Catalog as every
// other operation on this Database so $lookup/$merge/$out/$unionWith
// can reach sibling collections.
func (c *Collection) Aggregate(ctx context.Context, pipeline any, opts *AggregateOptions) (*Cursor, error) {
	raw, err := bsonconv.ToPipeline(pipeline)
	if err != nil {
		return nil, err
	}

	pc := &stages.Context{
		Now:     types.NewDateTime(time.Now()),
		Catalog: c.catalog,
		Lookups: storage.NewLookupCache(),
		Logger:  c.log,
		Metrics: c.metrics,
	}

	p, err := stages.Compile(raw, pc)
	if err != nil {
		return nil, err
	}

	source, err := c.col.Scan()
	if err != nil {
		return nil, err
	}

	out, err := p.Run(ctx, source)
	if err != nil {
		return nil, err
	}

	docs, err := iterator.ConsumeValues[struct{}, *types.Document](out)
	if err != nil {
		return nil, err
	}

	cur := NewCursor(docs)

	if opts != nil && opts.BatchSize != nil {
		_ = *opts.BatchSize // advisory only: the whole result is already materialized
	}

	return cur, nil
}

// UpdateResult is the result of UpdateOne / UpdateMany / ReplaceOne.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// UpdateOne applies update (either a replacement document, or a
// bson.D/bson.M of the form {$set: {...}, $unset: {...}}) to the first
// document matching filter.
func (c *Collection) UpdateOne(_ context.Context, filter, update any) (UpdateResult, error) {
	return c.update(filter, update, false)
}

// UpdateMany applies update to every document matching filter.
func (c *Collection) UpdateMany(_ context.Context, filter, update any) (UpdateResult, error) {
	return c.update(filter, update, true)
}

func (c *Collection) update(filter, update any, many bool) (UpdateResult, error) {
	targets, err := c.matched(filter)
	if err != nil {
		return UpdateResult{}, err
	}

	if !many && len(targets) > 1 {
		targets = targets[:1]
	}

	updateDoc, err := bsonconv.ToDocument(update)
	if err != nil {
		return UpdateResult{}, err
	}

	res := UpdateResult{MatchedCount: int64(len(targets))}

	for _, doc := range targets {
		id, _ := doc.Get("_id")

		next, err := applyUpdate(doc, updateDoc)
		if err != nil {
			return res, err
		}

		if err := c.col.Replace(id, next); err != nil {
			return res, err
		}

		res.ModifiedCount++
	}

	return res, nil
}

// applyUpdate interprets updateDoc as an update-operator document if
// every top-level key starts with '$' (currently $set and $unset are
// understood), otherwise as a full replacement document.
func applyUpdate(doc, updateDoc *types.Document) (*types.Document, error) {
	isOperatorDoc := updateDoc.Len() > 0

	for _, k := range updateDoc.Keys() {
		if len(k) == 0 || k[0] != '$' {
			isOperatorDoc = false
			break
		}
	}

	if !isOperatorDoc {
		replacement := updateDoc.DeepCopy()
		if id, ok := doc.Get("_id"); ok {
			replacement.Set("_id", id)
		}

		return replacement, nil
	}

	next := doc.DeepCopy()

	for _, op := range updateDoc.Keys() {
		argRaw, _ := updateDoc.Get(op)

		argDoc, ok := argRaw.(*types.Document)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "update operator %q requires a document argument", op)
		}

		switch op {
		case "$set":
			for _, f := range argDoc.Keys() {
				v, _ := argDoc.Get(f)
				next.Set(f, v)
			}
		case "$unset":
			for _, f := range argDoc.Keys() {
				next.Remove(f)
			}
		default:
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "unsupported update operator %q", op)
		}
	}

	return next, nil
}

// ReplaceOne replaces the first document matching filter with replacement.
func (c *Collection) ReplaceOne(_ context.Context, filter, replacement any) (UpdateResult, error) {
	targets, err := c.matched(filter)
	if err != nil {
		return UpdateResult{}, err
	}

	if len(targets) == 0 {
		return UpdateResult{}, nil
	}

	replDoc, err := bsonconv.ToDocument(replacement)
	if err != nil {
		return UpdateResult{}, err
	}

	id, _ := targets[0].Get("_id")

	if err := c.col.Replace(id, replDoc); err != nil {
		return UpdateResult{}, err
	}

	return UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

// DeleteResult is the result of DeleteOne / DeleteMany.
type DeleteResult struct {
	DeletedCount int64
}

// DeleteOne removes the first document matching filter. The
// Collaborator interface has no direct delete primitive (§6 lists only
// scan/findByKey/replace/insert/bulkReplace), so deletion is expressed
// as a read-all / filter-out / BulkReplace, consistent with $out's use
// of the same primitive for whole-collection replacement.
func (c *Collection) DeleteOne(ctx context.Context, filter any) (DeleteResult, error) {
	return c.delete(ctx, filter, false)
}

// DeleteMany removes every document matching filter.
func (c *Collection) DeleteMany(ctx context.Context, filter any) (DeleteResult, error) {
	return c.delete(ctx, filter, true)
}

func (c *Collection) delete(_ context.Context, filter any, many bool) (DeleteResult, error) {
	targets, err := c.matched(filter)
	if err != nil {
		return DeleteResult{}, err
	}

	if !many && len(targets) > 1 {
		targets = targets[:1]
	}

	toDelete := make(map[*types.Document]bool, len(targets))
	for _, d := range targets {
		toDelete[d] = true
	}

	iter, err := c.col.Scan()
	if err != nil {
		return DeleteResult{}, err
	}

	all, err := iterator.ConsumeValues[struct{}, *types.Document](iter)
	if err != nil {
		return DeleteResult{}, err
	}

	kept := make([]*types.Document, 0, len(all))
	deleted := int64(0)

	for _, d := range all {
		if matchesAny(d, targets) {
			deleted++
			continue
		}

		kept = append(kept, d)
	}

	if err := c.col.BulkReplace(kept); err != nil {
		return DeleteResult{}, err
	}

	return DeleteResult{DeletedCount: deleted}, nil
}

// matchesAny reports whether d's _id equals any target's _id; used by
// delete since the scanned slice and the matched slice are independent
// deep copies (Collaborator.Scan/FindByKey both copy).
func matchesAny(d *types.Document, targets []*types.Document) bool {
	id, ok := d.Get("_id")
	if !ok {
		return false
	}

	for _, t := range targets {
		tid, ok := t.Get("_id")
		if ok && types.StrictEqual(id, tid) {
			return true
		}
	}

	return false
}

// CountDocuments counts documents matching filter, honoring opts.Skip/Limit.
func (c *Collection) CountDocuments(_ context.Context, filter any, opts *CountOptions) (int64, error) {
	docs, err := c.matched(filter)
	if err != nil {
		return 0, err
	}

	n := int64(len(docs))

	if opts == nil {
		return n, nil
	}

	if opts.Skip != nil {
		n -= *opts.Skip
		if n < 0 {
			n = 0
		}
	}

	if opts.Limit != nil && n > *opts.Limit {
		n = *opts.Limit
	}

	return n, nil
}

// EstimatedDocumentCount returns the collection's total document count
// without applying any filter (the in-memory engine has no separate
// metadata-based estimate to use instead).
func (c *Collection) EstimatedDocumentCount(_ context.Context) (int64, error) {
	return countCollection(c.col)
}

func countCollection(col storage.Collaborator) (int64, error) {
	iter, err := col.Scan()
	if err != nil {
		return 0, err
	}

	docs, err := iterator.ConsumeValues[struct{}, *types.Document](iter)
	if err != nil {
		return 0, err
	}

	return int64(len(docs)), nil
}

// Distinct returns the deduplicated set of values at field across every
// document matching filter.
func (c *Collection) Distinct(_ context.Context, field string, filter any) ([]any, error) {
	docs, err := c.matched(filter)
	if err != nil {
		return nil, err
	}

	path := types.SplitPath(field)

	var out []any

	for _, d := range docs {
		v := types.ResolvePath(d, path)
		if v == types.Missing {
			continue
		}

		dup := false

		for _, existing := range out {
			if types.Compare(existing, v) == types.Equal {
				dup = true
				break
			}
		}

		if !dup {
			out = append(out, v)
		}
	}

	return out, nil
}

// CreateIndex registers spec against this collection's index catalog.
func (c *Collection) CreateIndex(spec storage.IndexSpec) (string, error) {
	c.catalog.Indexes(c.name).Add(spec)
	return spec.Name, nil
}

// CreateIndexes registers every spec in specs.
func (c *Collection) CreateIndexes(specs []storage.IndexSpec) ([]string, error) {
	names := make([]string, len(specs))

	for i, s := range specs {
		name, err := c.CreateIndex(s)
		if err != nil {
			return nil, err
		}

		names[i] = name
	}

	return names, nil
}

// DropIndex removes the named index.
func (c *Collection) DropIndex(name string) error {
	if !c.catalog.Indexes(c.name).Remove(name) {
		return dberrors.NewCommandError(dberrors.CodeBadValue, "index not found with name %q", name)
	}

	return nil
}

// DropIndexes removes every declared index on this collection.
func (c *Collection) DropIndexes() error {
	c.catalog.Indexes(c.name).RemoveAll()
	return nil
}

// Indexes returns every declared index spec.
func (c *Collection) Indexes() []storage.IndexSpec {
	return c.catalog.Indexes(c.name).Specs()
}

// Drop discards the collection's contents (the Collaborator interface
// has no catalog-removal primitive, so dropping empties the collection
// in place rather than unregistering its name).
func (c *Collection) Drop() error {
	return c.col.BulkReplace(nil)
}

// Rename moves this collection to newName within the same database.
func (c *Collection) Rename(newName string) error {
	renamer, ok := c.catalog.(interface{ Rename(old, new string) error })
	if !ok {
		return dberrors.NewCommandError(dberrors.CodeBadValue, "rename is not supported by this catalog")
	}

	if err := renamer.Rename(c.name, newName); err != nil {
		return err
	}

	c.name = newName

	col, err := c.catalog.Collection(newName)
	if err != nil {
		return err
	}

	c.col = col

	return nil
}

// CollectionStats is the result of Collection.Stats.
type CollectionStats struct {
	Name  string
	Count int64
}

// Stats reports coarse collection-level statistics.
func (c *Collection) Stats() (CollectionStats, error) {
	n, err := countCollection(c.col)
	if err != nil {
		return CollectionStats{}, err
	}

	return CollectionStats{Name: c.name, Count: n}, nil
}
