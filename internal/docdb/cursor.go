package docdb

import (
	"sort"

	"github.com/docbase/docbase/internal/types"
)

// Cursor is a client-side result set, analogous to a mongo.Cursor.
// Unlike the Pipeline Runtime's pull iterators, a Cursor's documents
// are already fully materialized by the time one is returned (Find and
// Aggregate both drain their result before constructing a Cursor), so
// Sort/Limit/Skip/Hint here just reorder or trim that materialized
// slice rather than influence execution.
type Cursor struct {
	docs []*types.Document
	pos  int

	// hint records the index name/key-pattern the caller asked for, for
	// Stats/diagnostics only -- the in-memory engine never uses it to
	// choose an access path (§1 Non-goals: physical data layout).
	hint string
}

// NewCursor wraps an already-materialized document slice.
func NewCursor(docs []*types.Document) *Cursor {
	return &Cursor{docs: docs}
}

// Next advances the cursor and returns the next document, or (nil,
// false) once exhausted.
func (c *Cursor) Next() (*types.Document, bool) {
	if c.pos >= len(c.docs) {
		return nil, false
	}

	d := c.docs[c.pos]
	c.pos++

	return d, true
}

// All drains the remaining documents (toArray).
func (c *Cursor) All() []*types.Document {
	rest := c.docs[c.pos:]
	c.pos = len(c.docs)

	return rest
}

// Sort reorders the remaining documents by keys, following the same
// ascending/descending convention as the $sort stage.
func (c *Cursor) Sort(keys []SortKey) *Cursor {
	rest := c.docs[c.pos:]

	sort.SliceStable(rest, func(i, j int) bool {
		for _, k := range keys {
			a := types.ResolvePath(rest[i], k.Path)
			b := types.ResolvePath(rest[j], k.Path)

			cmp := types.Compare(a, b)
			if cmp == types.Equal {
				continue
			}

			if k.Descending {
				return cmp == types.Greater
			}

			return cmp == types.Less
		}

		return false
	})

	return c
}

// SortKey is one field/direction pair for Cursor.Sort.
type SortKey struct {
	Path       []string
	Descending bool
}

// Limit trims the remaining documents to at most n.
func (c *Cursor) Limit(n int64) *Cursor {
	rest := c.docs[c.pos:]
	if int64(len(rest)) > n {
		rest = rest[:n]
	}

	c.docs = append(c.docs[:c.pos], rest...)

	return c
}

// Skip drops the first n remaining documents.
func (c *Cursor) Skip(n int64) *Cursor {
	if int64(len(c.docs)-c.pos) < n {
		c.pos = len(c.docs)
		return c
	}

	c.pos += int(n)

	return c
}

// Hint records the index name/key-pattern the caller prefers; see the
// hint field doc comment for why this is advisory only.
func (c *Cursor) Hint(hint string) *Cursor {
	c.hint = hint
	return c
}
