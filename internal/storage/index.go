package storage

import "strings"

// IndexSpec describes one declared index, mirroring the fields named in
// original §6: key pattern entries of 1, -1, "hashed", or "text", plus
// the modifier flags createIndex accepts. The engine only ever reads
// these specs (for $merge.on validation and hint resolution); it never
// maintains the index itself (§1 Non-goals: physical data layout).
type IndexSpec struct {
	Name   string
	Keys   []IndexKey
	Unique bool
	Sparse bool
	Hidden bool

	ExpireAfterSeconds    *int32
	PartialFilterExpr     any
	Collation             any
	WildcardProjection    any
	Weights               map[string]int32
	DefaultLanguage       string
	TextIndexVersion      int32
}

// IndexKey is one field/direction pair of an index's key pattern.
type IndexKey struct {
	Field string
	// Direction is 1, -1, "hashed", or "text".
	Direction any
}

// IndexCatalog satisfies the index-spec queries named in §6: existence
// by name or hint, and the unique-on-field constraint $merge.on != _id
// requires.
type IndexCatalog struct {
	specs []IndexSpec
}

// NewIndexCatalog creates a catalog seeded with specs (the implicit
// unique index on _id is always present and need not be listed).
func NewIndexCatalog(specs ...IndexSpec) *IndexCatalog {
	return &IndexCatalog{specs: specs}
}

// Add registers a new index spec.
func (c *IndexCatalog) Add(spec IndexSpec) {
	c.specs = append(c.specs, spec)
}

// Remove drops the index spec named name, reporting whether one was found.
func (c *IndexCatalog) Remove(name string) bool {
	for i, s := range c.specs {
		if s.Name == name {
			c.specs = append(c.specs[:i], c.specs[i+1:]...)
			return true
		}
	}

	return false
}

// RemoveAll drops every declared index spec (the implicit _id index is
// unaffected since it is never declared here).
func (c *IndexCatalog) RemoveAll() {
	c.specs = nil
}

// Specs returns every declared index spec.
func (c *IndexCatalog) Specs() []IndexSpec {
	return c.specs
}

// ByName finds an index by its exact name.
func (c *IndexCatalog) ByName(name string) (IndexSpec, bool) {
	for _, s := range c.specs {
		if s.Name == name {
			return s, true
		}
	}

	return IndexSpec{}, false
}

// ByHint resolves a createIndexes-style hint: either an index name, or
// the index's key field names joined by "," (e.g. "a,b"); key
// directions are not part of that rendering.
func (c *IndexCatalog) ByHint(hint string) (IndexSpec, bool) {
	if s, ok := c.ByName(hint); ok {
		return s, true
	}

	for _, s := range c.specs {
		if keyPatternString(s.Keys) == hint {
			return s, true
		}
	}

	return IndexSpec{}, false
}

func keyPatternString(keys []IndexKey) string {
	parts := make([]string, len(keys))

	for i, k := range keys {
		parts[i] = k.Field
	}

	return strings.Join(parts, ",")
}

// UniqueOnField reports whether some index (or the implicit _id index)
// enforces uniqueness on exactly the single field name.
func (c *IndexCatalog) UniqueOnField(field string) bool {
	if field == "_id" {
		return true
	}

	for _, s := range c.specs {
		if !s.Unique || len(s.Keys) != 1 {
			continue
		}

		if s.Keys[0].Field == field {
			return true
		}
	}

	return false
}
