// Package storage implements the Storage Collaborator (§6): the
// black-box interface the Pipeline Runtime calls into for its source
// scan and for $lookup/$unionWith/$merge/$out, plus a concrete
// in-memory implementation so pipelines are runnable end to end.
package storage

import (
	"github.com/docbase/docbase/internal/types"
	"github.com/docbase/docbase/internal/util/iterator"
)

// DocIter is a pull iterator over documents; the same alias is used by
// internal/stages so a Collaborator's Scan result can be consumed
// directly as a pipeline source without adaptation.
type DocIter = iterator.Interface[struct{}, *types.Document]

// Collaborator is the storage interface named in §6: scan, findByKey,
// replace, insert, bulkReplace. The engine never mutates a collection
// by any other path.
type Collaborator interface {
	// Scan returns a read-only snapshot iterator over the collection's
	// documents as of the call; documents inserted during the scan are
	// not observed.
	Scan() (DocIter, error)

	// FindByKey looks up a single document by its _id value. ok is
	// false if no document has that key.
	FindByKey(key any) (doc *types.Document, ok bool, err error)

	// Replace overwrites the document identified by key with doc,
	// preserving key's identity regardless of doc's own _id.
	Replace(key any, doc *types.Document) error

	// Insert appends doc as a new document.
	Insert(doc *types.Document) error

	// BulkReplace atomically discards the collection's entire contents
	// and replaces them with docs, used by $out.
	BulkReplace(docs []*types.Document) error

	// Name returns the collection's name, for error messages.
	Name() string
}

// Catalog resolves collection names to Collaborators, used by stages
// that reference a foreign collection ($lookup.from, $unionWith.coll,
// $merge.into, $out).
type Catalog interface {
	Collection(name string) (Collaborator, error)

	// Indexes returns the declared IndexCatalog for name, used by
	// $merge to validate that `on != _id` is backed by a unique index
	// (§6 "index catalog (interface only)"). Collections with no
	// declared indexes still satisfy this -- the implicit _id index is
	// always honored by IndexCatalog.UniqueOnField.
	Indexes(name string) *IndexCatalog
}
