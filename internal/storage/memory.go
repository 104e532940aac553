package storage

import (
	"sync"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
	"github.com/docbase/docbase/internal/util/iterator"
)

// Memory is the sole (in-process) Collaborator implementation: a
// insertion-ordered slice of documents guarded by a mutex, with a linear
// scan for key lookups. It favors correctness and simplicity over
// index-backed lookup speed, which is out of scope (§1 Non-goals:
// physical data layout).
type Memory struct {
	mu   sync.RWMutex
	name string
	docs []*types.Document
}

// NewMemory creates an empty in-memory collection named name.
func NewMemory(name string) *Memory {
	return &Memory{name: name}
}

// NewMemoryWithDocs creates an in-memory collection pre-populated with docs.
func NewMemoryWithDocs(name string, docs []*types.Document) *Memory {
	return &Memory{name: name, docs: append([]*types.Document(nil), docs...)}
}

// Name implements Collaborator.
func (m *Memory) Name() string { return m.name }

// Scan implements Collaborator: it snapshots the current slice under
// the read lock and iterates the snapshot, so documents inserted after
// the call are not observed (§5 "read-only snapshot of slice indices").
func (m *Memory) Scan() (DocIter, error) {
	m.mu.RLock()
	snapshot := append([]*types.Document(nil), m.docs...)
	m.mu.RUnlock()

	return iterator.Values[int, *types.Document](iterator.ForSlice(snapshot)), nil
}

// FindByKey looks up a document by its _id field.
func (m *Memory) FindByKey(key any) (*types.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.docs {
		id, ok := d.Get("_id")
		if ok && types.StrictEqual(id, key) {
			return d.DeepCopy(), true, nil
		}
	}

	return nil, false, nil
}

// FindOne returns the first document for which pred returns true, in
// scan order; used for $merge's `on` field other than _id, where no
// dedicated index structure backs the lookup.
func (m *Memory) FindOne(pred func(*types.Document) bool) (*types.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.docs {
		if pred(d) {
			return d.DeepCopy(), true, nil
		}
	}

	return nil, false, nil
}

// Replace overwrites the document whose _id equals key with doc,
// forcing doc's _id to key so the identity of the matched document is
// preserved regardless of what _id the replacement carries (§4.6
// $merge: "preserves the existing _id on matched writes").
func (m *Memory) Replace(key any, doc *types.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, d := range m.docs {
		id, ok := d.Get("_id")
		if ok && types.StrictEqual(id, key) {
			replacement := doc.DeepCopy()
			replacement.Set("_id", key)
			m.docs[i] = replacement

			return nil
		}
	}

	return dberrors.NewCommandError(dberrors.CodeBadValue, "storage.Replace: no document with that key in %q", m.name)
}

// Insert appends doc, assigning a fresh ObjectID as _id if doc has none.
func (m *Memory) Insert(doc *types.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := doc.DeepCopy()

	if _, ok := d.Get("_id"); !ok {
		d.Set("_id", types.NewObjectID())
	}

	m.docs = append(m.docs, d)

	return nil
}

// BulkReplace implements $out's atomic whole-collection replacement.
func (m *Memory) BulkReplace(docs []*types.Document) error {
	replacement := make([]*types.Document, len(docs))

	for i, d := range docs {
		replacement[i] = d.DeepCopy()
	}

	m.mu.Lock()
	m.docs = replacement
	m.mu.Unlock()

	return nil
}

// memoryCatalog is a simple name -> Collaborator registry, the
// reference Catalog implementation used by internal/docdb.
type memoryCatalog struct {
	mu      sync.RWMutex
	cols    map[string]Collaborator
	indexes map[string]*IndexCatalog
}

// NewCatalog returns an empty Catalog backed by in-memory collections,
// created lazily on first reference via EnsureCollection.
func NewCatalog() Catalog {
	return &memoryCatalog{cols: make(map[string]Collaborator), indexes: make(map[string]*IndexCatalog)}
}

// Collection implements Catalog.
func (c *memoryCatalog) Collection(name string) (Collaborator, error) {
	c.mu.RLock()
	col, ok := c.cols[name]
	c.mu.RUnlock()

	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeNamespaceNotFound, "namespace not found: %s", name)
	}

	return col, nil
}

// Names returns every collection name registered in this catalog, used
// by internal/docdb.Database.ListCollections.
func (c *memoryCatalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.cols))
	for name := range c.cols {
		names = append(names, name)
	}

	return names
}

// Rename moves the collection registered as oldName to newName,
// carrying its documents and declared indexes along with it. Used by
// internal/docdb.Collection.Rename.
func (c *memoryCatalog) Rename(oldName, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	col, ok := c.cols[oldName]
	if !ok {
		return dberrors.NewCommandError(dberrors.CodeNamespaceNotFound, "namespace not found: %s", oldName)
	}

	if _, exists := c.cols[newName]; exists {
		return dberrors.NewCommandError(dberrors.CodeNamespaceExists, "target namespace exists: %s", newName)
	}

	delete(c.cols, oldName)
	c.cols[newName] = col

	if idx, ok := c.indexes[oldName]; ok {
		delete(c.indexes, oldName)
		c.indexes[newName] = idx
	}

	return nil
}

// Indexes implements Catalog: collections with no declared indexes
// still get an empty (non-nil) IndexCatalog, so UniqueOnField("_id")
// still reports true via its implicit-index rule.
func (c *memoryCatalog) Indexes(name string) *IndexCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.indexes[name]
	if !ok {
		idx = NewIndexCatalog()
		c.indexes[name] = idx
	}

	return idx
}

// EnsureCollection returns the named collection, creating an empty
// in-memory one on first reference.
func EnsureCollection(cat Catalog, name string) Collaborator {
	mc, ok := cat.(*memoryCatalog)
	if !ok {
		col, err := cat.Collection(name)
		if err == nil {
			return col
		}

		return NewMemory(name)
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if col, ok := mc.cols[name]; ok {
		return col
	}

	col := NewMemory(name)
	mc.cols[name] = col

	return col
}
