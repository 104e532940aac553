package types

import (
	"github.com/docbase/docbase/internal/util/iterator"
	"github.com/docbase/docbase/internal/util/lazyerrors"
)

// field is one name/value pair of a Document, keeping insertion order.
type field struct {
	name  string
	value any
}

// Document is the Object value tag: an ordered mapping of field name to
// Value, insertion order preserved, duplicate field names forbidden.
//
// The zero value is not useful; construct with NewDocument or MakeDocument.
type Document struct {
	fields []field
}

// NewDocument creates a Document from alternating name, value pairs.
//
//	doc := must.NotFail(types.NewDocument("name", "ada", "age", int32(36)))
func NewDocument(pairs ...any) (*Document, error) {
	if len(pairs)%2 != 0 {
		return nil, lazyerrors.Errorf("types.NewDocument: odd number of arguments: %d", len(pairs))
	}

	doc := MakeDocument(len(pairs) / 2)

	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return nil, lazyerrors.Errorf("types.NewDocument: field name must be a string, got %T", pairs[i])
		}

		if err := doc.Add(name, pairs[i+1]); err != nil {
			return nil, lazyerrors.Error(err)
		}
	}

	return doc, nil
}

// MakeDocument creates an empty Document with the given field capacity hint.
func MakeDocument(cap int) *Document {
	if cap < 0 {
		cap = 0
	}

	return &Document{fields: make([]field, 0, cap)}
}

// Add appends a new field, returning an error if the name is already present.
func (d *Document) Add(name string, value any) error {
	if d.Has(name) {
		return lazyerrors.Errorf("types.Document.Add: duplicate field %q", name)
	}

	d.fields = append(d.fields, field{name: name, value: value})

	return nil
}

// Set sets the value of name, appending it if not already present, and
// preserving the position of an existing field.
func (d *Document) Set(name string, value any) {
	for i := range d.fields {
		if d.fields[i].name == name {
			d.fields[i].value = value
			return
		}
	}

	d.fields = append(d.fields, field{name: name, value: value})
}

// Remove deletes the field named name, if present.
func (d *Document) Remove(name string) {
	for i := range d.fields {
		if d.fields[i].name == name {
			d.fields = append(d.fields[:i], d.fields[i+1:]...)
			return
		}
	}
}

// Has reports whether a field named name is present.
func (d *Document) Has(name string) bool {
	if d == nil {
		return false
	}

	for _, f := range d.fields {
		if f.name == name {
			return true
		}
	}

	return false
}

// Get returns the value of field name and whether it was present. A
// present field holding types.Null is returned as (Null, true); an
// absent field is returned as (Missing, false).
func (d *Document) Get(name string) (any, bool) {
	if d == nil {
		return Missing, false
	}

	for _, f := range d.fields {
		if f.name == name {
			return f.value, true
		}
	}

	return Missing, false
}

// GetOrMissing is Get without the presence flag, for callers that treat
// Missing as the sentinel.
func (d *Document) GetOrMissing(name string) any {
	v, _ := d.Get(name)
	return v
}

// Len returns the number of fields.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}

	return len(d.fields)
}

// Keys returns the field names in insertion order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}

	keys := make([]string, len(d.fields))
	for i, f := range d.fields {
		keys[i] = f.name
	}

	return keys
}

// Values returns the field values in insertion order.
func (d *Document) Values() []any {
	if d == nil {
		return nil
	}

	values := make([]any, len(d.fields))
	for i, f := range d.fields {
		values[i] = f.value
	}

	return values
}

// DeepCopy returns a recursive copy of d; nested Documents and Arrays are copied too.
func (d *Document) DeepCopy() *Document {
	if d == nil {
		return nil
	}

	cp := MakeDocument(len(d.fields))
	for _, f := range d.fields {
		cp.fields = append(cp.fields, field{name: f.name, value: deepCopy(f.value)})
	}

	return cp
}

func deepCopy(v any) any {
	switch v := v.(type) {
	case *Document:
		return v.DeepCopy()
	case *Array:
		return v.DeepCopy()
	case Binary:
		b := make([]byte, len(v.B))
		copy(b, v.B)

		return Binary{Subtype: v.Subtype, B: b}
	default:
		return v
	}
}

// documentIterator adapts Document to iterator.Interface[string, any].
type documentIterator struct {
	doc *Document
	i   int
}

// Iterator returns a fresh iterator over d's fields, in insertion order.
func (d *Document) Iterator() iterator.Interface[string, any] {
	return &documentIterator{doc: d}
}

// Next implements iterator.Interface.
func (it *documentIterator) Next() (string, any, error) {
	if it.doc == nil || it.i >= len(it.doc.fields) {
		return "", nil, iterator.ErrIteratorDone
	}

	f := it.doc.fields[it.i]
	it.i++

	return f.name, f.value, nil
}

// Close implements iterator.Interface.
func (it *documentIterator) Close() {
	it.doc = nil
}
