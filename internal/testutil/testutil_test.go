package testutil

import (
	"testing"

	"github.com/docbase/docbase/internal/types"
)

func doc(pairs ...any) *types.Document {
	d := types.MakeDocument(len(pairs) / 2)
	for i := 0; i < len(pairs); i += 2 {
		d.Set(pairs[i].(string), pairs[i+1])
	}

	return d
}

func TestAssertEqualDocumentsMatch(t *testing.T) {
	a := doc("x", int32(1), "y", "hello")
	b := doc("x", int32(1), "y", "hello")

	if !AssertEqualDocuments(t, a, b) {
		t.Fatal("expected documents to compare equal")
	}
}

func TestAssertEqualDocumentsMismatch(t *testing.T) {
	a := doc("x", int32(1))
	b := doc("x", int32(2))

	rec := &testing.T{}

	if AssertEqualDocuments(rec, a, b) {
		t.Fatal("expected mismatch to be reported")
	}
}

func TestAssertEqualDocumentSlices(t *testing.T) {
	expected := []*types.Document{doc("x", int32(1)), doc("x", int32(2))}
	actual := []*types.Document{doc("x", int32(1)), doc("x", int32(2))}

	if !AssertEqualDocumentSlices(t, expected, actual) {
		t.Fatal("expected slices to compare equal")
	}
}

func TestIndentRendersNestedShape(t *testing.T) {
	arr := types.MakeArray(2)
	_ = arr.Append(int32(1), int32(2))

	d := doc("a", int32(1), "b", arr)

	out := Indent(d)
	if out == "" {
		t.Fatal("expected non-empty rendering")
	}
}
