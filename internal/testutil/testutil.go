// Package testutil provides shared test helpers: document equality
// assertions with a unified diff on mismatch, grounded on FerretDB's own
// use of github.com/pmezard/go-difflib for diagnostic wire-level diffs
// (internal/clientconn/conn.go, internal/handler/middleware/middleware.go).
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/types"
)

// AssertEqualDocuments fails the test with a unified diff of the two
// documents' indented forms if they are not equal, rather than testify's
// default one-line mismatch message -- useful once documents grow beyond
// a handful of fields, where spotting the differing key by eye is slow.
func AssertEqualDocuments(t testing.TB, expected, actual *types.Document) bool {
	t.Helper()

	if docsEqual(expected, actual) {
		return true
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(Indent(expected)),
		FromFile: "expected",
		B:        difflib.SplitLines(Indent(actual)),
		ToFile:   "actual",
		Context:  2,
	})
	if err != nil {
		t.Fatalf("documents don't match (diff failed: %s)", err)
		return false
	}

	t.Errorf("documents don't match:\n%s", diff)

	return false
}

// RequireEqualDocuments is AssertEqualDocuments but stops the test
// immediately on mismatch.
func RequireEqualDocuments(t testing.TB, expected, actual *types.Document) {
	t.Helper()

	if !AssertEqualDocuments(t, expected, actual) {
		t.FailNow()
	}
}

// AssertEqualDocumentSlices compares two ordered slices of documents,
// reporting a length mismatch first and then diffing element-by-element.
func AssertEqualDocumentSlices(t testing.TB, expected, actual []*types.Document) bool {
	t.Helper()

	if !assert.Equal(t, len(expected), len(actual), "document slice length mismatch") {
		return false
	}

	ok := true

	for i := range expected {
		if !AssertEqualDocuments(t, expected[i], actual[i]) {
			ok = false
		}
	}

	return ok
}

// RequireNoError is a thin require.NoError wrapper kept for parity with
// the rest of the suite's require-first style; call sites that want a
// custom failure message should call require.NoError directly instead.
func RequireNoError(t testing.TB, err error) {
	t.Helper()
	require.NoError(t, err)
}

func docsEqual(a, b *types.Document) bool {
	return types.StrictEqual(a, b)
}

// Indent renders v as an indented, deterministic (insertion-order) text form
// for diffing -- not a wire format, just a readable debug rendering.
func Indent(v any) string {
	var sb strings.Builder
	writeIndent(&sb, v, 0)

	return sb.String()
}

func writeIndent(sb *strings.Builder, v any, depth int) {
	pad := strings.Repeat("  ", depth)

	switch val := v.(type) {
	case *types.Document:
		sb.WriteString("{\n")

		for _, k := range val.Keys() {
			fv, _ := val.Get(k)
			fmt.Fprintf(sb, "%s  %s: ", pad, k)
			writeIndent(sb, fv, depth+1)
			sb.WriteString("\n")
		}

		fmt.Fprintf(sb, "%s}", pad)
	case *types.Array:
		sb.WriteString("[\n")

		for _, e := range val.Slice() {
			fmt.Fprintf(sb, "%s  ", pad)
			writeIndent(sb, e, depth+1)
			sb.WriteString("\n")
		}

		fmt.Fprintf(sb, "%s]", pad)
	default:
		fmt.Fprintf(sb, "%#v", val)
	}
}
