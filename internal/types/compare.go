package types

import "math"

// Compare implements the Value Model's total order (§3): distinct tags
// compare by rank; within a tag, by the rules below. This is the order
// used by $sort, $cmp, $gt/$gte/$lt/$lte, and sort keys in general.
//
// NaN compares equal to NaN here (so that a sort is stable and total);
// $eq does not use Compare for this reason -- see StrictEqual.
func Compare(a, b any) CompareResult {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return Less
		}

		return Greater
	}

	switch ra {
	case 0, 1: // Missing, Null: all values of a single-member tag are equal
		return Equal
	case 2:
		return compareNumbers(a, b)
	case 3:
		return compareOrdered(a.(string), b.(string))
	case 4:
		return compareDocuments(a.(*Document), b.(*Document))
	case 5:
		return compareArrays(a.(*Array), b.(*Array))
	case 6:
		return compareBinaryLike(a, b)
	case 7:
		return compareOrdered(boolRank(a.(bool)), boolRank(b.(bool)))
	case 8:
		return compareOrdered(int64(a.(DateTime)), int64(b.(DateTime)))
	case 9:
		ra, rb := a.(Regex), b.(Regex)
		if c := compareOrdered(ra.Pattern, rb.Pattern); c != Equal {
			return c
		}

		return compareOrdered(ra.Options, rb.Options)
	default:
		return Equal
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}

	return 0
}

func compareBinaryLike(a, b any) CompareResult {
	ab, aIsBin := a.(Binary)
	bb, bIsBin := b.(Binary)

	if aIsBin && bIsBin {
		return ab.Compare(bb)
	}

	// ObjectID vs ObjectID, or ObjectID vs Binary: compare raw bytes.
	aBytes := toBytes(a)
	bBytes := toBytes(b)

	for i := 0; i < len(aBytes) && i < len(bBytes); i++ {
		if aBytes[i] != bBytes[i] {
			if aBytes[i] < bBytes[i] {
				return Less
			}

			return Greater
		}
	}

	return compareOrdered(len(aBytes), len(bBytes))
}

func toBytes(v any) []byte {
	switch v := v.(type) {
	case Binary:
		return v.B
	case ObjectID:
		return v[:]
	default:
		return nil
	}
}

// compareOrdered compares two Go-ordered values of the same underlying type.
func compareOrdered[T int | int64 | float64 | string](a, b T) CompareResult {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

// compareNumbers compares the three numeric subtypes by numerical value;
// NaN is considered equal to NaN (see [Compare]'s doc comment) and
// greater than every other number (so it sorts to one end consistently).
func compareNumbers(a, b any) CompareResult {
	af, aIsFloat := a.(float64)
	bf, bIsFloat := b.(float64)

	if aIsFloat && math.IsNaN(af) {
		if bIsFloat && math.IsNaN(bf) {
			return Equal
		}

		return Greater
	}

	if bIsFloat && math.IsNaN(bf) {
		return Less
	}

	// prefer exact integer comparison when both operands are integers
	ai, aIsInt := asInt64(a)
	bi, bIsInt := asInt64(b)

	if aIsInt && bIsInt {
		return compareOrdered(ai, bi)
	}

	return compareOrdered(asFloat64(a), asFloat64(b))
}

func asInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

func asFloat64(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return math.NaN()
	}
}

func compareArrays(a, b *Array) CompareResult {
	la, lb := a.Len(), b.Len()

	n := la
	if lb < n {
		n = lb
	}

	for i := 0; i < n; i++ {
		av, _ := a.Get(i)
		bv, _ := b.Get(i)

		if c := Compare(av, bv); c != Equal {
			return c
		}
	}

	return compareOrdered(la, lb)
}

func compareDocuments(a, b *Document) CompareResult {
	n := a.Len()
	if b.Len() < n {
		n = b.Len()
	}

	ak, av := a.Keys(), a.Values()
	bk, bv := b.Keys(), b.Values()

	for i := 0; i < n; i++ {
		if c := compareOrdered(ak[i], bk[i]); c != Equal {
			return c
		}

		if c := Compare(av[i], bv[i]); c != Equal {
			return c
		}
	}

	return compareOrdered(a.Len(), b.Len())
}

// StrictEqual implements strict equality with no type coercion, as used
// by $eq and $in/$nin membership tests. Unlike [Compare], NaN is never
// equal to anything, including another NaN.
func StrictEqual(a, b any) bool {
	if af, ok := a.(float64); ok && math.IsNaN(af) {
		return false
	}

	if bf, ok := b.(float64); ok && math.IsNaN(bf) {
		return false
	}

	return Compare(a, b) == Equal
}
