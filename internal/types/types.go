// Package types implements the engine's Value Model: a self-describing,
// tagged-union document/value type, its total comparison order, its
// truthiness rule, and its external type tags.
//
// A Value is represented as a Go `any` holding one of a closed set of
// concrete types (see rank in this file for the full list). The
// null/missing distinction is semantically load-bearing and is never
// collapsed into a single "absent" sentinel: Missing means a field path
// did not resolve to anything, Null means a field is explicitly present
// with a null value.
package types

import "fmt"

// NullType is the type of the Null value. There is exactly one value of
// this type, the package-level Null variable.
type NullType struct{}

// Null is the singleton representing a document field explicitly set to null.
var Null = NullType{}

// MissingType is the type of the Missing value. There is exactly one
// value of this type, the package-level Missing variable.
//
// Missing is distinct from Null: it represents the result of resolving a
// field path that does not exist, never a value actually stored in a
// document.
type MissingType struct{}

// Missing is the singleton representing the absence of a field.
var Missing = MissingType{}

// CompareResult is the result of comparing two values, or two keys for sorting.
type CompareResult int

const (
	// Equal means a == b.
	Equal CompareResult = iota
	// Less means a < b.
	Less
	// Greater means a > b.
	Greater
	// Incomparable is returned by internal helpers that should never leak
	// to a caller; [Compare] never returns it.
	Incomparable
)

// String returns a human-readable representation, for use in test failure messages.
func (r CompareResult) String() string {
	switch r {
	case Equal:
		return "Equal"
	case Less:
		return "Less"
	case Greater:
		return "Greater"
	case Incomparable:
		return "Incomparable"
	default:
		return fmt.Sprintf("CompareResult(%d)", int(r))
	}
}

// rank orders the ten value tags per the Value Model's total order.
// Numbers of any Go numeric subtype share a single rank; they compare by
// numerical value regardless of which subtype they hold.
func rank(v any) int {
	switch v.(type) {
	case MissingType, nil:
		return 0
	case NullType:
		return 1
	case float64, int32, int64:
		return 2
	case string:
		return 3
	case *Document:
		return 4
	case *Array:
		return 5
	case Binary:
		return 6
	case bool:
		return 7
	case DateTime:
		return 8
	case Regex:
		return 9
	case ObjectID:
		// ObjectIDs sort alongside binary data in the external BSON order;
		// the aggregation Value Model does not distinguish them further.
		return 6
	default:
		panic(fmt.Sprintf("types.rank: unsupported type %T", v))
	}
}

// TypeName returns the external type name used by the $type operator and
// by $convert's "to"/"onError" bookkeeping.
func TypeName(v any) string {
	switch v := v.(type) {
	case MissingType:
		return "missing"
	case NullType:
		return "null"
	case float64:
		return "double"
	case int32:
		return "int"
	case int64:
		return "long"
	case string:
		return "string"
	case *Document:
		return "object"
	case *Array:
		return "array"
	case Binary:
		return "binData"
	case bool:
		return "bool"
	case DateTime:
		return "date"
	case Regex:
		return "regex"
	case ObjectID:
		return "objectId"
	default:
		panic(fmt.Sprintf("types.TypeName: unsupported type %T", v))
	}
}

// IsNumber reports whether v is one of the numeric subtypes (double, int, long).
func IsNumber(v any) bool {
	switch v.(type) {
	case float64, int32, int64:
		return true
	default:
		return false
	}
}

// Truthy implements the engine's truthiness rule, used by $and, $or, $not,
// $cond, $switch, $allElementsTrue, and $anyElementTrue.
//
// Falsy: Null, Missing, Bool false, and numeric zero of any subtype.
// Everything else -- including an empty string and an empty array -- is truthy.
func Truthy(v any) bool {
	switch v := v.(type) {
	case NullType, MissingType, nil:
		return false
	case bool:
		return v
	case int32:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return true
	}
}
