// Package bsonconv converts between go.mongodb.org/mongo-driver's wire
// literal types (bson.D, bson.M, bson.A, primitive.ObjectID, …) and the
// engine's internal Value Model (internal/types). This is the only
// package in the module that imports mongo-driver/bson; every other
// package speaks the internal types directly.
package bsonconv

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/docbase/docbase/internal/types"
)

// ToValue converts a bson.D/bson.M/bson.A or scalar wire literal into
// the internal Value Model. Unordered bson.M is accepted for caller
// convenience, but the resulting Document's key order is then whatever
// Go's map iteration yields -- callers that care about projection/sort
// key order should use bson.D.
func ToValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return types.Null, nil

	case bson.D:
		return docFromD(x)
	case bson.M:
		return docFromM(x)
	case bson.A:
		return arrFromA(x)
	case []any:
		return arrFromA(bson.A(x))

	case primitive.ObjectID:
		return types.ObjectID(x), nil
	case primitive.Regex:
		return types.Regex{Pattern: x.Pattern, Options: x.Options}, nil
	case primitive.DateTime:
		return types.NewDateTime(x.Time()), nil
	case primitive.Binary:
		return types.Binary{Subtype: x.Subtype, B: x.Data}, nil
	case primitive.Null:
		return types.Null, nil

	case float64, string, bool, int32, int64:
		return x, nil
	case int:
		return int64(x), nil

	default:
		return nil, fmt.Errorf("bsonconv: unsupported BSON value of type %T", v)
	}
}

func docFromD(d bson.D) (*types.Document, error) {
	doc := types.MakeDocument(len(d))

	for _, e := range d {
		v, err := ToValue(e.Value)
		if err != nil {
			return nil, err
		}

		if err := doc.Add(e.Key, v); err != nil {
			return nil, fmt.Errorf("bsonconv: %w", err)
		}
	}

	return doc, nil
}

func docFromM(m bson.M) (*types.Document, error) {
	doc := types.MakeDocument(len(m))

	for k, raw := range m {
		v, err := ToValue(raw)
		if err != nil {
			return nil, err
		}

		if err := doc.Add(k, v); err != nil {
			return nil, fmt.Errorf("bsonconv: %w", err)
		}
	}

	return doc, nil
}

func arrFromA(a bson.A) (*types.Array, error) {
	arr := types.MakeArray(len(a))

	for _, raw := range a {
		v, err := ToValue(raw)
		if err != nil {
			return nil, err
		}

		if err := arr.Append(v); err != nil {
			return nil, fmt.Errorf("bsonconv: %w", err)
		}
	}

	return arr, nil
}

// FromValue converts an internal Value Model value back into a
// bson.D/bson.A/scalar wire literal suitable for marshaling with
// go.mongodb.org/mongo-driver/bson.
func FromValue(v any) (any, error) {
	switch x := v.(type) {
	case types.NullType:
		return primitive.Null{}, nil
	case types.MissingType:
		return nil, nil

	case *types.Document:
		return dFromDoc(x)
	case *types.Array:
		return aFromArr(x)

	case types.ObjectID:
		return primitive.ObjectID(x), nil
	case types.Regex:
		return primitive.Regex{Pattern: x.Pattern, Options: x.Options}, nil
	case types.DateTime:
		return primitive.NewDateTimeFromTime(x.Time()), nil
	case types.Binary:
		return primitive.Binary{Subtype: x.Subtype, Data: x.B}, nil

	case float64, string, bool, int32, int64:
		return x, nil

	default:
		return nil, fmt.Errorf("bsonconv: unsupported internal value of type %T", v)
	}
}

func dFromDoc(doc *types.Document) (bson.D, error) {
	d := make(bson.D, 0, doc.Len())

	for _, k := range doc.Keys() {
		raw, _ := doc.Get(k)

		v, err := FromValue(raw)
		if err != nil {
			return nil, err
		}

		d = append(d, bson.E{Key: k, Value: v})
	}

	return d, nil
}

func aFromArr(arr *types.Array) (bson.A, error) {
	a := make(bson.A, 0, arr.Len())

	for _, raw := range arr.Slice() {
		v, err := FromValue(raw)
		if err != nil {
			return nil, err
		}

		a = append(a, v)
	}

	return a, nil
}

// ToDocument is a convenience wrapper over ToValue for the common case
// of converting a top-level bson.D/bson.M filter or command document.
func ToDocument(v any) (*types.Document, error) {
	converted, err := ToValue(v)
	if err != nil {
		return nil, err
	}

	doc, ok := converted.(*types.Document)
	if !ok {
		return nil, fmt.Errorf("bsonconv: expected a document, got %T", converted)
	}

	return doc, nil
}

// ToPipeline converts a bson.A (or []bson.D) aggregation pipeline
// literal into the internal *types.Array the Pipeline Runtime compiles.
func ToPipeline(stages any) (*types.Array, error) {
	switch x := stages.(type) {
	case bson.A:
		return arrFromA(x)
	case []bson.D:
		a := make(bson.A, len(x))
		for i, d := range x {
			a[i] = d
		}

		return arrFromA(a)
	default:
		converted, err := ToValue(stages)
		if err != nil {
			return nil, err
		}

		arr, ok := converted.(*types.Array)
		if !ok {
			return nil, fmt.Errorf("bsonconv: expected a pipeline array, got %T", stages)
		}

		return arr, nil
	}
}
