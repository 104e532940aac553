package types

import (
	"github.com/docbase/docbase/internal/util/iterator"
	"github.com/docbase/docbase/internal/util/lazyerrors"
)

// Array is the Array value tag: an ordered, possibly-empty sequence of Values.
//
// The zero value is a valid, empty Array.
type Array struct {
	s []any
}

// NewArray creates an Array from the given elements.
func NewArray(values ...any) (*Array, error) {
	return &Array{s: values}, nil
}

// MakeArray creates an empty Array with the given capacity hint.
func MakeArray(cap int) *Array {
	if cap <= 0 {
		return new(Array)
	}

	return &Array{s: make([]any, 0, cap)}
}

// Len returns the number of elements; nil-safe.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}

	return len(a.s)
}

// Get returns the element at index i.
func (a *Array) Get(i int) (any, error) {
	if a == nil || i < 0 || i >= len(a.s) {
		return nil, lazyerrors.Errorf("types.Array.Get: index %d out of range", i)
	}

	return a.s[i], nil
}

// Set replaces the element at index i.
func (a *Array) Set(i int, v any) error {
	if a == nil || i < 0 || i >= len(a.s) {
		return lazyerrors.Errorf("types.Array.Set: index %d out of range", i)
	}

	a.s[i] = v

	return nil
}

// Append adds values to the end of the array.
func (a *Array) Append(values ...any) error {
	a.s = append(a.s, values...)
	return nil
}

// Subslice returns a new Array sharing no backing storage with a, for
// elements [from, to).
func (a *Array) Subslice(from, to int) *Array {
	if a == nil || from >= to {
		return new(Array)
	}

	if from < 0 {
		from = 0
	}

	if to > len(a.s) {
		to = len(a.s)
	}

	cp := make([]any, to-from)
	copy(cp, a.s[from:to])

	return &Array{s: cp}
}

// DeepCopy returns a recursive copy of a.
func (a *Array) DeepCopy() *Array {
	if a == nil {
		return nil
	}

	cp := make([]any, len(a.s))
	for i, v := range a.s {
		cp[i] = deepCopy(v)
	}

	return &Array{s: cp}
}

// Slice returns the elements as a plain Go slice; callers must not mutate it.
func (a *Array) Slice() []any {
	if a == nil {
		return nil
	}

	return a.s
}

// arrayIterator adapts Array to iterator.Interface[int, any].
type arrayIterator struct {
	arr *Array
	i   int
}

// Iterator returns a fresh iterator over a's elements.
func (a *Array) Iterator() iterator.Interface[int, any] {
	return &arrayIterator{arr: a}
}

// Next implements iterator.Interface.
func (it *arrayIterator) Next() (int, any, error) {
	if it.arr == nil || it.i >= len(it.arr.s) {
		return 0, nil, iterator.ErrIteratorDone
	}

	v := it.arr.s[it.i]
	i := it.i
	it.i++

	return i, v, nil
}

// Close implements iterator.Interface.
func (it *arrayIterator) Close() {
	it.arr = nil
}
