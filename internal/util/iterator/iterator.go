// Package iterator provides a generic pull-based iterator interface used
// throughout the engine: document sources, pipeline stages, and the
// storage collaborator's scans all speak this interface so that a
// downstream consumer can pull one (key, value) pair at a time without
// the producer materializing its whole output in memory.
package iterator

import (
	"errors"
	"sync"
)

// ErrIteratorDone is returned by Next when the iterator has no more values.
//
// Once returned, all subsequent calls to Next must also return ErrIteratorDone.
var ErrIteratorDone = errors.New("iterator is done")

// Interface is a generic pull iterator over (key, value) pairs.
//
// Next returns ErrIteratorDone when exhausted. Close must be safe to call
// multiple times and must make any in-flight or future Next call return
// ErrIteratorDone (or a wrapped context error), releasing any buffered state.
type Interface[K, V any] interface {
	Next() (K, V, error)
	Close()
}

// Closer is anything with a Close method; registering a set of Closers
// on a MultiCloser lets a single Close call release all of them.
type Closer interface {
	Close()
}

// MultiCloser closes a set of Closers exactly once each, in the reverse
// order they were registered (innermost/most-downstream stage first is
// registered last and so closed first), guarding against double-close.
type MultiCloser struct {
	mu      sync.Mutex
	closers []Closer
}

// NewMultiCloser returns an empty MultiCloser.
func NewMultiCloser() *MultiCloser {
	return new(MultiCloser)
}

// Add registers c to be closed by a future Close call.
func (mc *MultiCloser) Add(c Closer) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.closers = append(mc.closers, c)
}

// Close closes all registered closers in reverse registration order.
func (mc *MultiCloser) Close() {
	mc.mu.Lock()
	closers := mc.closers
	mc.closers = nil
	mc.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i].Close()
	}
}

// sliceIterator iterates over a slice, yielding (index, value) pairs.
type sliceIterator[V any] struct {
	mu sync.Mutex
	s  []V
	i  int
}

// ForSlice returns an iterator over s, yielding (index, value) pairs in order.
func ForSlice[V any](s []V) Interface[int, V] {
	return &sliceIterator[V]{s: s}
}

// Next implements Interface.
func (iter *sliceIterator[V]) Next() (int, V, error) {
	iter.mu.Lock()
	defer iter.mu.Unlock()

	var zero V

	if iter.s == nil || iter.i >= len(iter.s) {
		return 0, zero, ErrIteratorDone
	}

	v := iter.s[iter.i]
	i := iter.i
	iter.i++

	return i, v, nil
}

// Close implements Interface.
func (iter *sliceIterator[V]) Close() {
	iter.mu.Lock()
	defer iter.mu.Unlock()

	iter.s = nil
}

// valuesIterator adapts an Interface[K, V] to only yield values.
type valuesIterator[K, V any] struct {
	iter Interface[K, V]
}

// Values adapts iter to an iterator over values only, discarding keys.
func Values[K, V any](iter Interface[K, V]) Interface[struct{}, V] {
	return &valuesIterator[K, V]{iter: iter}
}

// Next implements Interface.
func (vi *valuesIterator[K, V]) Next() (struct{}, V, error) {
	_, v, err := vi.iter.Next()
	return struct{}{}, v, err
}

// Close implements Interface.
func (vi *valuesIterator[K, V]) Close() {
	vi.iter.Close()
}

// ConsumeValues drains iter and returns all values in order.
func ConsumeValues[K, V any](iter Interface[K, V]) ([]V, error) {
	defer iter.Close()

	var res []V

	for {
		_, v, err := iter.Next()
		if err != nil {
			if errors.Is(err, ErrIteratorDone) {
				return res, nil
			}

			return nil, err
		}

		res = append(res, v)
	}
}

// ConsumeValuesN drains up to n values from iter without closing it.
// It returns nil once iter is exhausted.
func ConsumeValuesN[K, V any](iter Interface[K, V], n int) ([]V, error) {
	res := make([]V, 0, n)

	for i := 0; i < n; i++ {
		_, v, err := iter.Next()
		if err != nil {
			if errors.Is(err, ErrIteratorDone) {
				if len(res) == 0 {
					return nil, nil
				}

				return res, nil
			}

			return nil, err
		}

		res = append(res, v)
	}

	return res, nil
}
