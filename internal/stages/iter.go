package stages

import (
	"errors"

	"github.com/docbase/docbase/internal/types"
	"github.com/docbase/docbase/internal/util/iterator"
)

// newSliceDocIter adapts an in-memory document slice to DocIter.
func newSliceDocIter(docs []*types.Document) DocIter {
	return iterator.Values[int, *types.Document](iterator.ForSlice(docs))
}

// isIterDone reports whether err is iterator.ErrIteratorDone.
func isIterDone(err error) bool {
	return errors.Is(err, iterator.ErrIteratorDone)
}

// iterDoneErr returns iterator.ErrIteratorDone, for stages (like
// $limit) that need to signal early exhaustion from inside a mapIter
// callback.
func iterDoneErr() error {
	return iterator.ErrIteratorDone
}

// mapIter lazily applies fn to each document pulled from in, dropping
// a document when fn returns (nil, nil) -- the streaming-filter
// shape shared by $match, $project family, $unwind, $limit, $skip.
type mapIter struct {
	in  DocIter
	fn  func(*types.Document) ([]*types.Document, error)
	buf []*types.Document
}

// newMapIter returns a streaming iterator applying fn to each upstream
// document; fn may expand one document into zero, one, or many
// (needed by $unwind).
func newMapIter(in DocIter, fn func(*types.Document) ([]*types.Document, error)) DocIter {
	return &mapIter{in: in, fn: fn}
}

func (it *mapIter) Next() (struct{}, *types.Document, error) {
	for {
		if len(it.buf) > 0 {
			d := it.buf[0]
			it.buf = it.buf[1:]

			return struct{}{}, d, nil
		}

		_, doc, err := it.in.Next()
		if err != nil {
			return struct{}{}, nil, err
		}

		out, err := it.fn(doc)
		if err != nil {
			return struct{}{}, nil, err
		}

		it.buf = out
	}
}

func (it *mapIter) Close() { it.in.Close() }

// countingIter wraps a DocIter, invoking onNext once per document
// successfully pulled through it -- used by Pipeline.Run to attribute
// stage in/out document metrics without forcing a streaming stage to
// drain eagerly.
type countingIter struct {
	in     DocIter
	onNext func()
}

func (it *countingIter) Next() (struct{}, *types.Document, error) {
	k, doc, err := it.in.Next()
	if err == nil {
		it.onNext()
	}

	return k, doc, err
}

func (it *countingIter) Close() { it.in.Close() }
