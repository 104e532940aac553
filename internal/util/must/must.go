// Package must provides helpers that panic on unexpected errors,
// for use in tests and package-level variable initialization where
// an error truly cannot happen in practice.
package must

// NotFail returns v, panicking if err is not nil.
//
// It is typically used to unwrap constructors that return (T, error)
// when the caller statically knows the error can't occur:
//
//	doc := must.NotFail(types.NewDocument("a", int32(1)))
func NotFail[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}

	return v
}

// NoError panics if err is not nil.
func NoError(err error) {
	if err != nil {
		panic(err)
	}
}
