package iterator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceValues(t *testing.T) {
	expected := []int{1, 2, 3}

	actual, err := ConsumeValues(ForSlice(expected))
	require.NoError(t, err)
	assert.Equal(t, expected, actual)

	actual, err = ConsumeValues(Values(ForSlice(expected)))
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
}

func TestConsumeValuesN(t *testing.T) {
	s := []int{1, 2, 3}
	iter := ForSlice(s)

	actual, err := ConsumeValuesN(iter, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, actual)

	actual, err = ConsumeValuesN(iter, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, actual)

	actual, err = ConsumeValuesN(iter, 2)
	require.NoError(t, err)
	assert.Nil(t, actual)

	iter.Close()

	actual, err = ConsumeValuesN(iter, 2)
	require.NoError(t, err)
	assert.Nil(t, actual)
}

func TestMultiCloser(t *testing.T) {
	var order []int

	mc := NewMultiCloser()
	mc.Add(closerFunc(func() { order = append(order, 1) }))
	mc.Add(closerFunc(func() { order = append(order, 2) }))
	mc.Add(closerFunc(func() { order = append(order, 3) }))

	mc.Close()
	assert.Equal(t, []int{3, 2, 1}, order)

	// closing twice must not panic or re-invoke closers
	mc.Close()
	assert.Equal(t, []int{3, 2, 1}, order)
}

type closerFunc func()

func (f closerFunc) Close() { f() }
