package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	s := Make(dtypes.Float32, 2, 3)
	assert.Equal(t, 2, s.Rank())
	assert.Equal(t, 2, s.Dim(0))
	assert.Equal(t, 3, s.Dim(1))
	assert.Equal(t, 3, s.Dim(-1))
	assert.Equal(t, 6, s.Size())
	assert.Equal(t, 24, s.Memory())
	assert.Equal(t, "(Float32)[2 3]", s.String())

	tr := s.Transpose()
	assert.Equal(t, []int{3, 2}, tr.Dimensions)
	assert.True(t, tr.Transpose().Equal(s))

	scalar := Scalar(dtypes.Float64)
	assert.Equal(t, 0, scalar.Rank())
	assert.Equal(t, 1, scalar.Size())
	assert.Equal(t, 8, scalar.Memory())

	require.Panics(t, func() { Make(dtypes.Float32, 2, 0) })
	require.Panics(t, func() { Make(dtypes.Float32, 4).Transpose() })
	require.Panics(t, func() { s.Dim(2) })
}

func TestShapeClone(t *testing.T) {
	s := Make(dtypes.Float32, 4, 4)
	c := s.Clone()
	c.Dimensions[0] = 8
	assert.Equal(t, 4, s.Dim(0))
}
