// Package shapes defines Shape, the combination of a DType and dimensions
// used to describe tensors handed to the JIT kernels.
//
// Element types reuse github.com/gomlx/gopjrt/dtypes. Only a small surface is
// needed here: the kernels work on rank-2 float32 tensors, the scalar
// expression generator additionally on float64 scalars.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// Shape describes the dimensions and element type of a tensor.
// A scalar has rank 0 (no dimensions).
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make returns a Shape with the given dtype and dimensions. It panics on
// invalid (non-positive) dimensions.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("shapes.Make(%s, %v): dimensions must be positive", dtype, dimensions)
		}
	}
	return Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
}

// Scalar returns the shape of a scalar of the given dtype.
func Scalar(dtype dtypes.DType) Shape {
	return Shape{DType: dtype}
}

// Ok reports whether the shape has a valid dtype.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank returns the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// Dim returns the dimension of the given axis. Negative axes count from the
// end, so Dim(-1) is the last axis.
func (s Shape) Dim(axis int) int {
	adjusted := axis
	if adjusted < 0 {
		adjusted += s.Rank()
	}
	if adjusted < 0 || adjusted >= s.Rank() {
		exceptions.Panicf("shape %s has no axis %d", s, axis)
	}
	return s.Dimensions[adjusted]
}

// Size returns the number of elements.
func (s Shape) Size() int {
	size := 1
	for _, dim := range s.Dimensions {
		size *= dim
	}
	return size
}

// Memory returns the number of bytes needed to store the shape's elements
// contiguously, without any padding.
func (s Shape) Memory() int {
	return s.Size() * int(s.DType.Memory())
}

// Transpose returns the shape with the two axes of a rank-2 shape swapped.
// It panics for other ranks.
func (s Shape) Transpose() Shape {
	if s.Rank() != 2 {
		exceptions.Panicf("shape %s: Transpose requires rank 2", s)
	}
	return Shape{DType: s.DType, Dimensions: []int{s.Dimensions[1], s.Dimensions[0]}}
}

// Clone returns a deep copy.
func (s Shape) Clone() Shape {
	return Shape{DType: s.DType, Dimensions: slices.Clone(s.Dimensions)}
}

// Equal reports whether the shapes have the same dtype and dimensions.
func (s Shape) Equal(other Shape) bool {
	return s.DType == other.DType && slices.Equal(s.Dimensions, other.Dimensions)
}

// String implements fmt.Stringer, printing as e.g. "(Float32)[2 3]".
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	parts := make([]string, s.Rank())
	for i, dim := range s.Dimensions {
		parts[i] = fmt.Sprintf("%d", dim)
	}
	return fmt.Sprintf("(%s)[%s]", s.DType, strings.Join(parts, " "))
}
