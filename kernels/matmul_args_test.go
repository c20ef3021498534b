package kernels

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/myelin/graph"
	"github.com/gomlx/myelin/jit"
	"github.com/gomlx/myelin/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func matmulStep(t *testing.T, m, k, n int, cOrder graph.Order) (*graph.Cell, *graph.Step) {
	t.Helper()
	cell := graph.NewCell()
	a := cell.NewTensor("a", shapes.Make(dtypes.Float32, m, k), graph.RowMajor)
	b := cell.NewTensor("b", shapes.Make(dtypes.Float32, k, n), graph.RowMajor)
	c := cell.NewTensor("c", shapes.Make(dtypes.Float32, m, n), cOrder)
	step := cell.NewStep(OpMatMul, []*graph.Tensor{a, b}, []*graph.Tensor{c})
	return cell, step
}

func TestMatMulArgsShapes(t *testing.T) {
	_, step := matmulStep(t, 2, 3, 4, graph.RowMajor)
	args := NewMatMulArgs(step)
	assert.True(t, args.CheckShapes())
	assert.False(t, args.Accumulate())
	assert.Equal(t, []int{2, 3}, args.A().Shape().Dimensions)
	assert.Equal(t, []int{3, 4}, args.B().Shape().Dimensions)
	assert.Equal(t, []int{2, 4}, args.C().Shape().Dimensions)

	// Transposition flips the argument shape.
	args.A().Transpose()
	assert.Equal(t, []int{3, 2}, args.A().Shape().Dimensions)
	assert.False(t, args.CheckShapes())
	args.A().Transpose()
	assert.True(t, args.CheckShapes())
}

func TestMatMulArgsShapeMismatch(t *testing.T) {
	cell := graph.NewCell()
	a := cell.NewTensor("a", shapes.Make(dtypes.Float32, 2, 3), graph.RowMajor)
	b := cell.NewTensor("b", shapes.Make(dtypes.Float32, 4, 5), graph.RowMajor)
	c := cell.NewTensor("c", shapes.Make(dtypes.Float32, 2, 5), graph.RowMajor)
	step := cell.NewStep(OpMatMul, []*graph.Tensor{a, b}, []*graph.Tensor{c})
	assert.False(t, NewMatMulArgs(step).CheckShapes())
	assert.False(t, NewSIMDMatMul(false, jit.Detect()).Supports(step))
}

func TestEnsureOutputOrderTransform(t *testing.T) {
	// A column major output forces the C = A·B ⇔ Cᵀ = Bᵀ·Aᵀ rewrite: the
	// operands swap and everything transposes.
	_, step := matmulStep(t, 2, 3, 4, graph.ColumnMajor)
	args := NewMatMulArgs(step)
	require.True(t, args.EnsureOutputOrder(graph.RowMajor))

	assert.Equal(t, []int{4, 3}, args.A().Shape().Dimensions, "A' = Bᵀ")
	assert.Equal(t, []int{3, 2}, args.B().Shape().Dimensions, "B' = Aᵀ")
	assert.Equal(t, []int{4, 2}, args.C().Shape().Dimensions, "C' = Cᵀ")
	assert.True(t, args.C().Transposed())
	assert.True(t, args.CheckShapes(), "transposed product must still be a valid matmul")

	// The transposed view of the column major tensor is row major.
	assert.Equal(t, graph.RowMajor, args.C().Order())

	// A row major output stays put.
	_, step = matmulStep(t, 2, 3, 4, graph.RowMajor)
	args = NewMatMulArgs(step)
	require.True(t, args.EnsureOutputOrder(graph.RowMajor))
	assert.False(t, args.C().Transposed())
	assert.Equal(t, []int{2, 3}, args.A().Shape().Dimensions)
}

func TestSetRequiredOrder(t *testing.T) {
	cell := graph.NewCell()
	a := cell.NewTensor("a", shapes.Make(dtypes.Float32, 2, 3), graph.RowMajor)
	b := cell.NewTensor("b", shapes.Make(dtypes.Float32, 3, 4), graph.RowMajor)
	c := cell.NewTensor("c", shapes.Make(dtypes.Float32, 2, 4), graph.AnyOrder)
	step := cell.NewStep(OpMatMul, []*graph.Tensor{a, b}, []*graph.Tensor{c})

	args := NewMatMulArgs(step)
	args.SetRequiredOrder(graph.RowMajor)
	assert.Equal(t, graph.RowMajor, c.Order())
	assert.Equal(t, graph.RowMajor, c.RequiredOrder())
}

func TestMatMulAligned(t *testing.T) {
	cell, step := matmulStep(t, 2, 3, 5, graph.RowMajor)
	kernel := NewSIMDMatMul(false, jit.MakeFeatures(jit.FeatureSSE, jit.FeatureAVX))
	require.True(t, kernel.Supports(step))
	kernel.Adjust(step)
	require.NoError(t, cell.Allocate())

	args := NewMatMulArgs(step)
	assert.True(t, args.Aligned(32), "adjusted strides must honour the vector alignment")
	assert.Equal(t, 0, args.B().stride()%32)
	assert.Equal(t, 0, args.C().stride()%32)
}

func TestSupportsGates(t *testing.T) {
	features := jit.MakeFeatures(jit.FeatureSSE, jit.FeatureSSE2)
	plain := NewSIMDMatMul(false, features)
	acc := NewSIMDMatMul(true, features)

	_, step := matmulStep(t, 2, 3, 4, graph.RowMajor)
	assert.True(t, plain.Supports(step))
	assert.False(t, acc.Supports(step), "accumulate kernel only takes AssignAddMatMul steps")
	assert.Equal(t, "SIMDMatMul", plain.Name())
	assert.Equal(t, "SIMDAccMatMul", acc.Name())
	assert.Equal(t, OpMatMul, plain.Operation())
	assert.Equal(t, OpAssignAddMatMul, acc.Operation())

	// Element types other than float32 are rejected, half precision
	// included.
	h := float16.Fromfloat32(1.5)
	assert.Equal(t, float32(1.5), h.Float32())
	cell := graph.NewCell()
	ah := cell.NewTensor("a", shapes.Make(dtypes.Float16, 2, 3), graph.RowMajor)
	bh := cell.NewTensor("b", shapes.Make(dtypes.Float16, 3, 4), graph.RowMajor)
	ch := cell.NewTensor("c", shapes.Make(dtypes.Float16, 2, 4), graph.RowMajor)
	hstep := cell.NewStep(OpMatMul, []*graph.Tensor{ah, bh}, []*graph.Tensor{ch})
	assert.False(t, plain.Supports(hstep))

	// An accumulating step needs at least three inputs.
	cell2 := graph.NewCell()
	c2 := cell2.NewTensor("c", shapes.Make(dtypes.Float32, 2, 2), graph.RowMajor)
	bad := cell2.NewStep(OpAssignAddMatMul, []*graph.Tensor{c2}, nil)
	assert.False(t, ValidMatMulStep(bad))
}

func TestComplexity(t *testing.T) {
	_, step := matmulStep(t, 2, 3, 4, graph.RowMajor)
	kernel := NewSIMDMatMul(false, jit.Detect())
	assert.Equal(t, int64(2*4*3*2), kernel.Complexity(step))
}
