package graph

import (
	"testing"
	"unsafe"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/myelin/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellLayoutRowMajor(t *testing.T) {
	cell := NewCell()
	a := cell.NewTensor("a", shapes.Make(dtypes.Float32, 2, 3), RowMajor)
	a.SetMinimumAlignment(32)
	require.NoError(t, cell.Allocate())

	// Rows are padded from 12 to 32 bytes.
	assert.Equal(t, 32, a.Stride(0))
	assert.Equal(t, 4, a.Stride(1))
	assert.Equal(t, 20, a.Padding(0))
	assert.Equal(t, 0, a.Padding(1))
	assert.Equal(t, 64, a.SizeBytes())
	assert.Equal(t, 0, a.Offset()%32)
	assert.Equal(t, uintptr(0), uintptr(cell.Base())%64)
}

func TestCellLayoutColumnMajor(t *testing.T) {
	cell := NewCell()
	a := cell.NewTensor("a", shapes.Make(dtypes.Float32, 3, 2), ColumnMajor)
	a.SetMinimumAlignment(16)
	require.NoError(t, cell.Allocate())

	// Each of the two columns holds 3 floats, padded from 12 to 16 bytes.
	assert.Equal(t, 4, a.Stride(0))
	assert.Equal(t, 16, a.Stride(1))
	assert.Equal(t, 4, a.Padding(1))
	assert.Equal(t, 32, a.SizeBytes())
}

func TestCellRoundTrip(t *testing.T) {
	cell := NewCell()
	a := cell.NewTensor("a", shapes.Make(dtypes.Float32, 2, 3), RowMajor)
	b := cell.NewTensor("b", shapes.Make(dtypes.Float32, 3, 2), ColumnMajor)
	s := cell.NewTensor("s", shapes.Scalar(dtypes.Float64), AnyOrder)
	a.SetMinimumAlignment(64)
	b.SetMinimumAlignment(64)
	require.NoError(t, cell.Allocate())

	va := []float32{1, 2, 3, 4, 5, 6}
	vb := []float32{6, 5, 4, 3, 2, 1}
	cell.SetFloats(a, va)
	cell.SetFloats(b, vb)
	cell.SetFloat64s(s, []float64{3.25})
	assert.Equal(t, va, cell.Floats(a))
	assert.Equal(t, vb, cell.Floats(b))
	assert.Equal(t, []float64{3.25}, cell.Float64s(s))

	require.Panics(t, func() { cell.SetFloats(s, []float32{1}) })
	require.Panics(t, func() { cell.SetFloats(a, []float32{1}) })
}

func TestTensorOrderResolution(t *testing.T) {
	cell := NewCell()
	a := cell.NewTensor("a", shapes.Make(dtypes.Float32, 2, 2), AnyOrder)
	assert.True(t, a.SupportsOrder(RowMajor))
	assert.True(t, a.SupportsOrder(ColumnMajor))
	a.SetRequiredOrder(ColumnMajor)
	assert.Equal(t, ColumnMajor, a.Order())
	assert.False(t, a.SupportsOrder(RowMajor))

	require.NoError(t, cell.Allocate())
	assert.Equal(t, ColumnMajor, a.Order())
}

func TestStepAttrs(t *testing.T) {
	cell := NewCell()
	a := cell.NewTensor("a", shapes.Make(dtypes.Float32, 2, 2), RowMajor)
	c := cell.NewTensor("c", shapes.Make(dtypes.Float32, 2, 2), RowMajor)
	step := cell.NewStep("MatMul", []*Tensor{a}, []*Tensor{c})
	assert.False(t, step.Attr("transpose_a", false))
	step.SetAttr("transpose_a", true)
	assert.True(t, step.Attr("transpose_a", false))
	assert.Equal(t, 1, step.Indegree())
	assert.Equal(t, 1, step.Outdegree())
	assert.Same(t, a, step.Input(0))
	assert.Same(t, c, step.Output(0))

	step.SetVariant("AVXFltRR")
	assert.Equal(t, "AVXFltRR", step.Variant())
}

// The compiler must keep the cell buffer reachable while emitted code runs;
// Base must stay stable across calls.
func TestCellBaseStable(t *testing.T) {
	cell := NewCell()
	cell.NewTensor("a", shapes.Make(dtypes.Float32, 4, 4), RowMajor)
	require.NoError(t, cell.Allocate())
	p1 := cell.Base()
	p2 := cell.Base()
	assert.Equal(t, unsafe.Pointer(p1), unsafe.Pointer(p2))
}
