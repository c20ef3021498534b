// Package kernels implements the SIMD matmul code generators surfaced to
// the compute graph through the kernel library protocol.
package kernels

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/myelin/graph"
	"github.com/gomlx/myelin/types/shapes"
)

// Arg is one matmul operand: a tensor plus its transposition, with the
// shape after transposition.
type Arg struct {
	tensor     *graph.Tensor
	shape      shapes.Shape
	transposed bool
}

func (a *Arg) init(tensor *graph.Tensor, transposed bool) {
	a.tensor = tensor
	a.transposed = transposed
	if transposed {
		a.shape = tensor.Shape().Transpose()
	} else {
		a.shape = tensor.Shape().Clone()
	}
}

// Transpose flips the argument's transposition.
func (a *Arg) Transpose() {
	a.transposed = !a.transposed
	a.shape = a.shape.Transpose()
}

// Tensor returns the underlying tensor.
func (a *Arg) Tensor() *graph.Tensor { return a.tensor }

// Shape returns the shape after transposition.
func (a *Arg) Shape() shapes.Shape { return a.shape }

// Transposed reports the argument's transposition.
func (a *Arg) Transposed() bool { return a.transposed }

// Order returns the element order with respect to the transposition.
func (a *Arg) Order() graph.Order {
	switch a.tensor.Order() {
	case graph.RowMajor:
		if a.transposed {
			return graph.ColumnMajor
		}
		return graph.RowMajor
	case graph.ColumnMajor:
		if a.transposed {
			return graph.RowMajor
		}
		return graph.ColumnMajor
	}
	return a.tensor.Order()
}

// outer is the outer dimension in the tensor array.
func (a *Arg) outer() int {
	if a.tensor.Order() == graph.RowMajor {
		return 0
	}
	return 1
}

// inner is the inner dimension in the tensor array.
func (a *Arg) inner() int {
	if a.tensor.Order() == graph.RowMajor {
		return 1
	}
	return 0
}

// height is the outer dimension of the tensor array.
func (a *Arg) height() int { return a.tensor.Dim(a.outer()) }

// width is the inner dimension of the tensor array.
func (a *Arg) width() int { return a.tensor.Dim(a.inner()) }

// sizeBytes is the tensor storage size including padding.
func (a *Arg) sizeBytes() int { return a.tensor.SizeBytes() }

// stride is the number of bytes per row including padding.
func (a *Arg) stride() int { return a.tensor.Stride(a.outer()) }

// padding is the number of padding bytes per row.
func (a *Arg) padding() int { return a.tensor.Padding(a.outer()) }

// dtype is the element type of the underlying tensor.
func (a *Arg) dtype() dtypes.DType { return a.tensor.Shape().DType }

// MatMulArgs normalises the operands of a matmul step, taking the
// transposition attributes and element orders into account. An accumulating
// matmul takes the result as its first input.
type MatMulArgs struct {
	c, a, b    Arg
	accumulate bool
}

// ValidMatMulStep reports whether the step has the argument arity of a
// matmul.
func ValidMatMulStep(step *graph.Step) bool {
	if step.Type() == OpAssignAddMatMul {
		return step.Indegree() >= 3
	}
	return step.Indegree() >= 2 && step.Outdegree() >= 1
}

// NewMatMulArgs captures the step's operands as c = a * b.
func NewMatMulArgs(step *graph.Step) *MatMulArgs {
	args := &MatMulArgs{accumulate: step.Type() == OpAssignAddMatMul}
	var c, a, b *graph.Tensor
	if args.accumulate {
		c, a, b = step.Input(0), step.Input(1), step.Input(2)
	} else {
		c, a, b = step.Output(0), step.Input(0), step.Input(1)
	}
	args.c.init(c, step.Attr("transpose_c", false))
	args.a.init(a, step.Attr("transpose_a", false))
	args.b.init(b, step.Attr("transpose_b", false))
	return args
}

// EnsureOutputOrder transforms the matmul so the output has the given
// element order, applying the identity C = A·B ⇔ Cᵀ = Bᵀ·Aᵀ when needed.
// It returns false if the output tensor does not support the resulting
// order.
func (m *MatMulArgs) EnsureOutputOrder(order graph.Order) bool {
	transform := false
	if order == graph.RowMajor {
		transform = m.c.tensor.Order() == graph.ColumnMajor
	} else if order == graph.ColumnMajor {
		transform = m.c.tensor.Order() == graph.RowMajor
	}

	if transform {
		m.a, m.b = m.b, m.a
		m.c.Transpose()
		m.a.Transpose()
		m.b.Transpose()
	}

	return m.c.tensor.SupportsOrder(m.c.tensor.Order())
}

// SetRequiredOrder publishes the storage order the output tensor needs so
// the emitted code sees the requested element order.
func (m *MatMulArgs) SetRequiredOrder(order graph.Order) {
	m.EnsureOutputOrder(order)
	required := graph.AnyOrder
	switch order {
	case graph.RowMajor:
		if m.c.transposed {
			required = graph.ColumnMajor
		} else {
			required = graph.RowMajor
		}
	case graph.ColumnMajor:
		if m.c.transposed {
			required = graph.RowMajor
		} else {
			required = graph.ColumnMajor
		}
	}
	m.c.tensor.SetRequiredOrder(required)
}

// CheckShapes verifies that the argument shapes agree with a matrix
// multiplication.
func (m *MatMulArgs) CheckShapes() bool {
	if m.a.shape.Rank() != 2 || m.b.shape.Rank() != 2 || m.c.shape.Rank() != 2 {
		return false
	}
	if m.a.shape.Dim(0) != m.c.shape.Dim(0) {
		return false
	}
	if m.a.shape.Dim(1) != m.b.shape.Dim(0) {
		return false
	}
	if m.b.shape.Dim(1) != m.c.shape.Dim(1) {
		return false
	}
	return true
}

// Aligned reports whether all three row strides are multiples of align.
func (m *MatMulArgs) Aligned(align int) bool {
	return m.a.stride()%align == 0 &&
		m.b.stride()%align == 0 &&
		m.c.stride()%align == 0
}

// Accumulate reports whether the matmul adds into the output.
func (m *MatMulArgs) Accumulate() bool { return m.accumulate }

// A returns the left operand of c = a * b.
func (m *MatMulArgs) A() *Arg { return &m.a }

// B returns the right operand of c = a * b.
func (m *MatMulArgs) B() *Arg { return &m.b }

// C returns the result operand of c = a * b.
func (m *MatMulArgs) C() *Arg { return &m.c }
