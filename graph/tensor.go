// Package graph is the compute-graph surface the JIT kernels are written
// against: tensor metadata, steps, the kernel library protocol, and the cell
// holding the tensor data emitted code addresses.
//
// Tensors here carry metadata only; their data lives in a Cell, which
// assigns every tensor an offset from the cell base pointer. Emitted code
// receives the cell base in RDI and addresses tensors relative to it.
package graph

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/myelin/types/shapes"
)

// Tensor describes one graph variable: shape, element type, storage order
// and, once its cell is allocated, byte strides and a cell offset.
//
// Kernels may publish layout requirements during their Adjust phase through
// SetRequiredOrder and SetMinimumAlignment; both must happen before the
// cell's Allocate.
type Tensor struct {
	name          string
	shape         shapes.Shape
	order         Order
	requiredOrder Order
	minAlign      int
	strides       []int
	sizeBytes     int
	offset        int
	allocated     bool
}

// Name returns the tensor name.
func (t *Tensor) Name() string { return t.name }

// Shape returns the tensor shape.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// Rank returns the number of axes.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Dim returns the dimension of the given axis.
func (t *Tensor) Dim(axis int) int { return t.shape.Dim(axis) }

// Elements returns the number of elements.
func (t *Tensor) Elements() int { return t.shape.Size() }

// Order returns the storage order.
func (t *Tensor) Order() Order { return t.order }

// SupportsOrder reports whether the tensor can be stored in the given
// order.
func (t *Tensor) SupportsOrder(o Order) bool {
	return t.order == o || t.order == AnyOrder || o == AnyOrder
}

// SetRequiredOrder publishes a storage order requirement. A tensor with
// AnyOrder adopts the requirement as its order.
func (t *Tensor) SetRequiredOrder(o Order) {
	t.requiredOrder = o
	if t.order == AnyOrder && o != AnyOrder {
		t.order = o
	}
}

// RequiredOrder returns the published storage order requirement.
func (t *Tensor) RequiredOrder() Order { return t.requiredOrder }

// SetMinimumAlignment raises the minimum byte alignment of the tensor's
// rows (or columns, for column major order) and of its cell offset.
func (t *Tensor) SetMinimumAlignment(align int) {
	if align > t.minAlign {
		t.minAlign = align
	}
}

// MinimumAlignment returns the published alignment requirement.
func (t *Tensor) MinimumAlignment() int { return t.minAlign }

// ElementSize returns the byte size of one element.
func (t *Tensor) ElementSize() int { return int(t.shape.DType.Memory()) }

func (t *Tensor) checkAllocated() {
	if !t.allocated {
		exceptions.Panicf("tensor %q: layout not computed yet (cell not allocated)", t.name)
	}
}

// Stride returns the number of bytes between consecutive indices of the
// given axis, including padding.
func (t *Tensor) Stride(axis int) int {
	t.checkAllocated()
	return t.strides[axis]
}

// Padding returns the padding bytes at the end of each run of the given
// axis. Only the strided axis of a rank-2 tensor can carry padding.
func (t *Tensor) Padding(axis int) int {
	t.checkAllocated()
	if t.Rank() != 2 || t.strides[axis] == t.ElementSize() {
		return 0
	}
	return t.strides[axis] - t.Dim(1-axis)*t.ElementSize()
}

// SizeBytes returns the total storage size including padding.
func (t *Tensor) SizeBytes() int {
	t.checkAllocated()
	return t.sizeBytes
}

// Offset returns the tensor's byte offset from the cell base.
func (t *Tensor) Offset() int {
	t.checkAllocated()
	return t.offset
}

// layoutOrder resolves the order used for storage: an unconstrained tensor
// is laid out row major.
func (t *Tensor) layoutOrder() Order {
	if t.order == ColumnMajor {
		return ColumnMajor
	}
	return RowMajor
}

// computeLayout fills in strides and sizeBytes. Rank 0 and 1 tensors are
// contiguous; rank 2 tensors pad each row (column) to the tensor's minimum
// alignment.
func (t *Tensor) computeLayout() {
	if t.order == AnyOrder {
		t.order = t.layoutOrder()
	}
	dsize := t.ElementSize()
	align := t.minAlign
	if align < 1 {
		align = 1
	}
	roundUp := func(n int) int { return (n + align - 1) / align * align }
	switch t.Rank() {
	case 0:
		t.strides = nil
		t.sizeBytes = dsize
	case 1:
		t.strides = []int{dsize}
		t.sizeBytes = dsize * t.Dim(0)
	case 2:
		if t.layoutOrder() == RowMajor {
			rowBytes := roundUp(t.Dim(1) * dsize)
			t.strides = []int{rowBytes, dsize}
			t.sizeBytes = rowBytes * t.Dim(0)
		} else {
			colBytes := roundUp(t.Dim(0) * dsize)
			t.strides = []int{dsize, colBytes}
			t.sizeBytes = colBytes * t.Dim(1)
		}
	default:
		exceptions.Panicf("tensor %q: rank %d not supported", t.name, t.Rank())
	}
	t.allocated = true
}
