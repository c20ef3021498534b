package graph

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/myelin/types/shapes"
	"github.com/pkg/errors"
)

// cellBaseAlignment is the alignment of the cell base pointer. It must be
// at least the widest vector the generators store through (64 bytes for
// AVX-512), so that tensor offsets aligned to their minimum alignment yield
// equally aligned absolute addresses.
const cellBaseAlignment = 64

// Cell owns the data area emitted code operates on. Tensors are created
// against a cell; Allocate computes their layouts and offsets and reserves
// the backing buffer.
type Cell struct {
	tensors   []*Tensor
	buf       []byte
	base      int
	allocated bool
}

// NewCell returns an empty cell.
func NewCell() *Cell { return &Cell{} }

// NewTensor adds a tensor with the given storage order to the cell.
func (c *Cell) NewTensor(name string, shape shapes.Shape, order Order) *Tensor {
	if c.allocated {
		exceptions.Panicf("cell already allocated, cannot add tensor %q", name)
	}
	if !shape.Ok() {
		exceptions.Panicf("tensor %q has an invalid shape", name)
	}
	t := &Tensor{name: name, shape: shape, order: order}
	c.tensors = append(c.tensors, t)
	return t
}

// Allocate computes every tensor's layout and reserves the data buffer.
// Kernels must have run their Adjust phase first so alignment and order
// requirements are published.
func (c *Cell) Allocate() error {
	if c.allocated {
		return errors.Errorf("cell already allocated")
	}
	offset := 0
	for _, t := range c.tensors {
		t.computeLayout()
		align := t.minAlign
		if align < 1 {
			align = 1
		}
		if align > cellBaseAlignment {
			return errors.Errorf("tensor %q requires %d byte alignment, above the cell base alignment %d",
				t.name, align, cellBaseAlignment)
		}
		offset = (offset + align - 1) / align * align
		t.offset = offset
		offset += t.sizeBytes
	}
	c.buf = make([]byte, offset+cellBaseAlignment)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(c.buf)))
	c.base = int((cellBaseAlignment - addr%cellBaseAlignment) % cellBaseAlignment)
	c.allocated = true
	return nil
}

// Base returns the aligned cell base pointer passed to emitted code.
func (c *Cell) Base() unsafe.Pointer {
	if !c.allocated {
		exceptions.Panicf("cell not allocated")
	}
	return unsafe.Pointer(&c.buf[c.base])
}

// elemOffset returns the byte offset of logical element (i, j) of a rank-2
// tensor, honouring strides and order.
func elemOffset(t *Tensor, i, j int) int {
	return t.offset + i*t.strides[0] + j*t.strides[1]
}

// SetFloats fills a float32 tensor from values in logical row-major order.
func (c *Cell) SetFloats(t *Tensor, values []float32) {
	c.checkAccess(t, dtypes.Float32, len(values))
	if t.Rank() == 2 {
		cols := t.Dim(1)
		for i := 0; i < t.Dim(0); i++ {
			for j := 0; j < cols; j++ {
				c.putU32(elemOffset(t, i, j), math.Float32bits(values[i*cols+j]))
			}
		}
		return
	}
	for i, v := range values {
		c.putU32(t.offset+i*t.ElementSize(), math.Float32bits(v))
	}
}

// Floats reads a float32 tensor back in logical row-major order.
func (c *Cell) Floats(t *Tensor) []float32 {
	c.checkAccess(t, dtypes.Float32, t.Elements())
	out := make([]float32, t.Elements())
	if t.Rank() == 2 {
		cols := t.Dim(1)
		for i := 0; i < t.Dim(0); i++ {
			for j := 0; j < cols; j++ {
				out[i*cols+j] = math.Float32frombits(c.getU32(elemOffset(t, i, j)))
			}
		}
		return out
	}
	for i := range out {
		out[i] = math.Float32frombits(c.getU32(t.offset + i*t.ElementSize()))
	}
	return out
}

// SetFloat64s fills a float64 tensor from values in logical row-major
// order.
func (c *Cell) SetFloat64s(t *Tensor, values []float64) {
	c.checkAccess(t, dtypes.Float64, len(values))
	if t.Rank() == 2 {
		cols := t.Dim(1)
		for i := 0; i < t.Dim(0); i++ {
			for j := 0; j < cols; j++ {
				c.putU64(elemOffset(t, i, j), math.Float64bits(values[i*cols+j]))
			}
		}
		return
	}
	for i, v := range values {
		c.putU64(t.offset+i*t.ElementSize(), math.Float64bits(v))
	}
}

// Float64s reads a float64 tensor back in logical row-major order.
func (c *Cell) Float64s(t *Tensor) []float64 {
	c.checkAccess(t, dtypes.Float64, t.Elements())
	out := make([]float64, t.Elements())
	if t.Rank() == 2 {
		cols := t.Dim(1)
		for i := 0; i < t.Dim(0); i++ {
			for j := 0; j < cols; j++ {
				out[i*cols+j] = math.Float64frombits(c.getU64(elemOffset(t, i, j)))
			}
		}
		return out
	}
	for i := range out {
		out[i] = math.Float64frombits(c.getU64(t.offset + i*t.ElementSize()))
	}
	return out
}

func (c *Cell) checkAccess(t *Tensor, dtype dtypes.DType, n int) {
	if !c.allocated {
		exceptions.Panicf("cell not allocated")
	}
	if t.shape.DType != dtype {
		exceptions.Panicf("tensor %q is %s, not %s", t.name, t.shape.DType, dtype)
	}
	if n != t.Elements() {
		exceptions.Panicf("tensor %q has %d elements, got %d values", t.name, t.Elements(), n)
	}
}

func (c *Cell) putU32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(c.buf[c.base+offset:], v)
}

func (c *Cell) getU32(offset int) uint32 {
	return binary.LittleEndian.Uint32(c.buf[c.base+offset:])
}

func (c *Cell) putU64(offset int, v uint64) {
	binary.LittleEndian.PutUint64(c.buf[c.base+offset:], v)
}

func (c *Cell) getU64(offset int) uint64 {
	return binary.LittleEndian.Uint64(c.buf[c.base+offset:])
}
