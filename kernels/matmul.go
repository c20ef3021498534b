package kernels

import (
	"github.com/gomlx/myelin/graph"
	"github.com/gomlx/myelin/jit"
	"github.com/gomlx/myelin/simd"
	"k8s.io/klog/v2"
)

// Step types implemented by the matmul kernels.
const (
	OpMatMul          = "MatMul"
	OpAssignAddMatMul = "AssignAddMatMul"
)

// Maximum number of loop unrolls.
const maxUnrolls = 4

// SIMDMatMul is a general matrix multiplication kernel using the SIMD code
// generators. It supports transposed inputs and output as well as output
// accumulation. The emitted loop nest depends on the element orders of the
// inputs; the output is always (transformed to) row major.
type SIMDMatMul struct {
	accumulate bool
	features   jit.Features
}

// NewSIMDMatMul returns a matmul kernel emitting for the given feature set.
// With accumulate, the kernel implements C += A·B, taking C as its first
// input.
func NewSIMDMatMul(accumulate bool, features jit.Features) *SIMDMatMul {
	return &SIMDMatMul{accumulate: accumulate, features: features}
}

// Register adds the matmul kernels to the library.
func Register(lib *graph.Library, features jit.Features) {
	lib.Register(NewSIMDMatMul(true, features))
	lib.Register(NewSIMDMatMul(false, features))
}

var _ graph.Kernel = (*SIMDMatMul)(nil)

// Name implements graph.Kernel.
func (k *SIMDMatMul) Name() string {
	if k.accumulate {
		return "SIMDAccMatMul"
	}
	return "SIMDMatMul"
}

// Operation implements graph.Kernel.
func (k *SIMDMatMul) Operation() string {
	if k.accumulate {
		return OpAssignAddMatMul
	}
	return OpMatMul
}

// Supports implements graph.Kernel: argument arity and shapes must match a
// matmul, the output must support row major order, and all element types
// must be the supported SIMD type.
func (k *SIMDMatMul) Supports(step *graph.Step) bool {
	if !ValidMatMulStep(step) {
		return false
	}
	args := NewMatMulArgs(step)
	if !args.CheckShapes() {
		return false
	}
	if args.Accumulate() != k.accumulate {
		return false
	}

	// Output must be row-major.
	if !args.EnsureOutputOrder(graph.RowMajor) {
		return false
	}

	// Check that element type is supported.
	dtype := args.C().dtype()
	if !simd.Supports(dtype) {
		return false
	}
	if args.A().dtype() != dtype || args.B().dtype() != dtype {
		return false
	}

	return true
}

// Adjust implements graph.Kernel: it publishes the row major output
// requirement and the vector-width alignment on all three tensors.
func (k *SIMDMatMul) Adjust(step *graph.Step) {
	args := NewMatMulArgs(step)
	args.SetRequiredOrder(graph.RowMajor)

	vecbytes := simd.VectorBytes(k.features, args.C().dtype())
	args.A().Tensor().SetMinimumAlignment(vecbytes)
	args.B().Tensor().SetMinimumAlignment(vecbytes)
	args.C().Tensor().SetMinimumAlignment(vecbytes)
}

// Generate implements graph.Kernel, choosing the loop nest from the
// effective element orders of the inputs.
func (k *SIMDMatMul) Generate(step *graph.Step, masm *jit.MacroAssembler) {
	args := NewMatMulArgs(step)
	if !args.EnsureOutputOrder(graph.RowMajor) {
		klog.Fatalf("matmul: output of step %q cannot be row major", step.Type())
	}

	a, b := args.A().Order(), args.B().Order()
	switch {
	case a == graph.RowMajor && b == graph.RowMajor:
		k.generateVertical(step, masm, args, false)
	case a == graph.RowMajor && b == graph.ColumnMajor:
		k.generateHorizontal(step, masm, args)
	case a == graph.ColumnMajor && b == graph.RowMajor:
		k.generateVertical(step, masm, args, true)
	case a == graph.ColumnMajor && b == graph.ColumnMajor:
		k.generateColCol(step, masm, args)
	default:
		klog.Fatalf("matmul: unsupported element order %s/%s", a, b)
	}
}

// generateVertical computes dot products between rows/columns in A and
// column blocks in B using vertical summing. The vectors in A are traversed
// either top to bottom (strided) or left to right (consecutive).
func (k *SIMDMatMul) generateVertical(step *graph.Step, masm *jit.MacroAssembler,
	args *MatMulArgs, strided bool) {
	dtype := args.C().dtype()
	dsize := args.C().Tensor().ElementSize()
	vecbytes := simd.VectorBytes(k.features, dtype)
	sasm := simd.NewAssembler(masm, dtype, args.Aligned(vecbytes))
	defer sasm.Release()
	if strided {
		step.SetVariant(sasm.Name() + "CR")
		if args.A().height() != args.B().height() {
			klog.Fatalf("matmul: A height %d does not match B height %d", args.A().height(), args.B().height())
		}
	} else {
		step.SetVariant(sasm.Name() + "RR")
		if args.A().width() != args.B().height() {
			klog.Fatalf("matmul: A width %d does not match B height %d", args.A().width(), args.B().height())
		}
	}

	// Compute vector processing strategy.
	strategy := simd.NewStrategy(sasm, args.B().width(), maxUnrolls)
	strategy.PreloadMasks()

	// Allocate registers.
	a := masm.RR().Alloc()
	b := masm.RR().Alloc()
	c := masm.RR().Alloc()
	aOfs := masm.RR().Alloc()
	bPtr := masm.RR().Alloc()
	colOfs := masm.RR().Alloc()
	sum := sasm.AllocVec(strategy.MaxUnrolls())
	elem := sasm.Alloc()

	// Load tensor addresses.
	masm.LoadCellAddress(a, args.A().Tensor().Offset())
	masm.LoadCellAddress(b, args.B().Tensor().Offset())
	masm.LoadCellAddress(c, args.C().Tensor().Offset())

	// Compute inner and outer dimensions.
	var outerStep, outerLimit, innerStep, innerLimit int
	if strided {
		outerStep = dsize
		outerLimit = dsize * args.A().width()
		innerStep = args.A().stride()
		innerLimit = args.A().stride() * args.A().height()
	} else {
		outerStep = args.A().stride()
		outerLimit = args.A().stride() * args.A().height()
		innerStep = dsize
		innerLimit = dsize * args.A().width()
	}
	outerSingle := outerStep == outerLimit
	innerSingle := innerStep == innerLimit

	// Loop over rows/columns in A.
	aEnd := masm.RR().Alloc()
	var l1 jit.Label
	if !outerSingle {
		masm.Leaq(aEnd, jit.Mem(a, int32(outerLimit)))
		masm.Bind(&l1)
	}

	// Compute dot product between row/column in A and column blocks in B.
	for _, phase := range strategy.Phases() {
		gen := phase.Generator
		vecsize := gen.VectorSize()
		blkstart := phase.Offset * dsize
		blksize := phase.Unrolls * vecsize * dsize

		if phase.Repeat > 1 {
			// Repeated phase.
			var l2 jit.Label
			if phase.Offset == 0 {
				masm.Xorq(colOfs, colOfs)
			} else {
				masm.MovqImm(colOfs, int32(blkstart))
			}
			masm.Bind(&l2)

			if innerSingle {
				// Outer product of A element and B row block.
				gen.Broadcast(elem, jit.Mem(a, 0))
				for i := 0; i < phase.Unrolls; i++ {
					disp := i * vecsize * dsize
					if k.accumulate {
						gen.Load(sum[i], jit.Mem(c, int32(disp)))
						retain := i != phase.Unrolls-1
						gen.MulAdd(sum[i], elem, jit.MemIndex(b, colOfs, jit.Times1, int32(disp)), retain)
					} else {
						gen.Mul(sum[i], elem, jit.MemIndex(b, colOfs, jit.Times1, int32(disp)))
					}
					gen.Store(jit.Mem(c, int32(disp)), sum[i])
				}
			} else {
				for _, r := range sum[:phase.Unrolls] {
					gen.Zero(r)
				}
				masm.Xorq(aOfs, aOfs)
				masm.Leaq(bPtr, jit.MemIndex(b, colOfs, jit.Times1, 0))

				// Loop over columns/rows in A and rows in B.
				var l3 jit.Label
				masm.Bind(&l3)
				gen.Broadcast(elem, jit.MemIndex(a, aOfs, jit.Times1, 0))
				for i := 0; i < phase.Unrolls; i++ {
					disp := i * vecsize * dsize
					retain := i != phase.Unrolls-1
					gen.MulAdd(sum[i], elem, jit.Mem(bPtr, int32(disp)), retain)
				}
				masm.AddqImm(bPtr, int32(args.B().stride()))
				masm.AddqImm(aOfs, int32(innerStep))
				masm.CmpqImm(aOfs, int32(innerLimit))
				masm.J(jit.Less, &l3)

				// Save result in C.
				for i := 0; i < phase.Unrolls; i++ {
					disp := int32(i * vecsize * dsize)
					if k.accumulate {
						gen.AddMem(sum[i], sum[i], jit.Mem(c, disp))
					}
					gen.Store(jit.Mem(c, disp), sum[i])
				}
			}
			masm.AddqImm(c, int32(blksize))

			// Next block.
			masm.AddqImm(colOfs, int32(blksize))
			masm.CmpqImm(colOfs, int32(blkstart+phase.Repeat*blksize))
			masm.J(jit.Less, &l2)
		} else if phase.Masked == 0 {
			// Residual phase.
			if innerSingle {
				// Outer product of A element and B row block.
				gen.Broadcast(elem, jit.Mem(a, 0))
				for i := 0; i < phase.Unrolls; i++ {
					disp := blkstart + i*vecsize*dsize
					if k.accumulate {
						gen.Load(sum[i], jit.Mem(c, int32(i*vecsize*dsize)))
						retain := i != phase.Unrolls-1
						gen.MulAdd(sum[i], elem, jit.Mem(b, int32(disp)), retain)
					} else {
						gen.Mul(sum[i], elem, jit.Mem(b, int32(disp)))
					}
					gen.Store(jit.Mem(c, int32(i*vecsize*dsize)), sum[i])
				}
			} else {
				for _, r := range sum[:phase.Unrolls] {
					gen.Zero(r)
				}
				masm.Xorq(aOfs, aOfs)
				masm.Leaq(bPtr, jit.Mem(b, int32(blkstart)))

				// Loop over columns/rows in A and rows in B.
				var l3 jit.Label
				masm.Bind(&l3)
				gen.Broadcast(elem, jit.MemIndex(a, aOfs, jit.Times1, 0))
				for i := 0; i < phase.Unrolls; i++ {
					disp := i * vecsize * dsize
					retain := i != phase.Unrolls-1
					gen.MulAdd(sum[i], elem, jit.Mem(bPtr, int32(disp)), retain)
				}
				masm.AddqImm(bPtr, int32(args.B().stride()))
				masm.AddqImm(aOfs, int32(innerStep))
				masm.CmpqImm(aOfs, int32(innerLimit))
				masm.J(jit.Less, &l3)

				// Save result in C.
				for i := 0; i < phase.Unrolls; i++ {
					disp := int32(i * vecsize * dsize)
					if k.accumulate {
						gen.AddMem(sum[i], sum[i], jit.Mem(c, disp))
					}
					gen.Store(jit.Mem(c, disp), sum[i])
				}
			}
			masm.AddqImm(c, int32(blksize))
		} else {
			// Masked phase.
			if phase.Unrolls != 1 {
				klog.Fatalf("matmul: masked phase with %d unrolls", phase.Unrolls)
			}
			if innerSingle {
				gen.Broadcast(elem, jit.Mem(a, 0))
				if k.accumulate {
					// Masked-load C's prior contents into the accumulator,
					// then add the outer product on top. Loading into the
					// broadcast register instead would multiply C by B.
					gen.MaskedLoad(sum[0], jit.Mem(c, 0))
					gen.MaskedMulAdd(sum[0], elem, jit.Mem(b, int32(blkstart)))
				} else {
					gen.MaskedMul(sum[0], elem, jit.Mem(b, int32(blkstart)))
				}
				gen.MaskedStore(jit.Mem(c, 0), sum[0])
			} else {
				gen.Zero(sum[0])
				masm.Xorq(aOfs, aOfs)
				masm.Leaq(bPtr, jit.Mem(b, int32(blkstart)))

				// Loop over columns/rows in A and rows in B.
				var l3 jit.Label
				masm.Bind(&l3)
				gen.Broadcast(elem, jit.MemIndex(a, aOfs, jit.Times1, 0))
				gen.MaskedMulAdd(sum[0], elem, jit.Mem(bPtr, 0))
				masm.AddqImm(bPtr, int32(args.B().stride()))
				masm.AddqImm(aOfs, int32(innerStep))
				masm.CmpqImm(aOfs, int32(innerLimit))
				masm.J(jit.Less, &l3)

				// Save result in C.
				if k.accumulate {
					gen.MaskedAdd(sum[0], sum[0], jit.Mem(c, 0))
				}
				gen.MaskedStore(jit.Mem(c, 0), sum[0])
			}
			masm.AddqImm(c, int32(phase.Masked*dsize))
		}
	}

	// Next row/column in A.
	if !outerSingle {
		if args.C().padding() > 0 {
			masm.AddqImm(c, int32(args.C().padding()))
		}
		masm.AddqImm(a, int32(outerStep))
		masm.Cmpq(a, aEnd)
		masm.J(jit.Less, &l1)
	}
}

// generateHorizontal computes dot products between row blocks in A and row
// blocks in B using horizontal summation.
func (k *SIMDMatMul) generateHorizontal(step *graph.Step, masm *jit.MacroAssembler,
	args *MatMulArgs) {
	dtype := args.C().dtype()
	dsize := args.C().Tensor().ElementSize()
	vecbytes := simd.VectorBytes(k.features, dtype)
	sasm := simd.NewAssembler(masm, dtype, args.Aligned(vecbytes))
	defer sasm.Release()
	step.SetVariant(sasm.Name() + "RC")
	if args.A().width() != args.B().width() {
		klog.Fatalf("matmul: A width %d does not match B width %d", args.A().width(), args.B().width())
	}

	// Compute vector processing strategy.
	strategy := simd.NewStrategy(sasm, args.B().width(), maxUnrolls)
	strategy.PreloadMasks()

	// Allocate registers.
	a := masm.RR().Alloc()
	b := masm.RR().Alloc()
	c := masm.RR().Alloc()
	bPtr := masm.RR().Alloc()
	bEnd := masm.RR().Alloc()
	ofs := masm.RR().Alloc()
	sum := sasm.AllocVec(strategy.MaxUnrolls())
	elem := sasm.AllocVec(strategy.MaxUnrolls())

	// Load tensor addresses.
	masm.LoadCellAddress(a, args.A().Tensor().Offset())
	masm.LoadCellAddress(b, args.B().Tensor().Offset())
	masm.LoadCellAddress(c, args.C().Tensor().Offset())

	// Loop over rows in A.
	if args.B().height() > 1 {
		masm.Leaq(bEnd, jit.Mem(b, int32(args.B().sizeBytes())))
	}
	aEnd := masm.RR().Alloc()
	var l1 jit.Label
	if args.A().height() > 1 {
		masm.Leaq(aEnd, jit.Mem(a, int32(args.A().sizeBytes())))
		masm.Bind(&l1)
	}

	// Loop over rows in B.
	var l2 jit.Label
	if args.B().height() > 1 {
		if args.A().height() > 1 {
			masm.Movq(bPtr, b)
		} else {
			bPtr = b
		}
		masm.Bind(&l2)
	} else {
		bPtr = b
	}
	for _, r := range sum {
		sasm.Main().Zero(r)
	}

	// Compute dot product between row in A and row in B.
	for _, phase := range strategy.Phases() {
		gen := phase.Generator
		vecsize := gen.VectorSize()
		blkstart := phase.Offset * dsize
		blksize := phase.Unrolls * vecsize * dsize

		if phase.Repeat > 1 {
			// Repeated phase.
			var l3 jit.Label
			if blkstart == 0 {
				masm.Xorq(ofs, ofs)
			} else {
				masm.MovqImm(ofs, int32(blkstart))
			}
			masm.Bind(&l3)
			for i := 0; i < phase.Unrolls; i++ {
				disp := int32(i * vecsize * dsize)
				gen.Load(elem[i], jit.MemIndex(a, ofs, jit.Times1, disp))
				gen.MulAdd(sum[i], elem[i], jit.MemIndex(bPtr, ofs, jit.Times1, disp), false)
			}
			masm.AddqImm(ofs, int32(blksize))
			masm.CmpqImm(ofs, int32(blkstart+phase.Repeat*blksize))
			masm.J(jit.Less, &l3)
		} else if phase.Masked == 0 {
			// Residual phase.
			if phase.Offset == 0 || vecsize == sasm.Main().VectorSize() {
				// Same vector size as bulk; unroll directly into sum
				// registers.
				for i := 0; i < phase.Unrolls; i++ {
					disp := int32(blkstart + i*vecsize*dsize)
					gen.Load(elem[i], jit.Mem(a, disp))
					gen.MulAdd(sum[i], elem[i], jit.Mem(bPtr, disp), false)
				}
			} else if phase.Unrolls == 1 {
				// Single residual; merge into first sum register.
				gen.Load(elem[0], jit.Mem(a, int32(blkstart)))
				gen.Mul(elem[0], elem[0], jit.Mem(bPtr, int32(blkstart)))
				sasm.Main().Add(sum[0], sum[0], elem[0])
			} else {
				// Accumulate unrolled residual and merge into first sum
				// register.
				acc := sasm.Alloc()
				gen.Zero(acc)
				for i := 0; i < phase.Unrolls; i++ {
					disp := int32(blkstart + i*vecsize*dsize)
					gen.Load(elem[i], jit.Mem(a, disp))
					gen.MulAdd(acc, elem[i], jit.Mem(bPtr, disp), false)
				}
				sasm.Main().Add(sum[0], sum[0], acc)
			}
		} else {
			// Masked phase.
			if phase.Unrolls != 1 {
				klog.Fatalf("matmul: masked phase with %d unrolls", phase.Unrolls)
			}
			gen.MaskedLoad(elem[0], jit.Mem(a, int32(blkstart)))
			gen.MaskedMulAdd(sum[0], elem[0], jit.Mem(bPtr, int32(blkstart)))
		}
	}

	// Horizontal sum of results.
	sasm.Sum(sum)
	sasm.Main().Sum(sum[0])

	// Save result in C.
	if k.accumulate {
		sasm.Scalar().AddMem(sum[0], sum[0], jit.Mem(c, 0))
	}
	sasm.Scalar().Store(jit.Mem(c, 0), sum[0])
	masm.AddqImm(c, int32(dsize))

	// Next row in B.
	if args.B().height() > 1 {
		masm.AddqImm(bPtr, int32(args.B().stride()))
		masm.Cmpq(bPtr, bEnd)
		masm.J(jit.Less, &l2)
	}

	// Next row in A.
	if args.A().height() > 1 {
		if args.C().padding() > 0 {
			masm.AddqImm(c, int32(args.C().padding()))
		}
		masm.AddqImm(a, int32(args.A().stride()))
		masm.Cmpq(a, aEnd)
		masm.J(jit.Less, &l1)
	}
}

// generateColCol computes dot products between columns in A and rows in B.
// With both operands column major there is no vectorisable stride pattern,
// so the innermost dot product runs on the scalar generator.
func (k *SIMDMatMul) generateColCol(step *graph.Step, masm *jit.MacroAssembler,
	args *MatMulArgs) {
	dtype := args.C().dtype()
	dsize := args.C().Tensor().ElementSize()
	sasm := simd.NewAssembler(masm, dtype, true)
	defer sasm.Release()
	step.SetVariant(sasm.Name() + "CC")
	if args.A().height() != args.B().width() {
		klog.Fatalf("matmul: A height %d does not match B width %d", args.A().height(), args.B().width())
	}

	// Allocate registers.
	a := masm.RR().Alloc()
	b := masm.RR().Alloc()
	c := masm.RR().Alloc()
	bPtr := masm.RR().Alloc()
	aEnd := masm.RR().Alloc()
	bEnd := masm.RR().Alloc()
	aOfs := masm.RR().Alloc()
	bOfs := masm.RR().Alloc()
	elem := sasm.Alloc()
	sum := sasm.Alloc()

	// Load tensor addresses.
	masm.LoadCellAddress(a, args.A().Tensor().Offset())
	masm.LoadCellAddress(b, args.B().Tensor().Offset())
	masm.LoadCellAddress(c, args.C().Tensor().Offset())
	if args.A().width() > 1 {
		masm.Leaq(aEnd, jit.Mem(a, int32(args.A().width()*dsize)))
	}
	if args.B().height() > 1 {
		masm.Leaq(bEnd, jit.Mem(b, int32(args.B().sizeBytes())))
	}

	// Loop over columns in A.
	var l1 jit.Label
	masm.Bind(&l1)

	// Loop over rows in B.
	masm.Movq(bPtr, b)
	var l2 jit.Label
	masm.Bind(&l2)

	// Compute dot product between column in A and row in B.
	gen := sasm.Scalar()
	if args.B().width() == 1 {
		gen.Load(sum, jit.Mem(a, 0))
		gen.Mul(sum, sum, jit.Mem(bPtr, 0))
	} else {
		masm.Xorq(aOfs, aOfs)
		masm.Xorq(bOfs, bOfs)
		gen.Zero(sum)
		var l3 jit.Label
		masm.Bind(&l3)
		gen.Load(elem, jit.MemIndex(a, aOfs, jit.Times1, 0))
		gen.MulAdd(sum, elem, jit.MemIndex(bPtr, bOfs, jit.Times1, 0), false)
		masm.AddqImm(aOfs, int32(args.A().stride()))
		masm.AddqImm(bOfs, int32(dsize))
		masm.CmpqImm(bOfs, int32(args.B().width()*dsize))
		masm.J(jit.Less, &l3)
	}

	// Save result in C.
	if k.accumulate {
		gen.AddMem(sum, sum, jit.Mem(c, 0))
	}
	gen.Store(jit.Mem(c, 0), sum)
	masm.AddqImm(c, int32(dsize))

	// Next row in B.
	if args.B().height() > 1 {
		masm.AddqImm(bPtr, int32(args.B().stride()))
		masm.Cmpq(bPtr, bEnd)
		masm.J(jit.Less, &l2)
	}

	// Next column in A.
	if args.A().width() > 1 {
		if args.C().padding() > 0 {
			masm.AddqImm(c, int32(args.C().padding()))
		}
		masm.AddqImm(a, int32(dsize))
		masm.Cmpq(a, aEnd)
		masm.J(jit.Less, &l1)
	}
}

// Complexity implements graph.Kernel: two operations per fused
// multiply-add.
func (k *SIMDMatMul) Complexity(step *graph.Step) int64 {
	args := NewMatMulArgs(step)
	return int64(args.C().Tensor().Elements()) * int64(args.A().Shape().Dim(1)) * 2
}
