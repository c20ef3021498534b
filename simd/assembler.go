package simd

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/myelin/jit"
	"k8s.io/klog/v2"
)

// Compile-time checks that every generator satisfies the contract.
var (
	_ Generator = (*avx512Float)(nil)
	_ Generator = (*avx512ScalarFloat)(nil)
	_ Generator = (*avx256Float)(nil)
	_ Generator = (*avx128Float)(nil)
	_ Generator = (*avxScalarFloat)(nil)
	_ Generator = (*sse128Float)(nil)
	_ Generator = (*sseScalarFloat)(nil)
)

// Assembler owns a cascade of SIMD generators of descending width: the
// first (main) generator handles the bulk of a span, the rest handle
// residuals, ending in a scalar generator.
type Assembler struct {
	name    string
	cascade []Generator
}

// Supports reports whether SIMD code can be generated for the element type.
// Only 32-bit floats are currently supported.
func Supports(dtype dtypes.DType) bool {
	return dtype == dtypes.Float32
}

// VectorBytes returns the width in bytes of the main generator the feature
// set yields. Callers use it for alignment hints, so it reports the full
// register width regardless of the element size.
func VectorBytes(features jit.Features, dtype dtypes.DType) int {
	if features.Has(jit.FeatureAVX512F) {
		return 64
	}
	if features.Has(jit.FeatureAVX) {
		return 32
	}
	if features.Has(jit.FeatureSSE) {
		return 16
	}
	return int(dtype.Memory())
}

// NewAssembler builds the generator cascade for the element type on the
// assembler's feature set. aligned promises that every memory operand the
// generators will see is aligned to the main vector width.
func NewAssembler(masm *jit.MacroAssembler, dtype dtypes.DType, aligned bool) *Assembler {
	s := &Assembler{}
	switch dtype {
	case dtypes.Float32:
		switch {
		case masm.Enabled(jit.FeatureAVX512F):
			s.name = "AVX512Flt"
			s.add(newAVX512Float(masm, aligned))
			s.add(newAVX512ScalarFloat(masm, aligned))
		case masm.Enabled(jit.FeatureAVX):
			s.name = "AVXFlt"
			s.add(newAVX256Float(masm, aligned))
			s.add(newAVX128Float(masm, aligned))
			s.add(newAVXScalarFloat(masm, aligned))
		case masm.Enabled(jit.FeatureSSE):
			s.name = "SSEFlt"
			s.add(newSSE128Float(masm, aligned))
			s.add(newSSEScalarFloat(masm, aligned))
		}
	default:
		klog.Fatalf("simd: unsupported type %s", dtype)
	}
	return s
}

func (s *Assembler) add(g Generator) {
	s.cascade = append(s.cascade, g)
}

// Name returns the cascade's variant label, e.g. "AVXFlt".
func (s *Assembler) Name() string { return s.name }

// Main returns the widest generator.
func (s *Assembler) Main() Generator { return s.cascade[0] }

// Cascade returns the full ordered generator list, widest first. The
// strategy planner walks it for residuals: the main generator again (for
// main-width residuals and masked tails), then the narrower generators down
// to scalar.
func (s *Assembler) Cascade() []Generator { return s.cascade }

// Scalar returns the narrowest generator.
func (s *Assembler) Scalar() Generator { return s.cascade[len(s.cascade)-1] }

// Alloc reserves one register from the main generator.
func (s *Assembler) Alloc() int { return s.Main().Alloc() }

// AllocVec reserves n registers from the main generator.
func (s *Assembler) AllocVec(n int) []int {
	regs := make([]int, n)
	for i := range regs {
		regs[i] = s.Main().Alloc()
	}
	return regs
}

// Sum adds the registers into regs[0]. Four registers use tree reduction to
// shorten the dependency chain; other counts fold left.
func (s *Assembler) Sum(regs []int) {
	if len(regs) == 4 {
		s.Main().Add(regs[0], regs[0], regs[2])
		s.Main().Add(regs[1], regs[1], regs[3])
		s.Main().Add(regs[0], regs[0], regs[1])
	} else {
		for n := 1; n < len(regs); n++ {
			s.Main().Add(regs[0], regs[0], regs[n])
		}
	}
}

// Release returns generator-owned resources to their pools.
func (s *Assembler) Release() {
	for _, g := range s.cascade {
		g.Release()
	}
}
