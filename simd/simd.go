// Package simd provides width-polymorphic SIMD code generators over the jit
// assembler, the cascade selecting the best generators for the CPU feature
// set, and the strategy planner decomposing linear spans into bulk, residual
// and masked phases.
//
// All generators expose the same instruction-agnostic contract (Generator);
// callers hold register codes as plain ints and never see the instruction
// set behind them. Masked operations are only available where
// SupportsMasking reports true (AVX-512); calling them elsewhere is a
// programmer error and aborts.
package simd

import (
	"github.com/gomlx/myelin/jit"
	"k8s.io/klog/v2"
)

// Generator emits vector operations of one fixed width. Register arguments
// are codes from Alloc; memory operands are addresses in emitted code.
type Generator interface {
	// VectorBytes returns the register width in bytes.
	VectorBytes() int
	// VectorSize returns the number of elements per register.
	VectorSize() int
	// Alloc reserves a vector register from the pool.
	Alloc() int

	// Load moves a full vector from memory into dst. The access is aligned
	// iff the cascade was constructed aligned.
	Load(dst int, src jit.Operand)
	// Store moves a full vector from src to memory.
	Store(dst jit.Operand, src int)
	// Broadcast replicates one scalar from memory across all lanes.
	Broadcast(dst int, src jit.Operand)
	// Zero clears a register using the self-XOR zero idiom.
	Zero(r int)
	// Add computes dst = src1 + src2 lane-wise.
	Add(dst, src1, src2 int)
	// AddMem computes dst = src1 + [src2] lane-wise.
	AddMem(dst, src1 int, src2 jit.Operand)
	// Mul computes dst = src1 * [src2] lane-wise.
	Mul(dst, src1 int, src2 jit.Operand)
	// MulAdd computes dst += src1 * [src2]. Without fused multiply-add
	// support the fallback needs a product register: with retain set, src1
	// is preserved through a temporary; otherwise src1 is clobbered, which
	// callers declare by passing retain=false only when src1 is dead.
	MulAdd(dst, src1 int, src2 jit.Operand, retain bool)
	// Sum reduces all lanes of r into lane 0.
	Sum(r int)

	// SupportsMasking reports whether the masked operations are available.
	SupportsMasking() bool
	// SetMask loads the generator's mask register with bits enabled lanes.
	SetMask(bits int)
	// MaskedLoad is Load under the mask, zeroing disabled lanes.
	MaskedLoad(dst int, src jit.Operand)
	// MaskedStore is Store under the mask, merging disabled lanes.
	MaskedStore(dst jit.Operand, src int)
	// MaskedAdd is AddMem under the mask (merge-masking).
	MaskedAdd(dst, src1 int, src2 jit.Operand)
	// MaskedMul is Mul under the mask (merge-masking).
	MaskedMul(dst, src1 int, src2 jit.Operand)
	// MaskedMulAdd is MulAdd under the mask (merge-masking).
	MaskedMulAdd(dst, src1 int, src2 jit.Operand)

	// Release returns generator-owned resources (the AVX-512 mask register)
	// to their pools.
	Release()
}

// base carries what every generator needs: the assembler and the alignment
// of the cascade.
type base struct {
	masm    *jit.MacroAssembler
	aligned bool
}

func (g *base) Release() {}

// noMasking provides the failing masked operations for generators without
// masking support. Reaching them is a contract violation the Supports gate
// must prevent.
type noMasking struct{}

func (noMasking) SupportsMasking() bool { return false }

func (noMasking) SetMask(int) {
	klog.Fatalf("simd: masking not supported")
}

func (noMasking) MaskedLoad(int, jit.Operand) {
	klog.Fatalf("simd: masking not supported")
}

func (noMasking) MaskedStore(jit.Operand, int) {
	klog.Fatalf("simd: masking not supported")
}

func (noMasking) MaskedAdd(int, int, jit.Operand) {
	klog.Fatalf("simd: masking not supported")
}

func (noMasking) MaskedMul(int, int, jit.Operand) {
	klog.Fatalf("simd: masking not supported")
}

func (noMasking) MaskedMulAdd(int, int, jit.Operand) {
	klog.Fatalf("simd: masking not supported")
}
