package jit

import (
	"fmt"

	"k8s.io/klog/v2"
)

// Register is a 64-bit general purpose register.
type Register int8

// General purpose registers. RDI is the cell base register and RSP/RBP/RBX
// and R12-R15 are callee saved under both the System V and the Go assembly
// calling conventions, so the allocation pool never issues them.
const (
	RAX Register = 0
	RCX Register = 1
	RDX Register = 2
	RBX Register = 3
	RSP Register = 4
	RBP Register = 5
	RSI Register = 6
	RDI Register = 7
	R8  Register = 8
	R9  Register = 9
	R10 Register = 10
	R11 Register = 11
	R12 Register = 12
	R13 Register = 13
	R14 Register = 14
	R15 Register = 15

	// NoRegister marks an absent index register in an Operand.
	NoRegister Register = -1
)

// CellBaseRegister holds the address of the cell (instance) data area on
// entry to emitted code. It is never issued by the register pool.
const CellBaseRegister = RDI

// VecRegister is a SIMD register of a particular width. The same physical
// register file backs all widths; Bits selects the instruction encoding
// (128 = XMM, 256 = YMM, 512 = ZMM).
type VecRegister struct {
	Code int8
	Bits int16
}

// XMM returns the 128-bit view of vector register code.
func XMM(code int) VecRegister { return VecRegister{Code: int8(code), Bits: 128} }

// YMM returns the 256-bit view of vector register code.
func YMM(code int) VecRegister { return VecRegister{Code: int8(code), Bits: 256} }

// ZMM returns the 512-bit view of vector register code.
func ZMM(code int) VecRegister { return VecRegister{Code: int8(code), Bits: 512} }

func (v VecRegister) String() string {
	switch v.Bits {
	case 128:
		return fmt.Sprintf("xmm%d", v.Code)
	case 256:
		return fmt.Sprintf("ymm%d", v.Code)
	case 512:
		return fmt.Sprintf("zmm%d", v.Code)
	}
	return fmt.Sprintf("vec%d/%d", v.Code, v.Bits)
}

// OpmaskRegister is an AVX-512 predication register (k1-k7; k0 means
// unmasked and is never allocated).
type OpmaskRegister int8

// Scale is the index multiplier of a memory operand, stored as the SIB
// scale field (a shift amount).
type Scale uint8

const (
	Times1 Scale = 0
	Times2 Scale = 1
	Times4 Scale = 2
	Times8 Scale = 3
)

// Operand is a memory reference of the form [base + index*scale + disp].
type Operand struct {
	Base  Register
	Index Register
	Scale Scale
	Disp  int32
}

// Mem returns the operand [base + disp].
func Mem(base Register, disp int32) Operand {
	return Operand{Base: base, Index: NoRegister, Disp: disp}
}

// MemIndex returns the operand [base + index*scale + disp].
func MemIndex(base, index Register, scale Scale, disp int32) Operand {
	if index == RSP {
		klog.Fatalf("jit: RSP cannot be used as an index register")
	}
	return Operand{Base: base, Index: index, Scale: scale, Disp: disp}
}

// RegisterPool hands out general purpose registers for emitted code. Only
// caller-saved registers outside the cell base are pooled, so emitted code
// needs no spill prologue.
type RegisterPool struct {
	free []Register
}

func newRegisterPool() RegisterPool {
	return RegisterPool{free: []Register{RAX, RCX, RDX, RSI, R8, R9, R10, R11}}
}

// Alloc reserves a register. Exhaustion is a programmer error: the loop
// emitters are written against the fixed pool size.
func (p *RegisterPool) Alloc() Register {
	if len(p.free) == 0 {
		klog.Fatalf("jit: general purpose register pool exhausted")
	}
	r := p.free[0]
	p.free = p.free[1:]
	return r
}

// Release returns a register to the pool.
func (p *RegisterPool) Release(r Register) {
	p.free = append(p.free, r)
}

// VectorPool hands out SIMD register codes. The extended half (16-31) is
// only addressable with EVEX encodings, i.e. under AVX-512.
type VectorPool struct {
	used [32]bool
}

// Alloc reserves the lowest free register code. With extended set, codes up
// to 31 may be returned.
func (p *VectorPool) Alloc(extended bool) int {
	limit := 16
	if extended {
		limit = 32
	}
	for code := 0; code < limit; code++ {
		if !p.used[code] {
			p.used[code] = true
			return code
		}
	}
	klog.Fatalf("jit: vector register pool exhausted")
	return -1
}

// AllocX reserves a register and returns its 128-bit view.
func (p *VectorPool) AllocX() VecRegister { return XMM(p.Alloc(false)) }

// AllocY reserves a register and returns its 256-bit view.
func (p *VectorPool) AllocY() VecRegister { return YMM(p.Alloc(false)) }

// AllocZ reserves a register from the extended file and returns its 512-bit
// view.
func (p *VectorPool) AllocZ() VecRegister { return ZMM(p.Alloc(true)) }

// Release returns a register code to the pool.
func (p *VectorPool) Release(code int) {
	if code < 0 || code >= 32 || !p.used[code] {
		klog.Fatalf("jit: release of unallocated vector register %d", code)
	}
	p.used[code] = false
}

// ReleaseReg returns a typed vector register to the pool.
func (p *VectorPool) ReleaseReg(v VecRegister) { p.Release(int(v.Code)) }

// OpmaskPool hands out AVX-512 mask registers k1-k7.
type OpmaskPool struct {
	used [8]bool
}

// Alloc reserves a mask register.
func (p *OpmaskPool) Alloc() OpmaskRegister {
	for k := 1; k < 8; k++ {
		if !p.used[k] {
			p.used[k] = true
			return OpmaskRegister(k)
		}
	}
	klog.Fatalf("jit: opmask register pool exhausted")
	return -1
}

// Release returns a mask register to the pool.
func (p *OpmaskPool) Release(k OpmaskRegister) {
	if k < 1 || k > 7 || !p.used[k] {
		klog.Fatalf("jit: release of unallocated opmask register k%d", k)
	}
	p.used[k] = false
}
