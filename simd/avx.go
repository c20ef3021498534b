package simd

import "github.com/gomlx/myelin/jit"

// avx256Float generates 256-bit float vector code using YMM registers.
type avx256Float struct {
	base
	noMasking
}

func newAVX256Float(masm *jit.MacroAssembler, aligned bool) *avx256Float {
	return &avx256Float{base: base{masm: masm, aligned: aligned}}
}

// Eight 32-bit floats per YMM register.
func (g *avx256Float) VectorBytes() int { return 32 }
func (g *avx256Float) VectorSize() int  { return 8 }
func (g *avx256Float) Alloc() int       { return g.masm.MM().Alloc(false) }

func (g *avx256Float) Load(dst int, src jit.Operand) {
	if g.aligned {
		g.masm.Vmovaps(jit.YMM(dst), src)
	} else {
		g.masm.Vmovups(jit.YMM(dst), src)
	}
}

func (g *avx256Float) Store(dst jit.Operand, src int) {
	if g.aligned {
		g.masm.VmovapsStore(dst, jit.YMM(src))
	} else {
		g.masm.VmovupsStore(dst, jit.YMM(src))
	}
}

func (g *avx256Float) Broadcast(dst int, src jit.Operand) {
	g.masm.Vbroadcastss(jit.YMM(dst), src)
}

func (g *avx256Float) Zero(r int) {
	g.masm.Vxorps(jit.YMM(r), jit.YMM(r), jit.YMM(r))
}

func (g *avx256Float) Add(dst, src1, src2 int) {
	g.masm.Vaddps(jit.YMM(dst), jit.YMM(src1), jit.YMM(src2))
}

func (g *avx256Float) AddMem(dst, src1 int, src2 jit.Operand) {
	g.masm.VaddpsMem(jit.YMM(dst), jit.YMM(src1), src2)
}

func (g *avx256Float) Mul(dst, src1 int, src2 jit.Operand) {
	g.masm.VmulpsMem(jit.YMM(dst), jit.YMM(src1), src2)
}

func (g *avx256Float) MulAdd(dst, src1 int, src2 jit.Operand, retain bool) {
	if g.masm.Enabled(jit.FeatureFMA3) {
		g.masm.Vfmadd231ps(jit.YMM(dst), jit.YMM(src1), src2)
	} else if retain {
		acc := g.masm.MM().AllocY()
		g.masm.VmulpsMem(acc, jit.YMM(src1), src2)
		g.masm.Vaddps(jit.YMM(dst), jit.YMM(dst), acc)
		g.masm.MM().ReleaseReg(acc)
	} else {
		g.masm.VmulpsMem(jit.YMM(src1), jit.YMM(src1), src2)
		g.masm.Vaddps(jit.YMM(dst), jit.YMM(dst), jit.YMM(src1))
	}
}

func (g *avx256Float) Sum(r int) {
	sum := jit.YMM(r)
	acc := g.masm.MM().AllocY()
	g.masm.Vperm2f128(acc, sum, sum, 1)
	g.masm.Vhaddps(sum, sum, acc)
	g.masm.Vhaddps(sum, sum, sum)
	g.masm.Vhaddps(sum, sum, sum)
	g.masm.MM().ReleaseReg(acc)
}

// avx128Float generates 128-bit float vector code using VEX encodings.
type avx128Float struct {
	base
	noMasking
}

func newAVX128Float(masm *jit.MacroAssembler, aligned bool) *avx128Float {
	return &avx128Float{base: base{masm: masm, aligned: aligned}}
}

// Four 32-bit floats per XMM register.
func (g *avx128Float) VectorBytes() int { return 16 }
func (g *avx128Float) VectorSize() int  { return 4 }
func (g *avx128Float) Alloc() int       { return g.masm.MM().Alloc(false) }

func (g *avx128Float) Load(dst int, src jit.Operand) {
	if g.aligned {
		g.masm.Vmovaps(jit.XMM(dst), src)
	} else {
		g.masm.Vmovups(jit.XMM(dst), src)
	}
}

func (g *avx128Float) Store(dst jit.Operand, src int) {
	if g.aligned {
		g.masm.VmovapsStore(dst, jit.XMM(src))
	} else {
		g.masm.VmovupsStore(dst, jit.XMM(src))
	}
}

func (g *avx128Float) Broadcast(dst int, src jit.Operand) {
	g.masm.Vbroadcastss(jit.XMM(dst), src)
}

func (g *avx128Float) Zero(r int) {
	g.masm.Vxorps(jit.XMM(r), jit.XMM(r), jit.XMM(r))
}

func (g *avx128Float) Add(dst, src1, src2 int) {
	g.masm.Vaddps(jit.XMM(dst), jit.XMM(src1), jit.XMM(src2))
}

func (g *avx128Float) AddMem(dst, src1 int, src2 jit.Operand) {
	g.masm.VaddpsMem(jit.XMM(dst), jit.XMM(src1), src2)
}

func (g *avx128Float) Mul(dst, src1 int, src2 jit.Operand) {
	g.masm.VmulpsMem(jit.XMM(dst), jit.XMM(src1), src2)
}

func (g *avx128Float) MulAdd(dst, src1 int, src2 jit.Operand, retain bool) {
	if g.masm.Enabled(jit.FeatureFMA3) {
		g.masm.Vfmadd231ps(jit.XMM(dst), jit.XMM(src1), src2)
	} else if retain {
		acc := g.masm.MM().AllocX()
		g.masm.VmulpsMem(acc, jit.XMM(src1), src2)
		g.masm.Vaddps(jit.XMM(dst), jit.XMM(dst), acc)
		g.masm.MM().ReleaseReg(acc)
	} else {
		g.masm.VmulpsMem(jit.XMM(src1), jit.XMM(src1), src2)
		g.masm.Vaddps(jit.XMM(dst), jit.XMM(dst), jit.XMM(src1))
	}
}

func (g *avx128Float) Sum(r int) {
	sum := jit.XMM(r)
	g.masm.Vhaddps(sum, sum, sum)
	g.masm.Vhaddps(sum, sum, sum)
}

// avxScalarFloat generates scalar float code in the low lane of XMM
// registers using VEX encodings.
type avxScalarFloat struct {
	base
	noMasking
}

func newAVXScalarFloat(masm *jit.MacroAssembler, aligned bool) *avxScalarFloat {
	return &avxScalarFloat{base: base{masm: masm, aligned: aligned}}
}

func (g *avxScalarFloat) VectorBytes() int { return 4 }
func (g *avxScalarFloat) VectorSize() int  { return 1 }
func (g *avxScalarFloat) Alloc() int       { return g.masm.MM().Alloc(false) }

func (g *avxScalarFloat) Load(dst int, src jit.Operand) {
	g.masm.Vmovss(jit.XMM(dst), src)
}

func (g *avxScalarFloat) Store(dst jit.Operand, src int) {
	g.masm.VmovssStore(dst, jit.XMM(src))
}

// Broadcast is just a load for scalars.
func (g *avxScalarFloat) Broadcast(dst int, src jit.Operand) {
	g.Load(dst, src)
}

func (g *avxScalarFloat) Zero(r int) {
	g.masm.Vxorps(jit.XMM(r), jit.XMM(r), jit.XMM(r))
}

func (g *avxScalarFloat) Add(dst, src1, src2 int) {
	g.masm.Vaddss(jit.XMM(dst), jit.XMM(src1), jit.XMM(src2))
}

func (g *avxScalarFloat) AddMem(dst, src1 int, src2 jit.Operand) {
	g.masm.VaddssMem(jit.XMM(dst), jit.XMM(src1), src2)
}

func (g *avxScalarFloat) Mul(dst, src1 int, src2 jit.Operand) {
	g.masm.VmulssMem(jit.XMM(dst), jit.XMM(src1), src2)
}

func (g *avxScalarFloat) MulAdd(dst, src1 int, src2 jit.Operand, retain bool) {
	if g.masm.Enabled(jit.FeatureFMA3) {
		g.masm.Vfmadd231ss(jit.XMM(dst), jit.XMM(src1), src2)
	} else if retain {
		acc := g.masm.MM().AllocX()
		g.masm.VmulssMem(acc, jit.XMM(src1), src2)
		g.masm.Vaddss(jit.XMM(dst), jit.XMM(dst), acc)
		g.masm.MM().ReleaseReg(acc)
	} else {
		g.masm.VmulssMem(jit.XMM(src1), jit.XMM(src1), src2)
		g.masm.Vaddss(jit.XMM(dst), jit.XMM(dst), jit.XMM(src1))
	}
}

// Sum is a no-op for scalars.
func (g *avxScalarFloat) Sum(r int) {}
