package simd

import "github.com/gomlx/myelin/jit"

// avx512Float generates 512-bit float vector code using ZMM registers. It
// owns one opmask register for the masked operations, acquired at
// construction and held until Release.
type avx512Float struct {
	base
	mask jit.OpmaskRegister
}

func newAVX512Float(masm *jit.MacroAssembler, aligned bool) *avx512Float {
	return &avx512Float{base: base{masm: masm, aligned: aligned}, mask: masm.KK().Alloc()}
}

func (g *avx512Float) Release() {
	g.masm.KK().Release(g.mask)
}

// Sixteen 32-bit floats per ZMM register.
func (g *avx512Float) VectorBytes() int { return 64 }
func (g *avx512Float) VectorSize() int  { return 16 }
func (g *avx512Float) Alloc() int       { return g.masm.MM().Alloc(true) }

func (g *avx512Float) Load(dst int, src jit.Operand) {
	if g.aligned {
		g.masm.Vmovaps(jit.ZMM(dst), src)
	} else {
		g.masm.Vmovups(jit.ZMM(dst), src)
	}
}

func (g *avx512Float) Store(dst jit.Operand, src int) {
	if g.aligned {
		g.masm.VmovapsStore(dst, jit.ZMM(src))
	} else {
		g.masm.VmovupsStore(dst, jit.ZMM(src))
	}
}

func (g *avx512Float) Broadcast(dst int, src jit.Operand) {
	g.masm.Vbroadcastss(jit.ZMM(dst), src)
}

func (g *avx512Float) Zero(r int) {
	g.masm.Vxorps(jit.ZMM(r), jit.ZMM(r), jit.ZMM(r))
}

func (g *avx512Float) Add(dst, src1, src2 int) {
	g.masm.Vaddps(jit.ZMM(dst), jit.ZMM(src1), jit.ZMM(src2))
}

func (g *avx512Float) AddMem(dst, src1 int, src2 jit.Operand) {
	g.masm.VaddpsMem(jit.ZMM(dst), jit.ZMM(src1), src2)
}

func (g *avx512Float) Mul(dst, src1 int, src2 jit.Operand) {
	g.masm.VmulpsMem(jit.ZMM(dst), jit.ZMM(src1), src2)
}

func (g *avx512Float) MulAdd(dst, src1 int, src2 jit.Operand, retain bool) {
	if g.masm.Enabled(jit.FeatureFMA3) {
		g.masm.Vfmadd231ps(jit.ZMM(dst), jit.ZMM(src1), src2)
	} else if retain {
		acc := g.masm.MM().AllocZ()
		g.masm.VmulpsMem(acc, jit.ZMM(src1), src2)
		g.masm.Vaddps(jit.ZMM(dst), jit.ZMM(dst), acc)
		g.masm.MM().ReleaseReg(acc)
	} else {
		g.masm.VmulpsMem(jit.ZMM(src1), jit.ZMM(src1), src2)
		g.masm.Vaddps(jit.ZMM(dst), jit.ZMM(dst), jit.ZMM(src1))
	}
}

func (g *avx512Float) Sum(r int) {
	sum := jit.ZMM(r)
	acc := g.masm.MM().AllocZ()
	g.masm.Vshuff32x4(acc, sum, sum, 0x0E)
	g.masm.Vaddps(sum, sum, acc)
	sumY, accY := jit.YMM(r), jit.YMM(int(acc.Code))
	g.masm.Vperm2f128(accY, sumY, sumY, 1)
	g.masm.Vhaddps(sumY, sumY, accY)
	g.masm.Vhaddps(sumY, sumY, sumY)
	g.masm.Vhaddps(sumY, sumY, sumY)
	g.masm.MM().ReleaseReg(acc)
}

func (g *avx512Float) SupportsMasking() bool { return true }

func (g *avx512Float) SetMask(bits int) {
	g.masm.LoadMask(bits, g.mask)
}

func (g *avx512Float) MaskedLoad(dst int, src jit.Operand) {
	if g.aligned {
		g.masm.VmovapsMasked(jit.ZMM(dst), src, g.mask, true)
	} else {
		g.masm.VmovupsMasked(jit.ZMM(dst), src, g.mask, true)
	}
}

func (g *avx512Float) MaskedStore(dst jit.Operand, src int) {
	if g.aligned {
		g.masm.VmovapsStoreMasked(dst, jit.ZMM(src), g.mask)
	} else {
		g.masm.VmovupsStoreMasked(dst, jit.ZMM(src), g.mask)
	}
}

func (g *avx512Float) MaskedAdd(dst, src1 int, src2 jit.Operand) {
	g.masm.VaddpsMasked(jit.ZMM(dst), jit.ZMM(src1), src2, g.mask)
}

func (g *avx512Float) MaskedMul(dst, src1 int, src2 jit.Operand) {
	g.masm.VmulpsMasked(jit.ZMM(dst), jit.ZMM(src1), src2, g.mask)
}

func (g *avx512Float) MaskedMulAdd(dst, src1 int, src2 jit.Operand) {
	g.masm.Vfmadd231psMasked(jit.ZMM(dst), jit.ZMM(src1), src2, g.mask)
}

// avx512ScalarFloat generates scalar float code in the low lane of ZMM
// registers, giving residual phases access to the full extended register
// file.
type avx512ScalarFloat struct {
	base
	noMasking
}

func newAVX512ScalarFloat(masm *jit.MacroAssembler, aligned bool) *avx512ScalarFloat {
	return &avx512ScalarFloat{base: base{masm: masm, aligned: aligned}}
}

func (g *avx512ScalarFloat) VectorBytes() int { return 4 }
func (g *avx512ScalarFloat) VectorSize() int  { return 1 }
func (g *avx512ScalarFloat) Alloc() int       { return g.masm.MM().Alloc(true) }

func (g *avx512ScalarFloat) Load(dst int, src jit.Operand) {
	g.masm.Vmovss(jit.ZMM(dst), src)
}

func (g *avx512ScalarFloat) Store(dst jit.Operand, src int) {
	g.masm.VmovssStore(dst, jit.ZMM(src))
}

// Broadcast is just a load for scalars.
func (g *avx512ScalarFloat) Broadcast(dst int, src jit.Operand) {
	g.Load(dst, src)
}

func (g *avx512ScalarFloat) Zero(r int) {
	g.masm.Vxorps(jit.ZMM(r), jit.ZMM(r), jit.ZMM(r))
}

func (g *avx512ScalarFloat) Add(dst, src1, src2 int) {
	g.masm.Vaddss(jit.ZMM(dst), jit.ZMM(src1), jit.ZMM(src2))
}

func (g *avx512ScalarFloat) AddMem(dst, src1 int, src2 jit.Operand) {
	g.masm.VaddssMem(jit.ZMM(dst), jit.ZMM(src1), src2)
}

func (g *avx512ScalarFloat) Mul(dst, src1 int, src2 jit.Operand) {
	g.masm.VmulssMem(jit.ZMM(dst), jit.ZMM(src1), src2)
}

func (g *avx512ScalarFloat) MulAdd(dst, src1 int, src2 jit.Operand, retain bool) {
	if g.masm.Enabled(jit.FeatureFMA3) {
		g.masm.Vfmadd231ss(jit.ZMM(dst), jit.ZMM(src1), src2)
	} else if retain {
		acc := g.masm.MM().AllocZ()
		g.masm.VmulssMem(acc, jit.ZMM(src1), src2)
		g.masm.Vaddss(jit.ZMM(dst), jit.ZMM(dst), acc)
		g.masm.MM().ReleaseReg(acc)
	} else {
		g.masm.VmulssMem(jit.ZMM(src1), jit.ZMM(src1), src2)
		g.masm.Vaddss(jit.ZMM(dst), jit.ZMM(dst), jit.ZMM(src1))
	}
}

// Sum is a no-op for scalars.
func (g *avx512ScalarFloat) Sum(r int) {}
