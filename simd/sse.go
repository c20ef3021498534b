package simd

import "github.com/gomlx/myelin/jit"

// sse128Float generates 128-bit float vector code with non-VEX encodings.
// The legacy arithmetic forms require aligned memory operands, so the
// unaligned variants spill memory operands through a register first.
type sse128Float struct {
	base
	noMasking
}

func newSSE128Float(masm *jit.MacroAssembler, aligned bool) *sse128Float {
	return &sse128Float{base: base{masm: masm, aligned: aligned}}
}

// Four 32-bit floats per XMM register.
func (g *sse128Float) VectorBytes() int { return 16 }
func (g *sse128Float) VectorSize() int  { return 4 }
func (g *sse128Float) Alloc() int       { return g.masm.MM().Alloc(false) }

func (g *sse128Float) Load(dst int, src jit.Operand) {
	if g.aligned {
		g.masm.Movaps(jit.XMM(dst), src)
	} else {
		g.masm.Movups(jit.XMM(dst), src)
	}
}

func (g *sse128Float) Store(dst jit.Operand, src int) {
	if g.aligned {
		g.masm.MovapsStore(dst, jit.XMM(src))
	} else {
		g.masm.MovupsStore(dst, jit.XMM(src))
	}
}

func (g *sse128Float) Broadcast(dst int, src jit.Operand) {
	g.masm.Movss(jit.XMM(dst), src)
	g.masm.Shufps(jit.XMM(dst), jit.XMM(dst), 0)
}

func (g *sse128Float) Zero(r int) {
	g.masm.Xorps(jit.XMM(r), jit.XMM(r))
}

func (g *sse128Float) Add(dst, src1, src2 int) {
	if dst != src1 {
		g.masm.MovapsReg(jit.XMM(dst), jit.XMM(src1))
	}
	g.masm.Addps(jit.XMM(dst), jit.XMM(src2))
}

func (g *sse128Float) AddMem(dst, src1 int, src2 jit.Operand) {
	if dst != src1 {
		g.masm.MovapsReg(jit.XMM(dst), jit.XMM(src1))
	}
	if g.aligned {
		g.masm.AddpsMem(jit.XMM(dst), src2)
	} else {
		mem := g.masm.MM().AllocX()
		g.masm.Movups(mem, src2)
		g.masm.Addps(jit.XMM(dst), mem)
		g.masm.MM().ReleaseReg(mem)
	}
}

func (g *sse128Float) Mul(dst, src1 int, src2 jit.Operand) {
	if dst != src1 {
		g.masm.MovapsReg(jit.XMM(dst), jit.XMM(src1))
	}
	if g.aligned {
		g.masm.MulpsMem(jit.XMM(dst), src2)
	} else {
		mem := g.masm.MM().AllocX()
		g.masm.Movups(mem, src2)
		g.masm.Mulps(jit.XMM(dst), mem)
		g.masm.MM().ReleaseReg(mem)
	}
}

func (g *sse128Float) MulAdd(dst, src1 int, src2 jit.Operand, retain bool) {
	if retain {
		if g.aligned {
			acc := g.masm.MM().AllocX()
			g.masm.MovapsReg(acc, jit.XMM(src1))
			g.masm.MulpsMem(acc, src2)
			g.masm.Addps(jit.XMM(dst), acc)
			g.masm.MM().ReleaseReg(acc)
		} else {
			acc := g.masm.MM().AllocX()
			mem := g.masm.MM().AllocX()
			g.masm.MovapsReg(acc, jit.XMM(src1))
			g.masm.Movups(mem, src2)
			g.masm.Mulps(acc, mem)
			g.masm.Addps(jit.XMM(dst), acc)
			g.masm.MM().ReleaseReg(acc)
			g.masm.MM().ReleaseReg(mem)
		}
	} else {
		if g.aligned {
			g.masm.MulpsMem(jit.XMM(src1), src2)
			g.masm.Addps(jit.XMM(dst), jit.XMM(src1))
		} else {
			mem := g.masm.MM().AllocX()
			g.masm.Movups(mem, src2)
			g.masm.Mulps(jit.XMM(src1), mem)
			g.masm.Addps(jit.XMM(dst), jit.XMM(src1))
			g.masm.MM().ReleaseReg(mem)
		}
	}
}

func (g *sse128Float) Sum(r int) {
	sum := jit.XMM(r)
	g.masm.Haddps(sum, sum)
	g.masm.Haddps(sum, sum)
}

// sseScalarFloat generates scalar float code in the low lane of XMM
// registers with non-VEX encodings.
type sseScalarFloat struct {
	base
	noMasking
}

func newSSEScalarFloat(masm *jit.MacroAssembler, aligned bool) *sseScalarFloat {
	return &sseScalarFloat{base: base{masm: masm, aligned: aligned}}
}

func (g *sseScalarFloat) VectorBytes() int { return 4 }
func (g *sseScalarFloat) VectorSize() int  { return 1 }
func (g *sseScalarFloat) Alloc() int       { return g.masm.MM().Alloc(false) }

func (g *sseScalarFloat) Load(dst int, src jit.Operand) {
	g.masm.Movss(jit.XMM(dst), src)
}

func (g *sseScalarFloat) Store(dst jit.Operand, src int) {
	g.masm.MovssStore(dst, jit.XMM(src))
}

// Broadcast is just a load for scalars.
func (g *sseScalarFloat) Broadcast(dst int, src jit.Operand) {
	g.Load(dst, src)
}

func (g *sseScalarFloat) Zero(r int) {
	g.masm.Xorps(jit.XMM(r), jit.XMM(r))
}

func (g *sseScalarFloat) Add(dst, src1, src2 int) {
	if dst != src1 {
		g.masm.MovssReg(jit.XMM(dst), jit.XMM(src1))
	}
	g.masm.Addss(jit.XMM(dst), jit.XMM(src2))
}

func (g *sseScalarFloat) AddMem(dst, src1 int, src2 jit.Operand) {
	if dst != src1 {
		g.masm.MovssReg(jit.XMM(dst), jit.XMM(src1))
	}
	g.masm.AddssMem(jit.XMM(dst), src2)
}

func (g *sseScalarFloat) Mul(dst, src1 int, src2 jit.Operand) {
	if dst != src1 {
		g.masm.MovssReg(jit.XMM(dst), jit.XMM(src1))
	}
	g.masm.MulssMem(jit.XMM(dst), src2)
}

func (g *sseScalarFloat) MulAdd(dst, src1 int, src2 jit.Operand, retain bool) {
	if retain {
		acc := g.masm.MM().AllocX()
		g.masm.MovssReg(acc, jit.XMM(src1))
		g.masm.MulssMem(acc, src2)
		g.masm.Addss(jit.XMM(dst), acc)
		g.masm.MM().ReleaseReg(acc)
	} else {
		g.masm.MulssMem(jit.XMM(src1), src2)
		g.masm.Addss(jit.XMM(dst), jit.XMM(src1))
	}
}

// Sum is a no-op for scalars.
func (g *sseScalarFloat) Sum(r int) {}
