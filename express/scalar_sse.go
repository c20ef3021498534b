package express

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/myelin/jit"
	"k8s.io/klog/v2"
)

// ScalarFltSSE generates scalar float expressions using SSE and XMM
// registers, for 32-bit and 64-bit floats.
type ScalarFltSSE struct {
	masm   *jit.MacroAssembler
	dtype  dtypes.DType
	regs   []int
	auxXMM []int
	auxGP  []jit.Register
}

// NewScalarFltSSE returns a generator for the element type.
func NewScalarFltSSE(masm *jit.MacroAssembler, dtype dtypes.DType) *ScalarFltSSE {
	if dtype != dtypes.Float32 && dtype != dtypes.Float64 {
		klog.Fatalf("express: unsupported type %s", dtype)
	}
	return &ScalarFltSSE{masm: masm, dtype: dtype}
}

// Name returns the generator's variant label.
func (g *ScalarFltSSE) Name() string { return "FltSSE" }

func (g *ScalarFltSSE) flt() bool { return g.dtype == dtypes.Float32 }

// Reserve maps the expression's virtual registers to XMM registers and
// reserves the auxiliary registers its op set needs. It returns the number
// of auxiliary XMM and general purpose registers taken (0-2 and 0-1).
func (g *ScalarFltSSE) Reserve(e *Expression) (auxXMM, auxGP int) {
	g.regs = make([]int, e.NumRegs())
	for i := range g.regs {
		g.regs[i] = g.masm.MM().Alloc(false)
	}

	if e.Has(OpBitAnd, OpBitOr, OpAnd, OpOr, OpXor, OpAndNot,
		OpCvtFltInt, OpCvtIntFlt, OpSubInt) {
		auxXMM = 1
	}
	if e.Has(OpNot) {
		auxXMM = 2
		auxGP = 1
	}

	g.auxXMM = make([]int, auxXMM)
	for i := range g.auxXMM {
		g.auxXMM[i] = g.masm.MM().Alloc(false)
	}
	g.auxGP = make([]jit.Register, auxGP)
	for i := range g.auxGP {
		g.auxGP[i] = g.masm.RR().Alloc()
	}
	return auxXMM, auxGP
}

// Release returns all reserved registers to their pools.
func (g *ScalarFltSSE) Release() {
	for _, r := range g.regs {
		g.masm.MM().Release(r)
	}
	for _, r := range g.auxXMM {
		g.masm.MM().Release(r)
	}
	for _, r := range g.auxGP {
		g.masm.RR().Release(r)
	}
	g.regs, g.auxXMM, g.auxGP = nil, nil, nil
}

func (g *ScalarFltSSE) xmm(r Reg) jit.VecRegister {
	return jit.XMM(g.regs[r])
}

func (g *ScalarFltSSE) xmmAux(i int) jit.VecRegister {
	return jit.XMM(g.auxXMM[i])
}

// Generate emits the whole expression. Reserve must have run.
func (g *ScalarFltSSE) Generate(e *Expression) {
	for _, op := range e.Ops {
		g.generateOp(op)
	}
}

func (g *ScalarFltSSE) generateOp(op *Op) {
	masm := g.masm
	switch op.Type {
	case OpMov:
		if op.ZeroImm && masm.Enabled(jit.FeatureZeroIdiom) {
			// Use XOR to zero the register instead of loading a constant
			// from memory. The floating point form avoids bypass delays
			// between the integer and floating point units.
			if g.flt() {
				masm.Xorps(g.xmm(op.Dst), g.xmm(op.Dst))
			} else {
				masm.Xorpd(g.xmm(op.Dst), g.xmm(op.Dst))
			}
		} else {
			g.move(op)
		}
	case OpAdd:
		g.fltOp(op, masm.Addss, masm.Addsd, masm.AddssMem, masm.AddsdMem)
	case OpSub:
		g.fltOp(op, masm.Subss, masm.Subsd, masm.SubssMem, masm.SubsdMem)
	case OpMul:
		g.fltOp(op, masm.Mulss, masm.Mulsd, masm.MulssMem, masm.MulsdMem)
	case OpDiv:
		g.fltOp(op, masm.Divss, masm.Divsd, masm.DivssMem, masm.DivsdMem)
	case OpMinimum:
		g.fltOp(op, masm.Minss, masm.Minsd, masm.MinssMem, masm.MinsdMem)
	case OpMaximum:
		g.fltOp(op, masm.Maxss, masm.Maxsd, masm.MaxssMem, masm.MaxsdMem)
	case OpSqrt:
		g.fltOp(op, masm.Sqrtss, masm.Sqrtsd, masm.SqrtssMem, masm.SqrtsdMem)
	case OpCmpEqOQ:
		g.compare(op, jit.CmpEQOQ)
	case OpCmpNeUQ:
		g.compare(op, jit.CmpNEQUQ)
	case OpCmpLtOQ:
		g.compare(op, jit.CmpLTOQ)
	case OpCmpLeOQ:
		g.compare(op, jit.CmpLEOQ)
	case OpCmpGtOQ:
		g.compare(op, jit.CmpGTOQ)
	case OpCmpGeOQ:
		g.compare(op, jit.CmpGEOQ)
	case OpCond:
		g.conditional(op)
	case OpSelect:
		g.selectOp(op)
	case OpBitAnd, OpBitOr, OpAnd, OpOr, OpXor, OpAndNot, OpNot:
		g.registerOp(op)
	case OpFloor:
		if !masm.Enabled(jit.FeatureSSE41) {
			klog.Fatalf("express: FLOOR requires SSE4.1")
		}
		g.fltOp(op,
			func(dst, src jit.VecRegister) { masm.Roundss(dst, src, jit.RoundDown) },
			func(dst, src jit.VecRegister) { masm.Roundsd(dst, src, jit.RoundDown) },
			func(dst jit.VecRegister, src jit.Operand) { masm.RoundssMem(dst, src, jit.RoundDown) },
			func(dst jit.VecRegister, src jit.Operand) { masm.RoundsdMem(dst, src, jit.RoundDown) })
	case OpCvtFltInt, OpCvtIntFlt:
		if !masm.Enabled(jit.FeatureSSE2) {
			klog.Fatalf("express: %s requires SSE2", op.Type)
		}
		g.registerOp(op)
	case OpCvtExpInt:
		g.shift(op, false, g.exponentBits())
	case OpCvtIntExp:
		g.shift(op, true, g.exponentBits())
	case OpSubInt:
		g.registerOp(op)
	case OpSum:
		g.fltAccOp(op, masm.Addss, masm.Addsd, masm.AddssMem, masm.AddsdMem)
	case OpProduct:
		g.fltAccOp(op, masm.Mulss, masm.Mulsd, masm.MulssMem, masm.MulsdMem)
	case OpMin:
		g.fltAccOp(op, masm.Minss, masm.Minsd, masm.MinssMem, masm.MinsdMem)
	case OpMax:
		g.fltAccOp(op, masm.Maxss, masm.Maxsd, masm.MaxssMem, masm.MaxsdMem)
	case OpReduce:
		g.reduce(op)
	default:
		klog.Fatalf("express: unsupported op %s", op.Type)
	}
}

func (g *ScalarFltSSE) exponentBits() byte {
	if g.flt() {
		return 23
	}
	return 52
}

// move emits a scalar move between registers and memory.
func (g *ScalarFltSSE) move(op *Op) {
	masm := g.masm
	switch {
	case op.Dst != NoReg && op.Src != NoReg:
		if g.flt() {
			masm.MovssReg(g.xmm(op.Dst), g.xmm(op.Src))
		} else {
			masm.MovsdReg(g.xmm(op.Dst), g.xmm(op.Src))
		}
	case op.Dst != NoReg:
		if g.flt() {
			masm.Movss(g.xmm(op.Dst), op.Args[0])
		} else {
			masm.Movsd(g.xmm(op.Dst), op.Args[0])
		}
	case op.Src != NoReg:
		if g.flt() {
			masm.MovssStore(op.Result, g.xmm(op.Src))
		} else {
			masm.MovsdStore(op.Result, g.xmm(op.Src))
		}
	default:
		klog.Fatalf("express: MOV without register operand")
	}
}

// fltOp emits a two-operand arithmetic op, dispatching on element type and
// on whether the second operand is a register or memory.
func (g *ScalarFltSSE) fltOp(op *Op,
	fltRR, dblRR func(dst, src jit.VecRegister),
	fltRM, dblRM func(dst jit.VecRegister, src jit.Operand)) {
	if op.Dst == NoReg {
		klog.Fatalf("express: %s without destination register", op.Type)
	}
	dst := g.xmm(op.Dst)
	if op.Src != NoReg {
		if g.flt() {
			fltRR(dst, g.xmm(op.Src))
		} else {
			dblRR(dst, g.xmm(op.Src))
		}
	} else {
		if g.flt() {
			fltRM(dst, op.Args[0])
		} else {
			dblRM(dst, op.Args[0])
		}
	}
}

// fltAccOp is fltOp folding into the accumulator register.
func (g *ScalarFltSSE) fltAccOp(op *Op,
	fltRR, dblRR func(dst, src jit.VecRegister),
	fltRM, dblRM func(dst jit.VecRegister, src jit.Operand)) {
	if op.Acc == NoReg {
		klog.Fatalf("express: %s without accumulator register", op.Type)
	}
	acc := g.xmm(op.Acc)
	if op.Src != NoReg {
		if g.flt() {
			fltRR(acc, g.xmm(op.Src))
		} else {
			dblRR(acc, g.xmm(op.Src))
		}
	} else {
		if g.flt() {
			fltRM(acc, op.Args[0])
		} else {
			dblRM(acc, op.Args[0])
		}
	}
}

// compare emits a scalar compare with the predicate immediate.
func (g *ScalarFltSSE) compare(op *Op, pred byte) {
	masm := g.masm
	g.fltOp(op,
		func(dst, src jit.VecRegister) { masm.Cmpss(dst, src, pred) },
		func(dst, src jit.VecRegister) { masm.Cmpsd(dst, src, pred) },
		func(dst jit.VecRegister, src jit.Operand) { masm.CmpssMem(dst, src, pred) },
		func(dst jit.VecRegister, src jit.Operand) { masm.CmpsdMem(dst, src, pred) })
}

// shift moves the argument into the destination and shifts it in the
// integer domain, extracting or injecting the exponent field.
func (g *ScalarFltSSE) shift(op *Op, left bool, bits byte) {
	masm := g.masm
	if op.Dst == NoReg {
		klog.Fatalf("express: %s without destination register", op.Type)
	}
	if !masm.Enabled(jit.FeatureSSE2) {
		klog.Fatalf("express: %s requires SSE2", op.Type)
	}
	dst := g.xmm(op.Dst)
	if op.Src != NoReg {
		masm.MovapdReg(dst, g.xmm(op.Src))
	} else if g.flt() {
		masm.Movss(dst, op.Args[0])
	} else {
		masm.Movsd(dst, op.Args[0])
	}

	if g.flt() {
		if left {
			masm.Pslld(dst, bits)
		} else {
			masm.Psrld(dst, bits)
		}
	} else {
		if left {
			masm.Psllq(dst, bits)
		} else {
			masm.Psrlq(dst, bits)
		}
	}
}

// registerOp emits an op whose instruction has no memory form, loading a
// memory operand into an auxiliary register first.
func (g *ScalarFltSSE) registerOp(op *Op) {
	masm := g.masm
	if op.Dst == NoReg {
		klog.Fatalf("express: %s without destination register", op.Type)
	}
	dst := g.xmm(op.Dst)
	var src jit.VecRegister
	if op.Src != NoReg {
		src = g.xmm(op.Src)
	} else {
		src = g.xmmAux(0)
		if g.flt() {
			masm.Movss(src, op.Args[0])
		} else {
			masm.Movsd(src, op.Args[0])
		}
	}

	if g.flt() {
		switch op.Type {
		case OpCvtFltInt:
			masm.Cvttps2dq(dst, src)
		case OpCvtIntFlt:
			masm.Cvtdq2ps(dst, src)
		case OpSubInt:
			masm.Psubd(dst, src)
		case OpBitAnd, OpAnd:
			masm.Andps(dst, src)
		case OpBitOr, OpOr:
			masm.Orps(dst, src)
		case OpXor:
			masm.Xorps(dst, src)
		case OpAndNot:
			masm.Andnps(dst, src)
		case OpNot:
			g.notOp(op, dst, src)
		default:
			klog.Fatalf("express: unsupported register op %s", op.Type)
		}
	} else {
		switch op.Type {
		case OpCvtFltInt:
			masm.Cvttpd2dq(dst, src)
		case OpCvtIntFlt:
			masm.Cvtdq2pd(dst, src)
		case OpSubInt:
			masm.Psubq(dst, src)
		case OpBitAnd, OpAnd:
			masm.Andpd(dst, src)
		case OpBitOr, OpOr:
			masm.Orpd(dst, src)
		case OpXor:
			masm.Xorpd(dst, src)
		case OpAndNot:
			masm.Andnpd(dst, src)
		case OpNot:
			g.notOp(op, dst, src)
		default:
			klog.Fatalf("express: unsupported register op %s", op.Type)
		}
	}
}

// notOp implements NOT as XOR with all ones, materialised through the
// general purpose auxiliary. When src aliases dst the immediate goes
// through a second XMM auxiliary first.
func (g *ScalarFltSSE) notOp(op *Op, dst, src jit.VecRegister) {
	masm := g.masm
	aux := g.auxGP[0]
	if g.flt() {
		masm.MovlImm(aux, -1)
		if dst.Code == src.Code {
			masm.Movd(g.xmmAux(1), aux)
			masm.Xorps(dst, g.xmmAux(1))
		} else {
			masm.Movd(dst, aux)
			masm.Xorps(dst, src)
		}
	} else {
		masm.MovqImm(aux, -1)
		if dst.Code == src.Code {
			masm.MovqXmm(g.xmmAux(1), aux)
			masm.Xorpd(dst, g.xmmAux(1))
		} else {
			masm.MovqXmm(dst, aux)
			masm.Xorpd(dst, src)
		}
	}
}

// conditional emits COND: dst = mask != 0 ? src : src2.
func (g *ScalarFltSSE) conditional(op *Op) {
	masm := g.masm
	if op.Dst == NoReg || op.Src == NoReg || op.Mask == NoReg {
		klog.Fatalf("express: COND needs destination, source and mask registers")
	}
	var l1, l2 jit.Label
	masm.Ptest(g.xmm(op.Mask), g.xmm(op.Mask))
	masm.J(jit.Zero, &l1)
	masm.MovapsReg(g.xmm(op.Dst), g.xmm(op.Src))
	masm.Jmp(&l2)
	masm.Bind(&l1)
	if op.Src2 != NoReg {
		masm.MovapsReg(g.xmm(op.Dst), g.xmm(op.Src2))
	} else if g.flt() {
		masm.Movss(g.xmm(op.Dst), op.Args[0])
	} else {
		masm.Movsd(g.xmm(op.Dst), op.Args[0])
	}
	masm.Bind(&l2)
}

// selectOp emits SELECT: dst = mask != 0 ? src : 0.
func (g *ScalarFltSSE) selectOp(op *Op) {
	masm := g.masm
	if op.Dst == NoReg || op.Mask == NoReg {
		klog.Fatalf("express: SELECT needs destination and mask registers")
	}
	var l1, l2 jit.Label
	masm.Ptest(g.xmm(op.Mask), g.xmm(op.Mask))
	masm.J(jit.NotZero, &l1)
	if g.flt() {
		masm.Xorps(g.xmm(op.Dst), g.xmm(op.Dst))
	} else {
		masm.Xorpd(g.xmm(op.Dst), g.xmm(op.Dst))
	}
	if op.Src == op.Dst && op.Src != NoReg {
		masm.Bind(&l1)
	} else {
		masm.Jmp(&l2)
		masm.Bind(&l1)
		if op.Src != NoReg {
			masm.MovapsReg(g.xmm(op.Dst), g.xmm(op.Src))
		} else if g.flt() {
			masm.Movss(g.xmm(op.Dst), op.Args[0])
		} else {
			masm.Movsd(g.xmm(op.Dst), op.Args[0])
		}
	}
	masm.Bind(&l2)
}

// reduce moves the accumulator into the destination register or memory.
func (g *ScalarFltSSE) reduce(op *Op) {
	masm := g.masm
	if op.Acc == NoReg {
		klog.Fatalf("express: REDUCE without accumulator register")
	}
	if g.flt() {
		if op.Dst != NoReg {
			masm.MovssReg(g.xmm(op.Dst), g.xmm(op.Acc))
		} else {
			masm.MovssStore(op.Result, g.xmm(op.Acc))
		}
	} else {
		if op.Dst != NoReg {
			masm.MovsdReg(g.xmm(op.Dst), g.xmm(op.Acc))
		} else {
			masm.MovsdStore(op.Result, g.xmm(op.Acc))
		}
	}
}
