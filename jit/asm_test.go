package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emitted(t *testing.T, emit func(a *Assembler)) []byte {
	t.Helper()
	var a Assembler
	emit(&a)
	buf, err := a.Finish()
	require.NoError(t, err)
	return buf
}

func TestAssembler_GPEncodings(t *testing.T) {
	tests := []struct {
		name string
		emit func(a *Assembler)
		want []byte
	}{
		{"movq rax, rcx", func(a *Assembler) { a.Movq(RAX, RCX) }, []byte{0x48, 0x8B, 0xC1}},
		{"movq r10, rsi", func(a *Assembler) { a.Movq(R10, RSI) }, []byte{0x4C, 0x8B, 0xD6}},
		{"xorq rcx, rcx", func(a *Assembler) { a.Xorq(RCX, RCX) }, []byte{0x48, 0x31, 0xC9}},
		{"addq rcx, 8", func(a *Assembler) { a.AddqImm(RCX, 8) }, []byte{0x48, 0x83, 0xC1, 0x08}},
		{"addq rcx, 4096", func(a *Assembler) { a.AddqImm(RCX, 4096) },
			[]byte{0x48, 0x81, 0xC1, 0x00, 0x10, 0x00, 0x00}},
		{"addq rax, rdx", func(a *Assembler) { a.Addq(RAX, RDX) }, []byte{0x48, 0x01, 0xD0}},
		{"cmpq rcx, 16", func(a *Assembler) { a.CmpqImm(RCX, 16) }, []byte{0x48, 0x83, 0xF9, 0x10}},
		{"cmpq rax, rcx", func(a *Assembler) { a.Cmpq(RAX, RCX) }, []byte{0x48, 0x39, 0xC8}},
		{"leaq rax, [rdi+16]", func(a *Assembler) { a.Leaq(RAX, Mem(RDI, 16)) },
			[]byte{0x48, 0x8D, 0x47, 0x10}},
		{"leaq rcx, [rax+rdx]", func(a *Assembler) { a.Leaq(RCX, MemIndex(RAX, RDX, Times1, 0)) },
			[]byte{0x48, 0x8D, 0x0C, 0x10}},
		{"movq rcx, 96", func(a *Assembler) { a.MovqImm(RCX, 96) },
			[]byte{0x48, 0xC7, 0xC1, 0x60, 0x00, 0x00, 0x00}},
		{"movl eax, -1", func(a *Assembler) { a.MovlImm(RAX, -1) },
			[]byte{0xB8, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"ret", func(a *Assembler) { a.Ret() }, []byte{0xC3}},
		{"vzeroupper", func(a *Assembler) { a.Vzeroupper() }, []byte{0xC5, 0xF8, 0x77}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, emitted(t, test.emit))
		})
	}
}

func TestAssembler_SSEEncodings(t *testing.T) {
	tests := []struct {
		name string
		emit func(a *Assembler)
		want []byte
	}{
		{"movss xmm0, [rdi]", func(a *Assembler) { a.Movss(XMM(0), Mem(RDI, 0)) },
			[]byte{0xF3, 0x0F, 0x10, 0x07}},
		{"movss [rdi+4], xmm1", func(a *Assembler) { a.MovssStore(Mem(RDI, 4), XMM(1)) },
			[]byte{0xF3, 0x0F, 0x11, 0x4F, 0x04}},
		{"movups xmm0, [rax+rcx]", func(a *Assembler) { a.Movups(XMM(0), MemIndex(RAX, RCX, Times1, 0)) },
			[]byte{0x0F, 0x10, 0x04, 0x08}},
		{"movaps xmm2, [rdi]", func(a *Assembler) { a.Movaps(XMM(2), Mem(RDI, 0)) },
			[]byte{0x0F, 0x28, 0x17}},
		{"xorps xmm0, xmm0", func(a *Assembler) { a.Xorps(XMM(0), XMM(0)) },
			[]byte{0x0F, 0x57, 0xC0}},
		{"xorpd xmm1, xmm1", func(a *Assembler) { a.Xorpd(XMM(1), XMM(1)) },
			[]byte{0x66, 0x0F, 0x57, 0xC9}},
		{"addss xmm0, xmm1", func(a *Assembler) { a.Addss(XMM(0), XMM(1)) },
			[]byte{0xF3, 0x0F, 0x58, 0xC1}},
		{"mulss xmm0, [rdi+8]", func(a *Assembler) { a.MulssMem(XMM(0), Mem(RDI, 8)) },
			[]byte{0xF3, 0x0F, 0x59, 0x47, 0x08}},
		{"sqrtss xmm3, xmm3", func(a *Assembler) { a.Sqrtss(XMM(3), XMM(3)) },
			[]byte{0xF3, 0x0F, 0x51, 0xDB}},
		{"haddps xmm1, xmm1", func(a *Assembler) { a.Haddps(XMM(1), XMM(1)) },
			[]byte{0xF2, 0x0F, 0x7C, 0xC9}},
		{"shufps xmm0, xmm0, 0", func(a *Assembler) { a.Shufps(XMM(0), XMM(0), 0) },
			[]byte{0x0F, 0xC6, 0xC0, 0x00}},
		{"ptest xmm0, xmm0", func(a *Assembler) { a.Ptest(XMM(0), XMM(0)) },
			[]byte{0x66, 0x0F, 0x38, 0x17, 0xC0}},
		{"roundss xmm0, xmm1, down", func(a *Assembler) { a.Roundss(XMM(0), XMM(1), RoundDown) },
			[]byte{0x66, 0x0F, 0x3A, 0x0A, 0xC1, 0x01}},
		{"psrld xmm2, 23", func(a *Assembler) { a.Psrld(XMM(2), 23) },
			[]byte{0x66, 0x0F, 0x72, 0xD2, 0x17}},
		{"movd xmm0, eax", func(a *Assembler) { a.Movd(XMM(0), RAX) },
			[]byte{0x66, 0x0F, 0x6E, 0xC0}},
		{"movq xmm1, rax", func(a *Assembler) { a.MovqXmm(XMM(1), RAX) },
			[]byte{0x66, 0x48, 0x0F, 0x6E, 0xC8}},
		{"movss xmm8 uses rex", func(a *Assembler) { a.Movss(XMM(8), Mem(RDI, 0)) },
			[]byte{0xF3, 0x44, 0x0F, 0x10, 0x07}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, emitted(t, test.emit))
		})
	}
}

func TestAssembler_VEXEncodings(t *testing.T) {
	tests := []struct {
		name string
		emit func(a *Assembler)
		want []byte
	}{
		{"vaddps ymm0, ymm1, ymm2", func(a *Assembler) { a.Vaddps(YMM(0), YMM(1), YMM(2)) },
			[]byte{0xC5, 0xF4, 0x58, 0xC2}},
		{"vmulps xmm0, xmm1, [rdi]", func(a *Assembler) { a.VmulpsMem(XMM(0), XMM(1), Mem(RDI, 0)) },
			[]byte{0xC5, 0xF0, 0x59, 0x07}},
		{"vmovups ymm0, [rdi]", func(a *Assembler) { a.Vmovups(YMM(0), Mem(RDI, 0)) },
			[]byte{0xC5, 0xFC, 0x10, 0x07}},
		{"vmovups [rdi], ymm3", func(a *Assembler) { a.VmovupsStore(Mem(RDI, 0), YMM(3)) },
			[]byte{0xC5, 0xFC, 0x11, 0x1F}},
		{"vmovss xmm0, [rdi]", func(a *Assembler) { a.Vmovss(XMM(0), Mem(RDI, 0)) },
			[]byte{0xC5, 0xFA, 0x10, 0x07}},
		{"vxorps ymm1, ymm1, ymm1", func(a *Assembler) { a.Vxorps(YMM(1), YMM(1), YMM(1)) },
			[]byte{0xC5, 0xF4, 0x57, 0xC9}},
		{"vbroadcastss ymm0, [rdi]", func(a *Assembler) { a.Vbroadcastss(YMM(0), Mem(RDI, 0)) },
			[]byte{0xC4, 0xE2, 0x7D, 0x18, 0x07}},
		{"vfmadd231ps ymm0, ymm1, [rdi]", func(a *Assembler) { a.Vfmadd231ps(YMM(0), YMM(1), Mem(RDI, 0)) },
			[]byte{0xC4, 0xE2, 0x75, 0xB8, 0x07}},
		{"vfmadd231ss xmm0, xmm1, [rdi]", func(a *Assembler) { a.Vfmadd231ss(XMM(0), XMM(1), Mem(RDI, 0)) },
			[]byte{0xC4, 0xE2, 0x71, 0xB9, 0x07}},
		{"vhaddps ymm0, ymm0, ymm1", func(a *Assembler) { a.Vhaddps(YMM(0), YMM(0), YMM(1)) },
			[]byte{0xC5, 0xFF, 0x7C, 0xC1}},
		{"vperm2f128 ymm1, ymm0, ymm0, 1", func(a *Assembler) { a.Vperm2f128(YMM(1), YMM(0), YMM(0), 1) },
			[]byte{0xC4, 0xE3, 0x7D, 0x06, 0xC8, 0x01}},
		{"kmovw k1, eax", func(a *Assembler) { a.Kmovw(OpmaskRegister(1), RAX) },
			[]byte{0xC5, 0xF8, 0x92, 0xC8}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, emitted(t, test.emit))
		})
	}
}

func TestAssembler_EVEXEncodings(t *testing.T) {
	tests := []struct {
		name string
		emit func(a *Assembler)
		want []byte
	}{
		{"vmovups zmm0, [rdi]", func(a *Assembler) { a.Vmovups(ZMM(0), Mem(RDI, 0)) },
			[]byte{0x62, 0xF1, 0x7C, 0x48, 0x10, 0x07}},
		{"vmovups zmm0, [rdi+64] disp8*N", func(a *Assembler) { a.Vmovups(ZMM(0), Mem(RDI, 64)) },
			[]byte{0x62, 0xF1, 0x7C, 0x48, 0x10, 0x47, 0x01}},
		{"vmovups zmm0, [rdi+100] disp32", func(a *Assembler) { a.Vmovups(ZMM(0), Mem(RDI, 100)) },
			[]byte{0x62, 0xF1, 0x7C, 0x48, 0x10, 0x87, 0x64, 0x00, 0x00, 0x00}},
		{"vmovups zmm1{k1}{z}, [rdi]", func(a *Assembler) {
			a.VmovupsMasked(ZMM(1), Mem(RDI, 0), OpmaskRegister(1), true)
		}, []byte{0x62, 0xF1, 0x7C, 0xC9, 0x10, 0x0F}},
		{"vmovups [rdi]{k1}, zmm1", func(a *Assembler) {
			a.VmovupsStoreMasked(Mem(RDI, 0), ZMM(1), OpmaskRegister(1))
		}, []byte{0x62, 0xF1, 0x7C, 0x49, 0x11, 0x0F}},
		{"vaddps zmm0, zmm1, zmm2", func(a *Assembler) { a.Vaddps(ZMM(0), ZMM(1), ZMM(2)) },
			[]byte{0x62, 0xF1, 0x74, 0x48, 0x58, 0xC2}},
		{"vaddps zmm16, zmm17, zmm18", func(a *Assembler) { a.Vaddps(ZMM(16), ZMM(17), ZMM(18)) },
			[]byte{0x62, 0xA1, 0x74, 0x40, 0x58, 0xC2}},
		{"vfmadd231ps zmm0{k2}, zmm1, [rdi]", func(a *Assembler) {
			a.Vfmadd231psMasked(ZMM(0), ZMM(1), Mem(RDI, 0), OpmaskRegister(2))
		}, []byte{0x62, 0xF2, 0x75, 0x4A, 0xB8, 0x07}},
		{"vshuff32x4 zmm1, zmm0, zmm0, 0x0e", func(a *Assembler) {
			a.Vshuff32x4(ZMM(1), ZMM(0), ZMM(0), 0x0E)
		}, []byte{0x62, 0xF3, 0x7D, 0x48, 0x23, 0xC8, 0x0E}},
		{"vbroadcastss zmm0, [rdi]", func(a *Assembler) { a.Vbroadcastss(ZMM(0), Mem(RDI, 0)) },
			[]byte{0x62, 0xF2, 0x7D, 0x48, 0x18, 0x07}},
		{"vmovss zmm17, [rdi]", func(a *Assembler) { a.Vmovss(ZMM(17), Mem(RDI, 0)) },
			[]byte{0x62, 0xE1, 0x7E, 0x08, 0x10, 0x0F}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, emitted(t, test.emit))
		})
	}
}

func TestAssembler_Labels(t *testing.T) {
	// Backward branch: the loop body is 4+4=8 bytes before the jcc.
	var a Assembler
	var loop Label
	a.Bind(&loop)
	a.AddqImm(RCX, 1)
	a.CmpqImm(RCX, 16)
	a.J(Less, &loop)
	buf, err := a.Finish()
	require.NoError(t, err)
	// jcc is 6 bytes; rel32 = -(8 + 6).
	rel := int32(buf[len(buf)-4]) | int32(buf[len(buf)-3])<<8 |
		int32(buf[len(buf)-2])<<16 | int32(buf[len(buf)-1])<<24
	assert.Equal(t, int32(-14), rel)

	// Forward branch resolves at bind.
	var b Assembler
	var skip Label
	b.Jmp(&skip)
	b.Ret()
	b.Bind(&skip)
	b.Ret()
	buf, err = b.Finish()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE9, 0x01, 0x00, 0x00, 0x00, 0xC3, 0xC3}, buf)

	// Unbound labels are reported at Finish.
	var c Assembler
	var dangling Label
	c.Jmp(&dangling)
	_, err = c.Finish()
	assert.Error(t, err)
}

func TestAssembler_Determinism(t *testing.T) {
	emit := func() []byte {
		m := NewMacroAssembler(MakeFeatures(FeatureSSE, FeatureAVX, FeatureFMA3))
		r := m.RR().Alloc()
		m.LoadCellAddress(r, 128)
		var l Label
		m.Bind(&l)
		m.Vbroadcastss(YMM(0), Mem(r, 0))
		m.Vfmadd231ps(YMM(1), YMM(0), Mem(r, 32))
		m.AddqImm(r, 32)
		m.CmpqImm(r, 1024)
		m.J(Less, &l)
		buf, err := m.Finalize()
		require.NoError(t, err)
		return buf
	}
	assert.Equal(t, emit(), emit())
}

func TestRegisterPools(t *testing.T) {
	m := NewMacroAssembler(Detect())

	// The GP pool holds exactly the eight caller-saved registers outside
	// the cell base.
	seen := map[Register]bool{}
	var regs []Register
	for i := 0; i < 8; i++ {
		r := m.RR().Alloc()
		assert.False(t, seen[r])
		assert.NotEqual(t, CellBaseRegister, r)
		seen[r] = true
		regs = append(regs, r)
	}
	for _, r := range regs {
		m.RR().Release(r)
	}

	// Vector pool: non-extended allocations stay under 16.
	x := m.MM().Alloc(false)
	assert.Less(t, x, 16)
	m.MM().Release(x)

	// Opmask pool never hands out k0.
	k := m.KK().Alloc()
	assert.Greater(t, int(k), 0)
	m.KK().Release(k)
}
