package jit

import "k8s.io/klog/v2"

// VEX and EVEX instruction emitters. Methods taking a VecRegister pick the
// encoding from the register: 512-bit registers use EVEX, and so do
// registers 16-31 in the forms that accept them (scalar moves and
// arithmetic, three-operand packed ops, vbroadcastss); other 128/256-bit
// registers use VEX. Masked variants are EVEX-only.

func evexLL(bits int16) byte {
	switch bits {
	case 128:
		return 0
	case 256:
		return 1
	case 512:
		return 2
	}
	klog.Fatalf("jit: invalid vector width %d", bits)
	return 0
}

// tuple sizes for EVEX disp8*N compression.
func fullVectorTuple(bits int16) int32 { return int32(bits) / 8 }

const scalarTuple = 4 // 32-bit scalar element

// Vmovups emits VMOVUPS dst, [src].
func (a *Assembler) Vmovups(dst VecRegister, src Operand) {
	if dst.Bits == 512 {
		a.opEVEXMem(0, map0F, false, 2, 0x10, dst.Code, -1, src, 0, false, 64)
		return
	}
	a.opVEXMem(0, map0F, false, dst.Bits == 256, 0x10, dst.Code, -1, src)
}

// VmovupsStore emits VMOVUPS [dst], src.
func (a *Assembler) VmovupsStore(dst Operand, src VecRegister) {
	if src.Bits == 512 {
		a.opEVEXMem(0, map0F, false, 2, 0x11, src.Code, -1, dst, 0, false, 64)
		return
	}
	a.opVEXMem(0, map0F, false, src.Bits == 256, 0x11, src.Code, -1, dst)
}

// Vmovaps emits VMOVAPS dst, [src].
func (a *Assembler) Vmovaps(dst VecRegister, src Operand) {
	if dst.Bits == 512 {
		a.opEVEXMem(0, map0F, false, 2, 0x28, dst.Code, -1, src, 0, false, 64)
		return
	}
	a.opVEXMem(0, map0F, false, dst.Bits == 256, 0x28, dst.Code, -1, src)
}

// VmovapsStore emits VMOVAPS [dst], src.
func (a *Assembler) VmovapsStore(dst Operand, src VecRegister) {
	if src.Bits == 512 {
		a.opEVEXMem(0, map0F, false, 2, 0x29, src.Code, -1, dst, 0, false, 64)
		return
	}
	a.opVEXMem(0, map0F, false, src.Bits == 256, 0x29, src.Code, -1, dst)
}

// VmovupsMasked emits VMOVUPS dst{k}, [src], zero-masking if zeroing.
func (a *Assembler) VmovupsMasked(dst VecRegister, src Operand, k OpmaskRegister, zeroing bool) {
	a.opEVEXMem(0, map0F, false, evexLL(dst.Bits), 0x10, dst.Code, -1, src, k, zeroing, fullVectorTuple(dst.Bits))
}

// VmovupsStoreMasked emits VMOVUPS [dst]{k}, src (merge-masking).
func (a *Assembler) VmovupsStoreMasked(dst Operand, src VecRegister, k OpmaskRegister) {
	a.opEVEXMem(0, map0F, false, evexLL(src.Bits), 0x11, src.Code, -1, dst, k, false, fullVectorTuple(src.Bits))
}

// VmovapsMasked emits VMOVAPS dst{k}, [src], zero-masking if zeroing.
func (a *Assembler) VmovapsMasked(dst VecRegister, src Operand, k OpmaskRegister, zeroing bool) {
	a.opEVEXMem(0, map0F, false, evexLL(dst.Bits), 0x28, dst.Code, -1, src, k, zeroing, fullVectorTuple(dst.Bits))
}

// VmovapsStoreMasked emits VMOVAPS [dst]{k}, src (merge-masking).
func (a *Assembler) VmovapsStoreMasked(dst Operand, src VecRegister, k OpmaskRegister) {
	a.opEVEXMem(0, map0F, false, evexLL(src.Bits), 0x29, src.Code, -1, dst, k, false, fullVectorTuple(src.Bits))
}

// Vmovss emits VMOVSS dst, [src].
func (a *Assembler) Vmovss(dst VecRegister, src Operand) {
	if dst.Bits == 512 || dst.Code > 15 {
		a.opEVEXMem(0xF3, map0F, false, 0, 0x10, dst.Code, -1, src, 0, false, scalarTuple)
		return
	}
	a.opVEXMem(0xF3, map0F, false, false, 0x10, dst.Code, -1, src)
}

// VmovssStore emits VMOVSS [dst], src.
func (a *Assembler) VmovssStore(dst Operand, src VecRegister) {
	if src.Bits == 512 || src.Code > 15 {
		a.opEVEXMem(0xF3, map0F, false, 0, 0x11, src.Code, -1, dst, 0, false, scalarTuple)
		return
	}
	a.opVEXMem(0xF3, map0F, false, false, 0x11, src.Code, -1, dst)
}

// vecOp3 emits a three-operand packed float op, VEX or EVEX by width.
func (a *Assembler) vecOp3(prefix byte, m opmap, opcode byte, dst, src1, src2 VecRegister) {
	if dst.Bits == 512 || dst.Code > 15 || src1.Code > 15 || src2.Code > 15 {
		a.opEVEXReg(prefix, m, false, evexLL(dst.Bits), opcode, dst.Code, src1.Code, src2.Code, 0, false)
		return
	}
	a.opVEXReg(prefix, m, false, dst.Bits == 256, opcode, dst.Code, src1.Code, src2.Code)
}

// vecOp3Mem is vecOp3 with a memory second source.
func (a *Assembler) vecOp3Mem(prefix byte, m opmap, opcode byte, dst, src1 VecRegister, src2 Operand, n int32) {
	if dst.Bits == 512 || dst.Code > 15 || src1.Code > 15 {
		a.opEVEXMem(prefix, m, false, evexLL(dst.Bits), opcode, dst.Code, src1.Code, src2, 0, false, n)
		return
	}
	a.opVEXMem(prefix, m, false, dst.Bits == 256, opcode, dst.Code, src1.Code, src2)
}

// Vxorps emits VXORPS dst, src1, src2.
func (a *Assembler) Vxorps(dst, src1, src2 VecRegister) {
	a.vecOp3(0, map0F, 0x57, dst, src1, src2)
}

// Vaddps emits VADDPS dst, src1, src2.
func (a *Assembler) Vaddps(dst, src1, src2 VecRegister) {
	a.vecOp3(0, map0F, 0x58, dst, src1, src2)
}

// VaddpsMem emits VADDPS dst, src1, [src2].
func (a *Assembler) VaddpsMem(dst, src1 VecRegister, src2 Operand) {
	a.vecOp3Mem(0, map0F, 0x58, dst, src1, src2, fullVectorTuple(dst.Bits))
}

// VaddpsMasked emits VADDPS dst{k}, src1, [src2] (merge-masking).
func (a *Assembler) VaddpsMasked(dst, src1 VecRegister, src2 Operand, k OpmaskRegister) {
	a.opEVEXMem(0, map0F, false, evexLL(dst.Bits), 0x58, dst.Code, src1.Code, src2, k, false, fullVectorTuple(dst.Bits))
}

// Vmulps emits VMULPS dst, src1, src2.
func (a *Assembler) Vmulps(dst, src1, src2 VecRegister) {
	a.vecOp3(0, map0F, 0x59, dst, src1, src2)
}

// VmulpsMem emits VMULPS dst, src1, [src2].
func (a *Assembler) VmulpsMem(dst, src1 VecRegister, src2 Operand) {
	a.vecOp3Mem(0, map0F, 0x59, dst, src1, src2, fullVectorTuple(dst.Bits))
}

// VmulpsMasked emits VMULPS dst{k}, src1, [src2] (merge-masking).
func (a *Assembler) VmulpsMasked(dst, src1 VecRegister, src2 Operand, k OpmaskRegister) {
	a.opEVEXMem(0, map0F, false, evexLL(dst.Bits), 0x59, dst.Code, src1.Code, src2, k, false, fullVectorTuple(dst.Bits))
}

// Vaddss emits VADDSS dst, src1, src2.
func (a *Assembler) Vaddss(dst, src1, src2 VecRegister) {
	if dst.Bits == 512 || dst.Code > 15 || src1.Code > 15 || src2.Code > 15 {
		a.opEVEXReg(0xF3, map0F, false, 0, 0x58, dst.Code, src1.Code, src2.Code, 0, false)
		return
	}
	a.opVEXReg(0xF3, map0F, false, false, 0x58, dst.Code, src1.Code, src2.Code)
}

// VaddssMem emits VADDSS dst, src1, [src2].
func (a *Assembler) VaddssMem(dst, src1 VecRegister, src2 Operand) {
	if dst.Bits == 512 || dst.Code > 15 || src1.Code > 15 {
		a.opEVEXMem(0xF3, map0F, false, 0, 0x58, dst.Code, src1.Code, src2, 0, false, scalarTuple)
		return
	}
	a.opVEXMem(0xF3, map0F, false, false, 0x58, dst.Code, src1.Code, src2)
}

// VmulssMem emits VMULSS dst, src1, [src2].
func (a *Assembler) VmulssMem(dst, src1 VecRegister, src2 Operand) {
	if dst.Bits == 512 || dst.Code > 15 || src1.Code > 15 {
		a.opEVEXMem(0xF3, map0F, false, 0, 0x59, dst.Code, src1.Code, src2, 0, false, scalarTuple)
		return
	}
	a.opVEXMem(0xF3, map0F, false, false, 0x59, dst.Code, src1.Code, src2)
}

// Vmulss emits VMULSS dst, src1, src2.
func (a *Assembler) Vmulss(dst, src1, src2 VecRegister) {
	if dst.Bits == 512 || dst.Code > 15 || src1.Code > 15 || src2.Code > 15 {
		a.opEVEXReg(0xF3, map0F, false, 0, 0x59, dst.Code, src1.Code, src2.Code, 0, false)
		return
	}
	a.opVEXReg(0xF3, map0F, false, false, 0x59, dst.Code, src1.Code, src2.Code)
}

// Vfmadd231ps emits VFMADD231PS dst, src1, [src2]: dst += src1 * [src2].
func (a *Assembler) Vfmadd231ps(dst, src1 VecRegister, src2 Operand) {
	a.vecOp3Mem(0x66, map0F38, 0xB8, dst, src1, src2, fullVectorTuple(dst.Bits))
}

// Vfmadd231psMasked emits VFMADD231PS dst{k}, src1, [src2] (merge-masking).
func (a *Assembler) Vfmadd231psMasked(dst, src1 VecRegister, src2 Operand, k OpmaskRegister) {
	a.opEVEXMem(0x66, map0F38, false, evexLL(dst.Bits), 0xB8, dst.Code, src1.Code, src2, k, false, fullVectorTuple(dst.Bits))
}

// Vfmadd231ss emits VFMADD231SS dst, src1, [src2]: dst += src1 * [src2].
func (a *Assembler) Vfmadd231ss(dst, src1 VecRegister, src2 Operand) {
	if dst.Bits == 512 || dst.Code > 15 || src1.Code > 15 {
		a.opEVEXMem(0x66, map0F38, false, 0, 0xB9, dst.Code, src1.Code, src2, 0, false, scalarTuple)
		return
	}
	a.opVEXMem(0x66, map0F38, false, false, 0xB9, dst.Code, src1.Code, src2)
}

// Vbroadcastss emits VBROADCASTSS dst, [src], replicating one float across
// all lanes.
func (a *Assembler) Vbroadcastss(dst VecRegister, src Operand) {
	if dst.Bits == 512 || dst.Code > 15 {
		a.opEVEXMem(0x66, map0F38, false, evexLL(dst.Bits), 0x18, dst.Code, -1, src, 0, false, scalarTuple)
		return
	}
	a.opVEXMem(0x66, map0F38, false, dst.Bits == 256, 0x18, dst.Code, -1, src)
}

// Vhaddps emits VHADDPS dst, src1, src2 (VEX only; there is no 512-bit
// form).
func (a *Assembler) Vhaddps(dst, src1, src2 VecRegister) {
	if dst.Bits == 512 {
		klog.Fatalf("jit: vhaddps has no 512-bit form")
	}
	a.opVEXReg(0xF2, map0F, false, dst.Bits == 256, 0x7C, dst.Code, src1.Code, src2.Code)
}

// Vperm2f128 emits VPERM2F128 dst, src1, src2, imm (VEX.256 only).
func (a *Assembler) Vperm2f128(dst, src1, src2 VecRegister, imm byte) {
	a.opVEXReg(0x66, map0F3A, false, true, 0x06, dst.Code, src1.Code, src2.Code)
	a.emit(imm)
}

// Vshuff32x4 emits VSHUFF32X4 dst, src1, src2, imm (EVEX.512).
func (a *Assembler) Vshuff32x4(dst, src1, src2 VecRegister, imm byte) {
	a.opEVEXReg(0x66, map0F3A, false, 2, 0x23, dst.Code, src1.Code, src2.Code, 0, false)
	a.emit(imm)
}

// Kmovw emits KMOVW k, src32, loading a 16-bit lane mask from a general
// purpose register.
func (a *Assembler) Kmovw(k OpmaskRegister, src Register) {
	a.opVEXReg(0, map0F, false, false, 0x92, int8(k), -1, int8(src))
}
