package jit

import "k8s.io/klog/v2"

// opmap selects the opcode escape map.
type opmap byte

const (
	map0F   opmap = 1
	map0F38 opmap = 2
	map0F3A opmap = 3
)

// vexPP maps a legacy mandatory prefix to the VEX/EVEX pp field.
func vexPP(prefix byte) byte {
	switch prefix {
	case 0:
		return 0
	case 0x66:
		return 1
	case 0xF3:
		return 2
	case 0xF2:
		return 3
	}
	klog.Fatalf("jit: invalid mandatory prefix %#x", prefix)
	return 0
}

func bit(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// emitModRM emits the ModRM byte (plus SIB and displacement) addressing
// memory operand rm with the given reg field. n is the displacement
// compression factor: 1 for legacy and VEX encodings, the tuple size for
// EVEX disp8*N.
func (a *Assembler) emitModRM(reg int8, rm Operand, n int32) {
	regField := byte(reg&7) << 3
	baseEnc := byte(rm.Base & 7)
	hasIndex := rm.Index != NoRegister

	var mod byte
	var disp8 byte
	dispBytes := 0
	switch {
	case rm.Disp == 0 && baseEnc != 5:
		mod = 0x00
	case rm.Disp%n == 0 && rm.Disp/n >= -128 && rm.Disp/n <= 127:
		mod, disp8, dispBytes = 0x40, byte(int8(rm.Disp/n)), 1
	default:
		mod, dispBytes = 0x80, 4
	}

	if hasIndex || baseEnc == 4 {
		indexEnc := byte(4) // no index
		if hasIndex {
			indexEnc = byte(rm.Index & 7)
		}
		a.emit(mod|regField|4, byte(rm.Scale)<<6|indexEnc<<3|baseEnc)
	} else {
		a.emit(mod | regField | baseEnc)
	}

	switch dispBytes {
	case 1:
		a.emit(disp8)
	case 4:
		a.emitU32(uint32(rm.Disp))
	}
}

// emitModRMReg emits a register-direct ModRM byte.
func (a *Assembler) emitModRMReg(reg, rm int8) {
	a.emit(0xC0 | byte(reg&7)<<3 | byte(rm&7))
}

func rexByte(w bool, r, x, b byte) byte {
	rex := byte(0x40) | bit(w)<<3 | r<<2 | x<<1 | b
	if rex == 0x40 {
		return 0
	}
	return rex
}

func (a *Assembler) emitEscape(m opmap) {
	switch m {
	case map0F:
		a.emit(0x0F)
	case map0F38:
		a.emit(0x0F, 0x38)
	case map0F3A:
		a.emit(0x0F, 0x3A)
	}
}

// opLegacyReg emits a legacy-encoded register-to-register instruction.
func (a *Assembler) opLegacyReg(prefix byte, m opmap, opcode byte, reg, rm int8, w bool) {
	if prefix != 0 {
		a.emit(prefix)
	}
	if rex := rexByte(w, byte(reg)>>3&1, 0, byte(rm)>>3&1); rex != 0 {
		a.emit(rex)
	}
	a.emitEscape(m)
	a.emit(opcode)
	a.emitModRMReg(reg, rm)
}

// opLegacyMem emits a legacy-encoded instruction with a memory operand.
func (a *Assembler) opLegacyMem(prefix byte, m opmap, opcode byte, reg int8, rm Operand, w bool) {
	if prefix != 0 {
		a.emit(prefix)
	}
	indexBit := byte(0)
	if rm.Index != NoRegister {
		indexBit = byte(rm.Index) >> 3 & 1
	}
	if rex := rexByte(w, byte(reg)>>3&1, indexBit, byte(rm.Base)>>3&1); rex != 0 {
		a.emit(rex)
	}
	a.emitEscape(m)
	a.emit(opcode)
	a.emitModRM(reg, rm, 1)
}

func checkVEXReg(code int8) {
	if code > 15 {
		klog.Fatalf("jit: register %d is not VEX-encodable", code)
	}
}

// opVEXReg emits a VEX-encoded register-to-register instruction. vvvv < 0
// means the field is unused.
func (a *Assembler) opVEXReg(prefix byte, m opmap, w, l bool, opcode byte, reg, vvvv, rm int8) {
	checkVEXReg(reg)
	checkVEXReg(rm)
	a.vexUsed = true
	pp := vexPP(prefix)
	vv := vvvv
	if vv < 0 {
		vv = 0
	} else {
		checkVEXReg(vv)
	}
	r := byte(reg) >> 3 & 1
	b := byte(rm) >> 3 & 1
	if m == map0F && !w && b == 0 {
		a.emit(0xC5, (r^1)<<7|(^byte(vv)&0xF)<<3|bit(l)<<2|pp)
	} else {
		a.emit(0xC4, (r^1)<<7|1<<6|(b^1)<<5|byte(m), bit(w)<<7|(^byte(vv)&0xF)<<3|bit(l)<<2|pp)
	}
	a.emit(opcode)
	a.emitModRMReg(reg, rm)
}

// opVEXMem emits a VEX-encoded instruction with a memory operand.
func (a *Assembler) opVEXMem(prefix byte, m opmap, w, l bool, opcode byte, reg, vvvv int8, rm Operand) {
	checkVEXReg(reg)
	a.vexUsed = true
	pp := vexPP(prefix)
	vv := vvvv
	if vv < 0 {
		vv = 0
	} else {
		checkVEXReg(vv)
	}
	r := byte(reg) >> 3 & 1
	x := byte(0)
	if rm.Index != NoRegister {
		x = byte(rm.Index) >> 3 & 1
	}
	b := byte(rm.Base) >> 3 & 1
	if m == map0F && !w && x == 0 && b == 0 {
		a.emit(0xC5, (r^1)<<7|(^byte(vv)&0xF)<<3|bit(l)<<2|pp)
	} else {
		a.emit(0xC4, (r^1)<<7|(x^1)<<6|(b^1)<<5|byte(m), bit(w)<<7|(^byte(vv)&0xF)<<3|bit(l)<<2|pp)
	}
	a.emit(opcode)
	a.emitModRM(reg, rm, 1)
}

// opEVEXReg emits an EVEX-encoded register-to-register instruction.
// ll selects the vector length (0=128, 1=256, 2=512); mask 0 means
// unmasked, z selects zeroing-masking.
func (a *Assembler) opEVEXReg(prefix byte, m opmap, w bool, ll byte, opcode byte, reg, vvvv, rm int8, mask OpmaskRegister, z bool) {
	a.vexUsed = true
	pp := vexPP(prefix)
	vv := vvvv
	if vv < 0 {
		vv = 0
	}
	p0 := (^byte(reg)>>3&1)<<7 | (^byte(rm)>>4&1)<<6 | (^byte(rm)>>3&1)<<5 | (^byte(reg)>>4&1)<<4 | byte(m)
	p1 := bit(w)<<7 | (^byte(vv)&0xF)<<3 | 0x04 | pp
	p2 := bit(z)<<7 | ll<<5 | (^byte(vv)>>4&1)<<3 | byte(mask)
	a.emit(0x62, p0, p1, p2, opcode)
	a.emitModRMReg(reg, rm)
}

// opEVEXMem emits an EVEX-encoded instruction with a memory operand. n is
// the disp8*N tuple size for displacement compression.
func (a *Assembler) opEVEXMem(prefix byte, m opmap, w bool, ll byte, opcode byte, reg, vvvv int8, rm Operand, mask OpmaskRegister, z bool, n int32) {
	a.vexUsed = true
	pp := vexPP(prefix)
	vv := vvvv
	if vv < 0 {
		vv = 0
	}
	x := byte(0)
	if rm.Index != NoRegister {
		x = byte(rm.Index) >> 3 & 1
	}
	p0 := (^byte(reg)>>3&1)<<7 | (x^1)<<6 | (^byte(rm.Base)>>3&1)<<5 | (^byte(reg)>>4&1)<<4 | byte(m)
	p1 := bit(w)<<7 | (^byte(vv)&0xF)<<3 | 0x04 | pp
	p2 := bit(z)<<7 | ll<<5 | (^byte(vv)>>4&1)<<3 | byte(mask)
	a.emit(0x62, p0, p1, p2, opcode)
	a.emitModRM(reg, rm, n)
}
