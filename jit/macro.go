package jit

// MacroAssembler is the assembler plus the resources emitted code draws on:
// the CPU feature oracle and the register pools. One MacroAssembler emits
// one code object; pools are not reset between kernels.
type MacroAssembler struct {
	Assembler
	features Features
	rr       RegisterPool
	mm       VectorPool
	kk       OpmaskPool
}

// NewMacroAssembler returns a MacroAssembler emitting for the given feature
// set. Pass Detect() to target the host CPU.
func NewMacroAssembler(features Features) *MacroAssembler {
	return &MacroAssembler{
		features: features,
		rr:       newRegisterPool(),
	}
}

// Enabled reports whether the feature is available for emission.
func (m *MacroAssembler) Enabled(f Feature) bool { return m.features.Has(f) }

// Features returns the emission feature set.
func (m *MacroAssembler) Features() Features { return m.features }

// SetFeatures replaces the emission feature set. Used to toggle
// FeatureZeroIdiom per emission.
func (m *MacroAssembler) SetFeatures(features Features) { m.features = features }

// RR returns the general purpose register pool.
func (m *MacroAssembler) RR() *RegisterPool { return &m.rr }

// MM returns the vector register pool.
func (m *MacroAssembler) MM() *VectorPool { return &m.mm }

// KK returns the opmask register pool.
func (m *MacroAssembler) KK() *OpmaskPool { return &m.kk }

// LoadMask loads k with a mask enabling the low bits lanes. A scratch
// general purpose register is borrowed from the pool, so LoadMask must run
// before the caller allocates its loop registers (mask preloading happens
// ahead of the loop prologue).
func (m *MacroAssembler) LoadMask(bits int, k OpmaskRegister) {
	tmp := m.rr.Alloc()
	m.MovlImm(tmp, int32(1<<uint(bits))-1)
	m.Kmovw(k, tmp)
	m.rr.Release(tmp)
}

// LoadCellAddress loads the address of a tensor's data area, located at the
// given offset from the cell base.
func (m *MacroAssembler) LoadCellAddress(dst Register, offset int) {
	m.Leaq(dst, Mem(CellBaseRegister, int32(offset)))
}

// Finalize appends the epilogue (VZEROUPPER when VEX or EVEX encodings were
// emitted, then RET), resolves labels, and returns the code bytes.
func (m *MacroAssembler) Finalize() ([]byte, error) {
	if m.vexUsed {
		m.Vzeroupper()
	}
	m.Ret()
	return m.Finish()
}
