// Package jit is the x86-64 assembler façade consumed by the SIMD code
// generators. It provides single-instruction emitters for the exact
// instruction surface the generators use (SSE through AVX-512), bind-once
// labels with rel32 branches, and register pools.
//
// Emission is deterministic: the byte sequence depends only on the calls
// made, never on the host. Emitted code is position independent (all
// branches are relative) and follows a minimal calling convention: the cell
// base pointer arrives in RDI, only caller-saved registers are clobbered,
// and the code returns with RET (preceded by VZEROUPPER when any VEX or
// EVEX instruction was emitted).
package jit

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Condition is a branch condition code (the low nibble of the Jcc opcode).
type Condition int8

const (
	Below        Condition = 2
	AboveEqual   Condition = 3
	Equal        Condition = 4
	NotEqual     Condition = 5
	BelowEqual   Condition = 6
	Above        Condition = 7
	Less         Condition = 12
	GreaterEqual Condition = 13
	LessEqual    Condition = 14
	Greater      Condition = 15

	Zero    = Equal
	NotZero = NotEqual
)

// Label is a branch target. It is bound to at most one position; branches
// may reference it before or after binding.
type Label struct {
	offset int
	bound  bool
	fixups []int
}

// Assembler accumulates machine code in an append-only buffer. Errors are
// sticky and reported by Finish, which MacroAssembler.Finalize calls.
type Assembler struct {
	buf        []byte
	err        error
	unresolved int
	vexUsed    bool
}

// Pc returns the current emission offset.
func (a *Assembler) Pc() int { return len(a.buf) }

// Err returns the first error recorded during emission, if any.
func (a *Assembler) Err() error { return a.err }

func (a *Assembler) setErrf(format string, args ...any) {
	if a.err == nil {
		a.err = errors.Errorf(format, args...)
	}
}

func (a *Assembler) emit(bs ...byte) { a.buf = append(a.buf, bs...) }

func (a *Assembler) emitU32(v uint32) {
	a.buf = binary.LittleEndian.AppendUint32(a.buf, v)
}

func (a *Assembler) emitU64(v uint64) {
	a.buf = binary.LittleEndian.AppendUint64(a.buf, v)
}

// Bind places the label at the current position and patches any pending
// branches to it. Binding twice is an error.
func (a *Assembler) Bind(l *Label) {
	if l.bound {
		a.setErrf("jit: label bound twice")
		return
	}
	l.offset = a.Pc()
	l.bound = true
	for _, pos := range l.fixups {
		binary.LittleEndian.PutUint32(a.buf[pos:], uint32(int32(l.offset-(pos+4))))
	}
	a.unresolved -= len(l.fixups)
	l.fixups = nil
}

func (a *Assembler) emitRel32(l *Label) {
	if l.bound {
		a.emitU32(uint32(int32(l.offset - (a.Pc() + 4))))
		return
	}
	l.fixups = append(l.fixups, a.Pc())
	a.unresolved++
	a.emitU32(0)
}

// J emits a conditional branch to the label.
func (a *Assembler) J(cc Condition, l *Label) {
	a.emit(0x0F, 0x80|byte(cc))
	a.emitRel32(l)
}

// Jmp emits an unconditional branch to the label.
func (a *Assembler) Jmp(l *Label) {
	a.emit(0xE9)
	a.emitRel32(l)
}

// Ret emits a near return.
func (a *Assembler) Ret() { a.emit(0xC3) }

// Vzeroupper clears the upper halves of the YMM registers, avoiding
// AVX-to-SSE transition penalties after emitted code returns.
func (a *Assembler) Vzeroupper() { a.emit(0xC5, 0xF8, 0x77) }

// Finish checks label resolution and returns the emitted bytes.
func (a *Assembler) Finish() ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.unresolved > 0 {
		return nil, errors.Errorf("jit: %d branches target unbound labels", a.unresolved)
	}
	return a.buf, nil
}
