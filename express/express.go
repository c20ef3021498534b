// Package express emits SSE code for directed-acyclic graphs of scalar
// float operations. The surrounding register allocator assigns virtual
// register numbers before emission; operands with no register live in
// memory and are looked up through the op's Args operands.
package express

import (
	"github.com/gomlx/myelin/jit"
)

// Reg is a virtual register number assigned by the surrounding allocator.
// It is distinct from physical register codes; the generator maps virtual
// numbers to XMM registers during Reserve.
type Reg int

// NoReg marks an absent register operand: the operand lives in memory (see
// Op.Args) or is unused.
const NoReg Reg = -1

// OpType enumerates the scalar expression operations.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=Op -output=gen_optype_enumer.go express.go

const (
	// OpMov moves a value into Dst from Src, Args[0], or the zero
	// immediate (ZeroImm).
	OpMov OpType = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMinimum
	OpMaximum
	OpSqrt

	// Ordered/unordered scalar compares producing an all-ones or all-zero
	// lane mask in Dst.
	OpCmpEqOQ
	OpCmpNeUQ
	OpCmpLtOQ
	OpCmpLeOQ
	OpCmpGtOQ
	OpCmpGeOQ

	// OpCond picks Src when the Mask register tests non-zero, else Src2 (or
	// Args[0]).
	OpCond
	// OpSelect picks Src (or Args[0]) when the Mask register tests
	// non-zero, else zero.
	OpSelect

	// Bitwise operations on the packed single/double domain.
	OpBitAnd
	OpBitOr
	OpAnd
	OpOr
	OpXor
	OpAndNot
	OpNot

	// OpFloor rounds towards negative infinity (requires SSE4.1).
	OpFloor
	// OpCvtFltInt and OpCvtIntFlt convert between float and integer
	// (require SSE2).
	OpCvtFltInt
	OpCvtIntFlt
	// OpCvtExpInt and OpCvtIntExp shift the IEEE-754 exponent field out of
	// or into place (23 bits for float, 52 for double).
	OpCvtExpInt
	OpCvtIntExp
	// OpSubInt subtracts in the integer domain.
	OpSubInt

	// Accumulation ops folding Src (or Args[0]) into the Acc register.
	OpSum
	OpProduct
	OpMin
	OpMax
	// OpReduce moves the accumulator into Dst or the Result operand.
	OpReduce
)

// Op is one scalar operation. Register fields hold virtual numbers or
// NoReg; memory operands are in Args in source order.
type Op struct {
	Type OpType

	Dst  Reg
	Src  Reg
	Src2 Reg
	Mask Reg
	Acc  Reg

	// ZeroImm marks an OpMov loading the zero constant. With the zero
	// idiom enabled it is emitted as a self-XOR; otherwise Args[0] must
	// point at a materialised zero constant.
	ZeroImm bool

	// Args holds the memory operands of register fields that are NoReg.
	Args []jit.Operand
	// Result is the memory destination of an OpMov or OpReduce with
	// Dst == NoReg.
	Result jit.Operand
}

// NewOp returns an op with all register fields unset.
func NewOp(typ OpType) *Op {
	return &Op{Type: typ, Dst: NoReg, Src: NoReg, Src2: NoReg, Mask: NoReg, Acc: NoReg}
}

// Expression is an operation list over a shared virtual register space.
type Expression struct {
	Ops []*Op
}

// NewExpression returns an expression over the given ops.
func NewExpression(ops ...*Op) *Expression {
	return &Expression{Ops: ops}
}

// NumRegs returns the number of virtual registers the ops reference.
func (e *Expression) NumRegs() int {
	n := 0
	for _, op := range e.Ops {
		for _, r := range []Reg{op.Dst, op.Src, op.Src2, op.Mask, op.Acc} {
			if int(r) >= n {
				n = int(r) + 1
			}
		}
	}
	return n
}

// Has reports whether any op has one of the given types.
func (e *Expression) Has(types ...OpType) bool {
	for _, op := range e.Ops {
		for _, t := range types {
			if op.Type == t {
				return true
			}
		}
	}
	return false
}
