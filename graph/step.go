package graph

import (
	"github.com/gomlx/exceptions"
)

// Step is one operation of the compute graph handed to a kernel: an op type
// plus input and output tensors and boolean attributes (e.g. the transpose
// flags of a matmul).
type Step struct {
	cell    *Cell
	typ     string
	inputs  []*Tensor
	outputs []*Tensor
	attrs   map[string]bool
	variant string
}

// NewStep adds a step operating on tensors of the cell.
func (c *Cell) NewStep(typ string, inputs, outputs []*Tensor) *Step {
	for _, t := range append(append([]*Tensor{}, inputs...), outputs...) {
		if t == nil {
			exceptions.Panicf("step %q: nil tensor argument", typ)
		}
	}
	return &Step{cell: c, typ: typ, inputs: inputs, outputs: outputs}
}

// Cell returns the cell the step's tensors live in.
func (s *Step) Cell() *Cell { return s.cell }

// Type returns the operation type, e.g. "MatMul".
func (s *Step) Type() string { return s.typ }

// Indegree returns the number of inputs.
func (s *Step) Indegree() int { return len(s.inputs) }

// Outdegree returns the number of outputs.
func (s *Step) Outdegree() int { return len(s.outputs) }

// Input returns the i-th input tensor.
func (s *Step) Input(i int) *Tensor { return s.inputs[i] }

// Output returns the i-th output tensor.
func (s *Step) Output(i int) *Tensor { return s.outputs[i] }

// SetAttr sets a boolean attribute.
func (s *Step) SetAttr(name string, value bool) *Step {
	if s.attrs == nil {
		s.attrs = make(map[string]bool)
	}
	s.attrs[name] = value
	return s
}

// Attr returns a boolean attribute, or the default if unset.
func (s *Step) Attr(name string, deflt bool) bool {
	if v, ok := s.attrs[name]; ok {
		return v
	}
	return deflt
}

// SetVariant records which code variant a kernel emitted for the step; used
// for observability and tests.
func (s *Step) SetVariant(variant string) { s.variant = variant }

// Variant returns the emitted code variant label.
func (s *Step) Variant() string { return s.variant }
