package graph

import (
	"github.com/gomlx/myelin/jit"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Kernel generates machine code for a class of steps. Supports is the only
// recoverable gate: once it accepts a step, Adjust and Generate must
// succeed, and contract violations inside them abort.
type Kernel interface {
	// Name identifies the kernel implementation.
	Name() string
	// Operation returns the step type the kernel implements.
	Operation() string
	// Supports reports whether the kernel can implement the step.
	Supports(step *Step) bool
	// Adjust publishes layout requirements (order, alignment) on the step's
	// tensors. Runs after Supports and before the cell is allocated.
	Adjust(step *Step)
	// Generate emits the step's code. Runs after the cell is allocated.
	Generate(step *Step, masm *jit.MacroAssembler)
	// Complexity estimates the number of operations the step performs.
	Complexity(step *Step) int64
}

// Library is an ordered kernel registry. Lookup prefers the most recently
// registered kernel, so specialised kernels are registered after generic
// ones.
type Library struct {
	kernels []Kernel
}

// NewLibrary returns an empty library.
func NewLibrary() *Library { return &Library{} }

// Register adds a kernel to the library.
func (l *Library) Register(k Kernel) {
	klog.V(2).Infof("library: registering kernel %s for %s", k.Name(), k.Operation())
	l.kernels = append(l.kernels, k)
}

// Lookup returns the newest kernel implementing the step's operation that
// supports the step, or nil.
func (l *Library) Lookup(step *Step) Kernel {
	for i := len(l.kernels) - 1; i >= 0; i-- {
		k := l.kernels[i]
		if k.Operation() == step.Type() && k.Supports(step) {
			return k
		}
	}
	return nil
}

// Compile runs the kernel library protocol for a single step: kernel
// lookup, the Adjust phase, cell allocation, code generation, and
// finalisation into an executable code object.
func (c *Cell) Compile(step *Step, lib *Library, features jit.Features) (*jit.Code, error) {
	kernel := lib.Lookup(step)
	if kernel == nil {
		return nil, errors.Errorf("no kernel supports step %q", step.Type())
	}
	kernel.Adjust(step)
	if err := c.Allocate(); err != nil {
		return nil, err
	}
	masm := jit.NewMacroAssembler(features)
	kernel.Generate(step, masm)
	buf, err := masm.Finalize()
	if err != nil {
		return nil, errors.Wrapf(err, "emitting %s for step %q", kernel.Name(), step.Type())
	}
	klog.V(2).Infof("library: %s emitted %d bytes, variant %s", kernel.Name(), len(buf), step.Variant())
	return jit.NewCode(buf)
}
