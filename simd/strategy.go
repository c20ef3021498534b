package simd

import (
	"github.com/gomlx/myelin/types/xslices"
)

// Phase is one step of a vectorisation strategy. Exactly one of Repeat>1
// (a bulk loop), Masked>0 (a masked tail) or neither (a flat residual)
// holds.
type Phase struct {
	// Generator emits this phase's operations.
	Generator Generator
	// Unrolls is the number of vector blocks per iteration (>=1).
	Unrolls int
	// Repeat is the loop trip count of a bulk phase; 0 or 1 means the
	// phase is emitted straight-line.
	Repeat int
	// Masked is the number of active lanes of a masked tail; 0 otherwise.
	Masked int
	// Offset is the element position the phase starts at.
	Offset int
}

// Strategy decomposes a linear span into phases covering it exactly: a bulk
// loop on the main generator, residuals on the descending cascade, and a
// final masked tail where the hardware supports it.
type Strategy struct {
	phases []Phase
}

// NewStrategy plans the processing of size elements with at most maxUnrolls
// unrolled vector blocks per bulk iteration.
func NewStrategy(sasm *Assembler, size, maxUnrolls int) *Strategy {
	s := &Strategy{}

	// Add bulk phase.
	vecsize := sasm.Main().VectorSize()
	main := (size / vecsize) * vecsize
	unrolls := min(main/vecsize, maxUnrolls)
	remaining := size
	offset := 0
	if unrolls > 0 {
		repeat := size / (vecsize * unrolls)
		s.phases = append(s.phases, Phase{
			Generator: sasm.Main(),
			Unrolls:   unrolls,
			Repeat:    repeat,
		})
		remaining -= repeat * vecsize * unrolls
		offset += repeat * vecsize * unrolls
	}

	// Add residual phases.
	for _, gen := range sasm.Cascade() {
		if remaining == 0 {
			break
		}

		// Elements this vector size can handle without masking.
		vecsize := gen.VectorSize()
		if n := remaining / vecsize; n > 0 {
			s.phases = append(s.phases, Phase{
				Generator: gen,
				Unrolls:   n,
				Offset:    offset,
			})
			offset += n * vecsize
			remaining -= n * vecsize
		}

		// A masked phase exhausts the remainder if the generator supports
		// it.
		if gen.SupportsMasking() && remaining > 0 && remaining < vecsize {
			s.phases = append(s.phases, Phase{
				Generator: gen,
				Unrolls:   1,
				Masked:    remaining,
				Offset:    offset,
			})
			offset += remaining
			remaining = 0
		}
	}
	return s
}

// Phases returns the ordered phases of the plan.
func (s *Strategy) Phases() []Phase { return s.phases }

// MaxUnrolls returns the largest unroll factor across phases; callers
// pre-allocate that many accumulator registers.
func (s *Strategy) MaxUnrolls() int {
	return max(1, xslices.Max(xslices.Map(s.phases, func(p Phase) int { return p.Unrolls })))
}

// PreloadMasks loads the mask register of every masked phase. This happens
// before the loop prologue so the mask load is hoisted out of the loops.
func (s *Strategy) PreloadMasks() {
	for _, p := range s.phases {
		if p.Masked > 0 {
			p.Generator.SetMask(p.Masked)
		}
	}
}
