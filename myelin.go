// Package myelin is a just-in-time x86-64 code emitter for neural network
// compute graph kernels.
//
// Given a typed tensor operation — general matrix multiplication, or small
// elementwise scalar float expressions — it emits machine code tailored to
// the CPU feature set detected at JIT time (SSE through AVX-512).
//
// The packages:
//
//   - jit: the assembler façade — instruction emitters, labels, register
//     pools, the CPU feature oracle, and executable code buffers.
//   - simd: width-polymorphic vector generators, the cascade selecting them
//     per feature level, and the strategy planner decomposing spans into
//     bulk, residual and masked phases.
//   - kernels: the SIMD matmul emitter with its four loop nests, surfaced
//     through the kernel library protocol.
//   - express: the scalar float expression generator.
//   - graph: the compute graph surface the kernels are written against.
//
// See cmd/simdinfo for a tool printing what the host CPU yields.
package myelin
