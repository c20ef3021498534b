package kernels

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/myelin/graph"
	"github.com/gomlx/myelin/jit"
	"github.com/gomlx/myelin/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Feature levels the matmul is emitted for. Execution sub-tests skip levels
// the host cannot run.
var featureLevels = []struct {
	name     string
	features jit.Features
}{
	{"SSE", jit.MakeFeatures(jit.FeatureSSE, jit.FeatureSSE2)},
	{"AVX", jit.MakeFeatures(jit.FeatureSSE, jit.FeatureSSE2, jit.FeatureAVX)},
	{"AVX2FMA", jit.MakeFeatures(jit.FeatureSSE, jit.FeatureSSE2, jit.FeatureAVX,
		jit.FeatureAVX2, jit.FeatureFMA3)},
	{"AVX512", jit.MakeFeatures(jit.FeatureSSE, jit.FeatureSSE2, jit.FeatureAVX,
		jit.FeatureAVX2, jit.FeatureFMA3, jit.FeatureAVX512F)},
}

func hostRuns(features jit.Features) bool {
	if !jit.CanExecute() {
		return false
	}
	host := jit.Detect()
	for f := jit.Feature(0); f < jit.FeatureZeroIdiom; f++ {
		if features.Has(f) && !host.Has(f) {
			return false
		}
	}
	return true
}

// transposeMat returns the logical transpose of an m×n row-major matrix.
func transposeMat(v []float32, m, n int) []float32 {
	out := make([]float32, len(v))
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			out[j*m+i] = v[i*n+j]
		}
	}
	return out
}

// refMatMul computes c0 + a·b (or a·b when c0 is nil) on logical row-major
// matrices.
func refMatMul(m, k, n int, a, b, c0 []float32) []float32 {
	out := make([]float32, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			if c0 != nil {
				sum = float64(c0[i*n+j])
			}
			for kk := 0; kk < k; kk++ {
				sum += float64(a[i*k+kk]) * float64(b[kk*n+j])
			}
			out[i*n+j] = float32(sum)
		}
	}
	return out
}

func randomFloats(rng *rand.Rand, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(rng.Intn(16)) - 7.5
	}
	return out
}

type matmulCase struct {
	m, k, n        int
	aOrder, bOrder graph.Order
	transA, transB bool
	accumulate     bool
}

func (tc matmulCase) String() string {
	return fmt.Sprintf("%dx%dx%d_a%s_b%s_ta%v_tb%v_acc%v",
		tc.m, tc.k, tc.n, tc.aOrder, tc.bOrder, tc.transA, tc.transB, tc.accumulate)
}

// effectiveSuffix computes the expected variant suffix from the effective
// operand orders.
func (tc matmulCase) effectiveSuffix() string {
	eff := func(o graph.Order, transposed bool) string {
		if (o == graph.RowMajor) != transposed {
			return "R"
		}
		return "C"
	}
	a := eff(tc.aOrder, tc.transA)
	b := eff(tc.bOrder, tc.transB)
	switch a + b {
	case "RR":
		return "RR"
	case "CR":
		return "CR"
	case "RC":
		return "RC"
	default:
		return "CC"
	}
}

// emitMatMul builds the step, runs the kernel library protocol, and returns
// everything needed to execute and check it.
func emitMatMul(t *testing.T, features jit.Features, tc matmulCase) (
	cell *graph.Cell, step *graph.Step, cTensor *graph.Tensor, buf []byte,
	aVals, bVals, cVals []float32) {
	t.Helper()
	rng := rand.New(rand.NewSource(42))

	aShape := []int{tc.m, tc.k}
	if tc.transA {
		aShape = []int{tc.k, tc.m}
	}
	bShape := []int{tc.k, tc.n}
	if tc.transB {
		bShape = []int{tc.n, tc.k}
	}

	cell = graph.NewCell()
	a := cell.NewTensor("a", shapes.Make(dtypes.Float32, aShape...), tc.aOrder)
	b := cell.NewTensor("b", shapes.Make(dtypes.Float32, bShape...), tc.bOrder)
	cTensor = cell.NewTensor("c", shapes.Make(dtypes.Float32, tc.m, tc.n), graph.RowMajor)

	if tc.accumulate {
		step = cell.NewStep(OpAssignAddMatMul, []*graph.Tensor{cTensor, a, b}, nil)
	} else {
		step = cell.NewStep(OpMatMul, []*graph.Tensor{a, b}, []*graph.Tensor{cTensor})
	}
	step.SetAttr("transpose_a", tc.transA)
	step.SetAttr("transpose_b", tc.transB)

	lib := graph.NewLibrary()
	Register(lib, features)
	kernel := lib.Lookup(step)
	require.NotNil(t, kernel, "no kernel for step")
	kernel.Adjust(step)
	require.NoError(t, cell.Allocate())

	aVals = randomFloats(rng, aShape[0]*aShape[1])
	bVals = randomFloats(rng, bShape[0]*bShape[1])
	cell.SetFloats(a, aVals)
	cell.SetFloats(b, bVals)
	if tc.accumulate {
		cVals = randomFloats(rng, tc.m*tc.n)
	} else {
		// Pre-existing garbage must be overwritten.
		cVals = make([]float32, tc.m*tc.n)
		for i := range cVals {
			cVals[i] = 999
		}
	}
	cell.SetFloats(cTensor, cVals)

	masm := jit.NewMacroAssembler(features)
	kernel.Generate(step, masm)
	var err error
	buf, err = masm.Finalize()
	require.NoError(t, err)
	assert.Equal(t, tc.effectiveSuffix(), step.Variant()[len(step.Variant())-2:])
	return
}

func (tc matmulCase) expected(aVals, bVals, cVals []float32) []float32 {
	la := aVals
	if tc.transA {
		la = transposeMat(aVals, tc.k, tc.m)
	}
	lb := bVals
	if tc.transB {
		lb = transposeMat(bVals, tc.n, tc.k)
	}
	var c0 []float32
	if tc.accumulate {
		c0 = cVals
	}
	return refMatMul(tc.m, tc.k, tc.n, la, lb, c0)
}

func TestMatMulEndToEnd(t *testing.T) {
	orders := []graph.Order{graph.RowMajor, graph.ColumnMajor}
	sizes := [][3]int{
		{2, 3, 2},   // tiny
		{4, 4, 4},   // square
		{8, 1, 8},   // outer product
		{1, 8, 1},   // dot product
		{5, 17, 35}, // bulk + residual (+ masked under AVX-512)
		{3, 35, 5},
	}
	for _, level := range featureLevels {
		t.Run(level.name, func(t *testing.T) {
			if !hostRuns(level.features) {
				t.Skipf("host cannot execute %s", level.features)
			}
			for _, size := range sizes {
				for _, aOrder := range orders {
					for _, bOrder := range orders {
						for _, accumulate := range []bool{false, true} {
							tc := matmulCase{
								m: size[0], k: size[1], n: size[2],
								aOrder: aOrder, bOrder: bOrder,
								accumulate: accumulate,
							}
							t.Run(tc.String(), func(t *testing.T) {
								cell, _, cTensor, buf, aVals, bVals, cVals :=
									emitMatMul(t, level.features, tc)
								code, err := jit.NewCode(buf)
								require.NoError(t, err)
								defer func() { require.NoError(t, code.Release()) }()
								code.Run(cell.Base())

								want := tc.expected(aVals, bVals, cVals)
								got := cell.Floats(cTensor)
								require.Len(t, got, len(want))
								for i := range want {
									assert.InDelta(t, want[i], got[i], 1e-3,
										"element %d", i)
								}
							})
						}
					}
				}
			}
		})
	}
}

func TestMatMulTransposedInputs(t *testing.T) {
	for _, level := range featureLevels {
		t.Run(level.name, func(t *testing.T) {
			if !hostRuns(level.features) {
				t.Skipf("host cannot execute %s", level.features)
			}
			for _, tc := range []matmulCase{
				{m: 3, k: 5, n: 4, aOrder: graph.RowMajor, bOrder: graph.RowMajor, transA: true},
				{m: 3, k: 5, n: 4, aOrder: graph.RowMajor, bOrder: graph.RowMajor, transB: true},
				{m: 2, k: 9, n: 7, aOrder: graph.ColumnMajor, bOrder: graph.RowMajor, transA: true, transB: true},
			} {
				t.Run(tc.String(), func(t *testing.T) {
					cell, _, cTensor, buf, aVals, bVals, cVals := emitMatMul(t, level.features, tc)
					code, err := jit.NewCode(buf)
					require.NoError(t, err)
					defer func() { require.NoError(t, code.Release()) }()
					code.Run(cell.Base())

					want := tc.expected(aVals, bVals, cVals)
					got := cell.Floats(cTensor)
					for i := range want {
						assert.InDelta(t, want[i], got[i], 1e-3, "element %d", i)
					}
				})
			}
		})
	}
}

// Scenario: C = A·B with the canonical 2x3 · 3x2 example.
func TestMatMulScenario(t *testing.T) {
	features := jit.Detect()
	if !hostRuns(features) {
		t.Skip("host cannot execute emitted code")
	}

	cell := graph.NewCell()
	a := cell.NewTensor("a", shapes.Make(dtypes.Float32, 2, 3), graph.RowMajor)
	b := cell.NewTensor("b", shapes.Make(dtypes.Float32, 3, 2), graph.RowMajor)
	c := cell.NewTensor("c", shapes.Make(dtypes.Float32, 2, 2), graph.RowMajor)
	step := cell.NewStep(OpMatMul, []*graph.Tensor{a, b}, []*graph.Tensor{c})

	lib := graph.NewLibrary()
	Register(lib, features)
	code, err := cell.Compile(step, lib, features)
	require.NoError(t, err)
	defer func() { require.NoError(t, code.Release()) }()

	cell.SetFloats(a, []float32{1, 2, 3, 4, 5, 6})
	cell.SetFloats(b, []float32{1, 0, 0, 1, 1, 1})
	cell.SetFloats(c, []float32{0, 0, 0, 0})
	code.Run(cell.Base())

	assert.Equal(t, []float32{4, 5, 10, 11}, cell.Floats(c))
	assert.Equal(t, "RR", step.Variant()[len(step.Variant())-2:])
}

// Scenario: AssignAddMatMul adds on top of the initial C.
func TestMatMulAccumulateScenario(t *testing.T) {
	features := jit.Detect()
	if !hostRuns(features) {
		t.Skip("host cannot execute emitted code")
	}

	cell := graph.NewCell()
	c := cell.NewTensor("c", shapes.Make(dtypes.Float32, 2, 2), graph.RowMajor)
	a := cell.NewTensor("a", shapes.Make(dtypes.Float32, 2, 3), graph.RowMajor)
	b := cell.NewTensor("b", shapes.Make(dtypes.Float32, 3, 2), graph.RowMajor)
	step := cell.NewStep(OpAssignAddMatMul, []*graph.Tensor{c, a, b}, nil)

	lib := graph.NewLibrary()
	Register(lib, features)
	code, err := cell.Compile(step, lib, features)
	require.NoError(t, err)
	defer func() { require.NoError(t, code.Release()) }()

	cell.SetFloats(a, []float32{1, 2, 3, 4, 5, 6})
	cell.SetFloats(b, []float32{1, 0, 0, 1, 1, 1})
	cell.SetFloats(c, []float32{1, 1, 1, 1})
	code.Run(cell.Base())

	assert.Equal(t, []float32{5, 6, 11, 12}, cell.Floats(c))
}

// Scenario: multiplying by the identity returns B.
func TestMatMulIdentity(t *testing.T) {
	features := jit.Detect()
	if !hostRuns(features) {
		t.Skip("host cannot execute emitted code")
	}

	cell := graph.NewCell()
	a := cell.NewTensor("a", shapes.Make(dtypes.Float32, 4, 4), graph.RowMajor)
	b := cell.NewTensor("b", shapes.Make(dtypes.Float32, 4, 4), graph.RowMajor)
	c := cell.NewTensor("c", shapes.Make(dtypes.Float32, 4, 4), graph.RowMajor)
	step := cell.NewStep(OpMatMul, []*graph.Tensor{a, b}, []*graph.Tensor{c})
	lib := graph.NewLibrary()
	Register(lib, features)
	code, err := cell.Compile(step, lib, features)
	require.NoError(t, err)
	defer func() { require.NoError(t, code.Release()) }()

	identity := make([]float32, 16)
	for i := 0; i < 4; i++ {
		identity[i*4+i] = 1
	}
	bVals := randomFloats(rand.New(rand.NewSource(7)), 16)
	cell.SetFloats(a, identity)
	cell.SetFloats(b, bVals)
	code.Run(cell.Base())
	assert.Equal(t, bVals, cell.Floats(c))
}

// Scenario: an 8x1 column major A against a 1x8 B is an outer product and
// selects the strided vertical loop (CR).
func TestMatMulOuterProductCR(t *testing.T) {
	for _, level := range featureLevels {
		t.Run(level.name, func(t *testing.T) {
			tc := matmulCase{m: 8, k: 1, n: 8,
				aOrder: graph.ColumnMajor, bOrder: graph.RowMajor}
			cell, step, cTensor, buf, aVals, bVals, cVals := emitMatMul(t, level.features, tc)
			assert.Equal(t, "CR", step.Variant()[len(step.Variant())-2:])
			if !hostRuns(level.features) {
				t.Skipf("host cannot execute %s", level.features)
			}
			code, err := jit.NewCode(buf)
			require.NoError(t, err)
			defer func() { require.NoError(t, code.Release()) }()
			code.Run(cell.Base())
			want := tc.expected(aVals, bVals, cVals)
			got := cell.Floats(cTensor)
			for i := range want {
				assert.InDelta(t, want[i], got[i], 1e-3, "element %d", i)
			}
		})
	}
}

// Emission is deterministic: identical inputs and feature sets give byte
// identical code. Runs on any host.
func TestMatMulEmissionDeterminism(t *testing.T) {
	for _, level := range featureLevels {
		t.Run(level.name, func(t *testing.T) {
			tc := matmulCase{m: 5, k: 17, n: 35,
				aOrder: graph.RowMajor, bOrder: graph.ColumnMajor}
			_, _, _, buf1, _, _, _ := emitMatMul(t, level.features, tc)
			_, _, _, buf2, _, _, _ := emitMatMul(t, level.features, tc)
			assert.Equal(t, buf1, buf2)
			assert.NotEmpty(t, buf1)
		})
	}
}

// Emission works for every order combination on every feature level,
// without executing. Catches unencodable operand forms.
func TestMatMulEmissionAllVariants(t *testing.T) {
	orders := []graph.Order{graph.RowMajor, graph.ColumnMajor}
	for _, level := range featureLevels {
		for _, aOrder := range orders {
			for _, bOrder := range orders {
				for _, accumulate := range []bool{false, true} {
					tc := matmulCase{m: 7, k: 13, n: 21,
						aOrder: aOrder, bOrder: bOrder, accumulate: accumulate}
					t.Run(level.name+"/"+tc.String(), func(t *testing.T) {
						_, step, _, buf, _, _, _ := emitMatMul(t, level.features, tc)
						assert.NotEmpty(t, buf)
						wantName := "SSEFlt"
						if level.features.Has(jit.FeatureAVX512F) {
							wantName = "AVX512Flt"
						} else if level.features.Has(jit.FeatureAVX) {
							wantName = "AVXFlt"
						}
						variant := step.Variant()
						assert.Equal(t, wantName, variant[:len(variant)-2])
					})
				}
			}
		}
	}
}
