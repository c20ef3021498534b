// simdinfo prints the SIMD capabilities the JIT sees on this host: the
// detected CPU features, the generator cascade for float32, the strategy
// plan for a span, and the size of a sample emitted matmul.
//
// Usage:
//
//	simdinfo [-n elements] [-m rows] [-k inner] [-cols cols]
package main

import (
	"flag"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/myelin/graph"
	"github.com/gomlx/myelin/jit"
	"github.com/gomlx/myelin/kernels"
	"github.com/gomlx/myelin/simd"
	"github.com/gomlx/myelin/types/shapes"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagSpan = flag.Int("n", 35, "span length for the strategy plan")
	flagM    = flag.Int("m", 64, "sample matmul rows")
	flagK    = flag.Int("k", 64, "sample matmul inner dimension")
	flagN    = flag.Int("cols", 64, "sample matmul columns")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	features := jit.Detect()
	fmt.Printf("features: %s\n", features)
	fmt.Printf("vector bytes (float32): %d\n", simd.VectorBytes(features, dtypes.Float32))
	if !features.Has(jit.FeatureSSE) {
		fmt.Println("no SIMD feature level available on this host")
		return
	}

	// The cascade and strategy need an assembler, but nothing is executed:
	// emission works on any host.
	masm := jit.NewMacroAssembler(features)
	sasm := simd.NewAssembler(masm, dtypes.Float32, true)
	defer sasm.Release()
	fmt.Printf("cascade: %s, lane counts", sasm.Name())
	for _, gen := range sasm.Cascade() {
		fmt.Printf(" %d", gen.VectorSize())
	}
	fmt.Println()

	fmt.Printf("strategy for %d elements:\n", *flagSpan)
	strategy := simd.NewStrategy(sasm, *flagSpan, 4)
	for i, phase := range strategy.Phases() {
		fmt.Printf("  phase %d: width=%d unrolls=%d repeat=%d masked=%d offset=%d\n",
			i, phase.Generator.VectorSize(), phase.Unrolls, phase.Repeat, phase.Masked, phase.Offset)
	}

	fmt.Printf("sample matmul %dx%d * %dx%d:\n", *flagM, *flagK, *flagK, *flagN)
	cell := graph.NewCell()
	a := cell.NewTensor("a", shapes.Make(dtypes.Float32, *flagM, *flagK), graph.RowMajor)
	b := cell.NewTensor("b", shapes.Make(dtypes.Float32, *flagK, *flagN), graph.RowMajor)
	c := cell.NewTensor("c", shapes.Make(dtypes.Float32, *flagM, *flagN), graph.RowMajor)
	step := cell.NewStep(kernels.OpMatMul, []*graph.Tensor{a, b}, []*graph.Tensor{c})

	lib := graph.NewLibrary()
	kernels.Register(lib, features)
	kernel := lib.Lookup(step)
	if kernel == nil {
		klog.Fatalf("no kernel supports the sample matmul")
	}
	kernel.Adjust(step)
	must.M(cell.Allocate())

	emitter := jit.NewMacroAssembler(features)
	kernel.Generate(step, emitter)
	buf := must.M1(emitter.Finalize())
	fmt.Printf("  kernel=%s variant=%s code=%s complexity=%d flops\n",
		kernel.Name(), step.Variant(), humanize.Bytes(uint64(len(buf))), kernel.Complexity(step))
}
