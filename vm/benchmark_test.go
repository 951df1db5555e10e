package vm_test

import (
	"io"
	"testing"

	"github.com/chazu/feeny/pkg/bytecode"
	"github.com/chazu/feeny/vm"
)

// =============================================================================
// Benchmark Helpers
// =============================================================================

func benchmarkVM(b *testing.B, prog *bytecode.Program, opts vm.Options) *vm.VM {
	b.Helper()
	opts.Output = io.Discard
	v, err := vm.New(link(b, prog), opts)
	if err != nil {
		b.Fatalf("New failed: %v", err)
	}
	return v
}

func runBenchmark(b *testing.B, v *vm.VM) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := v.Run(); err != nil {
			b.Fatalf("Run failed: %v", err)
		}
	}
}

// =============================================================================
// Calls and primitives
// =============================================================================

// BenchmarkFactorial measures recursive global calls and Int primitives.
func BenchmarkFactorial(b *testing.B) {
	runBenchmark(b, benchmarkVM(b, factProgram(), vm.Options{}))
}

// BenchmarkSlotDispatch measures call-slot through a parent chain.
func BenchmarkSlotDispatch(b *testing.B) {
	runBenchmark(b, benchmarkVM(b, inheritanceProgram(), vm.Options{}))
}

// BenchmarkSlotDispatchUncached is BenchmarkSlotDispatch without the slot cache.
func BenchmarkSlotDispatchUncached(b *testing.B) {
	runBenchmark(b, benchmarkVM(b, inheritanceProgram(), vm.Options{SlotCacheSize: -1}))
}

// =============================================================================
// Allocation and collection
// =============================================================================

// BenchmarkAllocationChurn runs a counting loop whose garbage fits in the
// default heap without collecting.
func BenchmarkAllocationChurn(b *testing.B) {
	runBenchmark(b, benchmarkVM(b, cycleProgram(200), vm.Options{}))
}

// BenchmarkCollection runs the same loop in a heap small enough to collect
// every few iterations.
func BenchmarkCollection(b *testing.B) {
	runBenchmark(b, benchmarkVM(b, cycleProgram(200), vm.Options{SemispaceBytes: 512}))
}
