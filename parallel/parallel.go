// Package parallel defines the host-supplied worker-pool collaborator
// named in spec §5 ("an optional parallel mode uses a host-supplied worker
// pool that exposes a blocking parallel_for primitive"). The teacher
// (gazed-vu) has no such collaborator of its own — it is single-threaded —
// so this interface is new, grounded directly on the spec's wording; the
// default implementation below runs inline, and SplitDepth below is sized
// using golang.org/x/sys/cpu (a dependency carried from the teacher's
// go.mod that otherwise has no home in this module, per SPEC_FULL.md §4.9).
package parallel

import (
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Pool runs a blocking parallel-for over [0,n), calling body(i) for each i.
// Implementations must return only once every call to body has completed.
type Pool interface {
	ParallelFor(n int, body func(i int))
}

// Inline is the default, single-threaded Pool: it is always available and
// used when the host supplies no pool (§5 "single-threaded by default").
type Inline struct{}

func (Inline) ParallelFor(n int, body func(i int)) {
	for i := 0; i < n; i++ {
		body(i)
	}
}

// WorkerPool is a simple goroutine-per-chunk Pool, the shape a host would
// typically hand in.
type WorkerPool struct {
	Workers int
}

// NewWorkerPool builds a WorkerPool sized to the host's worker count (0 or
// negative defaults to GOMAXPROCS).
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &WorkerPool{Workers: workers}
}

func (p *WorkerPool) ParallelFor(n int, body func(i int)) {
	if n == 0 {
		return
	}
	workers := p.Workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			body(i)
		}
		return
	}
	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				body(i)
			}
		}(lo, hi)
	}
	wg.Wait()
}

// CacheLineSize reports the platform's data cache line size, used to pad
// per-worker scratch buffers and avoid false sharing during the parallel
// BVH refit/overlap fan-out (§4.3 "multithreaded variant").
func CacheLineSize() int {
	return int(unsafe.Sizeof(cpu.CacheLinePad{}))
}

// SplitDepth derives a conservative BVH split depth from a worker count:
// enough internal levels that 2^depth >= workers, so each worker gets at
// least one disjoint subtree to refit/emit without coordination (§4.3 —
// spec explicitly calls for deriving this from configured/measured worker
// count rather than hard-coding a per-platform offset table, per the
// "Open questions" note in spec §9).
func SplitDepth(workers int) int {
	depth := 0
	for (1 << depth) < workers {
		depth++
	}
	return depth
}
