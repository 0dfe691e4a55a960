package parallel

import (
	"sync/atomic"
	"testing"
)

func TestInlineParallelForVisitsAll(t *testing.T) {
	var count int32
	Inline{}.ParallelFor(100, func(i int) { atomic.AddInt32(&count, 1) })
	if count != 100 {
		t.Errorf("count = %d, want 100", count)
	}
}

func TestWorkerPoolParallelForVisitsAll(t *testing.T) {
	p := NewWorkerPool(4)
	var count int32
	p.ParallelFor(997, func(i int) { atomic.AddInt32(&count, 1) })
	if count != 997 {
		t.Errorf("count = %d, want 997", count)
	}
}

func TestSplitDepthCoversWorkers(t *testing.T) {
	cases := map[int]int{1: 0, 2: 1, 3: 2, 4: 2, 8: 3, 9: 4}
	for workers, want := range cases {
		if got := SplitDepth(workers); got != want {
			t.Errorf("SplitDepth(%d) = %d, want %d", workers, got, want)
		}
	}
}
