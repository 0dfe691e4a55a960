// Package solver drives the projected Gauss-Seidel velocity solve (§4.6):
// pre-step, warm start, then N deterministic sequential-impulse iterations
// over every active constraint row. Grounded on the teacher's
// physics/solver.go solveIterations/solveSingleIteration pipeline
// (setup once, iterate N times, apply clamped delta impulses in place),
// generalized from the teacher's fixed contact/friction row pair to the
// general constraint.Constraint interface and from a single-threaded sweep
// to one parallelized by island per §5.
package solver

import (
	"sort"

	"github.com/qrigid/engine/constraint"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/parallel"
)

// Config holds the solver's tunables.
type Config struct {
	// Iterations is the number of velocity iterations per tick (§4.6,
	// default ~10 — matches the teacher's newSolverInfo numIterations).
	Iterations int
}

// DefaultConfig mirrors §4.6/§6's stated default iteration count.
func DefaultConfig() Config {
	return Config{Iterations: 10}
}

// Row pairs a constraint with the bookkeeping the solver needs to order and
// group it. IslandKey groups rows into independent batches that share no
// bodies and so can run concurrently without locks (§5); rows with the same
// IslandKey are always solved sequentially, in the same goroutine. ID
// breaks ties within an island deterministically (§4.6: "ordering within an
// iteration is deterministic, by island member id then constraint id").
type Row struct {
	IslandKey int64
	ID        uint64
	C         constraint.Constraint
}

// Solve runs one tick's pipeline (§4.6 steps 1-3) over rows:
//
//  1. Pre-step every row (jacobian/effective-mass/bias computation).
//  2. Warm start every row (re-apply the prior tick's accumulated impulse).
//  3. Run Iterations velocity iterations, each visiting every row once in
//     deterministic (island, id) order.
//
// active, if non-nil, is consulted once per island key; rows whose island
// reports inactive are skipped entirely, per §4.7 ("an inactive island's
// members' constraints are skipped by the solver"). Passing a nil active
// solves every row.
//
// Distinct islands are hashed into disjoint groups and handed to pool, one
// group per task, so that warm-start and the velocity iterations never
// have two goroutines touching the same body's velocity (§5) — the only
// cross-island interaction is the deterministic sort beforehand, which
// pool.ParallelFor does not need to see.
func Solve(pool parallel.Pool, rows []Row, dt fixed.Fix64, cfg Config, active func(islandKey int64) bool) {
	if len(rows) == 0 {
		return
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = DefaultConfig().Iterations
	}

	live := rows
	if active != nil {
		live = make([]Row, 0, len(rows))
		for _, r := range rows {
			if active(r.IslandKey) {
				live = append(live, r)
			}
		}
	}
	if len(live) == 0 {
		return
	}

	sort.Slice(live, func(i, j int) bool {
		if live[i].IslandKey != live[j].IslandKey {
			return live[i].IslandKey < live[j].IslandKey
		}
		return live[i].ID < live[j].ID
	})

	groups := groupByIsland(live)
	if pool == nil {
		pool = parallel.Inline{}
	}
	pool.ParallelFor(len(groups), func(i int) {
		solveGroup(groups[i], dt, iterations)
	})
}

// solveGroup runs the full pre-step/warm-start/iterate pipeline for a
// single island's rows, single-threaded and in the order they were sorted.
func solveGroup(rows []Row, dt fixed.Fix64, iterations int) {
	for _, r := range rows {
		r.C.PreStep(dt)
	}
	for _, r := range rows {
		r.C.WarmStart()
	}
	for iter := 0; iter < iterations; iter++ {
		for _, r := range rows {
			r.C.Solve(dt)
		}
	}
}

// groupByIsland splits a slice already sorted by IslandKey into contiguous
// per-island runs.
func groupByIsland(rows []Row) [][]Row {
	groups := make([][]Row, 0, len(rows))
	i := 0
	for i < len(rows) {
		j := i + 1
		for j < len(rows) && rows[j].IslandKey == rows[i].IslandKey {
			j++
		}
		groups = append(groups, rows[i:j])
		i = j
	}
	return groups
}
