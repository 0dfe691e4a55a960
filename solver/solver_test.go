package solver

import (
	"sync"
	"testing"

	"github.com/qrigid/engine/constraint"
	"github.com/qrigid/engine/entity"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/parallel"
	"github.com/qrigid/engine/shape"
)

func dynamicBox(mass float64) *entity.Entity {
	e := entity.New(shape.NewBox(fixed.One, fixed.One, fixed.One, 0))
	e.SetMaterial(fixed.FromFloat64(mass), entity.DefaultMaterial)
	return e
}

func staticBox() *entity.Entity {
	e := entity.New(shape.NewBox(fixed.One, fixed.One, fixed.One, 0))
	e.SetMaterial(0, entity.DefaultMaterial)
	return e
}

// TestSolveConvergesBoxOnFloor exercises the full pipeline end to end: a
// box resting on a static floor should have its downward velocity arrested
// within a handful of ticks, with no pulling impulse (§8's box-on-plane
// scenario).
func TestSolveConvergesBoxOnFloor(t *testing.T) {
	floor := staticBox()
	box := dynamicBox(1)
	box.LinVel = geom.V3(0, fixed.FromFloat64(-3), 0)

	c := constraint.NewPenetrationConstraint(floor, box, geom.Vector3{}, geom.Vector3{}, geom.V3(0, fixed.One, 0), fixed.FromFloat64(-0.01))
	rows := []Row{{IslandKey: 0, ID: 0, C: c}}
	dt := fixed.FromFloat64(1.0 / 60)

	for i := 0; i < 30; i++ {
		Solve(parallel.Inline{}, rows, dt, DefaultConfig(), nil)
	}
	if box.LinVel.Y < 0 {
		t.Fatalf("expected downward velocity to be arrested, got %v", box.LinVel.Y.Float64())
	}
	if c.AppliedImpulse < 0 {
		t.Fatalf("contact impulse went negative: %v", c.AppliedImpulse.Float64())
	}
}

// TestSolveOrderingIsDeterministic asserts §4.6's ordering guarantee: two
// runs over the same rows (submitted in different slice order, forcing the
// sort) produce identical results.
func TestSolveOrderingIsDeterministic(t *testing.T) {
	run := func(shuffled bool) fixed.Fix64 {
		floor := staticBox()
		a := dynamicBox(1)
		b := dynamicBox(1)
		a.LinVel = geom.V3(0, fixed.FromFloat64(-2), 0)
		b.LinVel = geom.V3(0, fixed.FromFloat64(-2), 0)

		ca := constraint.NewPenetrationConstraint(floor, a, geom.Vector3{}, geom.Vector3{}, geom.V3(0, fixed.One, 0), fixed.FromFloat64(-0.01))
		cb := constraint.NewPenetrationConstraint(floor, b, geom.Vector3{}, geom.Vector3{}, geom.V3(0, fixed.One, 0), fixed.FromFloat64(-0.01))

		var rows []Row
		if shuffled {
			rows = []Row{{IslandKey: 0, ID: 7, C: cb}, {IslandKey: 0, ID: 3, C: ca}}
		} else {
			rows = []Row{{IslandKey: 0, ID: 3, C: ca}, {IslandKey: 0, ID: 7, C: cb}}
		}
		dt := fixed.FromFloat64(1.0 / 60)
		for i := 0; i < 10; i++ {
			Solve(parallel.Inline{}, rows, dt, DefaultConfig(), nil)
		}
		return a.LinVel.Y
	}

	if run(false) != run(true) {
		t.Fatal("solve result depends on input row order; expected deterministic (island, id) sort")
	}
}

// TestSolveSkipsInactiveIslands asserts that rows whose island reports
// inactive are left entirely untouched (§4.7).
func TestSolveSkipsInactiveIslands(t *testing.T) {
	floor := staticBox()
	box := dynamicBox(1)
	box.LinVel = geom.V3(0, fixed.FromFloat64(-3), 0)
	c := constraint.NewPenetrationConstraint(floor, box, geom.Vector3{}, geom.Vector3{}, geom.V3(0, fixed.One, 0), fixed.FromFloat64(-0.01))
	rows := []Row{{IslandKey: 1, ID: 0, C: c}}

	dt := fixed.FromFloat64(1.0 / 60)
	Solve(parallel.Inline{}, rows, dt, DefaultConfig(), func(key int64) bool { return false })

	if c.AppliedImpulse != 0 {
		t.Fatal("expected an inactive island's constraint to never be pre-stepped or solved")
	}
	if box.LinVel.Y >= 0 {
		t.Fatal("expected the skipped body's velocity to be untouched")
	}
}

// TestSolveDistinctIslandsRunConcurrently is a light smoke test that a
// multi-worker pool driving many independent single-row islands produces
// the same per-row result as the inline pool, i.e. no cross-island data
// race corrupts any single island's outcome (§5).
func TestSolveDistinctIslandsRunConcurrently(t *testing.T) {
	const n = 64
	floors := make([]*entity.Entity, n)
	boxes := make([]*entity.Entity, n)
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		floors[i] = staticBox()
		boxes[i] = dynamicBox(1)
		boxes[i].LinVel = geom.V3(0, fixed.FromFloat64(-3), 0)
		c := constraint.NewPenetrationConstraint(floors[i], boxes[i], geom.Vector3{}, geom.Vector3{}, geom.V3(0, fixed.One, 0), fixed.FromFloat64(-0.01))
		rows[i] = Row{IslandKey: int64(i), ID: uint64(i), C: c}
	}

	dt := fixed.FromFloat64(1.0 / 60)
	pool := parallel.NewWorkerPool(8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 30; i++ {
			Solve(pool, rows, dt, DefaultConfig(), nil)
		}
	}()
	wg.Wait()

	for i := 0; i < n; i++ {
		if boxes[i].LinVel.Y < 0 {
			t.Fatalf("island %d: downward velocity not arrested, got %v", i, boxes[i].LinVel.Y.Float64())
		}
	}
}
