// Package space implements the top-level Space aggregate of spec §6: the
// host-facing entry point that owns the broad phase, narrow phase
// manifolds, island graph, constraint rows and solver/integrator, and
// drives them through one fixed-order tick. Grounded on the teacher's
// physics/physics.go Simulate entry point (gravity application, a single
// pbd_simulate call, clear_forces), generalized from a flat body slice
// into the registries and phased-hook pipeline spec §6 names.
package space

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/qrigid/engine/broadphase"
	"github.com/qrigid/engine/constraint"
	"github.com/qrigid/engine/entity"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/integrate"
	"github.com/qrigid/engine/island"
	"github.com/qrigid/engine/narrowphase"
	"github.com/qrigid/engine/parallel"
	"github.com/qrigid/engine/shape"
	"github.com/qrigid/engine/solver"
)

// Phase names the four points in a tick at which a host hook may run,
// per spec §6's add_updateable(hook, phase).
type Phase int

const (
	BeforeNarrow Phase = iota
	BeforeSolver
	BeforeIntegration
	EndOfStep
)

// Hook is a host-supplied per-tick callback registered via AddUpdateable.
type Hook func(dt fixed.Fix64)

// Joint is the subset of constraint.Constraint a host-level joint/limit/
// motor implements; identical to constraint.Constraint, named separately
// here so the joint registry's intent reads clearly at the Space API.
type Joint = constraint.Constraint

type jointEntry struct {
	j    Joint
	conn *island.Connection // nil if either endpoint is static/unregistered
}

// Space is the primary aggregate described in spec §6: it owns every
// subsystem and exposes the add/remove/step/query surface a host embeds.
type Space struct {
	mu sync.Mutex

	Config Config
	Pool   parallel.Pool
	Logger *slog.Logger

	tree  *broadphase.Tree[entity.ID]
	boxID map[entity.ID]broadphase.EntryID

	bodies  map[entity.ID]*entity.Entity
	statics map[entity.ID]*entity.Entity

	islands *island.Graph

	manifolds    map[uint64]*narrowphase.ContactManifold
	manifoldConn map[uint64]*island.Connection // dynamic-dynamic manifolds only

	joints    map[uint64]*jointEntry
	nextJoint uint64

	hooks [4][]Hook

	solverCfg    solver.Config
	integrateCfg integrate.Config
}

// NewSpace builds an empty Space from cfg, wiring the island graph's
// deactivation tunables and the solver/integrate configs from cfg's
// host-facing float fields. pool may be nil, in which case the solver runs
// single-threaded via parallel.Inline{}.
func NewSpace(cfg Config, pool parallel.Pool) *Space {
	if pool == nil {
		pool = parallel.Inline{}
	}
	return &Space{
		Config:       cfg,
		Pool:         pool,
		Logger:       slog.Default(),
		tree:         broadphase.NewTree[entity.ID](),
		boxID:        map[entity.ID]broadphase.EntryID{},
		bodies:       map[entity.ID]*entity.Entity{},
		statics:      map[entity.ID]*entity.Entity{},
		islands:      island.NewGraph(cfg.Deactivation.ToIslandConfig()),
		manifolds:    map[uint64]*narrowphase.ContactManifold{},
		manifoldConn: map[uint64]*island.Connection{},
		joints:       map[uint64]*jointEntry{},
		solverCfg:    cfg.Solver.ToSolverConfig(),
		integrateCfg: cfg.UltraDamping.ToIntegrateConfig(),
	}
}

// margin returns the configured default collision margin, applied to
// broad-phase AABBs when an entity's shape doesn't otherwise account for
// one.
func (s *Space) margin() fixed.Fix64 {
	return fixed.FromFloat64(s.Config.Constraint.DefaultMargin)
}

// AddEntity registers a dynamic entity with the broad phase and island
// graph. Re-adding an already-registered entity is an InvalidArgument
// (spec §7: "adding ... a member that already belongs to another
// manager").
func (s *Space) AddEntity(e *entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e == nil {
		return invalidArgf("add_entity: nil entity")
	}
	if _, ok := s.bodies[e.ID()]; ok {
		return invalidArgf("add_entity: entity %d already registered", e.ID())
	}
	box := e.WorldAabb(s.margin())
	id := s.tree.Insert(box, e.ID())
	s.boxID[e.ID()] = id
	s.bodies[e.ID()] = e
	s.islands.AddMember(island.MemberID(e.ID()))
	return nil
}

// RemoveEntity unregisters a dynamic entity, dropping its broad-phase
// entry, island membership, and any manifolds touching it. Removing an
// entity that was never added is a MissingEntity error (spec §7).
func (s *Space) RemoveEntity(e *entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e == nil {
		return missingEntityf("remove_entity: nil entity")
	}
	if _, ok := s.bodies[e.ID()]; !ok {
		return missingEntityf("remove_entity: entity %d not registered", e.ID())
	}
	s.tree.Remove(s.boxID[e.ID()])
	delete(s.boxID, e.ID())
	delete(s.bodies, e.ID())
	s.islands.RemoveMember(island.MemberID(e.ID()))
	for key, m := range s.manifolds {
		if m.A == e.ID() || m.B == e.ID() {
			s.dropManifold(key)
		}
	}
	return nil
}

// AddStatic registers a non-dynamic collidable (mass 0 or kinematic) with
// the broad phase only; statics never join the island graph.
func (s *Space) AddStatic(e *entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e == nil {
		return invalidArgf("add_static: nil entity")
	}
	if _, ok := s.statics[e.ID()]; ok {
		return invalidArgf("add_static: entity %d already registered", e.ID())
	}
	box := e.WorldAabb(s.margin())
	id := s.tree.Insert(box, e.ID())
	s.boxID[e.ID()] = id
	s.statics[e.ID()] = e
	return nil
}

// RemoveStatic unregisters a static collidable previously added via
// AddStatic.
func (s *Space) RemoveStatic(e *entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e == nil {
		return missingEntityf("remove_static: nil entity")
	}
	if _, ok := s.statics[e.ID()]; !ok {
		return missingEntityf("remove_static: entity %d not registered", e.ID())
	}
	s.tree.Remove(s.boxID[e.ID()])
	delete(s.boxID, e.ID())
	delete(s.statics, e.ID())
	for key, m := range s.manifolds {
		if m.A == e.ID() || m.B == e.ID() {
			s.dropManifold(key)
		}
	}
	return nil
}

// dropManifold removes a manifold and, if it induced an island-graph
// connection (both endpoints dynamic), tears that connection down too so
// ProcessSplits sees the edge disappear.
func (s *Space) dropManifold(key uint64) {
	delete(s.manifolds, key)
	if conn, ok := s.manifoldConn[key]; ok {
		s.islands.RemoveConnection(conn)
		delete(s.manifoldConn, key)
	}
}

// AddJoint registers a joint/limit/motor, waking and connecting its two
// endpoints in the island graph (kinematic/static endpoints are skipped by
// Graph.AddConnection itself). Returns an opaque id a host can later pass
// to RemoveJoint.
func (s *Space) AddJoint(a, b *entity.Entity, j Joint) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j == nil {
		return 0, invalidArgf("add_joint: nil joint")
	}
	s.nextJoint++
	id := s.nextJoint
	entry := &jointEntry{j: j}
	if a != nil && b != nil {
		entry.conn = s.islands.AddConnection(island.MemberID(a.ID()), island.MemberID(b.ID()))
	}
	s.joints[id] = entry
	return id, nil
}

// RemoveJoint unregisters a joint previously added via AddJoint, tearing
// down its island-graph connection if it had one. Removing an id that was
// never returned by AddJoint is a MissingEntity error.
func (s *Space) RemoveJoint(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.joints[id]
	if !ok {
		return missingEntityf("remove_joint: joint %d not registered", id)
	}
	if entry.conn != nil {
		s.islands.RemoveConnection(entry.conn)
	}
	delete(s.joints, id)
	return nil
}

// AddUpdateable registers a host hook to run at the named phase of every
// subsequent Step.
func (s *Space) AddUpdateable(hook Hook, phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[phase] = append(s.hooks[phase], hook)
}

func (s *Space) runHooks(phase Phase, dt fixed.Fix64) {
	for _, h := range s.hooks[phase] {
		h(dt)
	}
}

// Step advances the simulation by dt, running the fixed subsystem order
// of §2/§4.6: forces+broad-phase refresh, narrow phase, island bookkeeping,
// constraint assembly, solve, integrate, damping, forces cleared — with
// host hooks firing at the four named phases. Grounded on
// gazed-vu/physics/physics.go's Simulate (gravity loop, pbd_simulate,
// clear_forces), generalized into the registries this package owns.
func (s *Space) Step(dt fixed.Fix64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gravity := s.Config.Gravity.ToVector3()
	ids := s.sortedBodyIDs()
	for _, id := range ids {
		e := s.bodies[id]
		e.ApplyGravity(gravity)
		e.IntegrateVelocities(dt)
		e.UpdatePredictedTransform(dt)
	}

	s.refreshBroadphase()

	s.runHooks(BeforeNarrow, dt)
	pairs := s.tree.Pairs()
	s.refreshNarrowphase(pairs)

	s.runHooks(BeforeSolver, dt)
	rows := s.assembleRows(dt)

	solver.Solve(s.Pool, rows, dt, s.solverCfg, func(key int64) bool {
		return key < 0 || s.islandActiveByKey(key)
	})

	s.runHooks(BeforeIntegration, dt)
	for _, id := range ids {
		e := s.bodies[id]
		if !e.Activity.Active {
			continue
		}
		candidates := s.ccdCandidates(e)
		integrate.Step(e, dt, s.integrateCfg, candidates)
		s.islands.UpdateMember(island.MemberID(id), e.KineticEnergy(), dt)
		e.ClearForces()
	}

	s.islands.ProcessSplits()
	s.islands.ProcessDeactivation()
	for _, id := range ids {
		e := s.bodies[id]
		e.Activity.Active = s.islands.IsActive(island.MemberID(id))
	}

	s.runHooks(EndOfStep, dt)
}

// sortedBodyIDs returns every dynamic entity id in ascending order, the
// deterministic iteration order §4.6 requires ("by island member id then
// constraint id").
func (s *Space) sortedBodyIDs() []entity.ID {
	ids := make([]entity.ID, 0, len(s.bodies))
	for id := range s.bodies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// islandActiveByKey reports whether the island graph considers the island
// holding any currently-known member with the given raw key active; since
// island.Graph indexes by MemberID rather than by key directly, this walks
// the (small) body set once per lookup — acceptable given Config's
// deactivation sweep is itself bounded per tick.
func (s *Space) islandActiveByKey(key int64) bool {
	for id := range s.bodies {
		if s.islands.IslandKey(island.MemberID(id)) == key {
			return s.islands.IsActive(island.MemberID(id))
		}
	}
	return true
}

// shapeAndWorld returns the shape and world transform for any registered
// id (dynamic or static).
func (s *Space) shapeAndWorld(id entity.ID) (shape.Shape, geom.RigidTransform, *entity.Entity) {
	if e, ok := s.bodies[id]; ok {
		return e.Shape, e.World, e
	}
	e := s.statics[id]
	return e.Shape, e.World, e
}

// refreshBroadphase moves every live entry to its current tight box (the
// broad phase's §4.3 per-tick refit pass).
func (s *Space) refreshBroadphase() {
	tight := make(map[broadphase.EntryID]geom.BoundingBox, len(s.boxID))
	for id, boxID := range s.boxID {
		sh, world, _ := s.shapeAndWorld(id)
		tight[boxID] = sh.LocalBoundingBox(world).Expanded(s.margin())
	}
	s.tree.Refit(tight)
}

// refreshNarrowphase refreshes every existing manifold and regenerates
// candidates for every broad-phase pair touching at least one dynamic
// body, creating new manifolds as needed and dropping ones whose pair no
// longer overlaps the broad phase at all (§4.4 steps 1-3).
func (s *Space) refreshNarrowphase(pairs []broadphase.Pair) {
	live := map[uint64]bool{}
	for _, p := range pairs {
		idA := s.entryOwner(p.A)
		idB := s.entryOwner(p.B)
		_, dynA := s.bodies[idA]
		_, dynB := s.bodies[idB]
		if !dynA && !dynB {
			continue // two statics never generate a manifold.
		}
		key := pairKey(idA, idB)
		live[key] = true

		m, ok := s.manifolds[key]
		if !ok {
			m = narrowphase.NewManifold(idA, idB)
			m.BreakingThreshold = fixed.FromFloat64(s.Config.Constraint.ContactInvalidationLength)
			s.manifolds[key] = m
			if dynA && dynB {
				s.manifoldConn[key] = s.islands.AddConnection(island.MemberID(idA), island.MemberID(idB))
			}
		}
		shapeA, worldA, entA := s.shapeAndWorld(idA)
		shapeB, worldB, entB := s.shapeAndWorld(idB)
		m.Refresh(worldA, worldB)
		narrowphase.Generate(m, shapeA, worldA, entA.Guess, shapeB, worldB, entB.Guess)
	}

	for key := range s.manifolds {
		if live[key] {
			continue
		}
		s.dropManifold(key)
	}
}

func (s *Space) entryOwner(id broadphase.EntryID) entity.ID {
	return s.tree.Entry(id).Owner
}

func pairKey(a, b entity.ID) uint64 {
	id0, id1 := uint64(a), uint64(b)
	if id0 > id1 {
		id0, id1 = id1, id0
	}
	return id0<<32 | id1
}

// assembleRows rebuilds one PenetrationConstraint + central sliding/twist
// friction pair per manifold, plus every registered joint, as solver.Row
// values keyed by island for parallel-by-island solving (§4.5, §4.6, §5).
// Warm-start state for contacts lives on narrowphase.Contact itself
// (NormalImpulse/TangentImpulse), carried across ticks by the manifold's
// own AddOrMerge persistence; rebuilding the constraint rows fresh each
// tick and copying that state in/out here mirrors Bullet's own practice of
// rebuilding solverConstraint rows every tick from a persistent manifold
// (documented in DESIGN.md's space entry).
func (s *Space) assembleRows(dt fixed.Fix64) []solver.Row {
	var rows []solver.Row
	var nextID uint64

	manifoldKeys := make([]uint64, 0, len(s.manifolds))
	for k := range s.manifolds {
		manifoldKeys = append(manifoldKeys, k)
	}
	sort.Slice(manifoldKeys, func(i, j int) bool { return manifoldKeys[i] < manifoldKeys[j] })

	for _, key := range manifoldKeys {
		m := s.manifolds[key]
		a := s.entityOf(m.A)
		b := s.entityOf(m.B)
		if a == nil || b == nil || len(m.Contacts) == 0 {
			if a == nil || b == nil {
				s.Logger.Debug("assemble_rows: manifold endpoint vanished, dropping stale row", "a", m.A, "b", m.B)
			}
			continue
		}
		islandKey := s.manifoldIslandKey(m)

		cc := s.Config.Constraint
		var centerSum geom.Vector3
		for i := range m.Contacts {
			c := &m.Contacts[i]
			anchorA := a.World.ToWorldDir(c.LocalA)
			anchorB := b.World.ToWorldDir(c.LocalB)
			pc := constraint.NewPenetrationConstraint(a, b, anchorA, anchorB, c.NormalWorldB.Neg(), c.Distance)
			pc.AppliedImpulse = c.NormalImpulse
			pc.ERP = fixed.FromFloat64(cc.ErrorCorrectionFactor)
			pc.LinearSlop = fixed.FromFloat64(cc.AllowedPenetration)
			pc.MaxCorrectiveVelocity = fixed.FromFloat64(cc.MaxCorrectiveVelocity)
			pc.BouncinessVelocityThreshold = fixed.FromFloat64(cc.BouncinessVelocityThreshold)
			rows = append(rows, solver.Row{IslandKey: islandKey, ID: nextID, C: &persistentPenetration{pc, c}})
			nextID++
			centerSum = centerSum.Add(c.WorldA())
		}
		center := centerSum.Scale(fixed.One.SafeDiv(fixed.FromInt(int64(len(m.Contacts)))))
		first := &m.Contacts[0]
		anchorA := center.Sub(a.World.Pos)
		anchorB := center.Sub(b.World.Pos)

		sliding := constraint.NewSlidingFrictionConstraint(a, b, anchorA, anchorB, first.Tangent[0], s.dummyNormalFor(m))
		sliding.AppliedImpulse = first.TangentImpulse[0]
		rows = append(rows, solver.Row{IslandKey: islandKey, ID: nextID, C: &persistentSliding{sliding, first}})
		nextID++

		twist := constraint.NewTwistFrictionConstraint(a, b, first.NormalWorldB, s.dummyNormalFor(m))
		twist.AppliedImpulse = first.TangentImpulse[1]
		rows = append(rows, solver.Row{IslandKey: islandKey, ID: nextID, C: &persistentTwist{twist, first}})
		nextID++
	}

	jointIDs := make([]uint64, 0, len(s.joints))
	for id := range s.joints {
		jointIDs = append(jointIDs, id)
	}
	sort.Slice(jointIDs, func(i, j int) bool { return jointIDs[i] < jointIDs[j] })
	for _, id := range jointIDs {
		rows = append(rows, solver.Row{IslandKey: -1, ID: nextID, C: s.joints[id].j})
		nextID++
	}
	return rows
}

// dummyNormalFor builds a throwaway PenetrationConstraint carrying the
// manifold's accumulated normal impulse summed across contacts, solely to
// supply SlidingFrictionConstraint/TwistFrictionConstraint's friction-cone
// bound (which reads Normal.AppliedImpulse). The real per-contact
// penetration rows above are the ones actually solved and warm-started;
// this exists only because the constraint package couples each friction
// row to one *PenetrationConstraint rather than a manifold-wide sum.
func (s *Space) dummyNormalFor(m *narrowphase.ContactManifold) *constraint.PenetrationConstraint {
	sum := fixed.Zero
	for i := range m.Contacts {
		sum = sum.SafeAdd(m.Contacts[i].NormalImpulse)
	}
	pc := &constraint.PenetrationConstraint{}
	pc.AppliedImpulse = sum
	return pc
}

func (s *Space) entityOf(id entity.ID) *entity.Entity {
	if e, ok := s.bodies[id]; ok {
		return e
	}
	if e, ok := s.statics[id]; ok {
		return e
	}
	return nil
}

// manifoldIslandKey returns the island key of the manifold's dynamic
// endpoint (A's when both are dynamic), or -1 when neither endpoint is
// dynamic.
func (s *Space) manifoldIslandKey(m *narrowphase.ContactManifold) int64 {
	_, dynA := s.bodies[m.A]
	_, dynB := s.bodies[m.B]
	if dynA {
		return s.islands.IslandKey(island.MemberID(m.A))
	}
	if dynB {
		return s.islands.IslandKey(island.MemberID(m.B))
	}
	return -1
}

// ccdCandidates returns every other entity e might sweep into this tick,
// queried via the broad phase's predicted (Guess) transform, for CCD
// bodies only.
func (s *Space) ccdCandidates(e *entity.Entity) []integrate.CCDCandidate {
	if !e.CCD {
		return nil
	}
	box := e.Shape.LocalBoundingBox(e.World).Merge(e.Shape.LocalBoundingBox(e.Guess)).Expanded(s.margin())
	var out []broadphase.EntryID
	out = s.tree.BoxQuery(box, out)
	var candidates []integrate.CCDCandidate
	for _, entryID := range out {
		id := s.entryOwner(entryID)
		if id == e.ID() {
			continue
		}
		other := s.entityOf(id)
		if other == nil || other == e {
			continue
		}
		candidates = append(candidates, integrate.CCDCandidate{Other: other})
	}
	return candidates
}
