// Package island implements the simulation-island graph and deactivation
// manager (§4.7): dynamic entities are nodes, constraints (manifolds and
// joints) are edges, and the graph is partitioned into maximal connected
// components — each solved and slept as a unit. Grounded on the teacher's
// physics/broad.go union-find (uf_find/uf_union/uf_collect_all/
// broad_collect_simulation_islands), generalized from a per-tick
// from-scratch rebuild into an incremental merge-on-add, deferred-
// BFS-split-on-remove design per §4.7.
package island

import (
	"sync"

	"github.com/qrigid/engine/fixed"
)

// MemberID identifies a dynamic entity known to the island graph — the
// host's entity.ID, opaque to this package.
type MemberID uint64

// islandID is an internal, pool-recycled island slot index.
type islandID int32

const noIsland islandID = -1

// State is an island's activation state (§4.7's state machine).
type State int

const (
	// Active islands are solved every tick.
	Active State = iota
	// Inactive islands are skipped by the solver entirely.
	Inactive
)

// member is per-entity bookkeeping: the island it was last assigned to
// (possibly stale after a merge — resolved to the true root via find) and
// its deactivation-candidacy state.
type member struct {
	island          islandID
	candidate       bool
	lowVelocityTime fixed.Fix64
}

// simIsland is a pooled island record (§3's SimulationIsland): `parent`
// is the union-find link to another island, self-referential at the root,
// path-compressed lazily on find — directly mirroring the teacher's
// uf_find/uf_union over a map[bid]bid, generalized to islands instead of
// bodies and updated incrementally instead of rebuilt every tick.
type simIsland struct {
	alive          bool
	state          State
	parent         islandID
	memberCount    int
	candidateCount int
	size           int // member count at last union, used for union-by-size
}

// Connection is an edge in the island graph induced by a manifold or joint.
type Connection struct {
	A, B    MemberID
	removed bool // slated for removal (§4.7's deferred split)
}

// Config holds the deactivation manager's tunables (§4.7, §6 defaults).
type Config struct {
	// LowVelocityThreshold is the kinetic-energy cutoff below which a
	// member starts accumulating low-velocity time.
	LowVelocityThreshold fixed.Fix64
	// MinLowVelocityDuration is how long a member must stay below
	// LowVelocityThreshold before it becomes a deactivation candidate.
	MinLowVelocityDuration fixed.Fix64
	// MaxDeactivationAttempts bounds how many islands the sweep inspects
	// per tick (default 100).
	MaxDeactivationAttempts int
	// SplitFraction bounds the fraction of queued removals processed per
	// tick (default ~0.04); SplitMinimum is the floor on that count
	// (default 3), so small queues still drain.
	SplitFraction fixed.Fix64
	SplitMinimum  int
}

// DefaultConfig mirrors §4.7/§6's stated defaults.
func DefaultConfig() Config {
	return Config{
		LowVelocityThreshold:    fixed.FromFloat64(0.01),
		MinLowVelocityDuration:  fixed.FromFloat64(0.5),
		MaxDeactivationAttempts: 100,
		SplitFraction:           fixed.FromFloat64(0.04),
		SplitMinimum:            3,
	}
}

// Graph is the deactivation manager: the island partition of the
// constraint graph plus the deferred-split and deactivation sweeps.
type Graph struct {
	mu sync.Mutex // serializes merge/split per §4.7, §5.

	Config Config

	members map[MemberID]*member
	order   []MemberID // stable iteration order, for deterministic sweeps

	islands    []simIsland
	freeIslands []islandID

	// connections holds one heap-allocated Connection per edge. Storing
	// *Connection (rather than Connection with pointers taken into the
	// slice) means AddConnection/RemoveConnection's returned/matched
	// pointers stay valid across any reallocation the outer slice's own
	// growth causes — growing []*Connection only copies pointers, never
	// the pointed-to Connection values.
	connections   []*Connection
	pendingRemove []int // indices into connections slated for removal

	sweepStart int // rotating start index for the deactivation sweep (§4.7)
}

// NewGraph builds an empty island graph.
func NewGraph(cfg Config) *Graph {
	return &Graph{
		Config:  cfg,
		members: map[MemberID]*member{},
	}
}

func (g *Graph) allocIsland() islandID {
	if n := len(g.freeIslands); n > 0 {
		id := g.freeIslands[n-1]
		g.freeIslands = g.freeIslands[:n-1]
		g.islands[id] = simIsland{alive: true, state: Active, parent: id}
		return id
	}
	id := islandID(len(g.islands))
	g.islands = append(g.islands, simIsland{alive: true, state: Active, parent: id})
	return id
}

// AddMember registers a dynamic entity with the graph as its own
// single-member island, if not already present.
func (g *Graph) AddMember(id MemberID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.members[id]; ok {
		return
	}
	isl := g.allocIsland()
	g.islands[isl].memberCount = 1
	g.islands[isl].size = 1
	g.members[id] = &member{island: isl}
	g.order = append(g.order, id)
}

// RemoveMember removes an entity from the graph entirely (e.g. on entity
// removal from the space), detaching all of its connections.
func (g *Graph) RemoveMember(id MemberID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[id]
	if !ok {
		return
	}
	root := g.find(m.island)
	g.islands[root].memberCount--
	if m.candidate {
		g.islands[root].candidateCount--
	}
	delete(g.members, id)
	for i, o := range g.order {
		if o == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	// Connections referencing id are left in place; the BFS split sweep
	// treats a missing member as already isolated and drops the edge.
}

// find resolves an island id to its union-find root, path-compressing
// every visited node's parent pointer directly to the root on the way out
// — grounded on uf_find, generalized from a map[bid]bid over bodies to a
// parent-pointer field over pooled islands.
func (g *Graph) find(id islandID) islandID {
	root := id
	for g.islands[root].parent != root {
		root = g.islands[root].parent
	}
	for g.islands[id].parent != root {
		next := g.islands[id].parent
		g.islands[id].parent = root
		id = next
	}
	return root
}

// islandOf returns the live root island a member currently belongs to.
func (g *Graph) islandOf(id MemberID) islandID {
	m := g.members[id]
	root := g.find(m.island)
	m.island = root
	return root
}

// wake transitions id's island to Active (called on any impulse
// application, explicit mutation, or graph edit touching a member).
func (g *Graph) wake(isl islandID) {
	g.islands[isl].state = Active
}

// Wake activates the island containing id, per §4.7's "activation
// propagates to the whole island."
func (g *Graph) Wake(id MemberID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[id]
	if !ok {
		return
	}
	g.wake(g.find(m.island))
}

// AddConnection adds an edge between a and b (induced by a new manifold or
// joint), merging their islands if they differ — the smaller island is
// merged into the larger by member count (union by size), both are woken.
func (g *Graph) AddConnection(a, b MemberID) *Connection {
	g.mu.Lock()
	defer g.mu.Unlock()
	conn := &Connection{A: a, B: b}
	g.connections = append(g.connections, conn)

	_, aok := g.members[a]
	_, bok := g.members[b]
	if !aok || !bok {
		return conn // one endpoint is kinematic/static or unregistered; skip merge.
	}
	ia, ib := g.islandOf(a), g.islandOf(b)
	if ia == ib {
		g.wake(ia)
		return conn
	}

	small, large := ia, ib
	if g.islands[ia].size > g.islands[ib].size {
		small, large = ib, ia
	}
	g.mergeInto(small, large)
	g.wake(large)
	return conn
}

// mergeInto union-finds small's root onto large's root (union by size) —
// grounded on uf_union, which sets the smaller tree's root parent to the
// larger tree's root rather than rewriting every member. small's slot is
// NOT returned to the free pool: members may still hold a stale (pre-
// path-compression) reference to it, and reusing the index for a new
// island before every such reference resolves via find() would silently
// misroute them. Only an island whose member count reaches zero through
// RemoveMember (never through a merge) is ever recycled, by the
// deactivation sweep's empty-island reclaim.
func (g *Graph) mergeInto(small, large islandID) {
	g.islands[large].memberCount += g.islands[small].memberCount
	g.islands[large].candidateCount += g.islands[small].candidateCount
	g.islands[large].size += g.islands[small].size
	g.islands[small].parent = large
	g.islands[small].alive = false
}

// RemoveConnection marks conn slated for removal; the actual split (if any)
// is processed later by ProcessSplits, per §4.7's deferred-removal design.
func (g *Graph) RemoveConnection(conn *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if conn.removed {
		return
	}
	conn.removed = true
	for i := range g.connections {
		if g.connections[i] == conn {
			g.pendingRemove = append(g.pendingRemove, i)
			break
		}
	}
	m1, ok1 := g.members[conn.A]
	m2, ok2 := g.members[conn.B]
	if ok1 {
		g.wake(g.find(m1.island))
	}
	if ok2 {
		g.wake(g.find(m2.island))
	}
}
