package island

import "github.com/qrigid/engine/fixed"

// splitTag marks a member's BFS ownership during a split's two-way search
// (§4.7: "unclaimed, owned_by_first, owned_by_second").
type splitTag int

const (
	unclaimed splitTag = iota
	ownedByFirst
	ownedBySecond
)

// edgesOf returns every live (non-removed) connection touching id, scanning
// the flat connection list — adequate at the island graph's scale (a
// handful of constraints per body); a larger deployment would index this
// by member, noted as a possible follow-up.
func (g *Graph) edgesOf(id MemberID) []int {
	var out []int
	for i := range g.connections {
		c := g.connections[i]
		if c.removed {
			continue
		}
		if c.A == id || c.B == id {
			out = append(out, i)
		}
	}
	return out
}

func (g *Graph) other(conn *Connection, id MemberID) MemberID {
	if conn.A == id {
		return conn.B
	}
	return conn.A
}

// trySplit runs the two-way BFS for a single removed connection (§4.7): if
// a search outward from one endpoint exhausts its frontier without ever
// reaching the other endpoint, the searched side is disconnected from the
// rest of its island and is carved into a fresh island.
func (g *Graph) trySplit(connIdx int) {
	conn := g.connections[connIdx]
	_, aok := g.members[conn.A]
	_, bok := g.members[conn.B]
	if !aok || !bok {
		return // an endpoint is gone; nothing to split.
	}
	root := g.islandOf(conn.A)
	if root != g.islandOf(conn.B) {
		return // already in different islands (a prior split handled it).
	}

	tags := map[MemberID]splitTag{conn.A: ownedByFirst, conn.B: ownedBySecond}
	queueA := []MemberID{conn.A}
	queueB := []MemberID{conn.B}
	met := false

	// Run both searches to exhaustion (not just until one empties): if they
	// never meet, every member of the island ends up tagged owned_by_first
	// or owned_by_second, and those two tag sets are exactly the split.
	for (len(queueA) > 0 || len(queueB) > 0) && !met {
		if len(queueA) > 0 {
			met = g.bfsStep(&queueA, ownedByFirst, tags) || met
		}
		if met {
			break
		}
		if len(queueB) > 0 {
			met = g.bfsStep(&queueB, ownedBySecond, tags) || met
		}
	}

	if met {
		return // the two searches met: the island stays connected.
	}

	var first, second []MemberID
	for id, tag := range tags {
		if tag == ownedByFirst {
			first = append(first, id)
		} else {
			second = append(second, id)
		}
	}
	if len(first) == 0 || len(second) == 0 {
		return // degenerate: one side never grew (shouldn't happen once exhausted).
	}
	// Carve out the smaller side into a fresh island; the larger side keeps
	// the original root, so most members need no bookkeeping change.
	isolated := first
	if len(second) < len(first) {
		isolated = second
	}
	g.carveIsland(root, isolated)
}

// bfsStep expands one BFS frontier by one level, tagging newly visited
// members with owner and reporting whether it touched a member already
// tagged with the opposite owner (the two searches "met").
func (g *Graph) bfsStep(queue *[]MemberID, owner splitTag, tags map[MemberID]splitTag) bool {
	opposite := ownedByFirst
	if owner == ownedByFirst {
		opposite = ownedBySecond
	}
	next := (*queue)[0]
	*queue = (*queue)[1:]
	for _, ei := range g.edgesOf(next) {
		e := g.connections[ei]
		peer := g.other(e, next)
		if tags[peer] == opposite {
			return true
		}
		if tags[peer] == unclaimed {
			tags[peer] = owner
			*queue = append(*queue, peer)
		}
	}
	return false
}

// carveIsland moves `isolated` members out of `from` into a freshly
// allocated island.
func (g *Graph) carveIsland(from islandID, isolated []MemberID) {
	fresh := g.allocIsland()
	for _, id := range isolated {
		m := g.members[id]
		m.island = fresh
		g.islands[from].memberCount--
		g.islands[fresh].memberCount++
		if m.candidate {
			g.islands[from].candidateCount--
			g.islands[fresh].candidateCount++
		}
	}
	g.islands[fresh].size = len(isolated)
	g.islands[from].size -= len(isolated)
	g.islands[fresh].state = Active // a freshly split island always wakes active.
}

// ProcessSplits drains a bounded fraction (Config.SplitFraction, floor
// Config.SplitMinimum) of the queued connection removals, per §4.7.
func (g *Graph) ProcessSplits() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.pendingRemove) == 0 {
		return
	}
	n := int(fixed.FromInt(int64(len(g.pendingRemove))).SafeMul(g.Config.SplitFraction).Int())
	if n < g.Config.SplitMinimum {
		n = g.Config.SplitMinimum
	}
	if n > len(g.pendingRemove) {
		n = len(g.pendingRemove)
	}
	batch := g.pendingRemove[:n]
	g.pendingRemove = g.pendingRemove[n:]
	for _, idx := range batch {
		g.trySplit(idx)
	}
	g.compactConnections()
}

// compactConnections drops fully-removed-and-processed connections from
// the tail of the slice once no pending index still references them,
// keeping the connection list from growing without bound.
func (g *Graph) compactConnections() {
	if len(g.pendingRemove) > 0 {
		return // still-pending indices reference the current layout; wait.
	}
	kept := g.connections[:0]
	for _, c := range g.connections {
		if !c.removed {
			kept = append(kept, c)
		}
	}
	g.connections = kept
}

// UpdateMember reports a member's current kinetic energy for the tick,
// advancing or resetting its low-velocity timer and candidate flag
// (§4.7's "deactivation candidate" definition), and keeping the owning
// island's candidate count in sync.
func (g *Graph) UpdateMember(id MemberID, kineticEnergy, dt fixed.Fix64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[id]
	if !ok {
		return
	}
	root := g.find(m.island)
	m.island = root
	wasCandidate := m.candidate

	if kineticEnergy < g.Config.LowVelocityThreshold {
		m.lowVelocityTime = m.lowVelocityTime.SafeAdd(dt)
	} else {
		m.lowVelocityTime = 0
		g.wake(root)
	}
	m.candidate = m.lowVelocityTime >= g.Config.MinLowVelocityDuration

	if m.candidate != wasCandidate {
		if m.candidate {
			g.islands[root].candidateCount++
		} else {
			g.islands[root].candidateCount--
		}
	}
}

// ProcessDeactivation sweeps up to Config.MaxDeactivationAttempts islands,
// starting from a rotating index (§4.7: "rotates the starting index to
// spread cost"), transitioning any whose candidate_count == member_count
// to Inactive, and reclaiming any island whose member count has dropped to
// zero (the "island corruption" failure mode of §4.8).
func (g *Graph) ProcessDeactivation() {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.islands)
	if n == 0 {
		return
	}
	attempts := g.Config.MaxDeactivationAttempts
	if attempts > n {
		attempts = n
	}
	for i := 0; i < attempts; i++ {
		idx := islandID((g.sweepStart + i) % n)
		isl := &g.islands[idx]
		if !isl.alive || isl.parent != idx {
			continue // not a live root (merged away or never allocated).
		}
		if isl.memberCount == 0 {
			isl.alive = false
			g.freeIslands = append(g.freeIslands, idx)
			continue
		}
		if isl.state == Active && isl.candidateCount == isl.memberCount {
			isl.state = Inactive
		}
	}
	g.sweepStart = (g.sweepStart + attempts) % n
}

// IsActive reports whether the island containing id is currently active.
func (g *Graph) IsActive(id MemberID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[id]
	if !ok {
		return true
	}
	return g.islands[g.find(m.island)].state == Active
}

// MemberCount and CandidateCount expose an island's bookkeeping for tests
// and diagnostics (§8's candidate_count <= member_count invariant).
func (g *Graph) MemberCount(id MemberID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[id]
	if !ok {
		return 0
	}
	return g.islands[g.find(m.island)].memberCount
}

func (g *Graph) CandidateCount(id MemberID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[id]
	if !ok {
		return 0
	}
	return g.islands[g.find(m.island)].candidateCount
}

// IslandKey returns a stable key identifying id's current island, suitable
// for the parallel solver to group members by island (§5: "distinct
// islands share no bodies and so can be solved concurrently").
func (g *Graph) IslandKey(id MemberID) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[id]
	if !ok {
		return int64(noIsland)
	}
	return int64(g.find(m.island))
}
