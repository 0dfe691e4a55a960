// Package narrowphase implements exact collision detection between the
// pairs a broad phase reports as overlapping: GJK for intersection/closest
// features, EPA for penetration depth/normal, and persistent contact
// manifolds that carry warm-start impulses across ticks. Grounded on the
// teacher's physics/gjk.go, epa.go, contact.go and collider.go, generalized
// from lin.V3/float64 to geom/fixed.Fix64 and from the teacher's body/
// collider pair to this module's shape.Shape + geom.RigidTransform pair.
package narrowphase

import (
	"github.com/qrigid/engine/entity"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
)

// Contact is one point of a persistent manifold (§3): a local-space point
// on each body, the separating normal (pointing from B toward A, world
// space), the signed separation along that normal (negative means
// penetrating), and the warm-started impulse state the solver accumulates
// into across ticks.
type Contact struct {
	LocalA, LocalB geom.Vector3
	NormalWorldB   geom.Vector3
	Tangent        [2]geom.Vector3
	Distance       fixed.Fix64

	// Interior marks a sentinel contact produced by the mesh-containment
	// pass (§4.4 step 5): a solid mobile mesh's outer shell yielded no
	// contact this tick, but the other body is found embedded inside it by
	// a ray cast back to its last known good position. Interior contacts
	// carry a fixed, not-geometrically-exact Distance deep enough to make
	// the solver push the embedded body back out, since a single ray hit
	// doesn't otherwise establish a true penetration depth.
	Interior bool

	NormalImpulse  fixed.Fix64
	TangentImpulse [2]fixed.Fix64
	worldA, worldB geom.Vector3
}

// WorldA returns the contact point on A in world space, as of the last
// Refresh/Generate call.
func (c *Contact) WorldA() geom.Vector3 { return c.worldA }

// WorldB returns the contact point on B in world space.
func (c *Contact) WorldB() geom.Vector3 { return c.worldB }

// ContactManifold is the persistent set of up to maxManifoldPoints contacts
// between one ordered pair of entities (§4.4), grounded on contact.go's
// contactPair / persistent-manifold refresh+merge pattern.
type ContactManifold struct {
	A, B entity.ID

	Contacts []Contact

	// BreakingThreshold is the maximum lateral or normal drift a contact
	// point may accumulate before it is discarded on refresh (contact.go's
	// breakingLimit).
	BreakingThreshold fixed.Fix64
}

const maxManifoldPoints = 4

// NewManifold builds an empty manifold for the ordered pair (a, b).
func NewManifold(a, b entity.ID) *ContactManifold {
	return &ContactManifold{A: a, B: b, BreakingThreshold: fixed.FromFloat64(0.02)}
}

// Refresh recomputes each existing contact's world points and separation
// from the current transforms, dropping any point that has drifted beyond
// BreakingThreshold — either along the normal or laterally — per §4.4 and
// contact.go's refreshContacts.
func (m *ContactManifold) Refresh(wtA, wtB geom.RigidTransform) {
	kept := m.Contacts[:0]
	for i := range m.Contacts {
		c := &m.Contacts[i]
		c.worldA = wtA.ToWorld(c.LocalA)
		c.worldB = wtB.ToWorld(c.LocalB)
		c.Distance = c.worldA.Sub(c.worldB).Dot(c.NormalWorldB)

		if c.Distance > m.BreakingThreshold {
			continue
		}
		projected := c.worldA.Sub(c.NormalWorldB.Scale(c.Distance))
		lateral := c.worldB.Sub(projected).LenSq()
		if lateral > m.BreakingThreshold.SafeMul(m.BreakingThreshold) {
			continue
		}
		kept = append(kept, *c)
	}
	m.Contacts = kept
}

// AddOrMerge inserts a freshly generated contact, keeping the warm-start
// impulses of any existing point that refers to (approximately) the same
// surface feature, and otherwise appending it — then, if the manifold now
// holds more than maxManifoldPoints, reduces it via area maximization
// (§4.4 "merge and reduce to 4").
func (m *ContactManifold) AddOrMerge(c Contact) {
	const persistTolSq = 1 << 20 // ~(2^-12)^2 in Q31.32 raw units; a loose same-feature test.
	for i := range m.Contacts {
		existing := &m.Contacts[i]
		if existing.LocalA.Sub(c.LocalA).LenSq().Raw() < persistTolSq {
			c.NormalImpulse = existing.NormalImpulse
			c.TangentImpulse = existing.TangentImpulse
			*existing = c
			return
		}
	}
	m.Contacts = append(m.Contacts, c)
	if len(m.Contacts) > maxManifoldPoints {
		m.Contacts = reduceToFour(m.Contacts)
	}
}

// reduceToFour keeps the deepest point and greedily selects the remaining
// three points that maximize the area of the quadrilateral they form with
// it, the area-maximization policy named in §4.4 (grounded on Bullet's
// btPersistentManifold::sortCachedPoints, reimplemented from scratch here).
func reduceToFour(points []Contact) []Contact {
	deepestIdx := 0
	for i, p := range points {
		if p.Distance < points[deepestIdx].Distance {
			deepestIdx = i
		}
	}
	kept := []int{deepestIdx}
	for len(kept) < maxManifoldPoints {
		bestIdx, bestArea := -1, fixed.MinValue
		for i := range points {
			if contains(kept, i) {
				continue
			}
			area := quadArea(points, kept, i)
			if area > bestArea {
				bestIdx, bestArea = i, area
			}
		}
		if bestIdx < 0 {
			break
		}
		kept = append(kept, bestIdx)
	}
	out := make([]Contact, 0, len(kept))
	for _, i := range kept {
		out = append(out, points[i])
	}
	return out
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// quadArea approximates the area added by including candidate alongside the
// points already in kept, via the sum of cross-product magnitudes between
// the candidate and each kept point's local-space position — a cheap proxy
// for the true polygon area, sufficient to spread the four retained points
// apart.
func quadArea(points []Contact, kept []int, candidate int) fixed.Fix64 {
	total := fixed.Zero
	c := points[candidate].LocalA
	for _, k := range kept {
		total = total.SafeAdd(c.Cross(points[k].LocalA).LenSq())
	}
	return total
}
