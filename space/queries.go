package space

import (
	"sort"

	"github.com/qrigid/engine/broadphase"
	"github.com/qrigid/engine/entity"
	"github.com/qrigid/engine/fixed"
	"github.com/qrigid/engine/geom"
	"github.com/qrigid/engine/narrowphase"
	"github.com/qrigid/engine/shape"
)

// Filter lets a ray_cast/convex_cast/volume_query caller reject entries by
// id before the narrow-phase work of confirming a hit. A nil Filter
// accepts everything.
type Filter func(id entity.ID) bool

func (f Filter) accepts(id entity.ID) bool { return f == nil || f(id) }

// Hit is the exact result of a ray_cast or convex_cast: the entity struck
// and where. For RayCast, T is the ray parameter (Point = origin + dir*T)
// and Normal is the world-space surface normal. For ConvexCast, T is the
// fraction of the sweep, Point is the caster's position at impact, and
// Normal is left zero.
type Hit struct {
	Entity entity.ID
	Point  geom.Vector3
	Normal geom.Vector3
	T      fixed.Fix64
}

// Entry is one result of a VolumeQuery.
type Entry struct {
	Entity entity.ID
}

// RayCast finds the closest exact hit along the finite segment
// [origin, origin+dir*maxT], first narrowing candidates via the broad
// phase's box test and then resolving each with the shape's own RayTest
// (§6's ray_cast). maxT must be positive; a non-positive maxT or a miss
// both report ok=false.
func (s *Space) RayCast(origin, dir geom.Vector3, maxT fixed.Fix64, filter Filter) (Hit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxT <= 0 {
		return Hit{}, false
	}

	candidates, err := s.tree.RayCast(origin, dir, maxT, nil)
	if err != nil {
		return Hit{}, false
	}

	var best Hit
	found := false
	for _, c := range candidates {
		id := s.entryOwner(c.Entry)
		if !filter.accepts(id) {
			continue
		}
		sh, world, _ := s.shapeAndWorld(id)
		localOrigin := world.ToLocal(origin)
		localDir := world.ToLocalDir(dir)
		t, normal, hit := sh.RayTest(localOrigin, localDir, maxT)
		if !hit || (found && t >= best.T) {
			continue
		}
		best = Hit{
			Entity: id,
			Point:  origin.Add(dir.Scale(t)),
			Normal: world.ToWorldDir(normal),
			T:      t,
		}
		found = true
	}
	return best, found
}

// ConvexCast sweeps shape from startTransform along sweep (a world-space
// displacement covering the full cast, not a per-second velocity) and
// reports the closest entity it would strike, via the same bisection TOI
// oracle the integrator's CCD path uses (§6's convex_cast). Candidates are
// prefiltered by the broad phase against the swept bounding box.
func (s *Space) ConvexCast(cast shape.Shape, startTransform geom.RigidTransform, sweep geom.Vector3, filter Filter) (Hit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sweptBox := cast.LocalBoundingBox(startTransform)
	endBox := cast.LocalBoundingBox(geom.RigidTransform{Pos: startTransform.Pos.Add(sweep), Rot: startTransform.Rot})
	sweptBox = sweptBox.Merge(endBox)

	var out []broadphase.EntryID
	out = s.tree.BoxQuery(sweptBox, out)

	var best Hit
	found := false
	for _, entryID := range out {
		id := s.entryOwner(entryID)
		if !filter.accepts(id) {
			continue
		}
		sh, world, _ := s.shapeAndWorld(id)
		toi, hit := narrowphase.TimeOfImpact(cast, startTransform, sweep, geom.Vector3{}, sh, world, geom.Vector3{}, geom.Vector3{}, fixed.One)
		if !hit || (found && toi >= best.T) {
			continue
		}
		best = Hit{
			Entity: id,
			Point:  startTransform.Pos.Add(sweep.Scale(toi)),
			T:      toi,
		}
		found = true
	}
	return best, found
}

// VolumeQuery returns every registered entry (dynamic or static) whose
// broad-phase box overlaps region, in ascending entity-id order (§6's
// volume_query). region is an axis-aligned box; SphereQuery and
// FrustumQuery cover spheres and frustums.
func (s *Space) VolumeQuery(region geom.BoundingBox) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []broadphase.EntryID
	out = s.tree.BoxQuery(region, out)
	return s.entriesFrom(out)
}

// SphereQuery is VolumeQuery specialized for a sphere region.
func (s *Space) SphereQuery(center geom.Vector3, radius fixed.Fix64) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []broadphase.EntryID
	out = s.tree.SphereQuery(center, radius, out)
	return s.entriesFrom(out)
}

// FrustumQuery is VolumeQuery specialized for a view frustum expressed as
// inward-facing half-spaces.
func (s *Space) FrustumQuery(planes []broadphase.FrustumPlane) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []broadphase.EntryID
	out = s.tree.FrustumQuery(planes, out)
	return s.entriesFrom(out)
}

func (s *Space) entriesFrom(ids []broadphase.EntryID) []Entry {
	seen := map[entity.ID]bool{}
	entries := make([]Entry, 0, len(ids))
	for _, entryID := range ids {
		id := s.entryOwner(entryID)
		if seen[id] {
			continue
		}
		seen[id] = true
		entries = append(entries, Entry{Entity: id})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Entity < entries[j].Entity })
	return entries
}
