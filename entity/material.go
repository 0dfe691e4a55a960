// Package entity implements the rigid body (§3 Entity) and its supporting
// Material and activity-tracking records, grounded on the teacher's
// physics/body.go body struct (imass, lvel/avel, damping, sbod
// back-reference, pairID, combinedFriction/combinedRestitution,
// updateInertiaTensor, integrateVelocities).
package entity

import "github.com/qrigid/engine/fixed"

// BlendPolicy decides how two materials' friction/bounciness combine.
type BlendPolicy int

const (
	// BlendAverage averages the two values (Bullet/Jitter-style default).
	BlendAverage BlendPolicy = iota
	// BlendMultiply multiplies the two values (teacher's
	// combinedFriction/combinedRestitution behavior).
	BlendMultiply
	// BlendMin takes the smaller value.
	BlendMin
	// BlendMax takes the larger value.
	BlendMax
)

// Material carries the physical properties shared by reference among
// entities (§3).
type Material struct {
	StaticFriction  fixed.Fix64
	KineticFriction fixed.Fix64
	Bounciness      fixed.Fix64
	Blend           BlendPolicy
}

// DefaultMaterial mirrors the teacher's body defaults (friction 0.5,
// restitution 0).
var DefaultMaterial = &Material{StaticFriction: fixed.FromFloat64(0.5), KineticFriction: fixed.FromFloat64(0.5)}

func blend(policy BlendPolicy, a, b fixed.Fix64) fixed.Fix64 {
	switch policy {
	case BlendMultiply:
		return a.SafeMul(b)
	case BlendMin:
		return fixed.Min(a, b)
	case BlendMax:
		return fixed.Max(a, b)
	default:
		return a.SafeAdd(b).SafeMul(fixed.Half)
	}
}

// CombineFriction blends two materials' kinetic friction using the first
// material's blend policy, matching the teacher's combinedFriction but
// generalized beyond pure multiplication.
func CombineFriction(a, b *Material, useStatic bool) fixed.Fix64 {
	af, bf := a.KineticFriction, b.KineticFriction
	if useStatic {
		af, bf = a.StaticFriction, b.StaticFriction
	}
	return blend(a.Blend, af, bf)
}

// CombineBounciness blends two materials' bounciness.
func CombineBounciness(a, b *Material) fixed.Fix64 {
	return blend(a.Blend, a.Bounciness, b.Bounciness)
}
