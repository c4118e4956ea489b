package components

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/config"
)

// Identity carries a body's stable ID.
type Identity struct {
	ID uint64 `inspect:"label"`
}

// Collider is a sphere collider with its contact material.
// Kinematic bodies have zero inverse mass and inertia.
type Collider struct {
	Radius      float64 `inspect:"label,fmt:%.2f"`
	Mass        float64 `inspect:"label,fmt:%.4f"`
	InvMass     float64 `inspect:"skip"`
	InvInertia  float64 `inspect:"skip"`
	Restitution float64 `inspect:"bar,max:1"`
	Friction    float64 `inspect:"bar,max:1"`
}

// SphereCollider builds a solid-sphere collider of the given density.
func SphereCollider(radius, density, restitution, friction float64) Collider {
	mass := density * 4.0 / 3.0 * math.Pi * radius * radius * radius
	c := Collider{
		Radius:      radius,
		Mass:        mass,
		Restitution: restitution,
		Friction:    friction,
	}
	if mass > 0 {
		c.InvMass = 1 / mass
		// I = 2/5 m r² for a solid sphere
		c.InvInertia = 1 / (0.4 * mass * radius * radius)
	}
	return c
}

// ColliderFromConfig returns the collider shared by all dynamic bodies.
func ColliderFromConfig(b config.BodyConfig) Collider {
	return SphereCollider(b.Radius, b.Density, b.Restitution, b.Friction)
}

// KinematicCollider returns an infinite-mass sphere collider.
func KinematicCollider(radius, restitution, friction float64) Collider {
	return Collider{Radius: radius, Restitution: restitution, Friction: friction}
}

// Damping holds velocity damping coefficients per second.
type Damping struct {
	Linear  float64 `inspect:"label,fmt:%.1f"`
	Angular float64 `inspect:"label,fmt:%.1f"`
}

// DampingFromConfig returns the damping shared by all dynamic bodies.
func DampingFromConfig(b config.BodyConfig) Damping {
	return Damping{Linear: b.LinearDamping, Angular: b.AngularDamping}
}

// Tint is the palette color a body contributes to the field.
type Tint struct {
	R, G, B float32 `inspect:"bar,max:1"`
	Index   int     `inspect:"label"` // palette slot
}

// Kinematic marks a body that is teleported to Target each tick.
// Prev is the position before the last move and yields the implied velocity.
type Kinematic struct {
	Target r3.Vec `inspect:"skip"`
	Prev   r3.Vec `inspect:"skip"`
}
