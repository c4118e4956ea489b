// Package components defines ECS components for the simulation.
package components

import "gonum.org/v1/gonum/spatial/r3"

// Position represents a body's world position.
type Position struct {
	X, Y, Z float64 `inspect:"label,fmt:%.2f"`
}

// Vec returns the position as a vector.
func (p Position) Vec() r3.Vec { return r3.Vec{X: p.X, Y: p.Y, Z: p.Z} }

// Set replaces the position.
func (p *Position) Set(v r3.Vec) { p.X, p.Y, p.Z = v.X, v.Y, v.Z }

// Velocity represents a body's linear velocity.
type Velocity struct {
	X, Y, Z float64 `inspect:"label,fmt:%.3f"`
}

func (v Velocity) Vec() r3.Vec    { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }
func (v *Velocity) Set(w r3.Vec)  { v.X, v.Y, v.Z = w.X, w.Y, w.Z }
func (v Velocity) Speed() float64 { return r3.Norm(v.Vec()) }

// Spin represents a body's angular velocity in radians per second.
type Spin struct {
	X, Y, Z float64 `inspect:"label,fmt:%.3f"`
}

func (s Spin) Vec() r3.Vec   { return r3.Vec{X: s.X, Y: s.Y, Z: s.Z} }
func (s *Spin) Set(w r3.Vec) { s.X, s.Y, s.Z = w.X, w.Y, w.Z }

// Force accumulates the external force applied during one tick.
type Force struct {
	X, Y, Z float64 `inspect:"skip"`
}

func (f Force) Vec() r3.Vec { return r3.Vec{X: f.X, Y: f.Y, Z: f.Z} }

// Add accumulates v into the force.
func (f *Force) Add(v r3.Vec) {
	f.X += v.X
	f.Y += v.Y
	f.Z += v.Z
}

// Reset zeroes the force.
func (f *Force) Reset() { *f = Force{} }
