package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/config"
)

// Orbit rotates a camera around its target on a sphere, easing pending
// rotation out over several updates when damping is set.
type Orbit struct {
	Enabled       bool
	DampingFactor float64 // 0 applies rotation immediately
	EnableZoom    bool
	RotateSpeed   float64 // radians per viewport height of drag

	MinDistance, MaxDistance float64

	deltaTheta float64
	deltaPhi   float64
	zoom       float64 // pending distance multiplier
}

// polar angle limits keep the camera off the poles
const (
	minPolar = 1e-3
	maxPolar = math.Pi - 1e-3
)

// NewOrbit creates orbit controls from config.
func NewOrbit(cfg config.OrbitConfig) *Orbit {
	return &Orbit{
		Enabled:       cfg.Enabled,
		DampingFactor: cfg.DampingFactor,
		EnableZoom:    cfg.EnableZoom,
		RotateSpeed:   cfg.RotateSpeed,
		MinDistance:   0.5,
		MaxDistance:   100,
		zoom:          1,
	}
}

// Drag queues rotation for a pointer drag of (dx, dy) pixels.
func (o *Orbit) Drag(dx, dy, viewportHeight float64) {
	if !o.Enabled || viewportHeight <= 0 {
		return
	}
	o.deltaTheta -= o.RotateSpeed * dx / viewportHeight
	o.deltaPhi -= o.RotateSpeed * dy / viewportHeight
}

// Zoom queues a distance change. Positive steps move closer. It is a no-op
// unless zoom is enabled.
func (o *Orbit) Zoom(steps float64) {
	if !o.Enabled || !o.EnableZoom {
		return
	}
	o.zoom *= math.Pow(0.95, steps)
}

// Pending reports whether queued rotation is still being applied.
func (o *Orbit) Pending() bool {
	return math.Abs(o.deltaTheta) > 1e-6 || math.Abs(o.deltaPhi) > 1e-6 || o.zoom != 1
}

// Update applies queued motion to c and reports whether the camera moved.
func (o *Orbit) Update(c *Camera) bool {
	if !o.Enabled || !o.Pending() {
		return false
	}

	offset := r3.Sub(c.Position, c.Target)
	radius := r3.Norm(offset)
	if !(radius > 0) {
		return false
	}
	theta := math.Atan2(offset.X, offset.Z)
	phi := math.Acos(math.Max(-1, math.Min(1, offset.Y/radius)))

	f := o.DampingFactor
	if f <= 0 || f > 1 {
		f = 1
	}
	theta += o.deltaTheta * f
	phi += o.deltaPhi * f
	phi = math.Max(minPolar, math.Min(maxPolar, phi))
	radius = math.Max(o.MinDistance, math.Min(o.MaxDistance, radius*o.zoom))
	o.zoom = 1

	if f < 1 {
		o.deltaTheta *= 1 - f
		o.deltaPhi *= 1 - f
	} else {
		o.deltaTheta, o.deltaPhi = 0, 0
	}

	sinPhi := math.Sin(phi)
	c.Position = r3.Add(c.Target, r3.Vec{
		X: radius * sinPhi * math.Sin(theta),
		Y: radius * math.Cos(phi),
		Z: radius * sinPhi * math.Cos(theta),
	})
	return true
}
