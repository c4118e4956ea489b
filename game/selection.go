package game

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/camera"
	"github.com/pthm-cable/aquaism/components"
	"github.com/pthm-cable/aquaism/systems"
)

// BodyInfo is a snapshot of one body's components for inspection.
type BodyInfo struct {
	ID       systems.BodyID
	Slot     int
	Position components.Position
	Velocity components.Velocity
	Spin     components.Spin
	Collider components.Collider
	Damping  components.Damping
	Tint     components.Tint
}

// bodyMaps reads the components of a body for inspection.
type bodyMaps struct {
	pos      *ecs.Map1[components.Position]
	vel      *ecs.Map1[components.Velocity]
	spin     *ecs.Map1[components.Spin]
	collider *ecs.Map1[components.Collider]
	damping  *ecs.Map1[components.Damping]
	tint     *ecs.Map1[components.Tint]
}

func newBodyMaps(w *ecs.World) *bodyMaps {
	return &bodyMaps{
		pos:      ecs.NewMap1[components.Position](w),
		vel:      ecs.NewMap1[components.Velocity](w),
		spin:     ecs.NewMap1[components.Spin](w),
		collider: ecs.NewMap1[components.Collider](w),
		damping:  ecs.NewMap1[components.Damping](w),
		tint:     ecs.NewMap1[components.Tint](w),
	}
}

// Pick selects the body nearest the camera under the pointer at NDC (x, y).
// Picking empty space clears the selection.
func (s *Simulation) Pick(x, y float64) (systems.BodyID, bool) {
	if s.closed {
		return 0, false
	}
	ray := s.camera.RayFromNDC(x, y)
	radius := s.cfg.Body.Radius

	best := math.Inf(1)
	s.selected = 0
	for i, slot := range s.population.Slots() {
		t, ok := raySphere(ray, s.population.Position(i), radius)
		if ok && t < best {
			best = t
			s.selected = slot.ID
		}
	}
	return s.selected, s.selected != 0
}

// ClearSelection drops the selected body.
func (s *Simulation) ClearSelection() {
	s.selected = 0
}

// Selected returns the selected body's components. It reports false when
// nothing is selected or the body has since been removed.
func (s *Simulation) Selected() (BodyInfo, bool) {
	if s.closed || s.selected == 0 {
		return BodyInfo{}, false
	}
	i := s.population.Index(s.selected)
	if i < 0 {
		s.selected = 0
		return BodyInfo{}, false
	}
	if s.bodies == nil {
		s.bodies = newBodyMaps(s.world)
	}
	e := s.population.Slots()[i].Entity
	return BodyInfo{
		ID:       s.selected,
		Slot:     i,
		Position: *s.bodies.pos.Get(e),
		Velocity: *s.bodies.vel.Get(e),
		Spin:     *s.bodies.spin.Get(e),
		Collider: *s.bodies.collider.Get(e),
		Damping:  *s.bodies.damping.Get(e),
		Tint:     *s.bodies.tint.Get(e),
	}, true
}

// raySphere returns the nearest non-negative hit distance along ray.
func raySphere(ray camera.Ray, center r3.Vec, radius float64) (float64, bool) {
	oc := r3.Sub(ray.Origin, center)
	b := r3.Dot(oc, ray.Dir)
	c := r3.Dot(oc, oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}
