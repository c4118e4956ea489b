package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/camera"
	"github.com/pthm-cable/aquaism/components"
	"github.com/pthm-cable/aquaism/config"
)

// Repulsor is the pointer-driven kinematic body that pushes metaballs aside.
//
// The pointer ray is intersected with a finite square plane facing the camera.
// A miss leaves the target where it was.
type Repulsor struct {
	world   *ecs.World
	entity  ecs.Entity
	kinMap  *ecs.Map1[components.Kinematic]
	offset  float64
	half    float64
	radius  float64
	target  r3.Vec
	tracked bool // at least one hit so far
}

// NewRepulsor creates the repulsor entity at the tracking plane center for a
// camera looking along viewDir.
func NewRepulsor(w *ecs.World, cfg *config.Config, viewDir r3.Vec) *Repulsor {
	r := &Repulsor{
		world:  w,
		kinMap: ecs.NewMap1[components.Kinematic](w),
		offset: cfg.Repulsor.PlaneOffset,
		half:   cfg.Repulsor.PlaneSize / 2,
		radius: cfg.Derived.RepulsorRadius,
	}
	r.target = r.planeCenter(viewDir)

	mapper := ecs.NewMap4[components.Kinematic, components.Position, components.Velocity, components.Collider](w)
	pos := components.Position{}
	pos.Set(r.target)
	r.entity = mapper.NewEntity(
		&components.Kinematic{Target: r.target, Prev: r.target},
		&pos,
		&components.Velocity{},
		&components.Collider{Radius: r.radius, Restitution: cfg.Body.Restitution, Friction: cfg.Body.Friction},
	)
	return r
}

// Entity returns the repulsor's ECS entity.
func (r *Repulsor) Entity() ecs.Entity { return r.entity }

// Radius returns the collider radius.
func (r *Repulsor) Radius() float64 { return r.radius }

// Target returns the current target position.
func (r *Repulsor) Target() r3.Vec { return r.target }

// Tracked reports whether the pointer has hit the tracking plane at least once.
func (r *Repulsor) Tracked() bool { return r.tracked }

// Track projects the pointer ray onto the tracking plane for a camera looking
// along viewDir and, on a hit, moves the repulsor target there. It reports whether
// the ray hit.
func (r *Repulsor) Track(ray camera.Ray, viewDir r3.Vec) bool {
	hit, ok := r.Intersect(ray, viewDir)
	if !ok {
		return false
	}
	r.target = hit
	r.tracked = true
	if r.world.Alive(r.entity) {
		r.kinMap.Get(r.entity).Target = hit
	}
	return true
}

// Intersect returns where ray meets the tracking plane's front face.
func (r *Repulsor) Intersect(ray camera.Ray, viewDir r3.Vec) (r3.Vec, bool) {
	n, ok := unit(r3.Scale(-1, viewDir))
	if !ok {
		return r3.Vec{}, false
	}
	dir, ok := unit(ray.Dir)
	if !ok || !finiteVec(ray.Origin) {
		return r3.Vec{}, false
	}

	denom := r3.Dot(dir, n)
	if denom >= -1e-9 {
		// Parallel, or approaching the back face
		return r3.Vec{}, false
	}
	center := r3.Scale(r.offset, n)
	t := r3.Dot(r3.Sub(center, ray.Origin), n) / denom
	if !(t > 0) {
		return r3.Vec{}, false
	}
	hit := r3.Add(ray.Origin, r3.Scale(t, dir))
	if !finiteVec(hit) {
		return r3.Vec{}, false
	}

	u, v := planeAxes(n)
	local := r3.Sub(hit, center)
	if math.Abs(r3.Dot(local, u)) > r.half || math.Abs(r3.Dot(local, v)) > r.half {
		return r3.Vec{}, false
	}
	return hit, true
}

// planeCenter returns the tracking plane center for viewDir.
func (r *Repulsor) planeCenter(viewDir r3.Vec) r3.Vec {
	n, ok := unit(r3.Scale(-1, viewDir))
	if !ok {
		return r3.Vec{}
	}
	return r3.Scale(r.offset, n)
}

// planeAxes returns an orthonormal in-plane basis for normal n, with v as close
// to world up as possible.
func planeAxes(n r3.Vec) (u, v r3.Vec) {
	up := r3.Vec{Y: 1}
	if math.Abs(r3.Dot(up, n)) > 0.999 {
		up = r3.Vec{Z: 1}
	}
	u = r3.Unit(r3.Cross(up, n))
	v = r3.Cross(n, u)
	return u, v
}

func unit(v r3.Vec) (r3.Vec, bool) {
	n := r3.Norm(v)
	if !(n > 0) || math.IsInf(n, 0) {
		return r3.Vec{}, false
	}
	return r3.Scale(1/n, v), true
}

func finiteVec(v r3.Vec) bool {
	return !math.IsNaN(v.X+v.Y+v.Z) && !math.IsInf(v.X+v.Y+v.Z, 0)
}
