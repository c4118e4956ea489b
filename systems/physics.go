package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/components"
	"github.com/pthm-cable/aquaism/config"
)

// Contact solver tuning.
const (
	correctionSlop    = 0.001 // overlap tolerated without positional correction
	correctionPercent = 0.8   // fraction of the remaining overlap removed per iteration
	gridExtent        = 8.0   // half extent of the broad-phase grid
)

// upAxis is the contact normal used when two centers coincide.
var upAxis = r3.Vec{Y: 1}

// PhysicsWorld integrates body motion at a fixed timestep.
//
// Each step teleports kinematic bodies to their targets, resets and reapplies the
// central attraction on dynamic bodies, integrates with semi-implicit Euler and
// resolves sphere contacts.
type PhysicsWorld struct {
	dynamic   ecs.Filter6[components.Position, components.Velocity, components.Spin, components.Force, components.Collider, components.Damping]
	kinematic ecs.Filter4[components.Kinematic, components.Position, components.Velocity, components.Collider]

	posMap  *ecs.Map1[components.Position]
	velMap  *ecs.Map1[components.Velocity]
	spinMap *ecs.Map1[components.Spin]

	dt          float64
	maxSubsteps int
	iterations  int
	attraction  float64
	origin      r3.Vec

	accumulator float64
	steps       uint64

	grid      *SpatialGrid
	bodies    []rigid
	pairs     [][2]int
	neighbors []Neighbor
}

// rigid is the solver's scratch copy of one body.
type rigid struct {
	e         ecs.Entity
	pos       r3.Vec
	vel       r3.Vec
	spin      r3.Vec
	col       components.Collider
	kinematic bool
}

// NewPhysicsWorld creates a physics world over the bodies in w.
func NewPhysicsWorld(w *ecs.World, cfg *config.Config) *PhysicsWorld {
	dt := cfg.Physics.DT
	if dt <= 0 {
		dt = 1.0 / 60.0
	}
	maxSubsteps := cfg.Physics.MaxSubsteps
	if maxSubsteps < 1 {
		maxSubsteps = 1
	}
	iterations := cfg.Physics.SolverIterations
	if iterations < 1 {
		iterations = 1
	}
	ext := r3.Vec{X: gridExtent, Y: gridExtent, Z: gridExtent}

	return &PhysicsWorld{
		dynamic:     *ecs.NewFilter6[components.Position, components.Velocity, components.Spin, components.Force, components.Collider, components.Damping](w),
		kinematic:   *ecs.NewFilter4[components.Kinematic, components.Position, components.Velocity, components.Collider](w),
		posMap:      ecs.NewMap1[components.Position](w),
		velMap:      ecs.NewMap1[components.Velocity](w),
		spinMap:     ecs.NewMap1[components.Spin](w),
		dt:          dt,
		maxSubsteps: maxSubsteps,
		iterations:  iterations,
		attraction:  cfg.Body.Attraction,
		grid:        NewSpatialGrid(r3.Scale(-1, ext), ext, cfg.Physics.GridCellSize),
	}
}

// DT returns the fixed timestep.
func (p *PhysicsWorld) DT() float64 { return p.dt }

// Steps returns the number of fixed steps run so far.
func (p *PhysicsWorld) Steps() uint64 { return p.steps }

// Advance accumulates frame time and runs the fixed steps it covers, at most
// maxSubsteps per call. Any backlog beyond that is dropped. It returns the
// number of steps run.
func (p *PhysicsWorld) Advance(frameDT float64) int {
	if !(frameDT > 0) || math.IsInf(frameDT, 0) {
		return 0
	}
	p.accumulator += frameDT

	n := 0
	for p.accumulator >= p.dt-1e-9 && n < p.maxSubsteps {
		p.Step(p.dt)
		p.accumulator -= p.dt
		n++
	}
	if p.accumulator < 0 {
		p.accumulator = 0
	}
	if n == p.maxSubsteps && p.accumulator > p.dt {
		p.accumulator = 0
	}
	return n
}

// Step runs a single physics step of length dt.
func (p *PhysicsWorld) Step(dt float64) {
	p.moveKinematic(dt)
	p.integrate(dt)
	p.solveContacts()
	p.steps++
}

// moveKinematic teleports kinematic bodies to their targets and records the implied velocity.
func (p *PhysicsWorld) moveKinematic(dt float64) {
	query := p.kinematic.Query()
	for query.Next() {
		kin, pos, vel, _ := query.Get()
		kin.Prev = pos.Vec()
		pos.Set(kin.Target)
		vel.Set(r3.Scale(1/dt, r3.Sub(kin.Target, kin.Prev)))
	}
}

// integrate applies the attraction force and advances dynamic bodies.
func (p *PhysicsWorld) integrate(dt float64) {
	linearFactor := func(d float64) float64 { return 1 / (1 + dt*d) }

	query := p.dynamic.Query()
	for query.Next() {
		pos, vel, spin, force, col, damp := query.Get()

		force.Reset()
		force.Add(Attraction(pos.Vec(), p.origin, p.attraction))

		v := r3.Add(vel.Vec(), r3.Scale(col.InvMass*dt, force.Vec()))
		v = r3.Scale(linearFactor(damp.Linear), v)
		vel.Set(v)
		spin.Set(r3.Scale(linearFactor(damp.Angular), spin.Vec()))
		pos.Set(r3.Add(pos.Vec(), r3.Scale(dt, v)))
	}
}

// Attraction returns the force pulling a body at pos toward origin with the given magnitude.
// A body at the origin feels no force.
func Attraction(pos, origin r3.Vec, magnitude float64) r3.Vec {
	d := r3.Sub(pos, origin)
	n := r3.Norm(d)
	if n == 0 || math.IsNaN(n) {
		return r3.Vec{}
	}
	return r3.Scale(-magnitude/n, d)
}

// solveContacts resolves sphere overlaps among all bodies.
func (p *PhysicsWorld) solveContacts() {
	p.gather()
	if len(p.bodies) < 2 {
		return
	}

	p.grid.Clear()
	maxRadius := 0.0
	for i := range p.bodies {
		p.grid.Insert(i, p.bodies[i].pos)
		maxRadius = math.Max(maxRadius, p.bodies[i].col.Radius)
	}

	p.pairs = p.pairs[:0]
	for i := range p.bodies {
		b := &p.bodies[i]
		p.neighbors = p.grid.QueryRadiusInto(p.neighbors[:0], b.pos, b.col.Radius+maxRadius, i)
		for _, n := range p.neighbors {
			if n.Index > i {
				p.pairs = append(p.pairs, [2]int{i, n.Index})
			}
		}
	}

	for iter := 0; iter < p.iterations; iter++ {
		for _, pair := range p.pairs {
			resolve(&p.bodies[pair[0]], &p.bodies[pair[1]])
		}
	}

	p.scatter()
}

// gather copies every collider into the solver scratch.
func (p *PhysicsWorld) gather() {
	p.bodies = p.bodies[:0]

	kq := p.kinematic.Query()
	for kq.Next() {
		_, pos, vel, col := kq.Get()
		p.bodies = append(p.bodies, rigid{e: kq.Entity(), pos: pos.Vec(), vel: vel.Vec(), col: *col, kinematic: true})
	}

	dq := p.dynamic.Query()
	for dq.Next() {
		pos, vel, spin, _, col, _ := dq.Get()
		p.bodies = append(p.bodies, rigid{e: dq.Entity(), pos: pos.Vec(), vel: vel.Vec(), spin: spin.Vec(), col: *col})
	}
}

// scatter writes solved dynamic state back to the components.
func (p *PhysicsWorld) scatter() {
	for i := range p.bodies {
		b := &p.bodies[i]
		if b.kinematic {
			continue
		}
		p.posMap.Get(b.e).Set(b.pos)
		p.velMap.Get(b.e).Set(b.vel)
		p.spinMap.Get(b.e).Set(b.spin)
	}
}

// resolve applies normal, friction and positional correction impulses to one pair.
func resolve(a, b *rigid) {
	wa, wb := a.col.InvMass, b.col.InvMass
	w := wa + wb
	if w == 0 {
		return
	}

	d := r3.Sub(b.pos, a.pos)
	dist := r3.Norm(d)
	overlap := a.col.Radius + b.col.Radius - dist
	if overlap <= 0 {
		return
	}
	n := upAxis
	if dist > 1e-9 {
		n = r3.Scale(1/dist, d)
	}

	ra := r3.Scale(a.col.Radius, n)
	rb := r3.Scale(-b.col.Radius, n)
	relVel := func() r3.Vec {
		va := r3.Add(a.vel, r3.Cross(a.spin, ra))
		vb := r3.Add(b.vel, r3.Cross(b.spin, rb))
		return r3.Sub(vb, va)
	}

	restitution := (a.col.Restitution + b.col.Restitution) / 2
	friction := (a.col.Friction + b.col.Friction) / 2

	// Normal impulse
	rv := relVel()
	vn := r3.Dot(rv, n)
	jn := 0.0
	if vn < 0 {
		jn = -(1 + restitution) * vn / w
		a.vel = r3.Sub(a.vel, r3.Scale(jn*wa, n))
		b.vel = r3.Add(b.vel, r3.Scale(jn*wb, n))
	}

	// Coulomb friction, applied at the contact point so it also changes spin
	if jn > 0 && friction > 0 {
		rv = relVel()
		vt := r3.Sub(rv, r3.Scale(r3.Dot(rv, n), n))
		speed := r3.Norm(vt)
		if speed > 1e-9 {
			t := r3.Scale(1/speed, vt)
			k := w + a.col.Radius*a.col.Radius*a.col.InvInertia + b.col.Radius*b.col.Radius*b.col.InvInertia
			jt := math.Min(speed/k, friction*jn)
			impulse := r3.Scale(-jt, t) // acts on b, opposite on a

			a.vel = r3.Sub(a.vel, r3.Scale(wa, impulse))
			b.vel = r3.Add(b.vel, r3.Scale(wb, impulse))
			a.spin = r3.Add(a.spin, r3.Scale(a.col.InvInertia, r3.Cross(ra, r3.Scale(-1, impulse))))
			b.spin = r3.Add(b.spin, r3.Scale(b.col.InvInertia, r3.Cross(rb, impulse)))
		}
	}

	// Positional correction, split by inverse mass
	if corr := math.Max(overlap-correctionSlop, 0) * correctionPercent / w; corr > 0 {
		a.pos = r3.Sub(a.pos, r3.Scale(corr*wa, n))
		b.pos = r3.Add(b.pos, r3.Scale(corr*wb, n))
	}
}
