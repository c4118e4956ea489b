package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/components"
	"github.com/pthm-cable/aquaism/config"
)

// physicsFixture places n bodies at the given positions with zero velocity.
type physicsFixture struct {
	world   *ecs.World
	pop     *Population
	physics *PhysicsWorld
	posMap  *ecs.Map1[components.Position]
	velMap  *ecs.Map1[components.Velocity]
	spinMap *ecs.Map1[components.Spin]
	force   *ecs.Map1[components.Force]
}

func newPhysicsFixture(positions ...r3.Vec) *physicsFixture {
	w, pop := newTestPopulation(1)
	f := &physicsFixture{
		world:   w,
		pop:     pop,
		physics: NewPhysicsWorld(w, config.Cfg()),
		posMap:  ecs.NewMap1[components.Position](w),
		velMap:  ecs.NewMap1[components.Velocity](w),
		spinMap: ecs.NewMap1[components.Spin](w),
		force:   ecs.NewMap1[components.Force](w),
	}
	pop.Reconcile(len(positions))
	for i, p := range positions {
		f.posMap.Get(pop.Slots()[i].Entity).Set(p)
	}
	return f
}

func (f *physicsFixture) pos(i int) r3.Vec { return f.pop.Position(i) }

func (f *physicsFixture) vel(i int) r3.Vec {
	return f.velMap.Get(f.pop.Slots()[i].Entity).Vec()
}

func TestAttractionTowardOrigin(t *testing.T) {
	f := newPhysicsFixture(r3.Vec{X: 3})
	cfg := config.Cfg()
	dt := f.physics.DT()

	f.physics.Step(dt)

	mass := cfg.Derived.BodyMass
	want := cfg.Body.Attraction / mass * dt / (1 + dt*cfg.Body.LinearDamping)
	v := f.vel(0)
	if math.Abs(v.X+want) > 1e-12 || v.Y != 0 || v.Z != 0 {
		t.Errorf("expected velocity (-%v,0,0), got %v", want, v)
	}
	if f.pos(0).X >= 3 {
		t.Errorf("body did not move toward origin: %v", f.pos(0))
	}
}

func TestAttractionHelper(t *testing.T) {
	tests := []struct {
		name string
		pos  r3.Vec
		want r3.Vec
	}{
		{"on axis", r3.Vec{X: 2}, r3.Vec{X: -0.5}},
		{"diagonal", r3.Vec{Y: 3, Z: 4}, r3.Vec{Y: -0.3, Z: -0.4}},
		{"origin", r3.Vec{}, r3.Vec{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Attraction(tt.pos, r3.Vec{}, 0.5)
			if !near(got, tt.want, 1e-12) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestForcesResetEachStep(t *testing.T) {
	f := newPhysicsFixture(r3.Vec{Y: 2})
	for i := 0; i < 5; i++ {
		f.physics.Step(f.physics.DT())
	}
	got := f.force.Get(f.pop.Slots()[0].Entity).Vec()
	if math.Abs(r3.Norm(got)-config.Cfg().Body.Attraction) > 1e-12 {
		t.Errorf("force accumulated across steps: |F|=%v", r3.Norm(got))
	}
}

func TestDamping(t *testing.T) {
	f := newPhysicsFixture(r3.Vec{})
	e := f.pop.Slots()[0].Entity
	f.velMap.Get(e).Set(r3.Vec{X: 1})
	f.spinMap.Get(e).Set(r3.Vec{Z: 2})

	dt := f.physics.DT()
	f.physics.Step(dt)

	cfg := config.Cfg().Body
	wantV := 1 / (1 + dt*cfg.LinearDamping)
	// The body starts at the origin, so the attraction only acts after it has moved
	if v := f.vel(0); math.Abs(v.X-wantV) > 1e-12 {
		t.Errorf("expected damped velocity %v, got %v", wantV, v.X)
	}
	wantW := 2 / (1 + dt*cfg.AngularDamping)
	if w := f.spinMap.Get(e).Vec(); math.Abs(w.Z-wantW) > 1e-12 {
		t.Errorf("expected damped spin %v, got %v", wantW, w.Z)
	}
}

func TestOverlappingBodiesSeparate(t *testing.T) {
	f := newPhysicsFixture(r3.Vec{X: -0.1}, r3.Vec{X: 0.1})
	for i := 0; i < 60; i++ {
		f.physics.Step(f.physics.DT())
	}
	d := r3.Norm(r3.Sub(f.pos(1), f.pos(0)))
	if d < 0.38 {
		t.Errorf("expected bodies pushed to contact distance 0.4, got %v", d)
	}
}

func TestCoincidentBodiesStayFinite(t *testing.T) {
	f := newPhysicsFixture(r3.Vec{X: 1}, r3.Vec{X: 1})
	f.physics.Step(f.physics.DT())
	for i := 0; i < 2; i++ {
		p := f.pos(i)
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
			t.Fatalf("body %d went NaN: %v", i, p)
		}
	}
	if d := r3.Norm(r3.Sub(f.pos(1), f.pos(0))); d < 0.1 {
		t.Errorf("coincident bodies not separated: %v", d)
	}
}

func TestRepulsorPushesBodies(t *testing.T) {
	f := newPhysicsFixture(r3.Vec{X: 0.5, Z: 0.2})
	rep := NewRepulsor(f.world, config.Cfg(), r3.Vec{Z: -1})
	if !near(rep.Target(), r3.Vec{Z: 0.2}, 1e-12) {
		t.Fatalf("expected repulsor at plane center, got %v", rep.Target())
	}

	f.physics.Step(f.physics.DT())

	d := r3.Norm(r3.Sub(f.pos(0), rep.Target()))
	minDist := rep.Radius() + config.Cfg().Body.Radius - 0.05
	if d < minDist {
		t.Errorf("expected body pushed outside %v, got distance %v", minDist, d)
	}
	if !near(f.repulsorPos(rep), rep.Target(), 1e-12) {
		t.Error("kinematic body must not be moved by contacts")
	}
}

func (f *physicsFixture) repulsorPos(r *Repulsor) r3.Vec {
	return f.posMap.Get(r.Entity()).Vec()
}

func TestKinematicImpliedVelocity(t *testing.T) {
	f := newPhysicsFixture()
	rep := NewRepulsor(f.world, config.Cfg(), r3.Vec{Z: -1})
	kin := ecs.NewMap1[components.Kinematic](f.world)
	kin.Get(rep.Entity()).Target = r3.Vec{X: 1, Z: 0.2}

	dt := f.physics.DT()
	f.physics.Step(dt)

	v := f.velMap.Get(rep.Entity()).Vec()
	if math.Abs(v.X-1/dt) > 1e-9 {
		t.Errorf("expected implied velocity %v, got %v", 1/dt, v.X)
	}
	f.physics.Step(dt)
	if v := f.velMap.Get(rep.Entity()).Vec(); r3.Norm(v) != 0 {
		t.Errorf("stationary kinematic body should have zero velocity, got %v", v)
	}
}

func TestAdvanceFixedSteps(t *testing.T) {
	f := newPhysicsFixture(r3.Vec{X: 1})
	dt := f.physics.DT()

	if n := f.physics.Advance(dt); n != 1 {
		t.Errorf("one frame of dt: expected 1 step, got %d", n)
	}
	if n := f.physics.Advance(dt / 2); n != 0 {
		t.Errorf("half frame: expected 0 steps, got %d", n)
	}
	if n := f.physics.Advance(dt / 2); n != 1 {
		t.Errorf("second half frame: expected 1 step, got %d", n)
	}
	if n := f.physics.Advance(10); n != config.Cfg().Physics.MaxSubsteps {
		t.Errorf("long frame: expected %d steps, got %d", config.Cfg().Physics.MaxSubsteps, n)
	}
	// Backlog beyond the cap is dropped
	if n := f.physics.Advance(dt); n != 1 {
		t.Errorf("after long frame: expected 1 step, got %d", n)
	}
	if n := f.physics.Advance(math.NaN()); n != 0 {
		t.Errorf("NaN frame: expected 0 steps, got %d", n)
	}
}

func TestSpatialGridQuery(t *testing.T) {
	g := NewSpatialGrid(r3.Vec{X: -2, Y: -2, Z: -2}, r3.Vec{X: 2, Y: 2, Z: 2}, 0.5)
	points := []r3.Vec{{}, {X: 0.3}, {X: 1.5}, {X: 50}, {X: 49.8}}
	for i, p := range points {
		g.Insert(i, p)
	}

	got := g.QueryRadiusInto(nil, r3.Vec{}, 0.4, 0)
	if len(got) != 1 || got[0].Index != 1 {
		t.Errorf("expected only index 1 near origin, got %+v", got)
	}

	// Points outside the bounds share the border cells and are still found
	got = g.QueryRadiusInto(nil, r3.Vec{X: 50}, 0.5, 3)
	if len(got) != 1 || got[0].Index != 4 {
		t.Errorf("expected index 4 near x=50, got %+v", got)
	}

	g.Clear()
	if got := g.QueryRadiusInto(nil, r3.Vec{}, 10, -1); len(got) != 0 {
		t.Errorf("expected empty grid after Clear, got %d", len(got))
	}
}

func near(a, b r3.Vec, eps float64) bool {
	return r3.Norm(r3.Sub(a, b)) <= eps
}

func BenchmarkPhysicsStep30(b *testing.B) {
	w, pop := newTestPopulation(1)
	physics := NewPhysicsWorld(w, config.Cfg())
	NewRepulsor(w, config.Cfg(), r3.Vec{Z: -1})
	pop.Reconcile(30)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		physics.Step(physics.DT())
	}
}
