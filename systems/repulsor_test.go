package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/camera"
	"github.com/pthm-cable/aquaism/components"
	"github.com/pthm-cable/aquaism/config"
)

func newTestRepulsor() (*ecs.World, *Repulsor, *camera.Camera) {
	cfg := config.Cfg()
	w := ecs.NewWorld()
	cam := camera.New(cfg.Camera, 16.0/9.0)
	return w, NewRepulsor(w, cfg, cam.Direction()), cam
}

func TestTrackCenterHitsPlaneCenter(t *testing.T) {
	_, rep, cam := newTestRepulsor()
	if !rep.Track(cam.RayFromNDC(0, 0), cam.Direction()) {
		t.Fatal("center ray should hit the tracking plane")
	}
	if !near(rep.Target(), r3.Vec{Z: 0.2}, 1e-9) {
		t.Errorf("expected target (0,0,0.2), got %v", rep.Target())
	}
	if !rep.Tracked() {
		t.Error("expected Tracked after a hit")
	}
}

func TestTrackUpdatesKinematicTarget(t *testing.T) {
	w, rep, cam := newTestRepulsor()
	rep.Track(cam.RayFromNDC(0.5, -0.25), cam.Direction())

	kin := ecs.NewMap1[components.Kinematic](w)
	if got := kin.Get(rep.Entity()).Target; got != rep.Target() {
		t.Errorf("kinematic target %v, want %v", got, rep.Target())
	}
	if rep.Target().X <= 0 || rep.Target().Y >= 0 {
		t.Errorf("expected target right of and below center, got %v", rep.Target())
	}
}

func TestTrackPathIsContinuousAndFinite(t *testing.T) {
	_, rep, cam := newTestRepulsor()
	dir := cam.Direction()

	prev := rep.Target()
	const steps = 200
	for i := 0; i <= steps; i++ {
		s := float64(i) / steps
		if !rep.Track(cam.RayFromNDC(s, s), dir) {
			t.Fatalf("step %d: NDC (%v,%v) missed the plane", i, s, s)
		}
		p := rep.Target()
		if !finiteVec(p) {
			t.Fatalf("step %d: non-finite target %v", i, p)
		}
		if math.Abs(r3.Dot(p, r3.Vec{Z: 1})-0.2) > 1e-9 {
			t.Fatalf("step %d: target left the plane: %v", i, p)
		}
		if jump := r3.Norm(r3.Sub(p, prev)); jump > 0.1 {
			t.Fatalf("step %d: target jumped %v", i, jump)
		}
		prev = p
	}
}

func TestMissKeepsLastTarget(t *testing.T) {
	_, rep, cam := newTestRepulsor()
	dir := cam.Direction()
	rep.Track(cam.RayFromNDC(0.3, 0.3), dir)
	last := rep.Target()

	tests := []struct {
		name string
		ray  camera.Ray
	}{
		{"outside square", camera.Ray{Origin: r3.Vec{Z: 5}, Dir: r3.Unit(r3.Vec{X: 30, Z: -4.8})}},
		{"away from plane", camera.Ray{Origin: r3.Vec{Z: 5}, Dir: r3.Vec{Z: 1}}},
		{"behind plane", camera.Ray{Origin: r3.Vec{Z: -5}, Dir: r3.Vec{Z: -1}}},
		{"parallel", camera.Ray{Origin: r3.Vec{Z: 5}, Dir: r3.Vec{X: 1}}},
		{"zero direction", camera.Ray{Origin: r3.Vec{Z: 5}}},
		{"NaN origin", camera.Ray{Origin: r3.Vec{X: math.NaN()}, Dir: r3.Vec{Z: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rep.Track(tt.ray, dir) {
				t.Fatalf("expected miss, hit at %v", rep.Target())
			}
			if rep.Target() != last {
				t.Errorf("target changed on miss: %v -> %v", last, rep.Target())
			}
		})
	}
}

func TestPlaneFollowsCameraDirection(t *testing.T) {
	_, rep, _ := newTestRepulsor()
	view := r3.Unit(r3.Vec{X: -1, Z: -1})
	ray := camera.Ray{Origin: r3.Vec{X: 4, Z: 4}, Dir: view}

	hit, ok := rep.Intersect(ray, view)
	if !ok {
		t.Fatal("expected hit on rotated plane")
	}
	want := r3.Scale(0.2, r3.Scale(-1, view))
	if !near(hit, want, 1e-9) {
		t.Errorf("expected plane center %v, got %v", want, hit)
	}
}
