package game

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/camera"
	"github.com/pthm-cable/aquaism/config"
	"github.com/pthm-cable/aquaism/isosurface"
	"github.com/pthm-cable/aquaism/scene"
)

// View is the read-only frame state handed to the renderer.
type View struct {
	Mesh      *isosurface.Mesh
	MeshScale float64
	Camera    *camera.Camera
	Scene     *scene.Scene
	Material  scene.PhysicalMaterial
	Lights    scene.Lights

	Bodies         []r3.Vec // world positions in slot order
	BodyRadius     float64
	Repulsor       r3.Vec
	RepulsorRadius float64
	Selected       int // slot index of the selected body, or -1

	Performance config.Performance
	Resolution  int // live field resolution
	Frame       uint64
}

// View returns the state to draw for the current frame. The returned slices
// are reused by the next call.
func (s *Simulation) View() View {
	s.positions = s.population.Positions(s.positions[:0])
	return View{
		Mesh:           s.metaballs.Mesh(),
		MeshScale:      s.metaballs.Scale(),
		Camera:         s.camera,
		Scene:          s.scene,
		Material:       s.material,
		Lights:         s.lights,
		Bodies:         s.positions,
		BodyRadius:     s.cfg.Body.Radius,
		Repulsor:       s.repulsor.Target(),
		RepulsorRadius: s.repulsor.Radius(),
		Selected:       s.population.Index(s.selected),
		Performance:    s.perf,
		Resolution:     s.metaballs.Resolution(),
		Frame:          s.frame,
	}
}
