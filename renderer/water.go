package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/game"
	"github.com/pthm-cable/aquaism/isosurface"
)

// WaterRenderer draws the metaball surface with per-vertex lighting.
type WaterRenderer struct {
	shaded []isosurface.Color // lit color per vertex, reused across frames

	// ShowBodies draws wire spheres at the body positions.
	ShowBodies bool
	// ShowRepulsor draws the pointer repulsor.
	ShowRepulsor bool
}

// NewWaterRenderer creates a new water renderer.
func NewWaterRenderer() *WaterRenderer {
	return &WaterRenderer{}
}

// Camera3D converts the simulation camera to a raylib camera.
func Camera3D(v game.View) rl.Camera3D {
	c := v.Camera
	return rl.Camera3D{
		Position:   vec3(c.Position),
		Target:     vec3(c.Target),
		Up:         vec3(c.Up),
		Fovy:       float32(c.FOV),
		Projection: rl.CameraPerspective,
	}
}

// Draw renders the mesh and debug geometry. Call it between BeginMode3D and
// EndMode3D.
func (w *WaterRenderer) Draw(v game.View) {
	w.drawMesh(v)

	if w.ShowBodies {
		for i, p := range v.Bodies {
			col := rl.NewColor(255, 255, 255, 60)
			if i == v.Selected {
				col = rl.Yellow
			}
			rl.DrawSphereWires(vec3(p), float32(v.BodyRadius), 6, 6, col)
		}
	}
	if w.ShowRepulsor {
		rl.DrawSphereWires(vec3(v.Repulsor), float32(v.RepulsorRadius), 8, 8, rl.NewColor(255, 120, 40, 80))
	}
}

func (w *WaterRenderer) drawMesh(v game.View) {
	m := v.Mesh
	if m == nil || m.Empty() {
		return
	}
	s := v.Scene
	eye := v.Camera.Position
	scale := v.MeshScale
	fog := s.Fog()
	tone := s.ToneMapping()
	exposure := s.Exposure()

	n := m.VertexCount()
	if cap(w.shaded) < n {
		w.shaded = make([]isosurface.Color, n)
	}
	w.shaded = w.shaded[:n]
	for i := 0; i < n; i++ {
		p := r3.Scale(scale, m.Position(uint32(i)))
		view := r3.Sub(eye, p)
		dist := r3.Norm(view)
		if dist > 0 {
			view = r3.Scale(1/dist, view)
		}
		c := v.Lights.Shade(s, v.Material, m.Normal(uint32(i)), view, m.Color(uint32(i)))
		if fog != nil {
			c = fog.Apply(c, dist)
		}
		w.shaded[i] = tone.Apply(c, exposure)
	}

	alpha := v.Material.Alpha()
	rl.DisableBackfaceCulling()
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		col := averageColor(w.shaded[a], w.shaded[b], w.shaded[c], alpha)
		rl.DrawTriangle3D(
			vec3(r3.Scale(scale, m.Position(a))),
			vec3(r3.Scale(scale, m.Position(b))),
			vec3(r3.Scale(scale, m.Position(c))),
			col,
		)
	}
	rl.EnableBackfaceCulling()
}

func averageColor(a, b, c isosurface.Color, alpha float64) color.RGBA {
	return colorRGBA(isosurface.Color{
		R: (a.R + b.R + c.R) / 3,
		G: (a.G + b.G + c.G) / 3,
		B: (a.B + b.B + c.B) / 3,
	}, alpha)
}

func vec3(v r3.Vec) rl.Vector3 {
	return rl.NewVector3(float32(v.X), float32(v.Y), float32(v.Z))
}
