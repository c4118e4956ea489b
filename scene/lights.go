package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/config"
	"github.com/pthm-cable/aquaism/isosurface"
)

// rimPower shapes the reflection term toward grazing angles.
const rimPower = 3

// Lights is the scene lighting rig.
type Lights struct {
	HemisphereSky        isosurface.Color
	HemisphereGround     isosurface.Color
	HemisphereIntensity  float64
	AmbientIntensity     float64
	Directional          r3.Vec // unit direction toward the light
	DirectionalIntensity float64
}

// LightsFromConfig builds the rig from config.
func LightsFromConfig(cfg config.LightsConfig) Lights {
	dir := r3.Vec{X: cfg.DirectionalPosition[0], Y: cfg.DirectionalPosition[1], Z: cfg.DirectionalPosition[2]}
	if r3.Norm(dir) > 0 {
		dir = r3.Unit(dir)
	}
	return Lights{
		HemisphereSky:        isosurface.Hex(cfg.HemisphereSky),
		HemisphereGround:     isosurface.Hex(cfg.HemisphereGround),
		HemisphereIntensity:  cfg.HemisphereIntensity,
		AmbientIntensity:     cfg.AmbientIntensity,
		Directional:          dir,
		DirectionalIntensity: cfg.DirectionalIntensity,
	}
}

// Shade lights albedo at a surface with unit normal n seen along view, a
// unit vector from the surface toward the eye.
func (l Lights) Shade(s *Scene, m PhysicalMaterial, n, view r3.Vec, albedo isosurface.Color) isosurface.Color {
	// Hemisphere: ground at n.y=-1, sky at n.y=+1
	h := float32(0.5 * (n.Y + 1))
	hemi := isosurface.Color{
		R: l.HemisphereGround.R + (l.HemisphereSky.R-l.HemisphereGround.R)*h,
		G: l.HemisphereGround.G + (l.HemisphereSky.G-l.HemisphereGround.G)*h,
		B: l.HemisphereGround.B + (l.HemisphereSky.B-l.HemisphereGround.B)*h,
	}
	hi := float32(l.HemisphereIntensity)
	diffuse := float32(l.AmbientIntensity + l.DirectionalIntensity*math.Max(0, r3.Dot(n, l.Directional)))

	out := isosurface.Color{
		R: albedo.R * (diffuse + hemi.R*hi),
		G: albedo.G * (diffuse + hemi.G*hi),
		B: albedo.B * (diffuse + hemi.B*hi),
	}

	if s != nil && (s.Environment() != nil || s.EnvironmentEnabled()) {
		rim := math.Pow(1-math.Abs(r3.Dot(n, view)), rimPower)
		specular := float32(rim * (1 - m.Roughness) * (0.5 + 0.5*m.Clearcoat) * 0.25 * s.EnvironmentIntensity())
		out.R += specular
		out.G += specular
		out.B += specular
	}

	out.R = clamp01(out.R)
	out.G = clamp01(out.G)
	out.B = clamp01(out.B)
	return out
}

func clamp01(v float32) float32 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
