// Package camera provides a perspective camera with pointer ray casting and orbit controls.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/config"
)

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin r3.Vec
	Dir    r3.Vec
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Dir))
}

// Camera is a right-handed, Y-up perspective camera.
type Camera struct {
	Position r3.Vec
	Target   r3.Vec
	Up       r3.Vec

	FOV    float64 // vertical field of view in degrees
	Aspect float64
	Near   float64
	Far    float64
}

// New creates a camera from config.
func New(cfg config.CameraConfig, aspect float64) *Camera {
	if aspect <= 0 {
		aspect = 1
	}
	return &Camera{
		Position: r3.Vec{X: cfg.Position[0], Y: cfg.Position[1], Z: cfg.Position[2]},
		Target:   r3.Vec{X: cfg.Target[0], Y: cfg.Target[1], Z: cfg.Target[2]},
		Up:       r3.Vec{Y: 1},
		FOV:      cfg.FOV,
		Aspect:   aspect,
		Near:     cfg.Near,
		Far:      cfg.Far,
	}
}

// SetAspect updates the aspect ratio, ignoring non-positive values.
func (c *Camera) SetAspect(aspect float64) {
	if aspect > 0 {
		c.Aspect = aspect
	}
}

// Direction returns the unit view direction. A degenerate camera looks down -Z.
func (c *Camera) Direction() r3.Vec {
	d := r3.Sub(c.Target, c.Position)
	n := r3.Norm(d)
	if !(n > 0) || math.IsInf(n, 0) {
		return r3.Vec{Z: -1}
	}
	return r3.Scale(1/n, d)
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl64.Mat4 {
	return mgl64.LookAtV(toMGL(c.Position), toMGL(c.Target), toMGL(c.Up))
}

// Projection returns the camera-to-clip matrix.
func (c *Camera) Projection() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// ViewProjection returns Projection * View.
func (c *Camera) ViewProjection() mgl64.Mat4 {
	return c.Projection().Mul4(c.View())
}

// RayFromNDC returns the ray from the camera through normalized device
// coordinates (x, y), both in [-1, 1] with y up.
func (c *Camera) RayFromNDC(x, y float64) Ray {
	inv := c.ViewProjection().Inv()
	far := unproject(inv, x, y, 1)
	dir := r3.Sub(far, c.Position)
	n := r3.Norm(dir)
	if !(n > 0) || math.IsInf(n, 0) {
		return Ray{Origin: c.Position, Dir: c.Direction()}
	}
	return Ray{Origin: c.Position, Dir: r3.Scale(1/n, dir)}
}

// Project maps a world point to NDC. ok is false for points behind the camera.
func (c *Camera) Project(p r3.Vec) (x, y float64, ok bool) {
	clip := c.ViewProjection().Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	if clip[3] <= 0 {
		return 0, 0, false
	}
	return clip[0] / clip[3], clip[1] / clip[3], true
}

// ScreenToNDC converts pixel coordinates (origin top-left) to NDC.
func ScreenToNDC(sx, sy, width, height float64) (x, y float64) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	return sx/width*2 - 1, -(sy/height*2 - 1)
}

func unproject(inv mgl64.Mat4, x, y, z float64) r3.Vec {
	v := inv.Mul4x1(mgl64.Vec4{x, y, z, 1})
	if v[3] == 0 {
		return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}
	return r3.Vec{X: v[0] / v[3], Y: v[1] / v[3], Z: v[2] / v[3]}
}

func toMGL(v r3.Vec) mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }
