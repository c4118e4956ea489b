// Package isosurface samples metaball scalar fields and extracts triangle meshes from them.
//
// Sample (x, y, z) of a Field of size N sits at field-space coordinate (x/N, y/N, z/N),
// and at object-space coordinate (x - N/2)/(N/2), so the unit field cube maps onto [-1,1]³.
// The outermost sample layer is never written or polygonized because central-difference
// normals are undefined there.
package isosurface

import (
	"math"
)

// Color is a linear RGB color.
type Color struct {
	R, G, B float32
}

// Hex converts a 0xRRGGBB value to a Color.
func Hex(v uint32) Color {
	return Color{
		R: float32((v>>16)&0xff) / 255,
		G: float32((v>>8)&0xff) / 255,
		B: float32(v&0xff) / 255,
	}
}

// Field is a cubic grid of scalar samples with a per-sample color palette.
type Field struct {
	size  int
	size2 int
	half  float64

	values  []float64
	palette []float32 // rgb accumulated as color * weight
	weights []float32 // sum of color weights per sample
}

// NewField allocates a field with size samples per axis.
func NewField(size int) *Field {
	if size < 0 {
		size = 0
	}
	n := size * size * size
	return &Field{
		size:    size,
		size2:   size * size,
		half:    float64(size) / 2,
		values:  make([]float64, n),
		palette: make([]float32, n*3),
		weights: make([]float32, n),
	}
}

// Size returns the number of samples per axis.
func (f *Field) Size() int { return f.size }

// Reset zeroes all samples and colors.
func (f *Field) Reset() {
	clear(f.values)
	clear(f.palette)
	clear(f.weights)
}

// Value returns the sample at grid coordinates. Out-of-range coordinates return 0.
func (f *Field) Value(x, y, z int) float64 {
	if x < 0 || y < 0 || z < 0 || x >= f.size || y >= f.size || z >= f.size {
		return 0
	}
	return f.values[x+y*f.size+z*f.size2]
}

// Values exposes the raw sample slice, x-major then y then z.
func (f *Field) Values() []float64 { return f.values }

// AddBall injects a metaball at field-space position (x, y, z).
//
// Each sample within reach receives strength/(1e-6 + d²) - subtract where that is positive,
// d being the field-space distance. A negative strength carves the field instead.
// The color is blended into the palette with a smootherstep falloff across the reach.
func (f *Field) AddBall(x, y, z, strength, subtract float64, c Color) {
	if f.size < 3 || !finite(x) || !finite(y) || !finite(z) || !finite(strength) {
		return
	}

	sign := 1.0
	if strength < 0 {
		sign = -1
		strength = -strength
	}

	size := float64(f.size)
	radius := size
	if subtract > 0 {
		// strength / r² = subtract at the edge of influence
		radius = size * math.Sqrt(strength/subtract)
	}
	if radius <= 0 {
		return
	}

	xs, ys, zs := x*size, y*size, z*size
	minX, maxX := f.span(xs, radius)
	minY, maxY := f.span(ys, radius)
	minZ, maxZ := f.span(zs, radius)

	for gz := minZ; gz < maxZ; gz++ {
		zOff := gz * f.size2
		fz := float64(gz)/size - z
		fz2 := fz * fz
		dz := float64(gz) - zs
		for gy := minY; gy < maxY; gy++ {
			yOff := zOff + gy*f.size
			fy := float64(gy)/size - y
			fy2 := fy * fy
			dy := float64(gy) - ys
			for gx := minX; gx < maxX; gx++ {
				fx := float64(gx)/size - x
				val := strength/(0.000001+fx*fx+fy2+fz2) - subtract
				if val <= 0 {
					continue
				}
				i := yOff + gx
				f.values[i] += val * sign

				dx := float64(gx) - xs
				ratio := math.Sqrt(dx*dx+dy*dy+dz*dz) / radius
				w := float32(1 - ratio*ratio*ratio*(ratio*(ratio*6-15)+10))
				if w <= 0 {
					continue
				}
				if w > 1 {
					w = 1
				}
				f.palette[i*3+0] += c.R * w
				f.palette[i*3+1] += c.G * w
				f.palette[i*3+2] += c.B * w
				f.weights[i] += w
			}
		}
	}
}

// span returns the [min, max) sample range touched by a ball centered at
// grid coordinate center, skipping the outer layer.
func (f *Field) span(center, radius float64) (int, int) {
	lo := int(math.Floor(center - radius))
	if lo < 1 {
		lo = 1
	}
	hi := int(math.Floor(center + radius))
	if hi > f.size-1 {
		hi = f.size - 1
	}
	return lo, hi
}

// color returns the normalized palette color at sample i.
func (f *Field) color(i int) Color {
	w := f.weights[i]
	if w <= 0 {
		return Color{}
	}
	return Color{
		R: f.palette[i*3+0] / w,
		G: f.palette[i*3+1] / w,
		B: f.palette[i*3+2] / w,
	}
}

// coords returns the grid coordinates of flat sample index i.
func (f *Field) coords(i int) (x, y, z int) {
	return i % f.size, (i / f.size) % f.size, i / f.size2
}

// objectPos maps a flat sample index to object space.
func (f *Field) objectPos(i int) (float64, float64, float64) {
	x, y, z := f.coords(i)
	return (float64(x) - f.half) / f.half,
		(float64(y) - f.half) / f.half,
		(float64(z) - f.half) / f.half
}

// gradient returns the negated central-difference gradient at sample i,
// which points out of the blob.
func (f *Field) gradient(i int) (float64, float64, float64) {
	v := f.values
	return v[i-1] - v[i+1],
		v[i-f.size] - v[i+f.size],
		v[i-f.size2] - v[i+f.size2]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
