package isosurface

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// tetrahedra splits a cube into six tetrahedra sharing the 0-7 diagonal.
// Corner c has offset (c&1, c>>1&1, c>>2&1).
var tetrahedra = [6][4]int{
	{0, 1, 3, 7},
	{0, 1, 5, 7},
	{0, 2, 3, 7},
	{0, 2, 6, 7},
	{0, 4, 5, 7},
	{0, 4, 6, 7},
}

// Extractor polygonizes fields. It keeps its vertex welding table between calls
// so steady-state extraction does not allocate.
type Extractor struct {
	MaxTriangles int // 0 means unlimited

	edges map[uint64]uint32
	field *Field
	iso   float64
	mesh  *Mesh
}

// NewExtractor creates an extractor that emits at most maxTriangles per mesh.
func NewExtractor(maxTriangles int) *Extractor {
	return &Extractor{
		MaxTriangles: maxTriangles,
		edges:        make(map[uint64]uint32),
	}
}

// Extract rebuilds dst from the isosurface of f at the given isolation level.
// Samples strictly above isolation are inside.
func (e *Extractor) Extract(f *Field, isolation float64, dst *Mesh) {
	dst.Reset()
	clear(e.edges)
	n := f.size
	if n < 4 {
		return
	}

	e.field, e.iso, e.mesh = f, isolation, dst
	defer func() { e.field, e.mesh = nil, nil }()

	var offsets [8]int
	for c := range offsets {
		offsets[c] = (c & 1) + ((c>>1)&1)*n + ((c>>2)&1)*f.size2
	}

	var idx [8]int
	var val [8]float64
	for z := 1; z < n-2; z++ {
		for y := 1; y < n-2; y++ {
			base := y*n + z*f.size2
			for x := 1; x < n-2; x++ {
				mask := 0
				for c := 0; c < 8; c++ {
					idx[c] = base + x + offsets[c]
					val[c] = f.values[idx[c]]
					if val[c] > isolation {
						mask |= 1 << c
					}
				}
				if mask == 0 || mask == 0xff {
					continue
				}
				for _, t := range tetrahedra {
					if !e.tetra(&idx, &val, t) {
						dst.Truncated = true
						return
					}
				}
			}
		}
	}
}

// tetra emits the surface inside one tetrahedron. It returns false once the
// triangle cap has been reached.
func (e *Extractor) tetra(idx *[8]int, val *[8]float64, t [4]int) bool {
	var in, out [4]int
	ni, no := 0, 0
	for _, c := range t {
		if val[c] > e.iso {
			in[ni] = idx[c]
			ni++
		} else {
			out[no] = idx[c]
			no++
		}
	}

	switch ni {
	case 1:
		a := in[0]
		w := e.toward(out[:3], in[:1])
		return e.emit(e.vertex(a, out[0]), e.vertex(a, out[1]), e.vertex(a, out[2]), w)
	case 3:
		d := out[0]
		w := e.toward(out[:1], in[:3])
		return e.emit(e.vertex(in[0], d), e.vertex(in[1], d), e.vertex(in[2], d), w)
	case 2:
		a, b := in[0], in[1]
		c, d := out[0], out[1]
		w := e.toward(out[:2], in[:2])
		q0 := e.vertex(a, c)
		q1 := e.vertex(a, d)
		q2 := e.vertex(b, d)
		q3 := e.vertex(b, c)
		if !e.emit(q0, q1, q2, w) {
			return false
		}
		return e.emit(q0, q2, q3, w)
	}
	return true
}

// toward returns the direction from the mean inside corner to the mean outside corner.
// The isosurface separating them faces that way.
func (e *Extractor) toward(out, in []int) r3.Vec {
	return r3.Sub(e.mean(out), e.mean(in))
}

func (e *Extractor) mean(samples []int) r3.Vec {
	var m r3.Vec
	for _, s := range samples {
		x, y, z := e.field.objectPos(s)
		m = r3.Add(m, r3.Vec{X: x, Y: y, Z: z})
	}
	return r3.Scale(1/float64(len(samples)), m)
}

// emit appends a triangle wound so its face normal has a positive component along w.
func (e *Extractor) emit(a, b, c uint32, w r3.Vec) bool {
	m := e.mesh
	if e.MaxTriangles > 0 && m.TriangleCount() >= e.MaxTriangles {
		return false
	}
	if a == b || b == c || a == c {
		return true
	}
	pa, pb, pc := m.Position(a), m.Position(b), m.Position(c)
	n := r3.Cross(r3.Sub(pb, pa), r3.Sub(pc, pa))
	if r3.Dot(n, w) < 0 {
		b, c = c, b
	}
	m.Indices = append(m.Indices, a, b, c)
	return true
}

// vertex returns the welded vertex on the grid edge between samples i and j.
func (e *Extractor) vertex(i, j int) uint32 {
	if i > j {
		i, j = j, i
	}
	f := e.field
	key := uint64(i)*uint64(len(f.values)) + uint64(j)
	if v, ok := e.edges[key]; ok {
		return v
	}

	vi, vj := f.values[i], f.values[j]
	t := 0.5
	if d := vj - vi; d != 0 {
		t = (e.iso - vi) / d
	}
	t = math.Max(0, math.Min(1, t))

	ix, iy, iz := f.objectPos(i)
	jx, jy, jz := f.objectPos(j)
	pos := lerp(r3.Vec{X: ix, Y: iy, Z: iz}, r3.Vec{X: jx, Y: jy, Z: jz}, t)

	gx, gy, gz := f.gradient(i)
	hx, hy, hz := f.gradient(j)
	nrm := lerp(r3.Vec{X: gx, Y: gy, Z: gz}, r3.Vec{X: hx, Y: hy, Z: hz}, t)
	if l := r3.Norm(nrm); l > 0 {
		nrm = r3.Scale(1/l, nrm)
	}

	ci, cj := f.color(i), f.color(j)
	tf := float32(t)
	col := Color{
		R: ci.R + (cj.R-ci.R)*tf,
		G: ci.G + (cj.G-ci.G)*tf,
		B: ci.B + (cj.B-ci.B)*tf,
	}

	v := e.mesh.appendVertex(pos, nrm, col)
	e.edges[key] = v
	return v
}

func lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}
