package isosurface

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an indexed triangle mesh in object space.
// Positions, Normals and Colors hold three floats per vertex.
type Mesh struct {
	Positions []float32
	Normals   []float32
	Colors    []float32
	Indices   []uint32

	// Truncated is set when extraction stopped at the triangle cap.
	Truncated bool
}

// Reset empties the mesh, keeping its buffers.
func (m *Mesh) Reset() {
	m.Positions = m.Positions[:0]
	m.Normals = m.Normals[:0]
	m.Colors = m.Colors[:0]
	m.Indices = m.Indices[:0]
	m.Truncated = false
}

func (m *Mesh) VertexCount() int   { return len(m.Positions) / 3 }
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }
func (m *Mesh) Empty() bool        { return len(m.Indices) == 0 }

// Position returns vertex i's position.
func (m *Mesh) Position(i uint32) r3.Vec {
	return vec3(m.Positions, i)
}

// Normal returns vertex i's normal.
func (m *Mesh) Normal(i uint32) r3.Vec {
	return vec3(m.Normals, i)
}

// Color returns vertex i's color.
func (m *Mesh) Color(i uint32) Color {
	return Color{R: m.Colors[i*3], G: m.Colors[i*3+1], B: m.Colors[i*3+2]}
}

// Triangle returns the vertex indices of triangle t.
func (m *Mesh) Triangle(t int) (uint32, uint32, uint32) {
	return m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]
}

func (m *Mesh) appendVertex(p, n r3.Vec, c Color) uint32 {
	i := uint32(m.VertexCount())
	m.Positions = append(m.Positions, float32(p.X), float32(p.Y), float32(p.Z))
	m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	m.Colors = append(m.Colors, c.R, c.G, c.B)
	return i
}

// Bounds returns the axis-aligned bounds of all vertices. An empty mesh returns zero vectors.
func (m *Mesh) Bounds() (lo, hi r3.Vec) {
	if m.VertexCount() == 0 {
		return lo, hi
	}
	lo = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi = r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := 0; i < m.VertexCount(); i++ {
		p := m.Position(uint32(i))
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return lo, hi
}

// SignedVolume returns the enclosed volume by the divergence theorem.
// It is positive for closed meshes wound outward.
func (m *Mesh) SignedVolume() float64 {
	var v float64
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		v += r3.Dot(m.Position(a), r3.Cross(m.Position(b), m.Position(c)))
	}
	return v / 6
}

// Components counts connected triangle groups, joining triangles that share a vertex.
func (m *Mesh) Components() int {
	n := m.VertexCount()
	if n == 0 || m.Empty() {
		return 0
	}
	parent := make([]int32, n)
	for i := range parent {
		parent[i] = int32(i)
	}
	find := func(x int32) int32 {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int32) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	used := make([]bool, n)
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		union(int32(a), int32(b))
		union(int32(b), int32(c))
		used[a], used[b], used[c] = true, true, true
	}

	count := 0
	for i := range parent {
		if used[i] && find(int32(i)) == int32(i) {
			count++
		}
	}
	return count
}

// Clone returns a deep copy of m.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Positions: append([]float32(nil), m.Positions...),
		Normals:   append([]float32(nil), m.Normals...),
		Colors:    append([]float32(nil), m.Colors...),
		Indices:   append([]uint32(nil), m.Indices...),
		Truncated: m.Truncated,
	}
}

func vec3(s []float32, i uint32) r3.Vec {
	return r3.Vec{X: float64(s[i*3]), Y: float64(s[i*3+1]), Z: float64(s[i*3+2])}
}
