// Package systems provides the body motion, population, field and repulsor systems.
package systems

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Neighbor holds a nearby body with precomputed spatial data.
type Neighbor struct {
	Index  int    // index into the slice the grid was filled from
	Delta  r3.Vec // from the query center to the neighbor
	DistSq float64
}

// SpatialGrid provides neighbor lookups over a bounded cube of cells.
// Positions outside the bounds are clamped into the border cells, so queries
// stay correct there, only slower.
type SpatialGrid struct {
	cellSize float64
	min      r3.Vec
	dims     [3]int
	cells    [][]int
	points   []r3.Vec // position of each inserted index
}

// NewSpatialGrid creates a grid covering [min, max] with cubic cells.
func NewSpatialGrid(min, max r3.Vec, cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	ext := r3.Sub(max, min)
	dims := [3]int{
		int(ext.X/cellSize) + 1,
		int(ext.Y/cellSize) + 1,
		int(ext.Z/cellSize) + 1,
	}
	cells := make([][]int, dims[0]*dims[1]*dims[2])
	for i := range cells {
		cells[i] = make([]int, 0, 4)
	}
	return &SpatialGrid{
		cellSize: cellSize,
		min:      min,
		dims:     dims,
		cells:    cells,
	}
}

// Clear removes all entries from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.points = g.points[:0]
}

// Insert adds index idx at position p. Indices must be inserted densely from 0.
func (g *SpatialGrid) Insert(idx int, p r3.Vec) {
	for len(g.points) <= idx {
		g.points = append(g.points, r3.Vec{})
	}
	g.points[idx] = p
	cx, cy, cz := g.cell(p)
	c := g.flat(cx, cy, cz)
	g.cells[c] = append(g.cells[c], idx)
}

// QueryRadiusInto appends all entries within radius of center to dst, skipping exclude.
// Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, center r3.Vec, radius float64, exclude int) []Neighbor {
	lo := r3.Sub(center, r3.Vec{X: radius, Y: radius, Z: radius})
	hi := r3.Add(center, r3.Vec{X: radius, Y: radius, Z: radius})
	x0, y0, z0 := g.cell(lo)
	x1, y1, z1 := g.cell(hi)
	radiusSq := radius * radius

	for z := z0; z <= z1; z++ {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				for _, idx := range g.cells[g.flat(x, y, z)] {
					if idx == exclude {
						continue
					}
					d := r3.Sub(g.points[idx], center)
					distSq := r3.Norm2(d)
					if distSq <= radiusSq {
						dst = append(dst, Neighbor{Index: idx, Delta: d, DistSq: distSq})
					}
				}
			}
		}
	}
	return dst
}

// cell returns clamped cell coordinates for a position.
func (g *SpatialGrid) cell(p r3.Vec) (int, int, int) {
	return clampCell((p.X-g.min.X)/g.cellSize, g.dims[0]),
		clampCell((p.Y-g.min.Y)/g.cellSize, g.dims[1]),
		clampCell((p.Z-g.min.Z)/g.cellSize, g.dims[2])
}

func (g *SpatialGrid) flat(x, y, z int) int {
	return (z*g.dims[1]+y)*g.dims[0] + x
}

func clampCell(v float64, n int) int {
	// NaN fails both comparisons and lands in cell 0
	if !(v >= 0) {
		return 0
	}
	if v >= float64(n) {
		return n - 1
	}
	return int(v)
}
