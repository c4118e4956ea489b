package isosurface

import (
	"bufio"
	"fmt"
	"io"
)

// WriteOBJ writes m as Wavefront OBJ with per-vertex colors and normals.
// Positions are multiplied by scale.
func WriteOBJ(w io.Writer, m *Mesh, scale float64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %d vertices, %d triangles\n", m.VertexCount(), m.TriangleCount())
	if m.Truncated {
		fmt.Fprintln(bw, "# truncated at triangle cap")
	}

	for i := 0; i < m.VertexCount(); i++ {
		p := m.Position(uint32(i))
		c := m.Color(uint32(i))
		fmt.Fprintf(bw, "v %.6f %.6f %.6f %.4f %.4f %.4f\n",
			p.X*scale, p.Y*scale, p.Z*scale, c.R, c.G, c.B)
	}
	for i := 0; i < m.VertexCount(); i++ {
		n := m.Normal(uint32(i))
		fmt.Fprintf(bw, "vn %.6f %.6f %.6f\n", n.X, n.Y, n.Z)
	}
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a+1, a+1, b+1, b+1, c+1, c+1)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing obj: %w", err)
	}
	return nil
}
