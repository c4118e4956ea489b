package systems

import (
	"errors"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/config"
	"github.com/pthm-cable/aquaism/isosurface"
)

func newTestMetaballs(resolution, frequency int) *Metaballs {
	return NewMetaballs(resolution, frequency, MetaballOptionsFromConfig(config.Cfg()), nil)
}

func uniformColors(n int) []isosurface.Color {
	colors := make([]isosurface.Color, n)
	for i := range colors {
		colors[i] = isosurface.Hex(config.DefaultPalette[i%len(config.DefaultPalette)])
	}
	return colors
}

// clump publishes n balls packed around the field center.
func clump(m *Metaballs, n int) {
	m.Sync(n, uniformColors(n))
	for i := 0; i < n; i++ {
		offset := r3.Vec{
			X: float64(i%3-1) * 0.02,
			Y: float64(i/3%3-1) * 0.02,
			Z: float64(i/9%3-1) * 0.02,
		}
		m.Publish(i, r3.Add(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, offset))
	}
}

func TestRebuildCadence(t *testing.T) {
	tests := []struct {
		frequency int
		frames    int
		rebuilds  uint64
	}{
		{1, 10, 10},
		{2, 10, 5},
		{3, 10, 3},
		{4, 3, 0},
		{0, 5, 5}, // below 1 means every frame
	}
	for _, tt := range tests {
		m := newTestMetaballs(24, tt.frequency)
		clump(m, 3)
		for i := 0; i < tt.frames; i++ {
			m.Tick()
		}
		if m.Rebuilds() != tt.rebuilds {
			t.Errorf("frequency %d over %d frames: expected %d rebuilds, got %d",
				tt.frequency, tt.frames, tt.rebuilds, m.Rebuilds())
		}
	}
}

func TestTickRebuildsOnMultiples(t *testing.T) {
	m := newTestMetaballs(24, 3)
	clump(m, 3)
	for frame := 1; frame <= 9; frame++ {
		rebuilt := m.Tick()
		if want := frame%3 == 0; rebuilt != want {
			t.Errorf("frame %d: rebuilt=%v, want %v", frame, rebuilt, want)
		}
	}
}

func TestClumpFormsOneSurface(t *testing.T) {
	m := newTestMetaballs(48, 1)
	clump(m, 27)
	m.Tick()

	mesh := m.Mesh()
	if mesh.Empty() {
		t.Fatal("expected a surface for a clump of 27 balls")
	}
	if c := mesh.Components(); c != 1 {
		t.Errorf("expected one connected surface, got %d", c)
	}
	if stats := m.LastRebuild(); stats.Balls != 27 || stats.Triangles != mesh.TriangleCount() {
		t.Errorf("unexpected rebuild stats %+v", stats)
	}
}

func TestZeroBodiesEmptiesMesh(t *testing.T) {
	m := newTestMetaballs(32, 1)
	clump(m, 27)
	m.Tick()
	if m.Mesh().Empty() {
		t.Fatal("expected surface before shrinking")
	}

	m.Sync(0, nil)
	m.Tick()
	if !m.Mesh().Empty() {
		t.Errorf("expected empty mesh with no bodies, got %d triangles", m.Mesh().TriangleCount())
	}
}

func TestRebuildClampsToShortestBuffer(t *testing.T) {
	m := newTestMetaballs(24, 1)
	m.Sync(10, uniformColors(4))
	for i := 0; i < 10; i++ {
		m.Publish(i, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
	}
	m.Tick()
	if got := m.LastRebuild().Balls; got != 4 {
		t.Errorf("expected 4 balls with 4 colors, got %d", got)
	}

	// Publishing beyond the buffer is ignored
	m.Publish(-1, r3.Vec{})
	m.Publish(10, r3.Vec{})
	m.Publish(1000, r3.Vec{})
}

func TestSyncPreservesPublishedPositions(t *testing.T) {
	m := newTestMetaballs(24, 1)
	m.Sync(5, uniformColors(5))
	m.Publish(2, r3.Vec{X: 0.4, Y: 0.5, Z: 0.6})

	m.Sync(8, uniformColors(8))
	if m.positions[2] != (r3.Vec{X: 0.4, Y: 0.5, Z: 0.6}) {
		t.Errorf("grow lost slot 2: %v", m.positions[2])
	}
	m.Sync(3, uniformColors(3))
	if m.positions[2] != (r3.Vec{X: 0.4, Y: 0.5, Z: 0.6}) {
		t.Errorf("shrink lost slot 2: %v", m.positions[2])
	}
}

func TestRebuildIsDeterministic(t *testing.T) {
	a := newTestMetaballs(40, 1)
	b := newTestMetaballs(40, 1)
	clump(a, 20)
	clump(b, 20)
	a.Tick()
	b.Tick()
	if !reflect.DeepEqual(a.Mesh(), b.Mesh()) {
		t.Error("equal inputs produced different meshes")
	}
}

func TestResolutionChange(t *testing.T) {
	m := newTestMetaballs(32, 1)
	if err := m.CheckResolution(32); err != nil {
		t.Errorf("same resolution should not error: %v", err)
	}

	err := m.CheckResolution(64)
	if !errors.Is(err, ErrResolutionChange) {
		t.Fatalf("expected ErrResolutionChange, got %v", err)
	}
	if m.Resolution() != 32 || m.Field().Size() != 32 {
		t.Error("check must not change the live field")
	}

	clump(m, 5)
	m.Tick()
	old := m.Mesh()
	if err := m.Reprovision(64); err != nil {
		t.Fatalf("Reprovision: %v", err)
	}
	if m.Resolution() != 64 || m.Field().Size() != 64 {
		t.Errorf("expected 64³ field, got %d", m.Field().Size())
	}
	if m.Mesh() == old || !m.Mesh().Empty() {
		t.Error("reprovision should start from a fresh empty mesh")
	}
	m.Tick()
	if m.Mesh().Empty() {
		t.Error("published positions should survive reprovision")
	}

	if err := m.Reprovision(0); err == nil {
		t.Error("expected error for zero resolution")
	}
}

func TestFieldPosition(t *testing.T) {
	got := FieldPosition(r3.Vec{X: 1, Y: -2, Z: 0}, 0.1, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
	if !near(got, r3.Vec{X: 0.6, Y: 0.3, Z: 0.5}, 1e-12) {
		t.Errorf("got %v", got)
	}
}

func BenchmarkRebuild30x72(b *testing.B) {
	m := newTestMetaballs(72, 1)
	clump(m, 30)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Rebuild()
	}
}
