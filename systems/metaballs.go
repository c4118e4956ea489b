package systems

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/config"
	"github.com/pthm-cable/aquaism/isosurface"
)

// ErrResolutionChange is returned when a live field is asked to change resolution.
// The field must be re-provisioned to apply it.
var ErrResolutionChange = errors.New("field resolution change requires reprovision")

// MetaballOptions holds the field constants.
type MetaballOptions struct {
	Strength     float64
	Subtract     float64
	Isolation    float64
	MaxTriangles int
	Scale        float64 // presentation scale of the [-1,1]³ mesh
}

// MetaballOptionsFromConfig reads the field constants from cfg.
func MetaballOptionsFromConfig(cfg *config.Config) MetaballOptions {
	return MetaballOptions{
		Strength:     cfg.Field.Strength,
		Subtract:     cfg.Field.Subtract,
		Isolation:    cfg.Field.Isolation,
		MaxTriangles: cfg.Field.MaxTriangles,
		Scale:        cfg.Field.Scale,
	}
}

// RebuildStats describes the most recent field rebuild.
type RebuildStats struct {
	Frame     uint64
	Balls     int
	Triangles int
	Vertices  int
	Truncated bool
	Duration  time.Duration
}

// Metaballs accumulates published body positions into a scalar field and
// re-extracts its isosurface every UpdateFrequency frames.
type Metaballs struct {
	opts       MetaballOptions
	resolution int
	frequency  int
	frame      uint64

	field     *isosurface.Field
	extractor *isosurface.Extractor
	mesh      *isosurface.Mesh

	positions []r3.Vec // field space, by slot
	colors    []isosurface.Color
	live      int

	rebuilds uint64
	last     RebuildStats
	logger   *slog.Logger
}

// NewMetaballs provisions a field at resolution³ samples.
func NewMetaballs(resolution, updateFrequency int, opts MetaballOptions, logger *slog.Logger) *Metaballs {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	m := &Metaballs{
		opts:      opts,
		extractor: isosurface.NewExtractor(opts.MaxTriangles),
		logger:    logger,
	}
	m.SetUpdateFrequency(updateFrequency)
	m.provision(resolution)
	return m
}

func (m *Metaballs) provision(resolution int) {
	m.resolution = resolution
	m.field = isosurface.NewField(resolution)
	m.mesh = &isosurface.Mesh{}
}

// Sync resizes the position buffer to count slots, keeping existing entries,
// and replaces the color table.
func (m *Metaballs) Sync(count int, colors []isosurface.Color) {
	if count < 0 {
		count = 0
	}
	if cap(m.positions) >= count {
		m.positions = m.positions[:count]
	} else {
		m.positions = append(m.positions[:cap(m.positions)], make([]r3.Vec, count-cap(m.positions))...)
	}
	m.colors = append(m.colors[:0], colors...)
	m.live = count
}

// Publish sets the field-space position of slot i. Out-of-range slots are ignored.
func (m *Metaballs) Publish(i int, fieldPos r3.Vec) {
	if i < 0 || i >= len(m.positions) {
		return
	}
	m.positions[i] = fieldPos
}

// FieldPosition maps a world position into field space.
func FieldPosition(world r3.Vec, scale float64, offset r3.Vec) r3.Vec {
	return r3.Add(r3.Scale(scale, world), offset)
}

// SetUpdateFrequency changes how many frames pass between rebuilds. Values below 1 mean every frame.
func (m *Metaballs) SetUpdateFrequency(n int) {
	if n < 1 {
		n = 1
	}
	m.frequency = n
}

// Tick advances the frame counter and rebuilds when it reaches a multiple of
// the update frequency. It reports whether a rebuild happened.
func (m *Metaballs) Tick() bool {
	m.frame++
	if m.frame%uint64(m.frequency) != 0 {
		return false
	}
	m.Rebuild()
	return true
}

// Rebuild resets the field, injects every live ball and extracts the mesh.
// Only slots present in every buffer contribute.
func (m *Metaballs) Rebuild() {
	start := time.Now()

	n := min(m.live, len(m.positions), len(m.colors))
	m.field.Reset()
	for i := 0; i < n; i++ {
		p := m.positions[i]
		m.field.AddBall(p.X, p.Y, p.Z, m.opts.Strength, m.opts.Subtract, m.colors[i])
	}
	m.extractor.Extract(m.field, m.opts.Isolation, m.mesh)

	m.rebuilds++
	m.last = RebuildStats{
		Frame:     m.frame,
		Balls:     n,
		Triangles: m.mesh.TriangleCount(),
		Vertices:  m.mesh.VertexCount(),
		Truncated: m.mesh.Truncated,
		Duration:  time.Since(start),
	}
}

// CheckResolution compares resolution with the live field's.
// A difference is logged and reported as ErrResolutionChange; the field is left as is.
func (m *Metaballs) CheckResolution(resolution int) error {
	if resolution == m.resolution {
		return nil
	}
	m.logger.Warn("resolution change requires reprovision", "current", m.resolution, "requested", resolution)
	return fmt.Errorf("%w: live %d, requested %d", ErrResolutionChange, m.resolution, resolution)
}

// Reprovision discards the field and mesh and builds new ones at resolution.
// Published positions, colors and the frame counter survive.
func (m *Metaballs) Reprovision(resolution int) error {
	if resolution <= 0 {
		return fmt.Errorf("reprovision: invalid resolution %d", resolution)
	}
	m.provision(resolution)
	m.logger.Info("field reprovisioned", "resolution", resolution)
	return nil
}

// Mesh returns the most recently extracted mesh. It is replaced by Reprovision.
func (m *Metaballs) Mesh() *isosurface.Mesh { return m.mesh }

// Field returns the live scalar field.
func (m *Metaballs) Field() *isosurface.Field { return m.field }

// Scale returns the field-to-world scale factor.
func (m *Metaballs) Scale() float64 { return m.opts.Scale }

// Resolution returns the live field's cells per axis.
func (m *Metaballs) Resolution() int { return m.resolution }

// UpdateFrequency returns the rebuild cadence in frames.
func (m *Metaballs) UpdateFrequency() int { return m.frequency }

// Frame returns the number of frames counted by Tick.
func (m *Metaballs) Frame() uint64 { return m.frame }

// Rebuilds returns how many times the surface has been extracted.
func (m *Metaballs) Rebuilds() uint64 { return m.rebuilds }

// LastRebuild returns the statistics of the most recent extraction.
func (m *Metaballs) LastRebuild() RebuildStats { return m.last }

// Live returns the body count last passed to Sync.
func (m *Metaballs) Live() int { return m.live }
