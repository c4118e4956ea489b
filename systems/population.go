package systems

import (
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/components"
	"github.com/pthm-cable/aquaism/config"
	"github.com/pthm-cable/aquaism/isosurface"
)

// BodyID is a stable body identity. IDs are never reused within a Population.
type BodyID uint64

// Slot is one entry of the ordered body arena.
type Slot struct {
	ID     BodyID
	Entity ecs.Entity
}

// Population owns the ordered set of metaball bodies and keeps its size in step
// with the configured body count. Growing appends, shrinking truncates from the
// end; surviving slots never move.
type Population struct {
	world  *ecs.World
	mapper *ecs.Map8[
		components.Identity,
		components.Position,
		components.Velocity,
		components.Spin,
		components.Force,
		components.Collider,
		components.Damping,
		components.Tint,
	]
	posMap  *ecs.Map1[components.Position]
	tintMap *ecs.Map1[components.Tint]

	slots      []Slot
	nextID     BodyID
	generation uint64

	rng      *rand.Rand
	center   r3.Vec
	size     float64
	collider components.Collider
	damping  components.Damping
	palette  []isosurface.Color
	logger   *slog.Logger
}

// NewPopulation creates an empty population. A nil rng seeds from 1.
func NewPopulation(w *ecs.World, cfg *config.Config, rng *rand.Rand, logger *slog.Logger) *Population {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if logger == nil {
		logger = slog.Default()
	}
	palette := make([]isosurface.Color, len(cfg.Palette))
	for i, c := range cfg.Palette {
		palette[i] = isosurface.Hex(c)
	}

	return &Population{
		world: w,
		mapper: ecs.NewMap8[
			components.Identity,
			components.Position,
			components.Velocity,
			components.Spin,
			components.Force,
			components.Collider,
			components.Damping,
			components.Tint,
		](w),
		posMap:   ecs.NewMap1[components.Position](w),
		tintMap:  ecs.NewMap1[components.Tint](w),
		nextID:   1,
		rng:      rng,
		center:   r3.Vec{X: cfg.Spawn.Center[0], Y: cfg.Spawn.Center[1], Z: cfg.Spawn.Center[2]},
		size:     cfg.Spawn.Size,
		collider: components.ColliderFromConfig(cfg.Body),
		damping:  components.DampingFromConfig(cfg.Body),
		palette:  palette,
		logger:   logger,
	}
}

// Reconcile grows or shrinks the population to exactly n bodies.
// Negative n is treated as 0.
func (p *Population) Reconcile(n int) (added, removed int) {
	if n < 0 {
		n = 0
	}
	for len(p.slots) < n {
		p.slots = append(p.slots, p.spawn())
		added++
	}
	for len(p.slots) > n {
		last := p.slots[len(p.slots)-1]
		p.slots = p.slots[:len(p.slots)-1]
		if p.world.Alive(last.Entity) {
			p.world.RemoveEntity(last.Entity)
		}
		removed++
	}
	if added > 0 || removed > 0 {
		p.generation++
		p.logger.Info("population reconciled", "count", n, "added", added, "removed", removed)
	}
	return added, removed
}

// spawn creates one body at a random point of the spawn cube with a random palette color.
func (p *Population) spawn() Slot {
	half := p.size / 2
	pos := components.Position{
		X: p.center.X + (p.rng.Float64()*2-1)*half,
		Y: p.center.Y + (p.rng.Float64()*2-1)*half,
		Z: p.center.Z + (p.rng.Float64()*2-1)*half,
	}

	tint := components.Tint{R: 1, G: 1, B: 1}
	if len(p.palette) > 0 {
		idx := p.rng.Intn(len(p.palette))
		c := p.palette[idx]
		tint = components.Tint{R: c.R, G: c.G, B: c.B, Index: idx}
	}

	id := p.nextID
	p.nextID++

	e := p.mapper.NewEntity(
		&components.Identity{ID: uint64(id)},
		&pos,
		&components.Velocity{},
		&components.Spin{},
		&components.Force{},
		&p.collider,
		&p.damping,
		&tint,
	)
	return Slot{ID: id, Entity: e}
}

// Clear removes every body. IDs keep counting from where they were.
func (p *Population) Clear() {
	p.Reconcile(0)
}

// Len returns the number of live bodies.
func (p *Population) Len() int { return len(p.slots) }

// Generation counts membership changes. It advances on every Reconcile that
// adds or removes a body, so equal lengths with different members differ.
func (p *Population) Generation() uint64 { return p.generation }

// Slots returns the ordered arena. The slice is owned by the population.
func (p *Population) Slots() []Slot { return p.slots }

// IDs returns the body IDs in slot order.
func (p *Population) IDs() []BodyID {
	ids := make([]BodyID, len(p.slots))
	for i, s := range p.slots {
		ids[i] = s.ID
	}
	return ids
}

// Index returns the slot index of id, or -1.
func (p *Population) Index(id BodyID) int {
	for i, s := range p.slots {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Position returns the world position of slot i.
func (p *Population) Position(i int) r3.Vec {
	return p.posMap.Get(p.slots[i].Entity).Vec()
}

// Positions appends every body's world position in slot order to dst.
func (p *Population) Positions(dst []r3.Vec) []r3.Vec {
	for _, s := range p.slots {
		dst = append(dst, p.posMap.Get(s.Entity).Vec())
	}
	return dst
}

// Colors appends every body's tint in slot order to dst.
func (p *Population) Colors(dst []isosurface.Color) []isosurface.Color {
	for _, s := range p.slots {
		t := p.tintMap.Get(s.Entity)
		dst = append(dst, isosurface.Color{R: t.R, G: t.G, B: t.B})
	}
	return dst
}
