// Package game wires the body, field and scene layers into a frame pipeline.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/aquaism/camera"
	"github.com/pthm-cable/aquaism/config"
	"github.com/pthm-cable/aquaism/isosurface"
	"github.com/pthm-cable/aquaism/scene"
	"github.com/pthm-cable/aquaism/systems"
	"github.com/pthm-cable/aquaism/telemetry"
)

// Options configure a Simulation.
type Options struct {
	Seed        int64               // RNG seed for spawn positions and colors
	Preset      string              // overrides the configured preset when non-empty
	Performance *config.Performance // explicit settings, takes precedence over Preset
	Logger      *slog.Logger
	Aspect      float64      // viewport aspect ratio (0 = screen config)
	Loader      scene.Loader // texture loader for environment bindings (nil disables them)
	OutputDir   string       // directory for CSV telemetry (empty = disabled)
	LogStats    bool         // log perf and field summaries every log interval
}

// Pointer is the pointer position in normalized device coordinates.
// Inactive pointers leave the repulsor where it is.
type Pointer struct {
	X, Y   float64
	Active bool
}

// Simulation owns every layer of the water effect and runs them once per frame.
type Simulation struct {
	cfg    *config.Config
	logger *slog.Logger
	perf   config.Performance

	world      *ecs.World
	rng        *rand.Rand
	population *systems.Population
	physics    *systems.PhysicsWorld
	repulsor   *systems.Repulsor
	metaballs  *systems.Metaballs

	camera   *camera.Camera
	orbit    *camera.Orbit
	scene    *scene.Scene
	loads    *scene.LoadQueue
	material scene.PhysicalMaterial
	lights   scene.Lights

	scheduler *Scheduler
	registry  *systems.SystemRegistry

	perfCollector *telemetry.PerfCollector
	fieldWindow   *telemetry.FieldWindow
	output        *telemetry.OutputManager
	logStats      bool

	pointer        Pointer
	frame          uint64
	tickOpen       bool
	generationSeen uint64
	synced         bool
	colors         []isosurface.Color
	positions      []r3.Vec
	offset         r3.Vec
	selected       systems.BodyID
	bodies         *bodyMaps
	closed         bool
}

// New builds a simulation from cfg. On error everything built so far is
// released.
func New(cfg *config.Config, opts Options) (sim *Simulation, err error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	perf := cfg.ResolvePerformance()
	if opts.Preset != "" {
		perf = config.GetPerformance(opts.Preset, &cfg.Performance.Overrides)
	}
	if opts.Performance != nil {
		perf = *opts.Performance
	}
	if !perf.Validate() {
		logger.Warn("invalid performance settings, using defaults for bad fields", "performance", perf)
		perf = perf.Sanitize()
	}

	aspect := opts.Aspect
	if aspect <= 0 {
		aspect = float64(cfg.Screen.Width) / float64(cfg.Screen.Height)
	}

	world := ecs.NewWorld()
	s := &Simulation{
		cfg:           cfg,
		logger:        logger,
		perf:          perf,
		world:         world,
		rng:           rand.New(rand.NewSource(opts.Seed)),
		camera:        camera.New(cfg.Camera, aspect),
		orbit:         camera.NewOrbit(cfg.Orbit),
		scene:         scene.New(logger),
		material:      scene.WaterMaterial(cfg.Material, perf.UseTransmission),
		lights:        scene.LightsFromConfig(cfg.Lights),
		scheduler:     NewScheduler(),
		registry:      systems.NewSystemRegistry(),
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		fieldWindow:   telemetry.NewFieldWindow(),
		logStats:      opts.LogStats,
		offset:        r3.Vec{X: cfg.Field.Offset[0], Y: cfg.Field.Offset[1], Z: cfg.Field.Offset[2]},
	}
	defer func() {
		if err != nil {
			s.Close()
			sim = nil
		}
	}()

	if opts.Loader != nil {
		s.loads = scene.NewLoadQueue(opts.Loader, logger)
	}

	s.output, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	if err = s.output.WriteConfig(cfg); err != nil {
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	s.population = systems.NewPopulation(world, cfg, s.rng, logger)
	s.physics = systems.NewPhysicsWorld(world, cfg)
	s.repulsor = systems.NewRepulsor(world, cfg, s.camera.Direction())
	s.metaballs = systems.NewMetaballs(perf.Resolution, perf.UpdateFrequency, systems.MetaballOptionsFromConfig(cfg), logger)
	s.population.Reconcile(perf.NumBodies)

	s.scheduler.Register(systems.SystemPointer, PriorityPointer, s.pointerStep)
	s.scheduler.Register(systems.SystemPopulation, PriorityPhysics, s.populationStep)
	s.scheduler.Register(systems.SystemPhysics, PriorityPhysics, s.physicsStep)
	s.scheduler.Register(systems.SystemField, PriorityField, s.fieldStep)

	logger.Info("simulation created",
		"seed", opts.Seed,
		"bodies", perf.NumBodies,
		"resolution", perf.Resolution,
		"update_frequency", perf.UpdateFrequency,
		"transmission", perf.UseTransmission,
	)
	return s, nil
}

// Frame advances the simulation by one display frame of dt seconds.
func (s *Simulation) Frame(dt float64, p Pointer) error {
	if s.closed {
		return ErrClosed
	}
	if s.tickOpen {
		s.perfCollector.EndTick()
	}
	s.perfCollector.StartTick()
	s.tickOpen = true
	s.frame++
	s.pointer = p

	if err := s.scheduler.Tick(dt); err != nil {
		return err
	}

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()
	return nil
}

// pointerStep delivers finished texture loads, moves the orbit camera and
// projects the pointer onto the repulsor plane.
func (s *Simulation) pointerStep(float64) error {
	s.perfCollector.StartPhase(telemetry.PhasePointer)
	if s.loads != nil {
		s.loads.Poll()
	}
	s.orbit.Update(s.camera)
	if s.pointer.Active {
		s.repulsor.Track(s.camera.RayFromNDC(s.pointer.X, s.pointer.Y), s.camera.Direction())
	}
	return nil
}

// populationStep resizes the field buffers and refreshes the color table
// after the set of bodies changes.
func (s *Simulation) populationStep(float64) error {
	s.perfCollector.StartPhase(telemetry.PhasePopulation)
	if gen := s.population.Generation(); !s.synced || gen != s.generationSeen {
		s.colors = s.population.Colors(s.colors[:0])
		s.metaballs.Sync(s.population.Len(), s.colors)
		s.generationSeen = gen
		s.synced = true
	}
	return nil
}

func (s *Simulation) physicsStep(dt float64) error {
	s.perfCollector.StartPhase(telemetry.PhasePhysics)
	s.physics.Advance(dt)
	return nil
}

// fieldStep publishes post-integration positions and rebuilds the surface
// when the frame counter reaches the update frequency.
func (s *Simulation) fieldStep(float64) error {
	s.perfCollector.StartPhase(telemetry.PhaseField)
	scale := s.cfg.Field.WorldScale
	for i := 0; i < s.population.Len(); i++ {
		s.metaballs.Publish(i, systems.FieldPosition(s.population.Position(i), scale, s.offset))
	}
	if !s.metaballs.Tick() {
		return nil
	}

	last := s.metaballs.LastRebuild()
	record := telemetry.NewFieldRecord(last.Frame, last.Balls, last.Triangles, last.Vertices, last.Truncated, last.Duration)
	s.fieldWindow.Record(record)
	if err := s.output.WriteField(record); err != nil {
		s.logger.Error("failed to write field record", "error", err)
	}
	return nil
}

// flushTelemetry logs and writes the rolling summaries every log interval.
func (s *Simulation) flushTelemetry() {
	interval := s.cfg.Telemetry.LogInterval
	if interval <= 0 || s.frame%uint64(interval) != 0 {
		return
	}

	window := s.fieldWindow.Flush(s.frame, s.population.Len(), s.metaballs.Resolution())
	perfStats := s.perfCollector.Stats()

	if s.logStats {
		window.LogStats(s.logger)
		perfStats.LogStats(s.logger)
	}
	if err := s.output.WriteWindow(window); err != nil {
		s.logger.Error("failed to write window", "error", err)
	}
	if err := s.output.WritePerf(perfStats, int64(s.frame)); err != nil {
		s.logger.Error("failed to write perf", "error", err)
	}
}

// Render times fn as the render phase of the current frame and closes it.
// Call it after Frame; it is a no-op when no frame is open.
func (s *Simulation) Render(fn func(View)) {
	if !s.tickOpen {
		return
	}
	s.perfCollector.StartPhase(telemetry.PhaseRender)
	if fn != nil {
		fn(s.View())
	}
	s.perfCollector.EndTick()
	s.perfCollector.RecordFrame()
	s.tickOpen = false
}

// Apply switches to new performance settings. The body count, update
// frequency and material take effect immediately. A resolution change only
// takes effect through Reprovision; Apply reports it with an error wrapping
// systems.ErrResolutionChange.
func (s *Simulation) Apply(perf config.Performance) error {
	if s.closed {
		return ErrClosed
	}
	if !perf.Validate() {
		s.logger.Warn("invalid performance settings, using defaults for bad fields", "performance", perf)
		perf = perf.Sanitize()
	}
	s.perf = perf
	s.population.Reconcile(perf.NumBodies)
	s.metaballs.SetUpdateFrequency(perf.UpdateFrequency)
	s.material = scene.WaterMaterial(s.cfg.Material, perf.UseTransmission)
	return s.metaballs.CheckResolution(perf.Resolution)
}

// ApplyPreset resolves a named preset with the configured overrides and applies it.
func (s *Simulation) ApplyPreset(name string) error {
	return s.Apply(config.GetPerformance(name, &s.cfg.Performance.Overrides))
}

// SetBodyCount changes only the body count.
func (s *Simulation) SetBodyCount(n int) {
	if s.closed {
		return
	}
	p := s.perf
	p.NumBodies = n
	// A pending resolution change was already reported by the Apply that set it
	_ = s.Apply(p)
}

// Reprovision rebuilds the field at the requested resolution.
func (s *Simulation) Reprovision() error {
	if s.closed {
		return ErrClosed
	}
	if err := s.metaballs.Reprovision(s.perf.Resolution); err != nil {
		return fmt.Errorf("reprovisioning field: %w", err)
	}
	return nil
}

// ExportMesh writes the current surface in world units to name in the
// output directory. It is a no-op without an output directory.
func (s *Simulation) ExportMesh(name string) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.output.WriteMesh(name, s.metaballs.Mesh(), s.metaballs.Scale()); err != nil {
		return fmt.Errorf("exporting mesh: %w", err)
	}
	return nil
}

// OutputDir returns the telemetry directory, or "" when output is disabled.
func (s *Simulation) OutputDir() string { return s.output.Dir() }

// Attach binds b to the scene.
func (s *Simulation) Attach(b scene.Binding) (func(), error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.scene.Attach(b)
}

// Close releases the scene bindings, pending loads, output files and the
// ECS world. It is idempotent.
func (s *Simulation) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.tickOpen {
		s.perfCollector.EndTick()
		s.tickOpen = false
	}

	var errs []error
	if s.scene != nil {
		errs = append(errs, s.scene.Close())
	}
	if s.loads != nil {
		errs = append(errs, s.loads.Close())
	}
	errs = append(errs, s.output.Close())
	if s.population != nil {
		s.population.Clear()
	}
	if s.repulsor != nil && s.world.Alive(s.repulsor.Entity()) {
		s.world.RemoveEntity(s.repulsor.Entity())
	}
	return errors.Join(errs...)
}

// Camera returns the camera.
func (s *Simulation) Camera() *camera.Camera { return s.camera }

// Orbit returns the orbit controls.
func (s *Simulation) Orbit() *camera.Orbit { return s.orbit }

// Scene returns the render context.
func (s *Simulation) Scene() *scene.Scene { return s.scene }

// Loads returns the texture load queue, or nil when no loader was given.
func (s *Simulation) Loads() *scene.LoadQueue { return s.loads }

// Mesh returns the current surface.
func (s *Simulation) Mesh() *isosurface.Mesh { return s.metaballs.Mesh() }

// Metaballs returns the field layer.
func (s *Simulation) Metaballs() *systems.Metaballs { return s.metaballs }

// Population returns the body population.
func (s *Simulation) Population() *systems.Population { return s.population }

// Physics returns the body motion layer.
func (s *Simulation) Physics() *systems.PhysicsWorld { return s.physics }

// Repulsor returns the pointer repulsor.
func (s *Simulation) Repulsor() *systems.Repulsor { return s.repulsor }

// Material returns the water material.
func (s *Simulation) Material() scene.PhysicalMaterial { return s.material }

// Lights returns the lighting rig.
func (s *Simulation) Lights() scene.Lights { return s.lights }

// Performance returns the applied performance settings.
func (s *Simulation) Performance() config.Performance { return s.perf }

// Config returns the configuration the simulation was built with.
func (s *Simulation) Config() *config.Config { return s.cfg }

// Registry returns the system metadata registry.
func (s *Simulation) Registry() *systems.SystemRegistry { return s.registry }

// Scheduler returns the tick scheduler.
func (s *Simulation) Scheduler() *Scheduler { return s.scheduler }

// PerfStats returns the rolling per-phase timing.
func (s *Simulation) PerfStats() telemetry.PerfStats { return s.perfCollector.Stats() }

// FrameCount returns the number of frames run.
func (s *Simulation) FrameCount() uint64 { return s.frame }

// Closed reports whether Close has been called.
func (s *Simulation) Closed() bool { return s.closed }

// Elapsed returns the simulated time covered by fixed physics steps.
func (s *Simulation) Elapsed() time.Duration {
	return time.Duration(float64(s.physics.Steps()) * s.physics.DT() * float64(time.Second))
}
