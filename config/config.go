// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen      ScreenConfig      `yaml:"screen"`
	Camera      CameraConfig      `yaml:"camera"`
	Orbit       OrbitConfig       `yaml:"orbit"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Body        BodyConfig        `yaml:"body"`
	Spawn       SpawnConfig       `yaml:"spawn"`
	Palette     []uint32          `yaml:"palette"`
	Repulsor    RepulsorConfig    `yaml:"repulsor"`
	Field       FieldConfig       `yaml:"field"`
	Material    MaterialConfig    `yaml:"material"`
	Lights      LightsConfig      `yaml:"lights"`
	Performance PerformanceConfig `yaml:"performance"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// CameraConfig holds the perspective camera setup.
type CameraConfig struct {
	Position [3]float64 `yaml:"position"`
	Target   [3]float64 `yaml:"target"`
	FOV      float64    `yaml:"fov"` // vertical field of view in degrees
	Near     float64    `yaml:"near"`
	Far      float64    `yaml:"far"`
}

// OrbitConfig holds orbit control behavior.
type OrbitConfig struct {
	Enabled       bool    `yaml:"enabled"`
	DampingFactor float64 `yaml:"damping_factor"`
	EnableZoom    bool    `yaml:"enable_zoom"`
	RotateSpeed   float64 `yaml:"rotate_speed"` // radians per screen height of drag
}

// PhysicsConfig holds integrator parameters.
type PhysicsConfig struct {
	DT               float64 `yaml:"dt"`
	MaxSubsteps      int     `yaml:"max_substeps"`
	SolverIterations int     `yaml:"solver_iterations"`
	GridCellSize     float64 `yaml:"grid_cell_size"`
}

// BodyConfig holds the rigid body descriptor shared by all metaball bodies.
type BodyConfig struct {
	Radius         float64 `yaml:"radius"`
	Density        float64 `yaml:"density"`
	Restitution    float64 `yaml:"restitution"`
	Friction       float64 `yaml:"friction"`
	LinearDamping  float64 `yaml:"linear_damping"`
	AngularDamping float64 `yaml:"angular_damping"`
	Attraction     float64 `yaml:"attraction"` // magnitude of the centripetal force
}

// SpawnConfig defines the cube new bodies are placed in.
type SpawnConfig struct {
	Center [3]float64 `yaml:"center"`
	Size   float64    `yaml:"size"`
}

// RepulsorConfig holds pointer repulsor parameters.
type RepulsorConfig struct {
	RadiusScale float64 `yaml:"radius_scale"` // collider radius = body radius * this
	PlaneOffset float64 `yaml:"plane_offset"` // distance of the tracking plane from the origin
	PlaneSize   float64 `yaml:"plane_size"`   // edge length of the square tracking plane
}

// FieldConfig holds metaball field constants. Strength, subtract and isolation
// are tuned together; change them as a set.
type FieldConfig struct {
	Strength     float64    `yaml:"strength"`
	Subtract     float64    `yaml:"subtract"`
	Isolation    float64    `yaml:"isolation"`
	Scale        float64    `yaml:"scale"`       // mesh scale relative to the unit field cube
	WorldScale   float64    `yaml:"world_scale"` // world -> field space multiplier
	Offset       [3]float64 `yaml:"offset"`      // added after scaling
	MaxTriangles int        `yaml:"max_triangles"`
}

// MaterialConfig describes the transmissive water material.
type MaterialConfig struct {
	IOR                float64 `yaml:"ior"`
	Transmission       float64 `yaml:"transmission"`
	Thickness          float64 `yaml:"thickness"`
	Roughness          float64 `yaml:"roughness"`
	Metalness          float64 `yaml:"metalness"`
	Clearcoat          float64 `yaml:"clearcoat"`
	ClearcoatRoughness float64 `yaml:"clearcoat_roughness"`
	LegacyOpacity      float64 `yaml:"legacy_opacity"` // opacity when transmission is disabled
}

// LightsConfig holds the scene lighting rig.
type LightsConfig struct {
	HemisphereSky        uint32     `yaml:"hemisphere_sky"`
	HemisphereGround     uint32     `yaml:"hemisphere_ground"`
	HemisphereIntensity  float64    `yaml:"hemisphere_intensity"`
	AmbientIntensity     float64    `yaml:"ambient_intensity"`
	DirectionalPosition  [3]float64 `yaml:"directional_position"`
	DirectionalIntensity float64    `yaml:"directional_intensity"`
}

// PerformanceConfig selects the quality preset.
type PerformanceConfig struct {
	Preset    string    `yaml:"preset"`
	Overrides Overrides `yaml:"overrides"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow  int `yaml:"perf_window"`  // ticks in the rolling perf window
	LogInterval int `yaml:"log_interval"` // frames between perf log lines (0 disables)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	BodyMass       float64 // density * sphere volume
	RepulsorRadius float64 // body radius * repulsor radius scale
	FOVRadians     float64
	Aspect         float64
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	r := c.Body.Radius
	c.Derived.BodyMass = c.Body.Density * 4.0 / 3.0 * math.Pi * r * r * r
	c.Derived.RepulsorRadius = r * c.Repulsor.RadiusScale
	c.Derived.FOVRadians = c.Camera.FOV * math.Pi / 180

	c.Derived.Aspect = 1
	if c.Screen.Height > 0 {
		c.Derived.Aspect = float64(c.Screen.Width) / float64(c.Screen.Height)
	}

	if len(c.Palette) == 0 {
		c.Palette = append([]uint32(nil), DefaultPalette...)
	}
}

// ResolvePerformance resolves the configured preset and overrides.
func (c *Config) ResolvePerformance() Performance {
	return GetPerformance(c.Performance.Preset, &c.Performance.Overrides)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
