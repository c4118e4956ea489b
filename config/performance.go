package config

import "log/slog"

// Preset names.
const (
	PresetLow         = "low"
	PresetPerformance = "performance"
	PresetBalanced    = "balanced"
	PresetQuality     = "quality"
	PresetUltra       = "ultra"
)

// DefaultPreset is used for unknown or empty preset names.
const DefaultPreset = PresetQuality

// DefaultPalette is the fixed set of body colors.
var DefaultPalette = []uint32{
	0x0067b1, 0x4e99ce, 0x9bcbeb, 0x55d7e2, 0xffffff,
	0x9ca9b2, 0x4e6676, 0xf69230, 0xf5d81f,
}

// Performance is the per-session simulation quality bundle.
type Performance struct {
	NumBodies       int  `yaml:"num_bodies"`
	Resolution      int  `yaml:"resolution"`       // field samples per axis
	UpdateFrequency int  `yaml:"update_frequency"` // rebuild the field every N frames
	UseTransmission bool `yaml:"use_transmission"` // false selects the legacy opacity material
}

// Overrides replaces individual Performance fields. Nil fields keep the preset value.
type Overrides struct {
	NumBodies       *int  `yaml:"num_bodies,omitempty"`
	Resolution      *int  `yaml:"resolution,omitempty"`
	UpdateFrequency *int  `yaml:"update_frequency,omitempty"`
	UseTransmission *bool `yaml:"use_transmission,omitempty"`
}

var presets = map[string]Performance{
	PresetLow:         {NumBodies: 20, Resolution: 32, UpdateFrequency: 1, UseTransmission: true},
	PresetPerformance: {NumBodies: 30, Resolution: 48, UpdateFrequency: 1, UseTransmission: true},
	PresetBalanced:    {NumBodies: 30, Resolution: 64, UpdateFrequency: 1, UseTransmission: true},
	PresetQuality:     {NumBodies: 30, Resolution: 72, UpdateFrequency: 1, UseTransmission: true},
	PresetUltra:       {NumBodies: 40, Resolution: 90, UpdateFrequency: 1, UseTransmission: true},
}

// PresetNames returns the recognized presets from cheapest to most expensive.
func PresetNames() []string {
	return []string{PresetLow, PresetPerformance, PresetBalanced, PresetQuality, PresetUltra}
}

// Preset returns the named preset and whether the name was recognized.
// Unknown names return the quality preset.
func Preset(name string) (Performance, bool) {
	p, ok := presets[name]
	if !ok {
		return presets[DefaultPreset], false
	}
	return p, true
}

// GetPerformance resolves a preset name plus optional overrides.
// Invalid override values are dropped in favor of the quality preset's value.
func GetPerformance(preset string, o *Overrides) Performance {
	base, ok := Preset(preset)
	if !ok && preset != "" {
		slog.Warn("unknown performance preset, using default", "preset", preset, "default", DefaultPreset)
	}
	if o == nil {
		return base
	}

	fallback := presets[DefaultPreset]
	if o.NumBodies != nil {
		if *o.NumBodies >= 0 {
			base.NumBodies = *o.NumBodies
		} else {
			slog.Warn("invalid num_bodies override", "value", *o.NumBodies)
			base.NumBodies = fallback.NumBodies
		}
	}
	if o.Resolution != nil {
		if *o.Resolution > 0 {
			base.Resolution = *o.Resolution
		} else {
			slog.Warn("invalid resolution override", "value", *o.Resolution)
			base.Resolution = fallback.Resolution
		}
	}
	if o.UpdateFrequency != nil {
		if *o.UpdateFrequency >= 1 {
			base.UpdateFrequency = *o.UpdateFrequency
		} else {
			slog.Warn("invalid update_frequency override", "value", *o.UpdateFrequency)
			base.UpdateFrequency = fallback.UpdateFrequency
		}
	}
	if o.UseTransmission != nil {
		base.UseTransmission = *o.UseTransmission
	}
	return base
}

// Validate reports whether p satisfies the performance invariants.
func (p Performance) Validate() bool {
	return p.NumBodies >= 0 && p.Resolution > 0 && p.UpdateFrequency >= 1
}

// Sanitize replaces invalid fields with the quality preset's values.
func (p Performance) Sanitize() Performance {
	fallback := presets[DefaultPreset]
	if p.NumBodies < 0 {
		p.NumBodies = fallback.NumBodies
	}
	if p.Resolution <= 0 {
		p.Resolution = fallback.Resolution
	}
	if p.UpdateFrequency < 1 {
		p.UpdateFrequency = fallback.UpdateFrequency
	}
	return p
}

// Int returns a pointer to v, for building Overrides.
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for building Overrides.
func Bool(v bool) *bool { return &v }
