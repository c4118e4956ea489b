package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Body.Radius != 0.2 {
		t.Errorf("expected body radius 0.2, got %v", cfg.Body.Radius)
	}
	if cfg.Field.Isolation != 1000 || cfg.Field.Strength != 0.5 || cfg.Field.Subtract != 10 {
		t.Errorf("unexpected field constants: %+v", cfg.Field)
	}
	if len(cfg.Palette) != 9 || cfg.Palette[0] != 0x0067b1 {
		t.Errorf("unexpected palette: %v", cfg.Palette)
	}
	if cfg.Lights.HemisphereSky != 0x00bbff {
		t.Errorf("expected hemisphere sky 0x00bbff, got %#x", cfg.Lights.HemisphereSky)
	}

	wantMass := 0.5 * 4.0 / 3.0 * math.Pi * 0.008
	if math.Abs(cfg.Derived.BodyMass-wantMass) > 1e-12 {
		t.Errorf("expected body mass %v, got %v", wantMass, cfg.Derived.BodyMass)
	}
	if math.Abs(cfg.Derived.RepulsorRadius-1.2) > 1e-12 {
		t.Errorf("expected repulsor radius 1.2, got %v", cfg.Derived.RepulsorRadius)
	}
}

func TestLoadUserOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("body:\n  radius: 0.3\nperformance:\n  preset: ultra\n  overrides:\n    num_bodies: 12\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Body.Radius != 0.3 {
		t.Errorf("expected radius 0.3, got %v", cfg.Body.Radius)
	}
	// Fields absent from the user file keep their defaults
	if cfg.Body.Density != 0.5 {
		t.Errorf("expected density default 0.5, got %v", cfg.Body.Density)
	}

	perf := cfg.ResolvePerformance()
	if perf.NumBodies != 12 || perf.Resolution != 90 {
		t.Errorf("expected ultra with 12 bodies, got %+v", perf)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestWriteYAMLRoundtrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Field.MaxTriangles = 1234

	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load snapshot: %v", err)
	}
	if loaded.Field.MaxTriangles != 1234 {
		t.Errorf("expected max triangles 1234, got %d", loaded.Field.MaxTriangles)
	}
}

func TestPresets(t *testing.T) {
	tests := []struct {
		preset     string
		bodies     int
		resolution int
	}{
		{PresetLow, 20, 32},
		{PresetPerformance, 30, 48},
		{PresetBalanced, 30, 64},
		{PresetQuality, 30, 72},
		{PresetUltra, 40, 90},
		{"unknown", 30, 72},
		{"", 30, 72},
	}

	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			p := GetPerformance(tt.preset, nil)
			if p.NumBodies != tt.bodies || p.Resolution != tt.resolution {
				t.Errorf("got %+v, want bodies=%d resolution=%d", p, tt.bodies, tt.resolution)
			}
			if p.UpdateFrequency != 1 || !p.UseTransmission {
				t.Errorf("expected update frequency 1 with transmission, got %+v", p)
			}
		})
	}
}

func TestOverrides(t *testing.T) {
	p := GetPerformance(PresetLow, &Overrides{
		NumBodies:       Int(5),
		UpdateFrequency: Int(3),
		UseTransmission: Bool(false),
	})
	want := Performance{NumBodies: 5, Resolution: 32, UpdateFrequency: 3, UseTransmission: false}
	if p != want {
		t.Errorf("got %+v, want %+v", p, want)
	}
}

func TestInvalidOverridesFallBackToQuality(t *testing.T) {
	p := GetPerformance(PresetLow, &Overrides{
		NumBodies:       Int(-1),
		Resolution:      Int(0),
		UpdateFrequency: Int(0),
	})
	want := Performance{NumBodies: 30, Resolution: 72, UpdateFrequency: 1, UseTransmission: true}
	if p != want {
		t.Errorf("got %+v, want %+v", p, want)
	}
	if !p.Validate() {
		t.Error("resolved performance should be valid")
	}
}

func TestZeroBodiesIsValid(t *testing.T) {
	p := GetPerformance(PresetQuality, &Overrides{NumBodies: Int(0)})
	if p.NumBodies != 0 {
		t.Errorf("expected 0 bodies, got %d", p.NumBodies)
	}
	if !p.Validate() {
		t.Error("zero bodies should validate")
	}
}

func TestSanitize(t *testing.T) {
	p := Performance{NumBodies: -3, Resolution: -1, UpdateFrequency: 0}.Sanitize()
	if !p.Validate() {
		t.Errorf("sanitized performance invalid: %+v", p)
	}
	if p.Resolution != 72 {
		t.Errorf("expected quality resolution, got %d", p.Resolution)
	}
}
