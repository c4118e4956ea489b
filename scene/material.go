package scene

import "github.com/pthm-cable/aquaism/config"

// PhysicalMaterial describes the surface material of the water mesh.
type PhysicalMaterial struct {
	IOR                float64
	Transmission       float64
	Thickness          float64
	Roughness          float64
	Metalness          float64
	Clearcoat          float64
	ClearcoatRoughness float64
	Opacity            float64
	Transparent        bool
	VertexColors       bool
}

// WaterMaterial builds the water material. Without transmission the legacy
// mode applies: transmission 0 with a fixed opacity.
func WaterMaterial(cfg config.MaterialConfig, useTransmission bool) PhysicalMaterial {
	m := PhysicalMaterial{
		IOR:                cfg.IOR,
		Transmission:       cfg.Transmission,
		Thickness:          cfg.Thickness,
		Roughness:          cfg.Roughness,
		Metalness:          cfg.Metalness,
		Clearcoat:          cfg.Clearcoat,
		ClearcoatRoughness: cfg.ClearcoatRoughness,
		Opacity:            1,
		Transparent:        true,
		VertexColors:       true,
	}
	if !useTransmission {
		m.Transmission = 0
		m.Opacity = cfg.LegacyOpacity
	}
	return m
}

// Legacy reports whether the material uses opacity instead of transmission.
func (m PhysicalMaterial) Legacy() bool {
	return m.Transmission == 0
}

// Alpha approximates the rasterized coverage of the material. Transmission
// halves the coverage of an otherwise opaque surface.
func (m PhysicalMaterial) Alpha() float64 {
	a := m.Opacity * (1 - 0.5*m.Transmission)
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}
