// Package scene holds the explicit render context: environment, background,
// fog and tone mapping, plus scoped bindings that modify it.
package scene

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/aquaism/isosurface"
)

// ErrClosed is returned when attaching to or loading into a closed scene.
var ErrClosed = errors.New("scene closed")

// ToneMapping selects the output tone curve.
type ToneMapping int

const (
	NoToneMapping ToneMapping = iota
	ACESFilmic
)

// Apply maps a linear color through the tone curve at the given exposure.
func (t ToneMapping) Apply(c isosurface.Color, exposure float64) isosurface.Color {
	if t != ACESFilmic {
		return c
	}
	e := float32(exposure)
	return isosurface.Color{R: aces(c.R * e), G: aces(c.G * e), B: aces(c.B * e)}
}

// aces is the Narkowicz fit of the ACES filmic curve.
func aces(x float32) float32 {
	const a, b, c, d, e = 2.51, 0.03, 2.43, 0.59, 0.14
	if x <= 0 {
		return 0
	}
	v := (x * (a*x + b)) / (x*(c*x+d) + e)
	if v > 1 {
		return 1
	}
	return v
}

func (t ToneMapping) String() string {
	switch t {
	case ACESFilmic:
		return "aces_filmic"
	default:
		return "none"
	}
}

// Fog is linear distance fog.
type Fog struct {
	Color     isosurface.Color
	Near, Far float64
}

// Factor returns the fog blend amount at distance d, 0 at Near and 1 at Far.
func (f Fog) Factor(d float64) float64 {
	if f.Far <= f.Near {
		if d >= f.Far {
			return 1
		}
		return 0
	}
	t := (d - f.Near) / (f.Far - f.Near)
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Apply blends c toward the fog color at distance d.
func (f Fog) Apply(c isosurface.Color, d float64) isosurface.Color {
	t := float32(f.Factor(d))
	if t >= 1 {
		return f.Color
	}
	return isosurface.Color{
		R: c.R + (f.Color.R-c.R)*t,
		G: c.G + (f.Color.G-c.G)*t,
		B: c.B + (f.Color.B-c.B)*t,
	}
}

// Background is what the renderer clears to. Exactly one of Image or Texture
// is set for textured backgrounds; otherwise Color is used.
type Background struct {
	Color     isosurface.Color
	Image     *Image
	Texture   Texture
	Blur      float64
	Intensity float64
}

// state is the part of a Scene that bindings may modify.
type state struct {
	background           *Background
	environment          Texture
	environmentIntensity float64
	fog                  *Fog
	toneMapping          ToneMapping
	exposure             float64
	customBackgrounds    int
}

// Scene is the render context shared by the renderer and the bindings
// attached to it. It is not safe for concurrent use; access it from the
// frame goroutine.
type Scene struct {
	state

	logger   *slog.Logger
	bindings []*attachment
	closed   bool
}

type attachment struct {
	release  func()
	released bool
}

// New creates a scene with the default tone mapping and no bindings.
func New(logger *slog.Logger) *Scene {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scene{
		state: state{
			environmentIntensity: 1,
			toneMapping:          ACESFilmic,
			exposure:             1,
		},
		logger: logger,
	}
}

// Background returns the current background, or nil for none.
func (s *Scene) Background() *Background { return s.background }

// Environment returns the environment map used for reflections, or nil.
func (s *Scene) Environment() Texture { return s.environment }

// EnvironmentIntensity returns the reflection intensity multiplier.
func (s *Scene) EnvironmentIntensity() float64 { return s.environmentIntensity }

// Fog returns the active fog, or nil.
func (s *Scene) Fog() *Fog { return s.fog }

// ToneMapping returns the active tone curve.
func (s *Scene) ToneMapping() ToneMapping { return s.toneMapping }

// Exposure returns the tone mapping exposure.
func (s *Scene) Exposure() float64 { return s.exposure }

// EnvironmentEnabled reports whether the built-in environment lighting should
// be used. It is disabled while any custom background binding is attached.
func (s *Scene) EnvironmentEnabled() bool { return s.customBackgrounds == 0 }

// Bindings returns the number of attached bindings.
func (s *Scene) Bindings() int { return len(s.bindings) }

// Closed reports whether Close has been called.
func (s *Scene) Closed() bool { return s.closed }

// Binding modifies a scene and returns the func that undoes it.
type Binding interface {
	Bind(s *Scene) (release func(), err error)
}

// BindingFunc adapts a function to the Binding interface.
type BindingFunc func(s *Scene) (func(), error)

// Bind calls f(s).
func (f BindingFunc) Bind(s *Scene) (func(), error) { return f(s) }

// Attach binds b to the scene. If the binding fails the scene is restored to
// its previous state. The returned release func is idempotent.
func (s *Scene) Attach(b Binding) (func(), error) {
	if s.closed {
		return nil, ErrClosed
	}

	before := s.state
	release, err := b.Bind(s)
	if err != nil {
		s.state = before
		return nil, fmt.Errorf("attaching binding: %w", err)
	}

	a := &attachment{release: release}
	s.bindings = append(s.bindings, a)
	return func() { s.detach(a) }, nil
}

func (s *Scene) detach(a *attachment) {
	if a.released {
		return
	}
	a.released = true
	if a.release != nil {
		a.release()
	}
	for i, b := range s.bindings {
		if b == a {
			s.bindings = append(s.bindings[:i], s.bindings[i+1:]...)
			break
		}
	}
}

// Close releases every attached binding in reverse order of attachment.
// It is idempotent.
func (s *Scene) Close() error {
	if s.closed {
		return nil
	}
	for i := len(s.bindings) - 1; i >= 0; i-- {
		s.detach(s.bindings[i])
	}
	s.closed = true
	return nil
}
