package scene

import (
	"path/filepath"
	"strings"

	"github.com/pthm-cable/aquaism/isosurface"
)

// Default fog and reflection parameters.
const (
	DefaultFogColor            = 0x001122
	DefaultFogNear             = 10
	DefaultFogFar              = 50
	DefaultReflectionIntensity = 2
	GradientHeight             = 512
)

// Image is a CPU-side RGB image, uploaded by the renderer on first use.
type Image struct {
	Width, Height int
	Pix           []isosurface.Color
}

// At returns the pixel at (x, y).
func (img *Image) At(x, y int) isosurface.Color {
	return img.Pix[y*img.Width+x]
}

// GradientImage builds a 2-texel wide vertical ramp from top to bottom.
func GradientImage(top, bottom isosurface.Color, height int) *Image {
	if height < 2 {
		height = 2
	}
	img := &Image{Width: 2, Height: height, Pix: make([]isosurface.Color, 2*height)}
	for y := 0; y < height; y++ {
		t := float32(y) / float32(height-1)
		c := isosurface.Color{
			R: top.R + (bottom.R-top.R)*t,
			G: top.G + (bottom.G-top.G)*t,
			B: top.B + (bottom.B-top.B)*t,
		}
		img.Pix[2*y] = c
		img.Pix[2*y+1] = c
	}
	return img
}

// setBackground installs bg as a custom background and returns the func
// restoring the previous one.
func (s *Scene) setBackground(bg *Background) func() {
	prev := s.background
	s.background = bg
	s.customBackgrounds++
	return func() {
		if s.background == bg {
			s.background = prev
		}
		s.customBackgrounds--
	}
}

// StaticColor sets a solid background color. It does not affect reflections.
func StaticColor(c isosurface.Color) Binding {
	return BindingFunc(func(s *Scene) (func(), error) {
		return s.setBackground(&Background{Color: c, Intensity: 1}), nil
	})
}

// Gradient sets a vertical gradient background from top to bottom.
func Gradient(top, bottom isosurface.Color) Binding {
	return BindingFunc(func(s *Scene) (func(), error) {
		bg := &Background{
			Color:     top,
			Image:     GradientImage(top, bottom, GradientHeight),
			Intensity: 1,
		}
		return s.setBackground(bg), nil
	})
}

// WithFog enables linear fog.
func WithFog(f Fog) Binding {
	return BindingFunc(func(s *Scene) (func(), error) {
		prev := s.fog
		fog := &f
		s.fog = fog
		return func() {
			if s.fog == fog {
				s.fog = prev
			}
		}, nil
	})
}

// DefaultFog returns the depth fog used by the reflection setup.
func DefaultFog() Fog {
	return Fog{Color: isosurface.Hex(DefaultFogColor), Near: DefaultFogNear, Far: DefaultFogFar}
}

// environmentBinding loads a texture asynchronously and installs it as the
// environment map, optionally also as the visible background.
type environmentBinding struct {
	queue  *LoadQueue
	path   string
	opts   EnvironmentOptions
	custom bool // counts as a custom background even while hidden
}

// EnvironmentOptions configure an image or HDR environment.
type EnvironmentOptions struct {
	Intensity float64 // environment intensity for reflections
	Visible   bool    // also show the image as the background
	Blur      float64
	Exposure  float64 // tone mapping exposure for HDR formats
}

// Reflection installs a hidden environment used only for reflections.
func Reflection(q *LoadQueue, path string, intensity float64) Binding {
	return &environmentBinding{
		queue: q,
		path:  path,
		opts:  EnvironmentOptions{Intensity: intensity},
	}
}

// HDREnvironment installs an environment from an image. For .hdr and .exr
// files the tone mapping switches to ACES filmic with the given exposure.
// It counts as a custom background.
func HDREnvironment(q *LoadQueue, path string, opts EnvironmentOptions) Binding {
	if opts.Intensity == 0 {
		opts.Intensity = 1
	}
	if opts.Exposure == 0 {
		opts.Exposure = 1
	}
	return &environmentBinding{queue: q, path: path, opts: opts, custom: true}
}

// IsHDR reports whether path names a high dynamic range image.
func IsHDR(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hdr", ".exr":
		return true
	}
	return false
}

func (b *environmentBinding) Bind(s *Scene) (func(), error) {
	var (
		held        Texture
		restoreEnv  state
		restoreBack func()
	)
	if b.custom {
		s.customBackgrounds++
	}

	cancel, err := b.queue.Start(b.path, func(tex Texture) {
		restoreEnv = s.state
		held = tex
		s.environment = tex
		s.environmentIntensity = b.opts.Intensity
		if b.opts.Visible {
			restoreBack = s.setBackground(&Background{Texture: tex, Blur: b.opts.Blur, Intensity: b.opts.Exposure})
		}
		if b.custom && IsHDR(b.path) {
			s.toneMapping = ACESFilmic
			s.exposure = b.opts.Exposure
		}
	})
	if err != nil {
		if b.custom {
			s.customBackgrounds--
		}
		return nil, err
	}

	return func() {
		cancel()
		if held == nil {
			if b.custom {
				s.customBackgrounds--
			}
			return
		}
		if restoreBack != nil {
			restoreBack()
		}
		if s.environment == held {
			s.environment = restoreEnv.environment
			s.environmentIntensity = restoreEnv.environmentIntensity
		}
		if b.custom && IsHDR(b.path) {
			s.toneMapping = restoreEnv.toneMapping
			s.exposure = restoreEnv.exposure
		}
		if b.custom {
			s.customBackgrounds--
		}
		held.Release()
	}, nil
}

// Group attaches bindings in order as one unit. If one fails, those already
// bound are released in reverse order.
func Group(bindings ...Binding) Binding {
	return BindingFunc(func(s *Scene) (func(), error) {
		releases := make([]func(), 0, len(bindings))
		undo := func() {
			for i := len(releases) - 1; i >= 0; i-- {
				if releases[i] != nil {
					releases[i]()
				}
			}
		}
		for _, b := range bindings {
			r, err := b.Bind(s)
			if err != nil {
				undo()
				return nil, err
			}
			releases = append(releases, r)
		}
		return undo, nil
	})
}

// ReflectionSetup combines a hidden reflection environment, depth fog and a
// visible static background.
func ReflectionSetup(q *LoadQueue, reflectionPath string, background Binding, fog bool) Binding {
	bindings := []Binding{Reflection(q, reflectionPath, DefaultReflectionIntensity)}
	if fog {
		bindings = append(bindings, WithFog(DefaultFog()))
	}
	if background != nil {
		bindings = append(bindings, background)
	}
	return Group(bindings...)
}
