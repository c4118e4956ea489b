package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/aquaism/scene"
)

// BackgroundRenderer clears the frame to the scene background.
type BackgroundRenderer struct {
	images *imageCache

	screenW, screenH float32
}

// NewBackgroundRenderer creates a new background renderer.
func NewBackgroundRenderer(screenW, screenH int32) *BackgroundRenderer {
	return &BackgroundRenderer{
		images:  newImageCache(),
		screenW: float32(screenW),
		screenH: float32(screenH),
	}
}

// Resize updates the target dimensions.
func (b *BackgroundRenderer) Resize(screenW, screenH int32) {
	b.screenW = float32(screenW)
	b.screenH = float32(screenH)
}

// Draw clears to a solid color or stretches a textured background across
// the screen. Call it before BeginMode3D.
func (b *BackgroundRenderer) Draw(s *scene.Scene) {
	bg := s.Background()
	if bg == nil {
		rl.ClearBackground(rl.Black)
		b.images.clear()
		return
	}

	base := s.ToneMapping().Apply(bg.Color, s.Exposure())
	rl.ClearBackground(colorRGBA(base, 1))

	var tex rl.Texture2D
	switch {
	case bg.Image != nil:
		tex = b.images.get(bg.Image)
	case bg.Texture != nil:
		t, ok := bg.Texture.(*Texture)
		if !ok {
			return
		}
		tex = t.Texture2D()
	default:
		b.images.clear()
		return
	}

	src := rl.Rectangle{X: 0, Y: 0, Width: float32(tex.Width), Height: float32(tex.Height)}
	dst := rl.Rectangle{X: 0, Y: 0, Width: b.screenW, Height: b.screenH}
	tint := channel(float32(bg.Intensity))
	rl.DrawTexturePro(tex, src, dst, rl.Vector2{}, 0, rl.NewColor(tint, tint, tint, 255))
}

// Unload frees resources.
func (b *BackgroundRenderer) Unload() {
	b.images.clear()
}
