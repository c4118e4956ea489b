package renderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/aquaism/isosurface"
	"github.com/pthm-cable/aquaism/scene"
)

// Texture is an image decoded off the render thread and uploaded to the GPU
// on first use.
type Texture struct {
	image    *rl.Image
	texture  rl.Texture2D
	uploaded bool
}

// Texture2D uploads the image if needed and returns the GPU texture.
// Call it from the render thread only.
func (t *Texture) Texture2D() rl.Texture2D {
	if !t.uploaded && t.image != nil {
		t.texture = rl.LoadTextureFromImage(t.image)
		rl.SetTextureFilter(t.texture, rl.FilterBilinear)
		t.uploaded = true
	}
	return t.texture
}

// Release frees the CPU image and the GPU texture.
func (t *Texture) Release() {
	if t.uploaded {
		rl.UnloadTexture(t.texture)
		t.uploaded = false
	}
	if t.image != nil {
		rl.UnloadImage(t.image)
		t.image = nil
	}
}

// TextureLoader decodes image files for scene environment bindings.
type TextureLoader struct{}

// Load decodes path into a texture. The GPU upload is deferred to the
// first draw.
func (TextureLoader) Load(ctx context.Context, path string) (scene.Texture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening texture: %w", err)
	}
	img := rl.LoadImage(path)
	if img == nil || img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("decoding texture %s: unsupported format", path)
	}
	if err := ctx.Err(); err != nil {
		rl.UnloadImage(img)
		return nil, err
	}
	return &Texture{image: img}, nil
}

// imageCache uploads scene images once and frees those no longer shown.
type imageCache struct {
	textures map[*scene.Image]rl.Texture2D
}

func newImageCache() *imageCache {
	return &imageCache{textures: make(map[*scene.Image]rl.Texture2D)}
}

// get returns the texture for img, uploading it and evicting every other
// cached image.
func (c *imageCache) get(img *scene.Image) rl.Texture2D {
	if tex, ok := c.textures[img]; ok {
		return tex
	}
	c.clear()
	cpu := rl.NewImageFromImage(toRGBA(img))
	tex := rl.LoadTextureFromImage(cpu)
	rl.UnloadImage(cpu)
	rl.SetTextureFilter(tex, rl.FilterBilinear)
	c.textures[img] = tex
	return tex
}

func (c *imageCache) clear() {
	for img, tex := range c.textures {
		rl.UnloadTexture(tex)
		delete(c.textures, img)
	}
}

// toRGBA converts a scene image to an opaque RGBA image.
func toRGBA(img *scene.Image) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			out.SetRGBA(x, y, colorRGBA(img.At(x, y), 1))
		}
	}
	return out
}

func colorRGBA(c isosurface.Color, alpha float64) color.RGBA {
	return color.RGBA{R: channel(c.R), G: channel(c.G), B: channel(c.B), A: channel(float32(alpha))}
}

func channel(v float32) uint8 {
	if v <= 0 || v != v {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
