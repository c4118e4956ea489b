package ui

import (
	"errors"
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/aquaism/config"
	"github.com/pthm-cable/aquaism/systems"
)

// Slider limits for the settings panel.
const (
	MaxBodies        = 100
	MinResolution    = 16
	MaxResolution    = 128
	MaxUpdateEvery   = 10
	settingsRowGap   = 28
	settingsRowCount = 9
)

// Settings is the part of the simulation the settings panel drives.
type Settings interface {
	Performance() config.Performance
	Apply(config.Performance) error
	ApplyPreset(name string) error
	Reprovision() error
}

// ControlsPanel renders the overlay toggles.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Draw renders the overlay list and returns the Y below it.
func (c *ControlsPanel) Draw(overlays *OverlayRegistry) int32 {
	r := c.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	categories := overlays.Categories()
	totalItems := 0
	for _, cat := range categories {
		totalItems += len(overlays.ByCategory(cat)) + 1
	}
	panelHeight := int32(totalItems)*lineHeight + padding*3 + lineHeight

	r.DrawPanel(c.x, c.y, c.width, panelHeight)

	y := c.y + padding
	rl.DrawText("Overlays", c.x+padding, y, 16, rl.White)
	y += lineHeight + 4

	for _, category := range categories {
		rl.DrawText(categoryLabel(category), c.x+padding, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += lineHeight

		for _, desc := range overlays.ByCategory(category) {
			c.drawToggle(c.x+padding, y, desc, overlays.IsEnabled(desc.ID), c.width-padding*2)
			y += lineHeight
		}
		y += 4
	}

	return c.y + panelHeight
}

// drawToggle draws a single overlay toggle line.
func (c *ControlsPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	r := c.renderer

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	if enabled {
		statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
	}
	rl.DrawRectangle(x, y+2, 8, 8, statusColor)

	nameColor := r.Theme.LabelColor
	if enabled {
		nameColor = rl.White
	}
	rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, nameColor)

	if desc.KeyLabel != "" {
		keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
		keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
	}
}

// categoryLabel returns a display label for a category.
func categoryLabel(cat string) string {
	switch cat {
	case "scene":
		return "Scene"
	case "debug":
		return "Debug"
	default:
		return cat
	}
}

// SettingsPanel edits the performance settings with raygui widgets.
type SettingsPanel struct {
	renderer *Renderer
	x, y     float32
	width    float32
	preset   string
	message  string
}

// NewSettingsPanel creates a new settings panel.
func NewSettingsPanel(x, y, width int32, preset string) *SettingsPanel {
	return &SettingsPanel{
		renderer: NewRenderer(),
		x:        float32(x),
		y:        float32(y),
		width:    float32(width),
		preset:   preset,
	}
}

// SetPosition updates the panel position.
func (p *SettingsPanel) SetPosition(x, y int32) {
	p.x = float32(x)
	p.y = float32(y)
}

// Preset returns the last preset chosen from the panel.
func (p *SettingsPanel) Preset() string { return p.preset }

// Height returns the panel height.
func (p *SettingsPanel) Height() float32 {
	return float32(settingsRowCount*settingsRowGap) + float32(p.renderer.Theme.Padding)*2
}

// Contains reports whether the screen point lies on the panel.
func (p *SettingsPanel) Contains(x, y float32) bool {
	return x >= p.x && x <= p.x+p.width && y >= p.y && y <= p.y+p.Height()
}

// Draw renders the panel and applies any edits to s. liveResolution is the
// resolution of the field currently allocated. Errors other than a pending
// resolution change are returned.
func (p *SettingsPanel) Draw(s Settings, liveResolution int) error {
	r := p.renderer
	pad := float32(r.Theme.Padding)
	r.DrawPanel(int32(p.x), int32(p.y), int32(p.width), int32(p.Height()))

	x := p.x + pad
	y := p.y + pad
	w := p.width - pad*2
	sliderW := w - 120

	rl.DrawText("Settings", int32(x), int32(y), 16, rl.White)
	y += settingsRowGap

	perf := s.Performance()
	next := perf

	next.NumBodies = p.intSlider(x, y, sliderW, "Bodies", perf.NumBodies, 0, MaxBodies)
	y += settingsRowGap
	next.Resolution = p.intSlider(x, y, sliderW, "Resolution", perf.Resolution, MinResolution, MaxResolution)
	y += settingsRowGap
	next.UpdateFrequency = p.intSlider(x, y, sliderW, "Update every", perf.UpdateFrequency, 1, MaxUpdateEvery)
	y += settingsRowGap
	next.UseTransmission = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 16, Height: 16}, "Transmission", perf.UseTransmission)
	y += settingsRowGap

	var err error
	if next != perf {
		err = p.record(s.Apply(next))
	}

	// Preset buttons, two rows
	names := config.PresetNames()
	perRow := 3
	bw := (w - float32(perRow-1)*6) / float32(perRow)
	for i, name := range names {
		col := float32(i % perRow)
		row := float32(i / perRow)
		bounds := rl.Rectangle{X: x + col*(bw+6), Y: y + row*settingsRowGap, Width: bw, Height: 22}
		label := name
		if name == p.preset {
			label = "> " + name
		}
		if gui.Button(bounds, label) {
			p.preset = name
			err = errors.Join(err, p.record(s.ApplyPreset(name)))
		}
	}
	y += settingsRowGap * float32((len(names)+perRow-1)/perRow)

	pending := s.Performance().Resolution != liveResolution
	label := "Rebuild field"
	if pending {
		label = fmt.Sprintf("Rebuild field (%d -> %d)", liveResolution, s.Performance().Resolution)
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: 24}, label) {
		if rerr := s.Reprovision(); rerr != nil {
			err = errors.Join(err, rerr)
		} else {
			p.message = ""
		}
	}
	y += settingsRowGap

	if p.message != "" {
		rl.DrawText(p.message, int32(x), int32(y), r.Theme.FontSize, r.Theme.Warning)
	}
	return err
}

// record keeps a resolution change as a panel message and passes other
// errors through.
func (p *SettingsPanel) record(err error) error {
	if errors.Is(err, systems.ErrResolutionChange) {
		p.message = "Resolution change needs a field rebuild"
		return nil
	}
	return err
}

func (p *SettingsPanel) intSlider(x, y, width float32, label string, value, min, max int) int {
	r := p.renderer
	rl.DrawText(label, int32(x), int32(y+4), r.Theme.FontSize, r.Theme.LabelColor)
	bounds := rl.Rectangle{X: x + 90, Y: y, Width: width - 90 + 60, Height: 20}
	v := gui.SliderBar(bounds, "", fmt.Sprintf("%d", value), float32(value), float32(min), float32(max))
	return ClampInt(int(v+0.5), min, max)
}

// ClampInt clamps v to [min, max].
func ClampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
