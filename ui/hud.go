package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/aquaism/systems"
	"github.com/pthm-cable/aquaism/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Bodies       int
	Resolution   int
	Frame        uint64
	FPS          int32
	Preset       string
	ScreenWidth  int32
	ScreenHeight int32
}

// InfoLine returns the debug line describing the simulation size.
func InfoLine(bodies, resolution int) string {
	return fmt.Sprintf("Water simulation: %d bodies, %d³ resolution", bodies, resolution)
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the info line and FPS readout.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(InfoLine(data.Bodies, data.Resolution), 10, 10, 20, rl.White)

	status := fmt.Sprintf("FPS: %d | Frame: %d", data.FPS, data.Frame)
	if data.Preset != "" {
		status += " | Preset: " + data.Preset
	}
	rl.DrawText(status, 10, 35, 16, rl.LightGray)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, overlays *OverlayRegistry) {
	legend := "Drag: orbit | Right click: inspect | Esc: deselect"
	for _, desc := range overlays.All() {
		if desc.KeyLabel != "" {
			legend += fmt.Sprintf(" | %s: %s", desc.KeyLabel, desc.Name)
		}
	}
	rl.DrawText(legend, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the per-phase frame timings.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the phase breakdown in pipeline order.
func (p *PerfPanel) Draw(stats telemetry.PerfStats, registry *systems.SystemRegistry) {
	x := p.x
	y := p.y

	rl.DrawText("Frame Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Tick: %s avg, %s max | %.0f ticks/s",
		stats.AvgTickDuration.Round(time.Microsecond),
		stats.MaxTickDuration.Round(time.Microsecond),
		stats.TicksPerSecond), x, y, 14, rl.Yellow)
	y += 16

	for _, phase := range telemetry.Phases {
		avg := stats.PhaseAvg[phase]
		pct := stats.PhasePct[phase]

		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}

		name := phase
		if registry != nil {
			name = registry.GetName(phase)
		}

		rl.DrawText(fmt.Sprintf("%-16s %8s %5.1f%%", name, avg.Round(time.Microsecond), pct), x, y, 12, color)
		y += 14
	}
}

// FieldInfo is the data shown by the field panel.
type FieldInfo struct {
	Last            systems.RebuildStats
	Rebuilds        uint64
	Resolution      int
	UpdateFrequency int
	Transmission    bool
	Scene           string
}

// FieldSections describes the field panel layout.
func FieldSections() []SectionDescriptor {
	info := func(d any) FieldInfo { return d.(FieldInfo) }
	return []SectionDescriptor{
		{
			ID:    "grid",
			Title: "Field",
			Fields: []FieldDescriptor{
				{ID: "resolution", Label: "Resolution", Widget: WidgetText, TextGetter: func(d any) string {
					r := info(d).Resolution
					return fmt.Sprintf("%d³ (%d cells)", r, r*r*r)
				}},
				{ID: "frequency", Label: "Update every", Widget: WidgetText, TextGetter: func(d any) string {
					return fmt.Sprintf("%d frame(s)", info(d).UpdateFrequency)
				}},
				{ID: "rebuilds", Label: "Rebuilds", Widget: WidgetText, TextGetter: func(d any) string {
					return fmt.Sprintf("%d", info(d).Rebuilds)
				}},
			},
		},
		{
			ID:    "mesh",
			Title: "Last Rebuild",
			Fields: []FieldDescriptor{
				{ID: "balls", Label: "Balls", Widget: WidgetText, Format: "%.0f", Getter: func(d any) float32 {
					return float32(info(d).Last.Balls)
				}},
				{ID: "triangles", Label: "Triangles", Widget: WidgetText, Format: "%.0f", Getter: func(d any) float32 {
					return float32(info(d).Last.Triangles)
				}},
				{ID: "vertices", Label: "Vertices", Widget: WidgetText, Format: "%.0f", Getter: func(d any) float32 {
					return float32(info(d).Last.Vertices)
				}},
				{ID: "duration", Label: "Duration", Widget: WidgetBar, Range: FieldRange{Min: 0, Max: 16}, Getter: func(d any) float32 {
					return float32(info(d).Last.Duration) / float32(time.Millisecond)
				}},
				{ID: "truncated", Label: "Truncated", Widget: WidgetText, Color: rl.Orange,
					Visible:    func(d any) bool { return info(d).Last.Truncated },
					TextGetter: func(any) string { return "vertex budget hit" },
				},
			},
		},
		{
			ID:    "material",
			Title: "Rendering",
			Fields: []FieldDescriptor{
				{ID: "transmission", Label: "Material", Widget: WidgetText, TextGetter: func(d any) string {
					if info(d).Transmission {
						return "transmission"
					}
					return "legacy (opacity)"
				}},
				{ID: "scene", Label: "Background", Widget: WidgetText,
					Visible:    func(d any) bool { return info(d).Scene != "" },
					TextGetter: func(d any) string { return info(d).Scene },
				},
			},
		},
	}
}

// FieldPanel renders mesh and field statistics from descriptors.
type FieldPanel struct {
	renderer *Renderer
	sections []SectionDescriptor
	x, y     int32
	width    int32
}

// NewFieldPanel creates a new field panel.
func NewFieldPanel(x, y, width int32) *FieldPanel {
	return &FieldPanel{
		renderer: NewRenderer(),
		sections: FieldSections(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (f *FieldPanel) SetPosition(x, y int32) {
	f.x = x
	f.y = y
}

// Draw renders the panel and returns the Y below it.
func (f *FieldPanel) Draw(data FieldInfo) int32 {
	r := f.renderer
	padding := r.Theme.Padding

	height := padding * 2
	for _, sd := range f.sections {
		height += r.SectionHeight(sd, data)
	}
	r.DrawPanel(f.x, f.y, f.width, height)

	y := f.y + padding
	for _, sd := range f.sections {
		y = r.DrawSection(f.x+padding, y, sd, data, f.width-padding*2)
	}
	return f.y + height
}
