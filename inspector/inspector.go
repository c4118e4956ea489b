// Package inspector draws the selected body's components using their
// inspect struct tags.
package inspector

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/aquaism/game"
	"github.com/pthm-cable/aquaism/systems"
)

// Panel dimensions
const (
	PanelWidth   = 280
	PanelPadding = 10
	HeaderHeight = 30
	SectionGap   = 6
)

// Panel colors
var (
	ColorPanelBg     = rl.Color{R: 30, G: 30, B: 35, A: 240}
	ColorPanelHeader = rl.Color{R: 45, G: 45, B: 55, A: 255}
	ColorPanelBorder = rl.Color{R: 70, G: 70, B: 80, A: 255}
	ColorHeaderText  = rl.Color{R: 255, G: 255, B: 255, A: 255}
	ColorCloseBtn    = rl.Color{R: 180, G: 80, B: 80, A: 255}
	ColorSection     = rl.Color{R: 50, G: 50, B: 60, A: 255}
	ColorSectionText = rl.Color{R: 200, G: 200, B: 220, A: 255}
)

// Picker selects bodies under the pointer.
type Picker interface {
	Pick(x, y float64) (systems.BodyID, bool)
	ClearSelection()
}

// Inspector handles body selection input and renders the panel.
type Inspector struct {
	panelX       int32
	panelY       int32
	screenWidth  int32
	screenHeight int32
	open         bool
}

// NewInspector creates a new inspector anchored to the top right.
func NewInspector(screenWidth, screenHeight int32) *Inspector {
	ins := &Inspector{}
	ins.Resize(screenWidth, screenHeight)
	return ins
}

// Resize re-anchors the panel.
func (ins *Inspector) Resize(screenWidth, screenHeight int32) {
	ins.screenWidth = screenWidth
	ins.screenHeight = screenHeight
	ins.panelX = screenWidth - PanelWidth - 10
	ins.panelY = 10
}

// HandleInput picks on right click and clears on Escape or the close button.
// It reports whether the pointer is over the open panel, in which case
// the click must not reach the scene.
func (ins *Inspector) HandleInput(mouseX, mouseY float32, ndcX, ndcY float64, p Picker) bool {
	if rl.IsKeyPressed(rl.KeyEscape) {
		p.ClearSelection()
		ins.open = false
		return false
	}

	if ins.open && ins.overPanel(mouseX, mouseY) {
		if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && ins.overClose(mouseX, mouseY) {
			p.ClearSelection()
			ins.open = false
		}
		return true
	}

	if rl.IsMouseButtonPressed(rl.MouseButtonRight) {
		_, ins.open = p.Pick(ndcX, ndcY)
	}
	return false
}

func (ins *Inspector) overPanel(x, y float32) bool {
	return int32(x) >= ins.panelX && int32(x) <= ins.panelX+PanelWidth &&
		int32(y) >= ins.panelY && int32(y) <= ins.panelY+ins.lastHeight()
}

func (ins *Inspector) overClose(x, y float32) bool {
	closeX := ins.panelX + PanelWidth - 25
	closeY := ins.panelY + 5
	return int32(x) >= closeX && int32(x) <= closeX+20 &&
		int32(y) >= closeY && int32(y) <= closeY+20
}

// lastHeight returns a conservative panel height for hit testing.
func (ins *Inspector) lastHeight() int32 {
	return ins.screenHeight - ins.panelY
}

// Draw renders the panel for the selected body. A false ok closes it.
func (ins *Inspector) Draw(info game.BodyInfo, ok bool) {
	if !ok {
		ins.open = false
		return
	}
	ins.open = true

	sections := ExtractSections(info)
	panelHeight := PanelHeight(sections)

	rl.DrawRectangle(ins.panelX, ins.panelY, PanelWidth, panelHeight, ColorPanelBg)
	rl.DrawRectangleLinesEx(
		rl.Rectangle{X: float32(ins.panelX), Y: float32(ins.panelY), Width: PanelWidth, Height: float32(panelHeight)},
		1,
		ColorPanelBorder,
	)

	rl.DrawRectangle(ins.panelX, ins.panelY, PanelWidth, HeaderHeight, ColorPanelHeader)
	rl.DrawText(fmt.Sprintf("BODY #%d", info.ID), ins.panelX+PanelPadding, ins.panelY+7, 16, ColorHeaderText)

	closeX := ins.panelX + PanelWidth - 25
	closeY := ins.panelY + 5
	rl.DrawRectangle(closeX, closeY, 20, 20, ColorCloseBtn)
	rl.DrawText("X", closeX+6, closeY+3, 14, rl.White)

	x := ins.panelX + PanelPadding
	y := ins.panelY + HeaderHeight + PanelPadding
	for _, s := range sections {
		if s.Title != "" {
			ins.drawSectionHeader(x, y, s.Title)
			y += 20
		}
		for _, f := range s.Fields {
			y += DrawField(x, y, f)
		}
		y += SectionGap
	}
}

// drawSectionHeader renders a section title.
func (ins *Inspector) drawSectionHeader(x, y int32, title string) {
	rl.DrawRectangle(x-2, y-2, PanelWidth-2*PanelPadding+4, 18, ColorSection)
	rl.DrawText(title, x+2, y, 14, ColorSectionText)
}

// PanelHeight computes the height needed to draw sections.
func PanelHeight(sections []Section) int32 {
	height := int32(HeaderHeight + PanelPadding)
	for _, s := range sections {
		if s.Title != "" {
			height += 20
		}
		for _, f := range s.Fields {
			height += FieldHeight(f)
		}
		height += SectionGap
	}
	return height + PanelPadding
}
