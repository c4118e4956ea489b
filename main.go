package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/aquaism/camera"
	"github.com/pthm-cable/aquaism/config"
	"github.com/pthm-cable/aquaism/game"
	"github.com/pthm-cable/aquaism/inspector"
	"github.com/pthm-cable/aquaism/isosurface"
	"github.com/pthm-cable/aquaism/renderer"
	"github.com/pthm-cable/aquaism/scene"
	"github.com/pthm-cable/aquaism/ui"
)

// Background colors for the built-in bindings.
const (
	staticBackground   = 0x0a1a2a
	gradientTop        = 0x003355
	gradientBottom     = 0x000000
	headlessFrameDelta = 1.0 / 60
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output field and perf summaries via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config snapshot and mesh export")
	preset := flag.String("preset", "", "Performance preset (low, performance, balanced, quality, ultra)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")
	background := flag.String("background", "none", "Scene background: none, color, gradient, fog, reflection, hdr")
	envPath := flag.String("env", "", "Environment image for the reflection and hdr backgrounds")

	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	opts := game.Options{
		Seed:      rngSeed,
		Preset:    *preset,
		Logger:    logger,
		OutputDir: *outputDir,
		LogStats:  *logStats,
	}

	if *headless {
		if err := runHeadless(cfg, opts, *maxFrames, *background, *envPath); err != nil {
			logger.Error("headless run failed", "error", err)
			os.Exit(1)
		}
		return
	}
	if err := runWindow(cfg, opts, *maxFrames, *background, *envPath); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// runHeadless steps the simulation at a fixed frame delta without raylib.
func runHeadless(cfg *config.Config, opts game.Options, maxFrames int, background, env string) error {
	sim, err := game.New(cfg, opts)
	if err != nil {
		return err
	}
	defer sim.Close()

	if err := attachBackground(sim, background, env); err != nil {
		return err
	}

	opts.Logger.Info("starting headless simulation",
		"seed", opts.Seed,
		"max_frames", maxFrames,
		"performance", sim.Performance(),
	)

	for maxFrames <= 0 || int(sim.FrameCount()) < maxFrames {
		if err := sim.Frame(headlessFrameDelta, game.Pointer{}); err != nil {
			return err
		}
		sim.Render(nil)
	}
	opts.Logger.Info("max frames reached", "frame", sim.FrameCount(), "elapsed", sim.Elapsed())
	return sim.ExportMesh("final.obj")
}

// runWindow opens a window and runs the interactive loop.
func runWindow(cfg *config.Config, opts game.Options, maxFrames int, background, env string) error {
	rl.SetConfigFlags(rl.FlagMsaa4xHint | rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Metaball Water")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))
	// Escape deselects instead of closing the window
	rl.SetExitKey(0)

	opts.Loader = renderer.TextureLoader{}
	sim, err := game.New(cfg, opts)
	if err != nil {
		return err
	}
	defer sim.Close()

	if err := attachBackground(sim, background, env); err != nil {
		return err
	}

	width, height := int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
	bg := renderer.NewBackgroundRenderer(width, height)
	defer bg.Unload()
	water := renderer.NewWaterRenderer()

	overlays := ui.NewOverlayRegistry()
	hud := ui.NewHUD()
	controls := ui.NewControlsPanel(10, 60, 220)
	settingsPanel := ui.NewSettingsPanel(10, 60, 300, presetName(cfg, opts.Preset))
	fieldPanel := ui.NewFieldPanel(10, 60, 260)
	perfPanel := ui.NewPerfPanel(10, 60)
	ins := inspector.NewInspector(width, height)

	for !rl.WindowShouldClose() {
		if rl.IsWindowResized() {
			width, height = int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
			sim.Camera().SetAspect(float64(width) / float64(height))
			bg.Resize(width, height)
			ins.Resize(width, height)
		}

		for key := rl.GetKeyPressed(); key != 0; key = rl.GetKeyPressed() {
			overlays.HandleKeyPress(key)
		}

		mouse := rl.GetMousePosition()
		nx, ny := camera.ScreenToNDC(float64(mouse.X), float64(mouse.Y), float64(width), float64(height))
		overUI := overlays.IsEnabled(ui.OverlaySettings) && settingsPanel.Contains(mouse.X, mouse.Y)
		if ins.HandleInput(mouse.X, mouse.Y, nx, ny, sim) {
			overUI = true
		}

		if !overUI && rl.IsMouseButtonDown(rl.MouseButtonLeft) {
			d := rl.GetMouseDelta()
			sim.Orbit().Drag(float64(d.X), float64(d.Y), float64(height))
		}
		if wheel := rl.GetMouseWheelMove(); wheel != 0 {
			sim.Orbit().Zoom(float64(wheel))
		}

		pointer := game.Pointer{X: nx, Y: ny, Active: !overUI && rl.IsCursorOnScreen()}
		if err := sim.Frame(float64(rl.GetFrameTime()), pointer); err != nil {
			return err
		}

		var uiErr error
		sim.Render(func(v game.View) {
			rl.BeginDrawing()
			bg.Draw(v.Scene)

			rl.BeginMode3D(renderer.Camera3D(v))
			water.ShowBodies = overlays.IsEnabled(ui.OverlayBodies)
			water.ShowRepulsor = overlays.IsEnabled(ui.OverlayRepulsor)
			water.Draw(v)
			rl.EndMode3D()

			hud.Draw(ui.HUDData{
				Bodies:       len(v.Bodies),
				Resolution:   v.Resolution,
				Frame:        v.Frame,
				FPS:          rl.GetFPS(),
				Preset:       settingsPanel.Preset(),
				ScreenWidth:  width,
				ScreenHeight: height,
			})

			y := int32(60)
			if overlays.IsEnabled(ui.OverlaySettings) {
				settingsPanel.SetPosition(10, y)
				uiErr = settingsPanel.Draw(sim, v.Resolution)
				y += int32(settingsPanel.Height()) + 10
			}
			if overlays.IsEnabled(ui.OverlayFieldInfo) {
				fieldPanel.SetPosition(10, y)
				y = fieldPanel.Draw(ui.FieldInfo{
					Last:            sim.Metaballs().LastRebuild(),
					Rebuilds:        sim.Metaballs().Rebuilds(),
					Resolution:      v.Resolution,
					UpdateFrequency: v.Performance.UpdateFrequency,
					Transmission:    !v.Material.Legacy(),
					Scene:           background,
				}) + 10
			}
			if overlays.IsEnabled(ui.OverlayPerf) {
				perfPanel.SetPosition(10, y)
				perfPanel.Draw(sim.PerfStats(), sim.Registry())
			}
			if !overlays.IsEnabled(ui.OverlaySettings) {
				controls.SetPosition(10, height-180)
				controls.Draw(overlays)
			}

			info, ok := sim.Selected()
			ins.Draw(info, ok)
			hud.DrawControls(height, overlays)

			rl.EndDrawing()
		})
		if uiErr != nil {
			opts.Logger.Error("settings change failed", "error", uiErr)
		}

		if maxFrames > 0 && int(sim.FrameCount()) >= maxFrames {
			break
		}
	}
	return nil
}

// attachBackground binds the named background to the simulation scene.
func attachBackground(sim *game.Simulation, name, env string) error {
	var b scene.Binding
	switch name {
	case "", "none":
		return nil
	case "color":
		b = scene.StaticColor(isosurface.Hex(staticBackground))
	case "gradient":
		b = scene.Gradient(isosurface.Hex(gradientTop), isosurface.Hex(gradientBottom))
	case "fog":
		b = scene.WithFog(scene.DefaultFog())
	case "reflection", "hdr":
		if sim.Loads() == nil {
			slog.Warn("environment backgrounds need a window, skipping", "background", name)
			return nil
		}
		if env == "" {
			return fmt.Errorf("background %q needs -env", name)
		}
		if name == "hdr" {
			b = scene.HDREnvironment(sim.Loads(), env, scene.EnvironmentOptions{Visible: true})
		} else {
			b = scene.ReflectionSetup(sim.Loads(), env, nil, true)
		}
	default:
		return fmt.Errorf("unknown background %q", name)
	}
	if _, err := sim.Attach(b); err != nil {
		return fmt.Errorf("attaching %s background: %w", name, err)
	}
	return nil
}

// presetName returns the preset label shown in the settings panel.
func presetName(cfg *config.Config, flagPreset string) string {
	if flagPreset != "" {
		return flagPreset
	}
	return cfg.Performance.Preset
}
