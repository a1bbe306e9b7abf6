package view

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/farbridge/patchbay"
)

// overlayRefresh is how often the debug overlay text is rebuilt.
const overlayRefresh = 0.5

// Config controls a live window session.
type Config struct {
	// Title is the window title. Empty uses the surface name.
	Title string

	// Surface is the render surface to present. Empty uses
	// patchbay.DefaultSurface.
	Surface string

	// Audio feeds the patch's audio nodes. Nil uses patchbay.SilentSource.
	Audio patchbay.AudioSource

	// Overlay draws FPS and tick stats in the corner.
	Overlay bool

	// Seed initializes the random node source. Zero seeds from entropy.
	Seed int64

	// Log receives engine and reconciler diagnostics. Nil discards.
	Log *slog.Logger
}

// Window drives a patch on screen. It owns the frame clock: each Update
// advances patch time by one fixed step, ticks the engine, syncs the
// reconciler, and each Draw composites the target surface.
type Window struct {
	engine *patchbay.Engine
	rec    *patchbay.Reconciler
	comp   *Compositor
	audio  patchbay.AudioSource

	surface       string
	width, height int
	overlay       bool

	time  float64
	frame uint64
	rng   *rand.Rand

	lastStats  patchbay.TickStats
	overlayMsg string
	overlayAt  float64
}

// NewWindow builds the window, compositor, and reconciler around an
// engine. Call Close when done to detach the reconciler.
func NewWindow(eng *patchbay.Engine, cfg Config) *Window {
	if cfg.Surface == "" {
		cfg.Surface = patchbay.DefaultSurface
	}
	if cfg.Audio == nil {
		cfg.Audio = patchbay.SilentSource{}
	}
	comp := NewCompositor(cfg.Log)
	w, h, _ := surfaceSettings(eng.Graph(), cfg.Surface)
	return &Window{
		engine:  eng,
		rec:     patchbay.NewReconciler(eng, comp, cfg.Log),
		comp:    comp,
		audio:   cfg.Audio,
		surface: cfg.Surface,
		width:   w,
		height:  h,
		overlay: cfg.Overlay,
		rng:     newRand(cfg.Seed),
	}
}

// Close detaches the reconciler from the graph.
func (w *Window) Close() {
	w.rec.Close()
}

// Update advances the patch by one fixed step. Implements ebiten.Game.
func (w *Window) Update() error {
	dt := 1.0 / float64(ebiten.TPS())
	w.time += dt
	fc := w.frameContext(dt)
	w.lastStats = w.engine.Tick(fc)
	w.rec.Sync(fc)
	w.frame++
	return nil
}

// Draw composites the target surface onto the screen. Implements
// ebiten.Game.
func (w *Window) Draw(screen *ebiten.Image) {
	if frame := w.comp.Render(w.surface, w.time); frame != nil {
		screen.DrawImage(frame, nil)
	}
	if w.overlay {
		w.drawOverlay(screen)
	}
}

// Layout reports the surface's pixel size. Implements ebiten.Game.
func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	if sw, sh, ok := w.comp.SurfaceSize(w.surface); ok {
		return sw, sh
	}
	return w.width, w.height
}

func (w *Window) frameContext(dt float64) patchbay.FrameContext {
	width, height := w.width, w.height
	if sw, sh, ok := w.comp.SurfaceSize(w.surface); ok {
		width, height = sw, sh
	}
	return patchbay.FrameContext{
		Time:   w.time,
		Delta:  dt,
		Frame:  w.frame,
		Width:  width,
		Height: height,
		Audio:  w.audio.Sample(w.time),
		Rand:   w.rng,
	}
}

func (w *Window) drawOverlay(screen *ebiten.Image) {
	// Rebuilding the string every frame is wasteful and unreadable while
	// the numbers churn, so refresh on a timer.
	if w.overlayMsg == "" || w.time-w.overlayAt >= overlayRefresh {
		w.overlayAt = w.time
		w.overlayMsg = fmt.Sprintf(
			"FPS: %0.f\nTPS: %0.f\neval: %d  bypass: %d  fail: %d\ntick: %s",
			ebiten.ActualFPS(), ebiten.ActualTPS(),
			w.lastStats.Evaluated, w.lastStats.Bypassed, w.lastStats.Failed,
			w.lastStats.Elapsed,
		)
	}
	ebitenutil.DebugPrint(screen, w.overlayMsg)
}

// Run opens a window for the engine's patch and blocks until it closes.
// Window size, title, and tick rate come from the surface's output node.
func Run(eng *patchbay.Engine, cfg Config) error {
	if cfg.Surface == "" {
		cfg.Surface = patchbay.DefaultSurface
	}
	w, h, fps := surfaceSettings(eng.Graph(), cfg.Surface)
	title := cfg.Title
	if title == "" {
		title = "patchbay: " + cfg.Surface
	}
	win := NewWindow(eng, cfg)
	defer win.Close()

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if fps > 0 {
		ebiten.SetTPS(int(fps))
	}
	return ebiten.RunGame(win)
}

// surfaceSettings reads a surface's dimensions and tick rate from its
// output node, falling back to the stock 720p defaults.
func surfaceSettings(g *patchbay.Graph, surfaceID string) (w, h int, fps float64) {
	w, h, fps = 1280, 720, 60
	for _, n := range g.Nodes() {
		if n.Category != patchbay.CategoryOutput {
			continue
		}
		s := n.Surface
		if s == "" {
			s = patchbay.DefaultSurface
		}
		if s != surfaceID {
			continue
		}
		w = int(n.ConfigNumber("width", float64(w)))
		h = int(n.ConfigNumber("height", float64(h)))
		fps = n.ConfigNumber("fps", fps)
		return w, h, fps
	}
	return w, h, fps
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
