package view

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/farbridge/patchbay"
)

// RecordConfig controls an offline render session.
type RecordConfig struct {
	// Surface is the render surface to capture. Empty uses
	// patchbay.DefaultSurface.
	Surface string

	// Frames is how many frames to produce. Must be positive.
	Frames int

	// FPS is the fixed step rate driving patch time. Zero reads the
	// surface's output node.
	FPS float64

	// Audio feeds the patch's audio nodes. Nil uses patchbay.SilentSource.
	Audio patchbay.AudioSource

	// Seed initializes the random node source so renders are repeatable.
	// Zero seeds from the clock.
	Seed int64

	// Log receives engine and reconciler diagnostics. Nil discards.
	Log *slog.Logger

	// OnFrame, if set, is called after each frame reaches the sink.
	OnFrame func(frame int)
}

// Record plays a patch for a fixed number of frames and presents each
// composited frame to the sink. Patch time advances by exactly 1/FPS per
// frame regardless of wall clock, so renders are deterministic given the
// same seed and audio source.
//
// A window still opens while recording; Ebitengine owns the GPU context
// through its game loop, so the recorder runs as a game that terminates
// itself once the frame count is reached.
func Record(eng *patchbay.Engine, sink patchbay.OutputSink, cfg RecordConfig) error {
	if cfg.Frames <= 0 {
		return fmt.Errorf("view: frame count %d must be positive", cfg.Frames)
	}
	if cfg.Surface == "" {
		cfg.Surface = patchbay.DefaultSurface
	}
	if cfg.Audio == nil {
		cfg.Audio = patchbay.SilentSource{}
	}
	w, h, fps := surfaceSettings(eng.Graph(), cfg.Surface)
	if cfg.FPS > 0 {
		fps = cfg.FPS
	}
	comp := NewCompositor(cfg.Log)
	rec := &recorder{
		engine:  eng,
		rec:     patchbay.NewReconciler(eng, comp, cfg.Log),
		comp:    comp,
		sink:    sink,
		audio:   cfg.Audio,
		surface: cfg.Surface,
		width:   w,
		height:  h,
		dt:      1.0 / fps,
		frames:  cfg.Frames,
		onFrame: cfg.OnFrame,
		rng:     newRand(cfg.Seed),
	}
	defer rec.rec.Close()

	ebiten.SetWindowTitle("patchbay: rendering " + cfg.Surface)
	ebiten.SetWindowSize(w, h)
	// Run as fast as the GPU allows; patch time is fixed-step either way.
	ebiten.SetVsyncEnabled(false)
	ebiten.SetTPS(ebiten.SyncWithFPS)
	return ebiten.RunGame(rec)
}

// recorder is the ebiten.Game that drives an offline render. Each Update
// is one output frame: tick, sync, composite, read back, present.
type recorder struct {
	engine  *patchbay.Engine
	rec     *patchbay.Reconciler
	comp    *Compositor
	sink    patchbay.OutputSink
	audio   patchbay.AudioSource
	surface string

	width, height int
	dt            float64
	frames        int
	onFrame       func(int)

	time  float64
	frame uint64
	rng   *rand.Rand
}

func (r *recorder) Update() error {
	if int(r.frame) >= r.frames || !r.sink.IsOpen() {
		return ebiten.Termination
	}
	r.time += r.dt
	width, height := r.width, r.height
	if sw, sh, ok := r.comp.SurfaceSize(r.surface); ok {
		width, height = sw, sh
	}
	fc := patchbay.FrameContext{
		Time:   r.time,
		Delta:  r.dt,
		Frame:  r.frame,
		Width:  width,
		Height: height,
		Audio:  r.audio.Sample(r.time),
		Rand:   r.rng,
	}
	r.engine.Tick(fc)
	r.rec.Sync(fc)

	r.comp.Render(r.surface, r.time)
	img, err := r.comp.ReadFrame(r.surface)
	if err != nil {
		return fmt.Errorf("view: frame %d: %w", r.frame, err)
	}
	if err := r.sink.Present(img); err != nil {
		return fmt.Errorf("view: frame %d: %w", r.frame, err)
	}
	r.frame++
	if r.onFrame != nil {
		r.onFrame(int(r.frame))
	}
	return nil
}

func (r *recorder) Draw(screen *ebiten.Image) {
	if frame := r.comp.Frame(r.surface); frame != nil {
		screen.DrawImage(frame, nil)
	}
}

func (r *recorder) Layout(outsideWidth, outsideHeight int) (int, int) {
	return r.width, r.height
}
