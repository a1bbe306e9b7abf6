package patchbay

import (
	"errors"
	"testing"
)

// fakeRenderer records every call the reconciler makes so tests can assert
// on the applied GPU state without touching a real backend.
type fakeRenderer struct {
	surfaces map[string]fakeSurface
	stages   map[NodeID]fakeStage
	orders   map[string][]NodeID
	finals   map[string]NodeID
	bindings map[NodeID]map[HandleID]NodeID
	uniforms map[NodeID]map[HandleID]any

	addCalls    int
	removeCalls int
	brokenSrc   string // AddShaderStage rejects this source text
}

type fakeSurface struct {
	width, height int
	fps           float64
}

type fakeStage struct {
	surface string
	source  string
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		surfaces: make(map[string]fakeSurface),
		stages:   make(map[NodeID]fakeStage),
		orders:   make(map[string][]NodeID),
		finals:   make(map[string]NodeID),
		bindings: make(map[NodeID]map[HandleID]NodeID),
		uniforms: make(map[NodeID]map[HandleID]any),
	}
}

func (f *fakeRenderer) CreateSurface(id string, w, h int, fps float64) error {
	f.surfaces[id] = fakeSurface{width: w, height: h, fps: fps}
	return nil
}

func (f *fakeRenderer) RemoveSurface(id string) error {
	delete(f.surfaces, id)
	return nil
}

func (f *fakeRenderer) AddShaderStage(id NodeID, surface, source string) error {
	f.addCalls++
	if f.brokenSrc != "" && source == f.brokenSrc {
		return errors.New("compile failed")
	}
	f.stages[id] = fakeStage{surface: surface, source: source}
	return nil
}

func (f *fakeRenderer) RemoveShaderStage(id NodeID) error {
	f.removeCalls++
	delete(f.stages, id)
	delete(f.bindings, id)
	delete(f.uniforms, id)
	return nil
}

func (f *fakeRenderer) SetStageOrder(surface string, order []NodeID) error {
	f.orders[surface] = append([]NodeID(nil), order...)
	return nil
}

func (f *fakeRenderer) SetStageInputSource(target NodeID, input HandleID, source NodeID) error {
	if f.bindings[target] == nil {
		f.bindings[target] = make(map[HandleID]NodeID)
	}
	f.bindings[target][input] = source
	return nil
}

func (f *fakeRenderer) SetFinalStage(surface string, stage NodeID) error {
	f.finals[surface] = stage
	return nil
}

func (f *fakeRenderer) SetUniform(stage NodeID, name HandleID, value any) error {
	if f.uniforms[stage] == nil {
		f.uniforms[stage] = make(map[HandleID]any)
	}
	f.uniforms[stage][name] = value
	return nil
}

func (f *fakeRenderer) Stats() RenderStats { return RenderStats{FPS: 60} }

func syncAt(rec *Reconciler, at float64) {
	rec.Sync(FrameContext{Time: at, Delta: 1.0 / 60, Width: 1280, Height: 720})
}

func TestReconcilerFirstSyncBuildsRendererState(t *testing.T) {
	g := newTestGraph(t)
	noise := mustAddNode(t, g, "shaderNoise")
	wave := mustAddNode(t, g, "shaderWave")
	out := mustAddNode(t, g, "output")
	mustConnect(t, g, noise, "output", wave, "inputImage")
	mustConnect(t, g, wave, "output", out, "image")

	eng := NewEngine(g, nil)
	fr := newFakeRenderer()
	rec := NewReconciler(eng, fr, nil)
	defer rec.Close()

	tick(eng, 0, 1)
	syncAt(rec, 0)

	s, ok := fr.surfaces[DefaultSurface]
	if !ok {
		t.Fatal("default surface not created")
	}
	if s.width != 1280 || s.height != 720 || s.fps != 60 {
		t.Errorf("surface = %+v, want 1280x720@60", s)
	}
	if len(fr.stages) != 2 {
		t.Fatalf("stages = %d, want 2", len(fr.stages))
	}
	if fr.stages[wave.ID].source == "" {
		t.Error("wave stage has no shader source")
	}
	order := fr.orders[DefaultSurface]
	if len(order) != 2 || order[0] != noise.ID || order[1] != wave.ID {
		t.Errorf("order = %v, want [%s %s]", order, noise.ID, wave.ID)
	}
	if fr.finals[DefaultSurface] != wave.ID {
		t.Errorf("final = %s, want %s", fr.finals[DefaultSurface], wave.ID)
	}
	if fr.bindings[wave.ID]["inputImage"] != noise.ID {
		t.Errorf("wave inputImage bound to %s, want %s", fr.bindings[wave.ID]["inputImage"], noise.ID)
	}
	if got := fr.uniforms[wave.ID]["amount"]; got != 0.02 {
		t.Errorf("wave amount uniform = %v, want default 0.02", got)
	}
	if plan, ok := rec.Plan(DefaultSurface); !ok || plan.Final != wave.ID {
		t.Errorf("Plan(default) = %+v, %v", plan, ok)
	}
}

func TestReconcilerDebouncesStructuralEdits(t *testing.T) {
	g := newTestGraph(t)
	noise := mustAddNode(t, g, "shaderNoise")
	wave := mustAddNode(t, g, "shaderWave")
	mustConnect(t, g, noise, "output", wave, "inputImage")

	eng := NewEngine(g, nil)
	fr := newFakeRenderer()
	rec := NewReconciler(eng, fr, nil)
	defer rec.Close()
	syncAt(rec, 0)
	if len(fr.stages) != 2 {
		t.Fatalf("initial stages = %d, want 2", len(fr.stages))
	}

	blur := mustAddNode(t, g, "shaderBlur")
	mustConnect(t, g, wave, "output", blur, "inputImage")

	syncAt(rec, 0.05)
	if len(fr.stages) != 2 {
		t.Fatalf("stage applied inside debounce window, stages = %d", len(fr.stages))
	}
	syncAt(rec, 0.15)
	if len(fr.stages) != 3 {
		t.Fatalf("stage not applied after settle, stages = %d", len(fr.stages))
	}
	if fr.stages[blur.ID].surface != DefaultSurface {
		t.Errorf("blur stage surface = %q", fr.stages[blur.ID].surface)
	}
}

func TestReconcilerRemovesDeletedStage(t *testing.T) {
	g := newTestGraph(t)
	noise := mustAddNode(t, g, "shaderNoise")
	wave := mustAddNode(t, g, "shaderWave")
	mustConnect(t, g, noise, "output", wave, "inputImage")

	eng := NewEngine(g, nil)
	fr := newFakeRenderer()
	rec := NewReconciler(eng, fr, nil)
	defer rec.Close()
	syncAt(rec, 0)

	if err := g.RemoveNode(wave.ID); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	syncAt(rec, 0.2)

	if _, live := fr.stages[wave.ID]; live {
		t.Error("removed node still has a renderer stage")
	}
	if fr.removeCalls != 1 {
		t.Errorf("removeCalls = %d, want 1", fr.removeCalls)
	}
	order := fr.orders[DefaultSurface]
	if len(order) != 1 || order[0] != noise.ID {
		t.Errorf("order after removal = %v, want [%s]", order, noise.ID)
	}
}

func TestReconcilerMovesStageAcrossSurfaces(t *testing.T) {
	g := newTestGraph(t)
	wave := mustAddNode(t, g, "shaderWave")

	eng := NewEngine(g, nil)
	fr := newFakeRenderer()
	rec := NewReconciler(eng, fr, nil)
	defer rec.Close()
	syncAt(rec, 0)
	if fr.stages[wave.ID].surface != DefaultSurface {
		t.Fatalf("stage on %q, want default", fr.stages[wave.ID].surface)
	}

	if err := g.SetSurface(wave.ID, "aux"); err != nil {
		t.Fatalf("SetSurface: %v", err)
	}
	syncAt(rec, 0.2)

	if fr.stages[wave.ID].surface != "aux" {
		t.Errorf("stage surface = %q, want aux", fr.stages[wave.ID].surface)
	}
	if _, ok := fr.surfaces["aux"]; !ok {
		t.Error("aux surface never created")
	}
	if _, ok := fr.surfaces[DefaultSurface]; ok {
		t.Error("empty default surface not removed")
	}
}

func TestReconcilerSkipsFailedSourceUntilEdited(t *testing.T) {
	g := newTestGraph(t)
	stage := mustAddNode(t, g, "shader")
	if err := g.SetConfig(stage.ID, "source", "broken"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	eng := NewEngine(g, nil)
	fr := newFakeRenderer()
	fr.brokenSrc = "broken"
	rec := NewReconciler(eng, fr, nil)
	defer rec.Close()

	syncAt(rec, 0)
	if fr.addCalls != 1 {
		t.Fatalf("addCalls = %d, want 1", fr.addCalls)
	}
	if _, live := fr.stages[stage.ID]; live {
		t.Fatal("broken stage reported live")
	}

	// Re-writing the same broken source schedules a reconcile but must not
	// hammer the compiler with a known-bad program.
	if err := g.SetConfig(stage.ID, "source", "broken"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	syncAt(rec, 0.2)
	if fr.addCalls != 1 {
		t.Errorf("addCalls = %d after unchanged source, want 1", fr.addCalls)
	}

	if err := g.SetConfig(stage.ID, "source", "fixed"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	syncAt(rec, 0.4)
	if fr.addCalls != 2 {
		t.Errorf("addCalls = %d after edit, want 2", fr.addCalls)
	}
	if fr.stages[stage.ID].source != "fixed" {
		t.Errorf("stage source = %q, want fixed", fr.stages[stage.ID].source)
	}
	if len(rec.failed) != 0 {
		t.Errorf("failed set = %v, want empty", rec.failed)
	}
}

func TestReconcilerAppliesResizedOutput(t *testing.T) {
	g := newTestGraph(t)
	wave := mustAddNode(t, g, "shaderWave")
	out := mustAddNode(t, g, "output")
	mustConnect(t, g, wave, "output", out, "image")

	eng := NewEngine(g, nil)
	fr := newFakeRenderer()
	rec := NewReconciler(eng, fr, nil)
	defer rec.Close()
	syncAt(rec, 0)

	if err := g.SetConfig(out.ID, "width", 1920.0); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	syncAt(rec, 0.05)
	if fr.surfaces[DefaultSurface].width != 1280 {
		t.Fatal("resize applied inside debounce window")
	}
	syncAt(rec, 0.2)
	if fr.surfaces[DefaultSurface].width != 1920 {
		t.Errorf("surface width = %d, want 1920", fr.surfaces[DefaultSurface].width)
	}
}

func TestReconcilerPushesUniformsEveryTick(t *testing.T) {
	g := newTestGraph(t)
	wave := mustAddNode(t, g, "shaderWave")

	eng := NewEngine(g, nil)
	fr := newFakeRenderer()
	rec := NewReconciler(eng, fr, nil)
	defer rec.Close()

	tick(eng, 0, 1)
	syncAt(rec, 0)
	adds := fr.addCalls

	if err := g.SetInputValue(wave.ID, "amount", 0.5); err != nil {
		t.Fatalf("SetInputValue: %v", err)
	}
	tick(eng, 1.0/60, 2)
	syncAt(rec, 1.0/60)

	if got := fr.uniforms[wave.ID]["amount"]; got != 0.5 {
		t.Errorf("amount uniform = %v, want 0.5", got)
	}
	if fr.addCalls != adds {
		t.Errorf("value edit caused %d stage rebuilds", fr.addCalls-adds)
	}
}

func TestReconcilerCloseDetaches(t *testing.T) {
	g := newTestGraph(t)
	mustAddNode(t, g, "shaderNoise")

	eng := NewEngine(g, nil)
	fr := newFakeRenderer()
	rec := NewReconciler(eng, fr, nil)
	syncAt(rec, 0)
	rec.Close()

	mustAddNode(t, g, "shaderWave")
	syncAt(rec, 1)
	if len(fr.stages) != 1 {
		t.Errorf("stages = %d after Close, want untouched 1", len(fr.stages))
	}
}
