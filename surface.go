package patchbay

import (
	"image"
	"log/slog"
)

// RenderStats reports the render collaborator's health.
type RenderStats struct {
	FPS float64
}

// Renderer is everything the core asks of the GPU subsystem. The core
// drives it from reconciliation passes and never touches surface or
// texture internals; the other side is free to be Ebitengine, a fake for
// tests, or nothing at all.
//
// Stage ids are node ids: one shader node is one stage. Uniform names
// arrive as handle ids; the implementation maps them onto its shading
// language's conventions.
type Renderer interface {
	CreateSurface(id string, width, height int, fpsLimit float64) error
	RemoveSurface(id string) error

	AddShaderStage(id NodeID, surface string, source string) error
	RemoveShaderStage(id NodeID) error
	SetStageOrder(surface string, order []NodeID) error
	SetStageInputSource(target NodeID, input HandleID, source NodeID) error
	SetFinalStage(surface string, stage NodeID) error
	SetUniform(stage NodeID, name HandleID, value any) error

	Stats() RenderStats
}

// OutputSink receives finished frames. Implementations wrap a window, a
// file sequence, a network stream; the core never references windowing
// primitives directly.
type OutputSink interface {
	Present(frame image.Image) error
	Close() error
	IsOpen() bool
}

// DefaultDebounce is how long edits must settle before the reconciler
// rebuilds GPU state. Stage add/remove is expensive and edits arrive in
// bursts; value tweaks never wait on it.
const DefaultDebounce = 0.1

// Reconciler keeps the renderer's stage set matching the graph. Structural
// edits only mark it dirty; the actual GPU mutations happen in Sync after
// the debounce window passes, batched into one diff. Uniform pushes are
// cheap and happen every Sync regardless.
type Reconciler struct {
	// Debounce is the settle window in seconds. Adjust before the first
	// Sync.
	Debounce float64

	engine   *Engine
	graph    *Graph
	renderer Renderer
	log      *slog.Logger

	sub     Subscription
	pending debouncer
	forced  bool
	lastNow float64

	surfaces map[string]surfaceState
	stages   map[NodeID]stageState
	failed   map[NodeID]string // stage id -> source text that failed to compile
	plans    map[string]ShaderPlan
}

type surfaceState struct {
	width, height int
	fps           float64
}

type stageState struct {
	surface string
	source  string
}

// NewReconciler wires a reconciler between an engine's graph and a
// renderer. It subscribes to graph changes immediately; call Close to
// detach.
func NewReconciler(eng *Engine, r Renderer, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	rec := &Reconciler{
		Debounce: DefaultDebounce,
		engine:   eng,
		graph:    eng.Graph(),
		renderer: r,
		log:      log,
		forced:   true,
		surfaces: make(map[string]surfaceState),
		stages:   make(map[NodeID]stageState),
		failed:   make(map[NodeID]string),
		plans:    make(map[string]ShaderPlan),
	}
	// Config edits count too: shader source and surface dimensions live in
	// node config, and both must reach the renderer.
	rec.sub = rec.graph.Notify.Subscribe(func(ev Event) {
		if ev.Kind.Structural() || ev.Kind == EventConfigChanged {
			rec.pending.window = rec.Debounce
			rec.pending.Trigger(rec.lastNow)
		}
	})
	return rec
}

// Close detaches the reconciler from graph notifications.
func (r *Reconciler) Close() {
	r.sub.Remove()
}

// Plan returns the last resolved plan for a surface.
func (r *Reconciler) Plan(surface string) (ShaderPlan, bool) {
	p, ok := r.plans[surface]
	return p, ok
}

// Sync runs once per tick, after evaluation. Stage and surface diffs only
// run when a settled structural change demands them; uniforms flow every
// tick from the nodes' freshly computed outputs.
func (r *Reconciler) Sync(fc FrameContext) {
	r.lastNow = fc.Time
	if r.forced || r.pending.Settled(fc.Time) {
		r.forced = false
		r.reconcile()
	}
	r.pushUniforms()
}

// reconcile diffs desired GPU state against what was previously applied:
// surfaces first, then stages, then order, bindings, and final-stage
// selection per surface. Renderer errors are logged and skipped; a broken
// stage must not wedge the rest of the patch.
func (r *Reconciler) reconcile() {
	desiredSurfaces := make(map[string]surfaceState)
	for _, name := range Surfaces(r.graph) {
		desiredSurfaces[name] = r.surfaceConfig(name)
	}

	for name := range r.surfaces {
		if _, keep := desiredSurfaces[name]; !keep {
			if err := r.renderer.RemoveSurface(name); err != nil {
				r.log.Warn("patchbay: remove surface failed", "surface", name, "err", err)
			}
			delete(r.surfaces, name)
			delete(r.plans, name)
		}
	}
	for name, want := range desiredSurfaces {
		if have, ok := r.surfaces[name]; ok && have == want {
			continue
		}
		if err := r.renderer.CreateSurface(name, want.width, want.height, want.fps); err != nil {
			r.log.Warn("patchbay: create surface failed", "surface", name, "err", err)
			continue
		}
		r.surfaces[name] = want
	}

	desiredStages := make(map[NodeID]stageState)
	for name := range desiredSurfaces {
		plan := ResolveShaderPlan(r.graph, name, r.log)
		r.plans[name] = plan
		for _, id := range plan.Order {
			n, ok := r.graph.Node(id)
			if !ok {
				continue
			}
			desiredStages[id] = stageState{surface: name, source: n.ConfigString("source", "")}
		}
	}

	for id, have := range r.stages {
		want, keep := desiredStages[id]
		if keep && want == have {
			continue
		}
		if err := r.renderer.RemoveShaderStage(id); err != nil {
			r.log.Warn("patchbay: remove stage failed", "stage", id, "err", err)
		}
		delete(r.stages, id)
	}
	for id, want := range desiredStages {
		if _, ok := r.stages[id]; ok {
			continue
		}
		if r.failed[id] == want.source {
			continue // same broken source; wait for an edit
		}
		if err := r.renderer.AddShaderStage(id, want.surface, want.source); err != nil {
			r.log.Warn("patchbay: stage rejected", "stage", id, "err", err)
			r.failed[id] = want.source
			continue
		}
		delete(r.failed, id)
		r.stages[id] = want
	}

	for name := range desiredSurfaces {
		plan := r.plans[name]
		order := make([]NodeID, 0, len(plan.Order))
		for _, id := range plan.Order {
			if _, live := r.stages[id]; live {
				order = append(order, id)
			}
		}
		if err := r.renderer.SetStageOrder(name, order); err != nil {
			r.log.Warn("patchbay: set stage order failed", "surface", name, "err", err)
		}
		for _, b := range plan.Bindings {
			_, haveTarget := r.stages[b.Target]
			_, haveSource := r.stages[b.Source]
			if !haveTarget || !haveSource {
				continue
			}
			if err := r.renderer.SetStageInputSource(b.Target, b.Input, b.Source); err != nil {
				r.log.Warn("patchbay: bind stage input failed", "target", b.Target, "input", b.Input, "err", err)
			}
		}
		if plan.Final != "" {
			if err := r.renderer.SetFinalStage(name, plan.Final); err != nil {
				r.log.Warn("patchbay: set final stage failed", "surface", name, "err", err)
			}
		}
	}
}

// surfaceConfig reads a surface's dimensions from its output node, falling
// back to a default when the patch has no output node for it yet.
func (r *Reconciler) surfaceConfig(name string) surfaceState {
	for _, n := range r.graph.Nodes() {
		if n.Category == CategoryOutput && surfaceOf(n) == name {
			return surfaceState{
				width:  int(n.ConfigNumber("width", 1280)),
				height: int(n.ConfigNumber("height", 720)),
				fps:    n.ConfigNumber("fps", 60),
			}
		}
	}
	return surfaceState{width: 1280, height: 720, fps: 60}
}

// pushUniforms forwards every live stage's non-image inputs to the
// renderer. Values come from the stage node's current outputs, where the
// shader evaluator mirrored them this frame; a bypassed or failed stage
// keeps pushing its last good values.
func (r *Reconciler) pushUniforms() {
	for id := range r.stages {
		n, ok := r.graph.Node(id)
		if !ok {
			continue
		}
		values, fresh := r.engine.FrameOutput(id)
		if !fresh {
			values = n.OutputValues
		}
		for _, h := range n.Inputs {
			if h.Type == TypeImage {
				continue
			}
			v, ok := values[h.ID]
			if !ok {
				continue
			}
			if err := r.renderer.SetUniform(id, h.ID, v); err != nil {
				r.log.Warn("patchbay: set uniform failed", "stage", id, "uniform", h.ID, "err", err)
			}
		}
	}
}
