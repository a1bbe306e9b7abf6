// Package patchbay is a real-time dataflow engine for audio-reactive
// visuals, built for [Ebitengine].
//
// A patch is a graph of typed nodes: oscillators, math, logic, audio
// analysis taps, and GPU shader stages, wired together by edges between
// typed handles. The engine evaluates the whole graph once per display
// tick in dependency order and hands the shader side of the patch to a
// render collaborator as an ordered compositing plan.
//
// # Quick start
//
// Build a graph against the built-in node catalog and tick it yourself:
//
//	reg := patchbay.Builtins()
//	graph := patchbay.NewGraph(reg, logger)
//	eng := patchbay.NewEngine(graph, logger)
//
//	osc, _ := graph.AddNode("oscillator")
//	level, _ := graph.AddNode("audioLevel")
//	mul, _ := graph.AddNode("multiply")
//	graph.Connect(patchbay.Connection{
//		Source: osc.ID, SourceHandle: "output",
//		Target: mul.ID, TargetHandle: "a",
//	})
//	graph.Connect(patchbay.Connection{
//		Source: level.ID, SourceHandle: "output",
//		Target: mul.ID, TargetHandle: "b",
//	})
//
//	eng.Tick(patchbay.FrameContext{Time: 0.016, Delta: 0.016, Frame: 1})
//
// The view subpackage supplies the Ebitengine-backed [Renderer] and a
// window loop; the patchbay command runs saved patches windowed or
// renders them headless to PNG sequences.
//
// # Evaluation model
//
// Everything is single-threaded and cooperative: one [Engine.Tick] per
// display refresh, never overlapping. Mutations through [Graph] only mark
// cached orderings dirty; recomputation happens lazily at the next tick.
// Cycles degrade instead of failing: the order is best-effort and
// consumers across a back edge read their source's previous-frame value.
//
// A node that returns an error or panics is marked errored, keeps its
// last good outputs, and the rest of the frame proceeds. Bypassed nodes
// are skipped whole while downstream consumers keep reading their stored
// outputs.
//
// # Shader plans
//
// Shader nodes belong to named render surfaces. [ResolveShaderPlan]
// restricts itself to one surface's stages, orders them with Kahn's
// algorithm over image-input edges, and reports the texture bindings
// between stages. [Reconciler] applies plans to a [Renderer] after a
// short debounce, so bursts of edits cost one GPU rebuild, and pushes
// uniform values every tick.
//
// [Ebitengine]: https://ebitengine.org
package patchbay
