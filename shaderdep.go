package patchbay

import "log/slog"

// ShaderBinding wires one stage's texture output into another stage's
// image input: Target samples Source's intermediate surface under the
// named input.
type ShaderBinding struct {
	Target NodeID
	Input  HandleID
	Source NodeID
}

// ShaderPlan is the render recipe for one surface: the stage order the
// compositor must follow and the texture wiring between stages. Fan-out is
// expressed by several bindings naming the same source.
type ShaderPlan struct {
	Surface  string
	Order    []NodeID
	Bindings []ShaderBinding

	// Final is the stage feeding the surface's output node, zero when the
	// patch has no complete chain yet.
	Final NodeID

	Cyclic bool
}

// ResolveShaderPlan derives the plan for one surface from the graph. Only
// edges from a shader node's canonical "output" handle into another shader
// node's image-typed input count as stage dependencies; everything else is
// ordinary value flow and stays out of the plan.
//
// Ordering runs Kahn's algorithm over those dependencies. A cycle cannot
// be ordered, so the nodes still caught in one are appended in insertion
// order and the plan is marked cyclic; rendering proceeds with whatever
// the stale intermediate textures hold.
func ResolveShaderPlan(g *Graph, surface string, log *slog.Logger) ShaderPlan {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	plan := ShaderPlan{Surface: surface}

	var stages []NodeID
	inSet := make(map[NodeID]bool)
	for _, n := range g.Nodes() {
		if n.Category == CategoryShader && surfaceOf(n) == surface {
			stages = append(stages, n.ID)
			inSet[n.ID] = true
		}
	}
	if len(stages) == 0 {
		plan.Final = finalStage(g, surface, inSet)
		return plan
	}

	indeg := make(map[NodeID]int, len(stages))
	dependents := make(map[NodeID][]NodeID, len(stages))
	for _, id := range stages {
		for _, e := range g.EdgesTargeting(id) {
			if e.SourceHandle != "output" || !inSet[e.Source] {
				continue
			}
			n, _ := g.Node(id)
			h, ok := n.InputHandle(e.TargetHandle)
			if !ok || h.Type != TypeImage {
				continue
			}
			plan.Bindings = append(plan.Bindings, ShaderBinding{
				Target: id,
				Input:  e.TargetHandle,
				Source: e.Source,
			})
			indeg[id]++
			dependents[e.Source] = append(dependents[e.Source], id)
		}
	}

	queue := make([]NodeID, 0, len(stages))
	for _, id := range stages {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}
	plan.Order = make([]NodeID, 0, len(stages))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		plan.Order = append(plan.Order, id)
		for _, dep := range dependents[id] {
			indeg[dep]--
			if indeg[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(plan.Order) < len(stages) {
		plan.Cyclic = true
		placed := make(map[NodeID]bool, len(plan.Order))
		for _, id := range plan.Order {
			placed[id] = true
		}
		for _, id := range stages {
			if !placed[id] {
				plan.Order = append(plan.Order, id)
			}
		}
		log.Warn("patchbay: shader cycle on surface, compositing in insertion order",
			"surface", surface, "stages", len(stages)-len(placed))
	}

	plan.Final = finalStage(g, surface, inSet)
	return plan
}

// finalStage finds the shader stage wired into the surface's output node.
func finalStage(g *Graph, surface string, inSet map[NodeID]bool) NodeID {
	for _, n := range g.Nodes() {
		if n.Category != CategoryOutput || surfaceOf(n) != surface {
			continue
		}
		if e, ok := g.EdgeTargeting(n.ID, "image"); ok && inSet[e.Source] {
			return e.Source
		}
	}
	return ""
}

// surfaceOf returns the node's surface assignment with the default applied.
func surfaceOf(n *Node) string {
	if n.Surface == "" {
		return DefaultSurface
	}
	return n.Surface
}

// Surfaces lists every surface named by shader and output nodes, in first
// appearance order.
func Surfaces(g *Graph) []string {
	var names []string
	seen := make(map[string]bool)
	for _, n := range g.Nodes() {
		if n.Category != CategoryShader && n.Category != CategoryOutput {
			continue
		}
		s := surfaceOf(n)
		if !seen[s] {
			seen[s] = true
			names = append(names, s)
		}
	}
	return names
}
