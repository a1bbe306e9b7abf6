package patchbay

import "log/slog"

// Colors for the dependency walk.
const (
	colorWhite uint8 = iota // not visited
	colorGray               // on the walk stack
	colorBlack              // finished
)

// topoOrder computes a dependency-first ordering of the graph: every node
// appears after the sources feeding its inputs, except across cycle back
// edges. Back edges are returned rather than fatal; consumers on a cycle
// read whatever their source produced on an earlier frame, which keeps
// feedback patches running instead of rejecting them.
//
// The walk is an explicit-stack depth-first search, so pathological chains
// cannot overflow the goroutine stack. Determinism comes from visiting
// nodes in insertion order and dependencies in declared input order.
func topoOrder(g *Graph) (order []NodeID, back []*Edge) {
	color := make(map[NodeID]uint8, g.Len())
	order = make([]NodeID, 0, g.Len())

	type frame struct {
		id   NodeID
		deps []*Edge
		next int
	}
	var stack []frame

	push := func(id NodeID) {
		color[id] = colorGray
		stack = append(stack, frame{id: id, deps: g.EdgesTargeting(id)})
	}

	for _, root := range g.Nodes() {
		if color[root.ID] != colorWhite {
			continue
		}
		push(root.ID)
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			advanced := false
			for f.next < len(f.deps) {
				e := f.deps[f.next]
				f.next++
				switch color[e.Source] {
				case colorWhite:
					push(e.Source)
					advanced = true
				case colorGray:
					back = append(back, e)
				}
				if advanced {
					break
				}
			}
			if advanced {
				continue
			}
			color[f.id] = colorBlack
			order = append(order, f.id)
			stack = stack[:len(stack)-1]
		}
	}
	return order, back
}

// schedule caches a topological order keyed on the graph's structural
// revision, so value edits and bypass toggles never trigger a re-walk.
type schedule struct {
	rev    uint64
	fresh  bool
	order  []NodeID
	cyclic bool
}

// update recomputes the order if the graph changed shape since last time.
// Cycles are logged once per recompute, not once per frame.
func (s *schedule) update(g *Graph, log *slog.Logger) {
	if s.fresh && s.rev == g.Revision() {
		return
	}
	order, back := topoOrder(g)
	s.order = order
	s.cyclic = len(back) > 0
	s.rev = g.Revision()
	s.fresh = true
	for _, e := range back {
		log.Warn("patchbay: cycle in graph, evaluating with stale values across back edge",
			"source", e.Source, "target", e.Target, "input", e.TargetHandle)
	}
}
