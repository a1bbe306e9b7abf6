package patchbay

import (
	"log/slog"
	"time"
)

// slowTickWarn is the wall-clock budget for one evaluation walk before the
// engine logs it. Nothing is aborted; a stalling node is an observability
// problem, not a scheduling one.
const slowTickWarn = 50 * time.Millisecond

// TickStats summarizes one evaluation walk.
type TickStats struct {
	Frame     uint64
	Evaluated int
	Bypassed  int
	Failed    int
	Cyclic    bool
	Elapsed   time.Duration
}

// Engine walks a graph once per tick in dependency order, feeding each
// node its resolved inputs and collecting its outputs. The engine never
// mutates graph structure; it only touches node evaluation state. One Tick
// must finish before the next begins, which the single-threaded hosting
// loop guarantees.
type Engine struct {
	graph *Graph
	log   *slog.Logger
	sched schedule

	// cache holds this frame's outputs. A node absent from the cache
	// (bypassed, failed, or on a cycle back edge) is read from its
	// persistent OutputValues instead.
	cache map[NodeID]Outputs
}

// NewEngine creates an engine over the given graph. A nil logger silences it.
func NewEngine(g *Graph, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		graph: g,
		log:   log,
		cache: make(map[NodeID]Outputs),
	}
}

// Graph returns the graph this engine evaluates.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Order returns the current evaluation order, recomputing it if the graph
// changed shape. The returned slice MUST NOT be mutated.
func (e *Engine) Order() []NodeID {
	e.sched.update(e.graph, e.log)
	return e.sched.order
}

// FrameOutput returns a node's outputs from the current frame's cache.
// False means the node produced nothing this frame.
func (e *Engine) FrameOutput(id NodeID) (Outputs, bool) {
	out, ok := e.cache[id]
	return out, ok
}

// Tick evaluates every node once, in dependency order.
//
// Bypassed nodes are skipped whole: they compute nothing, and consumers
// fall through to the outputs they stored on earlier frames. A node whose
// evaluator errors or panics is marked errored and likewise keeps its prior
// outputs; the walk always continues to the end.
func (e *Engine) Tick(fc FrameContext) TickStats {
	start := time.Now()
	e.sched.update(e.graph, e.log)
	clear(e.cache)

	stats := TickStats{Frame: fc.Frame, Cyclic: e.sched.cyclic}
	for _, id := range e.sched.order {
		n, ok := e.graph.Node(id)
		if !ok {
			continue
		}
		if n.Bypassed {
			stats.Bypassed++
			continue
		}
		in := e.resolveInputs(n)
		out, err := evalNode(n, in, fc)
		if err != nil {
			n.setError(err.Error())
			stats.Failed++
			e.log.Debug("patchbay: node failed", "node", n.ID, "type", n.TypeKey, "err", err)
			continue
		}
		n.clearError()
		if out == nil {
			out = Outputs{}
		}
		e.cache[id] = out
		if n.OutputValues == nil {
			n.OutputValues = make(map[HandleID]any, len(out))
		}
		for h, v := range out {
			n.OutputValues[h] = v
		}
		stats.Evaluated++
	}

	stats.Elapsed = time.Since(start)
	if stats.Elapsed > slowTickWarn {
		e.log.Warn("patchbay: slow tick", "frame", fc.Frame, "elapsed", stats.Elapsed,
			"evaluated", stats.Evaluated)
	}
	return stats
}

// resolveInputs gathers one value per input handle. Connected inputs
// prefer the source's current-frame output, then its stored outputs from
// an earlier frame, then the input's declared default. Unconnected inputs
// read the user-edited value, then the default. Inputs that resolve
// nowhere stay absent so evaluators can apply their own fallbacks.
func (e *Engine) resolveInputs(n *Node) Inputs {
	if len(n.Inputs) == 0 {
		return nil
	}
	in := make(Inputs, len(n.Inputs))
	for _, h := range n.Inputs {
		if edge, ok := e.graph.EdgeTargeting(n.ID, h.ID); ok {
			if out, ok := e.cache[edge.Source]; ok {
				if v, ok := out[edge.SourceHandle]; ok {
					in[h.ID] = v
					continue
				}
			}
			if src, ok := e.graph.Node(edge.Source); ok {
				if v, ok := src.OutputValues[edge.SourceHandle]; ok {
					in[h.ID] = v
					continue
				}
			}
			if h.Default != nil {
				in[h.ID] = h.Default
			}
			continue
		}
		if v, ok := n.InputValues[h.ID]; ok {
			in[h.ID] = v
			continue
		}
		if h.Default != nil {
			in[h.ID] = h.Default
		}
	}
	return in
}
