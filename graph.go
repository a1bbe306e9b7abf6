package patchbay

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Rejection errors returned by graph mutations. Callers match these with
// errors.Is; the wrapped message carries the offending ids.
var (
	ErrUnknownType   = errors.New("patchbay: unknown node type")
	ErrUnknownNode   = errors.New("patchbay: unknown node")
	ErrUnknownEdge   = errors.New("patchbay: unknown edge")
	ErrUnknownHandle = errors.New("patchbay: unknown handle")
	ErrSelfLoop      = errors.New("patchbay: self loop")
	ErrDuplicateEdge = errors.New("patchbay: duplicate edge")
	ErrTypeMismatch  = errors.New("patchbay: incompatible handle types")
)

// Graph is the canonical store for one patch: nodes plus the directed edges
// between their handles. All mutations validate before touching state, so a
// rejected call leaves the graph exactly as it was. Graph is not safe for
// concurrent use; the engine owns it from a single goroutine.
type Graph struct {
	Notify Notifier

	reg *Registry
	log *slog.Logger

	nodes     map[NodeID]*Node
	nodeOrder []NodeID
	edges     map[EdgeID]*Edge
	edgeOrder []EdgeID

	// inbound indexes the at-most-one edge occupying each input handle.
	inbound map[NodeID]map[HandleID]*Edge

	// rev increments on every structural change. Cached evaluation orders
	// and shader plans compare against it instead of re-walking the graph.
	rev uint64
}

// NewGraph creates an empty graph backed by the given node type registry.
// A nil logger silences the graph.
func NewGraph(reg *Registry, log *slog.Logger) *Graph {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Graph{
		reg:     reg,
		log:     log,
		nodes:   make(map[NodeID]*Node),
		edges:   make(map[EdgeID]*Edge),
		inbound: make(map[NodeID]map[HandleID]*Edge),
	}
}

// Revision returns the structural revision counter. It changes whenever
// nodes or edges do, and never for value or bypass edits.
func (g *Graph) Revision() uint64 {
	return g.rev
}

func (g *Graph) structural(ev Event) {
	g.rev++
	g.Notify.publish(ev)
}

// --- Nodes ---

// AddNode instantiates a node of the given registered type and inserts it.
func (g *Graph) AddNode(typeKey string) (*Node, error) {
	spec, ok := g.reg.Lookup(typeKey)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, typeKey)
	}
	n := spec.New(NodeID(uuid.NewString()))
	g.nodes[n.ID] = n
	g.nodeOrder = append(g.nodeOrder, n.ID)
	g.structural(Event{Kind: EventNodeAdded, Node: n.ID})
	return n, nil
}

// insertNode adopts an already-built node, keeping its id. Used by the
// persistence loader after staging validation.
func (g *Graph) insertNode(n *Node) error {
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("patchbay: node id %q already present", n.ID)
	}
	g.nodes[n.ID] = n
	g.nodeOrder = append(g.nodeOrder, n.ID)
	g.structural(Event{Kind: EventNodeAdded, Node: n.ID})
	return nil
}

// Node looks up a node by id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order. The returned slice is fresh;
// the nodes are the live instances and follow the usual mutation rules.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// RemoveNode deletes a node and every edge touching it. Edge removals are
// published before the node removal so listeners never see an edge with a
// missing endpoint.
func (g *Graph) RemoveNode(id NodeID) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownNode, id)
	}
	// dropEdge compacts edgeOrder in place, so collect the incident
	// edges before dropping any.
	var incident []*Edge
	for _, eid := range g.edgeOrder {
		if e := g.edges[eid]; e.Source == id || e.Target == id {
			incident = append(incident, e)
		}
	}
	for _, e := range incident {
		g.dropEdge(e)
	}
	delete(g.nodes, id)
	delete(g.inbound, id)
	for i, nid := range g.nodeOrder {
		if nid == id {
			g.nodeOrder = append(g.nodeOrder[:i], g.nodeOrder[i+1:]...)
			break
		}
	}
	g.structural(Event{Kind: EventNodeRemoved, Node: id})
	return nil
}

// --- Edges ---

// Connect validates a connection and inserts the edge, evicting whatever
// edge already occupied the target input. The eviction and insertion are a
// single mutation: either both happen or neither does.
func (g *Graph) Connect(c Connection) (*Edge, error) {
	if c.Source == c.Target {
		return nil, fmt.Errorf("%w on node %q", ErrSelfLoop, c.Source)
	}
	src, ok := g.nodes[c.Source]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownNode, c.Source)
	}
	dst, ok := g.nodes[c.Target]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownNode, c.Target)
	}
	out, ok := src.OutputHandle(c.SourceHandle)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no output %q", ErrUnknownHandle, src.TypeKey, c.SourceHandle)
	}
	in, ok := dst.InputHandle(c.TargetHandle)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no input %q", ErrUnknownHandle, dst.TypeKey, c.TargetHandle)
	}
	if !HandlesCompatible(out, in) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTypeMismatch, out.Type, in.Type)
	}
	if prev := g.inbound[c.Target][c.TargetHandle]; prev != nil {
		if prev.Source == c.Source && prev.SourceHandle == c.SourceHandle {
			return nil, fmt.Errorf("%w: %q.%s -> %q.%s", ErrDuplicateEdge, c.Source, c.SourceHandle, c.Target, c.TargetHandle)
		}
		g.dropEdge(prev)
	}
	e := &Edge{
		ID:           EdgeID(uuid.NewString()),
		Source:       c.Source,
		SourceHandle: c.SourceHandle,
		Target:       c.Target,
		TargetHandle: c.TargetHandle,
		Type:         out.Type,
	}
	g.edges[e.ID] = e
	g.edgeOrder = append(g.edgeOrder, e.ID)
	byHandle := g.inbound[c.Target]
	if byHandle == nil {
		byHandle = make(map[HandleID]*Edge)
		g.inbound[c.Target] = byHandle
	}
	byHandle[c.TargetHandle] = e
	g.structural(Event{Kind: EventEdgeAdded, Edge: e.ID})
	return e, nil
}

// RemoveEdge deletes an edge by id.
func (g *Graph) RemoveEdge(id EdgeID) error {
	e, ok := g.edges[id]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownEdge, id)
	}
	g.dropEdge(e)
	return nil
}

// dropEdge removes an edge from all indexes and publishes the removal.
func (g *Graph) dropEdge(e *Edge) {
	delete(g.edges, e.ID)
	for i, eid := range g.edgeOrder {
		if eid == e.ID {
			g.edgeOrder = append(g.edgeOrder[:i], g.edgeOrder[i+1:]...)
			break
		}
	}
	if byHandle := g.inbound[e.Target]; byHandle != nil && byHandle[e.TargetHandle] == e {
		delete(byHandle, e.TargetHandle)
	}
	g.structural(Event{Kind: EventEdgeRemoved, Edge: e.ID})
}

// Edge looks up an edge by id.
func (g *Graph) Edge(id EdgeID) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, g.edges[id])
	}
	return out
}

// EdgeTargeting returns the edge feeding one input handle, if any. Index
// lookup, no scan.
func (g *Graph) EdgeTargeting(target NodeID, handle HandleID) (*Edge, bool) {
	e := g.inbound[target][handle]
	return e, e != nil
}

// EdgesTargeting returns every inbound edge of a node, ordered by the
// node's declared input handles so walks are deterministic.
func (g *Graph) EdgesTargeting(target NodeID) []*Edge {
	n, ok := g.nodes[target]
	if !ok {
		return nil
	}
	byHandle := g.inbound[target]
	if len(byHandle) == 0 {
		return nil
	}
	out := make([]*Edge, 0, len(byHandle))
	for _, h := range n.Inputs {
		if e := byHandle[h.ID]; e != nil {
			out = append(out, e)
		}
	}
	return out
}

// EdgesFrom returns every edge leaving a node, in edge insertion order.
func (g *Graph) EdgesFrom(source NodeID) []*Edge {
	var out []*Edge
	for _, id := range g.edgeOrder {
		if e := g.edges[id]; e.Source == source {
			out = append(out, e)
		}
	}
	return out
}

// --- Non-structural edits ---

// SetInputValue stores a user-edited value for an unconnected input. The
// value sits idle while an edge occupies the handle and takes effect again
// when the edge goes away.
func (g *Graph) SetInputValue(id NodeID, handle HandleID, value any) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownNode, id)
	}
	if _, ok := n.InputHandle(handle); !ok {
		return fmt.Errorf("%w: %q has no input %q", ErrUnknownHandle, n.TypeKey, handle)
	}
	if n.InputValues == nil {
		n.InputValues = make(map[HandleID]any)
	}
	n.InputValues[handle] = value
	g.Notify.publish(Event{Kind: EventValueChanged, Node: id})
	return nil
}

// SetConfig stores a non-wire option on a node (waveform name, expression
// text, shader source and the like).
func (g *Graph) SetConfig(id NodeID, key string, value any) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownNode, id)
	}
	if n.Config == nil {
		n.Config = make(map[string]any)
	}
	n.Config[key] = value
	g.Notify.publish(Event{Kind: EventConfigChanged, Node: id})
	return nil
}

// SetSurface reassigns a shader or output node to another render surface.
// Structural for planning purposes: surface membership decides which plan a
// stage lands in.
func (g *Graph) SetSurface(id NodeID, surface string) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownNode, id)
	}
	if n.Surface == surface {
		return nil
	}
	n.Surface = surface
	g.structural(Event{Kind: EventSurfaceChanged, Node: id})
	return nil
}

// SetBypassed toggles a node's bypass flag. No-op when already in the
// requested state.
func (g *Graph) SetBypassed(id NodeID, bypassed bool) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownNode, id)
	}
	if n.Bypassed == bypassed {
		return nil
	}
	n.Bypassed = bypassed
	g.Notify.publish(Event{Kind: EventBypassChanged, Node: id})
	return nil
}

// --- Wholesale replacement ---

// Clear removes every node and edge in one step, publishing a single
// replacement event rather than per-element removals.
func (g *Graph) Clear() {
	g.nodes = make(map[NodeID]*Node)
	g.nodeOrder = nil
	g.edges = make(map[EdgeID]*Edge)
	g.edgeOrder = nil
	g.inbound = make(map[NodeID]map[HandleID]*Edge)
	g.structural(Event{Kind: EventGraphReplaced})
}

// Replace swaps in a fully staged node and edge set, as produced by the
// persistence loader. Endpoints and handle types are re-checked so a bad
// stage can never leave the graph half-swapped: validation runs first and
// an error means the previous contents are untouched.
func (g *Graph) Replace(nodes []*Node, edges []*Edge) error {
	byID := make(map[NodeID]*Node, len(nodes))
	for _, n := range nodes {
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("patchbay: node id %q duplicated in replacement", n.ID)
		}
		byID[n.ID] = n
	}
	inbound := make(map[NodeID]map[HandleID]*Edge, len(nodes))
	for _, e := range edges {
		src, ok := byID[e.Source]
		if !ok {
			return fmt.Errorf("%w %q (edge %q)", ErrUnknownNode, e.Source, e.ID)
		}
		dst, ok := byID[e.Target]
		if !ok {
			return fmt.Errorf("%w %q (edge %q)", ErrUnknownNode, e.Target, e.ID)
		}
		if e.Source == e.Target {
			return fmt.Errorf("%w on node %q (edge %q)", ErrSelfLoop, e.Source, e.ID)
		}
		out, ok := src.OutputHandle(e.SourceHandle)
		if !ok {
			return fmt.Errorf("%w: %q has no output %q", ErrUnknownHandle, src.TypeKey, e.SourceHandle)
		}
		in, ok := dst.InputHandle(e.TargetHandle)
		if !ok {
			return fmt.Errorf("%w: %q has no input %q", ErrUnknownHandle, dst.TypeKey, e.TargetHandle)
		}
		if !HandlesCompatible(out, in) {
			return fmt.Errorf("%w: %s -> %s (edge %q)", ErrTypeMismatch, out.Type, in.Type, e.ID)
		}
		byHandle := inbound[e.Target]
		if byHandle == nil {
			byHandle = make(map[HandleID]*Edge)
			inbound[e.Target] = byHandle
		}
		if byHandle[e.TargetHandle] != nil {
			return fmt.Errorf("patchbay: input %q.%s claimed twice in replacement", e.Target, e.TargetHandle)
		}
		byHandle[e.TargetHandle] = e
	}

	g.nodes = byID
	g.nodeOrder = make([]NodeID, 0, len(nodes))
	for _, n := range nodes {
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}
	g.edges = make(map[EdgeID]*Edge, len(edges))
	g.edgeOrder = make([]EdgeID, 0, len(edges))
	for _, e := range edges {
		g.edges[e.ID] = e
		g.edgeOrder = append(g.edgeOrder, e.ID)
	}
	g.inbound = inbound
	g.structural(Event{Kind: EventGraphReplaced})
	g.log.Debug("patchbay: graph replaced", "nodes", len(nodes), "edges", len(edges))
	return nil
}
