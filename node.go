package patchbay

// Node is a single computation step in a patch. Nodes are created and
// destroyed only through Graph mutation calls; the Graph owns every Node it
// hands out. Exported value fields may be read freely between ticks, but all
// mutation goes through Graph or Engine methods so change notifications and
// dirty flags stay correct.
type Node struct {
	ID       NodeID
	TypeKey  string
	Label    string
	Category Category

	// Handle declarations, copied from the TypeSpec at creation.
	Inputs  []Handle
	Outputs []Handle

	// InputValues holds user-edited values for unconnected inputs, keyed by
	// input handle id. Absent entries fall back to the handle default.
	InputValues map[HandleID]any

	// OutputValues holds the most recent outputs the node produced. They
	// survive across frames so bypassed or failed nodes keep feeding
	// downstream consumers their last good value.
	OutputValues map[HandleID]any

	// Config holds per-node options that are not wire inputs (waveform name,
	// wrap mode, expression text, shader source). Produced by the type's
	// default-state factory and edited as a unit.
	Config map[string]any

	// Surface names the render surface a Shader or Output node belongs to.
	// Empty for all other categories.
	Surface string

	// Position is editor-owned layout data, persisted verbatim.
	Position Vec2

	Bypassed bool
	Errored  bool
	ErrorMsg string

	// state is the evaluator-private record for stateful utilities. It is
	// created lazily on first evaluation, mutated only by the node's own
	// evaluator, and discarded with the node.
	state any
}

// stateOf returns the node's private state as *T, allocating a zero value on
// first use. Each stateful evaluator owns exactly one state type, so a failed
// assertion means stale state from a different kind and is safely replaced.
func stateOf[T any](n *Node) *T {
	if st, ok := n.state.(*T); ok {
		return st
	}
	st := new(T)
	n.state = st
	return st
}

// InputHandle returns the declared input handle with the given id.
func (n *Node) InputHandle(id HandleID) (Handle, bool) {
	for _, h := range n.Inputs {
		if h.ID == id {
			return h, true
		}
	}
	return Handle{}, false
}

// OutputHandle returns the declared output handle with the given id.
func (n *Node) OutputHandle(id HandleID) (Handle, bool) {
	for _, h := range n.Outputs {
		if h.ID == id {
			return h, true
		}
	}
	return Handle{}, false
}

// ConfigString reads a string config entry, falling back to def when absent
// or of the wrong type.
func (n *Node) ConfigString(key, def string) string {
	if v, ok := n.Config[key].(string); ok {
		return v
	}
	return def
}

// ConfigNumber reads a numeric config entry, falling back to def.
// JSON round-trips store numbers as float64; ints are tolerated.
func (n *Node) ConfigNumber(key string, def float64) float64 {
	switch v := n.Config[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// ConfigBool reads a boolean config entry, falling back to def.
func (n *Node) ConfigBool(key string, def bool) bool {
	if v, ok := n.Config[key].(bool); ok {
		return v
	}
	return def
}

// setError records a per-node evaluation failure. Prior OutputValues are
// deliberately left untouched so downstream consumers keep reading the last
// good value.
func (n *Node) setError(msg string) {
	n.Errored = true
	n.ErrorMsg = msg
}

// clearError resets the node's error flags after a successful evaluation.
func (n *Node) clearError() {
	if n.Errored {
		n.Errored = false
		n.ErrorMsg = ""
	}
}
