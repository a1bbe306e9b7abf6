package patchbay

// Handle describes a typed input or output slot on a node. Handles are
// declared on a TypeSpec and copied onto every node instance created from it,
// so mutating a node's handle never affects the registry or other nodes.
type Handle struct {
	ID       HandleID
	Label    string
	Type     DataType
	Required bool
	Default  any
	Min, Max float64
	Bounded  bool // true when Min/Max constrain the value (editor slider range)
	Tags     []string
}

// handle construction helpers used by the built-in catalog. Config widgets
// without a wire type (waveform selectors etc.) live in Node.Config instead.

func in(id HandleID, label string, t DataType, def any) Handle {
	return Handle{ID: id, Label: label, Type: t, Default: def}
}

func inRange(id HandleID, label string, def, min, max float64) Handle {
	return Handle{ID: id, Label: label, Type: TypeNumber, Default: def, Min: min, Max: max, Bounded: true}
}

func out(id HandleID, label string, t DataType) Handle {
	return Handle{ID: id, Label: label, Type: t}
}

func req(h Handle) Handle {
	h.Required = true
	return h
}

// tagsIntersect reports whether a and b share at least one tag.
// Empty tag sets never constrain a connection.
func tagsIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, ta := range a {
		for _, tb := range b {
			if ta == tb {
				return true
			}
		}
	}
	return false
}

// HandlesCompatible reports whether an output handle may feed an input handle:
// type compatibility (symmetric OR over the acceptance matrix) plus tag-set
// intersection when both sides declare tags.
func HandlesCompatible(source, target Handle) bool {
	if !Compatible(source.Type, target.Type) {
		return false
	}
	return tagsIntersect(source.Tags, target.Tags)
}

// Connection is a request to wire one node's output to another node's input.
type Connection struct {
	Source       NodeID
	SourceHandle HandleID
	Target       NodeID
	TargetHandle HandleID
}

// Edge is a realized connection. Edges are owned by the Graph; callers must
// treat them as read-only.
type Edge struct {
	ID           EdgeID
	Source       NodeID
	SourceHandle HandleID
	Target       NodeID
	TargetHandle HandleID
	Type         DataType // the source handle's declared type at wiring time
}
