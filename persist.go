package patchbay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Persisted patch shapes. The wire format keeps node payloads under "data"
// and edge types under "data.dataType" so patches round-trip with editors
// that treat those fields as opaque.

type patchFile struct {
	Nodes []patchNode `json:"nodes"`
	Edges []patchEdge `json:"edges"`
}

type patchNode struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Position patchVec      `json:"position"`
	Data     patchNodeData `json:"data"`
}

type patchVec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type patchNodeData struct {
	Label    string         `json:"label,omitempty"`
	Inputs   map[string]any `json:"inputs,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
	Surface  string         `json:"surface,omitempty"`
	Bypassed bool           `json:"bypassed,omitempty"`
}

type patchEdge struct {
	ID           string        `json:"id"`
	Source       string        `json:"source"`
	Target       string        `json:"target"`
	SourceHandle string        `json:"sourceHandle"`
	TargetHandle string        `json:"targetHandle"`
	Data         patchEdgeData `json:"data"`
}

type patchEdgeData struct {
	DataType string `json:"dataType,omitempty"`
}

// LoadPatch replaces the graph's contents with a persisted patch. The
// whole document is parsed and staged first; any problem rejects the load
// with the previous graph untouched.
func LoadPatch(g *Graph, reg *Registry, data []byte) error {
	var pf patchFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("patchbay: parse patch: %w", err)
	}

	nodes := make([]*Node, 0, len(pf.Nodes))
	for _, pn := range pf.Nodes {
		if pn.ID == "" {
			return fmt.Errorf("patchbay: patch node with empty id")
		}
		spec, ok := reg.Lookup(pn.Type)
		if !ok {
			return fmt.Errorf("%w %q (node %q)", ErrUnknownType, pn.Type, pn.ID)
		}
		n := spec.New(NodeID(pn.ID))
		n.Position = Vec2{X: pn.Position.X, Y: pn.Position.Y}
		if pn.Data.Label != "" {
			n.Label = pn.Data.Label
		}
		if pn.Data.Surface != "" {
			n.Surface = pn.Data.Surface
		}
		n.Bypassed = pn.Data.Bypassed
		for k, v := range pn.Data.Config {
			n.Config[k] = v
		}
		for k, raw := range pn.Data.Inputs {
			h, ok := n.InputHandle(HandleID(k))
			if !ok {
				return fmt.Errorf("%w: %q has no input %q (node %q)", ErrUnknownHandle, pn.Type, k, pn.ID)
			}
			n.InputValues[h.ID] = decodeValue(h.Type, raw)
		}
		nodes = append(nodes, n)
	}

	byID := make(map[NodeID]*Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	edges := make([]*Edge, 0, len(pf.Edges))
	for _, pe := range pf.Edges {
		id := pe.ID
		if id == "" {
			id = uuid.NewString()
		}
		e := &Edge{
			ID:           EdgeID(id),
			Source:       NodeID(pe.Source),
			SourceHandle: HandleID(pe.SourceHandle),
			Target:       NodeID(pe.Target),
			TargetHandle: HandleID(pe.TargetHandle),
		}
		if pe.Data.DataType != "" {
			t, ok := ParseDataType(pe.Data.DataType)
			if !ok {
				return fmt.Errorf("patchbay: edge %q has unknown data type %q", id, pe.Data.DataType)
			}
			e.Type = t
		} else if src, ok := byID[e.Source]; ok {
			if h, ok := src.OutputHandle(e.SourceHandle); ok {
				e.Type = h.Type
			}
		}
		edges = append(edges, e)
	}

	return g.Replace(nodes, edges)
}

// SavePatch serializes the graph into the persisted patch format.
func SavePatch(g *Graph) ([]byte, error) {
	pf := patchFile{
		Nodes: make([]patchNode, 0, g.Len()),
		Edges: make([]patchEdge, 0, len(g.Edges())),
	}
	for _, n := range g.Nodes() {
		pn := patchNode{
			ID:       string(n.ID),
			Type:     n.TypeKey,
			Position: patchVec{X: n.Position.X, Y: n.Position.Y},
			Data: patchNodeData{
				Surface:  n.Surface,
				Bypassed: n.Bypassed,
			},
		}
		if n.Label != defaultLabel(g, n) {
			pn.Data.Label = n.Label
		}
		if len(n.InputValues) > 0 {
			pn.Data.Inputs = make(map[string]any, len(n.InputValues))
			for k, v := range n.InputValues {
				pn.Data.Inputs[string(k)] = encodeValue(v)
			}
		}
		if len(n.Config) > 0 {
			pn.Data.Config = n.Config
		}
		pf.Nodes = append(pf.Nodes, pn)
	}
	for _, e := range g.Edges() {
		pf.Edges = append(pf.Edges, patchEdge{
			ID:           string(e.ID),
			Source:       string(e.Source),
			Target:       string(e.Target),
			SourceHandle: string(e.SourceHandle),
			TargetHandle: string(e.TargetHandle),
			Data:         patchEdgeData{DataType: e.Type.String()},
		})
	}
	return json.MarshalIndent(pf, "", "  ")
}

// LoadPatchFile loads a patch from disk.
func LoadPatchFile(g *Graph, reg *Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("patchbay: read patch: %w", err)
	}
	return LoadPatch(g, reg, data)
}

// SavePatchFile writes a patch to disk.
func SavePatchFile(g *Graph, path string) error {
	data, err := SavePatch(g)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("patchbay: write patch: %w", err)
	}
	return nil
}

// defaultLabel is the label a freshly created node of this type would get.
func defaultLabel(g *Graph, n *Node) string {
	if spec, ok := g.reg.Lookup(n.TypeKey); ok {
		return spec.Label
	}
	return ""
}

// decodeValue converts a JSON-decoded value into the runtime type the
// handle declares. Unconvertible values pass through raw; evaluation
// coercion deals with them the same way it deals with live wire values.
func decodeValue(t DataType, v any) any {
	switch t {
	case TypeNumber:
		if f, ok := toNumber(v); ok {
			return f
		}
	case TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b
		case float64:
			return b != 0
		}
	case TypeVec2:
		if c, ok := componentMap(v); ok {
			return Vec2{X: c["x"], Y: c["y"]}
		}
		if a := floatSlice(v); len(a) >= 2 {
			return Vec2{X: a[0], Y: a[1]}
		}
	case TypeVec3:
		if c, ok := componentMap(v); ok {
			return Vec3{X: c["x"], Y: c["y"], Z: c["z"]}
		}
		if a := floatSlice(v); len(a) >= 3 {
			return Vec3{X: a[0], Y: a[1], Z: a[2]}
		}
	case TypeVec4:
		if c, ok := componentMap(v); ok {
			return Vec4{X: c["x"], Y: c["y"], Z: c["z"], W: c["w"]}
		}
		if a := floatSlice(v); len(a) >= 4 {
			return Vec4{X: a[0], Y: a[1], Z: a[2], W: a[3]}
		}
	case TypeColor:
		if c, ok := componentMap(v); ok {
			col := Color{R: c["r"], G: c["g"], B: c["b"], A: 1}
			if a, set := c["a"]; set {
				col.A = a
			}
			return col
		}
		if a := floatSlice(v); len(a) >= 4 {
			return Color{R: a[0], G: a[1], B: a[2], A: a[3]}
		}
	case TypeArray, TypeFFT:
		if a := floatSlice(v); a != nil {
			return a
		}
	}
	return v
}

// encodeValue converts a runtime value into its JSON shape.
func encodeValue(v any) any {
	switch t := v.(type) {
	case Vec2:
		return map[string]float64{"x": t.X, "y": t.Y}
	case Vec3:
		return map[string]float64{"x": t.X, "y": t.Y, "z": t.Z}
	case Vec4:
		return map[string]float64{"x": t.X, "y": t.Y, "z": t.Z, "w": t.W}
	case Color:
		return map[string]float64{"r": t.R, "g": t.G, "b": t.B, "a": t.A}
	default:
		return v
	}
}

// componentMap reads a JSON object of named numeric components. Missing
// components read as zero.
func componentMap(v any) (map[string]float64, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]float64, len(m))
	for k, raw := range m {
		if f, ok := toNumber(raw); ok {
			out[k] = f
		}
	}
	return out, true
}

// floatSlice reads a JSON array of numbers. Non-numeric entries reject the
// whole slice.
func floatSlice(v any) []float64 {
	a, ok := v.([]any)
	if !ok {
		if f, ok := v.([]float64); ok {
			return f
		}
		return nil
	}
	out := make([]float64, len(a))
	for i, raw := range a {
		f, ok := toNumber(raw)
		if !ok {
			return nil
		}
		out[i] = f
	}
	return out
}
