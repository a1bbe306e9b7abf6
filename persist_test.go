package patchbay

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestPatchRoundTrip(t *testing.T) {
	g := newTestGraph(t)
	osc := mustAddNode(t, g, "oscillator")
	osc.Label = "LFO"
	osc.Position = Vec2{X: 40, Y: 120}
	if err := g.SetInputValue(osc.ID, "frequency", 2.0); err != nil {
		t.Fatalf("SetInputValue: %v", err)
	}
	wave := mustAddNode(t, g, "shaderWave")
	if err := g.SetInputValue(wave.ID, "center", Vec2{X: 0.25, Y: 0.75}); err != nil {
		t.Fatalf("SetInputValue: %v", err)
	}
	out := mustAddNode(t, g, "output")
	if err := g.SetConfig(out.ID, "width", 640.0); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if err := g.SetBypassed(wave.ID, true); err != nil {
		t.Fatalf("SetBypassed: %v", err)
	}
	mustConnect(t, g, osc, "output", wave, "amount")
	mustConnect(t, g, wave, "output", out, "image")

	data, err := SavePatch(g)
	if err != nil {
		t.Fatalf("SavePatch: %v", err)
	}

	g2 := newTestGraph(t)
	if err := LoadPatch(g2, Builtins(), data); err != nil {
		t.Fatalf("LoadPatch: %v", err)
	}
	if g2.Len() != 3 {
		t.Fatalf("loaded %d nodes, want 3", g2.Len())
	}

	osc2, ok := g2.Node(osc.ID)
	if !ok {
		t.Fatal("oscillator missing after load")
	}
	if osc2.Label != "LFO" {
		t.Errorf("label = %q, want LFO", osc2.Label)
	}
	if osc2.Position != (Vec2{X: 40, Y: 120}) {
		t.Errorf("position = %+v", osc2.Position)
	}
	if v := osc2.InputValues["frequency"]; v != 2.0 {
		t.Errorf("frequency = %v, want 2", v)
	}

	wave2, _ := g2.Node(wave.ID)
	if !wave2.Bypassed {
		t.Error("bypass flag lost")
	}
	if v := wave2.InputValues["center"]; v != (Vec2{X: 0.25, Y: 0.75}) {
		t.Errorf("center = %v", v)
	}

	out2, _ := g2.Node(out.ID)
	if out2.ConfigNumber("width", 0) != 640 {
		t.Errorf("width config = %v, want 640", out2.Config["width"])
	}
	if surfaceOf(out2) != DefaultSurface {
		t.Errorf("surface = %q", out2.Surface)
	}

	if got := len(g2.Edges()); got != 2 {
		t.Fatalf("loaded %d edges, want 2", got)
	}
	e, ok := g2.EdgeTargeting(wave.ID, "amount")
	if !ok {
		t.Fatal("amount edge missing after load")
	}
	if e.Type != TypeNumber {
		t.Errorf("edge type = %v, want number", e.Type)
	}
}

func TestSavedPatchIsStable(t *testing.T) {
	g := newTestGraph(t)
	noise := mustAddNode(t, g, "shaderNoise")
	wave := mustAddNode(t, g, "shaderWave")
	mustConnect(t, g, noise, "output", wave, "inputImage")

	first, err := SavePatch(g)
	if err != nil {
		t.Fatalf("SavePatch: %v", err)
	}
	g2 := newTestGraph(t)
	if err := LoadPatch(g2, Builtins(), first); err != nil {
		t.Fatalf("LoadPatch: %v", err)
	}
	second, err := SavePatch(g2)
	if err != nil {
		t.Fatalf("SavePatch: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("save/load/save drifted:\n%s\nvs\n%s", first, second)
	}
}

func TestSavePatchOmitsDefaultLabel(t *testing.T) {
	g := newTestGraph(t)
	osc := mustAddNode(t, g, "oscillator")
	mustAddNode(t, g, "add")
	osc.Label = "Beat LFO"

	data, err := SavePatch(g)
	if err != nil {
		t.Fatalf("SavePatch: %v", err)
	}
	if !bytes.Contains(data, []byte("Beat LFO")) {
		t.Error("custom label not saved")
	}
	if bytes.Contains(data, []byte(`"label": "Add"`)) {
		t.Error("default label saved redundantly")
	}
}

func TestLoadPatchRejectsUnknownType(t *testing.T) {
	g := newTestGraph(t)
	keep := mustAddNode(t, g, "oscillator")

	err := LoadPatch(g, Builtins(), []byte(`{
		"nodes": [{"id": "n1", "type": "quantumFlux", "position": {"x": 0, "y": 0}, "data": {}}],
		"edges": []
	}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
	if _, ok := g.Node(keep.ID); !ok || g.Len() != 1 {
		t.Error("failed load mutated the graph")
	}
}

func TestLoadPatchRejectsUnknownInput(t *testing.T) {
	g := newTestGraph(t)
	err := LoadPatch(g, Builtins(), []byte(`{
		"nodes": [{"id": "n1", "type": "oscillator", "position": {"x": 0, "y": 0},
			"data": {"inputs": {"wobble": 3}}}],
		"edges": []
	}`))
	if !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("err = %v, want ErrUnknownHandle", err)
	}
	if g.Len() != 0 {
		t.Error("failed load left nodes behind")
	}
}

func TestLoadPatchRejectsUnknownEdgeDataType(t *testing.T) {
	g := newTestGraph(t)
	err := LoadPatch(g, Builtins(), []byte(`{
		"nodes": [
			{"id": "a", "type": "oscillator", "position": {"x": 0, "y": 0}, "data": {}},
			{"id": "b", "type": "add", "position": {"x": 0, "y": 0}, "data": {}}
		],
		"edges": [{"id": "e1", "source": "a", "target": "b",
			"sourceHandle": "output", "targetHandle": "a",
			"data": {"dataType": "quaternion"}}]
	}`))
	if err == nil {
		t.Fatal("unknown edge data type accepted")
	}
}

func TestLoadPatchRejectsDanglingEdge(t *testing.T) {
	g := newTestGraph(t)
	err := LoadPatch(g, Builtins(), []byte(`{
		"nodes": [{"id": "a", "type": "oscillator", "position": {"x": 0, "y": 0}, "data": {}}],
		"edges": [{"id": "e1", "source": "a", "target": "ghost",
			"sourceHandle": "output", "targetHandle": "a", "data": {}}]
	}`))
	if err == nil {
		t.Fatal("edge to missing node accepted")
	}
	if g.Len() != 0 {
		t.Error("failed load left nodes behind")
	}
}

func TestLoadPatchFillsMissingEdgeDetails(t *testing.T) {
	g := newTestGraph(t)
	err := LoadPatch(g, Builtins(), []byte(`{
		"nodes": [
			{"id": "a", "type": "oscillator", "position": {"x": 0, "y": 0}, "data": {}},
			{"id": "b", "type": "add", "position": {"x": 0, "y": 0}, "data": {}}
		],
		"edges": [{"source": "a", "target": "b",
			"sourceHandle": "output", "targetHandle": "a", "data": {}}]
	}`))
	if err != nil {
		t.Fatalf("LoadPatch: %v", err)
	}
	e, ok := g.EdgeTargeting("b", "a")
	if !ok {
		t.Fatal("edge missing")
	}
	if e.ID == "" {
		t.Error("edge without id did not get one generated")
	}
	if e.Type != TypeNumber {
		t.Errorf("edge type = %v, want stamped from source handle", e.Type)
	}
}

func TestDecodeValueShapes(t *testing.T) {
	cases := []struct {
		name string
		t    DataType
		in   any
		want any
	}{
		{"int number", TypeNumber, 3, 3.0},
		{"bool from number", TypeBoolean, 1.0, true},
		{"vec2 object", TypeVec2, map[string]any{"x": 1.0, "y": 2.0}, Vec2{X: 1, Y: 2}},
		{"vec2 array", TypeVec2, []any{1.0, 2.0}, Vec2{X: 1, Y: 2}},
		{"vec3 object", TypeVec3, map[string]any{"x": 1.0, "y": 2.0, "z": 3.0}, Vec3{X: 1, Y: 2, Z: 3}},
		{"color full", TypeColor, map[string]any{"r": 1.0, "g": 0.5, "b": 0.0, "a": 0.8}, Color{R: 1, G: 0.5, A: 0.8}},
		{"color default alpha", TypeColor, map[string]any{"r": 0.2, "g": 0.4, "b": 0.6}, Color{R: 0.2, G: 0.4, B: 0.6, A: 1}},
		{"vec4 array", TypeVec4, []any{1.0, 2.0, 3.0, 4.0}, Vec4{X: 1, Y: 2, Z: 3, W: 4}},
	}
	for _, c := range cases {
		got := decodeValue(c.t, c.in)
		if got != c.want {
			t.Errorf("%s: decodeValue = %#v, want %#v", c.name, got, c.want)
		}
	}
}

func TestDecodeValueArray(t *testing.T) {
	got := decodeValue(TypeArray, []any{0.1, 0.2, 0.3})
	a, ok := got.([]float64)
	if !ok || len(a) != 3 || a[1] != 0.2 {
		t.Errorf("array = %#v", got)
	}
	raw := decodeValue(TypeArray, []any{0.1, "no"})
	if _, ok := raw.([]float64); ok {
		t.Error("mixed array decoded, want raw passthrough")
	}
}

func TestEncodeValueShapes(t *testing.T) {
	v := encodeValue(Color{R: 1, G: 0.2, B: 0.6, A: 1}).(map[string]float64)
	if v["r"] != 1 || v["g"] != 0.2 || v["b"] != 0.6 || v["a"] != 1 {
		t.Errorf("color encoded as %v", v)
	}
	w := encodeValue(Vec2{X: 3, Y: 4}).(map[string]float64)
	if w["x"] != 3 || w["y"] != 4 {
		t.Errorf("vec2 encoded as %v", w)
	}
	if encodeValue(1.5) != 1.5 {
		t.Error("scalar not passed through")
	}
}

func TestSaveAndLoadPatchFile(t *testing.T) {
	g := newTestGraph(t)
	noise := mustAddNode(t, g, "shaderNoise")
	out := mustAddNode(t, g, "output")
	mustConnect(t, g, noise, "output", out, "image")

	path := filepath.Join(t.TempDir(), "patch.json")
	if err := SavePatchFile(g, path); err != nil {
		t.Fatalf("SavePatchFile: %v", err)
	}
	g2 := newTestGraph(t)
	if err := LoadPatchFile(g2, Builtins(), path); err != nil {
		t.Fatalf("LoadPatchFile: %v", err)
	}
	if g2.Len() != 2 || len(g2.Edges()) != 1 {
		t.Errorf("loaded %d nodes %d edges", g2.Len(), len(g2.Edges()))
	}
	if err := LoadPatchFile(g2, Builtins(), filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("loading a missing file succeeded")
	}
}
