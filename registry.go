package patchbay

import (
	"fmt"
	"sort"
)

// TypeSpec declares a node type: its identity, its handle schemas, and the
// seed applied to fresh instances. Specs are registered once and never
// mutated afterwards.
type TypeSpec struct {
	Key      string
	Label    string
	Category Category
	Inputs   []Handle
	Outputs  []Handle

	// Init seeds a new instance with config defaults and surface
	// assignment. May be nil.
	Init func(n *Node)
}

// New instantiates a node from this spec. Handle slices are copied so an
// instance never aliases the registry's declarations.
func (s *TypeSpec) New(id NodeID) *Node {
	n := &Node{
		ID:           id,
		TypeKey:      s.Key,
		Label:        s.Label,
		Category:     s.Category,
		Inputs:       append([]Handle(nil), s.Inputs...),
		Outputs:      append([]Handle(nil), s.Outputs...),
		InputValues:  make(map[HandleID]any),
		OutputValues: make(map[HandleID]any),
		Config:       make(map[string]any),
	}
	if s.Init != nil {
		s.Init(n)
	}
	return n
}

// Registry maps type keys to specs for one session. Construct one per
// graph (or share across graphs explicitly); there is no process-wide
// instance.
type Registry struct {
	specs map[string]*TypeSpec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*TypeSpec)}
}

// Register adds a spec. Re-registering a key is refused so two packages
// cannot silently fight over it.
func (r *Registry) Register(spec TypeSpec) error {
	if spec.Key == "" {
		return fmt.Errorf("patchbay: registry: empty type key")
	}
	if _, dup := r.specs[spec.Key]; dup {
		return fmt.Errorf("patchbay: registry: type %q already registered", spec.Key)
	}
	s := spec
	r.specs[spec.Key] = &s
	return nil
}

// Lookup returns the spec for a type key.
func (r *Registry) Lookup(key string) (*TypeSpec, bool) {
	s, ok := r.specs[key]
	return s, ok
}

// Keys returns all registered type keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.specs))
	for k := range r.specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// cfg builds an Init that seeds config entries.
func cfg(m map[string]any) func(*Node) {
	return func(n *Node) {
		for k, v := range m {
			n.Config[k] = v
		}
	}
}

// shaderInit seeds a shader node: default surface plus its stage source.
func shaderInit(source string) func(*Node) {
	return func(n *Node) {
		n.Surface = DefaultSurface
		n.Config["source"] = source
	}
}

// Builtins returns a registry loaded with the full built-in node catalog.
func Builtins() *Registry {
	r := NewRegistry()
	for _, spec := range builtinSpecs() {
		if err := r.Register(spec); err != nil {
			// The catalog below is static; a duplicate key is a programming
			// error, not a runtime condition.
			panic(err)
		}
	}
	return r
}

func builtinSpecs() []TypeSpec {
	return []TypeSpec{
		// --- Value ---
		{
			Key: "number", Label: "Number", Category: CategoryValue,
			Inputs:  []Handle{in("value", "Value", TypeNumber, 0.0)},
			Outputs: []Handle{out("output", "Value", TypeNumber)},
		},
		{
			Key: "boolean", Label: "Boolean", Category: CategoryValue,
			Inputs:  []Handle{in("value", "Value", TypeBoolean, false)},
			Outputs: []Handle{out("output", "Value", TypeBoolean)},
		},
		{
			Key: "color", Label: "Color", Category: CategoryValue,
			Inputs: []Handle{
				inRange("r", "Red", 1, 0, 1),
				inRange("g", "Green", 1, 0, 1),
				inRange("b", "Blue", 1, 0, 1),
				inRange("a", "Alpha", 1, 0, 1),
			},
			Outputs: []Handle{out("output", "Color", TypeColor)},
		},
		{
			Key: "vec2", Label: "Vec2", Category: CategoryValue,
			Inputs: []Handle{
				in("x", "X", TypeNumber, 0.0),
				in("y", "Y", TypeNumber, 0.0),
			},
			Outputs: []Handle{out("output", "Vector", TypeVec2)},
		},
		{
			Key: "vec3", Label: "Vec3", Category: CategoryValue,
			Inputs: []Handle{
				in("x", "X", TypeNumber, 0.0),
				in("y", "Y", TypeNumber, 0.0),
				in("z", "Z", TypeNumber, 0.0),
			},
			Outputs: []Handle{out("output", "Vector", TypeVec3)},
		},
		{
			Key: "vec4", Label: "Vec4", Category: CategoryValue,
			Inputs: []Handle{
				in("x", "X", TypeNumber, 0.0),
				in("y", "Y", TypeNumber, 0.0),
				in("z", "Z", TypeNumber, 0.0),
				in("w", "W", TypeNumber, 0.0),
			},
			Outputs: []Handle{out("output", "Vector", TypeVec4)},
		},
		{
			Key: "split", Label: "Split", Category: CategoryValue,
			Inputs: []Handle{in("input", "Input", TypeAny, nil)},
			Outputs: []Handle{
				out("x", "X", TypeNumber),
				out("y", "Y", TypeNumber),
				out("z", "Z", TypeNumber),
				out("w", "W", TypeNumber),
			},
		},
		{
			Key: "time", Label: "Time", Category: CategoryValue,
			Outputs: []Handle{
				out("time", "Time", TypeNumber),
				out("delta", "Delta", TypeNumber),
				out("frame", "Frame", TypeNumber),
			},
		},
		{
			Key: "resolution", Label: "Resolution", Category: CategoryValue,
			Outputs: []Handle{
				out("width", "Width", TypeNumber),
				out("height", "Height", TypeNumber),
				out("aspect", "Aspect", TypeNumber),
			},
		},

		// --- Math ---
		mathBinary("add", "Add", 0),
		mathBinary("subtract", "Subtract", 0),
		mathBinary("multiply", "Multiply", 1),
		mathBinary("divide", "Divide", 1),
		mathBinary("modulo", "Modulo", 1),
		mathBinary("power", "Power", 1),
		mathBinary("min", "Min", 0),
		mathBinary("max", "Max", 0),
		mathUnary("abs", "Absolute"),
		mathUnary("negate", "Negate"),
		mathUnary("floor", "Floor"),
		mathUnary("ceil", "Ceil"),
		mathUnary("round", "Round"),
		mathUnary("sqrt", "Square Root"),
		{
			Key: "clamp", Label: "Clamp", Category: CategoryMath,
			Inputs: []Handle{
				in("value", "Value", TypeNumber, 0.0),
				in("min", "Min", TypeNumber, 0.0),
				in("max", "Max", TypeNumber, 1.0),
			},
			Outputs: []Handle{out("result", "Result", TypeNumber)},
		},
		{
			Key: "mapRange", Label: "Map Range", Category: CategoryMath,
			Inputs: []Handle{
				in("value", "Value", TypeNumber, 0.0),
				in("inMin", "In Min", TypeNumber, 0.0),
				in("inMax", "In Max", TypeNumber, 1.0),
				in("outMin", "Out Min", TypeNumber, 0.0),
				in("outMax", "Out Max", TypeNumber, 1.0),
			},
			Outputs: []Handle{out("result", "Result", TypeNumber)},
			Init:    cfg(map[string]any{"clamp": true}),
		},
		{
			Key: "mix", Label: "Mix", Category: CategoryMath,
			Inputs: []Handle{
				in("a", "A", TypeNumber, 0.0),
				in("b", "B", TypeNumber, 1.0),
				inRange("t", "T", 0.5, 0, 1),
			},
			Outputs: []Handle{out("result", "Result", TypeNumber)},
		},

		// --- Logic ---
		logicBinary("and", "And"),
		logicBinary("or", "Or"),
		logicBinary("xor", "Xor"),
		{
			Key: "not", Label: "Not", Category: CategoryLogic,
			Inputs:  []Handle{in("value", "Value", TypeBoolean, false)},
			Outputs: []Handle{out("result", "Result", TypeBoolean)},
		},
		{
			Key: "compare", Label: "Compare", Category: CategoryLogic,
			Inputs: []Handle{
				in("a", "A", TypeNumber, 0.0),
				in("b", "B", TypeNumber, 0.0),
			},
			Outputs: []Handle{out("result", "Result", TypeBoolean)},
			Init:    cfg(map[string]any{"op": "gt"}),
		},
		{
			Key: "select", Label: "Select", Category: CategoryLogic,
			Inputs: []Handle{
				in("condition", "Condition", TypeBoolean, false),
				in("ifTrue", "If True", TypeAny, nil),
				in("ifFalse", "If False", TypeAny, nil),
			},
			Outputs: []Handle{out("result", "Result", TypeAny)},
		},
		{
			Key: "gate", Label: "Gate", Category: CategoryLogic,
			Inputs: []Handle{
				in("value", "Value", TypeNumber, 0.0),
				in("open", "Open", TypeBoolean, false),
			},
			Outputs: []Handle{out("result", "Result", TypeNumber)},
		},

		// --- Utility ---
		{
			Key: "accumulator", Label: "Accumulator", Category: CategoryUtility,
			Inputs: []Handle{
				in("rate", "Rate", TypeNumber, 1.0),
				in("min", "Min", TypeNumber, 0.0),
				in("max", "Max", TypeNumber, 1.0),
				in("reset", "Reset", TypeBoolean, false),
			},
			Outputs: []Handle{out("output", "Value", TypeNumber)},
			Init:    cfg(map[string]any{"wrapMode": "none"}),
		},
		{
			Key: "oscillator", Label: "Oscillator", Category: CategoryUtility,
			Inputs: []Handle{
				in("frequency", "Frequency", TypeNumber, 1.0),
				in("amplitude", "Amplitude", TypeNumber, 1.0),
				in("offset", "Offset", TypeNumber, 0.0),
				in("phase", "Phase", TypeNumber, 0.0),
				inRange("pulseWidth", "Pulse Width", 0.5, 0, 1),
			},
			Outputs: []Handle{out("output", "Value", TypeNumber)},
			Init:    cfg(map[string]any{"waveform": "sine"}),
		},
		{
			Key: "delay", Label: "Delay", Category: CategoryUtility,
			Inputs: []Handle{
				in("value", "Value", TypeNumber, 0.0),
				in("time", "Time", TypeNumber, 0.5),
			},
			Outputs: []Handle{out("output", "Value", TypeNumber)},
		},
		{
			Key: "trigger", Label: "Trigger", Category: CategoryUtility,
			Inputs: []Handle{
				in("value", "Value", TypeNumber, 0.0),
				in("threshold", "Threshold", TypeNumber, 0.5),
			},
			Outputs: []Handle{out("output", "Fired", TypeBoolean)},
			Init:    cfg(map[string]any{"edge": "rising"}),
		},
		{
			Key: "hold", Label: "Hold", Category: CategoryUtility,
			Inputs: []Handle{
				in("value", "Value", TypeNumber, 0.0),
				in("trigger", "Trigger", TypeBoolean, false),
				in("duration", "Duration", TypeNumber, 0.5),
			},
			Outputs: []Handle{
				out("output", "Value", TypeNumber),
				out("active", "Active", TypeBoolean),
			},
		},
		{
			Key: "smooth", Label: "Smooth", Category: CategoryUtility,
			Inputs: []Handle{
				in("value", "Value", TypeNumber, 0.0),
				in("duration", "Duration", TypeNumber, 0.3),
			},
			Outputs: []Handle{out("output", "Value", TypeNumber)},
			Init:    cfg(map[string]any{"easing": "outQuad"}),
		},
		{
			Key: "random", Label: "Random", Category: CategoryUtility,
			Inputs: []Handle{
				in("min", "Min", TypeNumber, 0.0),
				in("max", "Max", TypeNumber, 1.0),
				in("trigger", "Trigger", TypeBoolean, false),
			},
			Outputs: []Handle{out("output", "Value", TypeNumber)},
			Init:    cfg(map[string]any{"mode": "frame"}),
		},
		{
			Key: "expression", Label: "Expression", Category: CategoryUtility,
			Inputs: []Handle{
				in("a", "A", TypeNumber, 0.0),
				in("b", "B", TypeNumber, 0.0),
				in("c", "C", TypeNumber, 0.0),
				in("d", "D", TypeNumber, 0.0),
			},
			Outputs: []Handle{out("output", "Value", TypeNumber)},
			Init:    cfg(map[string]any{"expression": "a"}),
		},

		// --- Audio ---
		{
			Key: "audioLevel", Label: "Audio Level", Category: CategoryAudio,
			Inputs:  []Handle{inRange("gain", "Gain", 1, 0, 4)},
			Outputs: []Handle{out("output", "Level", TypeNumber)},
		},
		{
			Key: "audioBand", Label: "Audio Band", Category: CategoryAudio,
			Inputs: []Handle{
				inRange("from", "From", 0, 0, NumBands-1),
				inRange("to", "To", 7, 0, NumBands-1),
				inRange("gain", "Gain", 1, 0, 4),
			},
			Outputs: []Handle{out("output", "Level", TypeNumber)},
		},
		{
			Key: "audioBeat", Label: "Audio Beat", Category: CategoryAudio,
			Outputs: []Handle{
				out("beat", "Beat", TypeBoolean),
				out("bpm", "BPM", TypeNumber),
			},
		},
		{
			Key: "audioSpectrum", Label: "Audio Spectrum", Category: CategoryAudio,
			Outputs: []Handle{out("output", "Spectrum", TypeFFT)},
		},

		// --- Shader ---
		{
			Key: "shader", Label: "Shader", Category: CategoryShader,
			Inputs: []Handle{
				in("inputImage", "Image", TypeImage, nil),
				in("inputImage2", "Image 2", TypeImage, nil),
				inRange("amount", "Amount", 1, 0, 2),
				in("speed", "Speed", TypeNumber, 1.0),
				in("tint", "Tint", TypeColor, Color{1, 1, 1, 1}),
				in("center", "Center", TypeVec2, Vec2{0.5, 0.5}),
			},
			Outputs: []Handle{out("output", "Image", TypeImage)},
			Init:    shaderInit(passthroughShaderSrc),
		},
		{
			Key: "shaderBlur", Label: "Blur", Category: CategoryShader,
			Inputs: []Handle{
				in("inputImage", "Image", TypeImage, nil),
				inRange("amount", "Amount", 4, 0, 32),
			},
			Outputs: []Handle{out("output", "Image", TypeImage)},
			Init:    shaderInit(blurShaderSrc),
		},
		{
			Key: "shaderColorize", Label: "Colorize", Category: CategoryShader,
			Inputs: []Handle{
				in("inputImage", "Image", TypeImage, nil),
				in("tint", "Tint", TypeColor, Color{1, 0.2, 0.6, 1}),
				inRange("amount", "Amount", 1, 0, 1),
			},
			Outputs: []Handle{out("output", "Image", TypeImage)},
			Init:    shaderInit(colorizeShaderSrc),
		},
		{
			Key: "shaderWave", Label: "Wave", Category: CategoryShader,
			Inputs: []Handle{
				in("inputImage", "Image", TypeImage, nil),
				inRange("amount", "Amount", 0.02, 0, 0.2),
				in("speed", "Speed", TypeNumber, 1.0),
				in("center", "Center", TypeVec2, Vec2{0.5, 0.5}),
			},
			Outputs: []Handle{out("output", "Image", TypeImage)},
			Init:    shaderInit(waveShaderSrc),
		},
		{
			Key: "shaderNoise", Label: "Noise", Category: CategoryShader,
			Inputs: []Handle{
				inRange("scale", "Scale", 8, 1, 64),
				in("speed", "Speed", TypeNumber, 1.0),
			},
			Outputs: []Handle{out("output", "Image", TypeImage)},
			Init:    shaderInit(noiseShaderSrc),
		},

		// --- Output ---
		{
			Key: "output", Label: "Output", Category: CategoryOutput,
			Inputs: []Handle{
				req(in("image", "Image", TypeImage, nil)),
			},
			Outputs: []Handle{out("context", "Context", TypeRenderContext)},
			Init: func(n *Node) {
				n.Surface = DefaultSurface
				n.Config["width"] = 1280.0
				n.Config["height"] = 720.0
				n.Config["fps"] = 60.0
			},
		},
	}
}

func mathBinary(key, label string, bDefault float64) TypeSpec {
	return TypeSpec{
		Key: key, Label: label, Category: CategoryMath,
		Inputs: []Handle{
			in("a", "A", TypeNumber, 0.0),
			in("b", "B", TypeNumber, bDefault),
		},
		Outputs: []Handle{out("result", "Result", TypeNumber)},
	}
}

func mathUnary(key, label string) TypeSpec {
	return TypeSpec{
		Key: key, Label: label, Category: CategoryMath,
		Inputs:  []Handle{in("value", "Value", TypeNumber, 0.0)},
		Outputs: []Handle{out("result", "Result", TypeNumber)},
	}
}

func logicBinary(key, label string) TypeSpec {
	return TypeSpec{
		Key: key, Label: label, Category: CategoryLogic,
		Inputs: []Handle{
			in("a", "A", TypeBoolean, false),
			in("b", "B", TypeBoolean, false),
		},
		Outputs: []Handle{out("result", "Result", TypeBoolean)},
	}
}
