package patchbay

import (
	"fmt"
	"math/rand"
)

// FrameContext carries the ambient values of one tick into evaluators.
// The caller owns the clock: Time and Delta are whatever the hosting loop
// measured, which lets headless renders run a fixed step.
type FrameContext struct {
	Time  float64 // seconds since the patch started
	Delta float64 // seconds since the previous tick
	Frame uint64  // tick counter

	Width, Height int // active render size in pixels

	Audio AudioFeatures // this tick's audio analysis snapshot
	Rand  *rand.Rand    // source for random nodes; nil disables them
}

// Outputs holds the values a node produced this frame, keyed by output
// handle id. Shader evaluators additionally mirror their uniform inputs
// here so the reconciler can push them without re-resolving edges.
type Outputs map[HandleID]any

// Inputs holds a node's resolved input values for one frame. Missing keys
// mean the input had neither an edge, a stored value, nor a default; the
// typed getters return their fallback in that case.
type Inputs map[HandleID]any

// Has reports whether the input resolved to any value at all.
func (in Inputs) Has(id HandleID) bool {
	_, ok := in[id]
	return ok
}

// Number reads a numeric input. Booleans coerce to 0/1 so boolean wires
// feeding any-typed inputs behave arithmetically.
func (in Inputs) Number(id HandleID, fallback float64) float64 {
	v, ok := toNumber(in[id])
	if !ok {
		return fallback
	}
	return v
}

// Bool reads a boolean input. Numbers coerce with the nonzero rule.
func (in Inputs) Bool(id HandleID, fallback bool) bool {
	switch v := in[id].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return fallback
	}
}

// Vec2 reads a 2D vector input, accepting arrays of length >= 2.
func (in Inputs) Vec2(id HandleID, fallback Vec2) Vec2 {
	switch v := in[id].(type) {
	case Vec2:
		return v
	case []float64:
		if len(v) >= 2 {
			return Vec2{v[0], v[1]}
		}
	}
	return fallback
}

// Vec3 reads a 3D vector input, accepting arrays of length >= 3.
func (in Inputs) Vec3(id HandleID, fallback Vec3) Vec3 {
	switch v := in[id].(type) {
	case Vec3:
		return v
	case []float64:
		if len(v) >= 3 {
			return Vec3{v[0], v[1], v[2]}
		}
	}
	return fallback
}

// Vec4 reads a 4D vector input, accepting colors and arrays of length >= 4.
func (in Inputs) Vec4(id HandleID, fallback Vec4) Vec4 {
	switch v := in[id].(type) {
	case Vec4:
		return v
	case Color:
		return v.Vec4()
	case []float64:
		if len(v) >= 4 {
			return Vec4{v[0], v[1], v[2], v[3]}
		}
	}
	return fallback
}

// Color reads a color input, accepting vec4 values.
func (in Inputs) Color(id HandleID, fallback Color) Color {
	switch v := in[id].(type) {
	case Color:
		return v
	case Vec4:
		return v.Color()
	}
	return fallback
}

// Image reads an image input.
func (in Inputs) Image(id HandleID) (ImageRef, bool) {
	v, ok := in[id].(ImageRef)
	return v, ok
}

// Audio reads an audio features input.
func (in Inputs) Audio(id HandleID) (AudioFeatures, bool) {
	v, ok := in[id].(AudioFeatures)
	return v, ok
}

// Array reads a numeric array input, flattening vectors into their
// component slices.
func (in Inputs) Array(id HandleID) []float64 {
	switch v := in[id].(type) {
	case []float64:
		return v
	case Vec2:
		return []float64{v.X, v.Y}
	case Vec3:
		return []float64{v.X, v.Y, v.Z}
	case Vec4:
		return []float64{v.X, v.Y, v.Z, v.W}
	default:
		return nil
	}
}

// toNumber coerces a dynamic value to float64. JSON decoding and user edits
// can deliver several numeric shapes; evaluation flattens them all here.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// evalFunc evaluates one node for one frame. A nil Outputs with nil error
// is valid for sink categories that produce nothing.
type evalFunc func(n *Node, in Inputs, fc FrameContext) (Outputs, error)

// evaluators dispatches on node category. Concrete operations within a
// category dispatch again on the node's type key inside the category file.
var evaluators = map[Category]evalFunc{
	CategoryValue:   evalValue,
	CategoryMath:    evalMath,
	CategoryLogic:   evalLogic,
	CategoryUtility: evalUtility,
	CategoryAudio:   evalAudio,
	CategoryShader:  evalShader,
	CategoryOutput:  evalOutput,
}

// evalNode runs a node's evaluator with panic containment. A panicking
// evaluator is reported as an ordinary node error so one broken node can
// never take down the frame.
func evalNode(n *Node, in Inputs, fc FrameContext) (out Outputs, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("patchbay: %s evaluator panicked: %v", n.TypeKey, r)
		}
	}()
	fn := evaluators[n.Category]
	if fn == nil {
		return nil, fmt.Errorf("patchbay: no evaluator for category %s", n.Category)
	}
	return fn(n, in, fc)
}
