package patchbay

// NodeID uniquely identifies a node within a Graph.
type NodeID string

// EdgeID uniquely identifies an edge within a Graph.
type EdgeID string

// HandleID identifies an input or output slot on a node. Handle ids are
// unique per node side (inputs and outputs are separate namespaces), not
// globally.
type HandleID string

// Category groups node types by evaluator family. Evaluation dispatches on
// the category; the type key selects the concrete operation within it.
type Category uint8

const (
	CategoryValue   Category = iota // constant sources and pack/unpack helpers
	CategoryMath                    // pure numeric operations
	CategoryLogic                   // boolean and comparison operations
	CategoryUtility                 // stateful utilities (accumulator, oscillator, delay, ...)
	CategoryAudio                   // audio feature extraction from the frame's audio snapshot
	CategoryShader                  // GPU compositing stages (uniform forwarding only on CPU)
	CategoryOutput                  // render surface endpoints
)

// String returns the lowercase category name used in logs and persistence.
func (c Category) String() string {
	switch c {
	case CategoryValue:
		return "value"
	case CategoryMath:
		return "math"
	case CategoryLogic:
		return "logic"
	case CategoryUtility:
		return "utility"
	case CategoryAudio:
		return "audio"
	case CategoryShader:
		return "shader"
	case CategoryOutput:
		return "output"
	default:
		return "unknown"
	}
}

// DataType classifies the values a handle produces or accepts.
type DataType uint8

const (
	TypeAny           DataType = iota // wildcard: connects to everything
	TypeNumber                        // float64
	TypeBoolean                       // bool
	TypeVec2                          // Vec2
	TypeVec3                          // Vec3
	TypeVec4                          // Vec4
	TypeColor                         // Color (RGBA, components in [0, 1])
	TypeImage                         // ImageRef (GPU-side texture, identified by producing node)
	TypeAudio                         // AudioFeatures snapshot
	TypeFFT                           // []float64 frequency bands
	TypeArray                         // []float64
	TypeRenderContext                 // RenderContext (surface endpoint marker)

	numDataTypes
)

// dataTypeNames maps DataType to the wire name used in persisted patches.
var dataTypeNames = [numDataTypes]string{
	"any", "number", "boolean", "vec2", "vec3", "vec4",
	"color", "image", "audio", "fft", "array", "renderContext",
}

// String returns the wire name of the data type.
func (t DataType) String() string {
	if t >= numDataTypes {
		return "unknown"
	}
	return dataTypeNames[t]
}

// ParseDataType maps a wire name back to its DataType.
// The second result is false for unrecognized names.
func ParseDataType(name string) (DataType, bool) {
	for i, n := range dataTypeNames {
		if n == name {
			return DataType(i), true
		}
	}
	return TypeAny, false
}

// acceptMask returns the set of types this type accepts as a bitmask.
// TypeAny accepts everything; every type accepts TypeAny and itself.
func (t DataType) acceptMask() uint16 {
	const all = 1<<numDataTypes - 1
	switch t {
	case TypeAny:
		return all
	case TypeNumber:
		return 1<<TypeNumber | 1<<TypeAny
	case TypeBoolean:
		return 1<<TypeBoolean | 1<<TypeAny
	case TypeVec2:
		return 1<<TypeVec2 | 1<<TypeArray | 1<<TypeAny
	case TypeVec3:
		return 1<<TypeVec3 | 1<<TypeArray | 1<<TypeAny
	case TypeVec4:
		return 1<<TypeVec4 | 1<<TypeColor | 1<<TypeArray | 1<<TypeAny
	case TypeColor:
		return 1<<TypeColor | 1<<TypeVec4 | 1<<TypeAny
	case TypeImage:
		return 1<<TypeImage | 1<<TypeAny
	case TypeAudio:
		return 1<<TypeAudio | 1<<TypeAny
	case TypeFFT:
		return 1<<TypeFFT | 1<<TypeArray | 1<<TypeAny
	case TypeArray:
		return 1<<TypeArray | 1<<TypeAny
	case TypeRenderContext:
		return 1<<TypeRenderContext | 1<<TypeAny
	default:
		return 1 << TypeAny
	}
}

// Accepts reports whether this type accepts a connection carrying other.
func (t DataType) Accepts(other DataType) bool {
	return t.acceptMask()&(1<<other) != 0
}

// Compatible reports whether two handle types may be wired together.
// Acceptance is a symmetric OR: either side accepting the other is enough.
func Compatible(a, b DataType) bool {
	return a.Accepts(b) || b.Accepts(a)
}

// Vec2 is a 2D vector. Also used for editor node positions.
type Vec2 struct {
	X, Y float64
}

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float64
}

// Vec4 is a 4D vector.
type Vec4 struct {
	X, Y, Z, W float64
}

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// Vec4 converts a color to its vec4 representation (RGBA order).
func (c Color) Vec4() Vec4 {
	return Vec4{c.R, c.G, c.B, c.A}
}

// Color converts a vec4 to a color (XYZW mapped to RGBA).
func (v Vec4) Color() Color {
	return Color{v.X, v.Y, v.Z, v.W}
}

// ImageRef is the value flowing across image-typed edges. The actual pixels
// live on the render collaborator; the core only tracks which node produced
// the texture so downstream bindings can name their source.
type ImageRef struct {
	Node NodeID
}

// RenderContext is the value produced by output nodes. It names the surface
// an output chain terminates on.
type RenderContext struct {
	Surface string
}

// DefaultSurface is the surface shader and output nodes attach to unless
// assigned to another one.
const DefaultSurface = "main"
