package patchbay

import "fmt"

// evalValue handles constant sources, vector packing, and the ambient
// frame taps. All stateless.
func evalValue(n *Node, in Inputs, fc FrameContext) (Outputs, error) {
	switch n.TypeKey {
	case "number":
		return Outputs{"output": in.Number("value", 0)}, nil

	case "boolean":
		return Outputs{"output": in.Bool("value", false)}, nil

	case "color":
		return Outputs{"output": Color{
			R: in.Number("r", 1),
			G: in.Number("g", 1),
			B: in.Number("b", 1),
			A: in.Number("a", 1),
		}}, nil

	case "vec2":
		return Outputs{"output": Vec2{
			X: in.Number("x", 0),
			Y: in.Number("y", 0),
		}}, nil

	case "vec3":
		return Outputs{"output": Vec3{
			X: in.Number("x", 0),
			Y: in.Number("y", 0),
			Z: in.Number("z", 0),
		}}, nil

	case "vec4":
		return Outputs{"output": Vec4{
			X: in.Number("x", 0),
			Y: in.Number("y", 0),
			Z: in.Number("z", 0),
			W: in.Number("w", 0),
		}}, nil

	case "split":
		return splitComponents(in["input"]), nil

	case "time":
		return Outputs{
			"time":  fc.Time,
			"delta": fc.Delta,
			"frame": float64(fc.Frame),
		}, nil

	case "resolution":
		aspect := 1.0
		if fc.Height > 0 {
			aspect = float64(fc.Width) / float64(fc.Height)
		}
		return Outputs{
			"width":  float64(fc.Width),
			"height": float64(fc.Height),
			"aspect": aspect,
		}, nil
	}
	return nil, fmt.Errorf("patchbay: unknown value node %q", n.TypeKey)
}

// splitComponents breaks any vector-like value into x/y/z/w. Components a
// shorter value lacks come out zero; plain numbers land in x.
func splitComponents(v any) Outputs {
	var x, y, z, w float64
	switch t := v.(type) {
	case Vec2:
		x, y = t.X, t.Y
	case Vec3:
		x, y, z = t.X, t.Y, t.Z
	case Vec4:
		x, y, z, w = t.X, t.Y, t.Z, t.W
	case Color:
		x, y, z, w = t.R, t.G, t.B, t.A
	case []float64:
		parts := [4]*float64{&x, &y, &z, &w}
		for i := 0; i < len(t) && i < 4; i++ {
			*parts[i] = t[i]
		}
	default:
		if f, ok := toNumber(v); ok {
			x = f
		}
	}
	return Outputs{"x": x, "y": y, "z": z, "w": w}
}
