package patchbay

import (
	"fmt"
	"math"
)

// binaryOps are the two-operand math nodes, keyed by type key. Operands
// default so that a disconnected b behaves as the operation's identity
// where one exists.
var binaryOps = map[string]func(a, b float64) float64{
	"add":      func(a, b float64) float64 { return a + b },
	"subtract": func(a, b float64) float64 { return a - b },
	"multiply": func(a, b float64) float64 { return a * b },
	"divide":   func(a, b float64) float64 { return a / b },
	"modulo":   math.Mod,
	"power":    math.Pow,
	"min":      math.Min,
	"max":      math.Max,
}

// unaryOps are the one-operand math nodes.
var unaryOps = map[string]func(v float64) float64{
	"abs":    math.Abs,
	"negate": func(v float64) float64 { return -v },
	"floor":  math.Floor,
	"ceil":   math.Ceil,
	"round":  math.Round,
	"sqrt":   math.Sqrt,
}

// evalMath handles the pure numeric nodes.
func evalMath(n *Node, in Inputs, fc FrameContext) (Outputs, error) {
	if op, ok := binaryOps[n.TypeKey]; ok {
		b := 0.0
		if n.TypeKey == "multiply" || n.TypeKey == "divide" || n.TypeKey == "power" {
			b = 1
		}
		return Outputs{"result": op(in.Number("a", 0), in.Number("b", b))}, nil
	}
	if op, ok := unaryOps[n.TypeKey]; ok {
		return Outputs{"result": op(in.Number("value", 0))}, nil
	}

	switch n.TypeKey {
	case "clamp":
		v := in.Number("value", 0)
		lo := in.Number("min", 0)
		hi := in.Number("max", 1)
		return Outputs{"result": clamp(v, lo, hi)}, nil

	case "mapRange":
		v := in.Number("value", 0)
		inLo := in.Number("inMin", 0)
		inHi := in.Number("inMax", 1)
		outLo := in.Number("outMin", 0)
		outHi := in.Number("outMax", 1)
		t := 0.0
		if inHi != inLo {
			t = (v - inLo) / (inHi - inLo)
		}
		if n.ConfigBool("clamp", true) {
			t = clamp(t, 0, 1)
		}
		return Outputs{"result": outLo + t*(outHi-outLo)}, nil

	case "mix":
		a := in.Number("a", 0)
		b := in.Number("b", 1)
		t := in.Number("t", 0.5)
		return Outputs{"result": a + t*(b-a)}, nil
	}
	return nil, fmt.Errorf("patchbay: unknown math node %q", n.TypeKey)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
