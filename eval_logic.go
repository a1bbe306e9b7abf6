package patchbay

import "fmt"

// compareOps are the comparison modes of the compare node. Equality uses
// a small tolerance so chained float math still compares usefully.
var compareOps = map[string]func(a, b float64) bool{
	"eq": func(a, b float64) bool { return abs64(a-b) < 1e-9 },
	"ne": func(a, b float64) bool { return abs64(a-b) >= 1e-9 },
	"lt": func(a, b float64) bool { return a < b },
	"le": func(a, b float64) bool { return a <= b },
	"gt": func(a, b float64) bool { return a > b },
	"ge": func(a, b float64) bool { return a >= b },
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// evalLogic handles boolean combinators, comparison, and routing.
func evalLogic(n *Node, in Inputs, fc FrameContext) (Outputs, error) {
	switch n.TypeKey {
	case "and":
		return Outputs{"result": in.Bool("a", false) && in.Bool("b", false)}, nil

	case "or":
		return Outputs{"result": in.Bool("a", false) || in.Bool("b", false)}, nil

	case "xor":
		return Outputs{"result": in.Bool("a", false) != in.Bool("b", false)}, nil

	case "not":
		return Outputs{"result": !in.Bool("value", false)}, nil

	case "compare":
		op, ok := compareOps[n.ConfigString("op", "gt")]
		if !ok {
			return nil, fmt.Errorf("patchbay: compare node: unknown op %q", n.ConfigString("op", ""))
		}
		return Outputs{"result": op(in.Number("a", 0), in.Number("b", 0))}, nil

	case "select":
		if in.Bool("condition", false) {
			return Outputs{"result": in["ifTrue"]}, nil
		}
		return Outputs{"result": in["ifFalse"]}, nil

	case "gate":
		if in.Bool("open", false) {
			return Outputs{"result": in.Number("value", 0)}, nil
		}
		return Outputs{"result": 0.0}, nil
	}
	return nil, fmt.Errorf("patchbay: unknown logic node %q", n.TypeKey)
}
