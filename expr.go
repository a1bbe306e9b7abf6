package patchbay

import (
	"fmt"
	"math"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// exprProgram is a compiled formula. The source text is parsed once into
// an expression tree and evaluated against fresh variables every frame;
// user text is never assembled into code.
type exprProgram struct {
	expr hcl.Expression
}

// compileExpression parses formula text into an evaluable program.
func compileExpression(src string) (*exprProgram, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("patchbay: expression: %s", diags.Error())
	}
	return &exprProgram{expr: expr}, nil
}

// Eval runs the program with the given variables. Comparison results come
// back as 1/0 so formulas like "a > b" compose with arithmetic ones.
func (p *exprProgram) Eval(vars map[string]float64) (float64, error) {
	vals := make(map[string]cty.Value, len(vars)+2)
	for k, v := range vars {
		vals[k] = cty.NumberFloatVal(v)
	}
	vals["pi"] = cty.NumberFloatVal(math.Pi)
	vals["tau"] = cty.NumberFloatVal(2 * math.Pi)

	out, diags := p.expr.Value(&hcl.EvalContext{
		Variables: vals,
		Functions: exprFuncs,
	})
	if diags.HasErrors() {
		return 0, fmt.Errorf("patchbay: expression: %s", diags.Error())
	}
	if out.IsNull() || !out.IsKnown() {
		return 0, fmt.Errorf("patchbay: expression produced no value")
	}
	switch out.Type() {
	case cty.Number:
		f, _ := out.AsBigFloat().Float64()
		return f, nil
	case cty.Bool:
		if out.True() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("patchbay: expression produced %s, want number", out.Type().FriendlyName())
}

// unaryMathFunc lifts a float function into the expression function table.
func unaryMathFunc(fn func(float64) float64) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "x", Type: cty.Number},
		},
		Type: function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			x, _ := args[0].AsBigFloat().Float64()
			return cty.NumberFloatVal(fn(x)), nil
		},
	})
}

var clampFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "x", Type: cty.Number},
		{Name: "min", Type: cty.Number},
		{Name: "max", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		x, _ := args[0].AsBigFloat().Float64()
		lo, _ := args[1].AsBigFloat().Float64()
		hi, _ := args[2].AsBigFloat().Float64()
		return cty.NumberFloatVal(clamp(x, lo, hi)), nil
	},
})

var mixFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "a", Type: cty.Number},
		{Name: "b", Type: cty.Number},
		{Name: "t", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		a, _ := args[0].AsBigFloat().Float64()
		b, _ := args[1].AsBigFloat().Float64()
		t, _ := args[2].AsBigFloat().Float64()
		return cty.NumberFloatVal(a + t*(b-a)), nil
	},
})

// exprFuncs is the fixed function whitelist available to formulas.
// Nothing outside this table is callable.
var exprFuncs = map[string]function.Function{
	"abs":   stdlib.AbsoluteFunc,
	"min":   stdlib.MinFunc,
	"max":   stdlib.MaxFunc,
	"floor": stdlib.FloorFunc,
	"ceil":  stdlib.CeilFunc,
	"pow":   stdlib.PowFunc,
	"mod":   stdlib.ModuloFunc,
	"round": unaryMathFunc(math.Round),
	"sqrt":  unaryMathFunc(math.Sqrt),
	"sin":   unaryMathFunc(math.Sin),
	"cos":   unaryMathFunc(math.Cos),
	"tan":   unaryMathFunc(math.Tan),
	"exp":   unaryMathFunc(math.Exp),
	"log":   unaryMathFunc(math.Log),
	"clamp": clampFunc,
	"mix":   mixFunc,
}
