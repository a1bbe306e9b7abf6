package patchbay

import (
	"math"
	"strings"
	"testing"
)

func evalExpr(t *testing.T, src string, vars map[string]float64) float64 {
	t.Helper()
	prog, err := compileExpression(src)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	v, err := prog.Eval(vars)
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}
	return v
}

func TestExpressionArithmetic(t *testing.T) {
	cases := []struct {
		src  string
		vars map[string]float64
		want float64
	}{
		{"1 + 2 * 3", nil, 7},
		{"(1 + 2) * 3", nil, 9},
		{"a - b", map[string]float64{"a": 10, "b": 4}, 6},
		{"-a", map[string]float64{"a": 3}, -3},
		{"a / b", map[string]float64{"a": 1, "b": 8}, 0.125},
	}
	for _, c := range cases {
		if got := evalExpr(t, c.src, c.vars); got != c.want {
			t.Errorf("%q = %v, want %v", c.src, got, c.want)
		}
	}
}

func TestExpressionConstants(t *testing.T) {
	if got := evalExpr(t, "pi", nil); math.Abs(got-math.Pi) > 1e-12 {
		t.Errorf("pi = %v", got)
	}
	if got := evalExpr(t, "tau / 2", nil); math.Abs(got-math.Pi) > 1e-12 {
		t.Errorf("tau/2 = %v", got)
	}
}

func TestExpressionFunctionWhitelist(t *testing.T) {
	cases := []struct {
		src  string
		want float64
	}{
		{"abs(-4)", 4},
		{"min(3, -1, 2)", -1},
		{"max(3, -1, 2)", 3},
		{"floor(1.9)", 1},
		{"ceil(1.1)", 2},
		{"round(2.4)", 2},
		{"sqrt(144)", 12},
		{"pow(2, 8)", 256},
		{"mod(7, 3)", 1},
		{"sin(0)", 0},
		{"cos(0)", 1},
		{"exp(0)", 1},
		{"clamp(5, 0, 1)", 1},
		{"mix(0, 10, 0.3)", 3},
	}
	for _, c := range cases {
		got := evalExpr(t, c.src, nil)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("%q = %v, want %v", c.src, got, c.want)
		}
	}
}

func TestExpressionSinOfTime(t *testing.T) {
	got := evalExpr(t, "sin(time * tau) * 0.5 + 0.5", map[string]float64{"time": 0.25})
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("sin wave at quarter phase = %v, want 1", got)
	}
}

func TestExpressionComparisonAndConditional(t *testing.T) {
	if got := evalExpr(t, "a > 1 ? 10 : 20", map[string]float64{"a": 2}); got != 10 {
		t.Errorf("true branch = %v, want 10", got)
	}
	if got := evalExpr(t, "a > 1 ? 10 : 20", map[string]float64{"a": 0}); got != 20 {
		t.Errorf("false branch = %v, want 20", got)
	}
	if got := evalExpr(t, "a == a", map[string]float64{"a": 5}); got != 1 {
		t.Errorf("comparison result = %v, want numeric 1", got)
	}
}

func TestExpressionMalformedSourceFailsCompile(t *testing.T) {
	for _, src := range []string{"a +", "((1)", "1 2"} {
		if _, err := compileExpression(src); err == nil {
			t.Errorf("compile(%q) succeeded, want error", src)
		}
	}
}

func TestExpressionUnknownIdentifierFailsEval(t *testing.T) {
	prog, err := compileExpression("q + 1")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := prog.Eval(map[string]float64{"a": 1}); err == nil {
		t.Error("unknown variable evaluated, want error")
	}
}

func TestExpressionFunctionsOutsideWhitelistFail(t *testing.T) {
	prog, err := compileExpression("atan2(1, 1)")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := prog.Eval(nil); err == nil {
		t.Error("non-whitelisted function evaluated, want error")
	}
}

func TestExpressionErrorMentionsPackage(t *testing.T) {
	_, err := compileExpression("a +")
	if err == nil || !strings.HasPrefix(err.Error(), "patchbay: expression") {
		t.Errorf("error = %v, want patchbay: expression prefix", err)
	}
}
