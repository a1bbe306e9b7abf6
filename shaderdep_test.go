package patchbay

import "testing"

func planOrderIndex(t *testing.T, plan ShaderPlan, id NodeID) int {
	t.Helper()
	for i, got := range plan.Order {
		if got == id {
			return i
		}
	}
	t.Fatalf("node %s missing from plan order %v", id, plan.Order)
	return -1
}

func TestResolveShaderPlanChain(t *testing.T) {
	g := newTestGraph(t)
	noise := mustAddNode(t, g, "shaderNoise")
	wave := mustAddNode(t, g, "shaderWave")
	colorize := mustAddNode(t, g, "shaderColorize")
	out := mustAddNode(t, g, "output")
	mustConnect(t, g, noise, "output", wave, "inputImage")
	mustConnect(t, g, wave, "output", colorize, "inputImage")
	mustConnect(t, g, colorize, "output", out, "image")

	plan := ResolveShaderPlan(g, DefaultSurface, nil)
	if plan.Cyclic {
		t.Fatal("chain reported cyclic")
	}
	want := []NodeID{noise.ID, wave.ID, colorize.ID}
	if len(plan.Order) != len(want) {
		t.Fatalf("order = %v, want %v", plan.Order, want)
	}
	for i, id := range want {
		if plan.Order[i] != id {
			t.Errorf("order[%d] = %s, want %s", i, plan.Order[i], id)
		}
	}
	if len(plan.Bindings) != 2 {
		t.Fatalf("bindings = %d, want 2", len(plan.Bindings))
	}
	if b := plan.Bindings[0]; b.Target != wave.ID || b.Input != "inputImage" || b.Source != noise.ID {
		t.Errorf("binding[0] = %+v", b)
	}
	if b := plan.Bindings[1]; b.Target != colorize.ID || b.Source != wave.ID {
		t.Errorf("binding[1] = %+v", b)
	}
	if plan.Final != colorize.ID {
		t.Errorf("final = %s, want %s", plan.Final, colorize.ID)
	}
}

func TestResolveShaderPlanFanOut(t *testing.T) {
	g := newTestGraph(t)
	noise := mustAddNode(t, g, "shaderNoise")
	wave := mustAddNode(t, g, "shaderWave")
	blur := mustAddNode(t, g, "shaderBlur")
	mustConnect(t, g, noise, "output", wave, "inputImage")
	mustConnect(t, g, noise, "output", blur, "inputImage")

	plan := ResolveShaderPlan(g, DefaultSurface, nil)
	ni := planOrderIndex(t, plan, noise.ID)
	if wi := planOrderIndex(t, plan, wave.ID); wi < ni {
		t.Error("wave ordered before its noise source")
	}
	if bi := planOrderIndex(t, plan, blur.ID); bi < ni {
		t.Error("blur ordered before its noise source")
	}
	sources := 0
	for _, b := range plan.Bindings {
		if b.Source == noise.ID {
			sources++
		}
	}
	if sources != 2 {
		t.Errorf("bindings from shared source = %d, want 2", sources)
	}
}

func TestResolveShaderPlanFanIn(t *testing.T) {
	g := newTestGraph(t)
	noise := mustAddNode(t, g, "shaderNoise")
	wave := mustAddNode(t, g, "shaderWave")
	blur := mustAddNode(t, g, "shaderBlur")
	merge := mustAddNode(t, g, "shader")
	mustConnect(t, g, noise, "output", wave, "inputImage")
	mustConnect(t, g, noise, "output", blur, "inputImage")
	mustConnect(t, g, wave, "output", merge, "inputImage")
	mustConnect(t, g, blur, "output", merge, "inputImage2")

	plan := ResolveShaderPlan(g, DefaultSurface, nil)
	if plan.Cyclic {
		t.Fatal("diamond reported cyclic")
	}
	mi := planOrderIndex(t, plan, merge.ID)
	if mi != len(plan.Order)-1 {
		t.Errorf("merge stage at %d, want last", mi)
	}
	if len(plan.Bindings) != 4 {
		t.Errorf("bindings = %d, want 4", len(plan.Bindings))
	}
}

func TestValueEdgesAreNotStageDependencies(t *testing.T) {
	g := newTestGraph(t)
	osc := mustAddNode(t, g, "oscillator")
	noise := mustAddNode(t, g, "shaderNoise")
	wave := mustAddNode(t, g, "shaderWave")
	mustConnect(t, g, noise, "output", wave, "inputImage")
	mustConnect(t, g, osc, "output", wave, "amount")

	plan := ResolveShaderPlan(g, DefaultSurface, nil)
	for _, id := range plan.Order {
		if id == osc.ID {
			t.Fatal("value node appeared in stage order")
		}
	}
	if len(plan.Bindings) != 1 {
		t.Fatalf("bindings = %d, want only the image edge", len(plan.Bindings))
	}
	if plan.Bindings[0].Input != "inputImage" {
		t.Errorf("binding input = %s", plan.Bindings[0].Input)
	}
}

func TestResolveShaderPlanFeedbackCycle(t *testing.T) {
	g := newTestGraph(t)
	a := mustAddNode(t, g, "shader")
	b := mustAddNode(t, g, "shader")
	mustConnect(t, g, a, "output", b, "inputImage")
	mustConnect(t, g, b, "output", a, "inputImage")

	plan := ResolveShaderPlan(g, DefaultSurface, nil)
	if !plan.Cyclic {
		t.Fatal("mutual feedback not reported cyclic")
	}
	if len(plan.Order) != 2 {
		t.Fatalf("order = %v, want both stages kept", plan.Order)
	}
	if plan.Order[0] != a.ID || plan.Order[1] != b.ID {
		t.Errorf("cyclic order = %v, want insertion order [%s %s]", plan.Order, a.ID, b.ID)
	}
	if len(plan.Bindings) != 2 {
		t.Errorf("bindings = %d, want 2", len(plan.Bindings))
	}
}

func TestResolveShaderPlanScopedBySurface(t *testing.T) {
	g := newTestGraph(t)
	noise := mustAddNode(t, g, "shaderNoise")
	wave := mustAddNode(t, g, "shaderWave")
	out := mustAddNode(t, g, "output")
	mustConnect(t, g, noise, "output", wave, "inputImage")
	mustConnect(t, g, wave, "output", out, "image")

	auxNoise := mustAddNode(t, g, "shaderNoise")
	auxBlur := mustAddNode(t, g, "shaderBlur")
	auxOut := mustAddNode(t, g, "output")
	for _, n := range []*Node{auxNoise, auxBlur, auxOut} {
		if err := g.SetSurface(n.ID, "aux"); err != nil {
			t.Fatalf("SetSurface: %v", err)
		}
	}
	mustConnect(t, g, auxNoise, "output", auxBlur, "inputImage")
	mustConnect(t, g, auxBlur, "output", auxOut, "image")

	main := ResolveShaderPlan(g, DefaultSurface, nil)
	if len(main.Order) != 2 || main.Final != wave.ID {
		t.Errorf("default plan order %v final %s", main.Order, main.Final)
	}
	aux := ResolveShaderPlan(g, "aux", nil)
	if len(aux.Order) != 2 || aux.Final != auxBlur.ID {
		t.Errorf("aux plan order %v final %s", aux.Order, aux.Final)
	}
	for _, id := range aux.Order {
		if id == noise.ID || id == wave.ID {
			t.Error("default stage leaked into aux plan")
		}
	}
}

func TestFinalStageEmptyWithoutOutputWiring(t *testing.T) {
	g := newTestGraph(t)
	noise := mustAddNode(t, g, "shaderNoise")
	wave := mustAddNode(t, g, "shaderWave")
	mustAddNode(t, g, "output")
	mustConnect(t, g, noise, "output", wave, "inputImage")

	plan := ResolveShaderPlan(g, DefaultSurface, nil)
	if plan.Final != "" {
		t.Errorf("final = %s, want empty until output is wired", plan.Final)
	}
}

func TestResolveShaderPlanUnknownSurface(t *testing.T) {
	g := newTestGraph(t)
	mustAddNode(t, g, "shaderNoise")

	plan := ResolveShaderPlan(g, "nowhere", nil)
	if len(plan.Order) != 0 || len(plan.Bindings) != 0 || plan.Final != "" || plan.Cyclic {
		t.Errorf("plan for unknown surface = %+v, want empty", plan)
	}
}

func TestSurfacesFirstAppearanceOrder(t *testing.T) {
	g := newTestGraph(t)
	mustAddNode(t, g, "oscillator")
	mustAddNode(t, g, "shaderNoise")
	aux := mustAddNode(t, g, "shaderWave")
	if err := g.SetSurface(aux.ID, "aux"); err != nil {
		t.Fatalf("SetSurface: %v", err)
	}
	mustAddNode(t, g, "output")

	got := Surfaces(g)
	want := []string{DefaultSurface, "aux"}
	if len(got) != len(want) {
		t.Fatalf("Surfaces = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Surfaces[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
