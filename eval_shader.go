package patchbay

// evalShader covers every shader stage type. The CPU side of a shader
// node is thin: it claims its texture by emitting an ImageRef under the
// canonical "output" handle and mirrors its non-image inputs into the
// outputs so the reconciler can push them as uniforms without re-walking
// edges. The actual pixels are the render collaborator's business.
func evalShader(n *Node, in Inputs, fc FrameContext) (Outputs, error) {
	out := Outputs{"output": ImageRef{Node: n.ID}}
	for _, h := range n.Inputs {
		if h.Type == TypeImage {
			continue
		}
		if v, ok := in[h.ID]; ok {
			out[h.ID] = v
		}
	}
	return out, nil
}

// evalOutput terminates a chain on a render surface. The context value it
// emits names the surface so downstream tooling can tell endpoints apart.
func evalOutput(n *Node, in Inputs, fc FrameContext) (Outputs, error) {
	surface := n.Surface
	if surface == "" {
		surface = DefaultSurface
	}
	return Outputs{"context": RenderContext{Surface: surface}}, nil
}
