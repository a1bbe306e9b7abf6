package patchbay

// --- Built-in stage sources ---
// Kage sources for the built-in shader node types, seeded into each node's
// config so saved patches stay self-contained. All shaders use
// //kage:unit pixels as required by Ebitengine. Ebitengine uses
// premultiplied alpha; shaders un-premultiply before color math and
// re-premultiply output where needed. The renderer supplies a Time uniform
// every frame; the remaining uniforms mirror the node's input handles.

const passthroughShaderSrc = `//kage:unit pixels
package main

var Amount float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	return imageSrc0At(src) * Amount
}
`

const blurShaderSrc = `//kage:unit pixels
package main

var Amount float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	if Amount < 0.5 {
		return imageSrc0At(src)
	}
	step := Amount / 2.0
	var sum vec4
	for y := -2; y <= 2; y++ {
		for x := -2; x <= 2; x++ {
			sum += imageSrc0At(src + vec2(float(x), float(y))*step)
		}
	}
	return sum / 25.0
}
`

const colorizeShaderSrc = `//kage:unit pixels
package main

var Amount float
var Tint vec4

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	if c.a > 0 {
		c.rgb /= c.a
	}
	lum := 0.299*c.r + 0.587*c.g + 0.114*c.b
	tinted := vec3(Tint.r*lum, Tint.g*lum, Tint.b*lum)
	rgb := mix(c.rgb, tinted, clamp(Amount, 0, 1))
	return vec4(rgb*c.a, c.a)
}
`

const waveShaderSrc = `//kage:unit pixels
package main

var Time float
var Amount float
var Speed float
var Center vec2

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	size := imageSrc0Size()
	p := (src - imageSrc0Origin()) / size
	d := distance(p, Center)
	if d <= 0 {
		return imageSrc0At(src)
	}
	dir := (p - Center) / d
	off := dir * sin(d*40.0-Time*Speed*4.0) * Amount
	return imageSrc0At(src + off*size)
}
`

const noiseShaderSrc = `//kage:unit pixels
package main

var Time float
var Scale float
var Speed float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	cell := floor(dst.xy / max(Scale, 1.0))
	n := fract(sin(dot(cell, vec2(12.9898, 78.233))+Time*Speed) * 43758.5453)
	return vec4(n, n, n, 1)
}
`
