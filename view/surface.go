package view

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/farbridge/patchbay"
)

// Compositor is the Ebitengine-backed render collaborator. Each shader
// stage owns a Kage shader and a persistent output texture sized to its
// surface; Render walks a surface's stage order, binding upstream outputs
// as source images, and composites the final stage into the presented
// frame.
//
// All methods must run on the game loop goroutine, which is where the
// reconciler and window drive them.
type Compositor struct {
	log      *slog.Logger
	pool     imagePool
	surfaces map[string]*surface
	stages   map[patchbay.NodeID]*stage
}

type surface struct {
	width, height int
	fpsLimit      float64
	order         []patchbay.NodeID
	final         patchbay.NodeID

	frame    *ebiten.Image // last composited result
	fallback *ebiten.Image // opaque black stand-in for unbound image inputs
	pixBuf   []byte        // grows to frame size for ReadFrame
}

type stage struct {
	surface  string
	shader   *ebiten.Shader
	declared map[string]bool // uniform names the source declares
	uniforms map[string]any  // persistent boxed uniform values
	vecBufs  map[string][]float32
	sources  map[patchbay.HandleID]patchbay.NodeID
	out      *ebiten.Image
	op       ebiten.DrawRectShaderOptions
}

var _ patchbay.Renderer = (*Compositor)(nil)

// NewCompositor creates an empty compositor. A nil logger silences it.
func NewCompositor(log *slog.Logger) *Compositor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Compositor{
		log:      log,
		surfaces: make(map[string]*surface),
		stages:   make(map[patchbay.NodeID]*stage),
	}
}

// CreateSurface allocates (or resizes) a named surface. Stages already on
// a resized surface get fresh output textures at the new size.
func (c *Compositor) CreateSurface(id string, width, height int, fpsLimit float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("view: surface %q has invalid size %dx%d", id, width, height)
	}
	surf := c.surfaces[id]
	if surf == nil {
		surf = &surface{}
		c.surfaces[id] = surf
	}
	surf.fpsLimit = fpsLimit
	if surf.width == width && surf.height == height && surf.frame != nil {
		return nil
	}
	c.pool.Release(surf.frame)
	c.pool.Release(surf.fallback)
	surf.width, surf.height = width, height
	surf.frame = c.pool.Acquire(width, height)
	surf.fallback = c.pool.Acquire(width, height)
	fillBlack(surf.fallback)
	for _, st := range c.stages {
		if st.surface == id {
			c.pool.Release(st.out)
			st.out = c.pool.Acquire(width, height)
		}
	}
	return nil
}

// RemoveSurface frees a surface and every stage still on it.
func (c *Compositor) RemoveSurface(id string) error {
	surf := c.surfaces[id]
	if surf == nil {
		return nil
	}
	for sid, st := range c.stages {
		if st.surface == id {
			c.pool.Release(st.out)
			delete(c.stages, sid)
		}
	}
	c.pool.Release(surf.frame)
	c.pool.Release(surf.fallback)
	delete(c.surfaces, id)
	return nil
}

// AddShaderStage compiles a stage's Kage source and gives it an output
// texture on the named surface. A compile error is returned as-is so the
// caller can surface it to the patch author.
func (c *Compositor) AddShaderStage(id patchbay.NodeID, surfaceID string, source string) error {
	surf := c.surfaces[surfaceID]
	if surf == nil {
		return fmt.Errorf("view: stage %q references unknown surface %q", id, surfaceID)
	}
	shader, err := ebiten.NewShader([]byte(source))
	if err != nil {
		return fmt.Errorf("view: compile stage %q: %w", id, err)
	}
	if old := c.stages[id]; old != nil {
		c.pool.Release(old.out)
	}
	st := &stage{
		surface:  surfaceID,
		shader:   shader,
		declared: parseUniforms(source),
		uniforms: make(map[string]any),
		vecBufs:  make(map[string][]float32),
		sources:  make(map[patchbay.HandleID]patchbay.NodeID),
		out:      c.pool.Acquire(surf.width, surf.height),
	}
	c.stages[id] = st
	c.log.Debug("compiled shader stage", "stage", id, "surface", surfaceID, "uniforms", len(st.declared))
	return nil
}

// RemoveShaderStage frees a stage. Unknown ids are a no-op.
func (c *Compositor) RemoveShaderStage(id patchbay.NodeID) error {
	st := c.stages[id]
	if st == nil {
		return nil
	}
	c.pool.Release(st.out)
	delete(c.stages, id)
	return nil
}

// SetStageOrder records the compositing order for a surface.
func (c *Compositor) SetStageOrder(surfaceID string, order []patchbay.NodeID) error {
	surf := c.surfaces[surfaceID]
	if surf == nil {
		return fmt.Errorf("view: unknown surface %q", surfaceID)
	}
	surf.order = append(surf.order[:0], order...)
	return nil
}

// SetStageInputSource wires one stage's image input to another stage's
// output texture.
func (c *Compositor) SetStageInputSource(target patchbay.NodeID, input patchbay.HandleID, source patchbay.NodeID) error {
	st := c.stages[target]
	if st == nil {
		return fmt.Errorf("view: unknown stage %q", target)
	}
	st.sources[input] = source
	return nil
}

// SetFinalStage selects which stage's output a surface presents.
func (c *Compositor) SetFinalStage(surfaceID string, stageID patchbay.NodeID) error {
	surf := c.surfaces[surfaceID]
	if surf == nil {
		return fmt.Errorf("view: unknown surface %q", surfaceID)
	}
	surf.final = stageID
	return nil
}

// SetUniform stores one uniform value for a stage. Handle ids map onto
// Kage's exported names (amount -> Amount); values the stage's source
// never declares are dropped, since Ebitengine rejects unknown uniform
// keys at draw time.
func (c *Compositor) SetUniform(stageID patchbay.NodeID, name patchbay.HandleID, value any) error {
	st := c.stages[stageID]
	if st == nil {
		return fmt.Errorf("view: unknown stage %q", stageID)
	}
	uname := exportName(string(name))
	if !st.declared[uname] {
		return nil
	}
	st.setUniform(uname, value)
	return nil
}

// Stats reports the live frame rate.
func (c *Compositor) Stats() patchbay.RenderStats {
	return patchbay.RenderStats{FPS: ebiten.ActualFPS()}
}

// SurfaceSize returns a surface's pixel dimensions.
func (c *Compositor) SurfaceSize(id string) (w, h int, ok bool) {
	surf := c.surfaces[id]
	if surf == nil {
		return 0, 0, false
	}
	return surf.width, surf.height, true
}

// Render runs one surface's stage chain and returns the composited frame.
// Stages read their upstream textures as redrawn this frame; across a
// cycle back edge a stage naturally samples what its source held last
// frame, which is what keeps feedback patches alive.
//
// The returned image is owned by the compositor and valid until the next
// Render call for the surface.
func (c *Compositor) Render(surfaceID string, now float64) *ebiten.Image {
	surf := c.surfaces[surfaceID]
	if surf == nil {
		return nil
	}
	for _, sid := range surf.order {
		st := c.stages[sid]
		if st == nil {
			continue
		}
		for slot := range st.op.Images {
			st.op.Images[slot] = nil
		}
		st.op.Images[0] = surf.fallback
		for input, src := range st.sources {
			slot := imageSlot(input)
			if slot < 0 {
				continue
			}
			if srcStage := c.stages[src]; srcStage != nil && srcStage.out != nil {
				st.op.Images[slot] = srcStage.out
			}
		}
		if st.declared["Time"] {
			st.uniforms["Time"] = float32(now)
		}
		st.op.Uniforms = st.uniforms
		st.out.Clear()
		st.out.DrawRectShader(surf.width, surf.height, st.shader, &st.op)
	}

	final := surf.final
	if final == "" && len(surf.order) > 0 {
		final = surf.order[len(surf.order)-1]
	}
	surf.frame.Clear()
	if st := c.stages[final]; st != nil && st.out != nil {
		surf.frame.DrawImage(st.out, nil)
	} else {
		fillBlack(surf.frame)
	}
	return surf.frame
}

// Frame returns a surface's last composited frame without re-running the
// stage chain, or nil if the surface does not exist. Rendering twice per
// tick would double-step feedback loops, so callers that already ticked
// use this for presentation.
func (c *Compositor) Frame(surfaceID string) *ebiten.Image {
	surf := c.surfaces[surfaceID]
	if surf == nil {
		return nil
	}
	return surf.frame
}

// ReadFrame copies a surface's last composited frame into a CPU-side
// image, converting Ebitengine's premultiplied RGBA to straight alpha.
func (c *Compositor) ReadFrame(surfaceID string) (image.Image, error) {
	surf := c.surfaces[surfaceID]
	if surf == nil || surf.frame == nil {
		return nil, fmt.Errorf("view: unknown surface %q", surfaceID)
	}
	w, h := surf.width, surf.height
	needed := 4 * w * h
	if cap(surf.pixBuf) < needed {
		surf.pixBuf = make([]byte, needed)
	} else {
		surf.pixBuf = surf.pixBuf[:needed]
	}
	surf.frame.ReadPixels(surf.pixBuf)

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < needed; i += 4 {
		r, g, b, a := surf.pixBuf[i], surf.pixBuf[i+1], surf.pixBuf[i+2], surf.pixBuf[i+3]
		if a > 0 && a < 255 {
			r = uint8(min(int(r)*255/int(a), 255))
			g = uint8(min(int(g)*255/int(a), 255))
			b = uint8(min(int(b)*255/int(a), 255))
		}
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = a
	}
	return img, nil
}

// setUniform boxes a value into the stage's persistent uniform map.
// Vector values reuse per-name float32 buffers to avoid per-frame slice
// allocation.
func (st *stage) setUniform(name string, v any) {
	switch t := v.(type) {
	case float64:
		st.uniforms[name] = float32(t)
	case float32:
		st.uniforms[name] = t
	case int:
		st.uniforms[name] = float32(t)
	case bool:
		f := float32(0)
		if t {
			f = 1
		}
		st.uniforms[name] = f
	case patchbay.Vec2:
		buf := st.vec(name, 2)
		buf[0], buf[1] = float32(t.X), float32(t.Y)
		st.uniforms[name] = buf
	case patchbay.Vec3:
		buf := st.vec(name, 3)
		buf[0], buf[1], buf[2] = float32(t.X), float32(t.Y), float32(t.Z)
		st.uniforms[name] = buf
	case patchbay.Vec4:
		buf := st.vec(name, 4)
		buf[0], buf[1], buf[2], buf[3] = float32(t.X), float32(t.Y), float32(t.Z), float32(t.W)
		st.uniforms[name] = buf
	case patchbay.Color:
		buf := st.vec(name, 4)
		buf[0], buf[1], buf[2], buf[3] = float32(t.R), float32(t.G), float32(t.B), float32(t.A)
		st.uniforms[name] = buf
	case []float64:
		buf := st.vec(name, len(t))
		for i, f := range t {
			buf[i] = float32(f)
		}
		st.uniforms[name] = buf
	}
}

// vec returns the persistent buffer for a vector uniform, resized to n.
func (st *stage) vec(name string, n int) []float32 {
	buf := st.vecBufs[name]
	if cap(buf) < n {
		buf = make([]float32, n)
	}
	buf = buf[:n]
	st.vecBufs[name] = buf
	return buf
}

// imageSlot maps image input handles onto DrawRectShader source slots.
func imageSlot(input patchbay.HandleID) int {
	switch input {
	case "inputImage":
		return 0
	case "inputImage2":
		return 1
	case "inputImage3":
		return 2
	case "inputImage4":
		return 3
	}
	return -1
}

// parseUniforms scans Kage source for top-level uniform declarations.
// Ebitengine rejects draws that pass uniform keys the shader does not
// declare, so the compositor filters against this set.
func parseUniforms(source string) map[string]bool {
	declared := make(map[string]bool)
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, "var ")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 2 {
			continue
		}
		for _, f := range fields[:len(fields)-1] {
			name := strings.TrimSuffix(f, ",")
			if name != "" {
				declared[name] = true
			}
		}
	}
	return declared
}

// exportName maps a handle id onto its Kage uniform name.
func exportName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// fillBlack fills an image with opaque black.
func fillBlack(img *ebiten.Image) {
	img.Fill(color.Black)
}
