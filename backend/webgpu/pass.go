//go:build js && wasm

package webgpu

import (
	"errors"
	"fmt"
	"syscall/js"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
)

type passState struct {
	target   *framebuffer
	viewport gpucore.Viewport
	prog     *program
	state    gpucore.PipelineState
	units    [gpucore.MaxTextureUnits]*texture
	vertices *buffer
	indices  *buffer
	uniforms *gpucore.Uniforms
}

type frame struct {
	encoder  js.Value
	pass     js.Value
	pipeline js.Value
	clear    gpucore.ClearOp
}

func (f *frame) discard() {
	if f.pass.Truthy() {
		f.pass.Call("end")
	}
	*f = frame{}
}

// Stats counts work recorded since the last ResetStats.
type Stats struct {
	Draws     int
	Passes    int
	Submits   int
	Pipelines int
}

func (b *Backend) resetPass(fb *framebuffer, vp gpucore.Viewport) {
	if vp.Empty() {
		vp = gpucore.Viewport{Width: fb.width, Height: fb.height}
	}
	b.pass = passState{
		target:   fb,
		viewport: vp,
		state: gpucore.PipelineState{
			Depth: gpucore.DepthDisabled(),
			Blend: gpucore.BlendNone,
			Cull:  gpucore.CullNone(),
		},
	}
}

// BindTarget ends the open pass and makes the target current.
func (b *Backend) BindTarget(id gpucore.TargetID, vp gpucore.Viewport) error {
	if err := b.check("BindTarget"); err != nil {
		return err
	}
	fb := b.surface
	if id != gpucore.DefaultTarget {
		var ok bool
		if fb, ok = b.targets[id]; !ok {
			return b.unknown("BindTarget", "target", uint64(id))
		}
	}
	if err := b.endPass("BindTarget"); err != nil {
		return err
	}
	b.resetPass(fb, vp)
	return nil
}

// Clear schedules a clear of the bound target as the load operation of
// the next pass.
func (b *Backend) Clear(op gpucore.ClearOp) error {
	if err := b.check("Clear"); err != nil {
		return err
	}
	if b.frame.pass.Truthy() {
		if err := b.endPass("Clear"); err != nil {
			return err
		}
	}
	c := &b.frame.clear
	if op.Color {
		c.Color, c.ColorValue = true, op.ColorValue
	}
	if op.Depth {
		c.Depth, c.DepthValue = true, op.DepthValue
	}
	return nil
}

// SetViewport sets the viewport inside the bound target.
func (b *Backend) SetViewport(vp gpucore.Viewport) error {
	if err := b.check("SetViewport"); err != nil {
		return err
	}
	if vp.Empty() {
		return b.fail("SetViewport", gpucore.KindInvalidCall, fmt.Errorf("empty viewport %s", vp))
	}
	b.pass.viewport = vp
	if b.frame.pass.Truthy() {
		b.applyViewport()
	}
	return nil
}

// UseProgram binds a program.
func (b *Backend) UseProgram(id gpucore.ProgramID) error {
	if err := b.check("UseProgram"); err != nil {
		return err
	}
	p, ok := b.programs[id]
	if !ok {
		return b.unknown("UseProgram", "program", uint64(id))
	}
	b.pass.prog = p
	return nil
}

// SetDepth sets depth test and write state.
func (b *Backend) SetDepth(d gpucore.DepthState) error {
	if err := b.check("SetDepth"); err != nil {
		return err
	}
	b.pass.state.Depth = d
	return nil
}

// SetBlend sets the blend mode.
func (b *Backend) SetBlend(m gpucore.BlendMode) error {
	if err := b.check("SetBlend"); err != nil {
		return err
	}
	if m > gpucore.BlendAdditive {
		return b.fail("SetBlend", gpucore.KindUnsupported, fmt.Errorf("blend mode %v", m))
	}
	b.pass.state.Blend = m
	return nil
}

// SetCull sets culling and winding.
func (b *Backend) SetCull(c gpucore.CullState) error {
	if err := b.check("SetCull"); err != nil {
		return err
	}
	b.pass.state.Cull = c
	return nil
}

// BindTexture binds a texture to a unit. InvalidID unbinds.
func (b *Backend) BindTexture(unit int, id gpucore.TextureID) error {
	if err := b.check("BindTexture"); err != nil {
		return err
	}
	if unit < 0 || unit >= len(b.pass.units) {
		return b.fail("BindTexture", gpucore.KindInvalidCall, fmt.Errorf("texture unit %d", unit))
	}
	if id == gpucore.InvalidID {
		b.pass.units[unit] = nil
		return nil
	}
	t, ok := b.textures[id]
	if !ok {
		return b.unknown("BindTexture", "texture", uint64(id))
	}
	fb := b.pass.target
	for _, c := range fb.color {
		if c == t {
			return b.fail("BindTexture", gpucore.KindInvalidCall,
				fmt.Errorf("texture %q is an attachment of the bound target", t.desc.Label))
		}
	}
	if fb.depth == t {
		return b.fail("BindTexture", gpucore.KindInvalidCall,
			fmt.Errorf("texture %q is the depth attachment of the bound target", t.desc.Label))
	}
	if (unit >= gpucore.UnitShadow0) != t.depth() {
		return b.fail("BindTexture", gpucore.KindInvalidCall,
			fmt.Errorf("texture %q (%v) cannot be bound to unit %d", t.desc.Label, t.desc.Format, unit))
	}
	b.pass.units[unit] = t
	return nil
}

// BindVertexBuffer binds the vertex buffer.
func (b *Backend) BindVertexBuffer(id gpucore.BufferID) error {
	if err := b.check("BindVertexBuffer"); err != nil {
		return err
	}
	buf, ok := b.buffers[id]
	if !ok {
		return b.unknown("BindVertexBuffer", "buffer", uint64(id))
	}
	if buf.desc.Kind != gpucore.BufferVertex {
		return b.fail("BindVertexBuffer", gpucore.KindInvalidCall, fmt.Errorf("buffer %q is an index buffer", buf.desc.Label))
	}
	b.pass.vertices = buf
	return nil
}

// BindIndexBuffer binds the index buffer.
func (b *Backend) BindIndexBuffer(id gpucore.BufferID) error {
	if err := b.check("BindIndexBuffer"); err != nil {
		return err
	}
	buf, ok := b.buffers[id]
	if !ok {
		return b.unknown("BindIndexBuffer", "buffer", uint64(id))
	}
	if buf.desc.Kind != gpucore.BufferIndex {
		return b.fail("BindIndexBuffer", gpucore.KindInvalidCall, fmt.Errorf("buffer %q is a vertex buffer", buf.desc.Label))
	}
	b.pass.indices = buf
	return nil
}

// SetUniforms sets the uniform block for following draws.
func (b *Backend) SetUniforms(u *gpucore.Uniforms) error {
	if err := b.check("SetUniforms"); err != nil {
		return err
	}
	cp := *u
	cp.Lights = append([]gpucore.LightUniform(nil), u.Lights...)
	b.pass.uniforms = &cp
	return nil
}

// Draw draws vertexCount vertices starting at firstVertex.
func (b *Backend) Draw(vertexCount, firstVertex int) error {
	if err := b.prepare("Draw", false, firstVertex, vertexCount); err != nil {
		return err
	}
	b.frame.pass.Call("draw", vertexCount, 1, firstVertex, 0)
	b.stats.Draws++
	return nil
}

// DrawIndexed draws indexCount indices starting at firstIndex.
func (b *Backend) DrawIndexed(indexCount, firstIndex int) error {
	if err := b.prepare("DrawIndexed", true, firstIndex, indexCount); err != nil {
		return err
	}
	b.frame.pass.Call("drawIndexed", indexCount, 1, firstIndex, 0, 0)
	b.stats.Draws++
	return nil
}

// ready verifies the bound state can satisfy a draw of count elements
// starting at first.
func (b *Backend) ready(op string, indexed bool, first, count int) error {
	if err := b.bound(op, indexed); err != nil {
		return err
	}
	return b.drawRange(op, indexed, first, count)
}

// bound verifies the bound state is complete.
func (b *Backend) bound(op string, indexed bool) error {
	if err := b.check(op); err != nil {
		return err
	}
	if t := b.pass.units[gpucore.UnitBaseColor]; t != nil && t.desc.Format == gputypes.TextureFormatRGBA32Float {
		return b.fail(op, gpucore.KindUnsupported, fmt.Errorf("texture %q is not filterable", t.desc.Label))
	}
	p := b.pass.prog
	switch {
	case p == nil:
		return b.fail(op, gpucore.KindInvalidCall, errors.New("no program bound"))
	case indexed && b.pass.indices == nil:
		return b.fail(op, gpucore.KindInvalidCall, errors.New("no index buffer bound"))
	case p.stage == gpucore.StagePost:
		if b.pass.units[gpucore.UnitBaseColor] == nil {
			return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("post program %q needs an input texture", p.key))
		}
		return nil
	case b.pass.uniforms == nil:
		return b.fail(op, gpucore.KindInvalidCall, errors.New("no uniforms set"))
	case p.stage == gpucore.StageLight:
		if b.pass.units[gpucore.UnitBaseColor] == nil ||
			b.pass.units[gpucore.UnitGBufferPosition] == nil ||
			b.pass.units[gpucore.UnitGBufferNormal] == nil {
			return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("light program %q needs the G-buffer textures", p.key))
		}
		return b.shadowInputs(op)
	case b.pass.vertices == nil:
		return b.fail(op, gpucore.KindInvalidCall, errors.New("no vertex buffer bound"))
	}
	layout := b.pass.vertices.desc.Layout
	for _, s := range p.requires {
		if !layout.Has(s) {
			return b.fail(op, gpucore.KindInvalidCall,
				fmt.Errorf("program %q reads %s, vertex buffer %q lacks it", p.key, s, b.pass.vertices.desc.Label))
		}
	}
	if p.baseMap && b.pass.units[gpucore.UnitBaseColor] == nil {
		return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("program %q needs a base color texture", p.key))
	}
	return b.shadowInputs(op)
}

// shadowInputs verifies the shadow maps the bound program samples.
func (b *Backend) shadowInputs(op string) error {
	p := b.pass.prog
	for s := 0; s < p.shadows; s++ {
		if b.pass.units[gpucore.UnitShadow0+s] == nil {
			return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("program %q needs shadow map %d", p.key, s))
		}
	}
	return nil
}

// drawRange checks first and count against the buffer the draw reads.
func (b *Backend) drawRange(op string, indexed bool, first, count int) error {
	n := -1
	switch {
	case indexed:
		n = b.pass.indices.desc.Elements()
	case !b.pass.prog.stage.Fullscreen():
		n = b.pass.vertices.desc.Elements()
	}
	if err := gpucore.CheckDrawRange(first, count, n); err != nil {
		return b.fail(op, gpucore.KindInvalidCall, err)
	}
	return nil
}

// prepare begins the pass if needed and sets pipeline, bind group and
// buffers for one draw.
func (b *Backend) prepare(op string, indexed bool, first, count int) error {
	if err := b.ready(op, indexed, first, count); err != nil {
		return err
	}
	rp, err := b.pipeline(op)
	if err != nil {
		return err
	}
	b.beginPass()

	ps := &b.pass
	ubuf, offset := b.arena.write(ps.uniforms)
	color, sampler := b.white, b.sampler(gpucore.DefaultSampler())
	if t := ps.units[gpucore.UnitBaseColor]; t != nil {
		color, sampler = t, t.sampler
	}
	entries := []any{
		obj{"binding": gpucore.BindingUniforms, "resource": obj{"buffer": ubuf, "offset": offset, "size": gpucore.UniformSize}},
		obj{"binding": gpucore.BindingBaseColor, "resource": color.view},
		obj{"binding": gpucore.BindingBaseColorSampler, "resource": sampler},
	}
	for i := 0; i < gpucore.MaxShadows; i++ {
		t := b.shadow
		if u := ps.units[gpucore.UnitShadow0+i]; u != nil {
			t = u
		}
		entries = append(entries, obj{"binding": gpucore.BindingShadow0 + i, "resource": t.view})
	}
	for i, binding := range []int{gpucore.BindingGBufferPosition, gpucore.BindingGBufferNormal} {
		t := b.white
		if u := ps.units[gpucore.UnitGBufferPosition+i]; u != nil {
			t = u
		}
		entries = append(entries, obj{"binding": binding, "resource": t.view})
	}
	group := b.device.Call("createBindGroup", obj{"label": ps.prog.label, "layout": b.layout, "entries": entries})

	pass := b.frame.pass
	if !b.frame.pipeline.Equal(rp) {
		pass.Call("setPipeline", rp)
		b.frame.pipeline = rp
	}
	pass.Call("setBindGroup", 0, group)
	if !ps.prog.stage.Fullscreen() {
		pass.Call("setVertexBuffer", 0, ps.vertices.buf)
	}
	if indexed {
		pass.Call("setIndexBuffer", ps.indices.buf, indexFormat(ps.indices.desc.IndexFormat))
	}
	return nil
}

func (b *Backend) beginPass() {
	f := &b.frame
	if f.pass.Truthy() {
		return
	}
	if !f.encoder.Truthy() {
		f.encoder = b.device.Call("createCommandEncoder", obj{"label": "g3d-frame"})
	}
	fb := b.pass.target
	colors := make([]any, len(fb.color))
	for i, c := range fb.color {
		att := obj{"view": c.view, "loadOp": "load", "storeOp": "store"}
		if f.clear.Color {
			v := f.clear.ColorValue
			att["loadOp"] = "clear"
			att["clearValue"] = obj{"r": v.R, "g": v.G, "b": v.B, "a": v.A}
		}
		colors[i] = att
	}
	desc := obj{"label": fb.label, "colorAttachments": colors}
	if fb.depth != nil {
		att := obj{"view": fb.depth.view, "depthLoadOp": "load", "depthStoreOp": "store"}
		if f.clear.Depth {
			att["depthLoadOp"] = "clear"
			att["depthClearValue"] = f.clear.DepthValue
		}
		desc["depthStencilAttachment"] = att
	}
	f.pass = f.encoder.Call("beginRenderPass", desc)
	f.pipeline = js.Undefined()
	f.clear = gpucore.ClearOp{}
	b.stats.Passes++
	b.applyViewport()
}

func (b *Backend) applyViewport() {
	vp := b.pass.viewport
	b.frame.pass.Call("setViewport", vp.X, vp.Y, vp.Width, vp.Height, 0, 1)
}

// endPass ends the open pass. A pending clear without draws still gets
// a pass of its own.
func (b *Backend) endPass(op string) error {
	f := &b.frame
	if !f.pass.Truthy() && (f.clear.Color || f.clear.Depth) && b.pass.target != nil {
		b.beginPass()
	}
	if f.pass.Truthy() {
		f.pass.Call("end")
		f.pass = js.Undefined()
		f.pipeline = js.Undefined()
	}
	return nil
}

// submit ends the pass, presents to the canvas if one is configured
// and submits the recorded commands inside an error scope.
func (b *Backend) submit(op string) error {
	if err := b.endPass(op); err != nil {
		return err
	}
	f := &b.frame
	present := b.context.Truthy()
	if !f.encoder.Truthy() && !present {
		return nil
	}
	if !f.encoder.Truthy() {
		f.encoder = b.device.Call("createCommandEncoder", obj{"label": "g3d-frame"})
	}
	enc := f.encoder
	f.encoder = js.Undefined()
	err := b.scoped(op, gpucore.KindInvalidCall, func() {
		if present {
			enc.Call("copyTextureToTexture",
				obj{"texture": b.surface.color[0].tex},
				obj{"texture": b.context.Call("getCurrentTexture")},
				[]any{b.width, b.height, 1},
			)
		}
		b.queue.Call("submit", []any{enc.Call("finish")})
	})
	b.arena.reset()
	if err != nil {
		return err
	}
	b.stats.Submits++
	return nil
}

// Flush ends the open pass and submits the frame.
func (b *Backend) Flush() error {
	if err := b.check("Flush"); err != nil {
		return err
	}
	return b.submit("Flush")
}

// Discard drops the open pass and every unsubmitted command.
func (b *Backend) Discard() error {
	if err := b.check("Discard"); err != nil {
		return err
	}
	b.frame.discard()
	b.arena.reset()
	return nil
}

// Stats returns the work counters.
func (b *Backend) Stats() Stats {
	return b.stats
}

// ResetStats zeroes the work counters.
func (b *Backend) ResetStats() {
	b.stats = Stats{}
}
