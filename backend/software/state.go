// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"bytes"
	"fmt"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
)

// resetPass binds fb and restores the state a freshly begun pass has.
func (b *Backend) resetPass(fb *framebuffer, vp gpucore.Viewport) {
	b.target = fb
	if vp.Empty() {
		vp = gpucore.Viewport{Width: fb.width, Height: fb.height}
	}
	b.viewport = vp
	b.prog = nil
	b.depth = gpucore.DepthDisabled()
	b.blend = gpucore.BlendNone
	b.cull = gpucore.CullNone()
	b.units = [gpucore.MaxTextureUnits]*texture{}
	b.vertices, b.indices = nil, nil
	b.uniforms = nil
}

// BindTarget binds a framebuffer and resets pass state.
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
	b.resetPass(fb, vp)
	return nil
}

// Clear fills the selected attachments of the bound target.
func (b *Backend) Clear(op gpucore.ClearOp) error {
	if err := b.check("Clear"); err != nil {
		return err
	}
	b.snapshot()
	if op.Color {
		c := [4]float32{float32(op.ColorValue.R), float32(op.ColorValue.G), float32(op.ColorValue.B), float32(op.ColorValue.A)}
		for _, t := range b.target.color {
			fill(t, c)
		}
	}
	if op.Depth && b.target.depth != nil {
		fill(b.target.depth, [4]float32{op.DepthValue})
	}
	return nil
}

func fill(t *texture, c [4]float32) {
	px := make([]byte, t.bpp)
	encode(t.format, px, c)
	lvl := t.levels[0]
	for i := 0; i < len(lvl); i += t.bpp {
		copy(lvl[i:], px)
	}
}

// SetViewport sets the viewport inside the bound target.
func (b *Backend) SetViewport(vp gpucore.Viewport) error {
	if err := b.check("SetViewport"); err != nil {
		return err
	}
	if vp.Empty() {
		return b.fail("SetViewport", gpucore.KindInvalidCall, fmt.Errorf("empty viewport %s", vp))
	}
	b.viewport = vp
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
	b.prog = p
	return nil
}

// SetDepth sets depth test and write state.
func (b *Backend) SetDepth(d gpucore.DepthState) error {
	if err := b.check("SetDepth"); err != nil {
		return err
	}
	b.depth = d
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
	b.blend = m
	return nil
}

// SetCull sets culling and winding.
func (b *Backend) SetCull(c gpucore.CullState) error {
	if err := b.check("SetCull"); err != nil {
		return err
	}
	b.cull = c
	return nil
}

// BindTexture binds a texture to a unit. InvalidID unbinds.
func (b *Backend) BindTexture(unit int, id gpucore.TextureID) error {
	if err := b.check("BindTexture"); err != nil {
		return err
	}
	if unit < 0 || unit >= len(b.units) {
		return b.fail("BindTexture", gpucore.KindInvalidCall, fmt.Errorf("texture unit %d", unit))
	}
	if id == gpucore.InvalidID {
		b.units[unit] = nil
		return nil
	}
	t, ok := b.textures[id]
	if !ok {
		return b.unknown("BindTexture", "texture", uint64(id))
	}
	for _, c := range b.target.color {
		if c == t {
			return b.fail("BindTexture", gpucore.KindInvalidCall,
				fmt.Errorf("texture %q is an attachment of the bound target", t.label))
		}
	}
	b.units[unit] = t
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
	b.vertices = buf
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
	b.indices = buf
	return nil
}

// SetUniforms sets the uniform block for following draws.
func (b *Backend) SetUniforms(u *gpucore.Uniforms) error {
	if err := b.check("SetUniforms"); err != nil {
		return err
	}
	cp := *u
	cp.Lights = append([]gpucore.LightUniform(nil), u.Lights...)
	b.uniforms = &cp
	return nil
}

// Flush completes the frame. Drawing is immediate, so it only counts.
func (b *Backend) Flush() error {
	if err := b.check("Flush"); err != nil {
		return err
	}
	b.stats.Flushes++
	b.undo = nil
	return nil
}

// Discard restores every attachment written since the last Flush.
func (b *Backend) Discard() error {
	if err := b.check("Discard"); err != nil {
		return err
	}
	for t, saved := range b.undo {
		copy(t.levels[0], saved)
	}
	b.undo = nil
	return nil
}

// snapshot saves the attachments of the bound target before their
// first write since the last Flush.
func (b *Backend) snapshot() {
	save := func(t *texture) {
		if t == nil {
			return
		}
		if _, ok := b.undo[t]; ok {
			return
		}
		if b.undo == nil {
			b.undo = make(map[*texture][]byte)
		}
		b.undo[t] = bytes.Clone(t.levels[0])
	}
	for _, t := range b.target.color {
		save(t)
	}
	save(b.target.depth)
}

// indexAt reads index i of the bound index buffer.
func indexAt(buf *buffer, i int) (int, bool) {
	switch buf.desc.IndexFormat {
	case gputypes.IndexFormatUint16:
		off := i * 2
		if off+2 > len(buf.data) {
			return 0, false
		}
		return int(buf.data[off]) | int(buf.data[off+1])<<8, true
	default:
		off := i * 4
		if off+4 > len(buf.data) {
			return 0, false
		}
		return int(uint32(buf.data[off]) | uint32(buf.data[off+1])<<8 |
			uint32(buf.data[off+2])<<16 | uint32(buf.data[off+3])<<24), true
	}
}
