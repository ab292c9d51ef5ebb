// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"fmt"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/state"
)

// DrawCommand is one draw: geometry, program, uniforms, fixed-function
// state and texture bindings. It is built and consumed within a pass.
type DrawCommand struct {
	Program *shader.Program
	// Vertices may be zero for programs that generate their vertices
	// (post passes).
	Vertices resource.Buffer
	// Indices selects an indexed draw when non-zero.
	Indices resource.Buffer
	// Count is the vertex or index count; zero uses the buffer's count.
	Count int
	First int

	Uniforms gpucore.Uniforms
	State    gpucore.PipelineState
	// Textures binds unit i when Textures[i] is non-zero.
	Textures [gpucore.MaxTextureUnits]resource.Texture
}

func (c *DrawCommand) issue(reg *resource.Registry, sc *state.Cache) error {
	pid, err := reg.ProgramID(c.Program.Handle)
	if err != nil {
		return err
	}
	count := c.Count
	var vid, iid gpucore.BufferID
	if !c.Vertices.IsZero() {
		if vid, err = reg.BufferID(c.Vertices); err != nil {
			return err
		}
	}
	if !c.Indices.IsZero() {
		if iid, err = reg.BufferID(c.Indices); err != nil {
			return err
		}
	}
	if count, err = c.drawRange(reg); err != nil {
		return err
	}
	var tids [gpucore.MaxTextureUnits]gpucore.TextureID
	for unit, tex := range c.Textures {
		if tex.IsZero() {
			continue
		}
		if tids[unit], err = reg.TextureID(tex); err != nil {
			return err
		}
	}

	if err := sc.UseProgram(pid); err != nil {
		return err
	}
	if err := sc.SetPipeline(c.State); err != nil {
		return err
	}
	for unit, id := range tids {
		if id == gpucore.InvalidID {
			continue
		}
		if err := sc.BindTexture(unit, id); err != nil {
			return err
		}
	}
	if vid != gpucore.InvalidID {
		if err := sc.BindVertexBuffer(vid); err != nil {
			return err
		}
	}
	a := sc.Adapter()
	if err := a.SetUniforms(&c.Uniforms); err != nil {
		return err
	}
	if iid != gpucore.InvalidID {
		if err := sc.BindIndexBuffer(iid); err != nil {
			return err
		}
		return a.DrawIndexed(count, c.First)
	}
	return a.Draw(count, c.First)
}

// drawRange resolves the element count and checks First and Count
// against the indexed or vertex buffer.
func (c *DrawCommand) drawRange(reg *resource.Registry) (int, error) {
	if c.First < 0 || c.Count < 0 {
		return 0, fmt.Errorf("%w: first %d, count %d", ErrDrawRange, c.First, c.Count)
	}
	buf := c.Indices
	if buf.IsZero() {
		buf = c.Vertices
	}
	if buf.IsZero() {
		// Vertex-less programs draw a fullscreen triangle.
		if c.Count == 0 {
			return 3, nil
		}
		return c.Count, nil
	}
	info, err := reg.BufferInfo(buf)
	if err != nil {
		return 0, err
	}
	count := c.Count
	if count == 0 {
		count = info.Count - c.First
	}
	if count <= 0 || c.First+count > info.Count {
		return 0, fmt.Errorf("%w: first %d, count %d, buffer holds %d", ErrDrawRange, c.First, count, info.Count)
	}
	return count, nil
}
