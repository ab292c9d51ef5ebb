//go:build !(js && wasm)

package wgpu

import (
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

// pipelineKey identifies a render pipeline: a program specialized for a
// vertex layout, fixed-function state and attachment formats.
type pipelineKey struct {
	program gpucore.ProgramID
	layout  string
	state   gpucore.PipelineState
	formats string
}

// pipelineCache holds render pipelines for the lifetime of their
// program. It caches device objects only; redundant state changes are
// the caller's concern.
type pipelineCache struct {
	device    *wgpu.Device
	layout    *wgpu.PipelineLayout
	pipelines map[pipelineKey]*wgpu.RenderPipeline
	created   int
}

func newPipelineCache(dev *wgpu.Device, layout *wgpu.PipelineLayout) *pipelineCache {
	return &pipelineCache{
		device:    dev,
		layout:    layout,
		pipelines: make(map[pipelineKey]*wgpu.RenderPipeline),
	}
}

// get returns the pipeline for the bound state, creating it on first use.
func (c *pipelineCache) get(p *program, vertices *buffer, state gpucore.PipelineState, fb *framebuffer) (*wgpu.RenderPipeline, error) {
	key := pipelineKey{program: p.id, state: state, formats: fb.formatsKey()}
	var buffers []gputypes.VertexBufferLayout
	if !p.stage.Fullscreen() && vertices != nil {
		key.layout = vertices.desc.Layout.Key()
		buffers = []gputypes.VertexBufferLayout{vertexLayout(vertices.desc.Layout)}
	}
	if rp, ok := c.pipelines[key]; ok {
		return rp, nil
	}

	targets := make([]gputypes.ColorTargetState, len(fb.color))
	for i, t := range fb.color {
		targets[i] = gputypes.ColorTargetState{
			Format:    t.desc.Format,
			Blend:     state.Blend.State(),
			WriteMask: gputypes.ColorWriteMaskAll,
		}
	}
	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.label,
		Layout: c.layout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: gpucore.VertexEntry,
			Buffers:    buffers,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: state.Cull.Front,
			CullMode:  state.Cull.Mode,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: ^uint64(0)},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: gpucore.FragmentEntry,
			Targets:    targets,
		},
	}
	if fb.depth != nil {
		compare := gputypes.CompareFunctionAlways
		if state.Depth.Test {
			compare = state.Depth.Compare
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:            fb.depth.desc.Format,
			DepthWriteEnabled: state.Depth.Test && state.Depth.Write,
			DepthCompare:      compare,
			StencilFront:      stencilKeep(),
			StencilBack:       stencilKeep(),
		}
	}
	rp, err := c.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, err
	}
	c.pipelines[key] = rp
	c.created++
	return rp, nil
}

func stencilKeep() wgpu.StencilFaceState {
	return wgpu.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationKeep,
		PassOp:      wgpu.StencilOperationKeep,
	}
}

// vertexLayout converts an interleaved layout. Attribute locations come
// from their semantics.
func vertexLayout(l gpucore.VertexLayout) gputypes.VertexBufferLayout {
	attrs := make([]gputypes.VertexAttribute, len(l.Attributes))
	for i, a := range l.Attributes {
		attrs[i] = gputypes.VertexAttribute{
			Format:         a.Format,
			Offset:         uint64(a.Offset),
			ShaderLocation: a.Semantic.Location(),
		}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(l.Stride),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

// forget releases the pipelines of a program.
func (c *pipelineCache) forget(id gpucore.ProgramID) {
	for key, rp := range c.pipelines {
		if key.program == id {
			rp.Release()
			delete(c.pipelines, key)
		}
	}
}

func (c *pipelineCache) release() {
	for key, rp := range c.pipelines {
		rp.Release()
		delete(c.pipelines, key)
	}
}
