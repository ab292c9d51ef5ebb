//go:build js && wasm

package webgpu

import (
	"syscall/js"

	"github.com/gogpu/g3d/gpucore"
)

type pipelineKey struct {
	program gpucore.ProgramID
	layout  string
	state   gpucore.PipelineState
	formats string
}

// pipeline returns the render pipeline for the bound state, creating it
// on first use.
func (b *Backend) pipeline(op string) (js.Value, error) {
	ps := &b.pass
	p, fb := ps.prog, ps.target
	key := pipelineKey{program: p.id, state: ps.state, formats: fb.formatsKey()}
	buffers := []any{}
	if !p.stage.Fullscreen() && ps.vertices != nil {
		key.layout = ps.vertices.desc.Layout.Key()
		buffers = []any{vertexLayout(ps.vertices.desc.Layout)}
	}
	if rp, ok := b.pipelines[key]; ok {
		return rp, nil
	}

	targets := make([]any, len(fb.color))
	for i, t := range fb.color {
		target := obj{"format": textureFormats[t.desc.Format]}
		if blend := blendState(ps.state.Blend.State()); blend != nil {
			target["blend"] = blend
		}
		targets[i] = target
	}
	desc := obj{
		"label":  p.label,
		"layout": b.pipelineLayout,
		"vertex": obj{
			"module":     p.module,
			"entryPoint": gpucore.VertexEntry,
			"buffers":    buffers,
		},
		"fragment": obj{
			"module":     p.module,
			"entryPoint": gpucore.FragmentEntry,
			"targets":    targets,
		},
		"primitive": obj{
			"topology":  "triangle-list",
			"frontFace": frontFace(ps.state.Cull.Front),
			"cullMode":  cullMode(ps.state.Cull.Mode),
		},
	}
	if fb.depth != nil {
		d := ps.state.Depth
		compare := "always"
		if d.Test {
			compare = compareFunction(d.Compare)
		}
		desc["depthStencil"] = obj{
			"format":            textureFormats[fb.depth.desc.Format],
			"depthWriteEnabled": d.Test && d.Write,
			"depthCompare":      compare,
		}
	}
	var rp js.Value
	if err := b.scoped(op, gpucore.KindInvalidCall, func() {
		rp = b.device.Call("createRenderPipeline", desc)
	}); err != nil {
		return js.Undefined(), err
	}
	b.pipelines[key] = rp
	b.stats.Pipelines++
	b.logger.Debug("webgpu: pipeline created", "program", p.label, "target", fb.label)
	return rp, nil
}

func vertexLayout(l gpucore.VertexLayout) obj {
	attrs := make([]any, len(l.Attributes))
	for i, a := range l.Attributes {
		attrs[i] = obj{
			"format":         vertexFormats[a.Format],
			"offset":         a.Offset,
			"shaderLocation": a.Semantic.Location(),
		}
	}
	return obj{"arrayStride": l.Stride, "stepMode": "vertex", "attributes": attrs}
}
