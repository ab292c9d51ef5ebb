//go:build !(js && wasm)

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/wgpu"
)

type program struct {
	id       gpucore.ProgramID
	key      string
	label    string
	stage    gpucore.Stage
	shadows  int
	baseMap  bool
	// requires lists the vertex semantics the program reads.
	requires []gpucore.Semantic
	module   *wgpu.ShaderModule
}

func requiredSemantics(src gpucore.ProgramSource, stage gpucore.Stage) []gpucore.Semantic {
	switch stage {
	case gpucore.StagePost, gpucore.StageLight:
		return nil
	case gpucore.StageDepth:
		return []gpucore.Semantic{gpucore.SemanticPosition}
	}
	req := []gpucore.Semantic{gpucore.SemanticPosition}
	if shading, _ := src.Define(gpucore.DefineShading); stage == gpucore.StageGeometry || gpucore.Shading(shading) != gpucore.ShadingUnlit {
		req = append(req, gpucore.SemanticNormal)
	}
	if src.Flag(gpucore.DefineBaseColorMap) {
		req = append(req, gpucore.SemanticUV)
	}
	if src.Flag(gpucore.DefineVertexColor) {
		req = append(req, gpucore.SemanticColor)
	}
	return req
}

func (p *program) release() {
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}

// CompileProgram validates the WGSL with naga and creates the shader
// module. Render pipelines are built on first draw.
func (b *Backend) CompileProgram(src gpucore.ProgramSource) (gpucore.ProgramID, error) {
	if err := b.check("CompileProgram"); err != nil {
		return 0, err
	}
	if src.WGSL == "" {
		return 0, gpucore.CompileError(b.Name(), "CompileProgram", "empty WGSL source", nil)
	}
	if err := shader.Validate(src.WGSL); err != nil {
		b.logger.Debug("wgpu: program rejected", "program", src.Label, "err", err)
		return 0, gpucore.CompileError(b.Name(), "CompileProgram", err.Error(), fmt.Errorf("program %q", src.Label))
	}
	module, err := b.dev.dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: src.Label,
		WGSL:  src.WGSL,
	})
	if err != nil {
		if errors.Is(err, wgpu.ErrDeviceLost) {
			return 0, b.wrap("CompileProgram", gpucore.KindCompile, err)
		}
		return 0, gpucore.CompileError(b.Name(), "CompileProgram", err.Error(), err)
	}
	stage, _ := src.Define(gpucore.DefineStage)
	shadows, _ := src.Define(gpucore.DefineShadowCount)
	id := gpucore.ProgramID(b.allocID())
	b.programs[id] = &program{
		id:       id,
		key:      src.Key,
		label:    src.Label,
		stage:    gpucore.Stage(stage),
		shadows:  shadows,
		baseMap:  src.Flag(gpucore.DefineBaseColorMap),
		requires: requiredSemantics(src, gpucore.Stage(stage)),
		module:   module,
	}
	return id, nil
}

// DestroyProgram releases a program and the pipelines built from it.
func (b *Backend) DestroyProgram(id gpucore.ProgramID) error {
	if err := b.check("DestroyProgram"); err != nil {
		return err
	}
	p, ok := b.programs[id]
	if !ok {
		return b.unknown("DestroyProgram", "program", uint64(id))
	}
	if b.pass.prog == p {
		b.pass.prog = nil
	}
	b.pipelines.forget(id)
	p.release()
	delete(b.programs, id)
	return nil
}
