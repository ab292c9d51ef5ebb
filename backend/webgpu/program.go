//go:build js && wasm

package webgpu

import (
	"fmt"
	"strings"
	"syscall/js"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/shader"
)

type program struct {
	id       gpucore.ProgramID
	key      string
	label    string
	stage    gpucore.Stage
	shadows  int
	baseMap  bool
	requires []gpucore.Semantic
	module   js.Value
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

// compilationErrors collects the error messages of a shader module's
// compilation info.
func compilationErrors(module js.Value) (string, error) {
	info, err := await(module.Call("getCompilationInfo"))
	if err != nil {
		return "", err
	}
	var lines []string
	msgs := info.Get("messages")
	for i := 0; i < msgs.Length(); i++ {
		m := msgs.Index(i)
		if m.Get("type").String() != "error" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d:%d: %s", m.Get("lineNum").Int(), m.Get("linePos").Int(), m.Get("message").String()))
	}
	return strings.Join(lines, "\n"), nil
}

// CompileProgram validates the WGSL with naga, creates the shader module
// and waits for the browser's compilation info.
func (b *Backend) CompileProgram(src gpucore.ProgramSource) (gpucore.ProgramID, error) {
	if err := b.check("CompileProgram"); err != nil {
		return 0, err
	}
	if src.WGSL == "" {
		return 0, gpucore.CompileError(b.Name(), "CompileProgram", "empty WGSL source", nil)
	}
	if err := shader.Validate(src.WGSL); err != nil {
		b.logger.Debug("webgpu: program rejected", "program", src.Label, "err", err)
		return 0, gpucore.CompileError(b.Name(), "CompileProgram", err.Error(), fmt.Errorf("program %q", src.Label))
	}
	module := b.device.Call("createShaderModule", obj{"label": src.Label, "code": src.WGSL})
	diag, err := compilationErrors(module)
	if err != nil {
		return 0, b.fail("CompileProgram", gpucore.KindCompile, err)
	}
	if diag != "" {
		return 0, gpucore.CompileError(b.Name(), "CompileProgram", diag, fmt.Errorf("program %q", src.Label))
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

// DestroyProgram forgets a program and its pipelines. Shader modules
// and pipelines are garbage collected by the browser.
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
	for key := range b.pipelines {
		if key.program == id {
			delete(b.pipelines, key)
		}
	}
	delete(b.programs, id)
	return nil
}
