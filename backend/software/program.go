// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"fmt"

	"github.com/gogpu/g3d/gpucore"
)

// program is the interpreted form of a ProgramSource.
type program struct {
	key       string
	stage     gpucore.Stage
	shading   gpucore.Shading
	lights    int
	shadows   int
	baseMap   bool
	vertColor bool
	emissive  bool
	cutoff    bool
	effect    gpucore.Effect
}

func parseProgram(src gpucore.ProgramSource) (*program, error) {
	p := &program{key: src.Key}
	stage, _ := src.Define(gpucore.DefineStage)
	if stage < 0 || stage > int(gpucore.StageLight) {
		return nil, fmt.Errorf("%s: unknown %s %d", src.Label, gpucore.DefineStage, stage)
	}
	p.stage = gpucore.Stage(stage)
	shading, _ := src.Define(gpucore.DefineShading)
	if shading < 0 || shading > int(gpucore.ShadingBlinnPhong) {
		return nil, fmt.Errorf("%s: unknown %s %d", src.Label, gpucore.DefineShading, shading)
	}
	p.shading = gpucore.Shading(shading)
	p.lights, _ = src.Define(gpucore.DefineLightCount)
	if p.lights < 0 || p.lights > gpucore.MaxLights {
		return nil, fmt.Errorf("%s: %s %d exceeds %d", src.Label, gpucore.DefineLightCount, p.lights, gpucore.MaxLights)
	}
	p.shadows, _ = src.Define(gpucore.DefineShadowCount)
	if p.shadows < 0 || p.shadows > gpucore.MaxShadows {
		return nil, fmt.Errorf("%s: %s %d exceeds %d", src.Label, gpucore.DefineShadowCount, p.shadows, gpucore.MaxShadows)
	}
	effect, _ := src.Define(gpucore.DefineEffect)
	if effect < 0 || effect > int(gpucore.EffectInvert) {
		return nil, fmt.Errorf("%s: unknown %s %d", src.Label, gpucore.DefineEffect, effect)
	}
	p.effect = gpucore.Effect(effect)
	p.baseMap = src.Flag(gpucore.DefineBaseColorMap)
	p.vertColor = src.Flag(gpucore.DefineVertexColor)
	p.emissive = src.Flag(gpucore.DefineEmissive)
	p.cutoff = src.Flag(gpucore.DefineAlphaCutoff)
	return p, nil
}

// lit reports whether the program evaluates lights.
func (p *program) lit() bool {
	return (p.stage == gpucore.StageForward || p.stage == gpucore.StageLight) && p.shading != gpucore.ShadingUnlit
}

// requires lists the vertex semantics the program reads.
func (p *program) requires() []gpucore.Semantic {
	switch p.stage {
	case gpucore.StagePost, gpucore.StageLight:
		return nil
	case gpucore.StageDepth:
		return []gpucore.Semantic{gpucore.SemanticPosition}
	}
	req := []gpucore.Semantic{gpucore.SemanticPosition}
	if p.lit() || p.stage == gpucore.StageGeometry {
		req = append(req, gpucore.SemanticNormal)
	}
	if p.baseMap {
		req = append(req, gpucore.SemanticUV)
	}
	if p.vertColor {
		req = append(req, gpucore.SemanticColor)
	}
	return req
}
