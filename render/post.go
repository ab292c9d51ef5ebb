// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/target"
)

// PostPass applies the frame's effects in order. Each effect reads the
// previous color output and writes the next intermediate target; the
// last one writes the final target.
type PostPass struct{}

// Name returns "post".
func (PostPass) Name() string { return "post" }

// Run executes the effect chain.
func (PostPass) Run(pc *PassContext) error {
	effects := pc.Frame.Effects
	for i, e := range effects {
		src := pc.Output()
		if src == nil || src.Color(0).IsZero() {
			return ErrNoInput
		}
		dest := pc.FinalTarget()
		if i < len(effects)-1 {
			t, err := pc.Intermediate((i + 1) % 2)
			if err != nil {
				return err
			}
			dest = t
		}
		if err := runEffect(pc, e, src, dest); err != nil {
			return err
		}
		pc.SetOutput(dest)
	}
	return nil
}

func runEffect(pc *PassContext, e shader.Effect, src, dest *target.Target) error {
	prog, skip, err := pc.Program(shader.NewFeatures(shader.StagePost, shader.Unlit, shader.WithEffect(e)))
	if err != nil || skip {
		return err
	}
	cmd := DrawCommand{
		Program: prog,
		State: gpucore.PipelineState{
			Depth: gpucore.DepthDisabled(),
			Blend: gpucore.BlendNone,
			Cull:  gpucore.CullNone(),
		},
		Uniforms: gpucore.Uniforms{Exposure: pc.Frame.Exposure},
	}
	cmd.Textures[gpucore.UnitBaseColor] = src.Color(0)
	return pc.Targets.With(dest, func() error {
		return pc.Draw(&cmd)
	})
}
