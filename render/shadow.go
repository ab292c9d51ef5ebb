// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"fmt"

	"github.com/gogpu/g3d/geom"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/shader"
)

// ShadowPass renders one depth map per shadow-casting light.
type ShadowPass struct{}

// Name returns "shadow".
func (ShadowPass) Name() string { return "shadow" }

// Run draws every shadow caster into the depth target of each
// shadow-casting light.
func (ShadowPass) Run(pc *PassContext) error {
	f := pc.Frame
	var casters []int
	for i := range f.Lights {
		if !f.Lights[i].CastShadows {
			continue
		}
		if f.Lights[i].Kind == gpucore.LightPoint {
			return fmt.Errorf("%w: light %d", ErrUnsupportedShadow, i)
		}
		casters = append(casters, i)
	}
	if len(casters) == 0 {
		return nil
	}
	if len(casters) > gpucore.MaxShadows {
		return fmt.Errorf("%w: %d, max %d", ErrTooManyShadows, len(casters), gpucore.MaxShadows)
	}

	prog, skip, err := pc.Program(shader.Features{Stage: shader.StageDepth})
	if err != nil || skip {
		return err
	}

	var bounds geom.AABB
	for i := range f.Objects {
		if !f.Objects[i].Hidden {
			bounds = bounds.Union(f.Objects[i].WorldBounds())
		}
	}

	for slot, li := range casters {
		l := &f.Lights[li]
		size := l.ShadowMapSize
		if size <= 0 {
			size = pc.pipeline.shadowMapSize
		}
		t, err := pc.ShadowTarget(slot, size)
		if err != nil {
			return err
		}
		lightVP := l.ShadowMatrix(bounds)
		err = pc.Targets.With(t, func() error {
			if err := pc.Targets.Clear(); err != nil {
				return err
			}
			for i := range f.Objects {
				o := &f.Objects[i]
				if o.Hidden || !o.CastShadows || o.material().Transparent {
					continue
				}
				if o.Vertices.IsZero() {
					return &PassError{Pass: "shadow", Object: o.Name, Err: ErrNoGeometry}
				}
				cmd := DrawCommand{
					Program:  prog,
					Vertices: o.Vertices,
					Indices:  o.Indices,
					Count:    o.Count,
					First:    o.First,
					State: gpucore.PipelineState{
						Depth: gpucore.DepthShadowCast(),
						Blend: gpucore.BlendNone,
						Cull:  gpucore.CullBack(),
					},
					Uniforms: gpucore.Uniforms{Model: o.model(), ViewProj: lightVP},
				}
				if err := pc.Draw(&cmd); err != nil {
					return &PassError{Pass: "shadow", Object: o.Name, Err: err}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		pc.AddShadow(ShadowMap{Light: li, Texture: t.DepthAttachment(), Matrix: lightVP})
	}
	return nil
}
