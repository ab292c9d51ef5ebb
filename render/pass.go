// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"log/slog"

	"github.com/gogpu/g3d/geom"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/state"
	"github.com/gogpu/g3d/target"
)

// Pass is one stage of a frame. Passes run in pipeline order and share
// results through the PassContext.
type Pass interface {
	// Name identifies the pass in errors and logs.
	Name() string
	// Run executes the pass for pc.Frame.
	Run(pc *PassContext) error
}

// FailurePolicy selects how a shader failure affects the frame.
type FailurePolicy uint8

const (
	// SkipObject skips objects whose program failed and continues.
	SkipObject FailurePolicy = iota
	// AbortFrame aborts the frame on the first program failure.
	AbortFrame
)

// String returns the policy name.
func (p FailurePolicy) String() string {
	if p == AbortFrame {
		return "abort"
	}
	return "skip"
}

// ParseFailurePolicy parses "skip" or "abort".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "skip":
		return SkipObject, nil
	case "abort":
		return AbortFrame, nil
	}
	return SkipObject, errors.New("render: unknown failure policy " + s)
}

// Stats counts the work of the last frame.
type Stats struct {
	Passes  int
	Draws   int
	Skipped int
	Shadows int
}

// ShadowMap is a rendered shadow map and the matrix it was rendered
// with.
type ShadowMap struct {
	Light   int
	Texture resource.Texture
	Matrix  geom.Mat4
}

// PassContext carries the engine components and per-frame results
// between passes.
type PassContext struct {
	Frame    *Frame
	Registry *resource.Registry
	Shaders  *shader.Cache
	Targets  *target.Manager
	State    *state.Cache
	Logger   *slog.Logger

	pipeline *Pipeline
	stats    Stats

	// shadows are the maps produced by the shadow pass, by slot.
	shadows []ShadowMap
	// color is the target holding the latest color output.
	color *target.Target
	// gbuffer is the target the geometry pass filled.
	gbuffer *target.Target
}

// Policy returns the pipeline failure policy.
func (pc *PassContext) Policy() FailurePolicy {
	return pc.pipeline.policy
}

// Shadows returns the shadow maps rendered so far this frame.
func (pc *PassContext) Shadows() []ShadowMap {
	return pc.shadows
}

// AddShadow records a rendered shadow map and returns its slot.
func (pc *PassContext) AddShadow(m ShadowMap) int {
	pc.shadows = append(pc.shadows, m)
	pc.stats.Shadows++
	return len(pc.shadows) - 1
}

// ShadowSlot returns the shadow slot of light i, or -1.
func (pc *PassContext) ShadowSlot(light int) int {
	for s, m := range pc.shadows {
		if m.Light == light {
			return s
		}
	}
	return -1
}

// GBuffer returns the G-buffer filled this frame, or nil. Its color
// attachments are indexed by gpucore.GBufferAlbedo, GBufferPosition
// and GBufferNormal.
func (pc *PassContext) GBuffer() *target.Target {
	return pc.gbuffer
}

// Output returns the target holding the latest color output, or nil.
func (pc *PassContext) Output() *target.Target {
	return pc.color
}

// SetOutput records the target a pass wrote color into.
func (pc *PassContext) SetOutput(t *target.Target) {
	pc.color = t
}

// FinalTarget returns the frame's final destination.
func (pc *PassContext) FinalTarget() *target.Target {
	if pc.Frame.Target != nil {
		return pc.Frame.Target
	}
	return pc.Targets.Surface()
}

// Intermediate returns offscreen color target i (0 or 1) sized like
// the final target.
func (pc *PassContext) Intermediate(i int) (*target.Target, error) {
	return pc.pipeline.intermediate(pc, i)
}

// ShadowTarget returns the cached depth target of shadow slot s.
func (pc *PassContext) ShadowTarget(s, size int) (*target.Target, error) {
	return pc.pipeline.shadowTarget(s, size)
}

// Program resolves f through the shader cache. A skipped result means
// the program failed and the policy allows continuing without it.
func (pc *PassContext) Program(f shader.Features) (prog *shader.Program, skip bool, err error) {
	prog, err = pc.Shaders.Get(f)
	if err == nil {
		return prog, false, nil
	}
	var serr *shader.Error
	if errors.As(err, &serr) && pc.Policy() == SkipObject {
		pc.stats.Skipped++
		pc.Logger.Warn("render: skipping object", "fingerprint", serr.Fingerprint.String(), "err", serr.Err)
		return nil, true, nil
	}
	return nil, false, err
}

// Draw issues cmd through the state cache.
func (pc *PassContext) Draw(cmd *DrawCommand) error {
	if err := cmd.issue(pc.Registry, pc.State); err != nil {
		return err
	}
	pc.stats.Draws++
	return nil
}
