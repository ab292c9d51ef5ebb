// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/target"
)

// Overlay paints into the color pass's target after the scene, for
// example a GUI. It only sees the draw-side primitives.
type Overlay interface {
	Paint(oc *OverlayContext) error
}

// OverlayFunc adapts a function to Overlay.
type OverlayFunc func(oc *OverlayContext) error

// Paint calls f.
func (f OverlayFunc) Paint(oc *OverlayContext) error {
	return f(oc)
}

// OverlayContext is the overlay's view of the current pass.
type OverlayContext struct {
	pc *PassContext
}

// Target returns the target the overlay paints into.
func (oc *OverlayContext) Target() *target.Target {
	return oc.pc.Targets.Current()
}

// Viewport returns the current viewport.
func (oc *OverlayContext) Viewport() gpucore.Viewport {
	return oc.pc.Targets.Viewport()
}

// Camera returns a pixel-space camera for the current viewport.
func (oc *OverlayContext) Camera() Camera {
	vp := oc.Viewport()
	return Camera2D(float32(vp.Width), float32(vp.Height))
}

// Program returns the program for f from the shared cache.
func (oc *OverlayContext) Program(f shader.Features) (*shader.Program, error) {
	return oc.pc.Shaders.Get(f)
}

// SetViewport narrows drawing inside the current target.
func (oc *OverlayContext) SetViewport(vp gpucore.Viewport) error {
	return oc.pc.Targets.SetViewport(vp)
}

// Draw issues a draw through the state cache.
func (oc *OverlayContext) Draw(cmd *DrawCommand) error {
	return oc.pc.Draw(cmd)
}
