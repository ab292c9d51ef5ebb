// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"

	"github.com/gogpu/g3d/resource"
)

// Sentinel errors.
var (
	// ErrNoShadowMap reports a shadow-casting light with no shadow map
	// when the color pass runs.
	ErrNoShadowMap = errors.New("render: shadow map not available")

	// ErrUnsupportedShadow reports a light kind that cannot cast shadows.
	ErrUnsupportedShadow = errors.New("render: light kind cannot cast shadows")

	// ErrTooManyShadows reports more shadow-casting lights than shadow
	// slots.
	ErrTooManyShadows = errors.New("render: too many shadow-casting lights")

	// ErrTooManyLights reports more lights than light slots.
	ErrTooManyLights = errors.New("render: too many lights")

	// ErrNoGeometry reports an object without a vertex buffer.
	ErrNoGeometry = errors.New("render: object has no vertex buffer")

	// ErrDrawRange reports a draw whose First or Count falls outside its
	// buffer. It matches resource.ErrInvalidDescriptor.
	ErrDrawRange = fmt.Errorf("%w: draw range outside buffer", resource.ErrInvalidDescriptor)

	// ErrNoGBuffer reports a light pass that runs before any geometry
	// pass filled the G-buffer.
	ErrNoGBuffer = errors.New("render: light pass has no G-buffer")

	// ErrNoInput reports a post pass without a color input.
	ErrNoInput = errors.New("render: post pass has no input")
)

// PassError reports the pass, and object if any, that aborted a frame.
type PassError struct {
	Pass   string
	Object string
	Err    error
}

func (e *PassError) Error() string {
	if e.Object != "" {
		return fmt.Sprintf("render: %s pass: object %q: %v", e.Pass, e.Object, e.Err)
	}
	return fmt.Sprintf("render: %s pass: %v", e.Pass, e.Err)
}

func (e *PassError) Unwrap() error {
	return e.Err
}
