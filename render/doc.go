// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package render executes frames as an ordered list of passes.
//
// A [Pipeline] runs its [Pass] objects in order for every [Frame]:
//
//	ShadowPass   depth-only rendering of shadow casters into one
//	             offscreen depth target per shadow-casting light
//	ColorPass    forward shading into the final target (or an
//	             intermediate one when post effects follow), then
//	             the GUI overlay
//	PostPass     one fullscreen pass per effect, each reading the
//	             previous color target
//
// [WithDeferredShading] swaps ColorPass for two passes:
//
//	GeometryPass albedo, world position and normal of every visible
//	             object into a three-attachment G-buffer
//	LightPass    one fullscreen draw per light reading the G-buffer;
//	             the first replaces the destination, the rest add
//
// Without effects the light pass writes the final target directly;
// with effects PostPass copies through the chain as usual.
//
// Every pass asks the shader cache for the program of the active
// feature set, redirects output through the target manager and applies
// state through the state cache, so only deltas reach the backend.
//
// # Ordering
//
// Opaque objects are stably sorted by shader fingerprint, then by base
// color texture, then by vertex buffer, then by submission order.
// Transparent objects follow, back to front by camera distance to their
// bounds center, ties by submission order. Identical frames produce
// identical backend call sequences.
//
// # Failures
//
// With [SkipObject] an object whose program failed to compile is
// skipped and the frame continues; the failure is remembered by the
// shader cache so the next frame does not recompile. [AbortFrame]
// aborts instead. Resource and backend errors always abort, and the
// adapter discards the aborted frame's unsubmitted work. The target
// stack is unwound to its depth on entry.
package render
