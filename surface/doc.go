// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package surface adapts a host window to the engine.
//
// A [Surface] wraps a [gpucontext.WindowProvider] for size and scale and
// a [gpucontext.EventSource] for input. Sizes reported to the engine are
// physical pixels: logical size times scale factor. Input events are
// forwarded as they arrive and are never interpreted here; a GUI
// overlay decides what they mean.
//
// Headless rendering uses [Headless], backed by the gpucontext null
// providers.
package surface
