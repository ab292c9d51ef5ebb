// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package software is a CPU implementation of gpucore.Adapter.
//
// It is the reference backend: deterministic, dependency-free at run
// time, and able to read back every attachment. Tests and headless
// tools render through it and compare exact pixel values.
//
// # Rasterization rules
//
// The rasterizer follows WebGPU conventions so that output matches the
// GPU backends:
//
//   - clip space is y up with depth in [0, 1]; row 0 of a texture is
//     the top row
//   - pixel centers sit at (x+0.5, y+0.5)
//   - coverage uses the top-left fill rule, so triangles sharing an
//     edge never touch a pixel twice
//   - triangles are clipped against the near plane and interpolated
//     perspective-correctly
//
// # Programs
//
// Programs are not compiled from WGSL. The backend reads the defines of
// gpucore.ProgramSource (stage, shading model, light and shadow counts,
// material channels, post effect) and evaluates the equivalent shading
// in Go.
//
// # Simplifications
//
// Sampling always reads mip level 0, and sRGB formats are stored and
// sampled without conversion.
package software
