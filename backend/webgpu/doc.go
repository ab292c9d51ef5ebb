// Package webgpu is the browser backend binding. It drives the
// browser's WebGPU implementation (navigator.gpu) through syscall/js
// and is only built for js/wasm:
//
//	import _ "github.com/gogpu/g3d/backend/webgpu"
//
// Semantics match the native backend: passes begin lazily after
// BindTarget or Clear, render pipelines are created on first use,
// uniform blocks live in a per-frame arena and Flush submits.
//
// WebGPU in the browser is asynchronous. Init, CompileProgram,
// ReadTexture and Flush wait for promises, so they must run on a
// goroutine other than a JS event callback.
//
// WithCanvas presents the default surface on a canvas element at every
// Flush.
package webgpu
