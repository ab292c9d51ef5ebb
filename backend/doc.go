// Package backend selects the graphics backend a g3d context draws
// through.
//
// Every backend implements gpucore.Adapter and registers a factory from
// its init() function:
//
//	import _ "github.com/gogpu/g3d/backend/software"
//
// The auto package registers the GPU backend matching the build
// target: the native wgpu backend on desktop, the browser backend under
// js/wasm.
//
//	import _ "github.com/gogpu/g3d/backend/auto"
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name:
//
//	a := backend.Default()
//	a := backend.Get("software")
//
// Open does the same and initializes the adapter:
//
//	a, err := backend.Open("")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer a.Close()
//
// # Available Backends
//
//   - "wgpu": native WebGPU via gogpu/wgpu (Vulkan, Metal, DX12, GLES)
//   - "webgpu": browser navigator.gpu (js/wasm only)
//   - "software": CPU reference rasterizer (always available)
package backend
