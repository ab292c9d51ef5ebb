// Package auto registers every backend that can build on the target
// platform: the native GPU and software backends everywhere except the
// browser, and the browser WebGPU and software backends under js/wasm.
//
//	import _ "github.com/gogpu/g3d/backend/auto"
//
//	adapter, err := backend.Open("")
package auto
