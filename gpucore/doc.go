// Package gpucore defines the backend binding contract shared by every
// g3d graphics backend.
//
// The [Adapter] interface is the only surface through which the engine
// talks to a graphics API. Each method maps to exactly one underlying
// call on the concrete backend and carries no caching or deduplication;
// those concerns are layered above it (see the resource, shader, state
// and target packages).
//
//	          +----------------------------+
//	          |  g3d.Context / render      |
//	          +-------------+--------------+
//	                        |
//	          +-------------v--------------+
//	          |  state.Cache / resource    |
//	          +-------------+--------------+
//	                        | gpucore.Adapter
//	      +-----------------+-----------------+
//	      |                 |                 |
//	+-----v------+   +------v-------+  +------v------+
//	| wgpu       |   | webgpu       |  | software    |
//	| (native)   |   | (js && wasm) |  | (CPU)       |
//	+------------+   +--------------+  +-------------+
//
// # Resource IDs
//
// Backends hand out opaque uint64 IDs. They are meaningful only to the
// backend that created them and are never exposed to applications:
// resource.Registry wraps them in generation-checked handles.
//
// # Errors
//
// Every failing call returns a [*BackendError]. Its Kind distinguishes
// allocation failures, compile/link failures (with diagnostic text),
// unsupported formats, invalid calls and context loss. Context loss is
// detectable with errors.Is(err, ErrContextLost).
package gpucore
