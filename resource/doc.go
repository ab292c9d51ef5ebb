// Package resource owns the GPU-resident objects of one context.
//
// A Registry is an arena of slots. Every upload returns a Handle: a
// comparable (registry, kind, index, generation) value. Releasing a
// handle bumps the slot generation, so any later use of the old handle
// fails with ErrUseAfterFree instead of reaching a recycled object.
//
// The registry is the only component that creates or destroys backend
// objects. Other packages resolve handles to backend IDs just before
// binding them:
//
//	vb, err := reg.UploadBuffer(desc)
//	...
//	id, err := reg.BufferID(vb)
//	err = adapter.BindVertexBuffer(id)
//
// A Registry is not safe for concurrent use.
package resource
