// Package g3d is a rendering engine core: GPU resources behind opaque
// handles, shader programs cached by feature fingerprint, a render
// target stack and a shadow, color and post-processing pipeline over
// one backend interface.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/g3d"
//		_ "github.com/gogpu/g3d/backend/auto"
//	)
//
//	ctx, err := g3d.New(g3d.WithSize(800, 600))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	geo, err := ctx.UploadMesh("cube", asset.Cube(1))
//	...
//	err = ctx.Render(&render.Frame{
//		Camera:  render.PerspectiveCamera(eye, center, up, fov, aspect, 0.1, 100),
//		Lights:  []render.Light{render.DirectionalLight(dir, white, 1)},
//		Objects: []render.Object{{Vertices: geo.Vertices, Indices: geo.Indices, Material: mat}},
//	})
//
// # Architecture
//
// The package is organized into:
//   - gpucore: the backend interface, descriptors and pipeline-state values
//   - backend: backend selection; backend/wgpu, backend/webgpu and backend/software implement it
//   - resource: the registry that owns every GPU object
//   - shader: feature fingerprints, WGSL templates and the program cache
//   - target: render targets and the target stack
//   - state: redundant state-change elimination
//   - render: passes, scene description and the frame pipeline
//   - asset, surface: the decoded-data and window collaborators
//
// # Threading
//
// A Context belongs to one goroutine. Asset decoding may run
// concurrently; uploads happen on the owner.
//
// # Context Loss
//
// When the backend reports a lost device, the Context invalidates every
// handle without touching the backend and fails every later call with
// ErrContextLost. Create a new Context to recover.
package g3d

// Version is the module version.
const Version = "0.1.0"
