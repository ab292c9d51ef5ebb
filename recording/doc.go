// Package recording records the calls a g3d context makes to its
// backend.
//
// A Recorder wraps any gpucore.Adapter, forwards every call, and
// appends a typed Command describing it. The log is what tests and
// tools inspect: how many programs were compiled, which state changes
// reached the backend, whether two identical frames produced the same
// draw-call sequence.
//
// # Architecture
//
// Commands capture every primitive operation:
//   - Resource commands (CreateBuffer, CreateTexture, CompileProgram, ...)
//   - State commands (BindTarget, UseProgram, SetDepth, BindTexture, ...)
//   - Drawing commands (Clear, Draw, DrawIndexed)
//   - Frame commands (Flush)
//
// Commands are plain comparable values, so two recordings can be
// compared with ==, and per-draw uniforms are captured as a digest of
// their encoded bytes.
//
// A Recorder can also inject failures into chosen command types, which
// is how error paths of the upper layers are exercised.
//
// # Example
//
//	rec := recording.NewRecorder(software.New(64, 64))
//	ctx, _ := g3d.New(g3d.WithAdapter(rec))
//	...
//	r := rec.FinishRecording()
//	fmt.Println(r.Count(recording.CmdCompileProgram))
package recording
