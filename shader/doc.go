// Package shader synthesizes and caches GPU programs keyed by the
// feature combination they implement.
//
// A [Features] value enumerates everything a program can vary on: the
// pipeline stage, the lighting model, the material channels, the light
// and shadow counts and the post effect. [Features.Fingerprint]
// normalizes away fields that cannot influence the generated program
// and returns a comparable [Fingerprint], so equal logical
// configurations always land on the same cache entry:
//
//	a := shader.NewFeatures(shader.StageForward, shader.Lambert, shader.Lights(1), shader.ChannelVertexColor)
//	b := shader.NewFeatures(shader.StageForward, shader.Lambert, shader.ChannelVertexColor, shader.Lights(1))
//	a.Fingerprint() == b.Fingerprint() // true
//
// [Cache.GetOrCompile] renders the WGSL template of the fingerprint's
// stage, compiles it through the resource registry once, and returns
// the same [*Program] for every later request. Compile failures are
// remembered per fingerprint and returned without recompiling.
//
// Templates are embedded in the binary and may be overridden from a
// directory with [LoadTemplates].
package shader
