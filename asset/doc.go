// Package asset holds decoded mesh and pixel data and turns it into
// registry resources.
//
// The package does not parse model formats. Callers hand in decoded
// vertex attributes through a [Mesh] and pixels through an [Image] or
// any [image.Image]. Decoding several sources can run concurrently with
// [DecodeAll]; uploading always happens on the goroutine that owns the
// registry.
package asset
