// Package geom provides the small float32 linear algebra used by the
// render pipeline and the backends: vectors, 4x4 matrices and
// axis-aligned bounding boxes.
//
// Matrices are column-major and follow the WebGPU clip-space convention
// (right-handed view space, depth range [0, 1]), so the same values can
// be uploaded to a uniform buffer without transposition.
package geom
