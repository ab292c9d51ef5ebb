// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"cmp"
	"slices"

	"github.com/gogpu/g3d/geom"
	"github.com/gogpu/g3d/shader"
)

// item is an object prepared for drawing.
type item struct {
	index int
	obj   *Object
	fp    shader.Fingerprint
	dist  float32
}

// sortItems orders opaque items by fingerprint, base color texture,
// vertex buffer and submission order, then appends transparent items
// back to front with submission order breaking ties.
func sortItems(items []item, eye geom.Vec3) []item {
	opaque := make([]item, 0, len(items))
	var transparent []item
	for _, it := range items {
		if it.obj.material().Transparent {
			it.dist = it.obj.WorldBounds().Distance(eye)
			transparent = append(transparent, it)
			continue
		}
		opaque = append(opaque, it)
	}
	slices.SortStableFunc(opaque, func(a, b item) int {
		return cmp.Or(
			a.fp.Compare(b.fp),
			a.obj.material().BaseColorMap.Compare(b.obj.material().BaseColorMap.Handle),
			a.obj.Vertices.Compare(b.obj.Vertices.Handle),
			cmp.Compare(a.index, b.index),
		)
	})
	slices.SortStableFunc(transparent, func(a, b item) int {
		return cmp.Or(
			cmp.Compare(b.dist, a.dist),
			cmp.Compare(a.index, b.index),
		)
	})
	return append(opaque, transparent...)
}
