package geom

import "github.com/chewxy/math32"

// AABB is an axis-aligned bounding box. The zero value is an empty box.
type AABB struct {
	Min, Max Vec3
	valid    bool
}

// BoundsOf returns the bounding box of the given points.
func BoundsOf(points ...Vec3) AABB {
	var b AABB
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// Empty reports whether the box contains no points.
func (b AABB) Empty() bool {
	return !b.valid
}

// Extend returns the box grown to include p.
func (b AABB) Extend(p Vec3) AABB {
	if !b.valid {
		return AABB{Min: p, Max: p, valid: true}
	}
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p), valid: true}
}

// Union returns the smallest box containing b and o.
func (b AABB) Union(o AABB) AABB {
	if !o.valid {
		return b
	}
	if !b.valid {
		return o
	}
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max), valid: true}
}

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Radius returns the radius of the bounding sphere around Center.
func (b AABB) Radius() float32 {
	return b.Max.Sub(b.Min).Len() / 2
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8]Vec3 {
	return [8]Vec3{
		{b.Min.X, b.Min.Y, b.Min.Z},
		{b.Max.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Min.Z},
		{b.Max.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z},
		{b.Max.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Max.Z},
		{b.Max.X, b.Max.Y, b.Max.Z},
	}
}

// Transform returns the bounding box of b transformed by m.
func (b AABB) Transform(m Mat4) AABB {
	if !b.valid {
		return b
	}
	var out AABB
	for _, c := range b.Corners() {
		out = out.Extend(m.TransformPoint(c))
	}
	return out
}

// Distance returns the distance from p to the box center.
func (b AABB) Distance(p Vec3) float32 {
	d := b.Center().Sub(p)
	return math32.Sqrt(d.Dot(d))
}
