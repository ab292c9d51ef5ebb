// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/gogpu/g3d/geom"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
)

// Varying slots: world position, normal, uv, color.
const (
	varyWorld  = 0
	varyNormal = 3
	varyUV     = 6
	varyColor  = 8
	numVary    = 12
)

type vertex struct {
	clip geom.Vec4
	vary [numVary]float32
}

func lerpVertex(a, b vertex, t float32) vertex {
	var v vertex
	v.clip = geom.Vec4{
		X: a.clip.X + (b.clip.X-a.clip.X)*t,
		Y: a.clip.Y + (b.clip.Y-a.clip.Y)*t,
		Z: a.clip.Z + (b.clip.Z-a.clip.Z)*t,
		W: a.clip.W + (b.clip.W-a.clip.W)*t,
	}
	for i := range v.vary {
		v.vary[i] = a.vary[i] + (b.vary[i]-a.vary[i])*t
	}
	return v
}

// Draw draws count vertices starting at first as a triangle list.
func (b *Backend) Draw(vertexCount, firstVertex int) error {
	if err := b.ready("Draw", false, firstVertex, vertexCount); err != nil {
		return err
	}
	return b.drawTriangles("Draw", vertexCount, func(i int) (int, bool) {
		return firstVertex + i, true
	})
}

// DrawIndexed draws count indices starting at first as a triangle list.
func (b *Backend) DrawIndexed(indexCount, firstIndex int) error {
	if err := b.ready("DrawIndexed", true, firstIndex, indexCount); err != nil {
		return err
	}
	return b.drawTriangles("DrawIndexed", indexCount, func(i int) (int, bool) {
		return indexAt(b.indices, firstIndex+i)
	})
}

// ready verifies the bound state can satisfy a draw of count elements
// starting at first.
func (b *Backend) ready(op string, indexed bool, first, count int) error {
	if err := b.bound(op, indexed); err != nil {
		return err
	}
	return b.drawRange(op, indexed, first, count)
}

// bound verifies the bound state is complete.
func (b *Backend) bound(op string, indexed bool) error {
	if err := b.check(op); err != nil {
		return err
	}
	p := b.prog
	switch {
	case p == nil:
		return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("no program bound"))
	case indexed && b.indices == nil:
		return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("no index buffer bound"))
	case p.stage == gpucore.StagePost:
		if b.units[gpucore.UnitBaseColor] == nil {
			return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("post program %q needs an input texture", p.key))
		}
		return nil
	case p.stage == gpucore.StageLight:
		return b.lightInputs(op)
	case b.uniforms == nil:
		return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("no uniforms set"))
	case b.vertices == nil:
		return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("no vertex buffer bound"))
	}
	layout := b.vertices.desc.Layout
	for _, s := range p.requires() {
		if !layout.Has(s) {
			return b.fail(op, gpucore.KindInvalidCall,
				fmt.Errorf("program %q reads %s, vertex buffer %q lacks it", p.key, s, b.vertices.desc.Label))
		}
	}
	if p.baseMap && b.units[gpucore.UnitBaseColor] == nil {
		return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("program %q needs a base color texture", p.key))
	}
	for s := 0; s < p.shadows; s++ {
		if b.units[gpucore.UnitShadow0+s] == nil {
			return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("program %q needs shadow map %d", p.key, s))
		}
	}
	return nil
}

func (b *Backend) drawTriangles(op string, count int, index func(int) (int, bool)) error {
	b.stats.Draws++
	b.snapshot()
	var tri [3]vertex
	for i := 0; i+2 < count; i += 3 {
		for k := range tri {
			vi, ok := index(i + k)
			if !ok {
				return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("index %d outside index buffer", i+k))
			}
			v, err := b.runVertex(vi)
			if err != nil {
				return b.fail(op, gpucore.KindInvalidCall, err)
			}
			tri[k] = v
		}
		b.stats.Triangles++
		b.clipAndRaster(tri)
	}
	return nil
}

// lightInputs verifies the G-buffer and shadow units a light program
// reads.
func (b *Backend) lightInputs(op string) error {
	p := b.prog
	switch {
	case b.uniforms == nil:
		return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("no uniforms set"))
	case b.units[gpucore.UnitBaseColor] == nil,
		b.units[gpucore.UnitGBufferPosition] == nil,
		b.units[gpucore.UnitGBufferNormal] == nil:
		return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("light program %q needs the G-buffer textures", p.key))
	}
	for s := 0; s < p.shadows; s++ {
		if b.units[gpucore.UnitShadow0+s] == nil {
			return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("program %q needs shadow map %d", p.key, s))
		}
	}
	return nil
}

// drawRange checks first and count against the buffer the draw reads.
func (b *Backend) drawRange(op string, indexed bool, first, count int) error {
	n := -1
	switch {
	case indexed:
		n = b.indices.desc.Elements()
	case !b.prog.stage.Fullscreen():
		n = b.vertices.desc.Elements()
	}
	if err := gpucore.CheckDrawRange(first, count, n); err != nil {
		return b.fail(op, gpucore.KindInvalidCall, err)
	}
	return nil
}

// fullscreen is the post-pass triangle covering clip space.
var fullscreen = [3][4]float32{
	{-1, -1, 0, 1},
	{3, -1, 2, 1},
	{-1, 3, 0, -1},
}

// runVertex evaluates the vertex stage for vertex index vi.
func (b *Backend) runVertex(vi int) (vertex, error) {
	var v vertex
	if b.prog.stage.Fullscreen() {
		f := fullscreen[vi%3]
		v.clip = geom.Vec4{X: f[0], Y: f[1], Z: 0, W: 1}
		v.vary[varyUV], v.vary[varyUV+1] = f[2], f[3]
		return v, nil
	}
	buf := b.vertices
	layout := buf.desc.Layout
	base := vi * layout.Stride
	if vi < 0 || base+layout.Stride > len(buf.data) {
		return v, fmt.Errorf("vertex %d outside vertex buffer %q", vi, buf.desc.Label)
	}
	attr := func(s gpucore.Semantic, def [4]float32) [4]float32 {
		a, ok := layout.Attribute(s)
		if !ok {
			return def
		}
		return readAttribute(buf.data[base+a.Offset:], a.Format, def)
	}
	u := b.uniforms
	p := attr(gpucore.SemanticPosition, [4]float32{0, 0, 0, 1})
	world := u.Model.MulVec4(geom.Vec4{X: p[0], Y: p[1], Z: p[2], W: 1})
	v.clip = u.ViewProj.MulVec4(world)
	v.vary[varyWorld], v.vary[varyWorld+1], v.vary[varyWorld+2] = world.X, world.Y, world.Z
	if b.prog.stage == gpucore.StageDepth {
		return v, nil
	}
	n := attr(gpucore.SemanticNormal, [4]float32{0, 0, 1, 0})
	wn := u.Normal.TransformDir(geom.V3(n[0], n[1], n[2]))
	v.vary[varyNormal], v.vary[varyNormal+1], v.vary[varyNormal+2] = wn.X, wn.Y, wn.Z
	uv := attr(gpucore.SemanticUV, [4]float32{})
	v.vary[varyUV], v.vary[varyUV+1] = uv[0], uv[1]
	c := attr(gpucore.SemanticColor, [4]float32{1, 1, 1, 1})
	copy(v.vary[varyColor:], c[:])
	return v, nil
}

// readAttribute decodes one attribute; missing components come from def.
func readAttribute(data []byte, f gputypes.VertexFormat, def [4]float32) [4]float32 {
	out := def
	n := 0
	switch f {
	case gputypes.VertexFormatUnorm8x4:
		for i := 0; i < 4; i++ {
			out[i] = float32(data[i]) / 255
		}
		return out
	case gputypes.VertexFormatFloat32:
		n = 1
	case gputypes.VertexFormatFloat32x2:
		n = 2
	case gputypes.VertexFormatFloat32x3:
		n = 3
	case gputypes.VertexFormatFloat32x4:
		n = 4
	}
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// clipAndRaster clips a triangle against the near plane (z >= 0) and
// rasterizes the resulting fan.
func (b *Backend) clipAndRaster(tri [3]vertex) {
	inside := 0
	for _, v := range tri {
		if v.clip.Z >= 0 {
			inside++
		}
	}
	if inside == 3 {
		b.rasterize(tri[0], tri[1], tri[2])
		return
	}
	if inside == 0 {
		return
	}
	poly := make([]vertex, 0, 4)
	for i := range tri {
		a, c := tri[i], tri[(i+1)%3]
		if a.clip.Z >= 0 {
			poly = append(poly, a)
		}
		if (a.clip.Z >= 0) != (c.clip.Z >= 0) {
			t := a.clip.Z / (a.clip.Z - c.clip.Z)
			poly = append(poly, lerpVertex(a, c, t))
		}
	}
	for i := 1; i+1 < len(poly); i++ {
		b.rasterize(poly[0], poly[i], poly[i+1])
	}
}

type screenVertex struct {
	x, y, z float32
	invW    float32
	vary    *[numVary]float32
}

// topLeft reports whether edge a->b of a triangle wound clockwise on a
// y-down screen is a top or left edge.
func topLeft(a, c screenVertex) bool {
	dx, dy := c.x-a.x, c.y-a.y
	return (dy == 0 && dx > 0) || dy < 0
}

func edge(a, c screenVertex, px, py float32) float32 {
	return (c.x-a.x)*(py-a.y) - (c.y-a.y)*(px-a.x)
}

func covers(w float32, isTopLeft bool) bool {
	return w > 0 || (w == 0 && isTopLeft)
}

func (b *Backend) rasterize(v0, v1, v2 vertex) {
	for _, v := range [3]*vertex{&v0, &v1, &v2} {
		if v.clip.W <= 0 {
			return
		}
	}
	vp := b.viewport
	var s [3]screenVertex
	for i, v := range [3]*vertex{&v0, &v1, &v2} {
		iw := 1 / v.clip.W
		nx, ny, nz := v.clip.X*iw, v.clip.Y*iw, v.clip.Z*iw
		s[i] = screenVertex{
			x:    float32(vp.X) + (nx+1)*0.5*float32(vp.Width),
			y:    float32(vp.Y) + (1-ny)*0.5*float32(vp.Height),
			z:    nz,
			invW: iw,
			vary: &v.vary,
		}
	}

	// Face orientation is decided in NDC (y up), before the viewport flip.
	area := (v1.clip.X/v1.clip.W-v0.clip.X/v0.clip.W)*(v2.clip.Y/v2.clip.W-v0.clip.Y/v0.clip.W) -
		(v2.clip.X/v2.clip.W-v0.clip.X/v0.clip.W)*(v1.clip.Y/v1.clip.W-v0.clip.Y/v0.clip.W)
	if area == 0 {
		return
	}
	if !b.prog.stage.Fullscreen() && b.cull.Culls(area) {
		b.stats.Culled++
		return
	}

	area2 := (s[1].x-s[0].x)*(s[2].y-s[0].y) - (s[2].x-s[0].x)*(s[1].y-s[0].y)
	if area2 < 0 {
		s[1], s[2] = s[2], s[1]
		area2 = -area2
	}
	tl0, tl1, tl2 := topLeft(s[1], s[2]), topLeft(s[2], s[0]), topLeft(s[0], s[1])

	fb := b.target
	minX := max(int(math32.Floor(min(s[0].x, s[1].x, s[2].x))), vp.X, 0)
	maxX := min(int(math32.Ceil(max(s[0].x, s[1].x, s[2].x))), vp.X+vp.Width, fb.width)
	minY := max(int(math32.Floor(min(s[0].y, s[1].y, s[2].y))), vp.Y, 0)
	maxY := min(int(math32.Ceil(max(s[0].y, s[1].y, s[2].y))), vp.Y+vp.Height, fb.height)

	inv := 1 / area2
	var vary [numVary]float32
	for py := minY; py < maxY; py++ {
		cy := float32(py) + 0.5
		for px := minX; px < maxX; px++ {
			cx := float32(px) + 0.5
			w0 := edge(s[1], s[2], cx, cy)
			w1 := edge(s[2], s[0], cx, cy)
			w2 := edge(s[0], s[1], cx, cy)
			if !covers(w0, tl0) || !covers(w1, tl1) || !covers(w2, tl2) {
				continue
			}
			b0, b1, b2 := w0*inv, w1*inv, w2*inv
			z := b0*s[0].z + b1*s[1].z + b2*s[2].z
			if z < 0 || z > 1 {
				continue
			}
			p0, p1, p2 := b0*s[0].invW, b1*s[1].invW, b2*s[2].invW
			q := 1 / (p0 + p1 + p2)
			for k := range vary {
				vary[k] = (p0*s[0].vary[k] + p1*s[1].vary[k] + p2*s[2].vary[k]) * q
			}
			b.fragment(px, py, z, &vary)
		}
	}
}

// fragment shades one covered pixel and writes it through depth and
// blend state.
func (b *Backend) fragment(px, py int, z float32, vary *[numVary]float32) {
	fb := b.target
	var outs [gpucore.GBufferAttachments][4]float32
	if !b.shade(px, py, vary, &outs) {
		return
	}
	if fb.depth != nil {
		if !b.depth.Passes(z, fb.depth.depthAt(px, py)) {
			return
		}
		if b.depth.Write {
			fb.depth.setDepth(px, py, z)
		}
	}
	b.stats.Fragments++
	if b.prog.stage == gpucore.StageDepth {
		return
	}
	for i, t := range fb.color {
		color := outs[0]
		if b.prog.stage == gpucore.StageGeometry && i < len(outs) {
			color = outs[i]
		}
		out := color
		if b.blend != gpucore.BlendNone {
			out = blend(b.blend, color, t.load(px, py))
		}
		t.store(px, py, out)
	}
}
