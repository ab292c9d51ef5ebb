// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/g3d/backend/software"
	"github.com/gogpu/g3d/geom"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/recording"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/state"
	"github.com/gogpu/g3d/target"
	"github.com/gogpu/gputypes"
)

type env struct {
	rec  *recording.Recorder
	deps Deps
}

func newEnv(t *testing.T, w, h int) *env {
	t.Helper()
	rec := recording.NewRecorder(software.New(w, h))
	if err := rec.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	reg := resource.New(rec)
	sc := state.New(rec)
	return &env{
		rec: rec,
		deps: Deps{
			Registry: reg,
			Shaders:  shader.NewCache(reg, nil),
			Targets:  target.NewManager(reg, sc, w, h),
			State:    sc,
		},
	}
}

func (e *env) pipeline(opts ...Option) *Pipeline {
	return New(e.deps, append([]Option{WithShadowMapSize(64)}, opts...)...)
}

func (e *env) offscreen(t *testing.T, w, h int) *target.Target {
	t.Helper()
	tg, err := e.deps.Targets.Create(target.Spec{
		Name:   "out",
		Width:  w,
		Height: h,
		Color:  []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		Depth:  gputypes.TextureFormatDepth32Float,
		Clear:  target.ClearAll(gputypes.Color{A: 1}),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return tg
}

func (e *env) pixel(t *testing.T, tg *target.Target, x, y int) [4]byte {
	t.Helper()
	data, err := e.deps.Registry.ReadTexture(tg.Color(0))
	if err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	w, _ := tg.Size()
	i := (y*w + x) * 4
	return [4]byte{data[i], data[i+1], data[i+2], data[i+3]}
}

func floatBytes(vs ...float32) []byte {
	out := make([]byte, 0, len(vs)*4)
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

var (
	positionLayout = gpucore.VertexLayout{
		Stride:     12,
		Attributes: []gpucore.VertexAttribute{{Semantic: gpucore.SemanticPosition, Format: gputypes.VertexFormatFloat32x3}},
	}
	litLayout = gpucore.VertexLayout{
		Stride: 24,
		Attributes: []gpucore.VertexAttribute{
			{Semantic: gpucore.SemanticPosition, Format: gputypes.VertexFormatFloat32x3},
			{Semantic: gpucore.SemanticNormal, Format: gputypes.VertexFormatFloat32x3, Offset: 12},
		},
	}
)

func (e *env) vertices(t *testing.T, layout gpucore.VertexLayout, data ...float32) resource.Buffer {
	t.Helper()
	b, err := e.deps.Registry.UploadBuffer(gpucore.BufferDesc{Kind: gpucore.BufferVertex, Layout: layout, Data: floatBytes(data...)})
	if err != nil {
		t.Fatalf("UploadBuffer() error = %v", err)
	}
	return b
}

// fullscreen returns a clip-space triangle covering the viewport at
// depth z.
func (e *env) fullscreen(t *testing.T, z float32) resource.Buffer {
	t.Helper()
	return e.vertices(t, positionLayout, -1, -1, z, 3, -1, z, -1, 3, z)
}

// quad returns two triangles facing +y at height h with half-size s,
// with normals.
func (e *env) quad(t *testing.T, h, s float32) resource.Buffer {
	t.Helper()
	a := [3]float32{-s, h, -s}
	b := [3]float32{-s, h, s}
	c := [3]float32{s, h, s}
	d := [3]float32{s, h, -s}
	var data []float32
	for _, p := range [][3]float32{a, b, c, a, c, d} {
		data = append(data, p[0], p[1], p[2], 0, 1, 0)
	}
	return e.vertices(t, litLayout, data...)
}

func unlit(r, g, b, a float32) *Material {
	return &Material{BaseColor: [4]float32{r, g, b, a}}
}

func screenPoint(vp geom.Mat4, p geom.Vec3, w, h int) (int, int) {
	ndc := vp.MulVec4(p.Vec4(1)).PerspectiveDivide()
	return int((ndc.X + 1) / 2 * float32(w)), int((1 - ndc.Y) / 2 * float32(h))
}
