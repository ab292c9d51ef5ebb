// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/g3d/geom"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
)

func floatBytes(vs ...float32) []byte {
	out := make([]byte, 0, len(vs)*4)
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

var positionLayout = gpucore.VertexLayout{
	Stride: 12,
	Attributes: []gpucore.VertexAttribute{
		{Semantic: gpucore.SemanticPosition, Format: gputypes.VertexFormatFloat32x3},
	},
}

func newBackend(t *testing.T, w, h int) *Backend {
	t.Helper()
	b := New(w, h)
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(b.Close)
	return b
}

func mustProgram(t *testing.T, b *Backend, defs ...gpucore.Define) gpucore.ProgramID {
	t.Helper()
	id, err := b.CompileProgram(gpucore.ProgramSource{Label: "test", Key: "test", Defines: defs})
	if err != nil {
		t.Fatalf("CompileProgram() error = %v", err)
	}
	return id
}

func mustVertices(t *testing.T, b *Backend, positions ...float32) gpucore.BufferID {
	t.Helper()
	id, err := b.CreateBuffer(gpucore.BufferDesc{Kind: gpucore.BufferVertex, Layout: positionLayout, Data: floatBytes(positions...)})
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	return id
}

func identityUniforms(color [4]float32) *gpucore.Uniforms {
	return &gpucore.Uniforms{
		Model:     geom.Identity(),
		ViewProj:  geom.Identity(),
		Normal:    geom.Identity(),
		BaseColor: color,
	}
}

// drawUnlit draws positions with an unlit program in the given color.
func drawUnlit(t *testing.T, b *Backend, color [4]float32, positions ...float32) {
	t.Helper()
	prog := mustProgram(t, b)
	vb := mustVertices(t, b, positions...)
	steps := []error{
		b.UseProgram(prog),
		b.BindVertexBuffer(vb),
		b.SetUniforms(identityUniforms(color)),
		b.Draw(len(positions)/3, 0),
	}
	for i, err := range steps {
		if err != nil {
			t.Fatalf("draw step %d error = %v", i, err)
		}
	}
}

func pixel(t *testing.T, b *Backend, x, y int) [4]byte {
	t.Helper()
	img, err := b.SurfaceImage()
	if err != nil {
		t.Fatalf("SurfaceImage() error = %v", err)
	}
	i := img.PixOffset(x, y)
	return [4]byte{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

func TestTriangleCoverage(t *testing.T) {
	b := newBackend(t, 4, 4)
	clear := gpucore.ClearOp{Color: true, ColorValue: gputypes.Color{B: 1, A: 1}}
	if err := b.Clear(clear); err != nil {
		t.Fatal(err)
	}
	drawUnlit(t, b, [4]float32{1, 0, 0, 1}, -1, -1, 0, 1, -1, 0, -1, 1, 0)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			nx := (float32(x)+0.5)/2 - 1
			ny := 1 - (float32(y)+0.5)/2
			want := [4]byte{0, 0, 255, 255}
			switch {
			case nx+ny < 0:
				want = [4]byte{255, 0, 0, 255}
			case nx+ny == 0:
				continue
			}
			if got := pixel(t, b, x, y); got != want {
				t.Errorf("pixel(%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestSharedEdgeCoveredOnce(t *testing.T) {
	b := newBackend(t, 4, 4)
	if err := b.Clear(gpucore.ClearOp{Color: true}); err != nil {
		t.Fatal(err)
	}
	if err := b.SetBlend(gpucore.BlendAdditive); err != nil {
		t.Fatal(err)
	}
	drawUnlit(t, b, [4]float32{0.2, 0.2, 0.2, 0.2},
		-1, -1, 0, 1, -1, 0, 1, 1, 0,
		-1, -1, 0, 1, 1, 0, -1, 1, 0,
	)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if got := pixel(t, b, x, y); got != [4]byte{51, 51, 51, 51} {
				t.Errorf("pixel(%d, %d) = %v, want every pixel covered exactly once", x, y, got)
			}
		}
	}
}

func TestDepthTest(t *testing.T) {
	b := newBackend(t, 2, 2)
	if err := b.Clear(gpucore.ClearOp{Color: true, Depth: true, DepthValue: 1}); err != nil {
		t.Fatal(err)
	}
	full := func(z float32) []float32 {
		return []float32{-1, -1, z, 3, -1, z, -1, 3, z}
	}
	tests := []struct {
		name  string
		z     float32
		color [4]float32
		want  [4]byte
	}{
		{"first", 0.5, [4]float32{1, 0, 0, 1}, [4]byte{255, 0, 0, 255}},
		{"behind", 0.8, [4]float32{0, 1, 0, 1}, [4]byte{255, 0, 0, 255}},
		{"in front", 0.2, [4]float32{0, 0, 1, 1}, [4]byte{0, 0, 255, 255}},
	}
	for _, tt := range tests {
		if err := b.SetDepth(gpucore.DepthDefault()); err != nil {
			t.Fatal(err)
		}
		drawUnlit(t, b, tt.color, full(tt.z)...)
		if got := pixel(t, b, 1, 1); got != tt.want {
			t.Errorf("%s: pixel = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBackFaceCulling(t *testing.T) {
	b := newBackend(t, 2, 2)
	if err := b.SetCull(gpucore.CullBack()); err != nil {
		t.Fatal(err)
	}
	// Clockwise in clip space.
	drawUnlit(t, b, [4]float32{1, 1, 1, 1}, -1, -1, 0, -1, 3, 0, 3, -1, 0)

	if got := b.Stats().Culled; got != 1 {
		t.Errorf("Stats().Culled = %d, want 1", got)
	}
	if got := pixel(t, b, 0, 0); got != [4]byte{} {
		t.Errorf("pixel = %v, want untouched", got)
	}
}

func TestPostEffect(t *testing.T) {
	b := newBackend(t, 2, 2)
	src := make([]byte, 2*2*4)
	for i := 0; i < len(src); i += 4 {
		copy(src[i:], []byte{255, 0, 0, 255})
	}
	tex, err := b.CreateTexture(gpucore.TextureDesc{
		Width: 2, Height: 2, Format: gputypes.TextureFormatRGBA8Unorm,
		Sampler: gpucore.ClampSampler(), Levels: [][]byte{src},
	})
	if err != nil {
		t.Fatal(err)
	}
	prog := mustProgram(t, b,
		gpucore.Define{Name: gpucore.DefineStage, Value: int(gpucore.StagePost)},
		gpucore.Define{Name: gpucore.DefineEffect, Value: int(gpucore.EffectInvert)},
	)
	if err := b.UseProgram(prog); err != nil {
		t.Fatal(err)
	}
	if err := b.Draw(3, 0); err == nil {
		t.Error("Draw() without input texture should fail")
	}
	if err := b.BindTexture(gpucore.UnitBaseColor, tex); err != nil {
		t.Fatal(err)
	}
	if err := b.Draw(3, 0); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := pixel(t, b, x, y); got != [4]byte{0, 255, 255, 255} {
				t.Errorf("pixel(%d, %d) = %v, want inverted red", x, y, got)
			}
		}
	}
}

func TestOffscreenTargetReadBack(t *testing.T) {
	b := newBackend(t, 8, 8)
	color, err := b.CreateTexture(gpucore.TextureDesc{
		Width: 2, Height: 2, Format: gputypes.TextureFormatRGBA8Unorm, Attachment: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	target, err := b.CreateTarget(gpucore.TargetDesc{Width: 2, Height: 2, Color: []gpucore.TextureID{color}})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.BindTarget(target, gpucore.Viewport{}); err != nil {
		t.Fatal(err)
	}
	if err := b.Clear(gpucore.ClearOp{Color: true, ColorValue: gputypes.Color{G: 1, A: 1}}); err != nil {
		t.Fatal(err)
	}
	got, err := b.ReadTexture(color)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(got); i += 4 {
		if got[i+1] != 255 || got[i] != 0 {
			t.Fatalf("ReadTexture() texel %d = %v, want green", i/4, got[i:i+4])
		}
	}
	if p := pixel(t, b, 0, 0); p != [4]byte{} {
		t.Errorf("surface pixel = %v, want untouched", p)
	}
}

func TestMissingNormalsRejected(t *testing.T) {
	b := newBackend(t, 2, 2)
	prog := mustProgram(t, b,
		gpucore.Define{Name: gpucore.DefineShading, Value: int(gpucore.ShadingLambert)},
		gpucore.Define{Name: gpucore.DefineLightCount, Value: 1},
	)
	vb := mustVertices(t, b, -1, -1, 0, 1, -1, 0, -1, 1, 0)
	_ = b.UseProgram(prog)
	_ = b.BindVertexBuffer(vb)
	_ = b.SetUniforms(identityUniforms([4]float32{1, 1, 1, 1}))

	err := b.Draw(3, 0)
	var be *gpucore.BackendError
	if !errors.As(err, &be) || be.Kind != gpucore.KindInvalidCall {
		t.Errorf("Draw() error = %v, want invalid call", err)
	}
}

func TestCompileRejectsUnknownStage(t *testing.T) {
	b := newBackend(t, 1, 1)
	_, err := b.CompileProgram(gpucore.ProgramSource{
		Label:   "bad",
		Defines: []gpucore.Define{{Name: gpucore.DefineStage, Value: 9}},
	})
	var be *gpucore.BackendError
	if !errors.As(err, &be) || be.Kind != gpucore.KindCompile || be.Diagnostic == "" {
		t.Errorf("CompileProgram() error = %v, want compile error with diagnostic", err)
	}
}

func TestUnknownIDs(t *testing.T) {
	b := newBackend(t, 1, 1)
	tests := []struct {
		name string
		call func() error
	}{
		{"DestroyBuffer", func() error { return b.DestroyBuffer(42) }},
		{"DestroyTexture", func() error { return b.DestroyTexture(42) }},
		{"UseProgram", func() error { return b.UseProgram(42) }},
		{"BindTarget", func() error { return b.BindTarget(42, gpucore.Viewport{}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, gpucore.ErrUnknownID) {
				t.Errorf("%s() error = %v, want ErrUnknownID", tt.name, err)
			}
		})
	}
}

func TestLose(t *testing.T) {
	b := newBackend(t, 1, 1)
	b.Lose()
	_, err := b.CreateBuffer(gpucore.BufferDesc{Kind: gpucore.BufferIndex, Size: 4})
	if !gpucore.IsContextLost(err) {
		t.Errorf("CreateBuffer() after Lose() error = %v, want context lost", err)
	}
}

func TestConfigureSurface(t *testing.T) {
	b := newBackend(t, 2, 2)
	if err := b.ConfigureSurface(5, 3); err != nil {
		t.Fatal(err)
	}
	img, err := b.SurfaceImage()
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds().Size(); got.X != 5 || got.Y != 3 {
		t.Errorf("surface size = %v, want 5x3", got)
	}
	if err := b.ConfigureSurface(0, 3); err == nil {
		t.Error("ConfigureSurface(0, 3) should fail")
	}
}

func TestDrawRangeRejected(t *testing.T) {
	b := newBackend(t, 2, 2)
	prog := mustProgram(t, b)
	vb := mustVertices(t, b, -1, -1, 0, 1, -1, 0, -1, 1, 0)
	_ = b.UseProgram(prog)
	_ = b.BindVertexBuffer(vb)
	_ = b.SetUniforms(identityUniforms([4]float32{1, 1, 1, 1}))

	tests := []struct {
		name         string
		count, first int
	}{
		{"past end", 3, 1},
		{"negative count", -3, 0},
		{"negative first", 3, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.Draw(tt.count, tt.first)
			var be *gpucore.BackendError
			if !errors.As(err, &be) || be.Kind != gpucore.KindInvalidCall || !errors.Is(err, gpucore.ErrDrawRange) {
				t.Errorf("Draw(%d, %d) error = %v, want invalid call wrapping ErrDrawRange", tt.count, tt.first, err)
			}
		})
	}
	if err := b.Draw(3, 0); err != nil {
		t.Errorf("Draw(3, 0) error = %v, want nil", err)
	}
}

func TestDiscardRestoresAttachments(t *testing.T) {
	red := gpucore.ClearOp{Color: true, ColorValue: gputypes.Color{R: 1, A: 1}}
	blue := gpucore.ClearOp{Color: true, ColorValue: gputypes.Color{B: 1, A: 1}}
	tests := []struct {
		name   string
		commit func(b *Backend) error
		want   [4]byte
	}{
		{"discarded", func(*Backend) error { return nil }, [4]byte{255, 0, 0, 255}},
		{"flushed", func(b *Backend) error { return b.Flush() }, [4]byte{0, 0, 255, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t, 2, 2)
			if err := b.Clear(red); err != nil {
				t.Fatal(err)
			}
			if err := b.Flush(); err != nil {
				t.Fatal(err)
			}
			if err := b.Clear(blue); err != nil {
				t.Fatal(err)
			}
			drawUnlit(t, b, [4]float32{0, 0, 1, 1}, -1, -1, 0, 3, -1, 0, -1, 3, 0)
			if err := tt.commit(b); err != nil {
				t.Fatal(err)
			}
			if err := b.Discard(); err != nil {
				t.Fatalf("Discard() error = %v", err)
			}
			if got := pixel(t, b, 1, 1); got != tt.want {
				t.Errorf("pixel(1, 1) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLightStageReadsGBuffer(t *testing.T) {
	b := newBackend(t, 2, 2)
	if err := b.Clear(gpucore.ClearOp{Color: true, ColorValue: gputypes.Color{G: 1, A: 1}}); err != nil {
		t.Fatal(err)
	}
	upload := func(format gputypes.TextureFormat, data []byte) gpucore.TextureID {
		t.Helper()
		id, err := b.CreateTexture(gpucore.TextureDesc{
			Width: 2, Height: 2, Format: format, Sampler: gpucore.ClampSampler(), Levels: [][]byte{data},
		})
		if err != nil {
			t.Fatal(err)
		}
		return id
	}
	albedo := upload(gputypes.TextureFormatRGBA8Unorm, bytes.Repeat([]byte{255, 0, 0, 255}, 4))
	position := upload(gputypes.TextureFormatRGBA32Float, floatBytes(make([]float32, 16)...))
	// Texel (0, 0) is empty.
	normal := upload(gputypes.TextureFormatRGBA32Float, floatBytes(
		0, 0, 0, 0, 0, 1, 0, 1,
		0, 1, 0, 1, 0, 1, 0, 1,
	))

	prog := mustProgram(t, b, gpucore.Define{Name: gpucore.DefineStage, Value: int(gpucore.StageLight)})
	if err := b.UseProgram(prog); err != nil {
		t.Fatal(err)
	}
	if err := b.SetUniforms(identityUniforms([4]float32{})); err != nil {
		t.Fatal(err)
	}
	if err := b.BindTexture(gpucore.UnitBaseColor, albedo); err != nil {
		t.Fatal(err)
	}
	var be *gpucore.BackendError
	if err := b.Draw(3, 0); !errors.As(err, &be) || be.Kind != gpucore.KindInvalidCall {
		t.Errorf("Draw() without G-buffer textures error = %v, want invalid call", err)
	}
	if err := b.BindTexture(gpucore.UnitGBufferPosition, position); err != nil {
		t.Fatal(err)
	}
	if err := b.BindTexture(gpucore.UnitGBufferNormal, normal); err != nil {
		t.Fatal(err)
	}
	if err := b.Draw(3, 0); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	tests := []struct {
		x, y int
		want [4]byte
	}{
		{0, 0, [4]byte{0, 255, 0, 255}},
		{1, 0, [4]byte{255, 0, 0, 255}},
		{0, 1, [4]byte{255, 0, 0, 255}},
		{1, 1, [4]byte{255, 0, 0, 255}},
	}
	for _, tt := range tests {
		if got := pixel(t, b, tt.x, tt.y); got != tt.want {
			t.Errorf("pixel(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}
