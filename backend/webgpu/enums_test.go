//go:build js && wasm

package webgpu

import (
	"testing"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
)

func TestTextureFormatsCoverDefaults(t *testing.T) {
	for _, f := range gpucore.DefaultFormats() {
		if textureFormats[f] == "" {
			t.Errorf("textureFormats[%v] is empty", f)
		}
	}
}

func TestCompareFunction(t *testing.T) {
	tests := []struct {
		in   gputypes.CompareFunction
		want string
	}{
		{gputypes.CompareFunctionLess, "less"},
		{gputypes.CompareFunctionLessEqual, "less-equal"},
		{gputypes.CompareFunctionAlways, "always"},
		{gputypes.CompareFunctionUndefined, "always"},
	}
	for _, tt := range tests {
		if got := compareFunction(tt.in); got != tt.want {
			t.Errorf("compareFunction(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBlendState(t *testing.T) {
	if got := blendState(gpucore.BlendNone.State()); got != nil {
		t.Errorf("blendState(none) = %v, want nil", got)
	}
	got, ok := blendState(gpucore.BlendAdditive.State()).(obj)
	if !ok {
		t.Fatalf("blendState(additive) = %T, want obj", got)
	}
	color := got["color"].(obj)
	if color["srcFactor"] != "one" || color["dstFactor"] != "one" || color["operation"] != "add" {
		t.Errorf("blendState(additive).color = %v, want one/one/add", color)
	}
}

func TestVertexLayout(t *testing.T) {
	l := gpucore.VertexLayout{
		Stride: 20,
		Attributes: []gpucore.VertexAttribute{
			{Semantic: gpucore.SemanticPosition, Format: gputypes.VertexFormatFloat32x3},
			{Semantic: gpucore.SemanticUV, Format: gputypes.VertexFormatFloat32x2, Offset: 12},
		},
	}
	got := vertexLayout(l)
	if got["arrayStride"] != 20 {
		t.Errorf("arrayStride = %v, want 20", got["arrayStride"])
	}
	attrs := got["attributes"].([]any)
	if len(attrs) != 2 {
		t.Fatalf("len(attributes) = %d, want 2", len(attrs))
	}
	if uv := attrs[1].(obj); uv["format"] != "float32x2" || uv["shaderLocation"] != gpucore.SemanticUV.Location() {
		t.Errorf("attributes[1] = %v", uv)
	}
}

func TestIndexFormat(t *testing.T) {
	if got := indexFormat(gputypes.IndexFormatUint32); got != "uint32" {
		t.Errorf("indexFormat(uint32) = %q, want %q", got, "uint32")
	}
	if got := indexFormat(gputypes.IndexFormatUint16); got != "uint16" {
		t.Errorf("indexFormat(uint16) = %q, want %q", got, "uint16")
	}
}
