package gpucore

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func positionColorLayout() VertexLayout {
	return VertexLayout{
		Stride: 28,
		Attributes: []VertexAttribute{
			{Semantic: SemanticPosition, Format: gputypes.VertexFormatFloat32x3, Offset: 0},
			{Semantic: SemanticColor, Format: gputypes.VertexFormatFloat32x4, Offset: 12},
		},
	}
}

func TestVertexLayoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		layout  VertexLayout
		wantErr bool
	}{
		{"valid", positionColorLayout(), false},
		{"zero stride", VertexLayout{}, true},
		{"no position", VertexLayout{Stride: 8, Attributes: []VertexAttribute{
			{Semantic: SemanticUV, Format: gputypes.VertexFormatFloat32x2},
		}}, true},
		{"attribute past stride", VertexLayout{Stride: 8, Attributes: []VertexAttribute{
			{Semantic: SemanticPosition, Format: gputypes.VertexFormatFloat32x3},
		}}, true},
		{"duplicate", VertexLayout{Stride: 24, Attributes: []VertexAttribute{
			{Semantic: SemanticPosition, Format: gputypes.VertexFormatFloat32x3},
			{Semantic: SemanticPosition, Format: gputypes.VertexFormatFloat32x3, Offset: 12},
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVertexLayoutEqual(t *testing.T) {
	a := positionColorLayout()
	b := positionColorLayout()
	if !a.Equal(b) {
		t.Error("identical layouts should be equal")
	}
	if a.Key() != b.Key() {
		t.Errorf("Key() = %q and %q, want equal", a.Key(), b.Key())
	}
	b.Stride = 32
	if a.Equal(b) {
		t.Error("layouts with different stride should differ")
	}
	if !a.Has(SemanticColor) || a.Has(SemanticNormal) {
		t.Error("Has() reports wrong semantics")
	}
}

func TestMipSize(t *testing.T) {
	tests := []struct {
		w, h, level int
		wantW       int
		wantH       int
	}{
		{8, 4, 0, 8, 4},
		{8, 4, 1, 4, 2},
		{8, 4, 3, 1, 1},
		{8, 4, 5, 1, 1},
	}
	for _, tt := range tests {
		w, h := MipSize(tt.w, tt.h, tt.level)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("MipSize(%d, %d, %d) = %d, %d, want %d, %d", tt.w, tt.h, tt.level, w, h, tt.wantW, tt.wantH)
		}
	}

	if got := MaxMipLevels(8, 4); got != 4 {
		t.Errorf("MaxMipLevels(8, 4) = %d, want 4", got)
	}
	if got := MaxMipLevels(1, 1); got != 1 {
		t.Errorf("MaxMipLevels(1, 1) = %d, want 1", got)
	}
}

func TestBytesPerPixel(t *testing.T) {
	tests := []struct {
		format gputypes.TextureFormat
		want   int
	}{
		{gputypes.TextureFormatRGBA8Unorm, 4},
		{gputypes.TextureFormatR8Unorm, 1},
		{gputypes.TextureFormatRGBA32Float, 16},
		{gputypes.TextureFormatDepth32Float, 4},
		{gputypes.TextureFormatBC1RGBAUnorm, 0},
	}
	for _, tt := range tests {
		if got := BytesPerPixel(tt.format); got != tt.want {
			t.Errorf("BytesPerPixel(%v) = %d, want %d", tt.format, got, tt.want)
		}
	}

	d := TextureDesc{Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm}
	if got := d.LevelSize(1); got != 16 {
		t.Errorf("LevelSize(1) = %d, want 16", got)
	}
}
