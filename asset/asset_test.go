package asset

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/gogpu/g3d/backend/software"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/gputypes"
)

func newRegistry(t *testing.T) *resource.Registry {
	t.Helper()
	b := software.New(4, 4)
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return resource.New(b)
}

func TestMeshValidate(t *testing.T) {
	tests := []struct {
		name    string
		mesh    Mesh
		wantErr bool
	}{
		{"plane", *Plane(1), false},
		{"cube", *Cube(1), false},
		{"empty", Mesh{}, true},
		{"short normals", Mesh{Positions: make([][3]float32, 3), Normals: make([][3]float32, 2)}, true},
		{"index out of range", Mesh{Positions: make([][3]float32, 3), Indices: []uint32{0, 1, 3}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mesh.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidMesh) {
				t.Errorf("Validate() error = %v, want ErrInvalidMesh", err)
			}
		})
	}
}

func TestMeshLayout(t *testing.T) {
	m := &Mesh{
		Positions: make([][3]float32, 2),
		UVs:       make([][2]float32, 2),
		Colors:    make([][4]float32, 2),
	}
	l := m.Layout()
	if l.Stride != 36 {
		t.Errorf("Stride = %d, want 36", l.Stride)
	}
	want := []struct {
		sem    gpucore.Semantic
		offset int
	}{{gpucore.SemanticPosition, 0}, {gpucore.SemanticUV, 12}, {gpucore.SemanticColor, 20}}
	if len(l.Attributes) != len(want) {
		t.Fatalf("Attributes = %v, want %d entries", l.Attributes, len(want))
	}
	for i, w := range want {
		if a := l.Attributes[i]; a.Semantic != w.sem || a.Offset != w.offset {
			t.Errorf("Attributes[%d] = %+v, want %v at %d", i, a, w.sem, w.offset)
		}
	}
	if got := len(m.Vertices()); got != 72 {
		t.Errorf("len(Vertices()) = %d, want 72", got)
	}
}

func TestUploadMesh(t *testing.T) {
	reg := newRegistry(t)
	g, err := UploadMesh(reg, "cube", Cube(0.5), gpucore.UsageStatic)
	if err != nil {
		t.Fatalf("UploadMesh() error = %v", err)
	}
	vi, err := reg.BufferInfo(g.Vertices)
	if err != nil {
		t.Fatal(err)
	}
	if vi.Count != 24 {
		t.Errorf("vertex Count = %d, want 24", vi.Count)
	}
	ii, err := reg.BufferInfo(g.Indices)
	if err != nil {
		t.Fatal(err)
	}
	if ii.Count != 36 || ii.IndexFormat != gputypes.IndexFormatUint16 {
		t.Errorf("index info = %+v, want 36 uint16 indices", ii)
	}
	if g.Bounds.Min.X != -0.5 || g.Bounds.Max.Y != 0.5 {
		t.Errorf("Bounds = %+v, want half-size 0.5", g.Bounds)
	}
	if err := g.Release(reg); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if got := reg.Stats().Buffers; got != 0 {
		t.Errorf("Stats().Buffers = %d after Release, want 0", got)
	}
}

func TestFromImageAndMipChain(t *testing.T) {
	src := image.NewNRGBA(image.Rect(2, 2, 10, 6))
	for y := 2; y < 6; y++ {
		for x := 2; x < 10; x++ {
			src.Set(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	img := FromImage(src)
	if img.Width != 8 || img.Height != 4 || len(img.Pix) != 128 {
		t.Fatalf("FromImage() = %dx%d with %d bytes, want 8x4 with 128", img.Width, img.Height, len(img.Pix))
	}

	chain, err := img.MipChain(0)
	if err != nil {
		t.Fatalf("MipChain() error = %v", err)
	}
	if len(chain) != 4 {
		t.Fatalf("len(MipChain()) = %d, want 4", len(chain))
	}
	last := chain[3]
	if len(last) != 4 {
		t.Fatalf("1x1 level has %d bytes, want 4", len(last))
	}
	for i, want := range []byte{200, 100, 50, 255} {
		if d := int(last[i]) - int(want); d < -1 || d > 1 {
			t.Errorf("1x1 level = %v, want about %d in channel %d", last, want, i)
		}
	}
}

func TestUploadImage(t *testing.T) {
	reg := newRegistry(t)
	img := FromImage(image.NewRGBA(image.Rect(0, 0, 4, 2)))
	tex, err := UploadImage(reg, "checker", img, TextureOptions{Mipmaps: true})
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	info, err := reg.TextureInfo(tex)
	if err != nil {
		t.Fatal(err)
	}
	if info.MipLevels != 3 || info.Format != gputypes.TextureFormatRGBA8UnormSrgb {
		t.Errorf("TextureInfo() = %+v, want 3 sRGB levels", info)
	}

	bad := &Image{Width: 2, Height: 2, Pix: make([]byte, 3)}
	if _, err := UploadImage(reg, "bad", bad, TextureOptions{}); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("UploadImage(short pix) error = %v, want ErrInvalidImage", err)
	}
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(1, 1, color.RGBA{R: 255, A: 255})
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	img, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if i := (1*3 + 1) * 4; img.Pix[i] != 255 || img.Pix[i+3] != 255 {
		t.Errorf("pixel (1,1) = %v, want red", img.Pix[i:i+4])
	}
	if _, err := Decode(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("Decode(garbage) error = nil, want error")
	}
}

func TestDecodeAllKeepsOrder(t *testing.T) {
	sources := make([]ImageSource, 8)
	for i := range sources {
		w := i + 1
		sources[i] = ImageFunc(func(context.Context) (*Image, error) {
			return &Image{Width: w, Height: 1, Pix: make([]byte, 4*w)}, nil
		})
	}
	imgs, err := DecodeImages(context.Background(), sources, 3)
	if err != nil {
		t.Fatalf("DecodeImages() error = %v", err)
	}
	for i, img := range imgs {
		if img.Width != i+1 {
			t.Errorf("imgs[%d].Width = %d, want %d", i, img.Width, i+1)
		}
	}
}

func TestDecodeAllError(t *testing.T) {
	boom := errors.New("boom")
	sources := []MeshSource{
		MeshFunc(func(context.Context) (*Mesh, error) { return Plane(1), nil }),
		MeshFunc(func(context.Context) (*Mesh, error) { return nil, boom }),
	}
	if _, err := DecodeMeshes(context.Background(), sources, 0); !errors.Is(err, boom) {
		t.Errorf("DecodeMeshes() error = %v, want boom", err)
	}
}

func TestImageFileMissing(t *testing.T) {
	_, err := ImageFile(t.TempDir() + "/missing.png").Image(context.Background())
	if err == nil {
		t.Error("Image() error = nil, want not-exist error")
	}
}
