package g3d

import (
	"errors"
	"image/color"
	"slices"
	"testing"

	"github.com/gogpu/g3d/asset"
	"github.com/gogpu/g3d/backend/software"
	"github.com/gogpu/g3d/geom"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/recording"
	"github.com/gogpu/g3d/render"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/surface"
	"github.com/gogpu/g3d/target"
	"github.com/gogpu/gputypes"
)

func newContext(t *testing.T, opts ...Option) *Context {
	t.Helper()
	ctx, err := New(append([]Option{WithAdapter(software.New(4, 4)), WithSize(4, 4)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func offscreen(t *testing.T, ctx *Context, name string, w, h int) *target.Target {
	t.Helper()
	tg, err := ctx.CreateTarget(target.Spec{
		Name:   name,
		Width:  w,
		Height: h,
		Color:  []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		Depth:  gputypes.TextureFormatDepth32Float,
		Clear:  target.ClearAll(gputypes.Color{B: 1, A: 1}),
	})
	if err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}
	return tg
}

// TestOffscreenTriangle renders a fixed-color triangle into a 4x4
// target and checks every pixel.
func TestOffscreenTriangle(t *testing.T) {
	ctx := newContext(t)
	out := offscreen(t, ctx, "out", 4, 4)

	geo, err := ctx.UploadMesh("triangle", &asset.Mesh{
		Positions: [][3]float32{{-1, -1, 0}, {1.2, -1, 0}, {-1, 1.2, 0}},
	})
	if err != nil {
		t.Fatalf("UploadMesh() error = %v", err)
	}
	err = ctx.Render(&render.Frame{
		Target:  out,
		Objects: []render.Object{{Name: "tri", Vertices: geo.Vertices, Material: &render.Material{BaseColor: [4]float32{1, 0, 0, 1}}}},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	img, err := ctx.ReadPixels(out)
	if err != nil {
		t.Fatalf("ReadPixels() error = %v", err)
	}
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			// The hypotenuse x+y = 0.2 passes between pixel centers;
			// centers with x <= y are covered.
			want := blue
			if x <= y {
				want = red
			}
			if got := img.RGBAAt(x, y); got != want {
				t.Errorf("pixel (%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

// TestProgramCompiledOnce requests the same fingerprint twice and
// expects one compile call.
func TestProgramCompiledOnce(t *testing.T) {
	rec := recording.NewRecorder(software.New(4, 4))
	ctx := newContext(t, WithAdapter(rec))
	f1 := shader.NewFeatures(shader.StageForward, shader.Lambert, shader.Lights(1))

	p1, err := ctx.Program(f1)
	if err != nil {
		t.Fatalf("Program() error = %v", err)
	}
	p2, err := ctx.Program(f1)
	if err != nil {
		t.Fatalf("second Program() error = %v", err)
	}
	if p1 != p2 {
		t.Errorf("Program() returned %p then %p, want the same program", p1, p2)
	}
	if got := rec.Count(recording.CmdCompileProgram); got != 1 {
		t.Errorf("Count(CompileProgram) = %d, want 1", got)
	}
}

// TestPopUnderflow pushes two targets and pops three times.
func TestPopUnderflow(t *testing.T) {
	ctx := newContext(t)
	a := offscreen(t, ctx, "a", 4, 4)
	b := offscreen(t, ctx, "b", 2, 2)

	for _, tg := range []*target.Target{a, b} {
		if err := ctx.PushTarget(tg); err != nil {
			t.Fatalf("PushTarget(%s) error = %v", tg.Name(), err)
		}
	}
	for i := 0; i < 2; i++ {
		if err := ctx.PopTarget(); err != nil {
			t.Fatalf("PopTarget() #%d error = %v", i+1, err)
		}
	}
	err := ctx.PopTarget()
	if !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("third PopTarget() error = %v, want ErrStackUnderflow", err)
	}
	var terr *target.Error
	if !errors.As(err, &terr) {
		t.Errorf("third PopTarget() error type = %T, want *target.Error", err)
	}
	if cur := ctx.Targets().Current(); !cur.IsSurface() {
		t.Errorf("Current() = %s, want surface", cur.Name())
	}
	if w, h := ctx.Size(); w != 4 || h != 4 {
		t.Errorf("Size() = %dx%d, want 4x4", w, h)
	}
}

func TestUseAfterRelease(t *testing.T) {
	ctx := newContext(t)
	b, err := ctx.UploadBuffer(gpucore.BufferDesc{Kind: gpucore.BufferIndex, IndexFormat: gputypes.IndexFormatUint16, Data: make([]byte, 6)})
	if err != nil {
		t.Fatalf("UploadBuffer() error = %v", err)
	}
	if err := ctx.Release(b); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := ctx.Release(b); !errors.Is(err, ErrUseAfterFree) {
		t.Errorf("second Release() error = %v, want ErrUseAfterFree", err)
	}
}

func TestContextLost(t *testing.T) {
	sw := software.New(4, 4)
	ctx := newContext(t, WithAdapter(sw))
	geo, err := ctx.UploadMesh("plane", asset.Plane(1))
	if err != nil {
		t.Fatalf("UploadMesh() error = %v", err)
	}

	sw.Lose()
	err = ctx.Render(&render.Frame{Objects: []render.Object{{Vertices: geo.Vertices, Indices: geo.Indices}}})
	if !errors.Is(err, ErrContextLost) {
		t.Fatalf("Render() error = %v, want ErrContextLost", err)
	}
	if !ctx.Lost() {
		t.Fatal("Lost() = false after device loss")
	}
	if ctx.Registry().Valid(geo.Vertices) {
		t.Error("handle still valid after context loss")
	}
	if ctx.Targets().Depth() != 0 {
		t.Errorf("Targets().Depth() = %d, want 0", ctx.Targets().Depth())
	}

	calls := []struct {
		name string
		fn   func() error
	}{
		{"UploadBuffer", func() error {
			_, err := ctx.UploadBuffer(gpucore.BufferDesc{Kind: gpucore.BufferVertex, Data: make([]byte, 12)})
			return err
		}},
		{"Release", func() error { return ctx.Release(geo.Vertices) }},
		{"Render", func() error { return ctx.Render(&render.Frame{}) }},
		{"Program", func() error { _, err := ctx.Program(shader.Features{}); return err }},
		{"Resize", func() error { return ctx.Resize(8, 8) }},
	}
	for _, c := range calls {
		if err := c.fn(); !errors.Is(err, ErrContextLost) {
			t.Errorf("%s() error = %v, want ErrContextLost", c.name, err)
		}
	}
	if err := ctx.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestCloseInvalidatesHandles(t *testing.T) {
	ctx := newContext(t)
	tex, err := ctx.UploadTexture(gpucore.TextureDesc{Width: 2, Height: 2, Format: gputypes.TextureFormatRGBA8Unorm})
	if err != nil {
		t.Fatalf("UploadTexture() error = %v", err)
	}
	reg := ctx.Registry()
	if err := ctx.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if reg.Valid(tex) {
		t.Error("texture still valid after Close()")
	}
	if _, err := ctx.UploadTexture(gpucore.TextureDesc{}); !errors.Is(err, ErrClosed) {
		t.Errorf("UploadTexture() after Close() error = %v, want ErrClosed", err)
	}
	if err := ctx.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestForeignHandle(t *testing.T) {
	a, b := newContext(t), newContext(t)
	buf, err := a.UploadBuffer(gpucore.BufferDesc{Kind: gpucore.BufferVertex, Data: make([]byte, 12)})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Release(buf); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("Release(foreign) error = %v, want ErrForeignHandle", err)
	}
	var _ resource.Resource = buf
}

// resizable is a window whose size tests change.
type resizable struct{ w, h int }

func (r *resizable) Size() (int, int)     { return r.w, r.h }
func (r *resizable) ScaleFactor() float64 { return 1 }
func (r *resizable) RequestRedraw()       {}

func TestSurfaceResizeAppliedBeforeFrame(t *testing.T) {
	win := &resizable{w: 4, h: 4}
	s := surface.New(win, nil)
	ctx := newContext(t, WithSurface(s))

	win.w, win.h = 6, 3
	s.Poll()
	if w, h := ctx.Size(); w != 4 || h != 4 {
		t.Errorf("Size() before frame = %dx%d, want 4x4", w, h)
	}
	if err := ctx.Render(&render.Frame{}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if w, h := ctx.Size(); w != 6 || h != 3 {
		t.Errorf("Size() after frame = %dx%d, want 6x3", w, h)
	}
}

func TestTooManyLights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height, cfg.MaxLights = 4, 4, 1
	ctx := newContext(t, WithConfig(cfg))
	lights := []render.Light{
		render.DirectionalLight(geom.V3(0, -1, 0), [3]float32{1, 1, 1}, 1),
		render.DirectionalLight(geom.V3(0, -1, 0), [3]float32{1, 1, 1}, 1),
	}
	if err := ctx.Render(&render.Frame{Lights: lights}); !errors.Is(err, render.ErrTooManyLights) {
		t.Errorf("Render() error = %v, want ErrTooManyLights", err)
	}
}

func TestDeferredConfig(t *testing.T) {
	tests := []struct {
		deferred bool
		want     []string
	}{
		{false, []string{"shadow", "color", "post"}},
		{true, []string{"shadow", "geometry", "light", "post"}},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Width, cfg.Height, cfg.Deferred = 4, 4, tt.deferred
		ctx := newContext(t, WithConfig(cfg))
		var got []string
		for _, p := range ctx.Pipeline().Passes() {
			got = append(got, p.Name())
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("Deferred = %v: passes = %v, want %v", tt.deferred, got, tt.want)
		}
		if err := ctx.Render(&render.Frame{}); err != nil {
			t.Errorf("Deferred = %v: Render() error = %v", tt.deferred, err)
		}
	}
}
