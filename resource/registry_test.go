package resource

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/gogpu/g3d/backend/software"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/recording"
	"github.com/gogpu/gputypes"
)

func newRegistry(t *testing.T) (*Registry, *recording.Recorder) {
	t.Helper()
	rec := recording.NewRecorder(software.New(8, 8))
	if err := rec.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(rec.Close)
	return New(rec), rec
}

var triangleLayout = gpucore.VertexLayout{
	Stride: 12,
	Attributes: []gpucore.VertexAttribute{
		{Semantic: gpucore.SemanticPosition, Format: gputypes.VertexFormatFloat32x3},
	},
}

func vertexDesc(n int) gpucore.BufferDesc {
	return gpucore.BufferDesc{
		Label:  "verts",
		Kind:   gpucore.BufferVertex,
		Layout: triangleLayout,
		Data:   make([]byte, n*12),
	}
}

func rgbaDesc(w, h int) gpucore.TextureDesc {
	return gpucore.TextureDesc{
		Label:  "tex",
		Width:  w,
		Height: h,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Levels: [][]byte{make([]byte, w*h*4)},
	}
}

func attachment(w, h int, f gputypes.TextureFormat) gpucore.TextureDesc {
	return gpucore.TextureDesc{Label: "attachment", Width: w, Height: h, Format: f, Attachment: true}
}

func TestUploadBuffer(t *testing.T) {
	reg, rec := newRegistry(t)
	b, err := reg.UploadBuffer(vertexDesc(3))
	if err != nil {
		t.Fatalf("UploadBuffer() error = %v", err)
	}
	info, err := reg.BufferInfo(b)
	if err != nil {
		t.Fatal(err)
	}
	if info.Count != 3 || info.Capacity != 36 {
		t.Errorf("BufferInfo() = %+v, want 3 vertices in 36 bytes", info)
	}
	if got := rec.Count(recording.CmdCreateBuffer); got != 1 {
		t.Errorf("CreateBuffer calls = %d, want 1", got)
	}
	if s := reg.Stats(); s.Buffers != 1 || s.BufferBytes != 36 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestUploadInvalidDescriptor(t *testing.T) {
	reg, rec := newRegistry(t)
	tests := []struct {
		name   string
		upload func() error
	}{
		{"zero size buffer", func() error {
			_, err := reg.UploadBuffer(gpucore.BufferDesc{Kind: gpucore.BufferVertex, Layout: triangleLayout})
			return err
		}},
		{"ragged vertex data", func() error {
			d := vertexDesc(1)
			d.Data = d.Data[:10]
			_, err := reg.UploadBuffer(d)
			return err
		}},
		{"bad index format", func() error {
			_, err := reg.UploadBuffer(gpucore.BufferDesc{Kind: gpucore.BufferIndex, Data: make([]byte, 4)})
			return err
		}},
		{"zero size texture", func() error {
			_, err := reg.UploadTexture(rgbaDesc(0, 4))
			return err
		}},
		{"unsupported format", func() error {
			d := rgbaDesc(4, 4)
			d.Format = gputypes.TextureFormatBC1RGBAUnorm
			d.Levels = nil
			_, err := reg.UploadTexture(d)
			return err
		}},
		{"short level", func() error {
			d := rgbaDesc(4, 4)
			d.Levels[0] = d.Levels[0][:8]
			_, err := reg.UploadTexture(d)
			return err
		}},
		{"too many mips", func() error {
			d := rgbaDesc(4, 4)
			d.MipLevels = 9
			_, err := reg.UploadTexture(d)
			return err
		}},
		{"sampled depth", func() error {
			d := attachment(4, 4, gputypes.TextureFormatDepth32Float)
			d.Attachment = false
			_, err := reg.UploadTexture(d)
			return err
		}},
		{"empty target", func() error {
			_, err := reg.CreateTarget(TargetDesc{Label: "empty"})
			return err
		}},
		{"empty program", func() error {
			_, err := reg.CompileProgram(gpucore.ProgramSource{})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.upload()
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("error = %v, want ErrInvalidDescriptor", err)
			}
			var re *Error
			if !errors.As(err, &re) {
				t.Errorf("error %T is not *Error", err)
			}
		})
	}
	if got := rec.Count(recording.CmdCreateBuffer) + rec.Count(recording.CmdCreateTexture); got != 0 {
		t.Errorf("invalid descriptors reached the backend %d times", got)
	}
}

func TestReleaseTwice(t *testing.T) {
	reg, rec := newRegistry(t)
	tex, err := reg.UploadTexture(rgbaDesc(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Release(tex); err != nil {
		t.Fatalf("first Release() error = %v", err)
	}
	if err := reg.Release(tex); !errors.Is(err, ErrUseAfterFree) {
		t.Errorf("second Release() error = %v, want ErrUseAfterFree", err)
	}
	if got := rec.Count(recording.CmdDestroyTexture); got != 1 {
		t.Errorf("DestroyTexture calls = %d, want 1", got)
	}
}

func TestUseAfterRelease(t *testing.T) {
	reg, _ := newRegistry(t)
	buf, err := reg.UploadBuffer(vertexDesc(3))
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Release(buf); err != nil {
		t.Fatal(err)
	}

	// The slot is recycled by the next upload; the old handle must not
	// reach the new object.
	fresh, err := reg.UploadBuffer(vertexDesc(6))
	if err != nil {
		t.Fatal(err)
	}
	if fresh == buf {
		t.Fatal("recycled slot returned an identical handle")
	}

	uses := []struct {
		name string
		use  func() error
	}{
		{"BufferID", func() error { _, err := reg.BufferID(buf); return err }},
		{"BufferInfo", func() error { _, err := reg.BufferInfo(buf); return err }},
		{"Reupload", func() error { _, err := reg.Reupload(buf, vertexDesc(3)); return err }},
	}
	for _, u := range uses {
		if err := u.use(); !errors.Is(err, ErrUseAfterFree) {
			t.Errorf("%s() error = %v, want ErrUseAfterFree", u.name, err)
		}
	}
	if !reg.Valid(fresh) || reg.Valid(buf) {
		t.Error("Valid() disagrees with release state")
	}
}

func TestForeignAndWrongKind(t *testing.T) {
	a, _ := newRegistry(t)
	b, _ := newRegistry(t)
	tex, err := a.UploadTexture(rgbaDesc(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.TextureID(tex); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("foreign TextureID() error = %v, want ErrForeignHandle", err)
	}
	if _, err := a.BufferID(Buffer{tex.Handle}); !errors.Is(err, ErrWrongKind) {
		t.Errorf("BufferID(texture) error = %v, want ErrWrongKind", err)
	}
	if err := a.Release(Handle{}); !errors.Is(err, ErrNullHandle) {
		t.Errorf("Release(zero) error = %v, want ErrNullHandle", err)
	}
}

func TestReupload(t *testing.T) {
	reg, rec := newRegistry(t)
	buf, err := reg.UploadBuffer(vertexDesc(6))
	if err != nil {
		t.Fatal(err)
	}

	same, err := reg.Reupload(buf, vertexDesc(3))
	if err != nil {
		t.Fatalf("compatible Reupload() error = %v", err)
	}
	if same != buf {
		t.Errorf("compatible Reupload() = %v, want same handle %v", same, buf)
	}
	if info, _ := reg.BufferInfo(same); info.Count != 3 {
		t.Errorf("Count after Reupload() = %d, want 3", info.Count)
	}
	if got := rec.Count(recording.CmdWriteBuffer); got != 1 {
		t.Errorf("WriteBuffer calls = %d, want 1", got)
	}

	grown, err := reg.Reupload(buf, vertexDesc(12))
	if err != nil {
		t.Fatalf("growing Reupload() error = %v", err)
	}
	if grown == buf {
		t.Error("growing Reupload() should allocate a new handle")
	}
	if reg.Valid(buf) {
		t.Error("old handle should be released after reallocation")
	}
	if s := reg.Stats(); s.Buffers != 1 {
		t.Errorf("Stats().Buffers = %d, want 1", s.Buffers)
	}
}

func TestReuploadTexture(t *testing.T) {
	reg, _ := newRegistry(t)
	tex, err := reg.UploadTexture(rgbaDesc(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	desc := rgbaDesc(2, 2)
	desc.Levels[0][0] = 200
	same, err := reg.ReuploadTexture(tex, desc)
	if err != nil || same != tex {
		t.Fatalf("ReuploadTexture() = %v, %v, want same handle", same, err)
	}
	px, err := reg.ReadTexture(same)
	if err != nil {
		t.Fatal(err)
	}
	if px[0] != 200 {
		t.Errorf("texel after reupload = %d, want 200", px[0])
	}

	bigger, err := reg.ReuploadTexture(tex, rgbaDesc(4, 4))
	if err != nil {
		t.Fatal(err)
	}
	if bigger == tex || reg.Valid(tex) {
		t.Error("resized ReuploadTexture() should replace the handle")
	}
}

func TestCreateTargetDimensionMismatch(t *testing.T) {
	reg, rec := newRegistry(t)
	color, err := reg.UploadTexture(attachment(4, 4, gputypes.TextureFormatRGBA8Unorm))
	if err != nil {
		t.Fatal(err)
	}
	depth, err := reg.UploadTexture(attachment(8, 8, gputypes.TextureFormatDepth32Float))
	if err != nil {
		t.Fatal(err)
	}
	_, err = reg.CreateTarget(TargetDesc{Label: "bad", Color: []Texture{color}, Depth: depth})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("CreateTarget() error = %v, want ErrDimensionMismatch", err)
	}
	if got := rec.Count(recording.CmdCreateTarget); got != 0 {
		t.Errorf("CreateTarget calls = %d, want 0", got)
	}

	// Depth in a color slot.
	_, err = reg.CreateTarget(TargetDesc{Color: []Texture{depth}})
	if !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("CreateTarget(depth as color) error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestCreateTarget(t *testing.T) {
	reg, _ := newRegistry(t)
	color, _ := reg.UploadTexture(attachment(4, 2, gputypes.TextureFormatRGBA8Unorm))
	depth, _ := reg.UploadTexture(attachment(4, 2, gputypes.TextureFormatDepth32Float))
	tgt, err := reg.CreateTarget(TargetDesc{Label: "offscreen", Color: []Texture{color}, Depth: depth})
	if err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}
	info, err := reg.TargetInfo(tgt)
	if err != nil {
		t.Fatal(err)
	}
	if info.Width != 4 || info.Height != 2 || len(info.Color) != 1 || info.Depth != depth {
		t.Errorf("TargetInfo() = %+v", info)
	}

	// Releasing an attachment makes the target fail revalidation.
	if err := reg.Release(color); err != nil {
		t.Fatal(err)
	}
	if _, _, err := reg.TargetSize(TargetDesc{Color: info.Color, Depth: info.Depth}); !errors.Is(err, ErrUseAfterFree) {
		t.Errorf("TargetSize() after attachment release error = %v, want ErrUseAfterFree", err)
	}
}

func TestReleaseBackendFailure(t *testing.T) {
	reg, rec := newRegistry(t)
	buf, _ := reg.UploadBuffer(vertexDesc(3))
	boom := errors.New("driver refused")
	rec.Inject(recording.CmdDestroyBuffer, boom, 1)

	if err := reg.Release(buf); !errors.Is(err, boom) {
		t.Errorf("Release() error = %v, want backend error", err)
	}
	if reg.Valid(buf) {
		t.Error("handle should be invalidated even when destroy fails")
	}
}

func TestCloseAndMarkLost(t *testing.T) {
	reg, rec := newRegistry(t)
	color, _ := reg.UploadTexture(attachment(2, 2, gputypes.TextureFormatRGBA8Unorm))
	tgt, _ := reg.CreateTarget(TargetDesc{Color: []Texture{color}})
	_, _ = reg.UploadBuffer(vertexDesc(3))

	if err := reg.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if s := reg.Stats(); s.Live() != 0 {
		t.Errorf("Stats() after Close() = %+v", s)
	}
	cmds := rec.FinishRecording().Filter(recording.CmdDestroyTarget, recording.CmdDestroyTexture)
	if len(cmds) != 2 || cmds[0].Type != recording.CmdDestroyTarget {
		t.Errorf("destroy order = %v, want target before texture", cmds)
	}
	if _, err := reg.TargetID(tgt); !errors.Is(err, ErrUseAfterFree) {
		t.Errorf("TargetID() after Close() error = %v, want ErrUseAfterFree", err)
	}
	if _, err := reg.UploadBuffer(vertexDesc(3)); !errors.Is(err, ErrClosed) {
		t.Errorf("UploadBuffer() after Close() error = %v, want ErrClosed", err)
	}

	lost, rec2 := newRegistry(t)
	buf, _ := lost.UploadBuffer(vertexDesc(3))
	lost.MarkLost()
	if _, err := lost.BufferID(buf); !gpucore.IsContextLost(err) {
		t.Errorf("BufferID() after MarkLost() error = %v, want context lost", err)
	}
	if got := rec2.Count(recording.CmdDestroyBuffer); got != 0 {
		t.Errorf("MarkLost() destroyed %d buffers, want 0", got)
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		name    string
		logger  *slog.Logger
		enabled bool
	}{
		{"nil disables", nil, false},
		{"handler kept", slog.New(slog.NewTextHandler(&buf, nil)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newRegistry(t)
			r.SetLogger(tt.logger)
			if got := r.logger.Enabled(t.Context(), slog.LevelError); got != tt.enabled {
				t.Errorf("logger.Enabled(error) = %v, want %v", got, tt.enabled)
			}
		})
	}
}
