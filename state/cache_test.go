package state

import (
	"errors"
	"testing"

	"github.com/gogpu/g3d/backend/software"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/recording"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/gputypes"
)

func newCache(t *testing.T) (*Cache, *recording.Recorder) {
	t.Helper()
	rec := recording.NewRecorder(software.New(8, 8))
	if err := rec.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	rec.Reset()
	return New(rec), rec
}

func TestCacheDedup(t *testing.T) {
	c, rec := newCache(t)

	for i := 0; i < 3; i++ {
		if err := c.SetBlend(gpucore.BlendAlpha); err != nil {
			t.Fatal(err)
		}
		if err := c.SetDepth(gpucore.DepthDefault()); err != nil {
			t.Fatal(err)
		}
		if err := c.SetCull(gpucore.CullBack()); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		cmd  recording.CommandType
		want int
	}{
		{recording.CmdSetBlend, 1},
		{recording.CmdSetDepth, 1},
		{recording.CmdSetCull, 1},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.String(), func(t *testing.T) {
			if got := rec.Count(tt.cmd); got != tt.want {
				t.Errorf("Count(%v) = %d, want %d", tt.cmd, got, tt.want)
			}
		})
	}
	if got := c.Stats(); got.Applied != 3 || got.Skipped != 6 {
		t.Errorf("Stats() = %+v, want 3 applied 6 skipped", got)
	}
}

func TestCacheChangeForwards(t *testing.T) {
	c, rec := newCache(t)
	_ = c.SetBlend(gpucore.BlendAlpha)
	_ = c.SetBlend(gpucore.BlendAdditive)
	_ = c.SetBlend(gpucore.BlendAlpha)
	if got := rec.Count(recording.CmdSetBlend); got != 3 {
		t.Errorf("Count(SetBlend) = %d, want 3", got)
	}
}

func TestBindTargetInvalidates(t *testing.T) {
	c, rec := newCache(t)
	vp := gpucore.Viewport{Width: 8, Height: 8}

	if err := c.BindTarget(gpucore.DefaultTarget, vp); err != nil {
		t.Fatal(err)
	}
	_ = c.SetBlend(gpucore.BlendAlpha)
	_ = c.SetViewport(vp)
	if err := c.BindTarget(gpucore.DefaultTarget, vp); err != nil {
		t.Fatal(err)
	}
	_ = c.SetBlend(gpucore.BlendAlpha)
	_ = c.SetViewport(vp)

	if got := rec.Count(recording.CmdBindTarget); got != 2 {
		t.Errorf("Count(BindTarget) = %d, want 2", got)
	}
	if got := rec.Count(recording.CmdSetBlend); got != 2 {
		t.Errorf("Count(SetBlend) = %d, want 2 (rebinding resets pass state)", got)
	}
	if got := rec.Count(recording.CmdSetViewport); got != 0 {
		t.Errorf("Count(SetViewport) = %d, want 0 (bind already set it)", got)
	}
	if id, ok := c.Target(); !ok || id != gpucore.DefaultTarget {
		t.Errorf("Target() = %v, %v, want default, true", id, ok)
	}
}

func TestFailedCallForgetsSlot(t *testing.T) {
	c, rec := newCache(t)
	boom := errors.New("boom")
	rec.Inject(recording.CmdSetCull, boom, 1)

	if err := c.SetCull(gpucore.CullBack()); !errors.Is(err, boom) {
		t.Fatalf("SetCull() error = %v, want injected", err)
	}
	if err := c.SetCull(gpucore.CullBack()); err != nil {
		t.Fatalf("SetCull() retry error = %v", err)
	}
	if got := rec.Count(recording.CmdSetCull); got != 2 {
		t.Errorf("Count(SetCull) = %d, want 2", got)
	}
}

func TestTextureUnitsAndForget(t *testing.T) {
	c, rec := newCache(t)
	tex, err := rec.CreateTexture(gpucore.TextureDesc{Width: 2, Height: 2, Format: gputypes.TextureFormatRGBA8Unorm})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	_ = c.BindTexture(0, tex)
	_ = c.BindTexture(0, tex)
	_ = c.BindTexture(1, tex)
	if got := rec.Count(recording.CmdBindTexture); got != 2 {
		t.Errorf("Count(BindTexture) = %d, want 2", got)
	}

	c.ForgetTexture(tex)
	_ = c.BindTexture(0, tex)
	if got := rec.Count(recording.CmdBindTexture); got != 3 {
		t.Errorf("Count(BindTexture) after ForgetTexture = %d, want 3", got)
	}
}

func TestRegistryReleaseForgetsBinding(t *testing.T) {
	c, rec := newCache(t)
	reg := resource.New(rec)
	reg.OnRelease(c.Forget)

	tex, err := reg.UploadTexture(gpucore.TextureDesc{Width: 2, Height: 2, Format: gputypes.TextureFormatRGBA8Unorm})
	if err != nil {
		t.Fatalf("UploadTexture() error = %v", err)
	}
	id, err := reg.TextureID(tex)
	if err != nil {
		t.Fatalf("TextureID() error = %v", err)
	}
	if err := c.BindTexture(0, id); err != nil {
		t.Fatalf("BindTexture() error = %v", err)
	}
	if err := reg.Release(tex); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	// The slot no longer claims id, so the call reaches the backend,
	// which rejects the destroyed texture.
	if err := c.BindTexture(0, id); err == nil {
		t.Error("BindTexture() of a released texture error = nil, want backend error")
	}
	if got := rec.Count(recording.CmdBindTexture); got != 2 {
		t.Errorf("Count(BindTexture) = %d, want 2", got)
	}
}

func TestInvalidate(t *testing.T) {
	c, rec := newCache(t)
	_ = c.SetDepth(gpucore.DepthReadOnly())
	c.Invalidate()
	_ = c.SetDepth(gpucore.DepthReadOnly())
	if got := rec.Count(recording.CmdSetDepth); got != 2 {
		t.Errorf("Count(SetDepth) = %d, want 2", got)
	}
	if _, ok := c.Target(); ok {
		t.Error("Target() known after Invalidate()")
	}
}
