//go:build !(js && wasm)

package wgpu

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

// surfaceFormat is the color format of the default surface.
const surfaceFormat = gputypes.TextureFormatRGBA8Unorm

// readbackTimeout bounds the wait for a texture copy to complete.
const readbackTimeout = 5 * time.Second

// copyRowAlignment is the bytes-per-row alignment of texture to buffer
// copies.
const copyRowAlignment = 256

type buffer struct {
	desc gpucore.BufferDesc
	buf  *wgpu.Buffer
	// shadow mirrors the buffer content so unaligned writes can be widened
	// to whole words.
	shadow []byte
}

func (b *buffer) release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

type texture struct {
	desc    gpucore.TextureDesc
	tex     *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

func (t *texture) release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

func (t *texture) depth() bool {
	return gpucore.IsDepthFormat(t.desc.Format)
}

// framebuffer is a bound attachment set.
type framebuffer struct {
	label         string
	width, height int
	color         []*texture
	depth         *texture
	// owned attachments are released with the framebuffer (the surface).
	owned bool
}

func (f *framebuffer) release() {
	if !f.owned {
		return
	}
	for _, t := range f.color {
		t.release()
	}
	if f.depth != nil {
		f.depth.release()
	}
}

// formatsKey identifies the attachment formats for pipeline lookup.
func (f *framebuffer) formatsKey() string {
	key := ""
	for _, c := range f.color {
		key += fmt.Sprintf("%d,", c.desc.Format)
	}
	if f.depth != nil {
		key += fmt.Sprintf("d%d", f.depth.desc.Format)
	}
	return key
}

func align(n, a int) int {
	return (n + a - 1) / a * a
}

// newSurface allocates the color and depth attachments of the default
// surface.
func (b *Backend) newSurface(w, h int) (*framebuffer, error) {
	color, err := b.newTexture("newSurface", gpucore.TextureDesc{
		Label: "surface", Width: w, Height: h, Format: surfaceFormat, Attachment: true,
		Sampler: gpucore.ClampSampler(),
	})
	if err != nil {
		return nil, err
	}
	depth, err := b.newTexture("newSurface", gpucore.TextureDesc{
		Label: "surface-depth", Width: w, Height: h, Format: gputypes.TextureFormatDepth32Float, Attachment: true,
		Sampler: gpucore.ClampSampler(),
	})
	if err != nil {
		color.release()
		return nil, err
	}
	return &framebuffer{label: "surface", width: w, height: h, color: []*texture{color}, depth: depth, owned: true}, nil
}

// CreateBuffer allocates a buffer and uploads the initial data.
func (b *Backend) CreateBuffer(desc gpucore.BufferDesc) (gpucore.BufferID, error) {
	if err := b.check("CreateBuffer"); err != nil {
		return 0, err
	}
	capacity := desc.Capacity()
	if capacity <= 0 || len(desc.Data) > capacity {
		return 0, b.fail("CreateBuffer", gpucore.KindAllocation,
			fmt.Errorf("buffer %q: %d bytes of data for capacity %d", desc.Label, len(desc.Data), capacity))
	}
	usage := gputypes.BufferUsageCopyDst
	if desc.Kind == gpucore.BufferIndex {
		usage |= gputypes.BufferUsageIndex
	} else {
		usage |= gputypes.BufferUsageVertex
	}
	size := align(capacity, 4)
	buf, err := b.dev.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  uint64(size),
		Usage: usage,
	})
	if err != nil {
		return 0, b.wrap("CreateBuffer", gpucore.KindAllocation, err)
	}
	bf := &buffer{desc: desc, buf: buf, shadow: make([]byte, size)}
	bf.desc.Data = nil
	bf.desc.Size = capacity
	if len(desc.Data) > 0 {
		if err := b.writeBuffer("CreateBuffer", bf, 0, desc.Data); err != nil {
			bf.release()
			return 0, err
		}
	}
	id := gpucore.BufferID(b.allocID())
	b.buffers[id] = bf
	return id, nil
}

// WriteBuffer replaces a byte range of a buffer.
func (b *Backend) WriteBuffer(id gpucore.BufferID, offset int, data []byte) error {
	if err := b.check("WriteBuffer"); err != nil {
		return err
	}
	bf, ok := b.buffers[id]
	if !ok {
		return b.unknown("WriteBuffer", "buffer", uint64(id))
	}
	if offset < 0 || offset+len(data) > bf.desc.Capacity() {
		return b.fail("WriteBuffer", gpucore.KindInvalidCall,
			fmt.Errorf("buffer %q: write [%d,%d) exceeds capacity %d", bf.desc.Label, offset, offset+len(data), bf.desc.Capacity()))
	}
	return b.writeBuffer("WriteBuffer", bf, offset, data)
}

// writeBuffer widens the write to 4-byte boundaries from the shadow copy.
func (b *Backend) writeBuffer(op string, bf *buffer, offset int, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	copy(bf.shadow[offset:], data)
	lo := offset &^ 3
	hi := align(offset+len(data), 4)
	if err := b.dev.queue.WriteBuffer(bf.buf, uint64(lo), bf.shadow[lo:hi]); err != nil {
		return b.wrap(op, gpucore.KindInvalidCall, err)
	}
	return nil
}

// DestroyBuffer releases a buffer.
func (b *Backend) DestroyBuffer(id gpucore.BufferID) error {
	if err := b.check("DestroyBuffer"); err != nil {
		return err
	}
	bf, ok := b.buffers[id]
	if !ok {
		return b.unknown("DestroyBuffer", "buffer", uint64(id))
	}
	if b.pass.vertices == bf {
		b.pass.vertices = nil
	}
	if b.pass.indices == bf {
		b.pass.indices = nil
	}
	bf.release()
	delete(b.buffers, id)
	return nil
}

// CreateTexture allocates a texture and uploads the provided levels.
func (b *Backend) CreateTexture(desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	if err := b.check("CreateTexture"); err != nil {
		return 0, err
	}
	t, err := b.newTexture("CreateTexture", desc)
	if err != nil {
		return 0, err
	}
	for level, data := range desc.Levels {
		if data == nil {
			continue
		}
		if err := b.writeLevel("CreateTexture", t, level, data); err != nil {
			t.release()
			return 0, err
		}
	}
	t.desc.Levels = nil
	id := gpucore.TextureID(b.allocID())
	b.textures[id] = t
	return id, nil
}

func (b *Backend) newTexture(op string, desc gpucore.TextureDesc) (*texture, error) {
	caps := b.Capabilities()
	switch {
	case desc.Width <= 0 || desc.Height <= 0 || desc.Width > caps.MaxTextureSize || desc.Height > caps.MaxTextureSize:
		return nil, b.fail(op, gpucore.KindAllocation, fmt.Errorf("texture %q: size %dx%d", desc.Label, desc.Width, desc.Height))
	case !caps.Supports(desc.Format):
		return nil, b.fail(op, gpucore.KindUnsupported, fmt.Errorf("texture %q: format %v", desc.Label, desc.Format))
	}
	levels := max(desc.MipLevels, 1)
	if levels > gpucore.MaxMipLevels(desc.Width, desc.Height) || len(desc.Levels) > levels {
		return nil, b.fail(op, gpucore.KindAllocation, fmt.Errorf("texture %q: %d mip levels", desc.Label, levels))
	}
	usage := gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc
	if desc.Attachment {
		usage |= gputypes.TextureUsageRenderAttachment
	}
	tex, err := b.dev.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          wgpu.Extent3D{Width: uint32(desc.Width), Height: uint32(desc.Height), DepthOrArrayLayers: 1},
		MipLevelCount: uint32(levels),
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         usage,
	})
	if err != nil {
		return nil, b.wrap(op, gpucore.KindAllocation, err)
	}
	view, err := b.dev.dev.CreateTextureView(tex, nil)
	if err != nil {
		tex.Release()
		return nil, b.wrap(op, gpucore.KindAllocation, err)
	}
	sampler, err := b.bindings.sampler(desc.Sampler)
	if err != nil {
		view.Release()
		tex.Release()
		return nil, b.wrap(op, gpucore.KindAllocation, err)
	}
	desc.MipLevels = levels
	return &texture{desc: desc, tex: tex, view: view, sampler: sampler}, nil
}

// WriteTexture replaces one mip level.
func (b *Backend) WriteTexture(id gpucore.TextureID, level int, data []byte) error {
	if err := b.check("WriteTexture"); err != nil {
		return err
	}
	t, ok := b.textures[id]
	if !ok {
		return b.unknown("WriteTexture", "texture", uint64(id))
	}
	return b.writeLevel("WriteTexture", t, level, data)
}

func (b *Backend) writeLevel(op string, t *texture, level int, data []byte) error {
	if level < 0 || level >= t.desc.MipLevels {
		return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("texture %q: level %d of %d", t.desc.Label, level, t.desc.MipLevels))
	}
	if t.depth() {
		return b.fail(op, gpucore.KindUnsupported, fmt.Errorf("texture %q: depth textures cannot be written", t.desc.Label))
	}
	if want := t.desc.LevelSize(level); len(data) != want {
		return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("texture %q level %d: %d bytes, want %d", t.desc.Label, level, len(data), want))
	}
	w, h := gpucore.MipSize(t.desc.Width, t.desc.Height, level)
	err := b.dev.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: t.tex, MipLevel: uint32(level)},
		data,
		&wgpu.ImageDataLayout{BytesPerRow: uint32(w * gpucore.BytesPerPixel(t.desc.Format)), RowsPerImage: uint32(h)},
		&wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return b.wrap(op, gpucore.KindInvalidCall, err)
	}
	return nil
}

// ReadTexture submits pending work, copies level 0 into a staging
// buffer and returns its tightly packed content.
func (b *Backend) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	if err := b.check("ReadTexture"); err != nil {
		return nil, err
	}
	t, ok := b.textures[id]
	if !ok {
		return nil, b.unknown("ReadTexture", "texture", uint64(id))
	}
	return b.readTexture("ReadTexture", t)
}

// SurfacePixels reads back the default surface.
func (b *Backend) SurfacePixels() ([]byte, error) {
	if err := b.check("SurfacePixels"); err != nil {
		return nil, err
	}
	return b.readTexture("SurfacePixels", b.surface.color[0])
}

func (b *Backend) readTexture(op string, t *texture) ([]byte, error) {
	if err := b.submit(op); err != nil {
		return nil, err
	}
	bpp := gpucore.BytesPerPixel(t.desc.Format)
	w, h := t.desc.Width, t.desc.Height
	row := w * bpp
	stride := align(row, copyRowAlignment)
	size := uint64(stride * h)

	staging, err := b.dev.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: t.desc.Label + "-readback",
		Size:  size,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapRead,
	})
	if err != nil {
		return nil, b.wrap(op, gpucore.KindAllocation, err)
	}
	defer staging.Release()

	enc, err := b.dev.dev.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "g3d-readback"})
	if err != nil {
		return nil, b.wrap(op, gpucore.KindInvalidCall, err)
	}
	aspect := gputypes.TextureAspectAll
	if t.depth() {
		aspect = gputypes.TextureAspectDepthOnly
	}
	enc.CopyTextureToBuffer(t.tex, staging, []wgpu.BufferTextureCopy{{
		BufferLayout: wgpu.ImageDataLayout{BytesPerRow: uint32(stride), RowsPerImage: uint32(h)},
		TextureBase:  wgpu.ImageCopyTexture{Texture: t.tex, Aspect: aspect},
		Size:         wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	}})
	cmd, err := enc.Finish()
	if err != nil {
		return nil, b.wrap(op, gpucore.KindInvalidCall, err)
	}
	if _, err := b.dev.queue.Submit(cmd); err != nil {
		return nil, b.wrap(op, gpucore.KindInvalidCall, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), readbackTimeout)
	defer cancel()
	if err := staging.Map(ctx, wgpu.MapModeRead, 0, size); err != nil {
		return nil, b.wrap(op, gpucore.KindInvalidCall, fmt.Errorf("map %q: %w", t.desc.Label, err))
	}
	rng, err := staging.MappedRange(0, size)
	if err != nil {
		_ = staging.Unmap()
		return nil, b.wrap(op, gpucore.KindInvalidCall, err)
	}
	mapped := rng.Bytes()
	out := make([]byte, row*h)
	for y := 0; y < h; y++ {
		copy(out[y*row:(y+1)*row], mapped[y*stride:y*stride+row])
	}
	rng.Release()
	if err := staging.Unmap(); err != nil {
		return nil, b.wrap(op, gpucore.KindInvalidCall, err)
	}
	return out, nil
}

// DestroyTexture releases a texture.
func (b *Backend) DestroyTexture(id gpucore.TextureID) error {
	if err := b.check("DestroyTexture"); err != nil {
		return err
	}
	t, ok := b.textures[id]
	if !ok {
		return b.unknown("DestroyTexture", "texture", uint64(id))
	}
	for i := range b.pass.units {
		if b.pass.units[i] == t {
			b.pass.units[i] = nil
		}
	}
	t.release()
	delete(b.textures, id)
	return nil
}

// CreateTarget groups existing attachment textures into a framebuffer.
func (b *Backend) CreateTarget(desc gpucore.TargetDesc) (gpucore.TargetID, error) {
	if err := b.check("CreateTarget"); err != nil {
		return 0, err
	}
	if len(desc.Color) > b.Capabilities().MaxColorAttachments {
		return 0, b.fail("CreateTarget", gpucore.KindUnsupported,
			fmt.Errorf("target %q: %d color attachments", desc.Label, len(desc.Color)))
	}
	fb := &framebuffer{label: desc.Label, width: desc.Width, height: desc.Height}
	attach := func(id gpucore.TextureID, depth bool) (*texture, error) {
		t, ok := b.textures[id]
		if !ok {
			return nil, b.unknown("CreateTarget", "texture", uint64(id))
		}
		switch {
		case t.desc.Width != desc.Width || t.desc.Height != desc.Height:
			return nil, b.fail("CreateTarget", gpucore.KindInvalidCall,
				fmt.Errorf("attachment %q is %dx%d, target is %dx%d", t.desc.Label, t.desc.Width, t.desc.Height, desc.Width, desc.Height))
		case !t.desc.Attachment:
			return nil, b.fail("CreateTarget", gpucore.KindInvalidCall,
				fmt.Errorf("texture %q was not created as an attachment", t.desc.Label))
		case t.depth() != depth:
			return nil, b.fail("CreateTarget", gpucore.KindInvalidCall,
				fmt.Errorf("texture %q has format %v", t.desc.Label, t.desc.Format))
		}
		return t, nil
	}
	for _, id := range desc.Color {
		t, err := attach(id, false)
		if err != nil {
			return 0, err
		}
		fb.color = append(fb.color, t)
	}
	if desc.Depth != 0 {
		t, err := attach(desc.Depth, true)
		if err != nil {
			return 0, err
		}
		fb.depth = t
	}
	if len(fb.color) == 0 && fb.depth == nil {
		return 0, b.fail("CreateTarget", gpucore.KindInvalidCall, fmt.Errorf("target %q has no attachments", desc.Label))
	}
	id := gpucore.TargetID(b.allocID())
	b.targets[id] = fb
	return id, nil
}

// DestroyTarget forgets a framebuffer. Its textures stay alive.
func (b *Backend) DestroyTarget(id gpucore.TargetID) error {
	if err := b.check("DestroyTarget"); err != nil {
		return err
	}
	fb, ok := b.targets[id]
	if !ok {
		return b.unknown("DestroyTarget", "target", uint64(id))
	}
	if b.pass.target == fb {
		if err := b.endPass("DestroyTarget"); err != nil {
			return err
		}
		b.resetPass(b.surface, gpucore.Viewport{})
	}
	delete(b.targets, id)
	return nil
}
