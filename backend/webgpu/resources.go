//go:build js && wasm

package webgpu

import (
	"fmt"
	"syscall/js"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
)

// copyRowAlignment is the bytes-per-row alignment of texture to buffer
// copies.
const copyRowAlignment = 256

type buffer struct {
	desc gpucore.BufferDesc
	buf  js.Value
	// shadow mirrors the content so writes can be widened to words.
	shadow []byte
}

type texture struct {
	desc    gpucore.TextureDesc
	tex     js.Value
	view    js.Value
	sampler js.Value
}

func (t *texture) release() {
	destroy(t.tex)
	t.tex, t.view = js.Undefined(), js.Undefined()
}

func (t *texture) depth() bool {
	return gpucore.IsDepthFormat(t.desc.Format)
}

type framebuffer struct {
	label         string
	width, height int
	color         []*texture
	depth         *texture
	owned         bool
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

// newBindings creates the group 0 layout and the placeholder textures
// bound to empty units.
func (b *Backend) newBindings() error {
	texEntry := func(binding int, sample string) obj {
		return obj{
			"binding":    binding,
			"visibility": stageFragment,
			"texture":    obj{"sampleType": sample, "viewDimension": "2d"},
		}
	}
	entries := []any{
		obj{
			"binding":    gpucore.BindingUniforms,
			"visibility": stageVertex | stageFragment,
			"buffer":     obj{"type": "uniform", "minBindingSize": gpucore.UniformSize},
		},
		texEntry(gpucore.BindingBaseColor, "float"),
		obj{
			"binding":    gpucore.BindingBaseColorSampler,
			"visibility": stageFragment,
			"sampler":    obj{"type": "filtering"},
		},
	}
	for i := 0; i < gpucore.MaxShadows; i++ {
		entries = append(entries, texEntry(gpucore.BindingShadow0+i, "depth"))
	}
	entries = append(entries,
		texEntry(gpucore.BindingGBufferPosition, "unfilterable-float"),
		texEntry(gpucore.BindingGBufferNormal, "unfilterable-float"))
	err := b.scoped("Init", gpucore.KindAllocation, func() {
		b.layout = b.device.Call("createBindGroupLayout", obj{"label": "g3d-group0", "entries": entries})
		b.pipelineLayout = b.device.Call("createPipelineLayout", obj{
			"label":            "g3d-pipeline-layout",
			"bindGroupLayouts": []any{b.layout},
		})
	})
	if err != nil {
		return err
	}
	if b.white, err = b.newTexture("Init", gpucore.TextureDesc{
		Label: "placeholder-white", Width: 1, Height: 1, Format: gputypes.TextureFormatRGBA8Unorm,
	}); err != nil {
		return err
	}
	if err := b.writeLevel("Init", b.white, 0, []byte{255, 255, 255, 255}); err != nil {
		return err
	}
	b.shadow, err = b.newTexture("Init", gpucore.TextureDesc{
		Label: "placeholder-shadow", Width: 1, Height: 1, Format: gputypes.TextureFormatDepth32Float, Attachment: true,
	})
	return err
}

func (b *Backend) sampler(s gpucore.Sampler) js.Value {
	if smp, ok := b.samplers[s]; ok {
		return smp
	}
	smp := b.device.Call("createSampler", obj{
		"addressModeU": addressMode(s.AddressU),
		"addressModeV": addressMode(s.AddressV),
		"magFilter":    filterMode(s.Mag),
		"minFilter":    filterMode(s.Min),
		"mipmapFilter": mipmapFilterMode(s.Mipmap),
	})
	b.samplers[s] = smp
	return smp
}

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
	usage := bufferCopyDst | bufferVertex
	if desc.Kind == gpucore.BufferIndex {
		usage = bufferCopyDst | bufferIndex
	}
	size := align(capacity, 4)
	bf := &buffer{desc: desc, shadow: make([]byte, size)}
	bf.desc.Data = nil
	bf.desc.Size = capacity
	err := b.scoped("CreateBuffer", gpucore.KindAllocation, func() {
		bf.buf = b.device.Call("createBuffer", obj{"label": desc.Label, "size": size, "usage": usage})
	})
	if err != nil {
		return 0, err
	}
	b.writeBuffer(bf, 0, desc.Data)
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
	b.writeBuffer(bf, offset, data)
	return nil
}

func (b *Backend) writeBuffer(bf *buffer, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	copy(bf.shadow[offset:], data)
	lo := offset &^ 3
	hi := align(offset+len(data), 4)
	b.queue.Call("writeBuffer", bf.buf, lo, bytesToJS(bf.shadow[lo:hi]))
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
	destroy(bf.buf)
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
	usage := textureBinding | textureCopyDst | textureCopySrc
	if desc.Attachment {
		usage |= textureTarget
	}
	desc.MipLevels = levels
	t := &texture{desc: desc, sampler: b.sampler(desc.Sampler)}
	err := b.scoped(op, gpucore.KindAllocation, func() {
		t.tex = b.device.Call("createTexture", obj{
			"label":         desc.Label,
			"size":          []any{desc.Width, desc.Height, 1},
			"mipLevelCount": levels,
			"format":        textureFormats[desc.Format],
			"usage":         usage,
		})
		t.view = t.tex.Call("createView")
	})
	if err != nil {
		return nil, err
	}
	return t, nil
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
	b.queue.Call("writeTexture",
		obj{"texture": t.tex, "mipLevel": level},
		bytesToJS(data),
		obj{"bytesPerRow": w * gpucore.BytesPerPixel(t.desc.Format), "rowsPerImage": h},
		[]any{w, h, 1},
	)
	return nil
}

// ReadTexture submits pending work and returns level 0 tightly packed.
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
	w, h := t.desc.Width, t.desc.Height
	row := w * gpucore.BytesPerPixel(t.desc.Format)
	stride := align(row, copyRowAlignment)
	aspect := "all"
	if t.depth() {
		aspect = "depth-only"
	}
	var staging js.Value
	err := b.scoped(op, gpucore.KindInvalidCall, func() {
		staging = b.device.Call("createBuffer", obj{
			"label": t.desc.Label + "-readback",
			"size":  stride * h,
			"usage": bufferCopyDst | bufferMapRead,
		})
		enc := b.device.Call("createCommandEncoder", obj{"label": "g3d-readback"})
		enc.Call("copyTextureToBuffer",
			obj{"texture": t.tex, "aspect": aspect},
			obj{"buffer": staging, "bytesPerRow": stride, "rowsPerImage": h},
			[]any{w, h, 1},
		)
		b.queue.Call("submit", []any{enc.Call("finish")})
	})
	if err != nil {
		destroy(staging)
		return nil, err
	}
	defer destroy(staging)
	if _, err := await(staging.Call("mapAsync", mapRead)); err != nil {
		return nil, b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("map %q: %w", t.desc.Label, err))
	}
	mapped := js.Global().Get("Uint8Array").New(staging.Call("getMappedRange"))
	padded := make([]byte, stride*h)
	js.CopyBytesToGo(padded, mapped)
	staging.Call("unmap")
	out := make([]byte, row*h)
	for y := 0; y < h; y++ {
		copy(out[y*row:(y+1)*row], padded[y*stride:y*stride+row])
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
