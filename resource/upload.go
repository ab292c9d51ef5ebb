package resource

import (
	"fmt"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
)

// UploadBuffer validates desc and allocates a buffer with its initial
// content.
func (r *Registry) UploadBuffer(desc gpucore.BufferDesc) (Buffer, error) {
	if err := r.usable("UploadBuffer"); err != nil {
		return Buffer{}, err
	}
	info, err := bufferInfo("UploadBuffer", desc)
	if err != nil {
		return Buffer{}, err
	}
	id, err := r.adapter.CreateBuffer(desc)
	if err != nil {
		return Buffer{}, fmt.Errorf("resource: upload buffer %q: %w", desc.Label, err)
	}
	h := r.insert(entry{kind: KindBuffer, id: uint64(id), buffer: info, bytes: info.Capacity})
	r.logger.Debug("resource: buffer uploaded", "handle", h.String(), "kind", desc.Kind.String(),
		"bytes", info.Capacity, "count", info.Count)
	return Buffer{h}, nil
}

func bufferInfo(op string, desc gpucore.BufferDesc) (BufferInfo, error) {
	capacity := desc.Capacity()
	if capacity <= 0 {
		return BufferInfo{}, invalid(op, "buffer %q has zero size", desc.Label)
	}
	if len(desc.Data) > capacity {
		return BufferInfo{}, invalid(op, "buffer %q data (%d bytes) exceeds size %d", desc.Label, len(desc.Data), capacity)
	}
	switch desc.Kind {
	case gpucore.BufferVertex:
		if err := desc.Layout.Validate(); err != nil {
			return BufferInfo{}, invalid(op, "buffer %q: %v", desc.Label, err)
		}
	case gpucore.BufferIndex:
		if desc.IndexFormat != gputypes.IndexFormatUint16 && desc.IndexFormat != gputypes.IndexFormatUint32 {
			return BufferInfo{}, invalid(op, "buffer %q has unsupported index format %v", desc.Label, desc.IndexFormat)
		}
	default:
		return BufferInfo{}, invalid(op, "buffer %q has unknown kind %v", desc.Label, desc.Kind)
	}
	elem := desc.ElementSize()
	if len(desc.Data)%elem != 0 {
		return BufferInfo{}, invalid(op, "buffer %q data (%d bytes) is not a multiple of element size %d",
			desc.Label, len(desc.Data), elem)
	}
	return BufferInfo{
		Label:       desc.Label,
		Kind:        desc.Kind,
		Usage:       desc.Usage,
		Layout:      desc.Layout,
		IndexFormat: desc.IndexFormat,
		Capacity:    capacity,
		Count:       len(desc.Data) / elem,
	}, nil
}

// Reupload replaces the content of a buffer. When the new content has
// the same kind and layout and fits the existing allocation, it is
// written in place and the same handle is returned. Otherwise a new
// buffer is allocated, the old one released, and the new handle
// returned; on allocation failure the old handle stays valid.
func (r *Registry) Reupload(b Buffer, desc gpucore.BufferDesc) (Buffer, error) {
	e, err := r.lookup("Reupload", b.Handle, KindBuffer)
	if err != nil {
		return Buffer{}, err
	}
	info, err := bufferInfo("Reupload", desc)
	if err != nil {
		return Buffer{}, err
	}
	old := e.buffer
	compatible := info.Kind == old.Kind && len(desc.Data) <= old.Capacity &&
		(info.Kind == gpucore.BufferIndex && info.IndexFormat == old.IndexFormat ||
			info.Kind == gpucore.BufferVertex && info.Layout.Equal(old.Layout))
	if compatible {
		if len(desc.Data) > 0 {
			if err := r.adapter.WriteBuffer(gpucore.BufferID(e.id), 0, desc.Data); err != nil {
				return Buffer{}, fmt.Errorf("resource: reupload %s: %w", b.Handle, err)
			}
		}
		e.buffer.Count = info.Count
		e.buffer.Usage = info.Usage
		return b, nil
	}
	nb, err := r.UploadBuffer(desc)
	if err != nil {
		return Buffer{}, err
	}
	if err := r.Release(b); err != nil {
		return nb, err
	}
	r.logger.Debug("resource: buffer reallocated", "old", b.Handle.String(), "new", nb.Handle.String())
	return nb, nil
}

// UploadTexture validates desc and allocates a texture. Levels may be
// nil for an empty texture or hold the first len(Levels) mip levels.
func (r *Registry) UploadTexture(desc gpucore.TextureDesc) (Texture, error) {
	if err := r.usable("UploadTexture"); err != nil {
		return Texture{}, err
	}
	desc, err := r.normalizeTexture("UploadTexture", desc)
	if err != nil {
		return Texture{}, err
	}
	id, err := r.adapter.CreateTexture(desc)
	if err != nil {
		return Texture{}, fmt.Errorf("resource: upload texture %q: %w", desc.Label, err)
	}
	h := r.insert(entry{
		kind:    KindTexture,
		id:      uint64(id),
		texture: textureInfo(desc),
		bytes:   textureBytes(desc),
	})
	r.logger.Debug("resource: texture uploaded", "handle", h.String(),
		"size", fmt.Sprintf("%dx%d", desc.Width, desc.Height), "format", desc.Format.String(), "mips", desc.MipLevels)
	return Texture{h}, nil
}

func (r *Registry) normalizeTexture(op string, desc gpucore.TextureDesc) (gpucore.TextureDesc, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return desc, invalid(op, "texture %q has size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	caps := r.adapter.Capabilities()
	if caps.MaxTextureSize > 0 && (desc.Width > caps.MaxTextureSize || desc.Height > caps.MaxTextureSize) {
		return desc, invalid(op, "texture %q size %dx%d exceeds limit %d", desc.Label, desc.Width, desc.Height, caps.MaxTextureSize)
	}
	if gpucore.BytesPerPixel(desc.Format) == 0 || !caps.Supports(desc.Format) {
		return desc, invalid(op, "texture %q has unsupported format %v", desc.Label, desc.Format)
	}
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	if maxLevels := gpucore.MaxMipLevels(desc.Width, desc.Height); desc.MipLevels < 0 || desc.MipLevels > maxLevels {
		return desc, invalid(op, "texture %q has %d mip levels, max %d", desc.Label, desc.MipLevels, maxLevels)
	}
	if gpucore.IsDepthFormat(desc.Format) {
		if !desc.Attachment {
			return desc, invalid(op, "depth texture %q must be an attachment", desc.Label)
		}
		if len(desc.Levels) > 0 {
			return desc, invalid(op, "depth texture %q cannot have initial data", desc.Label)
		}
	}
	if len(desc.Levels) > desc.MipLevels {
		return desc, invalid(op, "texture %q has %d data levels for %d mip levels", desc.Label, len(desc.Levels), desc.MipLevels)
	}
	for i, lvl := range desc.Levels {
		if want := desc.LevelSize(i); len(lvl) != want {
			return desc, invalid(op, "texture %q level %d has %d bytes, want %d", desc.Label, i, len(lvl), want)
		}
	}
	return desc, nil
}

func textureInfo(desc gpucore.TextureDesc) TextureInfo {
	return TextureInfo{
		Label:      desc.Label,
		Width:      desc.Width,
		Height:     desc.Height,
		Format:     desc.Format,
		MipLevels:  desc.MipLevels,
		Sampler:    desc.Sampler,
		Attachment: desc.Attachment,
	}
}

func textureBytes(desc gpucore.TextureDesc) int {
	n := 0
	for i := 0; i < desc.MipLevels; i++ {
		n += desc.LevelSize(i)
	}
	return n
}

// ReuploadTexture replaces texture content. Same dimensions, format and
// mip count write in place and keep the handle; anything else allocates
// a new texture and releases the old one.
func (r *Registry) ReuploadTexture(t Texture, desc gpucore.TextureDesc) (Texture, error) {
	e, err := r.lookup("ReuploadTexture", t.Handle, KindTexture)
	if err != nil {
		return Texture{}, err
	}
	desc, err = r.normalizeTexture("ReuploadTexture", desc)
	if err != nil {
		return Texture{}, err
	}
	old := e.texture
	if desc.Width == old.Width && desc.Height == old.Height && desc.Format == old.Format &&
		desc.MipLevels == old.MipLevels && desc.Attachment == old.Attachment {
		for i, lvl := range desc.Levels {
			if err := r.adapter.WriteTexture(gpucore.TextureID(e.id), i, lvl); err != nil {
				return Texture{}, fmt.Errorf("resource: reupload %s level %d: %w", t.Handle, i, err)
			}
		}
		e.texture.Label = desc.Label
		return t, nil
	}
	nt, err := r.UploadTexture(desc)
	if err != nil {
		return Texture{}, err
	}
	if err := r.Release(t); err != nil {
		return nt, err
	}
	return nt, nil
}

// TargetDesc describes a framebuffer in terms of registry textures.
// A zero Depth means no depth attachment.
type TargetDesc struct {
	Label string
	Color []Texture
	Depth Texture
}

// TargetSize validates the attachments of desc and returns their common
// size. It fails with ErrDimensionMismatch when sizes differ.
func (r *Registry) TargetSize(desc TargetDesc) (int, int, error) {
	_, w, h, err := r.resolveTarget("TargetSize", desc)
	return w, h, err
}

func (r *Registry) resolveTarget(op string, desc TargetDesc) (gpucore.TargetDesc, int, int, error) {
	out := gpucore.TargetDesc{Label: desc.Label}
	if len(desc.Color) == 0 && desc.Depth.IsZero() {
		return out, 0, 0, invalid(op, "target %q has no attachments", desc.Label)
	}
	caps := r.adapter.Capabilities()
	if caps.MaxColorAttachments > 0 && len(desc.Color) > caps.MaxColorAttachments {
		return out, 0, 0, invalid(op, "target %q has %d color attachments, max %d",
			desc.Label, len(desc.Color), caps.MaxColorAttachments)
	}
	w, h := -1, -1
	check := func(t Texture, depth bool) (gpucore.TextureID, error) {
		e, err := r.lookup(op, t.Handle, KindTexture)
		if err != nil {
			return 0, err
		}
		info := e.texture
		if !info.Attachment {
			return 0, invalid(op, "texture %s is not an attachment", t.Handle)
		}
		if gpucore.IsDepthFormat(info.Format) != depth {
			return 0, invalid(op, "texture %s has format %v in the wrong attachment slot", t.Handle, info.Format)
		}
		if w < 0 {
			w, h = info.Width, info.Height
		} else if info.Width != w || info.Height != h {
			return 0, &Error{Op: op, Handle: t.Handle, Err: ErrDimensionMismatch,
				Detail: fmt.Sprintf("%dx%d vs %dx%d", info.Width, info.Height, w, h)}
		}
		return gpucore.TextureID(e.id), nil
	}
	for _, c := range desc.Color {
		id, err := check(c, false)
		if err != nil {
			return out, 0, 0, err
		}
		out.Color = append(out.Color, id)
	}
	if !desc.Depth.IsZero() {
		id, err := check(desc.Depth, true)
		if err != nil {
			return out, 0, 0, err
		}
		out.Depth = id
	}
	out.Width, out.Height = w, h
	return out, w, h, nil
}

// CreateTarget creates a framebuffer over existing attachment textures.
// The textures stay owned by the caller; releasing them makes the
// target unusable.
func (r *Registry) CreateTarget(desc TargetDesc) (Target, error) {
	if err := r.usable("CreateTarget"); err != nil {
		return Target{}, err
	}
	gdesc, w, h, err := r.resolveTarget("CreateTarget", desc)
	if err != nil {
		return Target{}, err
	}
	id, err := r.adapter.CreateTarget(gdesc)
	if err != nil {
		return Target{}, fmt.Errorf("resource: create target %q: %w", desc.Label, err)
	}
	hd := r.insert(entry{
		kind: KindTarget,
		id:   uint64(id),
		target: TargetInfo{
			Label:  desc.Label,
			Width:  w,
			Height: h,
			Color:  append([]Texture(nil), desc.Color...),
			Depth:  desc.Depth,
		},
	})
	r.logger.Debug("resource: target created", "handle", hd.String(), "size", fmt.Sprintf("%dx%d", w, h))
	return Target{hd}, nil
}

// CompileProgram compiles a synthesized program.
func (r *Registry) CompileProgram(src gpucore.ProgramSource) (Program, error) {
	if err := r.usable("CompileProgram"); err != nil {
		return Program{}, err
	}
	if src.Key == "" && src.WGSL == "" {
		return Program{}, invalid("CompileProgram", "program %q has no source", src.Label)
	}
	id, err := r.adapter.CompileProgram(src)
	if err != nil {
		return Program{}, fmt.Errorf("resource: compile %q: %w", src.Label, err)
	}
	h := r.insert(entry{kind: KindProgram, id: uint64(id), program: ProgramInfo{Label: src.Label, Key: src.Key}})
	r.logger.Debug("resource: program compiled", "handle", h.String(), "key", src.Key)
	return Program{h}, nil
}
