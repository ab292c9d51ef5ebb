// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"fmt"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
)

type buffer struct {
	desc gpucore.BufferDesc
	data []byte
}

type texture struct {
	label   string
	width   int
	height  int
	format  gputypes.TextureFormat
	bpp     int
	sampler gpucore.Sampler
	levels  [][]byte
}

func newTexture(desc gpucore.TextureDesc) *texture {
	t := &texture{
		label:   desc.Label,
		width:   desc.Width,
		height:  desc.Height,
		format:  desc.Format,
		bpp:     gpucore.BytesPerPixel(desc.Format),
		sampler: desc.Sampler,
		levels:  make([][]byte, max(desc.MipLevels, 1)),
	}
	for i := range t.levels {
		t.levels[i] = make([]byte, desc.LevelSize(i))
	}
	return t
}

// framebuffer is a bound attachment set.
type framebuffer struct {
	width, height int
	color         []*texture
	depth         *texture
}

func newSurface(w, h int) *framebuffer {
	return &framebuffer{
		width:  w,
		height: h,
		color: []*texture{newTexture(gpucore.TextureDesc{
			Label: "surface", Width: w, Height: h, Format: gputypes.TextureFormatRGBA8Unorm,
		})},
		depth: newTexture(gpucore.TextureDesc{
			Label: "surface-depth", Width: w, Height: h, Format: gputypes.TextureFormatDepth32Float,
		}),
	}
}

// CreateBuffer allocates a buffer and copies the initial data.
func (b *Backend) CreateBuffer(desc gpucore.BufferDesc) (gpucore.BufferID, error) {
	if err := b.check("CreateBuffer"); err != nil {
		return 0, err
	}
	size := desc.Capacity()
	if size <= 0 {
		return 0, b.fail("CreateBuffer", gpucore.KindAllocation, fmt.Errorf("buffer %q has zero size", desc.Label))
	}
	buf := &buffer{desc: desc, data: make([]byte, size)}
	copy(buf.data, desc.Data)
	buf.desc.Data = nil
	buf.desc.Size = size
	id := gpucore.BufferID(b.allocID())
	b.buffers[id] = buf
	return id, nil
}

// WriteBuffer copies data into the buffer at offset.
func (b *Backend) WriteBuffer(id gpucore.BufferID, offset int, data []byte) error {
	if err := b.check("WriteBuffer"); err != nil {
		return err
	}
	buf, ok := b.buffers[id]
	if !ok {
		return b.unknown("WriteBuffer", "buffer", uint64(id))
	}
	if offset < 0 || offset+len(data) > len(buf.data) {
		return b.fail("WriteBuffer", gpucore.KindInvalidCall,
			fmt.Errorf("write [%d,%d) outside buffer of %d bytes", offset, offset+len(data), len(buf.data)))
	}
	copy(buf.data[offset:], data)
	return nil
}

// DestroyBuffer frees a buffer.
func (b *Backend) DestroyBuffer(id gpucore.BufferID) error {
	if err := b.check("DestroyBuffer"); err != nil {
		return err
	}
	buf, ok := b.buffers[id]
	if !ok {
		return b.unknown("DestroyBuffer", "buffer", uint64(id))
	}
	if b.vertices == buf {
		b.vertices = nil
	}
	if b.indices == buf {
		b.indices = nil
	}
	delete(b.buffers, id)
	return nil
}

// CreateTexture allocates a texture and copies the provided levels.
func (b *Backend) CreateTexture(desc gpucore.TextureDesc) (gpucore.TextureID, error) {
	if err := b.check("CreateTexture"); err != nil {
		return 0, err
	}
	if gpucore.BytesPerPixel(desc.Format) == 0 {
		return 0, b.fail("CreateTexture", gpucore.KindUnsupported, fmt.Errorf("format %v", desc.Format))
	}
	if desc.Width <= 0 || desc.Height <= 0 || desc.Width > maxTextureSize || desc.Height > maxTextureSize {
		return 0, b.fail("CreateTexture", gpucore.KindAllocation, fmt.Errorf("size %dx%d", desc.Width, desc.Height))
	}
	t := newTexture(desc)
	for i, lvl := range desc.Levels {
		if i >= len(t.levels) || len(lvl) != len(t.levels[i]) {
			return 0, b.fail("CreateTexture", gpucore.KindInvalidCall, fmt.Errorf("level %d has %d bytes", i, len(lvl)))
		}
		copy(t.levels[i], lvl)
	}
	id := gpucore.TextureID(b.allocID())
	b.textures[id] = t
	return id, nil
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
	if level < 0 || level >= len(t.levels) || len(data) != len(t.levels[level]) {
		return b.fail("WriteTexture", gpucore.KindInvalidCall,
			fmt.Errorf("level %d with %d bytes does not match texture %q", level, len(data), t.label))
	}
	copy(t.levels[level], data)
	return nil
}

// ReadTexture returns a copy of mip level 0.
func (b *Backend) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	if err := b.check("ReadTexture"); err != nil {
		return nil, err
	}
	t, ok := b.textures[id]
	if !ok {
		return nil, b.unknown("ReadTexture", "texture", uint64(id))
	}
	// A readback commits pending work, as on the GPU backends.
	b.undo = nil
	return append([]byte(nil), t.levels[0]...), nil
}

// DestroyTexture frees a texture. Targets referencing it keep their
// storage until destroyed.
func (b *Backend) DestroyTexture(id gpucore.TextureID) error {
	if err := b.check("DestroyTexture"); err != nil {
		return err
	}
	t, ok := b.textures[id]
	if !ok {
		return b.unknown("DestroyTexture", "texture", uint64(id))
	}
	for i, u := range b.units {
		if u == t {
			b.units[i] = nil
		}
	}
	delete(b.textures, id)
	return nil
}

// CompileProgram interprets the program defines.
func (b *Backend) CompileProgram(src gpucore.ProgramSource) (gpucore.ProgramID, error) {
	if err := b.check("CompileProgram"); err != nil {
		return 0, err
	}
	p, err := parseProgram(src)
	if err != nil {
		return 0, gpucore.CompileError(b.Name(), "CompileProgram", err.Error(), nil)
	}
	id := gpucore.ProgramID(b.allocID())
	b.programs[id] = p
	return id, nil
}

// DestroyProgram frees a program.
func (b *Backend) DestroyProgram(id gpucore.ProgramID) error {
	if err := b.check("DestroyProgram"); err != nil {
		return err
	}
	p, ok := b.programs[id]
	if !ok {
		return b.unknown("DestroyProgram", "program", uint64(id))
	}
	if b.prog == p {
		b.prog = nil
	}
	delete(b.programs, id)
	return nil
}

// CreateTarget builds a framebuffer from existing textures.
func (b *Backend) CreateTarget(desc gpucore.TargetDesc) (gpucore.TargetID, error) {
	if err := b.check("CreateTarget"); err != nil {
		return 0, err
	}
	fb := &framebuffer{width: desc.Width, height: desc.Height}
	attach := func(id gpucore.TextureID) (*texture, error) {
		t, ok := b.textures[id]
		if !ok {
			return nil, b.unknown("CreateTarget", "texture", uint64(id))
		}
		if t.width != desc.Width || t.height != desc.Height {
			return nil, b.fail("CreateTarget", gpucore.KindInvalidCall,
				fmt.Errorf("attachment %q is %dx%d, target is %dx%d", t.label, t.width, t.height, desc.Width, desc.Height))
		}
		return t, nil
	}
	for _, id := range desc.Color {
		t, err := attach(id)
		if err != nil {
			return 0, err
		}
		fb.color = append(fb.color, t)
	}
	if desc.Depth != gpucore.InvalidID {
		t, err := attach(desc.Depth)
		if err != nil {
			return 0, err
		}
		fb.depth = t
	}
	id := gpucore.TargetID(b.allocID())
	b.targets[id] = fb
	return id, nil
}

// DestroyTarget frees a framebuffer. Destroying the bound target
// rebinds the default surface.
func (b *Backend) DestroyTarget(id gpucore.TargetID) error {
	if err := b.check("DestroyTarget"); err != nil {
		return err
	}
	fb, ok := b.targets[id]
	if !ok {
		return b.unknown("DestroyTarget", "target", uint64(id))
	}
	if b.target == fb {
		b.resetPass(b.surface, gpucore.Viewport{})
	}
	delete(b.targets, id)
	return nil
}
