// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"fmt"
	"image"

	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
)

// Default surface size used when the backend is created by the registry.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// maxTextureSize bounds texture allocations.
const maxTextureSize = 8192

func init() {
	backend.Register(backend.BackendSoftware, func() gpucore.Adapter {
		return New(DefaultWidth, DefaultHeight)
	})
}

// Stats counts work done since the last ResetStats.
type Stats struct {
	Draws     int
	Triangles int
	Culled    int
	Fragments int
	Flushes   int
}

// Backend is the CPU adapter.
type Backend struct {
	width, height int

	initialized bool
	closed      bool
	lost        bool

	nextID   uint64
	buffers  map[gpucore.BufferID]*buffer
	textures map[gpucore.TextureID]*texture
	programs map[gpucore.ProgramID]*program
	targets  map[gpucore.TargetID]*framebuffer
	surface  *framebuffer

	// bound pass state
	target   *framebuffer
	viewport gpucore.Viewport
	prog     *program
	depth    gpucore.DepthState
	blend    gpucore.BlendMode
	cull     gpucore.CullState
	units    [gpucore.MaxTextureUnits]*texture
	vertices *buffer
	indices  *buffer
	uniforms *gpucore.Uniforms

	// undo holds level 0 of every attachment written since the last
	// Flush, as it was before the first write.
	undo map[*texture][]byte

	stats Stats
}

// New creates an uninitialized backend whose default surface has the
// given size.
func New(width, height int) *Backend {
	return &Backend{width: width, height: height}
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return backend.BackendSoftware
}

// Init allocates the default surface. It is idempotent.
func (b *Backend) Init() error {
	if b.closed {
		return b.fail("Init", gpucore.KindInvalidCall, gpucore.ErrClosed)
	}
	if b.initialized {
		return nil
	}
	if b.width <= 0 || b.height <= 0 {
		return b.fail("Init", gpucore.KindAllocation, fmt.Errorf("surface size %dx%d", b.width, b.height))
	}
	b.buffers = make(map[gpucore.BufferID]*buffer)
	b.textures = make(map[gpucore.TextureID]*texture)
	b.programs = make(map[gpucore.ProgramID]*program)
	b.targets = make(map[gpucore.TargetID]*framebuffer)
	b.surface = newSurface(b.width, b.height)
	b.initialized = true
	b.resetPass(b.surface, gpucore.Viewport{})
	return nil
}

// Capabilities describes the CPU backend.
func (b *Backend) Capabilities() gpucore.Capabilities {
	return gpucore.Capabilities{
		Backend:             "CPU",
		MaxTextureSize:      maxTextureSize,
		MaxColorAttachments: 4,
		Formats:             gpucore.DefaultFormats(),
		SurfaceFormat:       gputypes.TextureFormatRGBA8Unorm,
		DepthFormat:         gputypes.TextureFormatDepth32Float,
		ReadBack:            true,
	}
}

// Close drops every object. The backend cannot be used afterwards.
func (b *Backend) Close() {
	b.buffers = nil
	b.textures = nil
	b.programs = nil
	b.targets = nil
	b.surface = nil
	b.target = nil
	b.prog = nil
	b.vertices, b.indices = nil, nil
	b.units = [gpucore.MaxTextureUnits]*texture{}
	b.undo = nil
	b.initialized = false
	b.closed = true
}

// Lose simulates a lost device: every later call fails with a
// context-lost error.
func (b *Backend) Lose() {
	b.lost = true
}

// Stats returns the work counters.
func (b *Backend) Stats() Stats {
	return b.stats
}

// ResetStats zeroes the work counters.
func (b *Backend) ResetStats() {
	b.stats = Stats{}
}

// ConfigureSurface resizes the default surface. Its content is cleared.
func (b *Backend) ConfigureSurface(width, height int) error {
	if err := b.check("ConfigureSurface"); err != nil {
		return err
	}
	if width <= 0 || height <= 0 || width > maxTextureSize || height > maxTextureSize {
		return b.fail("ConfigureSurface", gpucore.KindAllocation, fmt.Errorf("surface size %dx%d", width, height))
	}
	b.width, b.height = width, height
	rebind := b.target == b.surface
	for _, t := range b.surface.color {
		delete(b.undo, t)
	}
	if b.surface.depth != nil {
		delete(b.undo, b.surface.depth)
	}
	b.surface = newSurface(width, height)
	if rebind {
		b.resetPass(b.surface, gpucore.Viewport{})
	}
	return nil
}

// SurfaceSize returns the default surface size.
func (b *Backend) SurfaceSize() (int, int) {
	return b.width, b.height
}

// SurfaceImage copies the default surface into an RGBA image.
func (b *Backend) SurfaceImage() (*image.RGBA, error) {
	if err := b.check("SurfaceImage"); err != nil {
		return nil, err
	}
	c := b.surface.color[0]
	img := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	copy(img.Pix, c.levels[0])
	return img, nil
}

// check verifies the backend can execute op.
func (b *Backend) check(op string) error {
	switch {
	case b.lost:
		return b.fail(op, gpucore.KindContextLost, gpucore.ErrContextLost)
	case b.closed:
		return b.fail(op, gpucore.KindInvalidCall, gpucore.ErrClosed)
	case !b.initialized:
		return b.fail(op, gpucore.KindInvalidCall, gpucore.ErrNotInitialized)
	}
	return nil
}

func (b *Backend) fail(op string, kind gpucore.ErrorKind, err error) error {
	return gpucore.NewBackendError(backend.BackendSoftware, op, kind, err)
}

func (b *Backend) unknown(op string, what string, id uint64) error {
	return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("%w: %s %d", gpucore.ErrUnknownID, what, id))
}

func (b *Backend) allocID() uint64 {
	b.nextID++
	return b.nextID
}
