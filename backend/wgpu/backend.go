//go:build !(js && wasm)

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

// Default surface size used when the backend is created by the registry.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

func init() {
	backend.Register(backend.BackendWGPU, func() gpucore.Adapter {
		return New()
	})
}

// Option configures a Backend.
type Option func(*Backend)

// WithSize sets the initial default surface size.
func WithSize(width, height int) Option {
	return func(b *Backend) {
		b.width, b.height = width, height
	}
}

// WithBackends restricts the HAL backends the instance may pick from.
func WithBackends(backends gputypes.Backends) Option {
	return func(b *Backend) {
		b.backends = backends
	}
}

// WithPowerPreference selects between integrated and discrete GPUs.
func WithPowerPreference(p gputypes.PowerPreference) Option {
	return func(b *Backend) {
		b.power = p
	}
}

// WithDeviceProvider renders on a device owned by the host. The
// provider's Device and Queue must be *wgpu.Device and *wgpu.Queue.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(b *Backend) {
		b.provider = p
	}
}

// WithLogger sets the logger for device and pipeline diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		b.SetLogger(l)
	}
}

// Backend is the native GPU adapter.
type Backend struct {
	width, height int
	backends      gputypes.Backends
	power         gputypes.PowerPreference
	provider      gpucontext.DeviceProvider
	logger        *slog.Logger

	dev *device

	initialized bool
	closed      bool
	lost        bool

	nextID   uint64
	buffers  map[gpucore.BufferID]*buffer
	textures map[gpucore.TextureID]*texture
	programs map[gpucore.ProgramID]*program
	targets  map[gpucore.TargetID]*framebuffer
	surface  *framebuffer

	bindings  *bindings
	pipelines *pipelineCache
	arena     *uniformArena

	pass  passState
	frame frame
	stats Stats
}

// New creates an uninitialized backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		width:  DefaultWidth,
		height: DefaultHeight,
		power:  gputypes.PowerPreferenceHighPerformance,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return backend.BackendWGPU
}

// SetLogger sets the logger. Nil disables logging.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	b.logger = l
}

// Init opens the device, or attaches to the host device, and allocates
// the default surface. It is idempotent.
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

	var err error
	if b.provider != nil {
		b.dev, err = hostDevice(b.provider)
	} else {
		b.dev, err = openDevice(b.backends, b.power)
	}
	if err != nil {
		return b.fail("Init", gpucore.KindUnsupported, err)
	}

	b.buffers = make(map[gpucore.BufferID]*buffer)
	b.textures = make(map[gpucore.TextureID]*texture)
	b.programs = make(map[gpucore.ProgramID]*program)
	b.targets = make(map[gpucore.TargetID]*framebuffer)

	if b.bindings, err = newBindings(b.dev.dev); err != nil {
		b.dev.release()
		return b.fail("Init", gpucore.KindAllocation, err)
	}
	b.pipelines = newPipelineCache(b.dev.dev, b.bindings.pipelineLayout)
	b.arena = newUniformArena(b.dev.dev, b.dev.queue, b.dev.dev.Limits().MinUniformBufferOffsetAlignment)
	b.initialized = true

	if b.surface, err = b.newSurface(b.width, b.height); err != nil {
		b.Close()
		return err
	}
	b.resetPass(b.surface, gpucore.Viewport{})

	b.logger.Info("wgpu: device ready", "gpu", b.dev.info.String(), "driver", b.dev.info.Driver,
		"host", !b.dev.owned)
	return nil
}

// Info describes the GPU in use, or nil before Init.
func (b *Backend) Info() *GPUInfo {
	if b.dev == nil {
		return nil
	}
	return b.dev.info
}

// Device returns the underlying device, or nil before Init.
func (b *Backend) Device() *wgpu.Device {
	if b.dev == nil {
		return nil
	}
	return b.dev.dev
}

// SurfaceTexture returns the color texture backing the default surface,
// for hosts that present or composite it themselves.
func (b *Backend) SurfaceTexture() *wgpu.Texture {
	if b.surface == nil || len(b.surface.color) == 0 {
		return nil
	}
	return b.surface.color[0].tex
}

// Capabilities describes the device.
func (b *Backend) Capabilities() gpucore.Capabilities {
	limits := gputypes.DefaultLimits()
	name := "WebGPU"
	if b.dev != nil {
		limits = b.dev.dev.Limits()
		name = b.dev.info.Backend.String()
	}
	return gpucore.Capabilities{
		Backend:             name,
		MaxTextureSize:      int(limits.MaxTextureDimension2D),
		MaxColorAttachments: int(limits.MaxColorAttachments),
		Formats:             formats(),
		SurfaceFormat:       surfaceFormat,
		DepthFormat:         gputypes.TextureFormatDepth32Float,
		ReadBack:            true,
	}
}

// formats lists the accepted texture formats. RGBA32Float is not
// filterable without an optional feature, so it is only read through
// the G-buffer units; draws sampling it as base color fail.
func formats() []gputypes.TextureFormat {
	return gpucore.DefaultFormats()
}

// Close releases every object and, unless it belongs to the host, the
// device. The backend cannot be used afterwards.
func (b *Backend) Close() {
	if b.closed {
		return
	}
	b.frame.discard()
	if b.initialized {
		for id, p := range b.programs {
			p.release()
			delete(b.programs, id)
		}
		for id := range b.targets {
			delete(b.targets, id)
		}
		for id, t := range b.textures {
			t.release()
			delete(b.textures, id)
		}
		for id, buf := range b.buffers {
			buf.release()
			delete(b.buffers, id)
		}
		if b.surface != nil {
			b.surface.release()
		}
		b.pipelines.release()
		b.arena.release()
		b.bindings.release()
	}
	if b.dev != nil {
		b.dev.release()
	}
	b.surface = nil
	b.pass = passState{}
	b.initialized = false
	b.closed = true
	b.logger.Debug("wgpu: backend closed")
}

// ConfigureSurface resizes the default surface. Its content is
// undefined until cleared.
func (b *Backend) ConfigureSurface(width, height int) error {
	if err := b.check("ConfigureSurface"); err != nil {
		return err
	}
	limit := b.Capabilities().MaxTextureSize
	if width <= 0 || height <= 0 || width > limit || height > limit {
		return b.fail("ConfigureSurface", gpucore.KindAllocation, fmt.Errorf("surface size %dx%d", width, height))
	}
	if err := b.endPass("ConfigureSurface"); err != nil {
		return err
	}
	s, err := b.newSurface(width, height)
	if err != nil {
		return err
	}
	rebind := b.pass.target == b.surface
	b.surface.release()
	b.surface = s
	b.width, b.height = width, height
	if rebind {
		b.resetPass(b.surface, gpucore.Viewport{})
	}
	return nil
}

// SurfaceSize returns the default surface size.
func (b *Backend) SurfaceSize() (int, int) {
	return b.width, b.height
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
	return gpucore.NewBackendError(backend.BackendWGPU, op, kind, err)
}

// wrap classifies a device error. A lost device poisons the backend.
func (b *Backend) wrap(op string, kind gpucore.ErrorKind, err error) error {
	if errors.Is(err, wgpu.ErrDeviceLost) {
		if !b.lost {
			b.logger.Error("wgpu: device lost", "op", op, "err", err)
		}
		b.lost = true
		return b.fail(op, gpucore.KindContextLost, err)
	}
	if errors.Is(err, wgpu.ErrOutOfMemory) {
		kind = gpucore.KindAllocation
	}
	return b.fail(op, kind, err)
}

func (b *Backend) unknown(op string, what string, id uint64) error {
	return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("%w: %s %d", gpucore.ErrUnknownID, what, id))
}

func (b *Backend) allocID() uint64 {
	b.nextID++
	return b.nextID
}
