//go:build js && wasm

package webgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"syscall/js"

	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
)

// Default surface size used when the backend is created by the registry.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// surfaceFormat is the color format of the default surface.
const surfaceFormat = gputypes.TextureFormatRGBA8Unorm

var errNoWebGPU = errors.New("webgpu: navigator.gpu is not available")

func init() {
	backend.Register(backend.BackendWebGPU, func() gpucore.Adapter {
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

// WithCanvas presents the default surface on a canvas element.
func WithCanvas(canvas js.Value) Option {
	return func(b *Backend) {
		b.canvas = canvas
	}
}

// WithPowerPreference passes "low-power" or "high-performance" to
// requestAdapter.
func WithPowerPreference(p gputypes.PowerPreference) Option {
	return func(b *Backend) {
		b.power = p
	}
}

// WithLogger sets the logger for device diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		b.SetLogger(l)
	}
}

// Backend is the browser GPU adapter.
type Backend struct {
	width, height int
	power         gputypes.PowerPreference
	canvas        js.Value
	logger        *slog.Logger

	device  js.Value
	queue   js.Value
	context js.Value
	limits  js.Value

	initialized bool
	closed      bool
	// lost is set from the device.lost callback.
	lost atomic.Bool

	nextID   uint64
	buffers  map[gpucore.BufferID]*buffer
	textures map[gpucore.TextureID]*texture
	programs map[gpucore.ProgramID]*program
	targets  map[gpucore.TargetID]*framebuffer
	surface  *framebuffer

	layout         js.Value
	pipelineLayout js.Value
	samplers       map[gpucore.Sampler]js.Value
	white, shadow  *texture
	pipelines      map[pipelineKey]js.Value
	arena          *uniformArena

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
	return backend.BackendWebGPU
}

// SetLogger sets the logger. Nil disables logging.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	b.logger = l
}

// Init requests an adapter and device and allocates the default
// surface. It is idempotent.
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
	gpu := js.Global().Get("navigator").Get("gpu")
	if !gpu.Truthy() {
		return b.fail("Init", gpucore.KindUnsupported, errNoWebGPU)
	}
	power := "high-performance"
	if b.power == gputypes.PowerPreferenceLowPower {
		power = "low-power"
	}
	adapter, err := await(gpu.Call("requestAdapter", obj{"powerPreference": power}))
	if err != nil || !adapter.Truthy() {
		return b.fail("Init", gpucore.KindUnsupported, fmt.Errorf("request adapter: %w", errors.Join(err, errNoWebGPU)))
	}
	device, err := await(adapter.Call("requestDevice", obj{"label": "g3d"}))
	if err != nil {
		return b.fail("Init", gpucore.KindUnsupported, fmt.Errorf("request device: %w", err))
	}
	b.device = device
	b.queue = device.Get("queue")
	b.limits = device.Get("limits")

	onLost := js.FuncOf(func(this js.Value, args []js.Value) any {
		b.lost.Store(true)
		msg := ""
		if info := arg(args); info.Truthy() {
			msg = info.Get("message").String()
		}
		b.logger.Error("webgpu: device lost", "reason", msg)
		return nil
	})
	device.Get("lost").Call("then", onLost)

	b.buffers = make(map[gpucore.BufferID]*buffer)
	b.textures = make(map[gpucore.TextureID]*texture)
	b.programs = make(map[gpucore.ProgramID]*program)
	b.targets = make(map[gpucore.TargetID]*framebuffer)
	b.samplers = make(map[gpucore.Sampler]js.Value)
	b.pipelines = make(map[pipelineKey]js.Value)
	b.arena = newUniformArena(device, b.queue, b.limits.Get("minUniformBufferOffsetAlignment").Int())
	b.initialized = true

	if err := b.newBindings(); err != nil {
		b.Close()
		return err
	}
	if b.surface, err = b.newSurface(b.width, b.height); err != nil {
		b.Close()
		return err
	}
	if b.canvas.Truthy() {
		if err := b.configureCanvas(); err != nil {
			b.Close()
			return err
		}
	}
	b.resetPass(b.surface, gpucore.Viewport{})
	b.logger.Info("webgpu: device ready", "canvas", b.canvas.Truthy())
	return nil
}

func (b *Backend) configureCanvas() error {
	b.canvas.Set("width", b.width)
	b.canvas.Set("height", b.height)
	b.context = b.canvas.Call("getContext", "webgpu")
	if !b.context.Truthy() {
		return b.fail("Init", gpucore.KindUnsupported, errors.New("canvas has no webgpu context"))
	}
	b.context.Call("configure", obj{
		"device":    b.device,
		"format":    textureFormats[surfaceFormat],
		"usage":     textureCopyDst | textureTarget,
		"alphaMode": "premultiplied",
	})
	return nil
}

// Capabilities describes the device.
func (b *Backend) Capabilities() gpucore.Capabilities {
	maxSize, maxColor := 8192, 8
	if b.limits.Truthy() {
		maxSize = b.limits.Get("maxTextureDimension2D").Int()
		maxColor = b.limits.Get("maxColorAttachments").Int()
	}
	return gpucore.Capabilities{
		Backend:             "WebGPU",
		MaxTextureSize:      maxSize,
		MaxColorAttachments: maxColor,
		Formats:             gpucore.DefaultFormats(),
		SurfaceFormat:       surfaceFormat,
		DepthFormat:         gputypes.TextureFormatDepth32Float,
		ReadBack:            true,
	}
}

// Close destroys every object and the device.
func (b *Backend) Close() {
	if b.closed {
		return
	}
	b.frame.discard()
	if b.initialized {
		for _, t := range b.textures {
			t.release()
		}
		for _, buf := range b.buffers {
			destroy(buf.buf)
		}
		if b.surface != nil {
			b.surface.release()
		}
		for _, t := range []*texture{b.white, b.shadow} {
			if t != nil {
				t.release()
			}
		}
		b.arena.release()
		if b.context.Truthy() {
			b.context.Call("unconfigure")
		}
		destroy(b.device)
	}
	clear(b.buffers)
	clear(b.textures)
	clear(b.programs)
	clear(b.targets)
	clear(b.pipelines)
	clear(b.samplers)
	b.surface = nil
	b.pass = passState{}
	b.initialized = false
	b.closed = true
	b.logger.Debug("webgpu: backend closed")
}

// ConfigureSurface resizes the default surface and the canvas.
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
	if b.canvas.Truthy() {
		b.canvas.Set("width", width)
		b.canvas.Set("height", height)
	}
	if rebind {
		b.resetPass(b.surface, gpucore.Viewport{})
	}
	return nil
}

// SurfaceSize returns the default surface size.
func (b *Backend) SurfaceSize() (int, int) {
	return b.width, b.height
}

func (b *Backend) check(op string) error {
	switch {
	case b.lost.Load():
		return b.fail(op, gpucore.KindContextLost, gpucore.ErrContextLost)
	case b.closed:
		return b.fail(op, gpucore.KindInvalidCall, gpucore.ErrClosed)
	case !b.initialized:
		return b.fail(op, gpucore.KindInvalidCall, gpucore.ErrNotInitialized)
	}
	return nil
}

func (b *Backend) fail(op string, kind gpucore.ErrorKind, err error) error {
	return gpucore.NewBackendError(backend.BackendWebGPU, op, kind, err)
}

func (b *Backend) unknown(op string, what string, id uint64) error {
	return b.fail(op, gpucore.KindInvalidCall, fmt.Errorf("%w: %s %d", gpucore.ErrUnknownID, what, id))
}

func (b *Backend) allocID() uint64 {
	b.nextID++
	return b.nextID
}

// scoped runs fn inside validation and out-of-memory error scopes and
// reports the first error the device raised.
func (b *Backend) scoped(op string, kind gpucore.ErrorKind, fn func()) error {
	b.device.Call("pushErrorScope", "out-of-memory")
	b.device.Call("pushErrorScope", "validation")
	fn()
	validation, verr := await(b.device.Call("popErrorScope"))
	oom, oerr := await(b.device.Call("popErrorScope"))
	switch {
	case b.lost.Load():
		return b.fail(op, gpucore.KindContextLost, gpucore.ErrContextLost)
	case verr != nil || oerr != nil:
		return b.fail(op, kind, errors.Join(verr, oerr))
	case oom.Truthy():
		return b.fail(op, gpucore.KindAllocation, jsError(oom))
	case validation.Truthy():
		return b.fail(op, kind, jsError(validation))
	}
	return nil
}
