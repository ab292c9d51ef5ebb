package g3d

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/g3d/asset"
	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/render"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/state"
	"github.com/gogpu/g3d/surface"
	"github.com/gogpu/g3d/target"
	"github.com/gogpu/gputypes"
	"github.com/google/uuid"
)

// Context is the per-surface engine state: the backend adapter and the
// registry, shader cache, target manager, state cache and pipeline
// built on it. A Context is owned by one goroutine.
type Context struct {
	id      uuid.UUID
	config  Config
	logger  *slog.Logger
	adapter gpucore.Adapter

	registry *resource.Registry
	shaders  *shader.Cache
	state    *state.Cache
	targets  *target.Manager
	pipeline *render.Pipeline

	surface *surface.Surface
	events  *surface.Queue
	// pendingResize is written from window callbacks and applied by
	// the owner before the next frame.
	pendingResize atomic.Pointer[[2]int]

	lost   bool
	closed bool
}

// New creates a Context. Without WithAdapter it opens the configured
// backend, or the best registered one.
func New(opts ...Option) (*Context, error) {
	o := options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.config
	if o.surface != nil {
		if w, h := o.surface.Size(); w > 0 && h > 0 {
			cfg.Width, cfg.Height = w, h
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, _ := render.ParseFailurePolicy(cfg.FailurePolicy)
	if o.policy != nil {
		policy = *o.policy
	}

	id := uuid.New()
	logger := o.logger
	if logger == nil {
		logger = Logger()
	}
	logger = logger.With("context", id.String())

	a, err := openAdapter(o.adapter, cfg.Backend)
	if err != nil {
		return nil, err
	}
	propagateLogger(a, logger)
	if err := a.ConfigureSurface(cfg.Width, cfg.Height); err != nil {
		a.Close()
		return nil, fmt.Errorf("g3d: configure surface: %w", err)
	}

	templates := o.templates
	if templates == nil && cfg.ShaderDir != "" {
		if templates, err = shader.LoadTemplates(cfg.ShaderDir); err != nil {
			a.Close()
			return nil, err
		}
	}

	c := &Context{id: id, config: cfg, logger: logger, adapter: a, surface: o.surface}
	c.registry = resource.New(a)
	c.shaders = shader.NewCache(c.registry, templates)
	c.state = state.New(a)
	c.registry.OnRelease(c.state.Forget)
	c.targets = target.NewManager(c.registry, c.state, cfg.Width, cfg.Height)
	c.targets.Surface().SetClearPolicy(target.ClearAll(cfg.clearColor()))

	popts := []render.Option{
		render.WithFailurePolicy(policy),
		render.WithShadowMapSize(cfg.ShadowMapSize),
		render.WithLogger(logger),
	}
	if cfg.Deferred {
		popts = append(popts, render.WithDeferredShading(shader.BlinnPhong))
	}
	if o.overlay != nil {
		popts = append(popts, render.WithOverlay(o.overlay))
	}
	if len(o.passes) > 0 {
		popts = append(popts, render.WithPasses(o.passes...))
	}
	c.pipeline = render.New(render.Deps{
		Registry: c.registry,
		Shaders:  c.shaders,
		Targets:  c.targets,
		State:    c.state,
	}, popts...)
	c.SetLogger(logger)

	if s := o.surface; s != nil {
		s.OnResize(func(w, h int) { c.pendingResize.Store(&[2]int{w, h}) })
		c.events = surface.Listen(s.Events(), 0)
	}

	logger.Info("g3d: context created", "backend", a.Name(),
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height), "policy", policy.String())
	return c, nil
}

func openAdapter(a gpucore.Adapter, name string) (gpucore.Adapter, error) {
	if a == nil {
		a, err := backend.Open(name)
		if err != nil {
			return nil, fmt.Errorf("g3d: open backend %q: %w", name, err)
		}
		return a, nil
	}
	if err := a.Init(); err != nil {
		return nil, fmt.Errorf("g3d: init %s: %w", a.Name(), err)
	}
	return a, nil
}

// ID returns the unique identifier of the context, attached to its log
// records.
func (c *Context) ID() uuid.UUID { return c.id }

// Config returns the settings the context was created with.
func (c *Context) Config() Config { return c.config }

// Logger returns the context logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// SetLogger replaces the logger of the context and its components.
func (c *Context) SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	c.logger = l
	propagateLogger(c.adapter, l)
	c.registry.SetLogger(l)
	c.shaders.SetLogger(l)
	c.pipeline.SetLogger(l)
}

// Adapter returns the backend adapter.
func (c *Context) Adapter() gpucore.Adapter { return c.adapter }

// Registry returns the resource registry.
func (c *Context) Registry() *resource.Registry { return c.registry }

// Shaders returns the shader cache.
func (c *Context) Shaders() *shader.Cache { return c.shaders }

// Targets returns the render target manager.
func (c *Context) Targets() *target.Manager { return c.targets }

// State returns the state cache.
func (c *Context) State() *state.Cache { return c.state }

// Pipeline returns the render pipeline.
func (c *Context) Pipeline() *render.Pipeline { return c.pipeline }

// Surface returns the attached surface, or nil for headless contexts.
func (c *Context) Surface() *surface.Surface { return c.surface }

// Size returns the default surface size in pixels.
func (c *Context) Size() (int, int) {
	return c.targets.Surface().Size()
}

// Lost reports whether the device was lost.
func (c *Context) Lost() bool { return c.lost }

func (c *Context) usable(op string) error {
	switch {
	case c.closed:
		return fmt.Errorf("g3d: %s: %w", op, ErrClosed)
	case c.lost:
		return fmt.Errorf("g3d: %s: %w", op, ErrContextLost)
	}
	return nil
}

// check marks the context lost when err reports a lost device.
func (c *Context) check(err error) error {
	if err != nil && !c.lost && gpucore.IsContextLost(err) {
		c.markLost(err)
	}
	return err
}

// markLost invalidates every handle and cache without backend calls.
func (c *Context) markLost(cause error) {
	c.lost = true
	c.registry.MarkLost()
	c.shaders.Forget()
	c.pipeline.Forget()
	c.targets.Reset()
	c.state.Invalidate()
	c.logger.Warn("g3d: context lost", "err", cause)
}

// UploadBuffer uploads a vertex or index buffer.
func (c *Context) UploadBuffer(desc gpucore.BufferDesc) (resource.Buffer, error) {
	if err := c.usable("upload buffer"); err != nil {
		return resource.Buffer{}, err
	}
	b, err := c.registry.UploadBuffer(desc)
	return b, c.check(err)
}

// UploadTexture uploads a texture.
func (c *Context) UploadTexture(desc gpucore.TextureDesc) (resource.Texture, error) {
	if err := c.usable("upload texture"); err != nil {
		return resource.Texture{}, err
	}
	t, err := c.registry.UploadTexture(desc)
	return t, c.check(err)
}

// UploadMesh uploads decoded geometry.
func (c *Context) UploadMesh(label string, m *asset.Mesh) (asset.Geometry, error) {
	if err := c.usable("upload mesh"); err != nil {
		return asset.Geometry{}, err
	}
	g, err := asset.UploadMesh(c.registry, label, m, gpucore.UsageStatic)
	return g, c.check(err)
}

// UploadImage uploads decoded pixels as a texture.
func (c *Context) UploadImage(label string, img *asset.Image, opts asset.TextureOptions) (resource.Texture, error) {
	if err := c.usable("upload image"); err != nil {
		return resource.Texture{}, err
	}
	t, err := asset.UploadImage(c.registry, label, img, opts)
	return t, c.check(err)
}

// Release destroys the object behind a handle.
func (c *Context) Release(r resource.Resource) error {
	if err := c.usable("release"); err != nil {
		return err
	}
	return c.check(c.registry.Release(r))
}

// CreateTarget allocates an offscreen render target.
func (c *Context) CreateTarget(spec target.Spec) (*target.Target, error) {
	if err := c.usable("create target"); err != nil {
		return nil, err
	}
	t, err := c.targets.Create(spec)
	return t, c.check(err)
}

// ReleaseTarget releases a target and the attachments it allocated.
func (c *Context) ReleaseTarget(t *target.Target) error {
	if err := c.usable("release target"); err != nil {
		return err
	}
	return c.check(c.targets.Release(t))
}

// PushTarget binds t on top of the target stack.
func (c *Context) PushTarget(t *target.Target) error {
	if err := c.usable("push target"); err != nil {
		return err
	}
	return c.check(c.targets.Push(t))
}

// PopTarget restores the previous target. Popping with only the default
// surface left fails with ErrStackUnderflow.
func (c *Context) PopTarget() error {
	if err := c.usable("pop target"); err != nil {
		return err
	}
	return c.check(c.targets.Pop())
}

// WithTarget runs fn with t bound and restores the previous target even
// when fn fails or panics.
func (c *Context) WithTarget(t *target.Target, fn func() error) error {
	if err := c.usable("with target"); err != nil {
		return err
	}
	return c.check(c.targets.With(t, fn))
}

// Program returns the compiled program for f, compiling it on first
// use.
func (c *Context) Program(f shader.Features) (*shader.Program, error) {
	if err := c.usable("program"); err != nil {
		return nil, err
	}
	p, err := c.shaders.Get(f)
	return p, c.check(err)
}

// Render draws one frame. Pending surface resizes are applied first.
func (c *Context) Render(f *render.Frame) error {
	if err := c.usable("render"); err != nil {
		return err
	}
	if size := c.pendingResize.Swap(nil); size != nil {
		if err := c.Resize(size[0], size[1]); err != nil {
			return err
		}
	}
	if len(f.Lights) > c.config.MaxLights {
		return fmt.Errorf("g3d: render: %w: %d, max %d", render.ErrTooManyLights, len(f.Lights), c.config.MaxLights)
	}
	return c.check(c.pipeline.Render(f))
}

// Resize reconfigures the default surface.
func (c *Context) Resize(width, height int) error {
	if err := c.usable("resize"); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("g3d: resize: %w: size %dx%d", ErrInvalidConfig, width, height)
	}
	if w, h := c.Size(); w == width && h == height {
		return nil
	}
	if err := c.check(c.targets.Resize(width, height)); err != nil {
		return err
	}
	c.logger.Debug("g3d: resized", "size", fmt.Sprintf("%dx%d", width, height))
	return nil
}

// Events drains the input events received from the surface since the
// last call, for forwarding to an overlay.
func (c *Context) Events() []surface.Event {
	if c.events == nil {
		return nil
	}
	return c.events.Drain()
}

// ReadPixels reads color attachment 0 of an offscreen RGBA8 target.
func (c *Context) ReadPixels(t *target.Target) (*image.RGBA, error) {
	if err := c.usable("read pixels"); err != nil {
		return nil, err
	}
	if t == nil || t.IsSurface() || t.Color(0).IsZero() {
		return nil, fmt.Errorf("g3d: read pixels: %w", target.ErrSurface)
	}
	info, err := c.registry.TextureInfo(t.Color(0))
	if err != nil {
		return nil, c.check(err)
	}
	switch info.Format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
	default:
		return nil, fmt.Errorf("g3d: read pixels: unsupported format %v", info.Format)
	}
	pix, err := c.registry.ReadTexture(t.Color(0))
	if err != nil {
		return nil, c.check(err)
	}
	return &image.RGBA{Pix: pix, Stride: 4 * info.Width, Rect: image.Rect(0, 0, info.Width, info.Height)}, nil
}

// Close releases every resource and the backend. After a context loss
// only the backend is closed. Close is idempotent.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var errs []error
	if !c.lost {
		errs = append(errs,
			c.targets.Unwind(),
			c.pipeline.Close(),
			c.shaders.Invalidate(),
			c.registry.Close(),
		)
	}
	c.adapter.Close()
	c.logger.Info("g3d: context closed")
	return errors.Join(errs...)
}
