package g3d

import (
	"log/slog"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/render"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/surface"
)

// Option configures a Context during creation.
//
// Example:
//
//	// Headless context on the software backend
//	ctx, err := g3d.New(g3d.WithBackend("software"), g3d.WithSize(256, 256))
//
//	// Host window, logging to the default logger
//	ctx, err := g3d.New(g3d.WithSurface(surface.New(win, events)), g3d.WithLogger(slog.Default()))
type Option func(*options)

type options struct {
	config    Config
	adapter   gpucore.Adapter
	surface   *surface.Surface
	logger    *slog.Logger
	overlay   render.Overlay
	policy    *render.FailurePolicy
	templates *shader.Templates
	passes    []render.Pass
}

// WithConfig replaces the whole configuration. Options applied after it
// still override single fields.
func WithConfig(c Config) Option {
	return func(o *options) { o.config = c }
}

// WithBackend selects a registered backend by name.
func WithBackend(name string) Option {
	return func(o *options) { o.config.Backend = name }
}

// WithSize sets the default surface size for contexts without a surface.
func WithSize(width, height int) Option {
	return func(o *options) { o.config.Width, o.config.Height = width, height }
}

// WithAdapter uses a if given instead of opening a backend by name. The
// Context initializes and closes it.
func WithAdapter(a gpucore.Adapter) Option {
	return func(o *options) { o.adapter = a }
}

// WithSurface attaches a host window. Its pixel size replaces the
// configured size and its resizes are applied before the next frame.
func WithSurface(s *surface.Surface) Option {
	return func(o *options) { o.surface = s }
}

// WithLogger sets the Context logger. Without it the package logger is
// used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOverlay sets the GUI overlay painted after the color pass.
func WithOverlay(ov render.Overlay) Option {
	return func(o *options) { o.overlay = ov }
}

// WithFailurePolicy overrides the configured shader failure policy.
func WithFailurePolicy(p render.FailurePolicy) Option {
	return func(o *options) { o.policy = &p }
}

// WithTemplates sets the WGSL templates programs are rendered from.
func WithTemplates(t *shader.Templates) Option {
	return func(o *options) { o.templates = t }
}

// WithPasses replaces the default shadow, color and post passes.
func WithPasses(passes ...render.Pass) Option {
	return func(o *options) { o.passes = passes }
}
