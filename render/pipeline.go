// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/state"
	"github.com/gogpu/g3d/target"
	"github.com/gogpu/gputypes"
)

// Defaults for pipeline options.
const (
	DefaultShadowMapSize = 1024
	DefaultShadowBias    = 0.005
	DefaultShininess     = 32
)

// Deps are the engine components a pipeline renders through.
type Deps struct {
	Registry *resource.Registry
	Shaders  *shader.Cache
	Targets  *target.Manager
	State    *state.Cache
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	passes             []Pass
	policy             FailurePolicy
	overlay            Overlay
	logger             *slog.Logger
	shadowMapSize      int
	shadowBias         float32
	intermediateFormat gputypes.TextureFormat
	depthFormat        gputypes.TextureFormat
}

// WithPasses replaces the default pass list.
func WithPasses(passes ...Pass) Option {
	return func(o *options) { o.passes = passes }
}

// WithDeferredShading replaces the pass list with ShadowPass,
// GeometryPass, LightPass and PostPass. Lights are applied per pixel
// of the G-buffer using lighting l.
func WithDeferredShading(l shader.Lighting) Option {
	return func(o *options) {
		o.passes = []Pass{ShadowPass{}, GeometryPass{}, LightPass{Lighting: l, Shininess: DefaultShininess}, PostPass{}}
	}
}

// WithFailurePolicy sets the shader failure policy.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithOverlay sets the overlay painted at the end of the color pass.
func WithOverlay(ov Overlay) Option {
	return func(o *options) { o.overlay = ov }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithShadowMapSize sets the default shadow map resolution.
func WithShadowMapSize(size int) Option {
	return func(o *options) { o.shadowMapSize = size }
}

// WithShadowBias sets the depth bias of shadow lookups.
func WithShadowBias(bias float32) Option {
	return func(o *options) { o.shadowBias = bias }
}

// WithIntermediateFormat sets the color format of post-processing
// intermediates.
func WithIntermediateFormat(f gputypes.TextureFormat) Option {
	return func(o *options) { o.intermediateFormat = f }
}

// Pipeline renders frames through an ordered list of passes.
// It is not safe for concurrent use.
type Pipeline struct {
	Deps
	options

	shadowTargets [gpucore.MaxShadows]*target.Target
	intermediates [2]*target.Target
	gbuffer       *target.Target
	stats         Stats
}

// New creates a pipeline. Without WithPasses it runs ShadowPass,
// ColorPass and PostPass.
func New(deps Deps, opts ...Option) *Pipeline {
	o := options{
		passes:             []Pass{ShadowPass{}, ColorPass{}, PostPass{}},
		shadowMapSize:      DefaultShadowMapSize,
		shadowBias:         DefaultShadowBias,
		intermediateFormat: gputypes.TextureFormatRGBA8Unorm,
		depthFormat:        gputypes.TextureFormatDepth32Float,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if df := deps.Registry.Adapter().Capabilities().DepthFormat; df != gputypes.TextureFormatUndefined {
		o.depthFormat = df
	}
	return &Pipeline{Deps: deps, options: o}
}

// Passes returns the pass list.
func (p *Pipeline) Passes() []Pass {
	return p.passes
}

// SetOverlay replaces the overlay.
func (p *Pipeline) SetOverlay(ov Overlay) {
	p.overlay = ov
}

// SetFailurePolicy replaces the failure policy.
func (p *Pipeline) SetFailurePolicy(fp FailurePolicy) {
	p.policy = fp
}

// SetLogger replaces the logger.
func (p *Pipeline) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	p.logger = l
}

// Stats returns the counters of the last rendered frame.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Render runs every pass for f and flushes. The first failing pass
// aborts the remaining ones and the adapter discards the frame's
// unsubmitted work. The target stack is unwound to the depth
// it had on entry, so targets the caller pushed stay current.
func (p *Pipeline) Render(f *Frame) (err error) {
	pc := &PassContext{
		Frame:    f,
		Registry: p.Registry,
		Shaders:  p.Shaders,
		Targets:  p.Targets,
		State:    p.State,
		Logger:   p.logger,
		pipeline: p,
	}
	depth := p.Targets.Depth()
	defer func() {
		if err != nil && !gpucore.IsContextLost(err) {
			if derr := p.State.Adapter().Discard(); derr != nil {
				err = errors.Join(err, derr)
			}
		}
		if uerr := p.Targets.UnwindTo(depth); uerr != nil && !gpucore.IsContextLost(err) {
			err = errors.Join(err, uerr)
		}
		p.stats = pc.stats
	}()

	for _, pass := range p.passes {
		start := time.Now()
		if err := pass.Run(pc); err != nil {
			var perr *PassError
			if errors.As(err, &perr) {
				return err
			}
			return &PassError{Pass: pass.Name(), Err: err}
		}
		pc.stats.Passes++
		p.logger.Debug("render: pass done", "pass", pass.Name(), "elapsed", time.Since(start))
	}
	if err := p.State.Adapter().Flush(); err != nil {
		return &PassError{Pass: "flush", Err: err}
	}
	return nil
}

func (p *Pipeline) shadowTarget(slot, size int) (*target.Target, error) {
	if slot < 0 || slot >= len(p.shadowTargets) {
		return nil, fmt.Errorf("%w: slot %d", ErrTooManyShadows, slot)
	}
	if t := p.shadowTargets[slot]; t != nil {
		if w, h := t.Size(); w == size && h == size && p.Registry.Valid(t.DepthAttachment()) {
			return t, nil
		}
		_ = p.Targets.Release(t)
		p.shadowTargets[slot] = nil
	}
	t, err := p.Targets.Create(target.Spec{
		Name:   fmt.Sprintf("shadow%d", slot),
		Width:  size,
		Height: size,
		Depth:  p.depthFormat,
		Clear:  target.ClearDepthOnly(),
	})
	if err != nil {
		return nil, err
	}
	p.shadowTargets[slot] = t
	return t, nil
}

func (p *Pipeline) intermediate(pc *PassContext, i int) (*target.Target, error) {
	w, h, err := p.Targets.Size(pc.FinalTarget())
	if err != nil {
		return nil, err
	}
	if t := p.intermediates[i]; t != nil {
		if tw, th := t.Size(); tw == w && th == h && p.Registry.Valid(t.Color(0)) {
			return t, nil
		}
		_ = p.Targets.Release(t)
		p.intermediates[i] = nil
	}
	t, err := p.Targets.Create(target.Spec{
		Name:   fmt.Sprintf("post%d", i),
		Width:  w,
		Height: h,
		Color:  []gputypes.TextureFormat{p.intermediateFormat},
		Depth:  p.depthFormat,
	})
	if err != nil {
		return nil, err
	}
	p.intermediates[i] = t
	return t, nil
}

// Close releases the shadow, intermediate and G-buffer targets the
// pipeline allocated.
func (p *Pipeline) Close() error {
	var errs []error
	for i, t := range p.shadowTargets {
		if t != nil {
			errs = append(errs, p.Targets.Release(t))
			p.shadowTargets[i] = nil
		}
	}
	for i, t := range p.intermediates {
		if t != nil {
			errs = append(errs, p.Targets.Release(t))
			p.intermediates[i] = nil
		}
	}
	if p.gbuffer != nil {
		errs = append(errs, p.Targets.Release(p.gbuffer))
		p.gbuffer = nil
	}
	return errors.Join(errs...)
}

// Forget drops cached targets without releasing them, for use after
// the registry has been invalidated.
func (p *Pipeline) Forget() {
	p.shadowTargets = [gpucore.MaxShadows]*target.Target{}
	p.intermediates = [2]*target.Target{}
	p.gbuffer = nil
}
