// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/gogpu/g3d/geom"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/recording"
	"github.com/gogpu/g3d/shader"
)

func (e *env) litFrame(t *testing.T, lights ...Light) *Frame {
	t.Helper()
	return &Frame{
		Clear:   ClearColor(0, 0, 1, 1),
		Camera:  PerspectiveCamera(geom.V3(0, 3, 3), geom.Vec3{}, geom.V3(0, 1, 0), math32.Pi/3, 1, 0.1, 20),
		Ambient: [3]float32{0.1, 0.1, 0.1},
		Lights:  lights,
		Objects: []Object{{
			Name:     "floor",
			Vertices: e.quad(t, 0, 0.5),
			Material: &Material{Lighting: shader.Lambert, BaseColor: [4]float32{1, 1, 1, 1}},
		}},
	}
}

func near(a, b [4]byte, tol int) bool {
	for i := range a {
		if d := int(a[i]) - int(b[i]); d > tol || d < -tol {
			return false
		}
	}
	return true
}

func TestDeferredMatchesForward(t *testing.T) {
	const size = 16
	tests := []struct {
		name   string
		lights []Light
	}{
		{"no lights", nil},
		{"one light", []Light{DirectionalLight(geom.V3(0, -1, 0), [3]float32{0.6, 0.6, 0.6}, 1)}},
		{"two lights", []Light{
			DirectionalLight(geom.V3(0, -1, 0), [3]float32{0.4, 0.2, 0.2}, 1),
			DirectionalLight(geom.V3(-1, -1, 0), [3]float32{0.2, 0.4, 0.2}, 1),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, size, size)
			fwd, def := e.offscreen(t, size, size), e.offscreen(t, size, size)

			f := e.litFrame(t, tt.lights...)
			f.Target = fwd
			if err := e.pipeline().Render(f); err != nil {
				t.Fatalf("forward Render() error = %v", err)
			}
			f.Target = def
			if err := e.pipeline(WithDeferredShading(shader.Lambert)).Render(f); err != nil {
				t.Fatalf("deferred Render() error = %v", err)
			}

			cx, cy := screenPoint(f.Camera.ViewProj(), geom.Vec3{}, size, size)
			for _, pt := range [][2]int{{cx, cy}, {0, 0}} {
				a, b := e.pixel(t, fwd, pt[0], pt[1]), e.pixel(t, def, pt[0], pt[1])
				if !near(a, b, 2) {
					t.Errorf("pixel %v: deferred = %v, want forward %v", pt, b, a)
				}
			}
			if got := e.pixel(t, def, 0, 0); got != [4]byte{0, 0, 255, 255} {
				t.Errorf("uncovered pixel = %v, want clear color", got)
			}
		})
	}
}

func TestLightPassNeedsGBuffer(t *testing.T) {
	e := newEnv(t, 4, 4)
	p := e.pipeline(WithPasses(LightPass{}))
	err := p.Render(&Frame{Target: e.offscreen(t, 4, 4)})
	if !errors.Is(err, ErrNoGBuffer) {
		t.Errorf("Render() error = %v, want %v", err, ErrNoGBuffer)
	}
	var perr *PassError
	if !errors.As(err, &perr) || perr.Pass != "light" {
		t.Errorf("Render() error = %v, want light PassError", err)
	}
}

func TestLightPassBlendsPerLight(t *testing.T) {
	tests := []struct {
		lights    int
		wantDraws int
		additive  bool
	}{
		{lights: 0, wantDraws: 1},
		{lights: 1, wantDraws: 1},
		{lights: 3, wantDraws: 3, additive: true},
	}
	for _, tt := range tests {
		e := newEnv(t, 8, 8)
		p := e.pipeline(WithDeferredShading(shader.BlinnPhong))
		var lights []Light
		for range tt.lights {
			lights = append(lights, DirectionalLight(geom.V3(0, -1, 0), [3]float32{0.2, 0.2, 0.2}, 1))
		}
		f := e.litFrame(t, lights...)
		f.Target = e.offscreen(t, 8, 8)

		e.rec.Reset()
		if err := p.Render(f); err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		rec := e.rec.FinishRecording()
		// One draw fills the G-buffer.
		if got := rec.Count(recording.CmdDraw) - 1; got != tt.wantDraws {
			t.Errorf("%d lights: light draws = %d, want %d", tt.lights, got, tt.wantDraws)
		}
		additive := false
		for _, c := range rec.Filter(recording.CmdSetBlend) {
			if c.Blend == gpucore.BlendAdditive {
				additive = true
			}
		}
		if additive != tt.additive {
			t.Errorf("%d lights: additive blend = %v, want %v", tt.lights, additive, tt.additive)
		}
	}
}

func TestDeferredShadow(t *testing.T) {
	const size = 32
	e := newEnv(t, size, size)
	out := e.offscreen(t, size, size)
	p := e.pipeline(WithDeferredShading(shader.Lambert))

	sun := DirectionalLight(geom.V3(0, -1, 0), [3]float32{1, 1, 1}, 1)
	sun.CastShadows = true
	white := &Material{Lighting: shader.Lambert, BaseColor: [4]float32{1, 1, 1, 1}}
	cam := PerspectiveCamera(geom.V3(0, 5, 5), geom.Vec3{}, geom.V3(0, 1, 0), math32.Pi/3, 1, 0.1, 50)
	frame := &Frame{
		Target:  out,
		Camera:  cam,
		Ambient: [3]float32{0.1, 0.1, 0.1},
		Lights:  []Light{sun},
		Objects: []Object{
			{Name: "floor", Vertices: e.quad(t, 0, 3), Material: white,
				Bounds: geom.BoundsOf(geom.V3(-3, 0, -3), geom.V3(3, 0, 3))},
			{Name: "occluder", Vertices: e.quad(t, 1, 0.5), Material: white, CastShadows: true,
				Bounds: geom.BoundsOf(geom.V3(-0.5, 1, -0.5), geom.V3(0.5, 1, 0.5))},
		},
	}
	if err := p.Render(frame); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	vp := cam.ViewProj()
	sx, sy := screenPoint(vp, geom.V3(0, 0, 0.2), size, size)
	lx, ly := screenPoint(vp, geom.V3(2, 0, 0.2), size, size)
	shadowed, lit := e.pixel(t, out, sx, sy), e.pixel(t, out, lx, ly)
	if shadowed[0] > 100 {
		t.Errorf("shadowed floor pixel (%d, %d) = %v, want dark", sx, sy, shadowed)
	}
	if lit[0] < 200 {
		t.Errorf("lit floor pixel (%d, %d) = %v, want bright", lx, ly, lit)
	}
}
