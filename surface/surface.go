// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"math"
	"slices"
	"sync"

	"github.com/gogpu/gpucontext"
)

// Surface is a drawable window area as seen by the engine.
type Surface struct {
	window gpucontext.WindowProvider
	events gpucontext.EventSource

	mu       sync.Mutex
	onResize []func(width, height int)
	width    int
	height   int
}

// New wraps a host window. Events may be nil for windows without input.
func New(window gpucontext.WindowProvider, events gpucontext.EventSource) *Surface {
	if events == nil {
		events = gpucontext.NullEventSource{}
	}
	s := &Surface{window: window, events: events}
	s.width, s.height = s.measure()
	events.OnResize(func(int, int) { s.resized() })
	return s
}

// Headless returns a surface of fixed pixel size without input.
func Headless(width, height int) *Surface {
	return New(gpucontext.NullWindowProvider{W: width, H: height}, nil)
}

// Window returns the wrapped window provider.
func (s *Surface) Window() gpucontext.WindowProvider {
	return s.window
}

// Events returns the input event source.
func (s *Surface) Events() gpucontext.EventSource {
	return s.events
}

// ScaleFactor returns the window's DPI scale, at least 1e-3.
func (s *Surface) ScaleFactor() float64 {
	return max(s.window.ScaleFactor(), 1e-3)
}

// LogicalSize returns the window size in logical points.
func (s *Surface) LogicalSize() (int, int) {
	return s.window.Size()
}

// Size returns the last known size in physical pixels.
func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// OnResize registers fn to receive the new physical size after each
// window resize. Callbacks run on the goroutine delivering window
// events.
func (s *Surface) OnResize(fn func(width, height int)) {
	s.mu.Lock()
	s.onResize = append(s.onResize, fn)
	s.mu.Unlock()
}

// Poll re-reads the window size and notifies resize listeners when it
// changed. Hosts without resize events call it once per frame.
func (s *Surface) Poll() bool {
	return s.resized()
}

// RequestRedraw asks the host for another frame.
func (s *Surface) RequestRedraw() {
	s.window.RequestRedraw()
}

func (s *Surface) measure() (int, int) {
	w, h := s.window.Size()
	scale := s.ScaleFactor()
	return pixels(w, scale), pixels(h, scale)
}

func (s *Surface) resized() bool {
	w, h := s.measure()
	s.mu.Lock()
	if w == s.width && h == s.height {
		s.mu.Unlock()
		return false
	}
	s.width, s.height = w, h
	listeners := slices.Clone(s.onResize)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(w, h)
	}
	return true
}

func pixels(logical int, scale float64) int {
	return max(int(math.Round(float64(logical)*scale)), 0)
}
