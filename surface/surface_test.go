// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"testing"

	"github.com/gogpu/gpucontext"
)

// fakeWindow is a resizable window.
type fakeWindow struct {
	gpucontext.NullWindowProvider
	redraws int
}

func (w *fakeWindow) Size() (int, int) { return w.W, w.H }
func (w *fakeWindow) RequestRedraw()    { w.redraws++ }

// fakeEvents keeps the registered callbacks so tests can fire them.
type fakeEvents struct {
	gpucontext.NullEventSource
	resize []func(int, int)
	keys   []func(gpucontext.Key, gpucontext.Modifiers)
	moves  []func(float64, float64)
	text   []func(string)
}

func (e *fakeEvents) OnResize(fn func(int, int)) { e.resize = append(e.resize, fn) }
func (e *fakeEvents) OnKeyPress(fn func(gpucontext.Key, gpucontext.Modifiers)) {
	e.keys = append(e.keys, fn)
}
func (e *fakeEvents) OnMouseMove(fn func(float64, float64)) { e.moves = append(e.moves, fn) }
func (e *fakeEvents) OnTextInput(fn func(string))           { e.text = append(e.text, fn) }

func (e *fakeEvents) fireResize(w, h int) {
	for _, fn := range e.resize {
		fn(w, h)
	}
}

func TestHeadlessSize(t *testing.T) {
	s := Headless(64, 32)
	if w, h := s.Size(); w != 64 || h != 32 {
		t.Errorf("Size() = %dx%d, want 64x32", w, h)
	}
	if got := s.ScaleFactor(); got != 1 {
		t.Errorf("ScaleFactor() = %v, want 1", got)
	}
}

func TestPhysicalSize(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		scale float64
		wantW int
		wantH int
	}{
		{"standard", 800, 600, 1, 800, 600},
		{"retina", 800, 600, 2, 1600, 1200},
		{"fractional", 101, 51, 1.5, 152, 77},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeWindow{NullWindowProvider: gpucontext.NullWindowProvider{W: tt.w, H: tt.h, SF: tt.scale}}, nil)
			if w, h := s.Size(); w != tt.wantW || h != tt.wantH {
				t.Errorf("Size() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
			if w, h := s.LogicalSize(); w != tt.w || h != tt.h {
				t.Errorf("LogicalSize() = %dx%d, want %dx%d", w, h, tt.w, tt.h)
			}
		})
	}
}

func TestResizeNotifies(t *testing.T) {
	win := &fakeWindow{NullWindowProvider: gpucontext.NullWindowProvider{W: 100, H: 50, SF: 2}}
	ev := &fakeEvents{}
	s := New(win, ev)

	var got [][2]int
	s.OnResize(func(w, h int) { got = append(got, [2]int{w, h}) })

	ev.fireResize(100, 50)
	if len(got) != 0 {
		t.Errorf("unchanged size notified %v", got)
	}
	win.W, win.H = 120, 60
	ev.fireResize(120, 60)
	if len(got) != 1 || got[0] != [2]int{240, 120} {
		t.Errorf("resize notifications = %v, want [[240 120]]", got)
	}

	win.W = 10
	if !s.Poll() {
		t.Error("Poll() = false after size change, want true")
	}
	if s.Poll() {
		t.Error("second Poll() = true, want false")
	}
	s.RequestRedraw()
	if win.redraws != 1 {
		t.Errorf("redraws = %d, want 1", win.redraws)
	}
}

func TestQueue(t *testing.T) {
	ev := &fakeEvents{}
	q := Listen(ev, 2)

	ev.keys[0](gpucontext.KeyA, gpucontext.ModShift)
	ev.moves[0](3, 4)
	ev.text[0]("é")

	if q.Len() != 2 || q.Dropped() != 1 {
		t.Fatalf("Len() = %d, Dropped() = %d, want 2 and 1", q.Len(), q.Dropped())
	}
	got := q.Drain()
	want := []Event{{Kind: MouseMove, X: 3, Y: 4}, {Kind: TextInput, Text: "é"}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Drain()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len() after Drain() = %d, want 0", q.Len())
	}
}

func TestEventKindString(t *testing.T) {
	if got := MousePress.String(); got != "mouse-press" {
		t.Errorf("MousePress.String() = %q, want mouse-press", got)
	}
	if got := EventKind(99).String(); got != "EventKind(99)" {
		t.Errorf("EventKind(99).String() = %q", got)
	}
}
