// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
)

// EventKind identifies an input event.
type EventKind uint8

// Event kinds.
const (
	KeyPress EventKind = iota + 1
	KeyRelease
	TextInput
	MouseMove
	MousePress
	MouseRelease
	Scroll
	Resize
	Focus
)

var eventKindNames = [...]string{
	KeyPress:     "key-press",
	KeyRelease:   "key-release",
	TextInput:    "text",
	MouseMove:    "mouse-move",
	MousePress:   "mouse-press",
	MouseRelease: "mouse-release",
	Scroll:       "scroll",
	Resize:       "resize",
	Focus:        "focus",
}

// String returns the kind name.
func (k EventKind) String() string {
	if int(k) < len(eventKindNames) && eventKindNames[k] != "" {
		return eventKindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", k)
}

// Event is one input event as delivered by the host. Only the fields
// of its kind are set.
type Event struct {
	Kind    EventKind
	Key     gpucontext.Key
	Mods    gpucontext.Modifiers
	Button  gpucontext.MouseButton
	X, Y    float64
	DX, DY  float64
	Text    string
	Width   int
	Height  int
	Focused bool
}

// Queue buffers events from an event source until the owning goroutine
// drains them, typically once per frame before painting the overlay.
// It is safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	events []Event
	limit  int
	drops  int
}

// DefaultQueueLimit bounds a queue created with a non-positive limit.
const DefaultQueueLimit = 1024

// Listen subscribes a new queue to src. When the queue holds limit
// events the oldest are dropped.
func Listen(src gpucontext.EventSource, limit int) *Queue {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	q := &Queue{limit: limit}
	src.OnKeyPress(func(k gpucontext.Key, m gpucontext.Modifiers) {
		q.push(Event{Kind: KeyPress, Key: k, Mods: m})
	})
	src.OnKeyRelease(func(k gpucontext.Key, m gpucontext.Modifiers) {
		q.push(Event{Kind: KeyRelease, Key: k, Mods: m})
	})
	src.OnTextInput(func(text string) { q.push(Event{Kind: TextInput, Text: text}) })
	src.OnMouseMove(func(x, y float64) { q.push(Event{Kind: MouseMove, X: x, Y: y}) })
	src.OnMousePress(func(b gpucontext.MouseButton, x, y float64) {
		q.push(Event{Kind: MousePress, Button: b, X: x, Y: y})
	})
	src.OnMouseRelease(func(b gpucontext.MouseButton, x, y float64) {
		q.push(Event{Kind: MouseRelease, Button: b, X: x, Y: y})
	})
	src.OnScroll(func(dx, dy float64) { q.push(Event{Kind: Scroll, DX: dx, DY: dy}) })
	src.OnResize(func(w, h int) { q.push(Event{Kind: Resize, Width: w, Height: h}) })
	src.OnFocus(func(focused bool) { q.push(Event{Kind: Focus, Focused: focused}) })
	return q
}

func (q *Queue) push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) >= q.limit {
		q.events = q.events[1:]
		q.drops++
	}
	q.events = append(q.events, e)
}

// Drain returns the buffered events in arrival order and empties the
// queue.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped returns how many events were discarded because the queue was
// full.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.drops
}
