package resource

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
)

// serials hands out registry identities so handles can be checked for
// foreign origin.
var serials atomic.Uint32

type entry struct {
	gen  uint32
	live bool
	kind Kind
	id   uint64

	buffer  BufferInfo
	texture TextureInfo
	target  TargetInfo
	program ProgramInfo
	bytes   int
}

// Registry owns backend objects behind generational handles.
type Registry struct {
	serial  uint32
	adapter gpucore.Adapter
	logger  *slog.Logger

	// slot 0 is reserved so the zero Handle never resolves.
	entries []entry
	free    []uint32

	onRelease []func(kind Kind, id uint64)

	closed bool
	lost   bool
}

// New creates a registry over an initialized adapter.
func New(a gpucore.Adapter) *Registry {
	return &Registry{
		serial:  serials.Add(1),
		adapter: a,
		logger:  slog.New(slog.DiscardHandler),
		entries: make([]entry, 1, 64),
	}
}

// SetLogger sets the logger used for lifecycle diagnostics. Nil disables
// logging.
func (r *Registry) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	r.logger = l
}

// OnRelease registers fn to run after Release destroys a backend
// object, with the object's kind and backend ID.
func (r *Registry) OnRelease(fn func(kind Kind, id uint64)) {
	r.onRelease = append(r.onRelease, fn)
}

// Adapter returns the adapter objects are created on.
func (r *Registry) Adapter() gpucore.Adapter {
	return r.adapter
}

func (r *Registry) usable(op string) error {
	switch {
	case r.lost:
		return &Error{Op: op, Err: gpucore.ErrContextLost}
	case r.closed:
		return &Error{Op: op, Err: ErrClosed}
	}
	return nil
}

// insert stores a live entry and returns its handle.
func (r *Registry) insert(e entry) Handle {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
		e.gen = r.entries[idx].gen
	} else {
		idx = uint32(len(r.entries))
		e.gen = 1
		r.entries = append(r.entries, entry{})
	}
	e.live = true
	r.entries[idx] = e
	return Handle{reg: r.serial, kind: e.kind, index: idx, gen: e.gen}
}

// lookup validates h against the expected kind and returns its entry.
func (r *Registry) lookup(op string, h Handle, kind Kind) (*entry, error) {
	if h.IsZero() {
		return nil, &Error{Op: op, Err: ErrNullHandle}
	}
	if h.reg != r.serial {
		return nil, &Error{Op: op, Handle: h, Err: ErrForeignHandle}
	}
	if kind != KindNone && h.kind != kind {
		return nil, &Error{Op: op, Handle: h, Err: ErrWrongKind,
			Detail: fmt.Sprintf("want %s", kind)}
	}
	if r.lost {
		return nil, &Error{Op: op, Handle: h, Err: gpucore.ErrContextLost}
	}
	if int(h.index) >= len(r.entries) {
		return nil, &Error{Op: op, Handle: h, Err: ErrForeignHandle}
	}
	e := &r.entries[h.index]
	if !e.live || e.gen != h.gen || e.kind != h.kind {
		return nil, &Error{Op: op, Handle: h, Err: ErrUseAfterFree}
	}
	return e, nil
}

// Valid reports whether the handle refers to a live object of this
// registry.
func (r *Registry) Valid(res Resource) bool {
	_, err := r.lookup("Valid", res.Raw(), KindNone)
	return err == nil
}

// Release destroys the object behind the handle. Releasing the same
// handle twice fails with ErrUseAfterFree.
//
// The handle is invalidated even when the backend fails to destroy the
// object; the backend error is returned.
func (r *Registry) Release(res Resource) error {
	h := res.Raw()
	e, err := r.lookup("Release", h, KindNone)
	if err != nil {
		return err
	}
	kind, id := e.kind, e.id
	err = r.destroy(e)
	r.retire(h.index)
	for _, fn := range r.onRelease {
		fn(kind, id)
	}
	if err != nil {
		r.logger.Warn("resource: release failed", "handle", h.String(), "err", err)
		return fmt.Errorf("resource: release %s: %w", h, err)
	}
	r.logger.Debug("resource: released", "handle", h.String())
	return nil
}

func (r *Registry) destroy(e *entry) error {
	switch e.kind {
	case KindBuffer:
		return r.adapter.DestroyBuffer(gpucore.BufferID(e.id))
	case KindTexture:
		return r.adapter.DestroyTexture(gpucore.TextureID(e.id))
	case KindTarget:
		return r.adapter.DestroyTarget(gpucore.TargetID(e.id))
	case KindProgram:
		return r.adapter.DestroyProgram(gpucore.ProgramID(e.id))
	}
	return nil
}

// retire invalidates a slot and puts it on the free list.
func (r *Registry) retire(idx uint32) {
	e := &r.entries[idx]
	*e = entry{gen: e.gen + 1}
	if e.gen == 0 {
		e.gen = 1
	}
	r.free = append(r.free, idx)
}

// Close destroys every live object and invalidates every handle.
// Targets are destroyed before the textures they reference. The first
// backend error is returned after all objects were visited.
func (r *Registry) Close() error {
	if r.closed {
		return nil
	}
	var errs []error
	for _, kind := range []Kind{KindTarget, KindProgram, KindBuffer, KindTexture} {
		for i := 1; i < len(r.entries); i++ {
			e := &r.entries[i]
			if !e.live || e.kind != kind {
				continue
			}
			if !r.lost {
				if err := r.destroy(e); err != nil {
					errs = append(errs, err)
				}
			}
			r.retire(uint32(i))
		}
	}
	r.closed = true
	r.logger.Debug("resource: registry closed", "errors", len(errs))
	if len(errs) > 0 {
		return fmt.Errorf("resource: close: %w", errors.Join(errs...))
	}
	return nil
}

// MarkLost invalidates every handle without calling the backend, whose
// objects are already gone. Later calls fail with gpucore.ErrContextLost.
func (r *Registry) MarkLost() {
	for i := 1; i < len(r.entries); i++ {
		if r.entries[i].live {
			r.retire(uint32(i))
		}
	}
	r.lost = true
	r.logger.Warn("resource: context lost, all handles invalidated")
}

// Lost reports whether MarkLost was called.
func (r *Registry) Lost() bool {
	return r.lost
}

// Stats counts live objects.
type Stats struct {
	Buffers      int
	Textures     int
	Targets      int
	Programs     int
	BufferBytes  int
	TextureBytes int
}

// Live returns the total number of live objects.
func (s Stats) Live() int {
	return s.Buffers + s.Textures + s.Targets + s.Programs
}

// Stats returns live object counts and sizes.
func (r *Registry) Stats() Stats {
	var s Stats
	for i := 1; i < len(r.entries); i++ {
		e := &r.entries[i]
		if !e.live {
			continue
		}
		switch e.kind {
		case KindBuffer:
			s.Buffers++
			s.BufferBytes += e.bytes
		case KindTexture:
			s.Textures++
			s.TextureBytes += e.bytes
		case KindTarget:
			s.Targets++
		case KindProgram:
			s.Programs++
		}
	}
	return s
}

// BufferID resolves a buffer handle to its backend ID.
func (r *Registry) BufferID(b Buffer) (gpucore.BufferID, error) {
	e, err := r.lookup("BufferID", b.Handle, KindBuffer)
	if err != nil {
		return 0, err
	}
	return gpucore.BufferID(e.id), nil
}

// TextureID resolves a texture handle to its backend ID.
func (r *Registry) TextureID(t Texture) (gpucore.TextureID, error) {
	e, err := r.lookup("TextureID", t.Handle, KindTexture)
	if err != nil {
		return 0, err
	}
	return gpucore.TextureID(e.id), nil
}

// TargetID resolves a target handle to its backend ID.
func (r *Registry) TargetID(t Target) (gpucore.TargetID, error) {
	e, err := r.lookup("TargetID", t.Handle, KindTarget)
	if err != nil {
		return 0, err
	}
	return gpucore.TargetID(e.id), nil
}

// ProgramID resolves a program handle to its backend ID.
func (r *Registry) ProgramID(p Program) (gpucore.ProgramID, error) {
	e, err := r.lookup("ProgramID", p.Handle, KindProgram)
	if err != nil {
		return 0, err
	}
	return gpucore.ProgramID(e.id), nil
}

// BufferInfo describes a live buffer.
type BufferInfo struct {
	Label       string
	Kind        gpucore.BufferKind
	Usage       gpucore.Usage
	Layout      gpucore.VertexLayout
	IndexFormat gputypes.IndexFormat
	// Capacity is the allocation size in bytes.
	Capacity int
	// Count is the number of vertices or indices last uploaded.
	Count int
}

// TextureInfo describes a live texture.
type TextureInfo struct {
	Label      string
	Width      int
	Height     int
	Format     gputypes.TextureFormat
	MipLevels  int
	Sampler    gpucore.Sampler
	Attachment bool
}

// TargetInfo describes a live framebuffer.
type TargetInfo struct {
	Label  string
	Width  int
	Height int
	Color  []Texture
	Depth  Texture
}

// ProgramInfo describes a live program.
type ProgramInfo struct {
	Label string
	Key   string
}

// BufferInfo returns the description of a live buffer.
func (r *Registry) BufferInfo(b Buffer) (BufferInfo, error) {
	e, err := r.lookup("BufferInfo", b.Handle, KindBuffer)
	if err != nil {
		return BufferInfo{}, err
	}
	return e.buffer, nil
}

// TextureInfo returns the description of a live texture.
func (r *Registry) TextureInfo(t Texture) (TextureInfo, error) {
	e, err := r.lookup("TextureInfo", t.Handle, KindTexture)
	if err != nil {
		return TextureInfo{}, err
	}
	return e.texture, nil
}

// TargetInfo returns the description of a live target.
func (r *Registry) TargetInfo(t Target) (TargetInfo, error) {
	e, err := r.lookup("TargetInfo", t.Handle, KindTarget)
	if err != nil {
		return TargetInfo{}, err
	}
	info := e.target
	info.Color = append([]Texture(nil), info.Color...)
	return info, nil
}

// ProgramInfo returns the description of a live program.
func (r *Registry) ProgramInfo(p Program) (ProgramInfo, error) {
	e, err := r.lookup("ProgramInfo", p.Handle, KindProgram)
	if err != nil {
		return ProgramInfo{}, err
	}
	return e.program, nil
}

// ReadTexture reads back mip level 0 of a texture.
func (r *Registry) ReadTexture(t Texture) ([]byte, error) {
	e, err := r.lookup("ReadTexture", t.Handle, KindTexture)
	if err != nil {
		return nil, err
	}
	return r.adapter.ReadTexture(gpucore.TextureID(e.id))
}
