package resource

import (
	"cmp"
	"fmt"
)

// Kind identifies the object type behind a Handle.
type Kind uint8

const (
	// KindNone is the kind of the zero Handle.
	KindNone Kind = iota
	// KindBuffer is a vertex or index buffer.
	KindBuffer
	// KindTexture is a sampled texture or attachment.
	KindTexture
	// KindTarget is a framebuffer.
	KindTarget
	// KindProgram is a compiled program.
	KindProgram
)

var kindNames = [...]string{
	KindNone:    "none",
	KindBuffer:  "buffer",
	KindTexture: "texture",
	KindTarget:  "target",
	KindProgram: "program",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Handle is an opaque reference to a registry object.
// The zero Handle refers to nothing.
type Handle struct {
	reg   uint32
	kind  Kind
	index uint32
	gen   uint32
}

// Raw returns the handle itself. Typed handles inherit it, which lets
// Release accept any of them.
func (h Handle) Raw() Handle { return h }

// Kind returns the object type.
func (h Handle) Kind() Kind { return h.kind }

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h == Handle{} }

// Compare orders handles by registry, kind, slot and generation. It is
// used to group draws sharing a resource.
func (h Handle) Compare(o Handle) int {
	switch {
	case h.reg != o.reg:
		return cmp.Compare(h.reg, o.reg)
	case h.kind != o.kind:
		return cmp.Compare(h.kind, o.kind)
	case h.index != o.index:
		return cmp.Compare(h.index, o.index)
	default:
		return cmp.Compare(h.gen, o.gen)
	}
}

// String returns a debug form such as "texture#3.1".
func (h Handle) String() string {
	if h.IsZero() {
		return "nil"
	}
	return fmt.Sprintf("%s#%d.%d", h.kind, h.index, h.gen)
}

// Resource is implemented by Handle and every typed handle.
type Resource interface {
	Raw() Handle
}

// Buffer is a handle to a vertex or index buffer.
type Buffer struct{ Handle }

// Texture is a handle to a texture.
type Texture struct{ Handle }

// Target is a handle to a framebuffer.
type Target struct{ Handle }

// Program is a handle to a compiled program.
type Program struct{ Handle }
