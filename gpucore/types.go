package gpucore

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// Resource IDs
//
// These opaque IDs represent backend objects. Each adapter implementation
// maintains a mapping between IDs and actual backend resources.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// ProgramID is an opaque handle to a compiled and linked program.
type ProgramID uint64

// TargetID is an opaque handle to a framebuffer (attachment set).
// The zero TargetID is the default surface.
type TargetID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// DefaultTarget is the TargetID of the default surface.
const DefaultTarget TargetID = 0

// BufferKind selects what a buffer holds.
type BufferKind uint8

const (
	// BufferVertex holds interleaved vertex data.
	BufferVertex BufferKind = iota
	// BufferIndex holds 16 or 32 bit indices.
	BufferIndex
)

// String returns the buffer kind name.
func (k BufferKind) String() string {
	switch k {
	case BufferVertex:
		return "vertex"
	case BufferIndex:
		return "index"
	default:
		return fmt.Sprintf("BufferKind(%d)", k)
	}
}

// Usage is an update-frequency hint.
type Usage uint8

const (
	// UsageStatic content is uploaded once.
	UsageStatic Usage = iota
	// UsageDynamic content is rewritten often.
	UsageDynamic
)

// String returns the usage name.
func (u Usage) String() string {
	if u == UsageDynamic {
		return "dynamic"
	}
	return "static"
}

// Semantic identifies the meaning of a vertex attribute. Each semantic
// has a fixed shader location.
type Semantic uint8

const (
	// SemanticPosition is the object-space position (location 0).
	SemanticPosition Semantic = iota
	// SemanticNormal is the object-space normal (location 1).
	SemanticNormal
	// SemanticUV is the texture coordinate (location 2).
	SemanticUV
	// SemanticColor is the per-vertex RGBA color (location 3).
	SemanticColor
)

var semanticNames = [...]string{
	SemanticPosition: "position",
	SemanticNormal:   "normal",
	SemanticUV:       "uv",
	SemanticColor:    "color",
}

// String returns the semantic name.
func (s Semantic) String() string {
	if int(s) < len(semanticNames) {
		return semanticNames[s]
	}
	return fmt.Sprintf("Semantic(%d)", s)
}

// Location returns the shader location bound to the semantic.
func (s Semantic) Location() uint32 {
	return uint32(s)
}

// VertexAttribute describes one attribute inside an interleaved vertex.
type VertexAttribute struct {
	Semantic Semantic
	Format   gputypes.VertexFormat
	Offset   int
}

// VertexLayout describes an interleaved vertex buffer.
type VertexLayout struct {
	Stride     int
	Attributes []VertexAttribute
}

// Attribute returns the attribute with the given semantic.
func (l VertexLayout) Attribute(s Semantic) (VertexAttribute, bool) {
	for _, a := range l.Attributes {
		if a.Semantic == s {
			return a, true
		}
	}
	return VertexAttribute{}, false
}

// Has reports whether the layout carries the semantic.
func (l VertexLayout) Has(s Semantic) bool {
	_, ok := l.Attribute(s)
	return ok
}

// Equal reports whether two layouts are identical.
func (l VertexLayout) Equal(o VertexLayout) bool {
	if l.Stride != o.Stride || len(l.Attributes) != len(o.Attributes) {
		return false
	}
	for i := range l.Attributes {
		if l.Attributes[i] != o.Attributes[i] {
			return false
		}
	}
	return true
}

// Key returns a compact string form usable as a map key.
func (l VertexLayout) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", l.Stride)
	for _, a := range l.Attributes {
		fmt.Fprintf(&b, "|%d:%d@%d", a.Semantic, a.Format, a.Offset)
	}
	return b.String()
}

// Validate checks that every attribute fits inside the stride and that
// a position attribute is present.
func (l VertexLayout) Validate() error {
	if l.Stride <= 0 {
		return fmt.Errorf("vertex stride %d must be positive", l.Stride)
	}
	if !l.Has(SemanticPosition) {
		return fmt.Errorf("vertex layout has no position attribute")
	}
	seen := make(map[Semantic]bool, len(l.Attributes))
	for _, a := range l.Attributes {
		if seen[a.Semantic] {
			return fmt.Errorf("duplicate %s attribute", a.Semantic)
		}
		seen[a.Semantic] = true
		size := int(a.Format.Size())
		if size == 0 {
			return fmt.Errorf("%s attribute has unsupported format %v", a.Semantic, a.Format)
		}
		if a.Offset < 0 || a.Offset+size > l.Stride {
			return fmt.Errorf("%s attribute [%d,%d) exceeds stride %d", a.Semantic, a.Offset, a.Offset+size, l.Stride)
		}
	}
	return nil
}

// BufferDesc describes a buffer allocation.
type BufferDesc struct {
	Label string
	Kind  BufferKind
	Usage Usage

	// Layout describes vertex buffers.
	Layout VertexLayout
	// IndexFormat describes index buffers.
	IndexFormat gputypes.IndexFormat

	// Size is the allocation capacity in bytes. Zero means len(Data).
	Size int
	// Data is the initial content; it may be shorter than Size.
	Data []byte
}

// Capacity returns the allocation size in bytes.
func (d BufferDesc) Capacity() int {
	if d.Size > 0 {
		return d.Size
	}
	return len(d.Data)
}

// ElementSize returns the byte size of one vertex or index.
func (d BufferDesc) ElementSize() int {
	if d.Kind == BufferIndex {
		return int(d.IndexFormat.Size())
	}
	return d.Layout.Stride
}

// Elements returns how many whole vertices or indices the allocation
// holds.
func (d BufferDesc) Elements() int {
	if es := d.ElementSize(); es > 0 {
		return d.Capacity() / es
	}
	return 0
}

// Sampler holds the sampling parameters attached to a texture.
type Sampler struct {
	AddressU gputypes.AddressMode
	AddressV gputypes.AddressMode
	Mag      gputypes.FilterMode
	Min      gputypes.FilterMode
	Mipmap   gputypes.MipmapFilterMode
}

// DefaultSampler returns a repeating, linearly filtered sampler.
func DefaultSampler() Sampler {
	return Sampler{
		AddressU: gputypes.AddressModeRepeat,
		AddressV: gputypes.AddressModeRepeat,
		Mag:      gputypes.FilterModeLinear,
		Min:      gputypes.FilterModeLinear,
		Mipmap:   gputypes.MipmapFilterModeLinear,
	}
}

// ClampSampler returns a clamped, nearest-neighbor sampler, used for
// attachments read back by later passes.
func ClampSampler() Sampler {
	return Sampler{
		AddressU: gputypes.AddressModeClampToEdge,
		AddressV: gputypes.AddressModeClampToEdge,
		Mag:      gputypes.FilterModeNearest,
		Min:      gputypes.FilterModeNearest,
		Mipmap:   gputypes.MipmapFilterModeNearest,
	}
}

// TextureDesc describes a 2D texture allocation.
type TextureDesc struct {
	Label     string
	Width     int
	Height    int
	Format    gputypes.TextureFormat
	MipLevels int
	Sampler   Sampler

	// Attachment marks textures that may be bound as a render target
	// attachment.
	Attachment bool

	// Levels holds tightly packed pixel data per mip level. Nil creates
	// an empty texture.
	Levels [][]byte
}

// MipSize returns the dimensions of mip level i.
func MipSize(width, height, level int) (int, int) {
	w, h := width>>level, height>>level
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// MaxMipLevels returns the length of a full mip chain for the size.
func MaxMipLevels(width, height int) int {
	n := 1
	for width > 1 || height > 1 {
		width >>= 1
		height >>= 1
		n++
	}
	return n
}

// LevelSize returns the byte size of mip level i of the described texture.
func (d TextureDesc) LevelSize(level int) int {
	w, h := MipSize(d.Width, d.Height, level)
	return w * h * BytesPerPixel(d.Format)
}

// TargetDesc describes a framebuffer: zero or more color attachments
// plus an optional depth attachment, all of the same size.
type TargetDesc struct {
	Label  string
	Width  int
	Height int
	Color  []TextureID
	Depth  TextureID
}

// BytesPerPixel returns the texel size of a format supported by g3d, or
// zero for unsupported formats.
func BytesPerPixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatDepth32Float:
		return 4
	case gputypes.TextureFormatRGBA32Float:
		return 16
	default:
		return 0
	}
}

// IsDepthFormat reports whether f is a depth attachment format.
func IsDepthFormat(f gputypes.TextureFormat) bool {
	return f.HasDepth()
}
