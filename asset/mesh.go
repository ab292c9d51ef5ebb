package asset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/g3d/geom"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/gputypes"
)

// ErrInvalidMesh reports inconsistent vertex attributes or indices.
var ErrInvalidMesh = errors.New("asset: invalid mesh")

// Mesh is decoded geometry. Every non-empty attribute slice has one
// entry per position.
type Mesh struct {
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Colors    [][4]float32
	// Indices selects indexed drawing when non-empty.
	Indices []uint32
}

// Validate checks attribute counts and index ranges.
func (m *Mesh) Validate() error {
	n := len(m.Positions)
	if n == 0 {
		return fmt.Errorf("%w: no positions", ErrInvalidMesh)
	}
	for _, a := range []struct {
		name string
		len  int
	}{{"normals", len(m.Normals)}, {"uvs", len(m.UVs)}, {"colors", len(m.Colors)}} {
		if a.len != 0 && a.len != n {
			return fmt.Errorf("%w: %d %s for %d positions", ErrInvalidMesh, a.len, a.name, n)
		}
	}
	for i, idx := range m.Indices {
		if int(idx) >= n {
			return fmt.Errorf("%w: index %d at %d out of range", ErrInvalidMesh, idx, i)
		}
	}
	return nil
}

// Layout returns the interleaved vertex layout of the mesh: position,
// then normal, uv and color when present.
func (m *Mesh) Layout() gpucore.VertexLayout {
	var l gpucore.VertexLayout
	add := func(s gpucore.Semantic, f gputypes.VertexFormat, size int) {
		l.Attributes = append(l.Attributes, gpucore.VertexAttribute{Semantic: s, Format: f, Offset: l.Stride})
		l.Stride += size
	}
	add(gpucore.SemanticPosition, gputypes.VertexFormatFloat32x3, 12)
	if len(m.Normals) > 0 {
		add(gpucore.SemanticNormal, gputypes.VertexFormatFloat32x3, 12)
	}
	if len(m.UVs) > 0 {
		add(gpucore.SemanticUV, gputypes.VertexFormatFloat32x2, 8)
	}
	if len(m.Colors) > 0 {
		add(gpucore.SemanticColor, gputypes.VertexFormatFloat32x4, 16)
	}
	return l
}

// Vertices returns the interleaved little-endian vertex data.
func (m *Mesh) Vertices() []byte {
	l := m.Layout()
	out := make([]byte, 0, l.Stride*len(m.Positions))
	put := func(vs ...float32) {
		for _, v := range vs {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
		}
	}
	for i, p := range m.Positions {
		put(p[:]...)
		if len(m.Normals) > 0 {
			put(m.Normals[i][:]...)
		}
		if len(m.UVs) > 0 {
			put(m.UVs[i][:]...)
		}
		if len(m.Colors) > 0 {
			put(m.Colors[i][:]...)
		}
	}
	return out
}

// IndexFormat returns Uint16 when every index fits, otherwise Uint32.
func (m *Mesh) IndexFormat() gputypes.IndexFormat {
	if len(m.Positions) <= math.MaxUint16+1 {
		return gputypes.IndexFormatUint16
	}
	return gputypes.IndexFormatUint32
}

// IndexBytes returns the index data in IndexFormat, or nil.
func (m *Mesh) IndexBytes() []byte {
	if len(m.Indices) == 0 {
		return nil
	}
	if m.IndexFormat() == gputypes.IndexFormatUint16 {
		out := make([]byte, 0, 2*len(m.Indices))
		for _, i := range m.Indices {
			out = binary.LittleEndian.AppendUint16(out, uint16(i))
		}
		return out
	}
	out := make([]byte, 0, 4*len(m.Indices))
	for _, i := range m.Indices {
		out = binary.LittleEndian.AppendUint32(out, i)
	}
	return out
}

// Bounds returns the bounding box of the positions.
func (m *Mesh) Bounds() geom.AABB {
	var b geom.AABB
	for _, p := range m.Positions {
		b = b.Extend(geom.V3(p[0], p[1], p[2]))
	}
	return b
}

// Geometry is a mesh uploaded to a registry.
type Geometry struct {
	Vertices resource.Buffer
	// Indices is zero for non-indexed meshes.
	Indices resource.Buffer
	Bounds  geom.AABB
}

// Release releases the geometry's buffers.
func (g Geometry) Release(reg *resource.Registry) error {
	var errs []error
	if !g.Vertices.IsZero() {
		errs = append(errs, reg.Release(g.Vertices))
	}
	if !g.Indices.IsZero() {
		errs = append(errs, reg.Release(g.Indices))
	}
	return errors.Join(errs...)
}

// UploadMesh validates m and uploads its vertex and index buffers.
func UploadMesh(reg *resource.Registry, label string, m *Mesh, usage gpucore.Usage) (Geometry, error) {
	if err := m.Validate(); err != nil {
		return Geometry{}, err
	}
	vb, err := reg.UploadBuffer(gpucore.BufferDesc{
		Label:  label + " vertices",
		Kind:   gpucore.BufferVertex,
		Usage:  usage,
		Layout: m.Layout(),
		Data:   m.Vertices(),
	})
	if err != nil {
		return Geometry{}, err
	}
	g := Geometry{Vertices: vb, Bounds: m.Bounds()}
	if len(m.Indices) == 0 {
		return g, nil
	}
	g.Indices, err = reg.UploadBuffer(gpucore.BufferDesc{
		Label:       label + " indices",
		Kind:        gpucore.BufferIndex,
		Usage:       usage,
		IndexFormat: m.IndexFormat(),
		Data:        m.IndexBytes(),
	})
	if err != nil {
		return Geometry{}, errors.Join(err, reg.Release(vb))
	}
	return g, nil
}

// Plane returns a square of half-size s in the XZ plane facing +Y.
func Plane(s float32) *Mesh {
	return &Mesh{
		Positions: [][3]float32{{-s, 0, -s}, {-s, 0, s}, {s, 0, s}, {s, 0, -s}},
		Normals:   [][3]float32{{0, 1, 0}, {0, 1, 0}, {0, 1, 0}, {0, 1, 0}},
		UVs:       [][2]float32{{0, 0}, {0, 1}, {1, 1}, {1, 0}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

// Cube returns an axis-aligned cube of half-size s with per-face
// normals and counter-clockwise outward faces.
func Cube(s float32) *Mesh {
	faces := []struct{ n, u, v [3]float32 }{
		{[3]float32{1, 0, 0}, [3]float32{0, 0, -1}, [3]float32{0, 1, 0}},
		{[3]float32{-1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}},
		{[3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}},
		{[3]float32{0, -1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
		{[3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{0, 0, -1}, [3]float32{-1, 0, 0}, [3]float32{0, 1, 0}},
	}
	m := &Mesh{}
	for _, f := range faces {
		base := uint32(len(m.Positions))
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			var p [3]float32
			for i := range p {
				p[i] = s * (f.n[i] + c[0]*f.u[i] + c[1]*f.v[i])
			}
			m.Positions = append(m.Positions, p)
			m.Normals = append(m.Normals, f.n)
			m.UVs = append(m.UVs, [2]float32{(c[0] + 1) / 2, (1 - c[1]) / 2})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}
