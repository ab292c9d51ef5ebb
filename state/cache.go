// Package state deduplicates redundant state changes before they reach
// the backend.
//
// A Cache remembers the last value applied to every state slot (bound
// target, viewport, program, depth, blend and cull state, texture
// units, vertex and index buffers). Setting a slot to the value it
// already holds is a no-op; anything else is forwarded to the adapter.
//
// Binding a target always reaches the backend and forgets every
// pass-scoped slot, because backends reset pipeline state when a new
// pass begins. A failed call also forgets its slot: after an error the
// backend state is unknown.
package state

import (
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/resource"
)

// Stats counts forwarded and skipped calls.
type Stats struct {
	Applied int
	Skipped int
}

type slot[T comparable] struct {
	value T
	known bool
}

func (s *slot[T]) matches(v T) bool {
	return s.known && s.value == v
}

func (s *slot[T]) set(v T, err error) {
	s.value, s.known = v, err == nil
}

// Cache wraps an adapter and filters redundant state calls.
// It is not safe for concurrent use.
type Cache struct {
	adapter gpucore.Adapter

	target   slot[gpucore.TargetID]
	viewport slot[gpucore.Viewport]
	program  slot[gpucore.ProgramID]
	depth    slot[gpucore.DepthState]
	blend    slot[gpucore.BlendMode]
	cull     slot[gpucore.CullState]
	textures [gpucore.MaxTextureUnits]slot[gpucore.TextureID]
	vertices slot[gpucore.BufferID]
	indices  slot[gpucore.BufferID]

	stats Stats
}

// New creates a cache in front of a.
func New(a gpucore.Adapter) *Cache {
	return &Cache{adapter: a}
}

// Adapter returns the wrapped adapter.
func (c *Cache) Adapter() gpucore.Adapter {
	return c.adapter
}

// Stats returns the applied and skipped call counts.
func (c *Cache) Stats() Stats {
	return c.stats
}

// ResetStats zeroes the counters.
func (c *Cache) ResetStats() {
	c.stats = Stats{}
}

// Invalidate forgets every slot, including the bound target.
func (c *Cache) Invalidate() {
	c.target = slot[gpucore.TargetID]{}
	c.viewport = slot[gpucore.Viewport]{}
	c.invalidatePass()
}

// invalidatePass forgets the slots a new pass resets.
func (c *Cache) invalidatePass() {
	c.program = slot[gpucore.ProgramID]{}
	c.depth = slot[gpucore.DepthState]{}
	c.blend = slot[gpucore.BlendMode]{}
	c.cull = slot[gpucore.CullState]{}
	c.textures = [gpucore.MaxTextureUnits]slot[gpucore.TextureID]{}
	c.vertices = slot[gpucore.BufferID]{}
	c.indices = slot[gpucore.BufferID]{}
}

// Target returns the bound target and whether it is known.
func (c *Cache) Target() (gpucore.TargetID, bool) {
	return c.target.value, c.target.known
}

// BindTarget always forwards: binding begins a new pass.
func (c *Cache) BindTarget(id gpucore.TargetID, vp gpucore.Viewport) error {
	c.stats.Applied++
	err := c.adapter.BindTarget(id, vp)
	c.invalidatePass()
	c.target.set(id, err)
	c.viewport.set(vp, err)
	if vp.Empty() {
		c.viewport.known = false
	}
	return err
}

// SetViewport forwards vp unless it is already set.
func (c *Cache) SetViewport(vp gpucore.Viewport) error {
	if c.viewport.matches(vp) {
		c.stats.Skipped++
		return nil
	}
	c.stats.Applied++
	err := c.adapter.SetViewport(vp)
	c.viewport.set(vp, err)
	return err
}

// UseProgram forwards id unless it is already bound.
func (c *Cache) UseProgram(id gpucore.ProgramID) error {
	if c.program.matches(id) {
		c.stats.Skipped++
		return nil
	}
	c.stats.Applied++
	err := c.adapter.UseProgram(id)
	c.program.set(id, err)
	return err
}

// SetDepth forwards d unless it is already set.
func (c *Cache) SetDepth(d gpucore.DepthState) error {
	if c.depth.matches(d) {
		c.stats.Skipped++
		return nil
	}
	c.stats.Applied++
	err := c.adapter.SetDepth(d)
	c.depth.set(d, err)
	return err
}

// SetBlend forwards b unless it is already set.
func (c *Cache) SetBlend(b gpucore.BlendMode) error {
	if c.blend.matches(b) {
		c.stats.Skipped++
		return nil
	}
	c.stats.Applied++
	err := c.adapter.SetBlend(b)
	c.blend.set(b, err)
	return err
}

// SetCull forwards cs unless it is already set.
func (c *Cache) SetCull(cs gpucore.CullState) error {
	if c.cull.matches(cs) {
		c.stats.Skipped++
		return nil
	}
	c.stats.Applied++
	err := c.adapter.SetCull(cs)
	c.cull.set(cs, err)
	return err
}

// SetPipeline applies depth, blend and cull state.
func (c *Cache) SetPipeline(p gpucore.PipelineState) error {
	if err := c.SetDepth(p.Depth); err != nil {
		return err
	}
	if err := c.SetBlend(p.Blend); err != nil {
		return err
	}
	return c.SetCull(p.Cull)
}

// BindTexture forwards the binding unless the unit already holds id.
// Units outside the cache range are always forwarded.
func (c *Cache) BindTexture(unit int, id gpucore.TextureID) error {
	if unit < 0 || unit >= len(c.textures) {
		c.stats.Applied++
		return c.adapter.BindTexture(unit, id)
	}
	s := &c.textures[unit]
	if s.matches(id) {
		c.stats.Skipped++
		return nil
	}
	c.stats.Applied++
	err := c.adapter.BindTexture(unit, id)
	s.set(id, err)
	return err
}

// BindVertexBuffer forwards id unless it is already bound.
func (c *Cache) BindVertexBuffer(id gpucore.BufferID) error {
	if c.vertices.matches(id) {
		c.stats.Skipped++
		return nil
	}
	c.stats.Applied++
	err := c.adapter.BindVertexBuffer(id)
	c.vertices.set(id, err)
	return err
}

// BindIndexBuffer forwards id unless it is already bound.
func (c *Cache) BindIndexBuffer(id gpucore.BufferID) error {
	if c.indices.matches(id) {
		c.stats.Skipped++
		return nil
	}
	c.stats.Applied++
	err := c.adapter.BindIndexBuffer(id)
	c.indices.set(id, err)
	return err
}

// Forget drops every slot holding the backend object id of the given
// kind. Registries call it through their release hook.
func (c *Cache) Forget(kind resource.Kind, id uint64) {
	switch kind {
	case resource.KindProgram:
		c.ForgetProgram(gpucore.ProgramID(id))
	case resource.KindTexture:
		c.ForgetTexture(gpucore.TextureID(id))
	case resource.KindBuffer:
		c.ForgetBuffer(gpucore.BufferID(id))
	}
}

// ForgetProgram drops the program slot if it holds id, so a recycled
// backend ID is never mistaken for a bound one.
func (c *Cache) ForgetProgram(id gpucore.ProgramID) {
	if c.program.value == id {
		c.program = slot[gpucore.ProgramID]{}
	}
}

// ForgetTexture drops texture units holding id.
func (c *Cache) ForgetTexture(id gpucore.TextureID) {
	for i := range c.textures {
		if c.textures[i].value == id {
			c.textures[i] = slot[gpucore.TextureID]{}
		}
	}
}

// ForgetBuffer drops buffer slots holding id.
func (c *Cache) ForgetBuffer(id gpucore.BufferID) {
	if c.vertices.value == id {
		c.vertices = slot[gpucore.BufferID]{}
	}
	if c.indices.value == id {
		c.indices = slot[gpucore.BufferID]{}
	}
}
