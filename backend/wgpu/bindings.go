//go:build !(js && wasm)

package wgpu

import (
	"fmt"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

// bindings owns the objects shared by every program: the group 0
// layout, samplers and the placeholder textures bound to empty units.
type bindings struct {
	device         *wgpu.Device
	layout         *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	samplers       map[gpucore.Sampler]*wgpu.Sampler

	// white stands in for an unbound color unit, shadow for an unbound
	// shadow unit.
	white  *wgpu.Texture
	whiteV *wgpu.TextureView
	shadow *wgpu.Texture
	shadV  *wgpu.TextureView
}

// layoutEntries mirrors the group 0 declarations of the WGSL templates.
func layoutEntries() []gputypes.BindGroupLayoutEntry {
	fragment := gputypes.ShaderStageFragment
	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    gpucore.BindingUniforms,
			Visibility: gputypes.ShaderStagesVertexFragment,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: gpucore.UniformSize,
			},
		},
		{
			Binding:    gpucore.BindingBaseColor,
			Visibility: fragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		},
		{
			Binding:    gpucore.BindingBaseColorSampler,
			Visibility: fragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		},
	}
	for i := 0; i < gpucore.MaxShadows; i++ {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(gpucore.BindingShadow0 + i),
			Visibility: fragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeDepth,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	for _, binding := range []int{gpucore.BindingGBufferPosition, gpucore.BindingGBufferNormal} {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(binding),
			Visibility: fragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	return entries
}

func newBindings(dev *wgpu.Device) (*bindings, error) {
	bs := &bindings{device: dev, samplers: make(map[gpucore.Sampler]*wgpu.Sampler)}
	var err error
	bs.layout, err = dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "g3d-group0",
		Entries: layoutEntries(),
	})
	if err != nil {
		return nil, fmt.Errorf("bind group layout: %w", err)
	}
	bs.pipelineLayout, err = dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "g3d-pipeline-layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bs.layout},
	})
	if err != nil {
		bs.release()
		return nil, fmt.Errorf("pipeline layout: %w", err)
	}
	if bs.white, bs.whiteV, err = placeholder(dev, gputypes.TextureFormatRGBA8Unorm); err != nil {
		bs.release()
		return nil, err
	}
	if err := dev.Queue().WriteTexture(
		&wgpu.ImageCopyTexture{Texture: bs.white},
		[]byte{255, 255, 255, 255},
		&wgpu.ImageDataLayout{BytesPerRow: 4, RowsPerImage: 1},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	); err != nil {
		bs.release()
		return nil, fmt.Errorf("placeholder upload: %w", err)
	}
	if bs.shadow, bs.shadV, err = placeholder(dev, gputypes.TextureFormatDepth32Float); err != nil {
		bs.release()
		return nil, err
	}
	return bs, nil
}

func placeholder(dev *wgpu.Device, format gputypes.TextureFormat) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := dev.CreateTexture(&wgpu.TextureDescriptor{
		Label:         fmt.Sprintf("g3d-placeholder-%v", format),
		Size:          wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst | gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("placeholder texture: %w", err)
	}
	view, err := dev.CreateTextureView(tex, nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("placeholder view: %w", err)
	}
	return tex, view, nil
}

// sampler returns the shared sampler object for s.
func (bs *bindings) sampler(s gpucore.Sampler) (*wgpu.Sampler, error) {
	if smp, ok := bs.samplers[s]; ok {
		return smp, nil
	}
	mip := gputypes.FilterModeNearest
	if s.Mipmap == gputypes.MipmapFilterModeLinear {
		mip = gputypes.FilterModeLinear
	}
	smp, err := bs.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:        "g3d-sampler",
		AddressModeU: orDefault(s.AddressU, gputypes.AddressModeClampToEdge),
		AddressModeV: orDefault(s.AddressV, gputypes.AddressModeClampToEdge),
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    orDefault(s.Mag, gputypes.FilterModeNearest),
		MinFilter:    orDefault(s.Min, gputypes.FilterModeNearest),
		MipmapFilter: mip,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return nil, err
	}
	bs.samplers[s] = smp
	return smp, nil
}

// orDefault replaces an undefined (zero) enum value.
func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// group builds the bind group of one draw.
func (bs *bindings) group(label string, uniforms *wgpu.Buffer, offset uint64, units *[gpucore.MaxTextureUnits]*texture) (*wgpu.BindGroup, error) {
	colorView, colorSampler := bs.whiteV, (*wgpu.Sampler)(nil)
	if t := units[gpucore.UnitBaseColor]; t != nil {
		colorView, colorSampler = t.view, t.sampler
	}
	if colorSampler == nil {
		var err error
		if colorSampler, err = bs.sampler(gpucore.DefaultSampler()); err != nil {
			return nil, err
		}
	}
	entries := []wgpu.BindGroupEntry{
		{Binding: gpucore.BindingUniforms, Buffer: uniforms, Offset: offset, Size: gpucore.UniformSize},
		{Binding: gpucore.BindingBaseColor, TextureView: colorView},
		{Binding: gpucore.BindingBaseColorSampler, Sampler: colorSampler},
	}
	for i := 0; i < gpucore.MaxShadows; i++ {
		view := bs.shadV
		if t := units[gpucore.UnitShadow0+i]; t != nil {
			view = t.view
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(gpucore.BindingShadow0 + i), TextureView: view})
	}
	for i, binding := range []int{gpucore.BindingGBufferPosition, gpucore.BindingGBufferNormal} {
		view := bs.whiteV
		if t := units[gpucore.UnitGBufferPosition+i]; t != nil {
			view = t.view
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(binding), TextureView: view})
	}
	return bs.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  bs.layout,
		Entries: entries,
	})
}

func (bs *bindings) release() {
	for s, smp := range bs.samplers {
		smp.Release()
		delete(bs.samplers, s)
	}
	if bs.whiteV != nil {
		bs.whiteV.Release()
	}
	if bs.white != nil {
		bs.white.Release()
	}
	if bs.shadV != nil {
		bs.shadV.Release()
	}
	if bs.shadow != nil {
		bs.shadow.Release()
	}
	if bs.pipelineLayout != nil {
		bs.pipelineLayout.Release()
	}
	if bs.layout != nil {
		bs.layout.Release()
	}
}
