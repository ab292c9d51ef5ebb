//go:build !(js && wasm)

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	// Registers the platform HAL backends (Vulkan, Metal, DX12, GLES).
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

// errNoHAL is returned when the instance only offers a placeholder
// device without a queue, as happens on machines without a GPU driver.
var errNoHAL = errors.New("no GPU device with a queue available")

// GPUInfo contains information about the selected GPU.
type GPUInfo struct {
	// Name is the GPU name (e.g., "NVIDIA GeForce RTX 3080").
	Name string
	// Vendor is the GPU vendor.
	Vendor string
	// DeviceType is the type of GPU (discrete, integrated, etc.).
	DeviceType gputypes.DeviceType
	// Backend is the graphics API in use (Vulkan, Metal, DX12).
	Backend gputypes.Backend
	// Driver is the driver version string.
	Driver string
}

// String returns a human-readable description of the GPU.
func (g *GPUInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", g.Name, g.DeviceType, g.Backend)
}

func gpuInfo(info gputypes.AdapterInfo) *GPUInfo {
	return &GPUInfo{
		Name:       info.Name,
		Vendor:     info.Vendor,
		DeviceType: info.DeviceType,
		Backend:    info.Backend,
		Driver:     info.Driver,
	}
}

// providerInfo describes a host device, which only exposes a name.
func providerInfo(p gpucontext.DeviceProvider) *GPUInfo {
	info := p.AdapterInfo()
	g := &GPUInfo{Name: info.Name}
	if a, ok := p.Adapter().(*wgpu.Adapter); ok && a != nil {
		g = gpuInfo(a.Info())
	}
	return g
}

// device is an open WebGPU device plus the objects that own it.
type device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	dev      *wgpu.Device
	queue    *wgpu.Queue
	info     *GPUInfo
	// owned is false for host devices, which are never released here.
	owned bool
}

// openDevice creates an instance, picks an adapter and requests a device.
func openDevice(backends gputypes.Backends, power gputypes.PowerPreference) (*device, error) {
	var desc *wgpu.InstanceDescriptor
	if backends != 0 {
		desc = &wgpu.InstanceDescriptor{Backends: backends}
	}
	instance, err := wgpu.CreateInstance(desc)
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{PowerPreference: power})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "g3d",
		RequiredLimits: wgpu.DefaultLimits(),
	})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	d := &device{
		instance: instance,
		adapter:  adapter,
		dev:      dev,
		queue:    dev.Queue(),
		info:     gpuInfo(adapter.Info()),
		owned:    true,
	}
	if d.queue == nil {
		d.release()
		return nil, errNoHAL
	}
	return d, nil
}

// hostDevice wraps a device owned by a gpucontext.DeviceProvider.
func hostDevice(p gpucontext.DeviceProvider) (*device, error) {
	dev, ok := p.Device().(*wgpu.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("device provider returned %T, want *wgpu.Device", p.Device())
	}
	queue, ok := p.Queue().(*wgpu.Queue)
	if !ok || queue == nil {
		queue = dev.Queue()
	}
	if queue == nil {
		return nil, errNoHAL
	}
	return &device{dev: dev, queue: queue, info: providerInfo(p)}, nil
}

func (d *device) release() {
	if !d.owned {
		return
	}
	if d.dev != nil {
		d.dev.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
}
