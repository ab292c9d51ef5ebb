//go:build !(js && wasm)

package wgpu

import (
	"fmt"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

// slotsPerBlock is the number of uniform slots in one arena buffer.
const slotsPerBlock = 256

// uniformArena hands out one uniform slot per draw. Slots are recycled
// after the frame is submitted: queue writes are ordered after earlier
// submissions, so the next frame may overwrite them.
type uniformArena struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	slot   int
	blocks []*wgpu.Buffer
	used   int
	// scratch is reused for encoding.
	scratch []byte
}

func newUniformArena(dev *wgpu.Device, queue *wgpu.Queue, alignment uint32) *uniformArena {
	return &uniformArena{
		device: dev,
		queue:  queue,
		slot:   align(gpucore.UniformSize, max(int(alignment), 1)),
	}
}

// write encodes u into the next free slot and returns its location.
func (a *uniformArena) write(u *gpucore.Uniforms) (*wgpu.Buffer, uint64, error) {
	block, index := a.used/slotsPerBlock, a.used%slotsPerBlock
	if block == len(a.blocks) {
		buf, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("g3d-uniforms-%d", block),
			Size:  uint64(a.slot * slotsPerBlock),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, 0, err
		}
		a.blocks = append(a.blocks, buf)
	}
	if u == nil {
		u = &gpucore.Uniforms{}
	}
	a.scratch = u.AppendBytes(a.scratch[:0])
	offset := uint64(index * a.slot)
	if err := a.queue.WriteBuffer(a.blocks[block], offset, a.scratch); err != nil {
		return nil, 0, err
	}
	a.used++
	return a.blocks[block], offset, nil
}

// reset recycles every slot.
func (a *uniformArena) reset() {
	a.used = 0
}

// Used returns the number of slots written this frame.
func (a *uniformArena) Used() int {
	return a.used
}

func (a *uniformArena) release() {
	for _, buf := range a.blocks {
		buf.Release()
	}
	a.blocks = nil
	a.used = 0
}
