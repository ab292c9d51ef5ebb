//go:build js && wasm

package webgpu

import (
	"fmt"
	"syscall/js"

	"github.com/gogpu/g3d/gpucore"
)

const slotsPerBlock = 256

// uniformArena hands out one uniform slot per draw and recycles them
// after the frame is submitted.
type uniformArena struct {
	device  js.Value
	queue   js.Value
	slot    int
	blocks  []js.Value
	used    int
	scratch []byte
}

func newUniformArena(device, queue js.Value, alignment int) *uniformArena {
	return &uniformArena{device: device, queue: queue, slot: align(gpucore.UniformSize, max(alignment, 1))}
}

func (a *uniformArena) write(u *gpucore.Uniforms) (js.Value, int) {
	block, index := a.used/slotsPerBlock, a.used%slotsPerBlock
	if block == len(a.blocks) {
		a.blocks = append(a.blocks, a.device.Call("createBuffer", obj{
			"label": fmt.Sprintf("g3d-uniforms-%d", block),
			"size":  a.slot * slotsPerBlock,
			"usage": bufferUniform | bufferCopyDst,
		}))
	}
	if u == nil {
		u = &gpucore.Uniforms{}
	}
	a.scratch = u.AppendBytes(a.scratch[:0])
	offset := index * a.slot
	a.queue.Call("writeBuffer", a.blocks[block], offset, bytesToJS(a.scratch))
	a.used++
	return a.blocks[block], offset
}

func (a *uniformArena) reset() {
	a.used = 0
}

func (a *uniformArena) release() {
	for _, buf := range a.blocks {
		destroy(buf)
	}
	a.blocks = nil
	a.used = 0
}
