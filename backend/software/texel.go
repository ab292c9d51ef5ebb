// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gputypes"
)

func unorm8(v float32) byte {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(math32.Round(v * 255))
}

// encode writes one texel of format f.
func encode(f gputypes.TextureFormat, px []byte, c [4]float32) {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
		px[0], px[1], px[2], px[3] = unorm8(c[0]), unorm8(c[1]), unorm8(c[2]), unorm8(c[3])
	case gputypes.TextureFormatBGRA8Unorm:
		px[0], px[1], px[2], px[3] = unorm8(c[2]), unorm8(c[1]), unorm8(c[0]), unorm8(c[3])
	case gputypes.TextureFormatR8Unorm:
		px[0] = unorm8(c[0])
	case gputypes.TextureFormatRGBA32Float:
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint32(px[i*4:], math.Float32bits(c[i]))
		}
	case gputypes.TextureFormatDepth32Float:
		binary.LittleEndian.PutUint32(px, math.Float32bits(c[0]))
	}
}

// decode reads one texel of format f as WebGPU shaders see it.
func decode(f gputypes.TextureFormat, px []byte) [4]float32 {
	const inv = 1.0 / 255
	switch f {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
		return [4]float32{float32(px[0]) * inv, float32(px[1]) * inv, float32(px[2]) * inv, float32(px[3]) * inv}
	case gputypes.TextureFormatBGRA8Unorm:
		return [4]float32{float32(px[2]) * inv, float32(px[1]) * inv, float32(px[0]) * inv, float32(px[3]) * inv}
	case gputypes.TextureFormatR8Unorm:
		return [4]float32{float32(px[0]) * inv, 0, 0, 1}
	case gputypes.TextureFormatRGBA32Float:
		var c [4]float32
		for i := range c {
			c[i] = math.Float32frombits(binary.LittleEndian.Uint32(px[i*4:]))
		}
		return c
	case gputypes.TextureFormatDepth32Float:
		return [4]float32{math.Float32frombits(binary.LittleEndian.Uint32(px)), 0, 0, 1}
	}
	return [4]float32{}
}

func (t *texture) load(x, y int) [4]float32 {
	off := (y*t.width + x) * t.bpp
	return decode(t.format, t.levels[0][off:off+t.bpp])
}

func (t *texture) store(x, y int, c [4]float32) {
	off := (y*t.width + x) * t.bpp
	encode(t.format, t.levels[0][off:off+t.bpp], c)
}

// depthAt reads a depth texel.
func (t *texture) depthAt(x, y int) float32 {
	off := (y*t.width + x) * 4
	return math.Float32frombits(binary.LittleEndian.Uint32(t.levels[0][off:]))
}

func (t *texture) setDepth(x, y int, d float32) {
	off := (y*t.width + x) * 4
	binary.LittleEndian.PutUint32(t.levels[0][off:], math.Float32bits(d))
}

// wrap maps texel coordinate i into [0, n) per address mode.
func wrap(i, n int, mode gputypes.AddressMode) int {
	switch mode {
	case gputypes.AddressModeRepeat:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	case gputypes.AddressModeMirrorRepeat:
		period := 2 * n
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
		return i
	default:
		return min(max(i, 0), n-1)
	}
}

// sample filters texture t at normalized coordinates (u, v), v down.
func sample(t *texture, u, v float32) [4]float32 {
	s := t.sampler
	if s.Mag != gputypes.FilterModeLinear {
		x := wrap(int(math32.Floor(u*float32(t.width))), t.width, s.AddressU)
		y := wrap(int(math32.Floor(v*float32(t.height))), t.height, s.AddressV)
		return t.load(x, y)
	}
	fx := u*float32(t.width) - 0.5
	fy := v*float32(t.height) - 0.5
	x0f, y0f := math32.Floor(fx), math32.Floor(fy)
	tx, ty := fx-x0f, fy-y0f
	x0, y0 := int(x0f), int(y0f)
	xa, xb := wrap(x0, t.width, s.AddressU), wrap(x0+1, t.width, s.AddressU)
	ya, yb := wrap(y0, t.height, s.AddressV), wrap(y0+1, t.height, s.AddressV)
	c00, c10 := t.load(xa, ya), t.load(xb, ya)
	c01, c11 := t.load(xa, yb), t.load(xb, yb)
	var c [4]float32
	for i := range c {
		top := c00[i] + (c10[i]-c00[i])*tx
		bot := c01[i] + (c11[i]-c01[i])*tx
		c[i] = top + (bot-top)*ty
	}
	return c
}

// blend combines a fragment with the stored color.
func blend(m gpucore.BlendMode, src, dst [4]float32) [4]float32 {
	switch m {
	case gpucore.BlendAlpha:
		a := src[3]
		return [4]float32{
			src[0]*a + dst[0]*(1-a),
			src[1]*a + dst[1]*(1-a),
			src[2]*a + dst[2]*(1-a),
			a + dst[3]*(1-a),
		}
	case gpucore.BlendPremultiplied:
		a := src[3]
		return [4]float32{src[0] + dst[0]*(1-a), src[1] + dst[1]*(1-a), src[2] + dst[2]*(1-a), a + dst[3]*(1-a)}
	case gpucore.BlendAdditive:
		return [4]float32{src[0] + dst[0], src[1] + dst[1], src[2] + dst[2], src[3] + dst[3]}
	default:
		return src
	}
}
