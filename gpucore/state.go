package gpucore

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Viewport is a pixel rectangle inside the bound target. Y grows down.
type Viewport struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether the viewport covers no pixels.
func (v Viewport) Empty() bool {
	return v.Width <= 0 || v.Height <= 0
}

// String returns "WxH+X+Y".
func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", v.Width, v.Height, v.X, v.Y)
}

// DepthState controls depth testing and writing.
type DepthState struct {
	Test    bool
	Write   bool
	Compare gputypes.CompareFunction
}

// DepthDefault tests with Less and writes.
func DepthDefault() DepthState {
	return DepthState{Test: true, Write: true, Compare: gputypes.CompareFunctionLess}
}

// DepthShadowCast is the state used when rendering into a shadow map:
// depth write on, LessEqual.
func DepthShadowCast() DepthState {
	return DepthState{Test: true, Write: true, Compare: gputypes.CompareFunctionLessEqual}
}

// DepthReadOnly tests with LessEqual without writing, used for
// transparent geometry.
func DepthReadOnly() DepthState {
	return DepthState{Test: true, Write: false, Compare: gputypes.CompareFunctionLessEqual}
}

// DepthDisabled neither tests nor writes.
func DepthDisabled() DepthState {
	return DepthState{Compare: gputypes.CompareFunctionAlways}
}

// Passes evaluates the comparison for an incoming fragment depth against
// the stored depth. Disabled testing always passes.
func (d DepthState) Passes(incoming, stored float32) bool {
	if !d.Test {
		return true
	}
	switch d.Compare {
	case gputypes.CompareFunctionNever:
		return false
	case gputypes.CompareFunctionLess:
		return incoming < stored
	case gputypes.CompareFunctionEqual:
		return incoming == stored
	case gputypes.CompareFunctionLessEqual:
		return incoming <= stored
	case gputypes.CompareFunctionGreater:
		return incoming > stored
	case gputypes.CompareFunctionNotEqual:
		return incoming != stored
	case gputypes.CompareFunctionGreaterEqual:
		return incoming >= stored
	default:
		return true
	}
}

// BlendMode selects a color blending equation.
type BlendMode uint8

const (
	// BlendNone replaces the destination.
	BlendNone BlendMode = iota
	// BlendAlpha is straight alpha blending.
	BlendAlpha
	// BlendPremultiplied is premultiplied alpha blending.
	BlendPremultiplied
	// BlendAdditive adds source to destination (ONE, ONE), used for
	// light accumulation.
	BlendAdditive
)

var blendNames = [...]string{
	BlendNone:          "none",
	BlendAlpha:         "alpha",
	BlendPremultiplied: "premultiplied",
	BlendAdditive:      "additive",
}

// String returns the blend mode name.
func (b BlendMode) String() string {
	if int(b) < len(blendNames) {
		return blendNames[b]
	}
	return fmt.Sprintf("BlendMode(%d)", b)
}

// State returns the WebGPU blend state, or nil when blending is off.
func (b BlendMode) State() *gputypes.BlendState {
	var s gputypes.BlendState
	switch b {
	case BlendAlpha:
		s = gputypes.BlendStateAlpha()
	case BlendPremultiplied:
		s = gputypes.BlendStatePremultiplied()
	case BlendAdditive:
		add := gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOne,
			Operation: gputypes.BlendOperationAdd,
		}
		s = gputypes.BlendState{Color: add, Alpha: add}
	default:
		return nil
	}
	return &s
}

// CullState selects face culling and winding.
type CullState struct {
	Mode  gputypes.CullMode
	Front gputypes.FrontFace
}

// CullBack culls back faces of counter-clockwise geometry.
func CullBack() CullState {
	return CullState{Mode: gputypes.CullModeBack, Front: gputypes.FrontFaceCCW}
}

// CullNone draws both faces.
func CullNone() CullState {
	return CullState{Mode: gputypes.CullModeNone, Front: gputypes.FrontFaceCCW}
}

// Culls reports whether a triangle with the given signed screen-space
// area (positive = counter-clockwise in a y-up frame) is discarded.
func (c CullState) Culls(area float32) bool {
	front := area > 0
	if c.Front == gputypes.FrontFaceCW {
		front = !front
	}
	switch c.Mode {
	case gputypes.CullModeBack:
		return !front
	case gputypes.CullModeFront:
		return front
	default:
		return false
	}
}

// PipelineState groups the fixed-function state of one draw.
type PipelineState struct {
	Depth DepthState
	Blend BlendMode
	Cull  CullState
}

// ClearOp describes which attachments of the bound target to clear.
type ClearOp struct {
	Color      bool
	ColorValue gputypes.Color
	Depth      bool
	DepthValue float32
}
