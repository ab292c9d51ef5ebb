package gpucore

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestDepthStatePasses(t *testing.T) {
	tests := []struct {
		name     string
		state    DepthState
		incoming float32
		stored   float32
		want     bool
	}{
		{"less pass", DepthDefault(), 0.2, 0.5, true},
		{"less equal depth fails", DepthDefault(), 0.5, 0.5, false},
		{"less equal", DepthShadowCast(), 0.5, 0.5, true},
		{"disabled", DepthDisabled(), 0.9, 0.1, true},
		{"greater", DepthState{Test: true, Compare: gputypes.CompareFunctionGreater}, 0.9, 0.1, true},
		{"never", DepthState{Test: true, Compare: gputypes.CompareFunctionNever}, 0, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Passes(tt.incoming, tt.stored); got != tt.want {
				t.Errorf("Passes(%v, %v) = %v, want %v", tt.incoming, tt.stored, got, tt.want)
			}
		})
	}
}

func TestCullStateCulls(t *testing.T) {
	tests := []struct {
		name  string
		state CullState
		area  float32
		want  bool
	}{
		{"back keeps ccw", CullBack(), 1, false},
		{"back culls cw", CullBack(), -1, true},
		{"none keeps cw", CullNone(), -1, false},
		{"front culls ccw", CullState{Mode: gputypes.CullModeFront}, 1, true},
		{"cw winding flips", CullState{Mode: gputypes.CullModeBack, Front: gputypes.FrontFaceCW}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Culls(tt.area); got != tt.want {
				t.Errorf("Culls(%v) = %v, want %v", tt.area, got, tt.want)
			}
		})
	}
}

func TestBlendModeState(t *testing.T) {
	if BlendNone.State() != nil {
		t.Error("BlendNone.State() should be nil")
	}
	add := BlendAdditive.State()
	if add == nil {
		t.Fatal("BlendAdditive.State() is nil")
	}
	if add.Color.SrcFactor != gputypes.BlendFactorOne || add.Color.DstFactor != gputypes.BlendFactorOne {
		t.Errorf("BlendAdditive factors = %v/%v, want One/One", add.Color.SrcFactor, add.Color.DstFactor)
	}
	if got := BlendAlpha.String(); got != "alpha" {
		t.Errorf("String() = %q, want %q", got, "alpha")
	}
}
