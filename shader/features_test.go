package shader

import (
	"testing"

	"github.com/gogpu/g3d/gpucore"
)

func TestNewFeaturesOrderIndependent(t *testing.T) {
	a := NewFeatures(StageForward, BlinnPhong, Lights(2), ChannelVertexColor, Shadows(1), ChannelBaseColorMap)
	b := NewFeatures(StageForward, BlinnPhong, ChannelBaseColorMap, Shadows(1), ChannelVertexColor, Lights(2))
	if a != b {
		t.Errorf("NewFeatures() = %+v and %+v, want equal", a, b)
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("Fingerprint() differs for reordered flags: %v vs %v", a.Fingerprint(), b.Fingerprint())
	}
}

func TestFingerprintNormalization(t *testing.T) {
	tests := []struct {
		name string
		a, b Features
	}{
		{
			name: "unlit ignores lights",
			a:    Features{Stage: StageForward, Lighting: Unlit, Lights: 3, Shadows: 1},
			b:    Features{Stage: StageForward, Lighting: Unlit},
		},
		{
			name: "depth ignores channels",
			a:    Features{Stage: StageDepth, Lighting: Lambert, Channels: ChannelVertexColor | ChannelEmissive, Lights: 2},
			b:    Features{Stage: StageDepth},
		},
		{
			name: "forward ignores effect",
			a:    Features{Stage: StageForward, Lighting: Lambert, Lights: 1, Effect: EffectInvert},
			b:    Features{Stage: StageForward, Lighting: Lambert, Lights: 1},
		},
		{
			name: "post keeps only effect",
			a:    Features{Stage: StagePost, Lighting: BlinnPhong, Channels: ChannelBaseColorMap, Effect: EffectToneMap},
			b:    Features{Stage: StagePost, Effect: EffectToneMap},
		},
		{
			name: "lights clamp",
			a:    Features{Stage: StageForward, Lighting: Lambert, Lights: 99},
			b:    Features{Stage: StageForward, Lighting: Lambert, Lights: gpucore.MaxLights},
		},
		{
			name: "geometry ignores lighting and emissive",
			a:    Features{Stage: StageGeometry, Lighting: BlinnPhong, Lights: 2, Channels: ChannelBaseColorMap | ChannelEmissive},
			b:    Features{Stage: StageGeometry, Channels: ChannelBaseColorMap},
		},
		{
			name: "light ignores channels",
			a:    Features{Stage: StageLight, Lighting: Lambert, Lights: 1, Channels: ChannelVertexColor, Effect: EffectCopy},
			b:    Features{Stage: StageLight, Lighting: Lambert, Lights: 1},
		},
		{
			name: "shadows bounded by lights",
			a:    Features{Stage: StageForward, Lighting: Lambert, Lights: 1, Shadows: 2},
			b:    Features{Stage: StageForward, Lighting: Lambert, Lights: 1, Shadows: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, want := tt.a.Fingerprint(), tt.b.Fingerprint(); got != want {
				t.Errorf("Fingerprint() = %v, want %v", got, want)
			}
		})
	}
}

func TestFingerprintDistinguishes(t *testing.T) {
	base := Features{Stage: StageForward, Lighting: Lambert, Lights: 1}
	variants := []Features{
		{Stage: StageForward, Lighting: BlinnPhong, Lights: 1},
		{Stage: StageForward, Lighting: Lambert, Lights: 2},
		{Stage: StageForward, Lighting: Lambert, Lights: 1, Shadows: 1},
		{Stage: StageForward, Lighting: Lambert, Lights: 1, Channels: ChannelAlphaCutoff},
		{Stage: StageDepth},
	}
	for _, v := range variants {
		if v.Fingerprint() == base.Fingerprint() {
			t.Errorf("Fingerprint(%+v) equals Fingerprint(%+v)", v, base)
		}
	}
}

func TestFingerprintString(t *testing.T) {
	tests := []struct {
		f    Features
		want string
	}{
		{Features{}, "forward/unlit/l0s0/none"},
		{NewFeatures(StageForward, Lambert, Lights(2), Shadows(1), ChannelVertexColor, ChannelBaseColorMap), "forward/lambert/l2s1/basemap+vcolor"},
		{Features{Stage: StageDepth, Lights: 3}, "depth"},
		{NewFeatures(StagePost, Unlit, WithEffect(EffectToneMap)), "post/tonemap"},
		{NewFeatures(StageGeometry, Lambert, ChannelBaseColorMap, ChannelEmissive), "geometry/basemap"},
		{NewFeatures(StageLight, BlinnPhong, Lights(1), Shadows(1)), "light/blinn-phong/l1s1"},
	}
	for _, tt := range tests {
		if got := tt.f.Fingerprint().String(); got != tt.want {
			t.Errorf("Fingerprint().String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFingerprintDefines(t *testing.T) {
	fp := NewFeatures(StageForward, BlinnPhong, Lights(3), ChannelEmissive).Fingerprint()
	src := gpucore.ProgramSource{Defines: fp.Defines()}

	for i := 1; i < len(src.Defines); i++ {
		if src.Defines[i-1].Name >= src.Defines[i].Name {
			t.Fatalf("Defines() not sorted: %v", src.Defines)
		}
	}
	checks := []struct {
		name string
		want int
	}{
		{gpucore.DefineStage, int(StageForward)},
		{gpucore.DefineShading, int(BlinnPhong)},
		{gpucore.DefineLightCount, 3},
		{gpucore.DefineEmissive, 1},
		{gpucore.DefineVertexColor, 0},
	}
	for _, c := range checks {
		if got, _ := src.Define(c.name); got != c.want {
			t.Errorf("Define(%s) = %d, want %d", c.name, got, c.want)
		}
	}
}
