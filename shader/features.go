package shader

import (
	"cmp"
	"strconv"
	"strings"

	"github.com/gogpu/g3d/gpucore"
)

// Stage is the pipeline stage a program is synthesized for.
type Stage = gpucore.Stage

// Stages.
const (
	StageForward  = gpucore.StageForward
	StageDepth    = gpucore.StageDepth
	StagePost     = gpucore.StagePost
	StageGeometry = gpucore.StageGeometry
	StageLight    = gpucore.StageLight
)

// Lighting is the lighting model of a forward program.
type Lighting = gpucore.Shading

// Lighting models.
const (
	Unlit      = gpucore.ShadingUnlit
	Lambert    = gpucore.ShadingLambert
	BlinnPhong = gpucore.ShadingBlinnPhong
)

// Effect is the operation of a post program.
type Effect = gpucore.Effect

// Post effects.
const (
	EffectCopy      = gpucore.EffectCopy
	EffectGrayscale = gpucore.EffectGrayscale
	EffectToneMap   = gpucore.EffectToneMap
	EffectInvert    = gpucore.EffectInvert
)

// Channels is a bitmask of optional material inputs.
type Channels uint8

const (
	// ChannelBaseColorMap multiplies the base color by texture unit 0.
	ChannelBaseColorMap Channels = 1 << iota
	// ChannelVertexColor multiplies the base color by the vertex color.
	ChannelVertexColor
	// ChannelEmissive adds the emissive color after lighting.
	ChannelEmissive
	// ChannelAlphaCutoff discards fragments below the alpha cutoff.
	ChannelAlphaCutoff

	allChannels = ChannelBaseColorMap | ChannelVertexColor | ChannelEmissive | ChannelAlphaCutoff
	// geometryChannels are the channels a G-buffer program honors;
	// emissive color has no G-buffer attachment.
	geometryChannels = ChannelBaseColorMap | ChannelVertexColor | ChannelAlphaCutoff
)

var channelNames = []struct {
	c    Channels
	name string
}{
	{ChannelBaseColorMap, "basemap"},
	{ChannelVertexColor, "vcolor"},
	{ChannelEmissive, "emissive"},
	{ChannelAlphaCutoff, "cutoff"},
}

// Has reports whether every channel in o is set.
func (c Channels) Has(o Channels) bool {
	return c&o == o
}

// String joins the channel names with '+', or returns "none".
func (c Channels) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, n := range channelNames {
		if c.Has(n.c) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "+")
}

func (c Channels) apply(f *Features) {
	f.Channels |= c
}

// Features enumerates the inputs of program synthesis.
type Features struct {
	Stage    Stage
	Lighting Lighting
	Channels Channels
	// Lights is the number of light slots the program evaluates.
	Lights int
	// Shadows is the number of shadow maps the program samples.
	Shadows int
	// Effect selects the post effect.
	Effect Effect
}

// Flag is one unordered element of a feature list: a Channels value,
// Lights(n), Shadows(n) or WithEffect(e).
type Flag interface {
	apply(f *Features)
}

type lightsFlag int

func (n lightsFlag) apply(f *Features) { f.Lights = max(f.Lights, int(n)) }

type shadowsFlag int

func (n shadowsFlag) apply(f *Features) { f.Shadows = max(f.Shadows, int(n)) }

type effectFlag Effect

func (e effectFlag) apply(f *Features) { f.Effect = max(f.Effect, Effect(e)) }

// Lights requests n light slots.
func Lights(n int) Flag { return lightsFlag(n) }

// Shadows requests n shadow maps.
func Shadows(n int) Flag { return shadowsFlag(n) }

// WithEffect selects a post effect.
func WithEffect(e Effect) Flag { return effectFlag(e) }

// NewFeatures builds a feature set from an unordered flag list.
// Channels accumulate; repeated counts or effects take the maximum, so
// the result does not depend on flag order.
func NewFeatures(stage Stage, lighting Lighting, flags ...Flag) Features {
	f := Features{Stage: stage, Lighting: lighting}
	for _, fl := range flags {
		if fl != nil {
			fl.apply(&f)
		}
	}
	return f
}

// Fingerprint returns the canonical cache key of f. Fields that cannot
// affect the program are cleared: unlit and depth programs ignore
// lights and shadows, depth, post and light programs ignore channels,
// geometry programs ignore lighting, only post programs carry an
// effect, and shadow count never exceeds light count.
func (f Features) Fingerprint() Fingerprint {
	n := Features{Stage: f.Stage}
	switch f.Stage {
	case StageDepth:
	case StagePost:
		n.Effect = f.Effect
	case StageGeometry:
		n.Channels = f.Channels & geometryChannels
	case StageLight:
		n.Lighting = f.Lighting
		n.lights(f)
	default:
		n.Lighting = f.Lighting
		n.Channels = f.Channels & allChannels
		n.lights(f)
	}
	return Fingerprint{f: n}
}

// lights copies the clamped light and shadow counts of f into lit
// feature sets.
func (n *Features) lights(f Features) {
	if f.Lighting == Unlit {
		return
	}
	n.Lights = min(max(f.Lights, 0), gpucore.MaxLights)
	n.Shadows = min(max(f.Shadows, 0), gpucore.MaxShadows, n.Lights)
}

// Fingerprint is a normalized feature set. It is comparable and used
// as a map key; the zero value is the unlit forward program.
type Fingerprint struct {
	f Features
}

// Features returns the normalized feature set.
func (fp Fingerprint) Features() Features {
	return fp.f
}

// Stage returns the program stage.
func (fp Fingerprint) Stage() Stage {
	return fp.f.Stage
}

// Compare orders fingerprints by stage, lighting, channels, light
// count, shadow count and effect.
func (fp Fingerprint) Compare(o Fingerprint) int {
	a, b := fp.f, o.f
	return cmp.Or(
		cmp.Compare(a.Stage, b.Stage),
		cmp.Compare(a.Lighting, b.Lighting),
		cmp.Compare(a.Channels, b.Channels),
		cmp.Compare(a.Lights, b.Lights),
		cmp.Compare(a.Shadows, b.Shadows),
		cmp.Compare(a.Effect, b.Effect),
	)
}

// String returns a stable human-readable key, e.g.
// "forward/lambert/l2s1/basemap+vcolor", "light/lambert/l1s0",
// "geometry/basemap" or "post/tonemap".
func (fp Fingerprint) String() string {
	f := fp.f
	switch f.Stage {
	case StageDepth:
		return f.Stage.String()
	case StagePost:
		return f.Stage.String() + "/" + f.Effect.String()
	case StageGeometry:
		return f.Stage.String() + "/" + f.Channels.String()
	}
	var b strings.Builder
	b.WriteString(f.Stage.String())
	b.WriteByte('/')
	b.WriteString(f.Lighting.String())
	b.WriteString("/l")
	b.WriteString(strconv.Itoa(f.Lights))
	b.WriteByte('s')
	b.WriteString(strconv.Itoa(f.Shadows))
	if f.Stage == StageLight {
		return b.String()
	}
	b.WriteByte('/')
	b.WriteString(f.Channels.String())
	return b.String()
}

// Defines returns the defines of the program, sorted by name.
func (fp Fingerprint) Defines() []gpucore.Define {
	f := fp.f
	defs := []gpucore.Define{
		{Name: gpucore.DefineStage, Value: int(f.Stage)},
		{Name: gpucore.DefineShading, Value: int(f.Lighting)},
		{Name: gpucore.DefineLightCount, Value: f.Lights},
		{Name: gpucore.DefineShadowCount, Value: f.Shadows},
		{Name: gpucore.DefineEffect, Value: int(f.Effect)},
		{Name: gpucore.DefineBaseColorMap, Value: flag(f.Channels.Has(ChannelBaseColorMap))},
		{Name: gpucore.DefineVertexColor, Value: flag(f.Channels.Has(ChannelVertexColor))},
		{Name: gpucore.DefineEmissive, Value: flag(f.Channels.Has(ChannelEmissive))},
		{Name: gpucore.DefineAlphaCutoff, Value: flag(f.Channels.Has(ChannelAlphaCutoff))},
	}
	gpucore.SortDefines(defs)
	return defs
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
