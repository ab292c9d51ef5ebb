package gpucore

import (
	"sort"
	"strconv"
)

// Entry points every program exposes.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

// Define is a named integer constant a program was synthesized with.
type Define struct {
	Name  string
	Value int
}

// ProgramSource is a fully synthesized program ready for compilation.
//
// WGSL is what GPU backends compile. Defines carry the same feature
// selection in structured form; backends that do not consume WGSL
// (the software rasterizer) interpret the defines instead.
type ProgramSource struct {
	Label   string
	Key     string
	WGSL    string
	Defines []Define
}

// Define returns the value of the named define.
func (s ProgramSource) Define(name string) (int, bool) {
	for _, d := range s.Defines {
		if d.Name == name {
			return d.Value, true
		}
	}
	return 0, false
}

// Flag reports whether the named define is present and non-zero.
func (s ProgramSource) Flag(name string) bool {
	v, ok := s.Define(name)
	return ok && v != 0
}

// SortDefines orders defines by name so equal feature sets produce
// equal sources.
func SortDefines(defs []Define) {
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
}

// Define names shared by the WGSL templates and backends that interpret
// defines directly.
const (
	DefineStage        = "STAGE"
	DefineShading      = "SHADING"
	DefineLightCount   = "LIGHT_COUNT"
	DefineShadowCount  = "SHADOW_COUNT"
	DefineBaseColorMap = "HAS_BASE_COLOR_MAP"
	DefineVertexColor  = "VERTEX_COLOR"
	DefineEmissive     = "EMISSIVE"
	DefineAlphaCutoff  = "ALPHA_CUTOFF"
	DefineEffect       = "EFFECT"
)

// Stage is the pipeline stage a program is synthesized for.
type Stage uint8

const (
	// StageForward shades geometry into color attachments.
	StageForward Stage = iota
	// StageDepth writes depth only (shadow maps).
	StageDepth
	// StagePost draws a fullscreen triangle sampling unit 0.
	StagePost
	// StageGeometry writes albedo, world position and normal into the
	// G-buffer attachments.
	StageGeometry
	// StageLight draws a fullscreen triangle that lights the G-buffer.
	StageLight
)

var stageNames = [...]string{
	StageForward:  "forward",
	StageDepth:    "depth",
	StagePost:     "post",
	StageGeometry: "geometry",
	StageLight:    "light",
}

// Fullscreen reports whether programs of the stage generate a
// fullscreen triangle instead of reading a vertex buffer.
func (s Stage) Fullscreen() bool {
	return s == StagePost || s == StageLight
}

// String returns the stage name.
func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "Stage(" + itoa(int(s)) + ")"
}

// Shading is the lighting model of a forward program.
type Shading uint8

const (
	// ShadingUnlit outputs the material color.
	ShadingUnlit Shading = iota
	// ShadingLambert is diffuse-only lighting.
	ShadingLambert
	// ShadingBlinnPhong adds a Blinn-Phong specular term.
	ShadingBlinnPhong
)

var shadingNames = [...]string{
	ShadingUnlit:      "unlit",
	ShadingLambert:    "lambert",
	ShadingBlinnPhong: "blinn-phong",
}

// String returns the shading name.
func (s Shading) String() string {
	if int(s) < len(shadingNames) {
		return shadingNames[s]
	}
	return "Shading(" + itoa(int(s)) + ")"
}

// Effect is the operation of a post program.
type Effect uint8

const (
	// EffectCopy copies the input color.
	EffectCopy Effect = iota
	// EffectGrayscale converts to Rec. 709 luminance.
	EffectGrayscale
	// EffectToneMap applies exponential tone mapping with the exposure
	// uniform.
	EffectToneMap
	// EffectInvert inverts color channels.
	EffectInvert
)

var effectNames = [...]string{
	EffectCopy:      "copy",
	EffectGrayscale: "grayscale",
	EffectToneMap:   "tonemap",
	EffectInvert:    "invert",
}

// String returns the effect name.
func (e Effect) String() string {
	if int(e) < len(effectNames) {
		return effectNames[e]
	}
	return "Effect(" + itoa(int(e)) + ")"
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
