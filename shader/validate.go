package shader

import (
	"errors"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/naga"
)

// Validate parses, lowers and validates WGSL source with naga. The
// returned error carries naga's positioned messages, one per issue.
func Validate(source string) error {
	ast, err := naga.Parse(source)
	if err != nil {
		return err
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return err
	}
	issues, err := naga.Validate(module)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		return nil
	}
	errs := make([]error, len(issues))
	for i, v := range issues {
		errs[i] = v
	}
	return errors.Join(errs...)
}

// ValidateAll renders every fingerprint with ts and validates the
// result. It returns the failures keyed by fingerprint.
func ValidateAll(ts *Templates, fps []Fingerprint) map[Fingerprint]error {
	failed := make(map[Fingerprint]error)
	for _, fp := range fps {
		t := ts.For(fp.Stage())
		if t == nil {
			failed[fp] = ErrNoTemplate
			continue
		}
		src, err := t.Render(fp)
		if err == nil {
			err = Validate(src.WGSL)
		}
		if err != nil {
			failed[fp] = err
		}
	}
	return failed
}

// Permutations enumerates the fingerprints a renderer can request:
// every lighting model, channel set and shadow count for up to
// maxLights lights, the depth stage, every post effect, every G-buffer
// channel set and the single-light programs of the light pass.
func Permutations(maxLights int) []Fingerprint {
	seen := make(map[Fingerprint]bool)
	var out []Fingerprint
	add := func(f Features) {
		fp := f.Fingerprint()
		if !seen[fp] {
			seen[fp] = true
			out = append(out, fp)
		}
	}
	for _, lighting := range []Lighting{Unlit, Lambert, BlinnPhong} {
		for ch := Channels(0); ch <= allChannels; ch++ {
			for lights := 0; lights <= min(maxLights, gpucore.MaxLights); lights++ {
				for shadows := 0; shadows <= min(lights, gpucore.MaxShadows); shadows++ {
					add(NewFeatures(StageForward, lighting, ch, Lights(lights), Shadows(shadows)))
				}
			}
		}
	}
	add(NewFeatures(StageDepth, Unlit))
	for e := EffectCopy; e <= EffectInvert; e++ {
		add(NewFeatures(StagePost, Unlit, WithEffect(e)))
	}
	for ch := Channels(0); ch <= allChannels; ch++ {
		add(NewFeatures(StageGeometry, Unlit, ch))
	}
	for _, lighting := range []Lighting{Unlit, Lambert, BlinnPhong} {
		for lights := 0; lights <= min(maxLights, 1); lights++ {
			for shadows := 0; shadows <= lights; shadows++ {
				add(NewFeatures(StageLight, lighting, Lights(lights), Shadows(shadows)))
			}
		}
	}
	return out
}
