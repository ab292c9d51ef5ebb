package shader

import (
	"errors"
	"testing"
)

const validWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    let x = f32(i32(i) - 1);
    return vec4<f32>(x, 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{"valid", validWGSL, false},
		{"syntax", "fn vs_main( {", true},
		{"unknown identifier", "@fragment fn fs_main() -> @location(0) vec4<f32> { return missing; }", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.source)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuiltinPermutationsValidate(t *testing.T) {
	fps := Permutations(2)
	if len(fps) == 0 {
		t.Fatal("Permutations(2) is empty")
	}
	for fp, err := range ValidateAll(Builtin(), fps) {
		t.Errorf("%s: %v", fp, err)
	}
}

func TestPermutationsUnique(t *testing.T) {
	fps := Permutations(2)
	seen := make(map[Fingerprint]bool, len(fps))
	stages := make(map[Stage]bool)
	for _, fp := range fps {
		if seen[fp] {
			t.Errorf("Permutations() repeats %s", fp)
		}
		seen[fp] = true
		stages[fp.Stage()] = true
	}
	for _, s := range []Stage{StageForward, StageDepth, StagePost, StageGeometry, StageLight} {
		if !stages[s] {
			t.Errorf("Permutations() has no %s fingerprint", s)
		}
	}
}

func TestValidateAllMissingTemplate(t *testing.T) {
	fp := NewFeatures(StageDepth, Unlit).Fingerprint()
	failed := ValidateAll(&Templates{}, []Fingerprint{fp})
	if err := failed[fp]; !errors.Is(err, ErrNoTemplate) {
		t.Errorf("ValidateAll() error = %v, want ErrNoTemplate", err)
	}
}
