package gpucore

import (
	"errors"
	"fmt"
	"testing"
)

func TestBackendErrorContextLost(t *testing.T) {
	lost := NewBackendError("software", "Draw", KindContextLost, nil)
	wrapped := fmt.Errorf("frame: %w", lost)

	if !errors.Is(wrapped, ErrContextLost) {
		t.Error("errors.Is(wrapped, ErrContextLost) = false, want true")
	}
	if !IsContextLost(lost) {
		t.Error("IsContextLost() = false, want true")
	}

	alloc := NewBackendError("software", "CreateBuffer", KindAllocation, errors.New("out of memory"))
	if errors.Is(alloc, ErrContextLost) {
		t.Error("allocation error should not match ErrContextLost")
	}

	var be *BackendError
	if !errors.As(wrapped, &be) || be.Op != "Draw" {
		t.Errorf("errors.As() = %v, want Op Draw", be)
	}
}

func TestCompileErrorDiagnostic(t *testing.T) {
	err := CompileError("wgpu", "CompileProgram", "line 3: unknown identifier", nil)
	if got := Diagnostic(err); got != "line 3: unknown identifier" {
		t.Errorf("Diagnostic() = %q", got)
	}
	if got := Diagnostic(fmt.Errorf("wrap: %w", err)); got != "line 3: unknown identifier" {
		t.Errorf("Diagnostic(wrapped) = %q", got)
	}
	if got := Diagnostic(nil); got != "" {
		t.Errorf("Diagnostic(nil) = %q, want empty", got)
	}
}

func TestCheckDrawRange(t *testing.T) {
	tests := []struct {
		name               string
		first, count, size int
		wantErr            bool
	}{
		{"whole buffer", 0, 6, 6, false},
		{"tail", 3, 3, 6, false},
		{"empty", 6, 0, 6, false},
		{"past end", 4, 3, 6, true},
		{"first past end", 7, 0, 6, true},
		{"negative first", -1, 3, 6, true},
		{"negative count", 0, -3, 6, true},
		{"unbounded", 100, 3, -1, false},
		{"unbounded negative count", 0, -1, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDrawRange(tt.first, tt.count, tt.size)
			if got := err != nil; got != tt.wantErr {
				t.Fatalf("CheckDrawRange(%d, %d, %d) = %v, want error %v", tt.first, tt.count, tt.size, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrDrawRange) {
				t.Errorf("CheckDrawRange() error = %v, want ErrDrawRange", err)
			}
		})
	}
}
