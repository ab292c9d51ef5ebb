package auto

import (
	"testing"

	"github.com/gogpu/g3d/backend"
)

func TestRegistersSoftware(t *testing.T) {
	if !backend.IsRegistered(backend.BackendSoftware) {
		t.Fatalf("IsRegistered(%q) = false", backend.BackendSoftware)
	}
	a, err := backend.Open("")
	if err != nil {
		t.Fatalf("Open(\"\") error = %v", err)
	}
	defer a.Close()
	if a.Name() == "" {
		t.Error("Open(\"\").Name() is empty")
	}
}
