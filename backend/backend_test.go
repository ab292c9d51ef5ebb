package backend_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/g3d/backend"
	"github.com/gogpu/g3d/backend/software"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/recording"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	// Software backend is auto-registered via init()
	if !backend.IsRegistered(backend.BackendSoftware) {
		t.Fatal("software backend should be auto-registered")
	}

	b := backend.Get(backend.BackendSoftware)
	if b == nil {
		t.Fatal("Get(software) returned nil")
	}
	if b.Name() != backend.BackendSoftware {
		t.Errorf("Get(software).Name() = %q, want %q", b.Name(), backend.BackendSoftware)
	}
	if _, ok := b.(*software.Backend); !ok {
		t.Errorf("Get(software) = %T, want *software.Backend", b)
	}
}

func TestRegistryGetUnregistered(t *testing.T) {
	if b := backend.Get("nonexistent"); b != nil {
		t.Errorf("Get(nonexistent) = %v, want nil", b)
	}
}

func TestRegistryAvailable(t *testing.T) {
	available := backend.Available()
	if !slices.Contains(available, backend.BackendSoftware) {
		t.Errorf("Available() = %v, want it to include software", available)
	}
	if !slices.IsSorted(available) {
		t.Errorf("Available() = %v, want sorted", available)
	}
}

func TestRegistryDefault(t *testing.T) {
	b := backend.Default()
	if b == nil {
		t.Fatal("Default() returned nil")
	}
	if b.Name() != backend.DefaultName() {
		t.Errorf("Default().Name() = %q, DefaultName() = %q", b.Name(), backend.DefaultName())
	}
}

func TestRegistryPriority(t *testing.T) {
	backend.Register("test-gpu", func() gpucore.Adapter { return software.New(1, 1) })
	defer backend.Unregister("test-gpu")

	// Unlisted names rank below the priority list.
	if got := backend.DefaultName(); got == "test-gpu" {
		t.Errorf("DefaultName() = %q, want a prioritized backend", got)
	}
}

func TestOpen(t *testing.T) {
	a, err := backend.Open(backend.BackendSoftware)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer a.Close()

	if _, err := a.CreateBuffer(gpucore.BufferDesc{Kind: gpucore.BufferIndex, Size: 4}); err != nil {
		t.Errorf("adapter from Open() should be initialized: %v", err)
	}

	if _, err := backend.Open("nonexistent"); !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("Open(nonexistent) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegistryMustDefault(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustDefault() panicked: %v", r)
		}
	}()
	if b := backend.MustDefault(); b == nil {
		t.Error("MustDefault() returned nil")
	}
}

func TestRegistryUnregister(t *testing.T) {
	backend.Register("test-backend", func() gpucore.Adapter { return software.New(1, 1) })
	if !backend.IsRegistered("test-backend") {
		t.Error("test-backend should be registered")
	}

	backend.Unregister("test-backend")
	if backend.IsRegistered("test-backend") {
		t.Error("test-backend should be unregistered")
	}
}

func TestOpenFallsBack(t *testing.T) {
	// A prioritized backend whose Init fails is skipped.
	backend.Register(backend.BackendWGPU, func() gpucore.Adapter { return software.New(0, 0) })
	defer backend.Unregister(backend.BackendWGPU)

	a, err := backend.Open("")
	if err != nil {
		t.Fatalf("Open(\"\") error = %v", err)
	}
	defer a.Close()
	if a.Name() != backend.BackendSoftware {
		t.Errorf("Open(\"\").Name() = %q, want %q", a.Name(), backend.BackendSoftware)
	}

	if _, err := backend.Open(backend.BackendWGPU); err == nil {
		t.Error("Open(wgpu) with a failing Init succeeded")
	}
}

func TestOpenClosesFailedBackend(t *testing.T) {
	var rec *recording.Recorder
	backend.Register("test-broken", func() gpucore.Adapter {
		rec = recording.NewRecorder(software.New(0, 0))
		return rec
	})
	defer backend.Unregister("test-broken")

	if _, err := backend.Open("test-broken"); err == nil {
		t.Fatal("Open(test-broken) error = nil, want Init error")
	}
	if got := rec.Count(recording.CmdClose); got != 1 {
		t.Errorf("Count(Close) = %d, want 1", got)
	}
}
