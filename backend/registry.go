package backend

import (
	"errors"
	"slices"
	"sort"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/gpucontext"
)

// Priority order for backend selection (first available wins).
// Native GPU > browser GPU > software fallback.
var backendPriority = []string{BackendWGPU, BackendWebGPU, BackendSoftware}

var backends = gpucontext.NewRegistry[gpucore.Adapter](
	gpucontext.WithPriority(backendPriority...),
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	backends.Register(name, factory)
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	backends.Unregister(name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	names := backends.Available()
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	return backends.Has(name)
}

// Get returns a new adapter by name.
// Returns nil if the backend is not registered.
func Get(name string) gpucore.Adapter {
	if !backends.Has(name) {
		return nil
	}
	return backends.Get(name)
}

// Default returns a new adapter of the best available backend.
// Priority order: wgpu > webgpu > software.
// Returns nil if no backends are registered.
func Default() gpucore.Adapter {
	return backends.Best()
}

// DefaultName returns the name Default would pick.
func DefaultName() string {
	return backends.BestName()
}

// MustDefault returns the default backend or panics.
func MustDefault() gpucore.Adapter {
	b := Default()
	if b == nil {
		panic("backend: no backend available")
	}
	return b
}

// Open creates and initializes the named backend. An empty name tries
// the registered backends in priority order and returns the first one
// whose Init succeeds.
func Open(name string) (gpucore.Adapter, error) {
	if name != "" {
		b := Get(name)
		if b == nil {
			return nil, ErrBackendNotAvailable
		}
		if err := b.Init(); err != nil {
			b.Close()
			return nil, err
		}
		return b, nil
	}
	var errs []error
	for _, n := range candidates() {
		b := Get(n)
		if err := b.Init(); err != nil {
			b.Close()
			errs = append(errs, err)
			continue
		}
		return b, nil
	}
	return nil, errors.Join(append([]error{ErrBackendNotAvailable}, errs...)...)
}

// candidates lists registered backends, prioritized ones first.
func candidates() []string {
	var out []string
	for _, n := range backendPriority {
		if IsRegistered(n) {
			out = append(out, n)
		}
	}
	for _, n := range Available() {
		if !slices.Contains(backendPriority, n) {
			out = append(out, n)
		}
	}
	return out
}

// InitDefault initializes the default backend based on availability.
func InitDefault() (gpucore.Adapter, error) {
	return Open("")
}
