package compositor

import "sync"

// Factory creates a new compositor instance.
type Factory func() BatchCompositor

// registry holds registered compositor backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)

	// Priority order for backend selection (first available wins).
	// Hardware first; software is the universal fallback.
	backendPriority = []string{BackendWGPU, BackendSoftware}
)

// BackendWGPU is the identifier of the wgpu backend, registered by the
// compositor/wgpu package when imported.
const BackendWGPU = "wgpu"

// Register registers a compositor factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// IsRegistered checks whether a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns a new compositor instance by name, or nil if the name is not
// registered. The instance is not initialized; callers run Init and handle
// its failure.
func Get(name string) BatchCompositor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := backends[name]
	if !ok {
		return nil
	}
	return factory()
}

// Default returns the best registered backend by priority order.
// Registration alone doesn't guarantee the backend initializes — callers
// still fall back to software if Init fails.
func Default() BatchCompositor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			if c := factory(); c != nil {
				return c
			}
		}
	}
	for _, factory := range backends {
		if c := factory(); c != nil {
			return c
		}
	}
	return nil
}
