package discovery

import (
	"sync"

	"github.com/ternarybob/atsforge/internal/interfaces"
)

// OperationRegistry guards mutual exclusion between concurrently
// requested operations (e.g. two "crawl_greenhouse" admin requests)
// while letting distinct keys run side by side.
type OperationRegistry struct {
	mu      sync.Mutex
	running map[string]bool
}

// NewOperationRegistry builds an empty registry.
func NewOperationRegistry() *OperationRegistry {
	return &OperationRegistry{running: make(map[string]bool)}
}

var _ interfaces.OperationRegistry = (*OperationRegistry)(nil)

func (r *OperationRegistry) Start(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[key] {
		return false
	}
	r.running[key] = true
	return true
}

func (r *OperationRegistry) End(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, key)
}

func (r *OperationRegistry) IsRunning(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running[key]
}
