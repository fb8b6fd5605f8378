package services

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds one RecordService per configured backend.
type Registry struct {
	mu       sync.RWMutex
	services map[string]RecordService
}

func NewRegistry() *Registry {
	return &Registry{services: map[string]RecordService{}}
}

func (r *Registry) Register(svc RecordService) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := svc.Backend()
	if _, exists := r.services[name]; exists {
		return fmt.Errorf("backend %q already registered", name)
	}
	r.services[name] = svc
	return nil
}

func (r *Registry) Get(backend string) (RecordService, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[backend]
	return svc, ok
}

// Backends returns registered backend names in sorted order.
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.services))
	for name := range r.services {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
