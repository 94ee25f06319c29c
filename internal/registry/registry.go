// Package registry maps analysis-type ids to their capability sets.
// Adding a model family means one Register call with a populated set; the
// orchestrator never changes. The registry is populated at startup and
// read-mostly afterwards; there is no unregistration.
package registry

import (
	"sort"
	"sync"

	"loadstone/internal/analysis"
)

// Registry is the process-wide analysis-type lookup.
type Registry struct {
	mu   sync.RWMutex
	sets map[string]*CapabilitySet
}

func New() *Registry {
	return &Registry{sets: make(map[string]*CapabilitySet)}
}

// Register binds a capability set to an analysis-type id. Registration
// does not validate completeness; a missing mandatory operation surfaces
// at first use, named.
func (r *Registry) Register(analysisType string, set *CapabilitySet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[analysisType] = set
}

// Resolve returns the capability set for an analysis type.
func (r *Registry) Resolve(analysisType string) (*CapabilitySet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.sets[analysisType]
	if !ok {
		return nil, &analysis.CapabilityError{AnalysisType: analysisType}
	}
	return set, nil
}

// IsRegistered reports whether an analysis type has a capability set.
func (r *Registry) IsRegistered(analysisType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sets[analysisType]
	return ok
}

// Types lists registered analysis-type ids, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sets))
	for t := range r.sets {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
