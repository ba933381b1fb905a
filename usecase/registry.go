package usecase

import (
	"fmt"
	"sort"

	"dashboard/domain"
)

var (
	ErrorDuplicateAdapter = fmt.Errorf("adapter already registered")
)

// Registry maps each protocol to its adapter. It is filled at startup and
// read-only afterwards.
type Registry struct {
	adapters map[domain.ProtocolID]ProtocolAdapter
}

func NewRegistry(adapters ...ProtocolAdapter) (*Registry, error) {
	registry := &Registry{adapters: make(map[domain.ProtocolID]ProtocolAdapter, len(adapters))}
	for _, adapter := range adapters {
		if err := registry.register(adapter); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (r *Registry) register(adapter ProtocolAdapter) error {
	id := adapter.Protocol()
	if _, exist := r.adapters[id]; exist {
		return fmt.Errorf("%w: %v", ErrorDuplicateAdapter, id)
	}
	r.adapters[id] = adapter
	return nil
}

func (r *Registry) Get(id domain.ProtocolID) (ProtocolAdapter, error) {
	adapter, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %v", domain.ErrorUnknownProtocol, id)
	}
	return adapter, nil
}

// All returns the adapters ordered by protocol id.
func (r *Registry) All() []ProtocolAdapter {
	ids := make([]domain.ProtocolID, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	adapters := make([]ProtocolAdapter, 0, len(ids))
	for _, id := range ids {
		adapters = append(adapters, r.adapters[id])
	}
	return adapters
}

func (r *Registry) Protocols() []domain.ProtocolID {
	adapters := r.All()
	ids := make([]domain.ProtocolID, len(adapters))
	for i, adapter := range adapters {
		ids[i] = adapter.Protocol()
	}
	return ids
}
