package content

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Store publishes the current Registry. Readers take a snapshot with
// Current and keep it for the whole request; Replace swaps atomically.
type Store struct {
	current atomic.Pointer[Registry]
	mu      sync.Mutex
	version uint64
}

// NewStore creates a store serving reg
func NewStore(reg *Registry) *Store {
	s := &Store{}
	s.current.Store(reg)
	s.version = 1
	return s
}

// Current returns the registry in effect
func (s *Store) Current() *Registry {
	return s.current.Load()
}

// Replace installs reg and returns the new version number
func (s *Store) Replace(reg *Registry) (uint64, error) {
	if reg == nil {
		return 0, errors.New("cannot install a nil registry")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(reg)
	s.version++
	return s.version, nil
}

// Reload builds a new registry with load and installs it. A failed load
// leaves the current registry in place.
func (s *Store) Reload(load func() (*Registry, error)) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, err := load()
	if err != nil {
		return s.version, err
	}
	s.current.Store(reg)
	s.version++
	return s.version, nil
}

// Version counts installs since startup
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}
