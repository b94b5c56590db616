// Package memstore provides an in-process Exchange, used in tests and in
// single-process wirings where the bridge daemon is the rendezvous point.
package memstore

import (
	"bytes"
	"sync"

	"commlink.dev/rendezvous/exchange"
)

type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) Publish(key string, payload []byte) error {
	if !exchange.ValidKey(key) {
		return exchange.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.objects[key]; ok {
		if bytes.Equal(existing, payload) {
			return nil
		}
		return exchange.ErrImmutable
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.objects[key] = cp
	return nil
}

func (s *Store) Fetch(key string) ([]byte, error) {
	if !exchange.ValidKey(key) {
		return nil, exchange.ErrInvalidKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.objects[key]
	if !ok {
		return nil, exchange.ErrNotFound
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (s *Store) Has(key string) bool {
	if !exchange.ValidKey(key) {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}
