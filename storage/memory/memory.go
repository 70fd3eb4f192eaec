// Package memory provides an in-process implementation of the
// storage port, useful for tests and single-process callers. Grounded
// on storage/memory's mutex-guarded map in the teacher.
package memory

import (
	"context"
	"sync"

	"github.com/mediamonks/oidcflow/storage"
)

var _ storage.Store = (*Store)(nil)

// Store is an in-process, mutex-guarded credential cache.
type Store struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// New returns an empty in-process store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, clientIdentifier string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, ok := s.blobs[clientIdentifier]
	if !ok {
		return nil, storage.ErrNotFound
	}
	// Defensive copy: callers must not observe mutations made after Get.
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

func (s *Store) Put(_ context.Context, clientIdentifier string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(blob))
	copy(cp, blob)
	s.blobs[clientIdentifier] = cp
	return nil
}

func (s *Store) Delete(_ context.Context, clientIdentifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, clientIdentifier)
	return nil
}
