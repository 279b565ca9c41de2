package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aescanero/graph-builder/pkg/ports"
)

// DocumentStore implements ports.DocumentStore using an in-memory map
type DocumentStore struct {
	documents map[string]string
	mu        sync.RWMutex
}

// NewDocumentStore creates a new in-memory document store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]string),
	}
}

// Get returns the document stored under key
func (s *DocumentStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ports.ErrNotFound, key)
	}

	return doc, nil
}

// Put stores document under key, replacing any previous value
func (s *DocumentStore) Put(ctx context.Context, key, document string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents[key] = document
	return nil
}

// Delete removes the document stored under key
func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, key)
	return nil
}
