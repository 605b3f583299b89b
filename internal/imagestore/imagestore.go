// Package imagestore holds captured images outside the session record so the
// session store only carries references. The biometric stage fetches the
// document photo back by reference when it runs the face match.
package imagestore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"idverify/pkg/platform/sentinel"
)

// Store is the image persistence contract.
type Store interface {
	// Put stores the image and returns an opaque reference.
	Put(ctx context.Context, image []byte) (string, error)

	// Get returns the image for a reference, or sentinel.ErrNotFound.
	Get(ctx context.Context, ref string) ([]byte, error)

	// Delete discards an image. Deleting an unknown reference is not an error.
	Delete(ctx context.Context, ref string) error
}

// Memory keeps images in process memory. Suitable for tests and single-node
// development.
type Memory struct {
	mu     sync.RWMutex
	images map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{images: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, image []byte) (string, error) {
	ref := uuid.NewString()
	copied := append([]byte(nil), image...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[ref] = copied
	return ref, nil
}

func (m *Memory) Get(_ context.Context, ref string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	image, ok := m.images[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), image...), nil
}

func (m *Memory) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.images, ref)
	return nil
}
