package blob

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/google/uuid"
)

// MemoryKey is the key id recorded by MemoryStore.
const MemoryKey = "memory"

// MemoryStore is an in-process Store for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Upload(_ context.Context, data []byte, _ string) (StoredObject, error) {
	id := uuid.NewString()
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	m.objects[id] = cp
	m.mu.Unlock()
	return StoredObject{DocumentID: id, EncryptionKeyID: MemoryKey}, nil
}

func (m *MemoryStore) Download(_ context.Context, documentID, _ string) ([]byte, error) {
	m.mu.RLock()
	data, ok := m.objects[documentID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("Download: object %s does not exist: %w", documentID, domain.ErrStorage)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, documentID, _ string) (DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[documentID]
	delete(m.objects, documentID)
	return DeleteResult{DeletedAtSource: ok}, nil
}
