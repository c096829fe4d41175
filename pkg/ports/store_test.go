package ports_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// MockStore is an in-memory implementation of TreeStore for testing purposes.
type MockStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string][]byte),
	}
}

func (m *MockStore) SaveTree(ctx context.Context, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = append([]byte(nil), data...)
	return nil
}

func (m *MockStore) GetTree(ctx context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[id]
	if !ok {
		return nil, domain.ErrTreeNotFound
	}
	return data, nil
}

func (m *MockStore) DeleteTree(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *MockStore) ListTrees(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func TestTreeStore_Contract(t *testing.T) {
	// The mock doubles as the reference implementation of the contract.
	ports.RunTreeStoreContract(t, NewMockStore())
}

func TestMockStore_CopiesInput(t *testing.T) {
	ctx := context.Background()
	store := NewMockStore()

	doc := []byte(`{"a":1}`)
	if err := store.SaveTree(ctx, "t", doc); err != nil {
		t.Fatalf("Failed to save tree: %v", err)
	}
	doc[2] = 'b'

	loaded, err := store.GetTree(ctx, "t")
	if err != nil {
		t.Fatalf("Failed to load tree: %v", err)
	}
	if string(loaded) != `{"a":1}` {
		t.Errorf("Expected stored copy to be isolated, got %s", loaded)
	}
}
