package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Store implements ports.TreeStore in memory.
// Safe for concurrent use. Every Save and Delete is broadcast to watchers.
type Store struct {
	data     map[string][]byte
	watchers []chan string
	mu       sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// SaveTree stores a copy of the document.
func (s *Store) SaveTree(ctx context.Context, id string, data []byte) error {
	copied := append([]byte(nil), data...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = copied
	s.notify(id)
	return nil
}

// GetTree retrieves a copy of the document, so callers cannot mutate the store.
func (s *Store) GetTree(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTreeNotFound, id)
	}
	return append([]byte(nil), data...), nil
}

// DeleteTree removes the document.
func (s *Store) DeleteTree(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; ok {
		delete(s.data, id)
		s.notify(id)
	}
	return nil
}

// ListTrees returns the stored tree IDs in sorted order.
func (s *Store) ListTrees(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Watch implements ports.Watchable. The channel is closed when ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 16)

	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

// notify sends id to every watcher without blocking; callers hold mu.
// A watcher whose buffer is full gets nothing, so it must drain promptly.
func (s *Store) notify(id string) {
	for _, w := range s.watchers {
		select {
		case w <- id:
		default:
		}
	}
}
