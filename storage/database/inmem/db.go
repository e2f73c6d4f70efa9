// Package inmem provides mutex-guarded in-memory repositories. They back
// tests and development setups and behave like the mongodb adapter.
package inmem

import "sync"

// table is an insertion-ordered map; listings depend on a deterministic
// base order for stable sorting and paging.
type table[T any] struct {
	mu    sync.RWMutex
	ids   []string
	items map[string]T
}

func newTable[T any]() *table[T] {
	return &table[T]{items: make(map[string]T)}
}

func (t *table[T]) insert(id string, item T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[id]; !ok {
		t.ids = append(t.ids, id)
	}
	t.items[id] = item
}

func (t *table[T]) get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.items[id]
	return item, ok
}

func (t *table[T]) update(id string, item T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[id]; !ok {
		return false
	}
	t.items[id] = item
	return true
}

func (t *table[T]) delete(ids ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		delete(t.items, id)
	}
	kept := t.ids[:0]
	for _, id := range t.ids {
		if _, ok := t.items[id]; ok {
			kept = append(kept, id)
		}
	}
	t.ids = kept
}

func (t *table[T]) all() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(t.ids))
	for _, id := range t.ids {
		out = append(out, t.items[id])
	}
	return out
}
