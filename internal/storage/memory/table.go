package memory

import (
	"sort"
	"sync"

	"holo-reversal-lab/internal/storage"
)

// table holds records of type T keyed by a string ID. Records are copied on
// the way in and on the way out, so callers never share memory with the store.
type table[T any] struct {
	mu   sync.RWMutex
	rows map[string]*T
	key  func(*T) string
	less func(a, b *T) bool
}

func newTable[T any](key func(*T) string, less func(a, b *T) bool) *table[T] {
	return &table[T]{
		rows: make(map[string]*T),
		key:  key,
		less: less,
	}
}

// insert adds all records or none. A nil record or an empty key is
// ErrInvalidInput; a key that exists or repeats in the batch is ErrDuplicateKey.
func (t *table[T]) insert(recs ...*T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	batch := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		if r == nil || t.key(r) == "" {
			return storage.ErrInvalidInput
		}
		k := t.key(r)
		if _, ok := t.rows[k]; ok {
			return storage.ErrDuplicateKey
		}
		if _, ok := batch[k]; ok {
			return storage.ErrDuplicateKey
		}
		batch[k] = struct{}{}
	}

	for _, r := range recs {
		c := *r
		t.rows[t.key(r)] = &c
	}
	return nil
}

// get returns a copy of the record with key k.
func (t *table[T]) get(k string) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.rows[k]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *r
	return &c, nil
}

// where returns copies of the matching records in table order.
func (t *table[T]) where(keep func(*T) bool) []*T {
	t.mu.RLock()
	out := make([]*T, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			c := *r
			out = append(out, &c)
		}
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return t.less(out[i], out[j]) })
	return out
}

func all[T any](*T) bool { return true }
