package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store. Documents are deep-copied on the way in
// and out, so callers never share maps with the store.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	order []string
	docs  map[string]Document
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memCollection)}
}

func (m *Memory) collection(name string, create bool) *memCollection {
	c, ok := m.collections[name]
	if !ok && create {
		c = &memCollection{docs: make(map[string]Document)}
		m.collections[name] = c
	}
	return c
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("get", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := m.collection(collection, false)
	if c == nil {
		return nil, ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return withID(doc.Clone(), id), nil
}

// Query implements Store.
func (m *Memory) Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("query", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := m.collection(collection, false)
	if c == nil {
		return nil, nil
	}
	var out []Document
	for _, id := range c.order {
		doc := c.docs[id]
		if !matches(doc, filters) {
			continue
		}
		out = append(out, withID(doc.Clone(), id))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Append implements Store.
func (m *Memory) Append(ctx context.Context, collection string, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable("append", err)
	}
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection, true)
	c.docs[id] = doc.Clone()
	if c.docs[id] == nil {
		c.docs[id] = Document{}
	}
	c.order = append(c.order, id)
	return id, nil
}

// Merge implements Store.
func (m *Memory) Merge(ctx context.Context, collection, id string, fields Document) error {
	if err := ctx.Err(); err != nil {
		return unavailable("merge", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mergeLocked(collection, id, fields)
	return nil
}

func (m *Memory) mergeLocked(collection, id string, fields Document) {
	c := m.collection(collection, true)
	existing, ok := c.docs[id]
	if !ok {
		existing = Document{}
		c.order = append(c.order, id)
	}
	for k, v := range fields.Clone() {
		existing[k] = v
	}
	c.docs[id] = existing
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

// Len returns the number of documents in a collection.
func (m *Memory) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c := m.collection(collection, false); c != nil {
		return len(c.order)
	}
	return 0
}

// Seed loads documents from JSON shaped as
// {"collection": {"id": {...fields}}}. Ids are loaded in sorted order per
// collection so repeated seeds produce the same query order.
func (m *Memory) Seed(r io.Reader) error {
	var seed map[string]map[string]Document
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("failed to decode seed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for collection, docs := range seed {
		ids := make([]string, 0, len(docs))
		for id := range docs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			m.mergeLocked(collection, id, docs[id])
		}
	}
	return nil
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		v, ok := doc[f.Field]
		if !ok || !equalValues(v, f.Value) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
